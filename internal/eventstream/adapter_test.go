package eventstream_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AiSchool-Admin/quran-miracles/internal/dag"
	"github.com/AiSchool-Admin/quran-miracles/internal/eventstream"
	"github.com/AiSchool-Admin/quran-miracles/internal/state"
)

func eventNames(events []eventstream.Event) []string {
	names := make([]string, len(events))
	for i, e := range events {
		names[i] = e.Name
	}
	return names
}

func TestAdapter_Start(t *testing.T) {
	a := eventstream.New("sess-1")
	ev := a.Start()
	assert.Equal(t, "session_start", ev.Name)
	assert.Equal(t, "sess-1", ev.Payload["session_id"])
}

func TestAdapter_QuranSearchEmittedOnceAcrossRouteQueryAndQuranRAG(t *testing.T) {
	a := eventstream.New("sess-1")

	// route_query completes first.
	first := a.Translate(dag.Completion{
		Stages:  []string{dag.StageRouteQuery},
		Updates: []state.Update{{Stage: dag.StageRouteQuery}},
		Merged:  state.State{},
	})
	assert.Equal(t, []string{"quran_search"}, eventNames(first))

	// quran_rag completes next in a later super-step; quran_search must
	// not repeat, but quran_found should fire once verses are present.
	second := a.Translate(dag.Completion{
		Stages:  []string{dag.StageQuranRAG},
		Updates: []state.Update{{Stage: dag.StageQuranRAG}},
		Merged:  state.State{Verses: []state.VerseRecord{{VerseKey: "21:30"}}},
	})
	assert.Equal(t, []string{"quran_found"}, eventNames(second))
}

func TestAdapter_ScienceAndHumanitiesShareEventNameButCarryDistinctFields(t *testing.T) {
	a := eventstream.New("sess-1")

	scienceFindings := []state.ScienceFinding{{VerseKey: "21:30", Discipline: "biology", ConfidenceTier: "tier_2"}}
	events := a.Translate(dag.Completion{
		Stages:  []string{dag.StageScience},
		Updates: []state.Update{{Stage: dag.StageScience, ScienceFindings: &scienceFindings}},
		Merged:  state.State{},
	})
	require.Len(t, events, 1)
	assert.Equal(t, eventstream.ScienceFindingEventName, events[0].Name)
	assert.Equal(t, "tier_2", events[0].Payload["confidence_tier"])

	humanitiesFindings := []state.HumanitiesFinding{{VerseKey: "21:30", Discipline: "psychology", CorrelationType: "parallel"}}
	events = a.Translate(dag.Completion{
		Stages:  []string{dag.StageHumanities},
		Updates: []state.Update{{Stage: dag.StageHumanities, HumanitiesFindings: &humanitiesFindings}},
		Merged:  state.State{},
	})
	require.Len(t, events, 1)
	assert.Equal(t, eventstream.ScienceFindingEventName, events[0].Name)
	assert.Equal(t, "parallel", events[0].Payload["correlation_type"])
}

func TestAdapter_StagesWithinOneSuperStepTranslateInLexicographicOrder(t *testing.T) {
	a := eventstream.New("sess-1")
	scienceFindings := []state.ScienceFinding{{VerseKey: "1:1"}}
	humanitiesFindings := []state.HumanitiesFinding{{VerseKey: "1:1"}}

	events := a.Translate(dag.Completion{
		Stages: []string{dag.StageHumanities, dag.StageTafseer, dag.StageScience},
		Updates: []state.Update{
			{Stage: dag.StageHumanities, HumanitiesFindings: &humanitiesFindings},
			{Stage: dag.StageTafseer},
			{Stage: dag.StageScience, ScienceFindings: &scienceFindings},
		},
		Merged: state.State{},
	})

	// Lexicographic: humanities < science < tafseer.
	assert.Equal(t, []string{eventstream.ScienceFindingEventName, eventstream.ScienceFindingEventName, "tafseer"}, eventNames(events))
}

func TestAdapter_TerminalCompleteEventOmitsDiscoveryIDWhenUnset(t *testing.T) {
	a := eventstream.New("sess-1")
	events := a.Translate(dag.Completion{Done: true, Merged: state.State{Synthesis: "done", ConfidenceTier: state.Tier2}})

	require.Len(t, events, 1)
	assert.Equal(t, "complete", events[0].Name)
	_, hasDiscoveryID := events[0].Payload["discovery_id"]
	assert.False(t, hasDiscoveryID)
}

func TestAdapter_TerminalCompleteEventIncludesDiscoveryIDWhenSet(t *testing.T) {
	a := eventstream.New("sess-1")
	events := a.Translate(dag.Completion{Done: true, Merged: state.State{DiscoveryID: "abc-123"}})

	require.Len(t, events, 1)
	assert.Equal(t, "abc-123", events[0].Payload["discovery_id"])
}

func TestAdapter_TerminalErrorEvent(t *testing.T) {
	a := eventstream.New("sess-1")
	events := a.Translate(dag.Completion{Done: true, Err: errors.New("boom")})

	require.Len(t, events, 1)
	assert.Equal(t, "error", events[0].Name)
	assert.Equal(t, "boom", events[0].Payload["error"])
}
