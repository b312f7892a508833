package stage_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AiSchool-Admin/quran-miracles/internal/dag"
	"github.com/AiSchool-Admin/quran-miracles/internal/stage"
	"github.com/AiSchool-Admin/quran-miracles/internal/state"
)

func TestHumanities_EmptyVersesYieldsEmptyFindings(t *testing.T) {
	st := stage.Humanities(errLLM{})
	update, err := st.Run(context.Background(), state.State{})
	require.NoError(t, err)

	require.NotNil(t, update.HumanitiesFindings)
	assert.Empty(t, *update.HumanitiesFindings)
}

func TestHumanities_NarrowsToKnownDisciplinesAndDropsNaturalSciences(t *testing.T) {
	st := stage.Humanities(errLLM{})
	update, err := st.Run(context.Background(), state.State{
		Verses:      []state.VerseRecord{{VerseKey: "21:30", TextUthmani: "نص"}},
		Disciplines: []string{"physics", "psychology", "biology", "economics"},
	})
	require.NoError(t, err)

	require.NotNil(t, update.HumanitiesFindings)
	seen := make(map[string]bool)
	for _, f := range *update.HumanitiesFindings {
		seen[f.Discipline] = true
	}
	assert.True(t, seen["psychology"])
	assert.True(t, seen["economics"])
	assert.False(t, seen["physics"])
	assert.False(t, seen["biology"])
}

func TestHumanities_FallsBackToPsychologySociologyWhenOnlyNaturalSciencesGiven(t *testing.T) {
	st := stage.Humanities(errLLM{})
	update, err := st.Run(context.Background(), state.State{
		Verses:      []state.VerseRecord{{VerseKey: "21:30", TextUthmani: "نص"}},
		Disciplines: []string{"physics", "geology"},
	})
	require.NoError(t, err)

	require.NotNil(t, update.HumanitiesFindings)
	seen := make(map[string]bool)
	for _, f := range *update.HumanitiesFindings {
		seen[f.Discipline] = true
	}
	assert.True(t, seen["psychology"])
	assert.True(t, seen["sociology"])
}

func TestHumanities_ParsesWellFormedLLMJSONArray(t *testing.T) {
	client := stubLLM{response: `[{"verse_key": "21:30", "quranic_concept": "مفهوم", "discipline": "psychology", "correlation_type": "intersecting", "intellectual_honesty_note": "ملاحظة"}]`}
	st := stage.Humanities(client)
	update, err := st.Run(context.Background(), state.State{
		Verses:      []state.VerseRecord{{VerseKey: "21:30", TextUthmani: "نص"}},
		Disciplines: []string{"psychology"},
	})
	require.NoError(t, err)

	require.NotNil(t, update.HumanitiesFindings)
	require.Len(t, *update.HumanitiesFindings, 1)
	assert.Equal(t, "intersecting", (*update.HumanitiesFindings)[0].CorrelationType)
}

func TestHumanities_RegistersUnderCorrectStageName(t *testing.T) {
	assert.Equal(t, dag.StageHumanities, stage.Humanities(errLLM{}).Name())
}
