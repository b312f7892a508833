// Package eventstream translates dag.Completion values into the ordered,
// de-duplicated client-facing event sequence described by SPEC_FULL.md
// §4.5: session_start, per-stage translation rules, and a terminal
// complete/error event.
package eventstream

import (
	"sort"

	"github.com/AiSchool-Admin/quran-miracles/internal/dag"
	"github.com/AiSchool-Admin/quran-miracles/internal/state"
)

// ScienceFindingEventName is the outgoing event name shared by both the
// science and humanities stages. The source contract reuses a single
// event name across two disciplines; kept as one constant so fixing the
// naming collision later is a one-line change.
const ScienceFindingEventName = "science_finding"

// Event is one outgoing (name, payload) pair.
type Event struct {
	Name    string
	Payload map[string]interface{}
}

// Adapter holds the per-session de-duplication set and translates a
// stream of dag.Completion values into outgoing Events.
type Adapter struct {
	sessionID string
	emitted   map[string]bool
}

// New builds an Adapter for one session.
func New(sessionID string) *Adapter {
	return &Adapter{sessionID: sessionID, emitted: make(map[string]bool)}
}

// Start returns the opening session_start event.
func (a *Adapter) Start() Event {
	return Event{Name: "session_start", Payload: map[string]interface{}{"session_id": a.sessionID}}
}

func (a *Adapter) once(name string) bool {
	if a.emitted[name] {
		return false
	}
	a.emitted[name] = true
	return true
}

// Translate converts one dag.Completion into zero or more outgoing
// Events, in stage-lexicographic order within the super-step.
func (a *Adapter) Translate(c dag.Completion) []Event {
	if c.Done {
		if c.Err != nil {
			return []Event{{Name: "error", Payload: map[string]interface{}{"error": c.Err.Error()}}}
		}
		return []Event{a.complete(c.Merged)}
	}

	stages := append([]string(nil), c.Stages...)
	sort.Strings(stages)

	var out []Event
	byStage := make(map[string]state.Update, len(c.Updates))
	for _, u := range c.Updates {
		byStage[u.Stage] = u
	}

	for _, stage := range stages {
		update := byStage[stage]
		out = append(out, a.translateStage(stage, update, c.Merged)...)
	}
	return out
}

func (a *Adapter) translateStage(stage string, update state.Update, merged state.State) []Event {
	var out []Event

	switch stage {
	case dag.StageRouteQuery:
		if a.once("quran_search") {
			out = append(out, Event{Name: "quran_search", Payload: map[string]interface{}{}})
		}

	case dag.StageQuranRAG:
		if a.once("quran_search") {
			out = append(out, Event{Name: "quran_search", Payload: map[string]interface{}{}})
		}
		if len(merged.Verses) > 0 && a.once("quran_found") {
			out = append(out, Event{Name: "quran_found", Payload: map[string]interface{}{"verses": merged.Verses}})
		}

	case dag.StageLinguistic:
		if a.once("linguistic") {
			out = append(out, Event{Name: "linguistic", Payload: map[string]interface{}{"linguistic_analysis": merged.LinguisticAnalysis}})
		}

	case dag.StageScience:
		if update.ScienceFindings != nil {
			for _, f := range *update.ScienceFindings {
				out = append(out, Event{Name: ScienceFindingEventName, Payload: map[string]interface{}{
					"verse_key":       f.VerseKey,
					"discipline":      f.Discipline,
					"summary":         f.Summary,
					"confidence_tier": f.ConfidenceTier,
				}})
			}
		}

	case dag.StageHumanities:
		if update.HumanitiesFindings != nil {
			for _, f := range *update.HumanitiesFindings {
				out = append(out, Event{Name: ScienceFindingEventName, Payload: map[string]interface{}{
					"verse_key":        f.VerseKey,
					"discipline":       f.Discipline,
					"summary":          f.Summary,
					"correlation_type": f.CorrelationType,
				}})
			}
		}

	case dag.StageTafseer:
		if a.once("tafseer") {
			out = append(out, Event{Name: "tafseer", Payload: map[string]interface{}{"tafseer_findings": merged.TafseerFindings}})
		}

	case dag.StageSynthesis:
		if update.Synthesis != nil {
			out = append(out, Event{Name: "synthesis_token", Payload: map[string]interface{}{"text": *update.Synthesis}})
		}

	case dag.StageQualityReview:
		if a.once("quality_done") {
			out = append(out, Event{Name: "quality_done", Payload: map[string]interface{}{"score": merged.QualityScore}})
		}
	}

	return out
}

func (a *Adapter) complete(s state.State) Event {
	payload := map[string]interface{}{
		"session_id":               a.sessionID,
		"synthesis":                s.Synthesis,
		"confidence_tier":          s.ConfidenceTier,
		"quality_score":            s.QualityScore,
		"quality_issues":           s.QualityIssues,
		"verses_count":             len(s.Verses),
		"science_findings_count":   len(s.ScienceFindings),
		"humanities_findings_count": len(s.HumanitiesFindings),
	}
	if s.DiscoveryID != "" {
		payload["discovery_id"] = s.DiscoveryID
	}
	return Event{Name: "complete", Payload: payload}
}
