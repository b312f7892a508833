// Package stage implements the nine discovery pipeline stages as
// dag.Stage values: pure functions from an immutable state.State snapshot
// to a state.Update, closing over whatever external adapters they need.
package stage

import (
	"context"
	"strings"

	"github.com/AiSchool-Admin/quran-miracles/internal/dag"
	"github.com/AiSchool-Admin/quran-miracles/internal/state"
)

// Keyword sets for the routing hint, transliterated from the original
// router agent's heuristic classifier. The pipeline's topology is fixed
// (science, tafseer, and humanities always run), so the winning category
// here is recorded as RoutingHint metadata only — it does not gate which
// stages execute.
var scienceKeywords = []string{
	"فيزياء", "كيمياء", "بيولوجيا", "طب", "فلك", "جيولوجيا",
	"علم", "ذرة", "كون", "نجوم", "أرض", "جبال", "بحر",
	"ماء", "نبات", "حيوان", "خلق", "جنين", "رحم",
	"physics", "chemistry", "biology", "medicine", "astronomy",
}

var humanitiesKeywords = []string{
	"نفس", "اجتماع", "اقتصاد", "إدارة", "قيادة", "أخلاق",
	"فلسفة", "سلوك", "مجتمع", "ثروة", "فقر", "عدل", "شورى",
	"صبر", "طمأنينة", "خوف", "رجاء", "توبة", "زكاة",
	"psychology", "sociology", "economics", "management", "ethics",
}

var tafseerKeywords = []string{
	"تفسير", "معنى", "سبب", "نزول", "مكي", "مدني",
	"ناسخ", "منسوخ", "إعراب", "بلاغة", "لغة", "شعراوي",
	"ابن كثير", "طبري", "رازي", "قرطبي", "سعدي",
}

func countMatches(query string, keywords []string) int {
	n := 0
	for _, kw := range keywords {
		if strings.Contains(query, kw) {
			n++
		}
	}
	return n
}

// routingHint scores the query heuristically, mirroring the original
// route() method, and returns one of "science", "humanities", "tafseer",
// or "parallel".
func routingHint(query string, mode state.Mode, disciplines []string) string {
	if mode == state.ModeAutonomous || mode == state.ModeCrossDomain {
		return "parallel"
	}

	if len(disciplines) > 0 {
		hasScience, hasHumanities := false, false
		for _, d := range disciplines {
			switch d {
			case "physics", "chemistry", "biology", "medicine", "astronomy", "geology":
				hasScience = true
			case "psychology", "sociology", "economics", "management", "ethics", "linguistics":
				hasHumanities = true
			}
		}
		if hasScience && !hasHumanities {
			return "science"
		}
		if hasHumanities && !hasScience {
			return "humanities"
		}
	}

	q := strings.ToLower(query)
	scoreScience := countMatches(q, scienceKeywords)
	scoreHumanities := countMatches(q, humanitiesKeywords)
	scoreTafseer := countMatches(q, tafseerKeywords)

	max := scoreScience
	if scoreHumanities > max {
		max = scoreHumanities
	}
	if scoreTafseer > max {
		max = scoreTafseer
	}
	if max == 0 {
		return "parallel"
	}

	switch {
	case scoreTafseer > scoreScience && scoreTafseer > scoreHumanities:
		return "tafseer"
	case scoreScience > scoreHumanities && scoreScience > scoreTafseer:
		return "science"
	case scoreHumanities > scoreScience && scoreHumanities > scoreTafseer:
		return "humanities"
	default:
		return "parallel"
	}
}

// RouteQuery builds the route_query stage. It fills in default
// disciplines and mode, and computes the informational routing hint.
func RouteQuery() dag.Stage {
	return dag.StageFunc{
		StageName: dag.StageRouteQuery,
		Fn: func(ctx context.Context, snapshot state.State) (state.Update, error) {
			mode := snapshot.Mode
			if mode == "" {
				mode = state.ModeGuided
			}

			disciplines := snapshot.Disciplines
			if len(disciplines) == 0 {
				disciplines = append([]string(nil), state.DefaultDisciplines...)
			}

			hint := routingHint(snapshot.Query, mode, disciplines)

			return state.Update{
				Mode:        state.ModePtr(mode),
				Disciplines: &disciplines,
				RoutingHint: state.StrPtr(hint),
				StreamingAppend: []state.ProgressRecord{{
					Stage:  dag.StageRouteQuery,
					Status: "done",
					Fields: map[string]interface{}{"routing_hint": hint},
				}},
			}, nil
		},
	}
}
