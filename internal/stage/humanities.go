package stage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/AiSchool-Admin/quran-miracles/internal/adapters/llm"
	"github.com/AiSchool-Admin/quran-miracles/internal/dag"
	"github.com/AiSchool-Admin/quran-miracles/internal/state"
)

const humanitiesSystemPrompt = "أنت باحث في العلوم الإنسانية، تربط المفاهيم القرآنية بالنظريات الحديثة مع الأمانة الفكرية."

// Humanities builds the humanities stage: per-discipline concurrent
// fan-out, grounded on the original agent's three correlation types
// (intersecting/parallel/inspirational).
func Humanities(client llm.LLM) dag.Stage {
	return dag.StageFunc{
		StageName: dag.StageHumanities,
		Fn: func(ctx context.Context, snapshot state.State) (state.Update, error) {
			if len(snapshot.Verses) == 0 {
				empty := []state.HumanitiesFinding{}
				return state.Update{HumanitiesFindings: &empty}, nil
			}

			disciplines := humanitiesDisciplines(snapshot.Disciplines)

			var wg sync.WaitGroup
			results := make([][]state.HumanitiesFinding, len(disciplines))
			wg.Add(len(disciplines))
			for i, discipline := range disciplines {
				i, discipline := i, discipline
				go func() {
					defer wg.Done()
					results[i] = analyzeHumanities(ctx, client, snapshot, discipline)
				}()
			}
			wg.Wait()

			var all []state.HumanitiesFinding
			for _, r := range results {
				all = append(all, r...)
			}

			return state.Update{
				HumanitiesFindings: &all,
				StreamingAppend: []state.ProgressRecord{{
					Stage: dag.StageHumanities, Status: "done",
					Fields: map[string]interface{}{"findings_count": len(all)},
				}},
			}, nil
		},
	}
}

// humanitiesDisciplines narrows the full discipline list down to the ones
// humanities actually covers, defaulting to psychology/sociology when the
// run's disciplines are entirely natural-science.
func humanitiesDisciplines(disciplines []string) []string {
	known := map[string]bool{
		"psychology": true, "sociology": true, "economics": true,
		"management": true, "ethics": true, "linguistics": true,
	}
	var out []string
	for _, d := range disciplines {
		if known[d] {
			out = append(out, d)
		}
	}
	if len(out) == 0 {
		out = []string{"psychology", "sociology"}
	}
	return out
}

type humanitiesLLMFinding struct {
	VerseKey                string `json:"verse_key"`
	QuranicConcept          string `json:"quranic_concept"`
	Discipline              string `json:"discipline"`
	CorrelationType         string `json:"correlation_type"`
	IntellectualHonestyNote string `json:"intellectual_honesty_note"`
}

func analyzeHumanities(ctx context.Context, client llm.LLM, snapshot state.State, discipline string) []state.HumanitiesFinding {
	limit := snapshot.Verses
	if len(limit) > 5 {
		limit = limit[:5]
	}
	var versesText strings.Builder
	for i, v := range limit {
		if i > 0 {
			versesText.WriteString("\n")
		}
		fmt.Fprintf(&versesText, "%s: %s", v.VerseKey, v.TextUthmani)
	}

	prompt := fmt.Sprintf(
		"الآيات:\n%s\n\nالتخصص المطلوب: %s\n\nسياق التفسير:\n%s\n\nحلّل الروابط بين المفاهيم القرآنية والنظريات الحديثة. أعد JSON array بالحقول verse_key، quranic_concept، discipline، correlation_type (intersecting|parallel|inspirational)، intellectual_honesty_note.",
		versesText.String(), discipline, snapshot.TafseerContext,
	)

	resp, err := client.Complete(ctx, prompt, llm.Options{SystemPrompt: humanitiesSystemPrompt, Temperature: 0.3, MaxTokens: 2048})
	if err != nil {
		return mockHumanitiesFindings(discipline)
	}

	findings, ok := parseHumanitiesFindings(resp.Content)
	if !ok {
		return mockHumanitiesFindings(discipline)
	}
	return findings
}

func parseHumanitiesFindings(text string) ([]state.HumanitiesFinding, bool) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")

	var raw []humanitiesLLMFinding
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, false
	}
	out := make([]state.HumanitiesFinding, len(raw))
	for i, r := range raw {
		out[i] = state.HumanitiesFinding{
			VerseKey:                r.VerseKey,
			Discipline:              r.Discipline,
			Summary:                 r.QuranicConcept,
			IntellectualHonestyNote: r.IntellectualHonestyNote,
			CorrelationType:         r.CorrelationType,
		}
	}
	return out, true
}

// mockHumanitiesFindings is the illustrative fallback transliterated from
// the original agent's built-in mock data (Biophilia Hypothesis parallel
// to verse 21:30's "unity of life's origin").
func mockHumanitiesFindings(discipline string) []state.HumanitiesFinding {
	return []state.HumanitiesFinding{
		{
			VerseKey:                "21:30",
			Discipline:              discipline,
			Summary:                 "وحدة أصل الحياة — «وجعلنا من الماء كل شيء حي» [بيانات تجريبية]",
			IntellectualHonestyNote: "التشابه منهجي وليس نصياً؛ لا يُستدل على صحة الفرضية العلمية من النص القرآني",
			CorrelationType:         "parallel",
		},
	}
}
