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

const scienceSystemPrompt = "أنت خبير في ربط الإعجاز العلمي بالقرآن الكريم، مع الالتزام بالأمانة العلمية."

// Science builds the science stage: per-discipline concurrent fan-out,
// each discipline asking the LLM adapter for tiered scientific
// correlations, grounded on the original three-tier confidence system.
func Science(client llm.LLM) dag.Stage {
	return dag.StageFunc{
		StageName: dag.StageScience,
		Fn: func(ctx context.Context, snapshot state.State) (state.Update, error) {
			if len(snapshot.Verses) == 0 {
				empty := []state.ScienceFinding{}
				return state.Update{ScienceFindings: &empty}, nil
			}

			var wg sync.WaitGroup
			results := make([][]state.ScienceFinding, len(snapshot.Disciplines))
			wg.Add(len(snapshot.Disciplines))
			for i, discipline := range snapshot.Disciplines {
				i, discipline := i, discipline
				go func() {
					defer wg.Done()
					results[i] = exploreScience(ctx, client, snapshot, discipline)
				}()
			}
			wg.Wait()

			var all []state.ScienceFinding
			for _, r := range results {
				all = append(all, r...)
			}

			return state.Update{
				ScienceFindings: &all,
				StreamingAppend: []state.ProgressRecord{{
					Stage: dag.StageScience, Status: "done",
					Fields: map[string]interface{}{"findings_count": len(all)},
				}},
			}, nil
		},
	}
}

type scienceLLMFinding struct {
	VerseKey       string `json:"verse_key"`
	ScientificClaim string `json:"scientific_claim"`
	Discipline     string `json:"discipline"`
	ConfidenceTier string `json:"confidence_tier"`
	MainObjection  string `json:"main_objection"`
}

func exploreScience(ctx context.Context, client llm.LLM, snapshot state.State, discipline string) []state.ScienceFinding {
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
		"الاستعلام: %s\nالتخصص: %s\n\nالآيات:\n%s\n\nسياق التفسير:\n%s\n\nأعد JSON array من الارتباطات العلمية بالحقول verse_key، scientific_claim، discipline، confidence_tier (tier_1|tier_2|tier_3)، main_objection.",
		snapshot.Query, discipline, versesText.String(), snapshot.TafseerContext,
	)

	resp, err := client.Complete(ctx, prompt, llm.Options{SystemPrompt: scienceSystemPrompt, Temperature: 0.3, MaxTokens: 2048})
	if err != nil {
		return mockScienceFindings(discipline)
	}

	findings, ok := parseScienceFindings(resp.Content)
	if !ok {
		return mockScienceFindings(discipline)
	}
	return findings
}

func parseScienceFindings(text string) ([]state.ScienceFinding, bool) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")

	var raw []scienceLLMFinding
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, false
	}
	out := make([]state.ScienceFinding, len(raw))
	for i, r := range raw {
		out[i] = state.ScienceFinding{
			VerseKey:       r.VerseKey,
			Discipline:     r.Discipline,
			Summary:        r.ScientificClaim,
			MainObjection:  r.MainObjection,
			ConfidenceTier: r.ConfidenceTier,
		}
	}
	return out, true
}

// mockScienceFindings is the illustrative fallback transliterated from
// the original agent's built-in mock data (water/creation verse 21:30,
// 24:45 correlations).
func mockScienceFindings(discipline string) []state.ScienceFinding {
	return []state.ScienceFinding{
		{
			VerseKey:       "21:30",
			Discipline:     discipline,
			Summary:        "الآية تصف أن كل شيء حي مخلوق من الماء، وهو ما يتوافق مع البيولوجيا الحديثة [بيانات تجريبية]",
			MainObjection:  "المعرفة بأهمية الماء للحياة كانت متوفرة في الحضارات القديمة (طاليس، الفلسفة اليونانية)",
			ConfidenceTier: string(state.Tier2),
		},
		{
			VerseKey:       "24:45",
			Discipline:     discipline,
			Summary:        "الآية تذكر خلق كل دابة من ماء، وهو مبدأ بيولوجي أساسي [بيانات تجريبية]",
			MainObjection:  "الآية قد تشير إلى المني وليس الماء بمعناه العام",
			ConfidenceTier: string(state.Tier2),
		},
	}
}
