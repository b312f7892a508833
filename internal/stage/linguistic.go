package stage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/AiSchool-Admin/quran-miracles/internal/adapters/llm"
	"github.com/AiSchool-Admin/quran-miracles/internal/dag"
	"github.com/AiSchool-Admin/quran-miracles/internal/state"
)

const linguisticSystemPrompt = "حلّل الآيات التالية لغوياً (الجذور، الصرف، البلاغة)."

// mockRoots is the illustrative fallback used when the LLM adapter errors
// or returns unparseable output, transliterated from the original agent's
// built-in mock data.
var mockRoots = []string{"م-و-ه", "ح-ي-ي", "خ-ل-ق", "ج-ع-ل", "ف-ت-ق"}

// Linguistic builds the linguistic stage: root/morphology/rhetoric
// extraction over the retrieved verses via the LLM adapter.
func Linguistic(client llm.LLM) dag.Stage {
	return dag.StageFunc{
		StageName: dag.StageLinguistic,
		Fn: func(ctx context.Context, snapshot state.State) (state.Update, error) {
			if len(snapshot.Verses) == 0 {
				empty := state.LinguisticAnalysis{}
				return state.Update{
					LinguisticAnalysis: &empty,
					StreamingAppend: []state.ProgressRecord{{
						Stage: dag.StageLinguistic, Status: "done",
						Fields: map[string]interface{}{"roots_count": 0},
					}},
				}, nil
			}

			analysis := analyzeLinguistics(ctx, client, snapshot.Verses)
			return state.Update{
				LinguisticAnalysis: &analysis,
				StreamingAppend: []state.ProgressRecord{{
					Stage: dag.StageLinguistic, Status: "done",
					Fields: map[string]interface{}{"roots_count": len(analysis.Roots)},
				}},
			}, nil
		},
	}
}

type linguisticLLMResult struct {
	Roots             []string `json:"roots"`
	Morphology        string   `json:"morphology"`
	RhetoricalDevices []struct {
		Device      string `json:"device"`
		VerseKey    string `json:"verse_key"`
		Explanation string `json:"explanation"`
	} `json:"rhetorical_devices"`
}

func analyzeLinguistics(ctx context.Context, client llm.LLM, verses []state.VerseRecord) state.LinguisticAnalysis {
	limit := verses
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

	prompt := fmt.Sprintf("حلّل الآيات التالية لغوياً:\n\n%s\n\nأعد JSON بالحقول roots، morphology، rhetorical_devices.", versesText.String())

	resp, err := client.Complete(ctx, prompt, llm.Options{SystemPrompt: linguisticSystemPrompt, Temperature: 0.3, MaxTokens: 2048})
	if err != nil {
		return mockLinguisticAnalysis(verses)
	}

	var parsed linguisticLLMResult
	text := strings.TrimSpace(resp.Content)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		return mockLinguisticAnalysis(verses)
	}

	var rhetoric strings.Builder
	for i, d := range parsed.RhetoricalDevices {
		if i > 0 {
			rhetoric.WriteString("; ")
		}
		fmt.Fprintf(&rhetoric, "%s (%s): %s", d.Device, d.VerseKey, d.Explanation)
	}

	return state.LinguisticAnalysis{
		Roots:      parsed.Roots,
		Morphology: parsed.Morphology,
		Rhetoric:   rhetoric.String(),
	}
}

func mockLinguisticAnalysis(verses []state.VerseRecord) state.LinguisticAnalysis {
	firstKey := "21:30"
	if len(verses) > 0 {
		firstKey = verses[0].VerseKey
	}
	return state.LinguisticAnalysis{
		Roots:      append([]string(nil), mockRoots...),
		Morphology: "الماء: فَعْل (اسم) — حي: فَعِل (صفة)",
		Rhetoric:   fmt.Sprintf("توكيد (%s): استخدام 'كل' للتوكيد الشامل [بيانات تجريبية]", firstKey),
	}
}
