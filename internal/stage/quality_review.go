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

// issuePenalty is the per-issue score deduction applied by the
// rule-based checks before any LLM second opinion is averaged in.
const issuePenalty = 0.15

// QualityReview builds the quality_review gate: rule-based academic
// rigor checks, an optional LLM second opinion averaged with the rule
// score, and the should_deepen decision against state.QualityGateThreshold.
func QualityReview(client llm.LLM) dag.Stage {
	return dag.StageFunc{
		StageName: dag.StageQualityReview,
		Fn: func(ctx context.Context, snapshot state.State) (state.Update, error) {
			issues := ruleBasedChecks(snapshot)
			ruleScore := clamp01(1.0 - float64(len(issues))*issuePenalty)

			finalScore := ruleScore
			if llmIssues, llmScore, ok := llmReview(ctx, client, snapshot); ok {
				issues = append(issues, llmIssues...)
				finalScore = (ruleScore + llmScore) / 2
			}
			finalScore = roundTo2(clamp01(finalScore))

			shouldDeepen := finalScore < state.QualityGateThreshold

			return state.Update{
				QualityScore:   state.FloatPtr(finalScore),
				QualityIssues:  &issues,
				ShouldDeepen:   state.BoolPtr(shouldDeepen),
				IterationCount: state.IntPtr(snapshot.IterationCount + 1),
				StreamingAppend: []state.ProgressRecord{{
					Stage: dag.StageQualityReview, Status: "done",
					Fields: map[string]interface{}{"score": finalScore, "should_deepen": shouldDeepen},
				}},
			}, nil
		},
	}
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

func roundTo2(f float64) float64 {
	return float64(int(f*100+0.5)) / 100
}

var validConfidenceTiers = map[string]bool{"tier_1": true, "tier_2": true, "tier_3": true}
var validCorrelationTypes = map[string]bool{"intersecting": true, "parallel": true, "inspirational": true}

// ruleBasedChecks mirrors the original agent's deterministic quality
// rules exactly, including its Arabic issue-message wording.
func ruleBasedChecks(s state.State) []string {
	var issues []string

	for _, f := range s.ScienceFindings {
		if f.MainObjection == "" {
			issues = append(issues, fmt.Sprintf("ارتباط علمي بدون اعتراض رئيسي: %s", f.VerseKey))
		}
		if !validConfidenceTiers[f.ConfidenceTier] {
			issues = append(issues, fmt.Sprintf("مستوى ثقة غير صالح: %s", f.ConfidenceTier))
		}
	}

	for _, f := range s.HumanitiesFindings {
		if f.IntellectualHonestyNote == "" {
			issues = append(issues, fmt.Sprintf("ارتباط إنساني بدون ملاحظة أمانة علمية: %s", f.VerseKey))
		}
		if !validCorrelationTypes[f.CorrelationType] {
			issues = append(issues, fmt.Sprintf("نوع ارتباط غير صالح: %s", f.CorrelationType))
		}
	}

	if s.TafseerFindings.ConsensusView == "" {
		issues = append(issues, "لا يوجد رأي إجماعي في التفسير")
	}
	if s.TafseerFindings.ShaarawyLinguisticNote == "" {
		issues = append(issues, "لا توجد ملاحظة لغوية من الشعراوي")
	}

	if s.Synthesis == "" {
		issues = append(issues, "لا يوجد توليف بحثي")
	} else if !strings.Contains(s.Synthesis, "tier_") {
		issues = append(issues, "التوليف لا يتضمن مستوى الثقة الإجمالي")
	}

	if len(s.LinguisticAnalysis.Roots) == 0 {
		issues = append(issues, "لا توجد جذور لغوية في التحليل")
	}

	if len(s.Verses) == 0 {
		issues = append(issues, "لم يتم العثور على آيات")
	}

	return issues
}

type qualityLLMResult struct {
	QualityScore  float64  `json:"quality_score"`
	QualityIssues []string `json:"quality_issues"`
}

// llmReview asks the LLM adapter for a second opinion when a synthesis
// exists. Any failure (no client, no synthesis, transport error, or
// unparseable response) is treated as "no second opinion available",
// matching the original agent's best-effort fallback.
func llmReview(ctx context.Context, client llm.LLM, s state.State) ([]string, float64, bool) {
	if client == nil || s.Synthesis == "" {
		return nil, 0, false
	}

	synthesis := s.Synthesis
	if len(synthesis) > 2000 {
		synthesis = synthesis[:2000]
	}

	prompt := fmt.Sprintf(
		"راجع جودة هذا التقرير البحثي:\n\nالتوليف:\n%s\n\nعدد الارتباطات العلمية: %d\nعدد الارتباطات الإنسانية: %d\n\nأعد JSON بالحقول quality_score (0.0-1.0) وquality_issues.",
		synthesis, len(s.ScienceFindings), len(s.HumanitiesFindings),
	)

	resp, err := client.Complete(ctx, prompt, llm.Options{Temperature: 0.3, MaxTokens: 1024})
	if err != nil {
		return nil, 0, false
	}

	text := strings.TrimSpace(resp.Content)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")

	var parsed qualityLLMResult
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		return nil, 0, false
	}
	return parsed.QualityIssues, parsed.QualityScore, true
}
