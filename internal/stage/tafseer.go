package stage

import (
	"context"
	"fmt"
	"strings"

	"github.com/AiSchool-Admin/quran-miracles/internal/adapters/llm"
	"github.com/AiSchool-Admin/quran-miracles/internal/dag"
	"github.com/AiSchool-Admin/quran-miracles/internal/state"
)

const tafseerSystemPrompt = "أنت عالم تفسير، تقارن بين سبعة مصادر تفسيرية مع التركيز على التحليل اللغوي للشعراوي."

// shaarawySlug is the exegesis source singled out for its linguistic
// depth, per the original agent's seven-source comparison.
const shaarawySlug = "shaarawy"

// Tafseer builds the tafseer stage. When the retrieved verses already
// carry exegesis entries (attached by quran_rag), it builds the
// consensus view directly from them; otherwise it falls back to the LLM
// adapter.
func Tafseer(client llm.LLM) dag.Stage {
	return dag.StageFunc{
		StageName: dag.StageTafseer,
		Fn: func(ctx context.Context, snapshot state.State) (state.Update, error) {
			if len(snapshot.Verses) == 0 {
				empty := state.TafseerFindings{}
				return state.Update{TafseerFindings: &empty}, nil
			}

			var findings state.TafseerFindings
			if hasAttachedTafseers(snapshot.Verses) {
				findings = tafseerFromVerses(snapshot.Verses)
			} else {
				findings = tafseerFromLLM(ctx, client, snapshot)
			}

			return state.Update{
				TafseerFindings: &findings,
				StreamingAppend: []state.ProgressRecord{{
					Stage: dag.StageTafseer, Status: "done",
					Fields: map[string]interface{}{"references_count": len(findings.References)},
				}},
			}, nil
		},
	}
}

func hasAttachedTafseers(verses []state.VerseRecord) bool {
	for _, v := range verses {
		if len(v.Tafseers) > 0 {
			return true
		}
	}
	return false
}

func tafseerFromVerses(verses []state.VerseRecord) state.TafseerFindings {
	limit := verses
	if len(limit) > 5 {
		limit = limit[:5]
	}

	var consensus strings.Builder
	var shaarawy strings.Builder
	var refs []state.TafseerEntry

	for _, v := range limit {
		for _, t := range v.Tafseers {
			refs = append(refs, t)
			fmt.Fprintf(&consensus, "%s (%s): %s\n", v.VerseKey, t.Name, t.Text)
			if t.Slug == shaarawySlug {
				fmt.Fprintf(&shaarawy, "%s: %s\n", v.VerseKey, t.Text)
			}
		}
	}

	return state.TafseerFindings{
		ConsensusView:          strings.TrimSpace(consensus.String()),
		ShaarawyLinguisticNote: strings.TrimSpace(shaarawy.String()),
		References:             refs,
	}
}

func tafseerFromLLM(ctx context.Context, client llm.LLM, snapshot state.State) state.TafseerFindings {
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

	prompt := fmt.Sprintf("قارن بين تفاسير ابن كثير والطبري والشعراوي والرازي والسعدي وابن عاشور والقرطبي للآيات التالية، مع التركيز على تحليل الشعراوي اللغوي:\n\n%s", versesText.String())

	resp, err := client.Complete(ctx, prompt, llm.Options{SystemPrompt: tafseerSystemPrompt, Temperature: 0.3, MaxTokens: 2048})
	if err != nil {
		return mockTafseerFindings()
	}

	return state.TafseerFindings{
		ConsensusView:          resp.Content,
		ShaarawyLinguisticNote: "انظر النص الكامل للملاحظة اللغوية للشعراوي ضمن التحليل المدمج.",
	}
}

func mockTafseerFindings() state.TafseerFindings {
	return state.TafseerFindings{
		ConsensusView:          "المفسرون متفقون على أن الآية تشير إلى دور الماء الأساسي في نشأة الحياة [بيانات تجريبية]",
		ShaarawyLinguisticNote: "الشعراوي يشير إلى دقة التعبير القرآني في استخدام 'من' التبعيضية [بيانات تجريبية]",
	}
}
