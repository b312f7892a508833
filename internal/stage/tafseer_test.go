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

func TestTafseer_EmptyVersesYieldsEmptyFindings(t *testing.T) {
	st := stage.Tafseer(errLLM{})
	update, err := st.Run(context.Background(), state.State{})
	require.NoError(t, err)

	require.NotNil(t, update.TafseerFindings)
	assert.Empty(t, update.TafseerFindings.ConsensusView)
}

func TestTafseer_BuildsConsensusFromAttachedExegesisWithoutCallingLLM(t *testing.T) {
	st := stage.Tafseer(errLLM{}) // would error if the LLM path were taken
	update, err := st.Run(context.Background(), state.State{
		Verses: []state.VerseRecord{{
			VerseKey: "21:30",
			Tafseers: []state.TafseerEntry{
				{Slug: "shaarawy", Name: "الشعراوي", Text: "ملاحظة لغوية دقيقة"},
				{Slug: "ibn-kathir", Name: "ابن كثير", Text: "تفسير عام"},
			},
		}},
	})
	require.NoError(t, err)

	require.NotNil(t, update.TafseerFindings)
	assert.Contains(t, update.TafseerFindings.ConsensusView, "21:30")
	assert.Contains(t, update.TafseerFindings.ShaarawyLinguisticNote, "ملاحظة لغوية دقيقة")
	assert.Len(t, update.TafseerFindings.References, 2)
}

func TestTafseer_FallsBackToLLMWhenNoExegesisAttached(t *testing.T) {
	client := stubLLM{response: "نص توافقي من النموذج"}
	st := stage.Tafseer(client)
	update, err := st.Run(context.Background(), state.State{
		Verses: []state.VerseRecord{{VerseKey: "21:30", TextUthmani: "نص"}},
	})
	require.NoError(t, err)

	require.NotNil(t, update.TafseerFindings)
	assert.Equal(t, "نص توافقي من النموذج", update.TafseerFindings.ConsensusView)
}

func TestTafseer_LLMErrorFallsBackToMockFindings(t *testing.T) {
	st := stage.Tafseer(errLLM{})
	update, err := st.Run(context.Background(), state.State{
		Verses: []state.VerseRecord{{VerseKey: "21:30", TextUthmani: "نص"}},
	})
	require.NoError(t, err)

	require.NotNil(t, update.TafseerFindings)
	assert.NotEmpty(t, update.TafseerFindings.ConsensusView)
	assert.NotEmpty(t, update.TafseerFindings.ShaarawyLinguisticNote)
}

func TestTafseer_RegistersUnderCorrectStageName(t *testing.T) {
	assert.Equal(t, dag.StageTafseer, stage.Tafseer(errLLM{}).Name())
}
