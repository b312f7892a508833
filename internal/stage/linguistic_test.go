package stage_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AiSchool-Admin/quran-miracles/internal/adapters/llm"
	"github.com/AiSchool-Admin/quran-miracles/internal/dag"
	"github.com/AiSchool-Admin/quran-miracles/internal/stage"
	"github.com/AiSchool-Admin/quran-miracles/internal/state"
)

// errLLM always fails, forcing stages through their mock-data fallback path.
type errLLM struct{}

func (errLLM) Complete(ctx context.Context, prompt string, opts llm.Options) (llm.Response, error) {
	return llm.Response{}, errors.New("llm unavailable")
}
func (errLLM) StreamComplete(ctx context.Context, prompt string, opts llm.Options) (<-chan llm.Chunk, error) {
	return nil, errors.New("llm unavailable")
}

func TestLinguistic_EmptyVersesYieldsEmptyAnalysis(t *testing.T) {
	st := stage.Linguistic(errLLM{})
	update, err := st.Run(context.Background(), state.State{})
	require.NoError(t, err)

	require.NotNil(t, update.LinguisticAnalysis)
	assert.Empty(t, update.LinguisticAnalysis.Roots)
}

func TestLinguistic_LLMErrorFallsBackToMockRoots(t *testing.T) {
	st := stage.Linguistic(errLLM{})
	update, err := st.Run(context.Background(), state.State{
		Verses: []state.VerseRecord{{VerseKey: "21:30", TextUthmani: "وَجَعَلْنَا مِنَ الْمَاءِ كُلَّ شَيْءٍ حَيٍّ"}},
	})
	require.NoError(t, err)

	require.NotNil(t, update.LinguisticAnalysis)
	assert.NotEmpty(t, update.LinguisticAnalysis.Roots)
	assert.Contains(t, update.LinguisticAnalysis.Rhetoric, "21:30")
}

func TestLinguistic_ParsesWellFormedLLMJSON(t *testing.T) {
	client := stubLLM{response: `{"roots": ["م-و-ه"], "morphology": "اسم", "rhetorical_devices": [{"device": "توكيد", "verse_key": "21:30", "explanation": "شرح"}]}`}
	st := stage.Linguistic(client)
	update, err := st.Run(context.Background(), state.State{
		Verses: []state.VerseRecord{{VerseKey: "21:30", TextUthmani: "نص"}},
	})
	require.NoError(t, err)

	require.NotNil(t, update.LinguisticAnalysis)
	assert.Equal(t, []string{"م-و-ه"}, update.LinguisticAnalysis.Roots)
	assert.Equal(t, "اسم", update.LinguisticAnalysis.Morphology)
	assert.Contains(t, update.LinguisticAnalysis.Rhetoric, "توكيد")
}

func TestLinguistic_UnparseableLLMResponseFallsBackToMockRoots(t *testing.T) {
	client := stubLLM{response: "not json at all"}
	st := stage.Linguistic(client)
	update, err := st.Run(context.Background(), state.State{
		Verses: []state.VerseRecord{{VerseKey: "86:6", TextUthmani: "نص"}},
	})
	require.NoError(t, err)

	require.NotNil(t, update.LinguisticAnalysis)
	assert.NotEmpty(t, update.LinguisticAnalysis.Roots)
}

func TestLinguistic_RegistersUnderCorrectStageName(t *testing.T) {
	assert.Equal(t, dag.StageLinguistic, stage.Linguistic(errLLM{}).Name())
}
