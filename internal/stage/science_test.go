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

func TestScience_EmptyVersesYieldsEmptyFindings(t *testing.T) {
	st := stage.Science(errLLM{})
	update, err := st.Run(context.Background(), state.State{})
	require.NoError(t, err)

	require.NotNil(t, update.ScienceFindings)
	assert.Empty(t, *update.ScienceFindings)
}

func TestScience_FansOutOverEveryDisciplineConcurrently(t *testing.T) {
	st := stage.Science(errLLM{})
	update, err := st.Run(context.Background(), state.State{
		Verses:      []state.VerseRecord{{VerseKey: "21:30", TextUthmani: "نص"}},
		Disciplines: []string{"biology", "physics", "geology"},
	})
	require.NoError(t, err)

	require.NotNil(t, update.ScienceFindings)
	disciplines := make(map[string]bool)
	for _, f := range *update.ScienceFindings {
		disciplines[f.Discipline] = true
	}
	assert.Len(t, disciplines, 3)
}

func TestScience_LLMErrorFallsBackToMockFindings(t *testing.T) {
	st := stage.Science(errLLM{})
	update, err := st.Run(context.Background(), state.State{
		Verses:      []state.VerseRecord{{VerseKey: "21:30", TextUthmani: "نص"}},
		Disciplines: []string{"biology"},
	})
	require.NoError(t, err)

	require.NotNil(t, update.ScienceFindings)
	require.NotEmpty(t, *update.ScienceFindings)
	assert.Equal(t, "biology", (*update.ScienceFindings)[0].Discipline)
	assert.NotEmpty(t, (*update.ScienceFindings)[0].MainObjection)
}

func TestScience_ParsesWellFormedLLMJSONArray(t *testing.T) {
	client := stubLLM{response: `[{"verse_key": "21:30", "scientific_claim": "ادعاء", "discipline": "biology", "confidence_tier": "tier_1", "main_objection": "اعتراض"}]`}
	st := stage.Science(client)
	update, err := st.Run(context.Background(), state.State{
		Verses:      []state.VerseRecord{{VerseKey: "21:30", TextUthmani: "نص"}},
		Disciplines: []string{"biology"},
	})
	require.NoError(t, err)

	require.NotNil(t, update.ScienceFindings)
	require.Len(t, *update.ScienceFindings, 1)
	assert.Equal(t, "tier_1", (*update.ScienceFindings)[0].ConfidenceTier)
}

func TestScience_RegistersUnderCorrectStageName(t *testing.T) {
	assert.Equal(t, dag.StageScience, stage.Science(errLLM{}).Name())
}
