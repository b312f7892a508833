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

func TestRouteQuery_DefaultsModeAndDisciplinesWhenUnset(t *testing.T) {
	st := stage.RouteQuery()
	update, err := st.Run(context.Background(), state.State{Query: "ما هو أصل الكون"})
	require.NoError(t, err)

	require.NotNil(t, update.Mode)
	assert.Equal(t, state.ModeGuided, *update.Mode)
	require.NotNil(t, update.Disciplines)
	assert.Equal(t, state.DefaultDisciplines, *update.Disciplines)
}

func TestRouteQuery_AutonomousModeAlwaysHintsParallel(t *testing.T) {
	st := stage.RouteQuery()
	update, err := st.Run(context.Background(), state.State{Query: "تفسير الآية", Mode: state.ModeAutonomous})
	require.NoError(t, err)

	require.NotNil(t, update.RoutingHint)
	assert.Equal(t, "parallel", *update.RoutingHint)
}

func TestRouteQuery_ScienceKeywordsWinScienceHint(t *testing.T) {
	st := stage.RouteQuery()
	update, err := st.Run(context.Background(), state.State{Query: "علم الفلك والنجوم والكون"})
	require.NoError(t, err)

	require.NotNil(t, update.RoutingHint)
	assert.Equal(t, "science", *update.RoutingHint)
}

func TestRouteQuery_HumanitiesKeywordsWinHumanitiesHint(t *testing.T) {
	st := stage.RouteQuery()
	update, err := st.Run(context.Background(), state.State{Query: "علم النفس والسلوك الاجتماعي"})
	require.NoError(t, err)

	require.NotNil(t, update.RoutingHint)
	assert.Equal(t, "humanities", *update.RoutingHint)
}

func TestRouteQuery_NoKeywordMatchesFallsBackToParallel(t *testing.T) {
	st := stage.RouteQuery()
	update, err := st.Run(context.Background(), state.State{Query: "xyz"})
	require.NoError(t, err)

	require.NotNil(t, update.RoutingHint)
	assert.Equal(t, "parallel", *update.RoutingHint)
}

func TestRouteQuery_ExplicitDisciplinesOverrideKeywordScoring(t *testing.T) {
	st := stage.RouteQuery()
	update, err := st.Run(context.Background(), state.State{
		Query:       "تفسير شعراوي", // would otherwise score "tafseer"
		Disciplines: []string{"biology"},
	})
	require.NoError(t, err)

	require.NotNil(t, update.RoutingHint)
	assert.Equal(t, "science", *update.RoutingHint)
}

func TestRouteQuery_RegistersUnderCorrectStageName(t *testing.T) {
	assert.Equal(t, dag.StageRouteQuery, stage.RouteQuery().Name())
}
