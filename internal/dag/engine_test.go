package dag_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AiSchool-Admin/quran-miracles/internal/dag"
	"github.com/AiSchool-Admin/quran-miracles/internal/state"
)

func stageStub(name string, fn func(ctx context.Context, s state.State) (state.Update, error)) dag.Stage {
	return dag.StageFunc{StageName: name, Fn: fn}
}

func passthroughStage(name string) dag.Stage {
	return stageStub(name, func(ctx context.Context, s state.State) (state.Update, error) {
		return state.Update{Stage: name}, nil
	})
}

func buildStages(qualityScores []float64) []dag.Stage {
	call := 0
	quality := stageStub(dag.StageQualityReview, func(ctx context.Context, s state.State) (state.Update, error) {
		score := qualityScores[call]
		if call < len(qualityScores)-1 {
			call++
		}
		deepen := score < state.QualityGateThreshold
		return state.Update{
			Stage:          dag.StageQualityReview,
			QualityScore:   state.FloatPtr(score),
			ShouldDeepen:   state.BoolPtr(deepen),
			IterationCount: state.IntPtr(s.IterationCount + 1),
		}, nil
	})

	return []dag.Stage{
		passthroughStage(dag.StageRouteQuery),
		passthroughStage(dag.StageQuranRAG),
		passthroughStage(dag.StageLinguistic),
		passthroughStage(dag.StageScience),
		passthroughStage(dag.StageTafseer),
		passthroughStage(dag.StageHumanities),
		passthroughStage(dag.StageSynthesis),
		quality,
		passthroughStage(dag.StageKGUpdate),
	}
}

func drain(t *testing.T, ch <-chan dag.Completion, timeout time.Duration) []dag.Completion {
	t.Helper()
	var out []dag.Completion
	deadline := time.After(timeout)
	for {
		select {
		case c, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, c)
		case <-deadline:
			t.Fatal("timed out draining completions")
		}
	}
}

func TestEngine_SingleIterationWhenQualityPasses(t *testing.T) {
	engine := dag.NewEngine(buildStages([]float64{0.8}), nil)
	completions := drain(t, engine.Run(context.Background(), state.State{Query: "q"}), 2*time.Second)

	require.NotEmpty(t, completions)
	final := completions[len(completions)-1]
	require.True(t, final.Done)
	require.NoError(t, final.Err)
	assert.Equal(t, 1, final.Merged.IterationCount)
	assert.False(t, final.Merged.ShouldDeepen)
}

func TestEngine_LoopsBackWhenQualityFailsAndStopsAtMaxIterations(t *testing.T) {
	// Quality always fails (< 0.6): engine must stop at MaxIterations (3)
	// rather than loop forever.
	engine := dag.NewEngine(buildStages([]float64{0.1, 0.2, 0.3}), nil)
	completions := drain(t, engine.Run(context.Background(), state.State{Query: "q"}), 2*time.Second)

	final := completions[len(completions)-1]
	require.True(t, final.Done)
	assert.Equal(t, state.MaxIterations, final.Merged.IterationCount)
	assert.False(t, final.Merged.ShouldDeepen, "ShouldDeepen must be forced false once the bound is hit")
}

func TestEngine_CancellationStopsTheRun(t *testing.T) {
	blocked := make(chan struct{})
	stages := buildStages([]float64{0.9})
	// Replace route_query with one that blocks until cancelled.
	stages[0] = stageStub(dag.StageRouteQuery, func(ctx context.Context, s state.State) (state.Update, error) {
		<-ctx.Done()
		close(blocked)
		return state.Update{Stage: dag.StageRouteQuery}, ctx.Err()
	})

	engine := dag.NewEngine(stages, nil)
	ctx, cancel := context.WithCancel(context.Background())
	ch := engine.Run(ctx, state.State{Query: "q"})
	cancel()

	completions := drain(t, ch, 2*time.Second)
	final := completions[len(completions)-1]
	require.True(t, final.Done)
	require.Error(t, final.Err)
}

func TestEngine_PanicInStageDoesNotCrashTheRun(t *testing.T) {
	stages := buildStages([]float64{0.9})
	stages[3] = stageStub(dag.StageScience, func(ctx context.Context, s state.State) (state.Update, error) {
		panic("boom")
	})

	engine := dag.NewEngine(stages, nil)
	completions := drain(t, engine.Run(context.Background(), state.State{Query: "q"}), 2*time.Second)

	final := completions[len(completions)-1]
	require.True(t, final.Done)
	require.NoError(t, final.Err, "a panicking stage must not abort the whole run")
}

func TestEngine_MissingStageRegistrationPanics(t *testing.T) {
	assert.Panics(t, func() {
		dag.NewEngine([]dag.Stage{passthroughStage(dag.StageRouteQuery)}, nil)
	})
}
