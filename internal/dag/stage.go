package dag

import (
	"context"

	"github.com/AiSchool-Admin/quran-miracles/internal/state"
)

// Stage is the uniform unit of work the engine schedules: a name and a
// function from an immutable state snapshot to a partial update.
type Stage interface {
	Name() string
	Run(ctx context.Context, snapshot state.State) (state.Update, error)
}

// StageFunc adapts a plain function to the Stage interface, the way the
// teacher's workflow package adapts bare processors into named nodes.
type StageFunc struct {
	StageName string
	Fn        func(ctx context.Context, snapshot state.State) (state.Update, error)
}

func (f StageFunc) Name() string { return f.StageName }

func (f StageFunc) Run(ctx context.Context, snapshot state.State) (state.Update, error) {
	return f.Fn(ctx, snapshot)
}
