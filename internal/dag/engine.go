package dag

import (
	"context"
	"fmt"
	"runtime/debug"
	"sort"
	"sync"

	"github.com/AiSchool-Admin/quran-miracles/internal/apperrors"
	"github.com/AiSchool-Admin/quran-miracles/internal/logging"
	"github.com/AiSchool-Admin/quran-miracles/internal/state"
	"github.com/AiSchool-Admin/quran-miracles/internal/telemetry"
)

// Completion is one super-step's result, pushed to the engine's output
// channel as it happens (the "incremental emission" shape preferred by
// SPEC_FULL.md §4.3). The streaming adapter (internal/eventstream)
// consumes this channel directly.
type Completion struct {
	Stages  []string      // stage names completed this super-step, lexicographic
	Updates []state.Update // per-stage updates, in the same order as Stages
	Merged  state.State   // full state after merging this super-step

	Done bool  // true on the terminal completion of the run
	Err  error // non-nil only when Done and the run ended abnormally
}

// Engine drives one session's stages through the fixed topology in
// SPEC_FULL.md §4.3: super-steps execute all currently-ready stages
// concurrently, join, merge, and repeat; the quality_review gate may send
// control back to quran_rag until IterationCount reaches
// state.MaxIterations, so quality_review runs at most MaxIterations times.
type Engine struct {
	stages    map[string]Stage
	logger    logging.Logger
	telemetry *telemetry.Provider
}

// Option configures optional Engine behavior.
type Option func(*Engine)

// WithTelemetry attaches a tracer so every stage invocation opens and
// closes a span. A nil provider is a no-op, matching the rest of the
// Provider API.
func WithTelemetry(p *telemetry.Provider) Option {
	return func(e *Engine) { e.telemetry = p }
}

// NewEngine builds an Engine from the nine registered stages. Panics if a
// stage required by the fixed topology is missing — a programmer error,
// not a runtime condition.
func NewEngine(stages []Stage, logger logging.Logger, opts ...Option) *Engine {
	m := make(map[string]Stage, len(stages))
	for _, s := range stages {
		m[s.Name()] = s
	}
	for _, name := range Order {
		if _, ok := m[name]; !ok {
			panic(fmt.Sprintf("dag: missing stage registration for %q", name))
		}
	}
	if logger == nil {
		logger = logging.NoOp{}
	}
	e := &Engine{stages: m, logger: logger}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes the engine against initial and returns a channel of
// Completion events. The channel is closed after the terminal Completion
// (Done == true) is sent. The caller must drain the channel (or cancel
// ctx) to avoid leaking the driving goroutine.
func (e *Engine) Run(ctx context.Context, initial state.State) <-chan Completion {
	out := make(chan Completion, 4)
	go e.drive(ctx, initial, out)
	return out
}

func (e *Engine) drive(ctx context.Context, initial state.State, out chan<- Completion) {
	defer close(out)

	graph := NewTopologyGraph()
	if err := graph.Validate(); err != nil {
		out <- Completion{Done: true, Err: apperrors.New(apperrors.KindInternal, err.Error())}
		return
	}

	current := initial

	for {
		// Run one pass over the forward DAG, from whatever is currently
		// ready (route_query on the first pass, quran_rag on a loop-back
		// pass) through quality_review.
		for {
			ready := graph.ReadyNodes()
			if len(ready) == 0 {
				break
			}

			select {
			case <-ctx.Done():
				e.failRunning(graph, ready)
				out <- Completion{Done: true, Err: apperrors.New(apperrors.KindCancelled, "context cancelled"), Merged: current}
				return
			default:
			}

			for _, id := range ready {
				graph.MarkRunning(id)
			}

			updates := e.runSuperStep(ctx, ready, current)
			current = state.MergeSuperStep(current, updates)

			for _, id := range ready {
				graph.MarkCompleted(id)
			}

			sorted := append([]string(nil), ready...)
			sort.Strings(sorted)
			out <- Completion{Stages: sorted, Updates: updates, Merged: current}

			if containsStage(ready, StageQualityReview) {
				// Gate evaluated; break the inner loop to decide loop-back
				// vs. termination below.
				break
			}
		}

		if current.ShouldDeepen && current.IterationCount < state.MaxIterations {
			graph.ResetFrom(LoopBackTarget)
			continue
		}

		// Either the gate asked to stop, or the loop-back bound is hit.
		current.ShouldDeepen = false
		break
	}

	// Final node: kg_update.
	select {
	case <-ctx.Done():
		out <- Completion{Done: true, Err: apperrors.New(apperrors.KindCancelled, "context cancelled"), Merged: current}
		return
	default:
	}

	ready := graph.ReadyNodes()
	if len(ready) > 0 {
		for _, id := range ready {
			graph.MarkRunning(id)
		}
		updates := e.runSuperStep(ctx, ready, current)
		current = state.MergeSuperStep(current, updates)
		for _, id := range ready {
			graph.MarkCompleted(id)
		}
		sorted := append([]string(nil), ready...)
		sort.Strings(sorted)
		out <- Completion{Stages: sorted, Updates: updates, Merged: current}
	}

	out <- Completion{Done: true, Merged: current}
}

func containsStage(stages []string, name string) bool {
	for _, s := range stages {
		if s == name {
			return true
		}
	}
	return false
}

func (e *Engine) failRunning(graph *Graph, ids []string) {
	for _, id := range ids {
		graph.MarkFailed(id)
	}
}

// runSuperStep executes every ready stage concurrently against the same
// snapshot and waits for all of them, recovering panics into Internal
// errors per the engine's propagation policy (SPEC_FULL.md §7).
func (e *Engine) runSuperStep(ctx context.Context, ready []string, snapshot state.State) []state.Update {
	results := make([]state.Update, len(ready))
	var wg sync.WaitGroup
	wg.Add(len(ready))

	immutable := snapshot.Clone()

	for i, name := range ready {
		i, name := i, name
		go func() {
			defer wg.Done()
			results[i] = e.runStage(ctx, name, immutable)
		}()
	}
	wg.Wait()
	return results
}

func (e *Engine) runStage(ctx context.Context, name string, snapshot state.State) (result state.Update) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.ErrorWithContext(ctx, "stage panicked", map[string]interface{}{
				"stage": name,
				"panic": fmt.Sprintf("%v", r),
				"stack": string(debug.Stack()),
			})
			result = errorUpdate(name, apperrors.New(apperrors.KindInternal, fmt.Sprintf("panic: %v", r)))
		}
	}()

	stage := e.stages[name]

	spanCtx, span := e.telemetry.StartStage(ctx, name, logging.SessionIDFrom(ctx), snapshot.IterationCount)
	update, err := stage.Run(spanCtx, snapshot)
	telemetry.EndStage(span, err)
	if err != nil {
		e.logger.WarnWithContext(ctx, "stage returned error; continuing with empty defaults", map[string]interface{}{
			"stage": name,
			"error": err.Error(),
			"kind":  string(apperrors.KindOf(err)),
		})
		return errorUpdate(name, err)
	}
	update.Stage = name
	return update
}

// errorUpdate builds the empty-defaults update a failed stage contributes:
// no field writes, just an error progress record, per SPEC_FULL.md §7.
func errorUpdate(stage string, err error) state.Update {
	return state.Update{
		Stage: stage,
		StreamingAppend: []state.ProgressRecord{{
			Stage:  stage,
			Status: "error",
			Fields: map[string]interface{}{"error": err.Error()},
		}},
	}
}
