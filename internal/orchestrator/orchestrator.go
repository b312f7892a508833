// Package orchestrator is the single entry point that binds external
// adapters into the nine stages and materializes the DAG engine.
package orchestrator

import (
	"context"

	"github.com/AiSchool-Admin/quran-miracles/internal/adapters/corpus"
	"github.com/AiSchool-Admin/quran-miracles/internal/adapters/embeddings"
	"github.com/AiSchool-Admin/quran-miracles/internal/adapters/llm"
	"github.com/AiSchool-Admin/quran-miracles/internal/adapters/store"
	"github.com/AiSchool-Admin/quran-miracles/internal/checkpoint"
	"github.com/AiSchool-Admin/quran-miracles/internal/dag"
	"github.com/AiSchool-Admin/quran-miracles/internal/eventstream"
	"github.com/AiSchool-Admin/quran-miracles/internal/logging"
	"github.com/AiSchool-Admin/quran-miracles/internal/stage"
	"github.com/AiSchool-Admin/quran-miracles/internal/state"
	"github.com/AiSchool-Admin/quran-miracles/internal/telemetry"
)

// Adapters bundles every external collaborator the stages close over.
// Embeddings and Store may be nil (quran_rag then searches by text and
// kg_update skips persistence); Corpus and LLM are called unchecked and
// must be set. Mocks() returns a set with every field mocked, which yields
// a fully mocked run; it does not fill gaps in an existing set.
type Adapters struct {
	Corpus     corpus.CorpusSearch
	Embeddings embeddings.Embeddings
	LLM        llm.LLM
	Store      store.DiscoveryStore
}

// Mocks returns an Adapters set with the null-object implementation for
// every collaborator — the "stageless" configuration SPEC_FULL.md §4.6
// requires to be valid.
func Mocks() Adapters {
	return Adapters{
		Corpus:     corpus.NewMock(),
		Embeddings: embeddings.NewMock(0),
		LLM:        llm.NewMock(),
		Store:      store.NewMock(),
	}
}

// Orchestrator is constructed once per process from the configured
// adapter set.
type Orchestrator struct {
	engine      *dag.Engine
	checkpoints *checkpoint.Store
	logger      logging.Logger
}

// New binds adapters into the nine stages and builds the engine. tracer
// may be nil, in which case stages run untraced.
func New(adapters Adapters, checkpoints *checkpoint.Store, logger logging.Logger, tracer *telemetry.Provider) *Orchestrator {
	if logger == nil {
		logger = logging.NoOp{}
	}
	stages := []dag.Stage{
		stage.RouteQuery(),
		stage.QuranRAG(adapters.Corpus, adapters.Embeddings),
		stage.Linguistic(adapters.LLM),
		stage.Science(adapters.LLM),
		stage.Tafseer(adapters.LLM),
		stage.Humanities(adapters.LLM),
		stage.Synthesis(adapters.LLM),
		stage.QualityReview(adapters.LLM),
		stage.KGUpdate(adapters.Store, logger),
	}
	return &Orchestrator{
		engine:      dag.NewEngine(stages, logger, dag.WithTelemetry(tracer)),
		checkpoints: checkpoints,
		logger:      logger,
	}
}

// Invoke runs a session to completion and returns the terminal state.
func (o *Orchestrator) Invoke(ctx context.Context, initial state.State, sessionID string) (state.State, error) {
	if err := o.checkpoints.Begin(ctx, sessionID, initial); err != nil {
		return state.State{}, err
	}

	var final state.State
	var runErr error
	for c := range o.engine.Run(ctx, initial) {
		final = c.Merged
		if !c.Done {
			o.checkpoints.Put(ctx, sessionID, final)
			continue
		}
		runErr = c.Err
	}
	o.checkpoints.Finish(ctx, sessionID, final)
	return final, runErr
}

// Stream runs a session and yields translated client events from
// session_start through complete/error. The returned channel is closed
// after the terminal event.
func (o *Orchestrator) Stream(ctx context.Context, initial state.State, sessionID string) (<-chan eventstream.Event, error) {
	if err := o.checkpoints.Begin(ctx, sessionID, initial); err != nil {
		return nil, err
	}

	out := make(chan eventstream.Event, 8)
	adapter := eventstream.New(sessionID)

	go func() {
		defer close(out)

		out <- adapter.Start()

		completions := o.engine.Run(ctx, initial)
		var final state.State
		for c := range completions {
			final = c.Merged
			for _, ev := range adapter.Translate(c) {
				out <- ev
			}
			if !c.Done {
				o.checkpoints.Put(ctx, sessionID, final)
			}
		}
		o.checkpoints.Finish(ctx, sessionID, final)
	}()

	return out, nil
}
