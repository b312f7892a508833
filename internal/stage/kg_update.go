package stage

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/AiSchool-Admin/quran-miracles/internal/adapters/store"
	"github.com/AiSchool-Admin/quran-miracles/internal/dag"
	"github.com/AiSchool-Admin/quran-miracles/internal/logging"
	"github.com/AiSchool-Admin/quran-miracles/internal/state"
)

// KGUpdate builds the terminal kg_update stage: a persister that writes
// the finished discovery to the DiscoveryStore and, on success, assigns
// discovery_id. Persister failures are swallowed — discovery_id is simply
// left unset, per the terminal-payload contract.
func KGUpdate(discoveryStore store.DiscoveryStore, logger logging.Logger) dag.Stage {
	if logger == nil {
		logger = logging.NoOp{}
	}
	return dag.StageFunc{
		StageName: dag.StageKGUpdate,
		Fn: func(ctx context.Context, snapshot state.State) (state.Update, error) {
			update := state.Update{
				StreamingAppend: []state.ProgressRecord{{
					Stage:  dag.StageKGUpdate,
					Status: "done",
				}},
			}

			if discoveryStore == nil {
				return update, nil
			}

			id := uuid.NewString()
			rec := store.Record{
				DiscoveryID:    id,
				Query:          snapshot.Query,
				ConfidenceTier: snapshot.ConfidenceTier,
				QualityScore:   snapshot.QualityScore,
				Synthesis:      snapshot.Synthesis,
				CreatedAt:      time.Now().UTC(),
			}
			if err := discoveryStore.Save(ctx, rec); err != nil {
				logger.WarnWithContext(ctx, "kg_update: persister failed, discovery_id left unset", map[string]interface{}{
					"error": err.Error(),
				})
				return update, nil
			}

			update.DiscoveryID = state.StrPtr(id)
			return update, nil
		},
	}
}
