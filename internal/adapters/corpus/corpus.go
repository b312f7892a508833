// Package corpus provides the CorpusSearch adapter: the narrow interface
// through which quran_rag retrieves verses and exegesis, independent of
// whether the backing store is a real Postgres/pgvector corpus or the
// in-memory mock used when DATABASE_URL is unset.
package corpus

import (
	"context"

	"github.com/AiSchool-Admin/quran-miracles/internal/state"
)

// CorpusSearch is the external collaborator for verse retrieval,
// SPEC_FULL.md §4.4. Implementations must be safe for concurrent use
// across sessions and within a session's fan-out.
type CorpusSearch interface {
	// SearchByVector performs similarity search against a query embedding.
	SearchByVector(ctx context.Context, vec []float64, topK int, threshold float64) ([]state.VerseRecord, error)
	// SearchByText performs a text-only search, used when no Embeddings
	// adapter is configured.
	SearchByText(ctx context.Context, query string, topK int) ([]state.VerseRecord, error)
	// FetchExegesisFor attaches exegesis entries for the given verse keys.
	FetchExegesisFor(ctx context.Context, verseKeys []string) (map[string][]state.TafseerEntry, error)
}
