// Package embeddings provides the Embeddings adapter used by quran_rag to
// turn a natural-language query into a vector for corpus.SearchByVector.
package embeddings

import "context"

// Embeddings is the external collaborator for query vectorization.
type Embeddings interface {
	Embed(ctx context.Context, query string) ([]float64, error)
}
