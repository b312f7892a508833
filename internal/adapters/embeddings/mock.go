package embeddings

import "context"

// Mock is the null-object Embeddings adapter selected when no embeddings
// provider key is configured. It derives a small deterministic vector from
// the query's rune values rather than returning an all-zero vector. The
// mock corpus ignores the vector, so in a fully mocked run it does not
// affect which verses are returned or their order.
type Mock struct {
	Dim int
}

// NewMock builds a Mock producing vectors of dim dimensions (0 defaults to 8).
func NewMock(dim int) *Mock {
	if dim <= 0 {
		dim = 8
	}
	return &Mock{Dim: dim}
}

func (m *Mock) Embed(ctx context.Context, query string) ([]float64, error) {
	vec := make([]float64, m.Dim)
	runes := []rune(query)
	if len(runes) == 0 {
		return vec, nil
	}
	for i := range vec {
		r := runes[i%len(runes)]
		vec[i] = float64(r%97) / 97.0
	}
	return vec, nil
}
