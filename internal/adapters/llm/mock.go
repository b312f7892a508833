package llm

import (
	"context"
	"fmt"
	"strings"
)

// Mock is the null-object LLM adapter selected when no provider key is
// configured. It returns a deterministic static completion built from the
// prompt's own content, so stage output is at least traceable in dev.
type Mock struct{}

// NewMock builds a Mock LLM adapter.
func NewMock() *Mock { return &Mock{} }

func (m *Mock) staticText(prompt string) string {
	trimmed := strings.TrimSpace(prompt)
	if len(trimmed) > 80 {
		trimmed = trimmed[:80]
	}
	return fmt.Sprintf("[mock completion for: %s]", trimmed)
}

func (m *Mock) Complete(ctx context.Context, prompt string, opts Options) (Response, error) {
	return Response{Content: m.staticText(prompt), Model: "mock"}, nil
}

func (m *Mock) StreamComplete(ctx context.Context, prompt string, opts Options) (<-chan Chunk, error) {
	text := m.staticText(prompt)
	out := make(chan Chunk, len(text)+1)
	go func() {
		defer close(out)
		words := strings.Fields(text)
		for _, w := range words {
			select {
			case <-ctx.Done():
				return
			case out <- Chunk{Delta: w + " "}:
			}
		}
		out <- Chunk{Done: true}
	}()
	return out, nil
}
