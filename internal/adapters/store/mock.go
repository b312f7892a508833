package store

import (
	"context"
	"sort"
	"sync"

	"github.com/AiSchool-Admin/quran-miracles/internal/state"
)

// Mock is the null-object DiscoveryStore selected when no Redis URL is
// configured: an in-memory, mutex-guarded slice. Discoveries do not
// survive a process restart.
type Mock struct {
	mu      sync.Mutex
	records []Record
}

// NewMock builds an empty in-memory store.
func NewMock() *Mock { return &Mock{} }

func (m *Mock) Save(ctx context.Context, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	return nil
}

func (m *Mock) ListRecent(ctx context.Context, tier state.ConfidenceTier, limit int) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var matched []Record
	for _, r := range m.records {
		if tier == "" || r.ConfidenceTier == tier {
			matched = append(matched, r)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}
