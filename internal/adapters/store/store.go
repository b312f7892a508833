// Package store provides the DiscoveryStore adapter: persistence for
// finished discovery runs, written by kg_update and queried back by the
// /api/discovery/discoveries endpoint.
package store

import (
	"context"
	"time"

	"github.com/AiSchool-Admin/quran-miracles/internal/state"
)

// Record is one persisted discovery outcome.
type Record struct {
	DiscoveryID    string
	Query          string
	ConfidenceTier state.ConfidenceTier
	QualityScore   float64
	Synthesis      string
	CreatedAt      time.Time
}

// DiscoveryStore is the external collaborator for discovery persistence,
// grounded on the teacher's execution_store.go shape (Store/Get/ListRecent).
type DiscoveryStore interface {
	Save(ctx context.Context, rec Record) error
	ListRecent(ctx context.Context, tier state.ConfidenceTier, limit int) ([]Record, error)
}
