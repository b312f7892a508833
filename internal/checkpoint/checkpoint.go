// Package checkpoint provides per-session state persistence for the
// discovery orchestrator: an in-memory, concurrency-guarded store with
// bounded LRU eviction, optionally mirrored to Redis (DB2, isolated from
// the discovery store's DB0 per the teacher's redis_client.go scheme).
package checkpoint

import (
	"container/list"
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/AiSchool-Admin/quran-miracles/internal/apperrors"
	"github.com/AiSchool-Admin/quran-miracles/internal/logging"
	"github.com/AiSchool-Admin/quran-miracles/internal/state"
)

// SessionDB is the Redis DB index reserved for session checkpoints.
const SessionDB = 2

const defaultCapacity = 1000

type entry struct {
	sessionID string
	snapshot  state.State
	inFlight  bool
}

// Store is the session checkpointer. A session may have at most one
// in-flight run at a time; a second Begin for an id whose run is still in
// flight is rejected rather than silently overwriting its state.
type Store struct {
	mu       sync.Mutex
	capacity int
	items    map[string]*list.Element // sessionID -> LRU element
	order    *list.List               // most-recently-used at the front
	redis    *redis.Client
	logger   logging.Logger
}

// Option configures a Store at construction.
type Option func(*Store)

// WithCapacity overrides the default in-memory LRU cap (1000 sessions).
func WithCapacity(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.capacity = n
		}
	}
}

// WithRedisMirror attaches a Redis-backed mirror selecting SessionDB for
// isolation. redisURL may be empty, in which case the store stays
// in-memory only.
func WithRedisMirror(redisURL string, logger logging.Logger) Option {
	return func(s *Store) {
		if redisURL == "" {
			return
		}
		opt, err := redis.ParseURL(redisURL)
		if err != nil {
			if logger != nil {
				logger.Warn("checkpoint: invalid redis URL, falling back to in-memory only", map[string]interface{}{"error": err.Error()})
			}
			return
		}
		opt.DB = SessionDB
		s.redis = redis.NewClient(opt)
	}
}

// New builds a session checkpoint store.
func New(logger logging.Logger, opts ...Option) *Store {
	if logger == nil {
		logger = logging.NoOp{}
	}
	s := &Store{
		capacity: defaultCapacity,
		items:    make(map[string]*list.Element),
		order:    list.New(),
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Begin registers sessionID as in-flight with the given initial snapshot.
// It returns an error if a run for sessionID is already in flight.
func (s *Store) Begin(ctx context.Context, sessionID string, initial state.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if el, ok := s.items[sessionID]; ok {
		if el.Value.(*entry).inFlight {
			return apperrors.New(apperrors.KindInvalidInput, "session already has a run in flight")
		}
	}
	s.put(sessionID, initial, true)
	s.mirrorAsync(ctx, sessionID, initial)
	return nil
}

// Put checkpoints the latest snapshot for an in-flight session.
func (s *Store) Put(ctx context.Context, sessionID string, snapshot state.State) {
	s.mu.Lock()
	s.put(sessionID, snapshot, true)
	s.mu.Unlock()
	s.mirrorAsync(ctx, sessionID, snapshot)
}

// Finish marks sessionID no longer in flight, keeping its final snapshot
// available for Get until evicted.
func (s *Store) Finish(ctx context.Context, sessionID string, final state.State) {
	s.mu.Lock()
	s.put(sessionID, final, false)
	s.mu.Unlock()
	s.mirrorAsync(ctx, sessionID, final)
}

// Get returns the last checkpointed snapshot for sessionID.
func (s *Store) Get(sessionID string) (state.State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	el, ok := s.items[sessionID]
	if !ok {
		return state.State{}, false
	}
	s.order.MoveToFront(el)
	return el.Value.(*entry).snapshot, true
}

// Clear removes sessionID's checkpoint entirely.
func (s *Store) Clear(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if el, ok := s.items[sessionID]; ok {
		s.order.Remove(el)
		delete(s.items, sessionID)
	}
}

// put assumes s.mu is held.
func (s *Store) put(sessionID string, snapshot state.State, inFlight bool) {
	if el, ok := s.items[sessionID]; ok {
		el.Value.(*entry).snapshot = snapshot
		el.Value.(*entry).inFlight = inFlight
		s.order.MoveToFront(el)
		return
	}

	el := s.order.PushFront(&entry{sessionID: sessionID, snapshot: snapshot, inFlight: inFlight})
	s.items[sessionID] = el

	for s.order.Len() > s.capacity {
		oldest := s.order.Back()
		if oldest == nil {
			break
		}
		s.order.Remove(oldest)
		delete(s.items, oldest.Value.(*entry).sessionID)
	}
}

func (s *Store) mirrorAsync(ctx context.Context, sessionID string, snapshot state.State) {
	if s.redis == nil {
		return
	}
	payload, err := json.Marshal(snapshot)
	if err != nil {
		s.logger.WarnWithContext(ctx, "checkpoint: failed to marshal snapshot for redis mirror", map[string]interface{}{"error": err.Error()})
		return
	}
	go func() {
		mirrorCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.redis.Set(mirrorCtx, "quran_miracles:session:"+sessionID, payload, 24*time.Hour).Err(); err != nil {
			s.logger.Warn("checkpoint: redis mirror write failed", map[string]interface{}{"session_id": sessionID, "error": err.Error()})
		}
	}()
}
