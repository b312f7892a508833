package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/AiSchool-Admin/quran-miracles/internal/apperrors"
	"github.com/AiSchool-Admin/quran-miracles/internal/logging"
	"github.com/AiSchool-Admin/quran-miracles/internal/state"
)

// Redis DB allocation, matching the teacher's core/redis_client.go scheme:
// DB0 discovery, DB1 rate limiting, DB2 sessions, DB3 circuit breaker.
// This adapter and the checkpoint package share the same Redis server but
// different DB indices to keep the keyspaces isolated.
const (
	DiscoveryDB = 0
	SessionDB   = 2

	discoveryNamespace = "quran_miracles:discovery"
)

// Redis is the production DiscoveryStore, backed by a go-redis client
// isolated to DiscoveryDB with namespaced keys and a secondary sorted-set
// index per confidence tier for ListRecent.
type Redis struct {
	client *redis.Client
	logger logging.Logger
}

// NewRedis connects to redisURL and selects DiscoveryDB for isolation.
func NewRedis(ctx context.Context, redisURL string, logger logging.Logger) (*Redis, error) {
	if logger == nil {
		logger = logging.NoOp{}
	}
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInvalidInput, "store.redis", err)
	}
	opt.DB = DiscoveryDB

	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.KindTransient, "store.redis", err)
	}

	logger.Info("discovery store connected", map[string]interface{}{"db": DiscoveryDB, "namespace": discoveryNamespace})
	return &Redis{client: client, logger: logger}, nil
}

func (r *Redis) key(discoveryID string) string {
	return fmt.Sprintf("%s:record:%s", discoveryNamespace, discoveryID)
}

func (r *Redis) tierIndexKey(tier state.ConfidenceTier) string {
	return fmt.Sprintf("%s:by_tier:%s", discoveryNamespace, tier)
}

func (r *Redis) Save(ctx context.Context, rec Record) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return apperrors.Wrap(apperrors.KindInternal, "store.redis.save", err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.key(rec.DiscoveryID), payload, 0)
	pipe.ZAdd(ctx, r.tierIndexKey(rec.ConfidenceTier), &redis.Z{
		Score:  float64(rec.CreatedAt.Unix()),
		Member: rec.DiscoveryID,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return apperrors.Wrap(apperrors.KindTransient, "store.redis.save", err)
	}
	return nil
}

func (r *Redis) ListRecent(ctx context.Context, tier state.ConfidenceTier, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 20
	}

	var ids []string
	var err error
	if tier != "" {
		ids, err = r.client.ZRevRange(ctx, r.tierIndexKey(tier), 0, int64(limit-1)).Result()
	} else {
		ids, err = r.scanAllRecent(ctx, limit)
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindTransient, "store.redis.list_recent", err)
	}

	out := make([]Record, 0, len(ids))
	for _, id := range ids {
		raw, err := r.client.Get(ctx, r.key(id)).Bytes()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, apperrors.Wrap(apperrors.KindTransient, "store.redis.list_recent", err)
		}
		var rec Record
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, apperrors.Wrap(apperrors.KindInternal, "store.redis.list_recent", err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// scanAllRecent merges the three tier indexes when no tier filter is given.
func (r *Redis) scanAllRecent(ctx context.Context, limit int) ([]string, error) {
	tiers := []state.ConfidenceTier{state.Tier1, state.Tier2, state.Tier3}
	var merged []redis.Z
	for _, t := range tiers {
		zs, err := r.client.ZRevRangeWithScores(ctx, r.tierIndexKey(t), 0, int64(limit-1)).Result()
		if err != nil {
			return nil, err
		}
		merged = append(merged, zs...)
	}
	sortZByScoreDesc(merged)
	if len(merged) > limit {
		merged = merged[:limit]
	}
	ids := make([]string, len(merged))
	for i, z := range merged {
		ids[i] = fmt.Sprintf("%v", z.Member)
	}
	return ids, nil
}

func sortZByScoreDesc(zs []redis.Z) {
	for i := 1; i < len(zs); i++ {
		for j := i; j > 0 && zs[j].Score > zs[j-1].Score; j-- {
			zs[j], zs[j-1] = zs[j-1], zs[j]
		}
	}
}
