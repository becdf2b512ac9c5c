package presence

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/echomatch/echomatch/internal/cache"
	"github.com/echomatch/echomatch/internal/logger"
)

const (
	keyPrefix  = "presence:"
	scanBatch  = 200
	DefaultTTL = 180 * time.Second
)

// Store keeps the latest sample per user in Redis with a validity TTL.
// Reads never return an expired sample; writes are last-write-wins.
type Store struct {
	cache *cache.RedisCache
	ttl   time.Duration
}

// NewStore wraps the shared Redis client. A zero ttl falls back to the
// 180s default.
func NewStore(c *cache.RedisCache, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{cache: c, ttl: ttl}
}

// TTL returns the configured validity window.
func (s *Store) TTL() time.Duration { return s.ttl }

func key(userID string) string { return keyPrefix + userID }

// Put upserts the user's sample and resets its TTL. Store errors surface
// to the caller; losing one update is acceptable, hiding it is not.
func (s *Store) Put(ctx context.Context, sample *Sample) error {
	if err := sample.Validate(); err != nil {
		return err
	}
	payload, err := json.Marshal(sample)
	if err != nil {
		return fmt.Errorf("marshal presence sample: %w", err)
	}
	if err := s.cache.Set(ctx, key(sample.UserID), payload, s.ttl); err != nil {
		return fmt.Errorf("write presence sample: %w", err)
	}
	return nil
}

// Get returns the user's current sample, or (nil, nil) when none is live.
func (s *Store) Get(ctx context.Context, userID string) (*Sample, error) {
	raw, err := s.cache.Get(ctx, key(userID))
	if err != nil {
		return nil, fmt.Errorf("read presence sample: %w", err)
	}
	if raw == "" {
		return nil, nil
	}
	var sample Sample
	if err := json.Unmarshal([]byte(raw), &sample); err != nil {
		return nil, fmt.Errorf("decode presence sample: %w", err)
	}
	return &sample, nil
}

// ScanActive returns every currently live sample. The result is an
// unordered snapshot: concurrent writes may or may not be observed.
// Corrupt entries are skipped, and samples older than the TTL window are
// dropped even if Redis has not evicted them yet.
func (s *Store) ScanActive(ctx context.Context) ([]Sample, error) {
	keys, err := s.cache.ScanKeys(ctx, keyPrefix+"*", scanBatch)
	if err != nil {
		return nil, fmt.Errorf("scan presence keys: %w", err)
	}
	if len(keys) == 0 {
		return nil, nil
	}

	values, err := s.cache.MGet(ctx, keys...)
	if err != nil {
		return nil, fmt.Errorf("fetch presence samples: %w", err)
	}

	cutoff := time.Now().Unix() - int64(s.ttl/time.Second)
	samples := make([]Sample, 0, len(values))
	for i, v := range values {
		raw, ok := v.(string)
		if !ok || raw == "" {
			continue // expired between SCAN and MGET
		}
		var sample Sample
		if err := json.Unmarshal([]byte(raw), &sample); err != nil {
			logger.Warn("skipping corrupt presence sample", "key", keys[i], "err", err)
			continue
		}
		if sample.CapturedAt < cutoff {
			continue
		}
		samples = append(samples, sample)
	}
	return samples, nil
}
