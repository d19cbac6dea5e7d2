package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/kazz187/devguild/internal/config"
	"github.com/kazz187/devguild/pkg/cerr"
	"github.com/kazz187/devguild/pkg/storage"
)

// Store is the two-tier facade. Short-term memories live in the LRU
// cache; long-term memories are archived through storage and are
// searchable.
type Store struct {
	short *ShortTermStore
	long  *LongTermStore
}

func NewStore(ctx context.Context, cfg config.MemoryConfig, st storage.Storage, opts ...ShortTermOption) (*Store, error) {
	long, err := NewLongTermStore(ctx, st)
	if err != nil {
		return nil, err
	}
	ttl := time.Duration(cfg.ShortTTLSeconds) * time.Second
	return &Store{
		short: NewShortTermStore(cfg.ShortCapacity, ttl, opts...),
		long:  long,
	}, nil
}

// RememberShort stores a value in the short-term tier.
func (s *Store) RememberShort(key, value string) {
	s.short.Set(key, value)
}

// RememberLong archives a value in the long-term tier.
func (s *Store) RememberLong(ctx context.Context, key, value string) error {
	return s.long.Save(ctx, key, value)
}

// Recall looks the key up short-term first, then long-term. A tier of
// "" searches both; naming a tier restricts the lookup to it.
func (s *Store) Recall(_ context.Context, key string, tier Tier) (*Item, error) {
	if tier == "" || tier == TierShort {
		if v, ok := s.short.Get(key); ok {
			return &Item{Key: key, Value: v, Tier: TierShort}, nil
		}
	}
	if tier == "" || tier == TierLong {
		if v, ok := s.long.Get(key); ok {
			return &Item{Key: key, Value: v, Tier: TierLong}, nil
		}
	}
	return nil, cerr.NewError(cerr.NotFound, fmt.Sprintf("memory key %q not found", key), nil)
}

// Forget removes the key from the named tier, or from both when tier
// is "". It reports whether anything held the key; forgetting an
// absent key is a no-op.
func (s *Store) Forget(ctx context.Context, key string, tier Tier) (bool, error) {
	had := false
	if tier == "" || tier == TierShort {
		had = s.short.Delete(key)
	}
	if tier == "" || tier == TierLong {
		longHad, err := s.long.Delete(ctx, key)
		if err != nil {
			return had, err
		}
		had = had || longHad
	}
	return had, nil
}

// Search queries the long-term tier by similarity.
func (s *Store) Search(query string, limit int) []SearchHit {
	return s.long.Search(query, limit)
}

// Stats reports per-tier sizes.
func (s *Store) Stats() Stats {
	return Stats{ShortCount: s.short.Len(), LongCount: s.long.Len()}
}
