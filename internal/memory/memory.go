// Package memory implements the two-tier memory store: a bounded
// short-term cache with TTL expiry and a storage-backed long-term
// archive with similarity search.
package memory

import "time"

// Tier identifies which layer a memory item lives in.
type Tier string

const (
	TierShort Tier = "short"
	TierLong  Tier = "long"
)

// Item is a single remembered value.
type Item struct {
	Key      string    `json:"key"`
	Value    string    `json:"value"`
	Tier     Tier      `json:"tier"`
	StoredAt time.Time `json:"stored_at"`
}

// SearchHit is one long-term search result, best match first.
type SearchHit struct {
	Key   string  `json:"key"`
	Value string  `json:"value"`
	Score float64 `json:"score"`
}

// Stats reports the current size of each tier.
type Stats struct {
	ShortCount int `json:"short_count"`
	LongCount  int `json:"long_count"`
}
