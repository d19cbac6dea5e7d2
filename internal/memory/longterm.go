package memory

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"math"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/kazz187/devguild/pkg/cerr"
	"github.com/kazz187/devguild/pkg/storage"
)

const longTermPrefix = "memory/long/"

// longRecord is the persisted form of a long-term item.
type longRecord struct {
	Key      string    `json:"key"`
	Value    string    `json:"value"`
	StoredAt time.Time `json:"stored_at"`
}

// LongTermStore archives items as JSON records in storage and keeps an
// in-memory term-frequency index over them for similarity search. The
// index is rebuilt from storage on open.
type LongTermStore struct {
	storage storage.Storage
	now     func() time.Time

	mu    sync.RWMutex
	index map[string]map[string]float64 // key -> term frequencies
	items map[string]string             // key -> value
}

func NewLongTermStore(ctx context.Context, st storage.Storage) (*LongTermStore, error) {
	l := &LongTermStore{
		storage: st,
		now:     time.Now,
		index:   map[string]map[string]float64{},
		items:   map[string]string{},
	}
	if err := l.rebuild(ctx); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *LongTermStore) rebuild(ctx context.Context) error {
	paths, err := l.storage.List(ctx, longTermPrefix)
	if err != nil {
		return cerr.WrapStorageReadError("memories", err)
	}
	for _, path := range paths {
		data, err := l.storage.Read(ctx, path)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				continue
			}
			return cerr.WrapStorageReadError("memory", err)
		}
		var rec longRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			// Skip corrupt records rather than refusing to open.
			continue
		}
		l.items[rec.Key] = rec.Value
		l.index[rec.Key] = termFrequencies(rec.Key + " " + rec.Value)
	}
	return nil
}

func recordPath(key string) string {
	return longTermPrefix + base64.RawURLEncoding.EncodeToString([]byte(key)) + ".json"
}

// Save persists the item and updates the index. An existing key is
// overwritten.
func (l *LongTermStore) Save(ctx context.Context, key, value string) error {
	rec := longRecord{Key: key, Value: value, StoredAt: l.now()}
	data, err := json.Marshal(rec)
	if err != nil {
		return cerr.NewError(cerr.Internal, "failed to encode memory record", err)
	}
	if err := l.storage.Write(ctx, recordPath(key), data); err != nil {
		return cerr.WrapStorageWriteError("memory", err)
	}

	l.mu.Lock()
	l.items[key] = value
	l.index[key] = termFrequencies(key + " " + value)
	l.mu.Unlock()
	return nil
}

// Get returns the stored value for key.
func (l *LongTermStore) Get(key string) (string, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	v, ok := l.items[key]
	return v, ok
}

// Delete removes the record from storage and the index. Returns whether
// the key was present.
func (l *LongTermStore) Delete(ctx context.Context, key string) (bool, error) {
	l.mu.Lock()
	_, present := l.items[key]
	delete(l.items, key)
	delete(l.index, key)
	l.mu.Unlock()

	if err := l.storage.Delete(ctx, recordPath(key)); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return present, nil
		}
		return present, cerr.WrapStorageDeleteError("memory", err)
	}
	return present, nil
}

func (l *LongTermStore) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.items)
}

// Search ranks stored items by cosine similarity between their term
// frequencies and the query's. Items with zero similarity are omitted;
// ties break on key so results are stable.
func (l *LongTermStore) Search(query string, limit int) []SearchHit {
	if limit <= 0 {
		limit = 5
	}
	queryVec := termFrequencies(query)
	if len(queryVec) == 0 {
		return nil
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	hits := make([]SearchHit, 0, len(l.index))
	for key, vec := range l.index {
		score := cosineSimilarity(queryVec, vec)
		if score <= 0 {
			continue
		}
		hits = append(hits, SearchHit{Key: key, Value: l.items[key], Score: score})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Key < hits[j].Key
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits
}

// termFrequencies tokenizes on non-alphanumeric boundaries and counts
// lowercased terms.
func termFrequencies(text string) map[string]float64 {
	freq := map[string]float64{}
	for _, term := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		freq[term]++
	}
	return freq
}

func cosineSimilarity(a, b map[string]float64) float64 {
	var dot, normA, normB float64
	for term, av := range a {
		normA += av * av
		if bv, ok := b[term]; ok {
			dot += av * bv
		}
	}
	for _, bv := range b {
		normB += bv * bv
	}
	if dot == 0 || normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
