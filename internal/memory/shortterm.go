package memory

import (
	"container/list"
	"sync"
	"time"
)

// shortEntry is the LRU list payload.
type shortEntry struct {
	key      string
	value    string
	storedAt time.Time
}

// ShortTermStore is a capacity-bounded LRU map with lazy TTL expiry.
// Expired entries are dropped on access, not by a background sweeper,
// so reads also mutate under the lock.
type ShortTermStore struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	now      func() time.Time

	order *list.List // front = most recently used
	index map[string]*list.Element
}

type ShortTermOption func(*ShortTermStore)

// WithClock replaces the time source. Tests use this to drive expiry.
func WithClock(now func() time.Time) ShortTermOption {
	return func(s *ShortTermStore) { s.now = now }
}

func NewShortTermStore(capacity int, ttl time.Duration, opts ...ShortTermOption) *ShortTermStore {
	if capacity <= 0 {
		capacity = 1000
	}
	s := &ShortTermStore{
		capacity: capacity,
		ttl:      ttl,
		now:      time.Now,
		order:    list.New(),
		index:    map[string]*list.Element{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Set stores the value, refreshing its TTL and recency. When the store
// is full the least recently used entry is evicted.
func (s *ShortTermStore) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if el, ok := s.index[key]; ok {
		entry := el.Value.(*shortEntry)
		entry.value = value
		entry.storedAt = s.now()
		s.order.MoveToFront(el)
		return
	}
	if s.order.Len() >= s.capacity {
		s.evictLocked()
	}
	el := s.order.PushFront(&shortEntry{key: key, value: value, storedAt: s.now()})
	s.index[key] = el
}

// Get returns the value and marks the entry as recently used. An entry
// past its TTL is removed and reported as absent.
func (s *ShortTermStore) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	el, ok := s.index[key]
	if !ok {
		return "", false
	}
	entry := el.Value.(*shortEntry)
	if s.expired(entry) {
		s.removeLocked(el)
		return "", false
	}
	s.order.MoveToFront(el)
	return entry.value, true
}

// Delete removes the entry. Returns whether a live entry was present.
func (s *ShortTermStore) Delete(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	el, ok := s.index[key]
	if !ok {
		return false
	}
	live := !s.expired(el.Value.(*shortEntry))
	s.removeLocked(el)
	return live
}

// Len counts live entries, dropping any that have expired.
func (s *ShortTermStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	var expired []*list.Element
	for el := s.order.Front(); el != nil; el = el.Next() {
		if s.expired(el.Value.(*shortEntry)) {
			expired = append(expired, el)
		}
	}
	for _, el := range expired {
		s.removeLocked(el)
	}
	return s.order.Len()
}

func (s *ShortTermStore) expired(entry *shortEntry) bool {
	if s.ttl <= 0 {
		return false
	}
	return s.now().Sub(entry.storedAt) >= s.ttl
}

func (s *ShortTermStore) evictLocked() {
	// Prefer evicting an expired entry over the LRU victim.
	for el := s.order.Back(); el != nil; el = el.Prev() {
		if s.expired(el.Value.(*shortEntry)) {
			s.removeLocked(el)
			return
		}
	}
	if back := s.order.Back(); back != nil {
		s.removeLocked(back)
	}
}

func (s *ShortTermStore) removeLocked(el *list.Element) {
	s.order.Remove(el)
	delete(s.index, el.Value.(*shortEntry).key)
}
