package cache

import (
	"context"
	"regexp"
	"time"

	cmap "github.com/orcaman/concurrent-map/v2"
)

type entry struct {
	value     []byte
	expiresAt time.Time
}

func (e entry) expired(now time.Time) bool {
	return !now.Before(e.expiresAt)
}

type MemoryStore struct {
	m   cmap.ConcurrentMap[string, entry]
	now func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		m:   cmap.New[entry](),
		now: time.Now,
	}
}

func (s *MemoryStore) Name() string { return "memory" }

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	e, ok := s.m.Get(key)
	if !ok {
		return nil, false, nil
	}
	if e.expired(s.now()) {
		s.removeExpired(key)
		return nil, false, nil
	}
	return e.value, true, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.m.Set(key, entry{value: value, expiresAt: s.now().Add(ttl)})
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.m.Remove(key)
	return nil
}

func (s *MemoryStore) DeletePattern(_ context.Context, re *regexp.Regexp) (int, error) {
	n := 0
	for _, key := range s.m.Keys() {
		if re.MatchString(key) && s.m.RemoveCb(key, func(string, entry, bool) bool { return true }) {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) Clear(_ context.Context) (int, error) {
	n := s.m.Count()
	s.m.Clear()
	return n, nil
}

// Len counts live entries.
func (s *MemoryStore) Len(_ context.Context) (int, error) {
	now := s.now()
	n := 0
	for item := range s.m.IterBuffered() {
		if !item.Val.expired(now) {
			n++
		}
	}
	return n, nil
}

// Sweep drops every expired entry and reports how many were removed.
func (s *MemoryStore) Sweep() int {
	n := 0
	for _, key := range s.m.Keys() {
		if s.removeExpired(key) {
			n++
		}
	}
	return n
}

// removeExpired re-checks under the shard lock so a concurrent Set is never lost.
func (s *MemoryStore) removeExpired(key string) bool {
	now := s.now()
	return s.m.RemoveCb(key, func(_ string, e entry, exists bool) bool {
		return exists && e.expired(now)
	})
}
