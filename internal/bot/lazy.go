package bot

import (
	"sync"
	"time"

	"github.com/joshwoo0/gsa-bot/internal/command"
)

type lazyKey struct {
	channel string
	sender  string
}

type pending struct {
	cmd     command.Command
	prev    *command.Request
	expires time.Time
}

// lazyStore holds at most one pending continuation per sender and channel.
type lazyStore struct {
	mu    sync.Mutex
	items map[lazyKey]pending
}

func newLazyStore() *lazyStore { return &lazyStore{items: map[lazyKey]pending{}} }

// arm replaces any continuation already pending for key.
func (s *lazyStore) arm(key lazyKey, p pending) {
	s.mu.Lock()
	s.items[key] = p
	s.mu.Unlock()
}

// take removes and returns the continuation for key unless it expired.
func (s *lazyStore) take(key lazyKey, now time.Time) (pending, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.items[key]
	if !ok {
		return pending{}, false
	}
	delete(s.items, key)
	if !p.expires.IsZero() && now.After(p.expires) {
		return pending{}, false
	}
	return p, true
}

// sweep drops expired continuations and returns how many were dropped.
func (s *lazyStore) sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for k, p := range s.items {
		if !p.expires.IsZero() && now.After(p.expires) {
			delete(s.items, k)
			n++
		}
	}
	return n
}

func (s *lazyStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}
