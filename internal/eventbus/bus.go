package eventbus

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Event is an in-process signal between components (dispatch results, cron runs).
//
// Publish never blocks. Subscribers get a buffered channel; a slow subscriber
// drops events instead of stalling the publisher.
type Event struct {
	Type string
	Time time.Time
	Data any
}

type Bus interface {
	Publish(e Event)
	Subscribe(buffer int) (ch <-chan Event, unsubscribe func())
}

// New returns an in-memory fanout bus. It owns no goroutines.
func New() *MemBus {
	return &MemBus{subs: map[uint64]chan Event{}}
}

type MemBus struct {
	mu      sync.RWMutex
	subs    map[uint64]chan Event
	seq     atomic.Uint64
	dropped atomic.Uint64
}

func (b *MemBus) Publish(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	// Hold the read lock across sends so unsubscribe cannot close a channel
	// mid-send; sends never block so this is short.
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
			b.dropped.Add(1)
		}
	}
}

func (b *MemBus) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 8
	}
	ch := make(chan Event, buffer)
	id := b.seq.Add(1)

	b.mu.Lock()
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			close(ch)
			b.mu.Unlock()
		})
	}
}

// Dropped counts events lost to full subscriber buffers.
func (b *MemBus) Dropped() uint64 { return b.dropped.Load() }

// Consume subscribes to bus and calls fn for every event whose type is in
// types (all events when types is empty) until ctx is done.
func Consume(ctx context.Context, bus Bus, buffer int, fn func(Event), types ...string) error {
	ch, unsub := bus.Subscribe(buffer)
	defer unsub()

	want := make(map[string]bool, len(types))
	for _, t := range types {
		want[t] = true
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case e, ok := <-ch:
			if !ok {
				return nil
			}
			if len(want) == 0 || want[e.Type] {
				fn(e)
			}
		}
	}
}
