// Package stream holds the reactive state containers the screens subscribe to.
package stream

import (
	"context"
	"sync"
	"time"
)

const DefaultGrace = 5 * time.Second

// Producer starts an upstream sequence bound to ctx. It must close the
// returned channel once ctx is done or the sequence ends.
type Producer[T any] func(ctx context.Context) <-chan T

// Shared keeps the latest value of an upstream sequence and runs that
// sequence only while someone is subscribed. After the last subscriber
// leaves, upstream keeps running for the grace period so a quick
// re-subscribe (a tab switch, say) does not restart it.
type Shared[T any] struct {
	produce Producer[T]
	grace   time.Duration

	mu      sync.Mutex
	value   T
	subs    map[int]chan T
	nextID  int
	running bool
	gen     int
	cancel  context.CancelFunc
	stop    *time.Timer
}

func NewShared[T any](initial T, grace time.Duration, produce Producer[T]) *Shared[T] {
	if grace < 0 {
		grace = 0
	}
	return &Shared[T]{
		produce: produce,
		grace:   grace,
		value:   initial,
		subs:    make(map[int]chan T),
	}
}

// Value returns the most recent value.
func (s *Shared[T]) Value() T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}

// Running reports whether the upstream sequence is currently active.
func (s *Shared[T]) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Subscribe registers a new observer. Its channel holds the current value
// right away and afterwards only ever the latest one.
func (s *Shared[T]) Subscribe() *Subscription[T] {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan T, 1)
	ch <- s.value
	id := s.nextID
	s.nextID++
	s.subs[id] = ch

	if s.stop != nil {
		s.stop.Stop()
		s.stop = nil
	}
	if !s.running {
		s.start()
	}

	return &Subscription[T]{C: ch, id: id, parent: s}
}

// start must be called with mu held.
func (s *Shared[T]) start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.gen++
	s.running = true
	s.cancel = cancel
	go s.pump(ctx, s.gen, s.produce(ctx))
}

func (s *Shared[T]) pump(ctx context.Context, gen int, in <-chan T) {
	for v := range in {
		s.mu.Lock()
		if gen != s.gen || ctx.Err() != nil {
			s.mu.Unlock()
			continue
		}
		s.value = v
		for _, ch := range s.subs {
			offerLatest(ch, v)
		}
		s.mu.Unlock()
	}
}

// offerLatest replaces whatever is buffered in ch with v. Only the pump
// sends, under mu, so the second send cannot block.
func offerLatest[T any](ch chan T, v T) {
	select {
	case ch <- v:
	default:
		select {
		case <-ch:
		default:
		}
		ch <- v
	}
}

func (s *Shared[T]) unsubscribe(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch, ok := s.subs[id]
	if !ok {
		return
	}
	delete(s.subs, id)
	close(ch)

	if len(s.subs) > 0 || !s.running {
		return
	}
	gen := s.gen
	if s.grace == 0 {
		s.halt()
		return
	}
	s.stop = time.AfterFunc(s.grace, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if gen == s.gen && len(s.subs) == 0 && s.running {
			s.halt()
		}
	})
}

// halt must be called with mu held.
func (s *Shared[T]) halt() {
	s.cancel()
	s.cancel = nil
	s.running = false
	s.stop = nil
}

// Close stops upstream immediately and closes every subscription.
func (s *Shared[T]) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
	if s.stop != nil {
		s.stop.Stop()
	}
	if s.running {
		s.halt()
	}
}

type Subscription[T any] struct {
	C      <-chan T
	id     int
	parent *Shared[T]
	once   sync.Once
}

// Close detaches the observer; C is closed. Safe to call more than once.
func (sub *Subscription[T]) Close() {
	sub.once.Do(func() {
		sub.parent.unsubscribe(sub.id)
	})
}
