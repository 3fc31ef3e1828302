// Package observable provides a single-writer state container that broadcasts
// every snapshot to any number of subscribers.
package observable

import (
	"context"
	"sync"
)

// Subject holds the latest value of T. Subscribers receive the current value
// on subscription and every later value. A subscriber that falls behind only
// sees the most recent value; the writer never blocks on a slow reader.
type Subject[T any] struct {
	mu     sync.Mutex
	value  T
	subs   map[uint64]chan T
	nextID uint64
	closed bool
}

func New[T any](initial T) *Subject[T] {
	return &Subject[T]{
		value: initial,
		subs:  make(map[uint64]chan T),
	}
}

func (s *Subject[T]) Value() T {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.value
}

func (s *Subject[T]) Publish(v T) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.publishLocked(v)
}

// Update applies fn to the current value and publishes the result atomically
// with respect to other writers.
func (s *Subject[T]) Update(fn func(T) T) T {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := fn(s.value)
	s.publishLocked(next)

	return next
}

func (s *Subject[T]) publishLocked(v T) {
	if s.closed {
		return
	}

	s.value = v

	for _, ch := range s.subs {
		offer(ch, v)
	}
}

// offer replaces any pending value in ch with v. ch has capacity 1 and only
// the writer sends on it, so the second send cannot block.
func offer[T any](ch chan T, v T) {
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

// Subscribe returns a channel of snapshots that is closed when ctx is done or
// the subject is closed.
func (s *Subject[T]) Subscribe(ctx context.Context) <-chan T {
	ch := make(chan T, 1)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		close(ch)
		return ch
	}

	id := s.nextID
	s.nextID++
	s.subs[id] = ch
	ch <- s.value
	s.mu.Unlock()

	context.AfterFunc(ctx, func() {
		s.unsubscribe(id)
	})

	return ch
}

func (s *Subject[T]) unsubscribe(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch, ok := s.subs[id]
	if !ok {
		return
	}

	delete(s.subs, id)
	close(ch)
}

// Subscribers returns the number of live subscriptions.
func (s *Subject[T]) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.subs)
}

// Close ends every subscription. Later publishes are ignored.
func (s *Subject[T]) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	s.closed = true
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
}
