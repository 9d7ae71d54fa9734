// Package broadcast fans values out to any number of subscribers.
//
// A Stream either replays its latest value to new subscribers (state streams,
// e.g. the authorized-origin map) or only pushes values published after the
// subscription (event streams, e.g. the pending request list).
package broadcast

import (
	"sync"
)

// DefaultBuffer is the per-subscriber channel size used when Subscribe gets a non-positive size
const DefaultBuffer = 8

// Subscribable is the read side of a Stream handed to consumers
type Subscribable[T any] interface {
	Subscribe(buffer int) (<-chan T, func())
	Latest() (T, bool)
}

// Stream is a multi-subscriber broadcast channel
type Stream[T any] struct {
	mu          sync.Mutex
	replay      bool
	latest      T
	hasLatest   bool
	closed      bool
	nextID      int
	subscribers map[int]chan T
}

// NewReplayStream creates a stream that hands its latest value to every new subscriber
func NewReplayStream[T any]() *Stream[T] {
	return &Stream[T]{replay: true, subscribers: make(map[int]chan T)}
}

// NewPushStream creates a stream that only delivers values published after subscribing
func NewPushStream[T any]() *Stream[T] {
	return &Stream[T]{subscribers: make(map[int]chan T)}
}

// Subscribe registers a subscriber. The returned func unsubscribes and closes the channel.
func (s *Stream[T]) Subscribe(buffer int) (<-chan T, func()) {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	ch := make(chan T, buffer)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		close(ch)
		return ch, func() {}
	}

	id := s.nextID
	s.nextID++
	s.subscribers[id] = ch

	if s.replay && s.hasLatest {
		ch <- s.latest
	}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if sub, ok := s.subscribers[id]; ok {
				delete(s.subscribers, id)
				close(sub)
			}
		})
	}
}

// Publish delivers v to all subscribers without blocking.
// A subscriber whose buffer is full loses its oldest undelivered value.
func (s *Stream[T]) Publish(v T) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	s.latest = v
	s.hasLatest = true

	for _, ch := range s.subscribers {
		deliver(ch, v)
	}
}

func deliver[T any](ch chan T, v T) {
	for {
		select {
		case ch <- v:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

// Latest returns the last published value
func (s *Stream[T]) Latest() (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest, s.hasLatest
}

// SubscriberCount returns the number of live subscribers
func (s *Stream[T]) SubscriberCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subscribers)
}

// Close closes every subscriber channel. Later publishes are dropped.
func (s *Stream[T]) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true

	for id, ch := range s.subscribers {
		delete(s.subscribers, id)
		close(ch)
	}
}
