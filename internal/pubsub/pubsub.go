// Package pubsub fans values out to subscribers without dropping any.
// Each subscriber owns an unbounded queue drained by its own goroutine,
// so publishers never block on slow readers.
package pubsub

import "sync"

// Hub is a set of subscribers. The zero value is ready to use.
type Hub[T any] struct {
	mu   sync.Mutex
	subs map[*Subscription[T]]struct{}
}

// Subscribe registers a subscriber whose first value is initial.
func (h *Hub[T]) Subscribe(initial T) *Subscription[T] {
	s := newSubscription(h.remove)
	s.push(initial)

	h.mu.Lock()
	if h.subs == nil {
		h.subs = make(map[*Subscription[T]]struct{})
	}
	h.subs[s] = struct{}{}
	h.mu.Unlock()
	return s
}

// Publish queues v for every current subscriber.
func (h *Hub[T]) Publish(v T) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.subs {
		s.push(v)
	}
}

func (h *Hub[T]) subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func (h *Hub[T]) remove(s *Subscription[T]) {
	h.mu.Lock()
	delete(h.subs, s)
	h.mu.Unlock()
}

// Subscription delivers values on C, oldest first. C is closed once
// Close has been called.
type Subscription[T any] struct {
	C <-chan T

	out    chan T
	notify chan struct{}
	done   chan struct{}

	mu    sync.Mutex
	queue []T

	closeOnce sync.Once
	onClose   func(*Subscription[T])
}

func newSubscription[T any](onClose func(*Subscription[T])) *Subscription[T] {
	out := make(chan T)
	s := &Subscription[T]{
		C:       out,
		out:     out,
		notify:  make(chan struct{}, 1),
		done:    make(chan struct{}),
		onClose: onClose,
	}
	go s.pump()
	return s
}

// Close unsubscribes. It is safe to call more than once.
func (s *Subscription[T]) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		if s.onClose != nil {
			s.onClose(s)
		}
	})
}

func (s *Subscription[T]) push(v T) {
	s.mu.Lock()
	s.queue = append(s.queue, v)
	s.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
}

func (s *Subscription[T]) pump() {
	defer close(s.out)
	var zero T
	for {
		select {
		case <-s.done:
			return
		case <-s.notify:
		}

		for {
			s.mu.Lock()
			if len(s.queue) == 0 {
				s.mu.Unlock()
				break
			}
			next := s.queue[0]
			s.queue[0] = zero
			s.queue = s.queue[1:]
			s.mu.Unlock()

			select {
			case s.out <- next:
			case <-s.done:
				return
			}
		}
	}
}
