// Package mutation applies local changes optimistically, commits them with
// exactly one network call, and either confirms the server's record or
// rolls the local change back.
package mutation

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/foodshare/internal/client/notify"
	"github.com/dmitrijs2005/foodshare/internal/logging"
	"github.com/dmitrijs2005/foodshare/internal/metrics"
)

type Status int

const (
	Confirmed Status = iota + 1
	RolledBack
)

func (s Status) String() string {
	switch s {
	case Confirmed:
		return "confirmed"
	case RolledBack:
		return "rolled_back"
	default:
		return "pending"
	}
}

// MutationError reports a failed commit. The local change has already been
// rolled back when it is returned.
type MutationError struct {
	Kind string
	Key  string
	Err  error
}

func (e *MutationError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Kind, e.Key, e.Err)
}

func (e *MutationError) Unwrap() error { return e.Err }

var ErrNoCommit = errors.New("mutation has no commit")

// Mutation describes one optimistic change.
type Mutation[T any] struct {
	Kind string
	// Key identifies the record. Idempotent mutations are deduplicated by
	// Kind and Key.
	Key        string
	Idempotent bool
	// Label is used in notices; Kind is used when empty.
	Label string

	// Apply installs the local projection and returns how to undo it.
	Apply func() (rollback func())
	// Commit makes the single network call. It is never retried.
	Commit func(ctx context.Context) (T, error)
	// Confirm swaps the projection for the server's record.
	Confirm func(T)
}

func (m Mutation[T]) label() string {
	if m.Label != "" {
		return m.Label
	}
	return m.Kind
}

type Outcome[T any] struct {
	Status Status
	Record T
	// Err is a *MutationError when Status is RolledBack.
	Err error
	// Deduplicated is set when the submission was absorbed by an earlier
	// one with the same key.
	Deduplicated bool
}

type keyState int

const (
	keyPending keyState = iota + 1
	keyConfirmed
)

type Option func(*Coordinator)

func WithNotifier(n notify.Notifier) Option {
	return func(c *Coordinator) { c.notifier = n }
}

func WithLogger(l logging.Logger) Option {
	return func(c *Coordinator) { c.logger = l }
}

func WithRecorder(r metrics.Recorder) Option {
	return func(c *Coordinator) { c.metrics = r }
}

// Coordinator tracks idempotent keys and reports outcomes. It is safe for
// concurrent use.
type Coordinator struct {
	notifier notify.Notifier
	logger   logging.Logger
	metrics  metrics.Recorder

	mu   sync.Mutex
	keys map[string]keyState
	wg   sync.WaitGroup
}

func NewCoordinator(opts ...Option) *Coordinator {
	c := &Coordinator{
		notifier: notify.Discard{},
		logger:   logging.Nop(),
		metrics:  metrics.Nop{},
		keys:     make(map[string]keyState),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Wait blocks until every submitted commit has resolved.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

// Submit applies m locally, then commits it in the background. The local
// change is visible as soon as Submit returns.
func Submit[T any](ctx context.Context, c *Coordinator, m Mutation[T]) *Handle[T] {
	h := newHandle[T]()

	if m.Commit == nil {
		h.resolve(Outcome[T]{Status: RolledBack, Err: &MutationError{Kind: m.Kind, Key: m.Key, Err: ErrNoCommit}})
		return h
	}

	dedupe := m.Kind + "/" + m.Key
	if m.Idempotent {
		c.mu.Lock()
		if st := c.keys[dedupe]; st == keyPending || st == keyConfirmed {
			c.mu.Unlock()
			c.metrics.RecordMutation(m.Kind, "deduplicated")
			c.logger.Debug(ctx, "mutation deduplicated", "kind", m.Kind, "key", m.Key)
			h.resolve(Outcome[T]{Status: Confirmed, Deduplicated: true})
			return h
		}
		c.keys[dedupe] = keyPending
		c.mu.Unlock()
	}

	var rollback func()
	if m.Apply != nil {
		rollback = m.Apply()
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		rec, err := m.Commit(ctx)
		if err != nil {
			if rollback != nil {
				rollback()
			}
			c.settle(m.Idempotent, dedupe, false)

			merr := &MutationError{Kind: m.Kind, Key: m.Key, Err: err}
			c.metrics.RecordMutation(m.Kind, RolledBack.String())
			c.logger.Warn(ctx, "mutation rolled back", "kind", m.Kind, "key", m.Key, "error", err)
			c.notifier.Notify(ctx, notify.Notice{Level: notify.Failure, Message: m.label() + " failed", Err: err})
			h.resolve(Outcome[T]{Status: RolledBack, Err: merr})
			return
		}

		if m.Confirm != nil {
			m.Confirm(rec)
		}
		c.settle(m.Idempotent, dedupe, true)

		c.metrics.RecordMutation(m.Kind, Confirmed.String())
		c.logger.Debug(ctx, "mutation confirmed", "kind", m.Kind, "key", m.Key)
		c.notifier.Notify(ctx, notify.Notice{Level: notify.Success, Message: m.label() + " done"})
		h.resolve(Outcome[T]{Status: Confirmed, Record: rec})
	}()

	return h
}

func (c *Coordinator) settle(idempotent bool, key string, ok bool) {
	if !idempotent {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if ok {
		c.keys[key] = keyConfirmed
	} else {
		delete(c.keys, key)
	}
}

// Handle is the eventual outcome of a submission.
type Handle[T any] struct {
	done    chan struct{}
	outcome Outcome[T]
}

func newHandle[T any]() *Handle[T] {
	return &Handle[T]{done: make(chan struct{})}
}

func (h *Handle[T]) resolve(o Outcome[T]) {
	h.outcome = o
	close(h.done)
}

// Done is closed once the outcome is known.
func (h *Handle[T]) Done() <-chan struct{} {
	return h.done
}

// Wait returns the outcome, or ctx.Err() if ctx ends first. The mutation
// keeps going in the background either way.
func (h *Handle[T]) Wait(ctx context.Context) (Outcome[T], error) {
	select {
	case <-h.done:
		return h.outcome, nil
	case <-ctx.Done():
		return Outcome[T]{}, ctx.Err()
	}
}

// Err waits for the outcome and returns its error, if any.
func (h *Handle[T]) Err(ctx context.Context) error {
	o, err := h.Wait(ctx)
	if err != nil {
		return err
	}
	return o.Err
}
