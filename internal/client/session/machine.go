// Package session turns the stream of signed-in principals into gating
// facts. Machine resolves each principal's profile with bounded retries,
// discards results that belong to a superseded principal, and is the only
// writer of the cached profile.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/foodshare/internal/client/gateway"
	"github.com/dmitrijs2005/foodshare/internal/client/models"
	"github.com/dmitrijs2005/foodshare/internal/common"
	"github.com/dmitrijs2005/foodshare/internal/logging"
	"github.com/dmitrijs2005/foodshare/internal/metrics"
	"github.com/dmitrijs2005/foodshare/internal/pubsub"
	"github.com/dmitrijs2005/foodshare/internal/retry"
)

const (
	DefaultMaxAttempts = 3
	DefaultBackoff     = time.Second
)

// ErrNotReady is returned by Refresh when there is no resolved profile to
// refresh.
var ErrNotReady = errors.New("session not ready")

// ProfileFetcher loads a user profile by email.
type ProfileFetcher interface {
	FetchProfile(ctx context.Context, email string) (*models.UserProfile, error)
}

type Option func(*Machine)

func WithPostLimit(n int) Option {
	return func(m *Machine) { m.limit = n }
}

func WithRetryPolicy(p retry.Policy) Option {
	return func(m *Machine) { m.policy = p }
}

// WithTransient overrides which fetch errors are retried.
func WithTransient(c retry.Classifier) Option {
	return func(m *Machine) { m.transient = c }
}

func WithLogger(l logging.Logger) Option {
	return func(m *Machine) { m.logger = l }
}

func WithRecorder(r metrics.Recorder) Option {
	return func(m *Machine) { m.metrics = r }
}

// Machine is safe for concurrent use.
type Machine struct {
	fetcher   ProfileFetcher
	policy    retry.Policy
	transient retry.Classifier
	limit     int
	logger    logging.Logger
	metrics   metrics.Recorder

	mu      sync.Mutex
	snap    Snapshot
	gen     uint64
	cancel  context.CancelFunc
	changed chan struct{}
	hub     pubsub.Hub[Snapshot]
	// posts reserved locally and not yet settled; Refresh re-applies them
	// on top of the backend count.
	pending int
}

func NewMachine(fetcher ProfileFetcher, opts ...Option) *Machine {
	m := &Machine{
		fetcher:   fetcher,
		policy:    retry.Constant(DefaultMaxAttempts, DefaultBackoff),
		transient: gateway.IsTransient,
		limit:     common.DefaultPostLimit,
		logger:    logging.Nop(),
		metrics:   metrics.Nop{},
		changed:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.snap = Snapshot{Phase: Unresolved, PostLimit: m.limit}
	return m
}

// Snapshot returns the current state.
func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap
}

// Watch subscribes to state changes, starting with the current state.
func (m *Machine) Watch() *pubsub.Subscription[Snapshot] {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hub.Subscribe(m.snap)
}

// Await blocks until the phase is Ready or ResolutionFailed.
func (m *Machine) Await(ctx context.Context) (Snapshot, error) {
	for {
		m.mu.Lock()
		snap, ch := m.snap, m.changed
		m.mu.Unlock()

		if snap.Phase.Settled() {
			return snap, nil
		}
		select {
		case <-ctx.Done():
			return snap, ctx.Err()
		case <-ch:
		}
	}
}

// Run feeds principals from events into the machine until ctx ends or
// events is closed. Events are applied strictly in arrival order.
func (m *Machine) Run(ctx context.Context, events <-chan *models.Principal) {
	defer m.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case p, ok := <-events:
			if !ok {
				return
			}
			m.HandlePrincipal(p)
		}
	}
}

// Stop cancels any resolution in flight and discards its result. An
// interrupted resolution falls back to Unresolved so the same principal
// can be resolved again later.
func (m *Machine) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.supersedeLocked()
	if m.snap.Phase == Resolving {
		m.setLocked(Snapshot{Phase: Unresolved, Principal: m.snap.Principal, PostLimit: m.limit})
	}
}

// HandlePrincipal applies one principal event. nil means signed out.
func (m *Machine) HandlePrincipal(p *models.Principal) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur := m.snap
	if p == nil {
		if cur.Phase == Ready && cur.Principal == nil {
			return
		}
		m.supersedeLocked()
		m.setLocked(Snapshot{Phase: Ready, PostLimit: m.limit})
		return
	}

	if cur.Principal.SameIdentity(p) && cur.Phase != Unresolved {
		return
	}

	m.supersedeLocked()
	principal := *p
	m.setLocked(Snapshot{Phase: Resolving, Principal: &principal, PostLimit: m.limit})

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	go m.resolve(ctx, m.gen, principal)
}

// Refresh reloads the profile of the current principal without leaving
// Ready. It fails with ErrNotReady unless a profile is resolved.
func (m *Machine) Refresh(ctx context.Context) (Snapshot, error) {
	m.mu.Lock()
	snap, gen := m.snap, m.gen
	m.mu.Unlock()

	if snap.Phase != Ready || snap.Principal == nil {
		return snap, ErrNotReady
	}

	profile, attempts, err := m.fetch(ctx, gen, snap.Principal.Email, false)
	if err != nil {
		return m.Snapshot(), &ProfileFetchError{Email: snap.Principal.Email, Attempts: attempts, Err: err}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gen != gen {
		return m.snap, fmt.Errorf("refresh: %w", context.Canceled)
	}
	fresh := *profile
	fresh.PostCount += m.pending
	next := m.snap
	next.Profile = &fresh
	next.Attempt = attempts
	m.setLocked(next)
	return m.snap, nil
}

// PostReservation is one optimistic post counted against the quota.
// Exactly one of Commit or Cancel takes effect.
type PostReservation struct {
	m    *Machine
	gen  uint64
	once sync.Once
}

// ReservePost checks the listing quota of email and counts one more post
// in a single step, so concurrent callers cannot overshoot the limit.
// It fails with common.ErrGatingViolation when a post is not allowed.
func (m *Machine) ReservePost(email string) (*PostReservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := m.snap
	if snap.Phase != Ready || snap.Profile == nil || !models.SameEmail(snap.Profile.Email, email) {
		return nil, fmt.Errorf("%w: %w", common.ErrGatingViolation, ErrNotReady)
	}
	if !snap.CanCreateListing() {
		return nil, fmt.Errorf("%w: post limit of %d reached", common.ErrGatingViolation, snap.PostLimit)
	}

	profile := *snap.Profile
	profile.PostCount++
	next := snap
	next.Profile = &profile
	m.pending++
	m.setLocked(next)
	return &PostReservation{m: m, gen: m.gen}, nil
}

// Commit keeps the post; the backend count now includes it.
func (r *PostReservation) Commit() {
	r.once.Do(func() { r.m.settle(r.gen, false) })
}

// Cancel gives the post back.
func (r *PostReservation) Cancel() {
	r.once.Do(func() { r.m.settle(r.gen, true) })
}

func (m *Machine) settle(gen uint64, undo bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if gen != m.gen {
		return
	}
	m.pending = max(0, m.pending-1)
	if !undo || m.snap.Profile == nil {
		return
	}
	profile := *m.snap.Profile
	profile.PostCount = max(0, profile.PostCount-1)
	next := m.snap
	next.Profile = &profile
	m.setLocked(next)
}

// AdjustPostCount adds delta to the cached post count of email. It is a
// no-op returning false unless email owns the current resolved profile.
func (m *Machine) AdjustPostCount(email string, delta int) bool {
	return m.updateProfile(email, func(p *models.UserProfile) {
		p.PostCount = max(0, p.PostCount+delta)
	})
}

// ApplyMembership records a confirmed membership change for email.
func (m *Machine) ApplyMembership(email string, active bool) bool {
	return m.updateProfile(email, func(p *models.UserProfile) {
		p.MembershipActive = active
	})
}

func (m *Machine) updateProfile(email string, fn func(*models.UserProfile)) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.snap.Phase != Ready || m.snap.Profile == nil || !models.SameEmail(m.snap.Profile.Email, email) {
		return false
	}
	profile := *m.snap.Profile
	fn(&profile)

	next := m.snap
	next.Profile = &profile
	m.setLocked(next)
	return true
}

func (m *Machine) resolve(ctx context.Context, gen uint64, p models.Principal) {
	profile, attempts, err := m.fetch(ctx, gen, p.Email, true)

	m.mu.Lock()
	defer m.mu.Unlock()

	if gen != m.gen {
		m.logger.Debug(ctx, "discarding stale profile result", "email", p.Email)
		return
	}
	m.cancel = nil

	next := Snapshot{Principal: m.snap.Principal, Attempt: attempts, PostLimit: m.limit}
	if err != nil {
		next.Phase = ResolutionFailed
		next.Err = &ProfileFetchError{Email: p.Email, Attempts: attempts, Err: err}
		m.logger.Warn(ctx, "profile resolution failed", "email", p.Email, "attempts", attempts, "error", err)
	} else {
		next.Phase = Ready
		next.Profile = profile
	}
	m.setLocked(next)
}

// fetch runs the retry policy. When track is set each attempt is recorded
// on the snapshot while gen is still current.
func (m *Machine) fetch(ctx context.Context, gen uint64, email string, track bool) (*models.UserProfile, int, error) {
	var (
		profile  *models.UserProfile
		attempts int
	)
	err := m.policy.Do(ctx, m.transient, func(ctx context.Context, attempt int) error {
		attempts = attempt
		if track {
			m.markAttempt(gen, attempt)
		}

		p, err := m.fetcher.FetchProfile(ctx, email)
		if err == nil && p == nil {
			err = fmt.Errorf("profile %s: %w", email, gateway.ErrNotFound)
		}
		switch {
		case err == nil:
			m.metrics.RecordProfileFetch("success")
		case m.transient(err):
			m.metrics.RecordProfileFetch("retry")
			m.logger.Debug(ctx, "profile fetch failed, will retry", "email", email, "attempt", attempt, "error", err)
		default:
			m.metrics.RecordProfileFetch("failure")
		}
		if err != nil {
			return err
		}
		profile = p
		return nil
	})
	return profile, attempts, err
}

func (m *Machine) markAttempt(gen uint64, attempt int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.gen || m.snap.Phase != Resolving {
		return
	}
	next := m.snap
	next.Attempt = attempt
	m.setLocked(next)
}

func (m *Machine) supersedeLocked() {
	m.gen++
	m.pending = 0
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
}

func (m *Machine) setLocked(next Snapshot) {
	prev := m.snap.Phase
	m.snap = next
	if prev != next.Phase {
		m.metrics.RecordSessionTransition(next.Phase.String())
		m.logger.Info(context.Background(), "session phase changed", "from", prev.String(), "to", next.Phase.String())
	}
	close(m.changed)
	m.changed = make(chan struct{})
	m.hub.Publish(next)
}
