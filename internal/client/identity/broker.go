package identity

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/foodshare/internal/client/models"
	"github.com/dmitrijs2005/foodshare/internal/common"
	"github.com/dmitrijs2005/foodshare/internal/logging"
	"github.com/dmitrijs2005/foodshare/internal/pubsub"
)

// Broker owns the current principal and its credentials. It is safe for
// concurrent use.
type Broker struct {
	password  PasswordProvider
	federated map[string]FederatedProvider
	store     SessionStore
	logger    logging.Logger
	now       func() time.Time

	// refreshMu serializes token refreshes so concurrent callers share one.
	refreshMu sync.Mutex

	mu       sync.Mutex
	session  *Session
	provider string
	hub      pubsub.Hub[*models.Principal]
}

type Option func(*Broker)

func WithFederated(p FederatedProvider) Option {
	return func(b *Broker) { b.federated[p.Name()] = p }
}

func WithSessionStore(s SessionStore) Option {
	return func(b *Broker) { b.store = s }
}

func WithLogger(l logging.Logger) Option {
	return func(b *Broker) { b.logger = l }
}

func WithClock(now func() time.Time) Option {
	return func(b *Broker) { b.now = now }
}

func NewBroker(password PasswordProvider, opts ...Option) *Broker {
	b := &Broker{
		password:  password,
		federated: make(map[string]FederatedProvider),
		logger:    logging.Nop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// SignUp creates an account and signs it in. Format and strength checks
// run locally before the provider is contacted.
func (b *Broker) SignUp(ctx context.Context, email, password string) (*models.Principal, error) {
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := ValidatePassword(password); err != nil {
		return nil, err
	}
	sess, err := b.password.SignUp(ctx, normalizeInput(email), password)
	if err != nil {
		return nil, err
	}
	return b.establish(ctx, b.password.Name(), sess), nil
}

func (b *Broker) SignIn(ctx context.Context, email, password string) (*models.Principal, error) {
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	if password == "" {
		return nil, ErrInvalidCredentials
	}
	sess, err := b.password.SignIn(ctx, normalizeInput(email), password)
	if err != nil {
		return nil, err
	}
	return b.establish(ctx, b.password.Name(), sess), nil
}

// SignInFederated signs in through the provider registered under hint.
func (b *Broker) SignInFederated(ctx context.Context, hint string) (*models.Principal, error) {
	p, ok := b.federated[hint]
	if !ok {
		return nil, fmt.Errorf("%w: no provider %q", ErrProvider, hint)
	}
	sess, err := p.SignIn(ctx)
	if err != nil {
		return nil, err
	}
	return b.establish(ctx, p.Name(), sess), nil
}

// Providers lists the registered federated provider names.
func (b *Broker) Providers() []string {
	out := make([]string, 0, len(b.federated))
	for name := range b.federated {
		out = append(out, name)
	}
	return out
}

// SignOut forgets the local session unconditionally. Failures to clear the
// store or revoke remotely are logged only.
func (b *Broker) SignOut(ctx context.Context) {
	b.mu.Lock()
	prev, provider := b.session, b.provider
	b.session, b.provider = nil, ""
	if prev != nil {
		b.publishLocked(nil)
	}
	b.mu.Unlock()

	if b.store != nil {
		if err := b.store.Clear(ctx); err != nil {
			b.logger.Warn(ctx, "clear stored session", "error", err)
		}
	}
	if prev == nil || prev.RefreshToken == "" {
		return
	}
	if r, ok := b.refresherFor(provider).(Revoker); ok {
		if err := r.Revoke(ctx, prev.RefreshToken); err != nil {
			b.logger.Warn(ctx, "revoke refresh token", "provider", provider, "error", err)
		}
	}
}

// Current returns a copy of the signed-in principal, or nil.
func (b *Broker) Current() *models.Principal {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.session == nil {
		return nil
	}
	p := b.session.Principal
	return &p
}

// ObservePrincipal subscribes to principal changes. The current state is
// delivered first.
func (b *Broker) ObservePrincipal() *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.hub.Subscribe(b.currentLocked())
}

// Token returns a valid ID token, refreshing it when it has expired.
func (b *Broker) Token(ctx context.Context) (string, error) {
	b.refreshMu.Lock()
	defer b.refreshMu.Unlock()

	b.mu.Lock()
	sess, provider := b.session, b.provider
	b.mu.Unlock()

	if sess == nil {
		return "", common.ErrNotSignedIn
	}
	if !sess.expired(b.now()) {
		return sess.IDToken, nil
	}
	if sess.RefreshToken == "" {
		return "", fmt.Errorf("%w: token expired", ErrInvalidCredentials)
	}

	r := b.refresherFor(provider)
	if r == nil {
		return "", fmt.Errorf("%w: no provider %q", ErrProvider, provider)
	}
	fresh, err := r.Refresh(ctx, sess.RefreshToken)
	if err != nil {
		return "", fmt.Errorf("refresh token: %w", err)
	}

	b.mu.Lock()
	// a sign-out or sign-in while refreshing wins
	if b.session != sess {
		b.mu.Unlock()
		return "", common.ErrNotSignedIn
	}
	fresh.Principal = mergePrincipal(sess.Principal, fresh.Principal, provider)
	b.session = fresh
	b.mu.Unlock()

	b.persist(ctx, provider, fresh)
	return fresh.IDToken, nil
}

// Restore reloads a persisted session, refreshes it and publishes the
// principal. It returns nil, nil when nothing is stored. A stored session
// rejected by the provider is discarded.
func (b *Broker) Restore(ctx context.Context) (*models.Principal, error) {
	if b.store == nil {
		return nil, nil
	}
	st, err := b.store.Load(ctx)
	if err != nil {
		b.logger.Warn(ctx, "load stored session", "error", err)
		_ = b.store.Clear(ctx)
		return nil, nil
	}
	if st == nil || st.RefreshToken == "" {
		return nil, nil
	}

	r := b.refresherFor(st.Provider)
	if r == nil {
		_ = b.store.Clear(ctx)
		return nil, fmt.Errorf("%w: no provider %q", ErrProvider, st.Provider)
	}
	sess, err := r.Refresh(ctx, st.RefreshToken)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			_ = b.store.Clear(ctx)
		}
		return nil, fmt.Errorf("restore session: %w", err)
	}
	sess.Principal = mergePrincipal(st.Principal, sess.Principal, st.Provider)
	return b.establish(ctx, st.Provider, sess), nil
}

func (b *Broker) establish(ctx context.Context, provider string, sess *Session) *models.Principal {
	if sess.Principal.Provider == "" {
		sess.Principal.Provider = provider
	}

	b.mu.Lock()
	var prev *models.Principal
	if b.session != nil {
		prev = &b.session.Principal
	}
	b.session, b.provider = sess, provider
	if !prev.SameIdentity(&sess.Principal) {
		b.publishLocked(b.currentLocked())
	}
	p := sess.Principal
	b.mu.Unlock()

	b.persist(ctx, provider, sess)
	b.logger.Info(ctx, "signed in", "email", p.Email, "provider", provider)
	return &p
}

func (b *Broker) persist(ctx context.Context, provider string, sess *Session) {
	if b.store == nil || sess.RefreshToken == "" {
		return
	}
	st := StoredSession{Provider: provider, RefreshToken: sess.RefreshToken, Principal: sess.Principal}
	if err := b.store.Save(ctx, st); err != nil {
		b.logger.Warn(ctx, "persist session", "error", err)
	}
}

func (b *Broker) refresherFor(provider string) Refresher {
	if b.password != nil && provider == b.password.Name() {
		return b.password
	}
	if p, ok := b.federated[provider]; ok {
		return p
	}
	return nil
}

func (b *Broker) currentLocked() *models.Principal {
	if b.session == nil {
		return nil
	}
	p := b.session.Principal
	return &p
}

// publishLocked must run under b.mu so every subscriber sees changes in
// the order they were applied.
func (b *Broker) publishLocked(p *models.Principal) {
	b.hub.Publish(p)
}

// mergePrincipal keeps fields a refresh response may omit.
func mergePrincipal(old, fresh models.Principal, provider string) models.Principal {
	if fresh.ID == "" {
		fresh.ID = old.ID
	}
	if fresh.Email == "" {
		fresh.Email = old.Email
	}
	if fresh.DisplayName == "" {
		fresh.DisplayName = old.DisplayName
	}
	if fresh.PhotoURL == "" {
		fresh.PhotoURL = old.PhotoURL
	}
	if fresh.Provider == "" {
		fresh.Provider = provider
	}
	return fresh
}

func normalizeInput(email string) string {
	return models.NormalizeEmail(email)
}
