package identity

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrijs2005/foodshare/internal/client/models"
	"github.com/dmitrijs2005/foodshare/internal/common"
)

const localIssuer = "foodshare-local"

type localAccount struct {
	id    string
	email string
	hash  []byte
}

// LocalProvider is an in-process password provider for offline
// development and tests. Accounts live in memory; ID tokens are HS256
// JWTs signed with the configured secret.
type LocalProvider struct {
	secret []byte
	ttl    time.Duration
	cost   int
	now    func() time.Time

	mu       sync.Mutex
	accounts map[string]*localAccount
	refresh  map[string]string
}

type LocalOption func(*LocalProvider)

func WithTokenTTL(d time.Duration) LocalOption {
	return func(p *LocalProvider) { p.ttl = d }
}

// WithBcryptCost overrides the hashing cost; tests use bcrypt.MinCost.
func WithBcryptCost(cost int) LocalOption {
	return func(p *LocalProvider) { p.cost = cost }
}

func WithLocalClock(now func() time.Time) LocalOption {
	return func(p *LocalProvider) { p.now = now }
}

func NewLocalProvider(secret []byte, opts ...LocalOption) *LocalProvider {
	p := &LocalProvider{
		secret:   secret,
		ttl:      time.Hour,
		cost:     bcrypt.DefaultCost,
		now:      time.Now,
		accounts: make(map[string]*localAccount),
		refresh:  make(map[string]string),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *LocalProvider) Name() string { return "password" }

func (p *LocalProvider) SignUp(_ context.Context, email, password string) (*Session, error) {
	key := models.NormalizeEmail(email)
	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.cost)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredentialFormat, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.accounts[key]; exists {
		return nil, ErrEmailInUse
	}
	acc := &localAccount{id: uuid.NewString(), email: key, hash: hash}
	p.accounts[key] = acc
	return p.issueLocked(acc)
}

func (p *LocalProvider) SignIn(_ context.Context, email, password string) (*Session, error) {
	p.mu.Lock()
	acc, ok := p.accounts[models.NormalizeEmail(email)]
	p.mu.Unlock()
	if !ok {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(acc.hash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.issueLocked(acc)
}

// Refresh rotates the refresh token.
func (p *LocalProvider) Refresh(_ context.Context, refreshToken string) (*Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	email, ok := p.refresh[refreshToken]
	if !ok {
		return nil, fmt.Errorf("%w: unknown refresh token", ErrInvalidCredentials)
	}
	delete(p.refresh, refreshToken)
	acc, ok := p.accounts[email]
	if !ok {
		return nil, fmt.Errorf("%w: account removed", ErrInvalidCredentials)
	}
	return p.issueLocked(acc)
}

func (p *LocalProvider) Revoke(_ context.Context, refreshToken string) error {
	p.mu.Lock()
	delete(p.refresh, refreshToken)
	p.mu.Unlock()
	return nil
}

func (p *LocalProvider) issueLocked(acc *localAccount) (*Session, error) {
	principal := models.Principal{
		ID:          acc.id,
		Email:       acc.email,
		DisplayName: strings.SplitN(acc.email, "@", 2)[0],
		Provider:    p.Name(),
	}
	idToken, exp, err := GenerateIDToken(principal, localIssuer, p.secret, p.now(), p.ttl)
	if err != nil {
		return nil, fmt.Errorf("%w: sign token: %v", ErrProvider, err)
	}
	rt, err := common.MakeRandHexString(32)
	if err != nil {
		return nil, fmt.Errorf("%w: refresh token: %v", ErrProvider, err)
	}
	p.refresh[rt] = acc.email

	return &Session{Principal: principal, IDToken: idToken, RefreshToken: rt, Expiry: exp}, nil
}
