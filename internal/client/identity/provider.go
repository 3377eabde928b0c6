package identity

import (
	"context"
	"time"

	"github.com/dmitrijs2005/foodshare/internal/client/models"
)

// expirySkew refreshes tokens slightly before they actually expire.
const expirySkew = 30 * time.Second

// Session is a signed-in principal together with its credentials.
type Session struct {
	Principal    models.Principal
	IDToken      string
	RefreshToken string
	Expiry       time.Time
}

func (s *Session) expired(now time.Time) bool {
	return !s.Expiry.IsZero() && !now.Add(expirySkew).Before(s.Expiry)
}

// Refresher exchanges a refresh token for a new session.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (*Session, error)
}

// PasswordProvider authenticates with email and password.
type PasswordProvider interface {
	Name() string
	SignUp(ctx context.Context, email, password string) (*Session, error)
	SignIn(ctx context.Context, email, password string) (*Session, error)
	Refresher
}

// FederatedProvider authenticates through a third party, usually by
// opening a browser window.
type FederatedProvider interface {
	Name() string
	SignIn(ctx context.Context) (*Session, error)
	Refresher
}

// Revoker is implemented by providers that can invalidate a refresh token
// on sign-out.
type Revoker interface {
	Revoke(ctx context.Context, refreshToken string) error
}
