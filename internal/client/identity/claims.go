package identity

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dmitrijs2005/foodshare/internal/client/models"
)

// IDClaims are the ID token claims the client reads.
type IDClaims struct {
	jwt.RegisteredClaims
	Email   string `json:"email,omitempty"`
	Name    string `json:"name,omitempty"`
	Picture string `json:"picture,omitempty"`
}

func (c *IDClaims) principal(provider string) models.Principal {
	return models.Principal{
		ID:          c.Subject,
		Email:       c.Email,
		DisplayName: c.Name,
		PhotoURL:    c.Picture,
		Provider:    provider,
	}
}

// GenerateIDToken signs an HS256 ID token for p valid for ttl.
func GenerateIDToken(p models.Principal, issuer string, secret []byte, now time.Time, ttl time.Duration) (string, time.Time, error) {
	exp := now.Add(ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, IDClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   p.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Email:   p.Email,
		Name:    p.DisplayName,
		Picture: p.PhotoURL,
	})

	s, err := token.SignedString(secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return s, exp, nil
}

// parseUnverified reads the claims of a token issued by a remote provider.
// Signature checks are the backend's job; the client only needs the
// subject, profile fields and expiry.
func parseUnverified(raw string) (*IDClaims, error) {
	claims := &IDClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return nil, fmt.Errorf("%w: id token: %v", ErrProvider, err)
	}
	return claims, nil
}
