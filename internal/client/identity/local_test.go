package identity

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newLocal(now func() time.Time) *LocalProvider {
	opts := []LocalOption{WithBcryptCost(bcrypt.MinCost)}
	if now != nil {
		opts = append(opts, WithLocalClock(now))
	}
	return NewLocalProvider([]byte("test-secret"), opts...)
}

func TestLocalProvider_SignUpSignIn(t *testing.T) {
	p := newLocal(nil)
	ctx := context.Background()

	s, err := p.SignUp(ctx, "Bob@X.io", "Aa1234")
	require.NoError(t, err)
	require.Equal(t, "bob@x.io", s.Principal.Email)
	require.Equal(t, "bob", s.Principal.DisplayName)
	require.NotEmpty(t, s.RefreshToken)

	_, err = p.SignUp(ctx, "bob@x.io", "Bb1234")
	require.ErrorIs(t, err, ErrEmailInUse)

	_, err = p.SignIn(ctx, "bob@x.io", "wrong")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = p.SignIn(ctx, "nobody@x.io", "Aa1234")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	again, err := p.SignIn(ctx, "BOB@x.io", "Aa1234")
	require.NoError(t, err)
	require.Equal(t, s.Principal.ID, again.Principal.ID)
}

func TestLocalProvider_TokenClaims(t *testing.T) {
	now := time.Now().Truncate(time.Second)
	p := newLocal(func() time.Time { return now })

	s, err := p.SignUp(context.Background(), "c@x.io", "Aa1234")
	require.NoError(t, err)
	require.Equal(t, now.Add(time.Hour), s.Expiry)

	claims := &IDClaims{}
	_, err = jwt.ParseWithClaims(s.IDToken, claims, func(*jwt.Token) (any, error) {
		return []byte("test-secret"), nil
	})
	require.NoError(t, err)
	require.Equal(t, s.Principal.ID, claims.Subject)
	require.Equal(t, "c@x.io", claims.Email)
	require.Equal(t, localIssuer, claims.Issuer)
}

func TestLocalProvider_RefreshRotatesAndRevoke(t *testing.T) {
	p := newLocal(nil)
	ctx := context.Background()

	s, err := p.SignUp(ctx, "d@x.io", "Aa1234")
	require.NoError(t, err)

	r, err := p.Refresh(ctx, s.RefreshToken)
	require.NoError(t, err)
	require.NotEqual(t, s.RefreshToken, r.RefreshToken)

	_, err = p.Refresh(ctx, s.RefreshToken)
	require.ErrorIs(t, err, ErrInvalidCredentials)

	require.NoError(t, p.Revoke(ctx, r.RefreshToken))
	_, err = p.Refresh(ctx, r.RefreshToken)
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestParseUnverified(t *testing.T) {
	now := time.Now()
	tok, _, err := GenerateIDToken(aliceSession(now).Principal, "iss", []byte("k"), now, time.Hour)
	require.NoError(t, err)

	claims, err := parseUnverified(tok)
	require.NoError(t, err)
	require.Equal(t, "u-alice", claims.Subject)
	require.Equal(t, "Alice", claims.Name)

	_, err = parseUnverified("garbage")
	require.ErrorIs(t, err, ErrProvider)
}
