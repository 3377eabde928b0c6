package identity

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

const (
	testIssuer   = "https://issuer.example"
	testClientID = "foodshare-cli"
)

type oidcStub struct {
	key *rsa.PrivateKey

	lastVerifier string
	lastGrant    string
	tokenStatus  int
}

func (s *oidcStub) idToken(t *testing.T, sub string) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"iss":     testIssuer,
		"aud":     testClientID,
		"sub":     sub,
		"iat":     time.Now().Unix(),
		"exp":     time.Now().Add(time.Hour).Unix(),
		"email":   "fed@x.io",
		"name":    "Fed User",
		"picture": "http://img/fed.png",
	})
	raw, err := tok.SignedString(s.key)
	require.NoError(t, err)
	return raw
}

func newOIDCTest(t *testing.T, open Opener) (*oidcStub, *OIDCProvider) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	stub := &oidcStub{key: key}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		stub.lastVerifier = r.PostForm.Get("code_verifier")
		stub.lastGrant = r.PostForm.Get("grant_type")
		if stub.tokenStatus != 0 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(stub.tokenStatus)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "invalid_grant"})
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "at",
			"token_type":    "Bearer",
			"expires_in":    3600,
			"refresh_token": "fed-rt",
			"id_token":      stub.idToken(t, "fed-1"),
		})
	}))
	t.Cleanup(srv.Close)

	verifier := oidc.NewVerifier(testIssuer, &oidc.StaticKeySet{PublicKeys: []crypto.PublicKey{&key.PublicKey}}, &oidc.Config{ClientID: testClientID})
	endpoint := oauth2.Endpoint{AuthURL: srv.URL + "/authorize", TokenURL: srv.URL + "/token", AuthStyle: oauth2.AuthStyleInParams}

	p := newOIDCProvider(OIDCConfig{Name: "google", ClientID: testClientID, Open: open}, endpoint, verifier)
	return stub, p
}

// browser returns an opener that follows the consent URL straight to the
// loopback redirect with the given query.
func browser(t *testing.T, extra url.Values) Opener {
	return func(authURL string) error {
		u, err := url.Parse(authURL)
		if err != nil {
			return err
		}
		q := u.Query()
		require.Equal(t, "S256", q.Get("code_challenge_method"))
		require.NotEmpty(t, q.Get("code_challenge"))

		cb, err := url.Parse(q.Get("redirect_uri"))
		if err != nil {
			return err
		}
		cbq := url.Values{"state": {q.Get("state")}}
		for k, v := range extra {
			cbq[k] = v
		}
		cb.RawQuery = cbq.Encode()

		go func() {
			resp, err := http.Get(cb.String())
			if err == nil {
				_ = resp.Body.Close()
			}
		}()
		return nil
	}
}

func TestOIDCProvider_SignIn(t *testing.T) {
	stub, p := newOIDCTest(t, browser(t, url.Values{"code": {"abc"}}))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s, err := p.SignIn(ctx)
	require.NoError(t, err)
	require.Equal(t, "fed-1", s.Principal.ID)
	require.Equal(t, "fed@x.io", s.Principal.Email)
	require.Equal(t, "Fed User", s.Principal.DisplayName)
	require.Equal(t, "google", s.Principal.Provider)
	require.Equal(t, "fed-rt", s.RefreshToken)
	require.NotEmpty(t, stub.lastVerifier)
	require.Equal(t, "authorization_code", stub.lastGrant)
}

func TestOIDCProvider_ConsentDenied(t *testing.T) {
	_, p := newOIDCTest(t, browser(t, url.Values{"error": {"access_denied"}}))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := p.SignIn(ctx)
	require.ErrorIs(t, err, ErrPopupClosed)
}

func TestOIDCProvider_AbandonedFlow(t *testing.T) {
	_, p := newOIDCTest(t, func(string) error { return nil })

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := p.SignIn(ctx)
	require.ErrorIs(t, err, ErrPopupClosed)
}

func TestOIDCProvider_Refresh(t *testing.T) {
	stub, p := newOIDCTest(t, nil)

	s, err := p.Refresh(context.Background(), "old-rt")
	require.NoError(t, err)
	require.Equal(t, "refresh_token", stub.lastGrant)
	require.Equal(t, "fed-rt", s.RefreshToken)

	stub.tokenStatus = http.StatusBadRequest
	_, err = p.Refresh(context.Background(), "old-rt")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestOIDCProvider_NoOpener(t *testing.T) {
	_, p := newOIDCTest(t, nil)
	_, err := p.SignIn(context.Background())
	require.ErrorIs(t, err, ErrProvider)
}
