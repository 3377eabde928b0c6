package identity

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/foodshare/internal/client/models"
)

type toolkitStub struct {
	t       *testing.T
	idToken string

	lastPath string
	lastKey  string
	lastBody map[string]any
	lastForm url.Values

	status  int
	errCode string
}

func (s *toolkitStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.lastPath = r.URL.Path
	s.lastKey = r.URL.Query().Get("key")
	raw, _ := io.ReadAll(r.Body)
	if r.Header.Get("Content-Type") == "application/json" {
		_ = json.Unmarshal(raw, &s.lastBody)
	} else {
		s.lastForm, _ = url.ParseQuery(string(raw))
	}

	w.Header().Set("Content-Type", "application/json")
	if s.status >= 400 {
		w.WriteHeader(s.status)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"code": s.status, "message": s.errCode},
		})
		return
	}
	if r.URL.Path == "/token" {
		_ = json.NewEncoder(w).Encode(map[string]string{
			"id_token": s.idToken, "refresh_token": "rt-new", "expires_in": "3600", "user_id": "u1",
		})
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]string{
		"idToken": s.idToken, "refreshToken": "rt-1", "expiresIn": "3600", "localId": "u1", "email": "e@x.io",
	})
}

func newREST(t *testing.T) (*toolkitStub, *RESTProvider) {
	t.Helper()
	tok, _, err := GenerateIDToken(models.Principal{ID: "u1", Email: "e@x.io", DisplayName: "Eve"}, "iss", []byte("k"), time.Now(), time.Hour)
	require.NoError(t, err)

	stub := &toolkitStub{t: t, idToken: tok}
	srv := httptest.NewServer(stub)
	t.Cleanup(srv.Close)

	p := NewRESTProvider("api-key", WithEndpoints(srv.URL+"/v1", srv.URL+"/token"))
	return stub, p
}

func TestRESTProvider_SignUp(t *testing.T) {
	stub, p := newREST(t)

	s, err := p.SignUp(context.Background(), "e@x.io", "Aa1234")
	require.NoError(t, err)
	require.Equal(t, "/v1/accounts:signUp", stub.lastPath)
	require.Equal(t, "api-key", stub.lastKey)
	require.Equal(t, true, stub.lastBody["returnSecureToken"])

	require.Equal(t, "u1", s.Principal.ID)
	require.Equal(t, "Eve", s.Principal.DisplayName)
	require.Equal(t, "password", s.Principal.Provider)
	require.Equal(t, "rt-1", s.RefreshToken)
	require.WithinDuration(t, time.Now().Add(time.Hour), s.Expiry, time.Minute)
}

func TestRESTProvider_SignInAndRefresh(t *testing.T) {
	stub, p := newREST(t)

	_, err := p.SignIn(context.Background(), "e@x.io", "Aa1234")
	require.NoError(t, err)
	require.Equal(t, "/v1/accounts:signInWithPassword", stub.lastPath)

	s, err := p.Refresh(context.Background(), "rt-1")
	require.NoError(t, err)
	require.Equal(t, "/token", stub.lastPath)
	require.Equal(t, "refresh_token", stub.lastForm.Get("grant_type"))
	require.Equal(t, "rt-1", stub.lastForm.Get("refresh_token"))
	require.Equal(t, "rt-new", s.RefreshToken)
}

func TestRESTProvider_ErrorCodes(t *testing.T) {
	cases := map[string]error{
		"EMAIL_EXISTS":                                            ErrEmailInUse,
		"WEAK_PASSWORD : Password should be at least 6 characters": ErrWeakPassword,
		"INVALID_EMAIL":                                           ErrInvalidCredentialFormat,
		"INVALID_LOGIN_CREDENTIALS":                               ErrInvalidCredentials,
		"EMAIL_NOT_FOUND":                                         ErrInvalidCredentials,
		"TOO_MANY_ATTEMPTS_TRY_LATER":                             ErrProvider,
	}
	for code, want := range cases {
		t.Run(code, func(t *testing.T) {
			stub, p := newREST(t)
			stub.status = http.StatusBadRequest
			stub.errCode = code

			_, err := p.SignIn(context.Background(), "e@x.io", "Aa1234")
			require.ErrorIs(t, err, want)
		})
	}
}

func TestRESTProvider_MissingIDToken(t *testing.T) {
	stub, p := newREST(t)
	stub.idToken = ""

	_, err := p.SignIn(context.Background(), "e@x.io", "Aa1234")
	require.ErrorIs(t, err, ErrProvider)
}
