package identity

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/go-chi/chi/v5"
	"golang.org/x/oauth2"

	"github.com/dmitrijs2005/foodshare/internal/client/models"
	"github.com/dmitrijs2005/foodshare/internal/common"
	"github.com/dmitrijs2005/foodshare/internal/logging"
)

const callbackPath = "/callback"

// Opener shows url to the user, normally by launching a browser.
type Opener func(url string) error

type OIDCConfig struct {
	// Name is the hint callers pass to SignInFederated, e.g. "google".
	Name         string
	Issuer       string
	ClientID     string
	ClientSecret string
	Scopes       []string
	// ListenAddr is the loopback address for the redirect; port 0 picks
	// a free one.
	ListenAddr string
	Open       Opener
	Logger     logging.Logger
}

// OIDCProvider signs in with the authorization-code flow and PKCE. The
// redirect lands on a short-lived HTTP server bound to the loopback
// interface.
type OIDCProvider struct {
	name       string
	oauth      oauth2.Config
	verifier   *oidc.IDTokenVerifier
	open       Opener
	listenAddr string
	logger     logging.Logger
}

// NewOIDCProvider discovers the issuer's endpoints and keys.
func NewOIDCProvider(ctx context.Context, cfg OIDCConfig) (*OIDCProvider, error) {
	provider, err := oidc.NewProvider(ctx, cfg.Issuer)
	if err != nil {
		return nil, fmt.Errorf("%w: discover %s: %v", ErrProvider, cfg.Issuer, err)
	}
	verifier := provider.Verifier(&oidc.Config{ClientID: cfg.ClientID})
	return newOIDCProvider(cfg, provider.Endpoint(), verifier), nil
}

func newOIDCProvider(cfg OIDCConfig, endpoint oauth2.Endpoint, verifier *oidc.IDTokenVerifier) *OIDCProvider {
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{oidc.ScopeOpenID, "email", "profile"}
	}
	listen := cfg.ListenAddr
	if listen == "" {
		listen = "127.0.0.1:0"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	name := cfg.Name
	if name == "" {
		name = "oidc"
	}
	return &OIDCProvider{
		name: name,
		oauth: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     endpoint,
			Scopes:       scopes,
		},
		verifier:   verifier,
		open:       cfg.Open,
		listenAddr: listen,
		logger:     logger,
	}
}

func (p *OIDCProvider) Name() string { return p.name }

type callbackResult struct {
	code string
	err  error
}

// SignIn opens the consent page and waits for the redirect. A denied
// consent, or ctx ending before the redirect arrives, is ErrPopupClosed.
func (p *OIDCProvider) SignIn(ctx context.Context) (*Session, error) {
	if p.open == nil {
		return nil, fmt.Errorf("%w: no browser opener configured", ErrProvider)
	}

	ln, err := net.Listen("tcp", p.listenAddr)
	if err != nil {
		return nil, fmt.Errorf("%w: listen: %v", ErrProvider, err)
	}

	state, err := common.MakeRandHexString(16)
	if err != nil {
		_ = ln.Close()
		return nil, fmt.Errorf("%w: state: %v", ErrProvider, err)
	}
	pkce := oauth2.GenerateVerifier()

	conf := p.oauth
	conf.RedirectURL = "http://" + ln.Addr().String() + callbackPath

	results := make(chan callbackResult, 1)
	srv := &http.Server{
		Handler:           p.callbackRouter(state, results),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			p.logger.Warn(ctx, "oidc callback server", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	authURL := conf.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.S256ChallengeOption(pkce))
	if err := p.open(authURL); err != nil {
		return nil, fmt.Errorf("%w: open browser: %v", ErrProvider, err)
	}

	var res callbackResult
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", ErrPopupClosed, ctx.Err())
	case res = <-results:
	}
	if res.err != nil {
		return nil, res.err
	}

	tok, err := conf.Exchange(ctx, res.code, oauth2.VerifierOption(pkce))
	if err != nil {
		return nil, fmt.Errorf("%w: code exchange: %v", ErrProvider, err)
	}
	return p.sessionFromToken(ctx, tok)
}

func (p *OIDCProvider) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	src := p.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && re.ErrorCode == "invalid_grant" {
			return nil, fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
		}
		return nil, fmt.Errorf("%w: refresh: %v", ErrProvider, err)
	}
	if tok.RefreshToken == "" {
		tok.RefreshToken = refreshToken
	}
	return p.sessionFromToken(ctx, tok)
}

func (p *OIDCProvider) callbackRouter(state string, results chan<- callbackResult) http.Handler {
	r := chi.NewRouter()
	r.Get(callbackPath, func(w http.ResponseWriter, req *http.Request) {
		q := req.URL.Query()
		var res callbackResult
		switch {
		case q.Get("state") != state:
			http.Error(w, "state mismatch", http.StatusBadRequest)
			return
		case q.Get("error") != "":
			res.err = fmt.Errorf("%w: %s", ErrPopupClosed, q.Get("error"))
		case q.Get("code") == "":
			res.err = fmt.Errorf("%w: callback without code", ErrProvider)
		default:
			res.code = q.Get("code")
		}

		select {
		case results <- res:
		default:
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if res.err != nil {
			_, _ = io.WriteString(w, "Sign-in was not completed. You can close this window.\n")
			return
		}
		_, _ = io.WriteString(w, "Signed in to FoodShare. You can close this window.\n")
	})
	return r
}

func (p *OIDCProvider) sessionFromToken(ctx context.Context, tok *oauth2.Token) (*Session, error) {
	raw, ok := tok.Extra("id_token").(string)
	if !ok || raw == "" {
		return nil, fmt.Errorf("%w: token response without id_token", ErrProvider)
	}
	idt, err := p.verifier.Verify(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("%w: verify id token: %v", ErrProvider, err)
	}

	var claims struct {
		Email   string `json:"email"`
		Name    string `json:"name"`
		Picture string `json:"picture"`
	}
	if err := idt.Claims(&claims); err != nil {
		return nil, fmt.Errorf("%w: id token claims: %v", ErrProvider, err)
	}

	return &Session{
		Principal: models.Principal{
			ID:          idt.Subject,
			Email:       claims.Email,
			DisplayName: claims.Name,
			PhotoURL:    claims.Picture,
			Provider:    p.name,
		},
		IDToken:      raw,
		RefreshToken: tok.RefreshToken,
		Expiry:       idt.Expiry,
	}, nil
}
