package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	defaultAuthURL  = "https://identitytoolkit.googleapis.com/v1"
	defaultTokenURL = "https://securetoken.googleapis.com/v1/token"
)

// RESTProvider talks to an identity-toolkit style REST API
// (accounts:signUp, accounts:signInWithPassword, token refresh).
type RESTProvider struct {
	apiKey   string
	authURL  string
	tokenURL string
	client   *http.Client
	now      func() time.Time
}

type RESTOption func(*RESTProvider)

// WithEndpoints points the provider at an emulator or test server.
func WithEndpoints(authURL, tokenURL string) RESTOption {
	return func(p *RESTProvider) {
		p.authURL = strings.TrimRight(authURL, "/")
		p.tokenURL = tokenURL
	}
}

func WithRESTHTTPClient(c *http.Client) RESTOption {
	return func(p *RESTProvider) { p.client = c }
}

func NewRESTProvider(apiKey string, opts ...RESTOption) *RESTProvider {
	p := &RESTProvider{
		apiKey:   apiKey,
		authURL:  defaultAuthURL,
		tokenURL: defaultTokenURL,
		client:   &http.Client{Timeout: 15 * time.Second},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *RESTProvider) Name() string { return "password" }

type passwordRequest struct {
	Email             string `json:"email"`
	Password          string `json:"password"`
	ReturnSecureToken bool   `json:"returnSecureToken"`
}

type passwordResponse struct {
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    string `json:"expiresIn"`
	LocalID      string `json:"localId"`
	Email        string `json:"email"`
	DisplayName  string `json:"displayName"`
}

type refreshResponse struct {
	IDToken      string `json:"id_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    string `json:"expires_in"`
	UserID       string `json:"user_id"`
}

type restError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (p *RESTProvider) SignUp(ctx context.Context, email, password string) (*Session, error) {
	return p.passwordCall(ctx, "accounts:signUp", email, password)
}

func (p *RESTProvider) SignIn(ctx context.Context, email, password string) (*Session, error) {
	return p.passwordCall(ctx, "accounts:signInWithPassword", email, password)
}

func (p *RESTProvider) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)

	var res refreshResponse
	if err := p.post(ctx, p.tokenURL, "application/x-www-form-urlencoded", strings.NewReader(form.Encode()), &res); err != nil {
		return nil, err
	}
	return p.session(res.IDToken, res.RefreshToken, res.ExpiresIn, res.UserID, "", "")
}

func (p *RESTProvider) passwordCall(ctx context.Context, method, email, password string) (*Session, error) {
	body, err := json.Marshal(passwordRequest{Email: email, Password: password, ReturnSecureToken: true})
	if err != nil {
		return nil, err
	}
	var res passwordResponse
	if err := p.post(ctx, p.authURL+"/"+method, "application/json", bytes.NewReader(body), &res); err != nil {
		return nil, err
	}
	return p.session(res.IDToken, res.RefreshToken, res.ExpiresIn, res.LocalID, res.Email, res.DisplayName)
}

func (p *RESTProvider) session(idToken, refreshToken, expiresIn, id, email, name string) (*Session, error) {
	if idToken == "" {
		return nil, fmt.Errorf("%w: response without id token", ErrProvider)
	}
	claims, err := parseUnverified(idToken)
	if err != nil {
		return nil, err
	}

	principal := claims.principal(p.Name())
	if principal.ID == "" {
		principal.ID = id
	}
	if principal.Email == "" {
		principal.Email = email
	}
	if principal.DisplayName == "" {
		principal.DisplayName = name
	}

	expiry := p.now().Add(time.Hour)
	if secs, err := strconv.Atoi(expiresIn); err == nil {
		expiry = p.now().Add(time.Duration(secs) * time.Second)
	} else if claims.ExpiresAt != nil {
		expiry = claims.ExpiresAt.Time
	}

	return &Session{Principal: principal, IDToken: idToken, RefreshToken: refreshToken, Expiry: expiry}, nil
}

func (p *RESTProvider) post(ctx context.Context, endpoint, contentType string, body io.Reader, out any) error {
	u, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("%w: endpoint: %v", ErrProvider, err)
	}
	q := u.Query()
	q.Set("key", p.apiKey)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProvider, err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := p.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: %v", ErrProvider, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: read body: %v", ErrProvider, err)
	}

	if resp.StatusCode >= 400 {
		var re restError
		_ = json.Unmarshal(raw, &re)
		return mapRESTError(resp.StatusCode, re.Error.Message)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: decode: %v", ErrProvider, err)
	}
	return nil
}

// mapRESTError translates the provider's error codes. Messages look like
// "WEAK_PASSWORD : Password should be at least 6 characters".
func mapRESTError(status int, message string) error {
	code, _, _ := strings.Cut(message, " ")
	switch code {
	case "EMAIL_EXISTS":
		return ErrEmailInUse
	case "WEAK_PASSWORD":
		return ErrWeakPassword
	case "INVALID_EMAIL", "MISSING_EMAIL", "MISSING_PASSWORD":
		return fmt.Errorf("%w: %s", ErrInvalidCredentialFormat, code)
	case "INVALID_LOGIN_CREDENTIALS", "INVALID_PASSWORD", "EMAIL_NOT_FOUND",
		"USER_DISABLED", "USER_NOT_FOUND", "TOKEN_EXPIRED", "INVALID_REFRESH_TOKEN",
		"INVALID_ID_TOKEN":
		return fmt.Errorf("%w: %s", ErrInvalidCredentials, code)
	}
	if message == "" {
		message = http.StatusText(status)
	}
	return fmt.Errorf("%w: %s", ErrProvider, message)
}
