package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/dmitrijs2005/foodshare/internal/client/models"
	"github.com/dmitrijs2005/foodshare/internal/common"
	"github.com/dmitrijs2005/foodshare/internal/logging"
	"github.com/dmitrijs2005/foodshare/internal/metrics"
)

const maxResponseBytes = 4 << 20

type authMode int

const (
	authNone authMode = iota
	// authOptional attaches a token when one is available.
	authOptional
	authRequired
)

// HTTPGateway talks to the backend's REST API. It is safe for concurrent
// use.
type HTTPGateway struct {
	baseURL *url.URL
	client  *http.Client
	tokens  TokenSource
	limiter *rate.Limiter
	metrics metrics.Recorder
	logger  logging.Logger
}

type Option func(*HTTPGateway)

func WithHTTPClient(c *http.Client) Option {
	return func(g *HTTPGateway) { g.client = c }
}

func WithTokenSource(ts TokenSource) Option {
	return func(g *HTTPGateway) { g.tokens = ts }
}

// WithRateLimit paces outbound requests. A zero limit disables pacing.
func WithRateLimit(limit rate.Limit, burst int) Option {
	return func(g *HTTPGateway) {
		if limit <= 0 {
			g.limiter = nil
			return
		}
		g.limiter = rate.NewLimiter(limit, max(burst, 1))
	}
}

func WithRecorder(r metrics.Recorder) Option {
	return func(g *HTTPGateway) { g.metrics = r }
}

func WithLogger(l logging.Logger) Option {
	return func(g *HTTPGateway) { g.logger = l }
}

// NewHTTPGateway returns a gateway rooted at baseURL.
func NewHTTPGateway(baseURL string, opts ...Option) (*HTTPGateway, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base url %q: scheme must be http or https", baseURL)
	}

	g := &HTTPGateway{
		baseURL: u,
		client:  &http.Client{Timeout: 15 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(10), 20),
		metrics: metrics.Nop{},
		logger:  logging.Nop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

func (g *HTTPGateway) Ping(ctx context.Context) error {
	return g.do(ctx, http.MethodGet, "/", nil, authNone, nil, nil)
}

func (g *HTTPGateway) FetchProfile(ctx context.Context, email string) (*models.UserProfile, error) {
	var user *userDTO
	if err := g.do(ctx, http.MethodGet, "/users/"+url.PathEscape(email), nil, authOptional, nil, &user); err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("profile %s: %w", email, ErrNotFound)
	}

	var count countDTO
	if err := g.do(ctx, http.MethodGet, "/food/count/"+url.PathEscape(email), nil, authOptional, nil, &count); err != nil {
		return nil, err
	}

	return &models.UserProfile{
		Email:            user.Email,
		Name:             user.Name,
		AvatarURL:        user.PhotoURL,
		MembershipActive: strings.EqualFold(user.Membership, membershipYes),
		PostCount:        count.Count,
	}, nil
}

func (g *HTTPGateway) CreateProfile(ctx context.Context, p models.UserProfile) error {
	body := userDTO{
		Email:      p.Email,
		Name:       p.Name,
		PhotoURL:   p.AvatarURL,
		Membership: membershipNo,
		Post:       0,
	}
	return g.do(ctx, http.MethodPost, "/users", nil, authNone, body, nil)
}

func (g *HTTPGateway) ActivateMembership(ctx context.Context, email string) error {
	body := membershipDTO{Membership: membershipYes}
	return g.do(ctx, http.MethodPatch, "/users/membership/"+url.PathEscape(email), nil, authOptional, body, nil)
}

func (g *HTTPGateway) AvailableListings(ctx context.Context, search string) ([]models.Listing, error) {
	q := url.Values{}
	q.Set("search", search)

	var foods []foodDTO
	if err := g.do(ctx, http.MethodGet, "/available-foods", q, authNone, nil, &foods); err != nil {
		return nil, err
	}
	return foodsToModels(foods), nil
}

func (g *HTTPGateway) Listing(ctx context.Context, id string) (*models.Listing, error) {
	var food *foodDTO
	if err := g.do(ctx, http.MethodGet, "/food/"+url.PathEscape(id), nil, authOptional, nil, &food); err != nil {
		return nil, err
	}
	if food == nil {
		return nil, fmt.Errorf("listing %s: %w", id, ErrNotFound)
	}
	l := food.toModel()
	return &l, nil
}

func (g *HTTPGateway) OwnedListings(ctx context.Context, email string) ([]models.Listing, error) {
	q := url.Values{}
	q.Set("email", email)

	var foods []foodDTO
	if err := g.do(ctx, http.MethodGet, "/manage-food", q, authRequired, nil, &foods); err != nil {
		return nil, err
	}
	return foodsToModels(foods), nil
}

func (g *HTTPGateway) CreateListing(ctx context.Context, d models.ListingDraft) (*models.Listing, error) {
	var res insertResultDTO
	if err := g.do(ctx, http.MethodPost, "/food", nil, authOptional, foodFromDraft(d, models.ListingAvailable), &res); err != nil {
		return nil, err
	}
	if res.InsertedID == "" {
		return nil, fmt.Errorf("create listing: no inserted id: %w", ErrMalformedResponse)
	}
	return &models.Listing{ID: string(res.InsertedID), ListingDraft: d, Status: models.ListingAvailable}, nil
}

func (g *HTTPGateway) UpdateListing(ctx context.Context, id string, d models.ListingDraft) (*models.Listing, error) {
	body := foodFromDraft(d, "")
	if err := g.do(ctx, http.MethodPut, "/food/"+url.PathEscape(id), nil, authRequired, body, nil); err != nil {
		return nil, err
	}
	return &models.Listing{ID: id, ListingDraft: d, Status: models.ListingAvailable}, nil
}

func (g *HTTPGateway) DeleteListing(ctx context.Context, id string) error {
	return g.do(ctx, http.MethodDelete, "/food/"+url.PathEscape(id), nil, authRequired, nil, nil)
}

func (g *HTTPGateway) CreateRequest(ctx context.Context, r models.FoodRequest) (*models.FoodRequest, error) {
	var res insertResultDTO
	if err := g.do(ctx, http.MethodPost, "/requestedfoods", nil, authOptional, requestFromModel(r), &res); err != nil {
		return nil, err
	}
	if res.InsertedID == "" {
		return nil, fmt.Errorf("create request: no inserted id: %w", ErrMalformedResponse)
	}
	out := r
	out.ID = string(res.InsertedID)
	return &out, nil
}

func (g *HTTPGateway) MyRequests(ctx context.Context, email string) ([]models.FoodRequest, error) {
	q := url.Values{}
	q.Set("email", email)

	var reqs []requestDTO
	if err := g.do(ctx, http.MethodGet, "/myfoodrequest", q, authRequired, nil, &reqs); err != nil {
		return nil, err
	}
	out := make([]models.FoodRequest, 0, len(reqs))
	for _, r := range reqs {
		out = append(out, r.toModel())
	}
	return out, nil
}

func (g *HTTPGateway) CancelRequest(ctx context.Context, id string) error {
	return g.do(ctx, http.MethodDelete, "/myfoodrequest/"+url.PathEscape(id), nil, authRequired, nil, nil)
}

func (g *HTTPGateway) CreatePaymentIntent(ctx context.Context, price int) (*models.PaymentIntent, error) {
	var res paymentIntentDTO
	if err := g.do(ctx, http.MethodPost, "/create-payment-intent", nil, authOptional, paymentIntentRequestDTO{Price: price}, &res); err != nil {
		return nil, err
	}
	if res.ClientSecret == "" {
		return nil, fmt.Errorf("payment intent: empty client secret: %w", ErrMalformedResponse)
	}
	return &models.PaymentIntent{ClientSecret: res.ClientSecret}, nil
}

func foodsToModels(foods []foodDTO) []models.Listing {
	out := make([]models.Listing, 0, len(foods))
	for _, f := range foods {
		out = append(out, f.toModel())
	}
	return out
}

func (g *HTTPGateway) do(ctx context.Context, method, path string, query url.Values, auth authMode, body, out any) error {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	}

	// path segments are already escaped by the callers
	target := g.baseURL.String() + path
	if query != nil {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if err := g.authorize(ctx, req, auth); err != nil {
		return err
	}

	start := time.Now()
	resp, err := g.client.Do(req)
	if err != nil {
		g.metrics.RecordGatewayRequest(method, 0, time.Since(start))
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		g.logger.Warn(ctx, "backend request failed", "method", method, "path", path, "error", err)
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	g.metrics.RecordGatewayRequest(method, resp.StatusCode, time.Since(start))
	if err != nil {
		return fmt.Errorf("%w: read body: %v", ErrUnavailable, err)
	}

	g.logger.Debug(ctx, "backend request", "method", method, "path", path, "status", resp.StatusCode)

	if err := mapStatus(resp.StatusCode, raw); err != nil {
		return err
	}
	return decodeBody(raw, out)
}

func (g *HTTPGateway) authorize(ctx context.Context, req *http.Request, auth authMode) error {
	if auth == authNone {
		return nil
	}
	if g.tokens == nil {
		if auth == authRequired {
			return fmt.Errorf("%w: no token source", ErrUnauthorized)
		}
		return nil
	}

	token, err := g.tokens.Token(ctx)
	if err != nil || token == "" {
		if auth == authOptional {
			return nil
		}
		if err == nil {
			err = common.ErrNotSignedIn
		}
		return fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}
	req.Header.Set(common.AuthorizationHeaderName, "Bearer "+token)
	return nil
}

func mapStatus(code int, body []byte) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusTooManyRequests || code >= 500:
		return fmt.Errorf("%w: status %d", ErrUnavailable, code)
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrUnauthorized, messageOf(body, code))
	case code == http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, messageOf(body, code))
	default:
		return fmt.Errorf("%w: %s", ErrRejected, messageOf(body, code))
	}
}

func messageOf(body []byte, code int) string {
	var m messageDTO
	if err := json.Unmarshal(body, &m); err == nil {
		if m.Message != "" {
			return m.Message
		}
		if m.Error != "" {
			return m.Error
		}
	}
	if s := strings.TrimSpace(string(body)); s != "" && len(s) < 200 && !strings.HasPrefix(s, "<") {
		return s
	}
	return http.StatusText(code)
}

// decodeBody normalizes envelope and raw response shapes into out. A nil
// out discards the body.
func decodeBody(body []byte, out any) error {
	if out == nil {
		return nil
	}
	data := bytes.TrimSpace(body)
	if len(data) == 0 {
		return fmt.Errorf("%w: empty body", ErrMalformedResponse)
	}

	if data[0] == '{' {
		var probe map[string]json.RawMessage
		if err := json.Unmarshal(data, &probe); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
		if rawOK, isEnvelope := probe["success"]; isEnvelope {
			var ok bool
			if err := json.Unmarshal(rawOK, &ok); err != nil {
				return fmt.Errorf("%w: envelope success: %v", ErrMalformedResponse, err)
			}
			if !ok {
				var msg string
				_ = json.Unmarshal(probe["message"], &msg)
				if msg == "" {
					msg = "backend reported failure"
				}
				return fmt.Errorf("%w: %s", ErrRejected, msg)
			}
			if inner, has := probe["data"]; has {
				data = inner
			}
		}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}
