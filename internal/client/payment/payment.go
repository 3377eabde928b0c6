// Package payment confirms membership payment intents with the card
// processor using the client secret handed out by the backend.
package payment

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/paymentintent"

	"github.com/dmitrijs2005/foodshare/internal/client/models"
	"github.com/dmitrijs2005/foodshare/internal/logging"
)

const DefaultBaseURL = stripe.APIURL

var (
	ErrInvalidSecret = errors.New("invalid client secret")
	ErrDeclined      = errors.New("payment declined")
	ErrUnavailable   = errors.New("payment processor unavailable")
)

// Method is the card used to pay. ID is a payment method token produced
// by the processor's card form. Email, when set, gets the receipt.
type Method struct {
	ID    string
	Name  string
	Email string
}

type Confirmer interface {
	Confirm(ctx context.Context, intent models.PaymentIntent, m Method) (*models.PaymentIntent, error)
}

// IntentID extracts the intent id from a client secret of the form
// "<id>_secret_<random>".
func IntentID(secret string) (string, error) {
	id, _, ok := strings.Cut(secret, "_secret_")
	if !ok || id == "" {
		return "", ErrInvalidSecret
	}
	return id, nil
}

type Option func(*StripeConfirmer)

func WithBaseURL(u string) Option {
	return func(c *StripeConfirmer) { c.baseURL = strings.TrimRight(u, "/") }
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *StripeConfirmer) { c.http = h }
}

func WithLogger(l logging.Logger) Option {
	return func(c *StripeConfirmer) { c.logger = l }
}

// StripeConfirmer confirms intents through the Stripe SDK with a
// publishable key, the same call a browser checkout form makes.
type StripeConfirmer struct {
	baseURL string
	http    *http.Client
	logger  logging.Logger
	intents paymentintent.Client
}

func NewStripeConfirmer(publishableKey string, opts ...Option) *StripeConfirmer {
	c := &StripeConfirmer{
		baseURL: DefaultBaseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
		logger:  logging.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	// confirmation is a write and is never retried
	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		URL:               stripe.String(c.baseURL),
		HTTPClient:        c.http,
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelNull},
	})
	c.intents = paymentintent.Client{B: backend, Key: publishableKey}
	return c
}

// Confirm succeeds only when the processor reports status "succeeded".
func (c *StripeConfirmer) Confirm(ctx context.Context, intent models.PaymentIntent, m Method) (*models.PaymentIntent, error) {
	id := intent.ID
	if id == "" {
		var err error
		if id, err = IntentID(intent.ClientSecret); err != nil {
			return nil, err
		}
	}

	params := &stripe.PaymentIntentConfirmParams{
		ClientSecret:  stripe.String(intent.ClientSecret),
		PaymentMethod: stripe.String(m.ID),
	}
	if m.Email != "" {
		params.ReceiptEmail = stripe.String(m.Email)
	}
	params.Context = ctx

	pi, err := c.intents.Confirm(id, params)
	if err != nil {
		return nil, c.mapError(ctx, id, err)
	}

	out := &models.PaymentIntent{ID: pi.ID, ClientSecret: intent.ClientSecret, Status: string(pi.Status)}
	if out.ID == "" {
		out.ID = id
	}
	if pi.Status != stripe.PaymentIntentStatusSucceeded {
		reason := string(pi.Status)
		if pi.LastPaymentError != nil && pi.LastPaymentError.Msg != "" {
			reason = pi.LastPaymentError.Msg
		}
		return out, fmt.Errorf("%w: %s", ErrDeclined, reason)
	}
	return out, nil
}

// mapError turns processor answers into ErrDeclined and anything that
// never reached a verdict into ErrUnavailable.
func (c *StripeConfirmer) mapError(ctx context.Context, id string, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	var serr *stripe.Error
	if !errors.As(err, &serr) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if serr.HTTPStatusCode >= 500 || serr.HTTPStatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("%w: status %d", ErrUnavailable, serr.HTTPStatusCode)
	}

	msg := serr.Msg
	if msg == "" {
		msg = http.StatusText(serr.HTTPStatusCode)
	}
	c.logger.Warn(ctx, "payment confirm rejected", "intent", id, "status", serr.HTTPStatusCode, "type", string(serr.Type), "code", string(serr.Code))
	return fmt.Errorf("%w: %s", ErrDeclined, msg)
}
