// Package services contains application services for the FoodShare
// client. They turn user intents into identity, gateway and optimistic
// mutation calls, and are what the CLI talks to.
package services

import (
	"context"
	"time"

	"github.com/dmitrijs2005/foodshare/internal/client/gateway"
	"github.com/dmitrijs2005/foodshare/internal/client/media"
	"github.com/dmitrijs2005/foodshare/internal/client/models"
	"github.com/dmitrijs2005/foodshare/internal/client/mutation"
	"github.com/dmitrijs2005/foodshare/internal/client/payment"
	"github.com/dmitrijs2005/foodshare/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/foodshare/internal/client/security"
	"github.com/dmitrijs2005/foodshare/internal/client/session"
	"github.com/dmitrijs2005/foodshare/internal/logging"
)

// Identity is the part of the identity broker the services use.
type Identity interface {
	SignUp(ctx context.Context, email, password string) (*models.Principal, error)
	SignIn(ctx context.Context, email, password string) (*models.Principal, error)
	SignInFederated(ctx context.Context, hint string) (*models.Principal, error)
	SignOut(ctx context.Context)
	Current() *models.Principal
}

// Session is the part of the session machine the services use.
type Session interface {
	Snapshot() session.Snapshot
	Await(ctx context.Context) (session.Snapshot, error)
	Refresh(ctx context.Context) (session.Snapshot, error)
	ReservePost(email string) (*session.PostReservation, error)
	AdjustPostCount(email string, delta int) bool
	ApplyMembership(email string, active bool) bool
}

// Deps wires the services together. Zero optional fields get defaults in
// New.
type Deps struct {
	Gateway     gateway.Gateway
	Identity    Identity
	Session     Session
	Coordinator *mutation.Coordinator
	Metadata    metadata.Repository

	Uploader  media.Uploader
	Confirmer payment.Confirmer
	Sanitizer *security.Sanitizer
	Logger    logging.Logger
	Now       func() time.Time
}

func (d Deps) withDefaults() Deps {
	if d.Coordinator == nil {
		d.Coordinator = mutation.NewCoordinator()
	}
	if d.Uploader == nil {
		d.Uploader = media.Passthrough{}
	}
	if d.Sanitizer == nil {
		d.Sanitizer = security.NewSanitizer()
	}
	if d.Logger == nil {
		d.Logger = logging.Nop()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return d
}

// Services bundles every application service over one set of
// collaborators and shares the local collections between them.
type Services struct {
	Auth       AuthService
	Listings   ListingService
	Requests   RequestService
	Membership MembershipService
}

func New(d Deps) *Services {
	d = d.withDefaults()
	views := newViews()
	return &Services{
		Auth:       NewAuthService(d),
		Listings:   newListingService(d, views),
		Requests:   newRequestService(d, views),
		Membership: NewMembershipService(d),
	}
}
