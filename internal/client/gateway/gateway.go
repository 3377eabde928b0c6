package gateway

import (
	"context"

	"github.com/dmitrijs2005/foodshare/internal/client/models"
)

// TokenSource supplies the current ID token for authenticated calls.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

type Gateway interface {
	Ping(ctx context.Context) error

	FetchProfile(ctx context.Context, email string) (*models.UserProfile, error)
	CreateProfile(ctx context.Context, p models.UserProfile) error
	ActivateMembership(ctx context.Context, email string) error

	AvailableListings(ctx context.Context, search string) ([]models.Listing, error)
	Listing(ctx context.Context, id string) (*models.Listing, error)
	OwnedListings(ctx context.Context, email string) ([]models.Listing, error)
	CreateListing(ctx context.Context, d models.ListingDraft) (*models.Listing, error)
	UpdateListing(ctx context.Context, id string, d models.ListingDraft) (*models.Listing, error)
	DeleteListing(ctx context.Context, id string) error

	CreateRequest(ctx context.Context, r models.FoodRequest) (*models.FoodRequest, error)
	MyRequests(ctx context.Context, email string) ([]models.FoodRequest, error)
	CancelRequest(ctx context.Context, id string) error

	CreatePaymentIntent(ctx context.Context, price int) (*models.PaymentIntent, error)
}
