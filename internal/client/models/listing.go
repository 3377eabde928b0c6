package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/foodshare/internal/common"
)

// ListingStatus tracks whether a listing can still be requested.
type ListingStatus string

const (
	ListingAvailable ListingStatus = "available"
	ListingRequested ListingStatus = "requested"
)

// ListingDraft is what a donor fills in before publishing.
type ListingDraft struct {
	Name           string
	ImageURL       string
	Quantity       int
	PickupLocation string
	Expiry         time.Time
	Notes          string

	OwnerEmail string
	OwnerName  string
	OwnerImage string
}

// Validate checks the fields the backend requires.
func (d ListingDraft) Validate() error {
	switch {
	case strings.TrimSpace(d.Name) == "":
		return fmt.Errorf("%w: food name is required", common.ErrValidation)
	case d.Quantity <= 0:
		return fmt.Errorf("%w: quantity must be positive", common.ErrValidation)
	case strings.TrimSpace(d.PickupLocation) == "":
		return fmt.Errorf("%w: pickup location is required", common.ErrValidation)
	case d.Expiry.IsZero():
		return fmt.Errorf("%w: expiry is required", common.ErrValidation)
	case strings.TrimSpace(d.OwnerEmail) == "":
		return fmt.Errorf("%w: owner email is required", common.ErrValidation)
	}
	return nil
}

// Listing is a published food listing.
type Listing struct {
	ID string
	ListingDraft
	Status ListingStatus
}

// Expired reports whether the listing's expiry is not after now.
func (l Listing) Expired(now time.Time) bool {
	return !l.Expiry.After(now)
}

// RemainingDays is the number of whole days left before expiry, rounded
// up, or 0 once expired.
func (l Listing) RemainingDays(now time.Time) int {
	d := l.Expiry.Sub(now)
	if d <= 0 {
		return 0
	}
	days := int(d / (24 * time.Hour))
	if d%(24*time.Hour) != 0 {
		days++
	}
	return days
}

// FoodRequest is a recipient's claim on a listing. Display fields are
// copied from the listing at request time.
type FoodRequest struct {
	ID                string
	ListingID         string
	RequesterEmail    string
	RequestedQuantity int
	Notes             string

	FoodName       string
	FoodImage      string
	DonorName      string
	PickupLocation string
	Expiry         time.Time
	RequestDate    time.Time
}

// NewFoodRequest builds a request for l on behalf of requester.
func NewFoodRequest(l Listing, requester string, qty int, notes string, now time.Time) FoodRequest {
	return FoodRequest{
		ListingID:         l.ID,
		RequesterEmail:    requester,
		RequestedQuantity: qty,
		Notes:             notes,
		FoodName:          l.Name,
		FoodImage:         l.ImageURL,
		DonorName:         l.OwnerName,
		PickupLocation:    l.PickupLocation,
		Expiry:            l.Expiry,
		RequestDate:       now,
	}
}

// PaymentIntent is the processor-side record of a membership payment.
type PaymentIntent struct {
	ID           string
	ClientSecret string
	Status       string
}
