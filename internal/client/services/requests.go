package services

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/foodshare/internal/client/cache"
	"github.com/dmitrijs2005/foodshare/internal/client/models"
	"github.com/dmitrijs2005/foodshare/internal/client/mutation"
	"github.com/dmitrijs2005/foodshare/internal/common"
)

type RequestService interface {
	// Request asks for qty of the listing. The listing shows as requested
	// locally until the backend answers.
	Request(ctx context.Context, listingID string, qty int, notes string) (*mutation.Handle[models.FoodRequest], error)
	// Mine reloads the signed-in user's requests into the local view.
	Mine(ctx context.Context) ([]cache.Item[models.FoodRequest], error)
	Cancel(ctx context.Context, id string) (*mutation.Handle[struct{}], error)
}

type requestService struct {
	d     Deps
	views *views
}

func NewRequestService(d Deps) RequestService {
	return newRequestService(d.withDefaults(), newViews())
}

func newRequestService(d Deps, v *views) *requestService {
	return &requestService{d: d, views: v}
}

// Request checks the quantity against the listing as it is now. Another
// recipient may still get there first; the backend has the last word.
func (s *requestService) Request(ctx context.Context, listingID string, qty int, notes string) (*mutation.Handle[models.FoodRequest], error) {
	p := s.d.Identity.Current()
	if p == nil {
		return nil, common.ErrNotSignedIn
	}

	l, err := s.d.Gateway.Listing(ctx, listingID)
	if err != nil {
		return nil, fmt.Errorf("get listing %s: %w", listingID, err)
	}

	now := s.d.Now()
	switch {
	case l.Status == models.ListingRequested:
		return nil, fmt.Errorf("%w: %s is already requested", common.ErrValidation, l.Name)
	case l.Expired(now):
		return nil, fmt.Errorf("%w: %s has expired", common.ErrValidation, l.Name)
	case qty <= 0:
		return nil, fmt.Errorf("%w: quantity must be positive", common.ErrValidation)
	case qty > l.Quantity:
		return nil, fmt.Errorf("%w: only %d available", common.ErrValidation, l.Quantity)
	}

	req := models.NewFoodRequest(*l, p.Email, qty, s.d.Sanitizer.Text(notes), now)
	req.ID = newLocalID()
	local := req.ID

	return mutation.Submit(ctx, s.d.Coordinator, mutation.Mutation[models.FoodRequest]{
		Kind:  "request.create",
		Key:   local,
		Label: "Request " + l.Name,
		Apply: func() func() {
			undoStatus, _ := s.views.catalog.Update(listingID, func(l *models.Listing) { l.Status = models.ListingRequested })
			undoAdd := s.views.requests.Add(req)
			return chain(undoStatus, undoAdd)
		},
		Commit: func(ctx context.Context) (models.FoodRequest, error) {
			r, err := s.d.Gateway.CreateRequest(ctx, req)
			if err != nil {
				return models.FoodRequest{}, err
			}
			return *r, nil
		},
		Confirm: func(r models.FoodRequest) {
			s.views.requests.Replace(local, r)
		},
	}), nil
}

func (s *requestService) Mine(ctx context.Context) ([]cache.Item[models.FoodRequest], error) {
	p := s.d.Identity.Current()
	if p == nil {
		return nil, common.ErrNotSignedIn
	}
	rs, err := s.d.Gateway.MyRequests(ctx, p.Email)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	s.views.requests.Load(rs)
	return s.views.requests.Snapshot(), nil
}

// Cancel marks the request as cancelling and drops it once confirmed.
// Repeated cancels of the same id make a single backend call.
func (s *requestService) Cancel(ctx context.Context, id string) (*mutation.Handle[struct{}], error) {
	if s.d.Identity.Current() == nil {
		return nil, common.ErrNotSignedIn
	}
	if IsLocalID(id) {
		return nil, fmt.Errorf("%w: request %s is not saved yet", common.ErrValidation, id)
	}

	return mutation.Submit(ctx, s.d.Coordinator, mutation.Mutation[struct{}]{
		Kind:       "request.cancel",
		Key:        id,
		Idempotent: true,
		Label:      "Cancel request",
		Apply: func() func() {
			undo, _ := s.views.requests.MarkPending(id, true)
			return undo
		},
		Commit: func(ctx context.Context) (struct{}, error) {
			return struct{}{}, s.d.Gateway.CancelRequest(ctx, id)
		},
		Confirm: func(struct{}) {
			s.views.requests.Remove(id)
		},
	}), nil
}
