package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/dmitrijs2005/foodshare/internal/client/cache"
	"github.com/dmitrijs2005/foodshare/internal/client/gate"
	"github.com/dmitrijs2005/foodshare/internal/client/models"
	"github.com/dmitrijs2005/foodshare/internal/client/mutation"
	"github.com/dmitrijs2005/foodshare/internal/common"
)

// DefaultPageSize matches how many listings the catalog shows at once.
const DefaultPageSize = 8

type SortOrder string

const (
	SortNone       SortOrder = ""
	SortExpiryAsc  SortOrder = "asc"
	SortExpiryDesc SortOrder = "desc"
)

// ParseSortOrder accepts "asc", "desc" or "" (server order).
func ParseSortOrder(s string) (SortOrder, error) {
	switch o := SortOrder(strings.ToLower(strings.TrimSpace(s))); o {
	case SortNone, SortExpiryAsc, SortExpiryDesc:
		return o, nil
	default:
		return SortNone, fmt.Errorf("%w: unknown sort order %q", common.ErrValidation, s)
	}
}

type Query struct {
	Search string
	Sort   SortOrder
	// Page is 1-based. Zero means the first page.
	Page     int
	PageSize int
}

type Page struct {
	Items      []models.Listing
	Page       int
	TotalPages int
	Total      int
}

type ListingService interface {
	// Available lists unexpired listings, sorted and paged.
	Available(ctx context.Context, q Query) (Page, error)
	Get(ctx context.Context, id string) (*models.Listing, error)
	// Mine reloads the signed-in user's listings into the local view.
	Mine(ctx context.Context) ([]cache.Item[models.Listing], error)
	// Owned is the local view without a reload.
	Owned() []cache.Item[models.Listing]
	Create(ctx context.Context, d models.ListingDraft) (*mutation.Handle[models.Listing], error)
	Update(ctx context.Context, id string, d models.ListingDraft) (*mutation.Handle[models.Listing], error)
	Delete(ctx context.Context, id string) (*mutation.Handle[struct{}], error)
}

type listingService struct {
	d     Deps
	views *views
}

func NewListingService(d Deps) ListingService {
	return newListingService(d.withDefaults(), newViews())
}

func newListingService(d Deps, v *views) *listingService {
	return &listingService{d: d, views: v}
}

func (s *listingService) Available(ctx context.Context, q Query) (Page, error) {
	all, err := s.d.Gateway.AvailableListings(ctx, strings.TrimSpace(q.Search))
	if err != nil {
		return Page{}, fmt.Errorf("list available: %w", err)
	}

	now := s.d.Now()
	live := make([]models.Listing, 0, len(all))
	for _, l := range all {
		if !l.Expired(now) {
			live = append(live, l)
		}
	}

	switch q.Sort {
	case SortExpiryAsc:
		sort.SliceStable(live, func(i, j int) bool { return live[i].Expiry.Before(live[j].Expiry) })
	case SortExpiryDesc:
		sort.SliceStable(live, func(i, j int) bool { return live[i].Expiry.After(live[j].Expiry) })
	}
	s.views.catalog.Load(live)

	return paginate(live, q.Page, q.PageSize), nil
}

func paginate(items []models.Listing, page, size int) Page {
	if size <= 0 {
		size = DefaultPageSize
	}
	total := len(items)
	pages := (total + size - 1) / size
	if page < 1 {
		page = 1
	}

	from := min((page-1)*size, total)
	to := min(from+size, total)
	return Page{Items: items[from:to], Page: page, TotalPages: pages, Total: total}
}

func (s *listingService) Get(ctx context.Context, id string) (*models.Listing, error) {
	if l, ok := s.views.owned.Get(id); ok && IsLocalID(id) {
		return &l, nil
	}
	l, err := s.d.Gateway.Listing(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get listing %s: %w", id, err)
	}
	return l, nil
}

func (s *listingService) Mine(ctx context.Context) ([]cache.Item[models.Listing], error) {
	p := s.d.Identity.Current()
	if p == nil {
		return nil, common.ErrNotSignedIn
	}
	ls, err := s.d.Gateway.OwnedListings(ctx, p.Email)
	if err != nil {
		return nil, fmt.Errorf("list owned: %w", err)
	}
	s.views.owned.Load(ls)
	return s.views.owned.Snapshot(), nil
}

func (s *listingService) Owned() []cache.Item[models.Listing] {
	return s.views.owned.Snapshot()
}

// Create is gated on the session. A post is reserved against the quota
// before the draft is prepared, so concurrent creates cannot exceed it.
// The listing and the post count change locally before the backend
// answers and are rolled back if it refuses.
func (s *listingService) Create(ctx context.Context, d models.ListingDraft) (*mutation.Handle[models.Listing], error) {
	snap := s.d.Session.Snapshot()
	if err := gate.Require(snap); err != nil {
		return nil, err
	}

	owner := snap.Profile
	d.OwnerEmail = owner.Email
	d.OwnerName = owner.Name
	if d.OwnerName == "" {
		d.OwnerName = snap.Principal.DisplayName
	}
	d.OwnerImage = owner.AvatarURL

	slot, err := s.d.Session.ReservePost(owner.Email)
	if err != nil {
		return nil, err
	}

	d, err = s.prepare(ctx, d)
	if err != nil {
		slot.Cancel()
		return nil, err
	}

	local := models.Listing{ID: newLocalID(), ListingDraft: d, Status: models.ListingAvailable}

	return mutation.Submit(ctx, s.d.Coordinator, mutation.Mutation[models.Listing]{
		Kind:  "listing.create",
		Key:   local.ID,
		Label: "Add food " + d.Name,
		Apply: func() func() {
			undo := s.views.owned.Add(local)
			return chain(slot.Cancel, undo)
		},
		Commit: func(ctx context.Context) (models.Listing, error) {
			l, err := s.d.Gateway.CreateListing(ctx, d)
			if err != nil {
				return models.Listing{}, err
			}
			return *l, nil
		},
		Confirm: func(l models.Listing) {
			slot.Commit()
			s.views.owned.Replace(local.ID, l)
		},
	}), nil
}

func (s *listingService) Update(ctx context.Context, id string, d models.ListingDraft) (*mutation.Handle[models.Listing], error) {
	p := s.d.Identity.Current()
	if p == nil {
		return nil, common.ErrNotSignedIn
	}
	if IsLocalID(id) {
		return nil, fmt.Errorf("%w: listing %s is not saved yet", common.ErrValidation, id)
	}

	if cur, ok := s.views.owned.Get(id); ok {
		d.OwnerEmail, d.OwnerName, d.OwnerImage = cur.OwnerEmail, cur.OwnerName, cur.OwnerImage
	}
	if d.OwnerEmail == "" {
		d.OwnerEmail = p.Email
	}

	d, err := s.prepare(ctx, d)
	if err != nil {
		return nil, err
	}

	return mutation.Submit(ctx, s.d.Coordinator, mutation.Mutation[models.Listing]{
		Kind:  "listing.update",
		Key:   id,
		Label: "Update food " + d.Name,
		Apply: func() func() {
			undoFields, _ := s.views.owned.Update(id, func(l *models.Listing) { l.ListingDraft = d })
			undoPending, _ := s.views.owned.MarkPending(id, true)
			return chain(undoFields, undoPending)
		},
		Commit: func(ctx context.Context) (models.Listing, error) {
			l, err := s.d.Gateway.UpdateListing(ctx, id, d)
			if err != nil {
				return models.Listing{}, err
			}
			return *l, nil
		},
		Confirm: func(l models.Listing) {
			s.views.owned.Replace(id, l)
		},
	}), nil
}

// Delete is idempotent per listing id. The post count drops only once the
// backend confirms.
func (s *listingService) Delete(ctx context.Context, id string) (*mutation.Handle[struct{}], error) {
	p := s.d.Identity.Current()
	if p == nil {
		return nil, common.ErrNotSignedIn
	}
	if IsLocalID(id) {
		return nil, fmt.Errorf("%w: listing %s is not saved yet", common.ErrValidation, id)
	}
	email := p.Email

	return mutation.Submit(ctx, s.d.Coordinator, mutation.Mutation[struct{}]{
		Kind:       "listing.delete",
		Key:        id,
		Idempotent: true,
		Label:      "Delete food",
		Apply: func() func() {
			restore, _ := s.views.owned.Remove(id)
			return restore
		},
		Commit: func(ctx context.Context) (struct{}, error) {
			return struct{}{}, s.d.Gateway.DeleteListing(ctx, id)
		},
		Confirm: func(struct{}) {
			s.d.Session.AdjustPostCount(email, -1)
		},
	}), nil
}

// prepare uploads the image, strips markup and validates.
func (s *listingService) prepare(ctx context.Context, d models.ListingDraft) (models.ListingDraft, error) {
	img, err := s.d.Uploader.Upload(ctx, d.ImageURL)
	if err != nil {
		return d, fmt.Errorf("image upload error: %w", err)
	}
	d.ImageURL = img
	d = s.d.Sanitizer.Draft(d)
	if err := d.Validate(); err != nil {
		return d, err
	}
	if !d.Expiry.After(s.d.Now()) {
		return d, fmt.Errorf("%w: expiry must be in the future", common.ErrValidation)
	}
	return d, nil
}
