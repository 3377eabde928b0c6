package cli

import (
	"bufio"
	"bytes"
	"context"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/foodshare/internal/client/cache"
	"github.com/dmitrijs2005/foodshare/internal/client/config"
	"github.com/dmitrijs2005/foodshare/internal/client/models"
	"github.com/dmitrijs2005/foodshare/internal/client/mutation"
	"github.com/dmitrijs2005/foodshare/internal/client/payment"
	"github.com/dmitrijs2005/foodshare/internal/client/services"
	"github.com/dmitrijs2005/foodshare/internal/client/session"
	"github.com/dmitrijs2005/foodshare/internal/common"
	"github.com/dmitrijs2005/foodshare/internal/logging"
	"github.com/dmitrijs2005/foodshare/internal/pubsub"
)

var testNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.Local)

type fakeSession struct {
	mu   sync.Mutex
	snap session.Snapshot
	hub  pubsub.Hub[session.Snapshot]

	// refreshed replaces the profile on Refresh when set.
	refreshed  *models.UserProfile
	refreshErr error
	refreshes  int
}

func (f *fakeSession) Snapshot() session.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap
}

func (f *fakeSession) Await(ctx context.Context) (session.Snapshot, error) {
	return f.Snapshot(), nil
}

func (f *fakeSession) Refresh(ctx context.Context) (session.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshes++
	if f.snap.Phase != session.Ready || f.snap.Principal == nil {
		return f.snap, session.ErrNotReady
	}
	if f.refreshErr != nil {
		return f.snap, f.refreshErr
	}
	if f.refreshed != nil {
		p := *f.refreshed
		f.snap.Profile = &p
	}
	return f.snap, nil
}

func (f *fakeSession) Watch() *pubsub.Subscription[session.Snapshot] {
	return f.hub.Subscribe(f.Snapshot())
}

func (f *fakeSession) set(s session.Snapshot) {
	f.mu.Lock()
	f.snap = s
	f.mu.Unlock()
	f.hub.Publish(s)
}

type fakeAuth struct {
	mu sync.Mutex

	registered []services.RegisterInput
	logins     []string
	loginErr   error
	pingErr    error
	locations  []string
	loggedOut  int
	principal  *models.Principal
}

func (f *fakeAuth) Register(ctx context.Context, in services.RegisterInput) error {
	f.registered = append(f.registered, in)
	return nil
}

func (f *fakeAuth) Login(ctx context.Context, email, password string) (*services.LoginResult, error) {
	f.logins = append(f.logins, email+":"+password)
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	f.principal = &models.Principal{ID: "u1", Email: email}
	return &services.LoginResult{Principal: f.principal, LastVisited: "/my-food-requests"}, nil
}

func (f *fakeAuth) LoginFederated(ctx context.Context, provider string) (*services.LoginResult, error) {
	f.logins = append(f.logins, provider)
	f.principal = &models.Principal{ID: "g1", Email: "g@example.com", Provider: provider}
	return &services.LoginResult{Principal: f.principal, LastVisited: services.DefaultLocation}, nil
}

func (f *fakeAuth) Logout(ctx context.Context) {
	f.loggedOut++
	f.principal = nil
}

func (f *fakeAuth) RememberLocation(ctx context.Context, location string) error {
	f.locations = append(f.locations, location)
	return nil
}

func (f *fakeAuth) Ping(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pingErr
}

func (f *fakeAuth) setPingErr(err error) {
	f.mu.Lock()
	f.pingErr = err
	f.mu.Unlock()
}

type fakeListings struct {
	page    services.Page
	queries []services.Query
	byID    map[string]models.Listing
	owned   []cache.Item[models.Listing]
	created []models.ListingDraft
	updated map[string]models.ListingDraft
	deleted []string
	err     error
}

func (f *fakeListings) Available(ctx context.Context, q services.Query) (services.Page, error) {
	f.queries = append(f.queries, q)
	return f.page, f.err
}

func (f *fakeListings) Get(ctx context.Context, id string) (*models.Listing, error) {
	l, ok := f.byID[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &l, nil
}

func (f *fakeListings) Mine(ctx context.Context) ([]cache.Item[models.Listing], error) {
	return f.owned, f.err
}

func (f *fakeListings) Owned() []cache.Item[models.Listing] { return f.owned }

func (f *fakeListings) Create(ctx context.Context, d models.ListingDraft) (*mutation.Handle[models.Listing], error) {
	if f.err != nil {
		return nil, f.err
	}
	f.created = append(f.created, d)
	return confirmed(ctx, models.Listing{ID: "new", ListingDraft: d}), nil
}

func (f *fakeListings) Update(ctx context.Context, id string, d models.ListingDraft) (*mutation.Handle[models.Listing], error) {
	if f.updated == nil {
		f.updated = map[string]models.ListingDraft{}
	}
	f.updated[id] = d
	return confirmed(ctx, models.Listing{ID: id, ListingDraft: d}), nil
}

func (f *fakeListings) Delete(ctx context.Context, id string) (*mutation.Handle[struct{}], error) {
	f.deleted = append(f.deleted, id)
	return confirmed(ctx, struct{}{}), nil
}

type fakeRequests struct {
	requested []string
	mine      []cache.Item[models.FoodRequest]
	cancelled []string
	err       error
}

func (f *fakeRequests) Request(ctx context.Context, listingID string, qty int, notes string) (*mutation.Handle[models.FoodRequest], error) {
	if f.err != nil {
		return nil, f.err
	}
	f.requested = append(f.requested, listingID+"/"+notes)
	return confirmed(ctx, models.FoodRequest{ListingID: listingID, RequestedQuantity: qty}), nil
}

func (f *fakeRequests) Mine(ctx context.Context) ([]cache.Item[models.FoodRequest], error) {
	return f.mine, nil
}

func (f *fakeRequests) Cancel(ctx context.Context, id string) (*mutation.Handle[struct{}], error) {
	f.cancelled = append(f.cancelled, id)
	return confirmed(ctx, struct{}{}), nil
}

type fakeMembership struct {
	methods []payment.Method
	err     error
}

func (f *fakeMembership) Upgrade(ctx context.Context, m payment.Method) error {
	f.methods = append(f.methods, m)
	return f.err
}

// confirmed returns a handle that has already succeeded.
func confirmed[T any](ctx context.Context, v T) *mutation.Handle[T] {
	c := mutation.NewCoordinator()
	return mutation.Submit(ctx, c, mutation.Mutation[T]{
		Kind:   "test",
		Key:    "k",
		Commit: func(context.Context) (T, error) { return v, nil },
	})
}

type testApp struct {
	*App
	out        *bytes.Buffer
	sess       *fakeSession
	auth       *fakeAuth
	listings   *fakeListings
	requests   *fakeRequests
	membership *fakeMembership
}

func newTestApp(input string) *testApp {
	out := &bytes.Buffer{}
	ta := &testApp{
		out:        out,
		sess:       &fakeSession{},
		auth:       &fakeAuth{},
		listings:   &fakeListings{byID: map[string]models.Listing{}},
		requests:   &fakeRequests{},
		membership: &fakeMembership{},
	}
	cfg := &config.Config{}
	cfg.LoadDefaults()
	ta.App = &App{
		config:            cfg,
		logger:            logging.Nop(),
		authService:       ta.auth,
		listingService:    ta.listings,
		requestService:    ta.requests,
		membershipService: ta.membership,
		session:           ta.sess,
		current:           func() *models.Principal { return ta.auth.principal },
		reader:            bufio.NewReader(strings.NewReader(input)),
		out:               out,
		now:               func() time.Time { return testNow },
	}
	return ta
}

func (ta *testApp) signIn(p models.UserProfile, limit int) {
	ta.auth.principal = &models.Principal{ID: "u1", Email: p.Email, DisplayName: p.Name}
	ta.sess.set(session.Snapshot{
		Phase:     session.Ready,
		Principal: ta.auth.principal,
		Profile:   &p,
		PostLimit: limit,
	})
}
