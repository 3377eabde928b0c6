package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/foodshare/internal/client/gateway"
	"github.com/dmitrijs2005/foodshare/internal/client/models"
	"github.com/dmitrijs2005/foodshare/internal/client/mutation"
	"github.com/dmitrijs2005/foodshare/internal/client/payment"
	"github.com/dmitrijs2005/foodshare/internal/client/session"
	"github.com/dmitrijs2005/foodshare/internal/client/storage"
	"github.com/dmitrijs2005/foodshare/internal/retry"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

// fakeGateway implements gateway.Gateway over in-memory maps. Calls to
// blocking methods wait on gate when it is set.
type fakeGateway struct {
	mu sync.Mutex

	profiles  map[string]*models.UserProfile
	listings  map[string]models.Listing
	requests  map[string]models.FoodRequest
	nextID    int
	gate      chan struct{}
	calls     map[string]int
	createErr error
	deleteErr error
	cancelErr error
	memberErr error
	pingErr   error

	createdProfiles []models.UserProfile
}

var _ gateway.Gateway = (*fakeGateway)(nil)

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		profiles: map[string]*models.UserProfile{},
		listings: map[string]models.Listing{},
		requests: map[string]models.FoodRequest{},
		calls:    map[string]int{},
	}
}

func (f *fakeGateway) record(name string) {
	f.mu.Lock()
	f.calls[name]++
	gate := f.gate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
}

// hold makes blocking calls wait until the returned channel is closed.
func (f *fakeGateway) hold() chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gate = make(chan struct{})
	return f.gate
}

func (f *fakeGateway) Calls(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeGateway) id() string {
	f.nextID++
	return fmt.Sprintf("srv-%d", f.nextID)
}

func (f *fakeGateway) Ping(context.Context) error { return f.pingErr }

func (f *fakeGateway) FetchProfile(_ context.Context, email string) (*models.UserProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[models.NormalizeEmail(email)]
	if !ok {
		return nil, gateway.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeGateway) CreateProfile(_ context.Context, p models.UserProfile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createdProfiles = append(f.createdProfiles, p)
	f.profiles[models.NormalizeEmail(p.Email)] = &p
	return nil
}

func (f *fakeGateway) ActivateMembership(_ context.Context, email string) error {
	f.record("ActivateMembership")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.memberErr != nil {
		return f.memberErr
	}
	if p, ok := f.profiles[models.NormalizeEmail(email)]; ok {
		p.MembershipActive = true
	}
	return nil
}

func (f *fakeGateway) AvailableListings(_ context.Context, search string) ([]models.Listing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Listing
	for _, l := range f.listings {
		if l.Status == models.ListingAvailable {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *fakeGateway) Listing(_ context.Context, id string) (*models.Listing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.listings[id]
	if !ok {
		return nil, gateway.ErrNotFound
	}
	return &l, nil
}

func (f *fakeGateway) OwnedListings(_ context.Context, email string) ([]models.Listing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Listing
	for _, l := range f.listings {
		if models.SameEmail(l.OwnerEmail, email) {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *fakeGateway) CreateListing(_ context.Context, d models.ListingDraft) (*models.Listing, error) {
	f.record("CreateListing")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	l := models.Listing{ID: f.id(), ListingDraft: d, Status: models.ListingAvailable}
	f.listings[l.ID] = l
	if p, ok := f.profiles[models.NormalizeEmail(d.OwnerEmail)]; ok {
		p.PostCount++
	}
	return &l, nil
}

func (f *fakeGateway) UpdateListing(_ context.Context, id string, d models.ListingDraft) (*models.Listing, error) {
	f.record("UpdateListing")
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.listings[id]
	if !ok {
		return nil, gateway.ErrNotFound
	}
	l.ListingDraft = d
	f.listings[id] = l
	return &l, nil
}

func (f *fakeGateway) DeleteListing(_ context.Context, id string) error {
	f.record("DeleteListing")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.listings, id)
	return nil
}

func (f *fakeGateway) CreateRequest(_ context.Context, r models.FoodRequest) (*models.FoodRequest, error) {
	f.record("CreateRequest")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	r.ID = f.id()
	f.requests[r.ID] = r
	if l, ok := f.listings[r.ListingID]; ok {
		l.Status = models.ListingRequested
		f.listings[l.ID] = l
	}
	return &r, nil
}

func (f *fakeGateway) MyRequests(_ context.Context, email string) ([]models.FoodRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.FoodRequest
	for _, r := range f.requests {
		if models.SameEmail(r.RequesterEmail, email) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeGateway) CancelRequest(_ context.Context, id string) error {
	f.record("CancelRequest")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cancelErr != nil {
		return f.cancelErr
	}
	delete(f.requests, id)
	return nil
}

func (f *fakeGateway) CreatePaymentIntent(context.Context, int) (*models.PaymentIntent, error) {
	f.record("CreatePaymentIntent")
	return &models.PaymentIntent{ClientSecret: "pi_1_secret_x"}, nil
}

// fakeIdentity drives a session machine the way the broker does.
type fakeIdentity struct {
	mu        sync.Mutex
	current   *models.Principal
	machine   *session.Machine
	signUpErr error
	signInErr error
	signOuts  int
}

func (f *fakeIdentity) set(p *models.Principal) {
	f.mu.Lock()
	f.current = p
	f.mu.Unlock()
	if f.machine != nil {
		f.machine.HandlePrincipal(p)
	}
}

func (f *fakeIdentity) SignUp(_ context.Context, email, _ string) (*models.Principal, error) {
	if f.signUpErr != nil {
		return nil, f.signUpErr
	}
	p := &models.Principal{ID: "uid-" + email, Email: email}
	f.set(p)
	return p, nil
}

func (f *fakeIdentity) SignIn(_ context.Context, email, _ string) (*models.Principal, error) {
	if f.signInErr != nil {
		return nil, f.signInErr
	}
	p := &models.Principal{ID: "uid-" + email, Email: email}
	f.set(p)
	return p, nil
}

func (f *fakeIdentity) SignInFederated(_ context.Context, hint string) (*models.Principal, error) {
	p := &models.Principal{ID: "fed-1", Email: "fed@x.io", Provider: hint}
	f.set(p)
	return p, nil
}

func (f *fakeIdentity) SignOut(context.Context) {
	f.mu.Lock()
	f.signOuts++
	f.mu.Unlock()
	f.set(nil)
}

func (f *fakeIdentity) Current() *models.Principal {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}

type fakeConfirmer struct {
	err   error
	calls int
}

func (f *fakeConfirmer) Confirm(_ context.Context, in models.PaymentIntent, _ payment.Method) (*models.PaymentIntent, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &models.PaymentIntent{ID: "pi_1", ClientSecret: in.ClientSecret, Status: "succeeded"}, nil
}

type harness struct {
	gw        *fakeGateway
	identity  *fakeIdentity
	machine   *session.Machine
	confirmer *fakeConfirmer
	store     *storage.Store
	svc       *Services
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gw := newFakeGateway()
	m := session.NewMachine(gw, session.WithRetryPolicy(retry.Constant(1, time.Millisecond)))
	t.Cleanup(m.Stop)

	st, err := storage.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	id := &fakeIdentity{machine: m}
	conf := &fakeConfirmer{}
	svc := New(Deps{
		Gateway:     gw,
		Identity:    id,
		Session:     m,
		Coordinator: mutation.NewCoordinator(),
		Metadata:    st.Metadata,
		Confirmer:   conf,
		Now:         func() time.Time { return testNow },
	})
	return &harness{gw: gw, identity: id, machine: m, confirmer: conf, store: st, svc: svc}
}

// signIn seeds a profile and waits for the session to become Ready.
func (h *harness) signIn(t *testing.T, email string, posts int, member bool) {
	t.Helper()
	h.gw.mu.Lock()
	h.gw.profiles[models.NormalizeEmail(email)] = &models.UserProfile{Email: email, Name: "Ann", PostCount: posts, MembershipActive: member}
	h.gw.mu.Unlock()

	h.identity.set(&models.Principal{ID: "uid-" + email, Email: email})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	snap, err := h.machine.Await(ctx)
	require.NoError(t, err)
	require.Equal(t, session.Ready, snap.Phase)
}

func waitOutcome[T any](t *testing.T, h *mutation.Handle[T]) mutation.Outcome[T] {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	o, err := h.Wait(ctx)
	require.NoError(t, err)
	return o
}

func draft(name string) models.ListingDraft {
	return models.ListingDraft{
		Name:           name,
		ImageURL:       "https://img.example/" + name + ".png",
		Quantity:       3,
		PickupLocation: "Main st 1",
		Expiry:         testNow.Add(48 * time.Hour),
	}
}
