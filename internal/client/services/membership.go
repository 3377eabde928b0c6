package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/foodshare/internal/client/mutation"
	"github.com/dmitrijs2005/foodshare/internal/client/payment"
	"github.com/dmitrijs2005/foodshare/internal/client/session"
	"github.com/dmitrijs2005/foodshare/internal/common"
)

var (
	ErrAlreadyMember = errors.New("membership already active")
	ErrNoPayments    = errors.New("payments are not configured")
)

type MembershipService interface {
	// Upgrade pays for membership with m and activates it. The session
	// learns about the membership only after the backend confirms it.
	Upgrade(ctx context.Context, m payment.Method) error
}

type membershipService struct {
	d Deps
}

func NewMembershipService(d Deps) MembershipService {
	return &membershipService{d: d.withDefaults()}
}

func (s *membershipService) Upgrade(ctx context.Context, m payment.Method) error {
	if s.d.Confirmer == nil {
		return ErrNoPayments
	}

	snap := s.d.Session.Snapshot()
	switch {
	case !snap.SignedIn():
		return common.ErrNotSignedIn
	case snap.Phase != session.Ready || snap.Profile == nil:
		return fmt.Errorf("%w: profile not loaded", common.ErrGatingViolation)
	case snap.Profile.MembershipActive:
		return ErrAlreadyMember
	}
	profile := *snap.Profile
	if m.Name == "" {
		m.Name = profile.Name
	}
	if m.Email == "" {
		m.Email = profile.Email
	}

	intent, err := s.d.Gateway.CreatePaymentIntent(ctx, common.MembershipPrice)
	if err != nil {
		return fmt.Errorf("create payment intent: %w", err)
	}
	if _, err := s.d.Confirmer.Confirm(ctx, *intent, m); err != nil {
		return fmt.Errorf("confirm payment: %w", err)
	}
	s.d.Logger.Info(ctx, "membership payment succeeded", "email", profile.Email)

	h := mutation.Submit(ctx, s.d.Coordinator, mutation.Mutation[struct{}]{
		Kind:  "membership.activate",
		Key:   profile.Email,
		Label: "Activate membership",
		Commit: func(ctx context.Context) (struct{}, error) {
			return struct{}{}, s.d.Gateway.ActivateMembership(ctx, profile.Email)
		},
		Confirm: func(struct{}) {
			s.d.Session.ApplyMembership(profile.Email, true)
		},
	})
	return h.Err(ctx)
}
