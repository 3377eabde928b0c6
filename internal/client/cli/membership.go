package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/foodshare/internal/client/payment"
	"github.com/dmitrijs2005/foodshare/internal/client/services"
	"github.com/dmitrijs2005/foodshare/internal/common"
)

// defaultPaymentMethod is the processor's test card.
const defaultPaymentMethod = "pm_card_visa"

// Membership pays for a membership and waits for it to be activated.
func (a *App) Membership(ctx context.Context) error {
	p := a.principal()
	if p == nil {
		fmt.Fprintln(a.out, "Sign in to buy a membership.")
		return common.ErrNotSignedIn
	}

	fmt.Fprintf(a.out, "Membership costs $%d and removes the listing limit.\n", common.MembershipPrice)
	name, err := GetDefaultText(a.reader, "Cardholder name", p.DisplayName, a.out)
	if err != nil {
		return err
	}
	method, err := GetDefaultText(a.reader, "Payment method", defaultPaymentMethod, a.out)
	if err != nil {
		return err
	}

	err = a.membershipService.Upgrade(ctx, payment.Method{ID: method, Name: name, Email: p.Email})
	switch {
	case err == nil:
		fmt.Fprintln(a.out, "Membership active. Share as much food as you like!")
		a.remember(ctx, "/membership")
	case errors.Is(err, services.ErrAlreadyMember):
		fmt.Fprintln(a.out, "You are already a member.")
	case errors.Is(err, payment.ErrDeclined):
		fmt.Fprintln(a.out, "Payment declined:", err)
	default:
		fmt.Fprintln(a.out, "Membership purchase failed:", err)
	}
	return err
}
