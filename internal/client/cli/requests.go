package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/dmitrijs2005/foodshare/internal/common"
)

// RequestFood asks for a listing. The listing shows as requested right
// away; the outcome is reported when the backend answers.
func (a *App) RequestFood(ctx context.Context, args []string) error {
	id, err := a.argOrPrompt(args, "Enter listing ID")
	if err != nil {
		return err
	}

	qtyText, err := GetDefaultText(a.reader, "Quantity", "1", a.out)
	if err != nil {
		return err
	}
	qty, err := strconv.Atoi(qtyText)
	if err != nil {
		fmt.Fprintln(a.out, "Quantity must be a number.")
		return fmt.Errorf("%w: quantity %q", common.ErrValidation, qtyText)
	}
	notes, err := GetMultiline(a.reader, "Notes for the donor", a.out)
	if err != nil {
		return err
	}

	if _, err := a.requestService.Request(ctx, id, qty, notes); err != nil {
		fmt.Fprintln(a.out, "Could not request food:", err)
		return err
	}
	fmt.Fprintln(a.out, "Request sent.")
	return nil
}

func (a *App) MyRequests(ctx context.Context) error {
	items, err := a.requestService.Mine(ctx)
	if err != nil {
		fmt.Fprintln(a.out, "Could not load your requests:", err)
		return err
	}
	a.remember(ctx, "/my-food-requests")

	if len(items) == 0 {
		fmt.Fprintln(a.out, "You have no food requests.")
		return nil
	}
	for _, it := range items {
		fmt.Fprintln(a.out, formatRequestRow(it))
	}
	return nil
}

func (a *App) CancelRequest(ctx context.Context, args []string) error {
	id, err := a.argOrPrompt(args, "Enter request ID")
	if err != nil {
		return err
	}
	if _, err := a.requestService.Cancel(ctx, id); err != nil {
		fmt.Fprintln(a.out, "Could not cancel request:", err)
		return err
	}
	fmt.Fprintln(a.out, "Request cancelled.")
	return nil
}
