package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/foodshare/internal/client/gate"
	"github.com/dmitrijs2005/foodshare/internal/client/models"
	"github.com/dmitrijs2005/foodshare/internal/client/services"
	"github.com/dmitrijs2005/foodshare/internal/common"
)

var errUsage = errors.New("usage error")

// Available prints one page of the catalog.
//
//	available [search words...] [asc|desc] [page]
//
// A trailing number is the page, a trailing asc/desc sorts by expiry and
// everything else is the search text.
func (a *App) Available(ctx context.Context, args []string) error {
	q := parseQuery(args)
	page, err := a.listingService.Available(ctx, q)
	if err != nil {
		fmt.Fprintln(a.out, "Could not load listings:", err)
		return err
	}
	a.remember(ctx, "/available-foods")

	if page.Total == 0 {
		fmt.Fprintln(a.out, "No food available.")
		return nil
	}
	now := a.clock()
	for _, l := range page.Items {
		fmt.Fprintln(a.out, "  "+formatListingRow(l, now))
	}
	fmt.Fprintf(a.out, "Page %d of %d (%d listings)\n", page.Page, page.TotalPages, page.Total)
	return nil
}

func parseQuery(args []string) services.Query {
	var q services.Query
	rest := args
	for len(rest) > 0 {
		last := rest[len(rest)-1]
		if n, err := strconv.Atoi(last); err == nil && q.Page == 0 {
			q.Page = n
		} else if o, err := services.ParseSortOrder(last); err == nil && o != services.SortNone && q.Sort == services.SortNone {
			q.Sort = o
		} else {
			break
		}
		rest = rest[:len(rest)-1]
	}
	q.Search = strings.Join(rest, " ")
	return q
}

// Show prints one listing.
func (a *App) Show(ctx context.Context, args []string) error {
	id, err := a.argOrPrompt(args, "Enter listing ID")
	if err != nil {
		return err
	}
	l, err := a.listingService.Get(ctx, id)
	if err != nil {
		fmt.Fprintln(a.out, "Could not load listing:", err)
		return err
	}
	a.remember(ctx, "/food/"+id)
	fmt.Fprint(a.out, formatListing(*l, a.clock()))
	return nil
}

// AddFood shows whatever the session allows: a wait message, the login or
// upgrade prompt, or the listing form.
func (a *App) AddFood(ctx context.Context) error {
	d := gate.Decide(a.session.Snapshot())
	switch d.View {
	case gate.ViewForm:
		fmt.Fprintln(a.out, d.Message)
	case gate.ViewUpgradePrompt:
		fmt.Fprintln(a.out, d.Message)
		fmt.Fprintln(a.out, "Type 'membership' to upgrade.")
		return common.ErrGatingViolation
	case gate.ViewLoginPrompt:
		fmt.Fprintln(a.out, d.Message)
		return common.ErrNotSignedIn
	default:
		fmt.Fprintln(a.out, d.Message)
		return common.ErrGatingViolation
	}

	draft, err := a.promptDraft(models.ListingDraft{})
	if err != nil {
		return err
	}

	if _, err := a.listingService.Create(ctx, draft); err != nil {
		fmt.Fprintln(a.out, "Could not add food:", err)
		return err
	}
	a.remember(ctx, "/add-food")
	fmt.Fprintln(a.out, "Listing added, publishing in the background.")
	return nil
}

// MyFoods reloads and prints the user's own listings. Pending entries are
// marked with '*'.
func (a *App) MyFoods(ctx context.Context) error {
	items, err := a.listingService.Mine(ctx)
	if err != nil {
		fmt.Fprintln(a.out, "Could not load your listings:", err)
		return err
	}
	a.remember(ctx, "/manage-my-foods")
	if _, err := a.session.Refresh(ctx); err != nil {
		a.logger.Debug(ctx, "profile not refreshed", "error", err)
	}

	if len(items) == 0 {
		fmt.Fprintln(a.out, "You have not shared any food yet.")
		return nil
	}
	now := a.clock()
	for _, it := range items {
		fmt.Fprintln(a.out, formatOwnedRow(it, now))
	}
	return nil
}

// UpdateFood edits one of the user's listings, keeping current values for
// empty answers.
func (a *App) UpdateFood(ctx context.Context, args []string) error {
	id, err := a.argOrPrompt(args, "Enter listing ID")
	if err != nil {
		return err
	}
	cur, err := a.listingService.Get(ctx, id)
	if err != nil {
		fmt.Fprintln(a.out, "Could not load listing:", err)
		return err
	}

	draft, err := a.promptDraft(cur.ListingDraft)
	if err != nil {
		return err
	}

	if _, err := a.listingService.Update(ctx, id, draft); err != nil {
		fmt.Fprintln(a.out, "Could not update food:", err)
		return err
	}
	fmt.Fprintln(a.out, "Listing updated, saving in the background.")
	return nil
}

func (a *App) DeleteFood(ctx context.Context, args []string) error {
	id, err := a.argOrPrompt(args, "Enter listing ID")
	if err != nil {
		return err
	}
	if _, err := a.listingService.Delete(ctx, id); err != nil {
		fmt.Fprintln(a.out, "Could not delete food:", err)
		return err
	}
	fmt.Fprintln(a.out, "Listing removed.")
	return nil
}

// promptDraft asks for every listing field. Values in def are offered as
// defaults.
func (a *App) promptDraft(def models.ListingDraft) (models.ListingDraft, error) {
	d := def

	var err error
	if d.Name, err = GetDefaultText(a.reader, "Food name", def.Name, a.out); err != nil {
		return d, err
	}
	if d.ImageURL, err = GetDefaultText(a.reader, "Image (URL or file path)", def.ImageURL, a.out); err != nil {
		return d, err
	}

	qty := ""
	if def.Quantity > 0 {
		qty = strconv.Itoa(def.Quantity)
	}
	if qty, err = GetDefaultText(a.reader, "Quantity", qty, a.out); err != nil {
		return d, err
	}
	if d.Quantity, err = strconv.Atoi(qty); err != nil {
		fmt.Fprintln(a.out, "Quantity must be a number.")
		return d, fmt.Errorf("%w: quantity %q", common.ErrValidation, qty)
	}

	if d.PickupLocation, err = GetDefaultText(a.reader, "Pickup location", def.PickupLocation, a.out); err != nil {
		return d, err
	}

	exp := ""
	if !def.Expiry.IsZero() {
		exp = def.Expiry.Local().Format(dateLayout)
	}
	if exp, err = GetDefaultText(a.reader, "Expiry date (YYYY-MM-DD)", exp, a.out); err != nil {
		return d, err
	}
	if d.Expiry, err = parseExpiry(exp); err != nil {
		fmt.Fprintln(a.out, "Expiry must be a date like 2025-01-31.")
		return d, err
	}

	notes, err := GetMultiline(a.reader, "Notes", a.out)
	if err != nil {
		return d, err
	}
	if notes != "" {
		d.Notes = notes
	}
	return d, nil
}

// parseExpiry reads a local date. The listing expires at the end of that
// day.
func parseExpiry(s string) (time.Time, error) {
	t, err := time.ParseInLocation(dateLayout, strings.TrimSpace(s), time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: expiry %q", common.ErrValidation, s)
	}
	return t.Add(24*time.Hour - time.Second), nil
}

func (a *App) argOrPrompt(args []string, prompt string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	s, err := getSimpleText(a.reader, prompt, a.out)
	if err != nil {
		return "", err
	}
	if s == "" {
		return "", errUsage
	}
	return s, nil
}
