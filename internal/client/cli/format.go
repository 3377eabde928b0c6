package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/foodshare/internal/client/cache"
	"github.com/dmitrijs2005/foodshare/internal/client/models"
	"github.com/dmitrijs2005/foodshare/internal/client/session"
)

const dateLayout = "2006-01-02"

func formatProfile(s session.Snapshot) string {
	var b strings.Builder
	p := s.Profile
	fmt.Fprintf(&b, "%s <%s>\n", p.Name, p.Email)
	if p.MembershipActive {
		fmt.Fprintf(&b, "Membership: active, %d listings posted\n", p.PostCount)
	} else {
		fmt.Fprintf(&b, "Membership: free, %d/%d listings posted\n", p.PostCount, s.PostLimit)
	}
	return b.String()
}

func formatListingRow(l models.Listing, now time.Time) string {
	return fmt.Sprintf("%-24s %-28s qty %-3d %-20s %s", l.ID, l.Name, l.Quantity, l.PickupLocation, expiryText(l, now))
}

func formatListing(l models.Listing, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "ID:       %s\n", l.ID)
	fmt.Fprintf(&b, "Food:     %s\n", l.Name)
	fmt.Fprintf(&b, "Quantity: %d\n", l.Quantity)
	fmt.Fprintf(&b, "Pickup:   %s\n", l.PickupLocation)
	fmt.Fprintf(&b, "Expires:  %s\n", expiryText(l, now))
	fmt.Fprintf(&b, "Status:   %s\n", l.Status)
	fmt.Fprintf(&b, "Donor:    %s <%s>\n", l.OwnerName, l.OwnerEmail)
	if l.ImageURL != "" {
		fmt.Fprintf(&b, "Image:    %s\n", l.ImageURL)
	}
	if l.Notes != "" {
		fmt.Fprintf(&b, "Notes:\n%s\n", l.Notes)
	}
	return b.String()
}

func expiryText(l models.Listing, now time.Time) string {
	date := l.Expiry.Local().Format(dateLayout)
	if l.Expired(now) {
		return date + " (expired)"
	}
	days := l.RemainingDays(now)
	if days == 1 {
		return date + " (1 day left)"
	}
	return fmt.Sprintf("%s (%d days left)", date, days)
}

func formatOwnedRow(it cache.Item[models.Listing], now time.Time) string {
	return pendingMark(it.Pending) + formatListingRow(it.Value, now)
}

func formatRequestRow(it cache.Item[models.FoodRequest]) string {
	r := it.Value
	return fmt.Sprintf("%s%-24s %-28s qty %-3d from %-16s requested %s",
		pendingMark(it.Pending), r.ID, r.FoodName, r.RequestedQuantity, r.DonorName, r.RequestDate.Local().Format(dateLayout))
}

func pendingMark(pending bool) string {
	if pending {
		return "* "
	}
	return "  "
}
