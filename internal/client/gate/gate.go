// Package gate decides what the create-listing action should show for a
// given session snapshot and refuses gated actions the session does not
// permit.
package gate

import (
	"fmt"

	"github.com/dmitrijs2005/foodshare/internal/client/session"
	"github.com/dmitrijs2005/foodshare/internal/common"
)

type View int

const (
	ViewLoading View = iota
	ViewError
	ViewLoginPrompt
	ViewUpgradePrompt
	ViewForm
)

func (v View) String() string {
	switch v {
	case ViewLoading:
		return "loading"
	case ViewError:
		return "error"
	case ViewLoginPrompt:
		return "login_prompt"
	case ViewUpgradePrompt:
		return "upgrade_prompt"
	case ViewForm:
		return "form"
	default:
		return "unknown"
	}
}

type Decision struct {
	View    View
	Message string
	// Remaining is the number of listings left before the limit. Only
	// meaningful for ViewForm and ViewUpgradePrompt.
	Remaining int
}

// Decide never shows the form or the upgrade prompt before the profile is
// known.
func Decide(s session.Snapshot) Decision {
	switch s.Phase {
	case session.Unresolved, session.Resolving:
		return Decision{View: ViewLoading, Message: "Loading your profile..."}
	case session.ResolutionFailed:
		return Decision{View: ViewError, Message: "Could not load your profile. Sign in again or retry later."}
	}

	if !s.SignedIn() {
		return Decision{View: ViewLoginPrompt, Message: "Sign in to share food."}
	}
	if !s.CanCreateListing() {
		return Decision{
			View:    ViewUpgradePrompt,
			Message: fmt.Sprintf("You have used %d/%d free listings. Become a member to post more.", s.Profile.PostCount, s.PostLimit),
		}
	}

	d := Decision{View: ViewForm, Remaining: s.RemainingQuota()}
	if s.Profile.MembershipActive {
		d.Message = "Member: unlimited listings."
	} else {
		d.Message = fmt.Sprintf("%d free listing(s) left.", d.Remaining)
	}
	return d
}

// Require returns nil when s permits creating a listing. Otherwise the
// error wraps common.ErrNotSignedIn or common.ErrGatingViolation.
func Require(s session.Snapshot) error {
	d := Decide(s)
	switch d.View {
	case ViewForm:
		return nil
	case ViewLoginPrompt:
		return common.ErrNotSignedIn
	default:
		return fmt.Errorf("%w: %s", common.ErrGatingViolation, d.Message)
	}
}
