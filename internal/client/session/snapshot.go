package session

import (
	"fmt"

	"github.com/dmitrijs2005/foodshare/internal/client/models"
)

// Snapshot is an immutable view of the session. Profile and Principal are
// never mutated after the snapshot is taken.
type Snapshot struct {
	Phase     Phase
	Principal *models.Principal
	Profile   *models.UserProfile
	// Attempt is the 1-based number of the profile fetch in flight (while
	// Resolving) or of the last one made.
	Attempt   int
	PostLimit int
	// Err is a *ProfileFetchError when Phase is ResolutionFailed.
	Err error
}

// SignedIn reports whether a principal is present.
func (s Snapshot) SignedIn() bool {
	return s.Principal != nil
}

// CanCreateListing reports whether the user may publish another listing.
// It is false until the profile is known.
func (s Snapshot) CanCreateListing() bool {
	if s.Phase != Ready || s.Profile == nil {
		return false
	}
	return s.Profile.PostCount < s.PostLimit || s.Profile.MembershipActive
}

// RemainingQuota is how many more listings a non-member may publish.
func (s Snapshot) RemainingQuota() int {
	if s.Profile == nil {
		return 0
	}
	return max(0, s.PostLimit-s.Profile.PostCount)
}

// ProfileFetchError reports that the profile for Email could not be loaded
// after Attempts tries.
type ProfileFetchError struct {
	Email    string
	Attempts int
	Err      error
}

func (e *ProfileFetchError) Error() string {
	return fmt.Sprintf("fetch profile %s: %d attempt(s): %v", e.Email, e.Attempts, e.Err)
}

func (e *ProfileFetchError) Unwrap() error { return e.Err }
