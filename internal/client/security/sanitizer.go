// Package security strips markup from user supplied text before it is
// sent to the backend.
package security

import (
	"html"
	"strings"

	"github.com/dmitrijs2005/foodshare/internal/client/models"
	"github.com/microcosm-cc/bluemonday"
)

// Sanitizer removes every HTML element from plain text fields. It is safe
// for concurrent use.
type Sanitizer struct {
	policy *bluemonday.Policy
}

func NewSanitizer() *Sanitizer {
	return &Sanitizer{policy: bluemonday.StrictPolicy()}
}

// Text returns s without tags. Entities escaped by the policy are turned
// back into characters since the result is not rendered as HTML here.
func (s *Sanitizer) Text(in string) string {
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(in)))
}

// Draft sanitizes the free text fields of d. URLs and numbers are left to
// validation.
func (s *Sanitizer) Draft(d models.ListingDraft) models.ListingDraft {
	d.Name = s.Text(d.Name)
	d.PickupLocation = s.Text(d.PickupLocation)
	d.Notes = s.Text(d.Notes)
	d.OwnerName = s.Text(d.OwnerName)
	return d
}
