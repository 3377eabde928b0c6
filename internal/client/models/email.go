package models

import (
	"strings"

	"golang.org/x/text/cases"
)

var folder = cases.Fold()

// NormalizeEmail trims surrounding space and case-folds e so that two
// spellings of one address compare equal.
func NormalizeEmail(e string) string {
	return folder.String(strings.TrimSpace(e))
}

// SameEmail reports whether a and b name the same address.
func SameEmail(a, b string) bool {
	return NormalizeEmail(a) == NormalizeEmail(b)
}
