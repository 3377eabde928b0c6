package identity

import (
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"
)

const MinPasswordLength = 6

// ValidateEmail checks that email is a bare address.
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(email[strings.LastIndex(email, "@"):], ".") {
		return fmt.Errorf("%w: %q is not an email address", ErrInvalidCredentialFormat, email)
	}
	return nil
}

// ValidatePassword enforces the sign-up rule: at least one ASCII upper case
// letter, at least one ASCII lower case letter and MinPasswordLength
// characters. Accented letters count toward length only.
func ValidatePassword(pw string) error {
	var upper, lower bool
	for _, r := range pw {
		switch {
		case 'A' <= r && r <= 'Z':
			upper = true
		case 'a' <= r && r <= 'z':
			lower = true
		}
	}
	if !upper || !lower || utf8.RuneCountInString(pw) < MinPasswordLength {
		return ErrWeakPassword
	}
	return nil
}
