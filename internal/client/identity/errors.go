package identity

import "errors"

var (
	ErrInvalidCredentialFormat = errors.New("invalid email or password format")
	ErrEmailInUse              = errors.New("email already in use")
	ErrWeakPassword            = errors.New("password must contain upper and lower case letters and be at least 6 characters")
	ErrInvalidCredentials      = errors.New("invalid email or password")
	ErrPopupClosed             = errors.New("sign-in window closed")
	ErrProvider                = errors.New("identity provider error")
)

// IsAuthError reports whether err is one of the identity sentinels.
func IsAuthError(err error) bool {
	for _, target := range []error{
		ErrInvalidCredentialFormat, ErrEmailInUse, ErrWeakPassword,
		ErrInvalidCredentials, ErrPopupClosed, ErrProvider,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
