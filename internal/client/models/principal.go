package models

// Principal is an authenticated identity as reported by the identity
// provider. A nil *Principal means nobody is signed in.
type Principal struct {
	ID          string
	Email       string
	DisplayName string
	PhotoURL    string
	// Provider names the identity provider that issued the principal,
	// e.g. "password" or "google".
	Provider string
}

// SameIdentity reports whether p and o denote the same signed-in user.
// Two nil principals are the same (both anonymous).
func (p *Principal) SameIdentity(o *Principal) bool {
	if p == nil || o == nil {
		return p == nil && o == nil
	}
	return p.ID == o.ID && SameEmail(p.Email, o.Email)
}

// UserProfile is the backend's record for a user, keyed by email.
type UserProfile struct {
	Email            string
	Name             string
	AvatarURL        string
	MembershipActive bool
	PostCount        int
}
