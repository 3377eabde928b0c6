package common

// AuthorizationHeaderName is the HTTP header carrying the bearer ID token
// on outbound requests.
const AuthorizationHeaderName = "Authorization"

// DefaultPostLimit is the number of listings a non-member may publish.
const DefaultPostLimit = 5

// MembershipPrice is the price (in major currency units) of a membership.
const MembershipPrice = 10
