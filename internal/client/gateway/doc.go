// Package gateway is the client's only path to the FoodShare backend.
//
// # Overview
//
// Gateway is the transport-agnostic contract. HTTPGateway implements it
// over the backend's REST/JSON API: it attaches the bearer ID token taken
// from a TokenSource, paces outbound calls with a token-bucket limiter and
// converts wire DTOs into models at the boundary.
//
// # Response shapes
//
// The backend is not consistent about envelopes. A JSON object carrying a
// "success" key is treated as {success, message, data}: success=false is a
// rejection, otherwise data (or the object itself when data is absent) is
// decoded. Any other body is decoded as the raw value.
//
// # Error Handling
//
// Failures are mapped to sentinel errors matched with errors.Is:
// ErrUnavailable (transport failure, 5xx, 429; transient), ErrUnauthorized
// (401/403), ErrNotFound (404), ErrRejected (other 4xx or an envelope with
// success=false) and ErrMalformedResponse (undecodable body). Only
// ErrUnavailable is worth retrying; see IsTransient.
package gateway
