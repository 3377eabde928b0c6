// Package identity signs users in and keeps track of who is signed in.
//
// Broker is the single owner of the current principal. It delegates
// credential checks to a PasswordProvider (an identity-toolkit style REST
// API, or the in-process LocalProvider) and to any number of
// FederatedProviders (OIDC with a loopback redirect). Consumers learn
// about sign-in and sign-out through ObservePrincipal, which delivers
// every change in order to each subscriber.
//
// The gateway obtains bearer tokens from Broker.Token, which refreshes an
// expired ID token through the provider that issued it.
package identity
