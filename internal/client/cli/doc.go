// Package cli provides the interactive FoodShare command-line client.
//
// It wires configuration, local storage, the identity broker, the session
// machine and the application services, then runs a REPL. Typical flow:
// restore the previous login, start the connectivity watcher and the
// session logger, and execute user commands.
//
// Key features:
//   - Register / Login / Google login / Logout
//   - Browse available food, show a listing, request it
//   - Add, update and delete own listings (gated by the free quota)
//   - List and cancel own requests
//   - Buy a membership to lift the quota
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
