package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/foodshare/internal/client/services"
	"github.com/dmitrijs2005/foodshare/internal/client/session"
	"github.com/dmitrijs2005/foodshare/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// Register prompts for name, email, password and an optional avatar, then
// creates the account and its profile. The user has to log in afterwards.
func (a *App) Register(ctx context.Context) error {
	name, err := getSimpleText(a.reader, "Enter your name", a.out)
	if err != nil {
		return err
	}
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	avatar, err := getSimpleText(a.reader, "Avatar image (URL or file path, empty to skip)", a.out)
	if err != nil {
		return err
	}

	err = a.authService.Register(ctx, services.RegisterInput{
		Name:     name,
		Email:    email,
		Password: string(password),
		Avatar:   avatar,
	})
	if err != nil {
		fmt.Fprintln(a.out, "Registration failed:", err)
		return err
	}

	fmt.Fprintln(a.out, "Account created. Please log in.")
	return nil
}

// Login prompts for credentials, signs in and waits for the profile to load.
func (a *App) Login(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	res, err := a.authService.Login(ctx, email, string(password))
	if err != nil {
		fmt.Fprintln(a.out, "Login unsuccessful:", err)
		return err
	}
	a.welcome(ctx, res)
	return nil
}

// LoginGoogle signs in through the configured federated provider.
func (a *App) LoginGoogle(ctx context.Context) error {
	res, err := a.authService.LoginFederated(ctx, a.config.OIDCProviderName)
	if err != nil {
		fmt.Fprintln(a.out, "Login unsuccessful:", err)
		return err
	}
	a.welcome(ctx, res)
	return nil
}

func (a *App) welcome(ctx context.Context, res *services.LoginResult) {
	fmt.Fprintf(a.out, "Signed in as %s\n", res.Principal.Email)

	snap, err := a.session.Await(ctx)
	if err != nil {
		return
	}
	a.printProfile(snap)
	if res.LastVisited != "" && res.LastVisited != services.DefaultLocation {
		fmt.Fprintf(a.out, "Last time you were at %s\n", res.LastVisited)
	}
}

func (a *App) Logout(ctx context.Context) error {
	a.authService.Logout(ctx)
	fmt.Fprintln(a.out, "Signed out.")
	return nil
}

// WhoAmI prints the current session state.
func (a *App) WhoAmI(ctx context.Context) error {
	a.printProfile(a.session.Snapshot())
	return nil
}

// Refresh reloads the profile from the backend and prints it. Listings
// still being saved stay counted.
func (a *App) Refresh(ctx context.Context) error {
	snap, err := a.session.Refresh(ctx)
	switch {
	case errors.Is(err, session.ErrNotReady):
		fmt.Fprintln(a.out, "Your profile is not loaded yet.")
		return err
	case err != nil:
		fmt.Fprintln(a.out, "Could not refresh your profile:", err)
		return err
	}
	a.printProfile(snap)
	return nil
}

func (a *App) printProfile(s session.Snapshot) {
	switch {
	case s.Phase == session.ResolutionFailed:
		fmt.Fprintln(a.out, "Your profile could not be loaded:", s.Err)
	case !s.Phase.Settled():
		fmt.Fprintln(a.out, "Loading your profile...")
	case !s.SignedIn():
		fmt.Fprintln(a.out, "Not signed in.")
	case s.Profile == nil:
		fmt.Fprintln(a.out, "Signed in as", s.Principal.Email)
	default:
		fmt.Fprint(a.out, formatProfile(s))
	}
}

// remember records where the user is so the next login can report it.
func (a *App) remember(ctx context.Context, location string) {
	if !a.isLoggedIn() {
		return
	}
	if err := a.authService.RememberLocation(ctx, location); err != nil {
		a.logger.Debug(ctx, "location not saved", "error", err)
	}
}
