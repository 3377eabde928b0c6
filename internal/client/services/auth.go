package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/foodshare/internal/client/gateway"
	"github.com/dmitrijs2005/foodshare/internal/client/models"
	"github.com/dmitrijs2005/foodshare/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/foodshare/internal/common"
	"github.com/dmitrijs2005/foodshare/internal/logging"
)

// DefaultLocation is where a user lands when no last visited location is
// remembered.
const DefaultLocation = "/"

// AuthService defines authentication operations for the CLI.
//
// Contract:
//   - Register: create the identity account and the backend profile. The
//     user is left signed out and has to log in.
//   - Login, LoginFederated: sign in and return where the user was last.
//   - Logout: always succeeds locally.
//   - RememberLocation: store the user's current location for next login.
//   - Ping: check backend liveness.
type AuthService interface {
	Register(ctx context.Context, in RegisterInput) error
	Login(ctx context.Context, email, password string) (*LoginResult, error)
	LoginFederated(ctx context.Context, provider string) (*LoginResult, error)
	Logout(ctx context.Context)
	RememberLocation(ctx context.Context, location string) error
	Ping(ctx context.Context) error
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
	// Avatar is an image URL or a local file to upload.
	Avatar string
}

type LoginResult struct {
	Principal   *models.Principal
	LastVisited string
}

type authService struct {
	gw       gateway.Gateway
	identity Identity
	meta     metadata.Repository
	deps     Deps
	logger   logging.Logger
}

func NewAuthService(d Deps) AuthService {
	d = d.withDefaults()
	return &authService{gw: d.Gateway, identity: d.Identity, meta: d.Metadata, deps: d, logger: d.Logger}
}

// Register uploads the avatar first so a failed upload leaves no account
// behind. The fresh account is signed out right away.
func (a *authService) Register(ctx context.Context, in RegisterInput) error {
	name := a.deps.Sanitizer.Text(in.Name)
	if name == "" {
		return fmt.Errorf("%w: name is required", common.ErrValidation)
	}

	avatar, err := a.deps.Uploader.Upload(ctx, in.Avatar)
	if err != nil {
		return fmt.Errorf("avatar upload error: %w", err)
	}

	p, err := a.identity.SignUp(ctx, in.Email, in.Password)
	if err != nil {
		return err
	}
	a.identity.SignOut(ctx)

	profile := models.UserProfile{Email: p.Email, Name: name, AvatarURL: avatar}
	if err := a.gw.CreateProfile(ctx, profile); err != nil {
		return fmt.Errorf("create profile error: %w", err)
	}
	a.logger.Info(ctx, "user registered", "email", p.Email)
	return nil
}

func (a *authService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	p, err := a.identity.SignIn(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return a.result(ctx, p), nil
}

func (a *authService) LoginFederated(ctx context.Context, provider string) (*LoginResult, error) {
	p, err := a.identity.SignInFederated(ctx, provider)
	if err != nil {
		return nil, err
	}
	return a.result(ctx, p), nil
}

func (a *authService) result(ctx context.Context, p *models.Principal) *LoginResult {
	res := &LoginResult{Principal: p, LastVisited: DefaultLocation}
	if a.meta == nil {
		return res
	}
	last, err := metadata.LastVisited(ctx, a.meta, p.Email)
	if err != nil {
		a.logger.Warn(ctx, "last visited lookup failed", "email", p.Email, "error", err)
		return res
	}
	if last != "" {
		res.LastVisited = last
	}
	return res
}

func (a *authService) Logout(ctx context.Context) {
	a.identity.SignOut(ctx)
}

func (a *authService) RememberLocation(ctx context.Context, location string) error {
	p := a.identity.Current()
	if p == nil {
		return common.ErrNotSignedIn
	}
	if a.meta == nil {
		return nil
	}
	if err := metadata.RememberLocation(ctx, a.meta, p.Email, strings.TrimSpace(location)); err != nil {
		return fmt.Errorf("remember location: %w", err)
	}
	return nil
}

func (a *authService) Ping(ctx context.Context) error {
	return a.gw.Ping(ctx)
}
