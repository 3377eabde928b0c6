package services

import (
	"context"
	"errors"
	"testing"

	"github.com/dmitrijs2005/foodshare/internal/client/identity"
	"github.com/dmitrijs2005/foodshare/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister_CreatesProfileAndSignsOut(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	err := h.svc.Auth.Register(ctx, RegisterInput{
		Name:     "<b>Ann</b>",
		Email:    "ann@x.io",
		Password: "Aa1234",
		Avatar:   "https://img.example/ann.png",
	})
	require.NoError(t, err)

	assert.Nil(t, h.identity.Current())
	assert.Equal(t, 1, h.identity.signOuts)
	require.Len(t, h.gw.createdProfiles, 1)
	p := h.gw.createdProfiles[0]
	assert.Equal(t, "ann@x.io", p.Email)
	assert.Equal(t, "Ann", p.Name)
	assert.Equal(t, "https://img.example/ann.png", p.AvatarURL)
	assert.False(t, p.MembershipActive)
	assert.Zero(t, p.PostCount)
}

func TestRegister_SignUpErrorStopsFlow(t *testing.T) {
	h := newHarness(t)
	h.identity.signUpErr = identity.ErrEmailInUse

	err := h.svc.Auth.Register(context.Background(), RegisterInput{Name: "Ann", Email: "ann@x.io", Password: "Aa1234"})
	require.ErrorIs(t, err, identity.ErrEmailInUse)
	assert.Empty(t, h.gw.createdProfiles)
}

func TestRegister_LocalAvatarWithoutStorage(t *testing.T) {
	h := newHarness(t)

	err := h.svc.Auth.Register(context.Background(), RegisterInput{Name: "Ann", Email: "ann@x.io", Password: "Aa1234", Avatar: "/tmp/me.png"})
	require.Error(t, err)
	assert.Empty(t, h.gw.createdProfiles)
}

func TestRegister_RequiresName(t *testing.T) {
	h := newHarness(t)
	err := h.svc.Auth.Register(context.Background(), RegisterInput{Email: "ann@x.io", Password: "Aa1234"})
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestLogin_ReturnsLastVisited(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	res, err := h.svc.Auth.Login(ctx, "ann@x.io", "Aa1234")
	require.NoError(t, err)
	assert.Equal(t, DefaultLocation, res.LastVisited)

	require.NoError(t, h.svc.Auth.RememberLocation(ctx, "/food/srv-7"))
	h.svc.Auth.Logout(ctx)
	assert.Nil(t, h.identity.Current())

	res, err = h.svc.Auth.Login(ctx, "Ann@X.io", "Aa1234")
	require.NoError(t, err)
	assert.Equal(t, "/food/srv-7", res.LastVisited)
}

func TestLogin_Error(t *testing.T) {
	h := newHarness(t)
	h.identity.signInErr = identity.ErrInvalidCredentials

	_, err := h.svc.Auth.Login(context.Background(), "ann@x.io", "bad")
	assert.ErrorIs(t, err, identity.ErrInvalidCredentials)
}

func TestLoginFederated(t *testing.T) {
	h := newHarness(t)
	res, err := h.svc.Auth.LoginFederated(context.Background(), "google")
	require.NoError(t, err)
	assert.Equal(t, "fed@x.io", res.Principal.Email)
	assert.Equal(t, DefaultLocation, res.LastVisited)
}

func TestRememberLocation_RequiresSignIn(t *testing.T) {
	h := newHarness(t)
	err := h.svc.Auth.RememberLocation(context.Background(), "/x")
	assert.ErrorIs(t, err, common.ErrNotSignedIn)
}

func TestPing(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.svc.Auth.Ping(context.Background()))

	h.gw.pingErr = errors.New("down")
	assert.Error(t, h.svc.Auth.Ping(context.Background()))
}
