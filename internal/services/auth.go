package services

import (
	"context"

	"github.com/dmitrijs2005/repairdesk/internal/common"
	"github.com/dmitrijs2005/repairdesk/internal/events"
	"github.com/dmitrijs2005/repairdesk/internal/models"
)

// AuthService signs operators in and out of the shared Session.
type AuthService interface {
	Login(ctx context.Context, username string, password []byte) (*models.User, error)
	Logout(ctx context.Context) error
}

type authService struct {
	deps  Deps
	users UserService
}

func NewAuthService(deps Deps) AuthService {
	deps = deps.withDefaults()
	return &authService{deps: deps, users: NewUserService(deps)}
}

func (a *authService) Login(ctx context.Context, username string, password []byte) (*models.User, error) {
	u, err := a.users.Authenticate(ctx, username, password)
	if err != nil {
		return nil, err
	}
	a.deps.Session.Login(u)
	a.deps.emit(ctx, u.OrganizationID, events.ActionLogin, events.EntityUser, u.ID, u.Username+" logged in")
	return u, nil
}

func (a *authService) Logout(ctx context.Context) error {
	u := a.deps.Session.User()
	if u == nil {
		return common.ErrUnauthorized
	}
	a.deps.emit(ctx, u.OrganizationID, events.ActionLogout, events.EntityUser, u.ID, u.Username+" logged out")
	a.deps.Session.Logout()
	return nil
}
