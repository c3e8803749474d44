package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/repairdesk/internal/common"
	"github.com/dmitrijs2005/repairdesk/internal/cryptox"
	"github.com/dmitrijs2005/repairdesk/internal/dbx"
	"github.com/dmitrijs2005/repairdesk/internal/events"
	"github.com/dmitrijs2005/repairdesk/internal/models"
	"github.com/dmitrijs2005/repairdesk/internal/repositories/users"
)

// ResetTokenTTL bounds how long a password reset token stays valid.
const ResetTokenTTL = time.Hour

type UserInput struct {
	Username string
	FullName string
	Password string
	Role     models.Role
}

type UserService interface {
	Create(ctx context.Context, in UserInput) (string, error)
	Update(ctx context.Context, id string, p models.UserPatch) error
	SoftDelete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	List(ctx context.Context) ([]models.User, error)

	// Authenticate checks credentials against the local store only. Unknown,
	// inactive and deleted accounts are all reported as common.ErrUnauthorized.
	Authenticate(ctx context.Context, username string, password []byte) (*models.User, error)

	// RequestPasswordReset issues a one-hour token for the account. Delivering
	// it to the user is up to the caller.
	RequestPasswordReset(ctx context.Context, username string) (string, error)
	ResetPassword(ctx context.Context, token, newPassword string) error
}

type userService struct {
	deps Deps
}

func NewUserService(deps Deps) UserService {
	return &userService{deps: deps.withDefaults()}
}

// requireManager allows staff administration only to owners and admins.
func (s *userService) requireManager() error {
	u := s.deps.Session.User()
	if u == nil || !u.Role.CanManageUsers() {
		return common.ErrUnauthorized
	}
	return nil
}

func (s *userService) Create(ctx context.Context, in UserInput) (string, error) {
	org, err := s.deps.tenant(ctx)
	if err != nil {
		return "", err
	}
	if err := s.requireManager(); err != nil {
		return "", err
	}

	in.Username = strings.TrimSpace(in.Username)
	in.FullName = strings.TrimSpace(in.FullName)
	switch {
	case in.Username == "":
		return "", invalid("username is required")
	case in.FullName == "":
		return "", invalid("full name is required")
	case !in.Role.Valid():
		return "", invalid("unknown role %q", in.Role)
	}

	hash, err := cryptox.HashPassword([]byte(in.Password))
	if err != nil {
		return "", err
	}

	u := &models.User{
		Username:     in.Username,
		FullName:     in.FullName,
		PasswordHash: hash,
		Role:         in.Role,
		IsActive:     true,
	}
	u.Stamp(s.deps.IDs.NewID(), org.ID, s.deps.Clock.Now())

	err = dbx.WithTx(ctx, s.deps.DB, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := users.NewSQLiteRepository(tx)
		taken, err := repo.UsernameTaken(ctx, org.ID, u.Username, "")
		if err != nil {
			return err
		}
		if taken {
			return &common.DuplicateEntityError{Entity: "user", Field: "username", Value: u.Username}
		}
		return repo.Insert(ctx, u)
	})
	if err != nil {
		return "", err
	}

	s.deps.emit(ctx, org.ID, events.ActionCreate, events.EntityUser, u.ID,
		fmt.Sprintf("Created user %s (%s)", u.Username, u.Role))
	return u.ID, nil
}

func (s *userService) Update(ctx context.Context, id string, p models.UserPatch) error {
	org, err := s.deps.tenant(ctx)
	if err != nil {
		return err
	}
	if err := s.requireManager(); err != nil {
		return err
	}
	if p.Role != nil && !p.Role.Valid() {
		return invalid("unknown role %q", *p.Role)
	}
	if p.FullName != nil && strings.TrimSpace(*p.FullName) == "" {
		return invalid("full name is required")
	}
	if p.Password != nil {
		hash, err := cryptox.HashPassword([]byte(*p.Password))
		if err != nil {
			return err
		}
		p.PasswordHash = &hash
		p.Password = nil
	}

	repo := users.NewSQLiteRepository(s.deps.DB)
	u, err := repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := sameTenant(org, u.OrganizationID); err != nil {
		return err
	}
	if err := repo.Update(ctx, id, p, s.deps.Clock.Now()); err != nil {
		return err
	}

	s.deps.emit(ctx, org.ID, events.ActionUpdate, events.EntityUser, id, "Updated user "+u.Username)
	return nil
}

func (s *userService) SoftDelete(ctx context.Context, id string) error {
	org, err := s.deps.tenant(ctx)
	if err != nil {
		return err
	}
	if err := s.requireManager(); err != nil {
		return err
	}
	if id == s.deps.Session.UserID() {
		return invalid("cannot delete the signed-in user")
	}

	repo := users.NewSQLiteRepository(s.deps.DB)
	u, err := repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := sameTenant(org, u.OrganizationID); err != nil {
		return err
	}
	if err := repo.SoftDelete(ctx, id, s.deps.Clock.Now()); err != nil {
		return err
	}

	s.deps.emit(ctx, org.ID, events.ActionDelete, events.EntityUser, id, "Deleted user "+u.Username)
	return nil
}

func (s *userService) GetByID(ctx context.Context, id string) (*models.User, error) {
	org, err := s.deps.tenant(ctx)
	if err != nil {
		return nil, err
	}
	u, err := users.NewSQLiteRepository(s.deps.DB).GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := sameTenant(org, u.OrganizationID); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *userService) List(ctx context.Context) ([]models.User, error) {
	org, err := s.deps.tenant(ctx)
	if err != nil {
		return nil, err
	}
	return users.NewSQLiteRepository(s.deps.DB).List(ctx, org.ID)
}

func (s *userService) Authenticate(ctx context.Context, username string, password []byte) (*models.User, error) {
	org, err := s.deps.tenant(ctx)
	if err != nil {
		return nil, err
	}
	u, err := users.NewSQLiteRepository(s.deps.DB).GetByUsername(ctx, org.ID, strings.TrimSpace(username))
	if errors.Is(err, common.ErrNotFound) {
		return nil, common.ErrUnauthorized
	}
	if err != nil {
		return nil, err
	}
	if !u.IsActive {
		return nil, common.ErrUnauthorized
	}
	if err := cryptox.ComparePassword(u.PasswordHash, password); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *userService) RequestPasswordReset(ctx context.Context, username string) (string, error) {
	org, err := s.deps.tenant(ctx)
	if err != nil {
		return "", err
	}
	repo := users.NewSQLiteRepository(s.deps.DB)
	u, err := repo.GetByUsername(ctx, org.ID, strings.TrimSpace(username))
	if err != nil {
		return "", err
	}

	token, err := common.MakeRandHexString(16)
	if err != nil {
		return "", fmt.Errorf("generate reset token: %w", err)
	}
	now := s.deps.Clock.Now()
	expires := now.Add(ResetTokenTTL)
	if err := repo.SetResetToken(ctx, u.ID, cryptox.HashToken(token), &expires, now); err != nil {
		return "", err
	}

	s.deps.emit(ctx, org.ID, events.ActionPwdReset, events.EntityUser, u.ID, "Password reset requested for "+u.Username)
	return token, nil
}

func (s *userService) ResetPassword(ctx context.Context, token, newPassword string) error {
	org, err := s.deps.tenant(ctx)
	if err != nil {
		return err
	}
	hash, err := cryptox.HashPassword([]byte(newPassword))
	if err != nil {
		return err
	}

	now := s.deps.Clock.Now()
	var u *models.User
	err = dbx.WithTx(ctx, s.deps.DB, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := users.NewSQLiteRepository(tx)
		found, err := repo.GetByResetToken(ctx, cryptox.HashToken(token))
		if errors.Is(err, common.ErrNotFound) {
			return common.ErrUnauthorized
		}
		if err != nil {
			return err
		}
		u = found
		if u.OrganizationID != org.ID || u.ResetExpires == nil || !now.Before(*u.ResetExpires) {
			return common.ErrUnauthorized
		}
		if err := repo.Update(ctx, u.ID, models.UserPatch{PasswordHash: &hash}, now); err != nil {
			return err
		}
		return repo.SetResetToken(ctx, u.ID, "", nil, now)
	})
	if err != nil {
		return err
	}

	s.deps.emit(ctx, org.ID, events.ActionPwdReset, events.EntityUser, u.ID, "Password reset for "+u.Username)
	return nil
}
