// Package bootstrap brings a device from Fresh to Ready, either by setting
// up a new shop locally or by restoring an existing shop from the remote
// store.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/repairdesk/internal/common"
	"github.com/dmitrijs2005/repairdesk/internal/cryptox"
	"github.com/dmitrijs2005/repairdesk/internal/dbx"
	"github.com/dmitrijs2005/repairdesk/internal/events"
	"github.com/dmitrijs2005/repairdesk/internal/models"
	"github.com/dmitrijs2005/repairdesk/internal/netx"
	"github.com/dmitrijs2005/repairdesk/internal/remote"
	"github.com/dmitrijs2005/repairdesk/internal/repositories/organizations"
	"github.com/dmitrijs2005/repairdesk/internal/repositories/users"
	"github.com/dmitrijs2005/repairdesk/internal/services"
	"github.com/dmitrijs2005/repairdesk/internal/syncer"
)

type State int

const (
	Fresh State = iota
	Ready
)

func (s State) String() string {
	if s == Ready {
		return "ready"
	}
	return "fresh"
}

type ShopInput struct {
	Name    string
	Phone   string
	Email   string
	Address string
	Terms   string
}

type OwnerInput struct {
	Username string
	FullName string
	Password []byte
}

// Service implements the bootstrap state machine. Deps must come from
// services.NewDeps so the session and event bus are shared with the rest of
// the application.
type Service struct {
	deps   services.Deps
	remote remote.Store
	online netx.Checker
	puller *syncer.Puller
}

// New builds the service. store and online may be nil on devices without a
// remote store; Restore then fails with common.ErrConnectivityUnavailable.
func New(deps services.Deps, store remote.Store, online netx.Checker) *Service {
	s := &Service{deps: deps, remote: store, online: online}
	if store != nil && online != nil {
		s.puller = syncer.NewPuller(deps.DB, store, online, deps.Logger)
	}
	return s
}

func (s *Service) State(ctx context.Context) (State, error) {
	_, err := organizations.NewSQLiteRepository(s.deps.DB).GetCurrent(ctx)
	switch {
	case err == nil:
		return Ready, nil
	case errors.Is(err, common.ErrNotFound):
		return Fresh, nil
	default:
		return Fresh, fmt.Errorf("read organization: %w", err)
	}
}

func (s *Service) requireFresh(ctx context.Context) error {
	st, err := s.State(ctx)
	if err != nil {
		return err
	}
	if st != Fresh {
		return common.ErrAlreadyConfigured
	}
	return nil
}

// Setup creates the shop and its owner account. Both rows are dirty and go
// out with the next push. The owner is signed in on success.
func (s *Service) Setup(ctx context.Context, shop ShopInput, owner OwnerInput) (*models.Organization, *models.User, error) {
	if err := s.requireFresh(ctx); err != nil {
		return nil, nil, err
	}

	shop.Name = strings.TrimSpace(shop.Name)
	owner.Username = strings.TrimSpace(owner.Username)
	owner.FullName = strings.TrimSpace(owner.FullName)
	switch {
	case shop.Name == "":
		return nil, nil, fmt.Errorf("%w: shop name is required", common.ErrInvalidInput)
	case owner.Username == "":
		return nil, nil, fmt.Errorf("%w: username is required", common.ErrInvalidInput)
	case owner.FullName == "":
		return nil, nil, fmt.Errorf("%w: full name is required", common.ErrInvalidInput)
	}
	hash, err := cryptox.HashPassword(owner.Password)
	if err != nil {
		return nil, nil, err
	}

	now := s.deps.Clock.Now()
	org := &models.Organization{
		ID:               s.deps.IDs.NewID(),
		Name:             shop.Name,
		Phone:            strings.TrimSpace(shop.Phone),
		Email:            strings.TrimSpace(shop.Email),
		Address:          strings.TrimSpace(shop.Address),
		Terms:            shop.Terms,
		SubscriptionPlan: models.PlanFree,
		CreatedAt:        now,
	}
	u := &models.User{
		Username:     owner.Username,
		FullName:     owner.FullName,
		PasswordHash: hash,
		Role:         models.RoleOwner,
		IsActive:     true,
	}
	u.Stamp(s.deps.IDs.NewID(), org.ID, now)

	err = dbx.WithTx(ctx, s.deps.DB, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := organizations.NewSQLiteRepository(tx).Insert(ctx, org); err != nil {
			return err
		}
		return users.NewSQLiteRepository(tx).Insert(ctx, u)
	})
	if err != nil {
		return nil, nil, fmt.Errorf("setup: %w", err)
	}

	s.deps.Session.Login(u)
	s.publish(ctx, events.ActionSetup, org.ID, u.ID, "shop "+org.Name+" set up")
	s.deps.Logger.Info(ctx, "organization set up", "organization", org.ID)
	return org, u, nil
}

// Restore authenticates an owner directly against the remote store and
// copies the shop's data onto this device. Nothing is written locally unless
// every step succeeds. The owner is signed in on success.
func (s *Service) Restore(ctx context.Context, username string, password []byte) (*models.Organization, error) {
	if err := s.requireFresh(ctx); err != nil {
		return nil, err
	}
	if s.puller == nil || !s.online.Online(ctx) {
		return nil, common.ErrConnectivityUnavailable
	}

	owner, err := s.remoteOwner(ctx, strings.TrimSpace(username), password)
	if err != nil {
		return nil, err
	}
	orgID, _ := owner["organization_id"].(string)

	rows, err := s.remote.Query(ctx, remote.Statement{
		SQL:  "SELECT * FROM organizations WHERE id = ?",
		Args: []any{orgID},
	})
	if err != nil {
		return nil, fmt.Errorf("restore: fetch organization: %w", err)
	}
	if rows.Len() == 0 {
		return nil, fmt.Errorf("%w: organization %s not found remotely", common.ErrRestoreAuthFailure, orgID)
	}
	org, err := organizationFromRow(rows.Map(0))
	if err != nil {
		return nil, fmt.Errorf("restore: %w", err)
	}
	org.IsSynced = true

	var rep syncer.PullReport
	err = dbx.WithTx(ctx, s.deps.DB, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := organizations.NewSQLiteRepository(tx).Upsert(ctx, org); err != nil {
			return err
		}
		var perr error
		rep, perr = s.puller.PullInto(ctx, tx, org.ID)
		return perr
	})
	if err != nil {
		return nil, fmt.Errorf("restore: %w", err)
	}

	ownerID, _ := owner["id"].(string)
	if u, err := users.NewSQLiteRepository(s.deps.DB).GetByID(ctx, ownerID); err == nil {
		s.deps.Session.Login(u)
	}
	s.publish(ctx, events.ActionRestore, org.ID, ownerID, "device restored from cloud")
	s.deps.Logger.Info(ctx, "organization restored", "organization", org.ID, "rows", rep.Rows)
	return org, nil
}

// remoteOwner finds an active owner account with matching credentials.
// Usernames are unique per organization only, so every candidate is tried.
func (s *Service) remoteOwner(ctx context.Context, username string, password []byte) (map[string]any, error) {
	if username == "" || len(password) == 0 {
		return nil, common.ErrRestoreAuthFailure
	}
	rows, err := s.remote.Query(ctx, remote.Statement{
		SQL:  "SELECT * FROM users WHERE username = ? AND role = ? AND is_deleted = 0",
		Args: []any{username, string(models.RoleOwner)},
	})
	if err != nil {
		return nil, fmt.Errorf("restore: look up owner: %w", err)
	}
	for i := 0; i < rows.Len(); i++ {
		row := rows.Map(i)
		if active, ok := row["is_active"].(int64); ok && active == 0 {
			continue
		}
		hash, _ := row["password_hash"].(string)
		if cryptox.ComparePassword(hash, password) == nil {
			return row, nil
		}
	}
	return nil, common.ErrRestoreAuthFailure
}

func (s *Service) publish(ctx context.Context, action, orgID, userID, details string) {
	s.deps.Bus.Publish(ctx, events.Event{
		Action:         action,
		Entity:         events.EntityOrganization,
		EntityID:       orgID,
		Details:        details,
		OrganizationID: orgID,
		UserID:         userID,
		At:             s.deps.Clock.Now(),
	})
}

func organizationFromRow(row map[string]any) (*models.Organization, error) {
	text := func(k string) string {
		v, _ := row[k].(string)
		return v
	}
	o := &models.Organization{
		ID:               text("id"),
		Name:             text("name"),
		Phone:            text("phone"),
		Email:            text("email"),
		Address:          text("address"),
		Terms:            text("terms"),
		SubscriptionPlan: text("subscription_plan"),
		LogoURL:          text("logo_url"),
	}
	if o.ID == "" {
		return nil, errors.New("remote organization without id")
	}
	if o.SubscriptionPlan == "" {
		o.SubscriptionPlan = models.PlanFree
	}
	created, err := common.ParseTimestamp(text("created_at"))
	if err != nil {
		return nil, fmt.Errorf("organization created_at: %w", err)
	}
	o.CreatedAt = created
	return o, nil
}
