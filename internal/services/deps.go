// Package services implements the business half of the entity repository
// contract: tenant scoping, input validation, application-level uniqueness
// checks, and domain events emitted after each committed mutation.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/repairdesk/internal/common"
	"github.com/dmitrijs2005/repairdesk/internal/events"
	"github.com/dmitrijs2005/repairdesk/internal/logging"
	"github.com/dmitrijs2005/repairdesk/internal/models"
	"github.com/dmitrijs2005/repairdesk/internal/repositories/organizations"
	"github.com/dmitrijs2005/repairdesk/internal/session"
)

// Deps are the collaborators shared by every service. Zero fields other than
// DB are filled with production defaults by the constructors.
type Deps struct {
	DB      *sql.DB
	Clock   common.Clock
	IDs     common.IDGenerator
	Bus     *events.Bus
	Session *session.Session
	Logger  logging.Logger
}

// NewDeps wires one Bus and one Session for all services built from the
// result. Services built from separately defaulted Deps would not share them.
func NewDeps(db *sql.DB, log logging.Logger) Deps {
	return Deps{DB: db, Logger: log}.withDefaults()
}

func (d Deps) withDefaults() Deps {
	if d.Clock == nil {
		d.Clock = common.SystemClock{}
	}
	if d.IDs == nil {
		d.IDs = common.UUIDGenerator{}
	}
	if d.Logger == nil {
		d.Logger = logging.Nop()
	}
	if d.Bus == nil {
		d.Bus = events.NewBus(d.Logger)
	}
	if d.Session == nil {
		d.Session = session.New()
	}
	return d
}

// tenant resolves the local organization every mutation is scoped to.
func (d Deps) tenant(ctx context.Context) (*models.Organization, error) {
	org, err := organizations.NewSQLiteRepository(d.DB).GetCurrent(ctx)
	if errors.Is(err, common.ErrNotFound) {
		return nil, common.ErrOrganizationNotConfigured
	}
	if err != nil {
		return nil, fmt.Errorf("load organization: %w", err)
	}
	return org, nil
}

func (d Deps) emit(ctx context.Context, orgID, action, entity, entityID, details string) {
	d.Bus.Publish(ctx, events.Event{
		Action:         action,
		Entity:         entity,
		EntityID:       entityID,
		Details:        details,
		OrganizationID: orgID,
		UserID:         d.Session.UserID(),
		At:             d.Clock.Now(),
	})
}

// sameTenant hides rows of other organizations behind ErrNotFound.
func sameTenant(org *models.Organization, rowOrgID string) error {
	if rowOrgID != org.ID {
		return common.ErrNotFound
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", common.ErrInvalidInput, fmt.Sprintf(format, args...))
}
