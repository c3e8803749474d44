package services

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/repairdesk/internal/common"
	"github.com/dmitrijs2005/repairdesk/internal/events"
	"github.com/dmitrijs2005/repairdesk/internal/models"
	"github.com/dmitrijs2005/repairdesk/internal/repositories/auditlogs"
)

const defaultAuditLimit = 100

type AuditService interface {
	// Record is an events.Handler that appends the event to the audit trail.
	Record(ctx context.Context, e events.Event) error
	List(ctx context.Context, limit int, search string) ([]models.AuditEntry, error)
}

type auditService struct {
	deps Deps
}

// NewAuditService builds the audit trail and subscribes it to deps.Bus.
func NewAuditService(deps Deps) AuditService {
	s := &auditService{deps: deps.withDefaults()}
	s.deps.Bus.Subscribe(s.Record)
	return s
}

func (s *auditService) Record(ctx context.Context, e events.Event) error {
	orgID := e.OrganizationID
	if orgID == "" {
		org, err := s.deps.tenant(ctx)
		if errors.Is(err, common.ErrOrganizationNotConfigured) {
			return nil
		}
		if err != nil {
			return err
		}
		orgID = org.ID
	}
	at := e.At
	if at.IsZero() {
		at = s.deps.Clock.Now()
	}
	return auditlogs.NewSQLiteRepository(s.deps.DB).Insert(ctx, &models.AuditLog{
		ID:             s.deps.IDs.NewID(),
		OrganizationID: orgID,
		UserID:         e.UserID,
		Action:         e.Action,
		Entity:         e.Entity,
		EntityID:       e.EntityID,
		Details:        e.Details,
		Timestamp:      at,
	})
}

func (s *auditService) List(ctx context.Context, limit int, search string) ([]models.AuditEntry, error) {
	org, err := s.deps.tenant(ctx)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultAuditLimit
	}
	return auditlogs.NewSQLiteRepository(s.deps.DB).List(ctx, org.ID, limit, search)
}
