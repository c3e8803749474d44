package auditlogs

import (
	"context"

	"github.com/dmitrijs2005/repairdesk/internal/models"
)

type Repository interface {
	Insert(ctx context.Context, l *models.AuditLog) error
	// List returns the newest entries first. A non-empty search matches
	// action, entity, details or the acting user's name.
	List(ctx context.Context, orgID string, limit int, search string) ([]models.AuditEntry, error)
}
