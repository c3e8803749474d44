package clients

import (
	"context"
	"time"

	"github.com/dmitrijs2005/repairdesk/internal/models"
)

type Repository interface {
	Insert(ctx context.Context, c *models.Client) error

	// Update applies the patch, stamps updated_at with now and marks the
	// row dirty. Missing or deleted rows yield common.ErrNotFound.
	Update(ctx context.Context, id string, p models.ClientPatch, now time.Time) error

	SoftDelete(ctx context.Context, id string, now time.Time) error

	GetByID(ctx context.Context, id string) (*models.Client, error)
	GetByPhone(ctx context.Context, orgID, phone string) (*models.Client, error)

	// PhoneTaken reports whether a live client other than excludeID uses phone.
	PhoneTaken(ctx context.Context, orgID, phone, excludeID string) (bool, error)

	List(ctx context.Context, orgID string, limit int) ([]models.Client, error)

	// Search matches phone or full name by substring.
	Search(ctx context.Context, orgID, query string, limit int) ([]models.Client, error)
}
