package organizations

import (
	"context"

	"github.com/dmitrijs2005/repairdesk/internal/models"
)

// Repository persists the single local Organization row.
type Repository interface {
	// Get returns the organization by id or common.ErrNotFound.
	Get(ctx context.Context, id string) (*models.Organization, error)

	// GetCurrent returns the installation's organization or common.ErrNotFound
	// when the device has not been set up or restored yet.
	GetCurrent(ctx context.Context) (*models.Organization, error)

	// Insert stores a new organization as given, including its sync flag.
	Insert(ctx context.Context, o *models.Organization) error

	// Update applies the patch and marks the row dirty.
	Update(ctx context.Context, id string, p models.OrganizationPatch) error

	// Upsert writes o by id, overwriting every column. Used by restore.
	Upsert(ctx context.Context, o *models.Organization) error
}
