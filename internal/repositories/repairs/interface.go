package repairs

import (
	"context"
	"time"

	"github.com/dmitrijs2005/repairdesk/internal/models"
)

// Repository stores repair tickets. Reads skip soft-deleted repairs; joined
// views skip repairs whose client was soft-deleted only when stated.
type Repository interface {
	Insert(ctx context.Context, r *models.Repair) error
	Update(ctx context.Context, id string, p models.RepairPatch, now time.Time) error
	SoftDelete(ctx context.Context, id string, now time.Time) error

	GetByID(ctx context.Context, id string) (*models.Repair, error)
	GetView(ctx context.Context, id string) (*models.RepairView, error)
	GetByTicket(ctx context.Context, orgID, ticketNo string) (*models.RepairView, error)
	TicketExists(ctx context.Context, orgID, ticketNo string) (bool, error)

	List(ctx context.Context, orgID string, f models.RepairFilter) ([]models.RepairView, error)
	ListByClient(ctx context.Context, orgID, clientID string) ([]models.RepairView, error)

	// Search matches ticket number, serial number, client name or phone.
	Search(ctx context.Context, orgID, query string, limit int) ([]models.RepairView, error)

	// Overstayed returns Fixed repairs whose date_fixed is before cutoff.
	Overstayed(ctx context.Context, orgID string, cutoff time.Time) ([]models.RepairView, error)

	// RevenueStats aggregates repairs created in month ("YYYY-MM", UTC).
	RevenueStats(ctx context.Context, orgID, month string) (*models.RevenueStats, error)
}
