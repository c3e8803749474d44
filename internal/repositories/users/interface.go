package users

import (
	"context"
	"time"

	"github.com/dmitrijs2005/repairdesk/internal/models"
)

// Repository stores staff accounts. Reads skip soft-deleted users.
type Repository interface {
	Insert(ctx context.Context, u *models.User) error
	Update(ctx context.Context, id string, p models.UserPatch, now time.Time) error
	SoftDelete(ctx context.Context, id string, now time.Time) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByUsername(ctx context.Context, orgID, username string) (*models.User, error)
	UsernameTaken(ctx context.Context, orgID, username, excludeID string) (bool, error)
	List(ctx context.Context, orgID string) ([]models.User, error)

	// SetResetToken stores a password reset token. An empty token clears it.
	SetResetToken(ctx context.Context, id, token string, expires *time.Time, now time.Time) error
	GetByResetToken(ctx context.Context, token string) (*models.User, error)
}
