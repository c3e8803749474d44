package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/repairdesk/internal/common"
	"github.com/dmitrijs2005/repairdesk/internal/dbx"
	"github.com/dmitrijs2005/repairdesk/internal/models"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const columns = `id, organization_id, username, full_name, password_hash, role, is_active,
	reset_token, reset_expires, created_at, updated_at, is_synced, is_deleted`

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	u := &models.User{}
	var role string
	err := row.Scan(&u.ID, &u.OrganizationID, &u.Username, &u.FullName, &u.PasswordHash, &role,
		dbx.Flag(&u.IsActive), dbx.Text(&u.ResetToken), dbx.NullTime(&u.ResetExpires),
		dbx.Time(&u.CreatedAt), dbx.Time(&u.UpdatedAt), dbx.Flag(&u.IsSynced), dbx.Flag(&u.IsDeleted))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	u.Role = models.Role(role)
	return u, nil
}

func (r *SQLiteRepository) Insert(ctx context.Context, u *models.User) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO users (`+columns+`) VALUES (`+dbx.Placeholders(13)+`)`,
		u.ID, u.OrganizationID, u.Username, u.FullName, u.PasswordHash, string(u.Role), dbx.Bool(u.IsActive),
		dbx.NullText(u.ResetToken), dbx.NullTimeValue(u.ResetExpires),
		dbx.TimeValue(u.CreatedAt), dbx.TimeValue(u.UpdatedAt), dbx.Bool(u.IsSynced), dbx.Bool(u.IsDeleted))
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Update(ctx context.Context, id string, p models.UserPatch, now time.Time) error {
	var set dbx.Assignments
	if p.FullName != nil {
		set.Add("full_name", *p.FullName)
	}
	if p.Role != nil {
		set.Add("role", string(*p.Role))
	}
	if p.IsActive != nil {
		set.Add("is_active", dbx.Bool(*p.IsActive))
	}
	if p.PasswordHash != nil {
		set.Add("password_hash", *p.PasswordHash)
	}
	return r.update(ctx, id, &set, now)
}

func (r *SQLiteRepository) SetResetToken(ctx context.Context, id, token string, expires *time.Time, now time.Time) error {
	var set dbx.Assignments
	set.Add("reset_token", dbx.NullText(token))
	set.Add("reset_expires", dbx.NullTimeValue(expires))
	return r.update(ctx, id, &set, now)
}

func (r *SQLiteRepository) update(ctx context.Context, id string, set *dbx.Assignments, now time.Time) error {
	set.Add("updated_at", dbx.TimeValue(now))
	set.Raw("is_synced = 0")

	res, err := r.db.ExecContext(ctx, `UPDATE users SET `+set.SQL()+` WHERE id = ? AND is_deleted = 0`, set.Args(id)...)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) SoftDelete(ctx context.Context, id string, now time.Time) error {
	var set dbx.Assignments
	set.Raw("is_deleted = 1")
	return r.update(ctx, id, &set, now)
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return scanUser(r.db.QueryRowContext(ctx, `SELECT `+columns+` FROM users WHERE id = ? AND is_deleted = 0`, id))
}

func (r *SQLiteRepository) GetByUsername(ctx context.Context, orgID, username string) (*models.User, error) {
	return scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+columns+` FROM users WHERE organization_id = ? AND username = ? AND is_deleted = 0 LIMIT 1`,
		orgID, username))
}

func (r *SQLiteRepository) GetByResetToken(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, common.ErrNotFound
	}
	return scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+columns+` FROM users WHERE reset_token = ? AND is_deleted = 0 LIMIT 1`, token))
}

func (r *SQLiteRepository) UsernameTaken(ctx context.Context, orgID, username, excludeID string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE organization_id = ? AND username = ? AND id <> ? AND is_deleted = 0`,
		orgID, username, excludeID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check username: %w", err)
	}
	return n > 0, nil
}

func (r *SQLiteRepository) List(ctx context.Context, orgID string) ([]models.User, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+columns+` FROM users WHERE organization_id = ? AND is_deleted = 0 ORDER BY full_name`, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to select users: %w", err)
	}
	defer rows.Close()

	var result []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
