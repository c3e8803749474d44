package clients

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

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository returns a new SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const columns = `id, organization_id, full_name, phone, email, location, created_at, updated_at, is_synced, is_deleted`

type scanner interface{ Scan(...any) error }

func scanClient(row scanner) (*models.Client, error) {
	c := &models.Client{}
	err := row.Scan(&c.ID, &c.OrganizationID, &c.FullName, &c.Phone, dbx.Text(&c.Email), dbx.Text(&c.Location),
		dbx.Time(&c.CreatedAt), dbx.Time(&c.UpdatedAt), dbx.Flag(&c.IsSynced), dbx.Flag(&c.IsDeleted))
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *SQLiteRepository) Insert(ctx context.Context, c *models.Client) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO clients (`+columns+`) VALUES (`+dbx.Placeholders(10)+`)`,
		c.ID, c.OrganizationID, c.FullName, c.Phone, c.Email, c.Location,
		dbx.TimeValue(c.CreatedAt), dbx.TimeValue(c.UpdatedAt), dbx.Bool(c.IsSynced), dbx.Bool(c.IsDeleted))
	if err != nil {
		return fmt.Errorf("failed to insert client: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Update(ctx context.Context, id string, p models.ClientPatch, now time.Time) error {
	var set dbx.Assignments
	if p.FullName != nil {
		set.Add("full_name", *p.FullName)
	}
	if p.Phone != nil {
		set.Add("phone", *p.Phone)
	}
	if p.Email != nil {
		set.Add("email", *p.Email)
	}
	if p.Location != nil {
		set.Add("location", *p.Location)
	}
	set.Add("updated_at", dbx.TimeValue(now))
	set.Raw("is_synced = 0")

	res, err := r.db.ExecContext(ctx, `UPDATE clients SET `+set.SQL()+` WHERE id = ? AND is_deleted = 0`, set.Args(id)...)
	if err != nil {
		return fmt.Errorf("failed to update client: %w", err)
	}
	return expectOne(res)
}

func (r *SQLiteRepository) SoftDelete(ctx context.Context, id string, now time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE clients SET is_deleted = 1, updated_at = ?, is_synced = 0 WHERE id = ? AND is_deleted = 0`,
		dbx.TimeValue(now), id)
	if err != nil {
		return fmt.Errorf("failed to delete client: %w", err)
	}
	return expectOne(res)
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.Client, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+columns+` FROM clients WHERE id = ? AND is_deleted = 0`, id)
	return one(scanClient(row))
}

func (r *SQLiteRepository) GetByPhone(ctx context.Context, orgID, phone string) (*models.Client, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+columns+` FROM clients WHERE organization_id = ? AND phone = ? AND is_deleted = 0 LIMIT 1`,
		orgID, phone)
	return one(scanClient(row))
}

func (r *SQLiteRepository) PhoneTaken(ctx context.Context, orgID, phone, excludeID string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM clients WHERE organization_id = ? AND phone = ? AND id <> ? AND is_deleted = 0`,
		orgID, phone, excludeID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check client phone: %w", err)
	}
	return n > 0, nil
}

func (r *SQLiteRepository) List(ctx context.Context, orgID string, limit int) ([]models.Client, error) {
	return r.query(ctx,
		`SELECT `+columns+` FROM clients WHERE organization_id = ? AND is_deleted = 0
		 ORDER BY created_at DESC LIMIT ?`, orgID, limit)
}

func (r *SQLiteRepository) Search(ctx context.Context, orgID, query string, limit int) ([]models.Client, error) {
	pattern := dbx.LikePattern(query)
	return r.query(ctx,
		`SELECT `+columns+` FROM clients
		 WHERE organization_id = ? AND is_deleted = 0
		   AND (phone LIKE ? ESCAPE '\' OR full_name LIKE ? ESCAPE '\')
		 ORDER BY full_name LIMIT ?`, orgID, pattern, pattern, limit)
}

func (r *SQLiteRepository) query(ctx context.Context, q string, args ...any) ([]models.Client, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select clients: %w", err)
	}
	defer rows.Close()

	var result []models.Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan client: %w", err)
		}
		result = append(result, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func one(c *models.Client, err error) (*models.Client, error) {
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query row scan failed: %w", err)
	}
	return c, nil
}

func expectOne(res sql.Result) error {
	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra == 0 {
		return common.ErrNotFound
	}
	return nil
}
