package organizations

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

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

const selectColumns = `id, name, phone, email, address, terms, subscription_plan, logo_url, created_at, is_synced`

func scanOrganization(row interface{ Scan(...any) error }) (*models.Organization, error) {
	o := &models.Organization{}
	err := row.Scan(&o.ID, &o.Name, dbx.Text(&o.Phone), dbx.Text(&o.Email), dbx.Text(&o.Address),
		dbx.Text(&o.Terms), dbx.Text(&o.SubscriptionPlan), dbx.Text(&o.LogoURL),
		dbx.Time(&o.CreatedAt), dbx.Flag(&o.IsSynced))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan organization: %w", err)
	}
	return o, nil
}

func (r *SQLiteRepository) Get(ctx context.Context, id string) (*models.Organization, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM organizations WHERE id = ?`, id)
	return scanOrganization(row)
}

func (r *SQLiteRepository) GetCurrent(ctx context.Context) (*models.Organization, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM organizations ORDER BY created_at LIMIT 1`)
	return scanOrganization(row)
}

func (r *SQLiteRepository) Insert(ctx context.Context, o *models.Organization) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO organizations (`+selectColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.ID, o.Name, o.Phone, o.Email, o.Address, o.Terms, o.SubscriptionPlan, o.LogoURL,
		dbx.TimeValue(o.CreatedAt), dbx.Bool(o.IsSynced))
	if err != nil {
		return fmt.Errorf("failed to insert organization: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Update(ctx context.Context, id string, p models.OrganizationPatch) error {
	var set dbx.Assignments
	if p.Name != nil {
		set.Add("name", *p.Name)
	}
	if p.Phone != nil {
		set.Add("phone", *p.Phone)
	}
	if p.Email != nil {
		set.Add("email", *p.Email)
	}
	if p.Address != nil {
		set.Add("address", *p.Address)
	}
	if p.Terms != nil {
		set.Add("terms", *p.Terms)
	}
	if p.SubscriptionPlan != nil {
		set.Add("subscription_plan", *p.SubscriptionPlan)
	}
	if p.LogoURL != nil {
		set.Add("logo_url", *p.LogoURL)
	}
	set.Raw("is_synced = 0")

	res, err := r.db.ExecContext(ctx, `UPDATE organizations SET `+set.SQL()+` WHERE id = ?`, set.Args(id)...)
	if err != nil {
		return fmt.Errorf("failed to update organization: %w", err)
	}
	return expectOne(res)
}

func (r *SQLiteRepository) Upsert(ctx context.Context, o *models.Organization) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO organizations (`+selectColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			phone = excluded.phone,
			email = excluded.email,
			address = excluded.address,
			terms = excluded.terms,
			subscription_plan = excluded.subscription_plan,
			logo_url = excluded.logo_url,
			created_at = excluded.created_at,
			is_synced = excluded.is_synced`,
		o.ID, o.Name, o.Phone, o.Email, o.Address, o.Terms, o.SubscriptionPlan, o.LogoURL,
		dbx.TimeValue(o.CreatedAt), dbx.Bool(o.IsSynced))
	if err != nil {
		return fmt.Errorf("failed to upsert organization: %w", err)
	}
	return nil
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
