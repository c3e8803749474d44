package repairs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
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

var columnList = []string{
	"id", "organization_id", "client_id", "assigned_to", "ticket_no", "device_type", "brand", "model",
	"serial_no", "accessories", "issue_description", "diagnosis", "status", "bin_location", "image_paths",
	"internal_cost", "labor_cost", "final_price", "amount_paid", "payment_method", "mpesa_code", "is_paid",
	"created_at", "updated_at", "date_fixed", "date_out", "is_synced", "is_deleted",
}

var (
	columns  = strings.Join(columnList, ", ")
	rColumns = "r." + strings.Join(columnList, ", r.")
)

const viewJoin = ` FROM repairs r
	LEFT JOIN clients c ON c.id = r.client_id
	LEFT JOIN users u ON u.id = r.assigned_to`

func encodeImages(paths []string) (string, error) {
	if paths == nil {
		paths = []string{}
	}
	b, err := json.Marshal(paths)
	if err != nil {
		return "", fmt.Errorf("encode image paths: %w", err)
	}
	return string(b), nil
}

func decodeImages(s string) ([]string, error) {
	if s == "" {
		return []string{}, nil
	}
	var paths []string
	if err := json.Unmarshal([]byte(s), &paths); err != nil {
		return nil, fmt.Errorf("decode image paths: %w", err)
	}
	if paths == nil {
		paths = []string{}
	}
	return paths, nil
}

func repairDest(r *models.Repair, status, images *string) []any {
	return []any{
		&r.ID, &r.OrganizationID, &r.ClientID, dbx.Text(&r.AssignedTo), &r.TicketNo, dbx.Text(&r.DeviceType),
		dbx.Text(&r.Brand), dbx.Text(&r.Model), dbx.Text(&r.SerialNo), dbx.Text(&r.Accessories),
		dbx.Text(&r.IssueDescription), dbx.Text(&r.Diagnosis), status, dbx.Text(&r.BinLocation), dbx.Text(images),
		&r.InternalCost, &r.LaborCost, &r.FinalPrice, &r.AmountPaid, dbx.Text(&r.PaymentMethod),
		dbx.Text(&r.MpesaCode), dbx.Flag(&r.IsPaid), dbx.Time(&r.CreatedAt), dbx.Time(&r.UpdatedAt),
		dbx.NullTime(&r.DateFixed), dbx.NullTime(&r.DateOut), dbx.Flag(&r.IsSynced), dbx.Flag(&r.IsDeleted),
	}
}

func finishRepair(r *models.Repair, status, images string) error {
	r.Status = models.RepairStatus(status)
	paths, err := decodeImages(images)
	if err != nil {
		return err
	}
	r.ImagePaths = paths
	return nil
}

func scanRepair(row interface{ Scan(...any) error }) (*models.Repair, error) {
	r := &models.Repair{}
	var status, images string
	if err := row.Scan(repairDest(r, &status, &images)...); err != nil {
		return nil, err
	}
	return r, finishRepair(r, status, images)
}

func scanView(row interface{ Scan(...any) error }) (*models.RepairView, error) {
	v := &models.RepairView{}
	var status, images string
	dest := append(repairDest(&v.Repair, &status, &images),
		dbx.Text(&v.ClientName), dbx.Text(&v.ClientPhone), dbx.Text(&v.ClientLocation), dbx.Text(&v.AssignedToName))
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	return v, finishRepair(&v.Repair, status, images)
}

func (r *SQLiteRepository) Insert(ctx context.Context, rp *models.Repair) error {
	images, err := encodeImages(rp.ImagePaths)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `INSERT INTO repairs (`+columns+`) VALUES (`+dbx.Placeholders(len(columnList))+`)`,
		rp.ID, rp.OrganizationID, rp.ClientID, dbx.NullText(rp.AssignedTo), rp.TicketNo, rp.DeviceType,
		rp.Brand, rp.Model, rp.SerialNo, rp.Accessories, rp.IssueDescription, rp.Diagnosis, string(rp.Status),
		rp.BinLocation, images, rp.InternalCost, rp.LaborCost, rp.FinalPrice, rp.AmountPaid, rp.PaymentMethod,
		rp.MpesaCode, dbx.Bool(rp.IsPaid), dbx.TimeValue(rp.CreatedAt), dbx.TimeValue(rp.UpdatedAt),
		dbx.NullTimeValue(rp.DateFixed), dbx.NullTimeValue(rp.DateOut), dbx.Bool(rp.IsSynced), dbx.Bool(rp.IsDeleted))
	if err != nil {
		return fmt.Errorf("failed to insert repair: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Update(ctx context.Context, id string, p models.RepairPatch, now time.Time) error {
	var set dbx.Assignments
	addText := func(col string, v *string) {
		if v != nil {
			set.Add(col, *v)
		}
	}
	addMoney := func(col string, v *float64) {
		if v != nil {
			set.Add(col, *v)
		}
	}

	if p.AssignedTo != nil {
		set.Add("assigned_to", dbx.NullText(*p.AssignedTo))
	}
	addText("device_type", p.DeviceType)
	addText("brand", p.Brand)
	addText("model", p.Model)
	addText("serial_no", p.SerialNo)
	addText("accessories", p.Accessories)
	addText("issue_description", p.IssueDescription)
	addText("diagnosis", p.Diagnosis)
	if p.Status != nil {
		set.Add("status", string(*p.Status))
	}
	addText("bin_location", p.BinLocation)
	if p.ImagePaths != nil {
		images, err := encodeImages(*p.ImagePaths)
		if err != nil {
			return err
		}
		set.Add("image_paths", images)
	}
	addMoney("internal_cost", p.InternalCost)
	addMoney("labor_cost", p.LaborCost)
	addMoney("final_price", p.FinalPrice)
	addMoney("amount_paid", p.AmountPaid)
	addText("payment_method", p.PaymentMethod)
	addText("mpesa_code", p.MpesaCode)
	if p.IsPaid != nil {
		set.Add("is_paid", dbx.Bool(*p.IsPaid))
	}
	if p.DateFixed != nil {
		set.Add("date_fixed", dbx.TimeValue(*p.DateFixed))
	}
	if p.DateOut != nil {
		set.Add("date_out", dbx.TimeValue(*p.DateOut))
	}
	set.Add("updated_at", dbx.TimeValue(now))
	set.Raw("is_synced = 0")

	res, err := r.db.ExecContext(ctx, `UPDATE repairs SET `+set.SQL()+` WHERE id = ? AND is_deleted = 0`, set.Args(id)...)
	if err != nil {
		return fmt.Errorf("failed to update repair: %w", err)
	}
	return expectOne(res)
}

func (r *SQLiteRepository) SoftDelete(ctx context.Context, id string, now time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE repairs SET is_deleted = 1, updated_at = ?, is_synced = 0 WHERE id = ? AND is_deleted = 0`,
		dbx.TimeValue(now), id)
	if err != nil {
		return fmt.Errorf("failed to delete repair: %w", err)
	}
	return expectOne(res)
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.Repair, error) {
	rp, err := scanRepair(r.db.QueryRowContext(ctx, `SELECT `+columns+` FROM repairs WHERE id = ? AND is_deleted = 0`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get repair: %w", err)
	}
	return rp, nil
}

func (r *SQLiteRepository) GetView(ctx context.Context, id string) (*models.RepairView, error) {
	v, err := scanView(r.db.QueryRowContext(ctx,
		`SELECT `+rColumns+`, c.full_name, c.phone, c.location, u.full_name`+viewJoin+`
		 WHERE r.id = ? AND r.is_deleted = 0`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get repair: %w", err)
	}
	return v, nil
}

func (r *SQLiteRepository) GetByTicket(ctx context.Context, orgID, ticketNo string) (*models.RepairView, error) {
	v, err := scanView(r.db.QueryRowContext(ctx,
		`SELECT `+rColumns+`, c.full_name, c.phone, c.location, u.full_name`+viewJoin+`
		 WHERE r.organization_id = ? AND r.ticket_no = ? AND r.is_deleted = 0`, orgID, ticketNo))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get repair by ticket: %w", err)
	}
	return v, nil
}

func (r *SQLiteRepository) TicketExists(ctx context.Context, orgID, ticketNo string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM repairs WHERE organization_id = ? AND ticket_no = ?`, orgID, ticketNo).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check ticket: %w", err)
	}
	return n > 0, nil
}

func (r *SQLiteRepository) List(ctx context.Context, orgID string, f models.RepairFilter) ([]models.RepairView, error) {
	where := []string{"r.organization_id = ?", "r.is_deleted = 0"}
	args := []any{orgID}
	if f.Status != "" {
		where = append(where, "r.status = ?")
		args = append(args, string(f.Status))
	}
	if f.ActiveOnly {
		where = append(where, "r.status <> ?")
		args = append(args, string(models.StatusCollected))
	}
	if f.ClientID != "" {
		where = append(where, "r.client_id = ?")
		args = append(args, f.ClientID)
	}
	limit := f.Limit
	if limit <= 0 {
		limit = -1
	}
	args = append(args, limit)

	return r.views(ctx, `SELECT `+rColumns+`, c.full_name, c.phone, c.location, u.full_name`+viewJoin+`
		WHERE `+strings.Join(where, " AND ")+`
		ORDER BY r.created_at DESC LIMIT ?`, args...)
}

// ListByClient is the client's repair history, newest first.
func (r *SQLiteRepository) ListByClient(ctx context.Context, orgID, clientID string) ([]models.RepairView, error) {
	return r.List(ctx, orgID, models.RepairFilter{ClientID: clientID})
}

func (r *SQLiteRepository) Search(ctx context.Context, orgID, query string, limit int) ([]models.RepairView, error) {
	p := dbx.LikePattern(query)
	return r.views(ctx, `SELECT `+rColumns+`, c.full_name, c.phone, c.location, u.full_name`+viewJoin+`
		WHERE r.organization_id = ? AND r.is_deleted = 0
		  AND (r.ticket_no LIKE ? ESCAPE '\' OR r.serial_no LIKE ? ESCAPE '\'
		       OR c.full_name LIKE ? ESCAPE '\' OR c.phone LIKE ? ESCAPE '\')
		ORDER BY r.created_at DESC LIMIT ?`, orgID, p, p, p, p, limit)
}

func (r *SQLiteRepository) Overstayed(ctx context.Context, orgID string, cutoff time.Time) ([]models.RepairView, error) {
	return r.views(ctx, `SELECT `+rColumns+`, c.full_name, c.phone, c.location, u.full_name`+viewJoin+`
		WHERE r.organization_id = ? AND r.is_deleted = 0 AND r.status = ?
		  AND r.date_fixed IS NOT NULL AND r.date_fixed < ?
		ORDER BY r.date_fixed`, orgID, string(models.StatusFixed), dbx.TimeValue(cutoff))
}

func (r *SQLiteRepository) RevenueStats(ctx context.Context, orgID, month string) (*models.RevenueStats, error) {
	stats := &models.RevenueStats{Month: month}
	err := r.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(final_price), 0),
			COALESCE(SUM(final_price - internal_cost), 0),
			COALESCE(SUM(CASE WHEN status = ? AND amount_paid < final_price THEN final_price - amount_paid ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0)
		FROM repairs
		WHERE organization_id = ? AND is_deleted = 0 AND created_at LIKE ?`,
		string(models.StatusCollected), string(models.StatusCollected), orgID, month+"-%").
		Scan(&stats.Revenue, &stats.Profit, &stats.OutstandingDebt, &stats.Collected)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate revenue: %w", err)
	}
	return stats, nil
}

func (r *SQLiteRepository) views(ctx context.Context, q string, args ...any) ([]models.RepairView, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select repairs: %w", err)
	}
	defer rows.Close()

	var result []models.RepairView
	for rows.Next() {
		v, err := scanView(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan repair: %w", err)
		}
		result = append(result, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
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
