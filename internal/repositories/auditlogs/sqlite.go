// Package auditlogs stores the append-only audit trail.
package auditlogs

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/repairdesk/internal/dbx"
	"github.com/dmitrijs2005/repairdesk/internal/models"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Insert(ctx context.Context, l *models.AuditLog) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO audit_logs (id, organization_id, user_id, action, entity, entity_id, details, timestamp, is_synced)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID, l.OrganizationID, dbx.NullText(l.UserID), l.Action, l.Entity, dbx.NullText(l.EntityID),
		dbx.NullText(l.Details), dbx.TimeValue(l.Timestamp), dbx.Bool(l.IsSynced))
	if err != nil {
		return fmt.Errorf("failed to insert audit log: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) List(ctx context.Context, orgID string, limit int, search string) ([]models.AuditEntry, error) {
	q := `
		SELECT a.id, a.organization_id, a.user_id, a.action, a.entity, a.entity_id, a.details, a.timestamp,
		       a.is_synced, u.full_name
		FROM audit_logs a
		LEFT JOIN users u ON u.id = a.user_id
		WHERE a.organization_id = ?`
	args := []any{orgID}
	if search != "" {
		p := dbx.LikePattern(search)
		q += ` AND (a.action LIKE ? ESCAPE '\' OR a.entity LIKE ? ESCAPE '\'
		        OR a.details LIKE ? ESCAPE '\' OR u.full_name LIKE ? ESCAPE '\')`
		args = append(args, p, p, p, p)
	}
	if limit <= 0 {
		limit = -1
	}
	q += ` ORDER BY a.timestamp DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select audit logs: %w", err)
	}
	defer rows.Close()

	var result []models.AuditEntry
	for rows.Next() {
		var e models.AuditEntry
		if err := rows.Scan(&e.ID, &e.OrganizationID, dbx.Text(&e.UserID), &e.Action, &e.Entity,
			dbx.Text(&e.EntityID), dbx.Text(&e.Details), dbx.Time(&e.Timestamp), dbx.Flag(&e.IsSynced),
			dbx.Text(&e.UserName)); err != nil {
			return nil, fmt.Errorf("failed to scan audit log: %w", err)
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate audit logs: %w", err)
	}
	return result, nil
}
