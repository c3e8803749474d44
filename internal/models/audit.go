package models

import "time"

// AuditLog is append-only: it is pushed like any dirty row but never pulled
// or soft-deleted.
type AuditLog struct {
	ID             string
	OrganizationID string
	UserID         string
	Action         string
	Entity         string
	EntityID       string
	Details        string
	Timestamp      time.Time
	IsSynced       bool
}

// AuditEntry is an audit row joined with the acting user's name.
type AuditEntry struct {
	AuditLog
	UserName string
}
