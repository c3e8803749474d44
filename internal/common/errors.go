// Package common defines shared sentinel errors, the clock and identifier
// sources, and small helpers used across repairdesk components. Callers
// should use errors.Is to match these values.
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// Sync-engine errors. Connectivity is a precondition, not a failure:
	// push and pull treat it as a silent no-op.
	ErrConnectivityUnavailable = errors.New("connectivity unavailable")
	ErrRemoteTransaction       = errors.New("remote transaction failed")
	ErrLocalWrite              = errors.New("local write failed")
	ErrPushInProgress          = errors.New("push cycle already in progress")

	// Entity-level errors surfaced synchronously to the caller.
	ErrDuplicateEntity           = errors.New("duplicate entity")
	ErrOrganizationNotConfigured = errors.New("organization not configured")
	ErrInvalidInput              = errors.New("invalid input")

	// Auth and bootstrap errors.
	ErrUnauthorized       = errors.New("unauthorized")
	ErrRestoreAuthFailure = errors.New("restore authentication failed")
	ErrAlreadyConfigured  = errors.New("organization already configured")
)

// DuplicateEntityError reports an application-level uniqueness violation.
// It matches ErrDuplicateEntity with errors.Is.
type DuplicateEntityError struct {
	Entity string
	Field  string
	Value  string
}

func (e *DuplicateEntityError) Error() string {
	return fmt.Sprintf("%s with %s %q already exists", e.Entity, e.Field, e.Value)
}

func (e *DuplicateEntityError) Unwrap() error { return ErrDuplicateEntity }
