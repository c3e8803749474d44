// Package models defines the tenant-scoped entities stored locally and synced
// to the remote store, together with their optional-field patch types.
package models

import "time"

// Syncable carries the sync metadata shared by every tenant-scoped row.
type Syncable struct {
	ID             string
	OrganizationID string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	IsSynced       bool
	IsDeleted      bool
}

// Stamp prepares a freshly created row: dirty, not deleted, both timestamps
// set to now.
func (s *Syncable) Stamp(id, orgID string, now time.Time) {
	s.ID = id
	s.OrganizationID = orgID
	s.CreatedAt = now
	s.UpdatedAt = now
	s.IsSynced = false
	s.IsDeleted = false
}

// Organization is the tenant root. There is exactly one per installation.
type Organization struct {
	ID               string
	Name             string
	Phone            string
	Email            string
	Address          string
	Terms            string
	SubscriptionPlan string
	LogoURL          string
	CreatedAt        time.Time
	IsSynced         bool
}

const PlanFree = "free"

type OrganizationPatch struct {
	Name             *string
	Phone            *string
	Email            *string
	Address          *string
	Terms            *string
	SubscriptionPlan *string
	LogoURL          *string
}

func (p OrganizationPatch) IsEmpty() bool {
	return p.Name == nil && p.Phone == nil && p.Email == nil && p.Address == nil &&
		p.Terms == nil && p.SubscriptionPlan == nil && p.LogoURL == nil
}

// Ptr returns a pointer to v. Handy for building patches.
func Ptr[T any](v T) *T { return &v }
