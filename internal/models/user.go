package models

import "time"

type Role string

const (
	RoleOwner      Role = "owner"
	RoleAdmin      Role = "admin"
	RoleTechnician Role = "technician"
	RoleFrontDesk  Role = "front_desk"
)

func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleTechnician, RoleFrontDesk:
		return true
	}
	return false
}

// CanManageUsers reports whether the role may create or change staff accounts.
func (r Role) CanManageUsers() bool {
	return r == RoleOwner || r == RoleAdmin
}

type User struct {
	Syncable
	Username     string
	FullName     string
	PasswordHash string
	Role         Role
	IsActive     bool
	ResetToken   string
	ResetExpires *time.Time
}

// UserPatch changes a staff account. Password is plaintext input that the
// user service hashes into PasswordHash before it reaches the repository.
type UserPatch struct {
	FullName     *string
	Role         *Role
	IsActive     *bool
	Password     *string
	PasswordHash *string
}

func (p UserPatch) IsEmpty() bool {
	return p.FullName == nil && p.Role == nil && p.IsActive == nil &&
		p.Password == nil && p.PasswordHash == nil
}
