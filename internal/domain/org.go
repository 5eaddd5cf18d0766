package domain

import "time"

// MemberRole represents a user's role within an organization.
type MemberRole string

const (
	RoleOwner  MemberRole = "owner"
	RoleAdmin  MemberRole = "admin"
	RoleMember MemberRole = "member"
)

// Organization is the tenant boundary. Every project, task, notification and
// preference row is scoped to exactly one organization.
type Organization struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	OwnerID   int64     `json:"owner_id" db:"owner_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Membership links a user to an organization with a role.
type Membership struct {
	OrgID     int64      `json:"org_id" db:"org_id"`
	UserID    int64      `json:"user_id" db:"user_id"`
	Role      MemberRole `json:"role" db:"role"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
}

// CanManage reports whether the role may administer org resources.
func (r MemberRole) CanManage() bool {
	return r == RoleOwner || r == RoleAdmin
}
