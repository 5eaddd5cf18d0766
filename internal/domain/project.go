package domain

import "time"

// ProjectStatus represents the lifecycle state of a project.
type ProjectStatus string

const (
	ProjectStatusActive   ProjectStatus = "active"
	ProjectStatusArchived ProjectStatus = "archived"
)

// Project groups tasks within an organization.
type Project struct {
	ID          int64         `json:"id" db:"id"`
	OrgID       int64         `json:"org_id" db:"org_id"`
	Name        string        `json:"name" db:"name"`
	Description *string       `json:"description,omitempty" db:"description"`
	Status      ProjectStatus `json:"status" db:"status"`
	OwnerID     int64         `json:"owner_id" db:"owner_id"`
	CreatedAt   time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at" db:"updated_at"`
}
