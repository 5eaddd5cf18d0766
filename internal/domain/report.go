package domain

import "time"

// ReportStatus represents the lifecycle state of a weekly report.
type ReportStatus string

const (
	ReportStatusDraft     ReportStatus = "draft"
	ReportStatusSubmitted ReportStatus = "submitted"
)

// WeeklyReport is a member's weekly status report within an organization.
type WeeklyReport struct {
	ID          int64        `json:"id" db:"id"`
	OrgID       int64        `json:"org_id" db:"org_id"`
	AuthorID    int64        `json:"author_id" db:"author_id"`
	WeekStart   time.Time    `json:"week_start" db:"week_start"`
	Summary     string       `json:"summary" db:"summary"`
	Blockers    *string      `json:"blockers,omitempty" db:"blockers"`
	NextPlans   *string      `json:"next_plans,omitempty" db:"next_plans"`
	Status      ReportStatus `json:"status" db:"status"`
	SubmittedAt *time.Time   `json:"submitted_at,omitempty" db:"submitted_at"`
	CreatedAt   time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at" db:"updated_at"`
}
