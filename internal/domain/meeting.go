package domain

import "time"

// Meeting represents a scheduled meeting with an attendee list.
type Meeting struct {
	ID          int64      `json:"id" db:"id"`
	OrgID       int64      `json:"org_id" db:"org_id"`
	ProjectID   *int64     `json:"project_id,omitempty" db:"project_id"`
	Title       string     `json:"title" db:"title"`
	Agenda      *string    `json:"agenda,omitempty" db:"agenda"`
	Location    *string    `json:"location,omitempty" db:"location"`
	StartsAt    time.Time  `json:"starts_at" db:"starts_at"`
	EndsAt      time.Time  `json:"ends_at" db:"ends_at"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty" db:"cancelled_at"`
	CreatedBy   int64      `json:"created_by" db:"created_by"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`

	// AttendeeIDs is loaded from the meeting_attendees join table.
	AttendeeIDs []int64 `json:"attendee_ids" db:"-"`
}

// Cancelled reports whether the meeting has been cancelled.
func (m Meeting) Cancelled() bool {
	return m.CancelledAt != nil
}
