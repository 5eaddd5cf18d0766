package domain

import "time"

// TaskStatus represents the lifecycle state of a task.
type TaskStatus string

const (
	TaskStatusOpen       TaskStatus = "open"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusDone       TaskStatus = "done"
	TaskStatusCancelled  TaskStatus = "cancelled"
)

// Task represents a unit of work within a project.
type Task struct {
	ID         int64      `json:"id" db:"id"`
	ProjectID  int64      `json:"project_id" db:"project_id"`
	OrgID      int64      `json:"org_id" db:"org_id"`
	Title      string     `json:"title" db:"title"`
	Body       *string    `json:"body,omitempty" db:"body"`
	Status     TaskStatus `json:"status" db:"status"`
	AssigneeID *int64     `json:"assignee_id,omitempty" db:"assignee_id"`
	DueDate    *time.Time `json:"due_date,omitempty" db:"due_date"`
	CreatedBy  int64      `json:"created_by" db:"created_by"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at" db:"updated_at"`
}
