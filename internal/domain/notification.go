package domain

import "time"

// NotificationCategory is the coarse grouping used for per-area preference
// gating.
type NotificationCategory string

const (
	CategoryTask    NotificationCategory = "task"
	CategoryProject NotificationCategory = "project"
	CategoryMeeting NotificationCategory = "meeting"
	CategoryReport  NotificationCategory = "report"
	CategorySystem  NotificationCategory = "system"
)

// Categories lists every known notification category.
var Categories = []NotificationCategory{
	CategoryTask, CategoryProject, CategoryMeeting, CategoryReport, CategorySystem,
}

// Valid reports whether the category is one of the known values.
func (c NotificationCategory) Valid() bool {
	switch c {
	case CategoryTask, CategoryProject, CategoryMeeting, CategoryReport, CategorySystem:
		return true
	}
	return false
}

// NotificationPriority orders notifications by urgency. Critical bypasses
// quiet-hour suppression.
type NotificationPriority string

const (
	PriorityLow      NotificationPriority = "low"
	PriorityMedium   NotificationPriority = "medium"
	PriorityHigh     NotificationPriority = "high"
	PriorityCritical NotificationPriority = "critical"
)

// Valid reports whether the priority is one of the known values.
func (p NotificationPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// NotificationType identifies the event that produced a notification.
type NotificationType string

const (
	TypeTaskAssigned       NotificationType = "task_assigned"
	TypeTaskCompleted      NotificationType = "task_completed"
	TypeTaskDueSoon        NotificationType = "task_due_soon"
	TypeProjectCreated     NotificationType = "project_created"
	TypeProjectArchived    NotificationType = "project_archived"
	TypeMeetingScheduled   NotificationType = "meeting_scheduled"
	TypeMeetingCancelled   NotificationType = "meeting_cancelled"
	TypeMeetingReminder    NotificationType = "meeting_reminder"
	TypeReportSubmitted    NotificationType = "report_submitted"
	TypeArticlePublished   NotificationType = "article_published"
	TypeMemberAdded        NotificationType = "member_added"
	TypeSystemAnnouncement NotificationType = "system_announcement"
)

// Notification is a single message addressed to one recipient. The row
// itself is the in-app surface; email and push are side-channel deliveries.
// After creation only the read state, the delivery flags and DeliveredAt
// may change.
type Notification struct {
	ID          int64                `json:"id" db:"id"`
	RecipientID int64                `json:"recipient_id" db:"recipient_id"`
	OrgID       int64                `json:"org_id" db:"org_id"`
	Type        NotificationType     `json:"type" db:"type"`
	Category    NotificationCategory `json:"category" db:"category"`
	Priority    NotificationPriority `json:"priority" db:"priority"`
	Title       string               `json:"title" db:"title"`
	Message     string               `json:"message" db:"message"`
	Payload     JSONMap              `json:"payload" db:"payload"`
	EntityType  *string              `json:"entity_type,omitempty" db:"entity_type"`
	EntityID    *int64               `json:"entity_id,omitempty" db:"entity_id"`

	ScheduledFor   *time.Time `json:"scheduled_for,omitempty" db:"scheduled_for"`
	DeliveredAt    *time.Time `json:"delivered_at,omitempty" db:"delivered_at"`
	DeliveredApp   bool       `json:"delivered_app" db:"delivered_app"`
	DeliveredEmail bool       `json:"delivered_email" db:"delivered_email"`
	DeliveredPush  bool       `json:"delivered_push" db:"delivered_push"`

	IsRead    bool       `json:"is_read" db:"is_read"`
	ReadAt    *time.Time `json:"read_at,omitempty" db:"read_at"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
}

// Pending reports whether the notification still awaits a delivery attempt.
func (n Notification) Pending() bool {
	return n.DeliveredAt == nil
}

// NotificationFilter narrows a notification listing.
type NotificationFilter struct {
	Category   NotificationCategory
	Type       NotificationType
	UnreadOnly bool
}

// Channels is the set of delivery surfaces enabled for one notification.
// All-false is valid: the notification is persisted but stays silent.
type Channels struct {
	App   bool `json:"app"`
	Email bool `json:"email"`
	Push  bool `json:"push"`
}

// Any reports whether at least one channel is enabled.
func (c Channels) Any() bool {
	return c.App || c.Email || c.Push
}
