package domain

import "time"

// AuditEntry records who did what. Writing it is best effort; a failed audit
// write never fails the operation that produced it.
type AuditEntry struct {
	ID         string    `json:"id" db:"id"` // uuid
	OrgID      int64     `json:"org_id" db:"org_id"`
	ActorID    int64     `json:"actor_id" db:"actor_id"`
	Action     string    `json:"action" db:"action"`
	EntityType string    `json:"entity_type" db:"entity_type"`
	EntityID   string    `json:"entity_id" db:"entity_id"`
	Detail     JSONMap   `json:"detail" db:"detail"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}
