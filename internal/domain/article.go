package domain

import "time"

// Article is a knowledge-base entry within an organization.
type Article struct {
	ID          int64      `json:"id" db:"id"`
	OrgID       int64      `json:"org_id" db:"org_id"`
	AuthorID    int64      `json:"author_id" db:"author_id"`
	Title       string     `json:"title" db:"title"`
	Body        string     `json:"body" db:"body"`
	Tags        StringList `json:"tags" db:"tags"`
	Published   bool       `json:"published" db:"published"`
	PublishedAt *time.Time `json:"published_at,omitempty" db:"published_at"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}
