package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sayaka/teamboard/internal/domain"
)

const meetingColumns = `id, org_id, project_id, title, agenda, location,
	starts_at, ends_at, cancelled_at, created_by, created_at, updated_at`

// MeetingRepository handles meeting and attendee data access.
type MeetingRepository struct {
	db *sqlx.DB
}

// NewMeetingRepository creates a new MeetingRepository.
func NewMeetingRepository(db *sqlx.DB) *MeetingRepository {
	return &MeetingRepository{db: db}
}

// Create inserts a meeting and its attendee list in one transaction.
func (r *MeetingRepository) Create(ctx context.Context, m domain.Meeting) (*domain.Meeting, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, wrap("create meeting", err)
	}
	defer tx.Rollback()

	var result domain.Meeting
	err = tx.QueryRowxContext(ctx,
		`INSERT INTO meetings (org_id, project_id, title, agenda, location, starts_at, ends_at, created_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING `+meetingColumns,
		m.OrgID, m.ProjectID, m.Title, m.Agenda, m.Location, m.StartsAt, m.EndsAt, m.CreatedBy,
	).StructScan(&result)
	if err != nil {
		return nil, wrap("create meeting", err)
	}

	for _, userID := range m.AttendeeIDs {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO meeting_attendees (meeting_id, user_id) VALUES ($1, $2)
			 ON CONFLICT DO NOTHING`, result.ID, userID)
		if err != nil {
			return nil, wrap("add attendee", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, wrap("create meeting", err)
	}
	result.AttendeeIDs = m.AttendeeIDs
	return &result, nil
}

// FindByID retrieves a meeting with its attendee list.
func (r *MeetingRepository) FindByID(ctx context.Context, id int64) (*domain.Meeting, error) {
	var m domain.Meeting
	err := r.db.GetContext(ctx, &m,
		`SELECT `+meetingColumns+` FROM meetings WHERE id = $1`, id)
	if err != nil {
		return nil, wrap("find meeting", err)
	}
	if err := r.db.SelectContext(ctx, &m.AttendeeIDs,
		`SELECT user_id FROM meeting_attendees WHERE meeting_id = $1 ORDER BY user_id`, id); err != nil {
		return nil, wrap("list attendees", err)
	}
	return &m, nil
}

// ListForOrg lists an organization's meetings starting after the given time.
func (r *MeetingRepository) ListForOrg(ctx context.Context, orgID int64, from time.Time) ([]domain.Meeting, error) {
	var meetings []domain.Meeting
	err := r.db.SelectContext(ctx, &meetings,
		`SELECT `+meetingColumns+` FROM meetings
		 WHERE org_id = $1 AND starts_at >= $2
		 ORDER BY starts_at`, orgID, from)
	if err != nil {
		return nil, wrap("list meetings", err)
	}
	return meetings, nil
}

// Cancel stamps cancelled_at on a meeting.
func (r *MeetingRepository) Cancel(ctx context.Context, id int64, at time.Time) (*domain.Meeting, error) {
	var result domain.Meeting
	err := r.db.QueryRowxContext(ctx,
		`UPDATE meetings SET cancelled_at = $2, updated_at = NOW()
		 WHERE id = $1 AND cancelled_at IS NULL
		 RETURNING `+meetingColumns, id, at,
	).StructScan(&result)
	if err != nil {
		return nil, wrap("cancel meeting", err)
	}
	if err := r.db.SelectContext(ctx, &result.AttendeeIDs,
		`SELECT user_id FROM meeting_attendees WHERE meeting_id = $1 ORDER BY user_id`, id); err != nil {
		return nil, wrap("list attendees", err)
	}
	return &result, nil
}
