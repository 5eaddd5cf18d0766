package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/sayaka/teamboard/internal/domain"
)

// MeetingStore defines the meeting data access interface consumed by
// MeetingService.
type MeetingStore interface {
	Create(ctx context.Context, m domain.Meeting) (*domain.Meeting, error)
	FindByID(ctx context.Context, id int64) (*domain.Meeting, error)
	ListForOrg(ctx context.Context, orgID int64, from time.Time) ([]domain.Meeting, error)
	Cancel(ctx context.Context, id int64, at time.Time) (*domain.Meeting, error)
}

// reminderLead is how long before a meeting starts its reminder fires.
const reminderLead = 30 * time.Minute

// MeetingService handles meetings and their notifications: attendees get an
// immediate invitation plus a scheduled reminder that the sweep delivers
// shortly before the meeting starts.
type MeetingService struct {
	store    MeetingStore
	members  MembershipSource
	notifier Dispatcher
	audit    *AuditRecorder
	now      func() time.Time
}

// NewMeetingService creates a new MeetingService.
func NewMeetingService(store MeetingStore, members MembershipSource, notifier Dispatcher, audit *AuditRecorder) *MeetingService {
	return &MeetingService{
		store:    store,
		members:  members,
		notifier: notifier,
		audit:    audit,
		now:      time.Now,
	}
}

// MeetingInput is the caller-supplied content of a meeting.
type MeetingInput struct {
	ProjectID   *int64    `json:"project_id"`
	Title       string    `json:"title"`
	Agenda      *string   `json:"agenda"`
	Location    *string   `json:"location"`
	StartsAt    time.Time `json:"starts_at"`
	EndsAt      time.Time `json:"ends_at"`
	AttendeeIDs []int64   `json:"attendee_ids"`
}

// Create schedules a meeting, invites the attendees, and queues reminders.
func (s *MeetingService) Create(ctx context.Context, orgID, actorID int64, in MeetingInput) (*domain.Meeting, error) {
	if _, err := requireMember(ctx, s.members, orgID, actorID); err != nil {
		return nil, err
	}
	if in.Title == "" {
		return nil, &domain.ValidationError{Field: "title", Message: "is required"}
	}
	if !in.EndsAt.After(in.StartsAt) {
		return nil, &domain.ValidationError{Field: "ends_at", Message: "must be after starts_at"}
	}

	meeting, err := s.store.Create(ctx, domain.Meeting{
		OrgID:       orgID,
		ProjectID:   in.ProjectID,
		Title:       in.Title,
		Agenda:      in.Agenda,
		Location:    in.Location,
		StartsAt:    in.StartsAt,
		EndsAt:      in.EndsAt,
		CreatedBy:   actorID,
		AttendeeIDs: in.AttendeeIDs,
	})
	if err != nil {
		return nil, err
	}

	recipients := othersOf(meeting.AttendeeIDs, actorID)
	if len(recipients) > 0 {
		entityType := "meeting"
		if _, err := s.notifier.CreateBulk(ctx, recipients, orgID, CreateInput{
			Type:       domain.TypeMeetingScheduled,
			Category:   domain.CategoryMeeting,
			Priority:   domain.PriorityMedium,
			Title:      "Meeting scheduled: " + meeting.Title,
			Message:    "You are invited to " + meeting.Title + " at " + meeting.StartsAt.Format(time.RFC1123) + ".",
			EntityType: &entityType,
			EntityID:   &meeting.ID,
		}, true); err != nil {
			slog.Warn("meeting invitation skipped", "meeting_id", meeting.ID, "error", err)
		}

		s.queueReminders(ctx, meeting, recipients)
	}

	s.audit.Record(orgID, actorID, "meeting.scheduled", "meeting", meeting.ID, nil)
	return meeting, nil
}

// queueReminders creates high-priority reminder notifications scheduled for
// shortly before the meeting. They stay pending until the sweep delivers
// them; cancelling the meeting before then deletes nothing, but cancelled
// meetings also fan out a cancellation notice.
func (s *MeetingService) queueReminders(ctx context.Context, meeting *domain.Meeting, recipients []int64) {
	remindAt := meeting.StartsAt.Add(-reminderLead)
	if !remindAt.After(s.now()) {
		return
	}

	entityType := "meeting"
	if _, err := s.notifier.CreateBulk(ctx, recipients, meeting.OrgID, CreateInput{
		Type:         domain.TypeMeetingReminder,
		Category:     domain.CategoryMeeting,
		Priority:     domain.PriorityHigh,
		Title:        "Reminder: " + meeting.Title,
		Message:      meeting.Title + " starts at " + meeting.StartsAt.Format(time.RFC1123) + ".",
		EntityType:   &entityType,
		EntityID:     &meeting.ID,
		ScheduledFor: &remindAt,
	}, false); err != nil {
		slog.Warn("meeting reminders skipped", "meeting_id", meeting.ID, "error", err)
	}
}

// Get returns a meeting the actor may see.
func (s *MeetingService) Get(ctx context.Context, meetingID, actorID int64) (*domain.Meeting, error) {
	meeting, err := s.store.FindByID(ctx, meetingID)
	if err != nil {
		return nil, err
	}
	if _, err := requireMember(ctx, s.members, meeting.OrgID, actorID); err != nil {
		return nil, err
	}
	return meeting, nil
}

// List lists an organization's upcoming meetings.
func (s *MeetingService) List(ctx context.Context, orgID, actorID int64, from time.Time) ([]domain.Meeting, error) {
	if _, err := requireMember(ctx, s.members, orgID, actorID); err != nil {
		return nil, err
	}
	return s.store.ListForOrg(ctx, orgID, from)
}

// Cancel cancels a meeting and notifies the attendees. Only the organizer
// or a manager may cancel.
func (s *MeetingService) Cancel(ctx context.Context, meetingID, actorID int64) (*domain.Meeting, error) {
	meeting, err := s.store.FindByID(ctx, meetingID)
	if err != nil {
		return nil, err
	}
	m, err := requireMember(ctx, s.members, meeting.OrgID, actorID)
	if err != nil {
		return nil, err
	}
	if meeting.CreatedBy != actorID && !m.Role.CanManage() {
		return nil, domain.ErrForbidden
	}
	if meeting.Cancelled() {
		return nil, domain.ErrConflict
	}

	cancelled, err := s.store.Cancel(ctx, meetingID, s.now())
	if err != nil {
		return nil, err
	}

	recipients := othersOf(cancelled.AttendeeIDs, actorID)
	if len(recipients) > 0 {
		entityType := "meeting"
		if _, err := s.notifier.CreateBulk(ctx, recipients, cancelled.OrgID, CreateInput{
			Type:       domain.TypeMeetingCancelled,
			Category:   domain.CategoryMeeting,
			Priority:   domain.PriorityHigh,
			Title:      "Meeting cancelled: " + cancelled.Title,
			Message:    cancelled.Title + " scheduled for " + cancelled.StartsAt.Format(time.RFC1123) + " was cancelled.",
			EntityType: &entityType,
			EntityID:   &cancelled.ID,
		}, true); err != nil {
			slog.Warn("meeting cancellation notice skipped", "meeting_id", cancelled.ID, "error", err)
		}
	}

	s.audit.Record(cancelled.OrgID, actorID, "meeting.cancelled", "meeting", cancelled.ID, nil)
	return cancelled, nil
}
