package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sayaka/teamboard/internal/domain"
)

type fakeMeetingStore struct {
	rows   map[int64]domain.Meeting
	nextID int64
}

func (s *fakeMeetingStore) Create(_ context.Context, m domain.Meeting) (*domain.Meeting, error) {
	s.nextID++
	m.ID = s.nextID
	s.rows[m.ID] = m
	return &m, nil
}

func (s *fakeMeetingStore) FindByID(_ context.Context, id int64) (*domain.Meeting, error) {
	m, ok := s.rows[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &m, nil
}

func (s *fakeMeetingStore) ListForOrg(_ context.Context, orgID int64, from time.Time) ([]domain.Meeting, error) {
	var out []domain.Meeting
	for _, m := range s.rows {
		if m.OrgID == orgID && !m.StartsAt.Before(from) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *fakeMeetingStore) Cancel(_ context.Context, id int64, at time.Time) (*domain.Meeting, error) {
	m, ok := s.rows[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if m.CancelledAt == nil {
		m.CancelledAt = &at
		s.rows[id] = m
	}
	return &m, nil
}

type meetingFixture struct {
	svc      *MeetingService
	notifier *fakeDispatcher
	now      time.Time
}

func newMeetingFixture(t *testing.T) *meetingFixture {
	t.Helper()
	members := &fakeMembers{roles: map[int64]domain.MemberRole{
		1: domain.RoleOwner,
		2: domain.RoleMember,
		3: domain.RoleMember,
	}}
	f := &meetingFixture{
		notifier: &fakeDispatcher{},
		now:      time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
	}
	f.svc = NewMeetingService(&fakeMeetingStore{rows: map[int64]domain.Meeting{}}, members, f.notifier, nil)
	f.svc.now = func() time.Time { return f.now }
	return f
}

func (f *meetingFixture) input(startsIn time.Duration) MeetingInput {
	start := f.now.Add(startsIn)
	return MeetingInput{
		Title:       "Sprint planning",
		StartsAt:    start,
		EndsAt:      start.Add(time.Hour),
		AttendeeIDs: []int64{1, 2, 3},
	}
}

func TestMeetingCreateInvitesAndQueuesReminders(t *testing.T) {
	f := newMeetingFixture(t)

	meeting, err := f.svc.Create(context.Background(), 1, 1, f.input(2*time.Hour))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if len(f.notifier.sent) != 2 {
		t.Fatalf("sent %d batches, want invitation + reminder", len(f.notifier.sent))
	}

	invite := f.notifier.sent[0]
	if invite.in.Type != domain.TypeMeetingScheduled || !invite.sendNow {
		t.Errorf("first batch = %s sendNow=%v, want immediate meeting_scheduled", invite.in.Type, invite.sendNow)
	}
	if len(invite.recipients) != 2 {
		t.Errorf("invited %d attendees, want 2 (organizer excluded)", len(invite.recipients))
	}

	reminder := f.notifier.sent[1]
	if reminder.in.Type != domain.TypeMeetingReminder || reminder.sendNow {
		t.Errorf("second batch = %s sendNow=%v, want deferred meeting_reminder", reminder.in.Type, reminder.sendNow)
	}
	if reminder.in.Priority != domain.PriorityHigh {
		t.Errorf("reminder priority = %q, want high", reminder.in.Priority)
	}
	wantRemindAt := meeting.StartsAt.Add(-30 * time.Minute)
	if reminder.in.ScheduledFor == nil || !reminder.in.ScheduledFor.Equal(wantRemindAt) {
		t.Errorf("reminder scheduled for %v, want %v", reminder.in.ScheduledFor, wantRemindAt)
	}
}

func TestMeetingCreateSkipsLateReminder(t *testing.T) {
	f := newMeetingFixture(t)

	// Starting in 10 minutes: the reminder slot is already in the past.
	if _, err := f.svc.Create(context.Background(), 1, 1, f.input(10*time.Minute)); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if len(f.notifier.sent) != 1 {
		t.Fatalf("sent %d batches, want only the invitation", len(f.notifier.sent))
	}
	if f.notifier.sent[0].in.Type != domain.TypeMeetingScheduled {
		t.Errorf("sent %s, want meeting_scheduled", f.notifier.sent[0].in.Type)
	}
}

func TestMeetingCreateValidatesWindow(t *testing.T) {
	f := newMeetingFixture(t)

	in := f.input(time.Hour)
	in.EndsAt = in.StartsAt
	if _, err := f.svc.Create(context.Background(), 1, 1, in); err == nil {
		t.Error("zero-length meeting should be rejected")
	}
}

func TestMeetingCancel(t *testing.T) {
	f := newMeetingFixture(t)

	meeting, err := f.svc.Create(context.Background(), 1, 2, f.input(2*time.Hour))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	f.notifier.sent = nil

	// Member 3 is neither the organizer nor a manager.
	if _, err := f.svc.Cancel(context.Background(), meeting.ID, 3); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("attendee cancel error = %v, want ErrForbidden", err)
	}

	// The owner may cancel someone else's meeting.
	cancelled, err := f.svc.Cancel(context.Background(), meeting.ID, 1)
	if err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}
	if !cancelled.Cancelled() {
		t.Error("meeting should carry a cancellation stamp")
	}

	if len(f.notifier.sent) != 1 {
		t.Fatalf("sent %d batches, want one cancellation notice", len(f.notifier.sent))
	}
	notice := f.notifier.sent[0]
	if notice.in.Type != domain.TypeMeetingCancelled || notice.in.Priority != domain.PriorityHigh {
		t.Errorf("notice = %s/%s, want high-priority meeting_cancelled", notice.in.Type, notice.in.Priority)
	}

	if _, err := f.svc.Cancel(context.Background(), meeting.ID, 1); !errors.Is(err, domain.ErrConflict) {
		t.Errorf("double cancel error = %v, want ErrConflict", err)
	}
}
