package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sayaka/teamboard/internal/domain"
)

// fakePreferenceStore keeps preference rows in a map keyed by (user, org).
type fakePreferenceStore struct {
	rows    map[[2]int64]domain.Preference
	nextID  int64
	findErr error
}

func newFakePreferenceStore() *fakePreferenceStore {
	return &fakePreferenceStore{rows: make(map[[2]int64]domain.Preference), nextID: 1}
}

func (s *fakePreferenceStore) Find(_ context.Context, userID, orgID int64) (*domain.Preference, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	row, ok := s.rows[[2]int64{userID, orgID}]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := row
	return &out, nil
}

func (s *fakePreferenceStore) CreateIfAbsent(_ context.Context, pref domain.Preference) error {
	key := [2]int64{pref.UserID, pref.OrgID}
	if _, ok := s.rows[key]; ok {
		return nil
	}
	pref.ID = s.nextID
	s.nextID++
	s.rows[key] = pref
	return nil
}

func (s *fakePreferenceStore) Update(_ context.Context, pref domain.Preference) (*domain.Preference, error) {
	key := [2]int64{pref.UserID, pref.OrgID}
	if _, ok := s.rows[key]; !ok {
		return nil, domain.ErrNotFound
	}
	s.rows[key] = pref
	out := pref
	return &out, nil
}

// weekday returns a Wednesday at the given UTC wall-clock time.
func weekday(hour, min int) time.Time {
	return time.Date(2026, 1, 7, hour, min, 0, 0, time.UTC)
}

func TestResolveChannels(t *testing.T) {
	base := func() *domain.Preference {
		p := domain.DefaultPreference(1, 1)
		return &p
	}

	tests := []struct {
		name     string
		mutate   func(p *domain.Preference)
		category domain.NotificationCategory
		priority domain.NotificationPriority
		now      time.Time
		want     domain.Channels
	}{
		{
			name:     "defaults enable everything",
			mutate:   func(*domain.Preference) {},
			category: domain.CategoryTask,
			priority: domain.PriorityMedium,
			now:      weekday(12, 0),
			want:     domain.Channels{App: true, Email: true, Push: true},
		},
		{
			name:     "master email switch off",
			mutate:   func(p *domain.Preference) { p.EnableEmail = false },
			category: domain.CategoryTask,
			priority: domain.PriorityMedium,
			now:      weekday(12, 0),
			want:     domain.Channels{App: true, Email: false, Push: true},
		},
		{
			name:     "system email disabled by default toggles",
			mutate:   func(*domain.Preference) {},
			category: domain.CategorySystem,
			priority: domain.PriorityMedium,
			now:      weekday(12, 0),
			want:     domain.Channels{App: true, Email: false, Push: true},
		},
		{
			name: "category toggle gates app but not push",
			mutate: func(p *domain.Preference) {
				p.AppCategories[domain.CategoryMeeting] = false
			},
			category: domain.CategoryMeeting,
			priority: domain.PriorityMedium,
			now:      weekday(12, 0),
			want:     domain.Channels{App: false, Email: true, Push: true},
		},
		{
			name:     "unknown category defaults to enabled",
			mutate:   func(p *domain.Preference) { p.AppCategories = nil },
			category: domain.CategoryTask,
			priority: domain.PriorityMedium,
			now:      weekday(12, 0),
			want:     domain.Channels{App: true, Email: true, Push: true},
		},
		{
			name: "quiet hours suppress app and email before midnight",
			mutate: func(p *domain.Preference) {
				p.QuietHours.Enabled = true
			},
			category: domain.CategoryTask,
			priority: domain.PriorityMedium,
			now:      weekday(23, 59),
			want:     domain.Channels{App: false, Email: false, Push: true},
		},
		{
			name: "quiet hours suppress app and email after midnight",
			mutate: func(p *domain.Preference) {
				p.QuietHours.Enabled = true
			},
			category: domain.CategoryTask,
			priority: domain.PriorityMedium,
			now:      weekday(7, 59),
			want:     domain.Channels{App: false, Email: false, Push: true},
		},
		{
			name: "quiet window is half-open at the end",
			mutate: func(p *domain.Preference) {
				p.QuietHours.Enabled = true
			},
			category: domain.CategoryTask,
			priority: domain.PriorityMedium,
			now:      weekday(8, 1),
			want:     domain.Channels{App: true, Email: true, Push: true},
		},
		{
			name: "just before the quiet window opens",
			mutate: func(p *domain.Preference) {
				p.QuietHours.Enabled = true
			},
			category: domain.CategoryTask,
			priority: domain.PriorityMedium,
			now:      weekday(21, 59),
			want:     domain.Channels{App: true, Email: true, Push: true},
		},
		{
			name: "critical bypasses quiet hours",
			mutate: func(p *domain.Preference) {
				p.QuietHours.Enabled = true
			},
			category: domain.CategoryTask,
			priority: domain.PriorityCritical,
			now:      weekday(23, 0),
			want:     domain.Channels{App: true, Email: true, Push: true},
		},
		{
			name: "quiet hours follow the user timezone",
			mutate: func(p *domain.Preference) {
				p.QuietHours.Enabled = true
				p.QuietHours.Timezone = "Asia/Tokyo"
			},
			category: domain.CategoryTask,
			priority: domain.PriorityMedium,
			// 14:00 UTC is 23:00 in Tokyo.
			now:  weekday(14, 0),
			want: domain.Channels{App: false, Email: false, Push: true},
		},
		{
			name: "zero-length quiet window never suppresses",
			mutate: func(p *domain.Preference) {
				p.QuietHours.Enabled = true
				p.QuietHours.Start = "09:00"
				p.QuietHours.End = "09:00"
			},
			category: domain.CategoryTask,
			priority: domain.PriorityMedium,
			now:      weekday(9, 0),
			want:     domain.Channels{App: true, Email: true, Push: true},
		},
		{
			name: "weekend override silences email",
			mutate: func(p *domain.Preference) {
				p.WeekendEmail = false
			},
			category: domain.CategoryTask,
			priority: domain.PriorityMedium,
			// A Saturday.
			now:  time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC),
			want: domain.Channels{App: true, Email: false, Push: true},
		},
		{
			name: "weekend override does not touch weekdays",
			mutate: func(p *domain.Preference) {
				p.WeekendApp = false
				p.WeekendEmail = false
			},
			category: domain.CategoryTask,
			priority: domain.PriorityMedium,
			now:      weekday(12, 0),
			want:     domain.Channels{App: true, Email: true, Push: true},
		},
		{
			name: "everything off yields a silent notification",
			mutate: func(p *domain.Preference) {
				p.EnableInApp = false
				p.EnableEmail = false
				p.EnablePush = false
			},
			category: domain.CategoryTask,
			priority: domain.PriorityHigh,
			now:      weekday(12, 0),
			want:     domain.Channels{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pref := base()
			tt.mutate(pref)

			got := ResolveChannels(pref, tt.category, tt.priority, tt.now)
			if got != tt.want {
				t.Errorf("ResolveChannels() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestPreferenceGetCreatesDefaults(t *testing.T) {
	store := newFakePreferenceStore()
	svc := NewPreferenceService(store, nil)

	pref, err := svc.Get(context.Background(), 7, 3)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if pref.UserID != 7 || pref.OrgID != 3 {
		t.Fatalf("Get() returned row for (%d, %d)", pref.UserID, pref.OrgID)
	}
	if !pref.EnableInApp || !pref.EnableEmail || !pref.EnablePush {
		t.Errorf("default master switches should all be on: %+v", pref)
	}
	if pref.EmailCategories.Enabled(domain.CategorySystem) {
		t.Error("system email should default off")
	}
	if pref.QuietHours.Enabled {
		t.Error("quiet hours should default off")
	}
	if pref.Digest != domain.DigestDaily {
		t.Errorf("digest = %q, want daily", pref.Digest)
	}

	// A second read must return the same row, not a new one.
	again, err := svc.Get(context.Background(), 7, 3)
	if err != nil {
		t.Fatalf("second Get() error = %v", err)
	}
	if again.ID != pref.ID {
		t.Errorf("second Get() returned id %d, want %d", again.ID, pref.ID)
	}
}

func TestPreferenceGetPropagatesStoreErrors(t *testing.T) {
	store := newFakePreferenceStore()
	store.findErr = &domain.StoreError{Op: "preference.find", Err: errors.New("connection refused")}
	svc := NewPreferenceService(store, nil)

	if _, err := svc.Get(context.Background(), 1, 1); !domain.IsStoreError(err) {
		t.Fatalf("Get() error = %v, want store error", err)
	}
}

func TestPreferenceUpdate(t *testing.T) {
	store := newFakePreferenceStore()
	svc := NewPreferenceService(store, nil)

	off := false
	tz := "America/New_York"
	start := "21:00"
	pref, err := svc.Update(context.Background(), 1, 1, PreferenceUpdate{
		EnableEmail:       &off,
		AppCategories:     domain.CategoryToggles{domain.CategoryMeeting: false},
		QuietHoursEnabled: ptr(true),
		QuietHoursStart:   &start,
		Timezone:          &tz,
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	if pref.EnableEmail {
		t.Error("EnableEmail should be off")
	}
	if pref.AppCategories.Enabled(domain.CategoryMeeting) {
		t.Error("meeting app toggle should be off")
	}
	if pref.AppCategories.Enabled(domain.CategoryTask) != true {
		t.Error("untouched toggles must keep their value")
	}
	if !pref.QuietHours.Enabled || pref.QuietHours.Start != "21:00" {
		t.Errorf("quiet hours not applied: %+v", pref.QuietHours)
	}
	if pref.QuietHours.Timezone != tz {
		t.Errorf("timezone = %q, want %q", pref.QuietHours.Timezone, tz)
	}
	// End was not sent, so the default must survive.
	if pref.QuietHours.End != "08:00" {
		t.Errorf("end = %q, want default 08:00", pref.QuietHours.End)
	}
}

func TestPreferenceUpdateValidation(t *testing.T) {
	store := newFakePreferenceStore()
	svc := NewPreferenceService(store, nil)

	bad := "25:99"
	if _, err := svc.Update(context.Background(), 1, 1, PreferenceUpdate{QuietHoursStart: &bad}); err == nil {
		t.Error("bad clock string should be rejected")
	}

	badTZ := "Mars/Olympus"
	if _, err := svc.Update(context.Background(), 1, 1, PreferenceUpdate{Timezone: &badTZ}); err == nil {
		t.Error("unknown timezone should be rejected")
	}

	if _, err := svc.Update(context.Background(), 1, 1, PreferenceUpdate{
		AppCategories: domain.CategoryToggles{"gossip": true},
	}); err == nil {
		t.Error("unknown category should be rejected")
	}

	badDigest := domain.DigestFrequency("fortnightly")
	if _, err := svc.Update(context.Background(), 1, 1, PreferenceUpdate{Digest: &badDigest}); err == nil {
		t.Error("unknown digest frequency should be rejected")
	}
}

func ptr[T any](v T) *T { return &v }
