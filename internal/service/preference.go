package service

import (
	"context"
	"errors"
	"time"

	"github.com/sayaka/teamboard/internal/domain"
)

// PreferenceStore defines the preference data access interface consumed by
// PreferenceService.
type PreferenceStore interface {
	Find(ctx context.Context, userID, orgID int64) (*domain.Preference, error)
	CreateIfAbsent(ctx context.Context, pref domain.Preference) error
	Update(ctx context.Context, pref domain.Preference) (*domain.Preference, error)
}

// PreferenceService loads, lazily creates and updates notification
// preferences, and resolves them into enabled channel sets.
type PreferenceService struct {
	store PreferenceStore
	audit *AuditRecorder
}

// NewPreferenceService creates a new PreferenceService.
func NewPreferenceService(store PreferenceStore, audit *AuditRecorder) *PreferenceService {
	return &PreferenceService{store: store, audit: audit}
}

// Get returns the preference row for a (user, org) pair, creating the
// documented defaults on first access. Two concurrent first reads both pass
// through CreateIfAbsent and converge on the single row the insert race
// produced.
func (s *PreferenceService) Get(ctx context.Context, userID, orgID int64) (*domain.Preference, error) {
	pref, err := s.store.Find(ctx, userID, orgID)
	if err == nil {
		return pref, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	if err := s.store.CreateIfAbsent(ctx, domain.DefaultPreference(userID, orgID)); err != nil {
		return nil, err
	}
	return s.store.Find(ctx, userID, orgID)
}

// PreferenceUpdate is a partial update; nil fields keep their stored value.
// Category toggles are merged key by key.
type PreferenceUpdate struct {
	EnableInApp *bool `json:"enable_in_app"`
	EnableEmail *bool `json:"enable_email"`
	EnablePush  *bool `json:"enable_push"`

	AppCategories   domain.CategoryToggles `json:"app_categories"`
	EmailCategories domain.CategoryToggles `json:"email_categories"`

	Digest *domain.DigestFrequency `json:"digest"`

	QuietHoursEnabled *bool   `json:"quiet_hours_enabled"`
	QuietHoursStart   *string `json:"quiet_hours_start"`
	QuietHoursEnd     *string `json:"quiet_hours_end"`
	Timezone          *string `json:"timezone"`

	WeekendApp   *bool `json:"weekend_app"`
	WeekendEmail *bool `json:"weekend_email"`
}

// Update applies a partial update to a user's preferences and returns the
// stored result. The preference row is created with defaults first if the
// user never had one.
func (s *PreferenceService) Update(ctx context.Context, userID, orgID int64, upd PreferenceUpdate) (*domain.Preference, error) {
	pref, err := s.Get(ctx, userID, orgID)
	if err != nil {
		return nil, err
	}

	applyBool := func(dst *bool, src *bool) {
		if src != nil {
			*dst = *src
		}
	}
	applyBool(&pref.EnableInApp, upd.EnableInApp)
	applyBool(&pref.EnableEmail, upd.EnableEmail)
	applyBool(&pref.EnablePush, upd.EnablePush)
	applyBool(&pref.QuietHours.Enabled, upd.QuietHoursEnabled)
	applyBool(&pref.WeekendApp, upd.WeekendApp)
	applyBool(&pref.WeekendEmail, upd.WeekendEmail)

	for cat, on := range upd.AppCategories {
		if !cat.Valid() {
			return nil, &domain.ValidationError{Field: "app_categories", Message: "unknown category " + string(cat)}
		}
		pref.AppCategories[cat] = on
	}
	for cat, on := range upd.EmailCategories {
		if !cat.Valid() {
			return nil, &domain.ValidationError{Field: "email_categories", Message: "unknown category " + string(cat)}
		}
		pref.EmailCategories[cat] = on
	}

	if upd.Digest != nil {
		if !upd.Digest.Valid() {
			return nil, &domain.ValidationError{Field: "digest", Message: "unknown digest frequency"}
		}
		pref.Digest = *upd.Digest
	}

	if upd.QuietHoursStart != nil {
		if _, err := parseClock(*upd.QuietHoursStart); err != nil {
			return nil, &domain.ValidationError{Field: "quiet_hours_start", Message: "must be HH:MM"}
		}
		pref.QuietHours.Start = *upd.QuietHoursStart
	}
	if upd.QuietHoursEnd != nil {
		if _, err := parseClock(*upd.QuietHoursEnd); err != nil {
			return nil, &domain.ValidationError{Field: "quiet_hours_end", Message: "must be HH:MM"}
		}
		pref.QuietHours.End = *upd.QuietHoursEnd
	}
	if upd.Timezone != nil {
		if _, err := time.LoadLocation(*upd.Timezone); err != nil {
			return nil, &domain.ValidationError{Field: "timezone", Message: "unknown IANA timezone"}
		}
		pref.QuietHours.Timezone = *upd.Timezone
	}

	result, err := s.store.Update(ctx, *pref)
	if err != nil {
		return nil, err
	}

	s.audit.Record(orgID, userID, "notification_preferences.updated", "preference", result.ID, nil)
	return result, nil
}

// ResolveChannels maps a preference record, a notification's category and
// priority, and the current instant to the set of channels delivery should
// use. The instant is converted to the user's timezone before the weekend
// and quiet-hour checks. No step ever force-enables a channel; an all-false
// result is a valid silent notification.
func ResolveChannels(pref *domain.Preference, category domain.NotificationCategory, priority domain.NotificationPriority, now time.Time) domain.Channels {
	ch := domain.Channels{
		App:   pref.EnableInApp,
		Email: pref.EnableEmail,
		Push:  pref.EnablePush,
	}

	// Per-category gating; push has no category granularity.
	ch.App = ch.App && pref.AppCategories.Enabled(category)
	ch.Email = ch.Email && pref.EmailCategories.Enabled(category)

	local := now.In(locationOf(pref.QuietHours.Timezone))

	if wd := local.Weekday(); wd == time.Saturday || wd == time.Sunday {
		ch.App = ch.App && pref.WeekendApp
		ch.Email = ch.Email && pref.WeekendEmail
	}

	// Critical bypasses quiet hours; push is assumed lock-screen safe and
	// is never suppressed by them.
	if pref.QuietHours.Enabled && priority != domain.PriorityCritical &&
		inQuietWindow(local, pref.QuietHours.Start, pref.QuietHours.End) {
		ch.App = false
		ch.Email = false
	}

	return ch
}

// locationOf resolves an IANA timezone name, falling back to UTC for empty
// or unknown names rather than failing delivery.
func locationOf(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// parseClock parses an "HH:MM" wall-clock string into minutes past midnight.
func parseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}

// inQuietWindow reports whether the local instant falls inside the
// half-open [start, end) window. A window whose end is at or before its
// start wraps past midnight: 22:00-08:00 covers 23:59 and 07:59 but not
// 08:01 or 21:59.
func inQuietWindow(local time.Time, start, end string) bool {
	s, err := parseClock(start)
	if err != nil {
		return false
	}
	e, err := parseClock(end)
	if err != nil {
		return false
	}
	if s == e {
		// Zero-length window.
		return false
	}

	now := local.Hour()*60 + local.Minute()
	if s < e {
		return now >= s && now < e
	}
	return now >= s || now < e
}
