package domain

import (
	"database/sql/driver"
	"time"
)

// DigestFrequency is how often a user wants email notifications batched.
// It does not gate individual deliveries.
type DigestFrequency string

const (
	DigestNever     DigestFrequency = "never"
	DigestImmediate DigestFrequency = "immediate"
	DigestHourly    DigestFrequency = "hourly"
	DigestDaily     DigestFrequency = "daily"
	DigestWeekly    DigestFrequency = "weekly"
)

// Valid reports whether the frequency is one of the known values.
func (f DigestFrequency) Valid() bool {
	switch f {
	case DigestNever, DigestImmediate, DigestHourly, DigestDaily, DigestWeekly:
		return true
	}
	return false
}

// CategoryToggles maps a notification category to an on/off switch for one
// delivery surface. Stored as jsonb so adding a category never needs a
// schema change.
type CategoryToggles map[NotificationCategory]bool

// Enabled reports the switch for a category. Categories the user has never
// seen default to enabled; gating is opt-out.
func (t CategoryToggles) Enabled(c NotificationCategory) bool {
	if t == nil {
		return true
	}
	v, ok := t[c]
	if !ok {
		return true
	}
	return v
}

// Value implements driver.Valuer.
func (t CategoryToggles) Value() (driver.Value, error) {
	return JSONMap(toAnyMap(t)).Value()
}

// Scan implements sql.Scanner.
func (t *CategoryToggles) Scan(src any) error {
	return scanJSON(src, t)
}

func toAnyMap(t CategoryToggles) map[string]any {
	m := make(map[string]any, len(t))
	for k, v := range t {
		m[string(k)] = v
	}
	return m
}

// QuietHours is a per-user local-time window during which non-critical app
// and email delivery is suppressed. The window may wrap past midnight.
type QuietHours struct {
	Enabled  bool   `json:"enabled" db:"quiet_hours_enabled"`
	Start    string `json:"start" db:"quiet_hours_start"` // "HH:MM"
	End      string `json:"end" db:"quiet_hours_end"`     // "HH:MM"
	Timezone string `json:"timezone" db:"quiet_hours_tz"` // IANA name
}

// Preference holds one user's notification settings for one organization.
type Preference struct {
	ID     int64 `json:"id" db:"id"`
	UserID int64 `json:"user_id" db:"user_id"`
	OrgID  int64 `json:"org_id" db:"org_id"`

	EnableInApp bool `json:"enable_in_app" db:"enable_in_app"`
	EnableEmail bool `json:"enable_email" db:"enable_email"`
	EnablePush  bool `json:"enable_push" db:"enable_push"`

	AppCategories   CategoryToggles `json:"app_categories" db:"app_categories"`
	EmailCategories CategoryToggles `json:"email_categories" db:"email_categories"`

	Digest DigestFrequency `json:"digest" db:"digest"`

	QuietHours `json:"quiet_hours"`

	WeekendApp   bool `json:"weekend_app" db:"weekend_app"`
	WeekendEmail bool `json:"weekend_email" db:"weekend_email"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// DefaultPreference returns the documented defaults for a user who has never
// touched their settings: every switch on except system-category email,
// quiet hours off, daily digest.
func DefaultPreference(userID, orgID int64) Preference {
	app := make(CategoryToggles, len(Categories))
	email := make(CategoryToggles, len(Categories))
	for _, c := range Categories {
		app[c] = true
		email[c] = true
	}
	email[CategorySystem] = false

	return Preference{
		UserID:          userID,
		OrgID:           orgID,
		EnableInApp:     true,
		EnableEmail:     true,
		EnablePush:      true,
		AppCategories:   app,
		EmailCategories: email,
		Digest:          DigestDaily,
		QuietHours: QuietHours{
			Enabled:  false,
			Start:    "22:00",
			End:      "08:00",
			Timezone: "UTC",
		},
		WeekendApp:   true,
		WeekendEmail: true,
	}
}
