package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/sayaka/teamboard/internal/domain"
)

const preferenceColumns = `id, user_id, org_id, enable_in_app, enable_email, enable_push,
	app_categories, email_categories, digest,
	quiet_hours_enabled, quiet_hours_start, quiet_hours_end, quiet_hours_tz,
	weekend_app, weekend_email, created_at, updated_at`

// PreferenceRepository handles notification preference data access.
type PreferenceRepository struct {
	db *sqlx.DB
}

// NewPreferenceRepository creates a new PreferenceRepository.
func NewPreferenceRepository(db *sqlx.DB) *PreferenceRepository {
	return &PreferenceRepository{db: db}
}

// Find retrieves the preference row for a (user, org) pair.
func (r *PreferenceRepository) Find(ctx context.Context, userID, orgID int64) (*domain.Preference, error) {
	var pref domain.Preference
	err := r.db.GetContext(ctx, &pref,
		`SELECT `+preferenceColumns+` FROM notification_preferences
		 WHERE user_id = $1 AND org_id = $2`, userID, orgID)
	if err != nil {
		return nil, wrap("find preference", err)
	}
	return &pref, nil
}

// CreateIfAbsent inserts the given preference row unless one already exists
// for the (user, org) pair. Concurrent first reads race here; ON CONFLICT
// DO NOTHING guarantees exactly one row wins.
func (r *PreferenceRepository) CreateIfAbsent(ctx context.Context, pref domain.Preference) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO notification_preferences
		   (user_id, org_id, enable_in_app, enable_email, enable_push,
		    app_categories, email_categories, digest,
		    quiet_hours_enabled, quiet_hours_start, quiet_hours_end, quiet_hours_tz,
		    weekend_app, weekend_email)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		 ON CONFLICT (user_id, org_id) DO NOTHING`,
		pref.UserID, pref.OrgID, pref.EnableInApp, pref.EnableEmail, pref.EnablePush,
		pref.AppCategories, pref.EmailCategories, pref.Digest,
		pref.QuietHours.Enabled, pref.QuietHours.Start, pref.QuietHours.End, pref.QuietHours.Timezone,
		pref.WeekendApp, pref.WeekendEmail)
	if err != nil {
		return wrap("create preference", err)
	}
	return nil
}

// Update overwrites the mutable fields of an existing preference row and
// returns the stored result.
func (r *PreferenceRepository) Update(ctx context.Context, pref domain.Preference) (*domain.Preference, error) {
	var result domain.Preference
	err := r.db.QueryRowxContext(ctx,
		`UPDATE notification_preferences
		 SET enable_in_app = $3, enable_email = $4, enable_push = $5,
		     app_categories = $6, email_categories = $7, digest = $8,
		     quiet_hours_enabled = $9, quiet_hours_start = $10,
		     quiet_hours_end = $11, quiet_hours_tz = $12,
		     weekend_app = $13, weekend_email = $14,
		     updated_at = NOW()
		 WHERE user_id = $1 AND org_id = $2
		 RETURNING `+preferenceColumns,
		pref.UserID, pref.OrgID, pref.EnableInApp, pref.EnableEmail, pref.EnablePush,
		pref.AppCategories, pref.EmailCategories, pref.Digest,
		pref.QuietHours.Enabled, pref.QuietHours.Start, pref.QuietHours.End, pref.QuietHours.Timezone,
		pref.WeekendApp, pref.WeekendEmail,
	).StructScan(&result)
	if err != nil {
		return nil, wrap("update preference", err)
	}
	return &result, nil
}
