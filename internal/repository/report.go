package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sayaka/teamboard/internal/domain"
)

const reportColumns = `id, org_id, author_id, week_start, summary, blockers, next_plans,
	status, submitted_at, created_at, updated_at`

// ReportRepository handles weekly report data access.
type ReportRepository struct {
	db *sqlx.DB
}

// NewReportRepository creates a new ReportRepository.
func NewReportRepository(db *sqlx.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// Create inserts a draft report. One report per author per week.
func (r *ReportRepository) Create(ctx context.Context, rep domain.WeeklyReport) (*domain.WeeklyReport, error) {
	var result domain.WeeklyReport
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO weekly_reports (org_id, author_id, week_start, summary, blockers, next_plans, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (org_id, author_id, week_start) DO NOTHING
		 RETURNING `+reportColumns,
		rep.OrgID, rep.AuthorID, rep.WeekStart, rep.Summary, rep.Blockers, rep.NextPlans, rep.Status,
	).StructScan(&result)
	if err != nil {
		werr := wrap("create report", err)
		if errors.Is(werr, domain.ErrNotFound) {
			return nil, domain.ErrConflict
		}
		return nil, werr
	}
	return &result, nil
}

// FindByID retrieves a report by id.
func (r *ReportRepository) FindByID(ctx context.Context, id int64) (*domain.WeeklyReport, error) {
	var rep domain.WeeklyReport
	err := r.db.GetContext(ctx, &rep,
		`SELECT `+reportColumns+` FROM weekly_reports WHERE id = $1`, id)
	if err != nil {
		return nil, wrap("find report", err)
	}
	return &rep, nil
}

// ListForOrg lists an organization's reports, newest week first.
func (r *ReportRepository) ListForOrg(ctx context.Context, orgID int64) ([]domain.WeeklyReport, error) {
	var reports []domain.WeeklyReport
	err := r.db.SelectContext(ctx, &reports,
		`SELECT `+reportColumns+` FROM weekly_reports WHERE org_id = $1
		 ORDER BY week_start DESC, author_id`, orgID)
	if err != nil {
		return nil, wrap("list reports", err)
	}
	return reports, nil
}

// Update overwrites the body of a draft report.
func (r *ReportRepository) Update(ctx context.Context, rep domain.WeeklyReport) (*domain.WeeklyReport, error) {
	var result domain.WeeklyReport
	err := r.db.QueryRowxContext(ctx,
		`UPDATE weekly_reports
		 SET summary = $2, blockers = $3, next_plans = $4, updated_at = NOW()
		 WHERE id = $1
		 RETURNING `+reportColumns,
		rep.ID, rep.Summary, rep.Blockers, rep.NextPlans,
	).StructScan(&result)
	if err != nil {
		return nil, wrap("update report", err)
	}
	return &result, nil
}

// Submit moves a draft report to submitted. Submitting twice is a conflict.
func (r *ReportRepository) Submit(ctx context.Context, id int64, at time.Time) (*domain.WeeklyReport, error) {
	var result domain.WeeklyReport
	err := r.db.QueryRowxContext(ctx,
		`UPDATE weekly_reports
		 SET status = $2, submitted_at = $3, updated_at = NOW()
		 WHERE id = $1 AND status = $4
		 RETURNING `+reportColumns,
		id, domain.ReportStatusSubmitted, at, domain.ReportStatusDraft,
	).StructScan(&result)
	if err != nil {
		werr := wrap("submit report", err)
		if errors.Is(werr, domain.ErrNotFound) {
			return nil, domain.ErrConflict
		}
		return nil, werr
	}
	return &result, nil
}
