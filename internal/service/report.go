package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/sayaka/teamboard/internal/domain"
)

// ReportStore defines the weekly report data access interface consumed by
// ReportService.
type ReportStore interface {
	Create(ctx context.Context, rep domain.WeeklyReport) (*domain.WeeklyReport, error)
	FindByID(ctx context.Context, id int64) (*domain.WeeklyReport, error)
	ListForOrg(ctx context.Context, orgID int64) ([]domain.WeeklyReport, error)
	Update(ctx context.Context, rep domain.WeeklyReport) (*domain.WeeklyReport, error)
	Submit(ctx context.Context, id int64, at time.Time) (*domain.WeeklyReport, error)
}

// OrgSource resolves organizations, used to find the owner to notify.
type OrgSource interface {
	FindByID(ctx context.Context, id int64) (*domain.Organization, error)
}

// ReportService handles weekly reports.
type ReportService struct {
	store    ReportStore
	orgs     OrgSource
	members  MembershipSource
	notifier Dispatcher
	audit    *AuditRecorder
	now      func() time.Time
}

// NewReportService creates a new ReportService.
func NewReportService(store ReportStore, orgs OrgSource, members MembershipSource, notifier Dispatcher, audit *AuditRecorder) *ReportService {
	return &ReportService{
		store:    store,
		orgs:     orgs,
		members:  members,
		notifier: notifier,
		audit:    audit,
		now:      time.Now,
	}
}

// ReportInput is the caller-supplied content of a weekly report.
type ReportInput struct {
	WeekStart time.Time `json:"week_start"`
	Summary   string    `json:"summary"`
	Blockers  *string   `json:"blockers"`
	NextPlans *string   `json:"next_plans"`
}

// Create creates a draft report for the actor. One per author per week.
func (s *ReportService) Create(ctx context.Context, orgID, actorID int64, in ReportInput) (*domain.WeeklyReport, error) {
	if _, err := requireMember(ctx, s.members, orgID, actorID); err != nil {
		return nil, err
	}
	if in.Summary == "" {
		return nil, &domain.ValidationError{Field: "summary", Message: "is required"}
	}

	report, err := s.store.Create(ctx, domain.WeeklyReport{
		OrgID:     orgID,
		AuthorID:  actorID,
		WeekStart: in.WeekStart,
		Summary:   in.Summary,
		Blockers:  in.Blockers,
		NextPlans: in.NextPlans,
		Status:    domain.ReportStatusDraft,
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

// Get returns a report the actor may see.
func (s *ReportService) Get(ctx context.Context, reportID, actorID int64) (*domain.WeeklyReport, error) {
	report, err := s.store.FindByID(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if _, err := requireMember(ctx, s.members, report.OrgID, actorID); err != nil {
		return nil, err
	}
	return report, nil
}

// List lists an organization's reports.
func (s *ReportService) List(ctx context.Context, orgID, actorID int64) ([]domain.WeeklyReport, error) {
	if _, err := requireMember(ctx, s.members, orgID, actorID); err != nil {
		return nil, err
	}
	return s.store.ListForOrg(ctx, orgID)
}

// Update overwrites a draft report's body. Only the author may edit, and
// only while the report is a draft.
func (s *ReportService) Update(ctx context.Context, reportID, actorID int64, in ReportInput) (*domain.WeeklyReport, error) {
	report, err := s.store.FindByID(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if report.AuthorID != actorID {
		return nil, domain.ErrForbidden
	}
	if report.Status != domain.ReportStatusDraft {
		return nil, domain.ErrConflict
	}

	if in.Summary != "" {
		report.Summary = in.Summary
	}
	if in.Blockers != nil {
		report.Blockers = in.Blockers
	}
	if in.NextPlans != nil {
		report.NextPlans = in.NextPlans
	}
	return s.store.Update(ctx, *report)
}

// Submit moves the actor's draft report to submitted and notifies the org
// owner.
func (s *ReportService) Submit(ctx context.Context, reportID, actorID int64) (*domain.WeeklyReport, error) {
	report, err := s.store.FindByID(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if report.AuthorID != actorID {
		return nil, domain.ErrForbidden
	}

	submitted, err := s.store.Submit(ctx, reportID, s.now())
	if err != nil {
		return nil, err
	}

	org, err := s.orgs.FindByID(ctx, submitted.OrgID)
	if err != nil {
		slog.Warn("report notification skipped: load org",
			"report_id", submitted.ID, "error", err)
	} else if org.OwnerID != actorID {
		entityType := "weekly_report"
		if _, err := s.notifier.Create(ctx, org.OwnerID, submitted.OrgID, CreateInput{
			Type:       domain.TypeReportSubmitted,
			Category:   domain.CategoryReport,
			Priority:   domain.PriorityMedium,
			Title:      "Weekly report submitted",
			Message:    "A weekly report for the week of " + submitted.WeekStart.Format("2006-01-02") + " was submitted.",
			EntityType: &entityType,
			EntityID:   &submitted.ID,
		}, true); err != nil {
			slog.Warn("report notification skipped", "report_id", submitted.ID, "error", err)
		}
	}

	s.audit.Record(submitted.OrgID, actorID, "report.submitted", "weekly_report", submitted.ID, nil)
	return submitted, nil
}
