package service

import (
	"context"
	"log/slog"

	"github.com/sayaka/teamboard/internal/domain"
)

// ProjectStore defines the project data access interface consumed by
// ProjectService.
type ProjectStore interface {
	Create(ctx context.Context, p domain.Project) (*domain.Project, error)
	FindByID(ctx context.Context, id int64) (*domain.Project, error)
	ListForOrg(ctx context.Context, orgID int64) ([]domain.Project, error)
	Update(ctx context.Context, p domain.Project) (*domain.Project, error)
	Delete(ctx context.Context, id int64) error
}

// ProjectService handles projects.
type ProjectService struct {
	store    ProjectStore
	members  MembershipSource
	notifier Dispatcher
	audit    *AuditRecorder
}

// NewProjectService creates a new ProjectService.
func NewProjectService(store ProjectStore, members MembershipSource, notifier Dispatcher, audit *AuditRecorder) *ProjectService {
	return &ProjectService{store: store, members: members, notifier: notifier, audit: audit}
}

// ProjectInput is the caller-supplied content of a project.
type ProjectInput struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

// Create creates a project and notifies the other org members.
func (s *ProjectService) Create(ctx context.Context, orgID, actorID int64, in ProjectInput) (*domain.Project, error) {
	if _, err := requireMember(ctx, s.members, orgID, actorID); err != nil {
		return nil, err
	}
	if in.Name == "" {
		return nil, &domain.ValidationError{Field: "name", Message: "is required"}
	}

	project, err := s.store.Create(ctx, domain.Project{
		OrgID:       orgID,
		Name:        in.Name,
		Description: in.Description,
		Status:      domain.ProjectStatusActive,
		OwnerID:     actorID,
	})
	if err != nil {
		return nil, err
	}

	s.notifyMembers(ctx, project, actorID)
	s.audit.Record(orgID, actorID, "project.created", "project", project.ID, nil)
	return project, nil
}

// notifyMembers fans a project-created notification out to everyone but the
// creator. Best effort: a fan-out problem never fails project creation.
func (s *ProjectService) notifyMembers(ctx context.Context, project *domain.Project, actorID int64) {
	memberIDs, err := s.members.MemberIDs(ctx, project.OrgID)
	if err != nil {
		slog.Warn("project notification skipped: list members",
			"project_id", project.ID, "error", err)
		return
	}
	recipients := othersOf(memberIDs, actorID)
	if len(recipients) == 0 {
		return
	}

	entityType := "project"
	if _, err := s.notifier.CreateBulk(ctx, recipients, project.OrgID, CreateInput{
		Type:       domain.TypeProjectCreated,
		Category:   domain.CategoryProject,
		Priority:   domain.PriorityLow,
		Title:      "New project: " + project.Name,
		Message:    "The project " + project.Name + " was created.",
		EntityType: &entityType,
		EntityID:   &project.ID,
	}, true); err != nil {
		slog.Warn("project notification skipped", "project_id", project.ID, "error", err)
	}
}

// Get returns a project the actor may see.
func (s *ProjectService) Get(ctx context.Context, projectID, actorID int64) (*domain.Project, error) {
	project, err := s.store.FindByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if _, err := requireMember(ctx, s.members, project.OrgID, actorID); err != nil {
		return nil, err
	}
	return project, nil
}

// List lists an organization's projects.
func (s *ProjectService) List(ctx context.Context, orgID, actorID int64) ([]domain.Project, error) {
	if _, err := requireMember(ctx, s.members, orgID, actorID); err != nil {
		return nil, err
	}
	return s.store.ListForOrg(ctx, orgID)
}

// Update overwrites a project's mutable fields.
func (s *ProjectService) Update(ctx context.Context, projectID, actorID int64, in ProjectInput, status domain.ProjectStatus) (*domain.Project, error) {
	project, err := s.Get(ctx, projectID, actorID)
	if err != nil {
		return nil, err
	}

	if in.Name != "" {
		project.Name = in.Name
	}
	if in.Description != nil {
		project.Description = in.Description
	}
	if status != "" {
		if status != domain.ProjectStatusActive && status != domain.ProjectStatusArchived {
			return nil, &domain.ValidationError{Field: "status", Message: "unknown status"}
		}
		project.Status = status
	}

	updated, err := s.store.Update(ctx, *project)
	if err != nil {
		return nil, err
	}

	s.audit.Record(updated.OrgID, actorID, "project.updated", "project", updated.ID, nil)
	return updated, nil
}

// Delete removes a project. Only managers may delete.
func (s *ProjectService) Delete(ctx context.Context, projectID, actorID int64) error {
	project, err := s.store.FindByID(ctx, projectID)
	if err != nil {
		return err
	}
	m, err := requireMember(ctx, s.members, project.OrgID, actorID)
	if err != nil {
		return err
	}
	if !m.Role.CanManage() && project.OwnerID != actorID {
		return domain.ErrForbidden
	}

	if err := s.store.Delete(ctx, projectID); err != nil {
		return err
	}
	s.audit.Record(project.OrgID, actorID, "project.deleted", "project", projectID, nil)
	return nil
}
