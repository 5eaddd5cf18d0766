package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/sayaka/teamboard/internal/domain"
)

// TaskStore defines the task data access interface consumed by TaskService.
type TaskStore interface {
	Create(ctx context.Context, t domain.Task) (*domain.Task, error)
	FindByID(ctx context.Context, id int64) (*domain.Task, error)
	ListForProject(ctx context.Context, projectID int64) ([]domain.Task, error)
	Update(ctx context.Context, t domain.Task) (*domain.Task, error)
	Delete(ctx context.Context, id int64) error
}

// dueSoonWindow is how close a due date has to be before an assignment
// notification is raised to high priority.
const dueSoonWindow = 48 * time.Hour

// TaskService handles tasks.
type TaskService struct {
	store    TaskStore
	projects ProjectStore
	members  MembershipSource
	notifier Dispatcher
	audit    *AuditRecorder
	now      func() time.Time
}

// NewTaskService creates a new TaskService.
func NewTaskService(store TaskStore, projects ProjectStore, members MembershipSource, notifier Dispatcher, audit *AuditRecorder) *TaskService {
	return &TaskService{
		store:    store,
		projects: projects,
		members:  members,
		notifier: notifier,
		audit:    audit,
		now:      time.Now,
	}
}

// TaskInput is the caller-supplied content of a task.
type TaskInput struct {
	Title      string            `json:"title"`
	Body       *string           `json:"body"`
	AssigneeID *int64            `json:"assignee_id"`
	DueDate    *time.Time        `json:"due_date"`
	Status     domain.TaskStatus `json:"status"`
}

// Create creates a task and notifies the assignee if there is one.
func (s *TaskService) Create(ctx context.Context, projectID, actorID int64, in TaskInput) (*domain.Task, error) {
	project, err := s.projects.FindByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if _, err := requireMember(ctx, s.members, project.OrgID, actorID); err != nil {
		return nil, err
	}
	if in.Title == "" {
		return nil, &domain.ValidationError{Field: "title", Message: "is required"}
	}

	task, err := s.store.Create(ctx, domain.Task{
		ProjectID:  projectID,
		OrgID:      project.OrgID,
		Title:      in.Title,
		Body:       in.Body,
		Status:     domain.TaskStatusOpen,
		AssigneeID: in.AssigneeID,
		DueDate:    in.DueDate,
		CreatedBy:  actorID,
	})
	if err != nil {
		return nil, err
	}

	if task.AssigneeID != nil && *task.AssigneeID != actorID {
		s.notifyAssigned(ctx, task)
	}
	s.audit.Record(task.OrgID, actorID, "task.created", "task", task.ID, nil)
	return task, nil
}

// Get returns a task the actor may see.
func (s *TaskService) Get(ctx context.Context, taskID, actorID int64) (*domain.Task, error) {
	task, err := s.store.FindByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if _, err := requireMember(ctx, s.members, task.OrgID, actorID); err != nil {
		return nil, err
	}
	return task, nil
}

// List lists a project's tasks.
func (s *TaskService) List(ctx context.Context, projectID, actorID int64) ([]domain.Task, error) {
	project, err := s.projects.FindByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if _, err := requireMember(ctx, s.members, project.OrgID, actorID); err != nil {
		return nil, err
	}
	return s.store.ListForProject(ctx, projectID)
}

// Update overwrites a task's mutable fields and dispatches the resulting
// notifications: a new assignee is notified of the assignment, and the
// creator is notified when someone else completes the task.
func (s *TaskService) Update(ctx context.Context, taskID, actorID int64, in TaskInput) (*domain.Task, error) {
	task, err := s.Get(ctx, taskID, actorID)
	if err != nil {
		return nil, err
	}

	prevAssignee := task.AssigneeID
	prevStatus := task.Status

	if in.Title != "" {
		task.Title = in.Title
	}
	if in.Body != nil {
		task.Body = in.Body
	}
	if in.AssigneeID != nil {
		task.AssigneeID = in.AssigneeID
	}
	if in.DueDate != nil {
		task.DueDate = in.DueDate
	}
	if in.Status != "" {
		switch in.Status {
		case domain.TaskStatusOpen, domain.TaskStatusInProgress, domain.TaskStatusDone, domain.TaskStatusCancelled:
			task.Status = in.Status
		default:
			return nil, &domain.ValidationError{Field: "status", Message: "unknown status"}
		}
	}

	updated, err := s.store.Update(ctx, *task)
	if err != nil {
		return nil, err
	}

	newlyAssigned := updated.AssigneeID != nil &&
		(prevAssignee == nil || *prevAssignee != *updated.AssigneeID) &&
		*updated.AssigneeID != actorID
	if newlyAssigned {
		s.notifyAssigned(ctx, updated)
	}

	if prevStatus != domain.TaskStatusDone && updated.Status == domain.TaskStatusDone &&
		updated.CreatedBy != actorID {
		s.notifyOne(ctx, updated.CreatedBy, updated, domain.TypeTaskCompleted,
			domain.PriorityLow, "Task completed: "+updated.Title,
			"The task "+updated.Title+" was marked as done.")
	}

	s.audit.Record(updated.OrgID, actorID, "task.updated", "task", updated.ID, nil)
	return updated, nil
}

// Delete removes a task.
func (s *TaskService) Delete(ctx context.Context, taskID, actorID int64) error {
	task, err := s.Get(ctx, taskID, actorID)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, taskID); err != nil {
		return err
	}
	s.audit.Record(task.OrgID, actorID, "task.deleted", "task", taskID, nil)
	return nil
}

func (s *TaskService) notifyAssigned(ctx context.Context, task *domain.Task) {
	priority := domain.PriorityMedium
	if task.DueDate != nil && task.DueDate.Before(s.now().Add(dueSoonWindow)) {
		priority = domain.PriorityHigh
	}
	s.notifyOne(ctx, *task.AssigneeID, task, domain.TypeTaskAssigned, priority,
		"Task assigned: "+task.Title,
		"You were assigned the task "+task.Title+".")
}

func (s *TaskService) notifyOne(ctx context.Context, recipientID int64, task *domain.Task, typ domain.NotificationType, priority domain.NotificationPriority, title, message string) {
	entityType := "task"
	if _, err := s.notifier.Create(ctx, recipientID, task.OrgID, CreateInput{
		Type:       typ,
		Category:   domain.CategoryTask,
		Priority:   priority,
		Title:      title,
		Message:    message,
		EntityType: &entityType,
		EntityID:   &task.ID,
		Payload:    domain.JSONMap{"project_id": task.ProjectID},
	}, true); err != nil {
		slog.Warn("task notification skipped",
			"task_id", task.ID, "recipient_id", recipientID, "error", err)
	}
}
