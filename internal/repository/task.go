package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/sayaka/teamboard/internal/domain"
)

const taskColumns = `id, project_id, org_id, title, body, status, assignee_id, due_date,
	created_by, created_at, updated_at`

// TaskRepository handles task data access operations.
type TaskRepository struct {
	db *sqlx.DB
}

// NewTaskRepository creates a new TaskRepository.
func NewTaskRepository(db *sqlx.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// Create inserts a task.
func (r *TaskRepository) Create(ctx context.Context, t domain.Task) (*domain.Task, error) {
	var result domain.Task
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO tasks (project_id, org_id, title, body, status, assignee_id, due_date, created_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING `+taskColumns,
		t.ProjectID, t.OrgID, t.Title, t.Body, t.Status, t.AssigneeID, t.DueDate, t.CreatedBy,
	).StructScan(&result)
	if err != nil {
		return nil, wrap("create task", err)
	}
	return &result, nil
}

// FindByID retrieves a task by id.
func (r *TaskRepository) FindByID(ctx context.Context, id int64) (*domain.Task, error) {
	var t domain.Task
	err := r.db.GetContext(ctx, &t,
		`SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id)
	if err != nil {
		return nil, wrap("find task", err)
	}
	return &t, nil
}

// ListForProject lists a project's tasks.
func (r *TaskRepository) ListForProject(ctx context.Context, projectID int64) ([]domain.Task, error) {
	var tasks []domain.Task
	err := r.db.SelectContext(ctx, &tasks,
		`SELECT `+taskColumns+` FROM tasks WHERE project_id = $1 ORDER BY created_at DESC`, projectID)
	if err != nil {
		return nil, wrap("list tasks", err)
	}
	return tasks, nil
}

// Update overwrites the mutable fields of a task.
func (r *TaskRepository) Update(ctx context.Context, t domain.Task) (*domain.Task, error) {
	var result domain.Task
	err := r.db.QueryRowxContext(ctx,
		`UPDATE tasks
		 SET title = $2, body = $3, status = $4, assignee_id = $5, due_date = $6, updated_at = NOW()
		 WHERE id = $1
		 RETURNING `+taskColumns,
		t.ID, t.Title, t.Body, t.Status, t.AssigneeID, t.DueDate,
	).StructScan(&result)
	if err != nil {
		return nil, wrap("update task", err)
	}
	return &result, nil
}

// Delete removes a task.
func (r *TaskRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return wrap("delete task", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return wrap("delete task", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
