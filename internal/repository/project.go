package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/sayaka/teamboard/internal/domain"
)

const projectColumns = `id, org_id, name, description, status, owner_id, created_at, updated_at`

// ProjectRepository handles project data access operations.
type ProjectRepository struct {
	db *sqlx.DB
}

// NewProjectRepository creates a new ProjectRepository.
func NewProjectRepository(db *sqlx.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// Create inserts a project.
func (r *ProjectRepository) Create(ctx context.Context, p domain.Project) (*domain.Project, error) {
	var result domain.Project
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO projects (org_id, name, description, status, owner_id)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+projectColumns,
		p.OrgID, p.Name, p.Description, p.Status, p.OwnerID,
	).StructScan(&result)
	if err != nil {
		return nil, wrap("create project", err)
	}
	return &result, nil
}

// FindByID retrieves a project by id.
func (r *ProjectRepository) FindByID(ctx context.Context, id int64) (*domain.Project, error) {
	var p domain.Project
	err := r.db.GetContext(ctx, &p,
		`SELECT `+projectColumns+` FROM projects WHERE id = $1`, id)
	if err != nil {
		return nil, wrap("find project", err)
	}
	return &p, nil
}

// ListForOrg lists an organization's projects.
func (r *ProjectRepository) ListForOrg(ctx context.Context, orgID int64) ([]domain.Project, error) {
	var projects []domain.Project
	err := r.db.SelectContext(ctx, &projects,
		`SELECT `+projectColumns+` FROM projects WHERE org_id = $1 ORDER BY created_at DESC`, orgID)
	if err != nil {
		return nil, wrap("list projects", err)
	}
	return projects, nil
}

// Update overwrites the mutable fields of a project.
func (r *ProjectRepository) Update(ctx context.Context, p domain.Project) (*domain.Project, error) {
	var result domain.Project
	err := r.db.QueryRowxContext(ctx,
		`UPDATE projects
		 SET name = $2, description = $3, status = $4, updated_at = NOW()
		 WHERE id = $1
		 RETURNING `+projectColumns,
		p.ID, p.Name, p.Description, p.Status,
	).StructScan(&result)
	if err != nil {
		return nil, wrap("update project", err)
	}
	return &result, nil
}

// Delete removes a project.
func (r *ProjectRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return wrap("delete project", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return wrap("delete project", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
