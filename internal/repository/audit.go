package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/sayaka/teamboard/internal/domain"
)

// AuditRepository appends audit log entries.
type AuditRepository struct {
	db *sqlx.DB
}

// NewAuditRepository creates a new AuditRepository.
func NewAuditRepository(db *sqlx.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Insert appends one audit entry.
func (r *AuditRepository) Insert(ctx context.Context, e domain.AuditEntry) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO audit_log (id, org_id, actor_id, action, entity_type, entity_id, detail)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		e.ID, e.OrgID, e.ActorID, e.Action, e.EntityType, e.EntityID, e.Detail)
	if err != nil {
		return wrap("insert audit entry", err)
	}
	return nil
}

// ListForOrg returns the newest audit entries for an organization.
func (r *AuditRepository) ListForOrg(ctx context.Context, orgID int64, limit int) ([]domain.AuditEntry, error) {
	var entries []domain.AuditEntry
	err := r.db.SelectContext(ctx, &entries,
		`SELECT id, org_id, actor_id, action, entity_type, entity_id, detail, created_at
		 FROM audit_log WHERE org_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2`, orgID, limit)
	if err != nil {
		return nil, wrap("list audit entries", err)
	}
	return entries, nil
}
