package repository

import (
	"context"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/sayaka/teamboard/internal/domain"
)

// OrgRepository handles organization and membership data access.
type OrgRepository struct {
	db *sqlx.DB
}

// NewOrgRepository creates a new OrgRepository.
func NewOrgRepository(db *sqlx.DB) *OrgRepository {
	return &OrgRepository{db: db}
}

// Create inserts an organization and its owner membership in one transaction.
func (r *OrgRepository) Create(ctx context.Context, org domain.Organization) (*domain.Organization, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, wrap("create org", err)
	}
	defer tx.Rollback()

	var result domain.Organization
	err = tx.QueryRowxContext(ctx,
		`INSERT INTO organizations (name, owner_id)
		 VALUES ($1, $2)
		 RETURNING id, name, owner_id, created_at, updated_at`,
		org.Name, org.OwnerID,
	).StructScan(&result)
	if err != nil {
		return nil, wrap("create org", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO memberships (org_id, user_id, role) VALUES ($1, $2, $3)`,
		result.ID, org.OwnerID, domain.RoleOwner)
	if err != nil {
		return nil, wrap("create owner membership", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, wrap("create org", err)
	}
	return &result, nil
}

// FindByID retrieves an organization by id.
func (r *OrgRepository) FindByID(ctx context.Context, id int64) (*domain.Organization, error) {
	var org domain.Organization
	err := r.db.GetContext(ctx, &org,
		`SELECT id, name, owner_id, created_at, updated_at FROM organizations WHERE id = $1`, id)
	if err != nil {
		return nil, wrap("find org", err)
	}
	return &org, nil
}

// ListForUser lists every organization the user is a member of.
func (r *OrgRepository) ListForUser(ctx context.Context, userID int64) ([]domain.Organization, error) {
	var orgs []domain.Organization
	err := r.db.SelectContext(ctx, &orgs,
		`SELECT o.id, o.name, o.owner_id, o.created_at, o.updated_at
		 FROM organizations o
		 JOIN memberships m ON m.org_id = o.id
		 WHERE m.user_id = $1
		 ORDER BY o.created_at`, userID)
	if err != nil {
		return nil, wrap("list orgs", err)
	}
	return orgs, nil
}

// FindMembership retrieves a user's membership in an organization.
func (r *OrgRepository) FindMembership(ctx context.Context, orgID, userID int64) (*domain.Membership, error) {
	var m domain.Membership
	err := r.db.GetContext(ctx, &m,
		`SELECT org_id, user_id, role, created_at FROM memberships
		 WHERE org_id = $1 AND user_id = $2`, orgID, userID)
	if err != nil {
		return nil, wrap("find membership", err)
	}
	return &m, nil
}

// AddMember inserts a membership. Adding an existing member is a conflict.
func (r *OrgRepository) AddMember(ctx context.Context, m domain.Membership) (*domain.Membership, error) {
	var result domain.Membership
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO memberships (org_id, user_id, role)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (org_id, user_id) DO NOTHING
		 RETURNING org_id, user_id, role, created_at`,
		m.OrgID, m.UserID, m.Role,
	).StructScan(&result)
	if err != nil {
		// DO NOTHING yields no row when the membership already exists.
		werr := wrap("add member", err)
		if errors.Is(werr, domain.ErrNotFound) {
			return nil, domain.ErrConflict
		}
		return nil, werr
	}
	return &result, nil
}

// MemberIDs lists the user ids of every member of an organization.
func (r *OrgRepository) MemberIDs(ctx context.Context, orgID int64) ([]int64, error) {
	var ids []int64
	err := r.db.SelectContext(ctx, &ids,
		`SELECT user_id FROM memberships WHERE org_id = $1 ORDER BY user_id`, orgID)
	if err != nil {
		return nil, wrap("list member ids", err)
	}
	return ids, nil
}
