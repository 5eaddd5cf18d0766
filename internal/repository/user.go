package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/sayaka/teamboard/internal/domain"
)

// UserRepository handles user data access operations.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByID retrieves a user by their ID.
func (r *UserRepository) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	var user domain.User
	err := r.db.GetContext(ctx, &user,
		`SELECT id, provider, provider_id, email, display_name, avatar_url, created_at, updated_at
		 FROM users WHERE id = $1`, id)
	if err != nil {
		return nil, wrap("find user", err)
	}
	return &user, nil
}

// FindByIDs retrieves users for a set of ids. Unknown ids are skipped.
func (r *UserRepository) FindByIDs(ctx context.Context, ids []int64) ([]domain.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(
		`SELECT id, provider, provider_id, email, display_name, avatar_url, created_at, updated_at
		 FROM users WHERE id IN (?)`, ids)
	if err != nil {
		return nil, wrap("find users", err)
	}
	var users []domain.User
	if err := r.db.SelectContext(ctx, &users, r.db.Rebind(query), args...); err != nil {
		return nil, wrap("find users", err)
	}
	return users, nil
}

// Upsert creates a new user or updates an existing one based on
// provider + provider_id. Returns the created or updated user.
func (r *UserRepository) Upsert(ctx context.Context, user domain.User) (*domain.User, error) {
	var result domain.User
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO users (provider, provider_id, email, display_name, avatar_url)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (provider, provider_id)
		 DO UPDATE SET email = EXCLUDED.email,
		               display_name = EXCLUDED.display_name,
		               avatar_url = EXCLUDED.avatar_url,
		               updated_at = NOW()
		 RETURNING id, provider, provider_id, email, display_name, avatar_url, created_at, updated_at`,
		user.Provider, user.ProviderID, user.Email, user.DisplayName, user.AvatarURL,
	).StructScan(&result)
	if err != nil {
		return nil, wrap("upsert user", err)
	}
	return &result, nil
}
