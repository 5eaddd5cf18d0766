// Package repository implements Postgres persistence with sqlx on the pgx
// stdlib driver.
package repository

import (
	"database/sql"
	"errors"

	"github.com/sayaka/teamboard/internal/domain"
)

// wrap converts a raw database error into the domain error surface:
// sql.ErrNoRows becomes ErrNotFound, anything else a retryable StoreError.
func wrap(op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	return &domain.StoreError{Op: op, Err: err}
}
