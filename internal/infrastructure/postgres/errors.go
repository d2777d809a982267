package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/campusxchange/swapkr/internal/domain"
	"github.com/lib/pq"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// mapErr translates driver errors into domain sentinels so services never
// see sql or pq types.
func mapErr(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s not found: %w", what, domain.ErrNotFound)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pgUniqueViolation:
			return fmt.Errorf("%s already exists: %w", what, domain.ErrConflict)
		case pgForeignKeyViolation:
			return fmt.Errorf("owner of %s not found: %w", what, domain.ErrNotFound)
		}
	}
	return err
}
