package postgres

import (
	"context"
	"fmt"

	"github.com/campusxchange/swapkr/internal/domain"
	"github.com/jmoiron/sqlx"
)

const identityColumns = `id, email, name, password_hash, phone_number, department,
	academic_year, hostel, verified, created_at, updated_at`

// IdentityRepo provides data access for the identities table.
type IdentityRepo struct {
	db *sqlx.DB
}

func NewIdentityRepo(db *sqlx.DB) *IdentityRepo { return &IdentityRepo{db: db} }

func (r *IdentityRepo) Create(ctx context.Context, u *domain.Identity) error {
	const q = `INSERT INTO identities (id, email, name, password_hash, phone_number, department,
		academic_year, hostel, verified, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := r.db.ExecContext(ctx, q, u.ID, u.Email, u.Name, u.PasswordHash, u.PhoneNumber,
		u.Department, u.AcademicYear, u.Hostel, u.Verified, u.CreatedAt, u.UpdatedAt)
	return mapErr(err, "identity")
}

// ReplaceUnverified overwrites the profile of an identity that has not
// verified its email yet. A verified identity is left untouched and
// reported as a conflict.
func (r *IdentityRepo) ReplaceUnverified(ctx context.Context, u *domain.Identity) error {
	const q = `UPDATE identities SET name=$2, password_hash=$3, phone_number=$4, department=$5,
		academic_year=$6, hostel=$7, updated_at=NOW()
		WHERE id=$1 AND verified=false`
	res, err := r.db.ExecContext(ctx, q, u.ID, u.Name, u.PasswordHash, u.PhoneNumber,
		u.Department, u.AcademicYear, u.Hostel)
	if err != nil {
		return mapErr(err, "identity")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("identity already verified: %w", domain.ErrConflict)
	}
	return nil
}

func (r *IdentityRepo) Get(ctx context.Context, id string) (*domain.Identity, error) {
	q := `SELECT ` + identityColumns + ` FROM identities WHERE id=$1`
	var u domain.Identity
	if err := r.db.GetContext(ctx, &u, q, id); err != nil {
		return nil, mapErr(err, "identity")
	}
	return &u, nil
}

// GetByEmail matches case-insensitively, backed by the lower(email) unique index.
func (r *IdentityRepo) GetByEmail(ctx context.Context, email string) (*domain.Identity, error) {
	q := `SELECT ` + identityColumns + ` FROM identities WHERE lower(email)=lower($1)`
	var u domain.Identity
	if err := r.db.GetContext(ctx, &u, q, email); err != nil {
		return nil, mapErr(err, "identity")
	}
	return &u, nil
}

// MarkVerified flips verified to true. There is deliberately no way back.
func (r *IdentityRepo) MarkVerified(ctx context.Context, id string) error {
	const q = `UPDATE identities SET verified=true, updated_at=NOW() WHERE id=$1`
	res, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("identity not found: %w", domain.ErrNotFound)
	}
	return nil
}

func (r *IdentityRepo) ListVerified(ctx context.Context) ([]domain.Identity, error) {
	q := `SELECT ` + identityColumns + ` FROM identities WHERE verified=true ORDER BY created_at`
	out := []domain.Identity{}
	if err := r.db.SelectContext(ctx, &out, q); err != nil {
		return nil, err
	}
	return out, nil
}

// List returns one page of identities, newest first, and the total count.
func (r *IdentityRepo) List(ctx context.Context, limit, offset int) ([]domain.Identity, int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM identities`); err != nil {
		return nil, 0, err
	}
	q := `SELECT ` + identityColumns + ` FROM identities ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	out := []domain.Identity{}
	if err := r.db.SelectContext(ctx, &out, q, limit, offset); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// DeleteCascade removes an identity together with every listing and request
// it owns, in one transaction. It returns the image keys of the removed
// listings so the caller can clean up object storage.
func (r *IdentityRepo) DeleteCascade(ctx context.Context, id string) ([]string, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback() //nolint:errcheck

	imageKeys := []string{}
	if err := tx.SelectContext(ctx, &imageKeys,
		`DELETE FROM listings WHERE owner_id=$1 AND image_key IS NOT NULL RETURNING image_key`, id); err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM listings WHERE owner_id=$1`, id); err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM requests WHERE owner_id=$1`, id); err != nil {
		return nil, err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM identities WHERE id=$1`, id)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("identity not found: %w", domain.ErrNotFound)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return imageKeys, nil
}
