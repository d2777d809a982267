package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/campusxchange/swapkr/internal/domain"
	"github.com/jmoiron/sqlx"
)

const listingColumns = `id, owner_id, title, description, price, condition, image_key, status, created_at, updated_at`

// ListingRepo provides data access for the listings table.
type ListingRepo struct {
	db *sqlx.DB
}

func NewListingRepo(db *sqlx.DB) *ListingRepo { return &ListingRepo{db: db} }

func (r *ListingRepo) Create(ctx context.Context, l *domain.Listing) error {
	const q = `INSERT INTO listings (id, owner_id, title, description, price, condition, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.db.ExecContext(ctx, q, l.ID, l.OwnerID, l.Title, l.Description, l.Price,
		l.Condition, l.Status, l.CreatedAt, l.UpdatedAt)
	return mapErr(err, "listing")
}

func (r *ListingRepo) Get(ctx context.Context, id string) (*domain.Listing, error) {
	q := `SELECT ` + listingColumns + ` FROM listings WHERE id=$1`
	var l domain.Listing
	if err := r.db.GetContext(ctx, &l, q, id); err != nil {
		return nil, mapErr(err, "listing")
	}
	return withImageFlag(&l), nil
}

func (r *ListingRepo) ListByStatus(ctx context.Context, status domain.Status) ([]domain.Listing, error) {
	q := `SELECT ` + listingColumns + ` FROM listings WHERE status=$1 ORDER BY created_at DESC`
	return r.selectListings(ctx, q, status)
}

func (r *ListingRepo) ListByOwner(ctx context.Context, ownerID string) ([]domain.Listing, error) {
	q := `SELECT ` + listingColumns + ` FROM listings WHERE owner_id=$1 ORDER BY created_at DESC`
	return r.selectListings(ctx, q, ownerID)
}

// Approve moves a pending listing to approved. A listing that exists but is
// not pending yields ErrConflict; the transition never runs twice.
func (r *ListingRepo) Approve(ctx context.Context, id string) (*domain.Listing, error) {
	q := `UPDATE listings SET status='approved', updated_at=NOW()
		WHERE id=$1 AND status='pending' RETURNING ` + listingColumns
	var l domain.Listing
	err := r.db.GetContext(ctx, &l, q, id)
	if err == nil {
		return withImageFlag(&l), nil
	}
	err = mapErr(err, "listing")
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	if _, getErr := r.Get(ctx, id); getErr != nil {
		return nil, getErr
	}
	return nil, fmt.Errorf("listing is not pending: %w", domain.ErrConflict)
}

// Delete removes the listing and returns the row as it was.
func (r *ListingRepo) Delete(ctx context.Context, id string) (*domain.Listing, error) {
	q := `DELETE FROM listings WHERE id=$1 RETURNING ` + listingColumns
	var l domain.Listing
	if err := r.db.GetContext(ctx, &l, q, id); err != nil {
		return nil, mapErr(err, "listing")
	}
	return withImageFlag(&l), nil
}

// SetImage stores a new image key and returns the one it replaced, if any.
func (r *ListingRepo) SetImage(ctx context.Context, id, key string) (*string, error) {
	const q = `UPDATE listings l SET image_key=$2, updated_at=NOW()
		FROM (SELECT id, image_key FROM listings WHERE id=$1 FOR UPDATE) old
		WHERE l.id = old.id
		RETURNING old.image_key`
	var prev *string
	if err := r.db.GetContext(ctx, &prev, q, id, key); err != nil {
		return nil, mapErr(err, "listing")
	}
	return prev, nil
}

func (r *ListingRepo) selectListings(ctx context.Context, q string, args ...interface{}) ([]domain.Listing, error) {
	out := []domain.Listing{}
	if err := r.db.SelectContext(ctx, &out, q, args...); err != nil {
		return nil, err
	}
	for i := range out {
		withImageFlag(&out[i])
	}
	return out, nil
}

func withImageFlag(l *domain.Listing) *domain.Listing {
	l.HasImage = l.ImageKey != nil && *l.ImageKey != ""
	return l
}
