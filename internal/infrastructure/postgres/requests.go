package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/campusxchange/swapkr/internal/domain"
	"github.com/jmoiron/sqlx"
)

const requestColumns = `id, owner_id, title, description, budget, urgent, status, created_at, updated_at`

// RequestRepo provides data access for the requests table.
type RequestRepo struct {
	db *sqlx.DB
}

func NewRequestRepo(db *sqlx.DB) *RequestRepo { return &RequestRepo{db: db} }

func (r *RequestRepo) Create(ctx context.Context, req *domain.Request) error {
	const q = `INSERT INTO requests (id, owner_id, title, description, budget, urgent, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.db.ExecContext(ctx, q, req.ID, req.OwnerID, req.Title, req.Description, req.Budget,
		req.Urgent, req.Status, req.CreatedAt, req.UpdatedAt)
	return mapErr(err, "request")
}

func (r *RequestRepo) Get(ctx context.Context, id string) (*domain.Request, error) {
	q := `SELECT ` + requestColumns + ` FROM requests WHERE id=$1`
	var req domain.Request
	if err := r.db.GetContext(ctx, &req, q, id); err != nil {
		return nil, mapErr(err, "request")
	}
	return &req, nil
}

// ListByStatus returns requests in the given state, urgent ones first.
func (r *RequestRepo) ListByStatus(ctx context.Context, status domain.Status, urgentOnly bool) ([]domain.Request, error) {
	q := `SELECT ` + requestColumns + ` FROM requests WHERE status=$1`
	if urgentOnly {
		q += ` AND urgent=true`
	}
	q += ` ORDER BY urgent DESC, created_at DESC`
	out := []domain.Request{}
	if err := r.db.SelectContext(ctx, &out, q, status); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *RequestRepo) ListByOwner(ctx context.Context, ownerID string) ([]domain.Request, error) {
	q := `SELECT ` + requestColumns + ` FROM requests WHERE owner_id=$1 ORDER BY created_at DESC`
	out := []domain.Request{}
	if err := r.db.SelectContext(ctx, &out, q, ownerID); err != nil {
		return nil, err
	}
	return out, nil
}

// Approve moves a pending request to approved. A request that exists but is
// not pending yields ErrConflict, which keeps the urgent broadcast single-shot.
func (r *RequestRepo) Approve(ctx context.Context, id string) (*domain.Request, error) {
	q := `UPDATE requests SET status='approved', updated_at=NOW()
		WHERE id=$1 AND status='pending' RETURNING ` + requestColumns
	var req domain.Request
	err := r.db.GetContext(ctx, &req, q, id)
	if err == nil {
		return &req, nil
	}
	err = mapErr(err, "request")
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	if _, getErr := r.Get(ctx, id); getErr != nil {
		return nil, getErr
	}
	return nil, fmt.Errorf("request is not pending: %w", domain.ErrConflict)
}

func (r *RequestRepo) Delete(ctx context.Context, id string) (*domain.Request, error) {
	q := `DELETE FROM requests WHERE id=$1 RETURNING ` + requestColumns
	var req domain.Request
	if err := r.db.GetContext(ctx, &req, q, id); err != nil {
		return nil, mapErr(err, "request")
	}
	return &req, nil
}
