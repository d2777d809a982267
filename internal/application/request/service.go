package request

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/campusxchange/swapkr/internal/application/access"
	"github.com/campusxchange/swapkr/internal/domain"
	"github.com/campusxchange/swapkr/internal/pkg/id"
	"github.com/campusxchange/swapkr/internal/pkg/validate"
)

type Store interface {
	Create(ctx context.Context, r *domain.Request) error
	Get(ctx context.Context, id string) (*domain.Request, error)
	ListByStatus(ctx context.Context, status domain.Status, urgentOnly bool) ([]domain.Request, error)
	ListByOwner(ctx context.Context, ownerID string) ([]domain.Request, error)
	Delete(ctx context.Context, id string) (*domain.Request, error)
}

// Approver is the moderation step applied to requests created by admins.
// Approving an urgent request also broadcasts it.
type Approver interface {
	ApproveRequest(ctx context.Context, p access.Principal, id string) (*domain.Request, error)
}

type Service interface {
	Create(ctx context.Context, p access.Principal, req domain.CreateRequestRequest) (*domain.Request, error)
	Get(ctx context.Context, p access.Principal, id string) (*domain.Request, error)
	ListApproved(ctx context.Context, urgentOnly bool) ([]domain.Request, error)
	ListMine(ctx context.Context, p access.Principal) ([]domain.Request, error)
	Delete(ctx context.Context, p access.Principal, id string) error
}

type service struct {
	store    Store
	approver Approver
	policy   *access.Policy
}

func NewService(store Store, approver Approver, policy *access.Policy) Service {
	return &service{store: store, approver: approver, policy: policy}
}

func (s *service) Create(ctx context.Context, p access.Principal, req domain.CreateRequestRequest) (*domain.Request, error) {
	caller, ok := access.IdentityOf(p)
	if !ok {
		return nil, fmt.Errorf("authentication required: %w", domain.ErrUnauthorized)
	}
	req.Title = strings.TrimSpace(req.Title)
	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	r := &domain.Request{
		ID:          id.New(),
		OwnerID:     caller.UserID,
		Title:       req.Title,
		Description: strings.TrimSpace(req.Description),
		Budget:      req.Budget,
		Urgent:      req.Urgent,
		Status:      domain.StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.Create(ctx, r); err != nil {
		return nil, err
	}
	if s.approver != nil && s.policy.IsAdminPrincipal(p) {
		return s.approver.ApproveRequest(ctx, p, r.ID)
	}
	return r, nil
}

func (s *service) Get(ctx context.Context, p access.Principal, id string) (*domain.Request, error) {
	r, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.Status != domain.StatusApproved && !s.canManage(p, r.OwnerID) {
		return nil, fmt.Errorf("request not found: %w", domain.ErrNotFound)
	}
	return r, nil
}

func (s *service) ListApproved(ctx context.Context, urgentOnly bool) ([]domain.Request, error) {
	return s.store.ListByStatus(ctx, domain.StatusApproved, urgentOnly)
}

func (s *service) ListMine(ctx context.Context, p access.Principal) ([]domain.Request, error) {
	caller, ok := access.IdentityOf(p)
	if !ok {
		return nil, fmt.Errorf("authentication required: %w", domain.ErrUnauthorized)
	}
	return s.store.ListByOwner(ctx, caller.UserID)
}

func (s *service) Delete(ctx context.Context, p access.Principal, id string) error {
	r, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if !s.canManage(p, r.OwnerID) {
		return fmt.Errorf("not your request: %w", domain.ErrForbidden)
	}
	_, err = s.store.Delete(ctx, id)
	return err
}

func (s *service) canManage(p access.Principal, ownerID string) bool {
	caller, ok := access.IdentityOf(p)
	return ok && (caller.UserID == ownerID || s.policy.IsAdmin(caller.Email))
}
