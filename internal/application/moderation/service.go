package moderation

import (
	"context"
	"fmt"

	"github.com/campusxchange/swapkr/internal/application/access"
	"github.com/campusxchange/swapkr/internal/application/broadcast"
	"github.com/campusxchange/swapkr/internal/domain"
	"github.com/campusxchange/swapkr/internal/pkg/logger"
	"go.uber.org/zap"
)

type ListingStore interface {
	ListByStatus(ctx context.Context, status domain.Status) ([]domain.Listing, error)
	Approve(ctx context.Context, id string) (*domain.Listing, error)
	Delete(ctx context.Context, id string) (*domain.Listing, error)
}

type RequestStore interface {
	ListByStatus(ctx context.Context, status domain.Status, urgentOnly bool) ([]domain.Request, error)
	Approve(ctx context.Context, id string) (*domain.Request, error)
	Delete(ctx context.Context, id string) (*domain.Request, error)
}

type IdentityStore interface {
	ListVerified(ctx context.Context) ([]domain.Identity, error)
	List(ctx context.Context, limit, offset int) ([]domain.Identity, int, error)
	DeleteCascade(ctx context.Context, id string) ([]string, error)
}

type ImageStore interface {
	Delete(ctx context.Context, key string) error
}

// Notifier starts a broadcast and returns without waiting for delivery.
type Notifier interface {
	Dispatch(ctx context.Context, recipients []domain.Identity, d broadcast.Details)
}

// Pending is the moderation queue.
type Pending struct {
	Listings []domain.Listing `json:"items"`
	Requests []domain.Request `json:"requests"`
}

type UserPage struct {
	Users   []domain.Identity `json:"users"`
	Total   int               `json:"total"`
	Page    int               `json:"page"`
	PerPage int               `json:"perPage"`
}

// Service moves listings and requests from pending to approved and removes
// content. Every operation checks the admin policy itself, whatever gate
// the caller already passed.
type Service interface {
	ApproveListing(ctx context.Context, p access.Principal, id string) (*domain.Listing, error)
	ApproveRequest(ctx context.Context, p access.Principal, id string) (*domain.Request, error)
	DeleteListing(ctx context.Context, p access.Principal, id string) error
	DeleteRequest(ctx context.Context, p access.Principal, id string) error
	DeleteUser(ctx context.Context, p access.Principal, userID string) error
	ListPending(ctx context.Context, p access.Principal) (*Pending, error)
	ListUsers(ctx context.Context, p access.Principal, page, perPage int) (*UserPage, error)
}

type Deps struct {
	Policy     *access.Policy
	Listings   ListingStore
	Requests   RequestStore
	Identities IdentityStore
	Images     ImageStore // optional
	Notifier   Notifier
	Logger     *zap.Logger
}

type service struct {
	policy     *access.Policy
	listings   ListingStore
	requests   RequestStore
	identities IdentityStore
	images     ImageStore
	notifier   Notifier
	log        *zap.Logger
}

func NewService(d Deps) Service {
	return &service{
		policy:     d.Policy,
		listings:   d.Listings,
		requests:   d.Requests,
		identities: d.Identities,
		images:     d.Images,
		notifier:   d.Notifier,
		log:        logger.OrNop(d.Logger),
	}
}

func (s *service) ApproveListing(ctx context.Context, p access.Principal, id string) (*domain.Listing, error) {
	if err := s.policy.Enforce(p); err != nil {
		return nil, err
	}
	return s.listings.Approve(ctx, id)
}

// ApproveRequest approves a pending request. An urgent one is then
// broadcast to every verified identity. Delivery runs in the background,
// so the approval stands and returns whatever the broadcast outcome. The store only transitions pending rows, so a second
// approval fails with ErrConflict and cannot broadcast twice.
func (s *service) ApproveRequest(ctx context.Context, p access.Principal, id string) (*domain.Request, error) {
	if err := s.policy.Enforce(p); err != nil {
		return nil, err
	}
	req, err := s.requests.Approve(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Urgent && s.notifier != nil {
		s.broadcast(ctx, req)
	}
	return req, nil
}

func (s *service) broadcast(ctx context.Context, req *domain.Request) {
	recipients, err := s.identities.ListVerified(ctx)
	if err != nil {
		s.log.Error("load broadcast recipients", zap.String("request_id", req.ID), zap.Error(err))
		return
	}
	s.notifier.Dispatch(ctx, recipients, broadcast.Details{
		RequestID:   req.ID,
		Title:       req.Title,
		Description: req.Description,
	})
}

func (s *service) DeleteListing(ctx context.Context, p access.Principal, id string) error {
	if err := s.policy.Enforce(p); err != nil {
		return err
	}
	l, err := s.listings.Delete(ctx, id)
	if err != nil {
		return err
	}
	if l.ImageKey != nil {
		s.dropImage(ctx, *l.ImageKey)
	}
	return nil
}

func (s *service) DeleteRequest(ctx context.Context, p access.Principal, id string) error {
	if err := s.policy.Enforce(p); err != nil {
		return err
	}
	_, err := s.requests.Delete(ctx, id)
	return err
}

// DeleteUser removes an identity together with its listings and requests.
func (s *service) DeleteUser(ctx context.Context, p access.Principal, userID string) error {
	if err := s.policy.Enforce(p); err != nil {
		return err
	}
	if caller, _ := access.IdentityOf(p); caller.UserID == userID {
		return fmt.Errorf("admins cannot delete their own account: %w", domain.ErrBadRequest)
	}
	keys, err := s.identities.DeleteCascade(ctx, userID)
	if err != nil {
		return err
	}
	for _, k := range keys {
		s.dropImage(ctx, k)
	}
	return nil
}

func (s *service) ListPending(ctx context.Context, p access.Principal) (*Pending, error) {
	if err := s.policy.Enforce(p); err != nil {
		return nil, err
	}
	listings, err := s.listings.ListByStatus(ctx, domain.StatusPending)
	if err != nil {
		return nil, err
	}
	requests, err := s.requests.ListByStatus(ctx, domain.StatusPending, false)
	if err != nil {
		return nil, err
	}
	return &Pending{Listings: listings, Requests: requests}, nil
}

func (s *service) ListUsers(ctx context.Context, p access.Principal, page, perPage int) (*UserPage, error) {
	if err := s.policy.Enforce(p); err != nil {
		return nil, err
	}
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}
	users, total, err := s.identities.List(ctx, perPage, (page-1)*perPage)
	if err != nil {
		return nil, err
	}
	return &UserPage{Users: users, Total: total, Page: page, PerPage: perPage}, nil
}

// dropImage removes a stored image. A leftover object is harmless, so
// failures are only logged.
func (s *service) dropImage(ctx context.Context, key string) {
	if s.images == nil {
		return
	}
	if err := s.images.Delete(ctx, key); err != nil {
		s.log.Warn("delete listing image", zap.String("key", key), zap.Error(err))
	}
}
