package listing

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/campusxchange/swapkr/internal/application/access"
	"github.com/campusxchange/swapkr/internal/domain"
	s3infra "github.com/campusxchange/swapkr/internal/infrastructure/s3"
	"github.com/campusxchange/swapkr/internal/pkg/id"
	"github.com/campusxchange/swapkr/internal/pkg/logger"
	"github.com/campusxchange/swapkr/internal/pkg/validate"
	"go.uber.org/zap"
)

type Store interface {
	Create(ctx context.Context, l *domain.Listing) error
	Get(ctx context.Context, id string) (*domain.Listing, error)
	ListByStatus(ctx context.Context, status domain.Status) ([]domain.Listing, error)
	ListByOwner(ctx context.Context, ownerID string) ([]domain.Listing, error)
	Delete(ctx context.Context, id string) (*domain.Listing, error)
	SetImage(ctx context.Context, id, key string) (*string, error)
}

type ImageStore interface {
	Upload(ctx context.Context, key string, r io.Reader, contentType string) error
	PresignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
	Delete(ctx context.Context, key string) error
}

// Approver is the moderation step applied to listings created by admins.
type Approver interface {
	ApproveListing(ctx context.Context, p access.Principal, id string) (*domain.Listing, error)
}

type ImageInput struct {
	Reader      io.Reader
	Filename    string
	ContentType string
}

type Service interface {
	Create(ctx context.Context, p access.Principal, req domain.CreateListingRequest) (*domain.Listing, error)
	Get(ctx context.Context, p access.Principal, id string) (*domain.Listing, error)
	ListApproved(ctx context.Context) ([]domain.Listing, error)
	ListMine(ctx context.Context, p access.Principal) ([]domain.Listing, error)
	Delete(ctx context.Context, p access.Principal, id string) error
	AttachImage(ctx context.Context, p access.Principal, id string, in ImageInput) (*domain.Listing, error)
	ImageURL(ctx context.Context, p access.Principal, id string) (string, error)
}

type Deps struct {
	Store    Store
	Images   ImageStore
	Approver Approver
	Policy   *access.Policy
	URLTTL   time.Duration
	Logger   *zap.Logger
}

type service struct {
	store    Store
	images   ImageStore
	approver Approver
	policy   *access.Policy
	urlTTL   time.Duration
	log      *zap.Logger
}

func NewService(d Deps) Service {
	ttl := d.URLTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &service{
		store:    d.Store,
		images:   d.Images,
		approver: d.Approver,
		policy:   d.Policy,
		urlTTL:   ttl,
		log:      logger.OrNop(d.Logger),
	}
}

// Create stores a pending listing. Admin listings go straight through
// moderation.
func (s *service) Create(ctx context.Context, p access.Principal, req domain.CreateListingRequest) (*domain.Listing, error) {
	caller, ok := access.IdentityOf(p)
	if !ok {
		return nil, fmt.Errorf("authentication required: %w", domain.ErrUnauthorized)
	}
	req.Title = strings.TrimSpace(req.Title)
	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	l := &domain.Listing{
		ID:          id.New(),
		OwnerID:     caller.UserID,
		Title:       req.Title,
		Description: strings.TrimSpace(req.Description),
		Price:       req.Price,
		Condition:   strings.TrimSpace(req.Condition),
		Status:      domain.StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.Create(ctx, l); err != nil {
		return nil, err
	}
	if s.approver != nil && s.policy.IsAdminPrincipal(p) {
		return s.approver.ApproveListing(ctx, p, l.ID)
	}
	return l, nil
}

// Get returns a listing. Unapproved listings are only visible to their
// owner and to admins; everyone else sees ErrNotFound.
func (s *service) Get(ctx context.Context, p access.Principal, id string) (*domain.Listing, error) {
	l, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if l.Status != domain.StatusApproved && !s.canManage(p, l.OwnerID) {
		return nil, fmt.Errorf("listing not found: %w", domain.ErrNotFound)
	}
	return l, nil
}

func (s *service) ListApproved(ctx context.Context) ([]domain.Listing, error) {
	return s.store.ListByStatus(ctx, domain.StatusApproved)
}

func (s *service) ListMine(ctx context.Context, p access.Principal) ([]domain.Listing, error) {
	caller, ok := access.IdentityOf(p)
	if !ok {
		return nil, fmt.Errorf("authentication required: %w", domain.ErrUnauthorized)
	}
	return s.store.ListByOwner(ctx, caller.UserID)
}

func (s *service) Delete(ctx context.Context, p access.Principal, id string) error {
	l, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if !s.canManage(p, l.OwnerID) {
		return fmt.Errorf("not your listing: %w", domain.ErrForbidden)
	}
	deleted, err := s.store.Delete(ctx, id)
	if err != nil {
		return err
	}
	if deleted.ImageKey != nil {
		s.dropImage(ctx, *deleted.ImageKey)
	}
	return nil
}

// AttachImage uploads a picture for the owner's listing, replacing any
// previous one.
func (s *service) AttachImage(ctx context.Context, p access.Principal, id string, in ImageInput) (*domain.Listing, error) {
	caller, ok := access.IdentityOf(p)
	if !ok {
		return nil, fmt.Errorf("authentication required: %w", domain.ErrUnauthorized)
	}
	l, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if l.OwnerID != caller.UserID {
		return nil, fmt.Errorf("not your listing: %w", domain.ErrForbidden)
	}
	if s.images == nil {
		return nil, fmt.Errorf("image storage unavailable: %w", domain.ErrBadRequest)
	}

	name := sanitizeFilename(in.Filename)
	contentType := in.ContentType
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = s3infra.DetectContentType(name)
	}
	if !strings.HasPrefix(contentType, "image/") {
		return nil, fmt.Errorf("only image uploads are accepted: %w", domain.ErrBadRequest)
	}

	key := fmt.Sprintf("listings/%s/%s", l.ID, name)
	if err := s.images.Upload(ctx, key, in.Reader, contentType); err != nil {
		return nil, err
	}
	prev, err := s.store.SetImage(ctx, l.ID, key)
	if err != nil {
		return nil, err
	}
	if prev != nil && *prev != "" && *prev != key {
		s.dropImage(ctx, *prev)
	}
	l.ImageKey = &key
	l.HasImage = true
	return l, nil
}

// ImageURL returns a short-lived download link for a visible listing's image.
func (s *service) ImageURL(ctx context.Context, p access.Principal, id string) (string, error) {
	l, err := s.Get(ctx, p, id)
	if err != nil {
		return "", err
	}
	if l.ImageKey == nil || *l.ImageKey == "" || s.images == nil {
		return "", fmt.Errorf("listing has no image: %w", domain.ErrNotFound)
	}
	return s.images.PresignedURL(ctx, *l.ImageKey, s.urlTTL)
}

func (s *service) canManage(p access.Principal, ownerID string) bool {
	caller, ok := access.IdentityOf(p)
	if !ok {
		return false
	}
	return caller.UserID == ownerID || s.policy.IsAdmin(caller.Email)
}

func (s *service) dropImage(ctx context.Context, key string) {
	if s.images == nil {
		return
	}
	if err := s.images.Delete(ctx, key); err != nil {
		s.log.Warn("delete listing image", zap.String("key", key), zap.Error(err))
	}
}

// sanitizeFilename strips directory components and keeps only safe characters
// (alphanumeric, dot, dash, underscore) to prevent path traversal in S3 keys.
func sanitizeFilename(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	var b strings.Builder
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') || r == '.' || r == '-' || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	if result := b.String(); result != "" && result != "." && result != ".." {
		return result
	}
	return "_"
}
