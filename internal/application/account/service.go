package account

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/campusxchange/swapkr/internal/application/access"
	"github.com/campusxchange/swapkr/internal/domain"
	"github.com/campusxchange/swapkr/internal/pkg/id"
	"github.com/campusxchange/swapkr/internal/pkg/logger"
	"github.com/campusxchange/swapkr/internal/pkg/validate"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type IdentityStore interface {
	Create(ctx context.Context, u *domain.Identity) error
	ReplaceUnverified(ctx context.Context, u *domain.Identity) error
	Get(ctx context.Context, id string) (*domain.Identity, error)
	GetByEmail(ctx context.Context, email string) (*domain.Identity, error)
	MarkVerified(ctx context.Context, id string) error
}

type CodeIssuer interface {
	Issue(ctx context.Context, email string, phone *string) (string, error)
	Verify(ctx context.Context, email, submitted string) error
}

type TokenSigner interface {
	Sign(userID, email string) (string, error)
}

// Profile is an identity as its owner sees it.
type Profile struct {
	*domain.Identity
	IsAdmin bool `json:"isAdmin"`
}

type AuthResult struct {
	Token string   `json:"token"`
	User  *Profile `json:"user"`
}

type Service interface {
	Register(ctx context.Context, req domain.RegisterRequest) (*Profile, error)
	VerifyCode(ctx context.Context, req domain.VerifyCodeRequest) (*AuthResult, error)
	ResendCode(ctx context.Context, req domain.ResendCodeRequest) error
	Login(ctx context.Context, req domain.LoginRequest) (*AuthResult, error)
	Me(ctx context.Context, p access.Principal) (*Profile, error)
}

type Deps struct {
	Identities    IdentityStore
	Codes         CodeIssuer
	Tokens        TokenSigner
	Policy        *access.Policy
	AllowedDomain string // empty accepts any address
	Logger        *zap.Logger
}

type service struct {
	identities    IdentityStore
	codes         CodeIssuer
	tokens        TokenSigner
	policy        *access.Policy
	allowedDomain string
	bcryptCost    int
	log           *zap.Logger
}

func NewService(d Deps) Service {
	return &service{
		identities:    d.Identities,
		codes:         d.Codes,
		tokens:        d.Tokens,
		policy:        d.Policy,
		allowedDomain: strings.TrimPrefix(strings.ToLower(strings.TrimSpace(d.AllowedDomain)), "@"),
		bcryptCost:    bcrypt.DefaultCost,
		log:           logger.OrNop(d.Logger),
	}
}

// Register creates an unverified identity and sends it a code. Registering
// again before verifying replaces the profile and issues a fresh code.
func (s *service) Register(ctx context.Context, req domain.RegisterRequest) (*Profile, error) {
	req.Email = normalizeEmail(req.Email)
	req.Name = strings.TrimSpace(req.Name)
	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	if !s.domainAllowed(req.Email) {
		return nil, fmt.Errorf("email must belong to %s: %w", s.allowedDomain, domain.ErrBadRequest)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	u := &domain.Identity{
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: string(hash),
		PhoneNumber:  req.PhoneNumber,
		Department:   req.Department,
		AcademicYear: req.AcademicYear,
		Hostel:       req.Hostel,
		UpdatedAt:    now,
	}

	existing, err := s.identities.GetByEmail(ctx, req.Email)
	switch {
	case err == nil && existing.Verified:
		return nil, fmt.Errorf("email already registered: %w", domain.ErrConflict)
	case err == nil:
		// Only whoever chose the pending password may change the profile.
		if bcrypt.CompareHashAndPassword([]byte(existing.PasswordHash), []byte(req.Password)) != nil {
			return nil, fmt.Errorf("email already registered, verify it or request a new code: %w", domain.ErrConflict)
		}
		u.ID = existing.ID
		u.CreatedAt = existing.CreatedAt
		if err := s.identities.ReplaceUnverified(ctx, u); err != nil {
			return nil, err
		}
	case errors.Is(err, domain.ErrNotFound):
		u.ID = id.New()
		u.CreatedAt = now
		if err := s.identities.Create(ctx, u); err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	if _, err := s.codes.Issue(ctx, u.Email, u.PhoneNumber); err != nil {
		return nil, err
	}
	s.log.Info("identity registered", zap.String("user_id", u.ID), zap.String("email", u.Email))
	return s.profile(u), nil
}

func (s *service) VerifyCode(ctx context.Context, req domain.VerifyCodeRequest) (*AuthResult, error) {
	req.Email = normalizeEmail(req.Email)
	req.Code = strings.TrimSpace(req.Code)
	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	u, err := s.identities.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("invalid or expired code: %w", domain.ErrUnauthorized)
		}
		return nil, err
	}
	if err := s.codes.Verify(ctx, req.Email, req.Code); err != nil {
		return nil, err
	}
	if !u.Verified {
		if err := s.identities.MarkVerified(ctx, u.ID); err != nil {
			return nil, err
		}
		u.Verified = true
	}
	return s.issueToken(u)
}

// ResendCode issues a new code to an identity that has not verified yet.
func (s *service) ResendCode(ctx context.Context, req domain.ResendCodeRequest) error {
	req.Email = normalizeEmail(req.Email)
	if err := validate.Struct(req); err != nil {
		return err
	}
	u, err := s.identities.GetByEmail(ctx, req.Email)
	if err != nil {
		return err
	}
	if u.Verified {
		return fmt.Errorf("email already verified: %w", domain.ErrConflict)
	}
	_, err = s.codes.Issue(ctx, u.Email, u.PhoneNumber)
	return err
}

func (s *service) Login(ctx context.Context, req domain.LoginRequest) (*AuthResult, error) {
	req.Email = normalizeEmail(req.Email)
	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	u, err := s.identities.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("invalid email or password: %w", domain.ErrUnauthorized)
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		return nil, fmt.Errorf("invalid email or password: %w", domain.ErrUnauthorized)
	}
	if !u.Verified {
		return nil, fmt.Errorf("email not verified: %w", domain.ErrForbidden)
	}
	return s.issueToken(u)
}

func (s *service) Me(ctx context.Context, p access.Principal) (*Profile, error) {
	caller, ok := access.IdentityOf(p)
	if !ok {
		return nil, fmt.Errorf("authentication required: %w", domain.ErrUnauthorized)
	}
	u, err := s.identities.Get(ctx, caller.UserID)
	if err != nil {
		return nil, err
	}
	return s.profile(u), nil
}

func (s *service) issueToken(u *domain.Identity) (*AuthResult, error) {
	tok, err := s.tokens.Sign(u.ID, u.Email)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: tok, User: s.profile(u)}, nil
}

func (s *service) profile(u *domain.Identity) *Profile {
	return &Profile{Identity: u, IsAdmin: s.policy.IsAdmin(u.Email)}
}

func (s *service) domainAllowed(email string) bool {
	if s.allowedDomain == "" {
		return true
	}
	return strings.HasSuffix(email, "@"+s.allowedDomain)
}

func normalizeEmail(e string) string {
	return strings.ToLower(strings.TrimSpace(e))
}
