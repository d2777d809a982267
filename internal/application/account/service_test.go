package account

import (
	"context"
	"errors"
	"testing"

	"github.com/campusxchange/swapkr/internal/application/access"
	"github.com/campusxchange/swapkr/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// --- mocks ---

type mockIdentities struct{ mock.Mock }

func (m *mockIdentities) Create(ctx context.Context, u *domain.Identity) error {
	return m.Called(ctx, u).Error(0)
}
func (m *mockIdentities) ReplaceUnverified(ctx context.Context, u *domain.Identity) error {
	return m.Called(ctx, u).Error(0)
}
func (m *mockIdentities) Get(ctx context.Context, id string) (*domain.Identity, error) {
	args := m.Called(ctx, id)
	if u, _ := args.Get(0).(*domain.Identity); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockIdentities) GetByEmail(ctx context.Context, email string) (*domain.Identity, error) {
	args := m.Called(ctx, email)
	if u, _ := args.Get(0).(*domain.Identity); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockIdentities) MarkVerified(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

type mockCodes struct{ mock.Mock }

func (m *mockCodes) Issue(ctx context.Context, email string, phone *string) (string, error) {
	args := m.Called(ctx, email, phone)
	return args.String(0), args.Error(1)
}
func (m *mockCodes) Verify(ctx context.Context, email, submitted string) error {
	return m.Called(ctx, email, submitted).Error(0)
}

type mockSigner struct{ mock.Mock }

func (m *mockSigner) Sign(userID, email string) (string, error) {
	args := m.Called(userID, email)
	return args.String(0), args.Error(1)
}

// --- builder ---

func newService(ids *mockIdentities, codes *mockCodes, signer *mockSigner, allowedDomain string) Service {
	svc := NewService(Deps{
		Identities:    ids,
		Codes:         codes,
		Tokens:        signer,
		Policy:        access.NewPolicy([]string{"admin@nitj.ac.in"}),
		AllowedDomain: allowedDomain,
	})
	svc.(*service).bcryptCost = bcrypt.MinCost
	return svc
}

func hashOf(t *testing.T, pw string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func validRegistration() domain.RegisterRequest {
	return domain.RegisterRequest{Name: "Asha", Email: "Asha@NITJ.ac.in", Password: "correct-horse"}
}

// --- Register ---

func TestRegister_NewIdentityIssuesCode(t *testing.T) {
	ids := &mockIdentities{}
	codes := &mockCodes{}
	ids.On("GetByEmail", mock.Anything, "asha@nitj.ac.in").Return(nil, domain.ErrNotFound)
	ids.On("Create", mock.Anything, mock.MatchedBy(func(u *domain.Identity) bool {
		return u.ID != "" && u.Email == "asha@nitj.ac.in" && !u.Verified &&
			bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("correct-horse")) == nil
	})).Return(nil)
	codes.On("Issue", mock.Anything, "asha@nitj.ac.in", (*string)(nil)).Return("123456", nil)

	p, err := newService(ids, codes, nil, "nitj.ac.in").Register(context.Background(), validRegistration())

	require.NoError(t, err)
	assert.False(t, p.Verified)
	assert.False(t, p.IsAdmin)
	ids.AssertExpectations(t)
	codes.AssertExpectations(t)
}

func TestRegister_ValidationErrors(t *testing.T) {
	svc := newService(&mockIdentities{}, &mockCodes{}, nil, "")
	cases := []domain.RegisterRequest{
		{Name: "", Email: "a@nitj.ac.in", Password: "longenough"},
		{Name: "A", Email: "not-an-email", Password: "longenough"},
		{Name: "A", Email: "a@nitj.ac.in", Password: "short"},
	}
	for _, c := range cases {
		_, err := svc.Register(context.Background(), c)
		assert.True(t, errors.Is(err, domain.ErrBadRequest), "%+v", c)
	}
}

func TestRegister_DomainRestriction(t *testing.T) {
	req := validRegistration()
	req.Email = "asha@gmail.com"

	_, err := newService(&mockIdentities{}, &mockCodes{}, nil, "nitj.ac.in").Register(context.Background(), req)

	assert.True(t, errors.Is(err, domain.ErrBadRequest))
}

func TestRegister_VerifiedEmailConflicts(t *testing.T) {
	ids := &mockIdentities{}
	ids.On("GetByEmail", mock.Anything, "asha@nitj.ac.in").Return(&domain.Identity{ID: "u1", Verified: true}, nil)
	codes := &mockCodes{}

	_, err := newService(ids, codes, nil, "").Register(context.Background(), validRegistration())

	assert.True(t, errors.Is(err, domain.ErrConflict))
	codes.AssertNotCalled(t, "Issue", mock.Anything, mock.Anything, mock.Anything)
}

func TestRegister_UnverifiedEmailReissues(t *testing.T) {
	ids := &mockIdentities{}
	codes := &mockCodes{}
	ids.On("GetByEmail", mock.Anything, "asha@nitj.ac.in").Return(&domain.Identity{
		ID: "u1", Email: "asha@nitj.ac.in", PasswordHash: hashOf(t, "correct-horse"),
	}, nil)
	ids.On("ReplaceUnverified", mock.Anything, mock.MatchedBy(func(u *domain.Identity) bool { return u.ID == "u1" })).Return(nil)
	codes.On("Issue", mock.Anything, "asha@nitj.ac.in", mock.Anything).Return("654321", nil)

	p, err := newService(ids, codes, nil, "").Register(context.Background(), validRegistration())

	require.NoError(t, err)
	assert.Equal(t, "u1", p.ID)
	ids.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestRegister_UnverifiedEmailWithOtherPasswordIsLeftAlone(t *testing.T) {
	ids := &mockIdentities{}
	codes := &mockCodes{}
	ids.On("GetByEmail", mock.Anything, "asha@nitj.ac.in").Return(&domain.Identity{
		ID: "u1", Email: "asha@nitj.ac.in", Name: "Asha", PasswordHash: hashOf(t, "owners-password"),
	}, nil)

	p, err := newService(ids, codes, nil, "").Register(context.Background(), validRegistration())

	assert.Nil(t, p)
	assert.True(t, errors.Is(err, domain.ErrConflict))
	ids.AssertNotCalled(t, "ReplaceUnverified", mock.Anything, mock.Anything)
	codes.AssertNotCalled(t, "Issue", mock.Anything, mock.Anything, mock.Anything)
}

func TestRegister_CodeStoreFailure(t *testing.T) {
	ids := &mockIdentities{}
	codes := &mockCodes{}
	ids.On("GetByEmail", mock.Anything, mock.Anything).Return(nil, domain.ErrNotFound)
	ids.On("Create", mock.Anything, mock.Anything).Return(nil)
	codes.On("Issue", mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("dynamo down"))

	_, err := newService(ids, codes, nil, "").Register(context.Background(), validRegistration())

	assert.Error(t, err)
}

// --- VerifyCode ---

func TestVerifyCode_MarksVerifiedAndSigns(t *testing.T) {
	ids := &mockIdentities{}
	codes := &mockCodes{}
	signer := &mockSigner{}
	ids.On("GetByEmail", mock.Anything, "admin@nitj.ac.in").Return(&domain.Identity{ID: "u1", Email: "admin@nitj.ac.in"}, nil)
	codes.On("Verify", mock.Anything, "admin@nitj.ac.in", "123456").Return(nil)
	ids.On("MarkVerified", mock.Anything, "u1").Return(nil)
	signer.On("Sign", "u1", "admin@nitj.ac.in").Return("tok", nil)

	res, err := newService(ids, codes, signer, "").VerifyCode(context.Background(),
		domain.VerifyCodeRequest{Email: "ADMIN@nitj.ac.in", Code: "123456"})

	require.NoError(t, err)
	assert.Equal(t, "tok", res.Token)
	assert.True(t, res.User.Verified)
	assert.True(t, res.User.IsAdmin)
}

func TestVerifyCode_WrongCode(t *testing.T) {
	ids := &mockIdentities{}
	codes := &mockCodes{}
	ids.On("GetByEmail", mock.Anything, "a@nitj.ac.in").Return(&domain.Identity{ID: "u2", Email: "a@nitj.ac.in"}, nil)
	codes.On("Verify", mock.Anything, "a@nitj.ac.in", "000000").Return(domain.ErrUnauthorized)

	_, err := newService(ids, codes, nil, "").VerifyCode(context.Background(),
		domain.VerifyCodeRequest{Email: "a@nitj.ac.in", Code: "000000"})

	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
	ids.AssertNotCalled(t, "MarkVerified", mock.Anything, mock.Anything)
}

func TestVerifyCode_UnknownEmail(t *testing.T) {
	ids := &mockIdentities{}
	ids.On("GetByEmail", mock.Anything, "x@nitj.ac.in").Return(nil, domain.ErrNotFound)

	_, err := newService(ids, &mockCodes{}, nil, "").VerifyCode(context.Background(),
		domain.VerifyCodeRequest{Email: "x@nitj.ac.in", Code: "123456"})

	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
}

func TestVerifyCode_MalformedCode(t *testing.T) {
	_, err := newService(&mockIdentities{}, &mockCodes{}, nil, "").VerifyCode(context.Background(),
		domain.VerifyCodeRequest{Email: "x@nitj.ac.in", Code: "12ab"})

	assert.True(t, errors.Is(err, domain.ErrBadRequest))
}

// --- ResendCode ---

func TestResendCode_AlreadyVerified(t *testing.T) {
	ids := &mockIdentities{}
	ids.On("GetByEmail", mock.Anything, "a@nitj.ac.in").Return(&domain.Identity{ID: "u2", Verified: true}, nil)

	err := newService(ids, &mockCodes{}, nil, "").ResendCode(context.Background(), domain.ResendCodeRequest{Email: "a@nitj.ac.in"})

	assert.True(t, errors.Is(err, domain.ErrConflict))
}

func TestResendCode_Unverified(t *testing.T) {
	ids := &mockIdentities{}
	codes := &mockCodes{}
	ids.On("GetByEmail", mock.Anything, "a@nitj.ac.in").Return(&domain.Identity{ID: "u2", Email: "a@nitj.ac.in"}, nil)
	codes.On("Issue", mock.Anything, "a@nitj.ac.in", (*string)(nil)).Return("111111", nil)

	err := newService(ids, codes, nil, "").ResendCode(context.Background(), domain.ResendCodeRequest{Email: "a@nitj.ac.in"})

	require.NoError(t, err)
	codes.AssertExpectations(t)
}

// --- Login ---

func TestLogin_Success(t *testing.T) {
	ids := &mockIdentities{}
	signer := &mockSigner{}
	ids.On("GetByEmail", mock.Anything, "a@nitj.ac.in").Return(&domain.Identity{
		ID: "u2", Email: "a@nitj.ac.in", PasswordHash: hashOf(t, "correct-horse"), Verified: true,
	}, nil)
	signer.On("Sign", "u2", "a@nitj.ac.in").Return("tok", nil)

	res, err := newService(ids, nil, signer, "").Login(context.Background(),
		domain.LoginRequest{Email: "a@nitj.ac.in", Password: "correct-horse"})

	require.NoError(t, err)
	assert.Equal(t, "tok", res.Token)
}

func TestLogin_WrongPassword(t *testing.T) {
	ids := &mockIdentities{}
	ids.On("GetByEmail", mock.Anything, "a@nitj.ac.in").Return(&domain.Identity{
		ID: "u2", PasswordHash: hashOf(t, "correct-horse"), Verified: true,
	}, nil)

	_, err := newService(ids, nil, nil, "").Login(context.Background(),
		domain.LoginRequest{Email: "a@nitj.ac.in", Password: "battery-staple"})

	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
}

func TestLogin_UnknownEmail(t *testing.T) {
	ids := &mockIdentities{}
	ids.On("GetByEmail", mock.Anything, "a@nitj.ac.in").Return(nil, domain.ErrNotFound)

	_, err := newService(ids, nil, nil, "").Login(context.Background(),
		domain.LoginRequest{Email: "a@nitj.ac.in", Password: "whatever1"})

	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
}

func TestLogin_Unverified(t *testing.T) {
	ids := &mockIdentities{}
	ids.On("GetByEmail", mock.Anything, "a@nitj.ac.in").Return(&domain.Identity{
		ID: "u2", PasswordHash: hashOf(t, "correct-horse"),
	}, nil)

	_, err := newService(ids, nil, nil, "").Login(context.Background(),
		domain.LoginRequest{Email: "a@nitj.ac.in", Password: "correct-horse"})

	assert.True(t, errors.Is(err, domain.ErrForbidden))
}

// --- Me ---

func TestMe_Guest(t *testing.T) {
	_, err := newService(&mockIdentities{}, nil, nil, "").Me(context.Background(), access.Guest{})
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
}

func TestMe_Authenticated(t *testing.T) {
	ids := &mockIdentities{}
	ids.On("Get", mock.Anything, "u1").Return(&domain.Identity{ID: "u1", Email: "admin@nitj.ac.in", Verified: true}, nil)

	p, err := newService(ids, nil, nil, "").Me(context.Background(),
		access.Authenticated{Identity: access.Identity{UserID: "u1", Email: "admin@nitj.ac.in"}})

	require.NoError(t, err)
	assert.True(t, p.IsAdmin)
}
