package listing

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/campusxchange/swapkr/internal/application/access"
	"github.com/campusxchange/swapkr/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockStore struct{ mock.Mock }

func (m *mockStore) Create(ctx context.Context, l *domain.Listing) error {
	return m.Called(ctx, l).Error(0)
}
func (m *mockStore) Get(ctx context.Context, id string) (*domain.Listing, error) {
	args := m.Called(ctx, id)
	v, _ := args.Get(0).(*domain.Listing)
	return v, args.Error(1)
}
func (m *mockStore) ListByStatus(ctx context.Context, status domain.Status) ([]domain.Listing, error) {
	args := m.Called(ctx, status)
	v, _ := args.Get(0).([]domain.Listing)
	return v, args.Error(1)
}
func (m *mockStore) ListByOwner(ctx context.Context, ownerID string) ([]domain.Listing, error) {
	args := m.Called(ctx, ownerID)
	v, _ := args.Get(0).([]domain.Listing)
	return v, args.Error(1)
}
func (m *mockStore) Delete(ctx context.Context, id string) (*domain.Listing, error) {
	args := m.Called(ctx, id)
	v, _ := args.Get(0).(*domain.Listing)
	return v, args.Error(1)
}
func (m *mockStore) SetImage(ctx context.Context, id, key string) (*string, error) {
	args := m.Called(ctx, id, key)
	v, _ := args.Get(0).(*string)
	return v, args.Error(1)
}

type mockImages struct{ mock.Mock }

func (m *mockImages) Upload(ctx context.Context, key string, r io.Reader, contentType string) error {
	return m.Called(ctx, key, r, contentType).Error(0)
}
func (m *mockImages) PresignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	args := m.Called(ctx, key, ttl)
	return args.String(0), args.Error(1)
}
func (m *mockImages) Delete(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

type mockApprover struct{ mock.Mock }

func (m *mockApprover) ApproveListing(ctx context.Context, p access.Principal, id string) (*domain.Listing, error) {
	args := m.Called(ctx, p, id)
	v, _ := args.Get(0).(*domain.Listing)
	return v, args.Error(1)
}

// --- builder ---

var (
	admin    = access.Authenticated{Identity: access.Identity{UserID: "u1", Email: "admin@nitj.ac.in"}}
	owner    = access.Authenticated{Identity: access.Identity{UserID: "u2", Email: "owner@nitj.ac.in"}}
	stranger = access.Authenticated{Identity: access.Identity{UserID: "u3", Email: "other@nitj.ac.in"}}
)

func newService(st *mockStore, img *mockImages, ap *mockApprover) Service {
	return NewService(Deps{
		Store:    st,
		Images:   img,
		Approver: ap,
		Policy:   access.NewPolicy([]string{"admin@nitj.ac.in"}),
		URLTTL:   time.Minute,
	})
}

func strPtr(s string) *string { return &s }

// --- Create ---

func TestCreate_GuestRejected(t *testing.T) {
	_, err := newService(&mockStore{}, nil, nil).Create(context.Background(), access.Guest{},
		domain.CreateListingRequest{Title: "Cycle"})
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
}

func TestCreate_StudentListingIsPending(t *testing.T) {
	st := &mockStore{}
	ap := &mockApprover{}
	st.On("Create", mock.Anything, mock.MatchedBy(func(l *domain.Listing) bool {
		return l.OwnerID == "u2" && l.Status == domain.StatusPending && l.Title == "Cycle"
	})).Return(nil)

	l, err := newService(st, nil, ap).Create(context.Background(), owner,
		domain.CreateListingRequest{Title: "  Cycle ", Price: 1500})

	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, l.Status)
	ap.AssertNotCalled(t, "ApproveListing", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreate_AdminListingAutoApproved(t *testing.T) {
	st := &mockStore{}
	ap := &mockApprover{}
	st.On("Create", mock.Anything, mock.Anything).Return(nil)
	ap.On("ApproveListing", mock.Anything, admin, mock.AnythingOfType("string")).
		Return(&domain.Listing{ID: "l1", Status: domain.StatusApproved}, nil)

	l, err := newService(st, nil, ap).Create(context.Background(), admin, domain.CreateListingRequest{Title: "Lamp"})

	require.NoError(t, err)
	assert.Equal(t, domain.StatusApproved, l.Status)
}

func TestCreate_Validation(t *testing.T) {
	svc := newService(&mockStore{}, nil, nil)
	_, err := svc.Create(context.Background(), owner, domain.CreateListingRequest{Title: "   "})
	assert.True(t, errors.Is(err, domain.ErrBadRequest))

	_, err = svc.Create(context.Background(), owner, domain.CreateListingRequest{Title: "x", Price: -1})
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
}

// --- Get ---

func TestGet_PendingVisibility(t *testing.T) {
	st := &mockStore{}
	st.On("Get", mock.Anything, "l1").Return(&domain.Listing{ID: "l1", OwnerID: "u2", Status: domain.StatusPending}, nil)
	svc := newService(st, nil, nil)

	for _, p := range []access.Principal{owner, admin} {
		_, err := svc.Get(context.Background(), p, "l1")
		assert.NoError(t, err)
	}
	for _, p := range []access.Principal{stranger, access.Guest{}} {
		_, err := svc.Get(context.Background(), p, "l1")
		assert.True(t, errors.Is(err, domain.ErrNotFound))
	}
}

func TestGet_ApprovedVisibleToGuests(t *testing.T) {
	st := &mockStore{}
	st.On("Get", mock.Anything, "l1").Return(&domain.Listing{ID: "l1", OwnerID: "u2", Status: domain.StatusApproved}, nil)

	_, err := newService(st, nil, nil).Get(context.Background(), access.Guest{}, "l1")

	assert.NoError(t, err)
}

// --- Delete ---

func TestDelete_StrangerForbidden(t *testing.T) {
	st := &mockStore{}
	st.On("Get", mock.Anything, "l1").Return(&domain.Listing{ID: "l1", OwnerID: "u2"}, nil)

	err := newService(st, nil, nil).Delete(context.Background(), stranger, "l1")

	assert.True(t, errors.Is(err, domain.ErrForbidden))
	st.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestDelete_OwnerRemovesImage(t *testing.T) {
	st := &mockStore{}
	img := &mockImages{}
	st.On("Get", mock.Anything, "l1").Return(&domain.Listing{ID: "l1", OwnerID: "u2"}, nil)
	st.On("Delete", mock.Anything, "l1").Return(&domain.Listing{ID: "l1", ImageKey: strPtr("listings/l1/a.png")}, nil)
	img.On("Delete", mock.Anything, "listings/l1/a.png").Return(nil)

	require.NoError(t, newService(st, img, nil).Delete(context.Background(), owner, "l1"))
	img.AssertExpectations(t)
}

func TestDelete_Missing(t *testing.T) {
	st := &mockStore{}
	st.On("Get", mock.Anything, "nope").Return(nil, domain.ErrNotFound)

	assert.True(t, errors.Is(newService(st, nil, nil).Delete(context.Background(), admin, "nope"), domain.ErrNotFound))
}

// --- images ---

func TestAttachImage_ReplacesPrevious(t *testing.T) {
	st := &mockStore{}
	img := &mockImages{}
	st.On("Get", mock.Anything, "l1").Return(&domain.Listing{ID: "l1", OwnerID: "u2"}, nil)
	img.On("Upload", mock.Anything, "listings/l1/my_photo.jpg", mock.Anything, "image/jpeg").Return(nil)
	st.On("SetImage", mock.Anything, "l1", "listings/l1/my_photo.jpg").Return(strPtr("listings/l1/old.png"), nil)
	img.On("Delete", mock.Anything, "listings/l1/old.png").Return(nil)

	l, err := newService(st, img, nil).AttachImage(context.Background(), owner, "l1", ImageInput{
		Reader:   strings.NewReader("jpegbytes"),
		Filename: "../../my photo.jpg",
	})

	require.NoError(t, err)
	assert.True(t, l.HasImage)
	img.AssertExpectations(t)
}

func TestAttachImage_RejectsNonImages(t *testing.T) {
	st := &mockStore{}
	img := &mockImages{}
	st.On("Get", mock.Anything, "l1").Return(&domain.Listing{ID: "l1", OwnerID: "u2"}, nil)

	_, err := newService(st, img, nil).AttachImage(context.Background(), owner, "l1", ImageInput{
		Reader:      strings.NewReader("%PDF"),
		Filename:    "notes.pdf",
		ContentType: "application/pdf",
	})

	assert.True(t, errors.Is(err, domain.ErrBadRequest))
	img.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAttachImage_OnlyOwner(t *testing.T) {
	st := &mockStore{}
	st.On("Get", mock.Anything, "l1").Return(&domain.Listing{ID: "l1", OwnerID: "u2"}, nil)

	_, err := newService(st, &mockImages{}, nil).AttachImage(context.Background(), admin, "l1", ImageInput{Filename: "a.png"})

	assert.True(t, errors.Is(err, domain.ErrForbidden))
}

func TestImageURL(t *testing.T) {
	st := &mockStore{}
	img := &mockImages{}
	st.On("Get", mock.Anything, "l1").Return(&domain.Listing{ID: "l1", Status: domain.StatusApproved, ImageKey: strPtr("listings/l1/a.png")}, nil)
	st.On("Get", mock.Anything, "l2").Return(&domain.Listing{ID: "l2", Status: domain.StatusApproved}, nil)
	img.On("PresignedURL", mock.Anything, "listings/l1/a.png", time.Minute).Return("https://signed", nil)
	svc := newService(st, img, nil)

	url, err := svc.ImageURL(context.Background(), access.Guest{}, "l1")
	require.NoError(t, err)
	assert.Equal(t, "https://signed", url)

	_, err = svc.ImageURL(context.Background(), access.Guest{}, "l2")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestSanitizeFilename(t *testing.T) {
	cases := map[string]string{
		"photo.png":           "photo.png",
		"../../etc/passwd":    "passwd",
		`C:\Users\me\a b.jpg`: "a_b.jpg",
		"":                    "_",
		"..":                  "_",
	}
	for in, want := range cases {
		assert.Equal(t, want, sanitizeFilename(in), in)
	}
}
