package rental

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"rentalhub/internal/database"
	"rentalhub/internal/domain"
	"rentalhub/internal/repository"
	"rentalhub/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

func pngImage(name string) *ImageFile {
	return &ImageFile{Filename: name, Size: int64(len(pngHeader)), Content: bytes.NewReader(pngHeader)}
}

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }
func strPtr(v string) *string     { return &v }

func validCreate(name string, price float64) CreateRentalRequest {
	return CreateRentalRequest{
		Name:        name,
		Address:     "1 Main St",
		RoomCount:   intPtr(2),
		Price:       floatPtr(price),
		Description: "Sunny flat",
	}
}

type testEnv struct {
	svc     *Service
	repo    *repository.RentalRepository
	files   *storage.LocalStore
	uploads string
}

func setupService(t *testing.T) *testEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := database.Connect(dsn)
	require.NoError(t, err)
	repo := repository.NewRentalRepository(db)
	require.NoError(t, repo.Migrate())

	dir := t.TempDir()
	files, err := storage.NewLocalStore(dir)
	require.NoError(t, err)

	return &testEnv{
		svc:     NewService(repo, files, Options{}, nil),
		repo:    repo,
		files:   files,
		uploads: dir,
	}
}

func (e *testEnv) fileExists(t *testing.T, ref string) bool {
	t.Helper()
	key, err := storage.KeyFromRef(DefaultPublicPrefix, ref)
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(e.uploads, key))
	return err == nil
}

func (e *testEnv) uploadCount(t *testing.T) int {
	t.Helper()
	entries, err := os.ReadDir(e.uploads)
	require.NoError(t, err)
	return len(entries)
}

func TestService_CreateAssignsUniqueIDs(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()

	seen := map[string]bool{}
	for i := 0; i < 5; i++ {
		r, err := env.svc.Create(ctx, validCreate(fmt.Sprintf("Flat %d", i), 500), pngImage("photo.png"))
		require.NoError(t, err)
		assert.NotEmpty(t, r.ID)
		assert.False(t, seen[r.ID], "duplicate id %s", r.ID)
		seen[r.ID] = true

		assert.True(t, strings.HasPrefix(r.Image, "/uploads/"))
		assert.True(t, env.fileExists(t, r.Image))
	}
}

func TestService_CreateRequiresImage(t *testing.T) {
	env := setupService(t)

	_, err := env.svc.Create(context.Background(), validCreate("Flat", 500), nil)
	assert.ErrorIs(t, err, ErrImageRequired)
	assert.ErrorIs(t, err, ErrInvalidInput)

	total, err := env.repo.Count(context.Background(), domain.RentalFilter{})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Zero(t, env.uploadCount(t))
}

func TestService_CreateValidation(t *testing.T) {
	env := setupService(t)

	req := validCreate("", 500)
	req.Price = nil
	_, err := env.svc.Create(context.Background(), req, pngImage("a.png"))

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "name")
	assert.Contains(t, verr.Fields, "price")
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Zero(t, env.uploadCount(t))
}

func TestService_CreateRejectsNonImage(t *testing.T) {
	env := setupService(t)

	img := &ImageFile{Filename: "notes.png", Size: 11, Content: strings.NewReader("hello world")}
	_, err := env.svc.Create(context.Background(), validCreate("Flat", 500), img)
	assert.ErrorIs(t, err, ErrInvalidImage)
	assert.Zero(t, env.uploadCount(t))
}

func TestService_CreateRejectsOversizedImage(t *testing.T) {
	env := setupService(t)
	env.svc.maxImageSize = 16

	_, err := env.svc.Create(context.Background(), validCreate("Flat", 500), pngImage("big.png"))
	assert.ErrorIs(t, err, ErrImageTooLarge)
	assert.Zero(t, env.uploadCount(t))
}

func TestService_ListFilterIsCaseInsensitive(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()

	a := validCreate("Downtown Loft", 900)
	b := validCreate("Quiet Cottage", 700)
	b.Address = "5 DOWNTOWN Ave"
	c := validCreate("Suburb House", 500)
	c.Address = "9 Elm Rd"
	for _, req := range []CreateRentalRequest{a, b, c} {
		_, err := env.svc.Create(ctx, req, pngImage("p.png"))
		require.NoError(t, err)
	}

	res, err := env.svc.List(ctx, ListQuery{Query: "downtown", Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 2, res.Total)
	require.Len(t, res.Rentals, 2)
	for _, r := range res.Rentals {
		lower := strings.ToLower(r.Name + " " + r.Address)
		assert.Contains(t, lower, "downtown")
	}
}

func TestService_ListPaginationAndSort(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()

	for i := 1; i <= 12; i++ {
		_, err := env.svc.Create(ctx, validCreate(fmt.Sprintf("Flat %02d", i), float64(i*100)), pngImage("p.png"))
		require.NoError(t, err)
	}

	res, err := env.svc.List(ctx, ListQuery{Sort: "price", Order: "asc", Page: 2, Limit: 5})
	require.NoError(t, err)
	assert.EqualValues(t, 12, res.Total)
	assert.Equal(t, 2, res.Page)
	assert.Equal(t, 5, res.Limit)

	var prices []float64
	for _, r := range res.Rentals {
		prices = append(prices, r.Price)
	}
	assert.Equal(t, []float64{600, 700, 800, 900, 1000}, prices)

	last, err := env.svc.List(ctx, ListQuery{Sort: "price", Page: 3, Limit: 5})
	require.NoError(t, err)
	assert.Len(t, last.Rentals, 2)

	beyond, err := env.svc.List(ctx, ListQuery{Page: 4, Limit: 5})
	require.NoError(t, err)
	assert.Empty(t, beyond.Rentals)
	assert.NotNil(t, beyond.Rentals)
	assert.EqualValues(t, 12, beyond.Total)
}

func TestService_ListSortDescending(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()

	for _, p := range []float64{300, 100, 200} {
		_, err := env.svc.Create(ctx, validCreate("Flat", p), pngImage("p.png"))
		require.NoError(t, err)
	}

	res, err := env.svc.List(ctx, ListQuery{Sort: "price", Order: "DESC", Page: 1, Limit: 10})
	require.NoError(t, err)
	require.Len(t, res.Rentals, 3)
	for i := 1; i < len(res.Rentals); i++ {
		assert.GreaterOrEqual(t, res.Rentals[i-1].Price, res.Rentals[i].Price)
	}
}

func TestService_ListCapsPageSize(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()
	_, err := env.svc.Create(ctx, validCreate("Flat", 100), pngImage("p.png"))
	require.NoError(t, err)

	res, err := env.svc.List(ctx, ListQuery{Page: 1, Limit: 1000000000})
	require.NoError(t, err)
	assert.Equal(t, MaxPageLimit, res.Limit)
	assert.Len(t, res.Rentals, 1)

	rentals := new(MockRentalStore)
	svc := NewService(rentals, new(MockFileStore), Options{}, nil)
	rentals.On("Count", ctx, domain.RentalFilter{}).Return(int64(500), nil)
	rentals.On("Find", ctx, domain.RentalFilter{}, domain.RentalSort{}, 100, MaxPageLimit).Return([]domain.Rental{}, nil)

	res, err = svc.List(ctx, ListQuery{Page: 2, Limit: 5000})
	require.NoError(t, err)
	assert.Equal(t, MaxPageLimit, res.Limit)
	rentals.AssertExpectations(t)
}

func TestService_ListDegeneratePaging(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()
	_, err := env.svc.Create(ctx, validCreate("Flat", 100), pngImage("p.png"))
	require.NoError(t, err)

	for _, q := range []ListQuery{{Page: 0, Limit: 10}, {Page: 1, Limit: 0}, {Page: -3, Limit: -1}} {
		res, err := env.svc.List(ctx, q)
		require.NoError(t, err)
		assert.Empty(t, res.Rentals)
		assert.EqualValues(t, 1, res.Total)
	}
}

func TestService_ListRejectsUnknownSort(t *testing.T) {
	env := setupService(t)

	_, err := env.svc.List(context.Background(), ListQuery{Sort: "password", Page: 1, Limit: 10})
	assert.ErrorIs(t, err, ErrInvalidSort)
}

func TestService_SearchRequiresQuery(t *testing.T) {
	env := setupService(t)

	_, err := env.svc.Search(context.Background(), ListQuery{Page: 1, Limit: 10})
	assert.ErrorIs(t, err, ErrQueryRequired)
}

func TestService_GetByIDNotFound(t *testing.T) {
	env := setupService(t)

	_, err := env.svc.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestService_UpdateReplacesImage(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()

	created, err := env.svc.Create(ctx, validCreate("Flat", 500), pngImage("old.png"))
	require.NoError(t, err)
	oldRef := created.Image

	updated, err := env.svc.Update(ctx, created.ID, UpdateRentalRequest{Price: floatPtr(650)}, pngImage("new.png"))
	require.NoError(t, err)

	assert.Equal(t, 650.0, updated.Price)
	assert.Equal(t, "Flat", updated.Name)
	assert.NotEqual(t, oldRef, updated.Image)
	assert.True(t, env.fileExists(t, updated.Image))
	assert.False(t, env.fileExists(t, oldRef))
	assert.Equal(t, 1, env.uploadCount(t))
}

func TestService_UpdateWithoutImageKeepsFile(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()

	created, err := env.svc.Create(ctx, validCreate("Flat", 500), pngImage("p.png"))
	require.NoError(t, err)

	updated, err := env.svc.Update(ctx, created.ID, UpdateRentalRequest{Name: strPtr("Renamed")}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)
	assert.Equal(t, created.Image, updated.Image)
	assert.True(t, env.fileExists(t, created.Image))
}

func TestService_UpdateMissingStoresNothing(t *testing.T) {
	env := setupService(t)

	_, err := env.svc.Update(context.Background(), "missing", UpdateRentalRequest{}, pngImage("p.png"))
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Zero(t, env.uploadCount(t))
}

func TestService_DeleteRemovesRecordAndFile(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()

	created, err := env.svc.Create(ctx, validCreate("Flat", 500), pngImage("p.png"))
	require.NoError(t, err)

	require.NoError(t, env.svc.Delete(ctx, created.ID))
	assert.False(t, env.fileExists(t, created.Image))

	_, err = env.svc.GetByID(ctx, created.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, env.svc.Delete(ctx, created.ID), ErrNotFound)
}

func TestService_DeleteToleratesMissingFile(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()

	created, err := env.svc.Create(ctx, validCreate("Flat", 500), pngImage("p.png"))
	require.NoError(t, err)
	key, err := storage.KeyFromRef(DefaultPublicPrefix, created.Image)
	require.NoError(t, err)
	require.NoError(t, os.Remove(filepath.Join(env.uploads, key)))

	assert.NoError(t, env.svc.Delete(ctx, created.ID))
}

func TestService_PruneImages(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()

	kept, err := env.svc.Create(ctx, validCreate("Flat", 500), pngImage("p.png"))
	require.NoError(t, err)
	orphan, err := env.files.Save(ctx, "orphan.png", bytes.NewReader(pngHeader))
	require.NoError(t, err)

	found, err := env.svc.PruneImages(ctx, 0, true)
	require.NoError(t, err)
	assert.Equal(t, []string{orphan}, found)
	ok, err := env.files.Exists(ctx, orphan)
	require.NoError(t, err)
	assert.True(t, ok)

	fresh, err := env.svc.PruneImages(ctx, time.Hour, false)
	require.NoError(t, err)
	assert.Empty(t, fresh)

	removed, err := env.svc.PruneImages(ctx, 0, false)
	require.NoError(t, err)
	assert.Equal(t, []string{orphan}, removed)
	ok, err = env.files.Exists(ctx, orphan)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.True(t, env.fileExists(t, kept.Image))
}

// mocks

type MockRentalStore struct {
	mock.Mock
}

func (m *MockRentalStore) Insert(ctx context.Context, r *domain.Rental) error {
	return m.Called(ctx, r).Error(0)
}

func (m *MockRentalStore) FindByID(ctx context.Context, id string) (*domain.Rental, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Rental), args.Error(1)
}

func (m *MockRentalStore) Count(ctx context.Context, f domain.RentalFilter) (int64, error) {
	args := m.Called(ctx, f)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRentalStore) Find(ctx context.Context, f domain.RentalFilter, s domain.RentalSort, offset, limit int) ([]domain.Rental, error) {
	args := m.Called(ctx, f, s, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Rental), args.Error(1)
}

func (m *MockRentalStore) FindAll(ctx context.Context) ([]domain.Rental, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Rental), args.Error(1)
}

func (m *MockRentalStore) UpdateByID(ctx context.Context, id string, p domain.RentalPatch) (*domain.Rental, error) {
	args := m.Called(ctx, id, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Rental), args.Error(1)
}

func (m *MockRentalStore) DeleteByID(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

type MockFileStore struct {
	mock.Mock
}

func (m *MockFileStore) Save(ctx context.Context, name string, r io.Reader) (string, error) {
	args := m.Called(ctx, name, r)
	if r != nil {
		_, _ = io.Copy(io.Discard, r)
	}
	return args.String(0), args.Error(1)
}

func (m *MockFileStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.ReadCloser), args.Error(1)
}

func (m *MockFileStore) Delete(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func (m *MockFileStore) List(ctx context.Context) ([]storage.FileInfo, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]storage.FileInfo), args.Error(1)
}

func TestService_CreateInsertFailureRemovesFile(t *testing.T) {
	rentals := new(MockRentalStore)
	files := new(MockFileStore)
	svc := NewService(rentals, files, Options{}, nil)
	ctx := context.Background()

	files.On("Save", ctx, "p.png", mock.Anything).Return("k1.png", nil)
	rentals.On("Insert", ctx, mock.AnythingOfType("*domain.Rental")).Return(errors.New("db down"))
	files.On("Delete", ctx, "k1.png").Return(nil)

	_, err := svc.Create(ctx, validCreate("Flat", 500), pngImage("p.png"))
	assert.EqualError(t, err, "db down")

	rentals.AssertExpectations(t)
	files.AssertExpectations(t)
}

func TestService_UpdateFailureRemovesNewFileKeepsOld(t *testing.T) {
	rentals := new(MockRentalStore)
	files := new(MockFileStore)
	svc := NewService(rentals, files, Options{}, nil)
	ctx := context.Background()

	rentals.On("FindByID", ctx, "r1").Return(&domain.Rental{ID: "r1", Image: "/uploads/old.png"}, nil)
	files.On("Save", ctx, "p.png", mock.Anything).Return("new.png", nil)
	rentals.On("UpdateByID", ctx, "r1", mock.AnythingOfType("domain.RentalPatch")).Return(nil, errors.New("db down"))
	files.On("Delete", ctx, "new.png").Return(nil)

	_, err := svc.Update(ctx, "r1", UpdateRentalRequest{}, pngImage("p.png"))
	assert.Error(t, err)

	files.AssertNotCalled(t, "Delete", ctx, "old.png")
	files.AssertExpectations(t)
}

func TestService_DeleteSwallowsFileErrors(t *testing.T) {
	rentals := new(MockRentalStore)
	files := new(MockFileStore)
	svc := NewService(rentals, files, Options{}, nil)
	ctx := context.Background()

	rentals.On("FindByID", ctx, "r1").Return(&domain.Rental{ID: "r1", Image: "/uploads/gone.png"}, nil)
	files.On("Delete", ctx, "gone.png").Return(errors.New("permission denied"))
	rentals.On("DeleteByID", ctx, "r1").Return(nil)

	assert.NoError(t, svc.Delete(ctx, "r1"))
	rentals.AssertExpectations(t)
	files.AssertExpectations(t)
}

func TestService_DeleteSkipsUnresolvableReference(t *testing.T) {
	rentals := new(MockRentalStore)
	files := new(MockFileStore)
	svc := NewService(rentals, files, Options{}, nil)
	ctx := context.Background()

	rentals.On("FindByID", ctx, "r1").Return(&domain.Rental{ID: "r1", Image: "/uploads/../etc/passwd"}, nil)
	rentals.On("DeleteByID", ctx, "r1").Return(nil)

	assert.NoError(t, svc.Delete(ctx, "r1"))
	files.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}
