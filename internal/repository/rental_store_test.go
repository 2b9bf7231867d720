package repository

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"rentalhub/internal/database"
	"rentalhub/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rentalStore is the contract every engine in this package satisfies.
type rentalStore interface {
	Insert(ctx context.Context, r *domain.Rental) error
	FindByID(ctx context.Context, id string) (*domain.Rental, error)
	Count(ctx context.Context, f domain.RentalFilter) (int64, error)
	Find(ctx context.Context, f domain.RentalFilter, s domain.RentalSort, offset, limit int) ([]domain.Rental, error)
	FindAll(ctx context.Context) ([]domain.Rental, error)
	UpdateByID(ctx context.Context, id string, p domain.RentalPatch) (*domain.Rental, error)
	DeleteByID(ctx context.Context, id string) error
}

var (
	_ rentalStore = (*RentalRepository)(nil)
	_ rentalStore = (*MongoRentalStore)(nil)
	_ rentalStore = (*BoltRentalStore)(nil)
)

func newSQLiteStore(t *testing.T) rentalStore {
	t.Helper()
	db, err := database.Connect(fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_")))
	require.NoError(t, err)
	repo := NewRentalRepository(db)
	require.NoError(t, repo.Migrate())
	return repo
}

func newBoltStore(t *testing.T) rentalStore {
	t.Helper()
	s, err := OpenBoltRentalStore(filepath.Join(t.TempDir(), "rentals.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func forEachStore(t *testing.T, fn func(t *testing.T, s rentalStore)) {
	engines := map[string]func(*testing.T) rentalStore{
		"sqlite": newSQLiteStore,
		"bolt":   newBoltStore,
	}
	for name, open := range engines {
		t.Run(name, func(t *testing.T) {
			fn(t, open(t))
		})
	}
}

func seed(t *testing.T, s rentalStore, rentals ...domain.Rental) []domain.Rental {
	t.Helper()
	out := make([]domain.Rental, 0, len(rentals))
	for i := range rentals {
		r := rentals[i]
		require.NoError(t, s.Insert(context.Background(), &r))
		out = append(out, r)
	}
	return out
}

func TestRentalStore_InsertAssignsUniqueIDs(t *testing.T) {
	forEachStore(t, func(t *testing.T, s rentalStore) {
		got := seed(t, s,
			domain.Rental{Name: "A", Address: "x", RoomCount: 1, Price: 1},
			domain.Rental{Name: "B", Address: "y", RoomCount: 2, Price: 2},
		)
		require.NotEmpty(t, got[0].ID)
		require.NotEmpty(t, got[1].ID)
		assert.NotEqual(t, got[0].ID, got[1].ID)

		found, err := s.FindByID(context.Background(), got[1].ID)
		require.NoError(t, err)
		assert.Equal(t, "B", found.Name)
		assert.Equal(t, 2, found.RoomCount)
	})
}

func TestRentalStore_FindByIDMissing(t *testing.T) {
	forEachStore(t, func(t *testing.T, s rentalStore) {
		_, err := s.FindByID(context.Background(), "missing")
		assert.ErrorIs(t, err, domain.ErrRentalNotFound)
	})
}

func TestRentalStore_FilterIsCaseInsensitiveOverNameAndAddress(t *testing.T) {
	forEachStore(t, func(t *testing.T, s rentalStore) {
		seed(t, s,
			domain.Rental{Name: "Sunny Loft", Address: "1 Main St"},
			domain.Rental{Name: "Cottage", Address: "22 SUNSET Blvd"},
			domain.Rental{Name: "Studio", Address: "5 Oak Ave"},
			domain.Rental{Name: "100% Cozy", Address: "9 Elm"},
			domain.Rental{Name: "ÉCOLE Apartment", Address: "3 Rue Émile"},
		)
		ctx := context.Background()

		n, err := s.Count(ctx, domain.RentalFilter{Query: "sun"})
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		// LIKE wildcards are matched literally
		n, err = s.Count(ctx, domain.RentalFilter{Query: "%"})
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		// case folding is not limited to ASCII
		n, err = s.Count(ctx, domain.RentalFilter{Query: "école"})
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		found, err := s.Find(ctx, domain.RentalFilter{Query: "rue émile"}, domain.RentalSort{}, 0, 10)
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, "ÉCOLE Apartment", found[0].Name)

		n, err = s.Count(ctx, domain.RentalFilter{})
		require.NoError(t, err)
		assert.Equal(t, int64(5), n)
	})
}

func TestRentalStore_SortAndPaginate(t *testing.T) {
	forEachStore(t, func(t *testing.T, s rentalStore) {
		var rentals []domain.Rental
		for i := 12; i >= 1; i-- {
			rentals = append(rentals, domain.Rental{Name: fmt.Sprintf("R%d", i), Address: "addr", Price: float64(i * 100)})
		}
		seed(t, s, rentals...)
		ctx := context.Background()

		page, err := s.Find(ctx, domain.RentalFilter{}, domain.RentalSort{Field: domain.SortByPrice}, 5, 5)
		require.NoError(t, err)
		assert.Equal(t, []float64{600, 700, 800, 900, 1000}, prices(page))

		page, err = s.Find(ctx, domain.RentalFilter{}, domain.RentalSort{Field: domain.SortByPrice, Desc: true}, 10, 5)
		require.NoError(t, err)
		assert.Equal(t, []float64{200, 100}, prices(page))

		page, err = s.Find(ctx, domain.RentalFilter{}, domain.RentalSort{}, 20, 5)
		require.NoError(t, err)
		assert.Empty(t, page)

		page, err = s.Find(ctx, domain.RentalFilter{}, domain.RentalSort{}, 0, 0)
		require.NoError(t, err)
		assert.Empty(t, page)
	})
}

func TestRentalStore_UpdateAppliesOnlyPatchedFields(t *testing.T) {
	forEachStore(t, func(t *testing.T, s rentalStore) {
		r := seed(t, s, domain.Rental{Name: "Old", Address: "Addr", RoomCount: 3, Price: 500, Image: "/uploads/a.png"})[0]
		ctx := context.Background()

		name := "New"
		price := 750.5
		updated, err := s.UpdateByID(ctx, r.ID, domain.RentalPatch{Name: &name, Price: &price})
		require.NoError(t, err)
		assert.Equal(t, "New", updated.Name)
		assert.Equal(t, 750.5, updated.Price)
		assert.Equal(t, "Addr", updated.Address)
		assert.Equal(t, 3, updated.RoomCount)
		assert.Equal(t, "/uploads/a.png", updated.Image)

		_, err = s.UpdateByID(ctx, "missing", domain.RentalPatch{Name: &name})
		assert.ErrorIs(t, err, domain.ErrRentalNotFound)
	})
}

func TestRentalStore_Delete(t *testing.T) {
	forEachStore(t, func(t *testing.T, s rentalStore) {
		r := seed(t, s, domain.Rental{Name: "Gone", Address: "x"})[0]
		ctx := context.Background()

		require.NoError(t, s.DeleteByID(ctx, r.ID))
		_, err := s.FindByID(ctx, r.ID)
		assert.ErrorIs(t, err, domain.ErrRentalNotFound)
		assert.ErrorIs(t, s.DeleteByID(ctx, r.ID), domain.ErrRentalNotFound)

		all, err := s.FindAll(ctx)
		require.NoError(t, err)
		assert.Empty(t, all)
	})
}

func prices(rentals []domain.Rental) []float64 {
	out := make([]float64, 0, len(rentals))
	for _, r := range rentals {
		out = append(out, r.Price)
	}
	return out
}
