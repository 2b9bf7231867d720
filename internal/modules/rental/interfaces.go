package rental

import (
	"context"
	"io"

	"rentalhub/internal/domain"
	"rentalhub/internal/storage"
)

// RentalStore persists rentals. Missing records are reported as
// domain.ErrRentalNotFound.
type RentalStore interface {
	Insert(ctx context.Context, r *domain.Rental) error
	FindByID(ctx context.Context, id string) (*domain.Rental, error)
	Count(ctx context.Context, f domain.RentalFilter) (int64, error)
	Find(ctx context.Context, f domain.RentalFilter, s domain.RentalSort, offset, limit int) ([]domain.Rental, error)
	FindAll(ctx context.Context) ([]domain.Rental, error)
	UpdateByID(ctx context.Context, id string, p domain.RentalPatch) (*domain.Rental, error)
	DeleteByID(ctx context.Context, id string) error
}

// FileStore holds uploaded images under opaque keys.
type FileStore interface {
	Save(ctx context.Context, name string, r io.Reader) (string, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) ([]storage.FileInfo, error)
}
