package repository

import (
	"context"
	"sort"
	"strings"
	"time"

	"rentalhub/internal/domain"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"
)

var (
	rentalBucket = []byte("rentals")
	boltJSON     = jsoniter.ConfigCompatibleWithStandardLibrary
)

// BoltRentalStore keeps each rental as a JSON document in a bbolt bucket.
// Queries scan the bucket, so it suits small single-node deployments.
type BoltRentalStore struct {
	db *bolt.DB
}

func OpenBoltRentalStore(path string) (*BoltRentalStore, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "open bolt db %s", path)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(rentalBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "create rentals bucket")
	}
	return &BoltRentalStore{db: db}, nil
}

func (s *BoltRentalStore) Close() error {
	return s.db.Close()
}

func (s *BoltRentalStore) Insert(_ context.Context, rental *domain.Rental) error {
	if rental.ID == "" {
		rental.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if rental.CreatedAt.IsZero() {
		rental.CreatedAt = now
	}
	rental.UpdatedAt = now

	data, err := boltJSON.Marshal(rental)
	if err != nil {
		return errors.Wrap(err, "encode rental")
	}
	return errors.Wrap(s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(rentalBucket)
		if b.Get([]byte(rental.ID)) != nil {
			return errors.Errorf("rental %s already exists", rental.ID)
		}
		return b.Put([]byte(rental.ID), data)
	}), "insert rental")
}

func (s *BoltRentalStore) FindByID(_ context.Context, id string) (*domain.Rental, error) {
	var rental *domain.Rental
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(rentalBucket).Get([]byte(id))
		if data == nil {
			return domain.ErrRentalNotFound
		}
		rental = &domain.Rental{}
		return boltJSON.Unmarshal(data, rental)
	})
	if errors.Is(err, domain.ErrRentalNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, errors.Wrap(err, "find rental")
	}
	return rental, nil
}

func (s *BoltRentalStore) Count(_ context.Context, f domain.RentalFilter) (int64, error) {
	rentals, err := s.scan(f)
	return int64(len(rentals)), err
}

func (s *BoltRentalStore) Find(_ context.Context, f domain.RentalFilter, srt domain.RentalSort, offset, limit int) ([]domain.Rental, error) {
	if limit <= 0 || offset < 0 {
		return []domain.Rental{}, nil
	}
	less, err := rentalLess(srt)
	if err != nil {
		return nil, err
	}
	rentals, err := s.scan(f)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(rentals, func(i, j int) bool { return less(&rentals[i], &rentals[j]) })
	if offset >= len(rentals) {
		return []domain.Rental{}, nil
	}
	end := offset + limit
	if end > len(rentals) {
		end = len(rentals)
	}
	return rentals[offset:end], nil
}

func (s *BoltRentalStore) FindAll(_ context.Context) ([]domain.Rental, error) {
	rentals, err := s.scan(domain.RentalFilter{})
	if err != nil {
		return nil, err
	}
	less, _ := rentalLess(domain.RentalSort{})
	sort.SliceStable(rentals, func(i, j int) bool { return less(&rentals[i], &rentals[j]) })
	return rentals, nil
}

func (s *BoltRentalStore) UpdateByID(_ context.Context, id string, patch domain.RentalPatch) (*domain.Rental, error) {
	var updated domain.Rental
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(rentalBucket)
		data := b.Get([]byte(id))
		if data == nil {
			return domain.ErrRentalNotFound
		}
		if err := boltJSON.Unmarshal(data, &updated); err != nil {
			return err
		}
		patch.Apply(&updated)
		updated.UpdatedAt = time.Now().UTC()

		out, err := boltJSON.Marshal(&updated)
		if err != nil {
			return err
		}
		return b.Put([]byte(id), out)
	})
	if errors.Is(err, domain.ErrRentalNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, errors.Wrap(err, "update rental")
	}
	return &updated, nil
}

func (s *BoltRentalStore) DeleteByID(_ context.Context, id string) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(rentalBucket)
		if b.Get([]byte(id)) == nil {
			return domain.ErrRentalNotFound
		}
		return b.Delete([]byte(id))
	})
	if errors.Is(err, domain.ErrRentalNotFound) {
		return err
	}
	return errors.Wrap(err, "delete rental")
}

func (s *BoltRentalStore) scan(f domain.RentalFilter) ([]domain.Rental, error) {
	rentals := make([]domain.Rental, 0)
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(rentalBucket).ForEach(func(_, v []byte) error {
			var r domain.Rental
			if err := boltJSON.Unmarshal(v, &r); err != nil {
				return err
			}
			if f.Matches(&r) {
				rentals = append(rentals, r)
			}
			return nil
		})
	})
	return rentals, errors.Wrap(err, "scan rentals")
}

// rentalLess orders by the sort field, then creation time, then id.
func rentalLess(s domain.RentalSort) (func(a, b *domain.Rental) bool, error) {
	var cmp func(a, b *domain.Rental) int
	switch s.Field {
	case "":
	case domain.SortByID:
		cmp = func(a, b *domain.Rental) int { return strings.Compare(a.ID, b.ID) }
	case domain.SortByName:
		cmp = func(a, b *domain.Rental) int { return strings.Compare(a.Name, b.Name) }
	case domain.SortByAddress:
		cmp = func(a, b *domain.Rental) int { return strings.Compare(a.Address, b.Address) }
	case domain.SortByDescription:
		cmp = func(a, b *domain.Rental) int { return strings.Compare(a.Description, b.Description) }
	case domain.SortByImage:
		cmp = func(a, b *domain.Rental) int { return strings.Compare(a.Image, b.Image) }
	case domain.SortByRoomCount:
		cmp = func(a, b *domain.Rental) int { return compareOrdered(a.RoomCount, b.RoomCount) }
	case domain.SortByPrice:
		cmp = func(a, b *domain.Rental) int { return compareOrdered(a.Price, b.Price) }
	case domain.SortByCreatedAt:
		cmp = func(a, b *domain.Rental) int { return a.CreatedAt.Compare(b.CreatedAt) }
	case domain.SortByUpdatedAt:
		cmp = func(a, b *domain.Rental) int { return a.UpdatedAt.Compare(b.UpdatedAt) }
	default:
		return nil, errors.Errorf("unsupported sort field %q", s.Field)
	}

	return func(a, b *domain.Rental) bool {
		if cmp != nil {
			if c := cmp(a, b); c != 0 {
				if s.Desc {
					return c > 0
				}
				return c < 0
			}
		}
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c < 0
		}
		return a.ID < b.ID
	}, nil
}

func compareOrdered[T int | float64](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
