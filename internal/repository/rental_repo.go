package repository

import (
	"context"
	"fmt"
	"strings"

	"rentalhub/internal/database"
	"rentalhub/internal/domain"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// rentalColumns maps API sort names to table columns.
var rentalColumns = map[string]string{
	domain.SortByID:          "id",
	domain.SortByName:        "name",
	domain.SortByAddress:     "address",
	domain.SortByRoomCount:   "room_count",
	domain.SortByPrice:       "price",
	domain.SortByDescription: "description",
	domain.SortByImage:       "image",
	domain.SortByCreatedAt:   "created_at",
	domain.SortByUpdatedAt:   "updated_at",
}

type RentalRepository struct {
	db *gorm.DB
}

func NewRentalRepository(db *gorm.DB) *RentalRepository {
	return &RentalRepository{db: db}
}

func (r *RentalRepository) Migrate() error {
	return r.db.AutoMigrate(&domain.Rental{})
}

func (r *RentalRepository) Insert(ctx context.Context, rental *domain.Rental) error {
	if rental.ID == "" {
		rental.ID = uuid.New().String()
	}
	return errors.Wrap(r.db.WithContext(ctx).Create(rental).Error, "insert rental")
}

func (r *RentalRepository) FindByID(ctx context.Context, id string) (*domain.Rental, error) {
	var rental domain.Rental
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&rental).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrRentalNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "find rental")
	}
	return &rental, nil
}

func (r *RentalRepository) Count(ctx context.Context, f domain.RentalFilter) (int64, error) {
	var total int64
	err := applyRentalFilter(r.db.WithContext(ctx).Model(&domain.Rental{}), f).Count(&total).Error
	return total, errors.Wrap(err, "count rentals")
}

func (r *RentalRepository) Find(ctx context.Context, f domain.RentalFilter, s domain.RentalSort, offset, limit int) ([]domain.Rental, error) {
	rentals := make([]domain.Rental, 0)
	if limit <= 0 || offset < 0 {
		return rentals, nil
	}

	q := applyRentalFilter(r.db.WithContext(ctx).Model(&domain.Rental{}), f)
	q, err := applyRentalSort(q, s)
	if err != nil {
		return nil, err
	}

	err = q.Offset(offset).Limit(limit).Find(&rentals).Error
	return rentals, errors.Wrap(err, "find rentals")
}

func (r *RentalRepository) FindAll(ctx context.Context) ([]domain.Rental, error) {
	rentals := make([]domain.Rental, 0)
	err := r.db.WithContext(ctx).Order("created_at").Order("id").Find(&rentals).Error
	return rentals, errors.Wrap(err, "find all rentals")
}

func (r *RentalRepository) UpdateByID(ctx context.Context, id string, patch domain.RentalPatch) (*domain.Rental, error) {
	if patch.IsEmpty() {
		return r.FindByID(ctx, id)
	}

	updates := map[string]any{}
	if patch.Name != nil {
		updates["name"] = *patch.Name
	}
	if patch.Address != nil {
		updates["address"] = *patch.Address
	}
	if patch.RoomCount != nil {
		updates["room_count"] = *patch.RoomCount
	}
	if patch.Price != nil {
		updates["price"] = *patch.Price
	}
	if patch.Description != nil {
		updates["description"] = *patch.Description
	}
	if patch.Image != nil {
		updates["image"] = *patch.Image
	}

	tx := r.db.WithContext(ctx).Model(&domain.Rental{}).Where("id = ?", id).Updates(updates)
	if tx.Error != nil {
		return nil, errors.Wrap(tx.Error, "update rental")
	}
	if tx.RowsAffected == 0 {
		return nil, domain.ErrRentalNotFound
	}
	return r.FindByID(ctx, id)
}

func (r *RentalRepository) DeleteByID(ctx context.Context, id string) error {
	tx := r.db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Rental{})
	if tx.Error != nil {
		return errors.Wrap(tx.Error, "delete rental")
	}
	if tx.RowsAffected == 0 {
		return domain.ErrRentalNotFound
	}
	return nil
}

func applyRentalFilter(q *gorm.DB, f domain.RentalFilter) *gorm.DB {
	if f.Query == "" {
		return q
	}
	lower := database.LowerFunc(q)
	pattern := "%" + escapeLike(strings.ToLower(f.Query)) + "%"
	return q.Where(
		fmt.Sprintf(`(%[1]s(name) LIKE ? ESCAPE '\' OR %[1]s(address) LIKE ? ESCAPE '\')`, lower),
		pattern, pattern,
	)
}

// applyRentalSort orders by the requested column; creation time and id
// break ties so pagination is stable.
func applyRentalSort(q *gorm.DB, s domain.RentalSort) (*gorm.DB, error) {
	if s.Field != "" {
		col, ok := rentalColumns[s.Field]
		if !ok {
			return nil, errors.Errorf("unsupported sort field %q", s.Field)
		}
		q = q.Order(clause.OrderByColumn{Column: clause.Column{Name: col}, Desc: s.Desc})
	}
	return q.Order("created_at").Order("id"), nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
