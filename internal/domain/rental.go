package domain

import (
	"errors"
	"strings"
	"time"
)

var ErrRentalNotFound = errors.New("rental not found")

type Rental struct {
	ID          string    `gorm:"column:id;primaryKey;type:varchar(64)" json:"id"`
	Name        string    `gorm:"column:name;not null" json:"name"`
	Address     string    `gorm:"column:address;not null" json:"address"`
	RoomCount   int       `gorm:"column:room_count;not null" json:"roomCount"`
	Price       float64   `gorm:"column:price;not null" json:"price"`
	Description string    `gorm:"column:description;type:text" json:"description"`
	Image       string    `gorm:"column:image" json:"image,omitempty"`
	CreatedAt   time.Time `gorm:"column:created_at;index" json:"createdAt"`
	UpdatedAt   time.Time `gorm:"column:updated_at" json:"updatedAt"`
}

func (Rental) TableName() string { return "rentals" }

// RentalFilter selects rentals whose name or address contains Query,
// ignoring case. An empty Query matches everything.
type RentalFilter struct {
	Query string
}

func (f RentalFilter) Matches(r *Rental) bool {
	if f.Query == "" {
		return true
	}
	q := strings.ToLower(f.Query)
	return strings.Contains(strings.ToLower(r.Name), q) ||
		strings.Contains(strings.ToLower(r.Address), q)
}

// Sortable rental fields, by their API names.
const (
	SortByID          = "id"
	SortByName        = "name"
	SortByAddress     = "address"
	SortByRoomCount   = "roomCount"
	SortByPrice       = "price"
	SortByDescription = "description"
	SortByImage       = "image"
	SortByCreatedAt   = "createdAt"
	SortByUpdatedAt   = "updatedAt"
)

var sortableFields = map[string]bool{
	SortByID:          true,
	SortByName:        true,
	SortByAddress:     true,
	SortByRoomCount:   true,
	SortByPrice:       true,
	SortByDescription: true,
	SortByImage:       true,
	SortByCreatedAt:   true,
	SortByUpdatedAt:   true,
}

func IsSortableField(field string) bool {
	return sortableFields[field]
}

// RentalSort orders results by a single field. A zero value keeps
// insertion order.
type RentalSort struct {
	Field string
	Desc  bool
}

// RentalPatch carries the fields an update should change; nil fields
// are left as stored.
type RentalPatch struct {
	Name        *string
	Address     *string
	RoomCount   *int
	Price       *float64
	Description *string
	Image       *string
}

func (p RentalPatch) IsEmpty() bool {
	return p.Name == nil && p.Address == nil && p.RoomCount == nil &&
		p.Price == nil && p.Description == nil && p.Image == nil
}

// Apply copies the non-nil patch fields onto r.
func (p RentalPatch) Apply(r *Rental) {
	if p.Name != nil {
		r.Name = *p.Name
	}
	if p.Address != nil {
		r.Address = *p.Address
	}
	if p.RoomCount != nil {
		r.RoomCount = *p.RoomCount
	}
	if p.Price != nil {
		r.Price = *p.Price
	}
	if p.Description != nil {
		r.Description = *p.Description
	}
	if p.Image != nil {
		r.Image = *p.Image
	}
}
