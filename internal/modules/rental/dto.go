package rental

import (
	"io"

	"rentalhub/internal/domain"
)

type CreateRentalRequest struct {
	Name        string   `form:"name" json:"name" validate:"required"`
	Address     string   `form:"address" json:"address" validate:"required"`
	RoomCount   *int     `form:"roomCount" json:"roomCount" validate:"required,gte=0"`
	Price       *float64 `form:"price" json:"price" validate:"required,gte=0"`
	Description string   `form:"description" json:"description" validate:"required"`
}

// UpdateRentalRequest changes only the supplied fields.
type UpdateRentalRequest struct {
	Name        *string  `form:"name" json:"name,omitempty" validate:"omitnil,min=1"`
	Address     *string  `form:"address" json:"address,omitempty" validate:"omitnil,min=1"`
	RoomCount   *int     `form:"roomCount" json:"roomCount,omitempty" validate:"omitnil,gte=0"`
	Price       *float64 `form:"price" json:"price,omitempty" validate:"omitnil,gte=0"`
	Description *string  `form:"description" json:"description,omitempty" validate:"omitnil,min=1"`
}

func (r UpdateRentalRequest) patch() domain.RentalPatch {
	return domain.RentalPatch{
		Name:        r.Name,
		Address:     r.Address,
		RoomCount:   r.RoomCount,
		Price:       r.Price,
		Description: r.Description,
	}
}

// ImageFile is an uploaded image as received from the client.
type ImageFile struct {
	Filename string
	Size     int64
	Content  io.Reader
}

type ListQuery struct {
	Query string
	Sort  string
	Order string
	Page  int
	Limit int
}

type ListResult struct {
	Rentals []domain.Rental `json:"rentals"`
	Total   int64           `json:"total"`
	Page    int             `json:"page"`
	Limit   int             `json:"limit"`
}

type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}
