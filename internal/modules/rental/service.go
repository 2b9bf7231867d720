package rental

import (
	"context"
	"math"
	"strings"
	"time"

	"rentalhub/internal/domain"
	"rentalhub/internal/pkg/validator"
	"rentalhub/internal/storage"

	"go.uber.org/zap"
)

const DefaultPublicPrefix = "/uploads"

// MaxPageLimit caps the page size; larger limits are lowered to it.
const MaxPageLimit = 100

type Options struct {
	// PublicPrefix is the URL path images are served under; reference
	// paths stored on records start with it.
	PublicPrefix string
	MaxImageSize int64
}

type Service struct {
	rentals      RentalStore
	files        FileStore
	publicPrefix string
	maxImageSize int64
	log          *zap.Logger
}

func NewService(rentals RentalStore, files FileStore, opts Options, log *zap.Logger) *Service {
	if opts.PublicPrefix == "" {
		opts.PublicPrefix = DefaultPublicPrefix
	}
	if opts.MaxImageSize == 0 {
		opts.MaxImageSize = DefaultMaxImageSize
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		rentals:      rentals,
		files:        files,
		publicPrefix: opts.PublicPrefix,
		maxImageSize: opts.MaxImageSize,
		log:          log,
	}
}

// List returns one page of rentals matching q together with the total
// number of matches. Pages outside the result set come back empty.
func (s *Service) List(ctx context.Context, q ListQuery) (*ListResult, error) {
	sort, err := q.sortSpec()
	if err != nil {
		return nil, err
	}
	filter := domain.RentalFilter{Query: q.Query}

	total, err := s.rentals.Count(ctx, filter)
	if err != nil {
		return nil, err
	}

	if q.Limit > MaxPageLimit {
		q.Limit = MaxPageLimit
	}
	result := &ListResult{Rentals: []domain.Rental{}, Total: total, Page: q.Page, Limit: q.Limit}
	if q.Page < 1 || q.Limit <= 0 || q.Page-1 > math.MaxInt/q.Limit {
		return result, nil
	}

	offset := (q.Page - 1) * q.Limit
	if int64(offset) >= total {
		return result, nil
	}
	rentals, err := s.rentals.Find(ctx, filter, sort, offset, q.Limit)
	if err != nil {
		return nil, err
	}
	result.Rentals = rentals
	return result, nil
}

// Search is List with a mandatory query.
func (s *Service) Search(ctx context.Context, q ListQuery) (*ListResult, error) {
	if q.Query == "" {
		return nil, ErrQueryRequired
	}
	return s.List(ctx, q)
}

func (q ListQuery) sortSpec() (domain.RentalSort, error) {
	if q.Sort == "" {
		return domain.RentalSort{}, nil
	}
	if !domain.IsSortableField(q.Sort) {
		return domain.RentalSort{}, ErrInvalidSort
	}
	return domain.RentalSort{Field: q.Sort, Desc: strings.EqualFold(q.Order, "desc")}, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (*domain.Rental, error) {
	return s.rentals.FindByID(ctx, id)
}

func (s *Service) Create(ctx context.Context, req CreateRentalRequest, img *ImageFile) (*domain.Rental, error) {
	if errs := validator.Validate(req); errs != nil {
		return nil, &ValidationError{Fields: errs}
	}
	if img == nil {
		return nil, ErrImageRequired
	}

	ref, err := s.storeImage(ctx, img)
	if err != nil {
		return nil, err
	}

	rental := &domain.Rental{
		Name:        req.Name,
		Address:     req.Address,
		RoomCount:   *req.RoomCount,
		Price:       *req.Price,
		Description: req.Description,
		Image:       ref,
	}
	if err := s.rentals.Insert(ctx, rental); err != nil {
		s.removeImage(ctx, ref)
		return nil, err
	}

	s.log.Info("rental created", zap.String("id", rental.ID))
	return rental, nil
}

// Update changes the supplied fields. A new image replaces the old one,
// whose file is removed once the record points at the new file.
func (s *Service) Update(ctx context.Context, id string, req UpdateRentalRequest, img *ImageFile) (*domain.Rental, error) {
	if errs := validator.Validate(req); errs != nil {
		return nil, &ValidationError{Fields: errs}
	}

	existing, err := s.rentals.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	patch := req.patch()
	var newRef string
	if img != nil {
		newRef, err = s.storeImage(ctx, img)
		if err != nil {
			return nil, err
		}
		patch.Image = &newRef
	}

	updated, err := s.rentals.UpdateByID(ctx, id, patch)
	if err != nil {
		if newRef != "" {
			s.removeImage(ctx, newRef)
		}
		return nil, err
	}

	if newRef != "" && existing.Image != "" && existing.Image != newRef {
		s.removeImage(ctx, existing.Image)
	}
	return updated, nil
}

// Delete removes the image file first and the record second.
func (s *Service) Delete(ctx context.Context, id string) error {
	existing, err := s.rentals.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if existing.Image != "" {
		s.removeImage(ctx, existing.Image)
	}
	if err := s.rentals.DeleteByID(ctx, id); err != nil {
		return err
	}

	s.log.Info("rental deleted", zap.String("id", id))
	return nil
}

// PruneImages deletes stored files that no rental references and that
// are older than minAge, so uploads still waiting for their record write
// are left alone. With dryRun set nothing is deleted.
func (s *Service) PruneImages(ctx context.Context, minAge time.Duration, dryRun bool) ([]string, error) {
	rentals, err := s.rentals.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	referenced := make(map[string]bool, len(rentals))
	for _, r := range rentals {
		if key, err := storage.KeyFromRef(s.publicPrefix, r.Image); err == nil {
			referenced[key] = true
		}
	}

	files, err := s.files.List(ctx)
	if err != nil {
		return nil, err
	}

	cutoff := time.Now().Add(-minAge)
	var orphans []string
	for _, f := range files {
		if referenced[f.Key] || f.ModTime.After(cutoff) {
			continue
		}
		orphans = append(orphans, f.Key)
		if dryRun {
			continue
		}
		if err := s.files.Delete(ctx, f.Key); err != nil {
			return orphans, err
		}
		s.log.Info("pruned orphan image", zap.String("key", f.Key))
	}
	return orphans, nil
}
