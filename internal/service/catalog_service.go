package service

import (
	"context"
	"errors"
	"io"
	"strings"

	"farm-market/internal/imagestore"
	"farm-market/internal/models"
	"farm-market/internal/redisclient"
	"farm-market/internal/store"
	"farm-market/internal/util"

	"go.uber.org/zap"
)

// ErrCropNotFound is returned when a crop is missing or not owned by the
// acting farmer.
var ErrCropNotFound = errors.New("crop not found or not owned by farmer")

// CatalogService handles crop listing management and search
type CatalogService struct {
	store  *store.Store
	redis  *redisclient.Client
	images imagestore.Store
	logger *zap.Logger
}

// NewCatalogService creates a new catalog service
func NewCatalogService(store *store.Store, redis *redisclient.Client, images imagestore.Store) *CatalogService {
	return &CatalogService{
		store:  store,
		redis:  redis,
		images: images,
		logger: util.GetLogger(),
	}
}

// CreateCropRequest represents a new crop listing. The image arrives as a
// multipart upload alongside these fields.
type CreateCropRequest struct {
	Name       string
	Quantity   int
	Location   string
	PriceCents int64
	FarmerID   int64
}

// CreateCrop stores the image and inserts the listing
func (s *CatalogService) CreateCrop(ctx context.Context, req CreateCropRequest, filename string, size int64, image io.Reader) (*models.Crop, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.CreateCrop")
	defer span.End()

	imageURL, err := s.images.Save(ctx, filename, size, image)
	if err != nil {
		return nil, err
	}

	crop := &models.Crop{
		Name:       strings.TrimSpace(req.Name),
		Quantity:   req.Quantity,
		Location:   strings.TrimSpace(req.Location),
		PriceCents: req.PriceCents,
		ImageURL:   imageURL,
		FarmerID:   req.FarmerID,
	}

	if err := s.store.CreateCrop(ctx, crop); err != nil {
		return nil, err
	}

	util.CropsListedTotal.Inc()
	s.logger.Info("Crop listed",
		zap.Int64("crop_id", crop.ID),
		zap.Int64("farmer_id", crop.FarmerID))

	return crop, nil
}

// SearchCrops retrieves filtered, sorted listings with rating aggregates
func (s *CatalogService) SearchCrops(ctx context.Context, filter store.CropFilter) ([]models.CropListing, error) {
	return s.store.SearchCrops(ctx, filter)
}

// GetCrop retrieves a single crop, cache-aside
func (s *CatalogService) GetCrop(ctx context.Context, cropID int64) (*models.Crop, error) {
	if crop, hit, err := s.redis.GetCrop(ctx, cropID); err == nil && hit {
		return crop, nil
	}

	crop, err := s.store.GetCropByID(ctx, cropID)
	if err != nil {
		return nil, err
	}
	if crop == nil {
		return nil, ErrCropNotFound
	}

	if err := s.redis.SetCrop(ctx, crop); err != nil {
		s.logger.Warn("Failed to cache crop", zap.Int64("crop_id", cropID), zap.Error(err))
	}
	return crop, nil
}

// UpdateCrop applies a partial update on behalf of the owning farmer
func (s *CatalogService) UpdateCrop(ctx context.Context, cropID, farmerID int64, upd store.CropUpdate) error {
	ok, err := s.store.UpdateCrop(ctx, cropID, farmerID, upd)
	if err != nil {
		return err
	}
	if !ok {
		return ErrCropNotFound
	}

	if err := s.redis.InvalidateCrop(ctx, cropID); err != nil {
		s.logger.Warn("Failed to invalidate crop cache", zap.Int64("crop_id", cropID), zap.Error(err))
	}
	return nil
}

// DeleteCrop removes a listing on behalf of the owning farmer
func (s *CatalogService) DeleteCrop(ctx context.Context, cropID, farmerID int64) error {
	ok, err := s.store.DeleteCrop(ctx, cropID, farmerID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrCropNotFound
	}

	if err := s.redis.InvalidateCrop(ctx, cropID); err != nil {
		s.logger.Warn("Failed to invalidate crop cache", zap.Int64("crop_id", cropID), zap.Error(err))
	}
	return nil
}
