package service

import (
	"context"
	"errors"
	"time"

	"farm-market/internal/broker"
	"farm-market/internal/models"
	"farm-market/internal/redisclient"
	"farm-market/internal/store"
	"farm-market/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrRatingOutOfRange is returned before any store access when the rating is
// not in 1..5.
var ErrRatingOutOfRange = errors.New("rating must be between 1 and 5")

// RatingService handles crop rating upserts and aggregates
type RatingService struct {
	store          *store.Store
	redis          *redisclient.Client
	eventPublisher *broker.EventPublisher
	logger         *zap.Logger
}

// NewRatingService creates a new rating service
func NewRatingService(store *store.Store, redis *redisclient.Client, eventPublisher *broker.EventPublisher) *RatingService {
	return &RatingService{
		store:          store,
		redis:          redis,
		eventPublisher: eventPublisher,
		logger:         util.GetLogger(),
	}
}

// RateCrop upserts the user's 1-5 rating and returns the fresh aggregate
func (s *RatingService) RateCrop(ctx context.Context, userID, cropID int64, rating int) (*models.RatingAggregate, error) {
	ctx, span := util.StartSpan(ctx, "RatingService.RateCrop")
	defer span.End()

	if rating < 1 || rating > 5 {
		return nil, ErrRatingOutOfRange
	}

	if err := s.store.UpsertRating(ctx, userID, cropID, rating); err != nil {
		return nil, err
	}

	util.RatingsSavedTotal.Inc()

	if err := s.redis.InvalidateRatingAggregate(ctx, cropID); err != nil {
		s.logger.Warn("Failed to invalidate rating cache",
			zap.Int64("crop_id", cropID), zap.Error(err))
	}

	agg, err := s.store.GetRatingAggregate(ctx, cropID)
	if err != nil {
		return nil, err
	}

	if err := s.redis.SetRatingAggregate(ctx, cropID, agg); err != nil {
		s.logger.Warn("Failed to cache rating aggregate",
			zap.Int64("crop_id", cropID), zap.Error(err))
	}

	if s.eventPublisher != nil {
		event := &models.CropRatedEvent{
			BaseEvent: models.BaseEvent{
				EventID:   uuid.New().String(),
				EventType: models.EventTypeCropRated,
				Timestamp: time.Now(),
			},
			CropID: cropID,
			UserID: userID,
			Rating: rating,
		}
		if err := s.eventPublisher.PublishCropRated(ctx, event); err != nil {
			s.logger.Error("Failed to publish CropRated event", zap.Error(err))
		}
	}

	return agg, nil
}

// GetAggregate retrieves a crop's rating aggregate, cache-aside
func (s *RatingService) GetAggregate(ctx context.Context, cropID int64) (*models.RatingAggregate, error) {
	if agg, hit, err := s.redis.GetRatingAggregate(ctx, cropID); err == nil && hit {
		return agg, nil
	}

	agg, err := s.store.GetRatingAggregate(ctx, cropID)
	if err != nil {
		return nil, err
	}

	if err := s.redis.SetRatingAggregate(ctx, cropID, agg); err != nil {
		s.logger.Warn("Failed to cache rating aggregate",
			zap.Int64("crop_id", cropID), zap.Error(err))
	}
	return agg, nil
}
