package worker

import (
	"context"

	"farm-market/internal/broker"
	"farm-market/internal/models"
	"farm-market/internal/redisclient"
	"farm-market/internal/store"
	"farm-market/internal/util"

	"go.uber.org/zap"
)

// SalesWorker consumes OrderPlaced events: it logs one sale notification per
// affected farmer and drops the cached entries for the sold crops so buyers
// see fresh quantities.
type SalesWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	store        *store.Store
	redis        *redisclient.Client
	logger       *zap.Logger
}

// NewSalesWorker creates a new sales worker
func NewSalesWorker(consumer *broker.Consumer, store *store.Store, redis *redisclient.Client) *SalesWorker {
	w := &SalesWorker{
		consumer: consumer,
		store:    store,
		redis:    redis,
		logger:   util.GetLogger(),
	}

	eventHandler := broker.NewEventHandler()
	eventHandler.OnOrderPlaced(w.handleOrderPlaced)
	eventHandler.OnCropRated(w.handleCropRated)
	w.eventHandler = eventHandler

	return w
}

// Start starts the worker
func (w *SalesWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting sales worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *SalesWorker) Stop() error {
	w.logger.Info("Stopping sales worker")
	return w.consumer.Close()
}

func (w *SalesWorker) handleOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error {
	for _, item := range event.Items {
		if err := w.redis.InvalidateCrop(ctx, item.CropID); err != nil {
			w.logger.Warn("Failed to invalidate crop cache",
				zap.Int64("crop_id", item.CropID), zap.Error(err))
		}

		crop, err := w.store.GetCropByID(ctx, item.CropID)
		if err != nil {
			w.logger.Error("Failed to load sold crop",
				zap.Int64("crop_id", item.CropID), zap.Error(err))
			continue
		}
		if crop == nil {
			// The crop may have been deleted since the sale; nothing to notify.
			w.logger.Warn("Sold crop no longer exists", zap.Int64("crop_id", item.CropID))
			continue
		}

		util.SalesNotifiedTotal.Inc()
		w.logger.Info("Crop sold",
			zap.Int64("farmer_id", crop.FarmerID),
			zap.Int64("crop_id", item.CropID),
			zap.String("crop_name", crop.Name),
			zap.Int("quantity", item.Quantity),
			zap.Int64("order_id", event.OrderID),
			zap.Int64("buyer_id", event.UserID))
	}

	return nil
}

// handleCropRated drops the cached aggregate so every instance serves the
// fresh average, not just the one that took the rating.
func (w *SalesWorker) handleCropRated(ctx context.Context, event *models.CropRatedEvent) error {
	if err := w.redis.InvalidateRatingAggregate(ctx, event.CropID); err != nil {
		w.logger.Warn("Failed to invalidate rating cache",
			zap.Int64("crop_id", event.CropID), zap.Error(err))
	}
	return nil
}
