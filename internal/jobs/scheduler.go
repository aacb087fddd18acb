package jobs

import (
	"context"
	"time"

	"farm-market/internal/store"
	"farm-market/internal/util"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

// Scheduler runs periodic maintenance: stale cart purging and a low-stock
// report for farmers.
type Scheduler struct {
	scheduler         gocron.Scheduler
	store             *store.Store
	cartStaleDays     int
	lowStockThreshold int
	logger            *zap.Logger
}

// NewScheduler creates the scheduler and registers its jobs
func NewScheduler(store *store.Store, cartStaleDays, lowStockThreshold int) (*Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	s := &Scheduler{
		scheduler:         sched,
		store:             store,
		cartStaleDays:     cartStaleDays,
		lowStockThreshold: lowStockThreshold,
		logger:            util.GetLogger(),
	}

	if _, err := sched.NewJob(
		gocron.DurationJob(24*time.Hour),
		gocron.NewTask(s.purgeStaleCarts),
		gocron.WithName("stale-cart-purge"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	); err != nil {
		return nil, err
	}

	if _, err := sched.NewJob(
		gocron.DurationJob(1*time.Hour),
		gocron.NewTask(s.reportLowStock),
		gocron.WithName("low-stock-report"),
	); err != nil {
		return nil, err
	}

	return s, nil
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	s.logger.Info("Starting job scheduler")
	s.scheduler.Start()
}

// Stop shuts the scheduler down
func (s *Scheduler) Stop() error {
	s.logger.Info("Stopping job scheduler")
	return s.scheduler.Shutdown()
}

func (s *Scheduler) purgeStaleCarts() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cutoff := time.Now().AddDate(0, 0, -s.cartStaleDays)
	n, err := s.store.DeleteStaleCartItems(ctx, cutoff)
	if err != nil {
		s.logger.Error("Stale cart purge failed", zap.Error(err))
		return
	}
	if n > 0 {
		s.logger.Info("Purged stale cart items", zap.Int64("count", n))
	}
}

func (s *Scheduler) reportLowStock() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	crops, err := s.store.GetLowStockCrops(ctx, s.lowStockThreshold)
	if err != nil {
		s.logger.Error("Low stock report failed", zap.Error(err))
		return
	}

	for _, crop := range crops {
		s.logger.Warn("Crop running low on stock",
			zap.Int64("crop_id", crop.ID),
			zap.String("crop_name", crop.Name),
			zap.Int64("farmer_id", crop.FarmerID),
			zap.Int("quantity", crop.Quantity))
	}
}
