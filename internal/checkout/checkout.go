package checkout

import (
	"context"
	"time"

	"farm-market/internal/models"
	"farm-market/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Store opens checkout transactions against the relational store.
type Store interface {
	BeginCheckout(ctx context.Context) (Tx, error)
}

// Tx is one open checkout transaction. LockCrop must take an exclusive row
// lock (SELECT ... FOR UPDATE) held until Commit or Rollback, so concurrent
// checkouts on the same crop serialize instead of racing. LockCrop returns
// (nil, nil) when the crop does not exist.
type Tx interface {
	LockCrop(ctx context.Context, cropID int64) (*models.CropStock, error)
	DecrementStock(ctx context.Context, cropID int64, qty int) error
	InsertOrder(ctx context.Context, buyerID, totalCents int64) (int64, error)
	InsertOrderItem(ctx context.Context, orderID, cropID int64, qty int, priceCents int64) error
	Commit() error
	Rollback() error
}

// EventPublisher announces committed orders.
type EventPublisher interface {
	PublishOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error
}

// Line is one requested (crop, quantity) pair.
type Line struct {
	CropID   int64 `json:"cropId"`
	Quantity int   `json:"qty"`
}

// Result is the outcome of a committed checkout.
type Result struct {
	OrderID    int64 `json:"orderId"`
	TotalCents int64 `json:"total_cents"`
}

type pricedLine struct {
	cropID     int64
	quantity   int
	priceCents int64
}

// Processor runs the checkout transaction: verify and decrement stock for
// every line, price each line at lock time, and persist the order with its
// lines, all-or-nothing.
type Processor struct {
	store     Store
	publisher EventPublisher
	logger    *zap.Logger
}

// NewProcessor creates a checkout processor. publisher may be nil.
func NewProcessor(store Store, publisher EventPublisher) *Processor {
	return &Processor{
		store:     store,
		publisher: publisher,
		logger:    util.GetLogger(),
	}
}

// Checkout processes the lines strictly in request order inside one
// transaction. On any failure the transaction is rolled back and no stock or
// order state changes. Repeated crop ids are not merged; each line locks and
// decrements independently.
func (p *Processor) Checkout(ctx context.Context, buyerID int64, lines []Line) (*Result, error) {
	ctx, span := util.StartSpan(ctx, "checkout.Processor.Checkout")
	defer span.End()

	start := time.Now()
	defer func() {
		util.CheckoutLatency.Observe(time.Since(start).Seconds())
	}()

	if err := validate(buyerID, lines); err != nil {
		util.CheckoutsFailedTotal.WithLabelValues("invalid_request").Inc()
		return nil, err
	}

	tx, err := p.store.BeginCheckout(ctx)
	if err != nil {
		util.CheckoutsFailedTotal.WithLabelValues("tx_begin").Inc()
		return nil, ErrTransactionStart
	}

	result, priced, err := p.run(ctx, tx, buyerID, lines)
	if err != nil {
		// Best-effort rollback; the triggering error is what the caller sees.
		if rbErr := tx.Rollback(); rbErr != nil {
			p.logger.Error("Rollback failed after checkout abort",
				zap.Int64("buyer_id", buyerID),
				zap.Error(rbErr))
		}
		return nil, err
	}

	util.CheckoutsTotal.Inc()
	p.logger.Info("Checkout committed",
		zap.Int64("buyer_id", buyerID),
		zap.Int64("order_id", result.OrderID),
		zap.Int64("total_cents", result.TotalCents))

	p.announce(ctx, buyerID, result, priced)
	return result, nil
}

func (p *Processor) run(ctx context.Context, tx Tx, buyerID int64, lines []Line) (*Result, []pricedLine, error) {
	priced := make([]pricedLine, 0, len(lines))
	var totalCents int64

	for _, line := range lines {
		stock, err := tx.LockCrop(ctx, line.CropID)
		if err != nil {
			util.CheckoutsFailedTotal.WithLabelValues("store_error").Inc()
			return nil, nil, &StoreError{Op: "lock", Err: err}
		}
		if stock == nil {
			util.CheckoutsFailedTotal.WithLabelValues("crop_not_found").Inc()
			return nil, nil, &CropNotFoundError{CropID: line.CropID}
		}
		if stock.Quantity < line.Quantity {
			util.CheckoutsFailedTotal.WithLabelValues("insufficient_stock").Inc()
			return nil, nil, &InsufficientStockError{
				CropID:    line.CropID,
				Available: stock.Quantity,
				Requested: line.Quantity,
			}
		}

		if err := tx.DecrementStock(ctx, line.CropID, line.Quantity); err != nil {
			util.CheckoutsFailedTotal.WithLabelValues("store_error").Inc()
			return nil, nil, &StoreError{Op: "decrement", Err: err}
		}

		priced = append(priced, pricedLine{
			cropID:     line.CropID,
			quantity:   line.Quantity,
			priceCents: stock.PriceCents,
		})
		totalCents += stock.PriceCents * int64(line.Quantity)
	}

	orderID, err := tx.InsertOrder(ctx, buyerID, totalCents)
	if err != nil {
		util.CheckoutsFailedTotal.WithLabelValues("store_error").Inc()
		return nil, nil, &StoreError{Op: "insert order", Err: err}
	}

	for _, pl := range priced {
		if err := tx.InsertOrderItem(ctx, orderID, pl.cropID, pl.quantity, pl.priceCents); err != nil {
			util.CheckoutsFailedTotal.WithLabelValues("store_error").Inc()
			return nil, nil, &StoreError{Op: "insert order item", Err: err}
		}
	}

	if err := tx.Commit(); err != nil {
		util.CheckoutsFailedTotal.WithLabelValues("commit").Inc()
		return nil, nil, ErrCommitFailed
	}

	return &Result{OrderID: orderID, TotalCents: totalCents}, priced, nil
}

func (p *Processor) announce(ctx context.Context, buyerID int64, result *Result, priced []pricedLine) {
	if p.publisher == nil {
		return
	}

	items := make([]models.SoldItemData, 0, len(priced))
	for _, pl := range priced {
		items = append(items, models.SoldItemData{
			CropID:     pl.cropID,
			Quantity:   pl.quantity,
			PriceCents: pl.priceCents,
		})
	}

	event := &models.OrderPlacedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOrderPlaced,
			Timestamp: time.Now(),
		},
		OrderID:    result.OrderID,
		UserID:     buyerID,
		TotalCents: result.TotalCents,
		Items:      items,
	}

	if err := p.publisher.PublishOrderPlaced(ctx, event); err != nil {
		p.logger.Error("Failed to publish OrderPlaced event",
			zap.Int64("order_id", result.OrderID),
			zap.Error(err))
	}
}

func validate(buyerID int64, lines []Line) error {
	if buyerID <= 0 {
		return &InvalidRequestError{Reason: "invalid buyer id"}
	}
	if len(lines) == 0 {
		return &InvalidRequestError{Reason: "empty item list"}
	}
	for _, line := range lines {
		if line.CropID <= 0 {
			return &InvalidRequestError{Reason: "invalid crop id in item list"}
		}
		if line.Quantity <= 0 {
			return &InvalidRequestError{Reason: "quantity must be positive"}
		}
	}
	return nil
}
