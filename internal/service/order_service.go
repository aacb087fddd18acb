package service

import (
	"context"

	"farm-market/internal/models"
	"farm-market/internal/store"
	"farm-market/internal/util"

	"go.uber.org/zap"
)

// OrderService serves buyer order history and farmer sales history
type OrderService struct {
	store  *store.Store
	logger *zap.Logger
}

// NewOrderService creates a new order service
func NewOrderService(store *store.Store) *OrderService {
	return &OrderService{
		store:  store,
		logger: util.GetLogger(),
	}
}

// GetOrderHistory retrieves a buyer's orders with their lines, newest first
func (s *OrderService) GetOrderHistory(ctx context.Context, userID int64) ([]models.OrderHistory, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.GetOrderHistory")
	defer span.End()

	orders, err := s.store.GetOrdersByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return []models.OrderHistory{}, nil
	}

	orderIDs := make([]int64, len(orders))
	for i, o := range orders {
		orderIDs[i] = o.ID
	}

	items, err := s.store.GetOrderItemDetails(ctx, orderIDs)
	if err != nil {
		return nil, err
	}

	return buildOrderHistory(orders, items), nil
}

// buildOrderHistory groups item rows under their orders, preserving the
// order of the orders slice.
func buildOrderHistory(orders []models.Order, items []models.OrderItemDetail) []models.OrderHistory {
	byOrder := make(map[int64]*models.OrderHistory, len(orders))
	history := make([]models.OrderHistory, len(orders))
	for i, o := range orders {
		history[i] = models.OrderHistory{
			ID:         o.ID,
			TotalCents: o.TotalCents,
			CreatedAt:  o.CreatedAt,
			Items:      []models.OrderItemDetail{},
		}
		byOrder[o.ID] = &history[i]
	}
	for _, item := range items {
		if h, ok := byOrder[item.OrderID]; ok {
			h.Items = append(h.Items, item)
		}
	}

	return history
}

// GetFarmerSales retrieves every sold line across a farmer's crops
func (s *OrderService) GetFarmerSales(ctx context.Context, farmerID int64) ([]models.FarmerSale, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.GetFarmerSales")
	defer span.End()

	return s.store.GetFarmerSales(ctx, farmerID)
}
