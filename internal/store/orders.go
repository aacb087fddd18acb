package store

import (
	"context"

	"farm-market/internal/models"

	"github.com/jmoiron/sqlx"
)

// GetOrdersByUserID retrieves a buyer's orders, newest first
func (s *Store) GetOrdersByUserID(ctx context.Context, userID int64) ([]models.Order, error) {
	orders := []models.Order{}
	err := s.db.SelectContext(ctx, &orders,
		"SELECT id, user_id, total_cents, created_at FROM orders WHERE user_id = $1 ORDER BY created_at DESC, id DESC",
		userID)
	return orders, err
}

// GetOrderItemDetails retrieves the lines of the given orders joined with crop names
func (s *Store) GetOrderItemDetails(ctx context.Context, orderIDs []int64) ([]models.OrderItemDetail, error) {
	if len(orderIDs) == 0 {
		return []models.OrderItemDetail{}, nil
	}

	query, args, err := sqlx.In(`
		SELECT oi.order_id, oi.crop_id, c.crop_name, oi.quantity, oi.price_cents
		FROM order_items oi
		JOIN crops c ON c.id = oi.crop_id
		WHERE oi.order_id IN (?)
		ORDER BY oi.order_id, oi.id`, orderIDs)
	if err != nil {
		return nil, err
	}
	query = s.db.Rebind(query)

	items := []models.OrderItemDetail{}
	err = s.db.SelectContext(ctx, &items, query, args...)
	return items, err
}

// GetOrderItemsByOrderID retrieves the raw lines of one order
func (s *Store) GetOrderItemsByOrderID(ctx context.Context, orderID int64) ([]models.OrderItem, error) {
	items := []models.OrderItem{}
	err := s.db.SelectContext(ctx, &items,
		"SELECT * FROM order_items WHERE order_id = $1 ORDER BY id", orderID)
	return items, err
}

// GetFarmerSales retrieves every sold line across a farmer's crops with
// buyer details, newest orders first
func (s *Store) GetFarmerSales(ctx context.Context, farmerID int64) ([]models.FarmerSale, error) {
	sales := []models.FarmerSale{}
	err := s.db.SelectContext(ctx, &sales, `
		SELECT o.id AS order_id,
		       o.created_at,
		       COALESCE(o.total_cents, 0) AS order_total_cents,
		       COALESCE(u.name, 'Unknown') AS buyer_name,
		       COALESCE(u.email, '') AS buyer_email,
		       c.id AS crop_id,
		       c.crop_name,
		       oi.quantity,
		       oi.price_cents,
		       (oi.quantity * oi.price_cents) AS subtotal_cents
		FROM crops c
		JOIN order_items oi ON c.id = oi.crop_id
		JOIN orders o ON oi.order_id = o.id
		JOIN user_credentials u ON o.user_id = u.id
		WHERE c.farmer_id = $1
		ORDER BY o.created_at DESC, o.id DESC`, farmerID)
	return sales, err
}
