package store

import (
	"context"
	"database/sql"

	"farm-market/internal/checkout"
	"farm-market/internal/models"

	"github.com/jmoiron/sqlx"
)

// BeginCheckout opens a checkout transaction
func (s *Store) BeginCheckout(ctx context.Context) (checkout.Tx, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &checkoutTx{tx: tx}, nil
}

type checkoutTx struct {
	tx *sqlx.Tx
}

// LockCrop reads the crop's quantity and price under an exclusive row lock.
// The lock is held until Commit or Rollback. Returns (nil, nil) when the crop
// does not exist.
func (t *checkoutTx) LockCrop(ctx context.Context, cropID int64) (*models.CropStock, error) {
	var stock models.CropStock
	err := t.tx.GetContext(ctx, &stock,
		"SELECT quantity, price_cents FROM crops WHERE id = $1 FOR UPDATE", cropID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &stock, nil
}

// DecrementStock reduces the crop's available quantity by qty
func (t *checkoutTx) DecrementStock(ctx context.Context, cropID int64, qty int) error {
	_, err := t.tx.ExecContext(ctx,
		"UPDATE crops SET quantity = quantity - $1 WHERE id = $2", qty, cropID)
	return err
}

// InsertOrder creates the order row and returns its generated id
func (t *checkoutTx) InsertOrder(ctx context.Context, buyerID, totalCents int64) (int64, error) {
	var orderID int64
	err := t.tx.GetContext(ctx, &orderID,
		"INSERT INTO orders (user_id, total_cents) VALUES ($1, $2) RETURNING id",
		buyerID, totalCents)
	return orderID, err
}

// InsertOrderItem creates one order line with the price frozen at lock time
func (t *checkoutTx) InsertOrderItem(ctx context.Context, orderID, cropID int64, qty int, priceCents int64) error {
	_, err := t.tx.ExecContext(ctx,
		"INSERT INTO order_items (order_id, crop_id, quantity, price_cents) VALUES ($1, $2, $3, $4)",
		orderID, cropID, qty, priceCents)
	return err
}

func (t *checkoutTx) Commit() error {
	return t.tx.Commit()
}

func (t *checkoutTx) Rollback() error {
	return t.tx.Rollback()
}
