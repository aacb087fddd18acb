package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"farm-market/internal/models"
)

// AddCartItem inserts a cart row or bumps the quantity of an existing
// (user, crop) row. Returns true when an existing row was merged.
func (s *Store) AddCartItem(ctx context.Context, userID, cropID int64, qty int) (bool, error) {
	var existing models.CartItem
	err := s.db.GetContext(ctx, &existing,
		"SELECT * FROM cart WHERE user_id = $1 AND crop_id = $2", userID, cropID)
	if err != nil && err != sql.ErrNoRows {
		return false, err
	}

	if err == nil {
		_, err = s.db.ExecContext(ctx,
			"UPDATE cart SET quantity = quantity + $1 WHERE id = $2", qty, existing.ID)
		if err != nil {
			return false, fmt.Errorf("failed to update cart: %w", err)
		}
		return true, nil
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO cart (user_id, crop_id, quantity) VALUES ($1, $2, $3)", userID, cropID, qty)
	if err != nil {
		return false, fmt.Errorf("failed to add to cart: %w", err)
	}
	return false, nil
}

// GetCartEntries retrieves a user's cart joined with crop details
func (s *Store) GetCartEntries(ctx context.Context, userID int64) ([]models.CartEntry, error) {
	entries := []models.CartEntry{}
	err := s.db.SelectContext(ctx, &entries, `
		SELECT c.id, cr.crop_name, cr.price_cents, c.quantity, cr.image_url
		FROM cart c
		JOIN crops cr ON c.crop_id = cr.id
		WHERE c.user_id = $1
		ORDER BY c.id`, userID)
	return entries, err
}

// RemoveCartItem deletes one cart row owned by the user.
// Returns false when no row matched.
func (s *Store) RemoveCartItem(ctx context.Context, cartID, userID int64) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM cart WHERE id = $1 AND user_id = $2", cartID, userID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ClearCart deletes every cart row for a user
func (s *Store) ClearCart(ctx context.Context, userID int64) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM cart WHERE user_id = $1", userID)
	return err
}

// DeleteStaleCartItems purges cart rows older than the cutoff and
// returns how many were removed
func (s *Store) DeleteStaleCartItems(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM cart WHERE created_at < $1", olderThan)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
