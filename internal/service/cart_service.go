package service

import (
	"context"
	"errors"

	"farm-market/internal/models"
	"farm-market/internal/store"
	"farm-market/internal/util"

	"go.uber.org/zap"
)

// ErrCartItemNotFound is returned when a cart row is missing or owned by a
// different user.
var ErrCartItemNotFound = errors.New("cart item not found")

// CartService handles a user's cart
type CartService struct {
	store  *store.Store
	logger *zap.Logger
}

// NewCartService creates a new cart service
func NewCartService(store *store.Store) *CartService {
	return &CartService{
		store:  store,
		logger: util.GetLogger(),
	}
}

// AddToCart adds qty units of a crop to the user's cart, merging with an
// existing row for the same crop. Returns true when a row was merged.
func (s *CartService) AddToCart(ctx context.Context, userID, cropID int64, qty int) (bool, error) {
	ctx, span := util.StartSpan(ctx, "CartService.AddToCart")
	defer span.End()

	merged, err := s.store.AddCartItem(ctx, userID, cropID, qty)
	if err != nil {
		return false, err
	}

	s.logger.Info("Cart updated",
		zap.Int64("user_id", userID),
		zap.Int64("crop_id", cropID),
		zap.Int("qty", qty),
		zap.Bool("merged", merged))
	return merged, nil
}

// GetCart lists the user's cart entries with crop details
func (s *CartService) GetCart(ctx context.Context, userID int64) ([]models.CartEntry, error) {
	return s.store.GetCartEntries(ctx, userID)
}

// RemoveItem deletes one cart row owned by the user
func (s *CartService) RemoveItem(ctx context.Context, cartID, userID int64) error {
	ok, err := s.store.RemoveCartItem(ctx, cartID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrCartItemNotFound
	}
	return nil
}

// Clear empties the user's cart
func (s *CartService) Clear(ctx context.Context, userID int64) error {
	return s.store.ClearCart(ctx, userID)
}
