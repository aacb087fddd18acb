package store

import (
	"context"

	"farm-market/internal/models"
)

// UpsertRating saves a user's 1-5 rating for a crop, replacing any
// previous rating by the same user
func (s *Store) UpsertRating(ctx context.Context, userID, cropID int64, rating int) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO crop_ratings (user_id, crop_id, rating)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, crop_id)
		DO UPDATE SET rating = EXCLUDED.rating, updated_at = NOW()`,
		userID, cropID, rating)
	return err
}

// GetRatingAggregate retrieves the average rating and count for a crop
func (s *Store) GetRatingAggregate(ctx context.Context, cropID int64) (*models.RatingAggregate, error) {
	var agg models.RatingAggregate
	err := s.db.GetContext(ctx, &agg, `
		SELECT COALESCE(AVG(rating), 0) AS avg_rating, COUNT(*) AS rating_count
		FROM crop_ratings
		WHERE crop_id = $1`, cropID)
	if err != nil {
		return nil, err
	}
	return &agg, nil
}
