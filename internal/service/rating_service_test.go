package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRateCropRejectsOutOfRange(t *testing.T) {
	svc := NewRatingService(nil, nil, nil)

	for _, rating := range []int{0, -1, 6, 100} {
		_, err := svc.RateCrop(context.Background(), 1, 1, rating)
		assert.ErrorIs(t, err, ErrRatingOutOfRange, "rating %d", rating)
	}
}

func TestRateCropIntegration(t *testing.T) {
	t.Skip("Integration test - requires database and redis")
}
