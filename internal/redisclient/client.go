package redisclient

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"farm-market/internal/models"

	"github.com/go-redis/redis/v8"
)

// Cache TTLs. Aggregates are invalidated on every rating upsert, so the TTL
// only bounds staleness after missed invalidations.
const (
	ratingTTL = 5 * time.Minute
	cropTTL   = 2 * time.Minute
)

type Client struct {
	rdb *redis.Client
}

// NewClient creates a new Redis client
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

func ratingKey(cropID int64) string {
	return fmt.Sprintf("rating:%d", cropID)
}

func cropKey(cropID int64) string {
	return fmt.Sprintf("crop:%d", cropID)
}

// GetRatingAggregate returns the cached aggregate for a crop.
// The second return value is false on a cache miss.
func (c *Client) GetRatingAggregate(ctx context.Context, cropID int64) (*models.RatingAggregate, bool, error) {
	data, err := c.rdb.Get(ctx, ratingKey(cropID)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var agg models.RatingAggregate
	if err := json.Unmarshal(data, &agg); err != nil {
		return nil, false, err
	}
	return &agg, true, nil
}

// SetRatingAggregate caches the aggregate for a crop
func (c *Client) SetRatingAggregate(ctx context.Context, cropID int64, agg *models.RatingAggregate) error {
	data, err := json.Marshal(agg)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, ratingKey(cropID), data, ratingTTL).Err()
}

// InvalidateRatingAggregate drops the cached aggregate for a crop
func (c *Client) InvalidateRatingAggregate(ctx context.Context, cropID int64) error {
	return c.rdb.Del(ctx, ratingKey(cropID)).Err()
}

// GetCrop returns the cached crop detail.
// The second return value is false on a cache miss.
func (c *Client) GetCrop(ctx context.Context, cropID int64) (*models.Crop, bool, error) {
	data, err := c.rdb.Get(ctx, cropKey(cropID)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var crop models.Crop
	if err := json.Unmarshal(data, &crop); err != nil {
		return nil, false, err
	}
	return &crop, true, nil
}

// SetCrop caches a crop detail row
func (c *Client) SetCrop(ctx context.Context, crop *models.Crop) error {
	data, err := json.Marshal(crop)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, cropKey(crop.ID), data, cropTTL).Err()
}

// InvalidateCrop drops the cached detail for a crop
func (c *Client) InvalidateCrop(ctx context.Context, cropID int64) error {
	return c.rdb.Del(ctx, cropKey(cropID)).Err()
}
