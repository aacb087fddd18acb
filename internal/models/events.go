package models

import "time"

// Event types
const (
	EventTypeOrderPlaced = "ORDER_PLACED"
	EventTypeCropRated   = "CROP_RATED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderPlacedEvent is published after a checkout transaction commits
type OrderPlacedEvent struct {
	BaseEvent
	OrderID    int64          `json:"order_id"`
	UserID     int64          `json:"user_id"`
	TotalCents int64          `json:"total_cents"`
	Items      []SoldItemData `json:"items"`
}

// SoldItemData is one sold line carried in an OrderPlacedEvent
type SoldItemData struct {
	CropID     int64 `json:"crop_id"`
	Quantity   int   `json:"quantity"`
	PriceCents int64 `json:"price_cents"`
}

// CropRatedEvent is published after a rating upsert
type CropRatedEvent struct {
	BaseEvent
	CropID int64 `json:"crop_id"`
	UserID int64 `json:"user_id"`
	Rating int   `json:"rating"`
}
