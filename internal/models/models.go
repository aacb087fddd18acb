package models

import "time"

// User roles
const (
	RoleFarmer   = "farmer"
	RoleConsumer = "consumer"
)

// User represents a registered farmer or consumer
type User struct {
	ID           int64     `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Role         string    `db:"role" json:"role"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Crop is a farmer's listing. PriceCents is the current unit price in cents;
// Quantity is the units still available for sale.
type Crop struct {
	ID         int64     `db:"id" json:"id"`
	Name       string    `db:"crop_name" json:"crop_name"`
	Quantity   int       `db:"quantity" json:"quantity"`
	Location   string    `db:"location" json:"location"`
	PriceCents int64     `db:"price_cents" json:"price_cents"`
	ImageURL   string    `db:"image_url" json:"image_url"`
	FarmerID   int64     `db:"farmer_id" json:"farmer_id"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// CropListing is a catalog row decorated with its rating aggregate
type CropListing struct {
	Crop
	AvgRating   float64 `db:"avg_rating" json:"avg_rating"`
	RatingCount int     `db:"rating_count" json:"rating_count"`
}

// CartItem is one row of a user's cart
type CartItem struct {
	ID        int64     `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	CropID    int64     `db:"crop_id" json:"crop_id"`
	Quantity  int       `db:"quantity" json:"quantity"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// CartEntry is a cart row joined with its crop for display
type CartEntry struct {
	ID         int64  `db:"id" json:"id"`
	CropName   string `db:"crop_name" json:"crop_name"`
	PriceCents int64  `db:"price_cents" json:"price_cents"`
	Quantity   int    `db:"quantity" json:"quantity"`
	ImageURL   string `db:"image_url" json:"image_url"`
}

// Order is a committed purchase. Immutable once written.
type Order struct {
	ID         int64     `db:"id" json:"id"`
	UserID     int64     `db:"user_id" json:"user_id"`
	TotalCents int64     `db:"total_cents" json:"total_cents"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// OrderItem is one line of an order. PriceCents is the unit price frozen at
// checkout time; it is never re-derived from the catalog.
type OrderItem struct {
	ID         int64 `db:"id" json:"id"`
	OrderID    int64 `db:"order_id" json:"order_id"`
	CropID     int64 `db:"crop_id" json:"crop_id"`
	Quantity   int   `db:"quantity" json:"quantity"`
	PriceCents int64 `db:"price_cents" json:"price_cents"`
}

// OrderItemDetail is an order line joined with its crop name for history views
type OrderItemDetail struct {
	OrderID    int64  `db:"order_id" json:"-"`
	CropID     int64  `db:"crop_id" json:"crop_id"`
	CropName   string `db:"crop_name" json:"crop_name"`
	Quantity   int    `db:"quantity" json:"quantity"`
	PriceCents int64  `db:"price_cents" json:"price_cents"`
}

// OrderHistory groups an order with its lines for the buyer view
type OrderHistory struct {
	ID         int64             `json:"id"`
	TotalCents int64             `json:"total_cents"`
	CreatedAt  time.Time         `json:"created_at"`
	Items      []OrderItemDetail `json:"items"`
}

// FarmerSale is one sold line across a farmer's crops, with buyer details
type FarmerSale struct {
	OrderID         int64     `db:"order_id" json:"order_id"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	OrderTotalCents int64     `db:"order_total_cents" json:"order_total_cents"`
	BuyerName       string    `db:"buyer_name" json:"buyer_name"`
	BuyerEmail      string    `db:"buyer_email" json:"buyer_email"`
	CropID          int64     `db:"crop_id" json:"crop_id"`
	CropName        string    `db:"crop_name" json:"crop_name"`
	Quantity        int       `db:"quantity" json:"quantity"`
	PriceCents      int64     `db:"price_cents" json:"price_cents"`
	SubtotalCents   int64     `db:"subtotal_cents" json:"subtotal_cents"`
}

// CropRating is a single user's 1-5 rating of a crop, unique per (user, crop)
type CropRating struct {
	ID        int64      `db:"id" json:"id"`
	UserID    int64      `db:"user_id" json:"user_id"`
	CropID    int64      `db:"crop_id" json:"crop_id"`
	Rating    int        `db:"rating" json:"rating"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt *time.Time `db:"updated_at" json:"updated_at,omitempty"`
}

// RatingAggregate is the average and count for one crop
type RatingAggregate struct {
	AvgRating   float64 `db:"avg_rating" json:"avg_rating"`
	RatingCount int     `db:"rating_count" json:"rating_count"`
}

// CropStock is the quantity/price pair read under a row lock during checkout
type CropStock struct {
	Quantity   int   `db:"quantity"`
	PriceCents int64 `db:"price_cents"`
}
