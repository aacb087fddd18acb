package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"farm-market/internal/models"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

type Store struct {
	db *sqlx.DB
}

// NewStore creates a new database store
func NewStore(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database is reachable (health endpoint)
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// CreateCrop inserts a new crop listing and fills in its generated id
func (s *Store) CreateCrop(ctx context.Context, crop *models.Crop) error {
	query := `
		INSERT INTO crops (crop_name, quantity, location, price_cents, image_url, farmer_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	return s.db.GetContext(ctx, crop, query,
		crop.Name, crop.Quantity, crop.Location, crop.PriceCents, crop.ImageURL, crop.FarmerID)
}

// GetCropByID retrieves a crop by ID, or (nil, nil) when it does not exist
func (s *Store) GetCropByID(ctx context.Context, id int64) (*models.Crop, error) {
	var crop models.Crop
	err := s.db.GetContext(ctx, &crop, "SELECT * FROM crops WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &crop, nil
}

// CropFilter narrows and orders the catalog listing query
type CropFilter struct {
	Query    string
	MinPrice *int64
	MaxPrice *int64
	FarmerID *int64
	Sort     string
}

// SearchCrops retrieves catalog listings with rating aggregates, filtered and sorted
func (s *Store) SearchCrops(ctx context.Context, filter CropFilter) ([]models.CropListing, error) {
	where := make([]string, 0, 4)
	args := make([]interface{}, 0, 5)

	if q := strings.TrimSpace(filter.Query); q != "" {
		args = append(args, "%"+q+"%")
		where = append(where, fmt.Sprintf("(c.crop_name ILIKE $%d OR c.location ILIKE $%d)", len(args), len(args)))
	}
	if filter.MinPrice != nil {
		args = append(args, *filter.MinPrice)
		where = append(where, fmt.Sprintf("c.price_cents >= $%d", len(args)))
	}
	if filter.MaxPrice != nil {
		args = append(args, *filter.MaxPrice)
		where = append(where, fmt.Sprintf("c.price_cents <= $%d", len(args)))
	}
	if filter.FarmerID != nil {
		args = append(args, *filter.FarmerID)
		where = append(where, fmt.Sprintf("c.farmer_id = $%d", len(args)))
	}

	orderBy := "c.id DESC"
	switch filter.Sort {
	case "price_asc":
		orderBy = "c.price_cents ASC"
	case "price_desc":
		orderBy = "c.price_cents DESC"
	case "name_asc":
		orderBy = "c.crop_name ASC"
	case "rating_desc":
		orderBy = "COALESCE(r.avg_rating, 0) DESC, COALESCE(r.rating_count, 0) DESC"
	}

	query := `
		SELECT c.id, c.crop_name, c.quantity, c.location, c.price_cents, c.image_url,
		       c.farmer_id, c.created_at,
		       COALESCE(r.avg_rating, 0) AS avg_rating,
		       COALESCE(r.rating_count, 0) AS rating_count
		FROM crops c
		LEFT JOIN (
			SELECT crop_id, AVG(rating) AS avg_rating, COUNT(*) AS rating_count
			FROM crop_ratings
			GROUP BY crop_id
		) r ON r.crop_id = c.id`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY " + orderBy

	crops := []models.CropListing{}
	err := s.db.SelectContext(ctx, &crops, query, args...)
	return crops, err
}

// CropUpdate carries the optional fields of a partial crop update
type CropUpdate struct {
	Name       *string
	PriceCents *int64
	Quantity   *int
	Location   *string
}

// UpdateCrop applies a partial update, guarded by the owning farmer.
// Returns false when no row matched (missing crop or wrong owner).
func (s *Store) UpdateCrop(ctx context.Context, cropID, farmerID int64, upd CropUpdate) (bool, error) {
	sets := make([]string, 0, 4)
	args := make([]interface{}, 0, 6)

	if upd.Name != nil {
		args = append(args, *upd.Name)
		sets = append(sets, fmt.Sprintf("crop_name = $%d", len(args)))
	}
	if upd.PriceCents != nil {
		args = append(args, *upd.PriceCents)
		sets = append(sets, fmt.Sprintf("price_cents = $%d", len(args)))
	}
	if upd.Quantity != nil {
		args = append(args, *upd.Quantity)
		sets = append(sets, fmt.Sprintf("quantity = $%d", len(args)))
	}
	if upd.Location != nil {
		args = append(args, *upd.Location)
		sets = append(sets, fmt.Sprintf("location = $%d", len(args)))
	}
	if len(sets) == 0 {
		return false, fmt.Errorf("no fields to update")
	}

	args = append(args, cropID)
	idPos := len(args)
	args = append(args, farmerID)
	farmerPos := len(args)

	query := fmt.Sprintf("UPDATE crops SET %s WHERE id = $%d AND farmer_id = $%d",
		strings.Join(sets, ", "), idPos, farmerPos)

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// DeleteCrop removes a crop, guarded by the owning farmer.
// Returns false when no row matched.
func (s *Store) DeleteCrop(ctx context.Context, cropID, farmerID int64) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM crops WHERE id = $1 AND farmer_id = $2", cropID, farmerID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// GetLowStockCrops lists crops whose available quantity dropped below threshold
func (s *Store) GetLowStockCrops(ctx context.Context, threshold int) ([]models.Crop, error) {
	var crops []models.Crop
	err := s.db.SelectContext(ctx, &crops,
		"SELECT * FROM crops WHERE quantity < $1 ORDER BY quantity ASC", threshold)
	return crops, err
}
