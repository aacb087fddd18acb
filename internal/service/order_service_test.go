package service

import (
	"testing"
	"time"

	"farm-market/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildOrderHistory(t *testing.T) {
	now := time.Now()
	orders := []models.Order{
		{ID: 10, UserID: 1, TotalCents: 1000, CreatedAt: now},
		{ID: 9, UserID: 1, TotalCents: 250, CreatedAt: now.Add(-time.Hour)},
	}
	items := []models.OrderItemDetail{
		{OrderID: 9, CropID: 3, CropName: "Kale", Quantity: 1, PriceCents: 250},
		{OrderID: 10, CropID: 1, CropName: "Tomatoes", Quantity: 2, PriceCents: 300},
		{OrderID: 10, CropID: 2, CropName: "Corn", Quantity: 4, PriceCents: 100},
	}

	history := buildOrderHistory(orders, items)
	require.Len(t, history, 2)

	// Order of the orders slice (newest first) is preserved.
	assert.Equal(t, int64(10), history[0].ID)
	assert.Equal(t, int64(9), history[1].ID)

	require.Len(t, history[0].Items, 2)
	assert.Equal(t, "Tomatoes", history[0].Items[0].CropName)
	assert.Equal(t, "Corn", history[0].Items[1].CropName)

	require.Len(t, history[1].Items, 1)
	assert.Equal(t, int64(250), history[1].Items[0].PriceCents)
}

func TestBuildOrderHistoryNoItems(t *testing.T) {
	orders := []models.Order{{ID: 5, UserID: 1, TotalCents: 0}}

	history := buildOrderHistory(orders, nil)
	require.Len(t, history, 1)
	assert.NotNil(t, history[0].Items)
	assert.Empty(t, history[0].Items)
}

func TestGetFarmerSalesIntegration(t *testing.T) {
	t.Skip("Integration test - requires database")
}
