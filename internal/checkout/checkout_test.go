package checkout

import (
	"context"
	"errors"
	"sync"
	"testing"

	"farm-market/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore emulates the relational store. Each crop carries its own mutex,
// acquired by LockCrop and released on Commit or Rollback, which reproduces
// FOR UPDATE serialization. Writes stay pending inside the transaction and
// apply only at Commit.
type fakeStore struct {
	mu          sync.Mutex
	crops       map[int64]*fakeCrop
	orders      map[int64]*fakeOrder
	nextOrderID int64

	begins    int
	beginErr  error
	lockErr   error
	decErr    error
	orderErr  error
	itemErr   error
	commitErr error

	// afterLock runs once after the first successful LockCrop, outside the
	// transaction's view. Used to mutate the catalog price mid-flight.
	afterLock     func()
	afterLockOnce sync.Once
}

type fakeCrop struct {
	mu         sync.Mutex
	quantity   int
	priceCents int64
}

type fakeOrder struct {
	buyerID    int64
	totalCents int64
	items      []fakeOrderItem
}

type fakeOrderItem struct {
	cropID     int64
	quantity   int
	priceCents int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		crops:  make(map[int64]*fakeCrop),
		orders: make(map[int64]*fakeOrder),
	}
}

func (s *fakeStore) addCrop(id int64, quantity int, priceCents int64) {
	s.crops[id] = &fakeCrop{quantity: quantity, priceCents: priceCents}
}

func (s *fakeStore) BeginCheckout(_ context.Context) (Tx, error) {
	s.mu.Lock()
	s.begins++
	s.mu.Unlock()
	if s.beginErr != nil {
		return nil, s.beginErr
	}
	return &fakeTx{
		store:      s,
		held:       make(map[int64]bool),
		decrements: make(map[int64]int),
	}, nil
}

type fakeTx struct {
	store      *fakeStore
	held       map[int64]bool
	lockOrder  []int64
	decrements map[int64]int
	order      *fakeOrder
	orderID    int64
	done       bool
}

func (t *fakeTx) LockCrop(_ context.Context, cropID int64) (*models.CropStock, error) {
	if t.store.lockErr != nil {
		return nil, t.store.lockErr
	}

	t.store.mu.Lock()
	crop, ok := t.store.crops[cropID]
	t.store.mu.Unlock()
	if !ok {
		return nil, nil
	}

	if !t.held[cropID] {
		crop.mu.Lock()
		t.held[cropID] = true
		t.lockOrder = append(t.lockOrder, cropID)
	}

	stock := &models.CropStock{
		Quantity:   crop.quantity - t.decrements[cropID],
		PriceCents: crop.priceCents,
	}

	if t.store.afterLock != nil {
		t.store.afterLockOnce.Do(t.store.afterLock)
	}
	return stock, nil
}

func (t *fakeTx) DecrementStock(_ context.Context, cropID int64, qty int) error {
	if t.store.decErr != nil {
		return t.store.decErr
	}
	t.decrements[cropID] += qty
	return nil
}

func (t *fakeTx) InsertOrder(_ context.Context, buyerID, totalCents int64) (int64, error) {
	if t.store.orderErr != nil {
		return 0, t.store.orderErr
	}
	t.order = &fakeOrder{buyerID: buyerID, totalCents: totalCents}
	t.store.mu.Lock()
	t.store.nextOrderID++
	t.orderID = t.store.nextOrderID
	t.store.mu.Unlock()
	return t.orderID, nil
}

func (t *fakeTx) InsertOrderItem(_ context.Context, _, cropID int64, qty int, priceCents int64) error {
	if t.store.itemErr != nil {
		return t.store.itemErr
	}
	t.order.items = append(t.order.items, fakeOrderItem{
		cropID:     cropID,
		quantity:   qty,
		priceCents: priceCents,
	})
	return nil
}

func (t *fakeTx) Commit() error {
	if t.store.commitErr != nil {
		return t.store.commitErr
	}

	t.store.mu.Lock()
	for cropID, qty := range t.decrements {
		t.store.crops[cropID].quantity -= qty
	}
	if t.order != nil {
		t.store.orders[t.orderID] = t.order
	}
	t.store.mu.Unlock()

	t.release()
	return nil
}

func (t *fakeTx) Rollback() error {
	t.release()
	return nil
}

func (t *fakeTx) release() {
	if t.done {
		return
	}
	t.done = true
	for _, cropID := range t.lockOrder {
		t.store.crops[cropID].mu.Unlock()
	}
}

type capturedEvents struct {
	mu     sync.Mutex
	placed []*models.OrderPlacedEvent
}

func (c *capturedEvents) PublishOrderPlaced(_ context.Context, event *models.OrderPlacedEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.placed = append(c.placed, event)
	return nil
}

func TestCheckoutSuccess(t *testing.T) {
	store := newFakeStore()
	store.addCrop(1, 10, 250)
	events := &capturedEvents{}
	proc := NewProcessor(store, events)

	result, err := proc.Checkout(context.Background(), 7, []Line{{CropID: 1, Quantity: 4}})
	require.NoError(t, err)

	assert.Equal(t, int64(1), result.OrderID)
	assert.Equal(t, int64(1000), result.TotalCents)
	assert.Equal(t, 6, store.crops[1].quantity)

	order := store.orders[1]
	require.NotNil(t, order)
	assert.Equal(t, int64(7), order.buyerID)
	assert.Equal(t, int64(1000), order.totalCents)
	require.Len(t, order.items, 1)
	assert.Equal(t, fakeOrderItem{cropID: 1, quantity: 4, priceCents: 250}, order.items[0])

	require.Len(t, events.placed, 1)
	assert.Equal(t, int64(1), events.placed[0].OrderID)
	assert.Equal(t, int64(250), events.placed[0].Items[0].PriceCents)
}

func TestCheckoutOrderTotalMatchesLines(t *testing.T) {
	store := newFakeStore()
	store.addCrop(1, 10, 250)
	store.addCrop(2, 10, 199)
	proc := NewProcessor(store, nil)

	result, err := proc.Checkout(context.Background(), 7, []Line{
		{CropID: 1, Quantity: 3},
		{CropID: 2, Quantity: 2},
	})
	require.NoError(t, err)

	order := store.orders[result.OrderID]
	require.NotNil(t, order)

	var sum int64
	for _, item := range order.items {
		sum += item.priceCents * int64(item.quantity)
	}
	assert.Equal(t, order.totalCents, sum)
	assert.Equal(t, int64(3*250+2*199), result.TotalCents)

	// Lines applied and persisted in request order.
	assert.Equal(t, int64(1), order.items[0].cropID)
	assert.Equal(t, int64(2), order.items[1].cropID)
}

func TestCheckoutInsufficientStock(t *testing.T) {
	store := newFakeStore()
	store.addCrop(1, 2, 250)
	proc := NewProcessor(store, nil)

	_, err := proc.Checkout(context.Background(), 7, []Line{{CropID: 1, Quantity: 5}})

	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, int64(1), stockErr.CropID)
	assert.Equal(t, 2, stockErr.Available)
	assert.Equal(t, 5, stockErr.Requested)

	assert.Equal(t, 2, store.crops[1].quantity)
	assert.Empty(t, store.orders)
}

func TestCheckoutRollsBackEarlierLines(t *testing.T) {
	store := newFakeStore()
	store.addCrop(1, 10, 250)
	store.addCrop(2, 3, 100)
	events := &capturedEvents{}
	proc := NewProcessor(store, events)

	_, err := proc.Checkout(context.Background(), 7, []Line{
		{CropID: 1, Quantity: 3},
		{CropID: 2, Quantity: 1000},
	})

	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, int64(2), stockErr.CropID)

	// Line 1 was processed before line 2 failed, but nothing stuck.
	assert.Equal(t, 10, store.crops[1].quantity)
	assert.Equal(t, 3, store.crops[2].quantity)
	assert.Empty(t, store.orders)
	assert.Empty(t, events.placed)
}

func TestCheckoutCropNotFound(t *testing.T) {
	store := newFakeStore()
	store.addCrop(1, 10, 250)
	proc := NewProcessor(store, nil)

	_, err := proc.Checkout(context.Background(), 7, []Line{
		{CropID: 1, Quantity: 1},
		{CropID: 99, Quantity: 1},
	})

	var notFound *CropNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, int64(99), notFound.CropID)
	assert.Equal(t, 10, store.crops[1].quantity)
	assert.Empty(t, store.orders)
}

func TestCheckoutInvalidRequest(t *testing.T) {
	store := newFakeStore()
	store.addCrop(1, 10, 250)
	proc := NewProcessor(store, nil)

	cases := []struct {
		name    string
		buyerID int64
		lines   []Line
	}{
		{"zero buyer", 0, []Line{{CropID: 1, Quantity: 1}}},
		{"negative buyer", -3, []Line{{CropID: 1, Quantity: 1}}},
		{"empty lines", 7, []Line{}},
		{"nil lines", 7, nil},
		{"zero quantity", 7, []Line{{CropID: 1, Quantity: 0}}},
		{"negative quantity", 7, []Line{{CropID: 1, Quantity: -2}}},
		{"zero crop id", 7, []Line{{CropID: 0, Quantity: 1}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := proc.Checkout(context.Background(), tc.buyerID, tc.lines)

			var invalid *InvalidRequestError
			assert.ErrorAs(t, err, &invalid)
		})
	}

	// Precondition failures never touch the store.
	assert.Equal(t, 0, store.begins)
	assert.Equal(t, 10, store.crops[1].quantity)
}

func TestCheckoutPriceFrozenAtLockTime(t *testing.T) {
	store := newFakeStore()
	store.addCrop(1, 10, 250)
	// Catalog price changes right after the lock is taken; the committed
	// line must carry the price observed under the lock.
	store.afterLock = func() {
		store.crops[1].priceCents = 999
	}
	proc := NewProcessor(store, nil)

	result, err := proc.Checkout(context.Background(), 7, []Line{{CropID: 1, Quantity: 4}})
	require.NoError(t, err)

	assert.Equal(t, int64(1000), result.TotalCents)
	order := store.orders[result.OrderID]
	require.Len(t, order.items, 1)
	assert.Equal(t, int64(250), order.items[0].priceCents)
}

func TestCheckoutDuplicateCropLines(t *testing.T) {
	store := newFakeStore()
	store.addCrop(1, 5, 100)
	proc := NewProcessor(store, nil)

	result, err := proc.Checkout(context.Background(), 7, []Line{
		{CropID: 1, Quantity: 2},
		{CropID: 1, Quantity: 3},
	})
	require.NoError(t, err)

	assert.Equal(t, int64(500), result.TotalCents)
	assert.Equal(t, 0, store.crops[1].quantity)
	require.Len(t, store.orders[result.OrderID].items, 2)
}

func TestCheckoutDuplicateCropLinesOversell(t *testing.T) {
	store := newFakeStore()
	store.addCrop(1, 4, 100)
	proc := NewProcessor(store, nil)

	// Second line sees the first line's decrement inside the transaction.
	_, err := proc.Checkout(context.Background(), 7, []Line{
		{CropID: 1, Quantity: 2},
		{CropID: 1, Quantity: 3},
	})

	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 2, stockErr.Available)
	assert.Equal(t, 4, store.crops[1].quantity)
}

func TestCheckoutBeginFailure(t *testing.T) {
	store := newFakeStore()
	store.addCrop(1, 10, 250)
	store.beginErr = errors.New("connection refused")
	proc := NewProcessor(store, nil)

	_, err := proc.Checkout(context.Background(), 7, []Line{{CropID: 1, Quantity: 1}})
	assert.ErrorIs(t, err, ErrTransactionStart)
}

func TestCheckoutCommitFailure(t *testing.T) {
	store := newFakeStore()
	store.addCrop(1, 10, 250)
	store.commitErr = errors.New("connection reset")
	events := &capturedEvents{}
	proc := NewProcessor(store, events)

	_, err := proc.Checkout(context.Background(), 7, []Line{{CropID: 1, Quantity: 4}})
	require.ErrorIs(t, err, ErrCommitFailed)

	assert.Equal(t, 10, store.crops[1].quantity)
	assert.Empty(t, store.orders)
	assert.Empty(t, events.placed)
}

func TestCheckoutStoreErrorWrapsCause(t *testing.T) {
	cause := errors.New("disk on fire")

	store := newFakeStore()
	store.addCrop(1, 10, 250)
	store.lockErr = cause
	proc := NewProcessor(store, nil)

	_, err := proc.Checkout(context.Background(), 7, []Line{{CropID: 1, Quantity: 1}})

	var storeErr *StoreError
	require.ErrorAs(t, err, &storeErr)
	assert.ErrorIs(t, err, cause)
	assert.Empty(t, store.orders)
}

func TestCheckoutConcurrentSerialization(t *testing.T) {
	store := newFakeStore()
	store.addCrop(1, 5, 100)
	proc := NewProcessor(store, nil)

	results := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(buyer int64) {
			defer wg.Done()
			_, err := proc.Checkout(context.Background(), buyer, []Line{{CropID: 1, Quantity: 5}})
			results <- err
		}(int64(i + 1))
	}
	wg.Wait()
	close(results)

	var successes, stockFailures int
	for err := range results {
		if err == nil {
			successes++
			continue
		}
		var stockErr *InsufficientStockError
		require.ErrorAs(t, err, &stockErr)
		assert.Equal(t, 0, stockErr.Available)
		stockFailures++
	}

	// Exactly one winner: the loser observed the post-decrement quantity.
	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, stockFailures)
	assert.Equal(t, 0, store.crops[1].quantity)
	assert.Len(t, store.orders, 1)
}
