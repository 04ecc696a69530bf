package service

import (
	"context"
	"errors"
	"testing"

	"storefront-service/internal/apperr"
	"storefront-service/internal/broker"
	"storefront-service/internal/models"
	"storefront-service/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

type inventoryFixture struct {
	svc       *InventoryService
	store     *fakeInventoryStore
	counters  *fakeCounters
	publisher *fakePublisher
}

func newInventoryFixture(stock map[int64]int) *inventoryFixture {
	f := &inventoryFixture{
		store:     newFakeInventoryStore(stock),
		counters:  newFakeCounters(),
		publisher: &fakePublisher{},
	}
	f.svc = NewInventoryService(f.store, f.counters, f.publisher)
	for id, n := range stock {
		f.counters.stock[id] = n
	}
	return f
}

func TestStockIn(t *testing.T) {
	f := newInventoryFixture(map[int64]int{1: 5})

	result, err := f.svc.StockIn(context.Background(), 1, &StockRequest{Quantity: 3, Note: "restock"})

	require.NoError(t, err)
	assert.Equal(t, 8, result.Available)
	assert.Equal(t, models.StockIn, result.Movement.Direction)
	assert.Equal(t, 8, f.counters.stock[1])
	require.Len(t, f.publisher.moved, 1)
	assert.Equal(t, 8, f.publisher.moved[0].Available)
}

func TestStockOutRejectedByCounter(t *testing.T) {
	f := newInventoryFixture(map[int64]int{1: 2})

	_, err := f.svc.StockOut(context.Background(), 1, &StockRequest{Quantity: 3})

	assert.True(t, apperr.IsKind(err, apperr.Invalid))
	assert.ErrorIs(t, err, store.ErrInsufficientStock)
	assert.Empty(t, f.store.movements)
}

func TestStockOutCompensatesCounterOnFailure(t *testing.T) {
	f := newInventoryFixture(map[int64]int{1: 5})
	f.store.failMove = errors.New("deadlock detected")

	_, err := f.svc.StockOut(context.Background(), 1, &StockRequest{Quantity: 2})

	assert.True(t, apperr.IsKind(err, apperr.Internal))
	assert.Equal(t, 5, f.counters.stock[1])
}

func TestStockOutWithoutCounterUsesDatabase(t *testing.T) {
	f := newInventoryFixture(map[int64]int{1: 5})
	delete(f.counters.stock, 1)

	result, err := f.svc.StockOut(context.Background(), 1, &StockRequest{Quantity: 2})

	require.NoError(t, err)
	assert.Equal(t, 3, result.Available)
	assert.Equal(t, 3, f.counters.stock[1])
}

func TestStockOutCounterBehindDatabase(t *testing.T) {
	f := newInventoryFixture(map[int64]int{1: 1})
	f.counters.stock[1] = 10

	_, err := f.svc.StockOut(context.Background(), 1, &StockRequest{Quantity: 4})

	assert.ErrorIs(t, err, store.ErrInsufficientStock)
	assert.Equal(t, 10, f.counters.stock[1])
	assert.Equal(t, 1, f.store.stock[1])
}

func TestStockUnknownVariant(t *testing.T) {
	f := newInventoryFixture(map[int64]int{})

	_, err := f.svc.StockIn(context.Background(), 9, &StockRequest{Quantity: 1})

	assert.True(t, apperr.IsKind(err, apperr.NotFound))
}

func TestMoveRejectsBadInput(t *testing.T) {
	f := newInventoryFixture(map[int64]int{1: 1})

	_, err := f.svc.Move(context.Background(), &models.StockMovement{VariantID: 1, Direction: models.StockIn})
	assert.True(t, apperr.IsKind(err, apperr.Invalid))

	_, err = f.svc.Move(context.Background(), &models.StockMovement{VariantID: 1, Direction: "SIDEWAYS", Quantity: 1})
	assert.True(t, apperr.IsKind(err, apperr.Invalid))
}

func TestAvailableReseedsCounter(t *testing.T) {
	f := newInventoryFixture(map[int64]int{1: 7})
	delete(f.counters.stock, 1)

	available, err := f.svc.Available(context.Background(), 1)

	require.NoError(t, err)
	assert.Equal(t, 7, available)
	assert.Equal(t, 7, f.counters.stock[1])
}

func orderPlaced(orderID int64, items ...models.OrderItemData) *models.OrderPlacedEvent {
	return &models.OrderPlacedEvent{
		BaseEvent: broker.NewBaseEvent(models.EventTypeOrderPlaced),
		OrderID:   orderID,
		Items:     items,
	}
}

func TestHandleOrderPlaced(t *testing.T) {
	ctx := context.Background()
	f := newInventoryFixture(map[int64]int{1: 5, 2: 1})
	event := orderPlaced(100,
		models.OrderItemData{VariantID: 1, Quantity: 2},
		models.OrderItemData{VariantID: 2, Quantity: 3},
	)

	require.NoError(t, f.svc.HandleOrderPlaced(ctx, event))

	assert.Equal(t, 3, f.store.stock[1])
	assert.Equal(t, 1, f.store.stock[2])
	assert.True(t, f.store.processed[event.EventID])

	require.NoError(t, f.svc.HandleOrderPlaced(ctx, event))
	assert.Equal(t, 3, f.store.stock[1])
}

func TestHandleOrderPlacedRedeliveryAfterPartialFailure(t *testing.T) {
	ctx := context.Background()
	f := newInventoryFixture(map[int64]int{1: 5})
	orderID := int64(100)
	_, err := f.store.MoveStockTx(ctx, &models.StockMovement{VariantID: 1, Direction: models.StockOut, Quantity: 2, OrderID: &orderID})
	require.NoError(t, err)

	require.NoError(t, f.svc.HandleOrderPlaced(ctx, orderPlaced(orderID, models.OrderItemData{VariantID: 1, Quantity: 2})))

	assert.Equal(t, 3, f.store.stock[1])
	assert.Len(t, f.store.movements, 1)
}

func TestHandleOrderCancelledRestoresWhatLeft(t *testing.T) {
	ctx := context.Background()
	f := newInventoryFixture(map[int64]int{1: 5, 2: 0})
	require.NoError(t, f.svc.HandleOrderPlaced(ctx, orderPlaced(100,
		models.OrderItemData{VariantID: 1, Quantity: 2},
		models.OrderItemData{VariantID: 2, Quantity: 1},
	)))
	require.Equal(t, 3, f.store.stock[1])

	cancelled := &models.OrderCancelledEvent{
		BaseEvent: broker.NewBaseEvent(models.EventTypeOrderCancelled),
		OrderID:   100,
		Items: []models.OrderItemData{
			{VariantID: 1, Quantity: 2},
			{VariantID: 2, Quantity: 1},
		},
	}
	require.NoError(t, f.svc.HandleOrderCancelled(ctx, cancelled))

	assert.Equal(t, 5, f.store.stock[1])
	assert.Equal(t, 0, f.store.stock[2])

	cancelled.EventID = "redelivered-under-new-id"
	require.NoError(t, f.svc.HandleOrderCancelled(ctx, cancelled))
	assert.Equal(t, 5, f.store.stock[1])
}

func TestSyncInventoryToRedis(t *testing.T) {
	f := newInventoryFixture(map[int64]int{1: 5, 2: 9})
	f.counters.stock = make(map[int64]int)

	require.NoError(t, f.svc.SyncInventoryToRedis(context.Background()))
	assert.Equal(t, map[int64]int{1: 5, 2: 9}, f.counters.stock)
}

func TestSyncInventoryToRedisCollectsErrors(t *testing.T) {
	f := newInventoryFixture(map[int64]int{1: 5, 2: 9})
	f.counters.down = errors.New("connection refused")

	err := f.svc.SyncInventoryToRedis(context.Background())

	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 2)
}
