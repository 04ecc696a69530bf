package worker

import (
	"context"
	"log"

	"storefront-service/internal/broker"
	"storefront-service/internal/models"
)

// OrderStockHandler reacts to order lifecycle events with stock movements
type OrderStockHandler interface {
	HandleOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error
	HandleOrderCancelled(ctx context.Context, event *models.OrderCancelledEvent) error
}

// InventoryWorker keeps stock in line with placed and cancelled orders
type InventoryWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
}

// NewInventoryWorker creates a new inventory worker
func NewInventoryWorker(consumer *broker.Consumer, inventory OrderStockHandler) *InventoryWorker {
	return &InventoryWorker{
		consumer:     consumer,
		eventHandler: NewEventHandler(inventory),
	}
}

// NewEventHandler routes order events to inventory
func NewEventHandler(inventory OrderStockHandler) *broker.EventHandler {
	eventHandler := broker.NewEventHandler()
	eventHandler.OnOrderPlaced(inventory.HandleOrderPlaced)
	eventHandler.OnOrderCancelled(inventory.HandleOrderCancelled)
	return eventHandler
}

// Start starts the worker
func (w *InventoryWorker) Start(ctx context.Context) error {
	log.Println("Starting inventory worker...")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *InventoryWorker) Stop() error {
	log.Println("Stopping inventory worker...")
	return w.consumer.Close()
}
