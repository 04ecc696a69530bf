package models

import "time"

// Event types
const (
	EventTypeVariantsCreated = "VARIANTS_CREATED"
	EventTypeOrderPlaced     = "ORDER_PLACED"
	EventTypeOrderCancelled  = "ORDER_CANCELLED"
	EventTypeStockMoved      = "STOCK_MOVED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// VariantsCreatedEvent published after a bulk variant save
type VariantsCreatedEvent struct {
	BaseEvent
	ProductID  int64   `json:"product_id"`
	VariantIDs []int64 `json:"variant_ids"`
}

// OrderPlacedEvent published when checkout succeeds
type OrderPlacedEvent struct {
	BaseEvent
	OrderID       int64           `json:"order_id"`
	UserID        int64           `json:"user_id"`
	PaymentTypeID int             `json:"payment_type_id"`
	TotalAmount   int64           `json:"total_amount"`
	CODAmount     int64           `json:"cod_amount"`
	Items         []OrderItemData `json:"items"`
}

// OrderCancelledEvent published when an order is cancelled; stock is returned
type OrderCancelledEvent struct {
	BaseEvent
	OrderID int64           `json:"order_id"`
	Reason  string          `json:"reason"`
	Items   []OrderItemData `json:"items"`
}

// StockMovedEvent published for every stock-in / stock-out
type StockMovedEvent struct {
	BaseEvent
	VariantID int64  `json:"variant_id"`
	Direction string `json:"direction"`
	Quantity  int    `json:"quantity"`
	Available int    `json:"available"`
}

// OrderItemData represents item data in events
type OrderItemData struct {
	VariantID int64 `json:"variant_id"`
	Quantity  int   `json:"quantity"`
	UnitPrice int64 `json:"unit_price"`
}
