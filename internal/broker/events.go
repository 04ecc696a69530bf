package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"storefront-service/internal/models"
	"storefront-service/internal/util"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// NewBaseEvent stamps a fresh event envelope
func NewBaseEvent(eventType string) models.BaseEvent {
	return models.BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: time.Now().UTC(),
	}
}

// EventPublisher handles publishing domain events
type EventPublisher struct {
	producer     *Producer
	orderTopic   string
	catalogTopic string
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer, orderTopic, catalogTopic string) *EventPublisher {
	return &EventPublisher{producer: producer, orderTopic: orderTopic, catalogTopic: catalogTopic}
}

// PublishVariantsCreated publishes VariantsCreated event
func (ep *EventPublisher) PublishVariantsCreated(ctx context.Context, event *models.VariantsCreatedEvent) error {
	key := fmt.Sprintf("product-%d", event.ProductID)
	return ep.producer.PublishEvent(ctx, ep.catalogTopic, key, event.EventType, event)
}

// PublishStockMoved publishes StockMoved event
func (ep *EventPublisher) PublishStockMoved(ctx context.Context, event *models.StockMovedEvent) error {
	key := fmt.Sprintf("variant-%d", event.VariantID)
	return ep.producer.PublishEvent(ctx, ep.catalogTopic, key, event.EventType, event)
}

// PublishOrderPlaced publishes OrderPlaced event
func (ep *EventPublisher) PublishOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error {
	key := fmt.Sprintf("order-%d", event.OrderID)
	return ep.producer.PublishEvent(ctx, ep.orderTopic, key, event.EventType, event)
}

// PublishOrderCancelled publishes OrderCancelled event
func (ep *EventPublisher) PublishOrderCancelled(ctx context.Context, event *models.OrderCancelledEvent) error {
	key := fmt.Sprintf("order-%d", event.OrderID)
	return ep.producer.PublishEvent(ctx, ep.orderTopic, key, event.EventType, event)
}

// EventHandler handles incoming events
type EventHandler struct {
	onOrderPlaced    func(context.Context, *models.OrderPlacedEvent) error
	onOrderCancelled func(context.Context, *models.OrderCancelledEvent) error
	logger           *zap.Logger
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{logger: util.GetLogger()}
}

// OnOrderPlaced registers a handler for OrderPlaced events
func (eh *EventHandler) OnOrderPlaced(handler func(context.Context, *models.OrderPlacedEvent) error) {
	eh.onOrderPlaced = handler
}

// OnOrderCancelled registers a handler for OrderCancelled events
func (eh *EventHandler) OnOrderCancelled(handler func(context.Context, *models.OrderCancelledEvent) error) {
	eh.onOrderCancelled = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	eventType := EventType(msg)
	if eventType == "" {
		var base models.BaseEvent
		if err := json.Unmarshal(msg.Value, &base); err != nil {
			return fmt.Errorf("failed to unmarshal base event: %w", err)
		}
		eventType = base.EventType
	}

	eh.logger.Debug("Handling event", zap.String("event_type", eventType))

	switch eventType {
	case models.EventTypeOrderPlaced:
		if eh.onOrderPlaced != nil {
			var event models.OrderPlacedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal OrderPlaced event: %w", err)
			}
			return eh.onOrderPlaced(ctx, &event)
		}

	case models.EventTypeOrderCancelled:
		if eh.onOrderCancelled != nil {
			var event models.OrderCancelledEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal OrderCancelled event: %w", err)
			}
			return eh.onOrderCancelled(ctx, &event)
		}

	default:
		eh.logger.Debug("Unhandled event type", zap.String("event_type", eventType))
	}

	return nil
}
