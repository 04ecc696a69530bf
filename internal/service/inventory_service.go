package service

import (
	"context"
	"errors"
	"fmt"

	"storefront-service/internal/apperr"
	"storefront-service/internal/broker"
	"storefront-service/internal/models"
	"storefront-service/internal/redisclient"
	"storefront-service/internal/store"
	"storefront-service/internal/util"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const defaultMovementLimit = 50

// InventoryService moves variant stock. Postgres holds the stock of record;
// the Redis counters mirror it and reject stock-outs early.
type InventoryService struct {
	store     InventoryStore
	counters  StockCounters
	publisher Publisher
	logger    *zap.Logger
}

// NewInventoryService creates a new inventory service
func NewInventoryService(store InventoryStore, counters StockCounters, publisher Publisher) *InventoryService {
	return &InventoryService{
		store:     store,
		counters:  counters,
		publisher: publisher,
		logger:    util.GetLogger(),
	}
}

// StockRequest is a manual stock-in or stock-out
type StockRequest struct {
	Quantity int    `json:"quantity" binding:"required,min=1"`
	Note     string `json:"note" binding:"max=255"`
}

// StockResult is the recorded movement and the stock left afterwards
type StockResult struct {
	Movement  *models.StockMovement `json:"movement"`
	Available int                   `json:"available"`
}

// StockIn adds stock to a variant
func (s *InventoryService) StockIn(ctx context.Context, variantID int64, req *StockRequest) (*StockResult, error) {
	return s.Move(ctx, &models.StockMovement{
		VariantID: variantID,
		Direction: models.StockIn,
		Quantity:  req.Quantity,
		Note:      req.Note,
	})
}

// StockOut removes stock from a variant
func (s *InventoryService) StockOut(ctx context.Context, variantID int64, req *StockRequest) (*StockResult, error) {
	return s.Move(ctx, &models.StockMovement{
		VariantID: variantID,
		Direction: models.StockOut,
		Quantity:  req.Quantity,
		Note:      req.Note,
	})
}

// Move applies m and records it
func (s *InventoryService) Move(ctx context.Context, m *models.StockMovement) (*StockResult, error) {
	ctx, span := util.StartSpan(ctx, "InventoryService.Move")
	defer span.End()

	if m.Quantity <= 0 {
		return nil, apperr.InvalidErr("Validation failed", map[string]string{"quantity": "must be at least 1"})
	}
	if m.Direction != models.StockIn && m.Direction != models.StockOut {
		return nil, apperr.InvalidErr("Validation failed", map[string]string{"direction": "must be IN or OUT"})
	}

	reserved := false
	if m.Direction == models.StockOut {
		_, err := s.counters.StockOut(ctx, m.VariantID, m.Quantity)
		switch {
		case err == nil:
			reserved = true
		case errors.Is(err, redisclient.ErrInsufficientStock):
			util.StockMovementFailedTotal.WithLabelValues("insufficient_stock").Inc()
			return nil, apperr.InvalidWrap(store.ErrInsufficientStock)
		default:
			s.logger.Warn("Stock counter unavailable, using database only",
				zap.Int64("variant_id", m.VariantID),
				zap.Error(err))
		}
	}

	left, err := s.store.MoveStockTx(ctx, m)
	if err != nil {
		if reserved {
			if _, cerr := s.counters.StockIn(ctx, m.VariantID, m.Quantity); cerr != nil {
				s.logger.Error("Failed to compensate stock counter",
					zap.Int64("variant_id", m.VariantID),
					zap.Error(cerr))
			}
		}
		switch {
		case errors.Is(err, store.ErrInsufficientStock):
			util.StockMovementFailedTotal.WithLabelValues("insufficient_stock").Inc()
			return nil, apperr.InvalidWrap(store.ErrInsufficientStock)
		case errors.Is(err, store.ErrNotFound):
			util.StockMovementFailedTotal.WithLabelValues("not_found").Inc()
			return nil, apperr.NotFoundErr("Variant not found")
		}
		util.StockMovementFailedTotal.WithLabelValues("error").Inc()
		return nil, apperr.Wrap(util.RecordError(span, err))
	}

	if err := s.counters.InitInventory(ctx, m.VariantID, left); err != nil {
		s.logger.Error("Failed to sync stock counter",
			zap.Int64("variant_id", m.VariantID),
			zap.Error(err))
	}

	util.StockMovementsTotal.WithLabelValues(m.Direction).Inc()
	s.logger.Info("Stock moved",
		zap.Int64("variant_id", m.VariantID),
		zap.String("direction", m.Direction),
		zap.Int("quantity", m.Quantity),
		zap.Int("available", left))

	event := &models.StockMovedEvent{
		BaseEvent: broker.NewBaseEvent(models.EventTypeStockMoved),
		VariantID: m.VariantID,
		Direction: m.Direction,
		Quantity:  m.Quantity,
		Available: left,
	}
	if err := s.publisher.PublishStockMoved(ctx, event); err != nil {
		s.logger.Error("Failed to publish StockMoved event", zap.Error(err))
	}

	return &StockResult{Movement: m, Available: left}, nil
}

// Available returns a variant's stock, from the counter when it is seeded
func (s *InventoryService) Available(ctx context.Context, variantID int64) (int, error) {
	available, err := s.counters.GetAvailable(ctx, variantID)
	if err == nil {
		return available, nil
	}

	v, err := s.store.GetVariant(ctx, variantID)
	if err != nil {
		return 0, notFound(err, "Variant not found")
	}
	if err := s.counters.InitInventory(ctx, variantID, v.Stock); err != nil {
		s.logger.Warn("Failed to seed stock counter", zap.Int64("variant_id", variantID), zap.Error(err))
	}
	return v.Stock, nil
}

// Movements returns the latest movements of a variant
func (s *InventoryService) Movements(ctx context.Context, variantID int64, limit int) ([]models.StockMovement, error) {
	if limit <= 0 || limit > maxPageSize {
		limit = defaultMovementLimit
	}
	movements, err := s.store.ListStockMovements(ctx, variantID, limit)
	if err != nil {
		return nil, apperr.Wrap(err)
	}
	return movements, nil
}

func (s *InventoryService) alreadyProcessed(ctx context.Context, eventID string) (bool, error) {
	processed, err := s.store.IsEventProcessed(ctx, eventID)
	if err != nil {
		return false, fmt.Errorf("failed to check event processed: %w", err)
	}
	if processed {
		s.logger.Info("Event already processed", zap.String("event_id", eventID))
	}
	return processed, nil
}

func movedVariants(movements []models.StockMovement) map[int64]bool {
	moved := make(map[int64]bool, len(movements))
	for _, m := range movements {
		moved[m.VariantID] = true
	}
	return moved
}

// HandleOrderPlaced takes the ordered quantities out of stock. Lines that
// were already taken out for the order are skipped, so redelivery is safe.
// A line that cannot be covered is logged and left for manual follow-up.
func (s *InventoryService) HandleOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error {
	ctx, span := util.StartSpan(ctx, "InventoryService.HandleOrderPlaced")
	defer span.End()

	if processed, err := s.alreadyProcessed(ctx, event.EventID); err != nil || processed {
		return err
	}

	done, err := s.store.ListOrderStockMovements(ctx, event.OrderID, models.StockOut)
	if err != nil {
		return fmt.Errorf("failed to load order stock movements: %w", err)
	}
	moved := movedVariants(done)

	orderID := event.OrderID
	for _, item := range event.Items {
		if moved[item.VariantID] {
			continue
		}
		_, err := s.Move(ctx, &models.StockMovement{
			VariantID: item.VariantID,
			Direction: models.StockOut,
			Quantity:  item.Quantity,
			Note:      fmt.Sprintf("order #%d placed", orderID),
			OrderID:   &orderID,
		})
		if err != nil {
			if apperr.IsKind(err, apperr.Invalid) || apperr.IsKind(err, apperr.NotFound) {
				s.logger.Error("Order line could not be taken out of stock",
					zap.Int64("order_id", orderID),
					zap.Int64("variant_id", item.VariantID),
					zap.Int("quantity", item.Quantity),
					zap.Error(err))
				continue
			}
			return util.RecordError(span, err)
		}
	}

	if err := s.store.MarkEventProcessed(ctx, event.EventID, event.EventType); err != nil {
		s.logger.Error("Failed to mark event processed", zap.Error(err))
	}
	return nil
}

// HandleOrderCancelled returns to stock what was taken out for the order
func (s *InventoryService) HandleOrderCancelled(ctx context.Context, event *models.OrderCancelledEvent) error {
	ctx, span := util.StartSpan(ctx, "InventoryService.HandleOrderCancelled")
	defer span.End()

	if processed, err := s.alreadyProcessed(ctx, event.EventID); err != nil || processed {
		return err
	}

	outs, err := s.store.ListOrderStockMovements(ctx, event.OrderID, models.StockOut)
	if err != nil {
		return fmt.Errorf("failed to load order stock movements: %w", err)
	}
	ins, err := s.store.ListOrderStockMovements(ctx, event.OrderID, models.StockIn)
	if err != nil {
		return fmt.Errorf("failed to load order stock movements: %w", err)
	}
	restored := movedVariants(ins)

	orderID := event.OrderID
	for _, out := range outs {
		if restored[out.VariantID] {
			continue
		}
		_, err := s.Move(ctx, &models.StockMovement{
			VariantID: out.VariantID,
			Direction: models.StockIn,
			Quantity:  out.Quantity,
			Note:      fmt.Sprintf("order #%d cancelled", orderID),
			OrderID:   &orderID,
		})
		if err != nil {
			return util.RecordError(span, err)
		}
	}

	if err := s.store.MarkEventProcessed(ctx, event.EventID, event.EventType); err != nil {
		s.logger.Error("Failed to mark event processed", zap.Error(err))
	}

	s.logger.Info("Stock returned for cancelled order",
		zap.Int64("order_id", orderID),
		zap.Int("lines", len(outs)-len(restored)))
	return nil
}

// SyncInventoryToRedis seeds every variant's counter from the database
func (s *InventoryService) SyncInventoryToRedis(ctx context.Context) error {
	s.logger.Info("Starting inventory sync to Redis")

	stock, err := s.store.GetAllVariantStock(ctx)
	if err != nil {
		return fmt.Errorf("failed to get variant stock: %w", err)
	}

	var errs error
	for variantID, available := range stock {
		if err := s.counters.InitInventory(ctx, variantID, available); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("variant %d: %w", variantID, err))
		}
	}

	s.logger.Info("Inventory sync completed",
		zap.Int("count", len(stock)),
		zap.Int("failed", len(multierr.Errors(errs))))
	return errs
}
