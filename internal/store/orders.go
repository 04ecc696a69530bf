package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"storefront-service/internal/models"

	"github.com/jmoiron/sqlx"
)

// CreateOrderTx creates an order with its items and removes the ordered lines
// from the user's cart, all in one transaction
func (s *Store) CreateOrderTx(ctx context.Context, order *models.Order, items []models.OrderItem, cartItemIDs []int64) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO orders (user_id, address_id, voucher_id, payment_type_id, subtotal, discount,
		                    shipping_fee, cod_amount, total_amount, status, note, idempotency_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at, updated_at`

	err = tx.GetContext(ctx, order, query,
		order.UserID, order.AddressID, order.VoucherID, order.PaymentTypeID, order.Subtotal, order.Discount,
		order.ShippingFee, order.CODAmount, order.TotalAmount, order.Status, order.Note, order.IdempotencyKey)
	if err != nil {
		return translate(err, "order")
	}

	for i := range items {
		items[i].OrderID = order.ID
		err := tx.GetContext(ctx, &items[i].ID, `
			INSERT INTO order_items (order_id, variant_id, product_name, sku, quantity, unit_price, line_total)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id`,
			items[i].OrderID, items[i].VariantID, items[i].ProductName, items[i].SKU,
			items[i].Quantity, items[i].UnitPrice, items[i].LineTotal)
		if err != nil {
			return fmt.Errorf("failed to create order item: %w", err)
		}
	}

	if len(cartItemIDs) > 0 {
		q, args, err := sqlx.In("DELETE FROM cart_items WHERE user_id = ? AND id IN (?)", order.UserID, cartItemIDs)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(q), args...); err != nil {
			return fmt.Errorf("failed to clear cart lines: %w", err)
		}
	}

	return tx.Commit()
}

// GetOrderByID retrieves an order by ID
func (s *Store) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, "SELECT * FROM orders WHERE id = $1", id)
	if err != nil {
		return nil, translate(err, fmt.Sprintf("order %d", id))
	}
	return &order, nil
}

// GetOrderByIdempotencyKey retrieves a user's order by idempotency key
func (s *Store) GetOrderByIdempotencyKey(ctx context.Context, userID int64, key string) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order,
		"SELECT * FROM orders WHERE user_id = $1 AND idempotency_key = $2", userID, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// UpdateOrderStatus moves an order from one status to another. It fails with
// ErrNotFound if the order is not currently in from.
func (s *Store) UpdateOrderStatus(ctx context.Context, orderID int64, from, to string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3",
		to, orderID, from)
	if err != nil {
		return err
	}
	return expectRow(res, fmt.Sprintf("order %d in status %s", orderID, from))
}

// GetOrdersByUserID retrieves orders for a user
func (s *Store) GetOrdersByUserID(ctx context.Context, userID int64) ([]models.Order, error) {
	orders := []models.Order{}
	err := s.db.SelectContext(ctx, &orders,
		"SELECT * FROM orders WHERE user_id = $1 ORDER BY created_at DESC", userID)
	return orders, err
}

// GetOrderItemsByOrderID retrieves all items for an order
func (s *Store) GetOrderItemsByOrderID(ctx context.Context, orderID int64) ([]models.OrderItem, error) {
	items := []models.OrderItem{}
	err := s.db.SelectContext(ctx, &items,
		"SELECT * FROM order_items WHERE order_id = $1 ORDER BY id", orderID)
	return items, err
}

// IsEventProcessed checks if an event has been processed
func (s *Store) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM processed_events WHERE event_id = $1)", eventID)
	return exists, err
}

// MarkEventProcessed marks an event as processed
func (s *Store) MarkEventProcessed(ctx context.Context, eventID, eventType string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO processed_events (event_id, event_type) VALUES ($1, $2) ON CONFLICT (event_id) DO NOTHING",
		eventID, eventType)
	return err
}
