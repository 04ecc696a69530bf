package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"storefront-service/internal/models"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

//go:embed migrations/001_init.sql
var schemaSQL string

var (
	// ErrNotFound is returned when a looked-up row does not exist
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned on a unique constraint violation
	ErrDuplicate = errors.New("duplicate")
	// ErrInsufficientStock is returned when a stock-out exceeds the stock on hand
	ErrInsufficientStock = errors.New("insufficient stock")
)

const uniqueViolation = "23505"

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

// Migrate creates the schema if it does not exist
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// Ping checks the database connection
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func translate(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("%s (%s): %w", what, pqErr.Constraint, ErrDuplicate)
	}
	return err
}

// CreateProduct creates a new product
func (s *Store) CreateProduct(ctx context.Context, p *models.Product) error {
	query := `
		INSERT INTO products (name, slug, description, base_price, thumbnail)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`

	err := s.db.GetContext(ctx, p, query, p.Name, p.Slug, p.Description, p.BasePrice, p.Thumbnail)
	return translate(err, "product")
}

// GetProductByID retrieves a product by ID
func (s *Store) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	var product models.Product
	err := s.db.GetContext(ctx, &product, "SELECT * FROM products WHERE id = $1", id)
	if err != nil {
		return nil, translate(err, fmt.Sprintf("product %d", id))
	}
	return &product, nil
}

// ListProducts retrieves a page of products, newest first
func (s *Store) ListProducts(ctx context.Context, limit, offset int) ([]models.Product, error) {
	products := []models.Product{}
	err := s.db.SelectContext(ctx, &products,
		"SELECT * FROM products ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2", limit, offset)
	return products, err
}

// GetVariant retrieves a variant by ID
func (s *Store) GetVariant(ctx context.Context, id int64) (*models.Variant, error) {
	var v models.Variant
	err := s.db.GetContext(ctx, &v, "SELECT * FROM variants WHERE id = $1", id)
	if err != nil {
		return nil, translate(err, fmt.Sprintf("variant %d", id))
	}
	return &v, nil
}

// ListVariantsByProduct retrieves all variants of a product
func (s *Store) ListVariantsByProduct(ctx context.Context, productID int64) ([]models.Variant, error) {
	variants := []models.Variant{}
	err := s.db.SelectContext(ctx, &variants,
		"SELECT * FROM variants WHERE product_id = $1 ORDER BY id", productID)
	return variants, err
}

// GetAllVariantStock retrieves the stock of every variant
func (s *Store) GetAllVariantStock(ctx context.Context) (map[int64]int, error) {
	rows := []struct {
		ID    int64 `db:"id"`
		Stock int   `db:"stock"`
	}{}
	if err := s.db.SelectContext(ctx, &rows, "SELECT id, stock FROM variants"); err != nil {
		return nil, err
	}
	stock := make(map[int64]int, len(rows))
	for _, r := range rows {
		stock[r.ID] = r.Stock
	}
	return stock, nil
}

// MoveStockTx applies a stock-in or stock-out to a variant inside a
// transaction (FOR UPDATE lock) and records the movement. It returns the
// stock left on hand.
func (s *Store) MoveStockTx(ctx context.Context, m *models.StockMovement) (int, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var stock int
	err = tx.GetContext(ctx, &stock,
		"SELECT stock FROM variants WHERE id = $1 FOR UPDATE", m.VariantID)
	if err != nil {
		return 0, translate(err, fmt.Sprintf("variant %d", m.VariantID))
	}

	delta := m.Quantity
	if m.Direction == models.StockOut {
		if stock < m.Quantity {
			return 0, fmt.Errorf("variant %d: available=%d, requested=%d: %w",
				m.VariantID, stock, m.Quantity, ErrInsufficientStock)
		}
		delta = -m.Quantity
	}

	err = tx.GetContext(ctx, &stock,
		"UPDATE variants SET stock = stock + $1, updated_at = NOW() WHERE id = $2 RETURNING stock",
		delta, m.VariantID)
	if err != nil {
		return 0, fmt.Errorf("failed to update stock: %w", err)
	}

	err = tx.GetContext(ctx, m, `
		INSERT INTO stock_movements (variant_id, direction, quantity, note, order_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`,
		m.VariantID, m.Direction, m.Quantity, m.Note, m.OrderID)
	if err != nil {
		return 0, fmt.Errorf("failed to record stock movement: %w", err)
	}

	return stock, tx.Commit()
}

// ListStockMovements retrieves the movements of a variant, newest first
func (s *Store) ListStockMovements(ctx context.Context, variantID int64, limit int) ([]models.StockMovement, error) {
	movements := []models.StockMovement{}
	err := s.db.SelectContext(ctx, &movements,
		"SELECT * FROM stock_movements WHERE variant_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2",
		variantID, limit)
	return movements, err
}

// ListOrderStockMovements retrieves the movements recorded against an order
func (s *Store) ListOrderStockMovements(ctx context.Context, orderID int64, direction string) ([]models.StockMovement, error) {
	movements := []models.StockMovement{}
	err := s.db.SelectContext(ctx, &movements,
		"SELECT * FROM stock_movements WHERE order_id = $1 AND direction = $2 ORDER BY id",
		orderID, direction)
	return movements, err
}
