package service

import (
	"context"
	"time"

	"storefront-service/internal/models"
	"storefront-service/internal/pricing"
	"storefront-service/internal/store"
)

// Publisher emits domain events
type Publisher interface {
	PublishVariantsCreated(ctx context.Context, event *models.VariantsCreatedEvent) error
	PublishStockMoved(ctx context.Context, event *models.StockMovedEvent) error
	PublishOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error
	PublishOrderCancelled(ctx context.Context, event *models.OrderCancelledEvent) error
}

// CatalogStore is the catalog part of the database
type CatalogStore interface {
	CreateProduct(ctx context.Context, p *models.Product) error
	GetProductByID(ctx context.Context, id int64) (*models.Product, error)
	ListProducts(ctx context.Context, limit, offset int) ([]models.Product, error)
	CreateAttribute(ctx context.Context, a *models.Attribute) error
	GetAttribute(ctx context.Context, id int64) (*models.Attribute, error)
	DeleteAttribute(ctx context.Context, id int64) error
	AddAttributeValue(ctx context.Context, v *models.AttributeValue) error
	DeleteAttributeValue(ctx context.Context, attributeID, valueID int64) error
	GetAttributesByProductID(ctx context.Context, productID int64) ([]models.Attribute, error)
	CreateVariantsTx(ctx context.Context, productID int64, rows []store.NewVariant) ([]models.Variant, error)
	ListVariantsByProduct(ctx context.Context, productID int64) ([]models.Variant, error)
}

// DraftStore keeps serialized variant drafts
type DraftStore interface {
	SaveDraft(ctx context.Context, productID int64, payload []byte, ttl time.Duration) error
	LoadDraft(ctx context.Context, productID int64) ([]byte, error)
	DeleteDraft(ctx context.Context, productID int64) error
}

// CartSource gives the checkout explicit access to a user's cart. Nothing
// about the session is looked up implicitly.
type CartSource interface {
	GetCartItems(ctx context.Context, userID int64) ([]models.CartItem, error)
}

// CheckoutStore is the order side of the database
type CheckoutStore interface {
	CartSource
	AddCartItem(ctx context.Context, userID, variantID int64, quantity int) error
	RemoveCartItem(ctx context.Context, userID, itemID int64) error
	GetAddress(ctx context.Context, userID, addressID int64) (*models.Address, error)
	CreateAddress(ctx context.Context, a *models.Address) error
	ListAddresses(ctx context.Context, userID int64) ([]models.Address, error)
	ListActiveVouchers(ctx context.Context, now time.Time) ([]models.Voucher, error)
	GetVoucherByID(ctx context.Context, id int64) (*models.Voucher, error)
	CreateVoucher(ctx context.Context, v *models.Voucher) error
	CreateOrderTx(ctx context.Context, order *models.Order, items []models.OrderItem, cartItemIDs []int64) error
	GetOrderByIdempotencyKey(ctx context.Context, userID int64, key string) (*models.Order, error)
	GetOrderByID(ctx context.Context, id int64) (*models.Order, error)
	GetOrderItemsByOrderID(ctx context.Context, orderID int64) ([]models.OrderItem, error)
	GetOrdersByUserID(ctx context.Context, userID int64) ([]models.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID int64, from, to string) error
}

// InventoryStore is the stock side of the database
type InventoryStore interface {
	GetVariant(ctx context.Context, id int64) (*models.Variant, error)
	MoveStockTx(ctx context.Context, m *models.StockMovement) (int, error)
	ListStockMovements(ctx context.Context, variantID int64, limit int) ([]models.StockMovement, error)
	ListOrderStockMovements(ctx context.Context, orderID int64, direction string) ([]models.StockMovement, error)
	GetAllVariantStock(ctx context.Context) (map[int64]int, error)
	IsEventProcessed(ctx context.Context, eventID string) (bool, error)
	MarkEventProcessed(ctx context.Context, eventID, eventType string) error
}

// StockCounters is the Redis mirror of variant stock
type StockCounters interface {
	InitInventory(ctx context.Context, variantID int64, available int) error
	GetAvailable(ctx context.Context, variantID int64) (int, error)
	StockIn(ctx context.Context, variantID int64, quantity int) (int, error)
	StockOut(ctx context.Context, variantID int64, quantity int) (int, error)
}

// Locker guards against double submission
type Locker interface {
	AcquireLock(ctx context.Context, lockKey string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, lockKey string) error
}

// ShippingQuoter prices a parcel with the carrier
type ShippingQuoter interface {
	Quote(ctx context.Context, req ShippingRequest) (*pricing.ShippingQuote, error)
}
