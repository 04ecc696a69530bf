package models

import "time"

// Product represents a product in the catalog
type Product struct {
	ID          int64     `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Slug        string    `db:"slug" json:"slug"`
	Description string    `db:"description" json:"description"`
	BasePrice   int64     `db:"base_price" json:"base_price"`
	Thumbnail   string    `db:"thumbnail" json:"thumbnail"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// Attribute is one axis of variation owned by a product, e.g. "Color"
type Attribute struct {
	ID        int64            `db:"id" json:"id"`
	ProductID int64            `db:"product_id" json:"product_id"`
	Code      string           `db:"code" json:"code"`
	Name      string           `db:"name" json:"name"`
	Position  int              `db:"position" json:"position"`
	Values    []AttributeValue `db:"-" json:"values"`
}

// AttributeValue is one selectable option of an attribute, e.g. "Red"
type AttributeValue struct {
	ID          int64  `db:"id" json:"id"`
	AttributeID int64  `db:"attribute_id" json:"attribute_id"`
	Value       string `db:"value" json:"value"`
	Position    int    `db:"position" json:"position"`
}

// Variant is a purchasable SKU of a product
type Variant struct {
	ID             int64     `db:"id" json:"id"`
	ProductID      int64     `db:"product_id" json:"product_id"`
	SKU            string    `db:"sku" json:"sku"`
	Name           string    `db:"name" json:"name"`
	Combination    string    `db:"combination" json:"combination"`
	CombinationKey string    `db:"combination_key" json:"combination_key"`
	Price          int64     `db:"price" json:"price"`
	Stock          int       `db:"stock" json:"stock"`
	Thumbnail      string    `db:"thumbnail" json:"thumbnail"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// CartItem is a line in a user's cart joined with its variant
type CartItem struct {
	ID           int64  `db:"id" json:"id"`
	UserID       int64  `db:"user_id" json:"user_id"`
	VariantID    int64  `db:"variant_id" json:"variant_id"`
	ProductName  string `db:"product_name" json:"product_name"`
	SKU          string `db:"sku" json:"sku"`
	ThumbnailURL string `db:"thumbnail_url" json:"thumbnail_url"`
	Price        int64  `db:"price" json:"price"`
	Quantity     int    `db:"quantity" json:"quantity"`
	Total        int64  `db:"total" json:"total"`
}

// Voucher is a discount code
type Voucher struct {
	ID                int64     `db:"id" json:"id"`
	Code              string    `db:"code" json:"code"`
	DiscountType      string    `db:"discount_type" json:"discount_type"`
	DiscountValue     int64     `db:"discount_value" json:"discount_value"`
	MaxDiscountAmount int64     `db:"max_discount_amount" json:"max_discount_amount"`
	MinOrderValue     int64     `db:"min_order_value" json:"min_order_value"`
	StartDate         time.Time `db:"start_date" json:"start_date"`
	EndDate           time.Time `db:"end_date" json:"end_date"`
	ImageURL          string    `db:"image_url" json:"image_url"`
	Description       string    `db:"description" json:"description"`
}

// Order represents a customer order
type Order struct {
	ID             int64     `db:"id" json:"id"`
	UserID         int64     `db:"user_id" json:"user_id"`
	AddressID      int64     `db:"address_id" json:"address_id"`
	VoucherID      *int64    `db:"voucher_id" json:"voucher_id,omitempty"`
	PaymentTypeID  int       `db:"payment_type_id" json:"payment_type_id"`
	Subtotal       int64     `db:"subtotal" json:"subtotal"`
	Discount       int64     `db:"discount" json:"discount"`
	ShippingFee    int64     `db:"shipping_fee" json:"shipping_fee"`
	CODAmount      int64     `db:"cod_amount" json:"cod_amount"`
	TotalAmount    int64     `db:"total_amount" json:"total_amount"`
	Status         string    `db:"status" json:"status"`
	Note           string    `db:"note" json:"note"`
	IdempotencyKey string    `db:"idempotency_key" json:"idempotency_key,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// OrderItem represents items in an order
type OrderItem struct {
	ID          int64  `db:"id" json:"id"`
	OrderID     int64  `db:"order_id" json:"order_id"`
	VariantID   int64  `db:"variant_id" json:"variant_id"`
	ProductName string `db:"product_name" json:"product_name"`
	SKU         string `db:"sku" json:"sku"`
	Quantity    int    `db:"quantity" json:"quantity"`
	UnitPrice   int64  `db:"unit_price" json:"unit_price"`
	LineTotal   int64  `db:"line_total" json:"line_total"`
}

// Address is a delivery address. District and ward codes feed the shipping quote.
type Address struct {
	ID         int64  `db:"id" json:"id"`
	UserID     int64  `db:"user_id" json:"user_id"`
	Recipient  string `db:"recipient" json:"recipient"`
	Phone      string `db:"phone" json:"phone"`
	Line       string `db:"line" json:"line"`
	ProvinceID int    `db:"province_id" json:"province_id"`
	DistrictID int    `db:"district_id" json:"district_id"`
	WardCode   string `db:"ward_code" json:"ward_code"`
	IsDefault  bool   `db:"is_default" json:"is_default"`
}

// StockMovement records a stock-in or stock-out on a variant
type StockMovement struct {
	ID        int64     `db:"id" json:"id"`
	VariantID int64     `db:"variant_id" json:"variant_id"`
	Direction string    `db:"direction" json:"direction"`
	Quantity  int       `db:"quantity" json:"quantity"`
	Note      string    `db:"note" json:"note"`
	OrderID   *int64    `db:"order_id" json:"order_id,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ContactMessage is a message left through the storefront contact form
type ContactMessage struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Email     string    `db:"email" json:"email"`
	Phone     string    `db:"phone" json:"phone"`
	Subject   string    `db:"subject" json:"subject"`
	Message   string    `db:"message" json:"message"`
	IsRead    bool      `db:"is_read" json:"is_read"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Order statuses
const (
	OrderStatusPending   = "PENDING"
	OrderStatusConfirmed = "CONFIRMED"
	OrderStatusShipping  = "SHIPPING"
	OrderStatusCompleted = "COMPLETED"
	OrderStatusCancelled = "CANCELLED"
)

// Stock movement directions
const (
	StockIn  = "IN"
	StockOut = "OUT"
)

// ProcessedEvent for idempotency
type ProcessedEvent struct {
	EventID     string    `db:"event_id"`
	EventType   string    `db:"event_type"`
	ProcessedAt time.Time `db:"processed_at"`
}
