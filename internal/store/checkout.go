package store

import (
	"context"
	"fmt"
	"time"

	"storefront-service/internal/models"
)

const cartItemsQuery = `
	SELECT c.id, c.user_id, c.variant_id,
	       p.name AS product_name, v.sku,
	       COALESCE(NULLIF(v.thumbnail, ''), p.thumbnail) AS thumbnail_url,
	       v.price, c.quantity, v.price * c.quantity AS total
	FROM cart_items c
	JOIN variants v ON v.id = c.variant_id
	JOIN products p ON p.id = v.product_id
	WHERE c.user_id = $1
	ORDER BY c.created_at, c.id`

// GetCartItems retrieves a user's cart lines priced at the current variant price
func (s *Store) GetCartItems(ctx context.Context, userID int64) ([]models.CartItem, error) {
	items := []models.CartItem{}
	err := s.db.SelectContext(ctx, &items, cartItemsQuery, userID)
	return items, err
}

// AddCartItem adds quantity of a variant to a user's cart
func (s *Store) AddCartItem(ctx context.Context, userID, variantID int64, quantity int) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cart_items (user_id, variant_id, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, variant_id) DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity`,
		userID, variantID, quantity)
	return err
}

// RemoveCartItem deletes one line of a user's cart
func (s *Store) RemoveCartItem(ctx context.Context, userID, itemID int64) error {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM cart_items WHERE id = $1 AND user_id = $2", itemID, userID)
	if err != nil {
		return err
	}
	return expectRow(res, fmt.Sprintf("cart item %d", itemID))
}

// ListActiveVouchers retrieves vouchers whose validity window contains now
func (s *Store) ListActiveVouchers(ctx context.Context, now time.Time) ([]models.Voucher, error) {
	vouchers := []models.Voucher{}
	err := s.db.SelectContext(ctx, &vouchers,
		"SELECT * FROM vouchers WHERE start_date <= $1 AND end_date >= $1 ORDER BY min_order_value, id", now)
	return vouchers, err
}

// GetVoucherByID retrieves a voucher
func (s *Store) GetVoucherByID(ctx context.Context, id int64) (*models.Voucher, error) {
	var v models.Voucher
	err := s.db.GetContext(ctx, &v, "SELECT * FROM vouchers WHERE id = $1", id)
	if err != nil {
		return nil, translate(err, fmt.Sprintf("voucher %d", id))
	}
	return &v, nil
}

// CreateVoucher creates a voucher
func (s *Store) CreateVoucher(ctx context.Context, v *models.Voucher) error {
	query := `
		INSERT INTO vouchers (code, discount_type, discount_value, max_discount_amount, min_order_value,
		                      start_date, end_date, image_url, description)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`

	err := s.db.GetContext(ctx, &v.ID, query,
		v.Code, v.DiscountType, v.DiscountValue, v.MaxDiscountAmount, v.MinOrderValue,
		v.StartDate, v.EndDate, v.ImageURL, v.Description)
	return translate(err, "voucher "+v.Code)
}

// GetAddress retrieves one of a user's addresses
func (s *Store) GetAddress(ctx context.Context, userID, addressID int64) (*models.Address, error) {
	var a models.Address
	err := s.db.GetContext(ctx, &a,
		"SELECT * FROM addresses WHERE id = $1 AND user_id = $2", addressID, userID)
	if err != nil {
		return nil, translate(err, fmt.Sprintf("address %d", addressID))
	}
	return &a, nil
}

// CreateAddress stores a delivery address for a user
func (s *Store) CreateAddress(ctx context.Context, a *models.Address) error {
	query := `
		INSERT INTO addresses (user_id, recipient, phone, line, province_id, district_id, ward_code, is_default)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`

	return s.db.GetContext(ctx, &a.ID, query,
		a.UserID, a.Recipient, a.Phone, a.Line, a.ProvinceID, a.DistrictID, a.WardCode, a.IsDefault)
}

// ListAddresses retrieves a user's addresses, default first
func (s *Store) ListAddresses(ctx context.Context, userID int64) ([]models.Address, error) {
	addresses := []models.Address{}
	err := s.db.SelectContext(ctx, &addresses,
		"SELECT * FROM addresses WHERE user_id = $1 ORDER BY is_default DESC, id", userID)
	return addresses, err
}
