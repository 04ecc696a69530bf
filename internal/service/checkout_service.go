package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"storefront-service/config"
	"storefront-service/internal/apperr"
	"storefront-service/internal/broker"
	"storefront-service/internal/models"
	"storefront-service/internal/pricing"
	"storefront-service/internal/store"
	"storefront-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	orderLockTTL = 30 * time.Second

	msgShippingUnavailable = "Could not calculate the shipping fee for this address"
	msgVoucherNotEligible  = "The selected voucher does not apply to this order"
)

// CheckoutService prices carts and turns them into orders
type CheckoutService struct {
	store      CheckoutStore
	shipping   ShippingQuoter
	guard      *RequestGuard
	stock      StockCounters
	locker     Locker
	publisher  Publisher
	weightUnit int
	logger     *zap.Logger
	now        func() time.Time
}

// NewCheckoutService creates a new checkout service
func NewCheckoutService(
	store CheckoutStore,
	shipping ShippingQuoter,
	guard *RequestGuard,
	stock StockCounters,
	locker Locker,
	publisher Publisher,
	cfg config.BusinessConfig,
) *CheckoutService {
	weight := cfg.ParcelWeightG
	if weight <= 0 {
		weight = 500
	}
	return &CheckoutService{
		store:      store,
		shipping:   shipping,
		guard:      guard,
		stock:      stock,
		locker:     locker,
		publisher:  publisher,
		weightUnit: weight,
		logger:     util.GetLogger(),
		now:        time.Now,
	}
}

// QuoteRequest prices a selection of the user's cart
type QuoteRequest struct {
	UserID        int64   `json:"-"`
	SessionID     string  `json:"session_id"`
	SelectedIDs   []int64 `json:"selected_ids" binding:"required,min=1"`
	AddressID     int64   `json:"address_id"`
	VoucherID     *int64  `json:"voucher_id,omitempty"`
	PaymentTypeID int     `json:"payment_type_id" binding:"required,oneof=1 2"`
}

// QuoteResponse is a priced checkout. Stale is set when a newer quote was
// requested for the same session while this one was in flight.
type QuoteResponse struct {
	pricing.Breakdown
	Shipping *pricing.ShippingQuote `json:"shipping,omitempty"`
	Voucher  *pricing.Voucher       `json:"voucher,omitempty"`
	Vouchers []pricing.Voucher      `json:"vouchers"`
	Warnings []string               `json:"warnings"`
	Stale    bool                   `json:"stale"`
}

// PricePreviewRequest prices caller-supplied data without touching any store
type PricePreviewRequest struct {
	Items         []pricing.CartItem     `json:"items" binding:"required,min=1,dive"`
	SelectedIDs   []int64                `json:"selected_ids" binding:"required,min=1"`
	Shipping      *pricing.ShippingQuote `json:"shipping,omitempty"`
	Voucher       *pricing.Voucher       `json:"voucher,omitempty"`
	PaymentTypeID int                    `json:"payment_type_id" binding:"required,oneof=1 2"`
}

// PlaceOrderRequest turns a cart selection into an order
type PlaceOrderRequest struct {
	UserID         int64   `json:"-"`
	SelectedIDs    []int64 `json:"selected_ids" binding:"required,min=1"`
	AddressID      int64   `json:"address_id" binding:"required"`
	VoucherID      *int64  `json:"voucher_id,omitempty"`
	PaymentTypeID  int     `json:"payment_type_id" binding:"required,oneof=1 2"`
	Note           string  `json:"note" binding:"max=500"`
	IdempotencyKey string  `json:"idempotency_key,omitempty"`
}

// OrderDetail is an order with its items
type OrderDetail struct {
	Order *models.Order      `json:"order"`
	Items []models.OrderItem `json:"items"`
}

// AddCartItemRequest adds a variant to the cart
type AddCartItemRequest struct {
	VariantID int64 `json:"variant_id" binding:"required"`
	Quantity  int   `json:"quantity" binding:"required,min=1"`
}

// CreateAddressRequest stores a delivery address
type CreateAddressRequest struct {
	Recipient  string `json:"recipient" binding:"required,max=128"`
	Phone      string `json:"phone" binding:"required,max=32"`
	Line       string `json:"line" binding:"required,max=255"`
	ProvinceID int    `json:"province_id" binding:"required"`
	DistrictID int    `json:"district_id" binding:"required"`
	WardCode   string `json:"ward_code" binding:"required"`
	IsDefault  bool   `json:"is_default"`
}

// CreateVoucherRequest creates a discount code
type CreateVoucherRequest struct {
	Code              string    `json:"code" binding:"required,max=64"`
	DiscountType      string    `json:"discount_type" binding:"required,oneof=PERCENT FIXED"`
	DiscountValue     int64     `json:"discount_value" binding:"required,min=1"`
	MaxDiscountAmount int64     `json:"max_discount_amount" binding:"min=0"`
	MinOrderValue     int64     `json:"min_order_value" binding:"min=0"`
	StartDate         time.Time `json:"start_date" binding:"required"`
	EndDate           time.Time `json:"end_date" binding:"required"`
	ImageURL          string    `json:"image_url"`
	Description       string    `json:"description"`
}

func selection(ids []int64) map[int64]bool {
	selected := make(map[int64]bool, len(ids))
	for _, id := range ids {
		selected[id] = true
	}
	return selected
}

func toPricingItems(items []models.CartItem) []pricing.CartItem {
	out := make([]pricing.CartItem, len(items))
	for i, it := range items {
		out[i] = pricing.CartItem{
			ID:           it.ID,
			VariantID:    it.VariantID,
			ProductName:  it.ProductName,
			SKU:          it.SKU,
			ThumbnailURL: it.ThumbnailURL,
			Price:        it.Price,
			Quantity:     it.Quantity,
			Total:        it.Total,
		}
	}
	return out
}

func toPricingVoucher(v *models.Voucher) *pricing.Voucher {
	return &pricing.Voucher{
		ID:                v.ID,
		Code:              v.Code,
		DiscountType:      pricing.DiscountType(v.DiscountType),
		DiscountValue:     v.DiscountValue,
		MaxDiscountAmount: v.MaxDiscountAmount,
		MinOrderValue:     v.MinOrderValue,
	}
}

func (s *CheckoutService) active(v *models.Voucher) bool {
	now := s.now()
	return !now.Before(v.StartDate) && !now.After(v.EndDate)
}

// Cart returns the user's cart lines
func (s *CheckoutService) Cart(ctx context.Context, userID int64) ([]pricing.CartItem, error) {
	items, err := s.store.GetCartItems(ctx, userID)
	if err != nil {
		return nil, apperr.Wrap(err)
	}
	return toPricingItems(items), nil
}

// AddToCart adds a variant to the user's cart
func (s *CheckoutService) AddToCart(ctx context.Context, userID int64, req *AddCartItemRequest) error {
	if err := s.store.AddCartItem(ctx, userID, req.VariantID, req.Quantity); err != nil {
		return apperr.Wrap(err)
	}
	return nil
}

// RemoveFromCart deletes a line from the user's cart
func (s *CheckoutService) RemoveFromCart(ctx context.Context, userID, itemID int64) error {
	if err := s.store.RemoveCartItem(ctx, userID, itemID); err != nil {
		return notFound(err, "Cart item not found")
	}
	return nil
}

// Addresses returns the user's delivery addresses
func (s *CheckoutService) Addresses(ctx context.Context, userID int64) ([]models.Address, error) {
	addresses, err := s.store.ListAddresses(ctx, userID)
	if err != nil {
		return nil, apperr.Wrap(err)
	}
	return addresses, nil
}

// AddAddress stores a delivery address for the user
func (s *CheckoutService) AddAddress(ctx context.Context, userID int64, req *CreateAddressRequest) (*models.Address, error) {
	address := &models.Address{
		UserID:     userID,
		Recipient:  strings.TrimSpace(req.Recipient),
		Phone:      strings.TrimSpace(req.Phone),
		Line:       strings.TrimSpace(req.Line),
		ProvinceID: req.ProvinceID,
		DistrictID: req.DistrictID,
		WardCode:   req.WardCode,
		IsDefault:  req.IsDefault,
	}
	if err := s.store.CreateAddress(ctx, address); err != nil {
		return nil, apperr.Wrap(err)
	}
	return address, nil
}

// CreateVoucher creates a discount code
func (s *CheckoutService) CreateVoucher(ctx context.Context, req *CreateVoucherRequest) (*models.Voucher, error) {
	if !req.EndDate.After(req.StartDate) {
		return nil, apperr.InvalidErr("Validation failed", map[string]string{"end_date": "must be after start_date"})
	}
	if req.DiscountType == string(pricing.DiscountPercent) && req.DiscountValue > 100 {
		return nil, apperr.InvalidErr("Validation failed", map[string]string{"discount_value": "must be at most 100 for PERCENT"})
	}

	v := &models.Voucher{
		Code:              strings.ToUpper(strings.TrimSpace(req.Code)),
		DiscountType:      req.DiscountType,
		DiscountValue:     req.DiscountValue,
		MaxDiscountAmount: req.MaxDiscountAmount,
		MinOrderValue:     req.MinOrderValue,
		StartDate:         req.StartDate,
		EndDate:           req.EndDate,
		ImageURL:          req.ImageURL,
		Description:       req.Description,
	}
	if err := s.store.CreateVoucher(ctx, v); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperr.ConflictErr(fmt.Sprintf("Voucher %s already exists", v.Code))
		}
		return nil, apperr.Wrap(err)
	}
	return v, nil
}

// ApplicableVouchers returns the vouchers that are currently active and whose
// minimum order value is met by subtotal
func (s *CheckoutService) ApplicableVouchers(ctx context.Context, subtotal int64) ([]pricing.Voucher, error) {
	vouchers, err := s.store.ListActiveVouchers(ctx, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to list vouchers: %w", err)
	}

	out := make([]pricing.Voucher, 0, len(vouchers))
	for i := range vouchers {
		v := toPricingVoucher(&vouchers[i])
		if s.active(&vouchers[i]) && pricing.Eligible(subtotal, v) {
			out = append(out, *v)
		}
	}
	return out, nil
}

func (s *CheckoutService) shippingRequest(address *models.Address, items []pricing.CartItem, subtotal int64) ShippingRequest {
	units := 0
	for _, it := range items {
		units += it.Quantity
	}
	return ShippingRequest{
		ToDistrictID:   address.DistrictID,
		ToWardCode:     address.WardCode,
		WeightGrams:    units * s.weightUnit,
		InsuranceValue: subtotal,
	}
}

func (s *CheckoutService) quoteShipping(ctx context.Context, userID, addressID int64, items []pricing.CartItem, subtotal int64) (*pricing.ShippingQuote, error) {
	address, err := s.store.GetAddress(ctx, userID, addressID)
	if err != nil {
		return nil, err
	}
	return s.shipping.Quote(ctx, s.shippingRequest(address, items, subtotal))
}

// Quote prices the selected cart lines. The shipping fee and the voucher list
// are fetched concurrently and each is applied only if it answers the latest
// request issued for the session. A failed shipping quote zeroes both the fee
// and the discount and adds a warning; a failed voucher lookup only drops the
// voucher.
func (s *CheckoutService) Quote(ctx context.Context, req *QuoteRequest) (*QuoteResponse, error) {
	ctx, span := util.StartSpan(ctx, "CheckoutService.Quote")
	defer span.End()

	paymentType := pricing.PaymentType(req.PaymentTypeID)
	if !paymentType.Valid() {
		return nil, apperr.InvalidErr("Validation failed", map[string]string{"payment_type_id": "must be 1 or 2"})
	}

	cart, err := s.store.GetCartItems(ctx, req.UserID)
	if err != nil {
		util.CheckoutQuotesTotal.WithLabelValues("error").Inc()
		return nil, apperr.Wrap(util.RecordError(span, err))
	}
	items := toPricingItems(cart)
	selected := selection(req.SelectedIDs)

	chosen := pricing.SelectItems(items, selected)
	if len(chosen) == 0 {
		util.CheckoutQuotesTotal.WithLabelValues("empty").Inc()
		return nil, apperr.InvalidWrap(pricing.ErrEmptySelection)
	}
	subtotal := pricing.Subtotal(chosen)

	var (
		wg          sync.WaitGroup
		quote       *pricing.ShippingQuote
		shippingErr error
		shippingOK  = true
		vouchers    []pricing.Voucher
		voucherErr  error
		vouchersOK  = true
	)

	if req.AddressID > 0 {
		ticket := s.guard.Issue(ctx, req.SessionID, KindShipping)
		wg.Add(1)
		go func() {
			defer wg.Done()
			quote, shippingErr = s.quoteShipping(ctx, req.UserID, req.AddressID, chosen, subtotal)
			shippingOK = s.guard.Apply(ctx, ticket, quote)
		}()
	}

	vticket := s.guard.Issue(ctx, req.SessionID, KindVouchers)
	wg.Add(1)
	go func() {
		defer wg.Done()
		vouchers, voucherErr = s.ApplicableVouchers(ctx, subtotal)
		vouchersOK = s.guard.Apply(ctx, vticket, vouchers)
	}()

	wg.Wait()

	resp := &QuoteResponse{
		Vouchers: []pricing.Voucher{},
		Warnings: []string{},
		Stale:    !shippingOK || !vouchersOK,
	}

	if voucherErr != nil {
		s.logger.Warn("Voucher lookup failed, continuing without voucher",
			zap.Int64("user_id", req.UserID),
			zap.Error(voucherErr))
	} else {
		resp.Vouchers = vouchers
	}

	var voucher *pricing.Voucher
	if req.VoucherID != nil && voucherErr == nil {
		for i := range resp.Vouchers {
			if resp.Vouchers[i].ID == *req.VoucherID {
				voucher = &resp.Vouchers[i]
				break
			}
		}
		if voucher == nil {
			resp.Warnings = append(resp.Warnings, msgVoucherNotEligible)
		}
	}

	if shippingErr != nil {
		s.logger.Warn("Shipping quote unavailable",
			zap.Int64("user_id", req.UserID),
			zap.Int64("address_id", req.AddressID),
			zap.Error(shippingErr))
		resp.Warnings = append(resp.Warnings, msgShippingUnavailable)
		quote = nil
		voucher = nil
	}

	breakdown, err := pricing.Compute(pricing.Input{
		Items:       items,
		SelectedIDs: selected,
		Quote:       quote,
		Voucher:     voucher,
		PaymentType: paymentType,
	})
	if err != nil {
		return nil, apperr.InvalidWrap(err)
	}

	resp.Breakdown = breakdown
	resp.Shipping = quote
	resp.Voucher = voucher

	outcome := "ok"
	if len(resp.Warnings) > 0 {
		outcome = "degraded"
	}
	util.CheckoutQuotesTotal.WithLabelValues(outcome).Inc()
	return resp, nil
}

// Preview prices caller-supplied cart data
func (s *CheckoutService) Preview(req *PricePreviewRequest) (*pricing.Breakdown, error) {
	breakdown, err := pricing.Compute(pricing.Input{
		Items:       req.Items,
		SelectedIDs: selection(req.SelectedIDs),
		Quote:       req.Shipping,
		Voucher:     req.Voucher,
		PaymentType: pricing.PaymentType(req.PaymentTypeID),
	})
	if err != nil {
		return nil, apperr.InvalidWrap(err)
	}
	return &breakdown, nil
}

// PlaceOrder recomputes the checkout server-side and persists it as an order.
// Requests carrying an idempotency key that was already used return the
// existing order.
func (s *CheckoutService) PlaceOrder(ctx context.Context, req *PlaceOrderRequest) (*OrderDetail, error) {
	ctx, span := util.StartSpan(ctx, "CheckoutService.PlaceOrder")
	defer span.End()

	if req.IdempotencyKey == "" {
		req.IdempotencyKey = uuid.New().String()
	}

	existing, err := s.store.GetOrderByIdempotencyKey(ctx, req.UserID, req.IdempotencyKey)
	if err != nil {
		return nil, apperr.Wrap(fmt.Errorf("failed to check idempotency: %w", err))
	}
	if existing != nil {
		s.logger.Info("Duplicate order request detected",
			zap.String("idempotency_key", req.IdempotencyKey),
			zap.Int64("order_id", existing.ID))
		return s.detail(ctx, existing)
	}

	lockKey := fmt.Sprintf("order:%d:%s", req.UserID, req.IdempotencyKey)
	locked, err := s.locker.AcquireLock(ctx, lockKey, orderLockTTL)
	if err != nil {
		return nil, apperr.Wrap(fmt.Errorf("failed to acquire order lock: %w", err))
	}
	if !locked {
		return nil, apperr.ConflictErr("This order is already being processed")
	}
	defer func() {
		if err := s.locker.ReleaseLock(ctx, lockKey); err != nil {
			s.logger.Warn("Failed to release order lock", zap.String("lock", lockKey), zap.Error(err))
		}
	}()

	order, items, err := s.buildOrder(ctx, req)
	if err != nil {
		return nil, err
	}

	if err := s.store.CreateOrderTx(ctx, order, items, req.SelectedIDs); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			if existing, _ := s.store.GetOrderByIdempotencyKey(ctx, req.UserID, req.IdempotencyKey); existing != nil {
				return s.detail(ctx, existing)
			}
		}
		util.OrdersFailedTotal.WithLabelValues("db_error").Inc()
		return nil, apperr.Wrap(util.RecordError(span, fmt.Errorf("failed to create order: %w", err)))
	}

	util.OrdersPlacedTotal.WithLabelValues(fmt.Sprint(order.PaymentTypeID)).Inc()
	s.logger.Info("Order placed",
		zap.Int64("order_id", order.ID),
		zap.Int64("user_id", order.UserID),
		zap.Int64("total_amount", order.TotalAmount))

	event := &models.OrderPlacedEvent{
		BaseEvent:     broker.NewBaseEvent(models.EventTypeOrderPlaced),
		OrderID:       order.ID,
		UserID:        order.UserID,
		PaymentTypeID: order.PaymentTypeID,
		TotalAmount:   order.TotalAmount,
		CODAmount:     order.CODAmount,
		Items:         itemData(items),
	}
	if err := s.publisher.PublishOrderPlaced(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderPlaced event", zap.Error(err))
	}

	return &OrderDetail{Order: order, Items: items}, nil
}

func (s *CheckoutService) buildOrder(ctx context.Context, req *PlaceOrderRequest) (*models.Order, []models.OrderItem, error) {
	paymentType := pricing.PaymentType(req.PaymentTypeID)
	if !paymentType.Valid() {
		return nil, nil, apperr.InvalidErr("Validation failed", map[string]string{"payment_type_id": "must be 1 or 2"})
	}

	cart, err := s.store.GetCartItems(ctx, req.UserID)
	if err != nil {
		return nil, nil, apperr.Wrap(err)
	}
	items := toPricingItems(cart)
	selected := selection(req.SelectedIDs)
	chosen := pricing.SelectItems(items, selected)
	if len(chosen) == 0 {
		util.OrdersFailedTotal.WithLabelValues("empty_selection").Inc()
		return nil, nil, apperr.InvalidWrap(pricing.ErrEmptySelection)
	}

	if err := s.checkStock(ctx, chosen); err != nil {
		util.OrdersFailedTotal.WithLabelValues("insufficient_stock").Inc()
		return nil, nil, err
	}

	subtotal := pricing.Subtotal(chosen)

	quote, err := s.quoteShipping(ctx, req.UserID, req.AddressID, chosen, subtotal)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, apperr.NotFoundErr("Address not found")
		}
		util.OrdersFailedTotal.WithLabelValues("shipping_quote").Inc()
		return nil, nil, &apperr.Error{Kind: apperr.Internal, PublicMsg: msgShippingUnavailable, Err: err}
	}

	var voucher *pricing.Voucher
	if req.VoucherID != nil {
		v, err := s.store.GetVoucherByID(ctx, *req.VoucherID)
		if err != nil {
			return nil, nil, notFound(err, "Voucher not found")
		}
		voucher = toPricingVoucher(v)
		if !s.active(v) || !pricing.Eligible(subtotal, voucher) {
			util.OrdersFailedTotal.WithLabelValues("voucher_not_eligible").Inc()
			return nil, nil, apperr.InvalidErr(msgVoucherNotEligible, nil)
		}
		util.VouchersAppliedTotal.WithLabelValues(v.DiscountType).Inc()
	}

	breakdown, err := pricing.Compute(pricing.Input{
		Items:       items,
		SelectedIDs: selected,
		Quote:       quote,
		Voucher:     voucher,
		PaymentType: paymentType,
	})
	if err != nil {
		return nil, nil, apperr.InvalidWrap(err)
	}

	order := &models.Order{
		UserID:         req.UserID,
		AddressID:      req.AddressID,
		VoucherID:      req.VoucherID,
		PaymentTypeID:  req.PaymentTypeID,
		Subtotal:       breakdown.Subtotal,
		Discount:       breakdown.Discount,
		ShippingFee:    breakdown.ShippingFee,
		CODAmount:      breakdown.CODAmount,
		TotalAmount:    breakdown.Total,
		Status:         models.OrderStatusPending,
		Note:           strings.TrimSpace(req.Note),
		IdempotencyKey: req.IdempotencyKey,
	}

	orderItems := make([]models.OrderItem, len(breakdown.Items))
	for i, it := range breakdown.Items {
		orderItems[i] = models.OrderItem{
			VariantID:   it.VariantID,
			ProductName: it.ProductName,
			SKU:         it.SKU,
			Quantity:    it.Quantity,
			UnitPrice:   it.Price,
			LineTotal:   it.Total,
		}
	}
	return order, orderItems, nil
}

// checkStock rejects lines the stock counters cannot cover. Lines whose
// counter is unavailable are let through; the inventory worker settles them.
func (s *CheckoutService) checkStock(ctx context.Context, items []pricing.CartItem) error {
	for _, it := range items {
		available, err := s.stock.GetAvailable(ctx, it.VariantID)
		if err != nil {
			s.logger.Debug("Stock counter unavailable", zap.Int64("variant_id", it.VariantID), zap.Error(err))
			continue
		}
		if available < it.Quantity {
			return apperr.InvalidErr(fmt.Sprintf("Only %d of %s left in stock", available, it.ProductName),
				map[string]string{it.SKU: "insufficient stock"})
		}
	}
	return nil
}

func itemData(items []models.OrderItem) []models.OrderItemData {
	out := make([]models.OrderItemData, len(items))
	for i, it := range items {
		out[i] = models.OrderItemData{VariantID: it.VariantID, Quantity: it.Quantity, UnitPrice: it.UnitPrice}
	}
	return out
}

func (s *CheckoutService) detail(ctx context.Context, order *models.Order) (*OrderDetail, error) {
	items, err := s.store.GetOrderItemsByOrderID(ctx, order.ID)
	if err != nil {
		return nil, apperr.Wrap(err)
	}
	return &OrderDetail{Order: order, Items: items}, nil
}

// GetOrder retrieves one of a user's orders with its items. Orders owned by
// someone else are reported as not found.
func (s *CheckoutService) GetOrder(ctx context.Context, userID, orderID int64) (*OrderDetail, error) {
	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, notFound(err, "Order not found")
	}
	if order.UserID != userID {
		return nil, apperr.NotFoundErr("Order not found")
	}
	return s.detail(ctx, order)
}

// ListOrders returns a user's orders, newest first
func (s *CheckoutService) ListOrders(ctx context.Context, userID int64) ([]models.Order, error) {
	orders, err := s.store.GetOrdersByUserID(ctx, userID)
	if err != nil {
		return nil, apperr.Wrap(err)
	}
	return orders, nil
}

// CancelOrder cancels a pending or confirmed order and announces it so the
// reserved stock is returned
func (s *CheckoutService) CancelOrder(ctx context.Context, userID, orderID int64, reason string) (*OrderDetail, error) {
	ctx, span := util.StartSpan(ctx, "CheckoutService.CancelOrder")
	defer span.End()

	detail, err := s.GetOrder(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}

	from := detail.Order.Status
	if from != models.OrderStatusPending && from != models.OrderStatusConfirmed {
		return nil, apperr.ConflictErr(fmt.Sprintf("An order in status %s cannot be cancelled", from))
	}

	if err := s.store.UpdateOrderStatus(ctx, orderID, from, models.OrderStatusCancelled); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.ConflictErr("The order changed while cancelling, please reload")
		}
		return nil, apperr.Wrap(util.RecordError(span, err))
	}
	detail.Order.Status = models.OrderStatusCancelled

	util.OrdersCancelledTotal.Inc()
	s.logger.Info("Order cancelled", zap.Int64("order_id", orderID), zap.String("reason", reason))

	event := &models.OrderCancelledEvent{
		BaseEvent: broker.NewBaseEvent(models.EventTypeOrderCancelled),
		OrderID:   orderID,
		Reason:    reason,
		Items:     itemData(detail.Items),
	}
	if err := s.publisher.PublishOrderCancelled(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderCancelled event", zap.Error(err))
	}

	return detail, nil
}
