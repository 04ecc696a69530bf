// Package pricing derives the checkout breakdown (subtotal, voucher discount,
// shipping fee, COD amount and total) from the selected cart lines, a shipping
// quote and an optional voucher. Amounts are int64 in the smallest currency unit.
package pricing

import (
	"errors"

	"github.com/shopspring/decimal"
)

// ErrEmptySelection is returned when no cart line is selected
var ErrEmptySelection = errors.New("no cart items selected")

// DiscountType of a voucher
type DiscountType string

const (
	DiscountPercent DiscountType = "PERCENT"
	DiscountFixed   DiscountType = "FIXED"
)

// PaymentType decides who bears the shipping cost
type PaymentType int

const (
	// SenderPays: the shop pays shipping, nothing is collected on delivery.
	SenderPays PaymentType = 1
	// ReceiverPays: the courier collects subtotal plus shipping on delivery.
	ReceiverPays PaymentType = 2
)

// Valid reports whether p is a known payment type
func (p PaymentType) Valid() bool {
	return p == SenderPays || p == ReceiverPays
}

// CartItem is a cart line. Total is price times quantity, computed upstream.
type CartItem struct {
	ID           int64  `json:"id"`
	VariantID    int64  `json:"variant_id"`
	ProductName  string `json:"product_name"`
	SKU          string `json:"sku"`
	ThumbnailURL string `json:"thumbnail_url"`
	Price        int64  `json:"price"`
	Quantity     int    `json:"quantity"`
	Total        int64  `json:"total"`
}

// Voucher is an applicable discount code
type Voucher struct {
	ID                int64        `json:"id"`
	Code              string       `json:"code"`
	DiscountType      DiscountType `json:"discount_type"`
	DiscountValue     int64        `json:"discount_value"`
	MaxDiscountAmount int64        `json:"max_discount_amount"`
	MinOrderValue     int64        `json:"min_order_value"`
}

// ShippingQuote is an externally computed shipping fee
type ShippingQuote struct {
	ServiceFee int64 `json:"service_fee"`
	ServiceID  int   `json:"service_id,omitempty"`
}

// Input to Compute
type Input struct {
	Items       []CartItem
	SelectedIDs map[int64]bool
	Quote       *ShippingQuote
	Voucher     *Voucher
	PaymentType PaymentType
}

// Breakdown is the priced checkout
type Breakdown struct {
	Items       []CartItem `json:"items"`
	Subtotal    int64      `json:"subtotal"`
	Discount    int64      `json:"discount"`
	ShippingFee int64      `json:"shipping_fee"`
	CODAmount   int64      `json:"cod_amount"`
	Total       int64      `json:"total"`
}

// Compute prices the selected items
func Compute(in Input) (Breakdown, error) {
	selected := SelectItems(in.Items, in.SelectedIDs)
	if len(selected) == 0 {
		return Breakdown{}, ErrEmptySelection
	}

	subtotal := Subtotal(selected)
	discount := Discount(subtotal, in.Voucher)

	var shippingFee int64
	if in.Quote != nil && in.Quote.ServiceFee > 0 {
		shippingFee = in.Quote.ServiceFee
	}

	return Breakdown{
		Items:       selected,
		Subtotal:    subtotal,
		Discount:    discount,
		ShippingFee: shippingFee,
		CODAmount:   COD(in.PaymentType, subtotal, shippingFee),
		Total:       Total(subtotal, discount, shippingFee),
	}, nil
}

// SelectItems keeps the items whose ID is selected, in cart order
func SelectItems(items []CartItem, selectedIDs map[int64]bool) []CartItem {
	out := make([]CartItem, 0, len(selectedIDs))
	for _, item := range items {
		if selectedIDs[item.ID] {
			out = append(out, item)
		}
	}
	return out
}

// Subtotal sums the line totals
func Subtotal(items []CartItem) int64 {
	var sum int64
	for _, item := range items {
		sum += item.Total
	}
	return sum
}

// Eligible reports whether v may be applied to an order of subtotal
func Eligible(subtotal int64, v *Voucher) bool {
	return v != nil && subtotal >= v.MinOrderValue
}

// Discount returns the voucher discount for subtotal. It is never negative
// and never larger than subtotal.
func Discount(subtotal int64, v *Voucher) int64 {
	if !Eligible(subtotal, v) || subtotal <= 0 || v.DiscountValue <= 0 {
		return 0
	}

	var discount int64
	switch v.DiscountType {
	case DiscountPercent:
		discount = decimal.NewFromInt(subtotal).
			Mul(decimal.NewFromInt(v.DiscountValue)).
			Div(decimal.NewFromInt(100)).
			IntPart()
		if v.MaxDiscountAmount > 0 && discount > v.MaxDiscountAmount {
			discount = v.MaxDiscountAmount
		}
	case DiscountFixed:
		discount = v.DiscountValue
	default:
		return 0
	}

	if discount > subtotal {
		discount = subtotal
	}
	return discount
}

// COD is the amount collected on delivery: everything when the receiver pays
// shipping, nothing when the sender does. The voucher discount is not taken
// off; the backend settles the authoritative figure when the order is created.
func COD(p PaymentType, subtotal, shippingFee int64) int64 {
	if p == ReceiverPays {
		return subtotal + shippingFee
	}
	return 0
}

// Total is the amount charged to the payer
func Total(subtotal, discount, shippingFee int64) int64 {
	net := subtotal - discount
	if net < 0 {
		net = 0
	}
	return net + shippingFee
}
