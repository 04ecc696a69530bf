package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"storefront-service/internal/models"
	"storefront-service/internal/pricing"
	"storefront-service/internal/redisclient"
	"storefront-service/internal/store"
)

type fakePublisher struct {
	mu        sync.Mutex
	created   []*models.VariantsCreatedEvent
	moved     []*models.StockMovedEvent
	placed    []*models.OrderPlacedEvent
	cancelled []*models.OrderCancelledEvent
}

func (p *fakePublisher) PublishVariantsCreated(_ context.Context, e *models.VariantsCreatedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.created = append(p.created, e)
	return nil
}

func (p *fakePublisher) PublishStockMoved(_ context.Context, e *models.StockMovedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.moved = append(p.moved, e)
	return nil
}

func (p *fakePublisher) PublishOrderPlaced(_ context.Context, e *models.OrderPlacedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.placed = append(p.placed, e)
	return nil
}

func (p *fakePublisher) PublishOrderCancelled(_ context.Context, e *models.OrderCancelledEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cancelled = append(p.cancelled, e)
	return nil
}

// fakeCounters mimics the Redis stock counters
type fakeCounters struct {
	mu    sync.Mutex
	stock map[int64]int
	down  error
	outs  int
}

func newFakeCounters() *fakeCounters {
	return &fakeCounters{stock: make(map[int64]int)}
}

func (c *fakeCounters) InitInventory(_ context.Context, id int64, available int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.down != nil {
		return c.down
	}
	c.stock[id] = available
	return nil
}

func (c *fakeCounters) GetAvailable(_ context.Context, id int64) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.down != nil {
		return 0, c.down
	}
	n, ok := c.stock[id]
	if !ok {
		return 0, fmt.Errorf("variant %d: %w", id, redisclient.ErrCounterMissing)
	}
	return n, nil
}

func (c *fakeCounters) StockIn(_ context.Context, id int64, q int) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.down != nil {
		return 0, c.down
	}
	c.stock[id] += q
	return c.stock[id], nil
}

func (c *fakeCounters) StockOut(_ context.Context, id int64, q int) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.down != nil {
		return 0, c.down
	}
	n, ok := c.stock[id]
	if !ok {
		return 0, redisclient.ErrCounterMissing
	}
	if n < q {
		return 0, redisclient.ErrInsufficientStock
	}
	c.outs++
	c.stock[id] = n - q
	return c.stock[id], nil
}

type memDrafts struct {
	mu     sync.Mutex
	drafts map[int64][]byte
}

func newMemDrafts() *memDrafts {
	return &memDrafts{drafts: make(map[int64][]byte)}
}

func (d *memDrafts) SaveDraft(_ context.Context, productID int64, payload []byte, _ time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.drafts[productID] = payload
	return nil
}

func (d *memDrafts) LoadDraft(_ context.Context, productID int64) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.drafts[productID], nil
}

func (d *memDrafts) DeleteDraft(_ context.Context, productID int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.drafts, productID)
	return nil
}

type fakeLocker struct {
	mu   sync.Mutex
	held map[string]bool
}

func newFakeLocker() *fakeLocker {
	return &fakeLocker{held: make(map[string]bool)}
}

func (l *fakeLocker) AcquireLock(_ context.Context, key string, _ time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] {
		return false, nil
	}
	l.held[key] = true
	return true, nil
}

func (l *fakeLocker) ReleaseLock(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, key)
	return nil
}

type fakeQuoter struct {
	mu     sync.Mutex
	quote  *pricing.ShippingQuote
	err    error
	calls  []ShippingRequest
	before func()
}

func (q *fakeQuoter) Quote(_ context.Context, req ShippingRequest) (*pricing.ShippingQuote, error) {
	if q.before != nil {
		q.before()
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.calls = append(q.calls, req)
	if q.err != nil {
		return nil, q.err
	}
	return q.quote, nil
}

// fakeCatalogStore keeps products, attributes and variants in memory
type fakeCatalogStore struct {
	nextID     int64
	products   map[int64]*models.Product
	attributes map[int64]*models.Attribute
	variants   map[int64][]models.Variant
	failCreate error
}

func newFakeCatalogStore() *fakeCatalogStore {
	return &fakeCatalogStore{
		products:   make(map[int64]*models.Product),
		attributes: make(map[int64]*models.Attribute),
		variants:   make(map[int64][]models.Variant),
	}
}

func (s *fakeCatalogStore) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *fakeCatalogStore) CreateProduct(_ context.Context, p *models.Product) error {
	for _, existing := range s.products {
		if existing.Slug == p.Slug {
			return store.ErrDuplicate
		}
	}
	p.ID = s.id()
	cp := *p
	s.products[p.ID] = &cp
	return nil
}

func (s *fakeCatalogStore) GetProductByID(_ context.Context, id int64) (*models.Product, error) {
	p, ok := s.products[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *fakeCatalogStore) ListProducts(_ context.Context, limit, offset int) ([]models.Product, error) {
	out := []models.Product{}
	for _, p := range s.products {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if offset >= len(out) {
		return []models.Product{}, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *fakeCatalogStore) CreateAttribute(_ context.Context, a *models.Attribute) error {
	for _, existing := range s.attributes {
		if existing.ProductID == a.ProductID && existing.Code == a.Code {
			return store.ErrDuplicate
		}
	}
	a.ID = s.id()
	cp := *a
	s.attributes[a.ID] = &cp
	return nil
}

func (s *fakeCatalogStore) GetAttribute(_ context.Context, id int64) (*models.Attribute, error) {
	a, ok := s.attributes[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *fakeCatalogStore) DeleteAttribute(_ context.Context, id int64) error {
	if _, ok := s.attributes[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.attributes, id)
	return nil
}

func (s *fakeCatalogStore) AddAttributeValue(_ context.Context, v *models.AttributeValue) error {
	a, ok := s.attributes[v.AttributeID]
	if !ok {
		return store.ErrNotFound
	}
	for _, existing := range a.Values {
		if existing.Value == v.Value {
			return store.ErrDuplicate
		}
	}
	v.ID = s.id()
	a.Values = append(a.Values, *v)
	return nil
}

func (s *fakeCatalogStore) DeleteAttributeValue(_ context.Context, attributeID, valueID int64) error {
	a, ok := s.attributes[attributeID]
	if !ok {
		return store.ErrNotFound
	}
	for i, v := range a.Values {
		if v.ID == valueID {
			a.Values = append(a.Values[:i], a.Values[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

func (s *fakeCatalogStore) GetAttributesByProductID(_ context.Context, productID int64) ([]models.Attribute, error) {
	out := []models.Attribute{}
	for _, a := range s.attributes {
		if a.ProductID == productID {
			cp := *a
			cp.Values = append([]models.AttributeValue{}, a.Values...)
			out = append(out, cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *fakeCatalogStore) CreateVariantsTx(_ context.Context, productID int64, rows []store.NewVariant) ([]models.Variant, error) {
	if s.failCreate != nil {
		return nil, s.failCreate
	}
	for _, r := range rows {
		for _, existing := range s.variants[productID] {
			if existing.CombinationKey == r.Variant.CombinationKey {
				return nil, store.ErrDuplicate
			}
		}
	}
	created := make([]models.Variant, len(rows))
	for i, r := range rows {
		v := r.Variant
		v.ID = s.id()
		v.ProductID = productID
		created[i] = v
	}
	s.variants[productID] = append(s.variants[productID], created...)
	return created, nil
}

func (s *fakeCatalogStore) ListVariantsByProduct(_ context.Context, productID int64) ([]models.Variant, error) {
	return append([]models.Variant{}, s.variants[productID]...), nil
}

// fakeCheckoutStore keeps carts, addresses, vouchers and orders in memory
type fakeCheckoutStore struct {
	mu         sync.Mutex
	carts      map[int64][]models.CartItem
	addresses  map[int64]*models.Address
	vouchers   map[int64]*models.Voucher
	orders     map[int64]*models.Order
	items      map[int64][]models.OrderItem
	nextID     int64
	voucherErr error
}

func newFakeCheckoutStore() *fakeCheckoutStore {
	return &fakeCheckoutStore{
		carts:     make(map[int64][]models.CartItem),
		addresses: make(map[int64]*models.Address),
		vouchers:  make(map[int64]*models.Voucher),
		orders:    make(map[int64]*models.Order),
		items:     make(map[int64][]models.OrderItem),
	}
}

func (s *fakeCheckoutStore) GetCartItems(_ context.Context, userID int64) ([]models.CartItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.CartItem{}, s.carts[userID]...), nil
}

func (s *fakeCheckoutStore) AddCartItem(_ context.Context, userID, variantID int64, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	s.carts[userID] = append(s.carts[userID], models.CartItem{ID: s.nextID, UserID: userID, VariantID: variantID, Quantity: quantity})
	return nil
}

func (s *fakeCheckoutStore) RemoveCartItem(_ context.Context, userID, itemID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, it := range s.carts[userID] {
		if it.ID == itemID {
			s.carts[userID] = append(s.carts[userID][:i], s.carts[userID][i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

func (s *fakeCheckoutStore) GetAddress(_ context.Context, userID, addressID int64) (*models.Address, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.addresses[addressID]
	if !ok || a.UserID != userID {
		return nil, store.ErrNotFound
	}
	return a, nil
}

func (s *fakeCheckoutStore) CreateAddress(_ context.Context, a *models.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	a.ID = s.nextID
	s.addresses[a.ID] = a
	return nil
}

func (s *fakeCheckoutStore) ListAddresses(_ context.Context, userID int64) ([]models.Address, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Address{}
	for _, a := range s.addresses {
		if a.UserID == userID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (s *fakeCheckoutStore) ListActiveVouchers(_ context.Context, _ time.Time) ([]models.Voucher, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.voucherErr != nil {
		return nil, s.voucherErr
	}
	out := []models.Voucher{}
	for _, v := range s.vouchers {
		out = append(out, *v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *fakeCheckoutStore) GetVoucherByID(_ context.Context, id int64) (*models.Voucher, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.vouchers[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return v, nil
}

func (s *fakeCheckoutStore) CreateVoucher(_ context.Context, v *models.Voucher) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.vouchers {
		if existing.Code == v.Code {
			return store.ErrDuplicate
		}
	}
	s.nextID++
	v.ID = s.nextID
	s.vouchers[v.ID] = v
	return nil
}

func (s *fakeCheckoutStore) CreateOrderTx(_ context.Context, order *models.Order, items []models.OrderItem, cartItemIDs []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	order.ID = s.nextID
	for i := range items {
		items[i].OrderID = order.ID
	}
	s.orders[order.ID] = order
	s.items[order.ID] = items

	drop := selection(cartItemIDs)
	kept := []models.CartItem{}
	for _, it := range s.carts[order.UserID] {
		if !drop[it.ID] {
			kept = append(kept, it)
		}
	}
	s.carts[order.UserID] = kept
	return nil
}

func (s *fakeCheckoutStore) GetOrderByIdempotencyKey(_ context.Context, userID int64, key string) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.orders {
		if o.UserID == userID && o.IdempotencyKey == key {
			return o, nil
		}
	}
	return nil, nil
}

func (s *fakeCheckoutStore) GetOrderByID(_ context.Context, id int64) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (s *fakeCheckoutStore) GetOrderItemsByOrderID(_ context.Context, orderID int64) ([]models.OrderItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items[orderID], nil
}

func (s *fakeCheckoutStore) GetOrdersByUserID(_ context.Context, userID int64) ([]models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Order{}
	for _, o := range s.orders {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (s *fakeCheckoutStore) UpdateOrderStatus(_ context.Context, orderID int64, from, to string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderID]
	if !ok || o.Status != from {
		return store.ErrNotFound
	}
	o.Status = to
	return nil
}

// fakeInventoryStore is the stock of record
type fakeInventoryStore struct {
	stock     map[int64]int
	movements []models.StockMovement
	processed map[string]bool
	failMove  error
}

func newFakeInventoryStore(stock map[int64]int) *fakeInventoryStore {
	return &fakeInventoryStore{stock: stock, processed: make(map[string]bool)}
}

func (s *fakeInventoryStore) GetVariant(_ context.Context, id int64) (*models.Variant, error) {
	n, ok := s.stock[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &models.Variant{ID: id, Stock: n}, nil
}

func (s *fakeInventoryStore) MoveStockTx(_ context.Context, m *models.StockMovement) (int, error) {
	if s.failMove != nil {
		return 0, s.failMove
	}
	n, ok := s.stock[m.VariantID]
	if !ok {
		return 0, store.ErrNotFound
	}
	if m.Direction == models.StockOut {
		if n < m.Quantity {
			return 0, store.ErrInsufficientStock
		}
		n -= m.Quantity
	} else {
		n += m.Quantity
	}
	s.stock[m.VariantID] = n
	m.ID = int64(len(s.movements) + 1)
	s.movements = append(s.movements, *m)
	return n, nil
}

func (s *fakeInventoryStore) ListStockMovements(_ context.Context, variantID int64, limit int) ([]models.StockMovement, error) {
	out := []models.StockMovement{}
	for i := len(s.movements) - 1; i >= 0 && len(out) < limit; i-- {
		if s.movements[i].VariantID == variantID {
			out = append(out, s.movements[i])
		}
	}
	return out, nil
}

func (s *fakeInventoryStore) ListOrderStockMovements(_ context.Context, orderID int64, direction string) ([]models.StockMovement, error) {
	out := []models.StockMovement{}
	for _, m := range s.movements {
		if m.OrderID != nil && *m.OrderID == orderID && m.Direction == direction {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *fakeInventoryStore) GetAllVariantStock(_ context.Context) (map[int64]int, error) {
	out := make(map[int64]int, len(s.stock))
	for id, n := range s.stock {
		out[id] = n
	}
	return out, nil
}

func (s *fakeInventoryStore) IsEventProcessed(_ context.Context, eventID string) (bool, error) {
	return s.processed[eventID], nil
}

func (s *fakeInventoryStore) MarkEventProcessed(_ context.Context, eventID, _ string) error {
	s.processed[eventID] = true
	return nil
}

type fakeContactStore struct {
	messages []models.ContactMessage
}

func (s *fakeContactStore) CreateContactMessage(_ context.Context, m *models.ContactMessage) error {
	m.ID = int64(len(s.messages) + 1)
	s.messages = append(s.messages, *m)
	return nil
}

func (s *fakeContactStore) ListContactMessages(_ context.Context, unreadOnly bool, limit, offset int) ([]models.ContactMessage, error) {
	out := []models.ContactMessage{}
	for _, m := range s.messages {
		if !unreadOnly || !m.IsRead {
			out = append(out, m)
		}
	}
	if offset >= len(out) {
		return []models.ContactMessage{}, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *fakeContactStore) MarkContactMessageRead(_ context.Context, id int64) error {
	for i := range s.messages {
		if s.messages[i].ID == id {
			s.messages[i].IsRead = true
			return nil
		}
	}
	return store.ErrNotFound
}
