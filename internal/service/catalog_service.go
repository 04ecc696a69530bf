package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"storefront-service/config"
	"storefront-service/internal/apperr"
	"storefront-service/internal/broker"
	"storefront-service/internal/models"
	"storefront-service/internal/store"
	"storefront-service/internal/util"
	"storefront-service/internal/variant"

	"go.uber.org/zap"
)

const (
	defaultPageSize        = 20
	maxPageSize            = 100
	defaultMaxCombinations = 1000

	draftLockTTL      = 10 * time.Second
	draftLockAttempts = 10
	draftLockWait     = 20 * time.Millisecond
)

// CatalogService manages products, their attributes and the variant drafts
// admins build on top of them
type CatalogService struct {
	store     CatalogStore
	drafts    DraftStore
	stock     StockCounters
	locker    Locker
	publisher Publisher
	draftTTL  time.Duration
	maxRows   int
	lockWait  time.Duration
	logger    *zap.Logger
}

// NewCatalogService creates a new catalog service
func NewCatalogService(
	store CatalogStore,
	drafts DraftStore,
	stock StockCounters,
	locker Locker,
	publisher Publisher,
	business config.BusinessConfig,
) *CatalogService {
	maxRows := business.MaxCombinations
	if maxRows <= 0 {
		maxRows = defaultMaxCombinations
	}
	return &CatalogService{
		store:     store,
		drafts:    drafts,
		stock:     stock,
		locker:    locker,
		publisher: publisher,
		draftTTL:  business.VariantDraftTTL,
		maxRows:   maxRows,
		lockWait:  draftLockWait,
		logger:    util.GetLogger(),
	}
}

// CreateProductRequest represents a request to create a product
type CreateProductRequest struct {
	Name        string `json:"name" binding:"required,max=255"`
	Slug        string `json:"slug,omitempty" binding:"omitempty,max=255"`
	Description string `json:"description"`
	BasePrice   int64  `json:"base_price" binding:"min=0"`
	Thumbnail   string `json:"thumbnail"`
}

// CreateAttributeRequest represents a request to add an attribute to a product
type CreateAttributeRequest struct {
	Code     string `json:"code" binding:"required,max=64"`
	Name     string `json:"name" binding:"required,max=128"`
	Position int    `json:"position"`
}

// AddValueRequest represents a request to add a value to an attribute
type AddValueRequest struct {
	Value    string `json:"value" binding:"required,max=128"`
	Position int    `json:"position"`
}

// DraftView is the current state of a product's variant draft
type DraftView struct {
	ProductID  int64                         `json:"product_id"`
	Attributes []variant.AttributeDefinition `json:"attributes"`
	Picks      variant.Picks                 `json:"picks"`
	Rows       []variant.Candidate           `json:"rows"`
}

// PreviewRequest generates candidate rows without touching any draft
type PreviewRequest struct {
	Attributes []variant.AttributeDefinition `json:"attributes"`
	Picks      variant.Picks                 `json:"picks"`
	Overrides  map[string]variant.Override   `json:"overrides"`
}

func notFound(err error, msg string) error {
	if errors.Is(err, store.ErrNotFound) {
		return apperr.NotFoundErr(msg)
	}
	return apperr.Wrap(err)
}

func pageBounds(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// CreateProduct creates a product. The slug is derived from the name when not given.
func (s *CatalogService) CreateProduct(ctx context.Context, req *CreateProductRequest) (*models.Product, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.CreateProduct")
	defer span.End()

	slug := util.Slug(req.Slug)
	if strings.TrimSpace(req.Slug) == "" {
		slug = util.Slug(req.Name)
	}

	product := &models.Product{
		Name:        strings.TrimSpace(req.Name),
		Slug:        slug,
		Description: req.Description,
		BasePrice:   req.BasePrice,
		Thumbnail:   req.Thumbnail,
	}

	if err := s.store.CreateProduct(ctx, product); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperr.ConflictErr(fmt.Sprintf("A product with slug %q already exists", slug))
		}
		return nil, apperr.Wrap(util.RecordError(span, err))
	}

	s.logger.Info("Product created", zap.Int64("product_id", product.ID), zap.String("slug", slug))
	return product, nil
}

// GetProduct retrieves a product by ID
func (s *CatalogService) GetProduct(ctx context.Context, productID int64) (*models.Product, error) {
	product, err := s.store.GetProductByID(ctx, productID)
	if err != nil {
		return nil, notFound(err, "Product not found")
	}
	return product, nil
}

// ListProducts returns a page of products, newest first
func (s *CatalogService) ListProducts(ctx context.Context, limit, offset int) ([]models.Product, error) {
	limit, offset = pageBounds(limit, offset)
	products, err := s.store.ListProducts(ctx, limit, offset)
	if err != nil {
		return nil, apperr.Wrap(err)
	}
	return products, nil
}

// CreateAttribute adds an axis of variation to a product
func (s *CatalogService) CreateAttribute(ctx context.Context, productID int64, req *CreateAttributeRequest) (*models.Attribute, error) {
	if _, err := s.GetProduct(ctx, productID); err != nil {
		return nil, err
	}

	attr := &models.Attribute{
		ProductID: productID,
		Code:      strings.TrimSpace(req.Code),
		Name:      strings.TrimSpace(req.Name),
		Position:  req.Position,
	}
	if err := s.store.CreateAttribute(ctx, attr); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperr.ConflictErr(fmt.Sprintf("Attribute %q already exists on this product", attr.Code))
		}
		return nil, apperr.Wrap(err)
	}
	attr.Values = []models.AttributeValue{}
	return attr, nil
}

// DeleteAttribute removes an attribute with all its values
func (s *CatalogService) DeleteAttribute(ctx context.Context, attributeID int64) error {
	if err := s.store.DeleteAttribute(ctx, attributeID); err != nil {
		return notFound(err, "Attribute not found")
	}
	return nil
}

// AddAttributeValue adds a selectable value to an attribute
func (s *CatalogService) AddAttributeValue(ctx context.Context, attributeID int64, req *AddValueRequest) (*models.AttributeValue, error) {
	if _, err := s.store.GetAttribute(ctx, attributeID); err != nil {
		return nil, notFound(err, "Attribute not found")
	}

	value := &models.AttributeValue{
		AttributeID: attributeID,
		Value:       strings.TrimSpace(req.Value),
		Position:    req.Position,
	}
	if err := s.store.AddAttributeValue(ctx, value); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperr.ConflictErr(fmt.Sprintf("Value %q already exists on this attribute", value.Value))
		}
		return nil, apperr.Wrap(err)
	}
	return value, nil
}

// DeleteAttributeValue removes a value. Variants already created from it are
// left alone; drafts drop it on their next regeneration.
func (s *CatalogService) DeleteAttributeValue(ctx context.Context, attributeID, valueID int64) error {
	if err := s.store.DeleteAttributeValue(ctx, attributeID, valueID); err != nil {
		return notFound(err, "Attribute value not found")
	}
	return nil
}

// ListAttributes returns a product's attributes with their values
func (s *CatalogService) ListAttributes(ctx context.Context, productID int64) ([]models.Attribute, error) {
	attrs, err := s.store.GetAttributesByProductID(ctx, productID)
	if err != nil {
		return nil, apperr.Wrap(err)
	}
	return attrs, nil
}

// ListVariants returns the persisted variants of a product
func (s *CatalogService) ListVariants(ctx context.Context, productID int64) ([]models.Variant, error) {
	variants, err := s.store.ListVariantsByProduct(ctx, productID)
	if err != nil {
		return nil, apperr.Wrap(err)
	}
	return variants, nil
}

// checkSize rejects selections that expand to more rows than allowed
func (s *CatalogService) checkSize(attrs []variant.AttributeDefinition, picks variant.Picks) error {
	if n := variant.Count(attrs, picks); n > s.maxRows {
		return apperr.InvalidErr("Too many variant combinations", map[string]string{
			"picks": fmt.Sprintf("must produce at most %d combinations", s.maxRows),
		})
	}
	return nil
}

// Preview generates candidate rows from the request alone
func (s *CatalogService) Preview(req *PreviewRequest) ([]variant.Candidate, error) {
	if err := s.checkSize(req.Attributes, req.Picks); err != nil {
		return nil, err
	}
	rows := variant.ApplyOverrides(variant.Generate(req.Attributes, req.Picks), req.Overrides)
	util.VariantCandidatesGenerated.Observe(float64(len(rows)))
	return rows, nil
}

func definitions(attrs []models.Attribute) []variant.AttributeDefinition {
	defs := make([]variant.AttributeDefinition, len(attrs))
	for i, a := range attrs {
		values := make([]variant.AttributeValue, len(a.Values))
		for j, v := range a.Values {
			values[j] = variant.AttributeValue{ID: v.ID, Value: v.Value}
		}
		defs[i] = variant.AttributeDefinition{ID: a.ID, Code: a.Code, Name: a.Name, Values: values}
	}
	return defs
}

// loadMatrix restores the product's draft over its current attributes
func (s *CatalogService) loadMatrix(ctx context.Context, productID int64) (*variant.Matrix, error) {
	if _, err := s.GetProduct(ctx, productID); err != nil {
		return nil, err
	}

	attrs, err := s.store.GetAttributesByProductID(ctx, productID)
	if err != nil {
		return nil, apperr.Wrap(err)
	}
	defs := definitions(attrs)

	raw, err := s.drafts.LoadDraft(ctx, productID)
	if err != nil {
		return nil, apperr.Wrap(fmt.Errorf("failed to load variant draft: %w", err))
	}
	if raw == nil {
		return variant.NewMatrix(productID, defs), nil
	}

	var m variant.Matrix
	if err := json.Unmarshal(raw, &m); err != nil {
		s.logger.Warn("Discarding unreadable variant draft",
			zap.Int64("product_id", productID),
			zap.Error(err))
		return variant.NewMatrix(productID, defs), nil
	}
	m.ProductID = productID
	m.SetAttributes(defs)
	if err := s.checkSize(m.Attributes, m.Picks); err != nil {
		return nil, err
	}
	return &m, nil
}

// lockDraft serializes read-modify-write cycles on one product's draft. The
// returned func releases the lock.
func (s *CatalogService) lockDraft(ctx context.Context, productID int64) (func(), error) {
	key := fmt.Sprintf("variant_draft:%d", productID)
	for attempt := 1; ; attempt++ {
		locked, err := s.locker.AcquireLock(ctx, key, draftLockTTL)
		if err != nil {
			return nil, apperr.Wrap(fmt.Errorf("failed to lock variant draft: %w", err))
		}
		if locked {
			return func() {
				if err := s.locker.ReleaseLock(ctx, key); err != nil {
					s.logger.Warn("Failed to release draft lock", zap.String("lock", key), zap.Error(err))
				}
			}, nil
		}
		if attempt >= draftLockAttempts {
			return nil, apperr.ConflictErr("The variant draft is being edited, please retry")
		}

		select {
		case <-ctx.Done():
			return nil, apperr.Wrap(ctx.Err())
		case <-time.After(s.lockWait):
		}
	}
}

func (s *CatalogService) saveMatrix(ctx context.Context, m *variant.Matrix) error {
	raw, err := json.Marshal(m)
	if err != nil {
		return apperr.Wrap(err)
	}
	if err := s.drafts.SaveDraft(ctx, m.ProductID, raw, s.draftTTL); err != nil {
		return apperr.Wrap(fmt.Errorf("failed to save variant draft: %w", err))
	}
	return nil
}

func view(m *variant.Matrix) *DraftView {
	rows := m.Rows()
	util.VariantCandidatesGenerated.Observe(float64(len(rows)))
	return &DraftView{
		ProductID:  m.ProductID,
		Attributes: m.Attributes,
		Picks:      m.Picks,
		Rows:       rows,
	}
}

// Draft returns the product's draft with freshly generated rows
func (s *CatalogService) Draft(ctx context.Context, productID int64) (*DraftView, error) {
	m, err := s.loadMatrix(ctx, productID)
	if err != nil {
		return nil, err
	}
	return view(m), nil
}

// ToggleValue flips whether a value is picked in the product's draft
func (s *CatalogService) ToggleValue(ctx context.Context, productID, attributeID, valueID int64) (*DraftView, error) {
	unlock, err := s.lockDraft(ctx, productID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	m, err := s.loadMatrix(ctx, productID)
	if err != nil {
		return nil, err
	}

	if !hasValue(m.Attributes, attributeID, valueID) {
		return nil, apperr.NotFoundErr("Attribute value not found on this product")
	}

	m.Toggle(attributeID, valueID)
	if err := s.checkSize(m.Attributes, m.Picks); err != nil {
		return nil, err
	}
	if err := s.saveMatrix(ctx, m); err != nil {
		return nil, err
	}
	return view(m), nil
}

func hasValue(defs []variant.AttributeDefinition, attributeID, valueID int64) bool {
	for _, d := range defs {
		if d.ID != attributeID {
			continue
		}
		for _, v := range d.Values {
			if v.ID == valueID {
				return true
			}
		}
	}
	return false
}

// StageRow records an edit to one generated row of the draft
func (s *CatalogService) StageRow(ctx context.Context, productID int64, key string, o variant.Override) (*DraftView, error) {
	unlock, err := s.lockDraft(ctx, productID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	m, err := s.loadMatrix(ctx, productID)
	if err != nil {
		return nil, err
	}

	if err := m.Stage(key, o); err != nil {
		if errors.Is(err, variant.ErrUnknownRow) {
			return nil, apperr.NotFoundErr("Variant row not found in the current selection")
		}
		return nil, apperr.Wrap(err)
	}
	if err := s.saveMatrix(ctx, m); err != nil {
		return nil, err
	}
	return view(m), nil
}

// ResetDraft discards the product's draft
func (s *CatalogService) ResetDraft(ctx context.Context, productID int64) error {
	if err := s.drafts.DeleteDraft(ctx, productID); err != nil {
		return apperr.Wrap(err)
	}
	return nil
}

// SaveVariants creates a variant for every checked row of the draft. All
// rows are created in one transaction; on success the draft is discarded.
func (s *CatalogService) SaveVariants(ctx context.Context, productID int64) ([]models.Variant, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.SaveVariants")
	defer span.End()

	product, err := s.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	unlock, err := s.lockDraft(ctx, productID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	m, err := s.loadMatrix(ctx, productID)
	if err != nil {
		return nil, err
	}

	payloads, err := variant.BuildBulkCreate(m.Rows())
	if err != nil {
		if errors.Is(err, variant.ErrNoVariantSelected) {
			return nil, apperr.InvalidWrap(err)
		}
		return nil, apperr.Wrap(err)
	}

	rows := make([]store.NewVariant, len(payloads))
	for i, p := range payloads {
		valueIDs := make([]int64, len(p.Values))
		for j, ref := range p.Values {
			valueIDs[j] = ref.ID
		}
		name := p.Name
		if name == "" {
			name = product.Name + " " + p.Combination
		}
		rows[i] = store.NewVariant{
			Variant: models.Variant{
				SKU:            SKU(product.Slug, p.Key),
				Name:           name,
				Combination:    p.Combination,
				CombinationKey: p.Key,
				Price:          p.Price,
				Stock:          p.Stock,
				Thumbnail:      p.Thumbnail,
			},
			ValueIDs: valueIDs,
		}
	}

	created, err := s.store.CreateVariantsTx(ctx, productID, rows)
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperr.ConflictErr("Some of these variants already exist")
		}
		return nil, apperr.Wrap(util.RecordError(span, err))
	}

	util.VariantsCreatedTotal.Add(float64(len(created)))
	s.logger.Info("Variants created",
		zap.Int64("product_id", productID),
		zap.Int("count", len(created)))

	ids := make([]int64, len(created))
	for i, v := range created {
		ids[i] = v.ID
		if err := s.stock.InitInventory(ctx, v.ID, v.Stock); err != nil {
			s.logger.Error("Failed to seed stock counter",
				zap.Int64("variant_id", v.ID),
				zap.Error(err))
		}
	}

	event := &models.VariantsCreatedEvent{
		BaseEvent:  broker.NewBaseEvent(models.EventTypeVariantsCreated),
		ProductID:  productID,
		VariantIDs: ids,
	}
	if err := s.publisher.PublishVariantsCreated(ctx, event); err != nil {
		s.logger.Error("Failed to publish VariantsCreated event", zap.Error(err))
	}

	if err := s.drafts.DeleteDraft(ctx, productID); err != nil {
		s.logger.Warn("Failed to discard variant draft", zap.Int64("product_id", productID), zap.Error(err))
	}

	return created, nil
}

// SKU builds a variant SKU from the product slug and combination key
func SKU(productSlug, key string) string {
	return strings.ToUpper(productSlug) + "-" + key
}
