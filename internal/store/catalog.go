package store

import (
	"context"
	"fmt"

	"storefront-service/internal/models"
)

// CreateAttribute creates an attribute for a product
func (s *Store) CreateAttribute(ctx context.Context, a *models.Attribute) error {
	query := `
		INSERT INTO attributes (product_id, code, name, position)
		VALUES ($1, $2, $3, COALESCE((SELECT MAX(position) + 1 FROM attributes WHERE product_id = $1), 0))
		RETURNING id, position`

	err := s.db.GetContext(ctx, a, query, a.ProductID, a.Code, a.Name)
	return translate(err, "attribute")
}

// GetAttribute retrieves an attribute without its values
func (s *Store) GetAttribute(ctx context.Context, id int64) (*models.Attribute, error) {
	var a models.Attribute
	err := s.db.GetContext(ctx, &a,
		"SELECT id, product_id, code, name, position FROM attributes WHERE id = $1", id)
	if err != nil {
		return nil, translate(err, fmt.Sprintf("attribute %d", id))
	}
	return &a, nil
}

// DeleteAttribute removes an attribute and its values
func (s *Store) DeleteAttribute(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM attributes WHERE id = $1", id)
	if err != nil {
		return err
	}
	return expectRow(res, fmt.Sprintf("attribute %d", id))
}

// AddAttributeValue appends a value to an attribute
func (s *Store) AddAttributeValue(ctx context.Context, v *models.AttributeValue) error {
	query := `
		INSERT INTO attribute_values (attribute_id, value, position)
		VALUES ($1, $2, COALESCE((SELECT MAX(position) + 1 FROM attribute_values WHERE attribute_id = $1), 0))
		RETURNING id, position`

	err := s.db.GetContext(ctx, v, query, v.AttributeID, v.Value)
	return translate(err, "attribute value")
}

// DeleteAttributeValue removes a value. Variants already built from it keep
// their link rows.
func (s *Store) DeleteAttributeValue(ctx context.Context, attributeID, valueID int64) error {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM attribute_values WHERE id = $1 AND attribute_id = $2", valueID, attributeID)
	if err != nil {
		return err
	}
	return expectRow(res, fmt.Sprintf("attribute value %d", valueID))
}

// GetAttributesByProductID retrieves a product's attributes with their values,
// both in position order
func (s *Store) GetAttributesByProductID(ctx context.Context, productID int64) ([]models.Attribute, error) {
	attrs := []models.Attribute{}
	err := s.db.SelectContext(ctx, &attrs,
		"SELECT id, product_id, code, name, position FROM attributes WHERE product_id = $1 ORDER BY position, id",
		productID)
	if err != nil {
		return nil, err
	}

	values := []models.AttributeValue{}
	err = s.db.SelectContext(ctx, &values, `
		SELECT v.id, v.attribute_id, v.value, v.position
		FROM attribute_values v
		JOIN attributes a ON a.id = v.attribute_id
		WHERE a.product_id = $1
		ORDER BY v.position, v.id`, productID)
	if err != nil {
		return nil, err
	}

	index := make(map[int64]int, len(attrs))
	for i := range attrs {
		attrs[i].Values = []models.AttributeValue{}
		index[attrs[i].ID] = i
	}
	for _, v := range values {
		if i, ok := index[v.AttributeID]; ok {
			attrs[i].Values = append(attrs[i].Values, v)
		}
	}
	return attrs, nil
}

// NewVariant is one row of a bulk variant create
type NewVariant struct {
	Variant  models.Variant
	ValueIDs []int64
}

// CreateVariantsTx inserts all variants and their value links in one
// transaction. Either every variant is created or none is.
func (s *Store) CreateVariantsTx(ctx context.Context, productID int64, rows []NewVariant) ([]models.Variant, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	created := make([]models.Variant, 0, len(rows))
	for _, row := range rows {
		v := row.Variant
		v.ProductID = productID

		err := tx.GetContext(ctx, &v, `
			INSERT INTO variants (product_id, sku, name, combination, combination_key, price, stock, thumbnail)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING id, created_at, updated_at`,
			v.ProductID, v.SKU, v.Name, v.Combination, v.CombinationKey, v.Price, v.Stock, v.Thumbnail)
		if err != nil {
			return nil, translate(err, fmt.Sprintf("variant %s", v.Combination))
		}

		for _, valueID := range row.ValueIDs {
			_, err := tx.ExecContext(ctx,
				"INSERT INTO variant_values (variant_id, attribute_value_id) VALUES ($1, $2)",
				v.ID, valueID)
			if err != nil {
				return nil, fmt.Errorf("failed to link variant value: %w", err)
			}
		}

		created = append(created, v)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return created, nil
}

type rowsAffected interface {
	RowsAffected() (int64, error)
}

func expectRow(res rowsAffected, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return nil
}
