package variant

import "errors"

// ErrUnknownRow is returned when staging an edit for a row that is not part
// of the current combination set.
var ErrUnknownRow = errors.New("variant row not in current selection")

// Override is a staged edit of a candidate row. Nil fields keep the default.
type Override struct {
	Name      *string `json:"name,omitempty"`
	Price     *string `json:"price,omitempty"`
	Stock     *string `json:"stock,omitempty"`
	Checked   *bool   `json:"checked,omitempty"`
	Thumbnail *string `json:"thumbnail,omitempty"`
}

// merge lays o on top of base, field by field
func (o Override) merge(base Override) Override {
	if o.Name != nil {
		base.Name = o.Name
	}
	if o.Price != nil {
		base.Price = o.Price
	}
	if o.Stock != nil {
		base.Stock = o.Stock
	}
	if o.Checked != nil {
		base.Checked = o.Checked
	}
	if o.Thumbnail != nil {
		base.Thumbnail = o.Thumbnail
	}
	return base
}

func (o Override) apply(c *Candidate) {
	if o.Name != nil {
		c.Name = *o.Name
	}
	if o.Price != nil {
		c.Price = *o.Price
	}
	if o.Stock != nil {
		c.Stock = *o.Stock
	}
	if o.Checked != nil {
		c.Checked = *o.Checked
	}
	if o.Thumbnail != nil {
		c.Thumbnail = *o.Thumbnail
	}
}

// ApplyOverrides merges staged edits onto rows by key. Rows are modified in place
// and returned for convenience.
func ApplyOverrides(rows []Candidate, overrides map[string]Override) []Candidate {
	for i := range rows {
		if o, ok := overrides[rows[i].Key]; ok {
			o.apply(&rows[i])
		}
	}
	return rows
}

// Matrix is an in-progress variant draft for one product: the attribute
// definitions, what is picked and the edits staged so far. Edits are keyed
// by combination key, so they survive any amount of re-picking.
type Matrix struct {
	ProductID  int64                 `json:"product_id"`
	Attributes []AttributeDefinition `json:"attributes"`
	Picks      Picks                 `json:"picks"`
	Overrides  map[string]Override   `json:"overrides"`
}

// NewMatrix returns an empty draft over attrs
func NewMatrix(productID int64, attrs []AttributeDefinition) *Matrix {
	return &Matrix{
		ProductID:  productID,
		Attributes: attrs,
		Picks:      make(Picks),
		Overrides:  make(map[string]Override),
	}
}

// SetAttributes replaces the attribute definitions, e.g. after an attribute
// value was deleted. Picks pointing at removed values are ignored by Generate.
func (m *Matrix) SetAttributes(attrs []AttributeDefinition) {
	m.Attributes = attrs
}

// Toggle flips a value's picked state and returns the new state
func (m *Matrix) Toggle(attributeID, valueID int64) bool {
	m.ensure()
	picked := !m.Picks.Has(attributeID, valueID)
	m.Picks.Set(attributeID, valueID, picked)
	return picked
}

// Pick sets a value's picked state explicitly
func (m *Matrix) Pick(attributeID, valueID int64, picked bool) {
	m.ensure()
	m.Picks.Set(attributeID, valueID, picked)
}

// Stage records an edit for the row with the given key. Later edits to the
// same row are merged over earlier ones.
func (m *Matrix) Stage(key string, o Override) error {
	m.ensure()
	for _, row := range Generate(m.Attributes, m.Picks) {
		if row.Key == key {
			m.Overrides[key] = o.merge(m.Overrides[key])
			return nil
		}
	}
	return ErrUnknownRow
}

// Rows regenerates the candidate rows and merges staged edits
func (m *Matrix) Rows() []Candidate {
	return ApplyOverrides(Generate(m.Attributes, m.Picks), m.Overrides)
}

func (m *Matrix) ensure() {
	if m.Picks == nil {
		m.Picks = make(Picks)
	}
	if m.Overrides == nil {
		m.Overrides = make(map[string]Override)
	}
}
