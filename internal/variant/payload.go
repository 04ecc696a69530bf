package variant

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

// ErrNoVariantSelected is returned when saving with no checked rows
var ErrNoVariantSelected = errors.New("no variant selected")

// ValueRef references an attribute value by ID
type ValueRef struct {
	ID int64 `json:"id"`
}

// CreatePayload is the persistence shape of one variant in a bulk create
type CreatePayload struct {
	Key         string     `json:"combination_key"`
	Values      []ValueRef `json:"values"`
	Combination string     `json:"combination"`
	Name        string     `json:"name"`
	Price       int64      `json:"price"`
	Stock       int        `json:"stock"`
	Thumbnail   string     `json:"thumbnail"`
}

// BuildBulkCreate maps the checked rows to create payloads. Price and stock
// input that does not parse as a non-negative number becomes 0.
func BuildBulkCreate(rows []Candidate) ([]CreatePayload, error) {
	payloads := make([]CreatePayload, 0, len(rows))
	for _, row := range rows {
		if !row.Checked {
			continue
		}

		refs := make([]ValueRef, len(row.Values))
		for i, v := range row.Values {
			refs[i] = ValueRef{ID: v.ID}
		}

		payloads = append(payloads, CreatePayload{
			Key:         row.Key,
			Values:      refs,
			Combination: row.Combination,
			Name:        strings.TrimSpace(row.Name),
			Price:       ParseAmount(row.Price),
			Stock:       ParseQuantity(row.Stock),
			Thumbnail:   row.Thumbnail,
		})
	}

	if len(payloads) == 0 {
		return nil, ErrNoVariantSelected
	}
	return payloads, nil
}

// ParseAmount parses s as a non-negative whole number, truncating any
// fraction. Anything else yields 0.
func ParseAmount(s string) int64 {
	return parseBounded(s, math.MaxInt64)
}

// ParseQuantity is ParseAmount bounded to a 32-bit stock column
func ParseQuantity(s string) int {
	return int(parseBounded(s, math.MaxInt32))
}

func parseBounded(s string, limit int64) int64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n < 0 || n > limit {
			return 0
		}
		return n
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || f < 0 || f >= float64(limit) {
		return 0
	}
	return int64(f)
}
