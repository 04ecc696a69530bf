// Package variant turns a product's attribute definitions and the values an
// admin picked for each of them into the candidate SKU rows offered for bulk
// creation.
package variant

import (
	"math"
	"sort"
	"strconv"
	"strings"
)

const (
	// CombinationSeparator joins value labels for display, e.g. "Red / 256GB".
	CombinationSeparator = " / "
	// KeySeparator joins value IDs into a row identity key, e.g. "3-7".
	KeySeparator = "-"
)

// AttributeValue is one selectable option within an attribute
type AttributeValue struct {
	ID    int64  `json:"id"`
	Value string `json:"value"`
}

// AttributeDefinition is one named axis of variation with its values
type AttributeDefinition struct {
	ID     int64            `json:"id"`
	Code   string           `json:"code"`
	Name   string           `json:"name"`
	Values []AttributeValue `json:"values"`
}

// Candidate is a generated variant row. Price and Stock hold the raw input
// the admin typed; they are only coerced to numbers on save.
type Candidate struct {
	Key         string           `json:"id"`
	Values      []AttributeValue `json:"values"`
	Combination string           `json:"combination"`
	Name        string           `json:"name"`
	Price       string           `json:"price"`
	Stock       string           `json:"stock"`
	Checked     bool             `json:"checked"`
	Thumbnail   string           `json:"thumbnail"`
}

// Picks maps an attribute ID to the set of value IDs picked for it
type Picks map[int64]map[int64]bool

// Has reports whether valueID is picked for attributeID
func (p Picks) Has(attributeID, valueID int64) bool {
	return p[attributeID][valueID]
}

// Set picks or unpicks a value
func (p Picks) Set(attributeID, valueID int64, picked bool) {
	if !picked {
		delete(p[attributeID], valueID)
		if len(p[attributeID]) == 0 {
			delete(p, attributeID)
		}
		return
	}
	if p[attributeID] == nil {
		p[attributeID] = make(map[int64]bool)
	}
	p[attributeID][valueID] = true
}

// Generate returns the Cartesian product of the picked values of every
// attribute, in attribute order. If any attribute resolves to no picked
// values, or there are no attributes, the result is empty: partial
// selections never produce rows.
func Generate(attrs []AttributeDefinition, picks Picks) []Candidate {
	if len(attrs) == 0 {
		return []Candidate{}
	}

	lists := make([][]AttributeValue, 0, len(attrs))
	for _, attr := range attrs {
		resolved := resolve(attr, picks[attr.ID])
		if len(resolved) == 0 {
			return []Candidate{}
		}
		lists = append(lists, resolved)
	}

	tuples := cartesian(lists)
	rows := make([]Candidate, 0, len(tuples))
	for _, tuple := range tuples {
		rows = append(rows, newCandidate(tuple))
	}
	return rows
}

// Count returns how many rows Generate would produce without expanding them.
// The product saturates at math.MaxInt.
func Count(attrs []AttributeDefinition, picks Picks) int {
	if len(attrs) == 0 {
		return 0
	}
	n := 1
	for _, attr := range attrs {
		k := len(resolve(attr, picks[attr.ID]))
		if k == 0 {
			return 0
		}
		if n > math.MaxInt/k {
			n = math.MaxInt
			continue
		}
		n *= k
	}
	return n
}

// resolve keeps the attribute's values that are picked, in the attribute's
// own value order. Picked IDs that no longer exist on the attribute are dropped.
func resolve(attr AttributeDefinition, picked map[int64]bool) []AttributeValue {
	if len(picked) == 0 {
		return nil
	}
	out := make([]AttributeValue, 0, len(picked))
	seen := make(map[int64]bool, len(picked))
	for _, v := range attr.Values {
		if picked[v.ID] && !seen[v.ID] {
			seen[v.ID] = true
			out = append(out, v)
		}
	}
	return out
}

func cartesian(lists [][]AttributeValue) [][]AttributeValue {
	tuples := [][]AttributeValue{{}}
	for _, list := range lists {
		next := make([][]AttributeValue, 0, len(tuples)*len(list))
		for _, prefix := range tuples {
			for _, v := range list {
				tuple := make([]AttributeValue, len(prefix), len(prefix)+1)
				copy(tuple, prefix)
				next = append(next, append(tuple, v))
			}
		}
		tuples = next
	}
	return tuples
}

func newCandidate(tuple []AttributeValue) Candidate {
	labels := make([]string, len(tuple))
	for i, v := range tuple {
		labels[i] = v.Value
	}
	return Candidate{
		Key:         Key(tuple),
		Values:      tuple,
		Combination: strings.Join(labels, CombinationSeparator),
		Name:        "",
		Price:       "0",
		Stock:       "0",
		Checked:     true,
		Thumbnail:   "",
	}
}

// Key derives the identity key of a combination: value IDs in ascending
// order joined by KeySeparator. The same set of values always yields the
// same key.
func Key(values []AttributeValue) string {
	ids := make([]int64, len(values))
	for i, v := range values {
		ids[i] = v.ID
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, KeySeparator)
}
