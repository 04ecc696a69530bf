package variant

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildBulkCreateCheckedOnly(t *testing.T) {
	rows := []Candidate{
		{Key: "3-11", Values: []AttributeValue{{ID: 3, Value: "Blue"}, {ID: 11, Value: "128GB"}},
			Combination: "Blue / 128GB", Name: "  Blue 128  ", Price: "199000", Stock: "12", Checked: true, Thumbnail: "b.png"},
		{Key: "7-11", Values: []AttributeValue{{ID: 7, Value: "Red"}, {ID: 11, Value: "128GB"}},
			Combination: "Red / 128GB", Price: "1", Stock: "1", Checked: false},
	}

	payloads, err := BuildBulkCreate(rows)
	require.NoError(t, err)
	require.Len(t, payloads, 1)

	p := payloads[0]
	assert.Equal(t, "3-11", p.Key)
	assert.Equal(t, []ValueRef{{ID: 3}, {ID: 11}}, p.Values)
	assert.Equal(t, "Blue / 128GB", p.Combination)
	assert.Equal(t, "Blue 128", p.Name)
	assert.Equal(t, int64(199000), p.Price)
	assert.Equal(t, 12, p.Stock)
	assert.Equal(t, "b.png", p.Thumbnail)
}

func TestBuildBulkCreateNothingSelected(t *testing.T) {
	_, err := BuildBulkCreate(nil)
	assert.ErrorIs(t, err, ErrNoVariantSelected)

	_, err = BuildBulkCreate([]Candidate{{Key: "1-2", Checked: false}})
	assert.ErrorIs(t, err, ErrNoVariantSelected)
}

func TestParseAmountDefaultsToZero(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"199000", 199000},
		{" 42 ", 42},
		{"12.9", 12},
		{"", 0},
		{"abc", 0},
		{"-5", 0},
		{"1e3", 1000},
		{"NaN", 0},
		{"99999999999999999999", 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseAmount(tt.in), "input %q", tt.in)
	}
}

func TestParseQuantityBounds(t *testing.T) {
	assert.Equal(t, 10, ParseQuantity("10"))
	assert.Equal(t, 0, ParseQuantity("3000000000"))
	assert.Equal(t, 0, ParseQuantity("x"))
}
