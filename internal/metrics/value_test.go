package metrics

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseValue(t *testing.T) {
	tests := []struct {
		name    string
		raw     any
		typ     ValueType
		want    any
		wantErr bool
	}{
		{"decimal from string", " 72.5 ", TypeDecimal, 72.5, false},
		{"decimal from int", 70, TypeDecimal, 70.0, false},
		{"decimal rejects empty", "", TypeDecimal, nil, true},
		{"decimal rejects word", "heavy", TypeDecimal, nil, true},
		{"decimal rejects bool", true, TypeDecimal, nil, true},
		{"decimal rejects NaN", math.NaN(), TypeDecimal, nil, true},
		{"decimal rejects Inf", math.Inf(1), TypeDecimal, nil, true},
		{"integer from float", 3.0, TypeInteger, int64(3), false},
		{"integer rejects fraction", 3.5, TypeInteger, nil, true},
		{"integer rejects 2^63", float64(math.MaxInt64), TypeInteger, nil, true},
		{"integer rejects below min", -math.Pow(2, 64), TypeInteger, nil, true},
		{"integer accepts min", float64(math.MinInt64), TypeInteger, int64(math.MinInt64), false},
		{"bool from yes", "yes", TypeBoolean, true, false},
		{"bool from on", "ON", TypeBoolean, true, false},
		{"bool from empty", "", TypeBoolean, false, false},
		{"bool from native", false, TypeBoolean, false, false},
		{"bool rejects word", "maybe", TypeBoolean, nil, true},
		{"text from number", 12, TypeText, "12", false},
		{"nil rejected", nil, TypeText, nil, true},
		{"unknown type", "x", ValueType("blob"), nil, true},
		{"value passthrough", TextValue("hi"), TypeText, "hi", false},
		{"value type mismatch", BoolValue(true), TypeText, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := ParseValue(tt.raw, tt.typ)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidValue)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.typ, v.Type())
			assert.Equal(t, tt.want, v.Any())
		})
	}
}

func TestValueJSON(t *testing.T) {
	b, err := json.Marshal(Entry{ID: "x", Value: DecimalValue(72.5)})
	require.NoError(t, err)
	assert.Contains(t, string(b), `"value":72.5`)

	assert.True(t, Value{}.IsZero())
	assert.Nil(t, Value{}.Any())
	assert.True(t, TypeText.Valid())
	assert.False(t, ValueType("blob").Valid())
}
