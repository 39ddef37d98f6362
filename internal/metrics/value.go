package metrics

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/spf13/cast"
)

// ValueType tags which slot of a Value is populated.
type ValueType string

const (
	TypeBoolean ValueType = "boolean"
	TypeInteger ValueType = "integer"
	TypeDecimal ValueType = "decimal"
	TypeText    ValueType = "text"
)

// Valid reports whether t is one of the four storable types.
func (t ValueType) Valid() bool {
	switch t {
	case TypeBoolean, TypeInteger, TypeDecimal, TypeText:
		return true
	}
	return false
}

// Value is a closed tagged union over the storable types. The zero Value has
// no type and is never persisted.
type Value struct {
	typ ValueType
	b   bool
	i   int64
	f   float64
	s   string
}

func BoolValue(b bool) Value       { return Value{typ: TypeBoolean, b: b} }
func IntValue(i int64) Value       { return Value{typ: TypeInteger, i: i} }
func DecimalValue(f float64) Value { return Value{typ: TypeDecimal, f: f} }
func TextValue(s string) Value     { return Value{typ: TypeText, s: s} }

func (v Value) Type() ValueType  { return v.typ }
func (v Value) Bool() bool       { return v.b }
func (v Value) Int() int64       { return v.i }
func (v Value) Decimal() float64 { return v.f }
func (v Value) Text() string     { return v.s }
func (v Value) IsZero() bool     { return v.typ == "" }

// Any returns the populated slot as a plain Go value.
func (v Value) Any() any {
	switch v.typ {
	case TypeBoolean:
		return v.b
	case TypeInteger:
		return v.i
	case TypeDecimal:
		return v.f
	case TypeText:
		return v.s
	}
	return nil
}

func (v Value) String() string {
	if v.typ == "" {
		return ""
	}
	return fmt.Sprint(v.Any())
}

func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Any())
}

// ParseValue resolves raw caller input into a Value of type t. Strings are
// trimmed before numeric or boolean conversion; nil, NaN and infinities are
// rejected.
func ParseValue(raw any, t ValueType) (Value, error) {
	if raw == nil {
		return Value{}, fmt.Errorf("%w: nil input", ErrInvalidValue)
	}
	if v, ok := raw.(Value); ok {
		if v.typ != t {
			return Value{}, fmt.Errorf("%w: have %s, want %s", ErrInvalidValue, v.typ, t)
		}
		return v, nil
	}

	switch t {
	case TypeBoolean:
		return parseBool(raw)
	case TypeInteger:
		f, err := parseFloat(raw)
		if err != nil {
			return Value{}, err
		}
		if f != math.Trunc(f) || f >= math.MaxInt64 || f < math.MinInt64 {
			return Value{}, fmt.Errorf("%w: %v is not an integer", ErrInvalidValue, raw)
		}
		return IntValue(int64(f)), nil
	case TypeDecimal:
		f, err := parseFloat(raw)
		if err != nil {
			return Value{}, err
		}
		return DecimalValue(f), nil
	case TypeText:
		s, err := cast.ToStringE(raw)
		if err != nil {
			return Value{}, fmt.Errorf("%w: %v", ErrInvalidValue, err)
		}
		return TextValue(s), nil
	}
	return Value{}, fmt.Errorf("%w: unknown value type %q", ErrInvalidValue, t)
}

func parseFloat(raw any) (float64, error) {
	if _, ok := raw.(bool); ok {
		return 0, fmt.Errorf("%w: boolean is not numeric", ErrInvalidValue)
	}
	if s, ok := raw.(string); ok {
		raw = strings.TrimSpace(s)
		if raw == "" {
			return 0, fmt.Errorf("%w: empty number", ErrInvalidValue)
		}
	}
	f, err := cast.ToFloat64E(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: %v is not finite", ErrInvalidValue, raw)
	}
	return f, nil
}

func parseBool(raw any) (Value, error) {
	if s, ok := raw.(string); ok {
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "true", "yes", "on", "1":
			return BoolValue(true), nil
		case "false", "no", "off", "0", "":
			return BoolValue(false), nil
		}
		return Value{}, fmt.Errorf("%w: %q is not a boolean", ErrInvalidValue, s)
	}
	b, err := cast.ToBoolE(raw)
	if err != nil {
		return Value{}, fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}
	return BoolValue(b), nil
}
