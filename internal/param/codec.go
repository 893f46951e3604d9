package param

import (
	"encoding/json"
	"fmt"
	"math"
)

// BoolCodec handles KindBool fields.
type BoolCodec struct{}

func (BoolCodec) Convert(text string) (any, error) {
	var b bool
	if err := json.Unmarshal([]byte(text), &b); err != nil {
		return nil, fmt.Errorf("not a bool: %w", err)
	}
	return b, nil
}

func (BoolCodec) Validate(v any, _ Bounds) error {
	if _, ok := v.(bool); !ok {
		return fmt.Errorf("expected bool, got %T", v)
	}
	return nil
}

func (BoolCodec) Stringify(v any) string { return fmt.Sprintf("%v", v) }
func (BoolCodec) Jsonify(v any) any      { return v }

// IntCodec handles the fixed-width signed/unsigned integer kinds. signed
// selects whether Convert/Validate treat the native value as int64 or
// uint64.
type IntCodec struct {
	Signed bool
}

func (c IntCodec) Convert(text string) (any, error) {
	var f float64
	if err := json.Unmarshal([]byte(text), &f); err != nil {
		return nil, fmt.Errorf("not a number: %w", err)
	}
	if f != math.Trunc(f) {
		return nil, fmt.Errorf("not an integer: %v", f)
	}
	if c.Signed {
		return int64(f), nil
	}
	if f < 0 {
		return nil, fmt.Errorf("negative value for unsigned field: %v", f)
	}
	return uint64(f), nil
}

func (c IntCodec) Validate(v any, b Bounds) error {
	var f float64
	switch n := v.(type) {
	case int64:
		if !c.Signed {
			return fmt.Errorf("expected uint64, got int64")
		}
		f = float64(n)
	case uint64:
		if c.Signed {
			return fmt.Errorf("expected int64, got uint64")
		}
		f = float64(n)
	default:
		return fmt.Errorf("expected integer, got %T", v)
	}
	if !b.Contains(f) {
		return fmt.Errorf("%v not in [%v, %v]", f, b.Min, b.Max)
	}
	return nil
}

func (IntCodec) Stringify(v any) string { return fmt.Sprintf("%v", v) }
func (IntCodec) Jsonify(v any) any      { return v }

// DoubleCodec handles KindDouble fields.
type DoubleCodec struct{}

func (DoubleCodec) Convert(text string) (any, error) {
	var f float64
	if err := json.Unmarshal([]byte(text), &f); err != nil {
		return nil, fmt.Errorf("not a number: %w", err)
	}
	return f, nil
}

func (DoubleCodec) Validate(v any, b Bounds) error {
	f, ok := v.(float64)
	if !ok {
		return fmt.Errorf("expected float64, got %T", v)
	}
	if !b.Contains(f) {
		return fmt.Errorf("%v not in [%v, %v]", f, b.Min, b.Max)
	}
	return nil
}

func (DoubleCodec) Stringify(v any) string { return fmt.Sprintf("%g", v) }
func (DoubleCodec) Jsonify(v any) any      { return v }

// StringCodec handles KindString fields. Bounds.Max, if nonzero, caps the
// string length in bytes.
type StringCodec struct{}

func (StringCodec) Convert(text string) (any, error) {
	var s string
	if err := json.Unmarshal([]byte(text), &s); err != nil {
		return nil, fmt.Errorf("not a string: %w", err)
	}
	return s, nil
}

func (StringCodec) Validate(v any, b Bounds) error {
	s, ok := v.(string)
	if !ok {
		return fmt.Errorf("expected string, got %T", v)
	}
	if b.Max > 0 && float64(len(s)) > b.Max {
		return fmt.Errorf("string length %d exceeds max %v", len(s), b.Max)
	}
	return nil
}

func (StringCodec) Stringify(v any) string { return v.(string) }
func (StringCodec) Jsonify(v any) any      { return v }

// EnumCodec handles KindEnum fields backed by a closed set of string
// labels. The native value is the label's index into Values.
type EnumCodec struct {
	Values []string
}

func (c EnumCodec) Convert(text string) (any, error) {
	var s string
	if err := json.Unmarshal([]byte(text), &s); err != nil {
		return nil, fmt.Errorf("not a string: %w", err)
	}
	for i, label := range c.Values {
		if label == s {
			return i, nil
		}
	}
	return nil, fmt.Errorf("not one of %v: %q", c.Values, s)
}

func (c EnumCodec) Validate(v any, _ Bounds) error {
	i, ok := v.(int)
	if !ok {
		return fmt.Errorf("expected int index, got %T", v)
	}
	if i < 0 || i >= len(c.Values) {
		return fmt.Errorf("index %d out of range [0,%d)", i, len(c.Values))
	}
	return nil
}

func (c EnumCodec) Stringify(v any) string { return c.Values[v.(int)] }
func (c EnumCodec) Jsonify(v any) any      { return c.Values[v.(int)] }

// ArrayCodec handles KindArray fields whose elements are themselves decoded
// by Elem. Bounds.Max, if nonzero, caps the element count; elements are
// validated by Elem with an unbounded numeric range.
type ArrayCodec struct {
	Elem Codec
}

func (c ArrayCodec) Convert(text string) (any, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, fmt.Errorf("not an array: %w", err)
	}
	out := make([]any, len(raw))
	for i, r := range raw {
		v, err := c.Elem.Convert(string(r))
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

func (c ArrayCodec) Validate(v any, b Bounds) error {
	arr, ok := v.([]any)
	if !ok {
		return fmt.Errorf("expected array, got %T", v)
	}
	if b.Max > 0 && float64(len(arr)) > b.Max {
		return fmt.Errorf("array length %d exceeds max %v", len(arr), b.Max)
	}
	for i, e := range arr {
		if err := c.Elem.Validate(e, Bounds{Min: math.Inf(-1), Max: math.Inf(1)}); err != nil {
			return fmt.Errorf("element %d: %w", i, err)
		}
	}
	return nil
}

func (c ArrayCodec) Stringify(v any) string {
	b, _ := json.Marshal(c.Jsonify(v))
	return string(b)
}

func (c ArrayCodec) Jsonify(v any) any {
	arr := v.([]any)
	out := make([]any, len(arr))
	for i, e := range arr {
		out[i] = c.Elem.Jsonify(e)
	}
	return out
}
