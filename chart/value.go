//
// Tencent is pleased to support the open source community by making trpc-vischart-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-vischart-go is licensed under the Apache License Version 2.0.
//
//

package chart

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/google/go-cmp/cmp"
)

// Value holds an arbitrary decoded JSON value. Numbers are kept as json.Number
// so that re-encoding is lossless.
type Value struct {
	raw any
}

// NewValue wraps v.
func NewValue(v any) Value {
	return Value{raw: v}
}

// Raw returns the wrapped value.
func (v Value) Raw() any {
	return v.raw
}

// IsNull reports whether the value is JSON null.
func (v Value) IsNull() bool {
	return v.raw == nil
}

// String returns the value when it is a JSON string.
func (v Value) String() (string, bool) {
	s, ok := v.raw.(string)
	return s, ok
}

// Bool returns the value when it is a JSON boolean.
func (v Value) Bool() (bool, bool) {
	b, ok := v.raw.(bool)
	return b, ok
}

// Object returns the value when it is a JSON object.
func (v Value) Object() (map[string]any, bool) {
	m, ok := v.raw.(map[string]any)
	return m, ok
}

// Equal reports deep equality. Numbers compare by numeric value, so 1 and 1.0 are equal.
func (v Value) Equal(o Value) bool {
	return cmp.Equal(canonical(v.raw), canonical(o.raw))
}

// Compact renders the value as compact JSON.
func (v Value) Compact() string {
	b, err := json.Marshal(v.raw)
	if err != nil {
		return ""
	}
	return string(b)
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.raw)
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	raw, err := decode(data)
	if err != nil {
		return err
	}
	v.raw = raw
	return nil
}

func decode(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

func canonical(v any) any {
	switch t := v.(type) {
	case Value:
		return canonical(t.raw)
	case json.Number:
		if f, err := strconv.ParseFloat(string(t), 64); err == nil {
			return f
		}
		return string(t)
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case float32:
		return float64(t)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = canonical(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = canonical(e)
		}
		return out
	}
	return v
}
