//
// Tencent is pleased to support the open source community by making trpc-vischart-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-vischart-go is licensed under the Apache License Version 2.0.
//
//

// Package chart models the subset of the Vega-Lite chart format that the
// generators and evaluators work with. Unknown keys survive a decode and
// encode round trip.
package chart

import (
	"encoding/json"
	"fmt"
	"sort"
)

const (
	keyMark      = "mark"
	keyEncoding  = "encoding"
	keyTransform = "transform"
	keyLayer     = "layer"
	keyFilter    = "filter"
	keyType      = "type"
)

// Spec is a chart specification.
type Spec struct {
	// Mark is the mark definition. The zero value means the key is absent.
	Mark Mark
	// Encoding maps channel names to channel descriptors. Nil means the key is absent.
	Encoding Encoding
	// Transform is the ordered transform list.
	Transform []Transform
	// Layer holds nested specifications of a layered chart.
	Layer []*Spec

	extra map[string]json.RawMessage
}

// Parse decodes a persisted chart.
func Parse(data []byte) (*Spec, error) {
	spec := &Spec{}
	if err := json.Unmarshal(data, spec); err != nil {
		return nil, fmt.Errorf("decode chart: %w", err)
	}
	return spec, nil
}

// MustParse is Parse for literals known to be valid. It panics on error.
func MustParse(s string) *Spec {
	spec, err := Parse([]byte(s))
	if err != nil {
		panic(err)
	}
	return spec
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *Spec) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	*s = Spec{}
	for key, raw := range fields {
		var err error
		switch key {
		case keyMark:
			err = json.Unmarshal(raw, &s.Mark.v)
		case keyEncoding:
			err = json.Unmarshal(raw, &s.Encoding)
		case keyTransform:
			err = json.Unmarshal(raw, &s.Transform)
		case keyLayer:
			err = json.Unmarshal(raw, &s.Layer)
		default:
			if s.extra == nil {
				s.extra = make(map[string]json.RawMessage)
			}
			s.extra[key] = raw
		}
		if err != nil {
			return fmt.Errorf("decode %q: %w", key, err)
		}
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (s Spec) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(s.extra)+4)
	for k, v := range s.extra {
		out[k] = v
	}
	if s.Mark.IsSet() {
		out[keyMark] = s.Mark.v
	}
	if s.Encoding != nil {
		out[keyEncoding] = s.Encoding
	}
	if s.Transform != nil {
		out[keyTransform] = s.Transform
	}
	if s.Layer != nil {
		out[keyLayer] = s.Layer
	}
	return json.Marshal(out)
}

// String renders the chart as compact JSON.
func (s *Spec) String() string {
	b, err := json.Marshal(s)
	if err != nil {
		return ""
	}
	return string(b)
}

// Clone returns a deep copy.
func (s *Spec) Clone() *Spec {
	b, err := json.Marshal(s)
	if err != nil {
		return &Spec{}
	}
	out := &Spec{}
	if err := json.Unmarshal(b, out); err != nil {
		return &Spec{}
	}
	return out
}

// Extra returns a preserved top-level key such as "data" or "$schema".
func (s *Spec) Extra(key string) (json.RawMessage, bool) {
	raw, ok := s.extra[key]
	return raw, ok
}

// SetExtra stores a top-level key that is not modelled explicitly.
func (s *Spec) SetExtra(key string, value any) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if s.extra == nil {
		s.extra = make(map[string]json.RawMessage)
	}
	s.extra[key] = b
	return nil
}

// EffectiveMark is the top-level mark, or the first layer's mark for layered charts.
func (s *Spec) EffectiveMark() Mark {
	if s.Mark.IsSet() || len(s.Layer) == 0 || s.Layer[0] == nil {
		return s.Mark
	}
	return s.Layer[0].Mark
}

// MarkType returns the effective mark type, or "" when no mark is present.
func (s *Spec) MarkType() string {
	return s.EffectiveMark().Type()
}

// EffectiveEncoding is the top-level encoding, or the first layer's encoding for layered charts.
func (s *Spec) EffectiveEncoding() Encoding {
	if s.Encoding != nil || len(s.Layer) == 0 || s.Layer[0] == nil {
		return s.Encoding
	}
	return s.Layer[0].Encoding
}

// Filter returns the expression of the first transform carrying a filter key.
// Non-string predicates are returned as compact JSON.
func (s *Spec) Filter() (string, bool) {
	for _, t := range s.Transform {
		v, ok := t.Filter()
		if !ok {
			continue
		}
		if str, ok := v.String(); ok {
			return str, true
		}
		return v.Compact(), true
	}
	return "", false
}

// SetFilter replaces the first filter transform or appends a new one.
func (s *Spec) SetFilter(expr string) {
	for _, t := range s.Transform {
		if _, ok := t[keyFilter]; ok {
			t[keyFilter] = NewValue(expr)
			return
		}
	}
	s.Transform = append(s.Transform, Transform{keyFilter: NewValue(expr)})
}

// Fields lists the distinct fields of the effective encoding ordered by channel name.
func (s *Spec) Fields() []string {
	enc := s.EffectiveEncoding()
	seen := make(map[string]struct{})
	var fields []string
	for _, name := range enc.Names() {
		f, ok := enc[name].Field()
		if !ok || f == "" {
			continue
		}
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		fields = append(fields, f)
	}
	return fields
}

// Mark is a mark definition given either as a type string or as an object with a "type" key.
type Mark struct {
	v Value
}

// NewMark returns a mark of the given type.
func NewMark(markType string) Mark {
	return Mark{v: NewValue(markType)}
}

// IsSet reports whether a mark is present.
func (m Mark) IsSet() bool {
	return !m.v.IsNull()
}

// Type returns the mark type.
func (m Mark) Type() string {
	if s, ok := m.v.String(); ok {
		return s
	}
	if obj, ok := m.v.Object(); ok {
		if t, ok := obj[keyType].(string); ok {
			return t
		}
	}
	return ""
}

// Value returns the mark definition as decoded.
func (m Mark) Value() Value {
	return m.v
}

// Encoding maps channel names to channel descriptors.
type Encoding map[string]*Channel

// Channel returns a channel descriptor.
func (e Encoding) Channel(name string) (*Channel, bool) {
	c, ok := e[name]
	return c, ok
}

// Has reports whether the channel is present.
func (e Encoding) Has(name string) bool {
	_, ok := e[name]
	return ok
}

// Names returns the channel names in sorted order.
func (e Encoding) Names() []string {
	names := make([]string, 0, len(e))
	for name := range e {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Transform is one transform object.
type Transform map[string]Value

// Filter returns the filter predicate of the transform.
func (t Transform) Filter() (Value, bool) {
	v, ok := t[keyFilter]
	return v, ok
}
