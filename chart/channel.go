//
// Tencent is pleased to support the open source community by making trpc-vischart-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-vischart-go is licensed under the Apache License Version 2.0.
//
//

package chart

// Channel is one encoding channel descriptor. Attributes are optional and
// presence is tracked separately from value, so an attribute set to false
// or null is still present.
type Channel struct {
	v Value
}

// NewChannel builds a channel from attribute values.
func NewChannel(attrs map[string]any) *Channel {
	m := make(map[string]any, len(attrs))
	for k, v := range attrs {
		if wrapped, ok := v.(Value); ok {
			v = wrapped.Raw()
		}
		m[k] = v
	}
	return &Channel{v: NewValue(m)}
}

// Get returns an attribute and whether it is present.
func (c *Channel) Get(attr string) (Value, bool) {
	if c == nil {
		return Value{}, false
	}
	obj, ok := c.v.Object()
	if !ok {
		return Value{}, false
	}
	raw, ok := obj[attr]
	return NewValue(raw), ok
}

// Has reports whether an attribute is present.
func (c *Channel) Has(attr string) bool {
	_, ok := c.Get(attr)
	return ok
}

// Set stores an attribute, turning a non-object descriptor into an object.
func (c *Channel) Set(attr string, value any) {
	obj, ok := c.v.Object()
	if !ok {
		obj = make(map[string]any)
		c.v = NewValue(obj)
	}
	if v, ok := value.(Value); ok {
		value = v.Raw()
	}
	obj[attr] = value
}

// Delete removes an attribute.
func (c *Channel) Delete(attr string) {
	if obj, ok := c.v.Object(); ok {
		delete(obj, attr)
	}
}

// Field returns the field name when it is present and a string.
func (c *Channel) Field() (string, bool) {
	return c.stringAttr(AttrField)
}

// Type returns the measurement type when it is present and a string.
func (c *Channel) Type() (string, bool) {
	return c.stringAttr(AttrType)
}

// Aggregate returns the aggregate attribute.
func (c *Channel) Aggregate() (Value, bool) {
	return c.Get(AttrAggregate)
}

// Bin returns the bin attribute.
func (c *Channel) Bin() (Value, bool) {
	return c.Get(AttrBin)
}

// Sort returns the sort attribute.
func (c *Channel) Sort() (Value, bool) {
	return c.Get(AttrSort)
}

func (c *Channel) stringAttr(attr string) (string, bool) {
	v, ok := c.Get(attr)
	if !ok {
		return "", false
	}
	return v.String()
}

// Value returns the descriptor as decoded.
func (c *Channel) Value() Value {
	if c == nil {
		return Value{}
	}
	return c.v
}

// Equal reports full descriptor equality.
func (c *Channel) Equal(o *Channel) bool {
	return c.Value().Equal(o.Value())
}

// MarshalJSON implements json.Marshaler.
func (c *Channel) MarshalJSON() ([]byte, error) {
	return c.v.MarshalJSON()
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *Channel) UnmarshalJSON(data []byte) error {
	return c.v.UnmarshalJSON(data)
}
