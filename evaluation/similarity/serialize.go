//
// Tencent is pleased to support the open source community by making trpc-vischart-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-vischart-go is licensed under the Apache License Version 2.0.
//
//

// Package similarity scores how close a generated chart is to a reference
// chart through a flattened string form of each chart.
package similarity

import (
	"strings"

	"trpc.group/trpc-go/trpc-vischart-go/chart"
)

const none = "none"

// Serialize flattens a chart into one deterministic line:
//
//	<mark> (<field> <aggregate|bin|none>) x4 <filter|none none> <sort summary|none none>
//
// Channels are x, y, color and theta in that order; a missing channel
// contributes "none none". The filter has its datum. prefix and all
// whitespace removed. The sort summary is "y asc"/"y desc" for an x sort of
// "y"/"-y" and "x asc"/"x desc" for a y sort of "x"/"-x"; other sort values
// contribute nothing, and "none none" is written only when neither axis has
// a sort.
func Serialize(spec *chart.Spec) string {
	if spec == nil {
		return ""
	}
	enc := spec.EffectiveEncoding()
	parts := make([]string, 0, 16)
	parts = append(parts, orNone(spec.MarkType()))
	for _, name := range chart.CompareChannels {
		ch, ok := enc[name]
		if !ok {
			parts = append(parts, none, none)
			continue
		}
		parts = append(parts, fieldToken(ch), operationToken(ch))
	}
	parts = append(parts, filterToken(spec))
	parts = append(parts, sortTokens(enc)...)
	return strings.Join(parts, " ")
}

func orNone(s string) string {
	if s == "" {
		return none
	}
	return s
}

func fieldToken(ch *chart.Channel) string {
	v, ok := ch.Get(chart.AttrField)
	if !ok {
		return none
	}
	return text(v)
}

func operationToken(ch *chart.Channel) string {
	if v, ok := ch.Aggregate(); ok {
		return text(v)
	}
	if ch.Has(chart.AttrBin) {
		return chart.AttrBin
	}
	return none
}

func text(v chart.Value) string {
	if s, ok := v.String(); ok {
		return s
	}
	return v.Compact()
}

func filterToken(spec *chart.Spec) string {
	expr, _ := spec.Filter()
	expr = strings.Join(strings.Fields(strings.ReplaceAll(expr, "datum.", "")), "")
	if expr == "" {
		return none + " " + none
	}
	return expr
}

func sortTokens(enc chart.Encoding) []string {
	var (
		tokens []string
		sorted bool
	)
	if v, ok := enc[chart.ChannelX].Sort(); ok {
		sorted = true
		switch s, _ := v.String(); s {
		case "y":
			tokens = append(tokens, "y", "asc")
		case "-y":
			tokens = append(tokens, "y", "desc")
		}
	}
	if v, ok := enc[chart.ChannelY].Sort(); ok {
		sorted = true
		switch s, _ := v.String(); s {
		case "x":
			tokens = append(tokens, "x", "asc")
		case "-x":
			tokens = append(tokens, "x", "desc")
		}
	}
	if !sorted {
		return []string{none, none}
	}
	return tokens
}
