//
// Tencent is pleased to support the open source community by making trpc-vischart-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-vischart-go is licensed under the Apache License Version 2.0.
//
//

package chart

// Mark types.
const (
	MarkBar     = "bar"
	MarkPoint   = "point"
	MarkRect    = "rect"
	MarkLine    = "line"
	MarkBoxplot = "boxplot"
	MarkArea    = "area"
	MarkArc     = "arc"
)

// Channel names inspected by the evaluators.
const (
	ChannelX     = "x"
	ChannelY     = "y"
	ChannelColor = "color"
	ChannelTheta = "theta"
)

// Channel attributes.
const (
	AttrField     = "field"
	AttrType      = "type"
	AttrAggregate = "aggregate"
	AttrBin       = "bin"
	AttrSort      = "sort"
)

// Measurement types.
const (
	TypeNominal      = "nominal"
	TypeOrdinal      = "ordinal"
	TypeQuantitative = "quantitative"
	TypeTemporal     = "temporal"
)

// Marks lists the mark vocabulary.
var Marks = []string{MarkBar, MarkPoint, MarkRect, MarkLine, MarkBoxplot, MarkArea, MarkArc}

// CompareChannels are the channels compared and serialized, in order.
var CompareChannels = []string{ChannelX, ChannelY, ChannelColor, ChannelTheta}

// IsKnownMark reports whether m belongs to the mark vocabulary.
func IsKnownMark(m string) bool {
	for _, known := range Marks {
		if m == known {
			return true
		}
	}
	return false
}
