//
// Tencent is pleased to support the open source community by making trpc-vischart-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-vischart-go is licensed under the Apache License Version 2.0.
//
//

package dialogset

import "trpc.group/trpc-go/trpc-vischart-go/chart"

var eligibleMarks = map[string]struct{}{
	chart.MarkBar:   {},
	chart.MarkPoint: {},
	chart.MarkRect:  {},
	chart.MarkLine:  {},
}

// Eligible reports whether every reference turn draws a bar, point, rect or
// line chart that encodes at least one quantitative channel among x, y,
// color and theta.
func Eligible(d *Dialogue) bool {
	if d.Empty() {
		return false
	}
	for _, turn := range d.Turns {
		if turn == nil || turn.Chart == nil {
			return false
		}
		if _, ok := eligibleMarks[turn.Chart.MarkType()]; !ok {
			return false
		}
		if !hasQuantitative(turn.Chart.EffectiveEncoding()) {
			return false
		}
	}
	return true
}

func hasQuantitative(enc chart.Encoding) bool {
	for _, name := range chart.CompareChannels {
		ch, ok := enc.Channel(name)
		if !ok {
			continue
		}
		if t, ok := ch.Type(); ok && t == chart.TypeQuantitative {
			return true
		}
	}
	return false
}

// FilterEligible returns the eligible dialogues, preserving order.
func FilterEligible(dialogues []*Dialogue) []*Dialogue {
	out := make([]*Dialogue, 0, len(dialogues))
	for _, d := range dialogues {
		if Eligible(d) {
			out = append(out, d)
		}
	}
	return out
}
