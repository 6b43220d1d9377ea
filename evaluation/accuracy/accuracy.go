//
// Tencent is pleased to support the open source community by making trpc-vischart-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-vischart-go is licensed under the Apache License Version 2.0.
//
//

// Package accuracy decides whether a generated chart is the same
// visualization as a reference chart.
package accuracy

import (
	"fmt"

	"trpc.group/trpc-go/trpc-vischart-go/chart"
	"trpc.group/trpc-go/trpc-vischart-go/chart/filter"
)

// Reason names the check that settled a comparison.
type Reason string

// Comparison outcomes.
const (
	ReasonMatch            Reason = "match"
	ReasonAxisSwap         Reason = "axis_swap"
	ReasonMissingInput     Reason = "missing_input"
	ReasonFilterPresence   Reason = "filter_presence"
	ReasonFilterMismatch   Reason = "filter_mismatch"
	ReasonMark             Reason = "mark"
	ReasonChannelCount     Reason = "channel_count"
	ReasonChannelPresence  Reason = "channel_presence"
	ReasonAttributeMissing Reason = "attribute_presence"
	ReasonAttributeValue   Reason = "attribute_value"
)

// comparedAttributes are the channel attributes compared pairwise, in order.
var comparedAttributes = []string{chart.AttrField, chart.AttrAggregate, chart.AttrBin, chart.AttrSort}

// Verdict is the outcome of comparing a candidate chart with a reference chart.
type Verdict struct {
	// Equivalent is true when the candidate is accepted.
	Equivalent bool
	// Reason is the check that decided the verdict.
	Reason Reason
	// Channel is the channel that failed, for channel and attribute reasons.
	Channel string
	// Attribute is the attribute that failed, for attribute reasons.
	Attribute string
	// FilterParsed reports whether both filters produced trees.
	FilterParsed bool
}

// String describes the verdict.
func (v Verdict) String() string {
	switch {
	case v.Attribute != "":
		return fmt.Sprintf("%s (%s.%s)", v.Reason, v.Channel, v.Attribute)
	case v.Channel != "":
		return fmt.Sprintf("%s (%s)", v.Reason, v.Channel)
	}
	return string(v.Reason)
}

func reject(reason Reason) Verdict {
	return Verdict{Reason: reason}
}

// Equivalent reports whether candidate and reference describe the same chart.
func Equivalent(candidate, reference *chart.Spec) bool {
	return Compare(candidate, reference).Equivalent
}

// CompareJSON decodes two persisted charts and compares them. Charts that
// fail to decode are never equivalent.
func CompareJSON(candidate, reference []byte) Verdict {
	c, err := chart.Parse(candidate)
	if err != nil {
		return reject(ReasonMissingInput)
	}
	r, err := chart.Parse(reference)
	if err != nil {
		return reject(ReasonMissingInput)
	}
	return Compare(c, r)
}

// Compare runs the equivalence checks in order and reports the first failure.
//
// Filters are compared first: a filter on only one side rejects, and two
// filters must normalize to equal trees or match textually once datum.
// prefixes and equality spellings are unified. The mark type and channel
// count must then agree. Two charts using exactly x and y with the axes
// exchanged are accepted. Otherwise x, y, color and theta must agree on
// presence and on field, aggregate, bin and sort. Other channels are not
// inspected.
func Compare(candidate, reference *chart.Spec) Verdict {
	if candidate == nil || reference == nil {
		return reject(ReasonMissingInput)
	}
	candEnc := candidate.EffectiveEncoding()
	refEnc := reference.EffectiveEncoding()
	if candEnc == nil || refEnc == nil || !candidate.EffectiveMark().IsSet() || !reference.EffectiveMark().IsSet() {
		return reject(ReasonMissingInput)
	}

	parsed, verdict, ok := compareFilters(candidate, reference)
	if !ok {
		return verdict
	}

	if !sameMark(candidate.EffectiveMark(), reference.EffectiveMark()) {
		return reject(ReasonMark)
	}
	if len(candEnc) != len(refEnc) {
		return reject(ReasonChannelCount)
	}
	if isAxisSwap(candEnc, refEnc) {
		return Verdict{Equivalent: true, Reason: ReasonAxisSwap, FilterParsed: parsed}
	}
	for _, name := range chart.CompareChannels {
		cc, inCand := candEnc[name]
		rc, inRef := refEnc[name]
		if inCand != inRef {
			return Verdict{Reason: ReasonChannelPresence, Channel: name}
		}
		if !inCand {
			continue
		}
		for _, attr := range comparedAttributes {
			cv, candHas := cc.Get(attr)
			rv, refHas := rc.Get(attr)
			if candHas != refHas {
				return Verdict{Reason: ReasonAttributeMissing, Channel: name, Attribute: attr}
			}
			if candHas && !cv.Equal(rv) {
				return Verdict{Reason: ReasonAttributeValue, Channel: name, Attribute: attr}
			}
		}
	}
	return Verdict{Equivalent: true, Reason: ReasonMatch, FilterParsed: parsed}
}

// compareFilters reports whether both filters parsed, and a rejecting verdict when ok is false.
func compareFilters(candidate, reference *chart.Spec) (parsed bool, verdict Verdict, ok bool) {
	candExpr, _ := candidate.Filter()
	refExpr, _ := reference.Filter()
	candText := filter.Compact(candExpr)
	refText := filter.Compact(refExpr)
	if (candText == "") != (refText == "") {
		return false, reject(ReasonFilterPresence), false
	}
	if candText == "" {
		return false, Verdict{}, true
	}
	candTree, candErr := filter.Normalize(candExpr)
	refTree, refErr := filter.Normalize(refExpr)
	if candErr == nil && refErr == nil {
		if filter.Equal(candTree, refTree) || candText == refText {
			return true, Verdict{}, true
		}
		return true, Verdict{Reason: ReasonFilterMismatch, FilterParsed: true}, false
	}
	if candText == refText {
		return false, Verdict{}, true
	}
	return false, reject(ReasonFilterMismatch), false
}

// sameMark compares mark types, so "bar" matches {"type": "bar"}.
func sameMark(a, b chart.Mark) bool {
	if a.Type() != "" || b.Type() != "" {
		return a.Type() == b.Type()
	}
	return a.Value().Equal(b.Value())
}

// isAxisSwap reports whether both encodings use exactly x and y and the
// candidate's x descriptor equals the reference's y descriptor and vice versa.
func isAxisSwap(candidate, reference chart.Encoding) bool {
	if !onlyXY(candidate) || !onlyXY(reference) {
		return false
	}
	return candidate[chart.ChannelX].Equal(reference[chart.ChannelY]) &&
		candidate[chart.ChannelY].Equal(reference[chart.ChannelX])
}

func onlyXY(enc chart.Encoding) bool {
	return len(enc) == 2 && enc.Has(chart.ChannelX) && enc.Has(chart.ChannelY)
}
