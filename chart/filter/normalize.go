//
// Tencent is pleased to support the open source community by making trpc-vischart-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-vischart-go is licensed under the Apache License Version 2.0.
//
//

// Package filter parses Vega-Lite filter expressions into canonical trees
// so that expressions differing only in operand order or surface spelling
// compare equal.
package filter

import "strings"

var (
	equalitySynonyms = strings.NewReplacer("!==", "!=", "===", "==")
	datumAccessors   = strings.NewReplacer("datum.", "", "datum[", "[")
)

// Preprocess rewrites the strict equality spellings to their loose form and
// drops the datum accessor, so datum.Year and datum['Year'] both read as Year.
func Preprocess(expr string) string {
	return datumAccessors.Replace(equalitySynonyms.Replace(expr))
}

// Compact is the textual fallback used when a tree cannot be built:
// the datum. prefix is stripped and equality spellings are unified.
func Compact(expr string) string {
	return strings.ReplaceAll(equalitySynonyms.Replace(expr), "datum.", "")
}

// Normalize preprocesses, parses and canonicalizes expr. A parse failure is
// reported as a *ParseError and a nil tree.
func Normalize(expr string) (*Node, error) {
	node, err := Parse(Preprocess(expr))
	if err != nil {
		return nil, err
	}
	return Canonicalize(node), nil
}

// Equivalent reports whether two expressions normalize to the same tree.
// It is false when either side fails to parse.
func Equivalent(a, b string) bool {
	na, err := Normalize(a)
	if err != nil {
		return false
	}
	nb, err := Normalize(b)
	if err != nil {
		return false
	}
	return Equal(na, nb)
}
