//
// Tencent is pleased to support the open source community by making trpc-vischart-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-vischart-go is licensed under the Apache License Version 2.0.
//
//

package filter

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustNormalize(t *testing.T, expr string) *Node {
	t.Helper()
	node, err := Normalize(expr)
	require.NoError(t, err, expr)
	return node
}

func TestNormalizeIsOrderInsensitive(t *testing.T) {
	a := mustNormalize(t, "datum.Year > 1990 && datum.Rating > 4")
	b := mustNormalize(t, "datum.Rating>4&&datum.Year>1990")
	assert.True(t, Equal(a, b))

	a = mustNormalize(t, "Genre == 'Drama' || Genre == 'Comedy'")
	b = mustNormalize(t, "Genre == 'Comedy' || Genre == 'Drama'")
	assert.True(t, Equal(a, b))
}

func TestNormalizeSortsEachLevelIndependently(t *testing.T) {
	a := mustNormalize(t, "(b || a) && c")
	b := mustNormalize(t, "c && (a || b)")
	assert.True(t, Equal(a, b))
}

func TestNormalizeSpellingInvariance(t *testing.T) {
	want := mustNormalize(t, "datum.Year >= 2020")
	for _, expr := range []string{
		" datum.Year>=2020",
		"datum['Year'] >= 2020",
		`datum["Year"] >= 2020`,
		"Year >= 2020",
	} {
		assert.True(t, Equal(want, mustNormalize(t, expr)), expr)
	}
}

func TestNormalizeEqualitySynonyms(t *testing.T) {
	assert.True(t, Equivalent("datum.Country === 'US'", "datum.Country == 'US'"))
	assert.True(t, Equivalent("datum.Country !== 'US'", "datum.Country != 'US'"))
	assert.False(t, Equivalent("datum.Country == 'US'", "datum.Country != 'US'"))
}

func TestNormalizeQuoteStyle(t *testing.T) {
	assert.True(t, Equivalent(`Name == "Deloitte"`, "Name == 'Deloitte'"))
}

func TestParseFlattensSameOperatorRuns(t *testing.T) {
	node, err := Parse("a && b && c")
	require.NoError(t, err)
	assert.Equal(t, KindAnd, node.Kind)
	assert.Len(t, node.Children, 3)
}

func TestParseKeepsExplicitNesting(t *testing.T) {
	nested := mustNormalize(t, "(a && b) && c")
	flat := mustNormalize(t, "a && b && c")
	assert.False(t, Equal(nested, flat))
	assert.Len(t, nested.Children, 2)
}

func TestParsePrecedence(t *testing.T) {
	node, err := Parse("a || b && c")
	require.NoError(t, err)
	require.Equal(t, KindOr, node.Kind)
	require.Len(t, node.Children, 2)
	assert.Equal(t, KindIdentifier, node.Children[0].Kind)
	assert.Equal(t, KindAnd, node.Children[1].Kind)

	node, err = Parse("(a || b) && c")
	require.NoError(t, err)
	assert.Equal(t, KindAnd, node.Kind)
	assert.Equal(t, KindOr, node.Children[0].Kind)
}

func TestParseAtoms(t *testing.T) {
	node, err := Parse("24h_High_USD > 8000.5")
	require.NoError(t, err)
	assert.Equal(t, &Node{Kind: KindComparison, Value: ">", Children: []*Node{
		{Kind: KindIdentifier, Value: "24h_High_USD"},
		{Kind: KindNumber, Value: "8000.5"},
	}}, node)

	node, err = Parse("Active == true")
	require.NoError(t, err)
	assert.Equal(t, KindBoolean, node.Children[1].Kind)

	node, err = Parse("['Sales ($)'] <= 10")
	require.NoError(t, err)
	assert.Equal(t, &Node{Kind: KindIdentifier, Value: "Sales ($)"}, node.Children[0])
}

func TestParseFunctionCalls(t *testing.T) {
	node, err := Parse("year(Date) == 2020")
	require.NoError(t, err)
	call := node.Children[0]
	assert.Equal(t, KindCall, call.Kind)
	assert.Equal(t, "year", call.Value)
	assert.Equal(t, []*Node{{Kind: KindIdentifier, Value: "Date"}}, call.Children)

	node, err = Parse("inrange(Price, 1, 10 && x)")
	require.NoError(t, err)
	assert.Len(t, node.Children, 3)
	assert.Equal(t, KindAnd, node.Children[2].Kind)

	node, err = Parse("now() > 1")
	require.NoError(t, err)
	assert.Empty(t, node.Children[0].Children)
}

func TestNodeString(t *testing.T) {
	node, err := Parse("Year > 2020")
	require.NoError(t, err)
	assert.Equal(t, "comparison_op\n  identifier\tYear\n  >\n  number\t2020\n", node.String())

	node, err = Parse("now() && f(a)")
	require.NoError(t, err)
	assert.Equal(t, "and_op\n  func_call\tnow\n  func_call\n    f\n    identifier\ta\n", node.String())
}

func TestCanonicalizeDoesNotMutateInput(t *testing.T) {
	raw, err := Parse("b && a")
	require.NoError(t, err)
	canonical := Canonicalize(raw)
	assert.Equal(t, "b", raw.Children[0].Value)
	assert.Equal(t, "a", canonical.Children[0].Value)
}

func TestParseErrors(t *testing.T) {
	for _, tc := range []struct {
		expr   string
		offset int
	}{
		{expr: "", offset: 0},
		{expr: "Year >", offset: 6},
		{expr: "Year = 2020", offset: 5},
		{expr: "(a && b", offset: 7},
		{expr: "a > b > c", offset: 6},
		{expr: "Name == 'open", offset: 8},
		{expr: "f(a b)", offset: 4},
		{expr: "-5 > x", offset: 0},
	} {
		node, err := Normalize(tc.expr)
		assert.Nil(t, node, tc.expr)
		var perr *ParseError
		if assert.True(t, errors.As(err, &perr), tc.expr) {
			assert.Equal(t, tc.offset, perr.Offset, tc.expr)
		}
	}
	assert.False(t, Equivalent("Year >", "Year >"))
}

func TestCompact(t *testing.T) {
	assert.Equal(t, "Year == 2020 && A != 'x'", Compact("datum.Year === 2020 && datum.A !== 'x'"))
}

func TestIsIdentifier(t *testing.T) {
	assert.True(t, IsIdentifier("Year"))
	assert.True(t, IsIdentifier("24h_Volume"))
	assert.False(t, IsIdentifier("2020"))
	assert.False(t, IsIdentifier("Sales ($)"))
	assert.False(t, IsIdentifier(""))
}

var sinkNode *Node

func BenchmarkNormalize(b *testing.B) {
	expr := "datum.Year >= 2020 && (datum.Firm_Name == 'Deloitte' || datum.Firm_Name == 'PwC') && datum.Score > 4.5"
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		sinkNode, _ = Normalize(expr)
	}
}
