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
	"sort"
	"strings"

	"github.com/google/go-cmp/cmp"
)

// Kind labels a node of the filter tree.
type Kind string

// Node kinds.
const (
	KindOr         Kind = "or_op"
	KindAnd        Kind = "and_op"
	KindComparison Kind = "comparison_op"
	KindCall       Kind = "func_call"
	KindIdentifier Kind = "identifier"
	KindNumber     Kind = "number"
	KindString     Kind = "string"
	KindBoolean    Kind = "boolean"
)

// Node is a filter expression tree node.
//
// Leaves keep their literal text in Value (string literals without quotes).
// A comparison keeps its operator in Value and its two operands in Children.
// A function call keeps its name in Value and its arguments in Children.
type Node struct {
	Kind     Kind
	Value    string
	Children []*Node
}

// IsLeaf reports whether the node is a literal or identifier.
func (n *Node) IsLeaf() bool {
	switch n.Kind {
	case KindIdentifier, KindNumber, KindString, KindBoolean:
		return true
	}
	return false
}

// String renders the node as an indented tree. The rendering is the
// ordering key used when canonicalizing and/or operands.
func (n *Node) String() string {
	if n == nil {
		return ""
	}
	var sb strings.Builder
	n.render(&sb, 0)
	return sb.String()
}

const indentUnit = "  "

func (n *Node) render(sb *strings.Builder, level int) {
	indent := strings.Repeat(indentUnit, level)
	sb.WriteString(indent)
	sb.WriteString(string(n.Kind))
	switch {
	case n.IsLeaf():
		sb.WriteString("\t")
		sb.WriteString(n.Value)
		sb.WriteString("\n")
	case n.Kind == KindComparison:
		sb.WriteString("\n")
		if len(n.Children) == 2 {
			n.Children[0].render(sb, level+1)
			sb.WriteString(indent + indentUnit + n.Value + "\n")
			n.Children[1].render(sb, level+1)
		}
	case n.Kind == KindCall:
		if len(n.Children) == 0 {
			sb.WriteString("\t" + n.Value + "\n")
			return
		}
		sb.WriteString("\n")
		sb.WriteString(indent + indentUnit + n.Value + "\n")
		for _, c := range n.Children {
			c.render(sb, level+1)
		}
	default:
		sb.WriteString("\n")
		for _, c := range n.Children {
			c.render(sb, level+1)
		}
	}
}

// Canonicalize returns a copy of n where the operands of every and/or node
// are sorted by their rendering, innermost nodes first. And and or levels
// are sorted independently and never merged.
func Canonicalize(n *Node) *Node {
	if n == nil {
		return nil
	}
	out := &Node{Kind: n.Kind, Value: n.Value}
	if len(n.Children) > 0 {
		out.Children = make([]*Node, len(n.Children))
		for i, c := range n.Children {
			out.Children[i] = Canonicalize(c)
		}
	}
	if out.Kind == KindAnd || out.Kind == KindOr {
		keys := make(map[*Node]string, len(out.Children))
		for _, c := range out.Children {
			keys[c] = c.String()
		}
		sort.SliceStable(out.Children, func(i, j int) bool {
			return keys[out.Children[i]] < keys[out.Children[j]]
		})
	}
	return out
}

// Equal reports whether two trees are structurally identical.
func Equal(a, b *Node) bool {
	return cmp.Equal(a, b)
}
