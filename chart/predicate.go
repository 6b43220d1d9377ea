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
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"trpc.group/trpc-go/trpc-vischart-go/chart/filter"
)

// ErrUnsupportedPredicate is returned for predicate objects RenderPredicate cannot express.
var ErrUnsupportedPredicate = errors.New("unsupported predicate")

var comparisonOperators = map[string]string{
	"eq":    "==",
	"equal": "==",
	"neq":   "!=",
	"gt":    ">",
	"gte":   ">=",
	"lt":    "<",
	"lte":   "<=",
}

// RenderPredicate renders a predicate object as a filter expression.
//
// Two shapes are accepted. The operator form keys a comparison by operator,
// {"gte": ["Year", 2020]}, and combines with {"and": [...]} and {"or": [...]}.
// The field form follows Vega-Lite field predicates, {"field": "Year", "gte": 2020},
// including "oneOf" and "range". An empty object renders as "".
func RenderPredicate(p any) (string, error) {
	if v, ok := p.(Value); ok {
		p = v.Raw()
	}
	obj, ok := p.(map[string]any)
	if !ok {
		if s, ok := p.(string); ok {
			return s, nil
		}
		return "", fmt.Errorf("%w: %T", ErrUnsupportedPredicate, p)
	}
	if len(obj) == 0 {
		return "", nil
	}
	return renderPredicate(obj, "")
}

func renderPredicate(obj map[string]any, parent string) (string, error) {
	if field, ok := obj["field"].(string); ok {
		return renderFieldPredicate(field, obj, parent)
	}
	if len(obj) != 1 {
		return "", fmt.Errorf("%w: expected a single operator, got %s", ErrUnsupportedPredicate, strings.Join(sortedKeys(obj), ","))
	}
	for op, arg := range obj {
		switch op {
		case "and", "or":
			return renderJunction(op, arg, parent)
		}
		symbol, ok := comparisonOperators[op]
		if !ok {
			return "", fmt.Errorf("%w: operator %q", ErrUnsupportedPredicate, op)
		}
		operands, ok := arg.([]any)
		if !ok || len(operands) != 2 {
			return "", fmt.Errorf("%w: %q expects [field, value]", ErrUnsupportedPredicate, op)
		}
		field, ok := operands[0].(string)
		if !ok {
			return "", fmt.Errorf("%w: %q field must be a string", ErrUnsupportedPredicate, op)
		}
		lit, err := literal(operands[1])
		if err != nil {
			return "", err
		}
		return datumRef(field) + " " + symbol + " " + lit, nil
	}
	return "", nil
}

func renderJunction(op string, arg any, parent string) (string, error) {
	items, ok := arg.([]any)
	if !ok {
		return "", fmt.Errorf("%w: %q expects a list", ErrUnsupportedPredicate, op)
	}
	parts := make([]string, 0, len(items))
	for _, item := range items {
		child, ok := item.(map[string]any)
		if !ok {
			return "", fmt.Errorf("%w: %q operand %T", ErrUnsupportedPredicate, op, item)
		}
		if len(child) == 0 {
			continue
		}
		s, err := renderPredicate(child, op)
		if err != nil {
			return "", err
		}
		parts = append(parts, s)
	}
	switch len(parts) {
	case 0:
		return "", nil
	case 1:
		return parts[0], nil
	}
	sep := " && "
	if op == "or" {
		sep = " || "
	}
	joined := strings.Join(parts, sep)
	if parent != "" && parent != op {
		joined = "(" + joined + ")"
	}
	return joined, nil
}

func renderFieldPredicate(field string, obj map[string]any, parent string) (string, error) {
	ref := datumRef(field)
	var parts []string
	for _, key := range sortedKeys(obj) {
		if key == "field" {
			continue
		}
		arg := obj[key]
		if symbol, ok := comparisonOperators[key]; ok {
			lit, err := literal(arg)
			if err != nil {
				return "", err
			}
			parts = append(parts, ref+" "+symbol+" "+lit)
			continue
		}
		switch key {
		case "oneOf":
			values, ok := arg.([]any)
			if !ok || len(values) == 0 {
				return "", fmt.Errorf("%w: oneOf expects a non-empty list", ErrUnsupportedPredicate)
			}
			alts := make([]string, 0, len(values))
			for _, v := range values {
				lit, err := literal(v)
				if err != nil {
					return "", err
				}
				alts = append(alts, ref+" == "+lit)
			}
			if len(alts) == 1 {
				parts = append(parts, alts[0])
			} else {
				parts = append(parts, "("+strings.Join(alts, " || ")+")")
			}
		case "range":
			bounds, ok := arg.([]any)
			if !ok || len(bounds) != 2 {
				return "", fmt.Errorf("%w: range expects [min, max]", ErrUnsupportedPredicate)
			}
			lo, err := literal(bounds[0])
			if err != nil {
				return "", err
			}
			hi, err := literal(bounds[1])
			if err != nil {
				return "", err
			}
			parts = append(parts, ref+" >= "+lo, ref+" <= "+hi)
		default:
			return "", fmt.Errorf("%w: field predicate key %q", ErrUnsupportedPredicate, key)
		}
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("%w: field predicate without a test", ErrUnsupportedPredicate)
	}
	joined := strings.Join(parts, " && ")
	if len(parts) > 1 && parent == "or" {
		joined = "(" + joined + ")"
	}
	return joined, nil
}

func datumRef(field string) string {
	if filter.IsIdentifier(field) {
		return "datum." + field
	}
	return "datum['" + field + "']"
}

func literal(v any) (string, error) {
	switch t := v.(type) {
	case string:
		if strings.Contains(t, "'") {
			return `"` + t + `"`, nil
		}
		return "'" + t + "'", nil
	case json.Number:
		return t.String(), nil
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), nil
	case int:
		return strconv.Itoa(t), nil
	case int64:
		return strconv.FormatInt(t, 10), nil
	case bool:
		return strconv.FormatBool(t), nil
	}
	return "", fmt.Errorf("%w: literal %T", ErrUnsupportedPredicate, v)
}

func sortedKeys(obj map[string]any) []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
