//
// Tencent is pleased to support the open source community by making trpc-vischart-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-vischart-go is licensed under the Apache License Version 2.0.
//
//

package preference

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/google/go-cmp/cmp"
)

// literalSpellings maps the single quotes and literals some models emit
// inside step answers to their JSON spelling.
var literalSpellings = strings.NewReplacer("'", "\"", "True", "true", "False", "false", "None", "null")

// FirstDivergence returns the number of the first step whose answers differ,
// or 0 when every step agrees.
//
// Steps 1, 3 and 4 compare their answers as text with spaces removed. Step 2
// compares JSON objects whose list values are sorted. Steps 5 to 7 compare
// JSON values ignoring list order, string case and number spelling.
func FirstDivergence(candidate, truth *Path) (int, error) {
	if candidate == nil || truth == nil {
		return 0, ErrIncompletePath
	}
	if len(candidate.Steps) != StepCount || len(truth.Steps) != StepCount {
		return 0, fmt.Errorf("%w: want %d steps", ErrIncompletePath, StepCount)
	}
	for i := 0; i < StepCount; i++ {
		n := i + 1
		same, err := sameAnswer(n, candidate.Steps[i].Answer, truth.Steps[i].Answer)
		if err != nil {
			return 0, fmt.Errorf("compare step %d: %w", n, err)
		}
		if !same {
			return n, nil
		}
	}
	return 0, nil
}

func sameAnswer(n int, candidate, truth string) (bool, error) {
	switch n {
	case 1, 3, 4:
		return compactText(candidate) == compactText(truth), nil
	}
	c, err := looseJSON(candidate)
	if err != nil {
		return false, fmt.Errorf("candidate answer: %w", err)
	}
	t, err := looseJSON(truth)
	if err != nil {
		return false, fmt.Errorf("truth answer: %w", err)
	}
	if n == 2 {
		return cmp.Equal(sortListValues(c), sortListValues(t)), nil
	}
	return flexibleEqual(c, t), nil
}

func compactText(s string) string {
	return strings.ReplaceAll(s, " ", "")
}

func looseJSON(s string) (any, error) {
	dec := json.NewDecoder(strings.NewReader(literalSpellings.Replace(s)))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// sortListValues sorts the list values of a top-level object by their JSON
// encoding.
func sortListValues(v any) any {
	m, ok := v.(map[string]any)
	if !ok {
		return v
	}
	out := make(map[string]any, len(m))
	for k, val := range m {
		list, ok := val.([]any)
		if !ok {
			out[k] = val
			continue
		}
		sorted := append([]any(nil), list...)
		sort.SliceStable(sorted, func(i, j int) bool {
			return bytes.Compare(encode(sorted[i]), encode(sorted[j])) < 0
		})
		out[k] = sorted
	}
	return out
}

func encode(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return b
}

func flexibleEqual(a, b any) bool {
	switch av := a.(type) {
	case map[string]any:
		bv, ok := b.(map[string]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, x := range av {
			y, ok := bv[k]
			if !ok || !flexibleEqual(x, y) {
				return false
			}
		}
		return true
	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		used := make([]bool, len(bv))
	next:
		for _, x := range av {
			for j, y := range bv {
				if !used[j] && flexibleEqual(x, y) {
					used[j] = true
					continue next
				}
			}
			return false
		}
		return true
	}
	as, aok := scalarText(a)
	bs, bok := scalarText(b)
	if aok && bok {
		if af, err := strconv.ParseFloat(as, 64); err == nil {
			if bf, err := strconv.ParseFloat(bs, 64); err == nil {
				return af == bf
			}
		}
		return strings.EqualFold(as, bs)
	}
	return cmp.Equal(a, b)
}

func scalarText(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x), true
	case json.Number:
		return x.String(), true
	}
	return "", false
}
