//
// Tencent is pleased to support the open source community by making trpc-vischart-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-vischart-go is licensed under the Apache License Version 2.0.
//
//

// Package steps assembles charts from step-by-step reasoning outputs.
//
// A step output is a JSON object keyed "Step 1" to "Step 7":
//
//	Step 1  analytic task
//	Step 2  fields used by encoding and filter
//	Step 3  operations applied to the previous chart
//	Step 4  mark type
//	Step 5  encoding channels
//	Step 6  filter predicate
//	Step 7  sort overlay merged into the encoding channels
package steps

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"trpc.group/trpc-go/trpc-vischart-go/chart"
)

//go:embed steps.schema.json
var schema []byte

// Schema returns the JSON Schema of a step output.
func Schema() []byte {
	return append([]byte(nil), schema...)
}

var (
	// ErrMissingMark is returned when Step 4 is absent or empty.
	ErrMissingMark = errors.New("step output has no mark")
	// ErrMissingEncoding is returned when Step 5 has no channel.
	ErrMissingEncoding = errors.New("step output has no encoding")
)

// Output is a decoded step output.
type Output struct {
	Task       string
	Fields     json.RawMessage
	Operations []string
	Mark       string
	Encoding   map[string]map[string]any
	Predicate  any
	Sort       map[string]map[string]any
}

// Decode parses a step output. Keys match case-insensitively and ignore
// spaces, so "step 4" and "Step4" are read as "Step 4". A JSON string holding
// the object is unwrapped first.
func Decode(raw json.RawMessage) (*Output, error) {
	raw = json.RawMessage(strings.TrimSpace(string(raw)))
	if len(raw) > 0 && raw[0] == '"' {
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil {
			return nil, fmt.Errorf("decode step output: %w", err)
		}
		raw = json.RawMessage(inner)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("decode step output: %w", err)
	}
	steps := make(map[string]json.RawMessage, len(fields))
	for k, v := range fields {
		steps[stepKey(k)] = v
	}
	out := &Output{Fields: steps["step2"]}
	var err error
	if out.Task, err = decodeStringOrFirst(steps["step1"]); err != nil {
		return nil, fmt.Errorf("decode Step 1: %w", err)
	}
	if out.Operations, err = decodeStrings(steps["step3"]); err != nil {
		return nil, fmt.Errorf("decode Step 3: %w", err)
	}
	if out.Mark, err = decodeMark(steps["step4"]); err != nil {
		return nil, fmt.Errorf("decode Step 4: %w", err)
	}
	if out.Encoding, err = decodeChannels(steps["step5"]); err != nil {
		return nil, fmt.Errorf("decode Step 5: %w", err)
	}
	if raw, ok := steps["step6"]; ok && !isNull(raw) {
		if err := unmarshalUseNumber(raw, &out.Predicate); err != nil {
			return nil, fmt.Errorf("decode Step 6: %w", err)
		}
	}
	if out.Sort, err = decodeChannels(steps["step7"]); err != nil {
		return nil, fmt.Errorf("decode Step 7: %w", err)
	}
	return out, nil
}

// Assemble builds the chart described by out and returns it with the
// analytic task.
func Assemble(out *Output) (*chart.Spec, string, error) {
	if out == nil {
		return nil, "", errors.New("step output is nil")
	}
	if strings.TrimSpace(out.Mark) == "" {
		return nil, "", ErrMissingMark
	}
	if len(out.Encoding) == 0 {
		return nil, "", ErrMissingEncoding
	}
	spec := &chart.Spec{
		Mark:     chart.NewMark(strings.TrimSpace(out.Mark)),
		Encoding: make(chart.Encoding, len(out.Encoding)),
	}
	for name, attrs := range out.Encoding {
		spec.Encoding[name] = chart.NewChannel(attrs)
	}
	for _, name := range sortedNames(out.Sort) {
		ch, ok := spec.Encoding[name]
		if !ok {
			ch = chart.NewChannel(nil)
			spec.Encoding[name] = ch
		}
		for attr, v := range out.Sort[name] {
			ch.Set(attr, v)
		}
	}
	expr, err := chart.RenderPredicate(out.Predicate)
	if out.Predicate != nil && err != nil {
		return nil, "", fmt.Errorf("render Step 6: %w", err)
	}
	if expr != "" {
		spec.SetFilter(expr)
	}
	return spec, strings.TrimSpace(out.Task), nil
}

// AssembleJSON decodes and assembles a raw step output.
func AssembleJSON(raw json.RawMessage) (*chart.Spec, string, error) {
	out, err := Decode(raw)
	if err != nil {
		return nil, "", err
	}
	return Assemble(out)
}

func stepKey(k string) string {
	return strings.ToLower(strings.ReplaceAll(k, " ", ""))
}

func isNull(raw json.RawMessage) bool {
	s := strings.TrimSpace(string(raw))
	return s == "" || s == "null"
}

func decodeStringOrFirst(raw json.RawMessage) (string, error) {
	if isNull(raw) {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err != nil {
		return "", err
	}
	if len(list) == 0 {
		return "", nil
	}
	return list[0], nil
}

func decodeStrings(raw json.RawMessage) ([]string, error) {
	if isNull(raw) {
		return nil, nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	return []string{s}, nil
}

func decodeMark(raw json.RawMessage) (string, error) {
	if isNull(raw) {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var obj struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return "", err
	}
	return obj.Type, nil
}

func decodeChannels(raw json.RawMessage) (map[string]map[string]any, error) {
	if isNull(raw) {
		return nil, nil
	}
	var channels map[string]map[string]any
	if err := unmarshalUseNumber(raw, &channels); err != nil {
		return nil, err
	}
	return channels, nil
}

func unmarshalUseNumber(raw json.RawMessage, v any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	return dec.Decode(v)
}

func sortedNames(m map[string]map[string]any) []string {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
