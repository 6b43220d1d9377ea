//
// Tencent is pleased to support the open source community by making trpc-vischart-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-vischart-go is licensed under the Apache License Version 2.0.
//
//

// Package chartschema validates predicted charts against a JSON Schema.
package chartschema

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"trpc.group/trpc-go/trpc-vischart-go/chart"
	"trpc.group/trpc-go/trpc-vischart-go/evaluation/dialogset"
	"trpc.group/trpc-go/trpc-vischart-go/evaluation/evaluator"
	"trpc.group/trpc-go/trpc-vischart-go/evaluation/status"
)

//go:embed chart.schema.json
var defaultSchema []byte

const schemaResource = "chart.schema.json"

type chartSchemaEvaluator struct {
	schema *jsonschema.Schema
}

// New returns an evaluator using the built-in single-view chart schema.
func New() (evaluator.Evaluator, error) {
	return NewFromBytes(defaultSchema)
}

// NewFromFile returns an evaluator validating against the schema at schemaPath.
func NewFromFile(schemaPath string) (evaluator.Evaluator, error) {
	if schemaPath == "" {
		return nil, errors.New("schema path is empty")
	}
	b, err := os.ReadFile(schemaPath)
	if err != nil {
		return nil, fmt.Errorf("read schema: %w", err)
	}
	return NewFromBytes(b)
}

// NewFromBytes compiles schema and returns an evaluator using it.
func NewFromBytes(schema []byte) (evaluator.Evaluator, error) {
	s, err := Compile(schema)
	if err != nil {
		return nil, err
	}
	return &chartSchemaEvaluator{schema: s}, nil
}

// Compile compiles a JSON Schema document.
func Compile(schema []byte) (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(schemaResource, bytes.NewReader(schema)); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	s, err := compiler.Compile(schemaResource)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return s, nil
}

// Name returns the metric name for this evaluator.
func (e *chartSchemaEvaluator) Name() string {
	return evaluator.MetricChartSchema
}

// Description describes what this evaluator checks.
func (e *chartSchemaEvaluator) Description() string {
	return "Validates that a predicted chart is a single-view chart matching the configured schema"
}

// Evaluate passes when any prediction validates.
func (e *chartSchemaEvaluator) Evaluate(ctx context.Context, predictions []*dialogset.Prediction,
	reference *dialogset.Turn, metric *evaluator.Metric) (*evaluator.EvaluateResult, error) {
	if e.schema == nil {
		return nil, errors.New("schema is nil")
	}
	if reference == nil {
		return nil, evaluator.ErrNilReference
	}
	if len(predictions) == 0 {
		return evaluator.Missing(), nil
	}
	threshold := evaluator.Threshold(metric, 1)
	firstReason := ""
	for i, p := range predictions {
		var spec *chart.Spec
		if p != nil {
			spec = p.Chart
		}
		score, reason := e.validateOne(spec)
		if score == 1 {
			return &evaluator.EvaluateResult{
				Score:  1,
				Status: status.ForScore(1, threshold),
				Reason: reason,
				Best:   i,
			}, nil
		}
		if firstReason == "" {
			firstReason = reason
		}
	}
	return &evaluator.EvaluateResult{
		Status: status.ForScore(0, threshold),
		Reason: firstReason,
		Best:   -1,
	}, nil
}

func (e *chartSchemaEvaluator) validateOne(spec *chart.Spec) (float64, string) {
	if spec == nil {
		return 0, "missing chart"
	}
	b, err := json.Marshal(spec)
	if err != nil {
		return 0, fmt.Sprintf("encode chart: %v", err)
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return 0, fmt.Sprintf("invalid JSON: %v", err)
	}
	if err := e.schema.Validate(v); err != nil {
		return 0, fmt.Sprintf("schema validation failed: %v", err)
	}
	return 1, "valid"
}
