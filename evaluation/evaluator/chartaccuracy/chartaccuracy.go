//
// Tencent is pleased to support the open source community by making trpc-vischart-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-vischart-go is licensed under the Apache License Version 2.0.
//
//

// Package chartaccuracy scores a turn by chart equivalence.
package chartaccuracy

import (
	"context"

	"trpc.group/trpc-go/trpc-vischart-go/evaluation/accuracy"
	"trpc.group/trpc-go/trpc-vischart-go/evaluation/dialogset"
	"trpc.group/trpc-go/trpc-vischart-go/evaluation/evaluator"
	"trpc.group/trpc-go/trpc-vischart-go/evaluation/status"
)

type chartAccuracyEvaluator struct{}

// New returns the chart accuracy evaluator.
func New() evaluator.Evaluator {
	return &chartAccuracyEvaluator{}
}

// Name returns the metric name for this evaluator.
func (e *chartAccuracyEvaluator) Name() string {
	return evaluator.MetricChartAccuracy
}

// Description describes what this evaluator checks.
func (e *chartAccuracyEvaluator) Description() string {
	return "Scores 1 when any predicted chart is equivalent to the reference chart"
}

// Evaluate compares every prediction and keeps the first equivalent one. When
// none is equivalent the reason of the first prediction is reported.
func (e *chartAccuracyEvaluator) Evaluate(ctx context.Context, predictions []*dialogset.Prediction,
	reference *dialogset.Turn, metric *evaluator.Metric) (*evaluator.EvaluateResult, error) {
	if reference == nil {
		return nil, evaluator.ErrNilReference
	}
	if len(predictions) == 0 {
		return evaluator.Missing(), nil
	}
	threshold := evaluator.Threshold(metric, 1)
	var first accuracy.Verdict
	for i, p := range predictions {
		if p == nil {
			continue
		}
		v := accuracy.Compare(p.Chart, reference.Chart)
		if v.Equivalent {
			return &evaluator.EvaluateResult{
				Score:  1,
				Status: status.ForScore(1, threshold),
				Reason: v.String(),
				Best:   i,
			}, nil
		}
		if first.Reason == "" {
			first = v
		}
	}
	if first.Reason == "" {
		first = accuracy.Compare(nil, reference.Chart)
	}
	return &evaluator.EvaluateResult{
		Score:  0,
		Status: status.ForScore(0, threshold),
		Reason: first.String(),
		Best:   -1,
	}, nil
}
