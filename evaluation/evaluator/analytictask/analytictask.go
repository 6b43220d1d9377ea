//
// Tencent is pleased to support the open source community by making trpc-vischart-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-vischart-go is licensed under the Apache License Version 2.0.
//
//

// Package analytictask scores whether the predicted analytic task matches.
package analytictask

import (
	"context"
	"fmt"
	"strings"

	"trpc.group/trpc-go/trpc-vischart-go/evaluation/dialogset"
	"trpc.group/trpc-go/trpc-vischart-go/evaluation/evaluator"
	"trpc.group/trpc-go/trpc-vischart-go/evaluation/status"
)

type analyticTaskEvaluator struct{}

// New returns the analytic task evaluator.
func New() evaluator.Evaluator {
	return &analyticTaskEvaluator{}
}

// Name returns the metric name for this evaluator.
func (e *analyticTaskEvaluator) Name() string {
	return evaluator.MetricAnalyticTask
}

// Description describes what this evaluator checks.
func (e *analyticTaskEvaluator) Description() string {
	return "Scores 1 when any prediction names the reference analytic task"
}

// Evaluate compares task names case-insensitively. Turns whose reference has
// no task are not evaluated.
func (e *analyticTaskEvaluator) Evaluate(ctx context.Context, predictions []*dialogset.Prediction,
	reference *dialogset.Turn, metric *evaluator.Metric) (*evaluator.EvaluateResult, error) {
	if reference == nil {
		return nil, evaluator.ErrNilReference
	}
	want := normalize(reference.AnalyticTask)
	if want == "" {
		return evaluator.NotEvaluated("reference has no analytic task"), nil
	}
	if len(predictions) == 0 {
		return evaluator.Missing(), nil
	}
	threshold := evaluator.Threshold(metric, 1)
	for i, p := range predictions {
		if p != nil && normalize(p.AnalyticTask) == want {
			return &evaluator.EvaluateResult{
				Score:  1,
				Status: status.ForScore(1, threshold),
				Reason: reference.AnalyticTask,
				Best:   i,
			}, nil
		}
	}
	got := ""
	if predictions[0] != nil {
		got = predictions[0].AnalyticTask
	}
	return &evaluator.EvaluateResult{
		Status: status.ForScore(0, threshold),
		Reason: fmt.Sprintf("got %q, want %q", got, reference.AnalyticTask),
		Best:   -1,
	}, nil
}

func normalize(task string) string {
	return strings.ToLower(strings.Join(strings.Fields(task), " "))
}
