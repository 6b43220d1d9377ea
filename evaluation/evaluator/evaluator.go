//
// Tencent is pleased to support the open source community by making trpc-vischart-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-vischart-go is licensed under the Apache License Version 2.0.
//
//

// Package evaluator defines the per-turn evaluator contract.
//
// An evaluator scores the candidate predictions of one dialogue turn against
// the reference turn. With several predictions (best-of-N) the evaluator
// reports the best one.
package evaluator

import (
	"context"
	"errors"

	"trpc.group/trpc-go/trpc-vischart-go/evaluation/dialogset"
	"trpc.group/trpc-go/trpc-vischart-go/evaluation/status"
)

// Metric names of the built-in evaluators.
const (
	MetricChartAccuracy = "chart_accuracy"
	MetricRougeL        = "rouge_l"
	MetricBLEU          = "bleu"
	MetricAnalyticTask  = "analytic_task"
	MetricChartSchema   = "chart_schema_valid"
)

// ErrNilReference is returned when a reference turn is missing.
var ErrNilReference = errors.New("reference turn is nil")

// Evaluator scores one turn.
type Evaluator interface {
	// Name returns the metric name.
	Name() string
	// Description describes what the evaluator checks.
	Description() string
	// Evaluate scores the predictions against the reference turn.
	Evaluate(ctx context.Context, predictions []*dialogset.Prediction, reference *dialogset.Turn,
		metric *Metric) (*EvaluateResult, error)
}

// Metric selects an evaluator and the score it must reach to pass.
type Metric struct {
	Name      string  `json:"metric_name" yaml:"name"`
	Threshold float64 `json:"threshold" yaml:"threshold"`
}

// EvaluateResult is the outcome for one turn.
type EvaluateResult struct {
	Score  float64           `json:"score"`
	Status status.EvalStatus `json:"status"`
	Reason string            `json:"reason,omitempty"`
	// Best is the index of the prediction that produced Score, -1 when none did.
	Best int `json:"best"`
}

// DefaultMetrics returns the metrics evaluated when none are configured.
func DefaultMetrics() []*Metric {
	return []*Metric{
		{Name: MetricChartAccuracy, Threshold: 1},
		{Name: MetricRougeL, Threshold: 0},
		{Name: MetricBLEU, Threshold: 0},
		{Name: MetricAnalyticTask, Threshold: 1},
	}
}

// NotEvaluated is the result for a turn the evaluator cannot judge.
func NotEvaluated(reason string) *EvaluateResult {
	return &EvaluateResult{Status: status.EvalStatusNotEvaluated, Reason: reason, Best: -1}
}

// Missing is the failing result for a turn without predictions.
func Missing() *EvaluateResult {
	return &EvaluateResult{Status: status.EvalStatusFailed, Reason: "missing prediction", Best: -1}
}

// Threshold returns the metric threshold, or def when metric is nil.
func Threshold(metric *Metric, def float64) float64 {
	if metric == nil {
		return def
	}
	return metric.Threshold
}
