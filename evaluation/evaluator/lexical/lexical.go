//
// Tencent is pleased to support the open source community by making trpc-vischart-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-vischart-go is licensed under the Apache License Version 2.0.
//
//

// Package lexical scores a turn by the string similarity of serialized charts.
package lexical

import (
	"context"
	"fmt"

	"trpc.group/trpc-go/trpc-vischart-go/evaluation/dialogset"
	"trpc.group/trpc-go/trpc-vischart-go/evaluation/evaluator"
	"trpc.group/trpc-go/trpc-vischart-go/evaluation/similarity"
	"trpc.group/trpc-go/trpc-vischart-go/evaluation/status"
)

type lexicalEvaluator struct {
	name        string
	description string
	score       func(candidate, reference string) float64
}

// NewRougeL returns the ROUGE-L evaluator.
func NewRougeL() evaluator.Evaluator {
	return &lexicalEvaluator{
		name:        evaluator.MetricRougeL,
		description: "Character-level ROUGE-L F1 between the serialized predicted and reference charts",
		score:       similarity.RougeL,
	}
}

// NewBLEU returns the sentence BLEU evaluator.
func NewBLEU() evaluator.Evaluator {
	return &lexicalEvaluator{
		name:        evaluator.MetricBLEU,
		description: "Sentence BLEU of the serialized predicted chart against the serialized reference chart",
		score:       similarity.BLEU,
	}
}

// Name returns the metric name for this evaluator.
func (e *lexicalEvaluator) Name() string {
	return e.name
}

// Description describes what this evaluator checks.
func (e *lexicalEvaluator) Description() string {
	return e.description
}

// Evaluate keeps the highest score among the predictions.
func (e *lexicalEvaluator) Evaluate(ctx context.Context, predictions []*dialogset.Prediction,
	reference *dialogset.Turn, metric *evaluator.Metric) (*evaluator.EvaluateResult, error) {
	if reference == nil {
		return nil, evaluator.ErrNilReference
	}
	if len(predictions) == 0 {
		return evaluator.Missing(), nil
	}
	ref := similarity.Serialize(reference.Chart)
	best, bestIdx := 0.0, -1
	for i, p := range predictions {
		if p == nil || p.Chart == nil {
			continue
		}
		s := e.score(similarity.Serialize(p.Chart), ref)
		if bestIdx < 0 || s > best {
			best, bestIdx = s, i
		}
	}
	if bestIdx < 0 {
		return evaluator.Missing(), nil
	}
	return &evaluator.EvaluateResult{
		Score:  best,
		Status: status.ForScore(best, evaluator.Threshold(metric, 0)),
		Reason: fmt.Sprintf("%s %.4f", e.name, best),
		Best:   bestIdx,
	}, nil
}
