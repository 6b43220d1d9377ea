//
// Tencent is pleased to support the open source community by making trpc-vischart-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-vischart-go is licensed under the Apache License Version 2.0.
//
//

// Package service defines the batch evaluation service.
package service

import (
	"context"
	"encoding/json"

	"trpc.group/trpc-go/trpc-vischart-go/evaluation/dialogset"
	"trpc.group/trpc-go/trpc-vischart-go/evaluation/evalresult"
	"trpc.group/trpc-go/trpc-vischart-go/evaluation/evaluator"
)

// Service evaluates candidate dialogues against reference dialogues.
type Service interface {
	// Evaluate pairs candidate dialogue i with reference dialogue i and turn j
	// with turn j, runs every metric and returns the run result.
	Evaluate(ctx context.Context, req *EvaluateRequest, opt ...Option) (*evalresult.RunResult, error)
	// Close releases the service resources.
	Close() error
}

// EvaluateRequest names the datasets to compare.
type EvaluateRequest struct {
	References []*dialogset.Dialogue
	Candidates []*dialogset.Dialogue
	// ReferenceName and CandidateName label the run, usually file paths.
	ReferenceName string
	CandidateName string
	// Metrics defaults to evaluator.DefaultMetrics when empty.
	Metrics []*evaluator.Metric
}

// StepAssembler turns raw step-by-step output into a prediction.
type StepAssembler func(raw json.RawMessage) (*dialogset.Prediction, error)
