//
// Tencent is pleased to support the open source community by making trpc-vischart-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-vischart-go is licensed under the Apache License Version 2.0.
//
//

// Package evalresult models evaluation run results and their storage.
package evalresult

import (
	"context"
	"errors"
	"time"

	"trpc.group/trpc-go/trpc-vischart-go/chart"
	"trpc.group/trpc-go/trpc-vischart-go/evaluation/evaluator"
)

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = errors.New("eval result not found")

// Manager stores run results.
type Manager interface {
	// Save stores the run and returns its id.
	Save(ctx context.Context, run *RunResult) (string, error)
	// Get loads a run by id.
	Get(ctx context.Context, runID string) (*RunResult, error)
	// List returns the stored run ids, oldest first.
	List(ctx context.Context) ([]string, error)
	// Close releases the manager resources.
	Close() error
}

// RunResult is the outcome of evaluating a candidate dataset against a reference dataset.
type RunResult struct {
	RunID     string            `json:"run_id"`
	CreatedAt time.Time         `json:"created_at"`
	Reference string            `json:"reference,omitempty"`
	Candidate string            `json:"candidate,omitempty"`
	Metrics   []string          `json:"metrics"`
	Dialogues []*DialogueResult `json:"dialogues"`
	Summary   *Summary          `json:"summary"`
}

// DialogueResult is the outcome for one dialogue.
type DialogueResult struct {
	Index int    `json:"index"`
	File  string `json:"file,omitempty"`
	// Skipped is set for dialogues whose candidate output is empty.
	Skipped bool `json:"skipped,omitempty"`
	// AllRight is set when every turn's chart is right.
	AllRight bool `json:"all_right"`
	// Accuracy is the fraction of right turns.
	Accuracy float64       `json:"accuracy"`
	Turns    []*TurnResult `json:"turns"`
	Error    string        `json:"error,omitempty"`
}

// TurnResult is the outcome for one turn.
type TurnResult struct {
	Index        int    `json:"index"`
	Utterance    string `json:"utterance,omitempty"`
	AnalyticTask string `json:"analytic_task,omitempty"`
	// Right is set when the chart accuracy metric passed.
	Right bool `json:"right"`
	// TaskMatch is set when the analytic task metric passed.
	TaskMatch bool                                 `json:"task_match"`
	Reason    string                               `json:"reason,omitempty"`
	Candidate *chart.Spec                          `json:"candidate,omitempty"`
	Reference *chart.Spec                          `json:"reference,omitempty"`
	Metrics   map[string]*evaluator.EvaluateResult `json:"metrics,omitempty"`
	Error     string                               `json:"error,omitempty"`
}

// Score returns the score of the named metric, zero when absent.
func (t *TurnResult) Score(metric string) float64 {
	if t == nil {
		return 0
	}
	if r, ok := t.Metrics[metric]; ok && r != nil {
		return r.Score
	}
	return 0
}
