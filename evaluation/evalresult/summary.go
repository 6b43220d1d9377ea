//
// Tencent is pleased to support the open source community by making trpc-vischart-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-vischart-go is licensed under the Apache License Version 2.0.
//
//

package evalresult

import (
	"trpc.group/trpc-go/trpc-vischart-go/evaluation/evaluator"
	"trpc.group/trpc-go/trpc-vischart-go/evaluation/status"
)

// Summary aggregates a run. Every mean divides by the number of items that
// were actually evaluated.
type Summary struct {
	Dialogues        int `json:"dialogues"`
	SkippedDialogues int `json:"skipped_dialogues"`
	FailedDialogues  int `json:"failed_dialogues"`
	RightDialogues   int `json:"right_dialogues"`
	Turns            int `json:"turns"`
	RightTurns       int `json:"right_turns"`

	TurnAccuracy         float64 `json:"turn_accuracy"`
	DialogueAccuracy     float64 `json:"dialogue_accuracy"`
	MeanDialogueAccuracy float64 `json:"mean_dialogue_accuracy"`
	RougeL               float64 `json:"rouge_l"`
	BLEU                 float64 `json:"bleu"`

	TaskTurns    int     `json:"task_turns"`
	TaskMatches  int     `json:"task_matches"`
	TaskAccuracy float64 `json:"task_accuracy"`

	// PerTask is keyed by the reference analytic task.
	PerTask map[string]*TaskSummary `json:"per_task,omitempty"`
}

// TaskSummary counts the turns of one analytic task.
type TaskSummary struct {
	Turns       int     `json:"turns"`
	RightTurns  int     `json:"right_turns"`
	TaskMatches int     `json:"task_matches"`
	Accuracy    float64 `json:"accuracy"`
}

// Accumulator folds dialogue results into a Summary.
type Accumulator struct {
	s           Summary
	dialogueAcc float64
	rougeL      float64
	bleu        float64
}

// NewAccumulator returns an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{s: Summary{PerTask: make(map[string]*TaskSummary)}}
}

// Add folds one dialogue. Skipped dialogues and dialogues that failed before
// any turn was evaluated only increase their own counters.
func (a *Accumulator) Add(d *DialogueResult) {
	switch {
	case d == nil:
		return
	case d.Skipped:
		a.s.SkippedDialogues++
		return
	case d.Error != "" && len(d.Turns) == 0:
		a.s.FailedDialogues++
		return
	}
	a.s.Dialogues++
	if d.AllRight {
		a.s.RightDialogues++
	}
	a.dialogueAcc += d.Accuracy
	for _, t := range d.Turns {
		if t == nil {
			continue
		}
		a.s.Turns++
		if t.Right {
			a.s.RightTurns++
		}
		a.rougeL += t.Score(evaluator.MetricRougeL)
		a.bleu += t.Score(evaluator.MetricBLEU)
		taskEvaluated := false
		if r, ok := t.Metrics[evaluator.MetricAnalyticTask]; ok && r != nil && r.Status != status.EvalStatusNotEvaluated {
			taskEvaluated = true
			a.s.TaskTurns++
			if t.TaskMatch {
				a.s.TaskMatches++
			}
		}
		if t.AnalyticTask == "" {
			continue
		}
		ts, ok := a.s.PerTask[t.AnalyticTask]
		if !ok {
			ts = &TaskSummary{}
			a.s.PerTask[t.AnalyticTask] = ts
		}
		ts.Turns++
		if t.Right {
			ts.RightTurns++
		}
		if taskEvaluated && t.TaskMatch {
			ts.TaskMatches++
		}
	}
}

// Summary returns the aggregates folded so far.
func (a *Accumulator) Summary() *Summary {
	out := a.s
	out.PerTask = make(map[string]*TaskSummary, len(a.s.PerTask))
	for name, ts := range a.s.PerTask {
		cp := *ts
		cp.Accuracy = ratio(float64(cp.RightTurns), cp.Turns)
		out.PerTask[name] = &cp
	}
	out.TurnAccuracy = ratio(float64(out.RightTurns), out.Turns)
	out.DialogueAccuracy = ratio(float64(out.RightDialogues), out.Dialogues)
	out.MeanDialogueAccuracy = ratio(a.dialogueAcc, out.Dialogues)
	out.RougeL = ratio(a.rougeL, out.Turns)
	out.BLEU = ratio(a.bleu, out.Turns)
	out.TaskAccuracy = ratio(float64(out.TaskMatches), out.TaskTurns)
	return &out
}

// Summarize folds every dialogue.
func Summarize(dialogues []*DialogueResult) *Summary {
	acc := NewAccumulator()
	for _, d := range dialogues {
		acc.Add(d)
	}
	return acc.Summary()
}

func ratio(sum float64, n int) float64 {
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
