//
// Tencent is pleased to support the open source community by making trpc-vischart-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-vischart-go is licensed under the Apache License Version 2.0.
//
//

// Package dialogset models multi-turn visualization dialogue datasets.
//
// The same shape carries reference datasets and model outputs: a list of
// dialogues, each bound to a data file and holding ordered turns. A reference
// turn has one chart. A candidate turn has either one chart, several ranked
// predictions for best-of-N scoring, or raw step-by-step reasoning output.
package dialogset

import (
	"encoding/json"
	"fmt"

	"trpc.group/trpc-go/trpc-vischart-go/chart"
	"trpc.group/trpc-go/trpc-vischart-go/log"
)

// Analytic tasks used by the datasets.
const (
	TaskComparison               = "Comparison"
	TaskModifyChart              = "Modify Chart"
	TaskComputeDerivedValue      = "Compute Derived Value"
	TaskCorrelate                = "Correlate"
	TaskFindExtremum             = "Find Extremum"
	TaskRetrieveValue            = "Retrieve Value"
	TaskCharacterizeDistribution = "Characterize Distribution"
	TaskChangeOverTime           = "Change Over Time"
	TaskFindAnomalies            = "Find Anomalies"
	TaskDetermineRange           = "Determine Range"
)

// Tasks lists every analytic task in reporting order.
var Tasks = []string{
	TaskComparison, TaskModifyChart, TaskComputeDerivedValue, TaskCorrelate, TaskFindExtremum,
	TaskRetrieveValue, TaskCharacterizeDistribution, TaskChangeOverTime, TaskFindAnomalies,
	TaskDetermineRange,
}

// Dialogue is one multi-turn conversation over a data file.
type Dialogue struct {
	File  string  `json:"file"`
	Turns []*Turn `json:"dialogues"`
}

// Empty reports whether the dialogue carries no turns.
func (d *Dialogue) Empty() bool {
	return d == nil || len(d.Turns) == 0
}

// Turn is one user utterance and the chart answering it.
type Turn struct {
	Utterance    string          `json:"utterance,omitempty"`
	AnalyticTask string          `json:"analytic task,omitempty"`
	Chart        *chart.Spec     `json:"chart,omitempty"`
	Charts       []*Prediction   `json:"charts,omitempty"`
	Steps        json.RawMessage `json:"steps,omitempty"`
}

// Prediction is one candidate chart with the task the model assigned to it.
type Prediction struct {
	AnalyticTask string      `json:"analytic task,omitempty"`
	Chart        *chart.Spec `json:"chart,omitempty"`
}

// Predictions returns the turn's candidate charts: the ranked list when
// present, otherwise the single chart. Nil when the turn carries neither.
func (t *Turn) Predictions() []*Prediction {
	if t == nil {
		return nil
	}
	if len(t.Charts) > 0 {
		return t.Charts
	}
	if t.Chart == nil {
		return nil
	}
	return []*Prediction{{AnalyticTask: t.AnalyticTask, Chart: t.Chart}}
}

type turnJSON struct {
	Utterance     string          `json:"utterance"`
	AnalyticTask  json.RawMessage `json:"analytic task"`
	AnalyzingTask json.RawMessage `json:"analyzing tasks"`
	Chart         json.RawMessage `json:"chart"`
	Charts        []*Prediction   `json:"charts"`
	Steps         json.RawMessage `json:"steps"`
}

// UnmarshalJSON accepts both "analytic task" and the older "analyzing tasks"
// key, each as a string or a one-element list. A chart that is not an object
// (null, or a placeholder string from a failed generation) or that does not
// decode as a chart is absent.
func (t *Turn) UnmarshalJSON(data []byte) error {
	var raw turnJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	task, err := decodeTask(raw.AnalyticTask)
	if err != nil {
		return err
	}
	if task == "" {
		if task, err = decodeTask(raw.AnalyzingTask); err != nil {
			return err
		}
	}
	spec := decodeChart(raw.Chart)
	*t = Turn{
		Utterance:    raw.Utterance,
		AnalyticTask: task,
		Chart:        spec,
		Charts:       raw.Charts,
		Steps:        raw.Steps,
	}
	return nil
}

// UnmarshalJSON applies the same task and chart leniency as Turn.
func (p *Prediction) UnmarshalJSON(data []byte) error {
	var raw turnJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	task, err := decodeTask(raw.AnalyticTask)
	if err != nil {
		return err
	}
	if task == "" {
		if task, err = decodeTask(raw.AnalyzingTask); err != nil {
			return err
		}
	}
	spec := decodeChart(raw.Chart)
	*p = Prediction{AnalyticTask: task, Chart: spec}
	return nil
}

func decodeTask(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err != nil {
		return "", fmt.Errorf("decode analytic task %s: %w", raw, err)
	}
	if len(list) == 0 {
		return "", nil
	}
	return list[0], nil
}

// decodeChart returns nil for a chart that is absent, not an object, or an
// object that does not decode, so a malformed record only fails its own turn.
func decodeChart(raw json.RawMessage) *chart.Spec {
	if len(raw) == 0 || raw[0] != '{' {
		return nil
	}
	spec, err := chart.Parse(raw)
	if err != nil {
		log.Warnf("treat malformed chart as missing: %v", err)
		return nil
	}
	return spec
}
