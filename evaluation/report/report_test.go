//
// Tencent is pleased to support the open source community by making trpc-vischart-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-vischart-go is licensed under the Apache License Version 2.0.
//
//

package report

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"trpc.group/trpc-go/trpc-vischart-go/chart"
	"trpc.group/trpc-go/trpc-vischart-go/evaluation/evalresult"
	"trpc.group/trpc-go/trpc-vischart-go/evaluation/evaluator"
	"trpc.group/trpc-go/trpc-vischart-go/evaluation/status"
)

func sampleRun() *evalresult.RunResult {
	bar := chart.MustParse(`{"mark":"bar"}`)
	dialogues := []*evalresult.DialogueResult{
		{Index: 0, File: "cars.csv", AllRight: true, Accuracy: 1, Turns: []*evalresult.TurnResult{{
			Index: 0, Utterance: "bar chart", AnalyticTask: "Comparison", Right: true, TaskMatch: true,
			Reason: "match", Candidate: bar, Reference: bar,
			Metrics: map[string]*evaluator.EvaluateResult{
				evaluator.MetricRougeL:        {Score: 1, Status: status.EvalStatusPassed},
				evaluator.MetricAnalyticTask:  {Score: 1, Status: status.EvalStatusPassed},
				evaluator.MetricChartAccuracy: {Score: 1, Status: status.EvalStatusPassed},
			},
		}}},
		{Index: 1, Skipped: true},
		{Index: 2, File: "broken.csv", Error: "candidate has 3 turns, reference has 2"},
	}
	return &evalresult.RunResult{
		RunID:     "run-1",
		CreatedAt: time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC),
		Reference: "ref.json",
		Candidate: "cand.json",
		Dialogues: dialogues,
		Summary:   evalresult.Summarize(dialogues),
	}
}

func TestExportXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "report.xlsx")
	require.NoError(t, ExportXLSX(sampleRun(), path))

	file, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer func() {
		_ = file.Close()
	}()
	assert.Equal(t, []string{SheetSummary, SheetTurns, SheetTasks}, file.GetSheetList())

	cell := func(sheet, name string) string {
		v, err := file.GetCellValue(sheet, name)
		require.NoError(t, err)
		return v
	}
	assert.Equal(t, "run-1", cell(SheetSummary, "B1"))
	assert.Equal(t, "Turn Accuracy", cell(SheetSummary, "A11"))
	assert.Equal(t, "1", cell(SheetSummary, "B11"))
	assert.Equal(t, "Failed Dialogues", cell(SheetSummary, "A7"))
	assert.Equal(t, "1", cell(SheetSummary, "B7"))

	assert.Equal(t, "Utterance", cell(SheetTurns, "D1"))
	assert.Equal(t, "bar chart", cell(SheetTurns, "D2"))
	assert.Equal(t, "TRUE", cell(SheetTurns, "F2"))
	assert.Equal(t, `{"mark":"bar"}`, cell(SheetTurns, "K2"))
	assert.Equal(t, "broken.csv", cell(SheetTurns, "B3"))
	assert.Equal(t, "candidate has 3 turns, reference has 2", cell(SheetTurns, "M3"))
	assert.Equal(t, "", cell(SheetTurns, "A4"))

	assert.Equal(t, "Comparison", cell(SheetTasks, "A2"))
	assert.Equal(t, "1", cell(SheetTasks, "C2"))
}

func TestExportXLSXErrors(t *testing.T) {
	assert.EqualError(t, ExportXLSX(nil, "x.xlsx"), "run result is nil")
	assert.EqualError(t, ExportXLSX(sampleRun(), ""), "output path is required")
}
