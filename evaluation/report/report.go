//
// Tencent is pleased to support the open source community by making trpc-vischart-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-vischart-go is licensed under the Apache License Version 2.0.
//
//

// Package report exports run results to xlsx workbooks.
package report

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/xuri/excelize/v2"

	"trpc.group/trpc-go/trpc-vischart-go/chart"
	"trpc.group/trpc-go/trpc-vischart-go/evaluation/evalresult"
	"trpc.group/trpc-go/trpc-vischart-go/evaluation/evaluator"
)

// Sheet names.
const (
	SheetSummary = "Summary"
	SheetTurns   = "Turns"
	SheetTasks   = "Tasks"
)

var turnHeader = []string{
	"Dialogue", "File", "Turn", "Utterance", "Analytic Task", "Right", "Task Match",
	"ROUGE-L", "BLEU", "Reason", "Candidate", "Reference", "Error",
}

var turnWidths = []float64{10, 24, 8, 50, 20, 8, 10, 10, 10, 30, 60, 60, 30}

// ExportXLSX writes run to path with a summary, a per-turn and a per-task sheet.
func ExportXLSX(run *evalresult.RunResult, path string) error {
	if run == nil {
		return errors.New("run result is nil")
	}
	if path == "" {
		return errors.New("output path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	file := excelize.NewFile()
	defer func() {
		_ = file.Close()
	}()

	if err := file.SetSheetName(file.GetSheetName(0), SheetSummary); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	for _, name := range []string{SheetTurns, SheetTasks} {
		if _, err := file.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %s: %w", name, err)
		}
	}

	if err := writeSummary(file, run); err != nil {
		return err
	}
	if err := writeTurns(file, run); err != nil {
		return err
	}
	if err := writeTasks(file, run.Summary); err != nil {
		return err
	}

	if err := file.SaveAs(path); err != nil {
		return fmt.Errorf("save xlsx: %w", err)
	}
	return nil
}

func writeSummary(file *excelize.File, run *evalresult.RunResult) error {
	s := run.Summary
	if s == nil {
		s = evalresult.Summarize(run.Dialogues)
	}
	rows := [][]any{
		{"Run ID", run.RunID},
		{"Created At", run.CreatedAt.Format("2006-01-02 15:04:05")},
		{"Reference", run.Reference},
		{"Candidate", run.Candidate},
		{"Dialogues", s.Dialogues},
		{"Skipped Dialogues", s.SkippedDialogues},
		{"Failed Dialogues", s.FailedDialogues},
		{"Right Dialogues", s.RightDialogues},
		{"Turns", s.Turns},
		{"Right Turns", s.RightTurns},
		{"Turn Accuracy", s.TurnAccuracy},
		{"Dialogue Accuracy", s.DialogueAccuracy},
		{"Mean Dialogue Accuracy", s.MeanDialogueAccuracy},
		{"ROUGE-L", s.RougeL},
		{"BLEU", s.BLEU},
		{"Task Accuracy", s.TaskAccuracy},
	}
	if err := file.SetColWidth(SheetSummary, "A", "A", 28); err != nil {
		return fmt.Errorf("set width for A: %w", err)
	}
	if err := file.SetColWidth(SheetSummary, "B", "B", 40); err != nil {
		return fmt.Errorf("set width for B: %w", err)
	}
	for i, row := range rows {
		if err := writeRow(file, SheetSummary, i+1, row); err != nil {
			return err
		}
	}
	return nil
}

func writeTurns(file *excelize.File, run *evalresult.RunResult) error {
	for i, w := range turnWidths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return fmt.Errorf("convert column: %w", err)
		}
		if err := file.SetColWidth(SheetTurns, col, col, w); err != nil {
			return fmt.Errorf("set width for %s: %w", col, err)
		}
	}
	if err := writeRow(file, SheetTurns, 1, toAny(turnHeader)); err != nil {
		return err
	}
	row := 2
	for _, d := range run.Dialogues {
		if d == nil || d.Skipped {
			continue
		}
		if len(d.Turns) == 0 && d.Error != "" {
			if err := writeRow(file, SheetTurns, row, []any{d.Index, d.File, "", "", "", "", "", "", "", "", "", "", d.Error}); err != nil {
				return err
			}
			row++
			continue
		}
		for _, t := range d.Turns {
			if t == nil {
				continue
			}
			values := []any{
				d.Index, d.File, t.Index, t.Utterance, t.AnalyticTask, t.Right, t.TaskMatch,
				t.Score(evaluator.MetricRougeL), t.Score(evaluator.MetricBLEU), t.Reason,
				chartText(t.Candidate), chartText(t.Reference), t.Error,
			}
			if err := writeRow(file, SheetTurns, row, values); err != nil {
				return err
			}
			row++
		}
	}
	return nil
}

func writeTasks(file *excelize.File, s *evalresult.Summary) error {
	if err := writeRow(file, SheetTasks, 1, []any{"Analytic Task", "Turns", "Right Turns", "Task Matches", "Accuracy"}); err != nil {
		return err
	}
	if err := file.SetColWidth(SheetTasks, "A", "A", 28); err != nil {
		return fmt.Errorf("set width for A: %w", err)
	}
	if s == nil {
		return nil
	}
	tasks := make([]string, 0, len(s.PerTask))
	for name := range s.PerTask {
		tasks = append(tasks, name)
	}
	sort.Strings(tasks)
	for i, name := range tasks {
		ts := s.PerTask[name]
		if err := writeRow(file, SheetTasks, i+2, []any{name, ts.Turns, ts.RightTurns, ts.TaskMatches, ts.Accuracy}); err != nil {
			return err
		}
	}
	return nil
}

func writeRow(file *excelize.File, sheet string, row int, values []any) error {
	for idx, v := range values {
		cell, err := excelize.CoordinatesToCellName(idx+1, row)
		if err != nil {
			return fmt.Errorf("convert cell: %w", err)
		}
		if err := file.SetCellValue(sheet, cell, v); err != nil {
			return fmt.Errorf("write %s!%s: %w", sheet, cell, err)
		}
	}
	return nil
}

func toAny(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

func chartText(spec *chart.Spec) string {
	if spec == nil {
		return ""
	}
	return spec.String()
}
