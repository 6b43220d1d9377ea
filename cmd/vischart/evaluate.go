//
// Tencent is pleased to support the open source community by making trpc-vischart-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-vischart-go is licensed under the Apache License Version 2.0.
//
//

package main

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"trpc.group/trpc-go/trpc-vischart-go/evaluation/dialogset"
	"trpc.group/trpc-go/trpc-vischart-go/evaluation/evalresult"
	"trpc.group/trpc-go/trpc-vischart-go/evaluation/evaluator"
	"trpc.group/trpc-go/trpc-vischart-go/evaluation/evaluator/chartschema"
	"trpc.group/trpc-go/trpc-vischart-go/evaluation/evaluator/registry"
	"trpc.group/trpc-go/trpc-vischart-go/evaluation/report"
	"trpc.group/trpc-go/trpc-vischart-go/evaluation/service"
	localsvc "trpc.group/trpc-go/trpc-vischart-go/evaluation/service/local"
	"trpc.group/trpc-go/trpc-vischart-go/internal/fsutil"
	"trpc.group/trpc-go/trpc-vischart-go/log"
)

func evaluateCommand() *cli.Command {
	return &cli.Command{
		Name:  "evaluate",
		Usage: "Score candidate charts against reference charts",
		Description: `Pairs candidate dialogue i with reference dialogue i and turn j with turn j.
Candidate turns may hold one "chart", several "charts" (best of N) or raw "steps".
Dialogues without candidate turns are skipped.

Example:
  vischart evaluate --reference data/test.json --candidate output/model.json --xlsx report.xlsx`,
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:     "reference",
				Aliases:  []string{"r"},
				Usage:    "Reference dataset files or glob patterns",
				Required: true,
			},
			&cli.StringSliceFlag{
				Name:     "candidate",
				Aliases:  []string{"i"},
				Usage:    "Candidate output files or glob patterns",
				Required: true,
			},
			&cli.StringSliceFlag{
				Name:  "metric",
				Usage: "Metric to compute, repeatable (default: configuration or built-in set)",
			},
			&cli.StringFlag{
				Name:    "out",
				Aliases: []string{"o"},
				Usage:   "Write the run result as JSON to this file",
			},
			&cli.StringFlag{
				Name:  "xlsx",
				Usage: "Write the run result as an xlsx workbook to this file",
			},
			&cli.StringFlag{
				Name:  "store",
				Usage: "Result store backend overriding the configuration (inmemory, local, sqlite, mysql)",
			},
			&cli.BoolFlag{
				Name:  "serial",
				Usage: "Evaluate dialogues one at a time",
			},
		},
		Action: runEvaluate,
	}
}

func runEvaluate(c *cli.Context) error {
	cfg, err := configFrom(c)
	if err != nil {
		return err
	}
	if backend := c.String("store"); backend != "" {
		cfg.Store.Backend = backend
	}
	ctx := c.Context

	var refs, cands []*dialogset.Dialogue
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		refs, err = dialogset.Load(gctx, c.StringSlice("reference")...)
		return err
	})
	g.Go(func() (err error) {
		cands, err = dialogset.Load(gctx, c.StringSlice("candidate")...)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	reg := registry.New()
	if cfg.Evaluation.SchemaPath != "" {
		e, err := chartschema.NewFromFile(cfg.Evaluation.SchemaPath)
		if err != nil {
			return err
		}
		if err := reg.Register(e.Name(), e); err != nil {
			return err
		}
	}
	names := c.StringSlice("metric")
	if len(names) == 0 {
		names = cfg.Evaluation.Metrics
	}

	store, err := openStore(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer store.Close()

	callbacks := service.NewCallbacks()
	callbacks.RegisterAfterDialogue("progress", func(ctx context.Context, args *service.AfterDialogueArgs) error {
		log.Debugf("run %s: dialogue %d/%d evaluated in %s", args.RunID, args.Result.Index+1, args.Total,
			time.Since(args.StartTime).Round(time.Millisecond))
		return nil
	})
	svc, err := localsvc.New(
		service.WithRegistry(reg),
		service.WithResultManager(store),
		service.WithCallbacks(callbacks),
		service.WithDialogueParallelism(cfg.Evaluation.Parallelism),
		service.WithDialogueParallelEnabled(!c.Bool("serial")),
	)
	if err != nil {
		return err
	}
	defer svc.Close()

	run, err := svc.Evaluate(ctx, &service.EvaluateRequest{
		References:    refs,
		Candidates:    cands,
		ReferenceName: joinNames(c.StringSlice("reference")),
		CandidateName: joinNames(c.StringSlice("candidate")),
		Metrics:       metricsFor(names),
	})
	if err != nil {
		return err
	}
	if out := c.String("out"); out != "" {
		if err := fsutil.WriteJSON(out, run); err != nil {
			return fmt.Errorf("write run result: %w", err)
		}
	}
	if path := c.String("xlsx"); path != "" {
		if err := report.ExportXLSX(run, path); err != nil {
			return err
		}
	}
	printSummary(c.App.Writer, run)
	return nil
}

// metricsFor resolves metric names, keeping the built-in thresholds of known metrics.
func metricsFor(names []string) []*evaluator.Metric {
	if len(names) == 0 {
		return nil
	}
	defaults := make(map[string]*evaluator.Metric)
	for _, m := range evaluator.DefaultMetrics() {
		defaults[m.Name] = m
	}
	metrics := make([]*evaluator.Metric, 0, len(names))
	for _, name := range names {
		if m, ok := defaults[name]; ok {
			metrics = append(metrics, m)
			continue
		}
		metrics = append(metrics, &evaluator.Metric{Name: name, Threshold: 1})
	}
	return metrics
}

func joinNames(names []string) string {
	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0]
	}
	return fmt.Sprintf("%s (+%d)", names[0], len(names)-1)
}

func printSummary(w io.Writer, run *evalresult.RunResult) {
	s := run.Summary
	fmt.Fprintf(w, "run %s\n", run.RunID)
	fmt.Fprintf(w, "dialogues: %d evaluated, %d skipped, %d failed\n", s.Dialogues, s.SkippedDialogues, s.FailedDialogues)
	fmt.Fprintf(w, "turn accuracy:          %.4f (%d/%d)\n", s.TurnAccuracy, s.RightTurns, s.Turns)
	fmt.Fprintf(w, "dialogue accuracy:      %.4f (%d/%d)\n", s.DialogueAccuracy, s.RightDialogues, s.Dialogues)
	fmt.Fprintf(w, "mean dialogue accuracy: %.4f\n", s.MeanDialogueAccuracy)
	fmt.Fprintf(w, "rouge-l:                %.4f\n", s.RougeL)
	fmt.Fprintf(w, "bleu:                   %.4f\n", s.BLEU)
	fmt.Fprintf(w, "task accuracy:          %.4f (%d/%d)\n", s.TaskAccuracy, s.TaskMatches, s.TaskTurns)
	tasks := make([]string, 0, len(s.PerTask))
	for name := range s.PerTask {
		tasks = append(tasks, name)
	}
	sort.Strings(tasks)
	for _, name := range tasks {
		ts := s.PerTask[name]
		fmt.Fprintf(w, "  %-26s %.4f (%d/%d)\n", name, ts.Accuracy, ts.RightTurns, ts.Turns)
	}
}
