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
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"trpc.group/trpc-go/trpc-vischart-go/chart"
	"trpc.group/trpc-go/trpc-vischart-go/chart/filter"
	"trpc.group/trpc-go/trpc-vischart-go/evaluation/accuracy"
	"trpc.group/trpc-go/trpc-vischart-go/evaluation/dialogset"
	"trpc.group/trpc-go/trpc-vischart-go/evaluation/evalresult"
	"trpc.group/trpc-go/trpc-vischart-go/evaluation/report"
	"trpc.group/trpc-go/trpc-vischart-go/evaluation/similarity"
	"trpc.group/trpc-go/trpc-vischart-go/internal/fsutil"
)

func filterCommand() *cli.Command {
	return &cli.Command{
		Name:  "filter",
		Usage: "Keep the dialogues whose charts stay inside the supported subset",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:     "input",
				Aliases:  []string{"i"},
				Usage:    "Dataset files or glob patterns",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "out",
				Aliases:  []string{"o"},
				Usage:    "Output file for the kept dialogues",
				Required: true,
			},
		},
		Action: func(c *cli.Context) error {
			dialogues, err := dialogset.Load(c.Context, c.StringSlice("input")...)
			if err != nil {
				return err
			}
			kept := dialogset.FilterEligible(dialogues)
			if err := dialogset.Save(c.String("out"), kept); err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "kept %d of %d dialogue(s)\n", len(kept), len(dialogues))
			return nil
		},
	}
}

func normalizeCommand() *cli.Command {
	return &cli.Command{
		Name:      "normalize",
		Usage:     "Print the canonical form of a filter expression",
		ArgsUsage: "<expression>",
		Action: func(c *cli.Context) error {
			expr := strings.Join(c.Args().Slice(), " ")
			if strings.TrimSpace(expr) == "" {
				return errors.New("filter expression is empty")
			}
			n, err := filter.Normalize(expr)
			if err != nil {
				return err
			}
			fmt.Fprintln(c.App.Writer, n.String())
			return nil
		},
	}
}

func compareCommand() *cli.Command {
	return &cli.Command{
		Name:      "compare",
		Usage:     "Compare a candidate chart with a reference chart",
		ArgsUsage: "<candidate.json> <reference.json>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 2 {
				return errors.New("compare needs a candidate and a reference chart file")
			}
			candidate, err := readChart(c.Args().Get(0))
			if err != nil {
				return fmt.Errorf("read candidate: %w", err)
			}
			reference, err := readChart(c.Args().Get(1))
			if err != nil {
				return fmt.Errorf("read reference: %w", err)
			}
			v := accuracy.Compare(candidate, reference)
			s := similarity.Score(candidate, reference)
			fmt.Fprintf(c.App.Writer, "equivalent: %t\n", v.Equivalent)
			fmt.Fprintf(c.App.Writer, "reason: %s\n", v)
			fmt.Fprintf(c.App.Writer, "rouge-l: %.4f\nbleu: %.4f\n", s.RougeL, s.BLEU)
			return nil
		},
	}
}

func readChart(path string) (*chart.Spec, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return chart.Parse(b)
}

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Write a run result to an xlsx workbook",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "result",
				Usage: "Run result JSON file written by evaluate --out",
			},
			&cli.StringFlag{
				Name:  "run-id",
				Usage: "Run id to load from the configured store",
			},
			&cli.StringFlag{
				Name:     "out",
				Aliases:  []string{"o", "xlsx"},
				Usage:    "Workbook path",
				Required: true,
			},
		},
		Action: func(c *cli.Context) error {
			run, err := loadRun(c)
			if err != nil {
				return err
			}
			if err := report.ExportXLSX(run, c.String("out")); err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "exported run %s to %s\n", run.RunID, c.String("out"))
			return nil
		},
	}
}

func loadRun(c *cli.Context) (*evalresult.RunResult, error) {
	path, runID := c.String("result"), c.String("run-id")
	switch {
	case path != "" && runID != "":
		return nil, errors.New("--result and --run-id are mutually exclusive")
	case path != "":
		var run evalresult.RunResult
		if err := fsutil.ReadJSON(path, &run); err != nil {
			return nil, fmt.Errorf("read run result: %w", err)
		}
		return &run, nil
	case runID != "":
		cfg, err := configFrom(c)
		if err != nil {
			return nil, err
		}
		store, err := openStore(c.Context, cfg.Store)
		if err != nil {
			return nil, err
		}
		defer store.Close()
		return store.Get(c.Context, runID)
	}
	return nil, errors.New("one of --result or --run-id is required")
}

func runsCommand() *cli.Command {
	return &cli.Command{
		Name:  "runs",
		Usage: "List the run ids kept by the configured store",
		Action: func(c *cli.Context) error {
			cfg, err := configFrom(c)
			if err != nil {
				return err
			}
			store, err := openStore(c.Context, cfg.Store)
			if err != nil {
				return err
			}
			defer store.Close()
			ids, err := store.List(c.Context)
			if err != nil {
				return err
			}
			for _, id := range ids {
				fmt.Fprintln(c.App.Writer, id)
			}
			return nil
		},
	}
}
