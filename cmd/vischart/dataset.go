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
	"fmt"

	"github.com/urfave/cli/v2"

	"trpc.group/trpc-go/trpc-vischart-go/config"
	"trpc.group/trpc-go/trpc-vischart-go/generation/mutate"
	"trpc.group/trpc-go/trpc-vischart-go/generation/preference"
	"trpc.group/trpc-go/trpc-vischart-go/generation/textgen"
	"trpc.group/trpc-go/trpc-vischart-go/internal/fsutil"
	"trpc.group/trpc-go/trpc-vischart-go/log"
)

func preferenceCommand() *cli.Command {
	return &cli.Command{
		Name:  "preference",
		Usage: "Mine step-level preference pairs from reasoning paths",
		Description: `Reads records of {"instruction", "output"} where output is a seven-step
ground-truth reasoning path. The model answers each instruction, and the first
step whose answer differs from the ground truth becomes a pair of
{"prompt", "initial_reason_steps", "chosen", "rejected", "step"}.

Example:
  vischart preference --input data/steps.json --out output/pairs.json`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "input",
				Aliases:  []string{"i"},
				Usage:    "Records with instructions and ground-truth paths",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "out",
				Aliases:  []string{"o"},
				Usage:    "Output file for the pairs",
				Required: true,
			},
			&cli.Float64Flag{
				Name:  "temperature",
				Usage: "Sampling temperature of the model paths",
				Value: 0.7,
			},
			&cli.IntFlag{
				Name:  "attempts",
				Usage: "Paths sampled per record until one can be compared",
				Value: 3,
			},
		},
		Action: runPreference,
	}
}

func runPreference(c *cli.Context) error {
	cfg, err := datasetConfig(c)
	if err != nil {
		return err
	}
	temperature := c.Float64("temperature")
	cfg.Model.Temperature = &temperature
	cfg.Model.JSONMode = false

	var records []preference.Record
	if err := fsutil.ReadJSON(c.String("input"), &records); err != nil {
		return err
	}
	gen, err := newDatasetGenerator(cfg)
	if err != nil {
		return err
	}
	miner, err := preference.NewMiner(gen,
		preference.WithAttempts(c.Int("attempts")),
		preference.WithParallelism(cfg.Generation.Parallelism),
	)
	if err != nil {
		return err
	}
	pairs, runErr := miner.Mine(c.Context, records)
	if pairs == nil && runErr != nil {
		return runErr
	}
	if runErr != nil {
		log.Warnf("preference mining finished with failures: %v", runErr)
	}
	if err := fsutil.WriteJSON(c.String("out"), pairs); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "wrote %d pair(s) from %d record(s) to %s\n", len(pairs), len(records), c.String("out"))
	return c.Context.Err()
}

func mutateCommand() *cli.Command {
	return &cli.Command{
		Name:  "mutate",
		Usage: "Add a generated filter or sort to target charts",
		Description: `Reads records of {"file", "vega-lite"} and asks the model to extend each chart.
Filters come in Single, AND, OR and Multi-conditional variants drawn at random.
Sorts are only added to bar charts. Records that cannot be extended keep their
chart.

Example:
  vischart mutate --kind filter --input data/comparison.json --out data/comparison-filter.json`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "input",
				Aliases:  []string{"i"},
				Usage:    "Target chart records",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "out",
				Aliases:  []string{"o"},
				Usage:    "Output file for the mutated records",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "kind",
				Usage: "What to add (filter, sort)",
				Value: string(mutate.KindFilter),
			},
			&cli.StringFlag{
				Name:  "data-dir",
				Usage: "Directory of the dataset CSV files overriding the configuration",
			},
			&cli.Uint64Flag{
				Name:  "seed",
				Usage: "Seed of the filter variant choice",
				Value: 1,
			},
		},
		Action: runMutate,
	}
}

func runMutate(c *cli.Context) error {
	cfg, err := datasetConfig(c)
	if err != nil {
		return err
	}
	if dir := c.String("data-dir"); dir != "" {
		cfg.Generation.DataDir = dir
	}

	var records []*mutate.Record
	if err := fsutil.ReadJSON(c.String("input"), &records); err != nil {
		return err
	}
	gen, err := newDatasetGenerator(cfg)
	if err != nil {
		return err
	}
	m, err := mutate.New(gen, mutate.Kind(c.String("kind")),
		mutate.WithParallelism(cfg.Generation.Parallelism),
		mutate.WithDataDir(cfg.Generation.DataDir),
		mutate.WithSeed(c.Uint64("seed")),
	)
	if err != nil {
		return err
	}
	out, runErr := m.Run(c.Context, records)
	if out == nil {
		return runErr
	}
	if runErr != nil {
		log.Warnf("mutation finished with failures: %v", runErr)
	}
	if err := fsutil.WriteJSON(c.String("out"), out); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "wrote %d record(s) to %s\n", len(out), c.String("out"))
	return c.Context.Err()
}

// datasetConfig is the configuration of the dataset construction commands.
// Their answers are sampled and checked, so they are never cached.
func datasetConfig(c *cli.Context) (config.Config, error) {
	cfg, err := configFrom(c)
	if err != nil {
		return config.Config{}, err
	}
	cfg.Generation.Mode = config.ModeDirect
	cfg.Generation.CachePath = ""
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func newDatasetGenerator(cfg config.Config) (*textgen.Generator, error) {
	gen, _, err := newTextGenerator(cfg)
	return gen, err
}
