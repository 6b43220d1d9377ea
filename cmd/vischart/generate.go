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
	"trpc.group/trpc-go/trpc-vischart-go/evaluation/dialogset"
	"trpc.group/trpc-go/trpc-vischart-go/evaluation/evaluator/chartschema"
	"trpc.group/trpc-go/trpc-vischart-go/generation/dialogue"
	"trpc.group/trpc-go/trpc-vischart-go/generation/promptmd"
	"trpc.group/trpc-go/trpc-vischart-go/generation/steps"
	"trpc.group/trpc-go/trpc-vischart-go/generation/textgen"
	"trpc.group/trpc-go/trpc-vischart-go/log"
	"trpc.group/trpc-go/trpc-vischart-go/model"
	"trpc.group/trpc-go/trpc-vischart-go/model/openai"
)

func generateCommand() *cli.Command {
	return &cli.Command{
		Name:  "generate",
		Usage: "Ask the model for a chart per dialogue turn",
		Description: `Writes one output dialogue per input dialogue, in input order.
Each turn is prompted with the dataset description, the reference previous turn
and the utterance. Turns the model fails to answer are written without a chart.

Example:
  OPENAI_API_KEY=... vischart generate --input data/test.json --out output/model.json --mode steps`,
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:     "input",
				Aliases:  []string{"i"},
				Usage:    "Reference dataset files or glob patterns",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "out",
				Aliases:  []string{"o"},
				Usage:    "Output file for the generated dialogues",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "mode",
				Usage: "Answer format overriding the configuration (direct, steps)",
			},
			&cli.StringFlag{
				Name:  "model",
				Usage: "Model name overriding the configuration",
			},
			&cli.StringFlag{
				Name:  "data-dir",
				Usage: "Directory of the dataset CSV files overriding the configuration",
			},
		},
		Action: runGenerate,
	}
}

func runGenerate(c *cli.Context) error {
	cfg, err := configFrom(c)
	if err != nil {
		return err
	}
	if mode := c.String("mode"); mode != "" {
		cfg.Generation.Mode = mode
	}
	if name := c.String("model"); name != "" {
		cfg.Model.Name = name
	}
	if dir := c.String("data-dir"); dir != "" {
		cfg.Generation.DataDir = dir
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	ctx := c.Context

	inputs, err := dialogset.Load(ctx, c.StringSlice("input")...)
	if err != nil {
		return err
	}
	gen, cache, err := newTextGenerator(cfg)
	if err != nil {
		return err
	}
	opts := []dialogue.Option{
		dialogue.WithMode(dialogue.Mode(cfg.Generation.Mode)),
		dialogue.WithParallelism(cfg.Generation.Parallelism),
		dialogue.WithFilterIneligible(cfg.Generation.FilterIneligible),
		dialogue.WithDataDir(cfg.Generation.DataDir),
		dialogue.WithProgress(func(done, total int) {
			log.Debugf("generated %d/%d dialogue(s)", done, total)
		}),
	}
	if cfg.Generation.PromptPath != "" {
		tmpl, err := promptmd.Load(cfg.Generation.PromptPath)
		if err != nil {
			return err
		}
		opts = append(opts, dialogue.WithTemplate(tmpl))
	}
	runner, err := dialogue.New(gen, opts...)
	if err != nil {
		return err
	}

	outputs, runErr := runner.Run(ctx, inputs)
	if outputs == nil {
		return runErr
	}
	if runErr != nil {
		log.Warnf("generation finished with failures: %v", runErr)
	}
	if cache != nil {
		if err := cache.Save(cfg.Generation.CachePath); err != nil {
			return err
		}
	}
	if err := dialogset.Save(c.String("out"), outputs); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "wrote %d dialogue(s) to %s\n", len(outputs), c.String("out"))
	return ctx.Err()
}

// newTextGenerator builds the model client and the retrying JSON generator.
// The returned cache is nil unless a cache path is configured.
func newTextGenerator(cfg config.Config) (*textgen.Generator, *textgen.Cache, error) {
	m := openai.New(cfg.Model.Name,
		openai.WithAPIKey(cfg.Model.APIKey()),
		openai.WithBaseURL(cfg.Model.BaseURL),
	)
	opts := []textgen.Option{
		textgen.WithRetries(cfg.Generation.Retries),
		textgen.WithGenerationConfig(model.GenerationConfig{
			Temperature: cfg.Model.Temperature,
			MaxTokens:   cfg.Model.MaxTokens,
			JSONMode:    cfg.Model.JSONMode,
		}),
	}
	var cache *textgen.Cache
	if cfg.Generation.CachePath != "" {
		loaded, err := textgen.LoadCache(cfg.Generation.CachePath)
		if err != nil {
			return nil, nil, err
		}
		cache = loaded
		opts = append(opts, textgen.WithCache(cache))
	}
	if cfg.Generation.Mode == config.ModeSteps {
		schema, err := chartschema.Compile(steps.Schema())
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, textgen.WithSchema(schema))
	}
	gen, err := textgen.New(m, opts...)
	if err != nil {
		return nil, nil, err
	}
	return gen, cache, nil
}
