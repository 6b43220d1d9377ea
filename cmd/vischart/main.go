//
// Tencent is pleased to support the open source community by making trpc-vischart-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-vischart-go is licensed under the Apache License Version 2.0.
//
//

// Command vischart generates and evaluates conversational charts.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"trpc.group/trpc-go/trpc-vischart-go/config"
	"trpc.group/trpc-go/trpc-vischart-go/internal/telemetry"
	"trpc.group/trpc-go/trpc-vischart-go/log"
)

const (
	flagConfig   = "config"
	flagLogLevel = "log-level"

	metadataConfig = "config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newApp().RunContext(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	var shutdown telemetry.ShutdownFunc
	return &cli.App{
		Name:  "vischart",
		Usage: "Generate and evaluate charts for conversational visualization datasets",
		Description: `vischart drives a language model over multi-turn visualization dialogues and
scores the generated charts against reference charts.

Workflow:
  1. 'vischart filter' keeps the dialogues inside the supported chart subset
  2. 'vischart generate' asks the model for a chart per turn
  3. 'vischart evaluate' scores the candidates and stores the run
  4. 'vischart export' writes a stored run to an xlsx workbook

Dataset construction:
  'vischart mutate' adds generated filters or sorts to target charts
  'vischart preference' mines step-level preference pairs from reasoning paths`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Usage:   "YAML configuration file",
				EnvVars: []string{"VISCHART_CONFIG"},
			},
			&cli.StringFlag{
				Name:  flagLogLevel,
				Usage: "Log level overriding the configuration (debug, info, warn, error)",
			},
		},
		Before: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			log.SetLevel(cfg.LogLevel)
			if c.App.Metadata == nil {
				c.App.Metadata = make(map[string]any)
			}
			c.App.Metadata[metadataConfig] = cfg
			shutdown, err = telemetry.Setup(c.Context, cfg.Telemetry)
			return err
		},
		After: func(c *cli.Context) error {
			if shutdown == nil {
				return nil
			}
			return shutdown(context.WithoutCancel(c.Context))
		},
		Commands: []*cli.Command{
			evaluateCommand(),
			generateCommand(),
			filterCommand(),
			normalizeCommand(),
			compareCommand(),
			exportCommand(),
			runsCommand(),
			mutateCommand(),
			preferenceCommand(),
		},
	}
}

// configFrom returns the configuration loaded before the command ran.
func configFrom(c *cli.Context) (config.Config, error) {
	if cfg, ok := c.App.Metadata[metadataConfig].(config.Config); ok {
		return cfg, nil
	}
	return loadConfig(c)
}

// loadConfig reads the configuration named by --config, or the defaults.
func loadConfig(c *cli.Context) (config.Config, error) {
	cfg := config.DefaultConfig()
	if path := c.String(flagConfig); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}
	if level := c.String(flagLogLevel); level != "" {
		cfg.LogLevel = level
	}
	return cfg, nil
}
