//
// Tencent is pleased to support the open source community by making trpc-vischart-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-vischart-go is licensed under the Apache License Version 2.0.
//
//

package dialogue

import (
	"errors"
	"path/filepath"
	"runtime"

	"trpc.group/trpc-go/trpc-vischart-go/evaluation/dialogset"
	"trpc.group/trpc-go/trpc-vischart-go/generation/promptmd"
)

// Mode selects what the model answers with.
type Mode string

// Generation modes.
const (
	// ModeDirect asks for {"analytic task", "utterance", "chart"}.
	ModeDirect Mode = "direct"
	// ModeSteps asks for a "Step 1" to "Step 7" reasoning output.
	ModeSteps Mode = "steps"
)

// DatasetDescriber describes the dataset a dialogue is about.
type DatasetDescriber func(file string) (string, error)

// ProgressFunc observes finished dialogues.
type ProgressFunc func(done, total int)

// Options configures a Runner.
type Options struct {
	Mode        Mode
	Template    *promptmd.Template
	Describe    DatasetDescriber
	Parallelism int
	// FilterIneligible emits empty outputs for dialogues outside the
	// supported chart subset.
	FilterIneligible bool
	Progress         ProgressFunc
}

// Option mutates Options.
type Option func(*Options)

// WithMode sets the answer format.
func WithMode(m Mode) Option {
	return func(o *Options) { o.Mode = m }
}

// WithTemplate overrides the prompt template.
func WithTemplate(t *promptmd.Template) Option {
	return func(o *Options) { o.Template = t }
}

// WithDatasetDescriber sets how datasets are described in prompts.
func WithDatasetDescriber(d DatasetDescriber) Option {
	return func(o *Options) { o.Describe = d }
}

// WithDataDir describes datasets from CSV files under dir.
func WithDataDir(dir string) Option {
	return WithDatasetDescriber(func(file string) (string, error) {
		return dialogset.DescribeCSVFile(filepath.Join(dir, file))
	})
}

// WithParallelism bounds the dialogues generated at once.
func WithParallelism(n int) Option {
	return func(o *Options) { o.Parallelism = n }
}

// WithFilterIneligible toggles the eligibility filter.
func WithFilterIneligible(enabled bool) Option {
	return func(o *Options) { o.FilterIneligible = enabled }
}

// WithProgress observes progress.
func WithProgress(f ProgressFunc) Option {
	return func(o *Options) { o.Progress = f }
}

func newOptions(opt ...Option) (*Options, error) {
	opts := &Options{
		Mode:             ModeDirect,
		Parallelism:      runtime.GOMAXPROCS(0),
		FilterIneligible: true,
		Describe:         func(file string) (string, error) { return "Dataset: " + file, nil },
	}
	for _, o := range opt {
		o(opts)
	}
	if opts.Mode != ModeDirect && opts.Mode != ModeSteps {
		return nil, errors.New("mode must be direct or steps")
	}
	if opts.Parallelism <= 0 {
		return nil, errors.New("parallelism must be greater than 0")
	}
	if opts.Describe == nil {
		return nil, errors.New("dataset describer is nil")
	}
	if opts.Template == nil {
		t, err := promptmd.Builtin(string(opts.Mode))
		if err != nil {
			return nil, err
		}
		opts.Template = t
	}
	return opts, nil
}
