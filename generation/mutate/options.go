//
// Tencent is pleased to support the open source community by making trpc-vischart-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-vischart-go is licensed under the Apache License Version 2.0.
//
//

package mutate

import (
	"errors"
	"path/filepath"
	"runtime"

	"trpc.group/trpc-go/trpc-vischart-go/evaluation/dialogset"
	"trpc.group/trpc-go/trpc-vischart-go/generation/promptmd"
)

// DatasetDescriber describes the dataset a chart is drawn from.
type DatasetDescriber func(file string) (string, error)

// Options configures a Mutator.
type Options struct {
	Template    *promptmd.Template
	Describe    DatasetDescriber
	Attempts    int
	Parallelism int
	// Seed drives the choice of filter variant.
	Seed uint64
}

// Option mutates Options.
type Option func(*Options)

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

// WithAttempts sets the answers requested per record until one passes.
func WithAttempts(n int) Option {
	return func(o *Options) { o.Attempts = n }
}

// WithParallelism bounds the records mutated at once.
func WithParallelism(n int) Option {
	return func(o *Options) { o.Parallelism = n }
}

// WithSeed sets the variant seed.
func WithSeed(seed uint64) Option {
	return func(o *Options) { o.Seed = seed }
}

func newOptions(kind Kind, opt ...Option) (*Options, error) {
	opts := &Options{
		Attempts:    3,
		Parallelism: runtime.GOMAXPROCS(0),
		Describe:    func(file string) (string, error) { return "Dataset: " + file, nil },
	}
	for _, o := range opt {
		o(opts)
	}
	if opts.Attempts <= 0 {
		return nil, errors.New("attempts must be greater than 0")
	}
	if opts.Parallelism <= 0 {
		return nil, errors.New("parallelism must be greater than 0")
	}
	if opts.Describe == nil {
		return nil, errors.New("dataset describer is nil")
	}
	if opts.Template == nil {
		t, err := promptmd.Builtin("add_" + string(kind))
		if err != nil {
			return nil, err
		}
		opts.Template = t
	}
	return opts, nil
}
