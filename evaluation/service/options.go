//
// Tencent is pleased to support the open source community by making trpc-vischart-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-vischart-go is licensed under the Apache License Version 2.0.
//
//

package service

import (
	"context"
	"runtime"

	"github.com/google/uuid"

	"trpc.group/trpc-go/trpc-vischart-go/evaluation/evalresult"
	"trpc.group/trpc-go/trpc-vischart-go/evaluation/evaluator/registry"
)

// Options configures a service and each Evaluate call.
type Options struct {
	Registry      registry.Registry
	ResultManager evalresult.Manager
	RunIDSupplier func(ctx context.Context) string
	Callbacks     *Callbacks
	StepAssembler StepAssembler
	// DialogueParallelism bounds the dialogues evaluated at once.
	DialogueParallelism int
	// DialogueParallelEnabled evaluates dialogues on a worker pool.
	DialogueParallelEnabled bool
}

// Option mutates Options.
type Option func(*Options)

// NewOptions applies opt over the defaults.
func NewOptions(opt ...Option) *Options {
	opts := &Options{
		Registry:                registry.New(),
		RunIDSupplier:           func(context.Context) string { return uuid.NewString() },
		Callbacks:               NewCallbacks(),
		DialogueParallelism:     runtime.GOMAXPROCS(0),
		DialogueParallelEnabled: true,
	}
	for _, o := range opt {
		o(opts)
	}
	return opts
}

// WithRegistry sets the evaluator registry.
func WithRegistry(r registry.Registry) Option {
	return func(o *Options) { o.Registry = r }
}

// WithResultManager persists every run through m.
func WithResultManager(m evalresult.Manager) Option {
	return func(o *Options) { o.ResultManager = m }
}

// WithRunIDSupplier sets the run id generator.
func WithRunIDSupplier(f func(ctx context.Context) string) Option {
	return func(o *Options) { o.RunIDSupplier = f }
}

// WithCallbacks sets the lifecycle callbacks.
func WithCallbacks(c *Callbacks) Option {
	return func(o *Options) { o.Callbacks = c }
}

// WithStepAssembler sets how step-mode outputs become predictions.
func WithStepAssembler(a StepAssembler) Option {
	return func(o *Options) { o.StepAssembler = a }
}

// WithDialogueParallelism sets the worker pool size.
func WithDialogueParallelism(n int) Option {
	return func(o *Options) { o.DialogueParallelism = n }
}

// WithDialogueParallelEnabled toggles pooled evaluation.
func WithDialogueParallelEnabled(enabled bool) Option {
	return func(o *Options) { o.DialogueParallelEnabled = enabled }
}
