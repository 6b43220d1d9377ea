//
// Tencent is pleased to support the open source community by making trpc-vischart-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-vischart-go is licensed under the Apache License Version 2.0.
//
//

// Package local implements the batch evaluation service in process.
package local

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/panjf2000/ants/v2"

	"trpc.group/trpc-go/trpc-vischart-go/evaluation/dialogset"
	"trpc.group/trpc-go/trpc-vischart-go/evaluation/evalresult"
	"trpc.group/trpc-go/trpc-vischart-go/evaluation/evaluator/registry"
	"trpc.group/trpc-go/trpc-vischart-go/evaluation/service"
	"trpc.group/trpc-go/trpc-vischart-go/generation/steps"
)

type local struct {
	registry                registry.Registry
	resultManager           evalresult.Manager
	runIDSupplier           func(ctx context.Context) string
	callbacks               *service.Callbacks
	stepAssembler           service.StepAssembler
	dialogueParallelism     int
	dialogueParallelEnabled bool

	dialogueEvaluationPool     *ants.PoolWithFunc
	dialogueEvaluationPoolOnce sync.Once
	dialogueEvaluationPoolErr  error
}

// New creates the local evaluation service. Step-mode outputs are assembled
// with the steps package unless another assembler is configured.
func New(opt ...service.Option) (service.Service, error) {
	opts := service.NewOptions(opt...)
	if opts.StepAssembler == nil {
		opts.StepAssembler = assembleSteps
	}
	if err := validateOptions(opts); err != nil {
		return nil, err
	}
	return &local{
		registry:                opts.Registry,
		resultManager:           opts.ResultManager,
		runIDSupplier:           opts.RunIDSupplier,
		callbacks:               opts.Callbacks,
		stepAssembler:           opts.StepAssembler,
		dialogueParallelism:     opts.DialogueParallelism,
		dialogueParallelEnabled: opts.DialogueParallelEnabled,
	}, nil
}

// Close releases the worker pool.
func (s *local) Close() error {
	if s.dialogueEvaluationPool != nil {
		s.dialogueEvaluationPool.Release()
	}
	return nil
}

func assembleSteps(raw json.RawMessage) (*dialogset.Prediction, error) {
	spec, task, err := steps.AssembleJSON(raw)
	if err != nil {
		return nil, err
	}
	return &dialogset.Prediction{AnalyticTask: task, Chart: spec}, nil
}
