//
// Tencent is pleased to support the open source community by making trpc-vischart-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-vischart-go is licensed under the Apache License Version 2.0.
//
//

package local

import (
	"errors"

	"trpc.group/trpc-go/trpc-vischart-go/evaluation/service"
)

func (s *local) resolveEvaluateOptions(opt ...service.Option) (*service.Options, error) {
	callOpts := &service.Options{
		Registry:                s.registry,
		ResultManager:           s.resultManager,
		RunIDSupplier:           s.runIDSupplier,
		Callbacks:               s.callbacks,
		StepAssembler:           s.stepAssembler,
		DialogueParallelism:     s.dialogueParallelism,
		DialogueParallelEnabled: s.dialogueParallelEnabled,
	}
	for _, o := range opt {
		o(callOpts)
	}
	if err := validateOptions(callOpts); err != nil {
		return nil, err
	}
	if callOpts.DialogueParallelEnabled {
		if _, err := s.ensureDialogueEvaluationPool(callOpts.DialogueParallelism); err != nil {
			return nil, err
		}
	}
	return callOpts, nil
}

func validateOptions(opts *service.Options) error {
	if opts.Registry == nil {
		return errors.New("registry is nil")
	}
	if opts.RunIDSupplier == nil {
		return errors.New("run id supplier is nil")
	}
	if opts.DialogueParallelEnabled && opts.DialogueParallelism <= 0 {
		return errors.New("dialogue parallelism must be greater than 0")
	}
	return nil
}
