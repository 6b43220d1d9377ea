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
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/panjf2000/ants/v2"

	"trpc.group/trpc-go/trpc-vischart-go/evaluation/dialogset"
	"trpc.group/trpc-go/trpc-vischart-go/evaluation/evalresult"
	"trpc.group/trpc-go/trpc-vischart-go/evaluation/service"
)

type dialogueEvaluationParam struct {
	idx        int
	total      int
	ctx        context.Context
	runID      string
	candidate  *dialogset.Dialogue
	reference  *dialogset.Dialogue
	evaluators []*boundEvaluator
	opts       *service.Options
	svc        *local
	results    []*evalresult.DialogueResult
	errs       []error
	wg         *sync.WaitGroup
}

func (p *dialogueEvaluationParam) reset() {
	p.idx = 0
	p.total = 0
	p.ctx = nil
	p.runID = ""
	p.candidate = nil
	p.reference = nil
	p.evaluators = nil
	p.opts = nil
	p.svc = nil
	p.results = nil
	p.errs = nil
	p.wg = nil
}

var dialogueEvaluationParamPool = &sync.Pool{
	New: func() any { return new(dialogueEvaluationParam) },
}

func createDialogueEvaluationPool(size int) (*ants.PoolWithFunc, error) {
	if size <= 0 {
		return nil, errors.New("pool size must be greater than 0")
	}
	pool, err := ants.NewPoolWithFunc(size, func(args any) {
		param, ok := args.(*dialogueEvaluationParam)
		if !ok {
			panic("dialogue evaluation pool args type error")
		}
		wg := param.wg
		defer func() {
			wg.Done()
			param.reset()
			dialogueEvaluationParamPool.Put(param)
		}()
		param.results[param.idx], param.errs[param.idx] = param.svc.evaluateDialogueSafe(
			param.ctx, param.runID, param.idx, param.total, param.candidate, param.reference, param.evaluators, param.opts)
	})
	if err != nil {
		return nil, fmt.Errorf("create dialogue evaluation pool: %w", err)
	}
	return pool, nil
}

func (s *local) ensureDialogueEvaluationPool(size int) (*ants.PoolWithFunc, error) {
	s.dialogueEvaluationPoolOnce.Do(func() {
		if s.dialogueEvaluationPool != nil {
			return
		}
		pool, err := createDialogueEvaluationPool(size)
		if err != nil {
			s.dialogueEvaluationPoolErr = err
			return
		}
		s.dialogueEvaluationPool = pool
	})
	if s.dialogueEvaluationPoolErr != nil {
		return nil, s.dialogueEvaluationPoolErr
	}
	if s.dialogueEvaluationPool.Cap() != size {
		s.dialogueEvaluationPool.Tune(size)
	}
	return s.dialogueEvaluationPool, nil
}
