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
	"runtime/debug"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"

	"trpc.group/trpc-go/trpc-vischart-go/evaluation/dialogset"
	"trpc.group/trpc-go/trpc-vischart-go/evaluation/evalresult"
	"trpc.group/trpc-go/trpc-vischart-go/evaluation/evaluator"
	"trpc.group/trpc-go/trpc-vischart-go/evaluation/evaluator/registry"
	"trpc.group/trpc-go/trpc-vischart-go/evaluation/service"
	"trpc.group/trpc-go/trpc-vischart-go/evaluation/status"
	"trpc.group/trpc-go/trpc-vischart-go/internal/telemetry"
	"trpc.group/trpc-go/trpc-vischart-go/log"
)

type boundEvaluator struct {
	metric    *evaluator.Metric
	evaluator evaluator.Evaluator
}

// Evaluate scores every candidate dialogue against the reference dialogue at
// the same index and returns the run result.
func (s *local) Evaluate(ctx context.Context, req *service.EvaluateRequest, opt ...service.Option) (result *evalresult.RunResult, err error) {
	if err := s.validateEvaluateRequest(req); err != nil {
		return nil, fmt.Errorf("validate evaluate request: %w", err)
	}
	callOpts, err := s.resolveEvaluateOptions(opt...)
	if err != nil {
		return nil, err
	}
	metrics := req.Metrics
	if len(metrics) == 0 {
		metrics = evaluator.DefaultMetrics()
	}
	evaluators, err := resolveEvaluators(callOpts.Registry, metrics)
	if err != nil {
		return nil, err
	}
	runID := callOpts.RunIDSupplier(ctx)
	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanEvaluate,
		telemetry.KeyRunID.String(runID), telemetry.KeyTurns.Int(countTurns(req.Candidates)))
	startTime := time.Now()
	defer func() {
		afterErr := callOpts.Callbacks.RunAfterRun(ctx, &service.AfterRunArgs{Result: result, Error: err, StartTime: startTime})
		if afterErr != nil {
			result = nil
			err = afterErr
		}
		telemetry.EndSpan(span, err)
	}()

	dialogues, errs := s.evaluateDialogues(ctx, runID, req, evaluators, callOpts)
	var merr *multierror.Error
	for _, e := range errs {
		if e != nil {
			merr = multierror.Append(merr, e)
		}
	}
	if failed := merr.ErrorOrNil(); failed != nil {
		log.Warnf("evaluation run %s: %d dialogue(s) failed: %v", runID, merr.Len(), failed)
	}

	names := make([]string, 0, len(evaluators))
	for _, e := range evaluators {
		names = append(names, e.metric.Name)
	}
	result = &evalresult.RunResult{
		RunID:     runID,
		CreatedAt: startTime.UTC(),
		Reference: req.ReferenceName,
		Candidate: req.CandidateName,
		Metrics:   names,
		Dialogues: dialogues,
		Summary:   evalresult.Summarize(dialogues),
	}
	telemetry.RecordTurns(ctx, result.Summary.RightTurns, result.Summary.Turns)
	log.Infof("evaluation run %s: %d dialogue(s), %d turn(s), turn accuracy %.4f, dialogue accuracy %.4f",
		runID, result.Summary.Dialogues, result.Summary.Turns, result.Summary.TurnAccuracy, result.Summary.DialogueAccuracy)
	if callOpts.ResultManager != nil {
		if _, err := callOpts.ResultManager.Save(ctx, result); err != nil {
			return nil, fmt.Errorf("save run result (runID=%s): %w", runID, err)
		}
	}
	return result, nil
}

func (s *local) validateEvaluateRequest(req *service.EvaluateRequest) error {
	if req == nil {
		return errors.New("evaluate request is nil")
	}
	if len(req.References) == 0 {
		return errors.New("reference dialogues are empty")
	}
	return nil
}

func resolveEvaluators(reg registry.Registry, metrics []*evaluator.Metric) ([]*boundEvaluator, error) {
	out := make([]*boundEvaluator, 0, len(metrics))
	for _, m := range metrics {
		if m == nil {
			continue
		}
		e, err := reg.Get(m.Name)
		if err != nil {
			return nil, fmt.Errorf("resolve metric %s: %w", m.Name, err)
		}
		out = append(out, &boundEvaluator{metric: m, evaluator: e})
	}
	if len(out) == 0 {
		return nil, errors.New("no metrics to evaluate")
	}
	return out, nil
}

func (s *local) evaluateDialogues(ctx context.Context, runID string, req *service.EvaluateRequest,
	evaluators []*boundEvaluator, opts *service.Options) ([]*evalresult.DialogueResult, []error) {
	if opts.DialogueParallelEnabled {
		return s.evaluateDialoguesParallel(ctx, runID, req, evaluators, opts)
	}
	return s.evaluateDialoguesSerial(ctx, runID, req, evaluators, opts)
}

func (s *local) evaluateDialoguesSerial(ctx context.Context, runID string, req *service.EvaluateRequest,
	evaluators []*boundEvaluator, opts *service.Options) ([]*evalresult.DialogueResult, []error) {
	results := make([]*evalresult.DialogueResult, len(req.Candidates))
	errs := make([]error, len(req.Candidates))
	for idx, candidate := range req.Candidates {
		results[idx], errs[idx] = s.evaluateDialogueSafe(ctx, runID, idx, len(req.Candidates), candidate,
			referenceAt(req.References, idx), evaluators, opts)
	}
	return results, errs
}

func (s *local) evaluateDialoguesParallel(ctx context.Context, runID string, req *service.EvaluateRequest,
	evaluators []*boundEvaluator, opts *service.Options) ([]*evalresult.DialogueResult, []error) {
	results := make([]*evalresult.DialogueResult, len(req.Candidates))
	errs := make([]error, len(req.Candidates))
	pool, err := s.ensureDialogueEvaluationPool(opts.DialogueParallelism)
	if err != nil {
		for idx := range errs {
			results[idx] = &evalresult.DialogueResult{Index: idx, Error: err.Error()}
			errs[idx] = err
		}
		return results, errs
	}
	var wg sync.WaitGroup
	for idx, candidate := range req.Candidates {
		wg.Add(1)
		param := dialogueEvaluationParamPool.Get().(*dialogueEvaluationParam)
		param.idx = idx
		param.total = len(req.Candidates)
		param.ctx = ctx
		param.runID = runID
		param.candidate = candidate
		param.reference = referenceAt(req.References, idx)
		param.evaluators = evaluators
		param.opts = opts
		param.svc = s
		param.results = results
		param.errs = errs
		param.wg = &wg
		if err := pool.Invoke(param); err != nil {
			wg.Done()
			err = fmt.Errorf("submit evaluation task for dialogue %d: %w", idx, err)
			results[idx] = &evalresult.DialogueResult{Index: idx, Error: err.Error()}
			errs[idx] = err
			param.reset()
			dialogueEvaluationParamPool.Put(param)
		}
	}
	wg.Wait()
	return results, errs
}

func referenceAt(refs []*dialogset.Dialogue, idx int) *dialogset.Dialogue {
	if idx < len(refs) {
		return refs[idx]
	}
	return nil
}

// evaluateDialogueSafe turns a panic into a failed dialogue.
func (s *local) evaluateDialogueSafe(ctx context.Context, runID string, idx, total int, candidate, reference *dialogset.Dialogue,
	evaluators []*boundEvaluator, opts *service.Options) (result *evalresult.DialogueResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("evaluate dialogue %d panicked: %v\n%s", idx, r, debug.Stack())
			err = fmt.Errorf("evaluate dialogue (runID=%s, index=%d): panic: %v", runID, idx, r)
			result = &evalresult.DialogueResult{Index: idx, Error: err.Error()}
		}
	}()
	startTime := time.Now()
	result, err = s.evaluateDialogue(ctx, runID, idx, candidate, reference, evaluators, opts)
	if err != nil {
		err = fmt.Errorf("evaluate dialogue (runID=%s, index=%d): %w", runID, idx, err)
		result.Error = err.Error()
	}
	if cbErr := opts.Callbacks.RunAfterDialogue(ctx, &service.AfterDialogueArgs{
		RunID:     runID,
		Result:    result,
		Total:     total,
		StartTime: startTime,
	}); cbErr != nil {
		log.Warnf("run %s dialogue %d: %v", runID, idx, cbErr)
	}
	return result, err
}

func (s *local) evaluateDialogue(ctx context.Context, runID string, idx int, candidate, reference *dialogset.Dialogue,
	evaluators []*boundEvaluator, opts *service.Options) (*evalresult.DialogueResult, error) {
	result := &evalresult.DialogueResult{Index: idx}
	if reference != nil {
		result.File = reference.File
	}
	if candidate.Empty() {
		result.Skipped = true
		return result, nil
	}
	if result.File == "" {
		result.File = candidate.File
	}
	if reference == nil {
		return result, errors.New("no reference dialogue at this index")
	}
	if len(candidate.Turns) > len(reference.Turns) {
		return result, fmt.Errorf("candidate has %d turns, reference has %d", len(candidate.Turns), len(reference.Turns))
	}
	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanEvaluateDialogue,
		telemetry.KeyRunID.String(runID), telemetry.KeyDialogue.Int(idx), telemetry.KeyFile.String(result.File))
	defer telemetry.EndSpan(span, nil)

	right := 0
	for j, turn := range candidate.Turns {
		tr := s.evaluateTurn(ctx, j, turn, reference.Turns[j], evaluators, opts)
		if tr.Right {
			right++
		}
		result.Turns = append(result.Turns, tr)
	}
	result.Accuracy = float64(right) / float64(len(result.Turns))
	result.AllRight = right == len(result.Turns)
	return result, nil
}

func (s *local) evaluateTurn(ctx context.Context, idx int, candidate, reference *dialogset.Turn,
	evaluators []*boundEvaluator, opts *service.Options) *evalresult.TurnResult {
	result := &evalresult.TurnResult{
		Index:   idx,
		Metrics: make(map[string]*evaluator.EvaluateResult, len(evaluators)),
	}
	if reference == nil {
		result.Error = "reference turn is nil"
		return result
	}
	result.Utterance = reference.Utterance
	result.AnalyticTask = reference.AnalyticTask
	result.Reference = reference.Chart

	predictions := candidate.Predictions()
	var merr *multierror.Error
	if len(predictions) == 0 && candidate != nil && len(candidate.Steps) > 0 && opts.StepAssembler != nil {
		p, err := opts.StepAssembler(candidate.Steps)
		if err != nil {
			merr = multierror.Append(merr, fmt.Errorf("assemble steps: %w", err))
		} else {
			predictions = []*dialogset.Prediction{p}
		}
	}
	for _, be := range evaluators {
		r, err := be.evaluator.Evaluate(ctx, predictions, reference, be.metric)
		if err != nil {
			merr = multierror.Append(merr, fmt.Errorf("metric %s: %w", be.metric.Name, err))
			continue
		}
		result.Metrics[be.metric.Name] = r
	}
	if err := merr.ErrorOrNil(); err != nil {
		result.Error = err.Error()
	}

	best := -1
	if r, ok := result.Metrics[evaluator.MetricChartAccuracy]; ok {
		result.Right = r.Status == status.EvalStatusPassed
		result.Reason = r.Reason
		best = r.Best
	}
	if r, ok := result.Metrics[evaluator.MetricAnalyticTask]; ok {
		result.TaskMatch = r.Status == status.EvalStatusPassed
	}
	if best < 0 && len(predictions) > 0 {
		best = 0
	}
	if best >= 0 && best < len(predictions) && predictions[best] != nil {
		result.Candidate = predictions[best].Chart
	}
	return result
}

func countTurns(dialogues []*dialogset.Dialogue) int {
	n := 0
	for _, d := range dialogues {
		if d != nil {
			n += len(d.Turns)
		}
	}
	return n
}
