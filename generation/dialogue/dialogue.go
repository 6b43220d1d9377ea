//
// Tencent is pleased to support the open source community by making trpc-vischart-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-vischart-go is licensed under the Apache License Version 2.0.
//
//

// Package dialogue generates charts turn by turn for a dialogue dataset.
package dialogue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/panjf2000/ants/v2"

	"trpc.group/trpc-go/trpc-vischart-go/chart"
	"trpc.group/trpc-go/trpc-vischart-go/evaluation/dialogset"
	"trpc.group/trpc-go/trpc-vischart-go/generation/promptmd"
	"trpc.group/trpc-go/trpc-vischart-go/internal/telemetry"
	"trpc.group/trpc-go/trpc-vischart-go/log"
	"trpc.group/trpc-go/trpc-vischart-go/model"
)

const noPrevious = "None"

// Generator produces JSON answers. *textgen.Generator implements it.
type Generator interface {
	JSON(ctx context.Context, messages []model.Message, out any) (json.RawMessage, error)
}

// Runner generates candidate outputs for reference dialogues.
type Runner struct {
	gen  Generator
	opts *Options
}

// New creates a runner.
func New(gen Generator, opt ...Option) (*Runner, error) {
	if gen == nil {
		return nil, errors.New("generator is nil")
	}
	opts, err := newOptions(opt...)
	if err != nil {
		return nil, err
	}
	return &Runner{gen: gen, opts: opts}, nil
}

// Run generates one output dialogue per input dialogue, in input order.
// Each turn is prompted with the reference previous turn. A turn that cannot
// be generated is emitted without a chart, and the failures are returned
// together with the outputs.
func (r *Runner) Run(ctx context.Context, dialogues []*dialogset.Dialogue) ([]*dialogset.Dialogue, error) {
	runID := uuid.NewString()
	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanGenerate, telemetry.KeyRunID.String(runID))
	outputs := make([]*dialogset.Dialogue, len(dialogues))
	errs := make([]error, len(dialogues))

	pool, err := ants.NewPool(r.opts.Parallelism)
	if err != nil {
		telemetry.EndSpan(span, err)
		return nil, fmt.Errorf("create generation pool: %w", err)
	}
	defer pool.Release()

	var (
		wg   sync.WaitGroup
		done atomic.Int64
	)
	for idx, d := range dialogues {
		wg.Add(1)
		task := func() {
			defer wg.Done()
			outputs[idx], errs[idx] = r.runDialogueSafe(ctx, runID, idx, d)
			if r.opts.Progress != nil {
				r.opts.Progress(int(done.Add(1)), len(dialogues))
			}
		}
		if err := pool.Submit(task); err != nil {
			wg.Done()
			outputs[idx] = emptyOutput(d)
			errs[idx] = fmt.Errorf("submit dialogue %d: %w", idx, err)
		}
	}
	wg.Wait()

	var merr *multierror.Error
	for _, e := range errs {
		if e != nil {
			merr = multierror.Append(merr, e)
		}
	}
	runErr := merr.ErrorOrNil()
	telemetry.EndSpan(span, runErr)
	if runErr != nil {
		log.Warnf("generation run %s: %d of %d dialogue(s) had failures", runID, merr.Len(), len(dialogues))
	}
	log.Infof("generation run %s: %d dialogue(s) generated", runID, len(dialogues))
	return outputs, runErr
}

func emptyOutput(d *dialogset.Dialogue) *dialogset.Dialogue {
	out := &dialogset.Dialogue{}
	if d != nil {
		out.File = d.File
	}
	return out
}

func (r *Runner) runDialogueSafe(ctx context.Context, runID string, idx int,
	d *dialogset.Dialogue) (out *dialogset.Dialogue, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Errorf("generate dialogue %d panicked: %v\n%s", idx, rec, debug.Stack())
			out = emptyOutput(d)
			err = fmt.Errorf("generate dialogue (runID=%s, index=%d): panic: %v", runID, idx, rec)
		}
	}()
	return r.runDialogue(ctx, runID, idx, d)
}

func (r *Runner) runDialogue(ctx context.Context, runID string, idx int, d *dialogset.Dialogue) (*dialogset.Dialogue, error) {
	out := emptyOutput(d)
	if d.Empty() {
		return out, nil
	}
	if r.opts.FilterIneligible && !dialogset.Eligible(d) {
		log.Debugf("generation run %s: dialogue %d (%s) is not eligible", runID, idx, d.File)
		return out, nil
	}
	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanGenerateDialogue,
		telemetry.KeyRunID.String(runID), telemetry.KeyDialogue.Int(idx), telemetry.KeyFile.String(d.File))
	var merr *multierror.Error
	defer func() { telemetry.EndSpan(span, merr.ErrorOrNil()) }()

	dataset, err := r.opts.Describe(d.File)
	if err != nil {
		log.Warnf("describe dataset %s: %v", d.File, err)
		dataset = "Dataset: " + d.File
	}
	for j, turn := range d.Turns {
		if err := ctx.Err(); err != nil {
			merr = multierror.Append(merr, err)
			break
		}
		if turn == nil {
			log.Warnf("generation run %s: dialogue %d turn %d is null", runID, idx, j)
			out.Turns = append(out.Turns, &dialogset.Turn{})
			continue
		}
		previous := noPrevious
		if j > 0 {
			previous = formatPrevious(d.Turns[j-1])
		}
		generated, err := r.generateTurn(ctx, turn, promptmd.Data{
			Dataset:   dataset,
			Previous:  previous,
			Utterance: turn.Utterance,
		})
		if err != nil {
			merr = multierror.Append(merr, fmt.Errorf("turn %d: %w", j, err))
			generated = &dialogset.Turn{Utterance: turn.Utterance}
		}
		out.Turns = append(out.Turns, generated)
	}
	if err := merr.ErrorOrNil(); err != nil {
		return out, fmt.Errorf("generate dialogue (runID=%s, index=%d): %w", runID, idx, err)
	}
	return out, nil
}

func (r *Runner) generateTurn(ctx context.Context, ref *dialogset.Turn, data promptmd.Data) (*dialogset.Turn, error) {
	msgs, err := r.opts.Template.Render(data)
	if err != nil {
		return nil, err
	}
	if r.opts.Mode == ModeSteps {
		raw, err := r.gen.JSON(ctx, msgs, nil)
		if err != nil {
			return nil, err
		}
		return &dialogset.Turn{Utterance: ref.Utterance, Steps: raw}, nil
	}
	var answer dialogset.Turn
	if _, err := r.gen.JSON(ctx, msgs, &answer); err != nil {
		return nil, err
	}
	if answer.Chart == nil {
		return nil, errors.New("answer has no chart")
	}
	return &dialogset.Turn{Utterance: ref.Utterance, AnalyticTask: answer.AnalyticTask, Chart: answer.Chart}, nil
}

type previousTurn struct {
	AnalyticTask string      `json:"analytic task"`
	Utterance    string      `json:"utterance"`
	Chart        *chart.Spec `json:"chart"`
}

func formatPrevious(t *dialogset.Turn) string {
	if t == nil {
		return noPrevious
	}
	b, err := json.Marshal(previousTurn{AnalyticTask: t.AnalyticTask, Utterance: t.Utterance, Chart: t.Chart})
	if err != nil {
		return noPrevious
	}
	return string(b)
}
