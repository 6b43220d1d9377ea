//
// Tencent is pleased to support the open source community by making trpc-vischart-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-vischart-go is licensed under the Apache License Version 2.0.
//
//

package preference

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/panjf2000/ants/v2"

	"trpc.group/trpc-go/trpc-vischart-go/internal/telemetry"
	"trpc.group/trpc-go/trpc-vischart-go/log"
	"trpc.group/trpc-go/trpc-vischart-go/model"
)

// TextGenerator produces free-form answers. *textgen.Generator implements it.
type TextGenerator interface {
	Text(ctx context.Context, messages []model.Message) (string, error)
}

// Record is one prompt with its ground-truth reasoning path.
type Record struct {
	Instruction string `json:"instruction"`
	Output      string `json:"output"`
}

// Pair is a step-level preference pair.
type Pair struct {
	Prompt string `json:"prompt"`
	// InitialReasonSteps is the model path up to the opening tag of the
	// first differing step.
	InitialReasonSteps string `json:"initial_reason_steps"`
	Chosen             string `json:"chosen"`
	Rejected           string `json:"rejected"`
	// Step is the number of the first differing step.
	Step int `json:"step"`
}

// BuildPair compares a model path with the ground-truth path. It returns nil
// when both paths agree on every step.
func BuildPair(prompt string, candidate, truth *Path) (*Pair, error) {
	n, err := FirstDivergence(candidate, truth)
	if err != nil || n == 0 {
		return nil, err
	}
	return &Pair{
		Prompt:             prompt,
		InitialReasonSteps: candidate.Prefix(n),
		Chosen:             stepText(truth, n),
		Rejected:           stepText(candidate, n),
		Step:               n,
	}, nil
}

func stepText(p *Path, n int) string {
	return " " + p.Steps[n-1].Body + " " + closeTag(n)
}

// Options configures a Miner.
type Options struct {
	// Attempts bounds the samples drawn for a record until one parses and
	// compares.
	Attempts    int
	Parallelism int
}

// Option mutates Options.
type Option func(*Options)

// WithAttempts sets the samples drawn per record.
func WithAttempts(n int) Option {
	return func(o *Options) { o.Attempts = n }
}

// WithParallelism bounds the records mined at once.
func WithParallelism(n int) Option {
	return func(o *Options) { o.Parallelism = n }
}

// Miner samples model paths and turns their first mistakes into pairs.
type Miner struct {
	gen  TextGenerator
	opts Options
}

// NewMiner creates a miner.
func NewMiner(gen TextGenerator, opt ...Option) (*Miner, error) {
	if gen == nil {
		return nil, errors.New("generator is nil")
	}
	opts := Options{Attempts: 3, Parallelism: runtime.GOMAXPROCS(0)}
	for _, o := range opt {
		o(&opts)
	}
	if opts.Attempts <= 0 {
		return nil, errors.New("attempts must be greater than 0")
	}
	if opts.Parallelism <= 0 {
		return nil, errors.New("parallelism must be greater than 0")
	}
	return &Miner{gen: gen, opts: opts}, nil
}

// Mine returns the pairs of records, in record order. Records whose sampled
// path matches the ground truth yield no pair. Failed records are skipped and
// their errors returned together with the pairs.
func (m *Miner) Mine(ctx context.Context, records []Record) ([]*Pair, error) {
	runID := uuid.NewString()
	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanPreference, telemetry.KeyRunID.String(runID))
	pairs := make([]*Pair, len(records))
	errs := make([]error, len(records))

	pool, err := ants.NewPool(m.opts.Parallelism)
	if err != nil {
		telemetry.EndSpan(span, err)
		return nil, fmt.Errorf("create preference pool: %w", err)
	}
	defer pool.Release()

	var wg sync.WaitGroup
	for idx := range records {
		wg.Add(1)
		task := func() {
			defer wg.Done()
			pairs[idx], errs[idx] = m.mineSafe(ctx, runID, idx, records[idx])
		}
		if err := pool.Submit(task); err != nil {
			wg.Done()
			errs[idx] = fmt.Errorf("submit record %d: %w", idx, err)
		}
	}
	wg.Wait()

	var merr *multierror.Error
	for _, e := range errs {
		if e != nil {
			merr = multierror.Append(merr, e)
		}
	}
	out := make([]*Pair, 0, len(pairs))
	for _, p := range pairs {
		if p != nil {
			out = append(out, p)
		}
	}
	runErr := merr.ErrorOrNil()
	telemetry.EndSpan(span, runErr)
	if runErr != nil {
		log.Warnf("preference run %s: %d of %d record(s) failed", runID, merr.Len(), len(records))
	}
	log.Infof("preference run %s: %d pair(s) from %d record(s)", runID, len(out), len(records))
	return out, runErr
}

func (m *Miner) mineSafe(ctx context.Context, runID string, idx int, rec Record) (p *Pair, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("mine record %d panicked: %v\n%s", idx, r, debug.Stack())
			p = nil
			err = fmt.Errorf("mine record (runID=%s, index=%d): panic: %v", runID, idx, r)
		}
	}()
	p, err = m.mine(ctx, rec)
	if err != nil {
		return nil, fmt.Errorf("mine record (runID=%s, index=%d): %w", runID, idx, err)
	}
	return p, nil
}

func (m *Miner) mine(ctx context.Context, rec Record) (*Pair, error) {
	truth, err := ParsePath(rec.Output)
	if err != nil {
		return nil, fmt.Errorf("ground-truth path: %w", err)
	}
	msgs := []model.Message{model.NewUserMessage(rec.Instruction)}
	var lastErr error
	for attempt := 1; attempt <= m.opts.Attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text, err := m.gen.Text(ctx, msgs)
		if err != nil {
			lastErr = err
			continue
		}
		candidate, err := ParsePath(text)
		if err != nil {
			log.Debugf("attempt %d: model path: %v", attempt, err)
			lastErr = fmt.Errorf("model path: %w", err)
			continue
		}
		p, err := BuildPair(rec.Instruction, candidate, truth)
		if err != nil {
			log.Debugf("attempt %d: %v", attempt, err)
			lastErr = err
			continue
		}
		return p, nil
	}
	return nil, fmt.Errorf("no usable path after %d attempt(s): %w", m.opts.Attempts, lastErr)
}
