//
// Tencent is pleased to support the open source community by making trpc-vischart-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-vischart-go is licensed under the Apache License Version 2.0.
//
//

// Package mutate extends target charts with a generated filter or sort.
package mutate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"runtime/debug"
	"sync"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/panjf2000/ants/v2"

	"trpc.group/trpc-go/trpc-vischart-go/chart"
	"trpc.group/trpc-go/trpc-vischart-go/chart/filter"
	"trpc.group/trpc-go/trpc-vischart-go/generation/promptmd"
	"trpc.group/trpc-go/trpc-vischart-go/internal/telemetry"
	"trpc.group/trpc-go/trpc-vischart-go/log"
	"trpc.group/trpc-go/trpc-vischart-go/model"
)

// Kind selects what a mutation adds.
type Kind string

// Mutation kinds.
const (
	KindFilter Kind = "filter"
	KindSort   Kind = "sort"
)

// Filter and sort variants named in mutation prompts.
const (
	VariantSingle           = "Single"
	VariantAnd              = "AND"
	VariantOr               = "OR"
	VariantMultiConditional = "Multi-conditional"
	VariantSortByEncoding   = "Sort by Another Encoding"
)

// Generator produces JSON answers. *textgen.Generator implements it.
type Generator interface {
	JSON(ctx context.Context, messages []model.Message, out any) (json.RawMessage, error)
}

// Mutator adds filters or sorts to charts.
type Mutator struct {
	gen  Generator
	kind Kind
	opts *Options
}

// New creates a mutator of kind.
func New(gen Generator, kind Kind, opt ...Option) (*Mutator, error) {
	if gen == nil {
		return nil, errors.New("generator is nil")
	}
	if kind != KindFilter && kind != KindSort {
		return nil, errors.New("kind must be filter or sort")
	}
	opts, err := newOptions(kind, opt...)
	if err != nil {
		return nil, err
	}
	return &Mutator{gen: gen, kind: kind, opts: opts}, nil
}

// Run returns one record per input record, in input order. Sorts are only
// added to bar charts. A record that cannot be mutated keeps its chart, and
// the failures are returned together with the records.
func (m *Mutator) Run(ctx context.Context, records []*Record) ([]*Record, error) {
	runID := uuid.NewString()
	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanMutate, telemetry.KeyRunID.String(runID))
	out := make([]*Record, len(records))
	errs := make([]error, len(records))
	variants := m.variants(len(records))

	pool, err := ants.NewPool(m.opts.Parallelism)
	if err != nil {
		telemetry.EndSpan(span, err)
		return nil, fmt.Errorf("create mutation pool: %w", err)
	}
	defer pool.Release()

	var wg sync.WaitGroup
	for idx, rec := range records {
		out[idx] = rec
		wg.Add(1)
		task := func() {
			defer wg.Done()
			out[idx], errs[idx] = m.mutateSafe(ctx, runID, idx, rec, variants[idx])
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
	runErr := merr.ErrorOrNil()
	telemetry.EndSpan(span, runErr)
	if runErr != nil {
		log.Warnf("mutation run %s: %d of %d record(s) kept their chart", runID, merr.Len(), len(records))
	}
	log.Infof("mutation run %s: %d record(s) processed", runID, len(records))
	return out, runErr
}

// variants draws the prompt variant of each record up front so a seeded run
// does not depend on scheduling.
func (m *Mutator) variants(n int) []string {
	out := make([]string, n)
	if m.kind == KindSort {
		for i := range out {
			out[i] = VariantSortByEncoding
		}
		return out
	}
	rng := rand.New(rand.NewPCG(m.opts.Seed, m.opts.Seed))
	for i := range out {
		out[i] = filterVariant(rng.Float64())
	}
	return out
}

func filterVariant(r float64) string {
	switch {
	case r <= 0.3:
		return VariantMultiConditional
	case r <= 0.6:
		return VariantSingle
	case r <= 0.8:
		return VariantAnd
	default:
		return VariantOr
	}
}

func (m *Mutator) mutateSafe(ctx context.Context, runID string, idx int, rec *Record,
	variant string) (out *Record, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("mutate record %d panicked: %v\n%s", idx, r, debug.Stack())
			out = rec
			err = fmt.Errorf("mutate record (runID=%s, index=%d): panic: %v", runID, idx, r)
		}
	}()
	out, err = m.mutate(ctx, rec, variant)
	if err != nil {
		return rec, fmt.Errorf("mutate record (runID=%s, index=%d): %w", runID, idx, err)
	}
	return out, nil
}

func (m *Mutator) mutate(ctx context.Context, rec *Record, variant string) (*Record, error) {
	if rec == nil || rec.Chart == nil {
		return rec, nil
	}
	if m.kind == KindSort && rec.Chart.MarkType() != chart.MarkBar {
		return rec, nil
	}
	dataset, err := m.opts.Describe(rec.File)
	if err != nil {
		log.Warnf("describe dataset %s: %v", rec.File, err)
		dataset = "Dataset: " + rec.File
	}
	msgs, err := m.opts.Template.Render(promptmd.Data{
		Dataset: dataset,
		Chart:   rec.Chart.String(),
		Variant: variant,
	})
	if err != nil {
		return nil, err
	}
	var lastErr error
	for attempt := 1; attempt <= m.opts.Attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var spec chart.Spec
		if _, err := m.gen.JSON(ctx, msgs, &spec); err != nil {
			lastErr = err
			continue
		}
		if err := m.check(&spec); err != nil {
			log.Debugf("attempt %d: %v", attempt, err)
			lastErr = err
			continue
		}
		return rec.withChart(&spec), nil
	}
	return nil, fmt.Errorf("no usable %s after %d attempt(s): %w", m.kind, m.opts.Attempts, lastErr)
}

func (m *Mutator) check(spec *chart.Spec) error {
	if m.kind == KindSort {
		return checkSort(spec)
	}
	return checkFilter(spec)
}

func checkFilter(spec *chart.Spec) error {
	for _, t := range spec.Transform {
		v, ok := t.Filter()
		if !ok {
			continue
		}
		expr, ok := v.String()
		if !ok {
			return errors.New("filter is not a string")
		}
		if _, err := filter.Normalize(expr); err != nil {
			return fmt.Errorf("filter %q: %w", expr, err)
		}
		return nil
	}
	return errors.New("chart has no filter")
}

func checkSort(spec *chart.Spec) error {
	enc := spec.EffectiveEncoding()
	for _, name := range enc.Names() {
		if v, ok := enc[name].Sort(); ok && !v.IsNull() {
			return nil
		}
	}
	return errors.New("chart has no sort")
}
