//
// Tencent is pleased to support the open source community by making trpc-vischart-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-vischart-go is licensed under the Apache License Version 2.0.
//
//

// Package registry maps metric names to evaluators.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"trpc.group/trpc-go/trpc-vischart-go/evaluation/evaluator"
	"trpc.group/trpc-go/trpc-vischart-go/evaluation/evaluator/analytictask"
	"trpc.group/trpc-go/trpc-vischart-go/evaluation/evaluator/chartaccuracy"
	"trpc.group/trpc-go/trpc-vischart-go/evaluation/evaluator/chartschema"
	"trpc.group/trpc-go/trpc-vischart-go/evaluation/evaluator/lexical"
)

// ErrNotFound is returned for unknown metric names.
var ErrNotFound = errors.New("evaluator not found")

// Registry holds evaluators by metric name.
type Registry interface {
	// Register adds or replaces the evaluator for name.
	Register(name string, e evaluator.Evaluator) error
	// Get returns the evaluator for name.
	Get(name string) (evaluator.Evaluator, error)
	// Names lists registered metric names in sorted order.
	Names() []string
}

type registry struct {
	mu         sync.RWMutex
	evaluators map[string]evaluator.Evaluator
}

// New returns a registry holding the built-in evaluators.
func New() Registry {
	r := &registry{evaluators: make(map[string]evaluator.Evaluator)}
	builtins := []evaluator.Evaluator{
		chartaccuracy.New(),
		lexical.NewRougeL(),
		lexical.NewBLEU(),
		analytictask.New(),
	}
	if schema, err := chartschema.New(); err == nil {
		builtins = append(builtins, schema)
	}
	for _, e := range builtins {
		r.evaluators[e.Name()] = e
	}
	return r
}

// Register adds or replaces the evaluator for name.
func (r *registry) Register(name string, e evaluator.Evaluator) error {
	if name == "" {
		return errors.New("metric name is empty")
	}
	if e == nil {
		return errors.New("evaluator is nil")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.evaluators[name] = e
	return nil
}

// Get returns the evaluator for name.
func (r *registry) Get(name string) (evaluator.Evaluator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.evaluators[name]
	if !ok {
		return nil, fmt.Errorf("get evaluator %s: %w", name, ErrNotFound)
	}
	return e, nil
}

// Names lists registered metric names in sorted order.
func (r *registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.evaluators))
	for name := range r.evaluators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
