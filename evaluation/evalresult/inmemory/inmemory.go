//
// Tencent is pleased to support the open source community by making trpc-vischart-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-vischart-go is licensed under the Apache License Version 2.0.
//
//

// Package inmemory keeps run results in process memory.
package inmemory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"trpc.group/trpc-go/trpc-vischart-go/evaluation/evalresult"
)

type manager struct {
	mu    sync.RWMutex
	order []string
	runs  map[string][]byte
}

// New returns an empty in-memory manager.
func New() evalresult.Manager {
	return &manager{runs: make(map[string][]byte)}
}

// Save stores a deep copy of run.
func (m *manager) Save(ctx context.Context, run *evalresult.RunResult) (string, error) {
	if run == nil {
		return "", errors.New("run result is nil")
	}
	if run.RunID == "" {
		return "", errors.New("run id is empty")
	}
	b, err := json.Marshal(run)
	if err != nil {
		return "", fmt.Errorf("encode run %s: %w", run.RunID, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.runs[run.RunID]; !ok {
		m.order = append(m.order, run.RunID)
	}
	m.runs[run.RunID] = b
	return run.RunID, nil
}

// Get returns a copy of the stored run.
func (m *manager) Get(ctx context.Context, runID string) (*evalresult.RunResult, error) {
	m.mu.RLock()
	b, ok := m.runs[runID]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("get run %s: %w", runID, evalresult.ErrNotFound)
	}
	var run evalresult.RunResult
	if err := json.Unmarshal(b, &run); err != nil {
		return nil, fmt.Errorf("decode run %s: %w", runID, err)
	}
	return &run, nil
}

// List returns run ids in save order.
func (m *manager) List(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.order...), nil
}

// Close is a no-op.
func (m *manager) Close() error {
	return nil
}
