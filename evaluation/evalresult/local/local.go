//
// Tencent is pleased to support the open source community by making trpc-vischart-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-vischart-go is licensed under the Apache License Version 2.0.
//
//

// Package local stores run results as JSON files in a directory.
package local

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"trpc.group/trpc-go/trpc-vischart-go/evaluation/evalresult"
	"trpc.group/trpc-go/trpc-vischart-go/internal/fsutil"
)

const fileSuffix = ".evalresult.json"

type manager struct {
	dir string
}

// New returns a manager writing <runID>.evalresult.json files under dir.
func New(dir string) (evalresult.Manager, error) {
	if dir == "" {
		return nil, errors.New("result directory is empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create result directory %s: %w", dir, err)
	}
	return &manager{dir: dir}, nil
}

func (m *manager) path(runID string) string {
	return filepath.Join(m.dir, runID+fileSuffix)
}

// Save writes the run file.
func (m *manager) Save(ctx context.Context, run *evalresult.RunResult) (string, error) {
	if run == nil {
		return "", errors.New("run result is nil")
	}
	if run.RunID == "" || strings.ContainsAny(run.RunID, `/\`) {
		return "", fmt.Errorf("invalid run id %q", run.RunID)
	}
	if err := fsutil.WriteJSON(m.path(run.RunID), run); err != nil {
		return "", fmt.Errorf("save run %s: %w", run.RunID, err)
	}
	return run.RunID, nil
}

// Get reads a run file.
func (m *manager) Get(ctx context.Context, runID string) (*evalresult.RunResult, error) {
	var run evalresult.RunResult
	if err := fsutil.ReadJSON(m.path(runID), &run); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("get run %s: %w", runID, evalresult.ErrNotFound)
		}
		return nil, fmt.Errorf("get run %s: %w", runID, err)
	}
	return &run, nil
}

// List returns the run ids found in the directory, sorted by modification time.
func (m *manager) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return nil, fmt.Errorf("list runs in %s: %w", m.dir, err)
	}
	type item struct {
		id      string
		modTime int64
	}
	var items []item
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), fileSuffix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		items = append(items, item{id: strings.TrimSuffix(e.Name(), fileSuffix), modTime: info.ModTime().UnixNano()})
	}
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].modTime != items[j].modTime {
			return items[i].modTime < items[j].modTime
		}
		return items[i].id < items[j].id
	})
	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.id)
	}
	return ids, nil
}

// Close is a no-op.
func (m *manager) Close() error {
	return nil
}
