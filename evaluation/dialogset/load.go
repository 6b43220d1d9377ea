//
// Tencent is pleased to support the open source community by making trpc-vischart-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-vischart-go is licensed under the Apache License Version 2.0.
//
//

package dialogset

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"

	"trpc.group/trpc-go/trpc-vischart-go/internal/fsutil"
)

const defaultLoadParallelism = 8

// ErrNoFiles is returned when no pattern matches a file.
var ErrNoFiles = errors.New("dialogset: no files match")

// LoadFile reads one dataset file.
func LoadFile(path string) ([]*Dialogue, error) {
	var dialogues []*Dialogue
	if err := fsutil.ReadJSON(path, &dialogues); err != nil {
		return nil, fmt.Errorf("load dialogue set %s: %w", path, err)
	}
	return dialogues, nil
}

// Load expands the doublestar patterns, reads the matched files concurrently
// and concatenates their dialogues in sorted path order. A plain path is its
// own pattern.
func Load(ctx context.Context, patterns ...string) ([]*Dialogue, error) {
	paths, err := expand(patterns)
	if err != nil {
		return nil, err
	}
	sets := make([][]*Dialogue, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(defaultLoadParallelism)
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			set, err := LoadFile(path)
			if err != nil {
				return err
			}
			sets[i] = set
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	var out []*Dialogue
	for _, set := range sets {
		out = append(out, set...)
	}
	return out, nil
}

func expand(patterns []string) ([]string, error) {
	seen := make(map[string]struct{})
	var paths []string
	for _, pattern := range patterns {
		matches, err := doublestar.FilepathGlob(pattern)
		if err != nil {
			return nil, fmt.Errorf("expand pattern %q: %w", pattern, err)
		}
		for _, m := range matches {
			if _, dup := seen[m]; dup {
				continue
			}
			seen[m] = struct{}{}
			paths = append(paths, m)
		}
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w %v", ErrNoFiles, patterns)
	}
	sort.Strings(paths)
	return paths, nil
}

// Save writes the dialogues to path as indented JSON.
func Save(path string, dialogues []*Dialogue) error {
	if dialogues == nil {
		dialogues = []*Dialogue{}
	}
	if err := fsutil.WriteJSON(path, dialogues); err != nil {
		return fmt.Errorf("save dialogue set %s: %w", path, err)
	}
	return nil
}
