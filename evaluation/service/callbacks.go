//
// Tencent is pleased to support the open source community by making trpc-vischart-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-vischart-go is licensed under the Apache License Version 2.0.
//
//

package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"trpc.group/trpc-go/trpc-vischart-go/evaluation/evalresult"
)

// AfterDialogueArgs describes a finished dialogue.
type AfterDialogueArgs struct {
	RunID     string
	Result    *evalresult.DialogueResult
	Total     int
	StartTime time.Time
}

// AfterRunArgs describes a finished run.
type AfterRunArgs struct {
	Result    *evalresult.RunResult
	Error     error
	StartTime time.Time
}

// AfterDialogueFunc observes a finished dialogue.
type AfterDialogueFunc func(ctx context.Context, args *AfterDialogueArgs) error

// AfterRunFunc observes a finished run.
type AfterRunFunc func(ctx context.Context, args *AfterRunArgs) error

// Callbacks holds named lifecycle hooks. Hooks run in registration order.
type Callbacks struct {
	mu            sync.RWMutex
	afterDialogue []namedCallback[AfterDialogueFunc]
	afterRun      []namedCallback[AfterRunFunc]
}

type namedCallback[T any] struct {
	name string
	fn   T
}

// NewCallbacks returns an empty set.
func NewCallbacks() *Callbacks {
	return &Callbacks{}
}

// RegisterAfterDialogue adds a dialogue hook.
func (c *Callbacks) RegisterAfterDialogue(name string, fn AfterDialogueFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.afterDialogue = append(c.afterDialogue, namedCallback[AfterDialogueFunc]{name: name, fn: fn})
}

// RegisterAfterRun adds a run hook.
func (c *Callbacks) RegisterAfterRun(name string, fn AfterRunFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.afterRun = append(c.afterRun, namedCallback[AfterRunFunc]{name: name, fn: fn})
}

// RunAfterDialogue runs the dialogue hooks and stops at the first error.
func (c *Callbacks) RunAfterDialogue(ctx context.Context, args *AfterDialogueArgs) error {
	if c == nil {
		return nil
	}
	c.mu.RLock()
	hooks := append([]namedCallback[AfterDialogueFunc](nil), c.afterDialogue...)
	c.mu.RUnlock()
	for _, h := range hooks {
		if err := h.fn(ctx, args); err != nil {
			return fmt.Errorf("after dialogue callback %s: %w", h.name, err)
		}
	}
	return nil
}

// RunAfterRun runs the run hooks and stops at the first error.
func (c *Callbacks) RunAfterRun(ctx context.Context, args *AfterRunArgs) error {
	if c == nil {
		return nil
	}
	c.mu.RLock()
	hooks := append([]namedCallback[AfterRunFunc](nil), c.afterRun...)
	c.mu.RUnlock()
	for _, h := range hooks {
		if err := h.fn(ctx, args); err != nil {
			return fmt.Errorf("after run callback %s: %w", h.name, err)
		}
	}
	return nil
}
