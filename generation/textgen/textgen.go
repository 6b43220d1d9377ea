//
// Tencent is pleased to support the open source community by making trpc-vischart-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-vischart-go is licensed under the Apache License Version 2.0.
//
//

// Package textgen wraps a model with retries, reasoning-block stripping, JSON
// extraction and an optional response cache.
package textgen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"trpc.group/trpc-go/trpc-vischart-go/internal/telemetry"
	"trpc.group/trpc-go/trpc-vischart-go/log"
	"trpc.group/trpc-go/trpc-vischart-go/model"
)

const (
	defaultRetries = 3

	outcomeOK       = "ok"
	outcomeCached   = "cached"
	outcomeError    = "error"
	outcomeEmpty    = "empty"
	outcomeBadJSON  = "bad_json"
	outcomeBadShape = "schema_mismatch"
)

// ErrEmptyResponse is returned when the model output is empty after cleaning.
var ErrEmptyResponse = errors.New("empty model response")

// Option configures a Generator.
type Option func(*Generator)

// WithRetries sets how many attempts a call makes.
func WithRetries(n int) Option {
	return func(g *Generator) { g.retries = n }
}

// WithRetryDelay sets the pause between attempts.
func WithRetryDelay(d time.Duration) Option {
	return func(g *Generator) { g.retryDelay = d }
}

// WithGenerationConfig sets sampling parameters.
func WithGenerationConfig(cfg model.GenerationConfig) Option {
	return func(g *Generator) { g.config = cfg }
}

// WithCache reuses outputs for identical requests.
func WithCache(c *Cache) Option {
	return func(g *Generator) { g.cache = c }
}

// WithSchema validates every JSON output against s.
func WithSchema(s *jsonschema.Schema) Option {
	return func(g *Generator) { g.schema = s }
}

// Generator produces cleaned text and JSON from a model.
type Generator struct {
	model      model.Model
	retries    int
	retryDelay time.Duration
	config     model.GenerationConfig
	cache      *Cache
	schema     *jsonschema.Schema
}

// New creates a generator over m.
func New(m model.Model, opt ...Option) (*Generator, error) {
	if m == nil {
		return nil, errors.New("model is nil")
	}
	g := &Generator{model: m, retries: defaultRetries}
	for _, o := range opt {
		o(g)
	}
	if g.retries <= 0 {
		return nil, errors.New("retries must be greater than 0")
	}
	return g, nil
}

// Text returns the model answer with reasoning blocks removed.
func (g *Generator) Text(ctx context.Context, messages []model.Message) (string, error) {
	return g.generate(ctx, messages, false, func(out string) (string, string, error) {
		if out == "" {
			return "", outcomeEmpty, ErrEmptyResponse
		}
		return out, outcomeOK, nil
	})
}

// JSON asks for a JSON answer, extracts it, validates it against the
// configured schema and decodes it into out. It returns the raw JSON.
func (g *Generator) JSON(ctx context.Context, messages []model.Message, out any) (json.RawMessage, error) {
	raw, err := g.generate(ctx, messages, true, func(text string) (string, string, error) {
		v, err := ExtractJSON(text)
		if err != nil {
			return "", outcomeBadJSON, err
		}
		if g.schema != nil {
			var doc any
			if err := json.Unmarshal([]byte(v), &doc); err != nil {
				return "", outcomeBadJSON, err
			}
			if err := g.schema.Validate(doc); err != nil {
				return "", outcomeBadShape, fmt.Errorf("validate output: %w", err)
			}
		}
		if out != nil {
			if err := json.Unmarshal([]byte(v), out); err != nil {
				return "", outcomeBadJSON, fmt.Errorf("decode output: %w", err)
			}
		}
		return v, outcomeOK, nil
	})
	if err != nil {
		return nil, err
	}
	return json.RawMessage(raw), nil
}

type acceptFunc func(text string) (value string, outcome string, err error)

func (g *Generator) generate(ctx context.Context, messages []model.Message, jsonMode bool,
	accept acceptFunc) (string, error) {
	if len(messages) == 0 {
		return "", errors.New("messages are empty")
	}
	name := g.model.Info().Name
	key := CacheKey(name, jsonMode, messages)
	if entry, ok := g.cache.Get(key); ok {
		if v, _, err := accept(entry.Output); err == nil {
			telemetry.RecordGeneration(ctx, name, outcomeCached)
			return v, nil
		}
	}
	cfg := g.config
	cfg.JSONMode = cfg.JSONMode || jsonMode
	var lastErr error
	for attempt := 1; attempt <= g.retries; attempt++ {
		if attempt > 1 && g.retryDelay > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(g.retryDelay):
			}
		}
		v, err := g.attempt(ctx, name, attempt, &model.Request{Messages: messages, GenerationConfig: cfg}, accept)
		if err == nil {
			if g.cache != nil {
				if err := g.cache.Put(CacheEntry{Key: key, Model: name, Output: v}); err != nil {
					log.Warnf("textgen: cache put: %v", err)
				}
			}
			return v, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		lastErr = err
		log.Debugf("textgen: model %s attempt %d/%d failed: %v", name, attempt, g.retries, err)
	}
	return "", fmt.Errorf("generate (model=%s) after %d attempts: %w", name, g.retries, lastErr)
}

func (g *Generator) attempt(ctx context.Context, name string, attempt int, req *model.Request,
	accept acceptFunc) (value string, err error) {
	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanModelCall,
		telemetry.KeyModel.String(name), telemetry.KeyAttempt.Int(attempt))
	defer func() { telemetry.EndSpan(span, err) }()
	resp, err := g.model.Generate(ctx, req)
	if err != nil {
		telemetry.RecordGeneration(ctx, name, outcomeError)
		return "", err
	}
	value, outcome, err := accept(StripThink(resp.Content))
	telemetry.RecordGeneration(ctx, name, outcome)
	return value, err
}
