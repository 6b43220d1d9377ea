//
// Tencent is pleased to support the open source community by making trpc-vischart-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-vischart-go is licensed under the Apache License Version 2.0.
//
//

// Package telemetry wraps OpenTelemetry tracing and metrics for evaluation
// and generation runs.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "trpc.group/trpc-go/trpc-vischart-go"

// Span names.
const (
	SpanEvaluate         = "vischart.evaluate"
	SpanEvaluateDialogue = "vischart.evaluate.dialogue"
	SpanGenerate         = "vischart.generate"
	SpanGenerateDialogue = "vischart.generate.dialogue"
	SpanModelCall        = "vischart.model.generate"
	SpanPreference       = "vischart.preference"
	SpanMutate           = "vischart.mutate"
)

// Attribute keys.
const (
	KeyRunID       = attribute.Key("vischart.run_id")
	KeyDialogue    = attribute.Key("vischart.dialogue.index")
	KeyFile        = attribute.Key("vischart.dialogue.file")
	KeyTurns       = attribute.Key("vischart.turns")
	KeyModel       = attribute.Key("vischart.model")
	KeyAttempt     = attribute.Key("vischart.attempt")
	KeyResultRight = attribute.Key("vischart.turn.right")
	KeyOutcome     = attribute.Key("vischart.outcome")
)

// Tracer returns the tracer of the global provider.
func Tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}

// StartSpan starts a span and notifies the context's span observer.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	ctx, span := Tracer().Start(ctx, name, trace.WithAttributes(attrs...))
	if observer := SpanObserverFromContext(ctx); observer != nil {
		observer(ctx, name)
	}
	return ctx, span
}

// EndSpan records err on span and ends it.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

type instruments struct {
	turns       metric.Int64Counter
	generations metric.Int64Counter
}

var (
	instrumentsOnce sync.Once
	inst            instruments
)

func getInstruments() instruments {
	instrumentsOnce.Do(func() {
		meter := otel.Meter(instrumentationName)
		inst.turns, _ = meter.Int64Counter("vischart.turns.evaluated",
			metric.WithDescription("Dialogue turns compared against a reference chart"))
		inst.generations, _ = meter.Int64Counter("vischart.generations",
			metric.WithDescription("Model generations by outcome"))
	})
	return inst
}

// RecordTurns counts evaluated turns.
func RecordTurns(ctx context.Context, right, total int) {
	c := getInstruments().turns
	if c == nil {
		return
	}
	c.Add(ctx, int64(right), metric.WithAttributes(KeyResultRight.Bool(true)))
	c.Add(ctx, int64(total-right), metric.WithAttributes(KeyResultRight.Bool(false)))
}

// RecordGeneration counts one generation attempt outcome.
func RecordGeneration(ctx context.Context, model, outcome string) {
	c := getInstruments().generations
	if c == nil {
		return
	}
	c.Add(ctx, 1, metric.WithAttributes(KeyModel.String(model), KeyOutcome.String(outcome)))
}

// Config selects the trace exporter.
type Config struct {
	Enabled     bool   `yaml:"enabled"`
	Endpoint    string `yaml:"endpoint"`
	Insecure    bool   `yaml:"insecure"`
	ServiceName string `yaml:"service_name"`
}

// ShutdownFunc flushes and stops the tracer provider.
type ShutdownFunc func(context.Context) error

// Setup installs a global tracer provider exporting over OTLP/HTTP. When
// tracing is disabled it returns a no-op shutdown and leaves the global
// provider untouched.
func Setup(ctx context.Context, cfg Config) (ShutdownFunc, error) {
	if !cfg.Enabled {
		return func(context.Context) error { return nil }, nil
	}
	if cfg.Endpoint == "" {
		return nil, errors.New("telemetry endpoint is empty")
	}
	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	exp, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create otlp trace exporter: %w", err)
	}
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "vischart"
	}
	res, err := resource.Merge(resource.Default(),
		resource.NewWithAttributes(semconv.SchemaURL, semconv.ServiceName(serviceName)))
	if err != nil {
		return nil, fmt.Errorf("build telemetry resource: %w", err)
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exp), sdktrace.WithResource(res))
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}
