//
// Tencent is pleased to support the open source community by making trpc-vischart-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-vischart-go is licensed under the Apache License Version 2.0.
//
//

package telemetry

import "context"

// SpanObserver receives the context of every span started through StartSpan.
type SpanObserver func(ctx context.Context, name string)

type spanObserverKey struct{}

// WithSpanObserver injects a span observer into context.
func WithSpanObserver(ctx context.Context, observer SpanObserver) context.Context {
	if observer == nil {
		return ctx
	}
	return context.WithValue(ctx, spanObserverKey{}, observer)
}

// SpanObserverFromContext returns the span observer from context if present.
func SpanObserverFromContext(ctx context.Context) SpanObserver {
	if v, ok := ctx.Value(spanObserverKey{}).(SpanObserver); ok {
		return v
	}
	return nil
}
