//
// Tencent is pleased to support the open source community by making trpc-vischart-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-vischart-go is licensed under the Apache License Version 2.0.
//
//

// Package status defines evaluation statuses.
package status

import "fmt"

// EvalStatus is the outcome of one evaluation.
type EvalStatus int

// Evaluation statuses.
const (
	EvalStatusUnknown EvalStatus = iota
	EvalStatusPassed
	EvalStatusFailed
	EvalStatusNotEvaluated
)

var names = map[EvalStatus]string{
	EvalStatusUnknown:      "unknown",
	EvalStatusPassed:       "passed",
	EvalStatusFailed:       "failed",
	EvalStatusNotEvaluated: "not_evaluated",
}

// String returns the status name.
func (s EvalStatus) String() string {
	if n, ok := names[s]; ok {
		return n
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// MarshalText implements encoding.TextMarshaler.
func (s EvalStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *EvalStatus) UnmarshalText(text []byte) error {
	for k, v := range names {
		if v == string(text) {
			*s = k
			return nil
		}
	}
	return fmt.Errorf("unknown eval status %q", text)
}

// ForScore returns passed when score reaches threshold.
func ForScore(score, threshold float64) EvalStatus {
	if score >= threshold {
		return EvalStatusPassed
	}
	return EvalStatusFailed
}
