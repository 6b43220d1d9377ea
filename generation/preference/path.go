//
// Tencent is pleased to support the open source community by making trpc-vischart-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-vischart-go is licensed under the Apache License Version 2.0.
//
//

// Package preference mines step-level preference pairs from reasoning paths.
//
// A reasoning path tags each of its seven steps and each step's answer:
//
//	<step 1> reasoning <answer> Comparison </answer> </step 1> ... <step 7> ... </step 7>
//
// A model path is compared with the ground-truth path step by step. The first
// step whose answer differs yields a pair: the prompt, the model path up to
// that step, the ground-truth step as chosen and the model step as rejected.
package preference

import (
	"errors"
	"fmt"
	"strings"
)

// StepCount is the number of steps of a reasoning path.
const StepCount = 7

const (
	answerOpen  = "<answer>"
	answerClose = "</answer>"
)

// ErrIncompletePath is returned when a path misses a step or an answer.
var ErrIncompletePath = errors.New("incomplete reasoning path")

// Step is one tagged step of a path.
type Step struct {
	// Body is the text between the step tags.
	Body string
	// Answer is the text between the answer tags of the step.
	Answer string
	// start is the offset of the opening step tag in the path text.
	start int
}

// Path is a parsed reasoning path.
type Path struct {
	Text  string
	Steps []Step
}

// ParsePath extracts the seven steps of text in order.
func ParsePath(text string) (*Path, error) {
	p := &Path{Text: text, Steps: make([]Step, 0, StepCount)}
	cursor := 0
	for n := 1; n <= StepCount; n++ {
		open, end := openTag(n), closeTag(n)
		start := strings.Index(text[cursor:], open)
		if start < 0 {
			return nil, fmt.Errorf("%w: step %d is not opened", ErrIncompletePath, n)
		}
		start += cursor
		bodyStart := start + len(open)
		stop := strings.Index(text[bodyStart:], end)
		if stop < 0 {
			return nil, fmt.Errorf("%w: step %d is not closed", ErrIncompletePath, n)
		}
		stop += bodyStart
		body := strings.TrimSpace(text[bodyStart:stop])
		answer, ok := between(body, answerOpen, answerClose)
		if !ok {
			return nil, fmt.Errorf("%w: step %d has no answer", ErrIncompletePath, n)
		}
		p.Steps = append(p.Steps, Step{Body: body, Answer: answer, start: start})
		cursor = stop + len(end)
	}
	return p, nil
}

// Prefix returns the path text before step n followed by the opening tag of
// step n. Steps are numbered from 1.
func (p *Path) Prefix(n int) string {
	if p == nil || n < 1 || n > len(p.Steps) {
		return ""
	}
	return p.Text[:p.Steps[n-1].start] + openTag(n)
}

func openTag(n int) string {
	return fmt.Sprintf("<step %d>", n)
}

func closeTag(n int) string {
	return fmt.Sprintf("</step %d>", n)
}

func between(s, open, end string) (string, bool) {
	i := strings.Index(s, open)
	if i < 0 {
		return "", false
	}
	rest := s[i+len(open):]
	j := strings.Index(rest, end)
	if j < 0 {
		return "", false
	}
	return strings.TrimSpace(rest[:j]), true
}
