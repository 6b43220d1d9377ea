//
// Tencent is pleased to support the open source community by making trpc-vischart-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-vischart-go is licensed under the Apache License Version 2.0.
//
//

package textgen

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

// ErrNoJSON is returned when a response holds no JSON value.
var ErrNoJSON = errors.New("no JSON value in response")

var (
	thinkPattern = regexp.MustCompile(`(?s)<think>.*?</think>`)
	fencePattern = regexp.MustCompile("(?s)```(?:json|JSON)?[ \\t]*\\n(.*?)```")
)

// StripThink removes <think> blocks. An unterminated block drops everything
// from its opening tag, and text before a stray closing tag is dropped.
func StripThink(s string) string {
	s = thinkPattern.ReplaceAllString(s, "")
	if i := strings.Index(s, "<think>"); i >= 0 {
		s = s[:i]
	}
	if i := strings.LastIndex(s, "</think>"); i >= 0 {
		s = s[i+len("</think>"):]
	}
	return strings.TrimSpace(s)
}

// ExtractJSON returns the first complete JSON object or array in s. Fenced
// code blocks are searched before the surrounding text.
func ExtractJSON(s string) (string, error) {
	s = StripThink(s)
	for _, m := range fencePattern.FindAllStringSubmatch(s, -1) {
		if v, ok := scanJSON(m[1]); ok {
			return v, nil
		}
	}
	if v, ok := scanJSON(s); ok {
		return v, nil
	}
	return "", ErrNoJSON
}

// scanJSON finds the first balanced and valid object or array.
func scanJSON(s string) (string, bool) {
	for start := 0; start < len(s); start++ {
		if s[start] != '{' && s[start] != '[' {
			continue
		}
		if end, ok := matchClose(s, start); ok && json.Valid([]byte(s[start:end+1])) {
			return s[start : end+1], true
		}
	}
	return "", false
}

func matchClose(s string, start int) (int, bool) {
	var stack []byte
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) == 0 || stack[len(stack)-1] != c {
				return 0, false
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return i, true
			}
		}
	}
	return 0, false
}
