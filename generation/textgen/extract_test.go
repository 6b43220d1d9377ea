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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripThink(t *testing.T) {
	cases := map[string]string{
		"<think>a</think>b":               "b",
		"x<think>a\nb</think> y ":         "x y",
		"answer <think>never closed":      "answer",
		"leaked reasoning</think> answer": "answer",
		"plain":                           "plain",
	}
	for in, want := range cases {
		assert.Equal(t, want, StripThink(in), in)
	}
}

func TestExtractJSON(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{`{"a": 1}`, `{"a": 1}`},
		{"here it is: {\"a\": \"}\"} done", `{"a": "}"}`},
		{"```json\n[1, 2]\n```", "[1, 2]"},
		{"{not json} then {\"b\": [true]}", `{"b": [true]}`},
		{"<think>{\"draft\": 1}</think>{\"final\": 2}", `{"final": 2}`},
		{"```\n{\"fenced\": \"\\\"q\"}\n``` and {\"outside\": 1}", `{"fenced": "\"q"}`},
	}
	for _, c := range cases {
		got, err := ExtractJSON(c.in)
		require.NoError(t, err, c.in)
		assert.Equal(t, c.want, got)
	}
	_, err := ExtractJSON("nothing {here")
	assert.ErrorIs(t, err, ErrNoJSON)
}
