//
// Tencent is pleased to support the open source community by making trpc-vischart-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-vischart-go is licensed under the Apache License Version 2.0.
//
//

package promptmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/trpc-vischart-go/model"
)

const fence = "```"

const doc = "# Title\n\n" +
	"Intro text is ignored.\n\n" +
	"## system\n\n" +
	"Be brief.\n\n" +
	"## user\n\n" +
	"Dataset: {{.Dataset}}\n\n" +
	fence + "\n## not_a_section\n" + fence + "\n\n" +
	"Say: {{.Utterance}}\n"

func TestParse(t *testing.T) {
	d, err := Parse(doc)
	require.NoError(t, err)
	assert.Equal(t, []string{"system", "user"}, d.SectionIDs())
	system, ok := d.Section("system")
	require.True(t, ok)
	assert.Equal(t, "\nBe brief.\n\n", system.Body)
	user, ok := d.Section("user")
	require.True(t, ok)
	assert.Contains(t, user.Body, "## not_a_section")
	assert.Contains(t, user.Body, "Say: {{.Utterance}}")
	_, ok = d.Section("missing")
	assert.False(t, ok)
}

func TestParseErrors(t *testing.T) {
	_, err := Parse("no headings at all")
	assert.ErrorContains(t, err, "no sections found")

	_, err = Parse("## user\na\n## user\nb\n")
	assert.EqualError(t, err, "duplicate section_id: user")

	_, err = Parse("## User Prompt\nbody\n")
	assert.ErrorContains(t, err, "invalid section_id")
}

func TestTemplateRender(t *testing.T) {
	d, err := Parse(doc)
	require.NoError(t, err)
	tpl, err := NewTemplate(d)
	require.NoError(t, err)
	msgs, err := tpl.Render(Data{Dataset: "cars.csv", Utterance: "bar chart"})
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, model.NewSystemMessage("Be brief."), msgs[0])
	assert.Equal(t, model.RoleUser, msgs[1].Role)
	assert.Contains(t, msgs[1].Content, "Dataset: cars.csv")
	assert.Contains(t, msgs[1].Content, "Say: bar chart")
}

func TestTemplateErrors(t *testing.T) {
	_, err := NewTemplate(nil)
	assert.Error(t, err)

	d, err := Parse("## system\nonly system\n")
	require.NoError(t, err)
	_, err = NewTemplate(d)
	assert.EqualError(t, err, `missing section "user"`)

	d, err = Parse("## user\n{{.Unknown}}\n")
	require.NoError(t, err)
	tpl, err := NewTemplate(d)
	require.NoError(t, err)
	_, err = tpl.Render(Data{})
	assert.ErrorContains(t, err, "render section user")

	d, err = Parse("## user\n{{.Dataset\n")
	require.NoError(t, err)
	_, err = NewTemplate(d)
	assert.ErrorContains(t, err, "compile section user")
}

func TestBuiltin(t *testing.T) {
	for _, name := range []string{"direct", "steps"} {
		tpl, err := Builtin(name)
		require.NoError(t, err, name)
		assert.NotEmpty(t, tpl.Examples)
		msgs, err := tpl.Render(Data{Dataset: "Dataset: cars", Previous: "None", Utterance: "show horsepower"})
		require.NoError(t, err)
		require.Len(t, msgs, 2)
		assert.Contains(t, msgs[1].Content, "show horsepower")
		assert.Contains(t, msgs[1].Content, tpl.Examples)
	}
	_, err := Builtin("unknown")
	assert.Error(t, err)
}

func TestBuiltinMutation(t *testing.T) {
	for _, name := range []string{"add_filter", "add_sort"} {
		tpl, err := Builtin(name)
		require.NoError(t, err, name)
		assert.Empty(t, tpl.Examples)
		msgs, err := tpl.Render(Data{Dataset: "Dataset: cars", Chart: `{"mark":"bar"}`, Variant: "Single"})
		require.NoError(t, err)
		require.Len(t, msgs, 2)
		assert.Equal(t, model.RoleSystem, msgs[0].Role)
		assert.Contains(t, msgs[1].Content, `{"mark":"bar"}`)
		assert.Contains(t, msgs[1].Content, "Add a Single")
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompt.md")
	require.NoError(t, os.WriteFile(path, []byte("## user\nHi {{.Utterance}}\n"), 0o644))
	tpl, err := Load(path)
	require.NoError(t, err)
	msgs, err := tpl.Render(Data{Utterance: "there"})
	require.NoError(t, err)
	assert.Equal(t, []model.Message{model.NewUserMessage("Hi there")}, msgs)

	_, err = Load(filepath.Join(t.TempDir(), "missing.md"))
	assert.ErrorContains(t, err, "read prompt")
}
