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
	"embed"
	"errors"
	"fmt"
	"strings"
	"text/template"

	"trpc.group/trpc-go/trpc-vischart-go/model"
)

// Section ids rendered into messages.
const (
	SectionSystem = "system"
	SectionUser   = "user"
)

//go:embed templates
var builtin embed.FS

// Data fills a prompt template.
type Data struct {
	// Dataset describes the dataset columns.
	Dataset string
	// Previous is the previous turn, or "None" on the first turn.
	Previous string
	// Utterance is the current user utterance.
	Utterance string
	// Examples holds few-shot answers.
	Examples string
	// Chart is the chart a mutation prompt extends.
	Chart string
	// Variant names the filter or sort style a mutation prompt asks for.
	Variant string
}

// Template renders prompt messages.
type Template struct {
	system *template.Template
	user   *template.Template
	// Examples are the few-shot answers shipped with a built-in template.
	Examples string
}

// NewTemplate compiles the system and user sections of doc. The user section
// is required.
func NewTemplate(doc *Document) (*Template, error) {
	if doc == nil {
		return nil, errors.New("document is nil")
	}
	user, ok := doc.Section(SectionUser)
	if !ok {
		return nil, fmt.Errorf("missing section %q", SectionUser)
	}
	t := &Template{}
	var err error
	if t.user, err = compile(SectionUser, user.Body); err != nil {
		return nil, err
	}
	if system, ok := doc.Section(SectionSystem); ok {
		if t.system, err = compile(SectionSystem, system.Body); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// Load parses and compiles the template at path.
func Load(path string) (*Template, error) {
	doc, err := ParseFile(path)
	if err != nil {
		return nil, err
	}
	return NewTemplate(doc)
}

// Builtin returns a built-in template: "direct" answers with a chart, "steps"
// answers with a step output, "add_filter" and "add_sort" extend a chart.
func Builtin(name string) (*Template, error) {
	md, err := builtin.ReadFile("templates/" + name + ".md")
	if err != nil {
		return nil, fmt.Errorf("unknown builtin template %q", name)
	}
	doc, err := Parse(string(md))
	if err != nil {
		return nil, err
	}
	t, err := NewTemplate(doc)
	if err != nil {
		return nil, err
	}
	if examples, err := builtin.ReadFile("templates/" + name + "_examples.txt"); err == nil {
		t.Examples = strings.TrimSpace(string(examples))
	}
	return t, nil
}

// Render builds the chat messages for data.
func (t *Template) Render(data Data) ([]model.Message, error) {
	if data.Examples == "" {
		data.Examples = t.Examples
	}
	var msgs []model.Message
	if t.system != nil {
		s, err := execute(t.system, data)
		if err != nil {
			return nil, err
		}
		if s != "" {
			msgs = append(msgs, model.NewSystemMessage(s))
		}
	}
	u, err := execute(t.user, data)
	if err != nil {
		return nil, err
	}
	return append(msgs, model.NewUserMessage(u)), nil
}

func compile(name, body string) (*template.Template, error) {
	t, err := template.New(name).Option("missingkey=error").Parse(body)
	if err != nil {
		return nil, fmt.Errorf("compile section %s: %w", name, err)
	}
	return t, nil
}

func execute(t *template.Template, data Data) (string, error) {
	var b strings.Builder
	if err := t.Execute(&b, data); err != nil {
		return "", fmt.Errorf("render section %s: %w", t.Name(), err)
	}
	return strings.TrimSpace(b.String()), nil
}
