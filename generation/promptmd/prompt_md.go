//
// Tencent is pleased to support the open source community by making trpc-vischart-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-vischart-go is licensed under the Apache License Version 2.0.
//
//

// Package promptmd loads markdown prompt templates. A template is split into
// sections by "## <section_id>" headings; the "system" and "user" sections
// are rendered with text/template.
package promptmd

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var sectionIDPattern = regexp.MustCompile(`^[a-z0-9_]+$`)

// Section is the content under one "## <section_id>" heading.
type Section struct {
	// ID is the section identifier parsed from the heading.
	ID string
	// Body is the raw markdown under the heading.
	Body string
}

// Document is a parsed prompt document.
type Document struct {
	// Raw is the original markdown text.
	Raw string
	// Sections contains parsed sections in document order.
	Sections []Section
}

// Parse splits md into sections. Text before the first section heading is
// ignored, and headings inside code blocks do not start sections.
func Parse(md string) (*Document, error) {
	src := []byte(md)
	root := goldmark.New().Parser().Parse(text.NewReader(src))
	type heading struct {
		id        string
		lineStart int
		bodyStart int
	}
	var headings []heading
	for n := root.FirstChild(); n != nil; n = n.NextSibling() {
		h, ok := n.(*ast.Heading)
		if !ok || h.Level != 2 {
			continue
		}
		lines := h.Lines()
		if lines.Len() == 0 {
			return nil, errors.New("empty section_id")
		}
		var id strings.Builder
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			id.Write(seg.Value(src))
		}
		first, last := lines.At(0), lines.At(lines.Len()-1)
		rawID := strings.TrimSpace(id.String())
		if !sectionIDPattern.MatchString(rawID) {
			return nil, fmt.Errorf("invalid section_id %q (expected %s)", rawID, sectionIDPattern.String())
		}
		headings = append(headings, heading{
			id:        rawID,
			lineStart: bytes.LastIndexByte(src[:first.Start], '\n') + 1,
			bodyStart: lineEnd(src, last.Stop),
		})
	}
	if len(headings) == 0 {
		return nil, errors.New("no sections found (expected headings like \"## user\")")
	}
	doc := &Document{Raw: md}
	seen := make(map[string]struct{}, len(headings))
	for i, h := range headings {
		if _, ok := seen[h.id]; ok {
			return nil, fmt.Errorf("duplicate section_id: %s", h.id)
		}
		seen[h.id] = struct{}{}
		end := len(src)
		if i+1 < len(headings) {
			end = headings[i+1].lineStart
		}
		body := ""
		if h.bodyStart < end {
			body = string(src[h.bodyStart:end])
		}
		doc.Sections = append(doc.Sections, Section{ID: h.id, Body: body})
	}
	return doc, nil
}

// ParseFile parses the prompt document at path.
func ParseFile(path string) (*Document, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read prompt: %w", err)
	}
	doc, err := Parse(string(b))
	if err != nil {
		return nil, fmt.Errorf("parse prompt %s: %w", path, err)
	}
	return doc, nil
}

// SectionIDs returns the section ids in order.
func (d *Document) SectionIDs() []string {
	ids := make([]string, 0, len(d.Sections))
	for _, s := range d.Sections {
		ids = append(ids, s.ID)
	}
	return ids
}

// Section returns the section with id.
func (d *Document) Section(id string) (Section, bool) {
	for _, s := range d.Sections {
		if s.ID == id {
			return s, true
		}
	}
	return Section{}, false
}

func lineEnd(src []byte, pos int) int {
	if pos >= len(src) {
		return len(src)
	}
	if i := bytes.IndexByte(src[pos:], '\n'); i >= 0 {
		return pos + i + 1
	}
	return len(src)
}
