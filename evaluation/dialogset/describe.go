//
// Tencent is pleased to support the open source community by making trpc-vischart-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-vischart-go is licensed under the Apache License Version 2.0.
//
//

package dialogset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"trpc.group/trpc-go/trpc-vischart-go/chart"
)

const (
	describeMaxRows    = 1000
	describeMaxSamples = 3
)

var temporalLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"01/02/2006",
	"2006-01",
	"Jan 2, 2006",
}

// Column describes one dataset column.
type Column struct {
	Name    string
	Type    string
	Samples []string
}

// DescribeCSV infers the columns of a CSV table: a column whose values all
// parse as numbers is quantitative, one whose values all parse as dates is
// temporal, anything else is nominal.
func DescribeCSV(r io.Reader) ([]Column, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("dialogset: csv has no header")
		}
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	cols := make([]*columnStats, len(header))
	for i, name := range header {
		cols[i] = &columnStats{name: strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")), numeric: true, temporal: true}
	}
	for rows := 0; rows < describeMaxRows; rows++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row %d: %w", rows+1, err)
		}
		for i, cell := range record {
			if i < len(cols) {
				cols[i].observe(strings.TrimSpace(cell))
			}
		}
	}
	out := make([]Column, 0, len(cols))
	for _, c := range cols {
		out = append(out, c.column())
	}
	return out, nil
}

// DescribeCSVFile renders the prompt description of a CSV file.
func DescribeCSVFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	cols, err := DescribeCSV(f)
	if err != nil {
		return "", fmt.Errorf("describe %s: %w", path, err)
	}
	return FormatColumns(filepath.Base(path), cols), nil
}

// FormatColumns renders columns as the dataset description used in prompts.
func FormatColumns(name string, cols []Column) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Dataset: %s\nColumns:\n", name)
	for _, c := range cols {
		fmt.Fprintf(&sb, "- %s (%s)", c.Name, c.Type)
		if len(c.Samples) > 0 {
			fmt.Fprintf(&sb, ", e.g. %s", strings.Join(c.Samples, ", "))
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

type columnStats struct {
	name     string
	seen     int
	numeric  bool
	temporal bool
	samples  []string
}

func (c *columnStats) observe(cell string) {
	if cell == "" {
		return
	}
	c.seen++
	if c.numeric {
		if _, err := strconv.ParseFloat(cell, 64); err != nil {
			c.numeric = false
		}
	}
	if c.temporal && !isTemporal(cell) {
		c.temporal = false
	}
	if len(c.samples) < describeMaxSamples && !contains(c.samples, cell) {
		c.samples = append(c.samples, cell)
	}
}

func (c *columnStats) column() Column {
	typ := chart.TypeNominal
	switch {
	case c.seen == 0:
	case c.numeric:
		typ = chart.TypeQuantitative
	case c.temporal:
		typ = chart.TypeTemporal
	}
	return Column{Name: c.name, Type: typ, Samples: c.samples}
}

func isTemporal(s string) bool {
	for _, layout := range temporalLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
