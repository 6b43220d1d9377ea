//
// Tencent is pleased to support the open source community by making trpc-vischart-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-vischart-go is licensed under the Apache License Version 2.0.
//
//

package mutate

import (
	"encoding/json"
	"fmt"

	"trpc.group/trpc-go/trpc-vischart-go/chart"
	"trpc.group/trpc-go/trpc-vischart-go/log"
)

const (
	keyFile  = "file"
	keyChart = "vega-lite"
)

// Record is one target chart of a task file. Keys other than the dataset file
// and the chart are kept as they are.
type Record struct {
	File  string
	Chart *chart.Spec

	extra map[string]json.RawMessage
}

// UnmarshalJSON implements json.Unmarshaler. A chart that does not decode is
// kept as missing.
func (r *Record) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	*r = Record{}
	for key, raw := range fields {
		switch key {
		case keyFile:
			if err := json.Unmarshal(raw, &r.File); err != nil {
				return fmt.Errorf("decode %q: %w", key, err)
			}
		case keyChart:
			if string(raw) == "null" {
				continue
			}
			spec, err := chart.Parse(raw)
			if err != nil {
				log.Warnf("treat malformed chart as missing: %v", err)
				continue
			}
			r.Chart = spec
		default:
			if r.extra == nil {
				r.extra = make(map[string]json.RawMessage)
			}
			r.extra[key] = raw
		}
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (r Record) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.extra)+2)
	for k, v := range r.extra {
		out[k] = v
	}
	out[keyFile] = r.File
	out[keyChart] = r.Chart
	return json.Marshal(out)
}

func (r *Record) withChart(spec *chart.Spec) *Record {
	return &Record{File: r.File, Chart: spec, extra: r.extra}
}
