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
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/trpc-vischart-go/chart"
)

const referenceJSON = `[
  {
    "file": "cars.csv",
    "dialogues": [
      {
        "utterance": "Show the average horsepower per origin.",
        "analytic task": "Compute Derived Value",
        "chart": {"mark": "bar", "encoding": {
          "x": {"field": "Origin", "type": "nominal"},
          "y": {"field": "Horsepower", "type": "quantitative", "aggregate": "mean"}}}
      },
      {
        "utterance": "Only cars after 1975.",
        "analytic task": ["Modify Chart"],
        "chart": {"mark": "bar", "transform": [{"filter": "datum.Year > 1975"}], "encoding": {
          "x": {"field": "Origin", "type": "nominal"},
          "y": {"field": "Horsepower", "type": "quantitative", "aggregate": "mean"}}}
      }
    ]
  }
]`

func TestTurnDecoding(t *testing.T) {
	var set []*Dialogue
	require.NoError(t, json.Unmarshal([]byte(referenceJSON), &set))
	require.Len(t, set, 1)
	d := set[0]
	assert.Equal(t, "cars.csv", d.File)
	require.Len(t, d.Turns, 2)
	assert.Equal(t, TaskComputeDerivedValue, d.Turns[0].AnalyticTask)
	assert.Equal(t, TaskModifyChart, d.Turns[1].AnalyticTask)
	assert.Equal(t, chart.MarkBar, d.Turns[0].Chart.MarkType())
	f, ok := d.Turns[1].Chart.Filter()
	assert.True(t, ok)
	assert.Equal(t, "datum.Year > 1975", f)
}

func TestTurnDecodingLenient(t *testing.T) {
	var turn Turn
	require.NoError(t, json.Unmarshal([]byte(`{"analyzing tasks": "Correlate", "utterance": "u",
		"chart": "<The Vega-Lite chart inferred>"}`), &turn))
	assert.Equal(t, TaskCorrelate, turn.AnalyticTask)
	assert.Nil(t, turn.Chart)
	assert.Nil(t, turn.Predictions())

	require.NoError(t, json.Unmarshal([]byte(`{"analytic task": null, "chart": null}`), &turn))
	assert.Empty(t, turn.AnalyticTask)
	assert.Nil(t, turn.Chart)

	assert.Error(t, json.Unmarshal([]byte(`{"analytic task": 3}`), &turn))
	assert.Error(t, json.Unmarshal([]byte(`{"chart": {"mark": [}}`), &turn))
}

func TestPredictions(t *testing.T) {
	var turn Turn
	require.NoError(t, json.Unmarshal([]byte(`{"analytic task": "Comparison", "chart": {"mark": "line"}}`), &turn))
	preds := turn.Predictions()
	require.Len(t, preds, 1)
	assert.Equal(t, TaskComparison, preds[0].AnalyticTask)
	assert.Equal(t, chart.MarkLine, preds[0].Chart.MarkType())

	require.NoError(t, json.Unmarshal([]byte(`{"charts": [
		{"analytic task": "Correlate", "chart": {"mark": "point"}},
		{"analyzing tasks": ["Comparison"], "chart": {"mark": "bar"}}]}`), &turn))
	preds = turn.Predictions()
	require.Len(t, preds, 2)
	assert.Equal(t, TaskCorrelate, preds[0].AnalyticTask)
	assert.Equal(t, TaskComparison, preds[1].AnalyticTask)
	assert.Equal(t, chart.MarkBar, preds[1].Chart.MarkType())

	var nilTurn *Turn
	assert.Nil(t, nilTurn.Predictions())
}

func TestTurnRoundTrip(t *testing.T) {
	var set []*Dialogue
	require.NoError(t, json.Unmarshal([]byte(referenceJSON), &set))
	b, err := json.Marshal(set)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"analytic task":"Modify Chart"`)
	var again []*Dialogue
	require.NoError(t, json.Unmarshal(b, &again))
	assert.Equal(t, set[0].Turns[1].Chart.String(), again[0].Turns[1].Chart.String())
}

func TestEligible(t *testing.T) {
	var set []*Dialogue
	require.NoError(t, json.Unmarshal([]byte(referenceJSON), &set))
	assert.True(t, Eligible(set[0]))

	tests := []struct {
		name  string
		chart string
	}{
		{"arc mark", `{"mark":"arc","encoding":{"theta":{"field":"v","type":"quantitative"}}}`},
		{"no quantitative", `{"mark":"bar","encoding":{"x":{"field":"a","type":"nominal"},"y":{"aggregate":"count"}}}`},
		{"quantitative on size only", `{"mark":"point","encoding":{"size":{"field":"v","type":"quantitative"}}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &Dialogue{Turns: []*Turn{set[0].Turns[0], {Chart: chart.MustParse(tt.chart)}}}
			assert.False(t, Eligible(d))
		})
	}

	assert.True(t, Eligible(&Dialogue{Turns: []*Turn{{Chart: chart.MustParse(
		`{"mark":{"type":"rect"},"encoding":{"color":{"aggregate":"count","type":"quantitative"}}}`)}}}))
	assert.False(t, Eligible(&Dialogue{}))
	assert.False(t, Eligible(&Dialogue{Turns: []*Turn{{Utterance: "no chart"}}}))
	assert.Len(t, FilterEligible([]*Dialogue{set[0], {}, nil}), 1)
}

func TestLoadAndSave(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "b"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b", "part2.json"),
		[]byte(`[{"file":"second.csv","dialogues":[]}]`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.json"), []byte(referenceJSON), 0o644))

	got, err := Load(context.Background(), filepath.Join(dir, "**", "*.json"))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "cars.csv", got[0].File)
	assert.Equal(t, "second.csv", got[1].File)
	assert.True(t, got[1].Empty())

	out := filepath.Join(dir, "out", "saved.json")
	require.NoError(t, Save(out, got[:1]))
	again, err := LoadFile(out)
	require.NoError(t, err)
	require.Len(t, again, 1)
	assert.Equal(t, got[0].Turns[0].Utterance, again[0].Turns[0].Utterance)
}

func TestLoadKeepsMalformedCharts(t *testing.T) {
	const set = `[
  {"file": "a.csv", "dialogues": [
    {"utterance": "ok", "chart": {"mark": "bar", "encoding": {"x": {"field": "A", "type": "quantitative"}}}},
    {"utterance": "object transform", "chart": {"mark": "bar", "transform": {"filter": "datum.A > 1"}}}
  ]},
  {"file": "b.csv", "dialogues": [
    {"utterance": "array encoding", "analytic task": "Correlate", "chart": {"mark": "point", "encoding": []}}
  ]}
]`
	path := filepath.Join(t.TempDir(), "set.json")
	require.NoError(t, os.WriteFile(path, []byte(set), 0o644))

	got, err := Load(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Len(t, got[0].Turns, 2)
	require.NotNil(t, got[0].Turns[0].Chart)
	assert.Nil(t, got[0].Turns[1].Chart)
	assert.Equal(t, "object transform", got[0].Turns[1].Utterance)
	require.Len(t, got[1].Turns, 1)
	assert.Nil(t, got[1].Turns[0].Chart)
	assert.Equal(t, TaskCorrelate, got[1].Turns[0].AnalyticTask)
	assert.Nil(t, got[1].Turns[0].Predictions())

	var p Prediction
	require.NoError(t, json.Unmarshal([]byte(`{"analytic task": "Comparison", "chart": {"encoding": [1]}}`), &p))
	assert.Nil(t, p.Chart)
	assert.Equal(t, TaskComparison, p.AnalyticTask)
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := Load(context.Background(), filepath.Join(dir, "*.json"))
	assert.ErrorIs(t, err, ErrNoFiles)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.json"), []byte(`{"file":`), 0o644))
	_, err = Load(context.Background(), filepath.Join(dir, "*.json"))
	assert.ErrorContains(t, err, "bad.json")
}

func TestDescribeCSV(t *testing.T) {
	in := "\ufeffYear,Origin,Horsepower,Date\n" +
		"1970,USA,130,1970-01-01\n" +
		"1971,Japan,95.5,1971-01-01\n" +
		"1972,USA,,1972-01-01\n" +
		"1973,Europe,88,1973-01-01\n"
	cols, err := DescribeCSV(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, cols, 4)
	assert.Equal(t, Column{Name: "Year", Type: chart.TypeQuantitative, Samples: []string{"1970", "1971", "1972"}}, cols[0])
	assert.Equal(t, chart.TypeNominal, cols[1].Type)
	assert.Equal(t, []string{"USA", "Japan", "Europe"}, cols[1].Samples)
	assert.Equal(t, chart.TypeQuantitative, cols[2].Type)
	assert.Equal(t, chart.TypeTemporal, cols[3].Type)

	text := FormatColumns("cars.csv", cols[:2])
	assert.Equal(t, "Dataset: cars.csv\nColumns:\n"+
		"- Year (quantitative), e.g. 1970, 1971, 1972\n"+
		"- Origin (nominal), e.g. USA, Japan, Europe\n", text)

	_, err = DescribeCSV(strings.NewReader(""))
	assert.Error(t, err)
}

func TestDescribeCSVFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scores.csv")
	require.NoError(t, os.WriteFile(path, []byte("Name,Score\nann,1\n"), 0o644))
	text, err := DescribeCSVFile(path)
	require.NoError(t, err)
	assert.Contains(t, text, "Dataset: scores.csv")
	assert.Contains(t, text, "- Score (quantitative), e.g. 1")

	_, err = DescribeCSVFile(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}
