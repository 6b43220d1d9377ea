//
// Tencent is pleased to support the open source community by making trpc-vischart-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-vischart-go is licensed under the Apache License Version 2.0.
//
//

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/trpc-vischart-go/evaluation/dialogset"
	"trpc.group/trpc-go/trpc-vischart-go/evaluation/evalresult"
	"trpc.group/trpc-go/trpc-vischart-go/internal/fsutil"
)

const barChart = `{"mark": "bar", "encoding": {
  "x": {"field": "Origin", "type": "nominal"},
  "y": {"field": "Horsepower", "type": "quantitative", "aggregate": "mean"}}}`

const swappedBarChart = `{"mark": {"type": "bar"}, "encoding": {
  "y": {"field": "Origin", "type": "nominal"},
  "x": {"field": "Horsepower", "type": "quantitative", "aggregate": "mean"}}}`

const lineChart = `{"mark": "line", "encoding": {
  "x": {"field": "Year", "type": "temporal"},
  "y": {"field": "Horsepower", "type": "quantitative"}}}`

const textChart = `{"mark": "text", "encoding": {"text": {"field": "Name", "type": "nominal"}}}`

var referenceSet = fmt.Sprintf(`[
  {"file": "cars.csv", "dialogues": [
    {"utterance": "Average horsepower per origin.", "analytic task": "Compute Derived Value", "chart": %s},
    {"utterance": "Now over time.", "analytic task": "Change Over Time", "chart": %s}
  ]},
  {"file": "names.csv", "dialogues": [
    {"utterance": "List the names.", "analytic task": "Retrieve Value", "chart": %s}
  ]}
]`, barChart, lineChart, textChart)

var candidateSet = fmt.Sprintf(`[
  {"file": "cars.csv", "dialogues": [
    {"utterance": "Average horsepower per origin.", "analytic task": "Compute Derived Value", "chart": %s},
    {"utterance": "Now over time.", "analytic task": "Comparison", "chart": %s}
  ]},
  {"file": "names.csv", "dialogues": []}
]`, swappedBarChart, barChart)

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &out
	err := app.RunContext(context.Background(), append([]string{"vischart"}, args...))
	return out.String(), err
}

func TestEvaluateCommand(t *testing.T) {
	dir := t.TempDir()
	ref := writeFile(t, filepath.Join(dir, "reference.json"), referenceSet)
	cand := writeFile(t, filepath.Join(dir, "candidate.json"), candidateSet)
	resultPath := filepath.Join(dir, "out", "run.json")
	xlsxPath := filepath.Join(dir, "out", "run.xlsx")

	out, err := run(t, "evaluate", "-r", ref, "-i", cand, "-o", resultPath, "--xlsx", xlsxPath, "--serial")
	require.NoError(t, err)
	assert.Contains(t, out, "dialogues: 1 evaluated, 1 skipped, 0 failed")
	assert.Contains(t, out, "turn accuracy:          0.5000 (1/2)")
	assert.Contains(t, out, "task accuracy:          0.5000 (1/2)")
	assert.Contains(t, out, "Change Over Time")

	var got evalresult.RunResult
	require.NoError(t, fsutil.ReadJSON(resultPath, &got))
	require.Len(t, got.Dialogues, 2)
	require.Len(t, got.Dialogues[0].Turns, 2)
	assert.True(t, got.Dialogues[0].Turns[0].Right)
	assert.Equal(t, "axis_swap", got.Dialogues[0].Turns[0].Reason)
	assert.False(t, got.Dialogues[0].Turns[1].Right)
	assert.Equal(t, "mark", got.Dialogues[0].Turns[1].Reason)
	assert.True(t, got.Dialogues[1].Skipped)
	assert.FileExists(t, xlsxPath)
}

func TestEvaluateCommandErrors(t *testing.T) {
	dir := t.TempDir()
	ref := writeFile(t, filepath.Join(dir, "reference.json"), referenceSet)

	_, err := run(t, "evaluate", "-r", ref)
	require.Error(t, err)

	_, err = run(t, "evaluate", "-r", ref, "-i", filepath.Join(dir, "missing", "*.json"))
	require.Error(t, err)

	cand := writeFile(t, filepath.Join(dir, "candidate.json"), candidateSet)
	_, err = run(t, "evaluate", "-r", ref, "-i", cand, "--metric", "no_such_metric")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no_such_metric")
}

func TestStoredRuns(t *testing.T) {
	dir := t.TempDir()
	ref := writeFile(t, filepath.Join(dir, "reference.json"), referenceSet)
	cand := writeFile(t, filepath.Join(dir, "candidate.json"), candidateSet)
	cfg := writeFile(t, filepath.Join(dir, "vischart.yaml"), fmt.Sprintf(`log_level: warn
store:
  backend: sqlite
  dsn: %s
`, filepath.Join(dir, "runs.db")))

	out, err := run(t, "-c", cfg, "evaluate", "-r", ref, "-i", cand)
	require.NoError(t, err)
	runID := strings.TrimPrefix(strings.SplitN(out, "\n", 2)[0], "run ")
	require.NotEmpty(t, runID)

	out, err = run(t, "-c", cfg, "runs")
	require.NoError(t, err)
	assert.Equal(t, runID+"\n", out)

	xlsxPath := filepath.Join(dir, "stored.xlsx")
	_, err = run(t, "-c", cfg, "export", "--run-id", runID, "-o", xlsxPath)
	require.NoError(t, err)
	assert.FileExists(t, xlsxPath)

	_, err = run(t, "-c", cfg, "export", "--run-id", "missing", "-o", xlsxPath)
	require.ErrorIs(t, err, evalresult.ErrNotFound)
}

func TestExportCommand(t *testing.T) {
	dir := t.TempDir()
	ref := writeFile(t, filepath.Join(dir, "reference.json"), referenceSet)
	cand := writeFile(t, filepath.Join(dir, "candidate.json"), candidateSet)
	resultPath := filepath.Join(dir, "run.json")
	_, err := run(t, "evaluate", "-r", ref, "-i", cand, "-o", resultPath)
	require.NoError(t, err)

	xlsxPath := filepath.Join(dir, "export", "run.xlsx")
	out, err := run(t, "export", "--result", resultPath, "-o", xlsxPath)
	require.NoError(t, err)
	assert.Contains(t, out, "exported run")
	assert.FileExists(t, xlsxPath)

	_, err = run(t, "export", "-o", xlsxPath)
	require.EqualError(t, err, "one of --result or --run-id is required")
	_, err = run(t, "export", "--result", resultPath, "--run-id", "x", "-o", xlsxPath)
	require.EqualError(t, err, "--result and --run-id are mutually exclusive")
}

func TestFilterCommand(t *testing.T) {
	dir := t.TempDir()
	ref := writeFile(t, filepath.Join(dir, "reference.json"), referenceSet)
	outPath := filepath.Join(dir, "filtered.json")

	out, err := run(t, "filter", "-i", ref, "-o", outPath)
	require.NoError(t, err)
	assert.Equal(t, "kept 1 of 2 dialogue(s)\n", out)

	kept, err := dialogset.LoadFile(outPath)
	require.NoError(t, err)
	require.Len(t, kept, 1)
	assert.Equal(t, "cars.csv", kept[0].File)
}

func TestNormalizeCommand(t *testing.T) {
	a, err := run(t, "normalize", "datum.b > 1 && datum.a == 'x'")
	require.NoError(t, err)
	b, err := run(t, "normalize", "datum.a === 'x' && datum.b > 1")
	require.NoError(t, err)
	assert.NotEmpty(t, strings.TrimSpace(a))
	assert.Equal(t, a, b)

	_, err = run(t, "normalize")
	require.EqualError(t, err, "filter expression is empty")
	_, err = run(t, "normalize", "datum.a >")
	require.Error(t, err)
}

func TestCompareCommand(t *testing.T) {
	dir := t.TempDir()
	bar := writeFile(t, filepath.Join(dir, "bar.json"), barChart)
	swapped := writeFile(t, filepath.Join(dir, "swapped.json"), swappedBarChart)
	line := writeFile(t, filepath.Join(dir, "line.json"), lineChart)

	out, err := run(t, "compare", swapped, bar)
	require.NoError(t, err)
	assert.Contains(t, out, "equivalent: true\nreason: axis_swap\n")

	out, err = run(t, "compare", line, bar)
	require.NoError(t, err)
	assert.Contains(t, out, "equivalent: false\nreason: mark\n")
	assert.Contains(t, out, "rouge-l:")

	_, err = run(t, "compare", bar)
	require.Error(t, err)
	_, err = run(t, "compare", filepath.Join(dir, "missing.json"), bar)
	require.Error(t, err)
}

func chatCompletion(t *testing.T, content string) []byte {
	t.Helper()
	body := map[string]any{
		"id":      "c1",
		"object":  "chat.completion",
		"created": 1,
		"model":   "gpt-test",
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": content},
		}},
		"usage": map[string]any{"prompt_tokens": 10, "completion_tokens": 10, "total_tokens": 20},
	}
	b, err := json.Marshal(body)
	require.NoError(t, err)
	return b
}

func TestGenerateCommand(t *testing.T) {
	answer := fmt.Sprintf(`{"analytic task": "Compute Derived Value", "utterance": "x", "chart": %s}`, barChart)
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(chatCompletion(t, "```json\n"+answer+"\n```"))
	}))
	defer srv.Close()
	t.Setenv("VISCHART_TEST_KEY", "test-key")

	dir := t.TempDir()
	ref := writeFile(t, filepath.Join(dir, "reference.json"), referenceSet)
	cachePath := filepath.Join(dir, "cache.json")
	cfg := writeFile(t, filepath.Join(dir, "vischart.yaml"), fmt.Sprintf(`model:
  name: gpt-test
  base_url: %s/
  api_key_env: VISCHART_TEST_KEY
generation:
  parallelism: 2
  retries: 1
  cache_path: %s
  data_dir: %s
`, srv.URL, cachePath, dir))
	outPath := filepath.Join(dir, "out", "candidate.json")

	out, err := run(t, "-c", cfg, "generate", "-i", ref, "-o", outPath)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote 2 dialogue(s)")
	assert.EqualValues(t, 2, calls.Load())
	assert.FileExists(t, cachePath)

	got, err := dialogset.LoadFile(outPath)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Len(t, got[0].Turns, 2)
	assert.Equal(t, "Average horsepower per origin.", got[0].Turns[0].Utterance)
	require.NotNil(t, got[0].Turns[0].Chart)
	assert.Equal(t, "bar", string(got[0].Turns[0].Chart.MarkType()))
	assert.True(t, got[1].Empty())

	_, err = run(t, "-c", cfg, "generate", "-i", ref, "-o", outPath)
	require.NoError(t, err)
	assert.EqualValues(t, 2, calls.Load())

	_, err = run(t, "-c", cfg, "generate", "-i", ref, "-o", outPath, "--mode", "sketch")
	require.Error(t, err)
}

func reasoningPath(mark string) string {
	answers := []string{"Comparison", `{"x": ["Origin"], "y": ["Horsepower"]}`, mark,
		"x: Origin, y: Horsepower", `{"aggregate": "mean"}`, "None", "None"}
	var b strings.Builder
	for i, a := range answers {
		fmt.Fprintf(&b, "<step %d> <answer> %s </answer> </step %d>\n", i+1, a, i+1)
	}
	return b.String()
}

func modelConfig(t *testing.T, dir, url string) string {
	t.Helper()
	t.Setenv("VISCHART_TEST_KEY", "test-key")
	return writeFile(t, filepath.Join(dir, "vischart.yaml"), fmt.Sprintf(`model:
  name: gpt-test
  base_url: %s/
  api_key_env: VISCHART_TEST_KEY
generation:
  parallelism: 2
  retries: 1
`, url))
}

func TestPreferenceCommand(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.InDelta(t, 0.7, req["temperature"], 1e-9)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(chatCompletion(t, reasoningPath("line")))
	}))
	defer srv.Close()

	dir := t.TempDir()
	cfg := modelConfig(t, dir, srv.URL)
	records, err := json.Marshal([]map[string]string{
		{"instruction": "Average horsepower per origin.", "output": reasoningPath("bar")},
		{"instruction": "Same chart as a line.", "output": reasoningPath("line")},
	})
	require.NoError(t, err)
	in := writeFile(t, filepath.Join(dir, "steps.json"), string(records))
	outPath := filepath.Join(dir, "pairs.json")

	out, err := run(t, "-c", cfg, "preference", "-i", in, "-o", outPath)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote 1 pair(s) from 2 record(s)")

	var pairs []map[string]any
	require.NoError(t, fsutil.ReadJSON(outPath, &pairs))
	require.Len(t, pairs, 1)
	assert.Equal(t, "Average horsepower per origin.", pairs[0]["prompt"])
	assert.EqualValues(t, 3, pairs[0]["step"])
	assert.Contains(t, pairs[0]["chosen"], "<answer> bar </answer>")
	assert.Contains(t, pairs[0]["rejected"], "<answer> line </answer>")
	assert.True(t, strings.HasSuffix(pairs[0]["initial_reason_steps"].(string), "<step 3>"))
}

func TestMutateCommand(t *testing.T) {
	mutated := `{"mark": "bar", "encoding": {
  "x": {"field": "Origin", "type": "nominal"},
  "y": {"field": "Horsepower", "type": "quantitative", "aggregate": "mean"}},
  "transform": [{"filter": "datum.Cylinders >= 6"}]}`
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(chatCompletion(t, mutated))
	}))
	defer srv.Close()

	dir := t.TempDir()
	cfg := modelConfig(t, dir, srv.URL)
	in := writeFile(t, filepath.Join(dir, "comparison.json"), fmt.Sprintf(`[
  {"file": "cars.csv", "mark": "bar", "vega-lite": %s},
  {"file": "cars.csv", "mark": "bar", "vega-lite": null}
]`, barChart))
	outPath := filepath.Join(dir, "comparison-filter.json")

	out, err := run(t, "-c", cfg, "mutate", "--kind", "filter", "--seed", "3", "-i", in, "-o", outPath)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote 2 record(s)")
	assert.EqualValues(t, 1, calls.Load())

	var records []map[string]any
	require.NoError(t, fsutil.ReadJSON(outPath, &records))
	require.Len(t, records, 2)
	assert.Equal(t, "bar", records[0]["mark"])
	spec := records[0]["vega-lite"].(map[string]any)
	assert.Equal(t, []any{map[string]any{"filter": "datum.Cylinders >= 6"}}, spec["transform"])
	assert.Nil(t, records[1]["vega-lite"])

	_, err = run(t, "-c", cfg, "mutate", "--kind", "color", "-i", in, "-o", outPath)
	assert.EqualError(t, err, "kind must be filter or sort")
}
