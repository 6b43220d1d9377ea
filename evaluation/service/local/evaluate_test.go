//
// Tencent is pleased to support the open source community by making trpc-vischart-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-vischart-go is licensed under the Apache License Version 2.0.
//
//

package local

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/trpc-vischart-go/chart"
	"trpc.group/trpc-go/trpc-vischart-go/evaluation/dialogset"
	"trpc.group/trpc-go/trpc-vischart-go/evaluation/evalresult"
	"trpc.group/trpc-go/trpc-vischart-go/evaluation/evalresult/inmemory"
	"trpc.group/trpc-go/trpc-vischart-go/evaluation/evaluator"
	"trpc.group/trpc-go/trpc-vischart-go/evaluation/evaluator/registry"
	"trpc.group/trpc-go/trpc-vischart-go/evaluation/service"
	"trpc.group/trpc-go/trpc-vischart-go/evaluation/status"
)

const (
	barJSON  = `{"mark":"bar","encoding":{"x":{"field":"Origin","type":"nominal"},"y":{"field":"Horsepower","type":"quantitative","aggregate":"mean"}}}`
	lineJSON = `{"mark":"line","encoding":{"x":{"field":"Year","type":"temporal"},"y":{"field":"Price","type":"quantitative"}}}`
)

func turn(task, spec string) *dialogset.Turn {
	return &dialogset.Turn{Utterance: "show " + task, AnalyticTask: task, Chart: chart.MustParse(spec)}
}

func references() []*dialogset.Dialogue {
	return []*dialogset.Dialogue{
		{File: "cars.csv", Turns: []*dialogset.Turn{
			turn(dialogset.TaskComparison, barJSON),
			turn(dialogset.TaskChangeOverTime, lineJSON),
		}},
		{File: "stocks.csv", Turns: []*dialogset.Turn{
			turn(dialogset.TaskChangeOverTime, lineJSON),
		}},
		{File: "skipped.csv", Turns: []*dialogset.Turn{
			turn(dialogset.TaskChangeOverTime, lineJSON),
		}},
	}
}

func fixedRunID(id string) service.Option {
	return service.WithRunIDSupplier(func(context.Context) string { return id })
}

func TestEvaluate(t *testing.T) {
	for _, parallel := range []bool{false, true} {
		name := "serial"
		if parallel {
			name = "parallel"
		}
		t.Run(name, func(t *testing.T) {
			store := inmemory.New()
			svc, err := New(
				service.WithResultManager(store),
				service.WithDialogueParallelEnabled(parallel),
				service.WithDialogueParallelism(2),
				fixedRunID("run-1"),
			)
			require.NoError(t, err)
			defer svc.Close()

			candidates := []*dialogset.Dialogue{
				{File: "cars.csv", Turns: []*dialogset.Turn{
					turn(dialogset.TaskComparison, barJSON),
					turn(dialogset.TaskComparison, barJSON),
				}},
				{File: "stocks.csv", Turns: []*dialogset.Turn{
					turn(dialogset.TaskChangeOverTime, lineJSON),
				}},
				{File: "skipped.csv"},
			}
			res, err := svc.Evaluate(context.Background(), &service.EvaluateRequest{
				References:    references(),
				Candidates:    candidates,
				ReferenceName: "ref.json",
				CandidateName: "cand.json",
			})
			require.NoError(t, err)
			assert.Equal(t, "run-1", res.RunID)
			assert.Equal(t, []string{
				evaluator.MetricChartAccuracy, evaluator.MetricRougeL,
				evaluator.MetricBLEU, evaluator.MetricAnalyticTask,
			}, res.Metrics)
			require.Len(t, res.Dialogues, 3)

			first := res.Dialogues[0]
			assert.Equal(t, "cars.csv", first.File)
			assert.False(t, first.AllRight)
			assert.Equal(t, 0.5, first.Accuracy)
			require.Len(t, first.Turns, 2)
			assert.True(t, first.Turns[0].Right)
			assert.True(t, first.Turns[0].TaskMatch)
			assert.False(t, first.Turns[1].Right)
			assert.False(t, first.Turns[1].TaskMatch)
			assert.Equal(t, "mark", first.Turns[1].Reason)
			assert.InDelta(t, 1.0, first.Turns[0].Score(evaluator.MetricRougeL), 1e-9)

			assert.True(t, res.Dialogues[1].AllRight)
			assert.True(t, res.Dialogues[2].Skipped)

			s := res.Summary
			assert.Equal(t, 2, s.Dialogues)
			assert.Equal(t, 1, s.SkippedDialogues)
			assert.Equal(t, 3, s.Turns)
			assert.Equal(t, 2, s.RightTurns)
			assert.InDelta(t, 2.0/3.0, s.TurnAccuracy, 1e-9)
			assert.Equal(t, 0.5, s.DialogueAccuracy)
			assert.Equal(t, 0.75, s.MeanDialogueAccuracy)
			assert.InDelta(t, 2.0/3.0, s.TaskAccuracy, 1e-9)

			stored, err := store.Get(context.Background(), "run-1")
			require.NoError(t, err)
			assert.Equal(t, s.RightTurns, stored.Summary.RightTurns)
		})
	}
}

func TestEvaluateMalformedCandidateChart(t *testing.T) {
	svc, err := New(service.WithDialogueParallelEnabled(false))
	require.NoError(t, err)
	defer svc.Close()

	var candidates []*dialogset.Dialogue
	require.NoError(t, json.Unmarshal([]byte(`[
  {"file": "cars.csv", "dialogues": [
    {"analytic task": "Comparison", "chart": `+barJSON+`},
    {"analytic task": "Change Over Time", "chart": {"mark": "line", "transform": {"filter": "datum.Year > 1"}}}
  ]},
  {"file": "stocks.csv", "dialogues": [
    {"analytic task": "Change Over Time", "chart": `+lineJSON+`}
  ]}
]`), &candidates))

	res, err := svc.Evaluate(context.Background(), &service.EvaluateRequest{
		References: references()[:2],
		Candidates: candidates,
	})
	require.NoError(t, err)
	require.Len(t, res.Dialogues, 2)
	first := res.Dialogues[0]
	assert.Empty(t, first.Error)
	require.Len(t, first.Turns, 2)
	assert.True(t, first.Turns[0].Right)
	assert.False(t, first.Turns[1].Right)
	assert.Equal(t, "missing prediction", first.Turns[1].Reason)
	assert.False(t, first.Turns[1].TaskMatch)
	assert.True(t, res.Dialogues[1].AllRight)
	assert.Equal(t, 3, res.Summary.Turns)
	assert.Equal(t, 2, res.Summary.RightTurns)
}

func TestEvaluateBestOfN(t *testing.T) {
	svc, err := New(service.WithDialogueParallelEnabled(false))
	require.NoError(t, err)
	defer svc.Close()

	candidates := []*dialogset.Dialogue{{Turns: []*dialogset.Turn{{
		Charts: []*dialogset.Prediction{
			{AnalyticTask: dialogset.TaskChangeOverTime, Chart: chart.MustParse(lineJSON)},
			{AnalyticTask: dialogset.TaskComparison, Chart: chart.MustParse(barJSON)},
		},
	}}}}
	res, err := svc.Evaluate(context.Background(), &service.EvaluateRequest{
		References: references()[:1],
		Candidates: candidates,
	})
	require.NoError(t, err)
	tr := res.Dialogues[0].Turns[0]
	assert.True(t, tr.Right)
	assert.True(t, tr.TaskMatch)
	assert.Equal(t, "bar", tr.Candidate.MarkType())
	assert.InDelta(t, 1.0, tr.Score(evaluator.MetricBLEU), 1e-9)
}

func TestEvaluateStepMode(t *testing.T) {
	var calls int
	assembler := func(raw json.RawMessage) (*dialogset.Prediction, error) {
		calls++
		if string(raw) == `"broken"` {
			return nil, errors.New("no chart")
		}
		return &dialogset.Prediction{AnalyticTask: dialogset.TaskComparison, Chart: chart.MustParse(barJSON)}, nil
	}
	svc, err := New(service.WithStepAssembler(assembler), service.WithDialogueParallelEnabled(false))
	require.NoError(t, err)
	defer svc.Close()

	refs := references()[:1]
	candidates := []*dialogset.Dialogue{{Turns: []*dialogset.Turn{
		{Steps: json.RawMessage(`{"Step 4":"bar"}`)},
		{Steps: json.RawMessage(`"broken"`)},
	}}}
	res, err := svc.Evaluate(context.Background(), &service.EvaluateRequest{References: refs, Candidates: candidates})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	turns := res.Dialogues[0].Turns
	assert.True(t, turns[0].Right)
	assert.False(t, turns[1].Right)
	assert.Contains(t, turns[1].Error, "assemble steps")
	assert.Equal(t, status.EvalStatusFailed, turns[1].Metrics[evaluator.MetricChartAccuracy].Status)
}

func TestEvaluateIsolatesDialogueFailures(t *testing.T) {
	svc, err := New(service.WithDialogueParallelism(4))
	require.NoError(t, err)
	defer svc.Close()

	candidates := []*dialogset.Dialogue{
		{Turns: []*dialogset.Turn{
			turn(dialogset.TaskComparison, barJSON),
			turn(dialogset.TaskChangeOverTime, lineJSON),
			turn(dialogset.TaskChangeOverTime, lineJSON),
		}},
		{Turns: []*dialogset.Turn{turn(dialogset.TaskChangeOverTime, lineJSON)}},
		nil,
		{Turns: []*dialogset.Turn{turn(dialogset.TaskChangeOverTime, lineJSON)}},
	}
	res, err := svc.Evaluate(context.Background(), &service.EvaluateRequest{
		References: references(),
		Candidates: candidates,
	})
	require.NoError(t, err)
	require.Len(t, res.Dialogues, 4)
	assert.Contains(t, res.Dialogues[0].Error, "candidate has 3 turns, reference has 2")
	assert.True(t, res.Dialogues[1].AllRight)
	assert.True(t, res.Dialogues[2].Skipped)
	assert.True(t, res.Dialogues[3].AllRight)
	assert.Equal(t, 1, res.Summary.FailedDialogues)
	assert.Equal(t, 2, res.Summary.Dialogues)
	assert.Equal(t, 1.0, res.Summary.TurnAccuracy)
}

type panicEvaluator struct{}

func (panicEvaluator) Name() string        { return "panic" }
func (panicEvaluator) Description() string { return "panics" }
func (panicEvaluator) Evaluate(context.Context, []*dialogset.Prediction, *dialogset.Turn,
	*evaluator.Metric) (*evaluator.EvaluateResult, error) {
	panic("boom")
}

func TestEvaluateRecoversPanics(t *testing.T) {
	reg := registry.New()
	require.NoError(t, reg.Register("panic", panicEvaluator{}))
	svc, err := New(service.WithRegistry(reg))
	require.NoError(t, err)
	defer svc.Close()

	res, err := svc.Evaluate(context.Background(), &service.EvaluateRequest{
		References: references()[:2],
		Candidates: references()[:2],
		Metrics:    []*evaluator.Metric{{Name: "panic"}},
	})
	require.NoError(t, err)
	for _, d := range res.Dialogues {
		assert.Contains(t, d.Error, "panic: boom")
	}
	assert.Equal(t, 2, res.Summary.FailedDialogues)
	assert.Equal(t, 0.0, res.Summary.TurnAccuracy)
}

func TestEvaluateCallbacks(t *testing.T) {
	callbacks := service.NewCallbacks()
	var mu sync.Mutex
	var seen []int
	callbacks.RegisterAfterDialogue("collect", func(ctx context.Context, args *service.AfterDialogueArgs) error {
		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, "run-cb", args.RunID)
		assert.Equal(t, 3, args.Total)
		assert.False(t, args.StartTime.IsZero())
		seen = append(seen, args.Result.Index)
		return nil
	})
	var runResult *evalresult.RunResult
	callbacks.RegisterAfterRun("capture", func(ctx context.Context, args *service.AfterRunArgs) error {
		runResult = args.Result
		assert.NoError(t, args.Error)
		assert.WithinDuration(t, time.Now(), args.StartTime, time.Minute)
		return nil
	})
	svc, err := New(service.WithCallbacks(callbacks), fixedRunID("run-cb"))
	require.NoError(t, err)
	defer svc.Close()

	res, err := svc.Evaluate(context.Background(), &service.EvaluateRequest{
		References: references(),
		Candidates: references(),
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []int{0, 1, 2}, seen)
	assert.Same(t, res, runResult)
	assert.Equal(t, 1.0, res.Summary.DialogueAccuracy)
}

func TestEvaluateAfterRunError(t *testing.T) {
	callbacks := service.NewCallbacks()
	callbacks.RegisterAfterRun("fail", func(ctx context.Context, args *service.AfterRunArgs) error {
		return errors.New("sink down")
	})
	svc, err := New(service.WithCallbacks(callbacks))
	require.NoError(t, err)
	defer svc.Close()

	res, err := svc.Evaluate(context.Background(), &service.EvaluateRequest{
		References: references()[:1],
		Candidates: references()[:1],
	})
	assert.Nil(t, res)
	assert.EqualError(t, err, "after run callback fail: sink down")
}

func TestEvaluatePerCallOptions(t *testing.T) {
	svc, err := New(fixedRunID("default"))
	require.NoError(t, err)
	defer svc.Close()

	req := &service.EvaluateRequest{References: references()[:1], Candidates: references()[:1]}
	res, err := svc.Evaluate(context.Background(), req, fixedRunID("override"),
		service.WithDialogueParallelEnabled(false))
	require.NoError(t, err)
	assert.Equal(t, "override", res.RunID)

	res, err = svc.Evaluate(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "default", res.RunID)

	_, err = svc.Evaluate(context.Background(), req, service.WithDialogueParallelism(0))
	assert.EqualError(t, err, "dialogue parallelism must be greater than 0")
}

func TestEvaluateValidation(t *testing.T) {
	svc, err := New()
	require.NoError(t, err)
	defer svc.Close()

	_, err = svc.Evaluate(context.Background(), nil)
	assert.ErrorContains(t, err, "evaluate request is nil")

	_, err = svc.Evaluate(context.Background(), &service.EvaluateRequest{})
	assert.ErrorContains(t, err, "reference dialogues are empty")

	_, err = svc.Evaluate(context.Background(), &service.EvaluateRequest{
		References: references(),
		Metrics:    []*evaluator.Metric{{Name: "unknown"}},
	})
	assert.ErrorIs(t, err, registry.ErrNotFound)
}

func TestNewValidatesOptions(t *testing.T) {
	_, err := New(service.WithRegistry(nil))
	assert.EqualError(t, err, "registry is nil")

	_, err = New(service.WithRunIDSupplier(nil))
	assert.EqualError(t, err, "run id supplier is nil")

	_, err = New(service.WithDialogueParallelism(-1))
	assert.EqualError(t, err, "dialogue parallelism must be greater than 0")
}
