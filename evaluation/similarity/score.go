//
// Tencent is pleased to support the open source community by making trpc-vischart-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-vischart-go is licensed under the Apache License Version 2.0.
//
//

package similarity

import "trpc.group/trpc-go/trpc-vischart-go/chart"

// Scores holds both similarity measures for one chart pair.
type Scores struct {
	RougeL float64 `json:"rouge_l"`
	BLEU   float64 `json:"bleu"`
}

// Score serializes both charts and computes ROUGE-L and BLEU with the
// candidate as the hypothesis.
func Score(candidate, reference *chart.Spec) Scores {
	cand := Serialize(candidate)
	ref := Serialize(reference)
	return Scores{
		RougeL: RougeL(cand, ref),
		BLEU:   BLEU(cand, ref),
	}
}
