//
// Tencent is pleased to support the open source community by making trpc-vischart-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-vischart-go is licensed under the Apache License Version 2.0.
//
//

package similarity

import (
	"math"
	"regexp"
	"strings"
	"unicode"
)

const maxNgramOrder = 4

var (
	// Unescaped one after another, so "&amp;lt;" ends up as "<".
	htmlEntities = [][2]string{{"&quot;", `"`}, {"&amp;", "&"}, {"&lt;", "<"}, {"&gt;", ">"}}

	// The 13a (mteval-v13a) tokenization rules.
	tokenRules = []struct {
		re   *regexp.Regexp
		repl string
	}{
		{regexp.MustCompile("([{-~\\[-` -&(-+:-@/])"), " ${1} "},
		{regexp.MustCompile(`([^0-9])([\.,])`), "${1} ${2} "},
		{regexp.MustCompile(`([\.,])([^0-9])`), " ${1} ${2}"},
		{regexp.MustCompile(`([0-9])(-)`), "${1} ${2} "},
	}
)

// Tokenize13a splits a line the way the mteval 13a tokenizer does.
func Tokenize13a(line string) []string {
	line = strings.TrimRightFunc(line, isTrailingSpace)
	line = strings.ReplaceAll(line, "<skipped>", "")
	line = strings.ReplaceAll(line, "-\n", "")
	line = strings.ReplaceAll(line, "\n", " ")
	if strings.Contains(line, "&") {
		for _, e := range htmlEntities {
			line = strings.ReplaceAll(line, e[0], e[1])
		}
	}
	line = " " + line + " "
	for _, rule := range tokenRules {
		line = rule.re.ReplaceAllString(line, rule.repl)
	}
	return strings.Fields(line)
}

// isTrailingSpace also treats the file, group, record and unit separators as space.
func isTrailingSpace(r rune) bool {
	return unicode.IsSpace(r) || (r >= 0x1c && r <= 0x1f)
}

// BLEU returns sentence-level BLEU of candidate against a single reference,
// scaled to [0, 1]: 13a tokenization, n-grams up to 4, exponential
// smoothing of empty precisions, effective order and the brevity penalty.
func BLEU(candidate, reference string) float64 {
	hyp := Tokenize13a(candidate)
	ref := Tokenize13a(reference)
	var correct, total [maxNgramOrder]int
	for n := 1; n <= maxNgramOrder; n++ {
		hypCounts := ngramCounts(hyp, n)
		refCounts := ngramCounts(ref, n)
		for gram, count := range hypCounts {
			total[n-1] += count
			if rc := refCounts[gram]; rc > 0 {
				correct[n-1] += min(count, rc)
			}
		}
	}
	return bleuScore(correct, total, len(hyp), len(ref)) / 100
}

func ngramCounts(tokens []string, n int) map[string]int {
	counts := make(map[string]int)
	for i := 0; i+n <= len(tokens); i++ {
		counts[strings.Join(tokens[i:i+n], " ")]++
	}
	return counts
}

// bleuScore returns the score on the conventional 0-100 scale.
func bleuScore(correct, total [maxNgramOrder]int, sysLen, refLen int) float64 {
	bp := 1.0
	if sysLen < refLen {
		bp = 0
		if sysLen > 0 {
			bp = math.Exp(1 - float64(refLen)/float64(sysLen))
		}
	}
	anyCorrect := false
	for _, c := range correct {
		if c > 0 {
			anyCorrect = true
			break
		}
	}
	if !anyCorrect {
		return 0
	}
	var precisions [maxNgramOrder]float64
	smooth := 1.0
	effOrder := maxNgramOrder
	for n := 1; n <= maxNgramOrder; n++ {
		if total[n-1] == 0 {
			break
		}
		effOrder = n
		if correct[n-1] == 0 {
			smooth *= 2
			precisions[n-1] = 100 / (smooth * float64(total[n-1]))
		} else {
			precisions[n-1] = 100 * float64(correct[n-1]) / float64(total[n-1])
		}
	}
	sum := 0.0
	for _, p := range precisions[:effOrder] {
		sum += safeLog(p)
	}
	return bp * math.Exp(sum/float64(effOrder))
}

func safeLog(x float64) float64 {
	if x == 0 {
		return -9999999999
	}
	return math.Log(x)
}
