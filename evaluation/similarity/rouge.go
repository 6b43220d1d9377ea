//
// Tencent is pleased to support the open source community by making trpc-vischart-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-vischart-go is licensed under the Apache License Version 2.0.
//
//

package similarity

// RougeL returns the F1 of longest-common-subsequence recall (against a)
// and precision (against b), computed over characters. It is 0 when either
// string is empty or they share no character.
func RougeL(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 || len(rb) == 0 {
		return 0
	}
	lcs := lcsLength(ra, rb)
	if lcs == 0 {
		return 0
	}
	recall := float64(lcs) / float64(len(ra))
	precision := float64(lcs) / float64(len(rb))
	return 2 * recall * precision / (recall + precision)
}

// lcsLength keeps two rows of the quadratic table.
func lcsLength(a, b []rune) int {
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			switch {
			case a[i-1] == b[j-1]:
				curr[j] = prev[j-1] + 1
			case prev[j] >= curr[j-1]:
				curr[j] = prev[j]
			default:
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
