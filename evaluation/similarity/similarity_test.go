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
	"testing"

	"github.com/stretchr/testify/assert"

	"trpc.group/trpc-go/trpc-vischart-go/chart"
)

func TestSerialize(t *testing.T) {
	spec := chart.MustParse(`{"mark":"bar","encoding":{"x":{"field":"TYPE","sort":"-y"},"y":{"aggregate":"count"}},
		"transform":[{"filter":"datum.HAAT > 500 && datum['Band'] == 'FM'"}]}`)
	assert.Equal(t, "bar TYPE none none count none none none none HAAT>500&&datum['Band']=='FM' y desc", Serialize(spec))
}

func TestSerializeDefaults(t *testing.T) {
	spec := chart.MustParse(`{"mark":"bar","encoding":{"x":{"field":"TYPE"},"y":{"aggregate":"count"}}}`)
	assert.Equal(t, "bar TYPE none none count none none none none none none none none", Serialize(spec))
}

func TestSerializeBinAndSortVariants(t *testing.T) {
	spec := chart.MustParse(`{"mark":"rect","encoding":{
		"x":{"field":"Year","bin":{"maxbins":20}},
		"y":{"field":"Rating","bin":true,"sort":"-x"},
		"color":{"aggregate":"count","bin":true},
		"theta":{"field":"Share","bin":true}}}`)
	assert.Equal(t, "rect Year bin Rating bin none count Share bin none none x desc", Serialize(spec))

	spec = chart.MustParse(`{"mark":"bar","encoding":{"x":{"field":"A","sort":"ascending"},"y":{"field":"B"}}}`)
	assert.Equal(t, "bar A none B none none none none none none none", Serialize(spec))
}

func TestSerializeIsKeyOrderIndependent(t *testing.T) {
	a := chart.MustParse(`{"mark":"line","encoding":{"x":{"field":"Date","type":"temporal"},"y":{"aggregate":"mean","field":"Price"}}}`)
	b := chart.MustParse(`{"encoding":{"y":{"field":"Price","aggregate":"mean"},"x":{"type":"temporal","field":"Date"}},"mark":{"type":"line"}}`)
	assert.Equal(t, Serialize(a), Serialize(b))
}

func TestSerializeNil(t *testing.T) {
	assert.Equal(t, "", Serialize(nil))
	assert.Equal(t, "none none none none none none none none none none none none none",
		Serialize(chart.MustParse(`{}`)))
}

func TestRougeL(t *testing.T) {
	s := "bar TYPE none none count"
	assert.Equal(t, 1.0, RougeL(s, s))
	assert.Equal(t, 0.0, RougeL(s, ""))
	assert.Equal(t, 0.0, RougeL("", s))
	assert.Equal(t, 0.0, RougeL("abc", "xyz"))
	assert.InDelta(t, 0.75, RougeL("abcd", "abdc"), 1e-12)
	assert.InDelta(t, RougeL("abcde", "ace"), RougeL("ace", "abcde"), 1e-12)
}

func TestRougeLCountsRunes(t *testing.T) {
	assert.Equal(t, 1.0, RougeL("年份", "年份"))
	assert.InDelta(t, 2.0/3.0, RougeL("年", "年份"), 1e-12)
}

func TestTokenize13a(t *testing.T) {
	got := Tokenize13a("bar Firm_Name none Year>=2020 a.b 1.5 3-4 &amp;lt;")
	assert.Equal(t, []string{"bar", "Firm", "_", "Name", "none", "Year", ">", "=", "2020",
		"a", ".", "b", "1.5", "3", "-", "4", "<"}, got)
	assert.Empty(t, Tokenize13a("   "))
}

func TestBLEU(t *testing.T) {
	c := "bar TYPE none none count none none none none none none none none"
	r := "bar TYPE none none sum none none none none none none none none"
	assert.InDelta(t, 0.7611606003349888, BLEU(c, r), 1e-9)
	assert.InDelta(t, 1.0, BLEU(r, r), 1e-9)
	assert.InDelta(t, 0.3678794411714425, BLEU("the cat sat", "the cat sat on the mat"), 1e-9)
	assert.InDelta(t, 0.5, BLEU("a b", "a c"), 1e-9)
	assert.Equal(t, 0.0, BLEU("x y z", "a b c"))
	assert.Equal(t, 0.0, BLEU("", "a b c"))
}

func TestScore(t *testing.T) {
	c := chart.MustParse(`{"mark":"bar","encoding":{"x":{"field":"TYPE"},"y":{"aggregate":"count"}}}`)
	r := chart.MustParse(`{"mark":"bar","encoding":{"x":{"field":"TYPE"},"y":{"aggregate":"sum"}}}`)
	got := Score(c, r)
	assert.InDelta(t, 0.9523809523809523, got.RougeL, 1e-9)
	assert.InDelta(t, 0.7611606003349888, got.BLEU, 1e-9)

	same := Score(c, c)
	assert.Equal(t, 1.0, same.RougeL)
	assert.InDelta(t, 1.0, same.BLEU, 1e-9)
}

var sinkFloat float64

func BenchmarkRougeL(b *testing.B) {
	c := "point Year none Rating none none none none none Year>1990&&Rating>4 none none"
	r := "point Year none Rating none none none none none Rating>4&&Year>1990 none none"
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		sinkFloat = RougeL(c, r)
	}
}

func BenchmarkBLEU(b *testing.B) {
	c := "point Year none Rating none none none none none Year>1990&&Rating>4 none none"
	r := "point Year none Rating none none none none none Rating>4&&Year>1990 none none"
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		sinkFloat = BLEU(c, r)
	}
}
