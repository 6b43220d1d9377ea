//
// Tencent is pleased to support the open source community by making trpc-vischart-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-vischart-go is licensed under the Apache License Version 2.0.
//
//

package fsutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteReadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "out.json")
	in := map[string]any{"filter": "datum.a > 1 && datum.b < 2", "name": "年份"}
	require.NoError(t, WriteJSON(path, in))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "datum.a > 1 && datum.b < 2")
	assert.Contains(t, string(raw), "年份")
	assert.Equal(t, byte('\n'), raw[len(raw)-1])

	var out map[string]any
	require.NoError(t, ReadJSON(path, &out))
	assert.Equal(t, in, out)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestReadJSONErrors(t *testing.T) {
	dir := t.TempDir()
	var v any
	assert.True(t, os.IsNotExist(ReadJSON(filepath.Join(dir, "missing.json"), &v)))

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{"), 0o644))
	err := ReadJSON(bad, &v)
	assert.ErrorContains(t, err, "decode")
}
