//
// Tencent is pleased to support the open source community by making trpc-vischart-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-vischart-go is licensed under the Apache License Version 2.0.
//
//

package textgen

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/spaolacci/murmur3"

	"trpc.group/trpc-go/trpc-vischart-go/internal/fsutil"
	"trpc.group/trpc-go/trpc-vischart-go/model"
)

// CacheEntry is one cached model output.
type CacheEntry struct {
	// Key is the cache lookup key.
	Key string `json:"key"`
	// Model is the model that produced the output.
	Model string `json:"model,omitempty"`
	// CreatedAt is the creation time in RFC3339Nano format.
	CreatedAt string `json:"created_at,omitempty"`
	// Output is the cleaned model output.
	Output string `json:"output"`
}

// Cache stores model outputs in memory by key.
type Cache struct {
	mu    sync.RWMutex
	byKey map[string]CacheEntry
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{byKey: make(map[string]CacheEntry)}
}

// LoadCache reads a cache file written by Save. A missing file yields an empty cache.
func LoadCache(path string) (*Cache, error) {
	c := NewCache()
	var entries []CacheEntry
	if err := fsutil.ReadJSON(path, &entries); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return c, nil
		}
		return nil, fmt.Errorf("load cache: %w", err)
	}
	for _, e := range entries {
		if e.Key != "" {
			c.byKey[e.Key] = e
		}
	}
	return c, nil
}

// CacheKey hashes the model name, the JSON mode and the messages.
func CacheKey(modelName string, jsonMode bool, messages []model.Message) string {
	h := murmur3.New128()
	write := func(s string) {
		_, _ = h.Write([]byte(strconv.Itoa(len(s))))
		_, _ = h.Write([]byte{':'})
		_, _ = h.Write([]byte(s))
	}
	write(modelName)
	write(strconv.FormatBool(jsonMode))
	for _, m := range messages {
		write(m.Role.String())
		write(m.Content)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns the entry for key if present.
func (c *Cache) Get(key string) (CacheEntry, bool) {
	if c == nil {
		return CacheEntry{}, false
	}
	c.mu.RLock()
	entry, ok := c.byKey[key]
	c.mu.RUnlock()
	return entry, ok
}

// Put stores entry.
func (c *Cache) Put(entry CacheEntry) error {
	if c == nil {
		return errors.New("cache is nil")
	}
	if entry.Key == "" {
		return errors.New("cache entry key is empty")
	}
	if entry.CreatedAt == "" {
		entry.CreatedAt = time.Now().UTC().Format(time.RFC3339Nano)
	}
	c.mu.Lock()
	c.byKey[entry.Key] = entry
	c.mu.Unlock()
	return nil
}

// Len returns the number of entries.
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.byKey)
}

// Save writes every entry to path ordered by key.
func (c *Cache) Save(path string) error {
	if c == nil {
		return errors.New("cache is nil")
	}
	c.mu.RLock()
	entries := make([]CacheEntry, 0, len(c.byKey))
	for _, e := range c.byKey {
		entries = append(entries, e)
	}
	c.mu.RUnlock()
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return fsutil.WriteJSON(path, entries)
}
