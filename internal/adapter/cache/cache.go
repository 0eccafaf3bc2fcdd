// Package cache stores raw FIRMS payloads so repeated queries for the same
// window skip the upstream call.
package cache

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
)

// Memory is an in-process payload cache.
type Memory struct {
	lru *LRU[[]byte]
}

// NewMemory creates a payload cache of at most size entries, each valid for ttl.
func NewMemory(size int, ttl time.Duration, clock clockwork.Clock) *Memory {
	return &Memory{lru: NewLRU[[]byte](size, ttl, clock)}
}

// Get returns the payload stored under key.
func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	payload, ok := m.lru.Get(key)
	return payload, ok, nil
}

// Set stores payload under key.
func (m *Memory) Set(_ context.Context, key string, payload []byte) error {
	m.lru.Put(key, payload)
	return nil
}
