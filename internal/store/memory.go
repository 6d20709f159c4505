package store

import (
	"context"
	"hash/fnv"
	"sync"
)

const shardCount = 32

type shard struct {
	mu sync.RWMutex
	m  map[string]string
}

// Memory is a process-lifetime KV split into independently locked shards.
type Memory struct {
	shards [shardCount]*shard
}

func NewMemory() *Memory {
	m := &Memory{}
	for i := range m.shards {
		m.shards[i] = &shard{m: make(map[string]string)}
	}
	return m
}

func (m *Memory) shardFor(key string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return m.shards[h.Sum32()%shardCount]
}

func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	s := m.shardFor(key)
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.m[key]
	return v, ok, nil
}

func (m *Memory) Set(_ context.Context, key, value string) error {
	s := m.shardFor(key)
	s.mu.Lock()
	s.m[key] = value
	s.mu.Unlock()
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	s := m.shardFor(key)
	s.mu.Lock()
	delete(s.m, key)
	s.mu.Unlock()
	return nil
}
