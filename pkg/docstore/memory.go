package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Memory is an in-process Store used by tests and local development.
// It reproduces the same semantics as the Postgres store: per-document
// atomicity, shallow merge, string-field equality queries.
type Memory struct {
	mu   sync.RWMutex
	cols map[string]map[string]json.RawMessage
	seq  map[string][]string // insertion order per collection
}

// NewMemory creates an empty in-memory document store.
func NewMemory() *Memory {
	return &Memory{
		cols: make(map[string]map[string]json.RawMessage),
		seq:  make(map[string][]string),
	}
}

func (m *Memory) Get(_ context.Context, collection, id string) (json.RawMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.cols[collection][id]
	if !ok {
		return nil, ErrNotFound
	}
	return doc, nil
}

func (m *Memory) Query(_ context.Context, collection, field, value string) ([]json.RawMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	col := m.cols[collection]
	var out []json.RawMessage
	for _, id := range m.seq[collection] {
		raw, ok := col[id]
		if !ok {
			continue
		}
		var fields map[string]any
		if err := json.Unmarshal(raw, &fields); err != nil {
			continue
		}
		if v, ok := fields[field]; ok && fmt.Sprint(v) == value {
			out = append(out, raw)
		}
	}
	return out, nil
}

func (m *Memory) Create(_ context.Context, collection, id string, doc any) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cols[collection] == nil {
		m.cols[collection] = make(map[string]json.RawMessage)
	}
	if _, ok := m.cols[collection][id]; ok {
		return ErrExists
	}
	m.cols[collection][id] = body
	m.seq[collection] = append(m.seq[collection], id)
	return nil
}

func (m *Memory) Merge(_ context.Context, collection, id string, patch map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.cols[collection][id]
	if !ok {
		return ErrNotFound
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return err
	}
	for k, v := range patch {
		body, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("marshal patch field %s: %w", k, err)
		}
		fields[k] = body
	}
	merged, err := json.Marshal(fields)
	if err != nil {
		return err
	}
	m.cols[collection][id] = merged
	return nil
}

func (m *Memory) Delete(_ context.Context, collection, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.cols[collection], id)
	seq := m.seq[collection]
	for i, existing := range seq {
		if existing == id {
			m.seq[collection] = append(seq[:i], seq[i+1:]...)
			break
		}
	}
	return nil
}
