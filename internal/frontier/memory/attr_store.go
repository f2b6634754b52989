// Package memory provides in-memory frontier store implementations for
// development and testing.
package memory

import (
	"context"
	"sync"

	"github.com/JakeFAU/crawl-frontier/internal/frontier"
)

// AttributeStore keeps entity attributes in nested maps guarded by a RWMutex.
type AttributeStore struct {
	mu    sync.RWMutex
	attrs map[attrKey]map[string]string
}

type attrKey struct {
	kind frontier.Kind
	id   string
}

// NewAttributeStore constructs an empty AttributeStore.
func NewAttributeStore() *AttributeStore {
	return &AttributeStore{attrs: make(map[attrKey]map[string]string)}
}

// Set writes one field for the entity.
func (s *AttributeStore) Set(_ context.Context, kind frontier.Kind, id, field, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := attrKey{kind: kind, id: id}
	fields, ok := s.attrs[key]
	if !ok {
		fields = make(map[string]string)
		s.attrs[key] = fields
	}
	fields[field] = value
	return nil
}

// Get reads one field; the bool is false when absent.
func (s *AttributeStore) Get(_ context.Context, kind frontier.Kind, id, field string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fields, ok := s.attrs[attrKey{kind: kind, id: id}]
	if !ok {
		return "", false, nil
	}
	value, ok := fields[field]
	return value, ok, nil
}

// Delete removes one field; absent fields are a no-op.
func (s *AttributeStore) Delete(_ context.Context, kind frontier.Kind, id, field string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := attrKey{kind: kind, id: id}
	fields, ok := s.attrs[key]
	if !ok {
		return nil
	}
	delete(fields, field)
	if len(fields) == 0 {
		delete(s.attrs, key)
	}
	return nil
}

// All returns a copy of every field stored for the entity.
func (s *AttributeStore) All(_ context.Context, kind frontier.Kind, id string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fields := s.attrs[attrKey{kind: kind, id: id}]
	out := make(map[string]string, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out, nil
}
