package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/JakeFAU/crawl-frontier/internal/frontier"
)

// StatusIndex keeps the entity→status record and the inverse per-status
// membership sets. Both views are updated under one lock, so a reader never
// observes an entity in zero or two sets.
type StatusIndex struct {
	mu      sync.RWMutex
	current map[statusKey]frontier.Status
	members map[memberKey]map[string]struct{}
}

type statusKey struct {
	kind frontier.Kind
	id   string
}

type memberKey struct {
	kind   frontier.Kind
	status frontier.Status
}

// NewStatusIndex constructs an empty StatusIndex.
func NewStatusIndex() *StatusIndex {
	return &StatusIndex{
		current: make(map[statusKey]frontier.Status),
		members: make(map[memberKey]map[string]struct{}),
	}
}

// SetStatus overwrites the current status and moves set membership in the
// same critical section.
func (s *StatusIndex) SetStatus(_ context.Context, kind frontier.Kind, id string, status frontier.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := statusKey{kind: kind, id: id}
	if old, ok := s.current[key]; ok {
		if set := s.members[memberKey{kind: kind, status: old}]; set != nil {
			delete(set, id)
		}
	}
	s.current[key] = status
	mk := memberKey{kind: kind, status: status}
	set, ok := s.members[mk]
	if !ok {
		set = make(map[string]struct{})
		s.members[mk] = set
	}
	set[id] = struct{}{}
	return nil
}

// GetStatus returns the current status or frontier.ErrNotFound.
func (s *StatusIndex) GetStatus(_ context.Context, kind frontier.Kind, id string) (frontier.Status, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	status, ok := s.current[statusKey{kind: kind, id: id}]
	if !ok {
		return "", frontier.ErrNotFound
	}
	return status, nil
}

// Members returns an iterator over a sorted snapshot of one status set.
// Each call starts a fresh iteration.
func (s *StatusIndex) Members(_ context.Context, kind frontier.Kind, status frontier.Status) (frontier.MemberIterator, error) {
	s.mu.RLock()
	set := s.members[memberKey{kind: kind, status: status}]
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	s.mu.RUnlock()
	sort.Strings(ids)
	return &sliceIterator{ids: ids, pos: -1}, nil
}

// Count returns the size of one status set.
func (s *StatusIndex) Count(_ context.Context, kind frontier.Kind, status frontier.Status) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.members[memberKey{kind: kind, status: status}])), nil
}

type sliceIterator struct {
	ids []string
	pos int
}

func (it *sliceIterator) Next() bool {
	if it.pos+1 >= len(it.ids) {
		return false
	}
	it.pos++
	return true
}

func (it *sliceIterator) ID() string {
	if it.pos < 0 || it.pos >= len(it.ids) {
		return ""
	}
	return it.ids[it.pos]
}

func (it *sliceIterator) Err() error { return nil }

func (it *sliceIterator) Close() error { return nil }
