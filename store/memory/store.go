// Package memory provides an in-memory implementation of the guard check
// log store. It is intended for testing and development.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ruleshq/guard/checklog"
	"github.com/ruleshq/guard/id"
)

// Compile-time interface check.
var _ checklog.Store = (*Store)(nil)

// errNotFound is the sentinel for missing entries.
var errNotFound = fmt.Errorf("not found")

// Store is a thread-safe in-memory check log store.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*checklog.Entry
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		entries: make(map[string]*checklog.Entry),
	}
}

// CreateEntry persists a new check log entry.
func (s *Store) CreateEntry(_ context.Context, e *checklog.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[e.ID.String()] = copyEntry(e)
	return nil
}

// GetEntry retrieves a check log entry by ID.
func (s *Store) GetEntry(_ context.Context, entryID id.EntryID) (*checklog.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[entryID.String()]
	if !ok {
		return nil, fmt.Errorf("check log %s: %w", entryID, errNotFound)
	}
	return copyEntry(e), nil
}

// ListEntries returns entries matching the filter, newest first.
func (s *Store) ListEntries(_ context.Context, filter *checklog.QueryFilter) ([]*checklog.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*checklog.Entry, 0, len(s.entries))
	for _, e := range s.entries {
		if !matches(e, filter) {
			continue
		}
		result = append(result, copyEntry(e))
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID.String() > result[j].ID.String()
	})
	return paginate(result, filter), nil
}

// CountEntries returns the number of entries matching the filter, ignoring
// pagination.
func (s *Store) CountEntries(_ context.Context, filter *checklog.QueryFilter) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var count int64
	for _, e := range s.entries {
		if matches(e, filter) {
			count++
		}
	}
	return count, nil
}

// PurgeEntries removes entries created before the given time.
func (s *Store) PurgeEntries(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int64
	for k, e := range s.entries {
		if e.CreatedAt.Before(before) {
			delete(s.entries, k)
			count++
		}
	}
	return count, nil
}

func matches(e *checklog.Entry, f *checklog.QueryFilter) bool {
	if f == nil {
		return true
	}
	if f.Predicate != "" && e.Predicate != f.Predicate {
		return false
	}
	if f.User != "" && e.User != f.User {
		return false
	}
	if f.Decision != "" && e.Decision != f.Decision {
		return false
	}
	if f.After != nil && e.CreatedAt.Before(*f.After) {
		return false
	}
	if f.Before != nil && e.CreatedAt.After(*f.Before) {
		return false
	}
	return true
}

func paginate(list []*checklog.Entry, f *checklog.QueryFilter) []*checklog.Entry {
	if f == nil {
		return list
	}
	if f.Offset > 0 {
		if f.Offset >= len(list) {
			return []*checklog.Entry{}
		}
		list = list[f.Offset:]
	}
	if f.Limit > 0 && f.Limit < len(list) {
		list = list[:f.Limit]
	}
	return list
}

func copyEntry(e *checklog.Entry) *checklog.Entry {
	c := *e
	return &c
}
