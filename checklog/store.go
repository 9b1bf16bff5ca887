package checklog

import (
	"context"
	"time"

	"github.com/ruleshq/guard/id"
)

// Store defines persistence operations for check audit logs.
// Backends: Postgres, Mongo, and Memory.
type Store interface {
	// CreateEntry persists a new check log entry.
	CreateEntry(ctx context.Context, e *Entry) error

	// GetEntry retrieves a check log entry by ID.
	GetEntry(ctx context.Context, entryID id.EntryID) (*Entry, error)

	// ListEntries returns check log entries matching the filter, newest
	// first.
	ListEntries(ctx context.Context, filter *QueryFilter) ([]*Entry, error)

	// CountEntries returns the number of entries matching the filter.
	CountEntries(ctx context.Context, filter *QueryFilter) (int64, error)

	// PurgeEntries removes check log entries older than the given time.
	PurgeEntries(ctx context.Context, before time.Time) (int64, error)
}
