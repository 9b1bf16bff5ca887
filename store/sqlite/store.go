// Package sqlite provides a SQLite implementation of the guard check log
// store over database/sql with the modernc.org/sqlite driver. It suits
// single-process deployments and test fixtures where a server database is
// overkill.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ruleshq/guard/checklog"
	"github.com/ruleshq/guard/id"
)

// Compile-time interface check.
var _ checklog.Store = (*Store)(nil)

// errNotFound is the sentinel for missing entries.
var errNotFound = fmt.Errorf("not found")

// Store is a SQLite implementation of the check log store.
type Store struct {
	db *sql.DB
}

// New creates a new SQLite store over an open database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Open opens the SQLite database at the given DSN and returns a store over
// it. Use ":memory:" for an in-memory database.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("guard/sqlite: open: %w", err)
	}
	return New(db), nil
}

// Migrate creates the check log schema.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("guard/sqlite: migrate: %w", err)
	}
	return nil
}

// Ping verifies the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateEntry persists a new check log entry.
func (s *Store) CreateEntry(ctx context.Context, e *checklog.Entry) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO guard_check_logs (id, predicate, user_repr, target_repr, decision, eval_time_ns, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID.String(), e.Predicate, e.User, e.Target, string(e.Decision), e.EvalTimeNs, e.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("guard/sqlite: create entry: %w", err)
	}
	return nil
}

// GetEntry retrieves a check log entry by ID.
func (s *Store) GetEntry(ctx context.Context, entryID id.EntryID) (*checklog.Entry, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, predicate, user_repr, target_repr, decision, eval_time_ns, created_at
FROM guard_check_logs WHERE id = ?`, entryID.String())

	e, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("check log %s: %w", entryID, errNotFound)
		}
		return nil, fmt.Errorf("guard/sqlite: get entry: %w", err)
	}
	return e, nil
}

// ListEntries returns entries matching the filter, newest first.
func (s *Store) ListEntries(ctx context.Context, filter *checklog.QueryFilter) ([]*checklog.Entry, error) {
	where, args := buildWhere(filter)
	query := `
SELECT id, predicate, user_repr, target_repr, decision, eval_time_ns, created_at
FROM guard_check_logs` + where + `
ORDER BY created_at DESC, id DESC`

	if filter != nil {
		if filter.Limit > 0 {
			query += " LIMIT " + strconv.Itoa(filter.Limit)
		}
		if filter.Offset > 0 {
			if filter.Limit <= 0 {
				query += " LIMIT -1"
			}
			query += " OFFSET " + strconv.Itoa(filter.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("guard/sqlite: list entries: %w", err)
	}
	defer rows.Close()

	var result []*checklog.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("guard/sqlite: scan entry: %w", err)
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("guard/sqlite: list entries: %w", err)
	}
	return result, nil
}

// CountEntries returns the number of entries matching the filter, ignoring
// pagination.
func (s *Store) CountEntries(ctx context.Context, filter *checklog.QueryFilter) (int64, error) {
	where, args := buildWhere(filter)
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM guard_check_logs"+where, args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("guard/sqlite: count entries: %w", err)
	}
	return count, nil
}

// PurgeEntries removes entries created before the given time.
func (s *Store) PurgeEntries(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM guard_check_logs WHERE created_at < ?", before.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("guard/sqlite: purge entries: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("guard/sqlite: purge entries: %w", err)
	}
	return n, nil
}

// buildWhere translates the filter into a WHERE clause with ? placeholders.
// Limit/Offset are handled by the caller.
func buildWhere(filter *checklog.QueryFilter) (string, []any) {
	if filter == nil {
		return "", nil
	}
	var conds []string
	var args []any
	add := func(cond string, val any) {
		conds = append(conds, cond)
		args = append(args, val)
	}
	if filter.Predicate != "" {
		add("predicate = ?", filter.Predicate)
	}
	if filter.User != "" {
		add("user_repr = ?", filter.User)
	}
	if filter.Decision != "" {
		add("decision = ?", string(filter.Decision))
	}
	if filter.After != nil {
		add("created_at >= ?", filter.After.UnixNano())
	}
	if filter.Before != nil {
		add("created_at <= ?", filter.Before.UnixNano())
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*checklog.Entry, error) {
	var (
		e         checklog.Entry
		rawID     string
		decision  string
		createdNs int64
	)
	if err := row.Scan(&rawID, &e.Predicate, &e.User, &e.Target, &decision, &e.EvalTimeNs, &createdNs); err != nil {
		return nil, err
	}
	parsed, err := id.ParseEntryID(rawID)
	if err != nil {
		return nil, err
	}
	e.ID = parsed
	e.Decision = checklog.Decision(decision)
	e.CreatedAt = time.Unix(0, createdNs).UTC()
	return &e, nil
}
