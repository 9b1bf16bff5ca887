// Package postgres provides a PostgreSQL implementation of the guard check
// log store over a native pgx pool.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ruleshq/guard/checklog"
	"github.com/ruleshq/guard/id"
)

// Compile-time interface check.
var _ checklog.Store = (*Store)(nil)

// errNotFound is the sentinel for missing entries.
var errNotFound = fmt.Errorf("not found")

// Store is a PostgreSQL implementation of the check log store.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a new PostgreSQL store.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Migrate creates the check log schema.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("guard/postgres: migrate: %w", err)
	}
	return nil
}

// Ping verifies the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close closes the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// CreateEntry persists a new check log entry.
func (s *Store) CreateEntry(ctx context.Context, e *checklog.Entry) error {
	_, err := s.pool.Exec(ctx, `
INSERT INTO guard_check_logs (id, predicate, user_repr, target_repr, decision, eval_time_ns, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		e.ID.String(), e.Predicate, e.User, e.Target, string(e.Decision), e.EvalTimeNs, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("guard/postgres: create entry: %w", err)
	}
	return nil
}

// GetEntry retrieves a check log entry by ID.
func (s *Store) GetEntry(ctx context.Context, entryID id.EntryID) (*checklog.Entry, error) {
	row := s.pool.QueryRow(ctx, `
SELECT id, predicate, user_repr, target_repr, decision, eval_time_ns, created_at
FROM guard_check_logs WHERE id = $1`, entryID.String())

	e, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("check log %s: %w", entryID, errNotFound)
		}
		return nil, fmt.Errorf("guard/postgres: get entry: %w", err)
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
			query += " OFFSET " + strconv.Itoa(filter.Offset)
		}
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("guard/postgres: list entries: %w", err)
	}
	defer rows.Close()

	var result []*checklog.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("guard/postgres: scan entry: %w", err)
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("guard/postgres: list entries: %w", err)
	}
	return result, nil
}

// CountEntries returns the number of entries matching the filter, ignoring
// pagination.
func (s *Store) CountEntries(ctx context.Context, filter *checklog.QueryFilter) (int64, error) {
	where, args := buildWhere(filter)
	var count int64
	err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM guard_check_logs"+where, args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("guard/postgres: count entries: %w", err)
	}
	return count, nil
}

// PurgeEntries removes entries created before the given time.
func (s *Store) PurgeEntries(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, "DELETE FROM guard_check_logs WHERE created_at < $1", before)
	if err != nil {
		return 0, fmt.Errorf("guard/postgres: purge entries: %w", err)
	}
	return tag.RowsAffected(), nil
}

// buildWhere translates the filter into a WHERE clause with positional
// args. Limit/Offset are handled by the caller.
func buildWhere(filter *checklog.QueryFilter) (string, []any) {
	if filter == nil {
		return "", nil
	}
	var conds []string
	var args []any
	add := func(cond string, val any) {
		args = append(args, val)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if filter.Predicate != "" {
		add("predicate = $%d", filter.Predicate)
	}
	if filter.User != "" {
		add("user_repr = $%d", filter.User)
	}
	if filter.Decision != "" {
		add("decision = $%d", string(filter.Decision))
	}
	if filter.After != nil {
		add("created_at >= $%d", *filter.After)
	}
	if filter.Before != nil {
		add("created_at <= $%d", *filter.Before)
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
		e        checklog.Entry
		rawID    string
		decision string
	)
	if err := row.Scan(&rawID, &e.Predicate, &e.User, &e.Target, &decision, &e.EvalTimeNs, &e.CreatedAt); err != nil {
		return nil, err
	}
	parsed, err := id.ParseEntryID(rawID)
	if err != nil {
		return nil, err
	}
	e.ID = parsed
	e.Decision = checklog.Decision(decision)
	return &e, nil
}
