package sqlite

// schema creates the check log table and its query indexes. Timestamps are
// stored as unix nanoseconds so range filters and ordering compare as
// integers.
const schema = `
CREATE TABLE IF NOT EXISTS guard_check_logs (
	id           TEXT PRIMARY KEY,
	predicate    TEXT NOT NULL,
	user_repr    TEXT NOT NULL,
	target_repr  TEXT NOT NULL DEFAULT '',
	decision     TEXT NOT NULL,
	eval_time_ns INTEGER NOT NULL DEFAULT 0,
	created_at   INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_guard_check_logs_predicate ON guard_check_logs (predicate);
CREATE INDEX IF NOT EXISTS idx_guard_check_logs_user ON guard_check_logs (user_repr);
CREATE INDEX IF NOT EXISTS idx_guard_check_logs_decision ON guard_check_logs (decision);
CREATE INDEX IF NOT EXISTS idx_guard_check_logs_created_at ON guard_check_logs (created_at);
`
