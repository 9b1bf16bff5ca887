package postgres

// schema is the check log DDL. Idempotent so Migrate can run at every
// startup.
const schema = `
CREATE TABLE IF NOT EXISTS guard_check_logs (
    id              TEXT PRIMARY KEY,
    predicate       TEXT NOT NULL,
    user_repr       TEXT NOT NULL DEFAULT '',
    target_repr     TEXT NOT NULL DEFAULT '',
    decision        TEXT NOT NULL,
    eval_time_ns    BIGINT NOT NULL DEFAULT 0,
    created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_guard_check_logs_predicate ON guard_check_logs (predicate);
CREATE INDEX IF NOT EXISTS idx_guard_check_logs_user ON guard_check_logs (user_repr);
CREATE INDEX IF NOT EXISTS idx_guard_check_logs_decision ON guard_check_logs (decision);
CREATE INDEX IF NOT EXISTS idx_guard_check_logs_created ON guard_check_logs (created_at);
`
