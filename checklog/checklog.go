// Package checklog defines the check audit log Entry entity.
package checklog

import (
	"time"

	"github.com/ruleshq/guard/id"
)

// Decision is the recorded outcome of a check.
type Decision string

const (
	// DecisionAllow means the predicate evaluated true.
	DecisionAllow Decision = "allow"

	// DecisionDeny means the predicate evaluated false.
	DecisionDeny Decision = "deny"
)

// Entry is a single check audit record. User and Target hold the string
// forms of the opaque values the check saw; guard never persists the values
// themselves.
type Entry struct {
	ID         id.EntryID `json:"id" db:"id"`
	Predicate  string     `json:"predicate" db:"predicate"`
	User       string     `json:"user" db:"user_repr"`
	Target     string     `json:"target,omitempty" db:"target_repr"`
	Decision   Decision   `json:"decision" db:"decision"`
	EvalTimeNs int64      `json:"eval_time_ns" db:"eval_time_ns"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
}

// QueryFilter contains filters for querying check logs.
type QueryFilter struct {
	Predicate string     `json:"predicate,omitempty"`
	User      string     `json:"user,omitempty"`
	Decision  Decision   `json:"decision,omitempty"`
	After     *time.Time `json:"after,omitempty"`
	Before    *time.Time `json:"before,omitempty"`
	Limit     int        `json:"limit,omitempty"`
	Offset    int        `json:"offset,omitempty"`
}
