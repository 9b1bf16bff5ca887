package mongo

import (
	"time"

	"github.com/ruleshq/guard/checklog"
	"github.com/ruleshq/guard/id"
)

// entryModel is the BSON document for a check log entry.
type entryModel struct {
	ID         string    `bson:"_id"`
	Predicate  string    `bson:"predicate"`
	User       string    `bson:"user_repr"`
	Target     string    `bson:"target_repr,omitempty"`
	Decision   string    `bson:"decision"`
	EvalTimeNs int64     `bson:"eval_time_ns"`
	CreatedAt  time.Time `bson:"created_at"`
}

func entryToModel(e *checklog.Entry) *entryModel {
	return &entryModel{
		ID:         e.ID.String(),
		Predicate:  e.Predicate,
		User:       e.User,
		Target:     e.Target,
		Decision:   string(e.Decision),
		EvalTimeNs: e.EvalTimeNs,
		CreatedAt:  e.CreatedAt,
	}
}

func entryFromModel(m *entryModel) (*checklog.Entry, error) {
	entryID, err := id.ParseEntryID(m.ID)
	if err != nil {
		return nil, err
	}
	return &checklog.Entry{
		ID:         entryID,
		Predicate:  m.Predicate,
		User:       m.User,
		Target:     m.Target,
		Decision:   checklog.Decision(m.Decision),
		EvalTimeNs: m.EvalTimeNs,
		CreatedAt:  m.CreatedAt,
	}, nil
}
