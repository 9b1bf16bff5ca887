// Package mongo provides a MongoDB implementation of the guard check log
// store.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	mongod "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/ruleshq/guard/checklog"
	"github.com/ruleshq/guard/id"
)

// colCheckLogs is the collection name for check log entries.
const colCheckLogs = "guard_check_logs"

// Compile-time interface check.
var _ checklog.Store = (*Store)(nil)

// errNotFound is the sentinel for missing entries.
var errNotFound = fmt.Errorf("not found")

// Store is a MongoDB implementation of the check log store.
type Store struct {
	col *mongod.Collection
}

// New creates a new MongoDB store on the given database.
func New(db *mongod.Database) *Store {
	return &Store{col: db.Collection(colCheckLogs)}
}

// Migrate creates the check log indexes.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.col.Indexes().CreateMany(ctx, []mongod.IndexModel{
		{Keys: bson.D{{Key: "predicate", Value: 1}}},
		{Keys: bson.D{{Key: "user_repr", Value: 1}}},
		{Keys: bson.D{{Key: "decision", Value: 1}}},
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("guard/mongo: migrate indexes: %w", err)
	}
	return nil
}

// CreateEntry persists a new check log entry.
func (s *Store) CreateEntry(ctx context.Context, e *checklog.Entry) error {
	if _, err := s.col.InsertOne(ctx, entryToModel(e)); err != nil {
		return fmt.Errorf("guard/mongo: create entry: %w", err)
	}
	return nil
}

// GetEntry retrieves a check log entry by ID.
func (s *Store) GetEntry(ctx context.Context, entryID id.EntryID) (*checklog.Entry, error) {
	var m entryModel
	err := s.col.FindOne(ctx, bson.D{{Key: "_id", Value: entryID.String()}}).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, fmt.Errorf("check log %s: %w", entryID, errNotFound)
		}
		return nil, fmt.Errorf("guard/mongo: get entry: %w", err)
	}
	return entryFromModel(&m)
}

// ListEntries returns entries matching the filter, newest first.
func (s *Store) ListEntries(ctx context.Context, filter *checklog.QueryFilter) ([]*checklog.Entry, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	if filter != nil {
		if filter.Offset > 0 {
			opts = opts.SetSkip(int64(filter.Offset))
		}
		if filter.Limit > 0 {
			opts = opts.SetLimit(int64(filter.Limit))
		}
	}

	cursor, err := s.col.Find(ctx, buildFilter(filter), opts)
	if err != nil {
		return nil, fmt.Errorf("guard/mongo: list entries: %w", err)
	}
	defer cursor.Close(ctx)

	var result []*checklog.Entry
	for cursor.Next(ctx) {
		var m entryModel
		if err := cursor.Decode(&m); err != nil {
			return nil, fmt.Errorf("guard/mongo: decode entry: %w", err)
		}
		e, err := entryFromModel(&m)
		if err != nil {
			return nil, fmt.Errorf("guard/mongo: decode entry: %w", err)
		}
		result = append(result, e)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("guard/mongo: list entries: %w", err)
	}
	return result, nil
}

// CountEntries returns the number of entries matching the filter, ignoring
// pagination.
func (s *Store) CountEntries(ctx context.Context, filter *checklog.QueryFilter) (int64, error) {
	count, err := s.col.CountDocuments(ctx, buildFilter(filter))
	if err != nil {
		return 0, fmt.Errorf("guard/mongo: count entries: %w", err)
	}
	return count, nil
}

// PurgeEntries removes entries created before the given time.
func (s *Store) PurgeEntries(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.col.DeleteMany(ctx, bson.D{
		{Key: "created_at", Value: bson.D{{Key: "$lt", Value: before}}},
	})
	if err != nil {
		return 0, fmt.Errorf("guard/mongo: purge entries: %w", err)
	}
	return res.DeletedCount, nil
}

func buildFilter(filter *checklog.QueryFilter) bson.D {
	query := bson.D{}
	if filter == nil {
		return query
	}
	if filter.Predicate != "" {
		query = append(query, bson.E{Key: "predicate", Value: filter.Predicate})
	}
	if filter.User != "" {
		query = append(query, bson.E{Key: "user_repr", Value: filter.User})
	}
	if filter.Decision != "" {
		query = append(query, bson.E{Key: "decision", Value: string(filter.Decision)})
	}
	created := bson.D{}
	if filter.After != nil {
		created = append(created, bson.E{Key: "$gte", Value: *filter.After})
	}
	if filter.Before != nil {
		created = append(created, bson.E{Key: "$lte", Value: *filter.Before})
	}
	if len(created) > 0 {
		query = append(query, bson.E{Key: "created_at", Value: created})
	}
	return query
}

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongod.ErrNoDocuments)
}
