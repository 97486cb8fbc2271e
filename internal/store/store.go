// Package store defines the document-store contract the pipeline builder
// and tool surface depend on, and a MongoDB implementation of it.
package store

import "context"

// Document is a loosely-typed store document (row, metadata record, or
// aggregation result document).
type Document map[string]any

// Store is the thin document-store contract spec.md §6 requires: any
// implementation supporting a superset of $match/$group/$project/$sort/
// $limit/$unwind/$bucket/$dateTrunc aggregation stages satisfies it.
type Store interface {
	// Aggregate runs a pipeline (a sequence of stage documents) against a
	// collection and returns every resulting document.
	Aggregate(ctx context.Context, collection string, pipeline []any) ([]Document, error)

	// Count returns the number of documents in collection matching filter.
	Count(ctx context.Context, collection string, filter any) (int64, error)

	// FindOne returns the first document matching filter, or nil if none
	// matches. projection may be nil to fetch the whole document.
	FindOne(ctx context.Context, collection string, filter any, projection any) (Document, error)

	// UpdateOne applies update to the first document matching filter. When
	// upsert is true and no document matches, a new document is inserted.
	UpdateOne(ctx context.Context, collection string, filter any, update any, upsert bool) (UpdateAck, error)
}

// UpdateAck reports the outcome of an UpdateOne call.
type UpdateAck struct {
	MatchedCount  int64
	ModifiedCount int64
	UpsertedID    any
}
