package store

import "context"

// Collection is a named set of documents supporting atomic single-document
// writes. Both the DynamoDB and the in-memory backend implement it.
type Collection interface {
	// Find returns all documents matching the query filter, ordered by
	// q.Sort (document-id order when nil).
	Find(ctx context.Context, q Query) ([]Doc, error)

	// FindOne returns the first matching document in document-id order,
	// or ErrNotFound.
	FindOne(ctx context.Context, filter Filter) (Doc, error)

	// InsertOne stores a new document and returns its id. A missing "_id"
	// field is assigned a fresh id. Returns ErrAlreadyExists if a document
	// with the same id is already present.
	InsertOne(ctx context.Context, doc Doc) (string, error)

	// UpdateOne sets the patch fields on the first document matching the
	// filter. The filter is evaluated atomically with the write, so
	// including the expected current values makes this a compare-and-set.
	// Returns the number of documents updated (0 or 1).
	UpdateOne(ctx context.Context, filter Filter, patch Patch) (int, error)

	// DeleteOne removes the first document matching the filter, evaluated
	// atomically with the delete. Returns the number removed (0 or 1).
	DeleteOne(ctx context.Context, filter Filter) (int, error)
}
