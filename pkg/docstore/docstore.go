// Package docstore defines the document-store contract the escrow core is
// built against: single-document reads and partial writes, equality queries,
// and an add-if-absent array append. The store offers no joins and no
// cross-document transactions; every consistency rule lives in the callers.
package docstore

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Update and ArrayUnion when the target document
// does not exist. Get and Query report absence as empty results instead.
var ErrNotFound = errors.New("docstore: document not found")

// Document is a raw store record: an id plus untyped fields. Callers coerce
// fields into their models at the boundary.
type Document struct {
	ID     string
	Fields map[string]any
}

// Filter is a single equality predicate. The stores in this repo only need
// "==", matching the query surface of the underlying backends.
type Filter struct {
	Field string
	Value any
}

// QueryOptions control ordering and result size.
type QueryOptions struct {
	OrderBy    string
	Descending bool
	Limit      int
}

// serverTimestamp is the sentinel type behind ServerTimestamp.
type serverTimestamp struct{}

// ServerTimestamp marks a field to be stamped with the store's commit time
// when the write is applied.
var ServerTimestamp = serverTimestamp{}

// Store is the document-store boundary. Implementations must treat every call
// as independent: there is no batching and no cross-call atomicity.
type Store interface {
	// Get loads one document, returning (nil, nil) when it does not exist.
	Get(ctx context.Context, collection, id string) (*Document, error)

	// Query returns the documents matching all filters, ordered per opts.
	Query(ctx context.Context, collection string, filters []Filter, opts *QueryOptions) ([]Document, error)

	// Create inserts a document with a store-generated id and returns it.
	Create(ctx context.Context, collection string, fields map[string]any) (string, error)

	// Set writes a document under a caller-chosen id, creating or replacing it.
	Set(ctx context.Context, collection, id string, fields map[string]any) error

	// Update applies a partial write to an existing document. The write is
	// atomic per document but not serialized against concurrent updates.
	Update(ctx context.Context, collection, id string, fields map[string]any) error

	// ArrayUnion appends element to an array field unless an equal element is
	// already present. This is the only append primitive; callers must not
	// read-modify-write array fields.
	ArrayUnion(ctx context.Context, collection, id, field string, element any) error
}
