// Package docstore provides a generic keyed-document store: per-collection
// documents with get, query-by-field, create, merge-update and delete.
// Atomicity is per document only; there are no cross-document transactions,
// so multi-document invariants are enforced by callers via sequential
// read-then-write sweeps and healed by polling reconciliation.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrNotFound is returned when a document id does not resolve.
var ErrNotFound = errors.New("document not found")

// ErrExists is returned by Create when the id is already taken.
var ErrExists = errors.New("document already exists")

// Store is the keyed-document database contract. Merge applies a shallow
// merge of top-level fields onto the stored document. Query matches a
// top-level string field for equality.
type Store interface {
	Get(ctx context.Context, collection, id string) (json.RawMessage, error)
	Query(ctx context.Context, collection, field, value string) ([]json.RawMessage, error)
	Create(ctx context.Context, collection, id string, doc any) error
	Merge(ctx context.Context, collection, id string, patch map[string]any) error
	Delete(ctx context.Context, collection, id string) error
}

// GetAs fetches a document and unmarshals it into out.
func GetAs(ctx context.Context, s Store, collection, id string, out any) error {
	raw, err := s.Get(ctx, collection, id)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}
