// Package store keeps uploaded typez documents for the HTTP host.
//
// Documents are stored as their compact JSON encoding and addressed by a
// random UUID. Uploading a document whose encoding is already stored returns
// the existing record, so the content hash doubles as a deduplication key.
//
// Two backends are provided: [MemoryStore] for single-process use and tests,
// and [MongoStore] for a persistent, shared collection.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	errs "github.com/matzehuels/exprtrail/pkg/errors"
	"github.com/matzehuels/exprtrail/pkg/typez"
)

// Record is one stored document.
type Record struct {
	ID        string    `json:"id" bson:"_id"`
	Hash      string    `json:"hash" bson:"hash"`
	Steps     int       `json:"steps" bson:"steps"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	Data      []byte    `json:"-" bson:"data"`
}

// Document decodes the stored JSON.
func (r Record) Document() (*typez.Document, error) {
	return typez.Unmarshal(r.Data)
}

// Store persists documents. Implementations are safe for concurrent use.
type Store interface {
	// Put stores doc and returns its record. A document with identical
	// encoding returns the record stored first.
	Put(ctx context.Context, doc *typez.Document) (Record, error)
	// Get returns the record with the given id, or a NOT_FOUND error.
	Get(ctx context.Context, id string) (Record, error)
	// Delete removes the record, or returns a NOT_FOUND error.
	Delete(ctx context.Context, id string) error
	// List returns every record without its data, newest first.
	List(ctx context.Context) ([]Record, error)
	// Close releases backend resources.
	Close(ctx context.Context) error
}

// newID returns a fresh document id.
func newID() string {
	return uuid.NewString()
}

func notFound(id string) error {
	return errs.New(errs.ErrCodeNotFound, "document %q not found", id)
}
