package docstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
)

//go:generate mockgen -source=store.go -destination=store_mock.go -package=docstore

const (
	IDField      = "_id"
	VersionField = "version"

	// InitialVersion is the version of a freshly created document.
	InitialVersion int64 = 1
	// AnyVersion disables the version precondition of Update.
	AnyVersion int64 = -1
)

var (
	ErrNotFound = errors.New("docstore: document not found")
	ErrConflict = errors.New("docstore: document version changed")
)

type (
	// Document is a raw stored document, decoded by the caller.
	Document = bson.Raw

	// Fields is a partial document for Update.
	Fields = bson.M

	// Store is the document store the services run on. Update applies its
	// fields atomically, only when the stored version equals version, and
	// bumps the stored version by one.
	Store interface {
		Get(ctx context.Context, collection, id string) (Document, error)
		Create(ctx context.Context, collection string, doc interface{}) (string, error)
		Update(ctx context.Context, collection, id string, version int64, fields Fields) error
		Delete(ctx context.Context, collection, id string) error
		List(ctx context.Context, collection string) ([]Document, error)
		QueryEqual(ctx context.Context, collection, field string, value interface{}) ([]Document, error)
		QueryArrayContains(ctx context.Context, collection, field string, value interface{}) ([]Document, error)
	}
)

func Decode(doc Document, v interface{}) error {
	if err := bson.Unmarshal(doc, v); err != nil {
		return fmt.Errorf("docstore: failed decoding document: %w", err)
	}
	return nil
}

// newDocument turns doc into a storable map with an id and initial version.
func newDocument(doc interface{}) (bson.M, string, error) {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return nil, "", fmt.Errorf("docstore: failed encoding document: %w", err)
	}
	m := bson.M{}
	if err := bson.Unmarshal(raw, &m); err != nil {
		return nil, "", fmt.Errorf("docstore: failed encoding document: %w", err)
	}

	id, _ := m[IDField].(string)
	if id == "" {
		id = uuid.NewString()
		m[IDField] = id
	}
	m[VersionField] = InitialVersion
	return m, id, nil
}
