package docstore

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryStore keeps documents in process memory. It is safe for concurrent
// use and applies the same version precondition as MongoStore.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]*memCollection
}

type memCollection struct {
	docs  map[string]bson.Raw
	order []string // insertion order, used for listing
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: make(map[string]*memCollection),
	}
}

func (s *MemoryStore) collection(name string) *memCollection {
	c, ok := s.collections[name]
	if !ok {
		c = &memCollection{docs: make(map[string]bson.Raw)}
		s.collections[name] = c
	}
	return c
}

func (s *MemoryStore) Get(ctx context.Context, collection, id string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.collections[collection]
	if !ok {
		return nil, ErrNotFound
	}
	raw, ok := c.docs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneRaw(raw), nil
}

func (s *MemoryStore) Create(ctx context.Context, collection string, doc interface{}) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m, id, err := newDocument(doc)
	if err != nil {
		return "", err
	}
	raw, err := bson.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("docstore/memory: failed encoding document: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.collection(collection)
	if _, exists := c.docs[id]; exists {
		return "", fmt.Errorf("docstore/memory: duplicate id %s in %s", id, collection)
	}
	c.docs[id] = raw
	c.order = append(c.order, id)
	return id, nil
}

func (s *MemoryStore) Update(ctx context.Context, collection, id string, version int64, fields Fields) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.collections[collection]
	if !ok {
		return ErrNotFound
	}
	raw, ok := c.docs[id]
	if !ok {
		return ErrNotFound
	}

	m := bson.M{}
	if err := bson.Unmarshal(raw, &m); err != nil {
		return fmt.Errorf("docstore/memory: failed decoding %s/%s: %w", collection, id, err)
	}
	current, _ := asInt64(m[VersionField])
	if version != AnyVersion && current != version {
		return ErrConflict
	}

	for k, v := range fields {
		if k == IDField || k == VersionField {
			continue
		}
		m[k] = v
	}
	m[VersionField] = current + 1

	updated, err := bson.Marshal(m)
	if err != nil {
		return fmt.Errorf("docstore/memory: failed encoding %s/%s: %w", collection, id, err)
	}
	c.docs[id] = updated
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, collection, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.collections[collection]
	if !ok {
		return ErrNotFound
	}
	if _, ok := c.docs[id]; !ok {
		return ErrNotFound
	}
	delete(c.docs, id)
	for i, docID := range c.order {
		if docID == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return nil
}

func (s *MemoryStore) List(ctx context.Context, collection string) ([]Document, error) {
	return s.filter(ctx, collection, func(bson.M) bool { return true })
}

func (s *MemoryStore) QueryEqual(ctx context.Context, collection, field string, value interface{}) ([]Document, error) {
	return s.filter(ctx, collection, func(m bson.M) bool {
		return equalValues(m[field], value)
	})
}

func (s *MemoryStore) QueryArrayContains(ctx context.Context, collection, field string, value interface{}) ([]Document, error) {
	return s.filter(ctx, collection, func(m bson.M) bool {
		arr, ok := m[field].(primitive.A)
		if !ok {
			return false
		}
		for _, el := range arr {
			if equalValues(el, value) {
				return true
			}
		}
		return false
	})
}

func (s *MemoryStore) filter(ctx context.Context, collection string, match func(bson.M) bool) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	docs := []Document{}
	c, ok := s.collections[collection]
	if !ok {
		return docs, nil
	}
	for _, id := range c.order {
		raw := c.docs[id]
		m := bson.M{}
		if err := bson.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("docstore/memory: failed decoding %s/%s: %w", collection, id, err)
		}
		if match(m) {
			docs = append(docs, cloneRaw(raw))
		}
	}
	return docs, nil
}

func cloneRaw(raw bson.Raw) bson.Raw {
	out := make(bson.Raw, len(raw))
	copy(out, raw)
	return out
}

func asInt64(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	}
	return 0, false
}

func equalValues(a, b interface{}) bool {
	if x, ok := asInt64(a); ok {
		if y, ok := asInt64(b); ok {
			return x == y
		}
	}
	return reflect.DeepEqual(a, b)
}
