package docstore

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type MongoStore struct {
	db IMongoDB
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{
		db: &MongoDatabase{DB: db},
	}
}

func (s *MongoStore) Get(ctx context.Context, collection, id string) (Document, error) {
	var doc bson.Raw
	err := s.db.Collection(collection).FindOne(ctx, bson.M{IDField: id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("docstore/mongo: failed finding %s/%s: %w", collection, id, err)
	}
	return doc, nil
}

func (s *MongoStore) Create(ctx context.Context, collection string, doc interface{}) (string, error) {
	m, _, err := newDocument(doc)
	if err != nil {
		return "", err
	}
	res, err := s.db.Collection(collection).InsertOne(ctx, m)
	if err != nil {
		return "", fmt.Errorf("docstore/mongo: failed inserting into %s: %w", collection, err)
	}
	id, ok := res.InsertedID().(string)
	if !ok {
		return "", fmt.Errorf("docstore/mongo: %s got a non-string id %v", collection, res.InsertedID())
	}
	return id, nil
}

// Update is a single UpdateOne whose filter carries the expected version,
// so the write either lands on that version or not at all.
func (s *MongoStore) Update(ctx context.Context, collection, id string, version int64, fields Fields) error {
	coll := s.db.Collection(collection)

	filter := bson.M{IDField: id}
	if version != AnyVersion {
		filter[VersionField] = version
	}
	set := bson.M{}
	for k, v := range fields {
		if k == IDField || k == VersionField {
			continue
		}
		set[k] = v
	}
	update := bson.M{"$inc": bson.M{VersionField: 1}}
	if len(set) > 0 {
		update["$set"] = set
	}

	res, err := coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("docstore/mongo: failed updating %s/%s: %w", collection, id, err)
	}
	if res.MatchedCount() > 0 {
		return nil
	}
	if version == AnyVersion {
		return ErrNotFound
	}

	// Nothing matched: either the document is gone or its version moved on.
	if _, err := s.Get(ctx, collection, id); err != nil {
		return err
	}
	return ErrConflict
}

func (s *MongoStore) Delete(ctx context.Context, collection, id string) error {
	res, err := s.db.Collection(collection).DeleteOne(ctx, bson.M{IDField: id})
	if err != nil {
		return fmt.Errorf("docstore/mongo: failed deleting %s/%s: %w", collection, id, err)
	}
	if res.DeletedCount() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) List(ctx context.Context, collection string) ([]Document, error) {
	return s.find(ctx, collection, bson.M{})
}

func (s *MongoStore) QueryEqual(ctx context.Context, collection, field string, value interface{}) ([]Document, error) {
	return s.find(ctx, collection, bson.M{field: value})
}

func (s *MongoStore) QueryArrayContains(ctx context.Context, collection, field string, value interface{}) ([]Document, error) {
	filter := bson.M{field: bson.M{"$elemMatch": bson.M{"$eq": value}}}
	return s.find(ctx, collection, filter)
}

func (s *MongoStore) find(ctx context.Context, collection string, filter interface{}) ([]Document, error) {
	cursor, err := s.db.Collection(collection).Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("docstore/mongo: failed finding in %s: %w", collection, err)
	}
	defer cursor.Close(ctx)

	docs := []bson.Raw{}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("docstore/mongo: failed reading cursor of %s: %w", collection, err)
	}
	return docs, nil
}
