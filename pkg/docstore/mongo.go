package docstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore implements Store on top of a Mongo database. Collections map to
// Mongo collections and document ids are stored under _id.
type MongoStore struct {
	db *mongo.Database
}

// NewMongoStore creates a MongoStore over an already-connected database.
func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{db: db}
}

func (s *MongoStore) Get(ctx context.Context, collection, id string) (*Document, error) {
	var raw bson.M
	err := s.db.Collection(collection).FindOne(ctx, bson.M{"_id": id}).Decode(&raw)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("docstore: get %s/%s: %w", collection, id, err)
	}
	return docFromRaw(id, raw), nil
}

func (s *MongoStore) Query(ctx context.Context, collection string, filters []Filter, opts *QueryOptions) ([]Document, error) {
	match := bson.M{}
	for _, f := range filters {
		match[f.Field] = f.Value
	}
	findOpts := options.Find()
	if opts != nil {
		if opts.OrderBy != "" {
			dir := 1
			if opts.Descending {
				dir = -1
			}
			findOpts.SetSort(bson.D{{Key: opts.OrderBy, Value: dir}})
		}
		if opts.Limit > 0 {
			findOpts.SetLimit(int64(opts.Limit))
		}
	}
	cursor, err := s.db.Collection(collection).Find(ctx, match, findOpts)
	if err != nil {
		return nil, fmt.Errorf("docstore: query %s: %w", collection, err)
	}
	defer cursor.Close(ctx)

	var docs []Document
	for cursor.Next(ctx) {
		var raw bson.M
		if err := cursor.Decode(&raw); err != nil {
			return nil, fmt.Errorf("docstore: decode %s: %w", collection, err)
		}
		id, _ := raw["_id"].(string)
		docs = append(docs, *docFromRaw(id, raw))
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("docstore: iterate %s: %w", collection, err)
	}
	return docs, nil
}

func (s *MongoStore) Create(ctx context.Context, collection string, fields map[string]any) (string, error) {
	id := uuid.NewString()
	doc := resolveTimestamps(fields)
	doc["_id"] = id
	if _, err := s.db.Collection(collection).InsertOne(ctx, doc); err != nil {
		return "", fmt.Errorf("docstore: create %s: %w", collection, err)
	}
	return id, nil
}

func (s *MongoStore) Set(ctx context.Context, collection, id string, fields map[string]any) error {
	doc := resolveTimestamps(fields)
	opts := options.Replace().SetUpsert(true)
	if _, err := s.db.Collection(collection).ReplaceOne(ctx, bson.M{"_id": id}, doc, opts); err != nil {
		return fmt.Errorf("docstore: set %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *MongoStore) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	doc := resolveTimestamps(fields)
	res, err := s.db.Collection(collection).UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": doc})
	if err != nil {
		return fmt.Errorf("docstore: update %s/%s: %w", collection, id, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) ArrayUnion(ctx context.Context, collection, id, field string, element any) error {
	res, err := s.db.Collection(collection).UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$addToSet": bson.M{field: element}})
	if err != nil {
		return fmt.Errorf("docstore: array union %s/%s.%s: %w", collection, id, field, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// resolveTimestamps replaces ServerTimestamp sentinels with the commit time.
// Sentinels only appear at the top level of a write.
func resolveTimestamps(fields map[string]any) map[string]any {
	now := time.Now().UTC()
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		if _, ok := v.(serverTimestamp); ok {
			out[k] = now
			continue
		}
		out[k] = v
	}
	return out
}

// docFromRaw strips the _id and rewrites driver-native containers into the
// plain map/slice shapes the field helpers expect. Datetimes stay as
// primitive.DateTime, which the timestamp normalizer converts.
func docFromRaw(id string, raw bson.M) *Document {
	fields := make(map[string]any, len(raw))
	for k, v := range raw {
		if k == "_id" {
			continue
		}
		fields[k] = normalizeValue(v)
	}
	return &Document{ID: id, Fields: fields}
}

func normalizeValue(v any) any {
	switch t := v.(type) {
	case bson.M:
		m := make(map[string]any, len(t))
		for k, e := range t {
			m[k] = normalizeValue(e)
		}
		return m
	case bson.D:
		m := make(map[string]any, len(t))
		for _, e := range t {
			m[e.Key] = normalizeValue(e.Value)
		}
		return m
	case primitive.A:
		s := make([]any, len(t))
		for i, e := range t {
			s[i] = normalizeValue(e)
		}
		return s
	default:
		return v
	}
}
