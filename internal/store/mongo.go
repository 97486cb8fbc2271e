package store

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// MongoConfig mirrors the connection-pool settings the teacher's
// pkg/database.Config carries for Postgres, applied here to the document
// store (spec.md §5: bounded pool, default 32 connections, fair FIFO
// acquisition — the driver's own default queuing behavior).
type MongoConfig struct {
	URI         string
	Database    string
	MaxPoolSize uint64
}

// MongoStore implements Store against a MongoDB-compatible deployment via
// the official v2 driver.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

// NewMongoStore connects and verifies the deployment is reachable.
func NewMongoStore(ctx context.Context, cfg MongoConfig) (*MongoStore, error) {
	maxPool := cfg.MaxPoolSize
	if maxPool == 0 {
		maxPool = 32
	}
	opts := options.Client().ApplyURI(cfg.URI).SetMaxPoolSize(maxPool)
	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("store: connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	return &MongoStore{client: client, db: client.Database(cfg.Database)}, nil
}

// Close disconnects the underlying client, draining in-flight operations.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *MongoStore) Aggregate(ctx context.Context, collection string, pipeline []any) ([]Document, error) {
	cursor, err := s.db.Collection(collection).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("store: aggregate: %w", err)
	}
	defer cursor.Close(ctx)

	var out []Document
	for cursor.Next(ctx) {
		var doc bson.M
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("store: decode: %w", err)
		}
		out = append(out, Document(doc))
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("store: cursor: %w", err)
	}
	return out, nil
}

func (s *MongoStore) Count(ctx context.Context, collection string, filter any) (int64, error) {
	if filter == nil {
		filter = bson.D{}
	}
	n, err := s.db.Collection(collection).CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("store: count: %w", err)
	}
	return n, nil
}

func (s *MongoStore) FindOne(ctx context.Context, collection string, filter any, projection any) (Document, error) {
	if filter == nil {
		filter = bson.D{}
	}
	opts := options.FindOne()
	if projection != nil {
		opts.SetProjection(projection)
	}
	var doc bson.M
	err := s.db.Collection(collection).FindOne(ctx, filter, opts).Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("store: find_one: %w", err)
	}
	return Document(doc), nil
}

func (s *MongoStore) UpdateOne(ctx context.Context, collection string, filter any, update any, upsert bool) (UpdateAck, error) {
	if filter == nil {
		filter = bson.D{}
	}
	opts := options.UpdateOne().SetUpsert(upsert)
	res, err := s.db.Collection(collection).UpdateOne(ctx, filter, update, opts)
	if err != nil {
		return UpdateAck{}, fmt.Errorf("store: update_one: %w", err)
	}
	return UpdateAck{
		MatchedCount:  res.MatchedCount,
		ModifiedCount: res.ModifiedCount,
		UpsertedID:    res.UpsertedID,
	}, nil
}
