package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/aluiziolira/go-scrape-adidas/models"
)

// MongoSink inserts each record independently into a per-kind collection,
// tagged with the run timestamp. No batching or transactions.
type MongoSink struct {
	client *mongo.Client
	db     *mongo.Database
	runAt  time.Time
	count  int
}

// NewMongoSink connects to the database and verifies the connection.
func NewMongoSink(uri, database string, runAt time.Time) (*MongoSink, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongodb connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("mongodb ping: %w", err)
	}

	return &MongoSink{
		client: client,
		db:     client.Database(database),
		runAt:  runAt,
	}, nil
}

// Write inserts one document per record.
func (s *MongoSink) Write(records []models.Record) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, r := range records {
		doc, err := recordDocument(r, s.runAt)
		if err != nil {
			return err
		}
		coll := s.db.Collection(collectionName(r.Kind()))
		if _, err := coll.InsertOne(ctx, doc); err != nil {
			return fmt.Errorf("insert %s record: %w", r.Kind(), err)
		}
		s.count++
	}
	return nil
}

// Close disconnects from the database.
func (s *MongoSink) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("mongodb disconnect: %w", err)
	}
	return nil
}

// Validate ensures at least one document was inserted.
func (s *MongoSink) Validate() error {
	if s.count == 0 {
		return fmt.Errorf("mongo sink inserted no documents")
	}
	return nil
}

// recordDocument flattens a record through its JSON form so the stored field
// names match the file exports, then adds the run tag.
func recordDocument(r models.Record, runAt time.Time) (bson.M, error) {
	raw, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("marshal %s record: %w", r.Kind(), err)
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("decode %s record: %w", r.Kind(), err)
	}

	doc := bson.M{"_run_at": runAt}
	for k, v := range fields {
		doc[k] = v
	}
	return doc, nil
}

func collectionName(kind models.RecordKind) string {
	return strings.ReplaceAll(string(kind), "-", "_")
}
