package storage

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"blockpad/internal/domain"
)

const mongoTimeout = 10 * time.Second

type mongoDocument struct {
	ID        string    `bson:"_id"`
	Title     string    `bson:"title"`
	Markup    string    `bson:"markup,omitempty"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

func (m mongoDocument) saved() domain.SavedDocument {
	return domain.SavedDocument{
		ID:        m.ID,
		Title:     m.Title,
		Markup:    m.Markup,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// MongoStore implements domain.DocumentStore on a MongoDB collection.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// NewMongoStore connects to uri and uses the "documents" collection of
// database.
func NewMongoStore(ctx context.Context, uri, database string) (*MongoStore, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, mongoTimeout)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	log.Printf("[MONGO] document store on database %s", database)
	return &MongoStore{client: client, coll: client.Database(database).Collection("documents")}, nil
}

func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), mongoTimeout)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (s *MongoStore) CreateDocument(d *domain.SavedDocument) error {
	ctx, cancel := context.WithTimeout(context.Background(), mongoTimeout)
	defer cancel()
	now := time.Now().UTC().Truncate(time.Millisecond)
	d.CreatedAt = now
	d.UpdatedAt = now
	_, err := s.coll.InsertOne(ctx, mongoDocument{
		ID: d.ID, Title: d.Title, Markup: d.Markup, CreatedAt: now, UpdatedAt: now,
	})
	if err != nil {
		return fmt.Errorf("create document: %w", err)
	}
	return nil
}

func (s *MongoStore) GetDocument(id string) (*domain.SavedDocument, error) {
	ctx, cancel := context.WithTimeout(context.Background(), mongoTimeout)
	defer cancel()
	var m mongoDocument
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&m)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("get document %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	d := m.saved()
	return &d, nil
}

func (s *MongoStore) ListDocuments() ([]domain.SavedDocument, error) {
	ctx, cancel := context.WithTimeout(context.Background(), mongoTimeout)
	defer cancel()
	opts := options.Find().
		SetSort(bson.D{{Key: "updated_at", Value: -1}}).
		SetProjection(bson.M{"markup": 0})
	cur, err := s.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer cur.Close(ctx)

	var docs []domain.SavedDocument
	for cur.Next(ctx) {
		var m mongoDocument
		if err := cur.Decode(&m); err != nil {
			return nil, fmt.Errorf("decode document: %w", err)
		}
		docs = append(docs, m.saved())
	}
	return docs, cur.Err()
}

func (s *MongoStore) UpdateDocument(d *domain.SavedDocument) error {
	ctx, cancel := context.WithTimeout(context.Background(), mongoTimeout)
	defer cancel()
	d.UpdatedAt = time.Now().UTC().Truncate(time.Millisecond)
	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": d.ID}, bson.M{"$set": bson.M{
		"title":      d.Title,
		"markup":     d.Markup,
		"updated_at": d.UpdatedAt,
	}})
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("update document %s: %w", d.ID, ErrNotFound)
	}
	return nil
}

func (s *MongoStore) DeleteDocument(id string) error {
	ctx, cancel := context.WithTimeout(context.Background(), mongoTimeout)
	defer cancel()
	if _, err := s.coll.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}
