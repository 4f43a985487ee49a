package credentials

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// StoreConfig carries the MongoDB connection settings for the credential
// store. Zero values fall back to local defaults.
type StoreConfig struct {
	URI        string
	Database   string
	Collection string
}

func (c StoreConfig) withDefaults() StoreConfig {
	if c.URI == "" {
		c.URI = "mongodb://localhost:27017"
	}
	if c.Database == "" {
		c.Database = "stackpilot"
	}
	if c.Collection == "" {
		c.Collection = "aws_credentials"
	}
	return c
}

// Store is a MongoDB-backed credential record keeper. The connection is built
// lazily on first use and reused; Reset drops it so tests can repoint the
// store. The newest document with type "aws" and active true wins.
type Store struct {
	cfg StoreConfig

	mu     sync.Mutex
	client *mongo.Client
	coll   *mongo.Collection
}

// NewStore builds a store; no connection is made until the first operation.
func NewStore(cfg StoreConfig) *Store {
	return &Store{cfg: cfg.withDefaults()}
}

func (s *Store) collection(ctx context.Context) (*mongo.Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.coll != nil {
		return s.coll, nil
	}

	connectCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(s.cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("connecting to credential store: %w", err)
	}
	s.client = client
	s.coll = client.Database(s.cfg.Database).Collection(s.cfg.Collection)
	return s.coll, nil
}

// Reset disconnects and clears the cached collection.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client == nil {
		return nil
	}
	err := s.client.Disconnect(ctx)
	s.client = nil
	s.coll = nil
	return err
}

type record struct {
	AccessKeyID        string    `bson:"access_key_id,omitempty"`
	SecretAccessKey    string    `bson:"secret_access_key,omitempty"`
	SessionToken       string    `bson:"session_token,omitempty"`
	AwsAccessKeyID     string    `bson:"aws_access_key_id,omitempty"`
	AwsSecretAccessKey string    `bson:"aws_secret_access_key,omitempty"`
	AwsSessionToken    string    `bson:"aws_session_token,omitempty"`
	UpdatedAt          time.Time `bson:"updated_at,omitempty"`
}

func (r record) set() Set {
	out := Set{
		AccessKeyID:     r.AccessKeyID,
		SecretAccessKey: r.SecretAccessKey,
		SessionToken:    r.SessionToken,
	}
	if out.AccessKeyID == "" {
		out.AccessKeyID = r.AwsAccessKeyID
	}
	if out.SecretAccessKey == "" {
		out.SecretAccessKey = r.AwsSecretAccessKey
	}
	if out.SessionToken == "" {
		out.SessionToken = r.AwsSessionToken
	}
	return out
}

// Resolve implements Resolver: the environment override wins, then the
// newest active stored document.
func (s *Store) Resolve(ctx context.Context) (Set, error) {
	if set, ok, err := FromEnvOverride(); err != nil {
		return Set{}, err
	} else if ok {
		return set, nil
	}

	coll, err := s.collection(ctx)
	if err != nil {
		return Set{}, fmt.Errorf("%w: %v", ErrMissing, err)
	}

	var rec record
	err = coll.FindOne(ctx,
		bson.M{"type": "aws", "active": true},
		options.FindOne().SetSort(bson.D{{Key: "updated_at", Value: -1}}),
	).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Set{}, fmt.Errorf("%w: none stored; add them via the credentials command", ErrMissing)
	}
	if err != nil {
		return Set{}, fmt.Errorf("%w: %v", ErrMissing, err)
	}

	set := rec.set()
	if set.AccessKeyID == "" || set.SecretAccessKey == "" {
		return Set{}, fmt.Errorf("%w: stored AWS credentials are incomplete", ErrMissing)
	}
	return set, nil
}

// Save stores a credential set as the single active record, deactivating any
// previous ones.
func (s *Store) Save(ctx context.Context, set Set) error {
	if set.AccessKeyID == "" || set.SecretAccessKey == "" {
		return fmt.Errorf("%w: both access key and secret key are required", ErrMissing)
	}
	coll, err := s.collection(ctx)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	if _, err := coll.UpdateMany(ctx,
		bson.M{"type": "aws"},
		bson.M{"$set": bson.M{"active": false}},
	); err != nil {
		return fmt.Errorf("deactivating previous credentials: %w", err)
	}
	_, err = coll.InsertOne(ctx, bson.M{
		"type":              "aws",
		"access_key_id":     set.AccessKeyID,
		"secret_access_key": set.SecretAccessKey,
		"session_token":     set.SessionToken,
		"active":            true,
		"updated_at":        now,
		"created_at":        now,
	})
	if err != nil {
		return fmt.Errorf("storing credentials: %w", err)
	}
	return nil
}

// Status describes the stored credentials without exposing secret material.
type Status struct {
	Present           bool   `json:"present"`
	UpdatedAt         string `json:"updated_at,omitempty"`
	AccessKeyLastFour string `json:"access_key_last_four,omitempty"`
}

// Status reports whether an active credential record exists, with masked
// metadata only.
func (s *Store) Status(ctx context.Context) (Status, error) {
	coll, err := s.collection(ctx)
	if err != nil {
		return Status{}, err
	}

	var rec record
	err = coll.FindOne(ctx,
		bson.M{"type": "aws", "active": true},
		options.FindOne().SetSort(bson.D{{Key: "updated_at", Value: -1}}),
	).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Status{Present: false}, nil
	}
	if err != nil {
		return Status{}, err
	}

	status := Status{Present: true}
	if !rec.UpdatedAt.IsZero() {
		status.UpdatedAt = rec.UpdatedAt.UTC().Format(time.RFC3339)
	}
	if key := rec.set().AccessKeyID; len(key) >= 4 {
		status.AccessKeyLastFour = key[len(key)-4:]
	}
	return status, nil
}
