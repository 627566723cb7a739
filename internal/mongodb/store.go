// Package mongodb is the document catalog backend.
//
// A book is one document holding snapshots of its authors and genres plus its
// ratings, reviews and a stored average_rating. Numeric ids come from a single
// counter document incremented atomically with findAndModify.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"

	"github.com/mrlokans/booksdb/internal/catalog"
)

const DefaultDatabase = "booksdb"

type Options struct {
	// Bootstrap creates the counter document and indexes at connect time.
	Bootstrap      bool
	ConnectTimeout time.Duration
	// Database is used when the locator does not name one.
	Database string
}

func DefaultOptions() Options {
	return Options{
		Bootstrap:      true,
		ConnectTimeout: 10 * time.Second,
		Database:       DefaultDatabase,
	}
}

type Store struct {
	opts Options

	mu     sync.RWMutex
	client *mongo.Client
	db     *mongo.Database
}

var _ catalog.Store = (*Store)(nil)

func New(opts Options) *Store {
	if opts.Database == "" {
		opts.Database = DefaultDatabase
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = 10 * time.Second
	}
	return &Store{opts: opts}
}

// attach adopts an existing client. Connect is the normal entry point.
func (s *Store) attach(client *mongo.Client, dbName string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.client = client
	s.db = client.Database(dbName)
}

func (s *Store) Connect(ctx context.Context, locator string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client != nil {
		if err := s.client.Disconnect(ctx); err != nil {
			log.Printf("Failed to close previous MongoDB client: %v", err)
		}
		s.client, s.db = nil, nil
	}

	locator = strings.TrimSpace(locator)
	if !strings.HasPrefix(locator, "mongodb://") && !strings.HasPrefix(locator, "mongodb+srv://") {
		return catalog.ConnectionError("unsupported database locator",
			errors.New("expected a mongodb:// or mongodb+srv:// URI"))
	}
	cs, err := connstring.ParseAndValidate(locator)
	if err != nil {
		return catalog.ConnectionError("invalid MongoDB URI", err)
	}
	dbName := cs.Database
	if dbName == "" {
		dbName = s.opts.Database
	}

	connectCtx, cancel := context.WithTimeout(ctx, s.opts.ConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(locator))
	if err != nil {
		return catalog.ConnectionError("failed to connect to MongoDB", err)
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		client.Disconnect(ctx)
		return catalog.ConnectionError("MongoDB is not reachable", err)
	}

	db := client.Database(dbName)
	if s.opts.Bootstrap {
		if err := bootstrap(ctx, db); err != nil {
			client.Disconnect(ctx)
			return catalog.ConnectionError("failed to bootstrap MongoDB", err)
		}
	}

	s.client, s.db = client, db
	log.Printf("Document catalog connected (database %s)", dbName)
	return nil
}

func (s *Store) Disconnect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client == nil {
		return nil
	}
	err := s.client.Disconnect(ctx)
	s.client, s.db = nil, nil
	if err != nil {
		return catalog.ConnectionError("failed to close MongoDB client", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	db := s.database()
	if db == nil {
		return catalog.ConnectionError("not connected", catalog.ErrNotConnected)
	}
	if err := db.RunCommand(ctx, bson.D{{Key: "ping", Value: 1}}).Err(); err != nil {
		return catalog.ConnectionError("MongoDB is not reachable", err)
	}
	return nil
}

func (s *Store) database() *mongo.Database {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.db
}

func (s *Store) readDB() (*mongo.Database, error) {
	db := s.database()
	if db == nil {
		return nil, catalog.SelectError("not connected", catalog.ErrNotConnected)
	}
	return db, nil
}

func (s *Store) writeDB() (*mongo.Database, error) {
	db := s.database()
	if db == nil {
		return nil, catalog.InsertError("not connected", catalog.ErrNotConnected)
	}
	return db, nil
}

// nextID draws the next value of a sequence in the counter document.
// The counter is never created here: the filter requires the field, so a missing
// document or field matches nothing and leaves the counter untouched.
func nextID(ctx context.Context, db *mongo.Database, field string) (int, error) {
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.Before).
		SetUpsert(false)

	var before bson.M
	err := db.Collection(colCounters).FindOneAndUpdate(ctx,
		counterFilter(field),
		bson.D{{Key: "$inc", Value: bson.D{{Key: field, Value: 1}}}},
		opts,
	).Decode(&before)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, catalog.InsertError(fmt.Sprintf("counter %s is missing", field), catalog.ErrNotFound)
	}
	if err != nil {
		return 0, catalog.InsertError("failed to allocate id", err)
	}

	id, ok := toInt(before[field])
	if !ok {
		return 0, catalog.InsertError(fmt.Sprintf("counter field %s is not a number", field), catalog.ErrNotFound)
	}
	return id, nil
}

func counterFilter(field string) bson.D {
	return bson.D{
		{Key: "_id", Value: counterDocID},
		{Key: field, Value: bson.D{{Key: "$exists", Value: true}}},
	}
}

func toInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case int:
		return n, true
	case float64:
		if n != float64(int64(n)) {
			return 0, false
		}
		return int(n), true
	default:
		return 0, false
	}
}
