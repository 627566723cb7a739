package entrypoint

import (
	"context"
	"fmt"
	"log"

	"github.com/mrlokans/booksdb/internal/catalog"
	"github.com/mrlokans/booksdb/internal/config"
	"github.com/mrlokans/booksdb/internal/database"
	"github.com/mrlokans/booksdb/internal/mongodb"
	"github.com/mrlokans/booksdb/internal/tasks"
)

// Backend is the configured catalog store plus the reconciler that keeps its stored
// averages honest. Reconciler is nil for backends that compute averages on read.
type Backend struct {
	Store      catalog.Store
	Reconciler tasks.RatingReconciler
}

// NewStore builds the catalog backend selected by BOOKS_BACKEND without connecting it.
func NewStore(cfg *config.Config) (*Backend, error) {
	switch cfg.Database.Backend {
	case config.BackendRelational:
		opts := database.DefaultOptions()
		opts.LogLevel = database.ParseLogLevel(cfg.Database.LogLevel)
		opts.AutoMigrate = cfg.Database.Bootstrap
		return &Backend{Store: database.New(opts)}, nil
	case config.BackendDocument:
		opts := mongodb.DefaultOptions()
		opts.Bootstrap = cfg.Database.Bootstrap
		store := mongodb.New(opts)
		return &Backend{Store: store, Reconciler: store}, nil
	default:
		return nil, fmt.Errorf("unsupported backend %q", cfg.Database.Backend)
	}
}

// OpenStore builds and connects the configured backend.
func OpenStore(ctx context.Context, cfg *config.Config) (*Backend, error) {
	backend, err := NewStore(cfg)
	if err != nil {
		return nil, err
	}
	if err := backend.Store.Connect(ctx, cfg.Database.URL); err != nil {
		return nil, err
	}
	log.Printf("Catalog backend: %s", cfg.Database.Backend)
	return backend, nil
}
