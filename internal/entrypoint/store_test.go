package entrypoint

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/booksdb/internal/catalog"
	"github.com/mrlokans/booksdb/internal/config"
	"github.com/mrlokans/booksdb/internal/database"
	"github.com/mrlokans/booksdb/internal/mongodb"
)

func TestNewStore(t *testing.T) {
	cfg := config.NewConfig()

	cfg.Database.Backend = config.BackendRelational
	backend, err := NewStore(cfg)
	require.NoError(t, err)
	assert.IsType(t, &database.Database{}, backend.Store)
	assert.Nil(t, backend.Reconciler)

	cfg.Database.Backend = config.BackendDocument
	backend, err = NewStore(cfg)
	require.NoError(t, err)
	assert.IsType(t, &mongodb.Store{}, backend.Store)
	require.NotNil(t, backend.Reconciler)
	assert.Same(t, backend.Store, backend.Reconciler)

	cfg.Database.Backend = "graph"
	_, err = NewStore(cfg)
	assert.Error(t, err)
}

func TestOpenStore_Relational(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Database.Backend = config.BackendRelational
	cfg.Database.URL = "sqlite:" + filepath.Join(t.TempDir(), "books.db")
	cfg.Database.LogLevel = "silent"
	ctx := context.Background()

	backend, err := OpenStore(ctx, cfg)
	require.NoError(t, err)
	defer backend.Store.Disconnect(ctx)

	assert.NoError(t, backend.Store.Ping(ctx))
}

func TestOpenStore_RelationalWithoutBootstrapSkipsMigration(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Database.Backend = config.BackendRelational
	cfg.Database.URL = "sqlite:" + filepath.Join(t.TempDir(), "books.db")
	cfg.Database.LogLevel = "silent"
	cfg.Database.Bootstrap = false
	ctx := context.Background()

	backend, err := OpenStore(ctx, cfg)
	require.NoError(t, err)
	defer backend.Store.Disconnect(ctx)

	_, err = backend.Store.FindBooksByTitle(ctx, "java")
	assert.ErrorIs(t, err, catalog.ErrSelect)
}

func TestOpenStore_BadLocator(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Database.Backend = config.BackendDocument
	cfg.Database.URL = "sqlite:./books.db"

	_, err := OpenStore(context.Background(), cfg)
	assert.Error(t, err)
}
