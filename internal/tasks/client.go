package tasks

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/mikestefanello/backlite"
)

// Client runs rating reconciliation through a backlite queue persisted in its own
// SQLite file. The task store is SQLite whichever catalog backend is configured.
type Client struct {
	queue   *backlite.Client
	db      *sql.DB
	workers int

	mu      sync.Mutex
	running bool
}

// NewClient opens (or creates) the task store at path and registers the reconcile queue.
// A nil reconciler gives an enqueue-only client whose tasks are run by another process.
func NewClient(path string, cfg Config, reconciler RatingReconciler) (*Client, error) {
	db, err := openTaskStore(path, cfg.Workers)
	if err != nil {
		return nil, err
	}

	queue, err := backlite.NewClient(backlite.ClientConfig{
		DB:              db,
		NumWorkers:      cfg.Workers,
		ReleaseAfter:    cfg.ReleaseAfter,
		CleanupInterval: cfg.CleanupInterval,
		Logger:          taskLogger{},
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create task client: %w", err)
	}
	if err := queue.Install(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to install task schema: %w", err)
	}
	queue.Register(backlite.NewQueue(ReconcileRatingsProcessor(reconciler)))

	return &Client{queue: queue, db: db, workers: cfg.Workers}, nil
}

func openTaskStore(path string, workers int) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create tasks directory: %w", err)
	}
	db, err := sql.Open("sqlite3", path+"?_journal=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open tasks database: %w", err)
	}
	db.SetMaxOpenConns(workers + 2)
	db.SetMaxIdleConns(workers + 1)
	db.SetConnMaxLifetime(time.Hour)
	return db, nil
}

// Start launches the workers and returns; calling it twice is a no-op.
func (c *Client) Start(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return
	}
	c.running = true
	c.queue.Start(ctx)
	log.Printf("[TASK] Reconcile queue running with %d workers", c.workers)
}

// Stop waits for in-flight reconciliations and reports false if ctx expired first.
func (c *Client) Stop(ctx context.Context) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return true
	}
	c.running = false

	if !c.queue.Stop(ctx) {
		log.Println("[TASK] Reconcile queue stop timed out")
		return false
	}
	log.Println("[TASK] Reconcile queue stopped")
	return true
}

func (c *Client) Close() error {
	return c.db.Close()
}

// EnqueueReconcile queues a reconciliation for one book, or for all books when bookID is 0.
func (c *Client) EnqueueReconcile(bookID int) (string, error) {
	ids, err := c.queue.Add(ReconcileRatingsTask{BookID: bookID}).Save()
	if err != nil {
		return "", fmt.Errorf("failed to enqueue rating reconciliation: %w", err)
	}
	if len(ids) == 0 {
		return "", fmt.Errorf("failed to enqueue rating reconciliation: no task id returned")
	}
	return ids[0], nil
}

type taskLogger struct{}

func (taskLogger) Info(message string, params ...any) {
	log.Printf("[TASK] "+message, params...)
}

func (taskLogger) Error(message string, params ...any) {
	log.Printf("[TASK ERROR] "+message, params...)
}
