package entrypoint

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/booksdb/internal/config"
	"github.com/mrlokans/booksdb/internal/demo"
	http_controllers "github.com/mrlokans/booksdb/internal/http"
	"github.com/mrlokans/booksdb/internal/scheduler"
	"github.com/mrlokans/booksdb/internal/tasks"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

func Serve(router *gin.Engine, cfg *config.Config, onShutdown ShutdownFunc) {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler: router,
	}

	go func() {
		log.Printf("Starting server at %s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// kill -9 cannot be caught, so only SIGINT and SIGTERM are handled
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("Shutdown Server, waiting %v before killing\n", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server Shutdown: %v", err)
	}

	// Stop background work after the last request has drained.
	if onShutdown != nil {
		onShutdown(ctx)
	}

	log.Println("Server exiting")
}

// Background holds the reconciliation queue and its schedule. Both are nil for backends
// that compute averages on read.
type Background struct {
	Tasks     *tasks.Client
	Scheduler *scheduler.ReconcileScheduler
	cancel    context.CancelFunc
}

// StartBackground starts the task queue and the reconcile schedule when the backend
// has a reconciler.
func StartBackground(cfg *config.Config, reconciler tasks.RatingReconciler) (*Background, error) {
	bg := &Background{}

	if reconciler == nil {
		log.Printf("Rating reconciliation: not needed for the %s backend", cfg.Database.Backend)
		return bg, nil
	}
	if !cfg.Tasks.Enabled {
		log.Printf("Rating reconciliation: task queue disabled")
		return bg, nil
	}

	client, err := tasks.NewClient(cfg.Tasks.DBPath, tasks.Config{
		Workers:         cfg.Tasks.Workers,
		ReleaseAfter:    cfg.Tasks.ReleaseAfter,
		CleanupInterval: cfg.Tasks.CleanupInterval,
	}, reconciler)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize task queue: %w", err)
	}
	bg.Tasks = client

	var ctx context.Context
	ctx, bg.cancel = context.WithCancel(context.Background())
	client.Start(ctx)

	if cfg.Reconcile.Enabled {
		bg.Scheduler = scheduler.NewReconcileScheduler(client, cfg.Reconcile.Schedule)
		if err := bg.Scheduler.Start(ctx); err != nil {
			bg.Stop(context.Background())
			return nil, err
		}
	}
	return bg, nil
}

// Stop is safe on a Background that never started anything.
func (b *Background) Stop(ctx context.Context) {
	if b.Scheduler != nil {
		b.Scheduler.Stop()
	}
	if b.Tasks != nil {
		b.Tasks.Stop(ctx)
		if err := b.Tasks.Close(); err != nil {
			log.Printf("Error closing task client: %v", err)
		}
	}
	if b.cancel != nil {
		b.cancel()
	}
}

func Run(cfg *config.Config, version string) {
	log.Printf("Starting booksdb v%s", version)

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	ctx := context.Background()
	backend, err := OpenStore(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to connect catalog: %v", err)
	}
	store := backend.Store
	defer func() {
		if err := store.Disconnect(context.Background()); err != nil {
			log.Printf("Error disconnecting catalog: %v", err)
		}
	}()

	if cfg.Demo.Seed {
		if _, err := demo.Seed(ctx, store); err != nil {
			log.Fatalf("Failed to seed demo catalog: %v", err)
		}
	}
	if cfg.Demo.ReadOnly {
		log.Printf("Demo mode enabled - write operations will be blocked")
	}

	bg, err := StartBackground(cfg, backend.Reconciler)
	if err != nil {
		log.Fatalf("Failed to start background jobs: %v", err)
	}

	router := http_controllers.NewRouter(http_controllers.RouterConfig{
		Catalog:  store,
		Backend:  string(cfg.Database.Backend),
		ReadOnly: cfg.Demo.ReadOnly,
	})

	Serve(router, cfg, bg.Stop)
}
