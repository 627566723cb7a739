package cli

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/mrlokans/booksdb/internal/config"
	"github.com/mrlokans/booksdb/internal/entrypoint"
	"github.com/mrlokans/booksdb/internal/tasks"
)

// ReconcileCommand recomputes stored average ratings, either inline or through the task queue.
type ReconcileCommand struct {
	cfg    *config.Config
	BookID int
	Now    bool
}

func NewReconcileCommand(cfg *config.Config) *ReconcileCommand {
	return &ReconcileCommand{cfg: cfg}
}

func (cmd *ReconcileCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("reconcile", flag.ExitOnError)
	bindCatalogFlags(fs, cmd.cfg)
	fs.IntVar(&cmd.BookID, "book", 0, "Only reconcile this book id (0 means every book)")
	fs.BoolVar(&cmd.Now, "now", false, "Recompute immediately instead of enqueuing a task")
	fs.StringVar(&cmd.cfg.Tasks.DBPath, "tasks-db", cmd.cfg.Tasks.DBPath, "Path to the task queue database")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s reconcile [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Recompute stored average ratings for the document backend.\n")
		fmt.Fprintf(os.Stderr, "By default a task is enqueued for the server's workers.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s reconcile\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s reconcile -now -book 7\n", os.Args[0])
	}

	return fs.Parse(args)
}

func (cmd *ReconcileCommand) Run() error {
	if err := cmd.cfg.Validate(); err != nil {
		return err
	}
	if cmd.BookID < 0 {
		return fmt.Errorf("invalid book id %d", cmd.BookID)
	}

	if !cmd.Now {
		return cmd.enqueue()
	}

	ctx := context.Background()
	backend, err := entrypoint.OpenStore(ctx, cmd.cfg)
	if err != nil {
		return fmt.Errorf("failed to connect catalog: %w", err)
	}
	defer backend.Store.Disconnect(context.Background())

	reconciler := backend.Reconciler
	if reconciler == nil {
		return fmt.Errorf("the %s backend computes averages on read, nothing to reconcile", cmd.cfg.Database.Backend)
	}

	if cmd.BookID > 0 {
		avg, err := reconciler.RecomputeAverage(ctx, cmd.BookID)
		if err != nil {
			return err
		}
		fmt.Printf("Book %d average rating: %.2f\n", cmd.BookID, avg)
		return nil
	}

	fixed, err := reconciler.RecomputeAllAverages(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Corrected average rating on %d books.\n", fixed)
	return nil
}

func (cmd *ReconcileCommand) enqueue() error {
	if cmd.cfg.Database.Backend != config.BackendDocument {
		return fmt.Errorf("the %s backend computes averages on read, nothing to reconcile", cmd.cfg.Database.Backend)
	}

	client, err := tasks.NewClient(cmd.cfg.Tasks.DBPath, tasks.Config{
		Workers:         cmd.cfg.Tasks.Workers,
		ReleaseAfter:    cmd.cfg.Tasks.ReleaseAfter,
		CleanupInterval: cmd.cfg.Tasks.CleanupInterval,
	}, nil)
	if err != nil {
		return err
	}
	defer client.Close()

	id, err := client.EnqueueReconcile(cmd.BookID)
	if err != nil {
		return err
	}
	fmt.Printf("Enqueued reconciliation task %s\n", id)
	return nil
}
