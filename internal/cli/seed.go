package cli

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/mrlokans/booksdb/internal/config"
	"github.com/mrlokans/booksdb/internal/demo"
	"github.com/mrlokans/booksdb/internal/entrypoint"
)

// SeedCommand loads the demo catalog into the configured backend.
type SeedCommand struct {
	cfg *config.Config
}

func NewSeedCommand(cfg *config.Config) *SeedCommand {
	return &SeedCommand{cfg: cfg}
}

func (cmd *SeedCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("seed", flag.ExitOnError)
	bindCatalogFlags(fs, cmd.cfg)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s seed [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Load the sample catalog (3 users, 8 authors, 7 genres, 6 books).\n")
		fmt.Fprintf(os.Stderr, "Does nothing when the sample books are already present.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s seed -db sqlite:./books.db\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s seed -backend document -db mongodb://localhost:27017/booksdb\n", os.Args[0])
	}

	return fs.Parse(args)
}

func (cmd *SeedCommand) Run() error {
	if err := cmd.cfg.Validate(); err != nil {
		return err
	}

	ctx := context.Background()
	backend, err := entrypoint.OpenStore(ctx, cmd.cfg)
	if err != nil {
		return fmt.Errorf("failed to connect catalog: %w", err)
	}
	store := backend.Store
	defer store.Disconnect(context.Background())

	summary, err := demo.Seed(ctx, store)
	if err != nil {
		return err
	}
	if summary.Skipped {
		fmt.Println("Sample catalog already present, nothing to do.")
		return nil
	}
	fmt.Printf("Seeded %d users, %d authors, %d genres, %d books, %d ratings, %d reviews.\n",
		summary.Users, summary.Authors, summary.Genres, summary.Books, summary.Ratings, summary.Reviews)
	return nil
}
