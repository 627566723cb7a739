package cli

import (
	"flag"

	"github.com/mrlokans/booksdb/internal/config"
)

// bindCatalogFlags lets a command override the configured backend and locator.
func bindCatalogFlags(fs *flag.FlagSet, cfg *config.Config) {
	fs.Func("backend", "Catalog backend: relational or document (default from BOOKS_BACKEND)", func(v string) error {
		cfg.Database.Backend = config.Backend(v)
		return nil
	})
	fs.StringVar(&cfg.Database.URL, "db", cfg.Database.URL, "Catalog locator, e.g. sqlite:./books.db or mongodb://localhost:27017/booksdb")
}
