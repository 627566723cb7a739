package demo

import (
	"context"
	"fmt"
	"log"

	"github.com/mrlokans/booksdb/internal/catalog"
	"github.com/mrlokans/booksdb/internal/entities"
)

type Summary struct {
	Users   int  `json:"users"`
	Authors int  `json:"authors"`
	Genres  int  `json:"genres"`
	Books   int  `json:"books"`
	Ratings int  `json:"ratings"`
	Reviews int  `json:"reviews"`
	Skipped bool `json:"skipped"`
}

// Seed loads the embedded sample catalog through the store's public operations.
// It is skipped when the first sample book is already present.
func Seed(ctx context.Context, store catalog.Store) (*Summary, error) {
	f, err := LoadFixtures()
	if err != nil {
		return nil, err
	}
	return SeedFixtures(ctx, store, f)
}

func SeedFixtures(ctx context.Context, store catalog.Store, f *Fixtures) (*Summary, error) {
	summary := &Summary{}

	if len(f.Books) > 0 {
		existing, err := store.FindBooksByISBN(ctx, f.Books[0].ISBN)
		if err != nil {
			return nil, fmt.Errorf("check for existing demo data: %w", err)
		}
		if len(existing) > 0 {
			log.Printf("Demo catalog already present, skipping seed")
			summary.Skipped = true
			return summary, nil
		}
	}

	users := make(map[int]*entities.User, len(f.Users))
	for _, u := range f.Users {
		user, err := store.AddUser(ctx, u.Username, u.Password)
		if err != nil {
			return nil, fmt.Errorf("add user %s: %w", u.Username, err)
		}
		users[u.ID] = user
		summary.Users++
	}

	authors := make(map[int]entities.Author, len(f.Authors))
	for _, a := range f.Authors {
		born, err := parseDate(a.BirthDate)
		if err != nil {
			return nil, fmt.Errorf("author %s: %w", a.Name, err)
		}
		author, err := store.AddAuthor(ctx, a.Name, born)
		if err != nil {
			return nil, fmt.Errorf("add author %s: %w", a.Name, err)
		}
		authors[a.ID] = *author
		summary.Authors++
	}

	genres := make(map[int]entities.Genre, len(f.Genres))
	for _, g := range f.Genres {
		genre, err := store.AddGenre(ctx, g.Name)
		if err != nil {
			return nil, fmt.Errorf("add genre %s: %w", g.Name, err)
		}
		genres[g.ID] = *genre
		summary.Genres++
	}

	for _, b := range f.Books {
		if err := seedBook(ctx, store, b, users, authors, genres, summary); err != nil {
			return nil, err
		}
	}

	log.Printf("Demo catalog seeded: %d books, %d ratings, %d reviews", summary.Books, summary.Ratings, summary.Reviews)
	return summary, nil
}

func seedBook(ctx context.Context, store catalog.Store, b BookFixture,
	users map[int]*entities.User, authors map[int]entities.Author, genres map[int]entities.Genre,
	summary *Summary) error {
	published, err := parseDate(b.Published)
	if err != nil {
		return fmt.Errorf("book %s: %w", b.ISBN, err)
	}

	creator, ok := users[b.CreatedBy]
	if !ok {
		return fmt.Errorf("book %s: unknown creator %d", b.ISBN, b.CreatedBy)
	}

	refs := make([]entities.Author, 0, len(b.Authors))
	for _, id := range b.Authors {
		a, ok := authors[id]
		if !ok {
			return fmt.Errorf("book %s: unknown author %d", b.ISBN, id)
		}
		refs = append(refs, a)
	}
	genreRefs := make([]entities.Genre, 0, len(b.Genres))
	for _, id := range b.Genres {
		g, ok := genres[id]
		if !ok {
			return fmt.Errorf("book %s: unknown genre %d", b.ISBN, id)
		}
		genreRefs = append(genreRefs, g)
	}

	book, err := store.AddBook(ctx, entities.NewBook(b.ISBN, b.Title, published), refs, genreRefs, creator)
	if err != nil {
		return fmt.Errorf("add book %s: %w", b.ISBN, err)
	}
	summary.Books++

	for _, r := range b.Ratings {
		user, ok := users[r.User]
		if !ok {
			return fmt.Errorf("book %s: unknown rater %d", b.ISBN, r.User)
		}
		if err := store.RateBook(ctx, book.ID, r.Value, user); err != nil {
			return fmt.Errorf("rate book %s: %w", b.ISBN, err)
		}
		summary.Ratings++
	}

	for _, r := range b.Reviews {
		user, ok := users[r.User]
		if !ok {
			return fmt.Errorf("book %s: unknown reviewer %d", b.ISBN, r.User)
		}
		date, err := parseDate(r.Date)
		if err != nil {
			return fmt.Errorf("review of %s: %w", b.ISBN, err)
		}
		if err := store.AddReview(ctx, book.ID, user, r.Text, date); err != nil {
			return fmt.Errorf("review book %s: %w", b.ISBN, err)
		}
		summary.Reviews++
	}
	return nil
}
