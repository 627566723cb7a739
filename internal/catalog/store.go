// Package catalog defines the storage contract shared by every book catalog backend.
//
// Callers pick one configured Store and never depend on which backend sits behind it.
// Every failure is reported as an *Error whose Kind is connection, select or insert.
package catalog

import (
	"context"
	"time"

	"github.com/mrlokans/booksdb/internal/entities"
)

// Store is implemented by the relational and document backends.
type Store interface {
	// Connect closes any previous connection, opens a new one and probes it.
	Connect(ctx context.Context, locator string) error
	// Disconnect is a no-op when not connected. State is cleared even on failure.
	Disconnect(ctx context.Context) error
	Ping(ctx context.Context) error

	FindBooksByTitle(ctx context.Context, title string) ([]entities.Book, error)
	FindBooksByISBN(ctx context.Context, isbn string) ([]entities.Book, error)
	FindBooksByAuthorName(ctx context.Context, name string) ([]entities.Book, error)
	FindBooksByGenre(ctx context.Context, genre string) ([]entities.Book, error)
	// FindBooksByMinRating only returns books with at least one rating.
	FindBooksByMinRating(ctx context.Context, minRating int) ([]entities.Book, error)

	// AddBook fails without writing anything when a referenced author or genre is missing.
	AddBook(ctx context.Context, book entities.Book, authors []entities.Author, genres []entities.Genre, user *entities.User) (*entities.Book, error)
	DeleteBook(ctx context.Context, bookID int, user *entities.User) error
	RateBook(ctx context.Context, bookID int, rating int, user *entities.User) error

	// Login returns nil without an error when the credentials do not match.
	Login(ctx context.Context, username, password string) (*entities.User, error)

	// AddReview stamps today's date when date is nil.
	AddReview(ctx context.Context, bookID int, user *entities.User, text string, date *time.Time) error
	FindReviewsByBookID(ctx context.Context, bookID int) ([]entities.Review, error)
	FindBookCreator(ctx context.Context, bookID int) (*entities.User, error)

	AddAuthor(ctx context.Context, name string, birthDate *time.Time) (*entities.Author, error)
	AddGenre(ctx context.Context, name string) (*entities.Genre, error)
	AddUser(ctx context.Context, username, password string) (*entities.User, error)
}

// DedupeAuthors keeps the first occurrence of each author id, preserving order.
func DedupeAuthors(authors []entities.Author) []entities.Author {
	seen := make(map[int]struct{}, len(authors))
	out := make([]entities.Author, 0, len(authors))
	for _, a := range authors {
		if _, ok := seen[a.ID]; ok {
			continue
		}
		seen[a.ID] = struct{}{}
		out = append(out, a)
	}
	return out
}

// DedupeGenres keeps the first occurrence of each genre id, preserving order.
func DedupeGenres(genres []entities.Genre) []entities.Genre {
	seen := make(map[int]struct{}, len(genres))
	out := make([]entities.Genre, 0, len(genres))
	for _, g := range genres {
		if _, ok := seen[g.ID]; ok {
			continue
		}
		seen[g.ID] = struct{}{}
		out = append(out, g)
	}
	return out
}
