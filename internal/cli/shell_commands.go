package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/mrlokans/booksdb/internal/entities"
)

func (s *Shell) handleLogin(ctx context.Context) {
	username, ok := s.prompt("Username: ")
	if !ok {
		return
	}
	password, ok := s.promptSecret("Password: ")
	if !ok {
		return
	}

	s.run(ctx, func(ctx context.Context) (outcome, error) {
		user, err := s.store.Login(ctx, username, password)
		if err != nil {
			return outcome{}, err
		}
		if user == nil {
			return outcome{text: "Invalid username or password."}, nil
		}
		return outcome{text: fmt.Sprintf("Welcome, %s!", user.Username), login: user}, nil
	})
}

func (s *Shell) handleSearch(ctx context.Context) {
	by, ok := s.prompt("Search by (title/isbn/author/genre/rating): ")
	if !ok {
		return
	}
	query, ok := s.prompt("Query: ")
	if !ok {
		return
	}

	var search func(ctx context.Context) ([]entities.Book, error)
	switch strings.ToLower(by) {
	case "title":
		search = func(ctx context.Context) ([]entities.Book, error) { return s.store.FindBooksByTitle(ctx, query) }
	case "isbn":
		search = func(ctx context.Context) ([]entities.Book, error) { return s.store.FindBooksByISBN(ctx, query) }
	case "author":
		search = func(ctx context.Context) ([]entities.Book, error) { return s.store.FindBooksByAuthorName(ctx, query) }
	case "genre":
		search = func(ctx context.Context) ([]entities.Book, error) { return s.store.FindBooksByGenre(ctx, query) }
	case "rating":
		var minRating int
		if _, err := fmt.Sscan(query, &minRating); err != nil {
			fmt.Fprintf(s.out, "Error: %q is not a number\n", query)
			return
		}
		search = func(ctx context.Context) ([]entities.Book, error) { return s.store.FindBooksByMinRating(ctx, minRating) }
	default:
		fmt.Fprintf(s.out, "Error: unknown search field %q\n", by)
		return
	}

	s.run(ctx, func(ctx context.Context) (outcome, error) {
		books, err := search(ctx)
		if err != nil {
			return outcome{}, err
		}
		return outcome{text: formatBooks(books)}, nil
	})
}

func (s *Shell) handleAddBook(ctx context.Context) {
	isbn, ok := s.prompt("ISBN: ")
	if !ok {
		return
	}
	title, ok := s.prompt("Title: ")
	if !ok {
		return
	}
	published, ok := s.promptDate("Published (YYYY-MM-DD, blank if unknown): ")
	if !ok {
		return
	}
	authorIDs, ok := s.promptIDs("Author IDs (comma separated): ")
	if !ok {
		return
	}
	genreIDs, ok := s.promptIDs("Genre IDs (comma separated): ")
	if !ok {
		return
	}

	authors := make([]entities.Author, 0, len(authorIDs))
	for _, id := range authorIDs {
		authors = append(authors, entities.Author{ID: id})
	}
	genres := make([]entities.Genre, 0, len(genreIDs))
	for _, id := range genreIDs {
		genres = append(genres, entities.Genre{ID: id})
	}
	user := s.user

	s.run(ctx, func(ctx context.Context) (outcome, error) {
		book, err := s.store.AddBook(ctx, entities.NewBook(isbn, title, published), authors, genres, user)
		if err != nil {
			return outcome{}, err
		}
		return outcome{text: fmt.Sprintf("Added book #%d: %s", book.ID, book)}, nil
	})
}

func (s *Shell) handleDeleteBook(ctx context.Context) {
	bookID, ok := s.promptInt("Book ID: ")
	if !ok {
		return
	}
	user := s.user

	s.run(ctx, func(ctx context.Context) (outcome, error) {
		if err := s.store.DeleteBook(ctx, bookID, user); err != nil {
			return outcome{}, err
		}
		return outcome{text: fmt.Sprintf("Deleted book #%d.", bookID)}, nil
	})
}

func (s *Shell) handleRate(ctx context.Context) {
	bookID, ok := s.promptInt("Book ID: ")
	if !ok {
		return
	}
	rating, ok := s.promptInt("Rating (1-5): ")
	if !ok {
		return
	}
	if rating < 1 || rating > 5 {
		fmt.Fprintln(s.out, "Error: rating must be between 1 and 5")
		return
	}
	user := s.user

	s.run(ctx, func(ctx context.Context) (outcome, error) {
		if err := s.store.RateBook(ctx, bookID, rating, user); err != nil {
			return outcome{}, err
		}
		return outcome{text: fmt.Sprintf("Rated book #%d with %d.", bookID, rating)}, nil
	})
}

func (s *Shell) handleReview(ctx context.Context) {
	bookID, ok := s.promptInt("Book ID: ")
	if !ok {
		return
	}
	text, ok := s.prompt("Review: ")
	if !ok {
		return
	}
	if text == "" {
		fmt.Fprintln(s.out, "Error: review text is required")
		return
	}
	user := s.user

	s.run(ctx, func(ctx context.Context) (outcome, error) {
		if err := s.store.AddReview(ctx, bookID, user, text, nil); err != nil {
			return outcome{}, err
		}
		return outcome{text: "Review saved."}, nil
	})
}

func (s *Shell) handleReviews(ctx context.Context) {
	bookID, ok := s.promptInt("Book ID: ")
	if !ok {
		return
	}

	s.run(ctx, func(ctx context.Context) (outcome, error) {
		reviews, err := s.store.FindReviewsByBookID(ctx, bookID)
		if err != nil {
			return outcome{}, err
		}
		if len(reviews) == 0 {
			return outcome{text: "No reviews."}, nil
		}
		lines := make([]string, 0, len(reviews))
		for _, r := range reviews {
			lines = append(lines, r.String())
		}
		return outcome{text: strings.Join(lines, "\n")}, nil
	})
}

func (s *Shell) handleCreator(ctx context.Context) {
	bookID, ok := s.promptInt("Book ID: ")
	if !ok {
		return
	}

	s.run(ctx, func(ctx context.Context) (outcome, error) {
		user, err := s.store.FindBookCreator(ctx, bookID)
		if err != nil {
			return outcome{}, err
		}
		if user == nil {
			return outcome{text: "Creator unknown."}, nil
		}
		return outcome{text: fmt.Sprintf("Added by %s (#%d)", user.Username, user.ID)}, nil
	})
}

func (s *Shell) handleAddAuthor(ctx context.Context) {
	name, ok := s.prompt("Name: ")
	if !ok {
		return
	}
	born, ok := s.promptDate("Birth date (YYYY-MM-DD, blank if unknown): ")
	if !ok {
		return
	}

	s.run(ctx, func(ctx context.Context) (outcome, error) {
		author, err := s.store.AddAuthor(ctx, name, born)
		if err != nil {
			return outcome{}, err
		}
		return outcome{text: fmt.Sprintf("Added author #%d: %s", author.ID, author.Name)}, nil
	})
}

func (s *Shell) handleAddGenre(ctx context.Context) {
	name, ok := s.prompt("Name: ")
	if !ok {
		return
	}

	s.run(ctx, func(ctx context.Context) (outcome, error) {
		genre, err := s.store.AddGenre(ctx, name)
		if err != nil {
			return outcome{}, err
		}
		return outcome{text: fmt.Sprintf("Added genre #%d: %s", genre.ID, genre.Name)}, nil
	})
}

func (s *Shell) handleAddUser(ctx context.Context) {
	username, ok := s.prompt("Username: ")
	if !ok {
		return
	}
	password, ok := s.promptSecret("Password: ")
	if !ok {
		return
	}

	s.run(ctx, func(ctx context.Context) (outcome, error) {
		user, err := s.store.AddUser(ctx, username, password)
		if err != nil {
			return outcome{}, err
		}
		return outcome{text: fmt.Sprintf("Added user #%d: %s", user.ID, user.Username)}, nil
	})
}

func formatBooks(books []entities.Book) string {
	if len(books) == 0 {
		return "No books found."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d book(s):\n", len(books))
	fmt.Fprintf(&b, "%-5s %-32s %-20s %-30s %-6s\n", "ID", "Title", "ISBN", "Authors", "Rating")
	b.WriteString(strings.Repeat("-", 97))
	for _, book := range books {
		names := make([]string, 0, len(book.Authors))
		for _, a := range book.Authors {
			names = append(names, a.Name)
		}
		fmt.Fprintf(&b, "\n%-5d %-32s %-20s %-30s %.2f", book.ID, book.Title, book.ISBN, strings.Join(names, ", "), book.AverageRating)
	}
	return b.String()
}
