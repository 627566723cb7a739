package mongodb

import (
	"context"
	"regexp"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mrlokans/booksdb/internal/catalog"
	"github.com/mrlokans/booksdb/internal/entities"
)

func (s *Store) FindBooksByTitle(ctx context.Context, title string) ([]entities.Book, error) {
	return s.findBooks(ctx, containsFilter("title", title), "failed to search books by title")
}

func (s *Store) FindBooksByISBN(ctx context.Context, isbn string) ([]entities.Book, error) {
	return s.findBooks(ctx, bson.D{{Key: "isbn", Value: strings.TrimSpace(isbn)}}, "failed to search books by isbn")
}

func (s *Store) FindBooksByAuthorName(ctx context.Context, name string) ([]entities.Book, error) {
	return s.findBooks(ctx, containsFilter("authors.name", name), "failed to search books by author")
}

func (s *Store) FindBooksByGenre(ctx context.Context, genre string) ([]entities.Book, error) {
	return s.findBooks(ctx, containsFilter("genres.name", genre), "failed to search books by genre")
}

// FindBooksByMinRating reads the stored average and skips books nobody has rated.
func (s *Store) FindBooksByMinRating(ctx context.Context, minRating int) ([]entities.Book, error) {
	filter := bson.D{
		{Key: "average_rating", Value: bson.D{{Key: "$gte", Value: float64(minRating)}}},
		{Key: "ratings.0", Value: bson.D{{Key: "$exists", Value: true}}},
	}
	return s.findBooks(ctx, filter, "failed to search books by rating")
}

func (s *Store) findBooks(ctx context.Context, filter bson.D, msg string) ([]entities.Book, error) {
	db, err := s.readDB()
	if err != nil {
		return nil, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "book_id", Value: 1}}).
		SetProjection(bson.D{{Key: "ratings", Value: 0}, {Key: "reviews", Value: 0}})

	cursor, err := db.Collection(colBooks).Find(ctx, filter, opts)
	if err != nil {
		return nil, catalog.SelectError(msg, err)
	}
	var docs []bookDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, catalog.SelectError(msg, err)
	}

	books := make([]entities.Book, 0, len(docs))
	for _, d := range docs {
		books = append(books, d.toEntity())
	}
	return books, nil
}

func (s *Store) AddBook(ctx context.Context, book entities.Book, authors []entities.Author, genres []entities.Genre, user *entities.User) (*entities.Book, error) {
	if user == nil {
		return nil, catalog.InsertError("a user is required to add a book", catalog.ErrMissingUser)
	}
	db, err := s.writeDB()
	if err != nil {
		return nil, err
	}

	embeddedAuthors, err := resolveAuthors(ctx, db, catalog.DedupeAuthors(authors))
	if err != nil {
		return nil, err
	}
	embeddedGenres, err := resolveGenres(ctx, db, catalog.DedupeGenres(genres))
	if err != nil {
		return nil, err
	}

	id, err := nextID(ctx, db, seqBook)
	if err != nil {
		return nil, err
	}

	doc := bookDoc{
		BookID:    id,
		ISBN:      strings.TrimSpace(book.ISBN),
		Title:     book.Title,
		Published: datePtr(book.Published),
		CreatedBy: &userRef{UserID: user.ID, Username: user.Username},
		Authors:   embeddedAuthors,
		Genres:    embeddedGenres,
		Ratings:   []ratingDoc{},
		Reviews:   []reviewDoc{},
	}
	if _, err := db.Collection(colBooks).InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, catalog.InsertError("a book with this isbn already exists", catalog.ErrDuplicate)
		}
		return nil, catalog.InsertError("failed to add book", err)
	}

	created := doc.toEntity()
	return &created, nil
}

func (s *Store) DeleteBook(ctx context.Context, bookID int, user *entities.User) error {
	if user == nil {
		return catalog.InsertError("a user is required to delete a book", catalog.ErrMissingUser)
	}
	db, err := s.writeDB()
	if err != nil {
		return err
	}

	res, err := db.Collection(colBooks).DeleteOne(ctx, bson.D{{Key: "book_id", Value: bookID}})
	if err != nil {
		return catalog.InsertError("failed to delete book", err)
	}
	if res.DeletedCount == 0 {
		return catalog.InsertError("book not found", catalog.ErrNotFound)
	}
	return nil
}

// resolveAuthors loads every referenced author in one query and returns the
// snapshots in reference order.
func resolveAuthors(ctx context.Context, db *mongo.Database, refs []entities.Author) ([]authorDoc, error) {
	out := make([]authorDoc, 0, len(refs))
	if len(refs) == 0 {
		return out, nil
	}
	ids := make([]int, 0, len(refs))
	for _, a := range refs {
		ids = append(ids, a.ID)
	}

	cursor, err := db.Collection(colAuthors).Find(ctx, bson.D{{Key: "author_id", Value: bson.D{{Key: "$in", Value: ids}}}})
	if err != nil {
		return nil, catalog.InsertError("failed to resolve authors", err)
	}
	var found []authorDoc
	if err := cursor.All(ctx, &found); err != nil {
		return nil, catalog.InsertError("failed to resolve authors", err)
	}

	byID := make(map[int]authorDoc, len(found))
	for _, a := range found {
		byID[a.AuthorID] = a
	}
	for _, id := range ids {
		a, ok := byID[id]
		if !ok {
			return nil, catalog.InsertError("unknown author", catalog.ErrUnresolvedReference)
		}
		out = append(out, a)
	}
	return out, nil
}

func resolveGenres(ctx context.Context, db *mongo.Database, refs []entities.Genre) ([]genreDoc, error) {
	out := make([]genreDoc, 0, len(refs))
	if len(refs) == 0 {
		return out, nil
	}
	ids := make([]int, 0, len(refs))
	for _, g := range refs {
		ids = append(ids, g.ID)
	}

	cursor, err := db.Collection(colGenres).Find(ctx, bson.D{{Key: "genre_id", Value: bson.D{{Key: "$in", Value: ids}}}})
	if err != nil {
		return nil, catalog.InsertError("failed to resolve genres", err)
	}
	var found []genreDoc
	if err := cursor.All(ctx, &found); err != nil {
		return nil, catalog.InsertError("failed to resolve genres", err)
	}

	byID := make(map[int]genreDoc, len(found))
	for _, g := range found {
		byID[g.GenreID] = g
	}
	for _, id := range ids {
		g, ok := byID[id]
		if !ok {
			return nil, catalog.InsertError("unknown genre", catalog.ErrUnresolvedReference)
		}
		out = append(out, g)
	}
	return out, nil
}

// containsFilter is a case-insensitive substring match on field. Input is quoted,
// so regex metacharacters match literally.
func containsFilter(field, s string) bson.D {
	return bson.D{{Key: field, Value: primitive.Regex{Pattern: regexp.QuoteMeta(strings.TrimSpace(s)), Options: "i"}}}
}
