package database

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/mrlokans/booksdb/internal/catalog"
	"github.com/mrlokans/booksdb/internal/entities"
)

const avgRatingExpr = "AVG(CAST(r.rating AS DOUBLE PRECISION))"

func (d *Database) FindBooksByTitle(ctx context.Context, title string) ([]entities.Book, error) {
	return d.searchBooks(ctx, "failed to search books by title", func(q *gorm.DB) *gorm.DB {
		return q.Where(lowerFunc(q)+`(b.title) LIKE ? ESCAPE '\'`, likePattern(title))
	})
}

func (d *Database) FindBooksByISBN(ctx context.Context, isbn string) ([]entities.Book, error) {
	return d.searchBooks(ctx, "failed to search books by isbn", func(q *gorm.DB) *gorm.DB {
		return q.Where("b.isbn = ?", strings.TrimSpace(isbn))
	})
}

func (d *Database) FindBooksByAuthorName(ctx context.Context, name string) ([]entities.Book, error) {
	return d.searchBooks(ctx, "failed to search books by author", func(q *gorm.DB) *gorm.DB {
		return q.Where(`b.book_id IN (SELECT ba.book_id FROM book_author ba
			JOIN author a ON a.author_id = ba.author_id
			WHERE `+lowerFunc(q)+`(a.name) LIKE ? ESCAPE '\')`, likePattern(name))
	})
}

func (d *Database) FindBooksByGenre(ctx context.Context, genre string) ([]entities.Book, error) {
	return d.searchBooks(ctx, "failed to search books by genre", func(q *gorm.DB) *gorm.DB {
		return q.Where(`b.book_id IN (SELECT bg.book_id FROM book_genre bg
			JOIN genre g ON g.genre_id = bg.genre_id
			WHERE `+lowerFunc(q)+`(g.name) LIKE ? ESCAPE '\')`, likePattern(genre))
	})
}

// FindBooksByMinRating uses an inner join, so unrated books never qualify.
func (d *Database) FindBooksByMinRating(ctx context.Context, minRating int) ([]entities.Book, error) {
	db, err := d.readHandle(ctx)
	if err != nil {
		return nil, err
	}

	var rows []bookResult
	err = db.Table("book b").
		Select("b.book_id, b.isbn, b.title, b.published, " + avgRatingExpr + " AS avg_rating").
		Joins("JOIN rating r ON r.book_id = b.book_id").
		Group("b.book_id, b.isbn, b.title, b.published").
		Having(avgRatingExpr+" >= ?", minRating).
		Order("b.book_id").
		Scan(&rows).Error
	if err != nil {
		return nil, catalog.SelectError("failed to search books by rating", err)
	}
	return d.hydrate(db, rows, "failed to search books by rating")
}

func (d *Database) searchBooks(ctx context.Context, msg string, filter func(*gorm.DB) *gorm.DB) ([]entities.Book, error) {
	db, err := d.readHandle(ctx)
	if err != nil {
		return nil, err
	}

	q := db.Table("book b").
		Select("b.book_id, b.isbn, b.title, b.published, COALESCE(" + avgRatingExpr + ", 0) AS avg_rating").
		Joins("LEFT JOIN rating r ON r.book_id = b.book_id")

	var rows []bookResult
	err = filter(q).
		Group("b.book_id, b.isbn, b.title, b.published").
		Order("b.book_id").
		Scan(&rows).Error
	if err != nil {
		return nil, catalog.SelectError(msg, err)
	}
	return d.hydrate(db, rows, msg)
}

// hydrate loads authors and genres for already-scanned rows, in association order.
func (d *Database) hydrate(db *gorm.DB, rows []bookResult, msg string) ([]entities.Book, error) {
	books := make([]entities.Book, 0, len(rows))
	if len(rows) == 0 {
		return books, nil
	}

	ids := make([]int, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ID)
	}

	var authors []linkedAuthor
	err := db.Table("book_author ba").
		Select("ba.book_id, a.author_id, a.name, a.birth_date").
		Joins("JOIN author a ON a.author_id = ba.author_id").
		Where("ba.book_id IN ?", ids).
		Order("ba.book_id, ba.position").
		Scan(&authors).Error
	if err != nil {
		return nil, catalog.SelectError(msg, err)
	}

	var genres []linkedGenre
	err = db.Table("book_genre bg").
		Select("bg.book_id, g.genre_id, g.name").
		Joins("JOIN genre g ON g.genre_id = bg.genre_id").
		Where("bg.book_id IN ?", ids).
		Order("bg.book_id, bg.position").
		Scan(&genres).Error
	if err != nil {
		return nil, catalog.SelectError(msg, err)
	}

	authorsByBook := make(map[int][]entities.Author)
	for _, a := range authors {
		authorsByBook[a.BookID] = append(authorsByBook[a.BookID], entities.Author{ID: a.AuthorID, Name: a.Name, BirthDate: a.BirthDate})
	}
	genresByBook := make(map[int][]entities.Genre)
	for _, g := range genres {
		genresByBook[g.BookID] = append(genresByBook[g.BookID], entities.Genre{ID: g.GenreID, Name: g.Name})
	}

	for _, r := range rows {
		book := entities.Book{
			ID:            r.ID,
			ISBN:          r.ISBN,
			Title:         r.Title,
			Published:     r.Published,
			Authors:       authorsByBook[r.ID],
			Genres:        genresByBook[r.ID],
			AverageRating: r.AvgRating,
		}
		if book.Authors == nil {
			book.Authors = []entities.Author{}
		}
		if book.Genres == nil {
			book.Genres = []entities.Genre{}
		}
		books = append(books, book)
	}
	return books, nil
}

func (d *Database) AddBook(ctx context.Context, book entities.Book, authors []entities.Author, genres []entities.Genre, user *entities.User) (*entities.Book, error) {
	if user == nil {
		return nil, catalog.InsertError("a user is required to add a book", catalog.ErrMissingUser)
	}
	db, err := d.writeHandle(ctx)
	if err != nil {
		return nil, err
	}

	authors = catalog.DedupeAuthors(authors)
	genres = catalog.DedupeGenres(genres)
	creator := user.ID

	row := bookRow{
		ISBN:            strings.TrimSpace(book.ISBN),
		Title:           book.Title,
		Published:       book.Published,
		CreatedByUserID: &creator,
	}

	err = d.inTx(db, "failed to add book", func(tx *gorm.DB) error {
		if err := requireExisting(tx, &authorRow{}, "author_id", authorIDs(authors)); err != nil {
			return catalog.InsertError("unknown author", err)
		}
		if err := requireExisting(tx, &genreRow{}, "genre_id", genreIDs(genres)); err != nil {
			return catalog.InsertError("unknown genre", err)
		}

		if err := tx.Create(&row).Error; err != nil {
			return err
		}

		if len(authors) > 0 {
			links := make([]bookAuthorRow, 0, len(authors))
			for i, a := range authors {
				links = append(links, bookAuthorRow{BookID: row.ID, AuthorID: a.ID, CreatedByUserID: &creator, Position: i})
			}
			if err := tx.Create(&links).Error; err != nil {
				return err
			}
		}
		if len(genres) > 0 {
			links := make([]bookGenreRow, 0, len(genres))
			for i, g := range genres {
				links = append(links, bookGenreRow{BookID: row.ID, GenreID: g.ID, Position: i})
			}
			if err := tx.Create(&links).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	created, err := d.hydrate(db, []bookResult{{ID: row.ID, ISBN: row.ISBN, Title: row.Title, Published: row.Published}}, "failed to load created book")
	if err != nil {
		return nil, err
	}
	return &created[0], nil
}

func (d *Database) DeleteBook(ctx context.Context, bookID int, user *entities.User) error {
	if user == nil {
		return catalog.InsertError("a user is required to delete a book", catalog.ErrMissingUser)
	}
	db, err := d.writeHandle(ctx)
	if err != nil {
		return err
	}

	return d.inTx(db, "failed to delete book", func(tx *gorm.DB) error {
		for _, model := range []interface{}{&ratingRow{}, &reviewRow{}, &bookAuthorRow{}, &bookGenreRow{}} {
			if err := tx.Where("book_id = ?", bookID).Delete(model).Error; err != nil {
				return err
			}
		}
		res := tx.Where("book_id = ?", bookID).Delete(&bookRow{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return catalog.InsertError("book not found", catalog.ErrNotFound)
		}
		return nil
	})
}

// requireExisting fails with ErrUnresolvedReference unless every id has a row.
func requireExisting(tx *gorm.DB, model interface{}, column string, ids []int) error {
	if len(ids) == 0 {
		return nil
	}
	var n int64
	if err := tx.Model(model).Where(column+" IN ?", ids).Count(&n).Error; err != nil {
		return err
	}
	if int(n) != len(ids) {
		return catalog.ErrUnresolvedReference
	}
	return nil
}

func bookExists(tx *gorm.DB, bookID int) (bool, error) {
	var n int64
	if err := tx.Model(&bookRow{}).Where("book_id = ?", bookID).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func authorIDs(authors []entities.Author) []int {
	ids := make([]int, 0, len(authors))
	for _, a := range authors {
		ids = append(ids, a.ID)
	}
	return ids
}

func genreIDs(genres []entities.Genre) []int {
	ids := make([]int, 0, len(genres))
	for _, g := range genres {
		ids = append(ids, g.ID)
	}
	return ids
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern folds with strings.ToLower, so the column side must fold the same way.
func likePattern(s string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(strings.TrimSpace(s))) + "%"
}

// lowerFunc names the SQL lower-casing function for the connection's dialect.
// SQLite's built-in LOWER only folds ASCII.
func lowerFunc(q *gorm.DB) string {
	if q.Dialector.Name() == "sqlite" {
		return sqliteLowerFunc
	}
	return "LOWER"
}
