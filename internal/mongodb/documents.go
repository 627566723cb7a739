package mongodb

import (
	"time"

	"github.com/mrlokans/booksdb/internal/entities"
)

const (
	colBooks    = "book"
	colAuthors  = "author"
	colGenres   = "genre"
	colUsers    = "app_user"
	colCounters = "counter"

	counterDocID = "counters"

	seqBook   = "next_book_id"
	seqReview = "next_review_id"
	seqAuthor = "next_author_id"
	seqGenre  = "next_genre_id"
	seqUser   = "next_user_id"
)

type userRef struct {
	UserID   int    `bson:"user_id"`
	Username string `bson:"username"`
}

type userDoc struct {
	UserID       int    `bson:"user_id"`
	Username     string `bson:"username"`
	PasswordHash string `bson:"password_hash"`
}

type authorDoc struct {
	AuthorID  int        `bson:"author_id"`
	Name      string     `bson:"name"`
	BirthDate *time.Time `bson:"birth_date"`
}

type genreDoc struct {
	GenreID int    `bson:"genre_id"`
	Name    string `bson:"name"`
}

type ratingDoc struct {
	UserID  int       `bson:"user_id"`
	Rating  int       `bson:"rating"`
	RatedAt time.Time `bson:"rated_at"`
}

type reviewDoc struct {
	ReviewID int        `bson:"review_id"`
	UserID   int        `bson:"user_id"`
	Username string     `bson:"username"`
	Text     string     `bson:"review_text"`
	Date     *time.Time `bson:"review_date"`
}

// bookDoc embeds author and genre snapshots taken when the book was added;
// later edits to the author or genre documents are not reflected here.
type bookDoc struct {
	BookID        int         `bson:"book_id"`
	ISBN          string      `bson:"isbn"`
	Title         string      `bson:"title"`
	Published     *time.Time  `bson:"published,omitempty"`
	CreatedBy     *userRef    `bson:"created_by,omitempty"`
	Authors       []authorDoc `bson:"authors"`
	Genres        []genreDoc  `bson:"genres"`
	Ratings       []ratingDoc `bson:"ratings"`
	AverageRating float64     `bson:"average_rating"`
	Reviews       []reviewDoc `bson:"reviews"`
}

func (a authorDoc) toEntity() entities.Author {
	return entities.Author{ID: a.AuthorID, Name: a.Name, BirthDate: utcPtr(a.BirthDate)}
}

func (g genreDoc) toEntity() entities.Genre {
	return entities.Genre{ID: g.GenreID, Name: g.Name}
}

func (b bookDoc) toEntity() entities.Book {
	book := entities.Book{
		ID:            b.BookID,
		ISBN:          b.ISBN,
		Title:         b.Title,
		Published:     utcPtr(b.Published),
		Authors:       make([]entities.Author, 0, len(b.Authors)),
		Genres:        make([]entities.Genre, 0, len(b.Genres)),
		AverageRating: b.AverageRating,
	}
	for _, a := range b.Authors {
		book.Authors = append(book.Authors, a.toEntity())
	}
	for _, g := range b.Genres {
		book.Genres = append(book.Genres, g.toEntity())
	}
	return book
}

func (r reviewDoc) toEntity(bookID int) entities.Review {
	return entities.Review{
		ID:     r.ReviewID,
		BookID: bookID,
		User:   entities.User{ID: r.UserID, Username: r.Username},
		Text:   r.Text,
		Date:   utcPtr(r.Date),
	}
}

func ratingValues(ratings []ratingDoc) []int {
	values := make([]int, 0, len(ratings))
	for _, r := range ratings {
		values = append(values, r.Rating)
	}
	return values
}

// utcPtr normalizes decoded BSON dates, which come back in the local zone.
func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

func datePtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := entities.DateOnly(*t)
	return &d
}
