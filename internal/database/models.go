package database

import (
	"time"

	"github.com/mrlokans/booksdb/internal/entities"
)

// Table rows. Entities stay storage-agnostic, so the gorm mapping lives here.

type userRow struct {
	ID           int    `gorm:"column:user_id;primaryKey;autoIncrement"`
	Username     string `gorm:"column:username;size:64;uniqueIndex;not null"`
	PasswordHash string `gorm:"column:password_hash;size:255;not null"`
}

func (userRow) TableName() string { return "app_user" }

type authorRow struct {
	ID        int        `gorm:"column:author_id;primaryKey;autoIncrement"`
	Name      string     `gorm:"column:name;size:255;not null;index"`
	BirthDate *time.Time `gorm:"column:birth_date;type:date"`
}

func (authorRow) TableName() string { return "author" }

func (r authorRow) toEntity() entities.Author {
	return entities.Author{ID: r.ID, Name: r.Name, BirthDate: r.BirthDate}
}

type genreRow struct {
	ID   int    `gorm:"column:genre_id;primaryKey;autoIncrement"`
	Name string `gorm:"column:name;size:100;not null;index"`
}

func (genreRow) TableName() string { return "genre" }

type bookRow struct {
	ID              int        `gorm:"column:book_id;primaryKey;autoIncrement"`
	ISBN            string     `gorm:"column:isbn;size:20;uniqueIndex;not null"`
	Title           string     `gorm:"column:title;size:255;not null"`
	Published       *time.Time `gorm:"column:published;type:date"`
	CreatedByUserID *int       `gorm:"column:created_by_user_id;index"`
}

func (bookRow) TableName() string { return "book" }

type bookAuthorRow struct {
	BookID          int  `gorm:"column:book_id;primaryKey;autoIncrement:false"`
	AuthorID        int  `gorm:"column:author_id;primaryKey;autoIncrement:false"`
	CreatedByUserID *int `gorm:"column:created_by_user_id"`
	Position        int  `gorm:"column:position;not null;default:0"`
}

func (bookAuthorRow) TableName() string { return "book_author" }

type bookGenreRow struct {
	BookID   int `gorm:"column:book_id;primaryKey;autoIncrement:false"`
	GenreID  int `gorm:"column:genre_id;primaryKey;autoIncrement:false"`
	Position int `gorm:"column:position;not null;default:0"`
}

func (bookGenreRow) TableName() string { return "book_genre" }

// ratingRow has a composite key, which is also the upsert conflict target.
type ratingRow struct {
	BookID  int       `gorm:"column:book_id;primaryKey;autoIncrement:false"`
	UserID  int       `gorm:"column:user_id;primaryKey;autoIncrement:false"`
	Rating  int       `gorm:"column:rating;not null"`
	RatedAt time.Time `gorm:"column:rated_at;type:date;not null"`
}

func (ratingRow) TableName() string { return "rating" }

type reviewRow struct {
	ID              int        `gorm:"column:review_id;primaryKey;autoIncrement"`
	BookID          int        `gorm:"column:book_id;not null;index"`
	UserID          int        `gorm:"column:user_id;not null"`
	Text            string     `gorm:"column:review_text;type:text;not null"`
	Date            *time.Time `gorm:"column:review_date;type:date"`
	CreatedByUserID *int       `gorm:"column:created_by_user_id"`
}

func (reviewRow) TableName() string { return "review" }

func allModels() []interface{} {
	return []interface{}{
		&userRow{},
		&authorRow{},
		&genreRow{},
		&bookRow{},
		&bookAuthorRow{},
		&bookGenreRow{},
		&ratingRow{},
		&reviewRow{},
	}
}

// bookResult is one row of the search query: the book columns plus the computed average.
type bookResult struct {
	ID        int        `gorm:"column:book_id"`
	ISBN      string     `gorm:"column:isbn"`
	Title     string     `gorm:"column:title"`
	Published *time.Time `gorm:"column:published"`
	AvgRating float64    `gorm:"column:avg_rating"`
}

type linkedAuthor struct {
	BookID    int        `gorm:"column:book_id"`
	AuthorID  int        `gorm:"column:author_id"`
	Name      string     `gorm:"column:name"`
	BirthDate *time.Time `gorm:"column:birth_date"`
}

type linkedGenre struct {
	BookID  int    `gorm:"column:book_id"`
	GenreID int    `gorm:"column:genre_id"`
	Name    string `gorm:"column:name"`
}

type reviewResult struct {
	ID       int        `gorm:"column:review_id"`
	BookID   int        `gorm:"column:book_id"`
	Text     string     `gorm:"column:review_text"`
	Date     *time.Time `gorm:"column:review_date"`
	UserID   int        `gorm:"column:user_id"`
	Username string     `gorm:"column:username"`
}
