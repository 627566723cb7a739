package entities

import (
	"fmt"
	"sort"
	"time"
)

// UnsavedID marks a book that has not been persisted yet.
const UnsavedID = -1

type Author struct {
	ID        int        `json:"id"`
	Name      string     `json:"name"`
	BirthDate *time.Time `json:"birth_date,omitempty"`
}

func (a Author) String() string {
	return a.Name
}

type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

func (g Genre) String() string {
	return g.Name
}

// User identity is the ID; Username is for display only.
type User struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
}

func (u User) Equal(other User) bool {
	return u.ID == other.ID
}

func (u User) String() string {
	return u.Username
}

type Book struct {
	ID            int        `json:"id"`
	ISBN          string     `json:"isbn"`
	Title         string     `json:"title"`
	Published     *time.Time `json:"published,omitempty"`
	Authors       []Author   `json:"authors"`
	Genres        []Genre    `json:"genres"`
	AverageRating float64    `json:"average_rating"`
}

// NewBook returns a book that has not been stored yet.
func NewBook(isbn, title string, published *time.Time) Book {
	return Book{
		ID:        UnsavedID,
		ISBN:      isbn,
		Title:     title,
		Published: published,
		Authors:   []Author{},
		Genres:    []Genre{},
	}
}

func (b Book) IsPersisted() bool {
	return b.ID != UnsavedID && b.ID != 0
}

func (b Book) String() string {
	published := "unknown"
	if b.Published != nil {
		published = b.Published.Format(time.DateOnly)
	}
	return fmt.Sprintf("%s, %s, %s", b.Title, b.ISBN, published)
}

type Review struct {
	ID     int        `json:"id"`
	BookID int        `json:"book_id"`
	User   User       `json:"user"`
	Text   string     `json:"text"`
	Date   *time.Time `json:"date,omitempty"`
}

func (r Review) String() string {
	date := "undated"
	if r.Date != nil {
		date = r.Date.Format(time.DateOnly)
	}
	return fmt.Sprintf("%s %s: %s", date, r.User.Username, r.Text)
}

// Rating is unique per (UserID, BookID); a second rating replaces the first.
type Rating struct {
	BookID  int       `json:"book_id"`
	UserID  int       `json:"user_id"`
	Value   int       `json:"value"`
	RatedAt time.Time `json:"rated_at"`
}

// AverageOf returns the arithmetic mean of the values, or 0 when there are none.
func AverageOf(values []int) float64 {
	if len(values) == 0 {
		return 0.0
	}
	sum := 0
	for _, v := range values {
		sum += v
	}
	return float64(sum) / float64(len(values))
}

// SortReviewsNewestFirst orders reviews by date descending. Undated reviews go last;
// equal dates fall back to the higher review ID first.
func SortReviewsNewestFirst(reviews []Review) {
	sort.SliceStable(reviews, func(i, j int) bool {
		a, b := reviews[i].Date, reviews[j].Date
		switch {
		case a == nil && b == nil:
			return reviews[i].ID > reviews[j].ID
		case a == nil:
			return false
		case b == nil:
			return true
		case a.Equal(*b):
			return reviews[i].ID > reviews[j].ID
		default:
			return a.After(*b)
		}
	})
}

// DateOnly truncates t to midnight UTC of its calendar day.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Today returns the current calendar day at midnight UTC.
func Today() time.Time {
	return DateOnly(time.Now())
}
