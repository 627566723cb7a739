package mongodb

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/mrlokans/booksdb/internal/catalog"
	"github.com/mrlokans/booksdb/internal/entities"
)

const (
	booksNS   = "booksdb.book"
	authorsNS = "booksdb.author"
	usersNS   = "booksdb.app_user"
)

func attached(mt *mtest.T) *Store {
	s := New(DefaultOptions())
	s.attach(mt.Client, DefaultDatabase)
	return s
}

func updated(n int) bson.D {
	return mtest.CreateSuccessResponse(bson.E{Key: "n", Value: n}, bson.E{Key: "nModified", Value: n})
}

func counterValue(field string, next int32) bson.D {
	return mtest.CreateSuccessResponse(bson.E{Key: "value", Value: bson.D{
		{Key: "_id", Value: counterDocID},
		{Key: field, Value: next},
	}})
}

func day(s string) time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestStore_ConnectRejectsOtherSchemes(t *testing.T) {
	s := New(DefaultOptions())

	for _, locator := range []string{
		"jdbc:mysql://localhost:3306/booksdb",
		"postgres://localhost/booksdb",
		"",
	} {
		err := s.Connect(context.Background(), locator)
		assert.ErrorIs(t, err, catalog.ErrConnection, locator)
	}
}

func TestStore_NotConnected(t *testing.T) {
	s := New(DefaultOptions())
	ctx := context.Background()

	_, err := s.FindBooksByGenre(ctx, "java")
	assert.ErrorIs(t, err, catalog.ErrSelect)
	assert.ErrorIs(t, err, catalog.ErrNotConnected)

	err = s.RateBook(ctx, 1, 5, &entities.User{ID: 1})
	assert.ErrorIs(t, err, catalog.ErrInsert)

	_, err = s.RecomputeAllAverages(ctx)
	assert.ErrorIs(t, err, catalog.ErrInsert)

	assert.ErrorIs(t, s.Ping(ctx), catalog.ErrConnection)
	assert.NoError(t, s.Disconnect(ctx))
}

func TestStore_Search(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("maps embedded snapshots", func(mt *mtest.T) {
		s := attached(mt)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, booksNS, mtest.FirstBatch, bson.D{
			{Key: "book_id", Value: 4},
			{Key: "isbn", Value: "978-0-13-110362-7"},
			{Key: "title", Value: "The C Programming Language"},
			{Key: "published", Value: day("1988-04-01")},
			{Key: "authors", Value: bson.A{
				bson.D{{Key: "author_id", Value: 4}, {Key: "name", Value: "Brian Kernighan"}},
				bson.D{{Key: "author_id", Value: 5}, {Key: "name", Value: "Dennis Ritchie"}, {Key: "birth_date", Value: day("1941-09-09")}},
			}},
			{Key: "genres", Value: bson.A{bson.D{{Key: "genre_id", Value: 7}, {Key: "name", Value: "C Programming"}}}},
			{Key: "average_rating", Value: 5.0},
		}))

		books, err := s.FindBooksByTitle(context.Background(), "c prog")

		require.NoError(mt, err)
		require.Len(mt, books, 1)
		b := books[0]
		assert.Equal(mt, 4, b.ID)
		assert.Equal(mt, 5.0, b.AverageRating)
		assert.Equal(mt, "1988-04-01", b.Published.Format(time.DateOnly))
		require.Len(mt, b.Authors, 2)
		assert.Equal(mt, "Brian Kernighan", b.Authors[0].Name)
		assert.Nil(mt, b.Authors[0].BirthDate)
		assert.Equal(mt, "1941-09-09", b.Authors[1].BirthDate.Format(time.DateOnly))
		assert.Equal(mt, []entities.Genre{{ID: 7, Name: "C Programming"}}, b.Genres)
	})

	mt.Run("no match is an empty list", func(mt *mtest.T) {
		s := attached(mt)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, booksNS, mtest.FirstBatch))

		books, err := s.FindBooksByMinRating(context.Background(), 4)

		require.NoError(mt, err)
		assert.NotNil(mt, books)
		assert.Empty(mt, books)
	})

	mt.Run("server failure is a select error", func(mt *mtest.T) {
		s := attached(mt)
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code: 2, Name: "BadValue", Message: "bad query",
		}))

		_, err := s.FindBooksByISBN(context.Background(), "1")

		assert.ErrorIs(mt, err, catalog.ErrSelect)
	})
}

func TestContainsFilter_QuotesInput(t *testing.T) {
	f := containsFilter("title", "  C++ (2nd)  ")

	require.Len(t, f, 1)
	assert.Equal(t, "title", f[0].Key)
	re, ok := f[0].Value.(primitive.Regex)
	require.True(t, ok)
	assert.Equal(t, `C\+\+ \(2nd\)`, re.Pattern)
	assert.Equal(t, "i", re.Options)
}

func TestStore_AddBook(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	admin := &entities.User{ID: 1, Username: "admin"}

	mt.Run("keeps reference order and draws a counter id", func(mt *mtest.T) {
		s := attached(mt)
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, authorsNS, mtest.FirstBatch,
				bson.D{{Key: "author_id", Value: 1}, {Key: "name", Value: "Joshua Bloch"}},
				bson.D{{Key: "author_id", Value: 2}, {Key: "name", Value: "Robert C. Martin"}},
			),
			counterValue(seqBook, 7),
			mtest.CreateSuccessResponse(),
		)

		book, err := s.AddBook(context.Background(), entities.NewBook(" 111 ", "Test", nil),
			[]entities.Author{{ID: 2}, {ID: 1}, {ID: 2}}, nil, admin)

		require.NoError(mt, err)
		assert.Equal(mt, 7, book.ID)
		assert.Equal(mt, "111", book.ISBN)
		assert.Equal(mt, 0.0, book.AverageRating)
		require.Len(mt, book.Authors, 2)
		assert.Equal(mt, "Robert C. Martin", book.Authors[0].Name)
		assert.Equal(mt, "Joshua Bloch", book.Authors[1].Name)
		assert.Empty(mt, book.Genres)
	})

	mt.Run("unknown author fails before an id is drawn", func(mt *mtest.T) {
		s := attached(mt)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, authorsNS, mtest.FirstBatch,
			bson.D{{Key: "author_id", Value: 1}, {Key: "name", Value: "Joshua Bloch"}},
		))

		_, err := s.AddBook(context.Background(), entities.NewBook("111", "Test", nil),
			[]entities.Author{{ID: 1}, {ID: 5}}, nil, admin)

		assert.ErrorIs(mt, err, catalog.ErrInsert)
		assert.ErrorIs(mt, err, catalog.ErrUnresolvedReference)
	})

	mt.Run("duplicate isbn", func(mt *mtest.T) {
		s := attached(mt)
		mt.AddMockResponses(
			counterValue(seqBook, 8),
			mtest.CreateWriteErrorsResponse(mtest.WriteError{Index: 0, Code: 11000, Message: "E11000 duplicate key error"}),
		)

		_, err := s.AddBook(context.Background(), entities.NewBook("111", "Test", nil), nil, nil, admin)

		assert.ErrorIs(mt, err, catalog.ErrInsert)
		assert.ErrorIs(mt, err, catalog.ErrDuplicate)
	})

	mt.Run("missing counter document", func(mt *mtest.T) {
		s := attached(mt)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: nil}))

		_, err := s.AddBook(context.Background(), entities.NewBook("111", "Test", nil), nil, nil, admin)

		assert.ErrorIs(mt, err, catalog.ErrInsert)
		assert.ErrorIs(mt, err, catalog.ErrNotFound)
	})

	mt.Run("missing counter field matches nothing", func(mt *mtest.T) {
		s := attached(mt)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: nil}))

		_, err := s.AddBook(context.Background(), entities.NewBook("111", "Test", nil), nil, nil, admin)

		assert.ErrorIs(mt, err, catalog.ErrInsert)
		assert.ErrorIs(mt, err, catalog.ErrNotFound)

		started := mt.GetStartedEvent()
		require.NotNil(mt, started)
		assert.Equal(mt, "findAndModify", started.CommandName)
		exists, err := started.Command.LookupErr("query", seqBook, "$exists")
		require.NoError(mt, err)
		assert.True(mt, exists.Boolean())
	})

	mt.Run("non-numeric counter field", func(mt *mtest.T) {
		s := attached(mt)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: bson.D{
			{Key: "_id", Value: counterDocID},
			{Key: seqBook, Value: "seven"},
		}}))

		_, err := s.AddBook(context.Background(), entities.NewBook("111", "Test", nil), nil, nil, admin)

		assert.ErrorIs(mt, err, catalog.ErrInsert)
	})

	mt.Run("missing user", func(mt *mtest.T) {
		s := attached(mt)
		_, err := s.AddBook(context.Background(), entities.NewBook("111", "Test", nil), nil, nil, nil)
		assert.ErrorIs(mt, err, catalog.ErrMissingUser)
	})
}

func TestStore_DeleteBook(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	admin := &entities.User{ID: 1, Username: "admin"}

	mt.Run("deletes the document", func(mt *mtest.T) {
		s := attached(mt)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}))
		assert.NoError(mt, s.DeleteBook(context.Background(), 1, admin))
	})

	mt.Run("missing book", func(mt *mtest.T) {
		s := attached(mt)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}))

		err := s.DeleteBook(context.Background(), 9, admin)

		assert.ErrorIs(mt, err, catalog.ErrInsert)
		assert.ErrorIs(mt, err, catalog.ErrNotFound)
	})
}

func TestStore_RateBook(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	reader := &entities.User{ID: 2, Username: "bookworm"}

	ratingsOf := func(values ...int) bson.D {
		ratings := bson.A{}
		for i, v := range values {
			ratings = append(ratings, bson.D{{Key: "user_id", Value: i + 2}, {Key: "rating", Value: v}})
		}
		return mtest.CreateCursorResponse(0, booksNS, mtest.FirstBatch, bson.D{{Key: "ratings", Value: ratings}})
	}

	mt.Run("replaces the user's rating in place", func(mt *mtest.T) {
		s := attached(mt)
		mt.AddMockResponses(updated(1), ratingsOf(2), updated(1))
		assert.NoError(mt, s.RateBook(context.Background(), 7, 2, reader))
	})

	mt.Run("appends a first rating", func(mt *mtest.T) {
		s := attached(mt)
		mt.AddMockResponses(updated(0), updated(1), ratingsOf(4), updated(1))
		assert.NoError(mt, s.RateBook(context.Background(), 7, 4, reader))
	})

	mt.Run("lost push race falls back to the in-place update", func(mt *mtest.T) {
		s := attached(mt)
		mt.AddMockResponses(updated(0), updated(0), updated(1), ratingsOf(3), updated(1))
		assert.NoError(mt, s.RateBook(context.Background(), 7, 3, reader))
	})

	mt.Run("missing book", func(mt *mtest.T) {
		s := attached(mt)
		mt.AddMockResponses(updated(0), updated(0), updated(0))

		err := s.RateBook(context.Background(), 404, 3, reader)

		assert.ErrorIs(mt, err, catalog.ErrInsert)
		assert.ErrorIs(mt, err, catalog.ErrNotFound)
	})

	mt.Run("recomputed average only reflects the latest value", func(mt *mtest.T) {
		s := attached(mt)
		mt.AddMockResponses(ratingsOf(2), updated(1))

		avg, err := s.RecomputeAverage(context.Background(), 7)

		require.NoError(mt, err)
		assert.Equal(mt, 2.0, avg)
	})

	mt.Run("average of several users", func(mt *mtest.T) {
		s := attached(mt)
		mt.AddMockResponses(ratingsOf(5, 5, 4), updated(1))

		avg, err := s.RecomputeAverage(context.Background(), 1)

		require.NoError(mt, err)
		assert.InDelta(mt, 14.0/3.0, avg, 1e-9)
	})

	mt.Run("no ratings averages to zero", func(mt *mtest.T) {
		s := attached(mt)
		mt.AddMockResponses(ratingsOf(), updated(1))

		avg, err := s.RecomputeAverage(context.Background(), 3)

		require.NoError(mt, err)
		assert.Equal(mt, 0.0, avg)
	})
}

func TestStore_RecomputeAllAverages(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("fixes only drifted books", func(mt *mtest.T) {
		s := attached(mt)
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, booksNS, mtest.FirstBatch,
				bson.D{
					{Key: "book_id", Value: 1},
					{Key: "average_rating", Value: 4.67},
					{Key: "ratings", Value: bson.A{
						bson.D{{Key: "user_id", Value: 1}, {Key: "rating", Value: 5}},
						bson.D{{Key: "user_id", Value: 2}, {Key: "rating", Value: 5}},
						bson.D{{Key: "user_id", Value: 3}, {Key: "rating", Value: 4}},
					}},
				},
				bson.D{
					{Key: "book_id", Value: 2},
					{Key: "average_rating", Value: 4.5},
					{Key: "ratings", Value: bson.A{
						bson.D{{Key: "user_id", Value: 1}, {Key: "rating", Value: 5}},
						bson.D{{Key: "user_id", Value: 2}, {Key: "rating", Value: 4}},
					}},
				},
				bson.D{{Key: "book_id", Value: 3}, {Key: "average_rating", Value: 0.0}, {Key: "ratings", Value: bson.A{}}},
			),
			updated(1),
		)

		fixed, err := s.RecomputeAllAverages(context.Background())

		require.NoError(mt, err)
		assert.Equal(mt, 1, fixed)
	})
}

func TestStore_Reviews(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	reader := &entities.User{ID: 2, Username: "bookworm"}

	mt.Run("newest first with undated last", func(mt *mtest.T) {
		s := attached(mt)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, booksNS, mtest.FirstBatch, bson.D{
			{Key: "reviews", Value: bson.A{
				bson.D{{Key: "review_id", Value: 1}, {Key: "user_id", Value: 2}, {Key: "username", Value: "bookworm"}, {Key: "review_text", Value: "older"}, {Key: "review_date", Value: day("2024-02-20")}},
				bson.D{{Key: "review_id", Value: 9}, {Key: "user_id", Value: 3}, {Key: "username", Value: "reviewer"}, {Key: "review_text", Value: "undated"}},
				bson.D{{Key: "review_id", Value: 2}, {Key: "user_id", Value: 3}, {Key: "username", Value: "reviewer"}, {Key: "review_text", Value: "newer"}, {Key: "review_date", Value: day("2024-03-10")}},
			}},
		}))

		reviews, err := s.FindReviewsByBookID(context.Background(), 1)

		require.NoError(mt, err)
		require.Len(mt, reviews, 3)
		assert.Equal(mt, "newer", reviews[0].Text)
		assert.Equal(mt, "older", reviews[1].Text)
		assert.Equal(mt, "undated", reviews[2].Text)
		assert.Equal(mt, 1, reviews[1].BookID)
		assert.Equal(mt, "bookworm", reviews[1].User.Username)
	})

	mt.Run("unknown book has no reviews", func(mt *mtest.T) {
		s := attached(mt)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, booksNS, mtest.FirstBatch))

		reviews, err := s.FindReviewsByBookID(context.Background(), 404)

		require.NoError(mt, err)
		assert.Empty(mt, reviews)
	})

	mt.Run("add to missing book", func(mt *mtest.T) {
		s := attached(mt)
		mt.AddMockResponses(counterValue(seqReview, 7), updated(0))

		err := s.AddReview(context.Background(), 404, reader, "lost", nil)

		assert.ErrorIs(mt, err, catalog.ErrInsert)
		assert.ErrorIs(mt, err, catalog.ErrNotFound)
	})

	mt.Run("add review", func(mt *mtest.T) {
		s := attached(mt)
		mt.AddMockResponses(counterValue(seqReview, 7), updated(1))
		date := day("2024-05-01")

		assert.NoError(mt, s.AddReview(context.Background(), 1, reader, "great", &date))
	})
}

func TestStore_Login(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("matching credentials", func(mt *mtest.T) {
		s := attached(mt)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, usersNS, mtest.FirstBatch,
			bson.D{{Key: "user_id", Value: 2}, {Key: "username", Value: "bookworm"}},
		))

		user, err := s.Login(context.Background(), "bookworm", "reader456")

		require.NoError(mt, err)
		assert.Equal(mt, &entities.User{ID: 2, Username: "bookworm"}, user)
	})

	mt.Run("wrong password is not an error", func(mt *mtest.T) {
		s := attached(mt)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, usersNS, mtest.FirstBatch))

		user, err := s.Login(context.Background(), "bookworm", "nope")

		assert.NoError(mt, err)
		assert.Nil(mt, user)
	})
}

func TestStore_AddUser(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("duplicate username", func(mt *mtest.T) {
		s := attached(mt)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, usersNS, mtest.FirstBatch,
			bson.D{{Key: "user_id", Value: 1}, {Key: "username", Value: "admin"}},
		))

		_, err := s.AddUser(context.Background(), "admin", "x")

		assert.ErrorIs(mt, err, catalog.ErrDuplicate)
	})

	mt.Run("new user", func(mt *mtest.T) {
		s := attached(mt)
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, usersNS, mtest.FirstBatch),
			counterValue(seqUser, 4),
			mtest.CreateSuccessResponse(),
		)

		user, err := s.AddUser(context.Background(), "newbie", "pw")

		require.NoError(mt, err)
		assert.Equal(mt, 4, user.ID)
	})
}

func TestStore_FindBookCreator(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("attributed", func(mt *mtest.T) {
		s := attached(mt)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, booksNS, mtest.FirstBatch, bson.D{
			{Key: "created_by", Value: bson.D{{Key: "user_id", Value: 1}, {Key: "username", Value: "admin"}}},
		}))

		user, err := s.FindBookCreator(context.Background(), 1)

		require.NoError(mt, err)
		assert.Equal(mt, &entities.User{ID: 1, Username: "admin"}, user)
	})

	mt.Run("no attribution", func(mt *mtest.T) {
		s := attached(mt)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, booksNS, mtest.FirstBatch, bson.D{{Key: "book_id", Value: 1}}))

		user, err := s.FindBookCreator(context.Background(), 1)

		assert.NoError(mt, err)
		assert.Nil(mt, user)
	})
}

func TestStore_Ping(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("ok", func(mt *mtest.T) {
		s := attached(mt)
		mt.AddMockResponses(mtest.CreateSuccessResponse())
		assert.NoError(mt, s.Ping(context.Background()))
	})
}

func TestToInt(t *testing.T) {
	n, ok := toInt(int32(7))
	assert.True(t, ok)
	assert.Equal(t, 7, n)

	n, ok = toInt(int64(8))
	assert.True(t, ok)
	assert.Equal(t, 8, n)

	n, ok = toInt(9.0)
	assert.True(t, ok)
	assert.Equal(t, 9, n)

	_, ok = toInt(9.5)
	assert.False(t, ok)
	_, ok = toInt(nil)
	assert.False(t, ok)
}
