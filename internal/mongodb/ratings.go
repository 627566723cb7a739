package mongodb

import (
	"context"
	"errors"
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mrlokans/booksdb/internal/catalog"
	"github.com/mrlokans/booksdb/internal/entities"
)

// RateBook replaces the user's rating in place or appends a new one, then
// rewrites average_rating from the stored ratings. The two steps are separate
// round trips; concurrent ratings by the same user resolve last-write-wins.
func (s *Store) RateBook(ctx context.Context, bookID int, rating int, user *entities.User) error {
	if user == nil {
		return catalog.InsertError("a user is required to rate a book", catalog.ErrMissingUser)
	}
	db, err := s.writeDB()
	if err != nil {
		return err
	}
	books := db.Collection(colBooks)
	now := time.Now().UTC()

	matched, err := replaceRating(ctx, books, bookID, user.ID, rating, now)
	if err != nil {
		return err
	}
	if !matched {
		res, err := books.UpdateOne(ctx,
			bson.D{
				{Key: "book_id", Value: bookID},
				{Key: "ratings.user_id", Value: bson.D{{Key: "$ne", Value: user.ID}}},
			},
			bson.D{{Key: "$push", Value: bson.D{{Key: "ratings", Value: ratingDoc{UserID: user.ID, Rating: rating, RatedAt: now}}}}},
		)
		if err != nil {
			return catalog.InsertError("failed to save rating", err)
		}
		if res.MatchedCount == 0 {
			// Either the book is gone or another call pushed this user's rating first.
			matched, err = replaceRating(ctx, books, bookID, user.ID, rating, now)
			if err != nil {
				return err
			}
			if !matched {
				return catalog.InsertError("book not found", catalog.ErrNotFound)
			}
		}
	}

	_, err = recomputeAverage(ctx, books, bookID)
	return err
}

func replaceRating(ctx context.Context, books *mongo.Collection, bookID, userID, rating int, at time.Time) (bool, error) {
	res, err := books.UpdateOne(ctx,
		bson.D{{Key: "book_id", Value: bookID}, {Key: "ratings.user_id", Value: userID}},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "ratings.$.rating", Value: rating},
			{Key: "ratings.$.rated_at", Value: at},
		}}},
	)
	if err != nil {
		return false, catalog.InsertError("failed to save rating", err)
	}
	return res.MatchedCount > 0, nil
}

// RecomputeAverage rewrites one book's stored average from its embedded ratings.
func (s *Store) RecomputeAverage(ctx context.Context, bookID int) (float64, error) {
	db, err := s.writeDB()
	if err != nil {
		return 0, err
	}
	return recomputeAverage(ctx, db.Collection(colBooks), bookID)
}

func recomputeAverage(ctx context.Context, books *mongo.Collection, bookID int) (float64, error) {
	var doc struct {
		Ratings []ratingDoc `bson:"ratings"`
	}
	err := books.FindOne(ctx,
		bson.D{{Key: "book_id", Value: bookID}},
		options.FindOne().SetProjection(bson.D{{Key: "ratings", Value: 1}}),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, catalog.InsertError("book not found", catalog.ErrNotFound)
	}
	if err != nil {
		return 0, catalog.InsertError("failed to read ratings", err)
	}

	avg := entities.AverageOf(ratingValues(doc.Ratings))
	_, err = books.UpdateOne(ctx,
		bson.D{{Key: "book_id", Value: bookID}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "average_rating", Value: avg}}}},
	)
	if err != nil {
		return 0, catalog.InsertError("failed to update average rating", err)
	}
	return avg, nil
}

// RecomputeAllAverages scans every book and fixes stored averages that drifted
// from their ratings. It returns how many books were corrected.
func (s *Store) RecomputeAllAverages(ctx context.Context) (int, error) {
	db, err := s.writeDB()
	if err != nil {
		return 0, err
	}
	books := db.Collection(colBooks)

	cursor, err := books.Find(ctx, bson.D{},
		options.Find().SetProjection(bson.D{
			{Key: "book_id", Value: 1},
			{Key: "ratings", Value: 1},
			{Key: "average_rating", Value: 1},
		}))
	if err != nil {
		return 0, catalog.SelectError("failed to scan books", err)
	}
	var docs []bookDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return 0, catalog.SelectError("failed to scan books", err)
	}

	fixed := 0
	for _, d := range docs {
		avg := entities.AverageOf(ratingValues(d.Ratings))
		if math.Abs(avg-d.AverageRating) < 1e-9 {
			continue
		}
		_, err := books.UpdateOne(ctx,
			bson.D{{Key: "book_id", Value: d.BookID}},
			bson.D{{Key: "$set", Value: bson.D{{Key: "average_rating", Value: avg}}}},
		)
		if err != nil {
			return fixed, catalog.InsertError("failed to update average rating", err)
		}
		fixed++
	}
	return fixed, nil
}
