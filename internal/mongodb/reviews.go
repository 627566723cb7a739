package mongodb

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mrlokans/booksdb/internal/catalog"
	"github.com/mrlokans/booksdb/internal/entities"
)

func (s *Store) AddReview(ctx context.Context, bookID int, user *entities.User, text string, date *time.Time) error {
	if user == nil {
		return catalog.InsertError("a user is required to review a book", catalog.ErrMissingUser)
	}
	db, err := s.writeDB()
	if err != nil {
		return err
	}

	day := entities.Today()
	if date != nil {
		day = entities.DateOnly(*date)
	}

	reviewID, err := nextID(ctx, db, seqReview)
	if err != nil {
		return err
	}

	review := reviewDoc{
		ReviewID: reviewID,
		UserID:   user.ID,
		Username: user.Username,
		Text:     text,
		Date:     &day,
	}
	res, err := db.Collection(colBooks).UpdateOne(ctx,
		bson.D{{Key: "book_id", Value: bookID}},
		bson.D{{Key: "$push", Value: bson.D{{Key: "reviews", Value: review}}}},
	)
	if err != nil {
		return catalog.InsertError("failed to save review", err)
	}
	if res.MatchedCount == 0 {
		return catalog.InsertError("book not found", catalog.ErrNotFound)
	}
	return nil
}

func (s *Store) FindReviewsByBookID(ctx context.Context, bookID int) ([]entities.Review, error) {
	db, err := s.readDB()
	if err != nil {
		return nil, err
	}

	var doc struct {
		Reviews []reviewDoc `bson:"reviews"`
	}
	err = db.Collection(colBooks).FindOne(ctx,
		bson.D{{Key: "book_id", Value: bookID}},
		options.FindOne().SetProjection(bson.D{{Key: "reviews", Value: 1}}),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return []entities.Review{}, nil
	}
	if err != nil {
		return nil, catalog.SelectError("failed to load reviews", err)
	}

	reviews := make([]entities.Review, 0, len(doc.Reviews))
	for _, r := range doc.Reviews {
		reviews = append(reviews, r.toEntity(bookID))
	}
	entities.SortReviewsNewestFirst(reviews)
	return reviews, nil
}

func (s *Store) FindBookCreator(ctx context.Context, bookID int) (*entities.User, error) {
	db, err := s.readDB()
	if err != nil {
		return nil, err
	}

	var doc struct {
		CreatedBy *userRef `bson:"created_by"`
	}
	err = db.Collection(colBooks).FindOne(ctx,
		bson.D{{Key: "book_id", Value: bookID}},
		options.FindOne().SetProjection(bson.D{{Key: "created_by", Value: 1}}),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, catalog.SelectError("failed to load book creator", err)
	}
	if doc.CreatedBy == nil {
		return nil, nil
	}
	return &entities.User{ID: doc.CreatedBy.UserID, Username: doc.CreatedBy.Username}, nil
}
