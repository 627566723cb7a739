package mongodb

import (
	"context"
	"errors"
	"fmt"
	"log"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// sequence ties a counter field to the collection and key it numbers.
type sequence struct {
	field      string
	collection string
	key        string
}

var sequences = []sequence{
	{seqBook, colBooks, "book_id"},
	{seqReview, colBooks, "reviews.review_id"},
	{seqAuthor, colAuthors, "author_id"},
	{seqGenre, colGenres, "genre_id"},
	{seqUser, colUsers, "user_id"},
}

// bootstrap makes sure the counter document has every sequence and creates the
// indexes. Sequences missing from an existing database start after its highest id.
func bootstrap(ctx context.Context, db *mongo.Database) error {
	starts := bson.D{}
	for _, seq := range sequences {
		next, err := sequenceStart(ctx, db, seq)
		if err != nil {
			return fmt.Errorf("failed to find start of %s: %w", seq.field, err)
		}
		starts = append(starts, bson.E{Key: seq.field, Value: next})
	}

	counters := db.Collection(colCounters)
	res, err := counters.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: counterDocID}},
		bson.D{{Key: "$setOnInsert", Value: starts}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to create counter document: %w", err)
	}
	if res.UpsertedCount > 0 {
		log.Printf("Created counter document %q", counterDocID)
	}

	// Fill in sequences an older counter document does not have yet.
	for _, e := range starts {
		_, err := counters.UpdateOne(ctx,
			bson.D{{Key: "_id", Value: counterDocID}, {Key: e.Key, Value: bson.D{{Key: "$exists", Value: false}}}},
			bson.D{{Key: "$set", Value: bson.D{e}}},
		)
		if err != nil {
			return fmt.Errorf("failed to add sequence %s: %w", e.Key, err)
		}
	}

	return createIndexes(ctx, db)
}

func sequenceStart(ctx context.Context, db *mongo.Database, seq sequence) (int, error) {
	coll := db.Collection(seq.collection)

	if seq.key == "reviews.review_id" {
		cursor, err := coll.Aggregate(ctx, mongo.Pipeline{
			{{Key: "$unwind", Value: "$reviews"}},
			{{Key: "$group", Value: bson.D{
				{Key: "_id", Value: nil},
				{Key: "max", Value: bson.D{{Key: "$max", Value: "$reviews.review_id"}}},
			}}},
		})
		if err != nil {
			return 0, err
		}
		var rows []bson.M
		if err := cursor.All(ctx, &rows); err != nil {
			return 0, err
		}
		if len(rows) == 0 {
			return 1, nil
		}
		top, _ := toInt(rows[0]["max"])
		return top + 1, nil
	}

	var doc bson.M
	err := coll.FindOne(ctx, bson.D{},
		options.FindOne().
			SetSort(bson.D{{Key: seq.key, Value: -1}}).
			SetProjection(bson.D{{Key: seq.key, Value: 1}}),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	top, _ := toInt(doc[seq.key])
	return top + 1, nil
}

func createIndexes(ctx context.Context, db *mongo.Database) error {
	unique := options.Index().SetUnique(true)
	indexes := map[string][]mongo.IndexModel{
		colBooks: {
			{Keys: bson.D{{Key: "book_id", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "isbn", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "authors.name", Value: 1}}},
			{Keys: bson.D{{Key: "genres.name", Value: 1}}},
		},
		colAuthors: {{Keys: bson.D{{Key: "author_id", Value: 1}}, Options: unique}},
		colGenres:  {{Keys: bson.D{{Key: "genre_id", Value: 1}}, Options: unique}},
		colUsers: {
			{Keys: bson.D{{Key: "user_id", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "username", Value: 1}}, Options: unique},
		},
	}
	for name, models := range indexes {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", name, err)
		}
	}
	return nil
}
