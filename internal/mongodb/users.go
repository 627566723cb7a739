package mongodb

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mrlokans/booksdb/internal/catalog"
	"github.com/mrlokans/booksdb/internal/entities"
)

func (s *Store) Login(ctx context.Context, username, password string) (*entities.User, error) {
	db, err := s.readDB()
	if err != nil {
		return nil, err
	}

	var doc userDoc
	err = db.Collection(colUsers).FindOne(ctx,
		bson.D{{Key: "username", Value: username}, {Key: "password_hash", Value: password}},
		options.FindOne().SetProjection(bson.D{{Key: "user_id", Value: 1}, {Key: "username", Value: 1}}),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, catalog.SelectError("failed to log in", err)
	}
	return &entities.User{ID: doc.UserID, Username: doc.Username}, nil
}

func (s *Store) AddUser(ctx context.Context, username, password string) (*entities.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, catalog.InsertError("username is required", nil)
	}
	db, err := s.writeDB()
	if err != nil {
		return nil, err
	}
	users := db.Collection(colUsers)

	err = users.FindOne(ctx, bson.D{{Key: "username", Value: username}}).Err()
	switch {
	case err == nil:
		return nil, catalog.InsertError("username already taken", catalog.ErrDuplicate)
	case !errors.Is(err, mongo.ErrNoDocuments):
		return nil, catalog.InsertError("failed to add user", err)
	}

	id, err := nextID(ctx, db, seqUser)
	if err != nil {
		return nil, err
	}
	if _, err := users.InsertOne(ctx, userDoc{UserID: id, Username: username, PasswordHash: password}); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, catalog.InsertError("username already taken", catalog.ErrDuplicate)
		}
		return nil, catalog.InsertError("failed to add user", err)
	}
	return &entities.User{ID: id, Username: username}, nil
}

func (s *Store) AddAuthor(ctx context.Context, name string, birthDate *time.Time) (*entities.Author, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, catalog.InsertError("author name is required", nil)
	}
	db, err := s.writeDB()
	if err != nil {
		return nil, err
	}

	id, err := nextID(ctx, db, seqAuthor)
	if err != nil {
		return nil, err
	}
	doc := authorDoc{AuthorID: id, Name: name, BirthDate: datePtr(birthDate)}
	if _, err := db.Collection(colAuthors).InsertOne(ctx, doc); err != nil {
		return nil, catalog.InsertError("failed to add author", err)
	}
	author := doc.toEntity()
	return &author, nil
}

func (s *Store) AddGenre(ctx context.Context, name string) (*entities.Genre, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, catalog.InsertError("genre name is required", nil)
	}
	db, err := s.writeDB()
	if err != nil {
		return nil, err
	}

	id, err := nextID(ctx, db, seqGenre)
	if err != nil {
		return nil, err
	}
	doc := genreDoc{GenreID: id, Name: name}
	if _, err := db.Collection(colGenres).InsertOne(ctx, doc); err != nil {
		return nil, catalog.InsertError("failed to add genre", err)
	}
	genre := doc.toEntity()
	return &genre, nil
}
