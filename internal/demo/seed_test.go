package demo

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/booksdb/internal/database"
)

func setupTestDB(t *testing.T) *database.Database {
	t.Helper()
	opts := database.DefaultOptions()
	opts.LogLevel = logger.Silent

	db := database.New(opts)
	require.NoError(t, db.Connect(context.Background(), "sqlite:"+filepath.Join(t.TempDir(), "demo.db")))
	t.Cleanup(func() { db.Disconnect(context.Background()) })
	return db
}

func TestLoadFixtures(t *testing.T) {
	f, err := LoadFixtures()
	require.NoError(t, err)

	assert.Len(t, f.Users, 3)
	assert.Len(t, f.Authors, 8)
	assert.Len(t, f.Genres, 7)
	assert.Len(t, f.Books, 6)
	assert.Empty(t, f.Authors[7].BirthDate)
}

func TestSeed(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	summary, err := Seed(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, &Summary{Users: 3, Authors: 8, Genres: 7, Books: 6, Ratings: 9, Reviews: 6}, summary)

	books, err := db.FindBooksByTitle(ctx, "effective java")
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.InDelta(t, 14.0/3.0, books[0].AverageRating, 1e-9)
	require.NotNil(t, books[0].Published)
	assert.Equal(t, "2018-01-06", books[0].Published.Format("2006-01-02"))

	reviews, err := db.FindReviewsByBookID(ctx, books[0].ID)
	require.NoError(t, err)
	require.Len(t, reviews, 2)
	assert.Equal(t, "reviewer", reviews[0].User.Username)
	assert.Equal(t, "bookworm", reviews[1].User.Username)

	knr, err := db.FindBooksByISBN(ctx, "978-0-13-110362-7")
	require.NoError(t, err)
	require.Len(t, knr, 1)
	require.Len(t, knr[0].Authors, 2)
	assert.Equal(t, "Brian Kernighan", knr[0].Authors[0].Name)
	assert.Equal(t, "Dennis Ritchie", knr[0].Authors[1].Name)

	creator, err := db.FindBookCreator(ctx, knr[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "bookworm", creator.Username)

	top, err := db.FindBooksByMinRating(ctx, 5)
	require.NoError(t, err)
	assert.Len(t, top, 4)

	user, err := db.Login(ctx, "reviewer", "review789")
	require.NoError(t, err)
	assert.NotNil(t, user)
}

func TestSeed_SkipsWhenPresent(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	_, err := Seed(ctx, db)
	require.NoError(t, err)

	summary, err := Seed(ctx, db)
	require.NoError(t, err)
	assert.True(t, summary.Skipped)

	books, err := db.FindBooksByTitle(ctx, "")
	require.NoError(t, err)
	assert.Len(t, books, 6)
}

func TestSeedFixtures_UnknownReference(t *testing.T) {
	db := setupTestDB(t)

	f := &Fixtures{
		Users: []UserFixture{{ID: 1, Username: "admin", Password: "admin123"}},
		Books: []BookFixture{{ISBN: "1", Title: "Orphan", CreatedBy: 1, Authors: []int{42}}},
	}

	_, err := SeedFixtures(context.Background(), db, f)
	assert.ErrorContains(t, err, "unknown author 42")
}

func TestParseDate(t *testing.T) {
	d, err := parseDate("")
	require.NoError(t, err)
	assert.Nil(t, d)

	d, err = parseDate("1961-08-28")
	require.NoError(t, err)
	assert.Equal(t, 1961, d.Year())

	_, err = parseDate("28/08/1961")
	assert.Error(t, err)
}
