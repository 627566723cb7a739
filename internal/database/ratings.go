package database

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mrlokans/booksdb/internal/catalog"
	"github.com/mrlokans/booksdb/internal/entities"
)

// RateBook upserts the user's rating in a single statement. The average is computed
// at read time, so there is nothing else to update.
func (d *Database) RateBook(ctx context.Context, bookID int, rating int, user *entities.User) error {
	if user == nil {
		return catalog.InsertError("a user is required to rate a book", catalog.ErrMissingUser)
	}
	db, err := d.writeHandle(ctx)
	if err != nil {
		return err
	}

	return d.inTx(db, "failed to save rating", func(tx *gorm.DB) error {
		exists, err := bookExists(tx, bookID)
		if err != nil {
			return err
		}
		if !exists {
			return catalog.InsertError("book not found", catalog.ErrNotFound)
		}

		row := ratingRow{
			BookID:  bookID,
			UserID:  user.ID,
			Rating:  rating,
			RatedAt: entities.Today(),
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "book_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"rating", "rated_at"}),
		}).Create(&row).Error
	})
}
