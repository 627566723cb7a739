package database

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/booksdb/internal/catalog"
	"github.com/mrlokans/booksdb/internal/entities"
)

func (d *Database) AddReview(ctx context.Context, bookID int, user *entities.User, text string, date *time.Time) error {
	if user == nil {
		return catalog.InsertError("a user is required to review a book", catalog.ErrMissingUser)
	}
	db, err := d.writeHandle(ctx)
	if err != nil {
		return err
	}

	day := entities.Today()
	if date != nil {
		day = entities.DateOnly(*date)
	}
	author := user.ID

	return d.inTx(db, "failed to save review", func(tx *gorm.DB) error {
		exists, err := bookExists(tx, bookID)
		if err != nil {
			return err
		}
		if !exists {
			return catalog.InsertError("book not found", catalog.ErrNotFound)
		}
		return tx.Create(&reviewRow{
			BookID:          bookID,
			UserID:          user.ID,
			Text:            text,
			Date:            &day,
			CreatedByUserID: &author,
		}).Error
	})
}

// FindReviewsByBookID lists newest first; undated reviews sort last.
func (d *Database) FindReviewsByBookID(ctx context.Context, bookID int) ([]entities.Review, error) {
	db, err := d.readHandle(ctx)
	if err != nil {
		return nil, err
	}

	var rows []reviewResult
	err = db.Table("review r").
		Select("r.review_id, r.book_id, r.review_text, r.review_date, u.user_id, u.username").
		Joins("JOIN app_user u ON u.user_id = r.user_id").
		Where("r.book_id = ?", bookID).
		Order("CASE WHEN r.review_date IS NULL THEN 1 ELSE 0 END, r.review_date DESC, r.review_id DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, catalog.SelectError("failed to load reviews", err)
	}

	reviews := make([]entities.Review, 0, len(rows))
	for _, r := range rows {
		reviews = append(reviews, entities.Review{
			ID:     r.ID,
			BookID: r.BookID,
			User:   entities.User{ID: r.UserID, Username: r.Username},
			Text:   r.Text,
			Date:   r.Date,
		})
	}
	return reviews, nil
}

func (d *Database) FindBookCreator(ctx context.Context, bookID int) (*entities.User, error) {
	db, err := d.readHandle(ctx)
	if err != nil {
		return nil, err
	}

	var row userRow
	res := db.Table("book b").
		Select("u.user_id, u.username").
		Joins("JOIN app_user u ON u.user_id = b.created_by_user_id").
		Where("b.book_id = ?", bookID).
		Limit(1).
		Scan(&row)
	if res.Error != nil {
		return nil, catalog.SelectError("failed to load book creator", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return &entities.User{ID: row.ID, Username: row.Username}, nil
}
