package database

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/booksdb/internal/catalog"
	"github.com/mrlokans/booksdb/internal/entities"
)

// Login matches the stored credential pair exactly. No match is not an error.
func (d *Database) Login(ctx context.Context, username, password string) (*entities.User, error) {
	db, err := d.readHandle(ctx)
	if err != nil {
		return nil, err
	}

	var row userRow
	res := db.Model(&userRow{}).
		Where("username = ? AND password_hash = ?", username, password).
		Limit(1).
		Scan(&row)
	if res.Error != nil {
		return nil, catalog.SelectError("failed to log in", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return &entities.User{ID: row.ID, Username: row.Username}, nil
}

func (d *Database) AddUser(ctx context.Context, username, password string) (*entities.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, catalog.InsertError("username is required", nil)
	}
	db, err := d.writeHandle(ctx)
	if err != nil {
		return nil, err
	}

	row := userRow{Username: username, PasswordHash: password}
	err = d.inTx(db, "failed to add user", func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&userRow{}).Where("username = ?", username).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return catalog.InsertError("username already taken", catalog.ErrDuplicate)
		}
		return tx.Create(&row).Error
	})
	if err != nil {
		return nil, err
	}
	return &entities.User{ID: row.ID, Username: row.Username}, nil
}

func (d *Database) AddAuthor(ctx context.Context, name string, birthDate *time.Time) (*entities.Author, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, catalog.InsertError("author name is required", nil)
	}
	db, err := d.writeHandle(ctx)
	if err != nil {
		return nil, err
	}

	row := authorRow{Name: name}
	if birthDate != nil {
		day := entities.DateOnly(*birthDate)
		row.BirthDate = &day
	}
	err = d.inTx(db, "failed to add author", func(tx *gorm.DB) error {
		return tx.Create(&row).Error
	})
	if err != nil {
		return nil, err
	}
	author := row.toEntity()
	return &author, nil
}

func (d *Database) AddGenre(ctx context.Context, name string) (*entities.Genre, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, catalog.InsertError("genre name is required", nil)
	}
	db, err := d.writeHandle(ctx)
	if err != nil {
		return nil, err
	}

	row := genreRow{Name: name}
	err = d.inTx(db, "failed to add genre", func(tx *gorm.DB) error {
		return tx.Create(&row).Error
	})
	if err != nil {
		return nil, err
	}
	return &entities.Genre{ID: row.ID, Name: row.Name}, nil
}
