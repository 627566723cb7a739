package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/booksdb/internal/catalog"
)

type Options struct {
	// AutoMigrate creates the tables at connect time.
	AutoMigrate     bool
	LogLevel        logger.LogLevel
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

func DefaultOptions() Options {
	return Options{
		AutoMigrate:     true,
		LogLevel:        logger.Warn,
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: 30 * time.Minute,
	}
}

// Database is the relational catalog backend.
type Database struct {
	opts Options

	mu sync.RWMutex
	db *gorm.DB

	// writeMu keeps write transactions on one instance from interleaving.
	writeMu sync.Mutex
}

var _ catalog.Store = (*Database)(nil)

func New(opts Options) *Database {
	return &Database{opts: opts}
}

// ParseLogLevel maps a config string to a gorm log level, defaulting to warn.
func ParseLogLevel(level string) logger.LogLevel {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}

func (d *Database) Connect(ctx context.Context, locator string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.db != nil {
		if err := closeHandle(d.db); err != nil {
			log.Printf("Failed to close previous database connection: %v", err)
		}
		d.db = nil
	}

	dialector, isSQLite, err := dialectorFor(locator)
	if err != nil {
		return catalog.ConnectionError("unsupported database locator", err)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(d.opts.LogLevel),
		TranslateError: true,
	})
	if err != nil {
		return catalog.ConnectionError("failed to connect to database", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return catalog.ConnectionError("failed to access connection pool", err)
	}
	if isSQLite {
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(d.opts.MaxOpenConns)
		sqlDB.SetMaxIdleConns(d.opts.MaxIdleConns)
		sqlDB.SetConnMaxLifetime(d.opts.ConnMaxLifetime)
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return catalog.ConnectionError("database is not reachable", err)
	}

	if d.opts.AutoMigrate {
		if err := db.WithContext(ctx).AutoMigrate(allModels()...); err != nil {
			sqlDB.Close()
			return catalog.ConnectionError("failed to migrate database", err)
		}
	}

	d.db = db
	log.Printf("Relational catalog connected (%s)", dialector.Name())
	return nil
}

func (d *Database) Disconnect(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.db == nil {
		return nil
	}
	err := closeHandle(d.db)
	d.db = nil
	if err != nil {
		return catalog.ConnectionError("failed to close database connection", err)
	}
	return nil
}

func (d *Database) Ping(ctx context.Context) error {
	db := d.handle()
	if db == nil {
		return catalog.ConnectionError("not connected", catalog.ErrNotConnected)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return catalog.ConnectionError("failed to access connection pool", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return catalog.ConnectionError("database is not reachable", err)
	}
	return nil
}

func (d *Database) handle() *gorm.DB {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.db
}

// readHandle returns a context-bound handle or a select error when disconnected.
func (d *Database) readHandle(ctx context.Context) (*gorm.DB, error) {
	db := d.handle()
	if db == nil {
		return nil, catalog.SelectError("not connected", catalog.ErrNotConnected)
	}
	return db.WithContext(ctx), nil
}

func (d *Database) writeHandle(ctx context.Context) (*gorm.DB, error) {
	db := d.handle()
	if db == nil {
		return nil, catalog.InsertError("not connected", catalog.ErrNotConnected)
	}
	return db.WithContext(ctx), nil
}

// inTx runs fn in one transaction, serialized against other writes on this instance.
// Errors that are already catalog errors pass through; anything else becomes an insert error.
func (d *Database) inTx(db *gorm.DB, msg string, fn func(tx *gorm.DB) error) error {
	d.writeMu.Lock()
	defer d.writeMu.Unlock()

	tx := db.Begin()
	if tx.Error != nil {
		return catalog.InsertError("failed to begin transaction", tx.Error)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		if catalog.KindOf(err) != 0 {
			return err
		}
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return catalog.InsertError(msg, fmt.Errorf("%w: %v", catalog.ErrDuplicate, err))
		}
		return catalog.InsertError(msg, err)
	}

	if err := tx.Commit().Error; err != nil {
		return catalog.InsertError("failed to commit transaction", err)
	}
	return nil
}

func dialectorFor(locator string) (gorm.Dialector, bool, error) {
	locator = strings.TrimSpace(locator)
	switch {
	case strings.HasPrefix(locator, "postgres://"), strings.HasPrefix(locator, "postgresql://"):
		return postgres.Open(locator), false, nil
	case strings.HasPrefix(locator, "sqlite:"):
		path := strings.TrimPrefix(locator, "sqlite:")
		if path == "" {
			return nil, false, errors.New("sqlite locator has no path")
		}
		return sqliteDialector(path), true, nil
	case strings.HasPrefix(locator, "file:"), locator == ":memory:":
		return sqliteDialector(locator), true, nil
	}

	scheme := locator
	if i := strings.Index(locator, ":"); i >= 0 {
		scheme = locator[:i]
	}
	return nil, false, fmt.Errorf("unsupported scheme %q", scheme)
}

const (
	sqliteDriverName = "sqlite3_booksdb"
	sqliteLowerFunc  = "unicode_lower"
)

var registerSQLiteDriver sync.Once

// sqliteDialector opens SQLite through a driver that adds a Unicode-aware lower function.
func sqliteDialector(dsn string) gorm.Dialector {
	registerSQLiteDriver.Do(func() {
		sql.Register(sqliteDriverName, &sqlite3.SQLiteDriver{
			ConnectHook: func(conn *sqlite3.SQLiteConn) error {
				return conn.RegisterFunc(sqliteLowerFunc, strings.ToLower, true)
			},
		})
	})
	return &sqlite.Dialector{DriverName: sqliteDriverName, DSN: dsn}
}

func closeHandle(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
