package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Backend string

const (
	BackendRelational Backend = "relational" // gorm over SQLite or PostgreSQL (default)
	BackendDocument   Backend = "document"   // MongoDB
)

type (
	Config struct {
		HTTP
		Global
		Database
		Dispatch
		Tasks
		Reconcile
		Demo
	}

	HTTP struct {
		Port int32
		Host string
	}
	Global struct {
		ShutdownTimeoutInSeconds int
	}
	Database struct {
		Backend   Backend
		URL       string
		Bootstrap bool   // Relational: AutoMigrate tables. Document: create counters and indexes.
		LogLevel  string // gorm logger level: silent, error, warn, info
	}
	Dispatch struct {
		Workers   int
		QueueSize int
	}
	Tasks struct {
		Enabled         bool
		DBPath          string
		Workers         int
		ReleaseAfter    time.Duration
		CleanupInterval time.Duration
	}
	Reconcile struct {
		Enabled  bool
		Schedule string // Cron format: "0 3 * * *" = nightly at 03:00
	}
	Demo struct {
		Seed     bool // Load the demo catalog on startup
		ReadOnly bool // Reject API writes
	}
)

// getDatabaseURL prefers BOOKS_DB_URL and falls back to the conventional DATABASE_URL.
func getDatabaseURL(v *viper.Viper) string {
	if url := v.GetString("BOOKS_DB_URL"); url != "" {
		return url
	}
	if url := v.GetString("DATABASE_URL"); url != "" {
		return url
	}
	return DefaultDatabaseURL
}

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8080)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("shutdown_timeout_in_seconds", 5)

	v.SetDefault("books_backend", string(BackendRelational))
	v.SetDefault("books_db_bootstrap", true)
	v.SetDefault("books_db_log_level", "warn")

	v.SetDefault("dispatch_workers", 4)
	v.SetDefault("dispatch_queue_size", 64)

	// Task queue defaults
	v.SetDefault("tasks_enabled", true)
	v.SetDefault("tasks_db_path", DefaultTasksDBPath)
	v.SetDefault("task_workers", 1)
	v.SetDefault("task_release_after", "10m")
	v.SetDefault("task_cleanup_interval", "1h")

	v.SetDefault("reconcile_enabled", true)
	v.SetDefault("reconcile_schedule", "0 3 * * *")

	v.SetDefault("demo_seed", false)
	v.SetDefault("demo_read_only", false)

	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Database: Database{
			Backend:   Backend(strings.ToLower(v.GetString("BOOKS_BACKEND"))),
			URL:       getDatabaseURL(v),
			Bootstrap: v.GetBool("BOOKS_DB_BOOTSTRAP"),
			LogLevel:  v.GetString("BOOKS_DB_LOG_LEVEL"),
		},
		Dispatch: Dispatch{
			Workers:   v.GetInt("DISPATCH_WORKERS"),
			QueueSize: v.GetInt("DISPATCH_QUEUE_SIZE"),
		},
		Tasks: Tasks{
			Enabled:         v.GetBool("TASKS_ENABLED"),
			DBPath:          v.GetString("TASKS_DB_PATH"),
			Workers:         v.GetInt("TASK_WORKERS"),
			ReleaseAfter:    v.GetDuration("TASK_RELEASE_AFTER"),
			CleanupInterval: v.GetDuration("TASK_CLEANUP_INTERVAL"),
		},
		Reconcile: Reconcile{
			Enabled:  v.GetBool("RECONCILE_ENABLED"),
			Schedule: v.GetString("RECONCILE_SCHEDULE"),
		},
		Demo: Demo{
			Seed:     v.GetBool("DEMO_SEED"),
			ReadOnly: v.GetBool("DEMO_READ_ONLY"),
		},
	}
}

func (c *Config) Validate() error {
	switch c.Database.Backend {
	case BackendRelational, BackendDocument:
	default:
		return fmt.Errorf("unsupported BOOKS_BACKEND %q (want %q or %q)", c.Database.Backend, BackendRelational, BackendDocument)
	}
	if strings.TrimSpace(c.Database.URL) == "" {
		return fmt.Errorf("BOOKS_DB_URL must not be empty")
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("invalid PORT %d", c.HTTP.Port)
	}
	return nil
}
