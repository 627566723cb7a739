package config

const (
	// DefaultDatabaseURL is the catalog locator used when BOOKS_DB_URL is unset.
	DefaultDatabaseURL = "sqlite:./books.db"

	// DefaultTasksDBPath is where the background task queue keeps its state.
	DefaultTasksDBPath = "./tasks.db"
)
