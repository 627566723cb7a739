package tasks

import "time"

type Config struct {
	// Workers is the number of concurrent task workers.
	Workers int

	// ReleaseAfter returns claimed tasks to the queue if they stay unfinished this long.
	ReleaseAfter time.Duration

	// CleanupInterval controls how often finished tasks are purged.
	CleanupInterval time.Duration
}

func DefaultConfig() Config {
	return Config{
		Workers:         1,
		ReleaseAfter:    10 * time.Minute,
		CleanupInterval: time.Hour,
	}
}
