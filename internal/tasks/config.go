package tasks

import "time"

// Config holds the task queue runtime settings. Per-queue retry and
// timeout policy lives on each task's QueueConfig instead.
type Config struct {
	// Workers is the number of concurrent task workers.
	Workers int

	// ReleaseAfter is when stuck tasks are released back to the queue.
	ReleaseAfter time.Duration

	// CleanupInterval is how often completed tasks are cleaned up.
	CleanupInterval time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Workers:         2,
		ReleaseAfter:    15 * time.Minute,
		CleanupInterval: time.Hour,
	}
}
