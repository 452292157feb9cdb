package scheduler

import (
	"time"
)

// Config controls scheduler intervals and batch sizes.
type Config struct {
	RunInterval time.Duration
	JobTimeout  time.Duration
	// EnabledJobs empty means all jobs run (monolith mode).
	EnabledJobs []string
	// ReminderWindowDays 0 defers to the hot-reloadable notify config.
	ReminderWindowDays int
	MarkExpiredBatch   int
	SweepBatch         int
	EventRetentionDays int
}

func DefaultConfig() Config {
	return Config{
		RunInterval:        time.Minute,
		JobTimeout:         30 * time.Second,
		MarkExpiredBatch:   500,
		SweepBatch:         1000,
		EventRetentionDays: 90,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = defaults.JobTimeout
	}
	if c.MarkExpiredBatch <= 0 {
		c.MarkExpiredBatch = defaults.MarkExpiredBatch
	}
	if c.SweepBatch <= 0 {
		c.SweepBatch = defaults.SweepBatch
	}
	if c.EventRetentionDays <= 0 {
		c.EventRetentionDays = defaults.EventRetentionDays
	}
	return c
}
