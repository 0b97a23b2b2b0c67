package scheduler

import (
	"time"

	"github.com/smallbiznis/quotedesk/internal/config"
)

// Config controls the scheduler interval, draft retention and editor session expiry.
type Config struct {
	RunInterval time.Duration
	// DraftRetention of zero disables the purge job; drafts then live until committed
	// or discarded.
	DraftRetention time.Duration
	// SessionIdle of zero keeps editor sessions until they are closed explicitly.
	SessionIdle time.Duration
	JobTimeout  time.Duration
}

func DefaultConfig() Config {
	return Config{
		RunInterval: time.Hour,
		JobTimeout:  30 * time.Second,
	}
}

func ProvideConfig(cfg config.Config) Config {
	return Config{
		RunInterval:    cfg.SchedulerInterval,
		DraftRetention: cfg.DraftRetention,
		SessionIdle:    cfg.EditorSessionIdle,
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
	return c
}

// Enabled reports whether any job has work to do.
func (c Config) Enabled() bool {
	return c.DraftRetention > 0 || c.SessionIdle > 0
}
