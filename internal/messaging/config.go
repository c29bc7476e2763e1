package messaging

import (
	"log/slog"
	"time"
)

const (
	DefaultPollInterval    = 5 * time.Second
	DefaultListConcurrency = 8
	DefaultAvatarBaseURL   = "https://randomuser.me/api/portraits/people/"
)

type Config struct {
	PollInterval    time.Duration
	ListConcurrency int
	AvatarBaseURL   string

	Notifier Notifier
	Logger   *slog.Logger
	// Now is the clock for relative timestamps and optimistic sends.
	Now func() time.Time
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.ListConcurrency <= 0 {
		c.ListConcurrency = DefaultListConcurrency
	}
	if c.AvatarBaseURL == "" {
		c.AvatarBaseURL = DefaultAvatarBaseURL
	}
	c.Notifier = notifierOrDiscard(c.Notifier)
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}
