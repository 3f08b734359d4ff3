package flow

import "time"

type Config struct {
	TypingDelay     time.Duration
	ChunkSpacing    time.Duration
	FollowUpDelay   time.Duration
	TranscriptLimit int
	CalendarURL     string
	StrategyCallURL string
}

func DefaultConfig() Config {
	return Config{
		TypingDelay:     time.Second,
		ChunkSpacing:    1500 * time.Millisecond,
		FollowUpDelay:   2 * time.Second,
		TranscriptLimit: 50,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.TypingDelay <= 0 {
		c.TypingDelay = d.TypingDelay
	}
	if c.ChunkSpacing <= 0 {
		c.ChunkSpacing = d.ChunkSpacing
	}
	if c.FollowUpDelay <= 0 {
		c.FollowUpDelay = d.FollowUpDelay
	}
	if c.TranscriptLimit <= 0 {
		c.TranscriptLimit = d.TranscriptLimit
	}
	return c
}
