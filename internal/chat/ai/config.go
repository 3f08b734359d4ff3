package ai

import "time"

const DefaultHistoryTurns = 20

type Config struct {
	BaseURL      string
	Path         string
	APIKey       string
	Timeout      time.Duration
	MaxRetries   int
	HistoryTurns int
}

func (c Config) endpoint() string {
	return c.BaseURL + c.Path
}

func (c Config) historyTurns() int {
	if c.HistoryTurns <= 0 {
		return DefaultHistoryTurns
	}
	return c.HistoryTurns
}
