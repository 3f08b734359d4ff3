package crmcreate

import (
	"fmt"
	"time"
)

type Config struct {
	Enabled        bool          `mapstructure:"enabled"`
	MaxJobsActive  int           `mapstructure:"max_jobs_active"`
	Timeout        time.Duration `mapstructure:"timeout"`
	ZohoAPIKey     string        `mapstructure:"zoho_api_key"`
	ZohoOAuthToken string        `mapstructure:"zoho_oauth_token"`
	ZohoBaseURL    string        `mapstructure:"zoho_base_url"`
}

func DefaultConfig() *Config {
	return &Config{
		Enabled:       true,
		MaxJobsActive: 5,
		Timeout:       30 * time.Second,
	}
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MaxJobsActive <= 0 {
		return fmt.Errorf("max_jobs_active must be positive")
	}
	return nil
}

// Configured reports whether Zoho credentials are present.
func (c *Config) Configured() bool {
	return c.ZohoAPIKey != "" && c.ZohoOAuthToken != ""
}
