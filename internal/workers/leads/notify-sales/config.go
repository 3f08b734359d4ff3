package notifysales

import (
	"fmt"
	"time"
)

// DefaultSMSThreshold is the lead score at or above which sales is texted.
const DefaultSMSThreshold = 85

type Config struct {
	Enabled       bool          `mapstructure:"enabled"`
	MaxJobsActive int           `mapstructure:"max_jobs_active"`
	Timeout       time.Duration `mapstructure:"timeout"`
	SalesTo       []string      `mapstructure:"sales_to"`
	SMSEnabled    bool          `mapstructure:"sms_enabled"`
	SalesPhone    string        `mapstructure:"sales_phone"`
	SMSThreshold  int           `mapstructure:"sms_threshold"`
}

func DefaultConfig() *Config {
	return &Config{
		Enabled:       true,
		MaxJobsActive: 5,
		Timeout:       30 * time.Second,
		SMSThreshold:  DefaultSMSThreshold,
	}
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if len(c.SalesTo) == 0 {
		return fmt.Errorf("sales_to is required")
	}
	if c.SMSEnabled && c.SalesPhone == "" {
		return fmt.Errorf("sales_phone is required when sms is enabled")
	}
	return nil
}
