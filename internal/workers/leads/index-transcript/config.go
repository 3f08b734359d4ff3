package indextranscript

import "time"

// DefaultIndex holds one document per qualified conversation.
const DefaultIndex = "chat-transcripts"

type Config struct {
	Enabled       bool          `mapstructure:"enabled"`
	MaxJobsActive int           `mapstructure:"max_jobs_active"`
	Timeout       time.Duration `mapstructure:"timeout"`
	Index         string        `mapstructure:"index"`
}

func LoadConfig() *Config {
	return &Config{
		Enabled:       true,
		MaxJobsActive: 5,
		Timeout:       30 * time.Second,
		Index:         DefaultIndex,
	}
}

// IndexMapping keeps the transcript text searchable and the profile fields as keywords.
const IndexMapping = `{
  "mappings": {
    "properties": {
      "sessionId":    {"type": "keyword"},
      "stage":        {"type": "keyword"},
      "leadScore":    {"type": "integer"},
      "fleetSize":    {"type": "keyword"},
      "experience":   {"type": "keyword"},
      "challenges":   {"type": "keyword"},
      "interests":    {"type": "keyword"},
      "text":         {"type": "text"},
      "messageCount": {"type": "integer"},
      "qualifiedAt":  {"type": "date"},
      "indexedAt":    {"type": "date"}
    }
  }
}`
