package agent

import "time"

type Config struct {
	BaseURL    string
	APIKey     string
	Model      string
	Timeout    time.Duration
	MaxRetries int
	CacheTTL   time.Duration
}

func DefaultConfig() *Config {
	return &Config{
		BaseURL:    "https://api.openai.com/v1",
		Model:      "gpt-4o-mini",
		Timeout:    60 * time.Second,
		MaxRetries: 2,
		CacheTTL:   5 * time.Minute,
	}
}
