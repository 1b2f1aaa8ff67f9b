// internal/workers/schemes/match-schemes/config.go
package matchschemes

import "time"

type Config struct {
	Timeout time.Duration
	// LogExclusions logs every dropped scheme with its reason at debug level.
	LogExclusions bool
}

func LoadConfig() *Config {
	return &Config{
		Timeout:       5 * time.Second,
		LogExclusions: true,
	}
}
