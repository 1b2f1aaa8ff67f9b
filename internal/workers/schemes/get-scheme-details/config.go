// internal/workers/schemes/get-scheme-details/config.go
package getschemedetails

import "time"

type Config struct {
	Timeout        time.Duration
	CacheTTL       time.Duration
	CacheKeyPrefix string
	SchemesPerPage int
	MaxPages       int
}

func LoadConfig() *Config {
	return &Config{
		Timeout:        5 * time.Second,
		CacheTTL:       10 * time.Minute,
		CacheKeyPrefix: "scheme",
		SchemesPerPage: 3,
		MaxPages:       5,
	}
}
