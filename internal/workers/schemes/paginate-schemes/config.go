// internal/workers/schemes/paginate-schemes/config.go
package paginateschemes

import "time"

type Config struct {
	Timeout         time.Duration
	SchemesPerPage  int
	MaxPages        int
	DefaultLanguage string
}

func LoadConfig() *Config {
	return &Config{
		Timeout:         3 * time.Second,
		SchemesPerPage:  3,
		MaxPages:        5,
		DefaultLanguage: "en",
	}
}
