// internal/workers/schemes/search-schemes/config.go
package searchschemes

import "time"

type Config struct {
	Timeout     time.Duration
	MSMEIndex   string
	FarmerIndex string
	// ExtraIndices are searched alongside the persona index.
	ExtraIndices []string
	DefaultSize  int
}

func LoadConfig() *Config {
	return &Config{
		Timeout:     10 * time.Second,
		MSMEIndex:   "msme-schemes",
		FarmerIndex: "farmer-schemes",
		DefaultSize: 15,
	}
}
