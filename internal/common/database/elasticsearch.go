// internal/common/database/elasticsearch.go
package database

import (
	"context"
	"fmt"
	"net/http"

	"scheme-matcher/internal/common/config"

	"github.com/elastic/go-elasticsearch/v8"
)

// ElasticsearchClient wraps the client that serves the scheme indices.
type ElasticsearchClient struct {
	Client *elasticsearch.Client
}

func NewElasticsearch(cfg config.ElasticsearchConfig) (*ElasticsearchClient, error) {
	esCfg := elasticsearch.Config{
		Addresses: cfg.Addresses,
	}
	if cfg.Username != "" {
		esCfg.Username = cfg.Username
		esCfg.Password = cfg.Password
	}

	es, err := elasticsearch.NewClient(esCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}
	return &ElasticsearchClient{Client: es}, nil
}

func (c *ElasticsearchClient) Ping(ctx context.Context) error {
	res, err := c.Client.Ping(c.Client.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch ping failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("elasticsearch ping error: %s", res.Status())
	}
	return nil
}

// Info is the readiness probe: it needs a live cluster, not just a socket.
func (c *ElasticsearchClient) Info(ctx context.Context) error {
	res, err := c.Client.Info(c.Client.Info.WithContext(ctx))
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("elasticsearch info error: %s", res.Status())
	}
	return nil
}

// MissingIndices returns the scheme indices that do not exist. Empty names
// are skipped.
func (c *ElasticsearchClient) MissingIndices(ctx context.Context, indices ...string) ([]string, error) {
	var missing []string
	for _, index := range indices {
		if index == "" {
			continue
		}
		res, err := c.Client.Indices.Exists([]string{index}, c.Client.Indices.Exists.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("check index %s: %w", index, err)
		}
		res.Body.Close()

		switch res.StatusCode {
		case http.StatusOK:
		case http.StatusNotFound:
			missing = append(missing, index)
		default:
			return nil, fmt.Errorf("check index %s: %s", index, res.Status())
		}
	}
	return missing, nil
}
