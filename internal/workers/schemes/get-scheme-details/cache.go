// internal/workers/schemes/get-scheme-details/cache.go
package getschemedetails

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"scheme-matcher/internal/models"
)

// schemeCache keeps catalog rows in Redis so repeated detail requests skip
// Postgres.
type schemeCache struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
}

func (c *schemeCache) key(id string) string {
	return fmt.Sprintf("%s:%s", c.prefix, id)
}

// get reports a miss as found false; only transport and decode failures are
// errors.
func (c *schemeCache) get(ctx context.Context, id string) (models.Scheme, bool, error) {
	data, err := c.client.Get(ctx, c.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.Scheme{}, false, nil
	}
	if err != nil {
		return models.Scheme{}, false, err
	}
	var s models.Scheme
	if err := json.Unmarshal(data, &s); err != nil {
		return models.Scheme{}, false, err
	}
	return s, true, nil
}

func (c *schemeCache) set(ctx context.Context, s models.Scheme) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(s.ID), data, c.ttl).Err()
}
