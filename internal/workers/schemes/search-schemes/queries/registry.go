// internal/workers/schemes/search-schemes/queries/registry.go
package queries

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"

	"scheme-matcher/internal/models"
)

var (
	// ErrConnection means the request never got a response.
	ErrConnection    = errors.New("elasticsearch unreachable")
	ErrIndexNotFound = errors.New("index not found")
	ErrSearchFailed  = errors.New("search failed")
)

// SearchResult is one index's hits in score order.
type SearchResult struct {
	Index     string
	Schemes   []models.Scheme
	TotalHits int64
	MaxScore  float64
	Took      time.Duration
}

type searchResponse struct {
	Hits struct {
		Total struct {
			Value int64 `json:"value"`
		} `json:"total"`
		MaxScore *float64 `json:"max_score"`
		Hits     []struct {
			ID     string          `json:"_id"`
			Score  *float64        `json:"_score"`
			Source json.RawMessage `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// ESSearcher runs scheme queries against one Elasticsearch cluster.
type ESSearcher struct {
	client *elasticsearch.Client
}

func NewESSearcher(client *elasticsearch.Client) *ESSearcher {
	return &ESSearcher{client: client}
}

// Search executes q and decodes the hits into schemes. A hit without an id
// in its source takes the document id; the retrieval score is copied onto
// the scheme.
func (s *ESSearcher) Search(ctx context.Context, q SchemeQuery) (*SearchResult, error) {
	req, err := BuildQuery(q)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	res, err := req.Do(ctx, s.client)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", ErrConnection, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		if res.StatusCode == 404 {
			return nil, fmt.Errorf("%w: %s", ErrIndexNotFound, q.Index)
		}
		return nil, fmt.Errorf("%w: %s", ErrSearchFailed, res.String())
	}

	var r searchResponse
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrSearchFailed, err)
	}
	return decodeHits(q.Index, r, time.Since(start)), nil
}

func decodeHits(index string, r searchResponse, took time.Duration) *SearchResult {
	out := &SearchResult{
		Index:     index,
		TotalHits: r.Hits.Total.Value,
		Schemes:   make([]models.Scheme, 0, len(r.Hits.Hits)),
		Took:      took,
	}
	if r.Hits.MaxScore != nil {
		out.MaxScore = *r.Hits.MaxScore
	}
	for _, hit := range r.Hits.Hits {
		var s models.Scheme
		if err := json.Unmarshal(hit.Source, &s); err != nil {
			// Malformed documents are left for the record validator.
			s = models.Scheme{}
		}
		if strings.TrimSpace(s.ID) == "" {
			s.ID = hit.ID
		}
		if hit.Score != nil {
			s.Score = *hit.Score
		}
		out.Schemes = append(out.Schemes, s)
	}
	return out
}
