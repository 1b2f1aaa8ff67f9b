package searchschemes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	apperrors "scheme-matcher/internal/common/errors"
	"scheme-matcher/internal/common/logger"
	"scheme-matcher/internal/matching/amount"
	"scheme-matcher/internal/matching/rules"
	"scheme-matcher/internal/models"
	"scheme-matcher/internal/workers/schemes/search-schemes/queries"
)

type fakeSearcher struct {
	mu      sync.Mutex
	results map[string]*queries.SearchResult
	errs    map[string]error
	calls   []queries.SchemeQuery
}

func (f *fakeSearcher) Search(ctx context.Context, q queries.SchemeQuery) (*queries.SearchResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, q)
	f.mu.Unlock()
	if err := f.errs[q.Index]; err != nil {
		return nil, err
	}
	if r, ok := f.results[q.Index]; ok {
		return r, nil
	}
	return &queries.SearchResult{Index: q.Index}, nil
}

func createTestConfig() *Config {
	cfg := LoadConfig()
	cfg.Timeout = 5 * time.Second
	return cfg
}

func createTestLogger(t *testing.T) logger.Logger {
	return logger.NewZapAdapter(zaptest.NewLogger(t))
}

func newTestHandler(t *testing.T, cfg *Config, s Searcher) *Handler {
	h := NewHandler(cfg, s, amount.NewParser(rules.MustDefault()), createTestLogger(t))
	h.newID = func() string { return "search-1" }
	return h
}

// ==========================
// Query construction
// ==========================

func TestExecute_EnhancedQueryAndFetchSize(t *testing.T) {
	tests := []struct {
		name      string
		input     Input
		wantQuery string
		wantSize  int
		wantIndex string
	}{
		{
			name:      "msme plain query",
			input:     Input{Query: "working capital", Persona: "msme"},
			wantQuery: "working capital",
			wantSize:  15,
			wantIndex: "msme-schemes",
		},
		{
			name:      "msme with state business type and female user",
			input:     Input{Query: "loan", Persona: "msme", State: "Kerala", BusinessType: "bakery, catering", Gender: "Female"},
			wantQuery: "loan Kerala bakery women entrepreneur",
			wantSize:  15,
			wantIndex: "msme-schemes",
		},
		{
			name:      "long business type is left out",
			input:     Input{Query: "loan", Persona: "msme", BusinessType: "manufacturing of precision engineering components"},
			wantQuery: "loan",
			wantSize:  15,
			wantIndex: "msme-schemes",
		},
		{
			name:      "amount in query widens the pool",
			input:     Input{Query: "need loan of 5 lakh", Persona: "msme"},
			wantQuery: "need loan of 5 lakh",
			wantSize:  25,
			wantIndex: "msme-schemes",
		},
		{
			name:      "explicit loan amount widens the pool",
			input:     Input{Query: "machinery", Persona: "msme", LoanAmount: "10 lakh"},
			wantQuery: "machinery",
			wantSize:  25,
			wantIndex: "msme-schemes",
		},
		{
			name:      "msme exclusions",
			input:     Input{Query: "loan", Persona: "msme", ExcludeSchemes: "A, B,,C"},
			wantQuery: "loan",
			wantSize:  21,
			wantIndex: "msme-schemes",
		},
		{
			name:      "msme exclusions are capped",
			input:     Input{Query: "loan", Persona: "msme", ExcludeSchemes: strings.Repeat("x,", 20)},
			wantQuery: "loan",
			wantSize:  30,
			wantIndex: "msme-schemes",
		},
		{
			name:      "farmer",
			input:     Input{Query: "irrigation", Persona: "farmer", State: "Punjab", Category: "small", Gender: "female"},
			wantQuery: "irrigation Punjab small farmer female farmer",
			wantSize:  8,
			wantIndex: "farmer-schemes",
		},
		{
			name:      "farmer exclusions",
			input:     Input{Query: "seeds", Persona: "FARMER", ExcludeSchemes: "PM-KISAN"},
			wantQuery: "seeds",
			wantSize:  14,
			wantIndex: "farmer-schemes",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &fakeSearcher{}
			h := newTestHandler(t, createTestConfig(), s)

			out, err := h.Execute(context.Background(), &tt.input)
			require.NoError(t, err)

			assert.Equal(t, tt.wantQuery, out.EnhancedQuery)
			assert.Equal(t, tt.wantSize, out.FetchSize)
			assert.Equal(t, []string{tt.wantIndex}, out.Indices)
			require.Len(t, s.calls, 1)
			assert.Equal(t, tt.wantIndex, s.calls[0].Index)
			assert.Equal(t, tt.wantSize, s.calls[0].Size)
			assert.Equal(t, "search-1", out.SearchID)
		})
	}
}

func TestExecute_PassesExcludedNames(t *testing.T) {
	s := &fakeSearcher{}
	h := newTestHandler(t, createTestConfig(), s)

	_, err := h.Execute(context.Background(), &Input{Query: "loan", ExcludeSchemes: " PMEGP , Mudra "})
	require.NoError(t, err)
	require.Len(t, s.calls, 1)
	assert.Equal(t, []string{"PMEGP", "Mudra"}, s.calls[0].ExcludeNames)
}

// ==========================
// Fan-out and merge
// ==========================

func TestExecute_MergesIndicesByScore(t *testing.T) {
	cfg := createTestConfig()
	cfg.ExtraIndices = []string{"state-schemes", "msme-schemes"}

	s := &fakeSearcher{results: map[string]*queries.SearchResult{
		"msme-schemes": {
			TotalHits: 2,
			Schemes: []models.Scheme{
				{ID: "a", Name: "Alpha", Score: 9},
				{ID: "c", Name: "Gamma", Score: 3},
			},
		},
		"state-schemes": {
			TotalHits: 2,
			Schemes: []models.Scheme{
				{ID: "b", Name: "Beta", Score: 5},
				{ID: "a", Name: "Alpha copy", Score: 4},
			},
		},
	}}
	h := newTestHandler(t, cfg, s)

	out, err := h.Execute(context.Background(), &Input{Query: "loan"})
	require.NoError(t, err)

	assert.Equal(t, []string{"msme-schemes", "state-schemes"}, out.Indices)
	assert.Equal(t, int64(4), out.TotalHits)
	require.Len(t, out.Candidates, 3)
	assert.Equal(t, "Alpha", out.Candidates[0].Name)
	assert.Equal(t, "Beta", out.Candidates[1].Name)
	assert.Equal(t, "Gamma", out.Candidates[2].Name)
}

func TestExecute_FailingExtraIndexIsSkipped(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"missing", fmt.Errorf("%w: state-schemes", queries.ErrIndexNotFound)},
		{"bad response", fmt.Errorf("%w: [500] shard failure", queries.ErrSearchFailed)},
		{"connection", fmt.Errorf("%w: dial tcp", queries.ErrConnection)},
		{"deadline", context.DeadlineExceeded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := createTestConfig()
			cfg.ExtraIndices = []string{"state-schemes"}

			s := &fakeSearcher{
				results: map[string]*queries.SearchResult{
					"msme-schemes": {TotalHits: 1, Schemes: []models.Scheme{{ID: "a", Name: "Alpha", Score: 1}}},
				},
				errs: map[string]error{"state-schemes": tt.err},
			}
			h := newTestHandler(t, cfg, s)

			out, err := h.Execute(context.Background(), &Input{Query: "loan"})
			require.NoError(t, err)
			require.Len(t, out.Candidates, 1)
			assert.Equal(t, "Alpha", out.Candidates[0].Name)
			assert.Equal(t, int64(1), out.TotalHits)
		})
	}
}

// ==========================
// Errors
// ==========================

func TestExecute_Errors(t *testing.T) {
	tests := []struct {
		name     string
		input    *Input
		err      error
		want     error
		wantCode apperrors.ErrorCode
	}{
		{
			name:     "empty query",
			input:    &Input{Query: "  "},
			want:     ErrInvalidInput,
			wantCode: apperrors.ErrCodeInvalidSchemeInput,
		},
		{
			name:     "nil input",
			input:    nil,
			want:     ErrInvalidInput,
			wantCode: apperrors.ErrCodeInvalidSchemeInput,
		},
		{
			name:     "primary index missing",
			input:    &Input{Query: "loan"},
			err:      fmt.Errorf("%w: msme-schemes", queries.ErrIndexNotFound),
			want:     ErrIndexNotFound,
			wantCode: apperrors.ErrCodeIndexNotFound,
		},
		{
			name:     "connection refused",
			input:    &Input{Query: "loan"},
			err:      fmt.Errorf("%w: dial tcp", queries.ErrConnection),
			want:     ErrElasticsearchConnectionFailed,
			wantCode: apperrors.ErrCodeElasticsearchConnectionFailed,
		},
		{
			name:     "deadline",
			input:    &Input{Query: "loan"},
			err:      context.DeadlineExceeded,
			want:     ErrSearchTimeout,
			wantCode: apperrors.ErrCodeSearchTimeout,
		},
		{
			name:     "bad response",
			input:    &Input{Query: "loan"},
			err:      fmt.Errorf("%w: [500] boom", queries.ErrSearchFailed),
			want:     ErrSearchQueryFailed,
			wantCode: apperrors.ErrCodeSearchQueryFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &fakeSearcher{}
			if tt.err != nil {
				s.errs = map[string]error{"msme-schemes": tt.err}
			}
			h := newTestHandler(t, createTestConfig(), s)

			out, err := h.Execute(context.Background(), tt.input)
			require.Error(t, err)
			assert.Nil(t, out)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
			assert.Equal(t, tt.wantCode, h.mapError(err).Code)
		})
	}
}

// ==========================
// Real Elasticsearch
// ==========================

func createRealElasticsearchClient(t *testing.T) *elasticsearch.Client {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{"http://localhost:9200"},
	})
	if err != nil {
		t.Skipf("Skipping test: Failed to create Elasticsearch client: %v", err)
	}
	res, err := client.Info()
	if err != nil {
		t.Skipf("Skipping test: Elasticsearch not responding: %v", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		t.Skipf("Skipping test: Elasticsearch error: %s", res.String())
	}
	return client
}

func TestExecute_RealElasticsearch(t *testing.T) {
	client := createRealElasticsearchClient(t)
	index := "msme-schemes-test"

	client.Indices.Delete([]string{index}, client.Indices.Delete.WithIgnoreUnavailable(true))
	res, err := client.Indices.Create(index)
	require.NoError(t, err)
	res.Body.Close()
	defer client.Indices.Delete([]string{index})

	docs := []map[string]interface{}{
		{"id": "s1", "name": "Credit Guarantee Scheme", "description": "collateral free loan for micro enterprises", "name_of_state": "All India"},
		{"id": "s2", "name": "Kerala Bakery Support", "description": "subsidy for bakery units", "name_of_state": "Kerala"},
		{"id": "s3", "name": "Export Promotion", "description": "market access for exporters", "name_of_state": "All India"},
	}
	for _, doc := range docs {
		body, _ := json.Marshal(doc)
		res, err := client.Index(index, strings.NewReader(string(body)),
			client.Index.WithDocumentID(doc["id"].(string)),
			client.Index.WithRefresh("true"))
		require.NoError(t, err)
		res.Body.Close()
	}

	cfg := createTestConfig()
	cfg.MSMEIndex = index
	h := newTestHandler(t, cfg, queries.NewESSearcher(client))

	out, err := h.Execute(context.Background(), &Input{Query: "collateral free loan", ExcludeSchemes: "Export Promotion"})
	require.NoError(t, err)
	require.NotEmpty(t, out.Candidates)
	assert.Equal(t, "s1", out.Candidates[0].ID)
	for _, c := range out.Candidates {
		assert.NotEqual(t, "Export Promotion", c.Name)
		assert.Greater(t, c.Score, 0.0)
	}
}
