package database

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scheme-matcher/internal/common/config"
)

// ==========================
// Redis
// ==========================

func TestRedis_KeysAndSessions(t *testing.T) {
	mr := miniredis.RunT(t)

	c, err := NewRedis(config.RedisConfig{Address: mr.Addr(), KeyPrefix: "scheme"})
	require.NoError(t, err)
	defer c.Close()

	ctx := context.Background()
	require.NoError(t, c.Ping(ctx))

	assert.Equal(t, "scheme:session:abc:pagination", c.Key("session", "abc", "pagination"))

	for i := 0; i < 3; i++ {
		mr.Set(c.Key("session", fmt.Sprintf("s%d", i), "pagination"), "{}")
	}
	mr.Set(c.Key("scheme", "pmegp"), "{}")
	mr.Set("other:session:x:pagination", "{}")

	n, err := c.ActiveSessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = c.CountKeys(ctx, c.Key("*"))
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestRedis_NoPrefix(t *testing.T) {
	c := &RedisClient{}
	assert.Equal(t, "session:1", c.Key("session", "1"))
}

func TestNewRedis_EmptyAddress(t *testing.T) {
	_, err := NewRedis(config.RedisConfig{})
	assert.Error(t, err)
}

func TestRedis_PingFailure(t *testing.T) {
	mr := miniredis.RunT(t)
	c, err := NewRedis(config.RedisConfig{Address: mr.Addr()})
	require.NoError(t, err)
	mr.Close()

	assert.Error(t, c.Ping(context.Background()))
}

// ==========================
// Postgres
// ==========================

func TestPostgres_CatalogSize(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	c := &PostgresClient{DB: db}
	defer c.Close()

	mock.ExpectQuery(`SELECT count\(\*\) FROM schemes`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(42))
	n, err := c.CatalogSize(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, n)

	mock.ExpectQuery(`SELECT count\(\*\) FROM schemes`).
		WillReturnError(errors.New(`relation "schemes" does not exist`))
	_, err = c.CatalogSize(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "count schemes")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewPostgres_Disabled(t *testing.T) {
	_, err := NewPostgres(config.PostgresConfig{})
	assert.Error(t, err)
}

// ==========================
// Elasticsearch
// ==========================

func newFakeCluster(t *testing.T, existing ...string) *ElasticsearchClient {
	t.Helper()
	have := map[string]bool{}
	for _, idx := range existing {
		have[idx] = true
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")

		name := strings.Trim(r.URL.Path, "/")
		switch {
		case name == "":
			fmt.Fprint(w, `{"cluster_name":"test","version":{"number":"8.11.0"}}`)
		case name == "broken-index":
			w.WriteHeader(http.StatusInternalServerError)
		case have[name]:
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)

	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	return &ElasticsearchClient{Client: client}
}

func TestElasticsearch_PingAndInfo(t *testing.T) {
	c := newFakeCluster(t)
	ctx := context.Background()

	assert.NoError(t, c.Ping(ctx))
	assert.NoError(t, c.Info(ctx))
}

func TestElasticsearch_MissingIndices(t *testing.T) {
	c := newFakeCluster(t, "msme-schemes")
	ctx := context.Background()

	missing, err := c.MissingIndices(ctx, "msme-schemes", "", "farmer-schemes")
	require.NoError(t, err)
	assert.Equal(t, []string{"farmer-schemes"}, missing)

	_, err = c.MissingIndices(ctx, "broken-index")
	assert.Error(t, err)
}
