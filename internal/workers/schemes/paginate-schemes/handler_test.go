package paginateschemes

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"scheme-matcher/internal/common/logger"
	"scheme-matcher/internal/models"
	"scheme-matcher/internal/session"
)

type failingStore struct {
	session.Store
	err error
}

func (f failingStore) Update(ctx context.Context, id string, fn session.UpdateFunc) (models.PaginationState, error) {
	return models.PaginationState{}, f.err
}

func createTestLogger(t *testing.T) logger.Logger {
	return logger.NewZapAdapter(zaptest.NewLogger(t))
}

func newRedisStore(t *testing.T) session.Store {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return session.NewRedisStore(client)
}

func newTestHandler(t *testing.T, store session.Store) *Handler {
	h := NewHandler(LoadConfig(), store, createTestLogger(t))
	h.newID = func() string { return "generated-id" }
	return h
}

func ranked(n int) []models.MatchedScheme {
	out := make([]models.MatchedScheme, n)
	for i := range out {
		out[i] = models.MatchedScheme{Scheme: models.Scheme{
			ID:             fmt.Sprintf("s%d", i+1),
			Name:           fmt.Sprintf("Scheme %d", i+1),
			BenefitSummary: "Subsidy",
		}}
	}
	return out
}

func schemeNames(list []models.MatchedScheme) []string {
	out := make([]string, 0, len(list))
	for _, s := range list {
		out = append(out, s.Name)
	}
	return out
}

// ==========================
// New search
// ==========================

func TestExecute_NewSearchShowsFirstPage(t *testing.T) {
	for name, store := range map[string]session.Store{
		"redis":  newRedisStore(t),
		"memory": session.NewMemoryStore(time.Minute),
	} {
		t.Run(name, func(t *testing.T) {
			h := newTestHandler(t, store)

			out, err := h.Execute(context.Background(), &Input{
				SessionID:     "sess-1",
				SearchID:      "search-1",
				RankedSchemes: ranked(7),
			})
			require.NoError(t, err)

			assert.True(t, out.NewSearch)
			assert.Equal(t, "search-1", out.SearchID)
			assert.Equal(t, []string{"Scheme 1", "Scheme 2", "Scheme 3"}, schemeNames(out.SchemesToShow))
			assert.Equal(t, 0, out.Pagination.CurrentPage)
			assert.Equal(t, 3, out.Pagination.TotalPages)
			assert.True(t, out.Pagination.HasNext)
			assert.Equal(t, []string{"Scheme 1", "Scheme 2", "Scheme 3"}, out.ShownSchemes)
			assert.Contains(t, out.Message, "**Scheme 1: Scheme 1**")
			assert.Contains(t, out.Message, "show more")

			state, err := store.Load(context.Background(), "sess-1")
			require.NoError(t, err)
			assert.Equal(t, "search-1", state.SearchID)
			assert.Equal(t, 0, state.CurrentPage)
			assert.Equal(t, []string{"s1", "s2", "s3"}, state.Shown)
		})
	}
}

func TestExecute_NewSearchIDReplacesStoredList(t *testing.T) {
	store := session.NewMemoryStore(time.Minute)
	h := newTestHandler(t, store)
	ctx := context.Background()

	_, err := h.Execute(ctx, &Input{SessionID: "s", SearchID: "a", RankedSchemes: ranked(5)})
	require.NoError(t, err)

	other := []models.MatchedScheme{{Scheme: models.Scheme{ID: "x", Name: "Other"}}}
	out, err := h.Execute(ctx, &Input{SessionID: "s", SearchID: "b", RankedSchemes: other})
	require.NoError(t, err)

	assert.True(t, out.NewSearch)
	assert.Equal(t, []string{"Other"}, schemeNames(out.SchemesToShow))
	assert.False(t, out.Pagination.HasNext)
	assert.Contains(t, out.Message, "all the schemes")
}

func TestExecute_GeneratesSearchID(t *testing.T) {
	h := newTestHandler(t, session.NewMemoryStore(time.Minute))

	out, err := h.Execute(context.Background(), &Input{SessionID: "s", RankedSchemes: ranked(1)})
	require.NoError(t, err)
	assert.Equal(t, "generated-id", out.SearchID)
}

func TestExecute_EmptyResultStillStartsSearch(t *testing.T) {
	h := newTestHandler(t, session.NewMemoryStore(time.Minute))

	out, err := h.Execute(context.Background(), &Input{SessionID: "s", SearchID: "a", RankedSchemes: []models.MatchedScheme{}})
	require.NoError(t, err)
	assert.Empty(t, out.SchemesToShow)
	assert.Equal(t, 0, out.Pagination.TotalPages)
	assert.Equal(t, []string{}, out.ShownSchemes)
}

// ==========================
// Re-show
// ==========================

func TestExecute_ReshowsStoredPage(t *testing.T) {
	store := session.NewMemoryStore(time.Minute)
	h := newTestHandler(t, store)
	ctx := context.Background()

	_, err := h.Execute(ctx, &Input{SessionID: "s", SearchID: "a", RankedSchemes: ranked(7), Language: "hi"})
	require.NoError(t, err)

	page := 2
	out, err := h.Execute(ctx, &Input{SessionID: "s", Page: &page})
	require.NoError(t, err)

	assert.False(t, out.NewSearch)
	assert.Equal(t, []string{"Scheme 7"}, schemeNames(out.SchemesToShow))
	assert.Contains(t, out.Message, "योजना 7")
	assert.Len(t, out.ShownSchemes, 4)

	// Same search id with the list again keeps the cursor.
	out, err = h.Execute(ctx, &Input{SessionID: "s", SearchID: "a", RankedSchemes: ranked(7)})
	require.NoError(t, err)
	assert.False(t, out.NewSearch)
	assert.Equal(t, 2, out.Pagination.CurrentPage)
}

func TestExecute_PageBeyondEndIsClamped(t *testing.T) {
	h := newTestHandler(t, session.NewMemoryStore(time.Minute))
	ctx := context.Background()

	_, err := h.Execute(ctx, &Input{SessionID: "s", SearchID: "a", RankedSchemes: ranked(4)})
	require.NoError(t, err)

	page := 9
	out, err := h.Execute(ctx, &Input{SessionID: "s", Page: &page})
	require.NoError(t, err)
	assert.Equal(t, 1, out.Pagination.CurrentPage)
	assert.Equal(t, []string{"Scheme 4"}, schemeNames(out.SchemesToShow))
}

// ==========================
// Errors
// ==========================

func TestExecute_Errors(t *testing.T) {
	negative := -1
	tests := []struct {
		name     string
		store    session.Store
		input    *Input
		want     error
		wantCode string
	}{
		{"missing session", session.NewMemoryStore(time.Minute), &Input{RankedSchemes: ranked(1)}, ErrInvalidInput, "INVALID_SCHEME_INPUT"},
		{"negative page", session.NewMemoryStore(time.Minute), &Input{SessionID: "s", Page: &negative}, ErrInvalidInput, "INVALID_SCHEME_INPUT"},
		{"no stored search", session.NewMemoryStore(time.Minute), &Input{SessionID: "s"}, ErrNoPriorSearch, "NO_PRIOR_SEARCH"},
		{"conflict", failingStore{err: session.ErrConflict}, &Input{SessionID: "s"}, ErrConflict, "SESSION_CONFLICT"},
		{"store down", failingStore{err: errors.New("dial tcp: refused")}, &Input{SessionID: "s"}, ErrSessionState, "SESSION_STATE_FAILED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(t, tt.store)

			out, err := h.Execute(context.Background(), tt.input)
			require.Error(t, err)
			assert.Nil(t, out)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, tt.wantCode, string(h.mapError("s", err).Code))
		})
	}
}
