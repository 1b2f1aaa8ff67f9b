package matchschemes

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"scheme-matcher/internal/common/logger"
	"scheme-matcher/internal/common/metrics"
	"scheme-matcher/internal/matching/pipeline"
	"scheme-matcher/internal/matching/rules"
	"scheme-matcher/internal/models"
)

func createTestHandler(t *testing.T) *Handler {
	t.Helper()
	engine, err := pipeline.New(rules.MustDefault(), nil, pipeline.DefaultOptions())
	require.NoError(t, err)
	return NewHandler(LoadConfig(), engine, nil, logger.NewZapAdapter(zaptest.NewLogger(t)))
}

func names(out *Output) []string {
	return out.SchemeNames
}

// ==========================
// Input validation
// ==========================

func TestParseInput(t *testing.T) {
	tests := []struct {
		name      string
		variables string
		wantErr   bool
		check     func(t *testing.T, in *Input)
	}{
		{
			name:      "minimal",
			variables: `{"query": "loan"}`,
			check: func(t *testing.T, in *Input) {
				assert.Equal(t, "loan", in.Query)
				assert.Empty(t, in.Candidates)
			},
		},
		{
			name:      "numeric loan amount",
			variables: `{"query": "loan", "loanAmount": 500000}`,
			check: func(t *testing.T, in *Input) {
				assert.Equal(t, AmountText("500000"), in.LoanAmount)
			},
		},
		{
			name:      "string loan amount and extra process variables",
			variables: `{"query": "loan", "loanAmount": "5 lakh", "sessionId": "abc", "candidates": [{"id": "1", "name": "A"}]}`,
			check: func(t *testing.T, in *Input) {
				assert.Equal(t, AmountText("5 lakh"), in.LoanAmount)
				require.Len(t, in.Candidates, 1)
				assert.Equal(t, "A", in.Candidates[0].Name)
			},
		},
		{
			name:      "null candidates",
			variables: `{"query": "loan", "candidates": null}`,
		},
		{name: "missing query", variables: `{"candidates": []}`, wantErr: true},
		{name: "query of wrong type", variables: `{"query": 5}`, wantErr: true},
		{name: "candidate is not an object", variables: `{"query": "x", "candidates": ["a"]}`, wantErr: true},
		{name: "boolean amount", variables: `{"query": "x", "loanAmount": true}`, wantErr: true},
		{name: "not json", variables: `{`, wantErr: true},
	}

	h := createTestHandler(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, err := h.parseInput(tt.variables)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidInput)
				assert.Equal(t, "INVALID_SCHEME_INPUT", string(h.mapError(err).Code))
				return
			}
			require.NoError(t, err)
			if tt.check != nil {
				tt.check(t, in)
			}
		})
	}
}

func TestAmountText_Unmarshal(t *testing.T) {
	var v struct {
		A AmountText `json:"a"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a": 1500000.0}`), &v))
	assert.Equal(t, AmountText("1500000"), v.A)

	require.NoError(t, json.Unmarshal([]byte(`{"a": "₹15 lakh"}`), &v))
	assert.Equal(t, AmountText("₹15 lakh"), v.A)

	require.NoError(t, json.Unmarshal([]byte(`{"a": null}`), &v))
	assert.Equal(t, AmountText(""), v.A)
}

// ==========================
// Matching
// ==========================

func TestExecute_StateScenario(t *testing.T) {
	h := createTestHandler(t)
	before := testutil.ToFloat64(metrics.PipelineStageDropped.WithLabelValues(pipeline.StageState))

	out, err := h.Execute(context.Background(), &Input{
		Query: "support for textile unit",
		State: "Karnataka",
		Candidates: []models.Scheme{
			{ID: "1", Name: "TN scheme", NameOfState: models.TextList{"Tamil Nadu"}},
			{ID: "2", Name: "National scheme", NameOfState: models.TextList{"ALL INDIA"}, SchemeType: "Central"},
			{ID: "3", Name: "Undeclared scheme"},
			{ID: "4", Name: "Karnataka scheme", NameOfState: models.TextList{"Karnataka"}, SchemeType: "State"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"National scheme", "Karnataka scheme"}, names(out))
	assert.Equal(t, 2, out.Count)
	assert.Len(t, out.ExcludedReasons, 2)
	assert.Equal(t, 1, out.Grouping.CentralCount)
	assert.Equal(t, 1, out.Grouping.StateCount)

	after := testutil.ToFloat64(metrics.PipelineStageDropped.WithLabelValues(pipeline.StageState))
	assert.Equal(t, 2.0, after-before)
}

func TestExecute_NumericLoanAmount(t *testing.T) {
	h := createTestHandler(t)

	in, err := h.parseInput(`{
		"query": "loan schemes",
		"loanAmount": 1500000,
		"candidates": [
			{"id": "a", "name": "a", "benefit_summary": "Loans up to 10 lakh"},
			{"id": "b", "name": "b", "benefit_summary": "Loans up to 15 lakh"}
		]
	}`)
	require.NoError(t, err)

	out, err := h.Execute(context.Background(), in)
	require.NoError(t, err)
	require.NotNil(t, out.UserAmountLakhs)
	assert.Equal(t, 15.0, *out.UserAmountLakhs)
	assert.Equal(t, models.AmountExact, out.AmountMode)
	require.NotEmpty(t, out.RankedSchemes)
	assert.Equal(t, "b", out.RankedSchemes[0].Name)
}

func TestExecute_RegisteredBusinessProfile(t *testing.T) {
	h := createTestHandler(t)

	out, err := h.Execute(context.Background(), &Input{
		Query:           "schemes for my brass unit",
		BusinessProfile: "Udyam registration UDYAM-KA-03-0012345, we make brass fittings",
		Candidates: []models.Scheme{
			{ID: "pmegp", Name: "PMEGP", Description: "Prime Minister's Employment Generation Programme", Score: 99},
			{ID: "tech", Name: "Technology Upgradation", Description: "Support for existing units", Score: 10},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"Technology Upgradation"}, names(out))
	assert.Contains(t, out.ProfileAnalysis.ExistingRegistrations, models.RegUdyam)
}

func TestExecute_EmptyCandidates(t *testing.T) {
	h := createTestHandler(t)

	out, err := h.Execute(context.Background(), &Input{Query: "anything"})
	require.NoError(t, err)
	assert.Equal(t, 0, out.Count)

	raw, err := json.Marshal(out)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"rankedSchemes":[]`)
	assert.Contains(t, string(raw), `"userAmountLakhs":null`)
}

func TestExecute_Errors(t *testing.T) {
	h := createTestHandler(t)

	_, err := h.Execute(context.Background(), nil)
	assert.ErrorIs(t, err, ErrInvalidInput)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = h.Execute(ctx, &Input{Query: "loan"})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, "CONTEXT_CANCELLED", string(h.mapError(err).Code))
}
