package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scheme-matcher/internal/matching/rules"
	"scheme-matcher/internal/models"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := New(rules.MustDefault(), nil, DefaultOptions())
	require.NoError(t, err)
	return e
}

func resultNames(res Result) []string {
	out := make([]string, 0, len(res.Schemes))
	for _, s := range res.Schemes {
		out = append(out, s.Name)
	}
	return out
}

func stage(res Result, name string) (Stage, bool) {
	for _, s := range res.Stages {
		if s.Name == name {
			return s, true
		}
	}
	return Stage{}, false
}

// ==========================
// Scenarios
// ==========================

func TestRun_MSMERegistrationExcludesNewBusinessSchemes(t *testing.T) {
	e := newTestEngine(t)

	res := e.Run(Input{
		Query:   "schemes for my brass unit",
		Profile: "Udyam registration UDYAM-KA-03-0012345, we make brass fittings",
		Schemes: []models.Scheme{
			{ID: "pmegp", Name: "PMEGP", Description: "Prime Minister's Employment Generation Programme", Score: 99},
			{ID: "fge", Name: "Entrepreneur Support", Eligibility: models.TextList{"First-generation entrepreneurs only"}, Score: 90},
			{ID: "reg", Name: "Udyam Registration Scheme", Description: "How to register udyam", Score: 80},
			{ID: "tech", Name: "Technology Upgradation", Description: "Support for existing units", Score: 10},
		},
	})

	assert.Equal(t, []string{"Technology Upgradation"}, resultNames(res))
	assert.Equal(t, 1, res.Count)
	assert.Contains(t, res.ProfileAnalysis.ExistingRegistrations, models.RegUdyam)
	assert.True(t, res.Profile.ExistingBusiness)

	elig, ok := stage(res, StageEligibility)
	require.True(t, ok)
	assert.Equal(t, 4, elig.In)
	assert.Equal(t, 1, elig.Out)
	assert.Len(t, res.ExcludedReasons, 3)
}

func TestRun_KarnatakaKeepsOnlyApplicableSchemes(t *testing.T) {
	e := newTestEngine(t)

	res := e.Run(Input{
		Query: "support for textile unit",
		State: "Karnataka",
		Schemes: []models.Scheme{
			{ID: "1", Name: "TN scheme", NameOfState: models.TextList{"Tamil Nadu"}},
			{ID: "2", Name: "National scheme", NameOfState: models.TextList{"ALL INDIA"}},
			{ID: "3", Name: "Undeclared scheme"},
			{ID: "4", Name: "Karnataka scheme", NameOfState: models.TextList{"Karnataka"}},
		},
	})

	assert.Equal(t, []string{"National scheme", "Karnataka scheme"}, resultNames(res))
	st, ok := stage(res, StageState)
	require.True(t, ok)
	assert.Len(t, st.Dropped, 2)
}

func TestRun_AboveOneCroreBackfillsByAmount(t *testing.T) {
	e := newTestEngine(t)

	res := e.Run(Input{
		Query: "need a loan above ₹1 crore",
		Schemes: []models.Scheme{
			{ID: "small", Name: "small", BenefitSummary: "Loans up to 20 lakh"},
			{ID: "mid", Name: "mid", BenefitSummary: "Loans up to 75 lakh"},
			{ID: "large", Name: "large", BenefitSummary: "Loans up to 500 lakh"},
		},
	})

	require.NotNil(t, res.ResolvedAmount)
	assert.Equal(t, 100.0, *res.ResolvedAmount)
	assert.Equal(t, models.AmountAbove, res.AmountMode)
	assert.Equal(t, "loan", res.Intent)
	assert.Equal(t, []string{"large", "mid", "small"}, resultNames(res))
}

func TestRun_ExplicitLoanAmountWinsOverQuery(t *testing.T) {
	e := newTestEngine(t)

	res := e.Run(Input{
		Query:      "loan schemes",
		LoanAmount: "15 lakh",
		Schemes: []models.Scheme{
			{ID: "a", Name: "a", BenefitSummary: "Loans up to 10 lakh"},
			{ID: "b", Name: "b", BenefitSummary: "Loans up to 15 lakh"},
		},
	})

	require.NotNil(t, res.ResolvedAmount)
	assert.Equal(t, 15.0, *res.ResolvedAmount)
	assert.Equal(t, models.AmountExact, res.AmountMode)
	assert.Equal(t, "b", res.Schemes[0].Name)
}

func TestRun_NoAmountLeavesRequirementNil(t *testing.T) {
	e := newTestEngine(t)

	res := e.Run(Input{
		Query:   "schemes for 5 employees",
		Schemes: []models.Scheme{{ID: "x", Name: "x"}},
	})

	assert.Nil(t, res.ResolvedAmount)
	_, ran := stage(res, StageAmount)
	assert.False(t, ran)
}

// ==========================
// Stages
// ==========================

func TestRun_DropsInvalidAndShownRecords(t *testing.T) {
	e := newTestEngine(t)

	res := e.Run(Input{
		Query:        "schemes",
		ExcludeShown: "Stand-Up India, ",
		Schemes: []models.Scheme{
			{ID: "msme-schemes-list", Name: "All MSME schemes"},
			{ID: "blank"},
			{ID: "sui", Name: "Stand-Up India Scheme"},
			{ID: "cg", Name: "Credit Guarantee Scheme"},
		},
	})

	assert.Equal(t, []string{"Credit Guarantee Scheme"}, resultNames(res))
	assert.Equal(t, []string{"stand-up india"}, res.ExcludedSchemes)

	rec, _ := stage(res, StageRecords)
	assert.Equal(t, Stage{Name: StageRecords, In: 4, Out: 2, Dropped: rec.Dropped}, rec)
	shown, _ := stage(res, StageShown)
	require.Len(t, shown.Dropped, 1)
	assert.Equal(t, "Stand-Up India Scheme", shown.Dropped[0].Name)
}

func TestRun_ProfileRanksBySupportType(t *testing.T) {
	e := newTestEngine(t)

	res := e.Run(Input{
		Query:   "need a loan",
		Profile: "We are a proprietorship firm",
		Schemes: []models.Scheme{
			{ID: "gen", Name: "General Support", Score: 9},
			{ID: "credit", Name: "Credit Line", ServiceType: models.TextList{"Loan"}, Score: 3},
		},
	})

	assert.Equal(t, []string{"Credit Line", "General Support"}, resultNames(res))
	_, ranked := stage(res, StageScoring)
	assert.True(t, ranked)
}

func TestRun_WithoutProfileKeepsRetrievalOrder(t *testing.T) {
	e := newTestEngine(t)

	res := e.Run(Input{
		Query: "need a loan",
		Schemes: []models.Scheme{
			{ID: "gen", Name: "General Support"},
			{ID: "credit", Name: "Credit Line", ServiceType: models.TextList{"Loan"}},
		},
	})

	assert.Equal(t, []string{"General Support", "Credit Line"}, resultNames(res))
}

func TestRun_SchemeTypeFilterAndGrouping(t *testing.T) {
	e := newTestEngine(t)

	in := []models.Scheme{
		{ID: "c", Name: "CGTMSE", SchemeType: "Central Sector Scheme"},
		{ID: "s", Name: "Kerala Entrepreneur Support", SchemeType: "State Scheme"},
	}

	all := e.Run(Input{Query: "schemes", Schemes: in})
	assert.Equal(t, []string{"CGTMSE"}, all.Grouping.CentralSchemes)
	assert.Equal(t, []string{"Kerala Entrepreneur Support"}, all.Grouping.StateSchemes)
	assert.Equal(t, 1, all.Grouping.CentralCount)

	central := e.Run(Input{Query: "schemes", Schemes: in, SchemeTypeFilter: "central"})
	assert.Equal(t, []string{"CGTMSE"}, resultNames(central))
	assert.Equal(t, models.CategoryCentral, central.Schemes[0].Category)
}

func TestRun_EmptyInput(t *testing.T) {
	e := newTestEngine(t)

	res := e.Run(Input{Query: "loan", Profile: "based in Goa"})

	assert.Equal(t, 0, res.Count)
	assert.Empty(t, res.Schemes)
	assert.NotNil(t, res.ExcludedReasons)
	assert.NotNil(t, res.Grouping.CentralSchemes)
	assert.Equal(t, "Goa", res.Profile.State)
}

func TestRun_DoesNotMutateInput(t *testing.T) {
	e := newTestEngine(t)
	in := []models.Scheme{
		{ID: "b", Name: "b", BenefitSummary: "up to 5 lakh"},
		{ID: "a", Name: "a", BenefitSummary: "up to 50 lakh"},
	}
	before := append([]models.Scheme(nil), in...)

	e.Run(Input{Query: "loan above 10 lakh", Profile: "proprietorship", Schemes: in})

	assert.Equal(t, before, in)
}
