package filters

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scheme-matcher/internal/matching/profile"
	"scheme-matcher/internal/matching/rules"
	"scheme-matcher/internal/models"
)

func schemeNames(schemes []models.Scheme) []string {
	out := make([]string, 0, len(schemes))
	for _, s := range schemes {
		out = append(out, s.Name)
	}
	return out
}

// ==========================
// Record validation and quality
// ==========================

func TestValidateRecords(t *testing.T) {
	in := []models.Scheme{
		{ID: "a", Name: "Scheme A"},
		{ID: "msme-schemes-list", Name: "MSME schemes"},
		{ID: "b", Name: "  "},
		{ID: "Farmer-Schemes-List", Name: "Farmer schemes"},
		{Name: "No id but named"},
	}

	kept, dropped := ValidateRecords(in)

	assert.Equal(t, []string{"Scheme A", "No id but named"}, schemeNames(kept))
	assert.Len(t, dropped, 3)
}

func TestFilterMinScore(t *testing.T) {
	in := []models.Scheme{{Name: "low", Score: 0.5}, {Name: "high", Score: 4.2}, {Name: "edge", Score: 1}}

	assert.Equal(t, []string{"high", "edge"}, schemeNames(FilterMinScore(in, 1)))
	assert.Equal(t, in, FilterMinScore(in, 0))
}

func TestExcludeShown(t *testing.T) {
	in := []models.Scheme{
		{Name: "Prime Minister's Employment Generation Programme"},
		{Name: "Credit Guarantee Scheme"},
		{Name: "Stand-Up India"},
	}

	got := ExcludeShown(in, "credit guarantee scheme for MSEs, Stand-Up India , ")

	assert.Equal(t, []string{"Prime Minister's Employment Generation Programme"}, schemeNames(got))
	assert.Equal(t, in, ExcludeShown(in, " , "))
}

// ==========================
// Region
// ==========================

func TestNormState(t *testing.T) {
	assert.Equal(t, "JAMMU AND KASHMIR", NormState(" jammu   &kashmir "))
	assert.Equal(t, "TAMIL NADU", NormState("Tamil\tNadu"))
	assert.Equal(t, "", NormState("   "))
}

func TestFilterByState_Karnataka(t *testing.T) {
	tables := rules.MustDefault()
	in := []models.Scheme{
		{ID: "1", Name: "TN scheme", NameOfState: models.TextList{"Tamil Nadu"}},
		{ID: "2", Name: "National scheme", NameOfState: models.TextList{"ALL INDIA"}},
		{ID: "3", Name: "Undeclared scheme", NameOfState: models.TextList{}},
	}

	kept, dropped := FilterByState(in, "Karnataka", tables)

	assert.Equal(t, []string{"National scheme"}, schemeNames(kept))
	require.Len(t, dropped, 2)
	assert.Equal(t, "TN scheme", dropped[0].Name)
	assert.Equal(t, "Undeclared scheme", dropped[1].Name)
}

func TestFilterByState_Variants(t *testing.T) {
	tables := rules.MustDefault()
	in := []models.Scheme{
		{Name: "comma list", NameOfState: models.TextList{"Kerala, Karnataka"}},
		{Name: "india", NameOfState: models.TextList{"india"}},
		{Name: "ampersand", NameOfState: models.TextList{"Jammu & Kashmir"}},
		{Name: "other", NameOfState: models.TextList{"Goa"}},
	}

	kept, _ := FilterByState(in, "karnataka", tables)
	assert.Equal(t, []string{"comma list", "india"}, schemeNames(kept))

	kept, _ = FilterByState(in, "Jammu and Kashmir", tables)
	assert.Equal(t, []string{"india", "ampersand"}, schemeNames(kept))
}

func TestFilterByState_EmptyStateIsNoOp(t *testing.T) {
	tables := rules.MustDefault()
	in := []models.Scheme{{Name: "a"}, {Name: "b", NameOfState: models.TextList{"Goa"}}}

	kept, dropped := FilterByState(in, "  ", tables)

	assert.Equal(t, in, kept)
	assert.Empty(t, dropped)
}

// ==========================
// Scheme type
// ==========================

func TestFilterBySchemeType(t *testing.T) {
	tables := rules.MustDefault()
	in := []models.Scheme{
		{Name: "c", SchemeType: "Central Sector Scheme"},
		{Name: "s", SchemeType: "State Scheme"},
		{Name: "u", SchemeType: "Centrally Sponsored"},
		{Name: "x", SchemeType: ""},
	}

	assert.Equal(t, []string{"c", "u"}, schemeNames(FilterBySchemeType(in, "Central", tables)))
	assert.Equal(t, []string{"c", "u"}, schemeNames(FilterBySchemeType(in, "केंद्रीय", tables)))
	assert.Equal(t, []string{"s"}, schemeNames(FilterBySchemeType(in, "state government", tables)))
	assert.Equal(t, in, FilterBySchemeType(in, "both", tables))

	onlyState := []models.Scheme{{Name: "s", SchemeType: "State"}}
	assert.Equal(t, onlyState, FilterBySchemeType(onlyState, "central", tables))
}

// ==========================
// Eligibility
// ==========================

func TestExcludeIneligible_MSMERegistrationDropsNewBusinessSchemes(t *testing.T) {
	tables := rules.MustDefault()
	analyzer, err := profile.NewAnalyzer(tables)
	require.NoError(t, err)

	p := analyzer.Analyze("Udyam registration UDYAM-KA-03-0012345, we make brass fittings")
	require.True(t, p.ExistingBusiness)

	in := []models.Scheme{
		{Name: "PMEGP", Description: "Prime Minister's Employment Generation Programme", Score: 99},
		{Name: "Entrepreneur Support", Eligibility: models.TextList{"First-generation entrepreneurs only"}, Score: 90},
		{Name: "Udyam Registration Scheme", Description: "How to register udyam"},
		{Name: "Technology Upgradation", Description: "Capital subsidy for existing units"},
	}

	kept, dropped := ExcludeIneligible(in, p, tables)

	assert.Equal(t, []string{"Technology Upgradation"}, schemeNames(kept))
	assert.Len(t, dropped, 3)
}

func TestExcludeIneligible_NewBusinessKeptWithoutExistingBusiness(t *testing.T) {
	tables := rules.MustDefault()
	in := []models.Scheme{{Name: "PMEGP", Description: "for new enterprises"}}

	kept, dropped := ExcludeIneligible(in, models.UserProfile{}, tables)

	assert.Equal(t, in, kept)
	assert.Empty(t, dropped)
}

func TestExcludeIneligible_DenylistWithoutExistingBusiness(t *testing.T) {
	tables := rules.MustDefault()
	p := models.UserProfile{
		Registrations:    models.Registrations{IEC: true},
		ExcludedKeywords: []string{"iec registration", "import export code"},
	}
	in := []models.Scheme{
		{Name: "Get your Import Export Code"},
		{Name: "Market Access Initiative", Description: "support for new business exporters"},
	}

	kept, _ := ExcludeIneligible(in, p, tables)

	assert.Equal(t, []string{"Market Access Initiative"}, schemeNames(kept))
}

func TestExcludeIneligible_DenylistMatchesWholeWords(t *testing.T) {
	tables := rules.MustDefault()
	p := models.UserProfile{
		Registrations:    models.Registrations{ShopEstablishment: true},
		ExcludedKeywords: []string{"shop and establishment registration", "shop act"},
	}
	in := []models.Scheme{
		{Name: "Tool Room Support", Description: "Common workshop activities and tooling grants"},
		{Name: "Shop Act Registration Drive", Description: "Register under the Shop  Act"},
		{Name: "Retail Modernisation", BenefitSummary: "Grants for shops that are already registered"},
	}

	kept, dropped := ExcludeIneligible(in, p, tables)

	assert.Equal(t, []string{"Tool Room Support", "Retail Modernisation"}, schemeNames(kept))
	require.Len(t, dropped, 1)
	assert.Equal(t, "Shop Act Registration Drive", dropped[0].Name)
	assert.Equal(t, "already covered: shop act", dropped[0].Reason)
}
