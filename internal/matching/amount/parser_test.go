package amount

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scheme-matcher/internal/matching/rules"
	"scheme-matcher/internal/models"
)

func newTestParser(opts ...ParserOption) *Parser {
	return NewParser(rules.MustDefault(), opts...)
}

// ==========================
// ParseAmount
// ==========================

func TestParseAmount(t *testing.T) {
	p := newTestParser()

	tests := []struct {
		name   string
		text   string
		want   float64
		wantOK bool
	}{
		{"lakh unit", "15 lakh", 15, true},
		{"crore with rupee sign", "₹1 crore", 100, true},
		{"indian grouping", "Rs.20,00,000", 20, true},
		{"range takes maximum", "10 lakh to 20 lakh", 20, true},
		{"decimal crore", "loan of 1.5 crore", 150, true},
		{"short crore", "upto 5cr", 500, true},
		{"lacs spelling", "need 25 lacs", 25, true},
		{"thousand", "50 thousand", 0.5, true},
		{"k suffix", "grant of 75k", 0.75, true},
		{"hindi lakh", "मुझे 10 लाख का लोन चाहिए", 10, true},
		{"hindi crore", "2 करोड़ तक", 200, true},
		{"crore grouping", "₹1,00,00,000", 100, true},
		{"western grouping falls to plain", "1,000,000", 10, true},
		{"plain rupees", "loan of 500000", 5, true},
		{"plain small number is lakh", "loan of 15", 15, true},
		{"unit inside word ignored", "15 lbs of rice", 15, true},
		{"number glued to word ignored", "Covid19 relief for MSMEs", 0, false},
		{"rs prefix glued to number", "rs500000 loan", 5, true},
		{"calendar year ignored", "registered since 2019", 0, false},
		{"financial year ignored", "turnover of 40 in fy 2023-24", 40, true},
		{"year next to plain amount", "loan of 500000 in 2024", 5, true},
		{"no amount", "working capital for my shop", 0, false},
		{"empty", "", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := p.ParseAmount(tt.text)
			assert.Equal(t, tt.wantOK, ok)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestParseAmount_UnitBeatsPlainNumber(t *testing.T) {
	p := newTestParser()

	got, ok := p.ParseAmount("2 machines costing 40 lakh in 2024")
	require.True(t, ok)
	assert.Equal(t, 40.0, got)
}

func TestParseAmount_StrictUnits(t *testing.T) {
	p := newTestParser(WithStrictUnits(true))

	_, ok := p.ParseAmount("loan of 50000")
	assert.False(t, ok)

	got, ok := p.ParseAmount("loan of 5 lakh")
	require.True(t, ok)
	assert.Equal(t, 5.0, got)
}

func TestParseAmount_PlainRupeeThreshold(t *testing.T) {
	p := newTestParser(WithPlainRupeeThreshold(100))

	got, ok := p.ParseAmount("loan of 50000")
	require.True(t, ok)
	assert.InDelta(t, 0.5, got, 1e-9)
}

// ==========================
// ParseRequirement
// ==========================

func TestParseRequirement(t *testing.T) {
	p := newTestParser()

	tests := []struct {
		query string
		value float64
		mode  models.AmountMode
	}{
		{"15 lakh loan", 15, models.AmountExact},
		{"loan above 1 crore", 100, models.AmountAbove},
		{"scheme with at least 50 lakh support", 50, models.AmountAbove},
		{"less than 50 lakh", 50, models.AmountBelow},
		{"loan up to 10 lakh", 10, models.AmountBelow},
		{"5 lakh tak ka loan", 5, models.AmountBelow},
		{"10 to 20 lakh", 20, models.AmountRange},
		{"10 lakh to 20 lakh", 20, models.AmountRange},
		{"overdraft of 5 lakh", 5, models.AmountExact},
		{"loan above 50 lakh and 2 acres of land", 50, models.AmountAbove},
		{"loan above 50 lakh for FY 2023-24", 50, models.AmountAbove},
		{"loan up to 20 lakh for 5-10 machines", 20, models.AmountBelow},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			req := p.ParseRequirement(tt.query)
			require.NotNil(t, req)
			assert.Equal(t, tt.value, req.Value)
			assert.Equal(t, tt.mode, req.Mode)
		})
	}
}

func TestParseRequirement_NoAmountIsNil(t *testing.T) {
	p := newTestParser()

	assert.Nil(t, p.ParseRequirement("subsidy for food processing"))
	assert.Nil(t, p.ParseRequirement(""))
}

// ==========================
// DetectAmountInQuery
// ==========================

func TestDetectAmountInQuery(t *testing.T) {
	p := newTestParser()

	assert.True(t, p.DetectAmountInQuery("loan of 15 lakh"))
	assert.True(t, p.DetectAmountInQuery("need ₹ 500000"))
	assert.True(t, p.DetectAmountInQuery("rs. 25000 grant"))
	assert.True(t, p.DetectAmountInQuery("support of 20,00,000"))
	assert.True(t, p.DetectAmountInQuery("loan above 50"))
	assert.False(t, p.DetectAmountInQuery("textile subsidy for 2 units"))
	assert.False(t, p.DetectAmountInQuery(""))
}

// ==========================
// SchemeMaxAmount
// ==========================

func TestSchemeMaxAmount_FieldPriority(t *testing.T) {
	p := newTestParser()

	s := models.Scheme{
		BenefitSummary: "Collateral free loans",
		Benefit:        models.TextList{"Loans up to ₹10 lakh", "Interest subvention"},
		Description:    "Projects up to 5 crore",
	}
	got, ok := p.SchemeMaxAmount(s)
	require.True(t, ok)
	assert.Equal(t, 10.0, got)

	s.BenefitSummary = "Guarantee cover up to ₹2 crore"
	got, ok = p.SchemeMaxAmount(s)
	require.True(t, ok)
	assert.Equal(t, 200.0, got)
}

func TestSchemeMaxAmount_None(t *testing.T) {
	p := newTestParser()

	tests := []models.Scheme{
		{Name: "Mentoring", Description: "Free mentoring sessions"},
		{Name: "Credit Support", Description: "Credit support for MSMEs registered since 2019"},
		{Name: "Relief", BenefitSummary: "Covid19 relief package", Description: "Support for units hit in FY 2020-21"},
	}
	for _, s := range tests {
		t.Run(s.Name, func(t *testing.T) {
			_, ok := p.SchemeMaxAmount(s)
			assert.False(t, ok)
		})
	}
}

func BenchmarkParseAmount(b *testing.B) {
	p := newTestParser()
	for i := 0; i < b.N; i++ {
		p.ParseAmount("Collateral free term loan up to ₹2 crore, margin money subsidy of 25 lakh")
	}
}
