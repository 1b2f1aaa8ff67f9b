// internal/matching/amount/parser.go

// Package amount parses monetary amounts out of free text and filters and
// re-ranks schemes against a user's amount requirement. All amounts are in
// lakh (100,000 rupees).
package amount

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"scheme-matcher/internal/matching/rules"
	"scheme-matcher/internal/matching/textnorm"
	"scheme-matcher/internal/models"
)

const (
	rupeesPerLakh = 100000

	// DefaultPlainRupeeThreshold is where a unit-less number stops being
	// read as lakh and starts being read as rupees.
	DefaultPlainRupeeThreshold = 100000
)

var (
	indianGrouping = regexp.MustCompile(`\d{1,3}(?:,\d{2})*,\d{3}`)
	plainNumber    = regexp.MustCompile(`\d+(?:\.\d+)?`)
	digitComma     = regexp.MustCompile(`(\d),(\d)`)
	currencyNumber = regexp.MustCompile(`(?i)(?:₹|\brs\b\.?)\s*\d+`)
	financialYear  = regexp.MustCompile(`\b(?:fy\s*)?(?:19|20)\d{2}\s*[-/]\s*(?:(?:19|20)\d{2}|\d{2})\b`)
)

// Parser extracts amounts using the unit and keyword tables of a rule set.
type Parser struct {
	rules               rules.AmountRules
	plainRupeeThreshold float64
	strictUnits         bool
}

type ParserOption func(*Parser)

// WithPlainRupeeThreshold changes where unit-less numbers switch to rupees.
func WithPlainRupeeThreshold(v float64) ParserOption {
	return func(p *Parser) {
		if v > 0 {
			p.plainRupeeThreshold = v
		}
	}
}

// WithStrictUnits makes unit-less numbers non-matches.
func WithStrictUnits(strict bool) ParserOption {
	return func(p *Parser) { p.strictUnits = strict }
}

func NewParser(tables *rules.Tables, opts ...ParserOption) *Parser {
	p := &Parser{
		rules:               tables.Amount,
		plainRupeeThreshold: DefaultPlainRupeeThreshold,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ParseAmount returns the largest amount mentioned in text, in lakh.
// Shapes are tried in order: number with a unit word, Indian digit grouping,
// bare number. The first shape that matches decides.
func (p *Parser) ParseAmount(text string) (float64, bool) {
	if strings.TrimSpace(text) == "" {
		return 0, false
	}
	text = textnorm.Normalize(text)

	if v, ok := p.withUnit(text); ok {
		return v, true
	}
	if v, ok := withIndianGrouping(text); ok {
		return v, true
	}
	if p.strictUnits {
		return 0, false
	}
	return p.plain(text)
}

func (p *Parser) withUnit(text string) (float64, bool) {
	best, found := 0.0, false
	for _, loc := range p.rules.UnitPattern.FindAllStringSubmatchIndex(text, -1) {
		if !textnorm.BoundedAfter(text, loc[1]) {
			continue
		}
		num, err := strconv.ParseFloat(text[loc[2]:loc[3]], 64)
		if err != nil {
			continue
		}
		mult, ok := p.rules.Multiplier(text[loc[4]:loc[5]])
		if !ok {
			continue
		}
		if v := num * mult; !found || v > best {
			best, found = v, true
		}
	}
	return best, found
}

func withIndianGrouping(text string) (float64, bool) {
	compact := strings.ReplaceAll(text, " ", "")
	best, found := 0.0, false
	for _, loc := range indianGrouping.FindAllStringIndex(compact, -1) {
		if loc[0] > 0 && isDigit(compact[loc[0]-1]) {
			continue
		}
		if loc[1] < len(compact) && isDigit(compact[loc[1]]) {
			continue
		}
		// "1,000,000" is western grouping; leave it to the plain-number pass.
		if loc[1]+1 < len(compact) && compact[loc[1]] == ',' && isDigit(compact[loc[1]+1]) {
			continue
		}
		num, err := strconv.ParseFloat(strings.ReplaceAll(compact[loc[0]:loc[1]], ",", ""), 64)
		if err != nil {
			continue
		}
		if v := num / rupeesPerLakh; !found || v > best {
			best, found = v, true
		}
	}
	return best, found
}

// plain reads bare numbers. Numbers glued to letters ("covid19", "5g") and
// calendar or financial years are not amounts.
func (p *Parser) plain(text string) (float64, bool) {
	text = financialYear.ReplaceAllString(text, " ")
	text = digitComma.ReplaceAllString(text, "$1$2")
	best, found := 0.0, false
	for _, loc := range plainNumber.FindAllStringIndex(text, -1) {
		if gluedToWord(text, loc[0], loc[1]) {
			continue
		}
		raw := text[loc[0]:loc[1]]
		num, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			continue
		}
		if isYear(raw, num) {
			continue
		}
		v := num
		if num >= p.plainRupeeThreshold {
			v = num / rupeesPerLakh
		}
		if !found || v > best {
			best, found = v, true
		}
	}
	return best, found
}

// ParseRequirement reads the amount and how the user compares it against
// what a scheme offers. It returns nil when the query names no amount; a nil
// requirement means no amount constraint, never zero.
func (p *Parser) ParseRequirement(query string) *models.Requirement {
	value, ok := p.ParseAmount(query)
	if !ok || value <= 0 {
		return nil
	}

	text := textnorm.Normalize(query)
	mode := models.AmountExact
	switch {
	case p.rules.Above != nil && p.rules.Above.MatchString(text):
		mode = models.AmountAbove
	case p.rules.Below != nil && p.rules.Below.MatchString(text):
		mode = models.AmountBelow
	}
	if _, ok := p.rules.FindRange(text); ok {
		mode = models.AmountRange
	}
	return &models.Requirement{Value: value, Mode: mode}
}

// DetectAmountInQuery reports whether the query mentions money at all:
// a unit word, a currency sign, Indian grouping, or a comparison keyword
// followed by a number.
func (p *Parser) DetectAmountInQuery(query string) bool {
	text := textnorm.Normalize(query)
	if text == "" {
		return false
	}
	if _, ok := p.withUnit(text); ok {
		return true
	}
	if currencyNumber.MatchString(text) {
		return true
	}
	if _, ok := withIndianGrouping(text); ok {
		return true
	}
	for _, re := range []*regexp.Regexp{p.rules.Above, p.rules.Below} {
		if re == nil {
			continue
		}
		for _, loc := range re.FindAllStringIndex(text, -1) {
			rest := strings.TrimLeft(text[loc[1]:], " ₹rs.")
			if rest != "" && isDigit(rest[0]) {
				return true
			}
		}
	}
	return false
}

// SchemeMaxAmount reads the largest amount a scheme offers from its benefit
// summary, then its benefit list, then its description. A parsed zero counts
// as no amount.
func (p *Parser) SchemeMaxAmount(s models.Scheme) (float64, bool) {
	for _, field := range []string{s.BenefitSummary, s.Benefit.Join(), s.Description} {
		if field == "" {
			continue
		}
		if v, ok := p.ParseAmount(field); ok && v > 0 {
			return v, true
		}
	}
	return 0, false
}

// gluedToWord reports whether text[start:end] touches a letter on either
// side. A leading "rs" is a currency prefix, not a word.
func gluedToWord(text string, start, end int) bool {
	if before, _ := utf8.DecodeLastRuneInString(text[:start]); start > 0 && unicode.IsLetter(before) {
		head := text[:start]
		if !strings.HasSuffix(head, "rs") {
			return true
		}
		if rest := strings.TrimSuffix(head, "rs"); rest != "" {
			if r, _ := utf8.DecodeLastRuneInString(rest); textnorm.IsWordRune(r) {
				return true
			}
		}
	}
	after, _ := utf8.DecodeRuneInString(text[end:])
	return end < len(text) && unicode.IsLetter(after)
}

func isYear(raw string, num float64) bool {
	return len(raw) == 4 && !strings.Contains(raw, ".") && num >= 1900 && num <= 2099
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}
