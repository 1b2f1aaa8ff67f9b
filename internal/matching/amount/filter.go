// internal/matching/amount/filter.go
package amount

import (
	"sort"

	"scheme-matcher/internal/models"
)

const (
	DefaultTolerance  = 0.20
	MaxTolerance      = 0.5
	DefaultMinResults = 3

	unknownAmountRank = 1000
	missRank          = 10000
)

// Options tune the amount filter.
type Options struct {
	// Tolerance lets exact and range requirements accept schemes slightly
	// below the requested amount. Clamped to [0, MaxTolerance].
	Tolerance float64
	// MinResults is the count below which excluded schemes are backfilled.
	MinResults int
}

func DefaultOptions() Options {
	return Options{Tolerance: DefaultTolerance, MinResults: DefaultMinResults}
}

func (o Options) tolerance() float64 {
	switch {
	case o.Tolerance < 0:
		return 0
	case o.Tolerance > MaxTolerance:
		return MaxTolerance
	}
	return o.Tolerance
}

// Result is the outcome of FilterAndRank.
type Result struct {
	Schemes     []models.Scheme
	Requirement *models.Requirement
	// Matched counts the schemes that satisfy the requirement; they come first.
	Matched int
	// Backfilled counts excluded schemes appended to reach MinResults.
	Backfilled int
	Excluded   []models.ExcludedScheme
}

type candidate struct {
	scheme  models.Scheme
	max     float64
	hasMax  bool
	rankKey float64
}

// FilterAndRank keeps the schemes whose offered amount can satisfy req and
// orders them by closeness to it. When fewer than MinResults survive, the
// excluded pool is appended in descending order of offered amount. A nil
// requirement returns the input unchanged.
func (p *Parser) FilterAndRank(schemes []models.Scheme, req *models.Requirement, opts Options) Result {
	if req == nil || req.Value <= 0 || len(schemes) == 0 {
		return Result{Schemes: schemes, Requirement: req, Matched: len(schemes)}
	}

	floor := req.Value
	if req.Mode == models.AmountExact || req.Mode == models.AmountRange {
		floor = req.Value * (1 - opts.tolerance())
	}

	var kept, dropped []candidate
	for _, s := range schemes {
		c := candidate{scheme: s}
		c.max, c.hasMax = p.SchemeMaxAmount(s)
		if !c.hasMax || satisfies(c.max, req, floor) {
			c.rankKey = rankKey(c, req)
			kept = append(kept, c)
			continue
		}
		dropped = append(dropped, c)
	}

	sort.SliceStable(kept, func(i, j int) bool { return kept[i].rankKey < kept[j].rankKey })

	res := Result{Requirement: req, Matched: len(kept)}
	res.Schemes = make([]models.Scheme, 0, len(schemes))
	for _, c := range kept {
		res.Schemes = append(res.Schemes, c.scheme)
	}

	minResults := opts.MinResults
	if minResults <= 0 {
		minResults = DefaultMinResults
	}
	if len(kept) < minResults && len(dropped) > 0 {
		sort.SliceStable(dropped, func(i, j int) bool { return offered(dropped[i]) > offered(dropped[j]) })
		need := minResults - len(kept)
		for i, c := range dropped {
			if i < need {
				res.Schemes = append(res.Schemes, c.scheme)
				res.Backfilled++
				continue
			}
			res.Excluded = append(res.Excluded, models.ExcludedScheme{Name: c.scheme.Name, Reason: "amount requirement not met"})
		}
		return res
	}

	for _, c := range dropped {
		res.Excluded = append(res.Excluded, models.ExcludedScheme{Name: c.scheme.Name, Reason: "amount requirement not met"})
	}
	return res
}

func satisfies(max float64, req *models.Requirement, floor float64) bool {
	switch req.Mode {
	case models.AmountAbove:
		return max >= req.Value
	case models.AmountBelow:
		return max <= req.Value
	default:
		return max >= floor
	}
}

// rankKey orders kept schemes; lower is a closer match.
func rankKey(c candidate, req *models.Requirement) float64 {
	if !c.hasMax {
		return unknownAmountRank
	}
	ratio := c.max / req.Value
	switch req.Mode {
	case models.AmountBelow:
		if c.max <= req.Value {
			return req.Value - c.max
		}
	default:
		// above, exact and range all prefer the smallest sufficient offer.
		if c.max >= req.Value {
			switch {
			case ratio <= 1.5:
				return ratio - 1
			case ratio <= 3:
				return ratio
			default:
				return ratio * 2
			}
		}
	}
	return missRank
}

func offered(c candidate) float64 {
	if !c.hasMax {
		return 0
	}
	return c.max
}
