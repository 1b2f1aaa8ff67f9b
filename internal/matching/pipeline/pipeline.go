// internal/matching/pipeline/pipeline.go

// Package pipeline composes the matching stages into one call: records in,
// ranked and annotated schemes out. It performs no I/O and does not log;
// callers read the stage trace.
package pipeline

import (
	"strings"

	"scheme-matcher/internal/matching/amount"
	"scheme-matcher/internal/matching/filters"
	"scheme-matcher/internal/matching/intent"
	"scheme-matcher/internal/matching/profile"
	"scheme-matcher/internal/matching/rules"
	"scheme-matcher/internal/matching/scoring"
	"scheme-matcher/internal/models"
)

// Stage names used in the trace and as metric labels.
const (
	StageRecords     = "records"
	StageQuality     = "quality"
	StageShown       = "previously_shown"
	StageIntent      = "intent"
	StageState       = "state"
	StageSchemeType  = "scheme_type"
	StageEligibility = "eligibility"
	StageAmount      = "amount"
	StageScoring     = "scoring"
)

// Input is one matching request.
type Input struct {
	Schemes []models.Scheme
	Query   string
	// LoanAmount is the caller's explicit amount text; when empty the amount
	// is read from Query.
	LoanAmount string
	// Profile is the free-text user or business profile.
	Profile string
	State   string
	Gender  string
	// ExcludeShown is a comma-separated list of scheme names shown on earlier
	// turns.
	ExcludeShown     string
	SchemeTypeFilter string
}

// Stage records how many schemes entered and left one stage.
type Stage struct {
	Name    string                  `json:"name"`
	In      int                     `json:"in"`
	Out     int                     `json:"out"`
	Dropped []models.ExcludedScheme `json:"dropped,omitempty"`
}

// Result is the outcome of Run.
type Result struct {
	Schemes         []models.MatchedScheme  `json:"schemes"`
	Count           int                     `json:"count"`
	Query           string                  `json:"query"`
	State           string                  `json:"state,omitempty"`
	ResolvedAmount  *float64                `json:"user_amount_lakhs"`
	AmountMode      models.AmountMode       `json:"amount_mode,omitempty"`
	Intent          string                  `json:"intent,omitempty"`
	ExcludedSchemes []string                `json:"excluded_schemes"`
	ExcludedReasons []models.ExcludedScheme `json:"excluded_reasons"`
	Grouping        models.SchemeGrouping   `json:"scheme_grouping"`
	ProfileAnalysis models.ProfileAnalysis  `json:"profile_analysis"`
	Profile         models.UserProfile      `json:"-"`
	Stages          []Stage                 `json:"-"`
}

// Options tune the stages that have knobs.
type Options struct {
	MinScore float64
	Amount   amount.Options
}

func DefaultOptions() Options {
	return Options{Amount: amount.DefaultOptions()}
}

// Engine holds the compiled rule tables and the stage objects built from
// them. It is immutable and safe for concurrent use.
type Engine struct {
	tables   *rules.Tables
	parser   *amount.Parser
	analyzer *profile.Analyzer
	opts     Options
}

func New(tables *rules.Tables, parser *amount.Parser, opts Options) (*Engine, error) {
	analyzer, err := profile.NewAnalyzer(tables)
	if err != nil {
		return nil, err
	}
	if parser == nil {
		parser = amount.NewParser(tables)
	}
	return &Engine{tables: tables, parser: parser, analyzer: analyzer, opts: opts}, nil
}

// Analyzer exposes the profile analyzer the engine uses.
func (e *Engine) Analyzer() *profile.Analyzer { return e.analyzer }

// Parser exposes the amount parser the engine uses.
func (e *Engine) Parser() *amount.Parser { return e.parser }

func (e *Engine) Tables() *rules.Tables { return e.tables }

// Run filters, ranks and annotates in.Schemes. Empty input yields an empty,
// valid result.
func (e *Engine) Run(in Input) Result {
	res := Result{
		Query:           in.Query,
		State:           in.State,
		ExcludedSchemes: shownNames(in.ExcludeShown),
		ExcludedReasons: []models.ExcludedScheme{},
	}
	t := &tracer{res: &res}

	schemes := t.drop(StageRecords, in.Schemes, filters.ValidateRecords)
	schemes = t.keep(StageQuality, schemes, func(s []models.Scheme) []models.Scheme {
		return filters.FilterMinScore(s, e.opts.MinScore)
	})
	schemes = t.keep(StageShown, schemes, func(s []models.Scheme) []models.Scheme {
		return filters.ExcludeShown(s, in.ExcludeShown)
	})

	amountText := in.LoanAmount
	if strings.TrimSpace(amountText) == "" {
		amountText = in.Query
	}
	var req *models.Requirement
	if strings.TrimSpace(in.LoanAmount) != "" || e.parser.DetectAmountInQuery(amountText) {
		req = e.parser.ParseRequirement(amountText)
	}

	res.Intent = intent.Classify(in.Query, in.LoanAmount, e.tables)
	schemes = t.drop(StageIntent, schemes, func(s []models.Scheme) ([]models.Scheme, []models.ExcludedScheme) {
		return intent.Filter(s, res.Intent, e.tables)
	})

	p := e.analyzer.Analyze(in.Profile)
	res.Profile = p
	res.ProfileAnalysis = models.ProfileAnalysis{
		ExistingRegistrations: p.ExistingRegistrations,
		ExcludedSchemes:       p.ExcludedKeywords,
		ExclusionReasons:      p.ExclusionReasons,
	}

	schemes = t.drop(StageState, schemes, func(s []models.Scheme) ([]models.Scheme, []models.ExcludedScheme) {
		return filters.FilterByState(s, in.State, e.tables)
	})
	if in.SchemeTypeFilter != "" {
		schemes = t.keep(StageSchemeType, schemes, func(s []models.Scheme) []models.Scheme {
			return filters.FilterBySchemeType(s, in.SchemeTypeFilter, e.tables)
		})
	}
	schemes = t.drop(StageEligibility, schemes, func(s []models.Scheme) ([]models.Scheme, []models.ExcludedScheme) {
		return filters.ExcludeIneligible(s, p, e.tables)
	})

	if req != nil {
		v := req.Value
		res.ResolvedAmount = &v
		res.AmountMode = req.Mode
		schemes = t.drop(StageAmount, schemes, func(s []models.Scheme) ([]models.Scheme, []models.ExcludedScheme) {
			r := e.parser.FilterAndRank(s, req, e.opts.Amount)
			return r.Schemes, r.Excluded
		})
	}

	// Without a profile the amount or retrieval order is kept.
	if strings.TrimSpace(in.Profile) != "" && len(schemes) > 0 {
		ranked := scoring.Rank(schemes, p, scoring.Context{Query: in.Query, State: in.State, Gender: in.Gender}, e.tables)
		schemes = make([]models.Scheme, len(ranked))
		for i, r := range ranked {
			schemes[i] = r.Scheme
		}
		t.record(StageScoring, len(ranked), len(ranked), nil)
	}

	res.Schemes = scoring.Annotate(schemes, e.tables)
	res.Count = len(res.Schemes)
	res.Grouping = scoring.Group(res.Schemes)
	return res
}

// Score ranks schemes against a profile and returns the annotated order
// with scores and reasons, for callers that explain a ranking.
func (e *Engine) Score(schemes []models.Scheme, profileText string, ctx scoring.Context) []scoring.Scored {
	return scoring.Rank(schemes, e.analyzer.Analyze(profileText), ctx, e.tables)
}

type tracer struct {
	res *Result
}

func (t *tracer) record(name string, in, out int, dropped []models.ExcludedScheme) {
	t.res.Stages = append(t.res.Stages, Stage{Name: name, In: in, Out: out, Dropped: dropped})
	t.res.ExcludedReasons = append(t.res.ExcludedReasons, dropped...)
}

func (t *tracer) drop(name string, in []models.Scheme, fn func([]models.Scheme) ([]models.Scheme, []models.ExcludedScheme)) []models.Scheme {
	if len(in) == 0 {
		t.record(name, 0, 0, nil)
		return in
	}
	out, dropped := fn(in)
	t.record(name, len(in), len(out), dropped)
	return out
}

// keep traces stages that only return survivors; the dropped names are
// recovered by key.
func (t *tracer) keep(name string, in []models.Scheme, fn func([]models.Scheme) []models.Scheme) []models.Scheme {
	if len(in) == 0 {
		t.record(name, 0, 0, nil)
		return in
	}
	out := fn(in)
	var dropped []models.ExcludedScheme
	if len(out) < len(in) {
		left := make(map[string]int, len(out))
		for _, s := range out {
			left[s.Key()]++
		}
		for _, s := range in {
			if left[s.Key()] > 0 {
				left[s.Key()]--
				continue
			}
			dropped = append(dropped, models.ExcludedScheme{Name: s.Name, Reason: name})
		}
	}
	t.res.Stages = append(t.res.Stages, Stage{Name: name, In: len(in), Out: len(out), Dropped: dropped})
	return out
}

func shownNames(list string) []string {
	out := []string{}
	for _, n := range strings.Split(list, ",") {
		if n = strings.ToLower(strings.TrimSpace(n)); n != "" {
			out = append(out, n)
		}
	}
	return out
}
