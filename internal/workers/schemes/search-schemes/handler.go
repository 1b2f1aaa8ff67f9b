// internal/workers/schemes/search-schemes/handler.go
package searchschemes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	apperrors "scheme-matcher/internal/common/errors"
	"scheme-matcher/internal/common/logger"
	"scheme-matcher/internal/common/metrics"
	"scheme-matcher/internal/matching/amount"
	"scheme-matcher/internal/models"
	"scheme-matcher/internal/workers/schemes/search-schemes/queries"
)

const (
	TaskType = "search-schemes"

	maxBusinessTypeLen = 25
)

var (
	ErrInvalidInput                  = errors.New("INVALID_SCHEME_INPUT")
	ErrElasticsearchConnectionFailed = errors.New("ELASTICSEARCH_CONNECTION_FAILED")
	ErrSearchQueryFailed             = errors.New("SEARCH_QUERY_FAILED")
	ErrSearchTimeout                 = errors.New("SEARCH_TIMEOUT")
	ErrIndexNotFound                 = errors.New("INDEX_NOT_FOUND")
)

// Searcher runs one scheme query against one index.
type Searcher interface {
	Search(ctx context.Context, q queries.SchemeQuery) (*queries.SearchResult, error)
}

type Handler struct {
	config   *Config
	searcher Searcher
	parser   *amount.Parser
	errors   *apperrors.ErrorHandler
	logger   logger.Logger
	newID    func() string
}

func NewHandler(config *Config, searcher Searcher, parser *amount.Parser, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:   config,
		searcher: searcher,
		parser:   parser,
		errors:   apperrors.NewErrorHandler(l),
		logger:   l,
		newID:    uuid.NewString,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	timer := metrics.StartJob(TaskType)
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		stdErr := apperrors.NewInvalidSchemeInputError(fmt.Sprintf("parse input: %v", err))
		timer.Done(string(stdErr.Code))
		h.errors.HandleJobError(context.Background(), client, job, stdErr)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, &input)
	if err != nil {
		stdErr := h.mapError(err)
		timer.Done(string(stdErr.Code))
		h.errors.HandleJobError(context.Background(), client, job, stdErr)
		return
	}

	timer.Done("")
	h.completeJob(client, job, output)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil || strings.TrimSpace(input.Query) == "" {
		return nil, fmt.Errorf("%w: query is required", ErrInvalidInput)
	}

	farmer := strings.EqualFold(input.Persona, string(models.PersonaFarmer))
	text := h.enhancedQuery(input, farmer)
	excluded := splitNames(input.ExcludeSchemes)
	size := h.fetchSize(input, farmer, len(excluded))
	indices := h.indices(farmer)

	results := make([]*queries.SearchResult, len(indices))
	g, gctx := errgroup.WithContext(ctx)
	for i, index := range indices {
		i, index := i, index
		g.Go(func() error {
			res, err := h.searcher.Search(gctx, queries.SchemeQuery{
				Index:        index,
				Text:         text,
				ExcludeNames: excluded,
				Size:         size,
			})
			if err != nil {
				// Only the persona index is mandatory; a failing extra index
				// must not cancel the primary search.
				if i > 0 {
					h.logger.Warn("extra index failed, skipped", map[string]interface{}{
						"index":   index,
						"missing": errors.Is(err, queries.ErrIndexNotFound),
						"error":   err.Error(),
					})
					return nil
				}
				return h.classify(ctx, index, err)
			}
			metrics.SearchDuration.WithLabelValues(index).Observe(res.Took.Seconds())
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	candidates, total := merge(results)

	h.logger.Info("schemes retrieved", map[string]interface{}{
		"enhancedQuery": text,
		"fetchSize":     size,
		"indices":       indices,
		"candidates":    len(candidates),
		"totalHits":     total,
	})

	return &Output{
		SearchID:      h.newID(),
		Candidates:    candidates,
		TotalHits:     total,
		EnhancedQuery: text,
		FetchSize:     size,
		Indices:       indices,
	}, nil
}

// enhancedQuery appends the caller's context to the query text. Long or
// multi-valued business types are cut to their first short term because
// they dilute relevance.
func (h *Handler) enhancedQuery(input *Input, farmer bool) string {
	parts := []string{strings.TrimSpace(input.Query)}
	if s := strings.TrimSpace(input.State); s != "" {
		parts = append(parts, s)
	}

	if farmer {
		if c := strings.TrimSpace(input.Category); c != "" {
			parts = append(parts, c+" farmer")
		}
		if g := strings.TrimSpace(input.Gender); g != "" {
			parts = append(parts, g+" farmer")
		}
		return strings.Join(parts, " ")
	}

	if bt := strings.TrimSpace(input.BusinessType); bt != "" {
		first := strings.TrimSpace(strings.Split(bt, ",")[0])
		if len(first) <= maxBusinessTypeLen {
			parts = append(parts, first)
		}
	}
	if strings.EqualFold(strings.TrimSpace(input.Gender), "female") {
		parts = append(parts, "women entrepreneur")
	}
	return strings.Join(parts, " ")
}

// fetchSize over-fetches when later stages will drop schemes: previously
// shown names and amount filtering both need a larger pool.
func (h *Handler) fetchSize(input *Input, farmer bool, excluded int) int {
	if farmer {
		if excluded > 0 {
			return min(3+excluded+10, 25)
		}
		return 8
	}
	switch {
	case excluded > 0:
		return min(3+excluded+15, 30)
	case strings.TrimSpace(input.LoanAmount) != "" || h.parser.DetectAmountInQuery(input.Query):
		return 25
	}
	if h.config.DefaultSize > 0 {
		return h.config.DefaultSize
	}
	return 15
}

func (h *Handler) indices(farmer bool) []string {
	primary := h.config.MSMEIndex
	if farmer {
		primary = h.config.FarmerIndex
	}
	out := []string{primary}
	for _, idx := range h.config.ExtraIndices {
		if idx != "" && idx != primary {
			out = append(out, idx)
		}
	}
	return out
}

func (h *Handler) classify(ctx context.Context, index string, err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		return fmt.Errorf("%w: %s", ErrSearchTimeout, index)
	case errors.Is(err, queries.ErrIndexNotFound):
		return fmt.Errorf("%w: %s", ErrIndexNotFound, index)
	case errors.Is(err, queries.ErrConnection):
		return fmt.Errorf("%w: %v", ErrElasticsearchConnectionFailed, err)
	case errors.Is(err, queries.ErrEmptyQuery), errors.Is(err, queries.ErrMissingIndex):
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	default:
		return fmt.Errorf("%w: %v", ErrSearchQueryFailed, err)
	}
}

// merge orders hits from all indices by score, keeping the first copy of a
// scheme that several indices return.
func merge(results []*queries.SearchResult) ([]models.Scheme, int64) {
	var all []models.Scheme
	var total int64
	for _, r := range results {
		if r == nil {
			continue
		}
		total += r.TotalHits
		all = append(all, r.Schemes...)
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].Score > all[j].Score })

	seen := make(map[string]bool, len(all))
	out := make([]models.Scheme, 0, len(all))
	for _, s := range all {
		k := s.Key()
		if k != "" && seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, s)
	}
	return out, total
}

func splitNames(list string) []string {
	var out []string
	for _, n := range strings.Split(list, ",") {
		if n = strings.TrimSpace(n); n != "" {
			out = append(out, n)
		}
	}
	return out
}

func (h *Handler) mapError(err error) *apperrors.StandardError {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return apperrors.NewInvalidSchemeInputError(err.Error())
	case errors.Is(err, ErrIndexNotFound):
		return apperrors.NewIndexNotFoundError(strings.TrimPrefix(err.Error(), ErrIndexNotFound.Error()+": "))
	case errors.Is(err, ErrSearchTimeout):
		return apperrors.NewSearchTimeoutError(strings.TrimPrefix(err.Error(), ErrSearchTimeout.Error()+": "))
	case errors.Is(err, ErrElasticsearchConnectionFailed):
		return apperrors.NewElasticsearchConnectionFailedError(err)
	case errors.Is(err, ErrSearchQueryFailed):
		return apperrors.NewSearchQueryFailedError(h.config.MSMEIndex, err)
	}
	return apperrors.Normalize(err)
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	if _, err := cmd.Send(context.Background()); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err,
		})
	}
}

// Execute runs the search without a job, for tests and tools.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
