// internal/workers/schemes/get-scheme-details/handler.go
package getschemedetails

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/redis/go-redis/v9"

	apperrors "scheme-matcher/internal/common/errors"
	"scheme-matcher/internal/common/logger"
	"scheme-matcher/internal/common/metrics"
	"scheme-matcher/internal/matching/pagination"
	"scheme-matcher/internal/models"
	"scheme-matcher/internal/session"
	"scheme-matcher/internal/workers/schemes/get-scheme-details/queries"
)

const TaskType = "get-scheme-details"

var (
	ErrInvalidInput   = errors.New("INVALID_SCHEME_INPUT")
	ErrNoPriorSearch  = errors.New("NO_PRIOR_SEARCH")
	ErrUnresolved     = errors.New("SCHEME_REFERENCE_UNRESOLVED")
	ErrSchemeNotFound = errors.New("SCHEME_NOT_FOUND")
	ErrSessionState   = errors.New("SESSION_STATE_FAILED")
	ErrQueryFailed    = errors.New("QUERY_EXECUTION_FAILED")
	ErrQueryTimeout   = errors.New("QUERY_TIMEOUT")
)

type Handler struct {
	config    *Config
	db        *sql.DB
	cache     *schemeCache
	store     session.Store
	paginator *pagination.Paginator
	errors    *apperrors.ErrorHandler
	logger    logger.Logger
}

// NewHandler builds the handler. db and rdb may be nil, in which case only
// the session's stored list is consulted.
func NewHandler(config *Config, db *sql.DB, rdb redis.Cmdable, store session.Store, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	h := &Handler{
		config:    config,
		db:        db,
		store:     store,
		paginator: pagination.New(config.SchemesPerPage, config.MaxPages),
		errors:    apperrors.NewErrorHandler(l),
		logger:    l,
	}
	if rdb != nil {
		h.cache = &schemeCache{client: rdb, prefix: config.CacheKeyPrefix, ttl: config.CacheTTL}
	}
	return h
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	timer := metrics.StartJob(TaskType)
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.fail(client, job, timer, &input, fmt.Errorf("%w: %v", ErrInvalidInput, err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.fail(client, job, timer, &input, err)
		return
	}

	timer.Done("")
	h.completeJob(client, job, output)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil || (strings.TrimSpace(input.SchemeID) == "" && strings.TrimSpace(input.Reference) == "") {
		return nil, fmt.Errorf("%w: schemeId or reference is required", ErrInvalidInput)
	}

	if id := strings.TrimSpace(input.SchemeID); id != "" {
		return h.byID(ctx, id, input.SessionID)
	}
	return h.byReference(ctx, input)
}

// byID answers from the cache, then the catalog, then the session's stored
// list.
func (h *Handler) byID(ctx context.Context, id, sessionID string) (*Output, error) {
	s, src, err := h.lookup(ctx, id)
	if err == nil {
		return &Output{Scheme: s, Source: src}, nil
	}
	if !errors.Is(err, ErrSchemeNotFound) || sessionID == "" || h.store == nil {
		return nil, err
	}

	state, loadErr := h.store.Load(ctx, sessionID)
	if loadErr != nil {
		return nil, err
	}
	for i, c := range state.Candidates {
		if c.ID == id {
			return &Output{Scheme: c.Scheme, Position: i + 1, Source: SourceSession}, nil
		}
	}
	return nil, err
}

func (h *Handler) byReference(ctx context.Context, input *Input) (*Output, error) {
	if strings.TrimSpace(input.SessionID) == "" {
		return nil, fmt.Errorf("%w: sessionId is required to resolve a reference", ErrInvalidInput)
	}

	state, err := h.store.Load(ctx, input.SessionID)
	switch {
	case errors.Is(err, session.ErrNotFound):
		// Without a prior search the user may still name a scheme outright.
		if h.db != nil {
			return h.byName(ctx, input.Reference)
		}
		return nil, ErrNoPriorSearch
	case err != nil:
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", ErrSessionState, err)
	}

	ref, err := h.paginator.ResolveReference(state, input.Reference)
	switch {
	case errors.Is(err, pagination.ErrNoPriorSearch):
		return nil, ErrNoPriorSearch
	case errors.Is(err, pagination.ErrUnresolved):
		return nil, fmt.Errorf("%w: %q", ErrUnresolved, input.Reference)
	case err != nil:
		return nil, err
	}

	out := &Output{
		Scheme:     ref.Scheme.Scheme,
		Position:   ref.Position,
		MostRecent: ref.MostRecent,
		Source:     SourceSession,
	}

	// The stored copy comes from the search index; the catalog row may
	// carry process and document details it lacks.
	if ref.Scheme.ID != "" && (h.cache != nil || h.db != nil) {
		s, src, err := h.lookup(ctx, ref.Scheme.ID)
		switch {
		case err == nil:
			out.Scheme = s
			out.Source = src
		case !errors.Is(err, ErrSchemeNotFound):
			h.logger.Warn("catalog lookup failed, using session copy", map[string]interface{}{
				"schemeId": ref.Scheme.ID,
				"error":    err.Error(),
			})
		}
	}

	h.logger.Info("scheme reference resolved", map[string]interface{}{
		"sessionId":  input.SessionID,
		"position":   out.Position,
		"mostRecent": out.MostRecent,
		"source":     out.Source,
	})
	return out, nil
}

func (h *Handler) lookup(ctx context.Context, id string) (models.Scheme, Source, error) {
	if h.cache != nil {
		s, found, err := h.cache.get(ctx, id)
		if err != nil {
			cerr := apperrors.NewCacheError("get", err)
			h.logger.Warn("scheme cache read failed", map[string]interface{}{
				"schemeId":  id,
				"errorCode": cerr.Code,
				"error":     cerr.Error(),
			})
		} else if found {
			return s, SourceCache, nil
		}
	}
	if h.db == nil {
		return models.Scheme{}, "", fmt.Errorf("%w: %s", ErrSchemeNotFound, id)
	}

	rows, _, err := queries.Execute(ctx, h.db, models.QueryTypeSchemeByID, map[string]interface{}{"schemeId": id})
	if err != nil {
		return models.Scheme{}, "", h.queryError(ctx, id, err)
	}
	s := rows[0]

	if h.cache != nil {
		if err := h.cache.set(ctx, s); err != nil {
			cerr := apperrors.NewCacheError("set", err)
			h.logger.Warn("scheme cache write failed", map[string]interface{}{
				"schemeId":  id,
				"errorCode": cerr.Code,
				"error":     cerr.Error(),
			})
		}
	}
	return s, SourceCatalog, nil
}

func (h *Handler) byName(ctx context.Context, name string) (*Output, error) {
	rows, _, err := queries.Execute(ctx, h.db, models.QueryTypeSchemesByName, map[string]interface{}{"name": name, "limit": 1})
	if err != nil {
		return nil, h.queryError(ctx, name, err)
	}
	return &Output{Scheme: rows[0], Source: SourceCatalog}, nil
}

func (h *Handler) queryError(ctx context.Context, what string, err error) error {
	switch {
	case errors.Is(err, queries.ErrNotFound):
		return fmt.Errorf("%w: %s", ErrSchemeNotFound, what)
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return ErrQueryTimeout
	}
	return fmt.Errorf("%w: %v", ErrQueryFailed, err)
}

func (h *Handler) mapError(input *Input, err error) *apperrors.StandardError {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return apperrors.NewInvalidSchemeInputError(err.Error())
	case errors.Is(err, ErrNoPriorSearch):
		return apperrors.NewNoPriorSearchError(input.SessionID, err)
	case errors.Is(err, ErrUnresolved):
		return apperrors.NewSchemeReferenceUnresolvedError(input.Reference)
	case errors.Is(err, ErrSchemeNotFound):
		target := input.SchemeID
		if target == "" {
			target = input.Reference
		}
		return apperrors.NewSchemeNotFoundError(target)
	case errors.Is(err, ErrSessionState):
		return apperrors.NewSessionStateFailedError(input.SessionID, err)
	case errors.Is(err, ErrQueryTimeout):
		return apperrors.NewQueryTimeoutError(string(models.QueryTypeSchemeByID))
	case errors.Is(err, ErrQueryFailed):
		return apperrors.NewQueryExecutionFailedError(string(models.QueryTypeSchemeByID), err)
	}
	return apperrors.Normalize(err)
}

func (h *Handler) fail(client worker.JobClient, job entities.Job, timer *metrics.JobTimer, input *Input, err error) {
	stdErr := h.mapError(input, err)
	timer.Done(string(stdErr.Code))
	h.errors.HandleJobError(context.Background(), client, job, stdErr)
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

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
