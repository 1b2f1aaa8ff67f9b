// internal/workers/schemes/show-more-schemes/handler.go
package showmoreschemes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	apperrors "scheme-matcher/internal/common/errors"
	"scheme-matcher/internal/common/logger"
	"scheme-matcher/internal/common/metrics"
	"scheme-matcher/internal/matching/pagination"
	"scheme-matcher/internal/models"
	"scheme-matcher/internal/session"
)

const TaskType = "show-more-schemes"

var (
	ErrInvalidInput  = errors.New("INVALID_SCHEME_INPUT")
	ErrNoPriorSearch = errors.New("NO_PRIOR_SEARCH")
	ErrSessionState  = errors.New("SESSION_STATE_FAILED")
	ErrConflict      = errors.New("SESSION_CONFLICT")
)

type Handler struct {
	config    *Config
	store     session.Store
	paginator *pagination.Paginator
	errors    *apperrors.ErrorHandler
	logger    logger.Logger
}

func NewHandler(config *Config, store session.Store, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:    config,
		store:     store,
		paginator: pagination.New(config.SchemesPerPage, config.MaxPages),
		errors:    apperrors.NewErrorHandler(l),
		logger:    l,
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
		h.fail(client, job, timer, input.SessionID, fmt.Errorf("%w: %v", ErrInvalidInput, err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.fail(client, job, timer, input.SessionID, err)
		return
	}

	timer.Done("")
	h.completeJob(client, job, output)
}

// execute advances the stored cursor inside a single store update so two
// concurrent requests for more never receive the same page.
func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil || strings.TrimSpace(input.SessionID) == "" {
		return nil, fmt.Errorf("%w: sessionId is required", ErrInvalidInput)
	}

	var page pagination.Page
	state, err := h.store.Update(ctx, input.SessionID, func(state models.PaginationState, found bool) (models.PaginationState, error) {
		if !found {
			return state, ErrNoPriorSearch
		}
		var err error
		page, state, err = h.paginator.Advance(state)
		if errors.Is(err, pagination.ErrNoPriorSearch) {
			return state, ErrNoPriorSearch
		}
		return state, err
	})
	if err != nil {
		if errors.Is(err, ErrNoPriorSearch) {
			metrics.PaginationAdvance.WithLabelValues(metrics.OutcomeNoPriorState).Inc()
			return nil, err
		}
		return nil, h.storeError(err)
	}

	exhausted := len(page.Schemes) == 0
	outcome := metrics.OutcomePage
	if exhausted {
		outcome = metrics.OutcomeExhausted
	}
	metrics.PaginationAdvance.WithLabelValues(outcome).Inc()

	lang := input.Language
	if lang == "" {
		lang = state.Language
	}
	if lang == "" {
		lang = h.config.DefaultLanguage
	}

	h.logger.Info("advanced pagination", map[string]interface{}{
		"sessionId":   input.SessionID,
		"searchId":    state.SearchID,
		"currentPage": page.Info.CurrentPage,
		"shown":       page.Info.SchemesShown,
		"exhausted":   exhausted,
	})

	return &Output{
		SearchID:      state.SearchID,
		SchemesToShow: page.Schemes,
		Pagination:    page.Info,
		Message:       pagination.FormatPage(page, lang),
		Exhausted:     exhausted,
	}, nil
}

func (h *Handler) storeError(err error) error {
	switch {
	case errors.Is(err, session.ErrConflict):
		return fmt.Errorf("%w: %v", ErrConflict, err)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return err
	}
	return fmt.Errorf("%w: %v", ErrSessionState, err)
}

func (h *Handler) mapError(sessionID string, err error) *apperrors.StandardError {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return apperrors.NewInvalidSchemeInputError(err.Error())
	case errors.Is(err, ErrNoPriorSearch):
		return apperrors.NewNoPriorSearchError(sessionID, err)
	case errors.Is(err, ErrConflict):
		return apperrors.NewSessionConflictError(sessionID, err)
	case errors.Is(err, ErrSessionState):
		return apperrors.NewSessionStateFailedError(sessionID, err)
	}
	return apperrors.Normalize(err)
}

func (h *Handler) fail(client worker.JobClient, job entities.Job, timer *metrics.JobTimer, sessionID string, err error) {
	stdErr := h.mapError(sessionID, err)
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
