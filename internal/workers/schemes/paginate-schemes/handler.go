// internal/workers/schemes/paginate-schemes/handler.go
package paginateschemes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"

	apperrors "scheme-matcher/internal/common/errors"
	"scheme-matcher/internal/common/logger"
	"scheme-matcher/internal/common/metrics"
	"scheme-matcher/internal/matching/pagination"
	"scheme-matcher/internal/models"
	"scheme-matcher/internal/session"
)

const TaskType = "paginate-schemes"

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
	newID     func() string
}

func NewHandler(config *Config, store session.Store, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:    config,
		store:     store,
		paginator: pagination.New(config.SchemesPerPage, config.MaxPages),
		errors:    apperrors.NewErrorHandler(l),
		logger:    l,
		newID:     uuid.NewString,
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

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil || strings.TrimSpace(input.SessionID) == "" {
		return nil, fmt.Errorf("%w: sessionId is required", ErrInvalidInput)
	}
	if input.Page != nil && *input.Page < 0 {
		return nil, fmt.Errorf("%w: page must not be negative", ErrInvalidInput)
	}

	var (
		page  pagination.Page
		fresh bool
	)
	state, err := h.store.Update(ctx, input.SessionID, func(state models.PaginationState, found bool) (models.PaginationState, error) {
		fresh = input.RankedSchemes != nil &&
			(input.NewSearch || !found || input.SearchID == "" || state.SearchID != input.SearchID)

		index := 0
		switch {
		case fresh:
			searchID := input.SearchID
			if searchID == "" {
				searchID = h.newID()
			}
			state = h.paginator.Start(searchID, input.RankedSchemes, h.language(input.Language, ""))
		case !found || len(state.Candidates) == 0:
			return state, ErrNoPriorSearch
		case input.Page != nil:
			index = *input.Page
		case state.CurrentPage > 0:
			index = state.CurrentPage
		}
		if input.Language != "" {
			state.Language = input.Language
		}

		page, state = h.paginator.Show(state, index)
		return state, nil
	})
	if err != nil {
		return nil, h.storeError(err)
	}

	lang := h.language(input.Language, state.Language)
	h.logger.Info("page shown", map[string]interface{}{
		"sessionId":   input.SessionID,
		"searchId":    state.SearchID,
		"newSearch":   fresh,
		"currentPage": page.Info.CurrentPage,
		"totalPages":  page.Info.TotalPages,
		"shown":       page.Info.SchemesShown,
	})

	return &Output{
		SearchID:      state.SearchID,
		SchemesToShow: page.Schemes,
		Pagination:    page.Info,
		Message:       pagination.FormatPage(page, lang),
		ShownSchemes:  shownNames(state),
		NewSearch:     fresh,
	}, nil
}

func (h *Handler) language(requested, stored string) string {
	switch {
	case requested != "":
		return requested
	case stored != "":
		return stored
	}
	return h.config.DefaultLanguage
}

func (h *Handler) storeError(err error) error {
	switch {
	case errors.Is(err, ErrNoPriorSearch):
		return err
	case errors.Is(err, session.ErrConflict):
		return fmt.Errorf("%w: %v", ErrConflict, err)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return err
	}
	return fmt.Errorf("%w: %v", ErrSessionState, err)
}

// shownNames lists the names of every scheme shown so far, in list order,
// so the next search can leave them out.
func shownNames(state models.PaginationState) []string {
	seen := make(map[string]bool, len(state.Shown))
	for _, k := range state.Shown {
		seen[k] = true
	}
	out := []string{}
	for _, s := range state.Candidates {
		if seen[s.Key()] {
			out = append(out, s.Name)
		}
	}
	return out
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
