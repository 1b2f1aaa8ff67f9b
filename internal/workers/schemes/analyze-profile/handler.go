// internal/workers/schemes/analyze-profile/handler.go
package analyzeprofile

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
	"scheme-matcher/internal/matching/profile"
)

const TaskType = "analyze-profile"

var ErrInvalidInput = errors.New("INVALID_SCHEME_INPUT")

type Handler struct {
	config   *Config
	analyzer *profile.Analyzer
	errors   *apperrors.ErrorHandler
	logger   logger.Logger
}

func NewHandler(config *Config, analyzer *profile.Analyzer, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:   config,
		analyzer: analyzer,
		errors:   apperrors.NewErrorHandler(l),
		logger:   l,
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
		h.fail(client, job, timer, fmt.Errorf("%w: %v", ErrInvalidInput, err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.fail(client, job, timer, err)
		return
	}

	timer.Done("")
	h.completeJob(client, job, output)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil {
		return nil, fmt.Errorf("%w: input is required", ErrInvalidInput)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	message := input.Message
	if strings.TrimSpace(message) == "" {
		message = input.Profile
	}
	persona := h.analyzer.ClassifyPersona(message, input.CropType, input.BusinessType)
	p := h.analyzer.Analyze(input.Profile)

	out := &Output{
		Persona:               persona.Persona,
		PersonaConfidence:     persona.Confidence,
		PersonaReasoning:      persona.Reasoning,
		HasProfile:            !p.IsZero(),
		Profile:               p,
		ExistingRegistrations: nonNil(p.ExistingRegistrations),
		ExcludedKeywords:      nonNil(p.ExcludedKeywords),
		ExclusionReasons:      nonNil(p.ExclusionReasons),
		IsExistingBusiness:    p.ExistingBusiness,
		MSMECategory:          p.MSMECategory,
		State:                 p.State,
	}

	h.logger.Debug("profile analyzed", map[string]interface{}{
		"persona":       out.Persona,
		"confidence":    out.PersonaConfidence,
		"registrations": len(out.ExistingRegistrations),
		"excluded":      len(out.ExcludedKeywords),
	})
	return out, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func (h *Handler) mapError(err error) *apperrors.StandardError {
	if errors.Is(err, ErrInvalidInput) {
		return apperrors.NewInvalidSchemeInputError(err.Error())
	}
	return apperrors.Normalize(err)
}

func (h *Handler) fail(client worker.JobClient, job entities.Job, timer *metrics.JobTimer, err error) {
	stdErr := h.mapError(err)
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
