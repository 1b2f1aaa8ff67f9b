// internal/workers/schemes/match-schemes/handler.go
package matchschemes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	apperrors "scheme-matcher/internal/common/errors"
	"scheme-matcher/internal/common/logger"
	"scheme-matcher/internal/common/metrics"
	"scheme-matcher/internal/common/observability"
	"scheme-matcher/internal/common/validation"
	"scheme-matcher/internal/matching/pipeline"
	"scheme-matcher/internal/models"
)

const TaskType = "match-schemes"

var ErrInvalidInput = errors.New("INVALID_SCHEME_INPUT")

var inputSchema = validation.MustCompile(`{
	"type": "object",
	"required": ["query"],
	"properties": {
		"query":            {"type": "string"},
		"candidates":       {"type": ["array", "null"], "items": {"type": "object"}},
		"loanAmount":       {"type": ["string", "number", "null"]},
		"businessProfile":  {"type": ["string", "null"]},
		"state":            {"type": ["string", "null"]},
		"gender":           {"type": ["string", "null"]},
		"excludeSchemes":   {"type": ["string", "null"]},
		"schemeTypeFilter": {"type": ["string", "null"]},
		"persona":          {"type": ["string", "null"]}
	}
}`)

type Handler struct {
	config *Config
	engine *pipeline.Engine
	obs    *observability.Observability
	errors *apperrors.ErrorHandler
	logger logger.Logger
}

// NewHandler builds the handler. obs may be nil.
func NewHandler(config *Config, engine *pipeline.Engine, obs *observability.Observability, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config: config,
		engine: engine,
		obs:    obs,
		errors: apperrors.NewErrorHandler(l),
		logger: l,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	timer := metrics.StartJob(TaskType)
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	input, err := h.parseInput(job.Variables)
	if err != nil {
		h.fail(client, job, timer, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, input)
	if err != nil {
		h.fail(client, job, timer, err)
		return
	}

	timer.Done("")
	h.completeJob(client, job, output)
}

// parseInput validates the raw variables before decoding them so that type
// errors are reported per field.
func (h *Handler) parseInput(variables string) (*Input, error) {
	result, err := inputSchema.ValidateJSON(variables)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if !result.Valid {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, strings.Join(result.GetErrorMessages(), "; "))
	}

	var input Input
	if err := json.Unmarshal([]byte(variables), &input); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return &input, nil
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil {
		return nil, fmt.Errorf("%w: input is required", ErrInvalidInput)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if h.obs != nil {
		var span trace.Span
		ctx, span = h.obs.StartSpan(ctx, "pipeline.run",
			attribute.Int("candidates", len(input.Candidates)),
			attribute.String("persona", input.Persona),
		)
		defer span.End()
	}

	res := h.engine.Run(pipeline.Input{
		Schemes:          input.Candidates,
		Query:            input.Query,
		LoanAmount:       string(input.LoanAmount),
		Profile:          input.BusinessProfile,
		State:            input.State,
		Gender:           input.Gender,
		ExcludeShown:     input.ExcludeSchemes,
		SchemeTypeFilter: input.SchemeTypeFilter,
	})

	h.recordStages(res.Stages)
	if h.obs != nil {
		persona := input.Persona
		if persona == "" {
			persona = string(models.PersonaMSME)
		}
		h.obs.RecordCandidates(ctx, persona, res.Count)
	}

	h.logger.Info("schemes matched", map[string]interface{}{
		"candidates": len(input.Candidates),
		"matched":    res.Count,
		"intent":     res.Intent,
		"amountMode": res.AmountMode,
		"excluded":   len(res.ExcludedReasons),
	})

	return toOutput(res), nil
}

func (h *Handler) recordStages(stages []pipeline.Stage) {
	drops := make(map[string]int, len(stages))
	for _, st := range stages {
		drops[st.Name] += st.In - st.Out
		if !h.config.LogExclusions {
			continue
		}
		for _, d := range st.Dropped {
			h.logger.Debug("scheme excluded", map[string]interface{}{
				"stage":  st.Name,
				"scheme": d.Name,
				"reason": d.Reason,
			})
		}
	}
	metrics.RecordStageDrops(drops)
}

func toOutput(res pipeline.Result) *Output {
	names := make([]string, 0, len(res.Schemes))
	for _, s := range res.Schemes {
		names = append(names, s.Name)
	}
	schemes := res.Schemes
	if schemes == nil {
		schemes = []models.MatchedScheme{}
	}
	return &Output{
		RankedSchemes:   schemes,
		SchemeNames:     names,
		Count:           res.Count,
		UserAmountLakhs: res.ResolvedAmount,
		AmountMode:      res.AmountMode,
		Intent:          res.Intent,
		ExcludedSchemes: res.ExcludedSchemes,
		ExcludedReasons: res.ExcludedReasons,
		Grouping:        res.Grouping,
		ProfileAnalysis: res.ProfileAnalysis,
	}
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

// Execute runs matching on already decoded input.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
