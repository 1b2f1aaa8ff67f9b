// internal/common/camunda/worker.go
package camunda

import (
	"context"
	"strconv"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"go.opentelemetry.io/otel/attribute"

	"scheme-matcher/internal/common/config"
	"scheme-matcher/internal/common/logger"
	"scheme-matcher/internal/common/observability"
)

// JobHandler is the Handle method every worker package exposes.
type JobHandler func(client worker.JobClient, job entities.Job)

// CamundaWorker owns one open job worker subscription.
type CamundaWorker struct {
	worker   worker.JobWorker
	logger   logger.Logger
	taskType string
}

// NewWorker opens a subscription for taskType. Each job runs inside a span
// when obs is set.
func NewWorker(
	client zbc.Client,
	taskType string,
	wcfg config.WorkerConfig,
	handler JobHandler,
	obs *observability.Observability,
	log logger.Logger,
) *CamundaWorker {
	log = log.WithFields(map[string]interface{}{"taskType": taskType})

	jobWorker := client.NewJobWorker().
		JobType(taskType).
		Handler(instrument(taskType, handler, obs)).
		MaxJobsActive(wcfg.MaxJobsActive).
		Timeout(time.Duration(wcfg.Timeout) * time.Millisecond).
		Open()

	log.Info("worker started", map[string]interface{}{
		"maxJobsActive": wcfg.MaxJobsActive,
		"timeout_ms":    wcfg.Timeout,
	})

	return &CamundaWorker{worker: jobWorker, logger: log, taskType: taskType}
}

func instrument(taskType string, handler JobHandler, obs *observability.Observability) worker.JobHandler {
	if obs == nil {
		return worker.JobHandler(handler)
	}
	return func(client worker.JobClient, job entities.Job) {
		ctx, span := obs.StartSpan(context.Background(), taskType,
			attribute.String("jobKey", strconv.FormatInt(job.Key, 10)),
			attribute.Int64("processInstanceKey", job.ProcessInstanceKey),
		)
		start := time.Now()
		handler(client, job)
		span.End()
		obs.RecordJobDuration(ctx, taskType, time.Since(start), "handled")
		obs.RecordJobProcessed(ctx, taskType, "handled")
	}
}

// Stop closes the subscription and waits for in-flight jobs.
func (w *CamundaWorker) Stop() {
	w.logger.Info("stopping worker", nil)
	w.worker.Close()
	w.worker.AwaitClose()
}

func (w *CamundaWorker) TaskType() string {
	return w.taskType
}
