package jobs

import (
	"context"
	"fmt"
	"time"

	glog "github.com/goliatone/go-logger/glog"

	"github.com/Elanstech/barberworld-fulfillment/core"
)

const defaultRetryDelay = time.Minute

// MaintenanceService is the slice of the pipeline the job runner drives.
type MaintenanceService interface {
	ReconcileUnlabeled(ctx context.Context, limit int) (int, error)
	DispatchNotifications(ctx context.Context, limit int) (int, error)
	PurgeLedger(ctx context.Context) (int, error)
}

// Runner executes one maintenance job per delivery. Known job ids map onto
// the pipeline sweeps; unknown ids are dead-lettered so a bad enqueue cannot
// loop forever.
type Runner struct {
	service MaintenanceService
	logger  core.Logger
}

func NewRunner(service MaintenanceService, logger core.Logger) *Runner {
	if logger == nil {
		logger = glog.Nop()
	}
	return &Runner{service: service, logger: logger}
}

// Run consumes a single delivery: execute, ack on success, nack with a retry
// delay on failure.
func (r *Runner) Run(ctx context.Context, delivery core.JobDelivery) error {
	if r == nil || r.service == nil {
		return fmt.Errorf("jobs: maintenance service is required")
	}
	if delivery == nil {
		return fmt.Errorf("jobs: delivery is required")
	}
	msg := delivery.Message()
	if msg == nil {
		return delivery.Nack(ctx, core.JobNackOptions{
			DeadLetter: true,
			Reason:     "empty execution message",
		})
	}

	result, err := r.execute(ctx, msg)
	if err != nil {
		r.logger.Error("maintenance job failed", "job_id", msg.JobID, "error", err)
		opts := core.JobNackOptions{
			Delay:   defaultRetryDelay,
			Requeue: true,
			Reason:  err.Error(),
		}
		if isUnknownJob(err) {
			opts.Requeue = false
			opts.DeadLetter = true
			opts.Delay = 0
		}
		return delivery.Nack(ctx, opts)
	}
	r.logger.Info("maintenance job completed", "job_id", msg.JobID, "affected", result)
	return delivery.Ack(ctx)
}

func (r *Runner) execute(ctx context.Context, msg *core.JobExecutionMessage) (int, error) {
	switch msg.JobID {
	case JobIDLedgerPurge:
		return r.service.PurgeLedger(ctx)
	case JobIDOutboxDispatch:
		return r.service.DispatchNotifications(ctx, batchLimit(msg.Parameters))
	case JobIDReconcile:
		return r.service.ReconcileUnlabeled(ctx, batchLimit(msg.Parameters))
	default:
		return 0, unknownJobError{jobID: msg.JobID}
	}
}

func batchLimit(params map[string]any) int {
	if params == nil {
		return 0
	}
	switch value := params["limit"].(type) {
	case int:
		return value
	case int64:
		return int(value)
	case float64:
		return int(value)
	default:
		return 0
	}
}

type unknownJobError struct {
	jobID string
}

func (e unknownJobError) Error() string {
	return fmt.Sprintf("jobs: unknown job id %q", e.jobID)
}

func isUnknownJob(err error) bool {
	_, ok := err.(unknownJobError)
	return ok
}
