package jobs

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskSummaryRefresh rebuilds one owner's cached dashboard summary.
	TaskSummaryRefresh = "invoice:summary_refresh"
	// TaskSummaryWarmup rebuilds the summaries of every owner with invoices.
	TaskSummaryWarmup = "invoice:summary_warmup"
	// SummaryWarmupSchedule runs the warmup daily at 01:15 UTC.
	SummaryWarmupSchedule = "15 1 * * *"
)

// SummaryRefreshPayload identifies the owner whose summary is stale.
type SummaryRefreshPayload struct {
	OwnerID uuid.UUID `json:"owner_id"`
}

// NewSummaryRefreshTask constructs an Asynq task.
func NewSummaryRefreshTask(owner uuid.UUID) (*asynq.Task, error) {
	if owner == uuid.Nil {
		return nil, fmt.Errorf("jobs: summary refresh requires owner")
	}
	data, err := json.Marshal(SummaryRefreshPayload{OwnerID: owner})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSummaryRefresh, data), nil
}

// NewSummaryWarmupTask constructs the cron warmup task.
func NewSummaryWarmupTask() *asynq.Task {
	return asynq.NewTask(TaskSummaryWarmup, nil)
}

func decodeRefresh(t *asynq.Task) (SummaryRefreshPayload, error) {
	var payload SummaryRefreshPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return SummaryRefreshPayload{}, fmt.Errorf("decode %s: %v: %w", t.Type(), err, asynq.SkipRetry)
	}
	if payload.OwnerID == uuid.Nil {
		return SummaryRefreshPayload{}, fmt.Errorf("%s without owner: %w", t.Type(), asynq.SkipRetry)
	}
	return payload, nil
}
