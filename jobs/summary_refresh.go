package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/lorrybill/lorrybill/internal/invoicing"
	jobmetrics "github.com/lorrybill/lorrybill/internal/jobs"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// SummaryRefresher rebuilds and caches one owner's summary.
type SummaryRefresher interface {
	Refresh(ctx context.Context, owner uuid.UUID) (invoicing.DashboardSummary, error)
}

// OwnerLister enumerates owners that hold invoices.
type OwnerLister interface {
	OwnersWithInvoices(ctx context.Context) ([]uuid.UUID, error)
}

// SummaryRefreshJob keeps dashboard summaries warm.
type SummaryRefreshJob struct {
	Summaries SummaryRefresher
	Owners    OwnerLister
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
	// OwnerTimeout bounds the refresh of a single owner.
	OwnerTimeout time.Duration
}

// NewSummaryRefreshJob wires dependencies for the refresh handlers.
func NewSummaryRefreshJob(summaries SummaryRefresher, owners OwnerLister, logger *slog.Logger, metrics *jobmetrics.Metrics) *SummaryRefreshJob {
	return &SummaryRefreshJob{
		Summaries:    summaries,
		Owners:       owners,
		Logger:       logger,
		Metrics:      metrics,
		OwnerTimeout: 20 * time.Second,
	}
}

// Handlers returns the task handlers to register on a worker.
func (j *SummaryRefreshJob) Handlers() []TaskHandler {
	return []TaskHandler{
		{Type: TaskSummaryRefresh, Handler: j.HandleRefresh},
		{Type: TaskSummaryWarmup, Handler: j.HandleWarmup},
	}
}

// HandleRefresh processes TaskSummaryRefresh tasks.
func (j *SummaryRefreshJob) HandleRefresh(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Summaries == nil {
		return errors.New("summary refresh: handler not configured")
	}
	payload, err := decodeRefresh(t)
	if err != nil {
		j.logger(TaskSummaryRefresh).Warn("dropping malformed task", slog.Any("error", err))
		return err
	}

	tracker := j.metrics().Track(TaskSummaryRefresh)
	defer func() { err = tracker.End(err) }()

	if err := j.refreshOwner(ctx, payload.OwnerID); err != nil {
		j.logger(TaskSummaryRefresh).Error("refresh summary",
			slog.String("owner_id", payload.OwnerID.String()), slog.Any("error", err))
		return err
	}
	j.metrics().AddRefreshed(TaskSummaryRefresh, 1)
	return nil
}

// HandleWarmup processes TaskSummaryWarmup tasks. A failing owner does not
// stop the others; the run fails if any owner failed.
func (j *SummaryRefreshJob) HandleWarmup(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Summaries == nil || j.Owners == nil {
		return errors.New("summary warmup: handler not configured")
	}
	tracker := j.metrics().Track(TaskSummaryWarmup)
	defer func() { err = tracker.End(err) }()

	logger := j.logger(TaskSummaryWarmup)
	start := time.Now()
	owners, err := j.Owners.OwnersWithInvoices(ctx)
	if err != nil {
		logger.Error("load owners", slog.Any("error", err))
		return err
	}

	var failed []error
	warmed := 0
	for _, owner := range owners {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := j.refreshOwner(ctx, owner); err != nil {
			logger.Warn("warm owner", slog.String("owner_id", owner.String()), slog.Any("error", err))
			failed = append(failed, err)
			continue
		}
		warmed++
	}
	j.metrics().AddRefreshed(TaskSummaryWarmup, warmed)
	logger.Info("completed summary warmup",
		slog.Int("owners", len(owners)),
		slog.Int("warmed", warmed),
		slog.Duration("duration", time.Since(start)))
	return errors.Join(failed...)
}

func (j *SummaryRefreshJob) refreshOwner(ctx context.Context, owner uuid.UUID) error {
	if j.OwnerTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.OwnerTimeout)
		defer cancel()
	}
	_, err := j.Summaries.Refresh(ctx, owner)
	return err
}

func (j *SummaryRefreshJob) logger(job string) *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", job))
	}
	return slog.Default().With(slog.String("job", job))
}

func (j *SummaryRefreshJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
