package invoicing

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

// DashboardSummary aggregates an owner's active invoices.
type DashboardSummary struct {
	TotalInvoices int             `json:"total_invoices"`
	TotalNet      decimal.Decimal `json:"total_net"`
	TotalTax      decimal.Decimal `json:"total_tax"`
	TotalSales    decimal.Decimal `json:"total_sales"`
	GrossMargin   decimal.Decimal `json:"gross_margin"`
	Monthly       []MonthTotal    `json:"monthly"`
	Buyers        []BuyerTotal    `json:"buyers"`
}

// MonthTotal is the invoiced total of one YYYY-MM month.
type MonthTotal struct {
	Month string          `json:"month"`
	Total decimal.Decimal `json:"total"`
}

// BuyerTotal is the invoiced total of one buyer.
type BuyerTotal struct {
	BuyerID   uuid.UUID       `json:"buyer_id"`
	BuyerName string          `json:"buyer_name"`
	Total     decimal.Decimal `json:"total"`
}

// SummarySource computes summaries from the store.
type SummarySource interface {
	Summarize(ctx context.Context, owner uuid.UUID) (DashboardSummary, error)
}

// SummaryService serves cached dashboard summaries.
type SummaryService struct {
	source SummarySource
	cache  *Cache
	group  singleflight.Group
	logger *slog.Logger
}

// NewSummaryService constructs the summary service. A nil cache disables caching.
func NewSummaryService(source SummarySource, cache *Cache, logger *slog.Logger) *SummaryService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SummaryService{source: source, cache: cache, logger: logger}
}

// Get returns the owner's summary, computing it at most once per cache version
// across concurrent callers.
func (s *SummaryService) Get(ctx context.Context, owner uuid.UUID) (DashboardSummary, error) {
	if owner == uuid.Nil {
		return DashboardSummary{}, invalidInput("owner required")
	}
	key, err := s.cache.BuildKey(ctx, owner, "summary")
	if err != nil {
		s.logger.Warn("summary cache unavailable", slog.Any("error", err))
		return s.source.Summarize(ctx, owner)
	}
	ch := s.group.DoChan(key, func() (any, error) {
		var out DashboardSummary
		err := s.cache.FetchJSON(context.WithoutCancel(ctx), key, &out, func(ctx context.Context) (any, error) {
			return s.source.Summarize(ctx, owner)
		})
		return out, err
	})
	select {
	case <-ctx.Done():
		return DashboardSummary{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return DashboardSummary{}, res.Err
		}
		return res.Val.(DashboardSummary), nil
	}
}

// Refresh recomputes the owner's summary and stores it under the version
// read before computing. A bump during the computation leaves the result
// under the superseded key, so the next Get recomputes.
func (s *SummaryService) Refresh(ctx context.Context, owner uuid.UUID) (DashboardSummary, error) {
	key, err := s.cache.BuildKey(ctx, owner, "summary")
	if err != nil {
		return DashboardSummary{}, err
	}
	sum, err := s.source.Summarize(ctx, owner)
	if err != nil {
		return DashboardSummary{}, fmt.Errorf("invoicing: refresh summary: %w", err)
	}
	if err := s.cache.Store(ctx, key, sum); err != nil {
		return DashboardSummary{}, err
	}
	return sum, nil
}

// Enqueuer schedules an asynchronous summary refresh.
type Enqueuer interface {
	EnqueueSummaryRefresh(ctx context.Context, owner uuid.UUID) error
}

// CacheNotifier invalidates the owner's cached summary and schedules a refresh.
type CacheNotifier struct {
	Cache    *Cache
	Enqueuer Enqueuer
}

// InvoicesChanged implements ChangeNotifier.
func (n CacheNotifier) InvoicesChanged(ctx context.Context, owner uuid.UUID) error {
	if err := n.Cache.Bump(ctx, owner); err != nil {
		return fmt.Errorf("bump summary cache: %w", err)
	}
	if n.Enqueuer == nil {
		return nil
	}
	return n.Enqueuer.EnqueueSummaryRefresh(ctx, owner)
}
