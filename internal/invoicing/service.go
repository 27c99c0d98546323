package invoicing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/lorrybill/lorrybill/internal/masterdata"
	"github.com/lorrybill/lorrybill/internal/shared"
)

const (
	maxNotesLength  = 1000
	maxReasonLength = 500

	opGenerate = "generate"
	opCancel   = "cancel"
)

// Service is the invoice generation engine.
type Service struct {
	repo     RepositoryPort
	txns     TransactionSource
	masters  MasterData
	audit    AuditPort
	metrics  MetricsPort
	notifier ChangeNotifier
	logger   *slog.Logger
	now      func() time.Time
	loc      *time.Location
}

// Option customises a Service.
type Option func(*Service)

// WithAudit records generated and cancelled invoices.
func WithAudit(a AuditPort) Option { return func(s *Service) { s.audit = a } }

// WithMetrics counts operation outcomes.
func WithMetrics(m MetricsPort) Option { return func(s *Service) { s.metrics = m } }

// WithNotifier is told after every committed change.
func WithNotifier(n ChangeNotifier) Option { return func(s *Service) { s.notifier = n } }

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// WithLocation sets the zone that decides which civil date is today.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// NewService wires the engine.
func NewService(repo RepositoryPort, txns TransactionSource, masters MasterData, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		repo:    repo,
		txns:    txns,
		masters: masters,
		logger:  logger,
		now:     time.Now,
		loc:     time.UTC,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GenerateInvoice validates the requested transactions, computes amounts and
// commits the invoice together with the transaction claims.
func (s *Service) GenerateInvoice(ctx context.Context, owner uuid.UUID, req GenerateRequest) (detail Detail, err error) {
	defer func() { s.observe(opGenerate, err) }()

	if owner == uuid.Nil {
		return Detail{}, invalidInput("owner required")
	}
	if err := checkIDs(req.TransactionIDs); err != nil {
		return Detail{}, err
	}
	invoiceDate, err := s.checkInvoiceDate(req.InvoiceDate)
	if err != nil {
		return Detail{}, err
	}
	notes := strings.TrimSpace(req.Notes)
	if utf8.RuneCountInString(notes) > maxNotesLength {
		return Detail{}, invalidInput("notes exceed %d characters", maxNotesLength)
	}

	loaded, err := s.txns.ListForInvoicing(ctx, owner, req.TransactionIDs)
	if err != nil {
		return Detail{}, fmt.Errorf("invoicing: load transactions: %w", err)
	}
	group, err := selectGroup(req.TransactionIDs, loaded)
	if err != nil {
		return Detail{}, err
	}
	if invoiceDate.Before(group.Range.From) {
		return Detail{}, invalidInput("invoice date %s precedes earliest transaction date %s",
			invoiceDate.Format(time.DateOnly), group.Range.From.Format(time.DateOnly))
	}

	refs, err := s.loadReferences(ctx, owner, group)
	if err != nil {
		return Detail{}, err
	}
	rates := RatesOf(refs.item)
	if _, err := ComputeAmounts(group.Transactions, rates); err != nil {
		return Detail{}, err
	}

	inv := Invoice{
		ID:      uuid.New(),
		OwnerID: owner,
		Date:    invoiceDate,
		BuyerID: group.BuyerID,
		SiteID:  group.SiteID,
		ItemID:  group.ItemID,
		Notes:   notes,
		Status:  StatusActive,
	}

	// The checks above give precise errors; the unit repeats them on locked
	// rows so an edit committed in between cannot slip into the invoice.
	var final Group
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		number, err := tx.NextInvoiceNumber(ctx, owner)
		if err != nil {
			return err
		}
		locked, err := tx.LockTransactions(ctx, owner, req.TransactionIDs)
		if err != nil {
			return err
		}
		current, err := recheckGroup(group, req.TransactionIDs, locked)
		if err != nil {
			return err
		}
		if invoiceDate.Before(current.Range.From) {
			return invalidInput("invoice date %s precedes earliest transaction date %s",
				invoiceDate.Format(time.DateOnly), current.Range.From.Format(time.DateOnly))
		}
		amounts, err := ComputeAmounts(current.Transactions, rates)
		if err != nil {
			return err
		}

		draft := inv
		draft.Number = number
		draft.Range = current.Range
		draft.TransactionIDs = current.IDs()
		draft.Amounts = amounts
		inserted, err := tx.InsertInvoice(ctx, draft)
		if err != nil {
			return err
		}
		claimed, err := tx.ClaimTransactions(ctx, owner, inserted.ID, inserted.TransactionIDs)
		if err != nil {
			return err
		}
		if claimed != int64(len(inserted.TransactionIDs)) {
			return fmt.Errorf("claimed %d of %d transactions: %w", claimed, len(inserted.TransactionIDs), ErrStaleReference)
		}
		inv, final = inserted, current
		return nil
	})
	if err != nil {
		s.logger.Warn("invoice generation aborted",
			slog.String("owner_id", owner.String()),
			slog.Any("error", err))
		return Detail{}, &CommitError{Op: opGenerate, Cause: err}
	}

	s.logger.Info("invoice generated",
		slog.String("owner_id", owner.String()),
		slog.String("invoice_id", inv.ID.String()),
		slog.Int64("invoice_no", inv.Number),
		slog.Int("transactions", len(inv.TransactionIDs)),
		slog.String("total", inv.Amounts.Total().StringFixed(2)))

	s.afterCommit(ctx, owner, "invoice.generated", inv.ID, map[string]any{
		"invoice_no":   inv.Number,
		"total":        inv.Amounts.Total().StringFixed(2),
		"transactions": len(inv.TransactionIDs),
	})

	return assemble(inv, refs, final), nil
}

// CancelInvoice moves an active invoice to cancelled and releases its transactions.
func (s *Service) CancelInvoice(ctx context.Context, owner, id uuid.UUID, reason string) (res CancelResult, err error) {
	defer func() { s.observe(opCancel, err) }()

	if owner == uuid.Nil || id == uuid.Nil {
		return CancelResult{}, invalidInput("owner and invoice id required")
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return CancelResult{}, invalidInput("cancellation reason required")
	}
	if utf8.RuneCountInString(reason) > maxReasonLength {
		return CancelResult{}, invalidInput("reason exceeds %d characters", maxReasonLength)
	}

	current, err := s.repo.GetInvoice(ctx, owner, id)
	if err != nil {
		return CancelResult{}, err
	}
	if current.Status != StatusActive {
		return CancelResult{}, fmt.Errorf("%w: invoice %d is %s", ErrInvalidStateTransition, current.Number, current.Status)
	}

	at := s.now().UTC()
	var released int64
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		locked, err := tx.LockInvoice(ctx, owner, id)
		if err != nil {
			return err
		}
		if locked.Status != StatusActive {
			return fmt.Errorf("%w: invoice %d is %s", ErrInvalidStateTransition, locked.Number, locked.Status)
		}
		if err := tx.MarkCancelled(ctx, owner, id, reason, at); err != nil {
			return err
		}
		released, err = tx.ReleaseTransactions(ctx, owner, id)
		return err
	})
	if err != nil {
		s.logger.Warn("invoice cancellation aborted",
			slog.String("owner_id", owner.String()),
			slog.String("invoice_id", id.String()),
			slog.Any("error", err))
		return CancelResult{}, &CommitError{Op: opCancel, Cause: err}
	}

	s.logger.Info("invoice cancelled",
		slog.String("owner_id", owner.String()),
		slog.String("invoice_id", id.String()),
		slog.Int64("invoice_no", current.Number),
		slog.Int64("released", released))

	s.afterCommit(ctx, owner, "invoice.cancelled", id, map[string]any{
		"invoice_no": current.Number,
		"reason":     reason,
		"released":   released,
	})

	return CancelResult{
		InvoiceID:   id,
		Number:      current.Number,
		Status:      StatusCancelled,
		Reason:      reason,
		CancelledAt: at,
		Released:    int(released),
	}, nil
}

// GetInvoice returns one invoice with its references resolved.
func (s *Service) GetInvoice(ctx context.Context, owner, id uuid.UUID) (Detail, error) {
	if owner == uuid.Nil || id == uuid.Nil {
		return Detail{}, invalidInput("owner and invoice id required")
	}
	return s.repo.GetDetail(ctx, owner, id)
}

// ListInvoices returns the owner's invoices, newest number first.
func (s *Service) ListInvoices(ctx context.Context, owner uuid.UUID, filter ListFilter) (Page, error) {
	if owner == uuid.Nil {
		return Page{}, invalidInput("owner required")
	}
	switch filter.Status {
	case "", StatusActive, StatusCancelled:
	default:
		return Page{}, invalidInput("unknown status %q", filter.Status)
	}
	filter.Page, filter.PerPage = shared.NormalizePage(filter.Page, filter.PerPage)
	items, total, err := s.repo.ListInvoices(ctx, owner, filter)
	if err != nil {
		return Page{}, err
	}
	return Page{Items: items, Pagination: shared.NewPagination(filter.Page, filter.PerPage, total)}, nil
}

// checkInvoiceDate truncates to a civil date and rejects dates after today.
func (s *Service) checkInvoiceDate(d time.Time) (time.Time, error) {
	if d.IsZero() {
		return time.Time{}, invalidInput("invoice date required")
	}
	date := civilDate(d)
	today := civilDate(s.now().In(s.loc))
	if date.After(today) {
		return time.Time{}, invalidInput("invoice date %s is in the future", date.Format(time.DateOnly))
	}
	return date, nil
}

func civilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type references struct {
	item  masterdata.Item
	buyer masterdata.Business
	site  masterdata.Site
}

func (s *Service) loadReferences(ctx context.Context, owner uuid.UUID, group Group) (references, error) {
	var refs references
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		item, err := s.masters.GetItem(gctx, owner, group.ItemID)
		refs.item = item
		return masterErr("item", group.ItemID, err)
	})
	g.Go(func() error {
		buyer, err := s.masters.GetBusiness(gctx, owner, group.BuyerID)
		refs.buyer = buyer
		return masterErr("buyer", group.BuyerID, err)
	})
	g.Go(func() error {
		site, err := s.masters.GetSite(gctx, owner, group.SiteID)
		refs.site = site
		return masterErr("site", group.SiteID, err)
	})
	if err := g.Wait(); err != nil {
		return references{}, err
	}
	return refs, nil
}

func masterErr(kind string, id uuid.UUID, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, masterdata.ErrNotFound) {
		return fmt.Errorf("%w: %s %s", ErrNotFound, kind, id)
	}
	return fmt.Errorf("invoicing: load %s: %w", kind, err)
}

func assemble(inv Invoice, refs references, group Group) Detail {
	lines := make([]Line, len(group.Transactions))
	for i, t := range group.Transactions {
		lines[i] = Line{
			TransactionID: t.ID,
			VoucherNo:     t.VoucherNo,
			ChallanNo:     t.ChallanNo,
			Date:          t.Date,
			LorryNumber:   t.LorryNumber,
			Quantity:      t.Quantity,
			Rate:          t.SaleRate,
			Amount:        t.LineAmount().Round(2),
		}
	}
	return Detail{
		Invoice: inv,
		Buyer: BuyerRef{
			ID:      refs.buyer.ID,
			Code:    refs.buyer.Code,
			Name:    refs.buyer.Name,
			GSTIN:   refs.buyer.GSTIN,
			Address: refs.buyer.Address,
			State:   refs.buyer.State,
		},
		Site: SiteRef{
			ID:      refs.site.ID,
			Code:    refs.site.Code,
			Name:    refs.site.Name,
			Address: refs.site.Address,
			City:    refs.site.City,
		},
		Item:  ItemRef{ID: refs.item.ID, Code: refs.item.Code, Name: refs.item.Name},
		Lines: lines,
	}
}

func (s *Service) observe(op string, err error) {
	if s.metrics != nil {
		s.metrics.ObserveInvoice(op, outcome(err))
	}
}

// afterCommit runs side effects that must not fail a committed operation.
func (s *Service) afterCommit(ctx context.Context, owner uuid.UUID, action string, invoiceID uuid.UUID, meta map[string]any) {
	if s.audit != nil {
		err := s.audit.Record(ctx, shared.AuditLog{
			ActorID:  owner,
			Action:   action,
			Entity:   "invoice",
			EntityID: invoiceID.String(),
			Meta:     meta,
			At:       s.now().UTC(),
		})
		if err != nil {
			s.logger.Warn("audit record failed", slog.String("action", action), slog.Any("error", err))
		}
	}
	if s.notifier != nil {
		if err := s.notifier.InvoicesChanged(ctx, owner); err != nil {
			s.logger.Warn("summary notification failed", slog.String("owner_id", owner.String()), slog.Any("error", err))
		}
	}
}
