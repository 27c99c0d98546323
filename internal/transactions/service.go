package transactions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/lorrybill/lorrybill/internal/masterdata"
	"github.com/lorrybill/lorrybill/internal/shared"
)

// References resolves the master records a transaction points at.
type References interface {
	GetItem(ctx context.Context, owner, id uuid.UUID) (masterdata.Item, error)
	GetBusiness(ctx context.Context, owner, id uuid.UUID) (masterdata.Business, error)
	GetSite(ctx context.Context, owner, id uuid.UUID) (masterdata.Site, error)
	GetLorry(ctx context.Context, owner, id uuid.UUID) (masterdata.Lorry, error)
}

// Page is one page of List results.
type Page struct {
	Items      []Transaction
	Pagination shared.Pagination
}

// Service implements transaction entry.
type Service struct {
	repo   Repository
	refs   References
	logger *slog.Logger
}

// NewService constructs the transaction service.
func NewService(repo Repository, refs References, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, refs: refs, logger: logger}
}

// Column bounds: quantity NUMERIC(12,3), rates NUMERIC(12,2).
const (
	quantityPlaces = 3
	ratePlaces     = 2
)

var (
	maxQuantity = decimal.New(1, 9)
	maxRate     = decimal.New(1, 10)
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func (s *Service) validate(ctx context.Context, owner uuid.UUID, in *Input) error {
	if owner == uuid.Nil {
		return invalid("owner required")
	}
	in.ChallanNo = strings.TrimSpace(in.ChallanNo)
	in.Remarks = strings.TrimSpace(in.Remarks)
	if in.ChallanNo == "" {
		return invalid("challan number required")
	}
	if in.Date.IsZero() {
		return invalid("transaction date required")
	}
	y, m, d := in.Date.Date()
	in.Date = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	if err := checkAmount("quantity", in.Quantity, quantityPlaces, maxQuantity); err != nil {
		return err
	}
	if err := checkAmount("sale rate", in.SaleRate, ratePlaces, maxRate); err != nil {
		return err
	}
	if err := checkAmount("purchase rate", in.PurchaseRate, ratePlaces, maxRate); err != nil {
		return err
	}
	return s.checkReferences(ctx, owner, *in)
}

// checkAmount rejects values the column would round or overflow.
func checkAmount(name string, d decimal.Decimal, places int32, limit decimal.Decimal) error {
	switch {
	case d.IsNegative():
		return invalid("%s must not be negative", name)
	case !d.Equal(d.Truncate(places)):
		return invalid("%s allows at most %d decimal places", name, places)
	case d.GreaterThanOrEqual(limit):
		return invalid("%s must be below %s", name, limit)
	}
	return nil
}

func (s *Service) checkReferences(ctx context.Context, owner uuid.UUID, in Input) error {
	if s.refs == nil {
		return nil
	}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := s.refs.GetBusiness(gctx, owner, in.BuyerID)
		return refErr("buyer", err)
	})
	g.Go(func() error {
		_, err := s.refs.GetSite(gctx, owner, in.SiteID)
		return refErr("site", err)
	})
	g.Go(func() error {
		_, err := s.refs.GetItem(gctx, owner, in.ItemID)
		return refErr("item", err)
	})
	g.Go(func() error {
		_, err := s.refs.GetLorry(gctx, owner, in.LorryID)
		return refErr("lorry", err)
	})
	return g.Wait()
}

func refErr(kind string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, masterdata.ErrNotFound) {
		return invalid("unknown %s", kind)
	}
	return err
}

// Create records a new uninvoiced transaction with the next voucher number.
func (s *Service) Create(ctx context.Context, owner uuid.UUID, in Input) (Transaction, error) {
	if err := s.validate(ctx, owner, &in); err != nil {
		return Transaction{}, err
	}
	var created Transaction
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		voucher, err := tx.NextVoucherNumber(ctx, owner)
		if err != nil {
			return err
		}
		created, err = tx.Insert(ctx, fromInput(owner, voucher, in))
		return err
	})
	if err != nil {
		return Transaction{}, err
	}
	s.logger.Info("transaction created",
		slog.String("owner_id", owner.String()),
		slog.String("transaction_id", created.ID.String()),
		slog.Int64("voucher_no", created.VoucherNo))
	return created, nil
}

// Get returns one transaction.
func (s *Service) Get(ctx context.Context, owner, id uuid.UUID) (Transaction, error) {
	return s.repo.Get(ctx, owner, id)
}

// List returns a filtered page of transactions ordered by date and voucher.
func (s *Service) List(ctx context.Context, owner uuid.UUID, filter ListFilter) (Page, error) {
	if filter.From != nil && filter.To != nil && filter.From.After(*filter.To) {
		return Page{}, invalid("from must not be after to")
	}
	filter.Page, filter.PerPage = shared.NormalizePage(filter.Page, filter.PerPage)
	items, total, err := s.repo.List(ctx, owner, filter)
	if err != nil {
		return Page{}, err
	}
	return Page{Items: items, Pagination: shared.NewPagination(filter.Page, filter.PerPage, total)}, nil
}

// Update rewrites an uninvoiced transaction. The voucher number never changes.
func (s *Service) Update(ctx context.Context, owner, id uuid.UUID, in Input) (Transaction, error) {
	if err := s.validate(ctx, owner, &in); err != nil {
		return Transaction{}, err
	}
	t := fromInput(owner, 0, in)
	t.ID = id
	return s.repo.UpdateOpen(ctx, t)
}

// Delete removes an uninvoiced transaction.
func (s *Service) Delete(ctx context.Context, owner, id uuid.UUID) error {
	if err := s.repo.DeleteOpen(ctx, owner, id); err != nil {
		return err
	}
	s.logger.Info("transaction deleted", slog.String("owner_id", owner.String()), slog.String("transaction_id", id.String()))
	return nil
}

// ListForInvoicing returns the owner's uninvoiced transactions among ids,
// ordered by date.
func (s *Service) ListForInvoicing(ctx context.Context, owner uuid.UUID, ids []uuid.UUID) ([]Transaction, error) {
	return s.repo.ListForInvoicing(ctx, owner, ids)
}

func fromInput(owner uuid.UUID, voucher int64, in Input) Transaction {
	return Transaction{
		OwnerID:      owner,
		VoucherNo:    voucher,
		ChallanNo:    in.ChallanNo,
		Date:         in.Date,
		LorryID:      in.LorryID,
		BuyerID:      in.BuyerID,
		SiteID:       in.SiteID,
		ItemID:       in.ItemID,
		PurchaseRate: in.PurchaseRate,
		SaleRate:     in.SaleRate,
		Quantity:     in.Quantity,
		Remarks:      in.Remarks,
	}
}
