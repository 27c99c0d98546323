package transactions

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound indicates the transaction does not exist for the owner.
	ErrNotFound = errors.New("transactions: not found")
	// ErrInvoiced indicates the transaction is locked by an active invoice.
	ErrInvoiced = errors.New("transactions: already invoiced")
	// ErrReferenced indicates a cancelled invoice still lists the transaction.
	ErrReferenced = errors.New("transactions: referenced by a cancelled invoice")
	// ErrDuplicateChallan indicates the challan number is already used by the owner.
	ErrDuplicateChallan = errors.New("transactions: duplicate challan number")
	// ErrValidation indicates invalid transaction input.
	ErrValidation = errors.New("transactions: validation failed")
)

// Transaction is a single delivery billed to a buyer at a site.
type Transaction struct {
	ID           uuid.UUID
	OwnerID      uuid.UUID
	VoucherNo    int64
	ChallanNo    string
	Date         time.Time
	LorryID      uuid.UUID
	LorryNumber  string
	BuyerID      uuid.UUID
	SiteID       uuid.UUID
	ItemID       uuid.UUID
	PurchaseRate decimal.Decimal
	SaleRate     decimal.Decimal
	Quantity     decimal.Decimal
	Remarks      string
	Invoiced     bool
	InvoiceID    *uuid.UUID
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// LineAmount is quantity times sale rate at full precision.
func (t Transaction) LineAmount() decimal.Decimal {
	return t.Quantity.Mul(t.SaleRate)
}

// Margin is quantity times the spread between sale and purchase rate.
func (t Transaction) Margin() decimal.Decimal {
	return t.Quantity.Mul(t.SaleRate.Sub(t.PurchaseRate))
}

// Input carries the caller editable fields of a transaction.
type Input struct {
	ChallanNo    string
	Date         time.Time
	LorryID      uuid.UUID
	BuyerID      uuid.UUID
	SiteID       uuid.UUID
	ItemID       uuid.UUID
	PurchaseRate decimal.Decimal
	SaleRate     decimal.Decimal
	Quantity     decimal.Decimal
	Remarks      string
}

// ListFilter narrows List results. Nil fields do not filter.
type ListFilter struct {
	BuyerID  *uuid.UUID
	SiteID   *uuid.UUID
	ItemID   *uuid.UUID
	Invoiced *bool
	From     *time.Time
	To       *time.Time
	Page     int
	PerPage  int
}

// Repository persists transactions. Every read and write is owner scoped.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, owner, id uuid.UUID) (Transaction, error)
	List(ctx context.Context, owner uuid.UUID, filter ListFilter) ([]Transaction, int, error)
	ListForInvoicing(ctx context.Context, owner uuid.UUID, ids []uuid.UUID) ([]Transaction, error)
	UpdateOpen(ctx context.Context, t Transaction) (Transaction, error)
	DeleteOpen(ctx context.Context, owner, id uuid.UUID) error
}

// TxRepository exposes the operations that must share one database transaction.
type TxRepository interface {
	NextVoucherNumber(ctx context.Context, owner uuid.UUID) (int64, error)
	Insert(ctx context.Context, t Transaction) (Transaction, error)
}
