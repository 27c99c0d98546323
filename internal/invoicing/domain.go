package invoicing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lorrybill/lorrybill/internal/masterdata"
	"github.com/lorrybill/lorrybill/internal/shared"
	"github.com/lorrybill/lorrybill/internal/transactions"
)

// Status is the lifecycle state of an invoice.
type Status string

const (
	// StatusActive invoices hold their transactions.
	StatusActive Status = "active"
	// StatusCancelled is terminal; the number is never reused.
	StatusCancelled Status = "cancelled"
)

// DateRange spans the earliest and latest transaction dates of an invoice.
type DateRange struct {
	From time.Time
	To   time.Time
}

// Invoice is the persisted invoice record.
type Invoice struct {
	ID             uuid.UUID
	OwnerID        uuid.UUID
	Number         int64
	Date           time.Time
	Range          DateRange
	BuyerID        uuid.UUID
	SiteID         uuid.UUID
	ItemID         uuid.UUID
	TransactionIDs []uuid.UUID
	Notes          string
	Amounts        Amounts
	Status         Status
	CancelReason   string
	CancelledAt    *time.Time
	CreatedAt      time.Time
}

// BuyerRef is the display projection of the billed business.
type BuyerRef struct {
	ID      uuid.UUID `json:"id"`
	Code    string    `json:"code"`
	Name    string    `json:"name"`
	GSTIN   string    `json:"gstin"`
	Address string    `json:"address"`
	State   string    `json:"state"`
}

// SiteRef is the display projection of the delivery site.
type SiteRef struct {
	ID      uuid.UUID `json:"id"`
	Code    string    `json:"code"`
	Name    string    `json:"name"`
	Address string    `json:"address"`
	City    string    `json:"city"`
}

// ItemRef is the display projection of the invoiced item.
type ItemRef struct {
	ID   uuid.UUID `json:"id"`
	Code string    `json:"code"`
	Name string    `json:"name"`
}

// Line is one transaction as printed on an invoice.
type Line struct {
	TransactionID uuid.UUID
	VoucherNo     int64
	ChallanNo     string
	Date          time.Time
	LorryNumber   string
	Quantity      decimal.Decimal
	Rate          decimal.Decimal
	Amount        decimal.Decimal
}

// Detail is an invoice with its references resolved for display.
type Detail struct {
	Invoice
	Buyer BuyerRef
	Site  SiteRef
	Item  ItemRef
	Lines []Line
}

// Summary is the list projection of an invoice.
type Summary struct {
	ID               uuid.UUID
	Number           int64
	Date             time.Time
	Range            DateRange
	Status           Status
	BuyerName        string
	SiteName         string
	ItemName         string
	Amounts          Amounts
	TransactionCount int
}

// ListFilter narrows ListInvoices.
type ListFilter struct {
	Status  Status
	Page    int
	PerPage int
}

// Page is one page of invoice summaries.
type Page struct {
	Items      []Summary
	Pagination shared.Pagination
}

// GenerateRequest is the input of GenerateInvoice.
type GenerateRequest struct {
	TransactionIDs []uuid.UUID
	InvoiceDate    time.Time
	Notes          string
}

// CancelResult acknowledges a cancellation.
type CancelResult struct {
	InvoiceID   uuid.UUID
	Number      int64
	Status      Status
	Reason      string
	CancelledAt time.Time
	Released    int
}

// RepositoryPort is the invoice store.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetInvoice(ctx context.Context, owner, id uuid.UUID) (Invoice, error)
	GetDetail(ctx context.Context, owner, id uuid.UUID) (Detail, error)
	ListInvoices(ctx context.Context, owner uuid.UUID, filter ListFilter) ([]Summary, int, error)
}

// TxRepository holds the operations of one atomic unit.
type TxRepository interface {
	// NextInvoiceNumber serialises allocation for owner and returns MAX+1
	// over active and cancelled invoices.
	NextInvoiceNumber(ctx context.Context, owner uuid.UUID) (int64, error)
	// LockTransactions row-locks the owner's uninvoiced transactions among
	// ids and returns them as currently stored.
	LockTransactions(ctx context.Context, owner uuid.UUID, ids []uuid.UUID) ([]transactions.Transaction, error)
	InsertInvoice(ctx context.Context, inv Invoice) (Invoice, error)
	// ClaimTransactions flips uninvoiced rows to invoiced and returns how many changed.
	ClaimTransactions(ctx context.Context, owner, invoiceID uuid.UUID, ids []uuid.UUID) (int64, error)
	// LockInvoice locks the invoice row and returns its number and status.
	LockInvoice(ctx context.Context, owner, id uuid.UUID) (Invoice, error)
	MarkCancelled(ctx context.Context, owner, id uuid.UUID, reason string, at time.Time) error
	ReleaseTransactions(ctx context.Context, owner, invoiceID uuid.UUID) (int64, error)
}

// TransactionSource loads uninvoiced transactions for the owner.
type TransactionSource interface {
	ListForInvoicing(ctx context.Context, owner uuid.UUID, ids []uuid.UUID) ([]transactions.Transaction, error)
}

// MasterData resolves the records an invoice references.
type MasterData interface {
	GetItem(ctx context.Context, owner, id uuid.UUID) (masterdata.Item, error)
	GetBusiness(ctx context.Context, owner, id uuid.UUID) (masterdata.Business, error)
	GetSite(ctx context.Context, owner, id uuid.UUID) (masterdata.Site, error)
}

// AuditPort records audit trail entries.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// MetricsPort counts operation outcomes.
type MetricsPort interface {
	ObserveInvoice(operation, outcome string)
}

// ChangeNotifier is told after an owner's invoices changed.
type ChangeNotifier interface {
	InvoicesChanged(ctx context.Context, owner uuid.UUID) error
}
