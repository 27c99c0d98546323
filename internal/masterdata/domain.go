package masterdata

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound indicates the master record does not exist for the owner.
	ErrNotFound = errors.New("masterdata: not found")
	// ErrDuplicateCode indicates the code is already used by the owner.
	ErrDuplicateCode = errors.New("masterdata: duplicate code")
	// ErrValidation indicates the record failed validation.
	ErrValidation = errors.New("masterdata: validation failed")
)

// Item is a billable good with its GST rates in percent.
type Item struct {
	ID        uuid.UUID       `json:"id"`
	OwnerID   uuid.UUID       `json:"-"`
	Code      string          `json:"code"`
	Name      string          `json:"name"`
	IGSTRate  decimal.Decimal `json:"igst_rate"`
	CGSTRate  decimal.Decimal `json:"cgst_rate"`
	SGSTRate  decimal.Decimal `json:"sgst_rate"`
	CreatedAt time.Time       `json:"created_at"`
}

// InterState reports whether invoices for the item bill IGST instead of CGST+SGST.
func (i Item) InterState() bool {
	return i.IGSTRate.IsPositive()
}

// Business is a buyer billed on invoices.
type Business struct {
	ID        uuid.UUID `json:"id"`
	OwnerID   uuid.UUID `json:"-"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	City      string    `json:"city"`
	PIN       string    `json:"pin"`
	State     string    `json:"state"`
	GSTIN     string    `json:"gstin"`
	PAN       string    `json:"pan"`
	CreatedAt time.Time `json:"created_at"`
}

// Site is a delivery location.
type Site struct {
	ID        uuid.UUID `json:"id"`
	OwnerID   uuid.UUID `json:"-"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	City      string    `json:"city"`
	PIN       string    `json:"pin"`
	State     string    `json:"state"`
	GSTIN     string    `json:"gstin"`
	CreatedAt time.Time `json:"created_at"`
}

// Lorry is a vehicle carrying deliveries.
type Lorry struct {
	ID        uuid.UUID `json:"id"`
	OwnerID   uuid.UUID `json:"-"`
	Code      string    `json:"code"`
	Number    string    `json:"number"`
	CreatedAt time.Time `json:"created_at"`
}

// Supplier is a vendor the owner buys material from.
type Supplier struct {
	ID        uuid.UUID `json:"id"`
	OwnerID   uuid.UUID `json:"-"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	City      string    `json:"city"`
	State     string    `json:"state"`
	GSTIN     string    `json:"gstin"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
}

// FinancialYear is the inclusive accounting period a company files under.
type FinancialYear struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Company is the owner's billing entity printed on invoices.
type Company struct {
	ID            uuid.UUID     `json:"id"`
	OwnerID       uuid.UUID     `json:"-"`
	Code          string        `json:"code"`
	Name          string        `json:"name"`
	Address       string        `json:"address"`
	City          string        `json:"city"`
	PIN           string        `json:"pin"`
	State         string        `json:"state"`
	Mobile        string        `json:"mobile"`
	GSTIN         string        `json:"gstin"`
	PAN           string        `json:"pan"`
	Bank          string        `json:"bank"`
	Jurisdiction  string        `json:"jurisdiction"`
	FinancialYear FinancialYear `json:"financial_year"`
	CreatedAt     time.Time     `json:"created_at"`
}

// Repository persists master records. Every read is owner scoped.
type Repository interface {
	CreateItem(ctx context.Context, item Item) (Item, error)
	GetItem(ctx context.Context, owner, id uuid.UUID) (Item, error)
	ListItems(ctx context.Context, owner uuid.UUID) ([]Item, error)

	CreateBusiness(ctx context.Context, b Business) (Business, error)
	GetBusiness(ctx context.Context, owner, id uuid.UUID) (Business, error)
	ListBusinesses(ctx context.Context, owner uuid.UUID) ([]Business, error)

	CreateSite(ctx context.Context, s Site) (Site, error)
	GetSite(ctx context.Context, owner, id uuid.UUID) (Site, error)
	ListSites(ctx context.Context, owner uuid.UUID) ([]Site, error)

	CreateLorry(ctx context.Context, l Lorry) (Lorry, error)
	GetLorry(ctx context.Context, owner, id uuid.UUID) (Lorry, error)
	ListLorries(ctx context.Context, owner uuid.UUID) ([]Lorry, error)

	CreateSupplier(ctx context.Context, s Supplier) (Supplier, error)
	GetSupplier(ctx context.Context, owner, id uuid.UUID) (Supplier, error)
	ListSuppliers(ctx context.Context, owner uuid.UUID) ([]Supplier, error)

	CreateCompany(ctx context.Context, c Company) (Company, error)
	GetCompany(ctx context.Context, owner, id uuid.UUID) (Company, error)
	ListCompanies(ctx context.Context, owner uuid.UUID) ([]Company, error)
}
