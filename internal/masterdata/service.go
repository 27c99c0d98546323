package masterdata

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	gstinPattern  = regexp.MustCompile(`^[0-9]{2}[A-Z0-9]{13}$`)
	panPattern    = regexp.MustCompile(`^[A-Z]{5}[0-9]{4}[A-Z]$`)
	pinPattern    = regexp.MustCompile(`^[0-9]{6}$`)
	mobilePattern = regexp.MustCompile(`^[0-9]{10}$`)
	hundred       = decimal.NewFromInt(100)
)

// Service exposes owner scoped master data operations.
type Service struct {
	repo Repository
}

// NewService creates a master data service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func requireOwner(owner uuid.UUID) error {
	if owner == uuid.Nil {
		return invalid("owner required")
	}
	return nil
}

func checkRate(name string, rate decimal.Decimal) error {
	if rate.IsNegative() || rate.GreaterThan(hundred) {
		return invalid("%s must be between 0 and 100", name)
	}
	return nil
}

func checkAddress(pin, gstin string) error {
	if pin != "" && !pinPattern.MatchString(pin) {
		return invalid("pin must be 6 digits")
	}
	if gstin != "" && !gstinPattern.MatchString(gstin) {
		return invalid("gstin is malformed")
	}
	return nil
}

// CreateItem validates and stores an item.
func (s *Service) CreateItem(ctx context.Context, owner uuid.UUID, item Item) (Item, error) {
	if err := requireOwner(owner); err != nil {
		return Item{}, err
	}
	item.OwnerID = owner
	item.Code = strings.TrimSpace(item.Code)
	item.Name = strings.TrimSpace(item.Name)
	if item.Code == "" || item.Name == "" {
		return Item{}, invalid("item code and name are required")
	}
	for name, rate := range map[string]decimal.Decimal{"igst_rate": item.IGSTRate, "cgst_rate": item.CGSTRate, "sgst_rate": item.SGSTRate} {
		if err := checkRate(name, rate); err != nil {
			return Item{}, err
		}
	}
	return s.repo.CreateItem(ctx, item)
}

// GetItem returns an item owned by owner.
func (s *Service) GetItem(ctx context.Context, owner, id uuid.UUID) (Item, error) {
	return s.repo.GetItem(ctx, owner, id)
}

// ListItems lists the owner's items ordered by code.
func (s *Service) ListItems(ctx context.Context, owner uuid.UUID) ([]Item, error) {
	return s.repo.ListItems(ctx, owner)
}

// CreateBusiness validates and stores a buyer.
func (s *Service) CreateBusiness(ctx context.Context, owner uuid.UUID, b Business) (Business, error) {
	if err := requireOwner(owner); err != nil {
		return Business{}, err
	}
	b.OwnerID = owner
	b.Code = strings.TrimSpace(b.Code)
	b.Name = strings.TrimSpace(b.Name)
	b.GSTIN = strings.ToUpper(strings.TrimSpace(b.GSTIN))
	b.PAN = strings.ToUpper(strings.TrimSpace(b.PAN))
	if b.Code == "" || b.Name == "" {
		return Business{}, invalid("business code and name are required")
	}
	if err := checkAddress(b.PIN, b.GSTIN); err != nil {
		return Business{}, err
	}
	if b.PAN != "" && !panPattern.MatchString(b.PAN) {
		return Business{}, invalid("pan is malformed")
	}
	return s.repo.CreateBusiness(ctx, b)
}

// GetBusiness returns a buyer owned by owner.
func (s *Service) GetBusiness(ctx context.Context, owner, id uuid.UUID) (Business, error) {
	return s.repo.GetBusiness(ctx, owner, id)
}

// ListBusinesses lists the owner's buyers.
func (s *Service) ListBusinesses(ctx context.Context, owner uuid.UUID) ([]Business, error) {
	return s.repo.ListBusinesses(ctx, owner)
}

// CreateSite validates and stores a site.
func (s *Service) CreateSite(ctx context.Context, owner uuid.UUID, site Site) (Site, error) {
	if err := requireOwner(owner); err != nil {
		return Site{}, err
	}
	site.OwnerID = owner
	site.Code = strings.TrimSpace(site.Code)
	site.Name = strings.TrimSpace(site.Name)
	site.GSTIN = strings.ToUpper(strings.TrimSpace(site.GSTIN))
	if site.Code == "" || site.Name == "" {
		return Site{}, invalid("site code and name are required")
	}
	if err := checkAddress(site.PIN, site.GSTIN); err != nil {
		return Site{}, err
	}
	return s.repo.CreateSite(ctx, site)
}

// GetSite returns a site owned by owner.
func (s *Service) GetSite(ctx context.Context, owner, id uuid.UUID) (Site, error) {
	return s.repo.GetSite(ctx, owner, id)
}

// ListSites lists the owner's sites.
func (s *Service) ListSites(ctx context.Context, owner uuid.UUID) ([]Site, error) {
	return s.repo.ListSites(ctx, owner)
}

// CreateLorry validates and stores a lorry.
func (s *Service) CreateLorry(ctx context.Context, owner uuid.UUID, l Lorry) (Lorry, error) {
	if err := requireOwner(owner); err != nil {
		return Lorry{}, err
	}
	l.OwnerID = owner
	l.Code = strings.TrimSpace(l.Code)
	l.Number = strings.ToUpper(strings.TrimSpace(l.Number))
	if l.Code == "" || l.Number == "" {
		return Lorry{}, invalid("lorry code and number are required")
	}
	return s.repo.CreateLorry(ctx, l)
}

// GetLorry returns a lorry owned by owner.
func (s *Service) GetLorry(ctx context.Context, owner, id uuid.UUID) (Lorry, error) {
	return s.repo.GetLorry(ctx, owner, id)
}

// ListLorries lists the owner's lorries.
func (s *Service) ListLorries(ctx context.Context, owner uuid.UUID) ([]Lorry, error) {
	return s.repo.ListLorries(ctx, owner)
}

// CreateSupplier validates and stores a supplier.
func (s *Service) CreateSupplier(ctx context.Context, owner uuid.UUID, sup Supplier) (Supplier, error) {
	if err := requireOwner(owner); err != nil {
		return Supplier{}, err
	}
	sup.OwnerID = owner
	sup.Code = strings.TrimSpace(sup.Code)
	sup.Name = strings.TrimSpace(sup.Name)
	sup.Address = strings.TrimSpace(sup.Address)
	sup.GSTIN = strings.ToUpper(strings.TrimSpace(sup.GSTIN))
	sup.Phone = strings.TrimSpace(sup.Phone)
	if sup.Code == "" || sup.Name == "" || sup.Address == "" {
		return Supplier{}, invalid("supplier code, name and address are required")
	}
	if err := checkAddress("", sup.GSTIN); err != nil {
		return Supplier{}, err
	}
	return s.repo.CreateSupplier(ctx, sup)
}

// GetSupplier returns a supplier owned by owner.
func (s *Service) GetSupplier(ctx context.Context, owner, id uuid.UUID) (Supplier, error) {
	return s.repo.GetSupplier(ctx, owner, id)
}

// ListSuppliers lists the owner's suppliers.
func (s *Service) ListSuppliers(ctx context.Context, owner uuid.UUID) ([]Supplier, error) {
	return s.repo.ListSuppliers(ctx, owner)
}

// CreateCompany validates and stores a billing company. The GSTIN is
// mandatory because every invoice is issued under it.
func (s *Service) CreateCompany(ctx context.Context, owner uuid.UUID, c Company) (Company, error) {
	if err := requireOwner(owner); err != nil {
		return Company{}, err
	}
	c.OwnerID = owner
	c.Code = strings.TrimSpace(c.Code)
	c.Name = strings.TrimSpace(c.Name)
	c.Address = strings.TrimSpace(c.Address)
	c.GSTIN = strings.ToUpper(strings.TrimSpace(c.GSTIN))
	c.PAN = strings.ToUpper(strings.TrimSpace(c.PAN))
	c.Mobile = strings.TrimSpace(c.Mobile)
	if c.Code == "" || c.Name == "" || c.Address == "" || c.GSTIN == "" {
		return Company{}, invalid("company code, name, address and gstin are required")
	}
	if err := checkAddress(c.PIN, c.GSTIN); err != nil {
		return Company{}, err
	}
	if c.PAN != "" && !panPattern.MatchString(c.PAN) {
		return Company{}, invalid("pan is malformed")
	}
	if c.Mobile != "" && !mobilePattern.MatchString(c.Mobile) {
		return Company{}, invalid("mobile must be 10 digits")
	}
	fy, err := checkFinancialYear(c.FinancialYear)
	if err != nil {
		return Company{}, err
	}
	c.FinancialYear = fy
	return s.repo.CreateCompany(ctx, c)
}

// checkFinancialYear truncates both ends to dates and requires a period of
// at most one year.
func checkFinancialYear(fy FinancialYear) (FinancialYear, error) {
	if fy.Start.IsZero() || fy.End.IsZero() {
		return FinancialYear{}, invalid("financial year start and end are required")
	}
	fy.Start = dateOnly(fy.Start)
	fy.End = dateOnly(fy.End)
	if !fy.End.After(fy.Start) {
		return FinancialYear{}, invalid("financial year must end after it starts")
	}
	if !fy.End.Before(fy.Start.AddDate(1, 0, 0)) {
		return FinancialYear{}, invalid("financial year spans more than a year")
	}
	return fy, nil
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// GetCompany returns a company owned by owner.
func (s *Service) GetCompany(ctx context.Context, owner, id uuid.UUID) (Company, error) {
	return s.repo.GetCompany(ctx, owner, id)
}

// ListCompanies lists the owner's companies.
func (s *Service) ListCompanies(ctx context.Context, owner uuid.UUID) ([]Company, error) {
	return s.repo.ListCompanies(ctx, owner)
}
