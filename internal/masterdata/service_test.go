package masterdata

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestCreateItemValidatesRates(t *testing.T) {
	svc := NewService(newMemoryRepo())
	owner := uuid.New()

	_, err := svc.CreateItem(context.Background(), owner, Item{Code: "SAND", Name: "River sand", IGSTRate: decimal.NewFromInt(101)})
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.CreateItem(context.Background(), owner, Item{Code: "SAND", Name: "River sand", CGSTRate: decimal.NewFromInt(-1)})
	require.ErrorIs(t, err, ErrValidation)

	item, err := svc.CreateItem(context.Background(), owner, Item{Code: " SAND ", Name: "River sand", IGSTRate: decimal.NewFromInt(18)})
	require.NoError(t, err)
	require.Equal(t, "SAND", item.Code)
	require.Equal(t, owner, item.OwnerID)
	require.True(t, item.InterState())
}

func TestCreateItemRejectsDuplicateCode(t *testing.T) {
	svc := NewService(newMemoryRepo())
	owner := uuid.New()

	_, err := svc.CreateItem(context.Background(), owner, Item{Code: "SAND", Name: "River sand"})
	require.NoError(t, err)
	_, err = svc.CreateItem(context.Background(), owner, Item{Code: "SAND", Name: "Other"})
	require.ErrorIs(t, err, ErrDuplicateCode)

	_, err = svc.CreateItem(context.Background(), uuid.New(), Item{Code: "SAND", Name: "Other owner"})
	require.NoError(t, err)
}

func TestGetItemIsOwnerScoped(t *testing.T) {
	svc := NewService(newMemoryRepo())
	owner := uuid.New()
	item, err := svc.CreateItem(context.Background(), owner, Item{Code: "SAND", Name: "River sand"})
	require.NoError(t, err)

	_, err = svc.GetItem(context.Background(), uuid.New(), item.ID)
	require.ErrorIs(t, err, ErrNotFound)

	got, err := svc.GetItem(context.Background(), owner, item.ID)
	require.NoError(t, err)
	require.Equal(t, item.ID, got.ID)
}

func TestCreateBusinessNormalisesTaxIDs(t *testing.T) {
	svc := NewService(newMemoryRepo())
	owner := uuid.New()

	b, err := svc.CreateBusiness(context.Background(), owner, Business{Code: "ACME", Name: "Acme Infra", GSTIN: "27aapfu0939f1zv", PAN: "aapfu0939f", PIN: "400001"})
	require.NoError(t, err)
	require.Equal(t, "27AAPFU0939F1ZV", b.GSTIN)
	require.Equal(t, "AAPFU0939F", b.PAN)

	_, err = svc.CreateBusiness(context.Background(), owner, Business{Code: "BAD", Name: "Bad", PIN: "12"})
	require.ErrorIs(t, err, ErrValidation)
	_, err = svc.CreateBusiness(context.Background(), owner, Business{Code: "BAD", Name: "Bad", PAN: "123"})
	require.ErrorIs(t, err, ErrValidation)
}

func TestCreateLorryRequiresNumber(t *testing.T) {
	svc := NewService(newMemoryRepo())
	_, err := svc.CreateLorry(context.Background(), uuid.New(), Lorry{Code: "L1"})
	require.ErrorIs(t, err, ErrValidation)

	l, err := svc.CreateLorry(context.Background(), uuid.New(), Lorry{Code: "L1", Number: "mh12ab1234"})
	require.NoError(t, err)
	require.Equal(t, "MH12AB1234", l.Number)
}

func TestCreateRequiresOwner(t *testing.T) {
	svc := NewService(newMemoryRepo())
	_, err := svc.CreateSite(context.Background(), uuid.Nil, Site{Code: "S", Name: "Site"})
	require.ErrorIs(t, err, ErrValidation)
}

func TestCreateSupplierIsOwnerScoped(t *testing.T) {
	svc := NewService(newMemoryRepo())
	ctx := context.Background()
	owner := uuid.New()

	_, err := svc.CreateSupplier(ctx, owner, Supplier{Code: "QRY", Name: "Stone Quarry"})
	require.ErrorIs(t, err, ErrValidation)
	_, err = svc.CreateSupplier(ctx, owner, Supplier{Code: "QRY", Name: "Stone Quarry", Address: "Km 12", GSTIN: "bad"})
	require.ErrorIs(t, err, ErrValidation)

	sup, err := svc.CreateSupplier(ctx, owner, Supplier{Code: " QRY ", Name: "Stone Quarry", Address: " Km 12, Pune road ", GSTIN: "27aapfu0939f1zv"})
	require.NoError(t, err)
	require.Equal(t, "QRY", sup.Code)
	require.Equal(t, "Km 12, Pune road", sup.Address)
	require.Equal(t, "27AAPFU0939F1ZV", sup.GSTIN)

	_, err = svc.CreateSupplier(ctx, owner, Supplier{Code: "QRY", Name: "Again", Address: "x"})
	require.ErrorIs(t, err, ErrDuplicateCode)

	_, err = svc.GetSupplier(ctx, uuid.New(), sup.ID)
	require.ErrorIs(t, err, ErrNotFound)
	list, err := svc.ListSuppliers(ctx, owner)
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func validCompany() Company {
	return Company{
		Code:    "LB",
		Name:    "Lorry Bill Transport",
		Address: "Plot 4, MIDC",
		PIN:     "411019",
		GSTIN:   "27AAPFU0939F1ZV",
		Mobile:  "9876543210",
		FinancialYear: FinancialYear{
			Start: time.Date(2024, 4, 1, 10, 0, 0, 0, time.UTC),
			End:   time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC),
		},
	}
}

func TestCreateCompanyValidatesFinancialYear(t *testing.T) {
	svc := NewService(newMemoryRepo())
	ctx := context.Background()
	owner := uuid.New()

	c, err := svc.CreateCompany(ctx, owner, validCompany())
	require.NoError(t, err)
	require.Equal(t, time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), c.FinancialYear.Start)

	got, err := svc.GetCompany(ctx, owner, c.ID)
	require.NoError(t, err)
	require.Equal(t, c, got)

	cases := map[string]func(c *Company){
		"missing gstin":  func(c *Company) { c.GSTIN = "" },
		"bad mobile":     func(c *Company) { c.Mobile = "12345" },
		"missing start":  func(c *Company) { c.FinancialYear.Start = time.Time{} },
		"inverted year":  func(c *Company) { c.FinancialYear.End = c.FinancialYear.Start.AddDate(0, -1, 0) },
		"more than year": func(c *Company) { c.FinancialYear.End = time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC) },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			bad := validCompany()
			bad.Code = name
			mutate(&bad)
			_, err := svc.CreateCompany(ctx, owner, bad)
			require.ErrorIs(t, err, ErrValidation)
		})
	}

	list, err := svc.ListCompanies(ctx, owner)
	require.NoError(t, err)
	require.Len(t, list, 1)
}
