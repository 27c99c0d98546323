package masterdata

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type itemRequest struct {
	Code     string          `json:"code" validate:"required,max=32"`
	Name     string          `json:"name" validate:"required,max=120"`
	IGSTRate decimal.Decimal `json:"igst_rate"`
	CGSTRate decimal.Decimal `json:"cgst_rate"`
	SGSTRate decimal.Decimal `json:"sgst_rate"`
}

func (r itemRequest) toItem() Item {
	return Item{Code: r.Code, Name: r.Name, IGSTRate: r.IGSTRate, CGSTRate: r.CGSTRate, SGSTRate: r.SGSTRate}
}

type businessRequest struct {
	Code    string `json:"code" validate:"required,max=32"`
	Name    string `json:"name" validate:"required,max=160"`
	Address string `json:"address" validate:"max=400"`
	City    string `json:"city" validate:"max=80"`
	PIN     string `json:"pin" validate:"omitempty,len=6,numeric"`
	State   string `json:"state" validate:"max=80"`
	GSTIN   string `json:"gstin" validate:"omitempty,len=15,alphanum"`
	PAN     string `json:"pan" validate:"omitempty,len=10,alphanum"`
}

func (r businessRequest) toBusiness() Business {
	return Business{Code: r.Code, Name: r.Name, Address: r.Address, City: r.City, PIN: r.PIN, State: r.State, GSTIN: r.GSTIN, PAN: r.PAN}
}

type siteRequest struct {
	Code    string `json:"code" validate:"required,max=32"`
	Name    string `json:"name" validate:"required,max=160"`
	Address string `json:"address" validate:"max=400"`
	City    string `json:"city" validate:"max=80"`
	PIN     string `json:"pin" validate:"omitempty,len=6,numeric"`
	State   string `json:"state" validate:"max=80"`
	GSTIN   string `json:"gstin" validate:"omitempty,len=15,alphanum"`
}

func (r siteRequest) toSite() Site {
	return Site{Code: r.Code, Name: r.Name, Address: r.Address, City: r.City, PIN: r.PIN, State: r.State, GSTIN: r.GSTIN}
}

type lorryRequest struct {
	Code   string `json:"code" validate:"required,max=32"`
	Number string `json:"number" validate:"required,max=20"`
}

func (r lorryRequest) toLorry() Lorry {
	return Lorry{Code: r.Code, Number: r.Number}
}

type supplierRequest struct {
	Code    string `json:"code" validate:"required,max=32"`
	Name    string `json:"name" validate:"required,max=160"`
	Address string `json:"address" validate:"required,max=400"`
	City    string `json:"city" validate:"max=80"`
	State   string `json:"state" validate:"max=80"`
	GSTIN   string `json:"gstin" validate:"omitempty,len=15,alphanum"`
	Phone   string `json:"phone" validate:"max=20"`
}

func (r supplierRequest) toSupplier() Supplier {
	return Supplier{Code: r.Code, Name: r.Name, Address: r.Address, City: r.City, State: r.State, GSTIN: r.GSTIN, Phone: r.Phone}
}

type companyRequest struct {
	Code          string               `json:"code" validate:"required,max=32"`
	Name          string               `json:"name" validate:"required,max=160"`
	Address       string               `json:"address" validate:"required,max=400"`
	City          string               `json:"city" validate:"max=80"`
	PIN           string               `json:"pin" validate:"omitempty,len=6,numeric"`
	State         string               `json:"state" validate:"max=80"`
	Mobile        string               `json:"mobile" validate:"omitempty,len=10,numeric"`
	GSTIN         string               `json:"gstin" validate:"required,len=15,alphanum"`
	PAN           string               `json:"pan" validate:"omitempty,len=10,alphanum"`
	Bank          string               `json:"bank" validate:"max=200"`
	Jurisdiction  string               `json:"jurisdiction" validate:"max=120"`
	FinancialYear financialYearRequest `json:"financial_year"`
}

type financialYearRequest struct {
	Start string `json:"start" validate:"required,datetime=2006-01-02"`
	End   string `json:"end" validate:"required,datetime=2006-01-02"`
}

func (r companyRequest) toCompany() (Company, error) {
	start, err := time.Parse(time.DateOnly, r.FinancialYear.Start)
	if err != nil {
		return Company{}, fmt.Errorf("%w: financial year start: %v", ErrValidation, err)
	}
	end, err := time.Parse(time.DateOnly, r.FinancialYear.End)
	if err != nil {
		return Company{}, fmt.Errorf("%w: financial year end: %v", ErrValidation, err)
	}
	return Company{
		Code:          r.Code,
		Name:          r.Name,
		Address:       r.Address,
		City:          r.City,
		PIN:           r.PIN,
		State:         r.State,
		Mobile:        r.Mobile,
		GSTIN:         r.GSTIN,
		PAN:           r.PAN,
		Bank:          r.Bank,
		Jurisdiction:  r.Jurisdiction,
		FinancialYear: FinancialYear{Start: start, End: end},
	}, nil
}
