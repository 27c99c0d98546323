package invoicing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/lorrybill/lorrybill/internal/masterdata"
	"github.com/lorrybill/lorrybill/internal/transactions"
)

const moneyPlaces = 2

var (
	hundred = decimal.NewFromInt(100)
	// maxMoney bounds NUMERIC(14,2) invoice amounts.
	maxMoney = decimal.New(1, 12)
)

// TaxRates are GST percentages for one item.
type TaxRates struct {
	IGST decimal.Decimal
	CGST decimal.Decimal
	SGST decimal.Decimal
}

// RatesOf extracts the tax rates of an item.
func RatesOf(item masterdata.Item) TaxRates {
	return TaxRates{IGST: item.IGSTRate, CGST: item.CGSTRate, SGST: item.SGSTRate}
}

func (r TaxRates) validate() error {
	for name, rate := range map[string]decimal.Decimal{"igst": r.IGST, "cgst": r.CGST, "sgst": r.SGST} {
		if rate.IsNegative() || rate.GreaterThan(hundred) {
			return calculationError("%s rate %s outside 0..100", name, rate)
		}
	}
	return nil
}

// Amounts holds the rounded money fields of an invoice. Values are only
// produced by NewAmounts and ComputeAmounts, so the exclusivity and total
// invariants always hold.
type Amounts struct {
	net   decimal.Decimal
	cgst  decimal.Decimal
	sgst  decimal.Decimal
	igst  decimal.Decimal
	total decimal.Decimal
}

// NewAmounts rounds each component to two places and derives the total from
// the rounded components.
func NewAmounts(net, cgst, sgst, igst decimal.Decimal) (Amounts, error) {
	a := Amounts{
		net:  net.Round(moneyPlaces),
		cgst: cgst.Round(moneyPlaces),
		sgst: sgst.Round(moneyPlaces),
		igst: igst.Round(moneyPlaces),
	}
	if a.net.IsNegative() || a.cgst.IsNegative() || a.sgst.IsNegative() || a.igst.IsNegative() {
		return Amounts{}, calculationError("amounts must not be negative")
	}
	if a.igst.IsPositive() && (a.cgst.IsPositive() || a.sgst.IsPositive()) {
		return Amounts{}, calculationError("igst cannot be combined with cgst or sgst")
	}
	a.total = a.net.Add(a.cgst).Add(a.sgst).Add(a.igst)
	if a.total.GreaterThanOrEqual(maxMoney) {
		return Amounts{}, fmt.Errorf("%w: total %s is not below %s", ErrInvalidAmount, a.total.StringFixed(moneyPlaces), maxMoney)
	}
	return a, nil
}

// RestoreAmounts rebuilds persisted amounts and verifies the stored total.
func RestoreAmounts(net, cgst, sgst, igst, total decimal.Decimal) (Amounts, error) {
	a, err := NewAmounts(net, cgst, sgst, igst)
	if err != nil {
		return Amounts{}, err
	}
	if !a.total.Equal(total) {
		return Amounts{}, calculationError("stored total %s does not match components %s", total, a.total)
	}
	return a, nil
}

// ComputeAmounts sums the line amounts of group at full precision and applies
// exactly one GST regime: IGST when its rate is positive, CGST+SGST otherwise.
func ComputeAmounts(group []transactions.Transaction, rates TaxRates) (Amounts, error) {
	if err := rates.validate(); err != nil {
		return Amounts{}, err
	}
	net := decimal.Zero
	for _, t := range group {
		if t.Quantity.IsNegative() || t.SaleRate.IsNegative() {
			return Amounts{}, calculationError("transaction %s has a negative quantity or rate", t.ID)
		}
		net = net.Add(t.LineAmount())
	}
	if !net.IsPositive() || !net.Round(moneyPlaces).IsPositive() {
		return Amounts{}, ErrInvalidAmount
	}

	var cgst, sgst, igst decimal.Decimal
	if rates.IGST.IsPositive() {
		igst = net.Mul(rates.IGST).Div(hundred)
	} else {
		cgst = net.Mul(rates.CGST).Div(hundred)
		sgst = net.Mul(rates.SGST).Div(hundred)
	}
	return NewAmounts(net, cgst, sgst, igst)
}

// Net is the rounded sum of line amounts.
func (a Amounts) Net() decimal.Decimal { return a.net }

// CGST is the rounded central tax.
func (a Amounts) CGST() decimal.Decimal { return a.cgst }

// SGST is the rounded state tax.
func (a Amounts) SGST() decimal.Decimal { return a.sgst }

// IGST is the rounded integrated tax.
func (a Amounts) IGST() decimal.Decimal { return a.igst }

// Total is net plus all taxes, computed from the rounded components.
func (a Amounts) Total() decimal.Decimal { return a.total }

// Tax is the sum of the tax components.
func (a Amounts) Tax() decimal.Decimal { return a.total.Sub(a.net) }
