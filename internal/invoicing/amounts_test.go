package invoicing

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/lorrybill/lorrybill/internal/transactions"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func lines(pairs ...string) []transactions.Transaction {
	out := make([]transactions.Transaction, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, transactions.Transaction{ID: uuid.New(), Quantity: dec(pairs[i]), SaleRate: dec(pairs[i+1])})
	}
	return out
}

func TestComputeAmountsInterState(t *testing.T) {
	a, err := ComputeAmounts(lines("10", "100", "5", "100", "2", "100"), TaxRates{IGST: dec("18")})
	require.NoError(t, err)
	require.True(t, a.Net().Equal(dec("1700")))
	require.True(t, a.IGST().Equal(dec("306")))
	require.True(t, a.CGST().IsZero())
	require.True(t, a.SGST().IsZero())
	require.True(t, a.Total().Equal(dec("2006")))
	require.Equal(t, "2006.00", a.Total().StringFixed(2))
}

func TestComputeAmountsIntraState(t *testing.T) {
	a, err := ComputeAmounts(lines("10", "100", "5", "100", "2", "100"), TaxRates{CGST: dec("9"), SGST: dec("9")})
	require.NoError(t, err)
	require.True(t, a.Net().Equal(dec("1700")))
	require.True(t, a.CGST().Equal(dec("153")))
	require.True(t, a.SGST().Equal(dec("153")))
	require.True(t, a.IGST().IsZero())
	require.True(t, a.Total().Equal(dec("2006")))
}

func TestComputeAmountsIGSTWinsOverIntraStateRates(t *testing.T) {
	a, err := ComputeAmounts(lines("1", "100"), TaxRates{IGST: dec("12"), CGST: dec("6"), SGST: dec("6")})
	require.NoError(t, err)
	require.True(t, a.IGST().Equal(dec("12")))
	require.True(t, a.CGST().IsZero())
	require.True(t, a.SGST().IsZero())
}

func TestComputeAmountsRoundsComponentsBeforeTotal(t *testing.T) {
	// net 10.005 rounds to 10.01; each 2.5% share (0.250125) rounds to 0.25.
	a, err := ComputeAmounts(lines("3.335", "3"), TaxRates{CGST: dec("2.5"), SGST: dec("2.5")})
	require.NoError(t, err)
	require.Equal(t, "10.01", a.Net().StringFixed(2))
	require.Equal(t, "0.25", a.CGST().StringFixed(2))
	require.Equal(t, "0.25", a.SGST().StringFixed(2))
	require.Equal(t, "10.51", a.Total().StringFixed(2))
	require.True(t, a.Total().Equal(a.Net().Add(a.CGST()).Add(a.SGST()).Add(a.IGST())))
}

func TestComputeAmountsTotalInvariantAcrossInputs(t *testing.T) {
	rates := []TaxRates{
		{IGST: dec("18")},
		{IGST: dec("5")},
		{CGST: dec("9"), SGST: dec("9")},
		{CGST: dec("2.5"), SGST: dec("2.5")},
		{CGST: dec("14"), SGST: dec("14")},
	}
	quantities := []string{"0.333", "1", "7.125", "12.5", "999.999"}
	prices := []string{"0.07", "1.99", "101.01", "333.33"}
	for _, r := range rates {
		for _, q := range quantities {
			for _, p := range prices {
				a, err := ComputeAmounts(lines(q, p, q, p), r)
				require.NoError(t, err)
				require.True(t, a.Total().Equal(a.Net().Add(a.CGST()).Add(a.SGST()).Add(a.IGST())))
				if a.IGST().IsPositive() {
					require.True(t, a.CGST().IsZero() && a.SGST().IsZero())
				}
				if a.CGST().IsPositive() || a.SGST().IsPositive() {
					require.True(t, a.IGST().IsZero())
				}
			}
		}
	}
}

func TestComputeAmountsRejectsNonPositiveNet(t *testing.T) {
	_, err := ComputeAmounts(lines("0", "100"), TaxRates{IGST: dec("18")})
	require.ErrorIs(t, err, ErrInvalidAmount)

	_, err = ComputeAmounts(lines("0.001", "1"), TaxRates{IGST: dec("18")})
	require.ErrorIs(t, err, ErrInvalidAmount)
}

func TestComputeAmountsRejectsTotalBeyondStorage(t *testing.T) {
	// Largest valid quantity and rate overflow NUMERIC(14,2).
	_, err := ComputeAmounts(lines("999999999.999", "9999999999.99"), TaxRates{IGST: dec("18")})
	require.ErrorIs(t, err, ErrInvalidAmount)
	require.NotErrorIs(t, err, ErrCalculation)

	// Tax alone can push the total over.
	_, err = ComputeAmounts(lines("1", "900000000000"), TaxRates{IGST: dec("18")})
	require.ErrorIs(t, err, ErrInvalidAmount)

	a, err := ComputeAmounts(lines("1", "999999999999.99"), TaxRates{})
	require.NoError(t, err)
	require.Equal(t, "999999999999.99", a.Total().StringFixed(2))
}

func TestComputeAmountsRejectsCorruptInputs(t *testing.T) {
	_, err := ComputeAmounts(lines("-1", "100"), TaxRates{IGST: dec("18")})
	require.ErrorIs(t, err, ErrCalculation)

	_, err = ComputeAmounts(lines("1", "100"), TaxRates{IGST: dec("118")})
	require.ErrorIs(t, err, ErrCalculation)

	_, err = ComputeAmounts(lines("1", "100"), TaxRates{CGST: dec("-9")})
	require.ErrorIs(t, err, ErrCalculation)
}

func TestNewAmountsEnforcesExclusivity(t *testing.T) {
	_, err := NewAmounts(dec("100"), dec("9"), dec("0"), dec("18"))
	require.ErrorIs(t, err, ErrCalculation)

	a, err := NewAmounts(dec("100.004"), dec("9.005"), dec("9.005"), decimal.Zero)
	require.NoError(t, err)
	require.Equal(t, "118.02", a.Total().StringFixed(2))
}

func TestRestoreAmountsDetectsTotalMismatch(t *testing.T) {
	_, err := RestoreAmounts(dec("1700"), decimal.Zero, decimal.Zero, dec("306"), dec("2006.01"))
	require.ErrorIs(t, err, ErrCalculation)

	a, err := RestoreAmounts(dec("1700.00"), decimal.Zero, decimal.Zero, dec("306.00"), dec("2006.00"))
	require.NoError(t, err)
	require.True(t, a.Tax().Equal(dec("306")))
}

func TestFormatINR(t *testing.T) {
	require.Equal(t, "₹2,006.00", FormatINR(dec("2006")))
	require.Equal(t, "₹0.50", FormatINR(dec("0.5")))
}
