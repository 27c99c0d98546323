package db

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

func TestIsUniqueViolation(t *testing.T) {
	err := fmt.Errorf("insert invoice: %w", &pgconn.PgError{Code: "23505", ConstraintName: "invoices_owner_number_key"})

	require.True(t, IsUniqueViolation(err))
	require.True(t, IsUniqueViolation(err, "invoices_owner_number_key"))
	require.False(t, IsUniqueViolation(err, "transactions_owner_challan_key"))
	require.False(t, IsUniqueViolation(errors.New("boom")))
}

func TestIsRetryable(t *testing.T) {
	require.True(t, IsRetryable(&pgconn.PgError{Code: "40001"}))
	require.True(t, IsRetryable(fmt.Errorf("wrap: %w", &pgconn.PgError{Code: "40P01"})))
	require.False(t, IsRetryable(&pgconn.PgError{Code: "23505"}))
	require.False(t, IsRetryable(nil))
}

func TestRejectionCodes(t *testing.T) {
	require.True(t, IsCheckViolation(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23514"})))
	require.True(t, IsNumericOutOfRange(&pgconn.PgError{Code: "22003"}))
	require.False(t, IsCheckViolation(&pgconn.PgError{Code: "22003"}))
	require.False(t, IsNumericOutOfRange(errors.New("boom")))
}

func TestSchemaDeclaresInvoiceConstraints(t *testing.T) {
	schema := Schema()
	for _, name := range []string{
		"invoices_owner_number_key",
		"invoices_total_check",
		"invoices_regime_check",
		"transactions_invoice_link_check",
		"transactions_owner_challan_key",
	} {
		require.True(t, strings.Contains(schema, name), "missing %s", name)
	}
}
