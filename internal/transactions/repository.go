package transactions

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lorrybill/lorrybill/internal/platform/db"
	"github.com/lorrybill/lorrybill/internal/shared"
)

const challanConstraint = "transactions_owner_challan_key"

const selectColumns = `t.id, t.owner_id, t.voucher_no, t.challan_no, t.transaction_date, t.lorry_id, COALESCE(l.number, ''),
	t.buyer_id, t.site_id, t.item_id, t.purchase_rate, t.sale_rate, t.quantity, t.remarks,
	t.invoiced, t.invoice_id, t.created_at, t.updated_at`

const fromJoin = ` FROM transactions t LEFT JOIN lorries l ON l.id = t.lorry_id`

// repository provides PostgreSQL persistence for transactions.
type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

// WithTx wraps fn in a read-committed transaction; voucher allocation is
// serialised by an advisory lock taken inside NextVoucherNumber.
func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, db.ReadCommitted, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

func scanTransaction(row pgx.Row) (Transaction, error) {
	var t Transaction
	err := row.Scan(&t.ID, &t.OwnerID, &t.VoucherNo, &t.ChallanNo, &t.Date, &t.LorryID, &t.LorryNumber,
		&t.BuyerID, &t.SiteID, &t.ItemID, &t.PurchaseRate, &t.SaleRate, &t.Quantity, &t.Remarks,
		&t.Invoiced, &t.InvoiceID, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

func collect(rows pgx.Rows) ([]Transaction, error) {
	defer rows.Close()
	out := make([]Transaction, 0)
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *repository) Get(ctx context.Context, owner, id uuid.UUID) (Transaction, error) {
	t, err := scanTransaction(r.pool.QueryRow(ctx, `SELECT `+selectColumns+fromJoin+` WHERE t.owner_id = $1 AND t.id = $2`, owner, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Transaction{}, ErrNotFound
	}
	if err != nil {
		return Transaction{}, fmt.Errorf("transactions: get: %w", err)
	}
	return t, nil
}

func (r *repository) List(ctx context.Context, owner uuid.UUID, filter ListFilter) ([]Transaction, int, error) {
	where := []string{"t.owner_id = $1"}
	args := []any{owner}
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if filter.BuyerID != nil {
		add("t.buyer_id = $%d", *filter.BuyerID)
	}
	if filter.SiteID != nil {
		add("t.site_id = $%d", *filter.SiteID)
	}
	if filter.ItemID != nil {
		add("t.item_id = $%d", *filter.ItemID)
	}
	if filter.Invoiced != nil {
		add("t.invoiced = $%d", *filter.Invoiced)
	}
	if filter.From != nil {
		add("t.transaction_date >= $%d", *filter.From)
	}
	if filter.To != nil {
		add("t.transaction_date <= $%d", *filter.To)
	}
	clause := " WHERE " + strings.Join(where, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM transactions t`+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("transactions: count: %w", err)
	}

	page := shared.NewPagination(filter.Page, filter.PerPage, total)
	args = append(args, page.PerPage, page.Offset())
	query := `SELECT ` + selectColumns + fromJoin + clause +
		fmt.Sprintf(` ORDER BY t.transaction_date, t.voucher_no LIMIT $%d OFFSET $%d`, len(args)-1, len(args))
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("transactions: list: %w", err)
	}
	out, err := collect(rows)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// ListForInvoicing loads the owner's uninvoiced transactions among ids.
func (r *repository) ListForInvoicing(ctx context.Context, owner uuid.UUID, ids []uuid.UUID) ([]Transaction, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+selectColumns+fromJoin+`
		WHERE t.owner_id = $1 AND t.id = ANY($2) AND t.invoiced = FALSE
		ORDER BY t.transaction_date, t.voucher_no`, owner, ids)
	if err != nil {
		return nil, fmt.Errorf("transactions: load for invoicing: %w", err)
	}
	return collect(rows)
}

func (r *repository) UpdateOpen(ctx context.Context, t Transaction) (Transaction, error) {
	var id uuid.UUID
	err := r.pool.QueryRow(ctx, `UPDATE transactions SET
			challan_no = $3, transaction_date = $4, lorry_id = $5, buyer_id = $6, site_id = $7, item_id = $8,
			purchase_rate = $9, sale_rate = $10, quantity = $11, remarks = $12, updated_at = NOW()
		WHERE owner_id = $1 AND id = $2 AND invoiced = FALSE
		RETURNING id`,
		t.OwnerID, t.ID, t.ChallanNo, t.Date, t.LorryID, t.BuyerID, t.SiteID, t.ItemID,
		t.PurchaseRate, t.SaleRate, t.Quantity, t.Remarks).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return Transaction{}, r.explainLocked(ctx, t.OwnerID, t.ID)
	}
	if err != nil {
		if db.IsUniqueViolation(err, challanConstraint) {
			return Transaction{}, ErrDuplicateChallan
		}
		return Transaction{}, fmt.Errorf("transactions: update: %w", err)
	}
	return r.Get(ctx, t.OwnerID, id)
}

func (r *repository) DeleteOpen(ctx context.Context, owner, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM transactions WHERE owner_id = $1 AND id = $2 AND invoiced = FALSE
		AND NOT EXISTS (SELECT 1 FROM invoice_transactions it WHERE it.transaction_id = transactions.id)`, owner, id)
	if err != nil {
		return fmt.Errorf("transactions: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.explainLocked(ctx, owner, id)
	}
	return nil
}

func (r *repository) explainLocked(ctx context.Context, owner, id uuid.UUID) error {
	var invoiced bool
	err := r.pool.QueryRow(ctx, `SELECT invoiced FROM transactions WHERE owner_id = $1 AND id = $2`, owner, id).Scan(&invoiced)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("transactions: check lock: %w", err)
	}
	if invoiced {
		return ErrInvoiced
	}
	return ErrReferenced
}

type txRepository struct {
	tx pgx.Tx
}

func (r *txRepository) NextVoucherNumber(ctx context.Context, owner uuid.UUID) (int64, error) {
	if err := db.LockOwner(ctx, r.tx, shared.LockVoucherNumbering, owner.String()); err != nil {
		return 0, err
	}
	var next int64
	if err := r.tx.QueryRow(ctx, `SELECT COALESCE(MAX(voucher_no), 0) + 1 FROM transactions WHERE owner_id = $1`, owner).Scan(&next); err != nil {
		return 0, fmt.Errorf("transactions: next voucher: %w", err)
	}
	return next, nil
}

func (r *txRepository) Insert(ctx context.Context, t Transaction) (Transaction, error) {
	err := r.tx.QueryRow(ctx, `INSERT INTO transactions
			(owner_id, voucher_no, challan_no, transaction_date, lorry_id, buyer_id, site_id, item_id,
			 purchase_rate, sale_rate, quantity, remarks)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at, updated_at`,
		t.OwnerID, t.VoucherNo, t.ChallanNo, t.Date, t.LorryID, t.BuyerID, t.SiteID, t.ItemID,
		t.PurchaseRate, t.SaleRate, t.Quantity, t.Remarks).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if db.IsUniqueViolation(err, challanConstraint) {
			return Transaction{}, ErrDuplicateChallan
		}
		return Transaction{}, fmt.Errorf("transactions: insert: %w", err)
	}
	return t, nil
}

// Execer is satisfied by pgx.Tx and *pgxpool.Pool.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Querier is satisfied by pgx.Tx and *pgxpool.Pool.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// LockForInvoicing row-locks the owner's uninvoiced transactions among ids
// and returns them as stored. Run inside the invoicing unit, it holds off
// UpdateOpen and DeleteOpen until the unit ends; once the claim commits,
// their invoiced = FALSE predicate no longer matches.
func LockForInvoicing(ctx context.Context, q Querier, owner uuid.UUID, ids []uuid.UUID) ([]Transaction, error) {
	rows, err := q.Query(ctx, `SELECT `+selectColumns+fromJoin+`
		WHERE t.owner_id = $1 AND t.id = ANY($2) AND t.invoiced = FALSE
		ORDER BY t.id
		FOR UPDATE OF t`, owner, ids)
	if err != nil {
		return nil, fmt.Errorf("transactions: lock for invoicing: %w", err)
	}
	return collect(rows)
}

// Claim marks ids as invoiced by invoiceID. Only uninvoiced rows of owner are
// touched; callers compare the returned count against len(ids).
func Claim(ctx context.Context, q Execer, owner, invoiceID uuid.UUID, ids []uuid.UUID) (int64, error) {
	tag, err := q.Exec(ctx, `UPDATE transactions SET invoiced = TRUE, invoice_id = $2, updated_at = NOW()
		WHERE owner_id = $1 AND id = ANY($3) AND invoiced = FALSE`, owner, invoiceID, ids)
	if err != nil {
		return 0, fmt.Errorf("transactions: claim: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Release clears the invoiced flag of every transaction linked to invoiceID.
func Release(ctx context.Context, q Execer, owner, invoiceID uuid.UUID) (int64, error) {
	tag, err := q.Exec(ctx, `UPDATE transactions SET invoiced = FALSE, invoice_id = NULL, updated_at = NOW()
		WHERE owner_id = $1 AND invoice_id = $2`, owner, invoiceID)
	if err != nil {
		return 0, fmt.Errorf("transactions: release: %w", err)
	}
	return tag.RowsAffected(), nil
}
