package invoicing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/lorrybill/lorrybill/internal/platform/db"
	"github.com/lorrybill/lorrybill/internal/shared"
	"github.com/lorrybill/lorrybill/internal/transactions"
)

const (
	numberConstraint = "invoices_owner_number_key"
	topBuyers        = 10
)

const invoiceColumns = `i.id, i.owner_id, i.invoice_no, i.invoice_date, i.range_from, i.range_to,
	i.buyer_id, i.site_id, i.item_id, i.notes, i.net_amount, i.cgst_amount, i.sgst_amount,
	i.igst_amount, i.total_amount, i.status, COALESCE(i.cancel_reason, ''), i.cancelled_at, i.created_at,
	COALESCE((SELECT array_agg(it.transaction_id ORDER BY it.position)
		FROM invoice_transactions it WHERE it.invoice_id = i.id), '{}')`

// Repository persists invoices in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the PostgreSQL invoice store.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithTx runs fn in a read-committed transaction. Number allocation and
// claims are serialised per owner by the advisory lock in NextInvoiceNumber.
// Deadlocks between the row locks of concurrent units are retried.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.RetryTx(ctx, r.pool, db.ReadCommitted, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

func scanInvoice(row pgx.Row) (Invoice, error) {
	var (
		inv                          Invoice
		status                       string
		net, cgst, sgst, igst, total decimal.Decimal
	)
	err := row.Scan(&inv.ID, &inv.OwnerID, &inv.Number, &inv.Date, &inv.Range.From, &inv.Range.To,
		&inv.BuyerID, &inv.SiteID, &inv.ItemID, &inv.Notes, &net, &cgst, &sgst, &igst, &total,
		&status, &inv.CancelReason, &inv.CancelledAt, &inv.CreatedAt, &inv.TransactionIDs)
	if err != nil {
		return Invoice{}, err
	}
	inv.Status = Status(status)
	inv.Amounts, err = RestoreAmounts(net, cgst, sgst, igst, total)
	if err != nil {
		return Invoice{}, fmt.Errorf("invoice %s: %w", inv.ID, err)
	}
	return inv, nil
}

func notFound(err error, id uuid.UUID) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: invoice %s", ErrNotFound, id)
	}
	return err
}

// GetInvoice loads one invoice of owner.
func (r *Repository) GetInvoice(ctx context.Context, owner, id uuid.UUID) (Invoice, error) {
	inv, err := scanInvoice(r.pool.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices i
		WHERE i.owner_id = $1 AND i.id = $2`, owner, id))
	if err != nil {
		return Invoice{}, notFound(err, id)
	}
	return inv, nil
}

// GetDetail loads an invoice with buyer, site, item and line data joined in.
func (r *Repository) GetDetail(ctx context.Context, owner, id uuid.UUID) (Detail, error) {
	var d Detail
	err := db.WithTx(ctx, r.pool, db.ReadSnapshot, func(tx pgx.Tx) error {
		inv, err := scanInvoice(tx.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices i
			WHERE i.owner_id = $1 AND i.id = $2`, owner, id))
		if err != nil {
			return notFound(err, id)
		}
		d.Invoice = inv
		err = tx.QueryRow(ctx, `SELECT b.id, b.code, b.name, b.gstin, b.address, b.state,
				s.id, s.code, s.name, s.address, s.city,
				it.id, it.code, it.name
			FROM invoices i
			JOIN businesses b ON b.id = i.buyer_id
			JOIN sites s ON s.id = i.site_id
			JOIN items it ON it.id = i.item_id
			WHERE i.id = $1`, id).Scan(
			&d.Buyer.ID, &d.Buyer.Code, &d.Buyer.Name, &d.Buyer.GSTIN, &d.Buyer.Address, &d.Buyer.State,
			&d.Site.ID, &d.Site.Code, &d.Site.Name, &d.Site.Address, &d.Site.City,
			&d.Item.ID, &d.Item.Code, &d.Item.Name)
		if err != nil {
			return fmt.Errorf("invoicing: load references: %w", err)
		}
		rows, err := tx.Query(ctx, `SELECT t.id, t.voucher_no, t.challan_no, t.transaction_date,
				COALESCE(l.number, ''), t.quantity, t.sale_rate
			FROM invoice_transactions it
			JOIN transactions t ON t.id = it.transaction_id
			LEFT JOIN lorries l ON l.id = t.lorry_id
			WHERE it.invoice_id = $1
			ORDER BY it.position`, id)
		if err != nil {
			return fmt.Errorf("invoicing: load lines: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var ln Line
			if err := rows.Scan(&ln.TransactionID, &ln.VoucherNo, &ln.ChallanNo, &ln.Date,
				&ln.LorryNumber, &ln.Quantity, &ln.Rate); err != nil {
				return err
			}
			ln.Amount = ln.Quantity.Mul(ln.Rate).Round(2)
			d.Lines = append(d.Lines, ln)
		}
		return rows.Err()
	})
	if err != nil {
		return Detail{}, err
	}
	return d, nil
}

// ListInvoices returns one page of summaries and the total matching count.
func (r *Repository) ListInvoices(ctx context.Context, owner uuid.UUID, filter ListFilter) ([]Summary, int, error) {
	args := []any{owner}
	where := `WHERE i.owner_id = $1`
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		where += fmt.Sprintf(` AND i.status = $%d`, len(args))
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM invoices i `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("invoicing: count invoices: %w", err)
	}

	page := shared.NewPagination(filter.Page, filter.PerPage, total)
	args = append(args, page.PerPage, page.Offset())
	rows, err := r.pool.Query(ctx, fmt.Sprintf(`SELECT i.id, i.invoice_no, i.invoice_date, i.range_from, i.range_to,
			i.status, b.name, s.name, it.name, i.net_amount, i.cgst_amount, i.sgst_amount, i.igst_amount,
			i.total_amount, (SELECT COUNT(*) FROM invoice_transactions x WHERE x.invoice_id = i.id)
		FROM invoices i
		JOIN businesses b ON b.id = i.buyer_id
		JOIN sites s ON s.id = i.site_id
		JOIN items it ON it.id = i.item_id
		%s
		ORDER BY i.invoice_no DESC
		LIMIT $%d OFFSET $%d`, where, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("invoicing: list invoices: %w", err)
	}
	defer rows.Close()

	out := make([]Summary, 0, page.PerPage)
	for rows.Next() {
		var (
			sm                            Summary
			status                        string
			net, cgst, sgst, igst, amount decimal.Decimal
		)
		if err := rows.Scan(&sm.ID, &sm.Number, &sm.Date, &sm.Range.From, &sm.Range.To, &status,
			&sm.BuyerName, &sm.SiteName, &sm.ItemName, &net, &cgst, &sgst, &igst, &amount,
			&sm.TransactionCount); err != nil {
			return nil, 0, err
		}
		sm.Status = Status(status)
		if sm.Amounts, err = RestoreAmounts(net, cgst, sgst, igst, amount); err != nil {
			return nil, 0, fmt.Errorf("invoice %s: %w", sm.ID, err)
		}
		out = append(out, sm)
	}
	return out, total, rows.Err()
}

// Summarize aggregates the owner's active invoices for the dashboard.
func (r *Repository) Summarize(ctx context.Context, owner uuid.UUID) (DashboardSummary, error) {
	sum := DashboardSummary{Monthly: []MonthTotal{}, Buyers: []BuyerTotal{}}
	err := db.WithTx(ctx, r.pool, db.ReadSnapshot, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `SELECT COUNT(*), COALESCE(SUM(net_amount), 0),
				COALESCE(SUM(cgst_amount + sgst_amount + igst_amount), 0), COALESCE(SUM(total_amount), 0)
			FROM invoices WHERE owner_id = $1 AND status = 'active'`, owner).
			Scan(&sum.TotalInvoices, &sum.TotalNet, &sum.TotalTax, &sum.TotalSales)
		if err != nil {
			return fmt.Errorf("invoicing: summary totals: %w", err)
		}
		if err := tx.QueryRow(ctx, `SELECT COALESCE(SUM(t.quantity * (t.sale_rate - t.purchase_rate)), 0)
			FROM transactions t JOIN invoices i ON i.id = t.invoice_id
			WHERE t.owner_id = $1 AND t.invoiced AND i.status = 'active'`, owner).Scan(&sum.GrossMargin); err != nil {
			return fmt.Errorf("invoicing: summary margin: %w", err)
		}
		sum.GrossMargin = sum.GrossMargin.Round(2)

		rows, err := tx.Query(ctx, `SELECT to_char(invoice_date, 'YYYY-MM'), SUM(total_amount)
			FROM invoices WHERE owner_id = $1 AND status = 'active'
			GROUP BY 1 ORDER BY 1`, owner)
		if err != nil {
			return fmt.Errorf("invoicing: summary monthly: %w", err)
		}
		for rows.Next() {
			var m MonthTotal
			if err := rows.Scan(&m.Month, &m.Total); err != nil {
				rows.Close()
				return err
			}
			sum.Monthly = append(sum.Monthly, m)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		rows, err = tx.Query(ctx, `SELECT b.id, b.name, SUM(i.total_amount)
			FROM invoices i JOIN businesses b ON b.id = i.buyer_id
			WHERE i.owner_id = $1 AND i.status = 'active'
			GROUP BY b.id, b.name ORDER BY 3 DESC, b.name LIMIT $2`, owner, topBuyers)
		if err != nil {
			return fmt.Errorf("invoicing: summary buyers: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var b BuyerTotal
			if err := rows.Scan(&b.BuyerID, &b.BuyerName, &b.Total); err != nil {
				return err
			}
			sum.Buyers = append(sum.Buyers, b)
		}
		return rows.Err()
	})
	if err != nil {
		return DashboardSummary{}, err
	}
	return sum, nil
}

// OwnersWithInvoices lists every owner holding at least one active invoice.
func (r *Repository) OwnersWithInvoices(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT owner_id FROM invoices WHERE status = 'active' ORDER BY owner_id`)
	if err != nil {
		return nil, fmt.Errorf("invoicing: list owners: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
}

type txRepository struct {
	tx pgx.Tx
}

func (r *txRepository) NextInvoiceNumber(ctx context.Context, owner uuid.UUID) (int64, error) {
	if err := db.LockOwner(ctx, r.tx, shared.LockInvoiceNumbering, owner.String()); err != nil {
		return 0, err
	}
	var next int64
	if err := r.tx.QueryRow(ctx, `SELECT COALESCE(MAX(invoice_no), 0) + 1 FROM invoices WHERE owner_id = $1`, owner).Scan(&next); err != nil {
		return 0, fmt.Errorf("invoicing: next number: %w", err)
	}
	return next, nil
}

func (r *txRepository) LockTransactions(ctx context.Context, owner uuid.UUID, ids []uuid.UUID) ([]transactions.Transaction, error) {
	return transactions.LockForInvoicing(ctx, r.tx, owner, ids)
}

func (r *txRepository) InsertInvoice(ctx context.Context, inv Invoice) (Invoice, error) {
	a := inv.Amounts
	err := r.tx.QueryRow(ctx, `INSERT INTO invoices
			(id, owner_id, invoice_no, invoice_date, range_from, range_to, buyer_id, site_id, item_id, notes,
			 net_amount, cgst_amount, sgst_amount, igst_amount, total_amount, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING created_at`,
		inv.ID, inv.OwnerID, inv.Number, inv.Date, inv.Range.From, inv.Range.To,
		inv.BuyerID, inv.SiteID, inv.ItemID, inv.Notes,
		a.Net(), a.CGST(), a.SGST(), a.IGST(), a.Total(), string(inv.Status)).Scan(&inv.CreatedAt)
	if err != nil {
		if db.IsUniqueViolation(err, numberConstraint) {
			return Invoice{}, fmt.Errorf("invoice number %d already allocated: %w", inv.Number, err)
		}
		return Invoice{}, fmt.Errorf("invoicing: insert invoice: %w", err)
	}
	if _, err := r.tx.Exec(ctx, `INSERT INTO invoice_transactions (invoice_id, transaction_id, position)
		SELECT $1, t.id, t.ord FROM unnest($2::uuid[]) WITH ORDINALITY AS t(id, ord)`,
		inv.ID, inv.TransactionIDs); err != nil {
		return Invoice{}, fmt.Errorf("invoicing: insert members: %w", err)
	}
	return inv, nil
}

func (r *txRepository) ClaimTransactions(ctx context.Context, owner, invoiceID uuid.UUID, ids []uuid.UUID) (int64, error) {
	return transactions.Claim(ctx, r.tx, owner, invoiceID, ids)
}

func (r *txRepository) LockInvoice(ctx context.Context, owner, id uuid.UUID) (Invoice, error) {
	inv := Invoice{ID: id, OwnerID: owner}
	var status string
	err := r.tx.QueryRow(ctx, `SELECT invoice_no, status FROM invoices
		WHERE owner_id = $1 AND id = $2 FOR UPDATE`, owner, id).Scan(&inv.Number, &status)
	if err != nil {
		return Invoice{}, notFound(err, id)
	}
	inv.Status = Status(status)
	return inv, nil
}

func (r *txRepository) MarkCancelled(ctx context.Context, owner, id uuid.UUID, reason string, at time.Time) error {
	tag, err := r.tx.Exec(ctx, `UPDATE invoices SET status = 'cancelled', cancel_reason = $3, cancelled_at = $4
		WHERE owner_id = $1 AND id = $2 AND status = 'active'`, owner, id, reason, at)
	if err != nil {
		return fmt.Errorf("invoicing: cancel: %w", err)
	}
	if tag.RowsAffected() != 1 {
		return fmt.Errorf("%w: invoice %s is not active", ErrInvalidStateTransition, id)
	}
	return nil
}

func (r *txRepository) ReleaseTransactions(ctx context.Context, owner, invoiceID uuid.UUID) (int64, error) {
	return transactions.Release(ctx, r.tx, owner, invoiceID)
}
