package masterdata

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lorrybill/lorrybill/internal/platform/db"
)

type repo struct {
	pool *pgxpool.Pool
}

// NewRepository creates a PostgreSQL backed master data repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repo{pool: pool}
}

func mapWriteErr(kind string, err error) error {
	if db.IsUniqueViolation(err) {
		return fmt.Errorf("%w: %s code", ErrDuplicateCode, kind)
	}
	return fmt.Errorf("masterdata: insert %s: %w", kind, err)
}

func mapReadErr(kind string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %s", ErrNotFound, kind)
	}
	return fmt.Errorf("masterdata: load %s: %w", kind, err)
}

const itemColumns = `id, owner_id, code, name, igst_rate, cgst_rate, sgst_rate, created_at`

func scanItem(row pgx.Row) (Item, error) {
	var it Item
	err := row.Scan(&it.ID, &it.OwnerID, &it.Code, &it.Name, &it.IGSTRate, &it.CGSTRate, &it.SGSTRate, &it.CreatedAt)
	return it, err
}

func (r *repo) CreateItem(ctx context.Context, item Item) (Item, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO items (owner_id, code, name, igst_rate, cgst_rate, sgst_rate)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING `+itemColumns,
		item.OwnerID, item.Code, item.Name, item.IGSTRate, item.CGSTRate, item.SGSTRate)
	created, err := scanItem(row)
	if err != nil {
		return Item{}, mapWriteErr("item", err)
	}
	return created, nil
}

func (r *repo) GetItem(ctx context.Context, owner, id uuid.UUID) (Item, error) {
	it, err := scanItem(r.pool.QueryRow(ctx, `SELECT `+itemColumns+` FROM items WHERE owner_id = $1 AND id = $2`, owner, id))
	if err != nil {
		return Item{}, mapReadErr("item", err)
	}
	return it, nil
}

func (r *repo) ListItems(ctx context.Context, owner uuid.UUID) ([]Item, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+itemColumns+` FROM items WHERE owner_id = $1 ORDER BY code`, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := make([]Item, 0)
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

const businessColumns = `id, owner_id, code, name, address, city, pin, state, gstin, pan, created_at`

func scanBusiness(row pgx.Row) (Business, error) {
	var b Business
	err := row.Scan(&b.ID, &b.OwnerID, &b.Code, &b.Name, &b.Address, &b.City, &b.PIN, &b.State, &b.GSTIN, &b.PAN, &b.CreatedAt)
	return b, err
}

func (r *repo) CreateBusiness(ctx context.Context, b Business) (Business, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO businesses (owner_id, code, name, address, city, pin, state, gstin, pan)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING `+businessColumns,
		b.OwnerID, b.Code, b.Name, b.Address, b.City, b.PIN, b.State, b.GSTIN, b.PAN)
	created, err := scanBusiness(row)
	if err != nil {
		return Business{}, mapWriteErr("business", err)
	}
	return created, nil
}

func (r *repo) GetBusiness(ctx context.Context, owner, id uuid.UUID) (Business, error) {
	b, err := scanBusiness(r.pool.QueryRow(ctx, `SELECT `+businessColumns+` FROM businesses WHERE owner_id = $1 AND id = $2`, owner, id))
	if err != nil {
		return Business{}, mapReadErr("business", err)
	}
	return b, nil
}

func (r *repo) ListBusinesses(ctx context.Context, owner uuid.UUID) ([]Business, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+businessColumns+` FROM businesses WHERE owner_id = $1 ORDER BY code`, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]Business, 0)
	for rows.Next() {
		b, err := scanBusiness(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

const siteColumns = `id, owner_id, code, name, address, city, pin, state, gstin, created_at`

func scanSite(row pgx.Row) (Site, error) {
	var s Site
	err := row.Scan(&s.ID, &s.OwnerID, &s.Code, &s.Name, &s.Address, &s.City, &s.PIN, &s.State, &s.GSTIN, &s.CreatedAt)
	return s, err
}

func (r *repo) CreateSite(ctx context.Context, s Site) (Site, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO sites (owner_id, code, name, address, city, pin, state, gstin)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING `+siteColumns,
		s.OwnerID, s.Code, s.Name, s.Address, s.City, s.PIN, s.State, s.GSTIN)
	created, err := scanSite(row)
	if err != nil {
		return Site{}, mapWriteErr("site", err)
	}
	return created, nil
}

func (r *repo) GetSite(ctx context.Context, owner, id uuid.UUID) (Site, error) {
	s, err := scanSite(r.pool.QueryRow(ctx, `SELECT `+siteColumns+` FROM sites WHERE owner_id = $1 AND id = $2`, owner, id))
	if err != nil {
		return Site{}, mapReadErr("site", err)
	}
	return s, nil
}

func (r *repo) ListSites(ctx context.Context, owner uuid.UUID) ([]Site, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+siteColumns+` FROM sites WHERE owner_id = $1 ORDER BY code`, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]Site, 0)
	for rows.Next() {
		s, err := scanSite(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

const lorryColumns = `id, owner_id, code, number, created_at`

func scanLorry(row pgx.Row) (Lorry, error) {
	var l Lorry
	err := row.Scan(&l.ID, &l.OwnerID, &l.Code, &l.Number, &l.CreatedAt)
	return l, err
}

func (r *repo) CreateLorry(ctx context.Context, l Lorry) (Lorry, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO lorries (owner_id, code, number) VALUES ($1, $2, $3) RETURNING `+lorryColumns,
		l.OwnerID, l.Code, l.Number)
	created, err := scanLorry(row)
	if err != nil {
		return Lorry{}, mapWriteErr("lorry", err)
	}
	return created, nil
}

func (r *repo) GetLorry(ctx context.Context, owner, id uuid.UUID) (Lorry, error) {
	l, err := scanLorry(r.pool.QueryRow(ctx, `SELECT `+lorryColumns+` FROM lorries WHERE owner_id = $1 AND id = $2`, owner, id))
	if err != nil {
		return Lorry{}, mapReadErr("lorry", err)
	}
	return l, nil
}

func (r *repo) ListLorries(ctx context.Context, owner uuid.UUID) ([]Lorry, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+lorryColumns+` FROM lorries WHERE owner_id = $1 ORDER BY code`, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]Lorry, 0)
	for rows.Next() {
		l, err := scanLorry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

const supplierColumns = `id, owner_id, code, name, address, city, state, gstin, phone, created_at`

func scanSupplier(row pgx.Row) (Supplier, error) {
	var s Supplier
	err := row.Scan(&s.ID, &s.OwnerID, &s.Code, &s.Name, &s.Address, &s.City, &s.State, &s.GSTIN, &s.Phone, &s.CreatedAt)
	return s, err
}

func (r *repo) CreateSupplier(ctx context.Context, s Supplier) (Supplier, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO suppliers (owner_id, code, name, address, city, state, gstin, phone)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING `+supplierColumns,
		s.OwnerID, s.Code, s.Name, s.Address, s.City, s.State, s.GSTIN, s.Phone)
	created, err := scanSupplier(row)
	if err != nil {
		return Supplier{}, mapWriteErr("supplier", err)
	}
	return created, nil
}

func (r *repo) GetSupplier(ctx context.Context, owner, id uuid.UUID) (Supplier, error) {
	s, err := scanSupplier(r.pool.QueryRow(ctx, `SELECT `+supplierColumns+` FROM suppliers WHERE owner_id = $1 AND id = $2`, owner, id))
	if err != nil {
		return Supplier{}, mapReadErr("supplier", err)
	}
	return s, nil
}

func (r *repo) ListSuppliers(ctx context.Context, owner uuid.UUID) ([]Supplier, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+supplierColumns+` FROM suppliers WHERE owner_id = $1 ORDER BY code`, owner)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Supplier, error) { return scanSupplier(row) })
}

const companyColumns = `id, owner_id, code, name, address, city, pin, state, mobile, gstin, pan, bank,
	jurisdiction, fy_start, fy_end, created_at`

func scanCompany(row pgx.Row) (Company, error) {
	var c Company
	err := row.Scan(&c.ID, &c.OwnerID, &c.Code, &c.Name, &c.Address, &c.City, &c.PIN, &c.State, &c.Mobile,
		&c.GSTIN, &c.PAN, &c.Bank, &c.Jurisdiction, &c.FinancialYear.Start, &c.FinancialYear.End, &c.CreatedAt)
	return c, err
}

func (r *repo) CreateCompany(ctx context.Context, c Company) (Company, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO companies
			(owner_id, code, name, address, city, pin, state, mobile, gstin, pan, bank, jurisdiction, fy_start, fy_end)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14) RETURNING `+companyColumns,
		c.OwnerID, c.Code, c.Name, c.Address, c.City, c.PIN, c.State, c.Mobile, c.GSTIN, c.PAN, c.Bank,
		c.Jurisdiction, c.FinancialYear.Start, c.FinancialYear.End)
	created, err := scanCompany(row)
	if err != nil {
		return Company{}, mapWriteErr("company", err)
	}
	return created, nil
}

func (r *repo) GetCompany(ctx context.Context, owner, id uuid.UUID) (Company, error) {
	c, err := scanCompany(r.pool.QueryRow(ctx, `SELECT `+companyColumns+` FROM companies WHERE owner_id = $1 AND id = $2`, owner, id))
	if err != nil {
		return Company{}, mapReadErr("company", err)
	}
	return c, nil
}

func (r *repo) ListCompanies(ctx context.Context, owner uuid.UUID) ([]Company, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+companyColumns+` FROM companies WHERE owner_id = $1 ORDER BY code`, owner)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Company, error) { return scanCompany(row) })
}
