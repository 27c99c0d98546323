package invoicing

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lorrybill/lorrybill/internal/masterdata"
	"github.com/lorrybill/lorrybill/internal/transactions"
)

var errInjected = errors.New("injected failure")

// memoryStore backs every port of the engine. WithTx snapshots both
// invoices and transactions and restores them when fn fails.
type memoryStore struct {
	mu        sync.Mutex
	invoices  map[uuid.UUID]Invoice
	txns      map[uuid.UUID]transactions.Transaction
	items     map[uuid.UUID]masterdata.Item
	buyers    map[uuid.UUID]masterdata.Business
	sites     map[uuid.UUID]masterdata.Site
	failClaim bool
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		invoices: map[uuid.UUID]Invoice{},
		txns:     map[uuid.UUID]transactions.Transaction{},
		items:    map[uuid.UUID]masterdata.Item{},
		buyers:   map[uuid.UUID]masterdata.Business{},
		sites:    map[uuid.UUID]masterdata.Site{},
	}
}

func (m *memoryStore) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	invoices := make(map[uuid.UUID]Invoice, len(m.invoices))
	for k, v := range m.invoices {
		invoices[k] = v
	}
	txns := make(map[uuid.UUID]transactions.Transaction, len(m.txns))
	for k, v := range m.txns {
		txns[k] = v
	}
	if err := fn(ctx, memoryTx{m}); err != nil {
		m.invoices = invoices
		m.txns = txns
		return err
	}
	return nil
}

type memoryTx struct{ m *memoryStore }

func (tx memoryTx) NextInvoiceNumber(ctx context.Context, owner uuid.UUID) (int64, error) {
	var max int64
	for _, inv := range tx.m.invoices {
		if inv.OwnerID == owner && inv.Number > max {
			max = inv.Number
		}
	}
	return max + 1, nil
}

func (tx memoryTx) LockTransactions(ctx context.Context, owner uuid.UUID, ids []uuid.UUID) ([]transactions.Transaction, error) {
	out := make([]transactions.Transaction, 0, len(ids))
	for _, id := range ids {
		if t, ok := tx.m.txns[id]; ok && t.OwnerID == owner && !t.Invoiced {
			out = append(out, t)
		}
	}
	return out, nil
}

func (tx memoryTx) InsertInvoice(ctx context.Context, inv Invoice) (Invoice, error) {
	for _, existing := range tx.m.invoices {
		if existing.OwnerID == inv.OwnerID && existing.Number == inv.Number {
			return Invoice{}, errors.New("duplicate invoice number")
		}
	}
	inv.CreatedAt = time.Now().UTC()
	tx.m.invoices[inv.ID] = inv
	return inv, nil
}

func (tx memoryTx) ClaimTransactions(ctx context.Context, owner, invoiceID uuid.UUID, ids []uuid.UUID) (int64, error) {
	if tx.m.failClaim {
		return 0, errInjected
	}
	var n int64
	for _, id := range ids {
		t, ok := tx.m.txns[id]
		if !ok || t.OwnerID != owner || t.Invoiced {
			continue
		}
		ref := invoiceID
		t.Invoiced, t.InvoiceID = true, &ref
		tx.m.txns[id] = t
		n++
	}
	return n, nil
}

func (tx memoryTx) LockInvoice(ctx context.Context, owner, id uuid.UUID) (Invoice, error) {
	inv, ok := tx.m.invoices[id]
	if !ok || inv.OwnerID != owner {
		return Invoice{}, ErrNotFound
	}
	return inv, nil
}

func (tx memoryTx) MarkCancelled(ctx context.Context, owner, id uuid.UUID, reason string, at time.Time) error {
	inv := tx.m.invoices[id]
	if inv.Status != StatusActive {
		return ErrInvalidStateTransition
	}
	inv.Status, inv.CancelReason, inv.CancelledAt = StatusCancelled, reason, &at
	tx.m.invoices[id] = inv
	return nil
}

func (tx memoryTx) ReleaseTransactions(ctx context.Context, owner, invoiceID uuid.UUID) (int64, error) {
	var n int64
	for id, t := range tx.m.txns {
		if t.OwnerID == owner && t.InvoiceID != nil && *t.InvoiceID == invoiceID {
			t.Invoiced, t.InvoiceID = false, nil
			tx.m.txns[id] = t
			n++
		}
	}
	return n, nil
}

func (m *memoryStore) GetInvoice(ctx context.Context, owner, id uuid.UUID) (Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.invoices[id]
	if !ok || inv.OwnerID != owner {
		return Invoice{}, ErrNotFound
	}
	return inv, nil
}

func (m *memoryStore) GetDetail(ctx context.Context, owner, id uuid.UUID) (Detail, error) {
	inv, err := m.GetInvoice(ctx, owner, id)
	if err != nil {
		return Detail{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	group := Group{}
	for _, tid := range inv.TransactionIDs {
		group.Transactions = append(group.Transactions, m.txns[tid])
	}
	refs := references{item: m.items[inv.ItemID], buyer: m.buyers[inv.BuyerID], site: m.sites[inv.SiteID]}
	return assemble(inv, refs, group), nil
}

func (m *memoryStore) ListInvoices(ctx context.Context, owner uuid.UUID, filter ListFilter) ([]Summary, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Summary, 0)
	for _, inv := range m.invoices {
		if inv.OwnerID != owner || (filter.Status != "" && inv.Status != filter.Status) {
			continue
		}
		out = append(out, Summary{
			ID:               inv.ID,
			Number:           inv.Number,
			Date:             inv.Date,
			Range:            inv.Range,
			Status:           inv.Status,
			BuyerName:        m.buyers[inv.BuyerID].Name,
			SiteName:         m.sites[inv.SiteID].Name,
			ItemName:         m.items[inv.ItemID].Name,
			Amounts:          inv.Amounts,
			TransactionCount: len(inv.TransactionIDs),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number > out[j].Number })
	total := len(out)
	start := (filter.Page - 1) * filter.PerPage
	if start > total {
		start = total
	}
	end := start + filter.PerPage
	if end > total {
		end = total
	}
	return out[start:end], total, nil
}

func (m *memoryStore) ListForInvoicing(ctx context.Context, owner uuid.UUID, ids []uuid.UUID) ([]transactions.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]transactions.Transaction, 0, len(ids))
	for _, id := range ids {
		if t, ok := m.txns[id]; ok && t.OwnerID == owner && !t.Invoiced {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memoryStore) GetItem(ctx context.Context, owner, id uuid.UUID) (masterdata.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[id]
	if !ok || item.OwnerID != owner {
		return masterdata.Item{}, masterdata.ErrNotFound
	}
	return item, nil
}

func (m *memoryStore) GetBusiness(ctx context.Context, owner, id uuid.UUID) (masterdata.Business, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.buyers[id]
	if !ok || b.OwnerID != owner {
		return masterdata.Business{}, masterdata.ErrNotFound
	}
	return b, nil
}

func (m *memoryStore) GetSite(ctx context.Context, owner, id uuid.UUID) (masterdata.Site, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sites[id]
	if !ok || s.OwnerID != owner {
		return masterdata.Site{}, masterdata.ErrNotFound
	}
	return s, nil
}

func (m *memoryStore) Summarize(ctx context.Context, owner uuid.UUID) (DashboardSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sum := DashboardSummary{Monthly: []MonthTotal{}, Buyers: []BuyerTotal{}}
	for _, inv := range m.invoices {
		if inv.OwnerID != owner || inv.Status != StatusActive {
			continue
		}
		sum.TotalInvoices++
		sum.TotalNet = sum.TotalNet.Add(inv.Amounts.Net())
		sum.TotalTax = sum.TotalTax.Add(inv.Amounts.Tax())
		sum.TotalSales = sum.TotalSales.Add(inv.Amounts.Total())
		for _, id := range inv.TransactionIDs {
			sum.GrossMargin = sum.GrossMargin.Add(m.txns[id].Margin())
		}
	}
	return sum, nil
}

func (m *memoryStore) countInvoices(owner uuid.UUID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, inv := range m.invoices {
		if inv.OwnerID == owner {
			n++
		}
	}
	return n
}

func (m *memoryStore) txn(id uuid.UUID) transactions.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.txns[id]
}

// world is an owner with one buyer, site and item plus helpers to add deliveries.
type world struct {
	store  *memoryStore
	owner  uuid.UUID
	buyer  uuid.UUID
	site   uuid.UUID
	item   uuid.UUID
	lorry  uuid.UUID
	nextNo int64
}

func newWorld(store *memoryStore, igst, cgst, sgst int64) *world {
	w := &world{store: store, owner: uuid.New(), buyer: uuid.New(), site: uuid.New(), item: uuid.New(), lorry: uuid.New()}
	store.items[w.item] = masterdata.Item{
		ID: w.item, OwnerID: w.owner, Code: "SAND", Name: "River Sand",
		IGSTRate: decimal.NewFromInt(igst), CGSTRate: decimal.NewFromInt(cgst), SGSTRate: decimal.NewFromInt(sgst),
	}
	store.buyers[w.buyer] = masterdata.Business{ID: w.buyer, OwnerID: w.owner, Code: "ACME", Name: "Acme Builders", GSTIN: "29ABCDE1234F1Z5"}
	store.sites[w.site] = masterdata.Site{ID: w.site, OwnerID: w.owner, Code: "S1", Name: "Whitefield", City: "Bengaluru"}
	return w
}

func (w *world) addTxn(date time.Time, qty, rate int64) uuid.UUID {
	w.nextNo++
	t := transactions.Transaction{
		ID:           uuid.New(),
		OwnerID:      w.owner,
		VoucherNo:    w.nextNo,
		ChallanNo:    "CH-" + strconv.FormatInt(w.nextNo, 10),
		Date:         date,
		LorryID:      w.lorry,
		LorryNumber:  "KA01AB1234",
		BuyerID:      w.buyer,
		SiteID:       w.site,
		ItemID:       w.item,
		PurchaseRate: decimal.NewFromInt(rate - 20),
		SaleRate:     decimal.NewFromInt(rate),
		Quantity:     decimal.NewFromInt(qty),
	}
	w.store.txns[t.ID] = t
	return t.ID
}
