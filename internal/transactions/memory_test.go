package transactions

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/lorrybill/lorrybill/internal/masterdata"
)

type memoryRepo struct {
	mu   sync.Mutex
	rows map[uuid.UUID]Transaction
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{rows: map[uuid.UUID]Transaction{}}
}

func (m *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	snapshot := make(map[uuid.UUID]Transaction, len(m.rows))
	for k, v := range m.rows {
		snapshot[k] = v
	}
	if err := fn(ctx, memoryTx{m}); err != nil {
		m.rows = snapshot
		return err
	}
	return nil
}

type memoryTx struct{ m *memoryRepo }

func (tx memoryTx) NextVoucherNumber(ctx context.Context, owner uuid.UUID) (int64, error) {
	var max int64
	for _, t := range tx.m.rows {
		if t.OwnerID == owner && t.VoucherNo > max {
			max = t.VoucherNo
		}
	}
	return max + 1, nil
}

func (tx memoryTx) Insert(ctx context.Context, t Transaction) (Transaction, error) {
	for _, existing := range tx.m.rows {
		if existing.OwnerID == t.OwnerID && existing.ChallanNo == t.ChallanNo {
			return Transaction{}, ErrDuplicateChallan
		}
	}
	t.ID = uuid.New()
	tx.m.rows[t.ID] = t
	return t, nil
}

func (m *memoryRepo) Get(ctx context.Context, owner, id uuid.UUID) (Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.rows[id]
	if !ok || t.OwnerID != owner {
		return Transaction{}, ErrNotFound
	}
	return t, nil
}

func (m *memoryRepo) List(ctx context.Context, owner uuid.UUID, filter ListFilter) ([]Transaction, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Transaction, 0)
	for _, t := range m.rows {
		if t.OwnerID != owner {
			continue
		}
		if filter.Invoiced != nil && t.Invoiced != *filter.Invoiced {
			continue
		}
		if filter.BuyerID != nil && t.BuyerID != *filter.BuyerID {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VoucherNo < out[j].VoucherNo })
	return out, len(out), nil
}

func (m *memoryRepo) ListForInvoicing(ctx context.Context, owner uuid.UUID, ids []uuid.UUID) ([]Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Transaction, 0)
	for _, id := range ids {
		if t, ok := m.rows[id]; ok && t.OwnerID == owner && !t.Invoiced {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memoryRepo) UpdateOpen(ctx context.Context, t Transaction) (Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.rows[t.ID]
	if !ok || existing.OwnerID != t.OwnerID {
		return Transaction{}, ErrNotFound
	}
	if existing.Invoiced {
		return Transaction{}, ErrInvoiced
	}
	t.VoucherNo = existing.VoucherNo
	m.rows[t.ID] = t
	return t, nil
}

func (m *memoryRepo) DeleteOpen(ctx context.Context, owner, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.rows[id]
	if !ok || existing.OwnerID != owner {
		return ErrNotFound
	}
	if existing.Invoiced {
		return ErrInvoiced
	}
	delete(m.rows, id)
	return nil
}

// stubRefs treats every id in known as an existing master record.
type stubRefs struct {
	known map[uuid.UUID]bool
}

func (s stubRefs) check(id uuid.UUID) error {
	if !s.known[id] {
		return masterdata.ErrNotFound
	}
	return nil
}

func (s stubRefs) GetItem(ctx context.Context, owner, id uuid.UUID) (masterdata.Item, error) {
	return masterdata.Item{ID: id}, s.check(id)
}

func (s stubRefs) GetBusiness(ctx context.Context, owner, id uuid.UUID) (masterdata.Business, error) {
	return masterdata.Business{ID: id}, s.check(id)
}

func (s stubRefs) GetSite(ctx context.Context, owner, id uuid.UUID) (masterdata.Site, error) {
	return masterdata.Site{ID: id}, s.check(id)
}

func (s stubRefs) GetLorry(ctx context.Context, owner, id uuid.UUID) (masterdata.Lorry, error) {
	return masterdata.Lorry{ID: id}, s.check(id)
}
