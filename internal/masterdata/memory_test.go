package masterdata

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memoryRepo struct {
	mu         sync.Mutex
	items      map[uuid.UUID]Item
	businesses map[uuid.UUID]Business
	sites      map[uuid.UUID]Site
	lorries    map[uuid.UUID]Lorry
	suppliers  map[uuid.UUID]Supplier
	companies  map[uuid.UUID]Company
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		items:      map[uuid.UUID]Item{},
		businesses: map[uuid.UUID]Business{},
		sites:      map[uuid.UUID]Site{},
		lorries:    map[uuid.UUID]Lorry{},
		suppliers:  map[uuid.UUID]Supplier{},
		companies:  map[uuid.UUID]Company{},
	}
}

func (m *memoryRepo) CreateItem(ctx context.Context, item Item) (Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.items {
		if existing.OwnerID == item.OwnerID && existing.Code == item.Code {
			return Item{}, ErrDuplicateCode
		}
	}
	item.ID = uuid.New()
	item.CreatedAt = time.Now()
	m.items[item.ID] = item
	return item, nil
}

func (m *memoryRepo) GetItem(ctx context.Context, owner, id uuid.UUID) (Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[id]
	if !ok || it.OwnerID != owner {
		return Item{}, ErrNotFound
	}
	return it, nil
}

func (m *memoryRepo) ListItems(ctx context.Context, owner uuid.UUID) ([]Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Item, 0)
	for _, it := range m.items {
		if it.OwnerID == owner {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (m *memoryRepo) CreateBusiness(ctx context.Context, b Business) (Business, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b.ID = uuid.New()
	m.businesses[b.ID] = b
	return b, nil
}

func (m *memoryRepo) GetBusiness(ctx context.Context, owner, id uuid.UUID) (Business, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.businesses[id]
	if !ok || b.OwnerID != owner {
		return Business{}, ErrNotFound
	}
	return b, nil
}

func (m *memoryRepo) ListBusinesses(ctx context.Context, owner uuid.UUID) ([]Business, error) {
	return nil, nil
}

func (m *memoryRepo) CreateSite(ctx context.Context, s Site) (Site, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.ID = uuid.New()
	m.sites[s.ID] = s
	return s, nil
}

func (m *memoryRepo) GetSite(ctx context.Context, owner, id uuid.UUID) (Site, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sites[id]
	if !ok || s.OwnerID != owner {
		return Site{}, ErrNotFound
	}
	return s, nil
}

func (m *memoryRepo) ListSites(ctx context.Context, owner uuid.UUID) ([]Site, error) {
	return nil, nil
}

func (m *memoryRepo) CreateLorry(ctx context.Context, l Lorry) (Lorry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l.ID = uuid.New()
	m.lorries[l.ID] = l
	return l, nil
}

func (m *memoryRepo) GetLorry(ctx context.Context, owner, id uuid.UUID) (Lorry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.lorries[id]
	if !ok || l.OwnerID != owner {
		return Lorry{}, ErrNotFound
	}
	return l, nil
}

func (m *memoryRepo) ListLorries(ctx context.Context, owner uuid.UUID) ([]Lorry, error) {
	return nil, nil
}

func (m *memoryRepo) CreateSupplier(ctx context.Context, s Supplier) (Supplier, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.suppliers {
		if existing.OwnerID == s.OwnerID && existing.Code == s.Code {
			return Supplier{}, ErrDuplicateCode
		}
	}
	s.ID = uuid.New()
	s.CreatedAt = time.Now()
	m.suppliers[s.ID] = s
	return s, nil
}

func (m *memoryRepo) GetSupplier(ctx context.Context, owner, id uuid.UUID) (Supplier, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.suppliers[id]
	if !ok || s.OwnerID != owner {
		return Supplier{}, ErrNotFound
	}
	return s, nil
}

func (m *memoryRepo) ListSuppliers(ctx context.Context, owner uuid.UUID) ([]Supplier, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Supplier, 0)
	for _, s := range m.suppliers {
		if s.OwnerID == owner {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (m *memoryRepo) CreateCompany(ctx context.Context, c Company) (Company, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.companies {
		if existing.OwnerID == c.OwnerID && existing.Code == c.Code {
			return Company{}, ErrDuplicateCode
		}
	}
	c.ID = uuid.New()
	c.CreatedAt = time.Now()
	m.companies[c.ID] = c
	return c, nil
}

func (m *memoryRepo) GetCompany(ctx context.Context, owner, id uuid.UUID) (Company, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.companies[id]
	if !ok || c.OwnerID != owner {
		return Company{}, ErrNotFound
	}
	return c, nil
}

func (m *memoryRepo) ListCompanies(ctx context.Context, owner uuid.UUID) ([]Company, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Company, 0)
	for _, c := range m.companies {
		if c.OwnerID == owner {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}
