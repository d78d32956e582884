package handler

import (
	"context"
	"slices"
	"sync"

	"github.com/xenking/threadcraft/internal/domain/auth"
	"github.com/xenking/threadcraft/internal/domain/catalog"
	"github.com/xenking/threadcraft/internal/domain/order"
)

type mockProductRepo struct {
	mu   sync.Mutex
	byID map[string]catalog.Product
}

func (m *mockProductRepo) List(_ context.Context) ([]catalog.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]catalog.Product, 0, len(m.byID))
	for _, p := range m.byID {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b catalog.Product) int {
		if a.ID < b.ID {
			return -1
		}
		return 1
	})
	return out, nil
}

func (m *mockProductRepo) GetByID(_ context.Context, id string) (*catalog.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return &p, nil
}

func (m *mockProductRepo) GetByIDs(_ context.Context, ids []string) ([]catalog.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []catalog.Product
	for _, id := range ids {
		if p, ok := m.byID[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockProductRepo) Create(_ context.Context, p *catalog.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[p.ID]; ok {
		return catalog.ErrExists
	}
	m.byID[p.ID] = *p
	return nil
}

func (m *mockProductRepo) Update(_ context.Context, p *catalog.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[p.ID]; !ok {
		return catalog.ErrNotFound
	}
	m.byID[p.ID] = *p
	return nil
}

type mockRefs struct{}

func (mockRefs) Colors(_ context.Context) ([]catalog.ColorOption, error) {
	return []catalog.ColorOption{
		{ID: "white", Label: "White", Hex: "#FFFFFF"},
		{ID: "black", Label: "Black", Hex: "#000000", PriceModifier: 500},
	}, nil
}

func (mockRefs) Sizes(_ context.Context) ([]catalog.SizeOption, error) {
	return []catalog.SizeOption{
		{ID: "m", Label: "M"},
		{ID: "xl", Label: "XL", PriceModifier: 1000},
	}, nil
}

func (mockRefs) Fonts(_ context.Context) ([]catalog.FontOption, error) {
	return []catalog.FontOption{{ID: "arial", Label: "Arial", Family: "Arial, sans-serif"}}, nil
}

// mockOrderRepo keeps orders in memory. Orders are immutable values, so
// storing the pointer is safe.
type mockOrderRepo struct {
	mu    sync.Mutex
	byID  map[string]*order.Order
	byKey map[string]string
	ids   []string
}

func newOrderRepo() *mockOrderRepo {
	return &mockOrderRepo{byID: map[string]*order.Order{}, byKey: map[string]string{}}
}

func (m *mockOrderRepo) Create(_ context.Context, o *order.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o.IdempotencyKey != "" {
		if _, ok := m.byKey[o.IdempotencyKey]; ok {
			return order.ErrDuplicateIdempotencyKey
		}
		m.byKey[o.IdempotencyKey] = o.ID
	}
	m.byID[o.ID] = o
	m.ids = append(m.ids, o.ID)
	return nil
}

func (m *mockOrderRepo) Get(_ context.Context, id string) (*order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.byID[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	return o, nil
}

func (m *mockOrderRepo) Save(_ context.Context, o *order.Order, expectedVersion int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.byID[o.ID]
	if !ok {
		return order.ErrNotFound
	}
	if cur.Version() != expectedVersion {
		return order.ErrVersionConflict
	}
	m.byID[o.ID] = o
	return nil
}

func (m *mockOrderRepo) List(_ context.Context, f order.ListFilter) ([]*order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*order.Order
	for _, id := range slices.Backward(m.ids) {
		o := m.byID[id]
		if f.Status != "" && o.Status() != f.Status {
			continue
		}
		out = append(out, o)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out, nil
}

func (m *mockOrderRepo) FindByIdempotencyKey(_ context.Context, key string) (*order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byKey[key]
	if !ok {
		return nil, order.ErrNotFound
	}
	return m.byID[id], nil
}

type mockAPIKeys struct {
	byHash map[string]auth.APIKeyInfo
}

func (m *mockAPIKeys) FindByHash(_ context.Context, hash string) (*auth.APIKeyInfo, error) {
	k, ok := m.byHash[hash]
	if !ok {
		return nil, auth.ErrKeyNotFound
	}
	return &k, nil
}
