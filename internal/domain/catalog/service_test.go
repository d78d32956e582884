package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/threadcraft/internal/domain/auth"
	"github.com/xenking/threadcraft/internal/domain/design"
)

// --- Mock implementations ---

type mockProductRepo struct {
	byID      map[string]*Product
	createErr error
	updated   *Product
}

func (m *mockProductRepo) List(_ context.Context) ([]Product, error) {
	out := make([]Product, 0, len(m.byID))
	for _, p := range m.byID {
		out = append(out, *p)
	}
	return out, nil
}

func (m *mockProductRepo) GetByID(_ context.Context, id string) (*Product, error) {
	p, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *mockProductRepo) GetByIDs(_ context.Context, _ []string) ([]Product, error) {
	return nil, nil
}

func (m *mockProductRepo) Create(_ context.Context, p *Product) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.byID[p.ID] = p
	return nil
}

func (m *mockProductRepo) Update(_ context.Context, p *Product) error {
	m.updated = p
	m.byID[p.ID] = p
	return nil
}

type mockRefs struct {
	colors []ColorOption
	sizes  []SizeOption
	fonts  []FontOption
	err    error
}

func (m *mockRefs) Colors(_ context.Context) ([]ColorOption, error) { return m.colors, m.err }
func (m *mockRefs) Sizes(_ context.Context) ([]SizeOption, error)   { return m.sizes, nil }
func (m *mockRefs) Fonts(_ context.Context) ([]FontOption, error)   { return m.fonts, nil }

// --- Helpers ---

var admin = auth.Actor{ID: "admin-1", Name: "Ana"}

func newTestService(repo *mockProductRepo, now time.Time) *Service {
	svc := NewService(repo, &mockRefs{})
	svc.now = func() time.Time { return now }
	return svc
}

func validInput() ProductInput {
	return ProductInput{
		ID:       "tee-classic",
		Name:     "Classic Tee",
		Price:    10000,
		Category: "t-shirts",
		Colors:   []string{"#000000"},
		Sizes:    []string{"M", "XL"},
		InStock:  true,
	}
}

// --- Tests ---

func TestCreate(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	repo := &mockProductRepo{byID: map[string]*Product{}}
	svc := newTestService(repo, now)

	angles := &design.Angles{Front: design.AngleDesign{Text: &design.Text{Content: "logo"}}}
	p, err := svc.Create(context.Background(), admin, validInput(), angles)
	require.NoError(t, err)

	assert.Equal(t, "tee-classic", p.ID)
	assert.Equal(t, now, p.CreatedAt)
	assert.Equal(t, now, p.UpdatedAt)
	assert.True(t, p.Angles.Front.IsCustomized())

	// The stored angles are a copy of the input.
	angles.Front.Text.Content = "changed"
	assert.Equal(t, "logo", repo.byID["tee-classic"].Angles.Front.Text.Content)
}

func TestCreate_Validation(t *testing.T) {
	tests := []struct {
		name      string
		actor     auth.Actor
		mutate    func(*ProductInput)
		wantField string
		wantErr   error
	}{
		{name: "missing actor", actor: auth.Actor{}, mutate: func(*ProductInput) {}, wantErr: auth.ErrNoActor},
		{name: "missing id", actor: admin, mutate: func(in *ProductInput) { in.ID = "" }, wantField: "id"},
		{name: "blank name", actor: admin, mutate: func(in *ProductInput) { in.Name = "  " }, wantField: "name"},
		{name: "negative price", actor: admin, mutate: func(in *ProductInput) { in.Price = -1 }, wantField: "price"},
		{name: "missing category", actor: admin, mutate: func(in *ProductInput) { in.Category = "" }, wantField: "category"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(&mockProductRepo{byID: map[string]*Product{}}, time.Now())
			in := validInput()
			tt.mutate(&in)

			_, err := svc.Create(context.Background(), tt.actor, in, nil)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			var ipErr *InvalidProductError
			require.ErrorAs(t, err, &ipErr)
			assert.Equal(t, tt.wantField, ipErr.Field)
		})
	}
}

func TestCreate_RepoError(t *testing.T) {
	repo := &mockProductRepo{byID: map[string]*Product{}, createErr: errors.New("duplicate")}
	svc := newTestService(repo, time.Now())

	_, err := svc.Create(context.Background(), admin, validInput(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create product")
}

func TestUpdate_RefreshesUpdatedAt(t *testing.T) {
	created := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	front := design.Angles{Front: design.AngleDesign{Image: &design.Image{Src: "u"}}}
	repo := &mockProductRepo{byID: map[string]*Product{
		"tee-classic": {ID: "tee-classic", Name: "Old", Angles: front, CreatedAt: created, UpdatedAt: created},
	}}

	later := created.Add(time.Hour)
	svc := newTestService(repo, later)

	in := validInput()
	in.ID = "ignored"
	p, err := svc.Update(context.Background(), admin, "tee-classic", in, nil)
	require.NoError(t, err)

	assert.Equal(t, "tee-classic", p.ID)
	assert.Equal(t, "Classic Tee", p.Name)
	assert.Equal(t, created, p.CreatedAt)
	assert.Equal(t, later, p.UpdatedAt)
	assert.True(t, p.Angles.Front.IsCustomized(), "nil angles keep the current artwork")
	require.NotNil(t, repo.updated)
}

func TestUpdate_ClockDoesNotAdvance(t *testing.T) {
	ts := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	repo := &mockProductRepo{byID: map[string]*Product{
		"tee-classic": {ID: "tee-classic", CreatedAt: ts, UpdatedAt: ts},
	}}
	svc := newTestService(repo, ts.Add(-time.Minute))

	p, err := svc.Update(context.Background(), admin, "tee-classic", validInput(), nil)
	require.NoError(t, err)
	assert.True(t, p.UpdatedAt.After(ts))
}

func TestUpdate_NotFound(t *testing.T) {
	svc := newTestService(&mockProductRepo{byID: map[string]*Product{}}, time.Now())

	_, err := svc.Update(context.Background(), admin, "missing", validInput(), nil)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestOptions(t *testing.T) {
	refs := &mockRefs{
		colors: []ColorOption{{ID: "black", PriceModifier: 500}},
		sizes:  []SizeOption{{ID: "xl", PriceModifier: 1000}},
		fonts:  []FontOption{{ID: "arial", Family: "Arial"}},
	}
	svc := NewService(&mockProductRepo{}, refs)

	opts, err := svc.Options(context.Background())
	require.NoError(t, err)
	assert.Len(t, opts.Fonts, 1)

	q, err := opts.Resolver().Quote(10000, "black", "xl")
	require.NoError(t, err)
	assert.Equal(t, int64(11500), q.UnitPrice)

	refs.err = errors.New("db down")
	_, err = svc.Options(context.Background())
	require.Error(t, err)
}
