package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/errors"

	"github.com/xenking/threadcraft/internal/domain/auth"
	"github.com/xenking/threadcraft/internal/domain/design"
)

// InvalidProductError reports a product field that failed validation.
type InvalidProductError struct {
	Field  string
	Reason string
}

func (e *InvalidProductError) Error() string {
	return fmt.Sprintf("invalid product %s: %s", e.Field, e.Reason)
}

// ProductInput is the editable part of a Product.
type ProductInput struct {
	ID          string
	Name        string
	Description string
	Price       int64
	Category    string
	Colors      []string
	Sizes       []string
	InStock     bool
}

func (in ProductInput) validate() error {
	switch {
	case strings.TrimSpace(in.Name) == "":
		return &InvalidProductError{Field: "name", Reason: "required"}
	case in.Price < 0:
		return &InvalidProductError{Field: "price", Reason: "must not be negative"}
	case strings.TrimSpace(in.Category) == "":
		return &InvalidProductError{Field: "category", Reason: "required"}
	}
	return nil
}

// Service exposes catalog reads and admin mutations.
type Service struct {
	products Repository
	refs     ReferenceData
	now      func() time.Time
}

// NewService creates a catalog Service.
func NewService(products Repository, refs ReferenceData) *Service {
	return &Service{
		products: products,
		refs:     refs,
		now:      time.Now,
	}
}

// List returns the whole catalog.
func (s *Service) List(ctx context.Context) ([]Product, error) {
	return s.products.List(ctx)
}

// Get returns one product or ErrNotFound.
func (s *Service) Get(ctx context.Context, id string) (*Product, error) {
	return s.products.GetByID(ctx, id)
}

// Options returns the reference option lists.
func (s *Service) Options(ctx context.Context) (*Options, error) {
	return LoadOptions(ctx, s.refs)
}

// Create adds a product on behalf of actor. The angles carry the product's
// default artwork, if any.
func (s *Service) Create(ctx context.Context, actor auth.Actor, in ProductInput, angles *design.Angles) (*Product, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.ID) == "" {
		return nil, &InvalidProductError{Field: "id", Reason: "required"}
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	p := &Product{CreatedAt: now, UpdatedAt: now}
	apply(p, in, angles)

	if err := s.products.Create(ctx, p); err != nil {
		return nil, errors.Wrap(err, "create product")
	}
	return p, nil
}

// Update replaces the editable fields of product id. Angles are kept when
// angles is nil.
func (s *Service) Update(ctx context.Context, actor auth.Actor, id string, in ProductInput, angles *design.Angles) (*Product, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	p, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	in.ID = p.ID
	apply(p, in, angles)
	p.Touch(s.now().UTC())

	if err := s.products.Update(ctx, p); err != nil {
		return nil, errors.Wrapf(err, "update product %s", id)
	}
	return p, nil
}

func apply(p *Product, in ProductInput, angles *design.Angles) {
	p.ID = in.ID
	p.Name = strings.TrimSpace(in.Name)
	p.Description = in.Description
	p.Price = in.Price
	p.Category = in.Category
	p.Colors = append([]string(nil), in.Colors...)
	p.Sizes = append([]string(nil), in.Sizes...)
	p.InStock = in.InStock
	if angles != nil {
		p.Angles = angles.Clone()
	}
}
