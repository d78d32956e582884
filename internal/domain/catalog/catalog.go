// Package catalog holds the product catalog and its reference options.
package catalog

import (
	"context"
	"time"

	"github.com/go-faster/errors"

	"github.com/xenking/threadcraft/internal/domain/design"
	"github.com/xenking/threadcraft/internal/domain/pricing"
)

var (
	// ErrNotFound is returned when a requested product does not exist.
	ErrNotFound = errors.New("product not found")
	// ErrExists is returned when creating a product whose id is taken.
	ErrExists = errors.New("product already exists")
)

// ColorOption and SizeOption are the priced reference options.
type (
	ColorOption = pricing.ColorOption
	SizeOption  = pricing.SizeOption
)

// FontOption is a font offered for text layers.
type FontOption struct {
	ID     string
	Label  string
	Family string
}

// Product is a garment available for purchase and customization.
type Product struct {
	ID          string
	Name        string
	Description string
	// Price is the base price in minor units.
	Price    int64
	Angles   design.Angles
	Category string
	// Colors holds hex codes, Sizes holds size labels.
	Colors    []string
	Sizes     []string
	InStock   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Touch refreshes UpdatedAt. It never moves backwards: a clock that does
// not advance still yields a strictly later timestamp.
func (p *Product) Touch(now time.Time) {
	if !now.After(p.UpdatedAt) {
		now = p.UpdatedAt.Add(time.Microsecond)
	}
	p.UpdatedAt = now
}

// Repository defines persistence operations for the product catalog.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	GetByIDs(ctx context.Context, ids []string) ([]Product, error)
	Create(ctx context.Context, p *Product) error
	Update(ctx context.Context, p *Product) error
}

// ReferenceData provides the immutable option lists.
type ReferenceData interface {
	Colors(ctx context.Context) ([]ColorOption, error)
	Sizes(ctx context.Context) ([]SizeOption, error)
	Fonts(ctx context.Context) ([]FontOption, error)
}

// Options bundles every reference list.
type Options struct {
	Colors []ColorOption
	Sizes  []SizeOption
	Fonts  []FontOption
}

// LoadOptions fetches all reference lists from refs.
func LoadOptions(ctx context.Context, refs ReferenceData) (*Options, error) {
	colors, err := refs.Colors(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list colors")
	}
	sizes, err := refs.Sizes(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list sizes")
	}
	fonts, err := refs.Fonts(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list fonts")
	}
	return &Options{Colors: colors, Sizes: sizes, Fonts: fonts}, nil
}

// Resolver returns a pricing resolver over the loaded options.
func (o *Options) Resolver() *pricing.Resolver {
	return pricing.NewResolver(o.Colors, o.Sizes)
}
