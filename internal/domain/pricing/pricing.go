// Package pricing computes unit prices from a product base price and the
// selected color and size options.
package pricing

import (
	"fmt"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrUnknownOption is returned when a color or size id is not in the reference data.
var ErrUnknownOption = errors.New("unknown option")

// OptionKind names the kind of a reference option.
type OptionKind string

const (
	KindColor OptionKind = "color"
	KindSize  OptionKind = "size"
)

// UnknownOptionError carries the kind and id of an unresolved option.
type UnknownOptionError struct {
	Kind OptionKind
	ID   string
}

func (e *UnknownOptionError) Error() string {
	return fmt.Sprintf("unknown %s option %q", e.Kind, e.ID)
}

// Is reports whether target is ErrUnknownOption.
func (e *UnknownOptionError) Is(target error) bool { return target == ErrUnknownOption }

// ColorOption is a selectable garment color.
type ColorOption struct {
	ID            string
	Label         string
	Hex           string
	PriceModifier int64
}

// SizeOption is a selectable garment size.
type SizeOption struct {
	ID            string
	Label         string
	PriceModifier int64
}

// Compute returns base plus both option modifiers, in minor units.
func Compute(base int64, color ColorOption, size SizeOption) int64 {
	return base + color.PriceModifier + size.PriceModifier
}

// Quote is a priced option selection.
type Quote struct {
	Color     ColorOption
	Size      SizeOption
	BasePrice int64
	UnitPrice int64
}

// Resolver prices option selections against an immutable option index.
// It is safe for concurrent use.
type Resolver struct {
	colors map[string]ColorOption
	sizes  map[string]SizeOption
}

// NewResolver indexes the given reference options by id.
func NewResolver(colors []ColorOption, sizes []SizeOption) *Resolver {
	r := &Resolver{
		colors: make(map[string]ColorOption, len(colors)),
		sizes:  make(map[string]SizeOption, len(sizes)),
	}
	for _, c := range colors {
		r.colors[c.ID] = c
	}
	for _, s := range sizes {
		r.sizes[s.ID] = s
	}
	return r
}

// Quote resolves colorID and sizeID and computes the unit price.
func (r *Resolver) Quote(base int64, colorID, sizeID string) (Quote, error) {
	color, ok := r.colors[colorID]
	if !ok {
		return Quote{}, &UnknownOptionError{Kind: KindColor, ID: colorID}
	}
	size, ok := r.sizes[sizeID]
	if !ok {
		return Quote{}, &UnknownOptionError{Kind: KindSize, ID: sizeID}
	}
	return Quote{
		Color:     color,
		Size:      size,
		BasePrice: base,
		UnitPrice: Compute(base, color, size),
	}, nil
}

// Display converts an amount in minor units to the display currency using
// a fixed rate, rounded to two places. The result is for presentation only.
func Display(amount int64, rate decimal.Decimal) decimal.Decimal {
	return decimal.New(amount, -2).Mul(rate).Round(2)
}
