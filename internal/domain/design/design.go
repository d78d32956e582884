// Package design models per-view garment customization and its canonical
// transport form.
//
// A garment has four faces. Each face carries at most one text layer and at
// most one image layer; the limit comes from the optional pointer fields of
// AngleDesign, not from a runtime count.
package design

import (
	"fmt"

	"github.com/go-faster/errors"
)

// View is one of the four fixed garment faces.
type View string

const (
	Front View = "front"
	Back  View = "back"
	Left  View = "left"
	Right View = "right"
)

// Views lists every face in wire-code order.
var Views = [...]View{Front, Back, Left, Right}

// ErrUnknownView is returned for a view name or code outside the four faces.
var ErrUnknownView = errors.New("unknown view")

// UnknownViewError carries the offending view name or wire code.
type UnknownViewError struct {
	View string
	Code int
}

func (e *UnknownViewError) Error() string {
	if e.View != "" {
		return fmt.Sprintf("unknown view %q", e.View)
	}
	return fmt.Sprintf("unknown view code %d", e.Code)
}

// Is reports whether target is ErrUnknownView.
func (e *UnknownViewError) Is(target error) bool { return target == ErrUnknownView }

// viewWire holds the fixed wire mapping. Codes are part of the external
// contract and must never be renumbered.
var viewWire = map[View]struct {
	code int
	name string
}{
	Front: {code: 1, name: "Frente"},
	Back:  {code: 2, name: "Espalda"},
	Left:  {code: 3, name: "Izquierda"},
	Right: {code: 4, name: "Derecha"},
}

// ParseView validates a view name.
func ParseView(s string) (View, error) {
	v := View(s)
	if _, ok := viewWire[v]; !ok {
		return "", &UnknownViewError{View: s}
	}
	return v, nil
}

// ViewFromCode resolves a wire code (1..4) to its view.
func ViewFromCode(code int) (View, error) {
	for v, w := range viewWire {
		if w.code == code {
			return v, nil
		}
	}
	return "", &UnknownViewError{Code: code}
}

// Code returns the wire code of v.
func (v View) Code() (int, error) {
	w, ok := viewWire[v]
	if !ok {
		return 0, &UnknownViewError{View: string(v)}
	}
	return w.code, nil
}

// Point is a position in canvas units, origin top-left.
type Point struct {
	X float64
	Y float64
}

// Dimensions is a width/height pair in canvas units.
type Dimensions struct {
	Width  float64
	Height float64
}

// Image is the image layer of a face.
type Image struct {
	// Src is a URI or a data URI.
	Src      string
	Position Point
	Size     Dimensions
}

// Text is the text layer of a face.
type Text struct {
	Content  string
	Font     string
	Color    string // hex, e.g. "#ff0000"
	Size     float64
	Position Point
}

// AngleDesign is the customization of a single face.
type AngleDesign struct {
	// Thumbnail is an optional data URI preview.
	Thumbnail string
	Image     *Image
	Text      *Text
}

// IsCustomized reports whether the face has an image or a text layer.
func (a AngleDesign) IsCustomized() bool {
	return a.Image != nil || a.Text != nil
}

// IsZero reports whether the face carries nothing at all.
func (a AngleDesign) IsZero() bool {
	return !a.IsCustomized() && a.Thumbnail == ""
}

// Clone returns a deep copy.
func (a AngleDesign) Clone() AngleDesign {
	out := AngleDesign{Thumbnail: a.Thumbnail}
	if a.Image != nil {
		img := *a.Image
		out.Image = &img
	}
	if a.Text != nil {
		txt := *a.Text
		out.Text = &txt
	}
	return out
}

// Angles holds one AngleDesign per face.
type Angles struct {
	Front AngleDesign
	Back  AngleDesign
	Left  AngleDesign
	Right AngleDesign
}

// At returns a pointer to the face for v, or nil for an unknown view.
func (a *Angles) At(v View) *AngleDesign {
	switch v {
	case Front:
		return &a.Front
	case Back:
		return &a.Back
	case Left:
		return &a.Left
	case Right:
		return &a.Right
	default:
		return nil
	}
}

// IsComplete reports whether at least one face is customized. Custom line
// items require a complete design.
func (a Angles) IsComplete() bool {
	for _, v := range Views {
		if a.At(v).IsCustomized() {
			return true
		}
	}
	return false
}

// Clone returns a deep copy.
func (a Angles) Clone() Angles {
	return Angles{
		Front: a.Front.Clone(),
		Back:  a.Back.Clone(),
		Left:  a.Left.Clone(),
		Right: a.Right.Clone(),
	}
}
