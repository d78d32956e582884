package design

import (
	"github.com/go-faster/errors"
)

// ErrUnknownElement is returned when an element "tipo" is neither TEXTO nor IMAGEN.
var ErrUnknownElement = errors.New("unknown element kind")

// ErrDuplicateView is returned when a garment carries two DTOs for the same face.
var ErrDuplicateView = errors.New("duplicate view")

// ToDTO converts the customization of view into its canonical transport form.
//
// The DTO has a single element slot. When both layers are present the text wins
// the kind and the position, while the image keeps its size and source.
func ToDTO(a AngleDesign, view View) (AngleDTO, error) {
	code, err := view.Code()
	if err != nil {
		return AngleDTO{}, err
	}

	dto := AngleDTO{
		ViewCode:  code,
		ViewName:  viewWire[view].name,
		Thumbnail: a.Thumbnail,
		Element:   ElementDTO{Kind: ElementImage},
	}

	if img := a.Image; img != nil {
		w, h := img.Size.Width, img.Size.Height
		dto.Element.Layout = LayoutDTO{X: img.Position.X, Y: img.Position.Y, Width: &w, Height: &h}
		dto.Element.Props.ImageURL = img.Src
	}
	if txt := a.Text; txt != nil {
		dto.Element.Kind = ElementText
		dto.Element.Layout.X = txt.Position.X
		dto.Element.Layout.Y = txt.Position.Y
		dto.Element.Props.Text = txt.Content
		dto.Element.Props.Font = txt.Font
		dto.Element.Props.Color = txt.Color
		dto.Element.Props.FontSize = txt.Size
	}

	return dto, nil
}

// FromDTO is the structural inverse of ToDTO. Backend ids are dropped.
func FromDTO(dto AngleDTO) (View, AngleDesign, error) {
	view, err := ViewFromCode(dto.ViewCode)
	if err != nil {
		return "", AngleDesign{}, err
	}

	el := dto.Element
	pos := Point{X: el.Layout.X, Y: el.Layout.Y}
	out := AngleDesign{Thumbnail: dto.Thumbnail}

	switch el.Kind {
	case ElementText:
		out.Text = &Text{
			Content:  el.Props.Text,
			Font:     el.Props.Font,
			Color:    el.Props.Color,
			Size:     el.Props.FontSize,
			Position: pos,
		}
		// A text element can still carry the image of a two-layer face.
		if hasImage(el) {
			out.Image = &Image{Src: el.Props.ImageURL, Position: pos, Size: layoutSize(el.Layout)}
		}
	case ElementImage:
		if hasImage(el) {
			out.Image = &Image{Src: el.Props.ImageURL, Position: pos, Size: layoutSize(el.Layout)}
		}
	default:
		return "", AngleDesign{}, errors.Wrapf(ErrUnknownElement, "tipo %q", el.Kind)
	}

	return view, out, nil
}

// hasImage reports whether el carries an image layer. Width and height are
// only emitted for faces with an image.
func hasImage(el ElementDTO) bool {
	return el.Props.ImageURL != "" || el.Layout.Width != nil || el.Layout.Height != nil
}

func layoutSize(l LayoutDTO) Dimensions {
	var d Dimensions
	if l.Width != nil {
		d.Width = *l.Width
	}
	if l.Height != nil {
		d.Height = *l.Height
	}
	return d
}

// ToDTOs converts every face that carries something, in wire-code order.
func ToDTOs(angles Angles) []AngleDTO {
	out := make([]AngleDTO, 0, len(Views))
	for _, v := range Views {
		a := angles.At(v)
		if a.IsZero() {
			continue
		}
		dto, err := ToDTO(*a, v)
		if err != nil {
			// Views holds only known faces.
			panic(err)
		}
		out = append(out, dto)
	}
	return out
}

// FromDTOs assembles a garment from its face DTOs. Missing faces stay empty.
func FromDTOs(dtos []AngleDTO) (Angles, error) {
	var (
		out  Angles
		seen = make(map[View]struct{}, len(dtos))
	)
	for i, dto := range dtos {
		view, a, err := FromDTO(dto)
		if err != nil {
			return Angles{}, errors.Wrapf(err, "angle %d", i)
		}
		if _, dup := seen[view]; dup {
			return Angles{}, errors.Wrapf(ErrDuplicateView, "view %s", view)
		}
		seen[view] = struct{}{}
		*out.At(view) = a
	}
	return out, nil
}

// Pricing is the side-data submitted with a design.
type Pricing struct {
	ColorID    string
	SizeID     string
	BasePrice  int64
	FinalPrice int64
}

// Submission is a customer design for one product in the chosen options.
type Submission struct {
	DesignID  string
	ProductID string
	Angles    Angles
	Pricing   Pricing
}

// ToSubmission builds the DisenoDTO bundle for s.
func ToSubmission(s Submission) SubmissionDTO {
	return SubmissionDTO{
		DesignID:   s.DesignID,
		ProductID:  s.ProductID,
		ColorID:    s.Pricing.ColorID,
		SizeID:     s.Pricing.SizeID,
		BasePrice:  s.Pricing.BasePrice,
		FinalPrice: s.Pricing.FinalPrice,
		Angles:     ToDTOs(s.Angles),
	}
}

// FromSubmission parses a DisenoDTO bundle.
func FromSubmission(dto SubmissionDTO) (Submission, error) {
	if dto.ProductID == "" {
		return Submission{}, errors.New("productoId required")
	}
	angles, err := FromDTOs(dto.Angles)
	if err != nil {
		return Submission{}, errors.Wrap(err, "decode angles")
	}
	return Submission{
		DesignID:  dto.DesignID,
		ProductID: dto.ProductID,
		Angles:    angles,
		Pricing: Pricing{
			ColorID:    dto.ColorID,
			SizeID:     dto.SizeID,
			BasePrice:  dto.BasePrice,
			FinalPrice: dto.FinalPrice,
		},
	}, nil
}
