package design

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
)

// ElementKind discriminates the single element slot of an AngleDTO.
type ElementKind string

const (
	ElementText  ElementKind = "TEXTO"
	ElementImage ElementKind = "IMAGEN"
)

// AngleDTO is the canonical transport and storage form of one face.
//
// ID and Element.ID are assigned by the backend and have no counterpart in
// AngleDesign; FromDTO drops them.
type AngleDTO struct {
	ID        *int64
	ViewCode  int    // tipoAnguloId
	ViewName  string // nombreAngulo
	Thumbnail string // thumbnailBase64, omitted when empty
	Element   ElementDTO
}

// ElementDTO is the "elemento" object.
type ElementDTO struct {
	ID     *int64
	Kind   ElementKind
	Layout LayoutDTO
	Props  PropsDTO
}

// LayoutDTO is the "propiedadesDiseno" object.
type LayoutDTO struct {
	X      float64
	Y      float64
	Width  *float64
	Height *float64
}

// PropsDTO is the "propiedadesElemento" object. Empty fields are omitted.
type PropsDTO struct {
	Text     string
	Font     string
	Color    string
	FontSize float64
	ImageURL string
}

// SubmissionDTO bundles the faces of one garment with its pricing side-data.
type SubmissionDTO struct {
	DesignID   string
	ProductID  string
	ColorID    string
	SizeID     string
	BasePrice  int64
	FinalPrice int64
	Angles     []AngleDTO
}

// Encode implements json.Marshaler.
func (s AngleDTO) Encode(e *jx.Encoder) {
	e.ObjStart()
	s.encodeFields(e)
	e.ObjEnd()
}

func (s AngleDTO) encodeFields(e *jx.Encoder) {
	if s.ID != nil {
		e.FieldStart("id")
		e.Int64(*s.ID)
	}
	e.FieldStart("tipoAnguloId")
	e.Int(s.ViewCode)
	e.FieldStart("nombreAngulo")
	e.Str(s.ViewName)
	if s.Thumbnail != "" {
		e.FieldStart("thumbnailBase64")
		e.Str(s.Thumbnail)
	}
	e.FieldStart("elemento")
	s.Element.Encode(e)
}

// Decode decodes AngleDTO from json.
func (s *AngleDTO) Decode(d *jx.Decoder) error {
	if s == nil {
		return errors.New("invalid: unable to decode AngleDTO to nil")
	}
	return d.Obj(func(d *jx.Decoder, k string) error {
		switch k {
		case "id":
			v, err := decodeOptInt64(d)
			if err != nil {
				return errors.Wrap(err, "decode field \"id\"")
			}
			s.ID = v
		case "tipoAnguloId":
			v, err := d.Int()
			if err != nil {
				return errors.Wrap(err, "decode field \"tipoAnguloId\"")
			}
			s.ViewCode = v
		case "nombreAngulo":
			v, err := d.Str()
			if err != nil {
				return errors.Wrap(err, "decode field \"nombreAngulo\"")
			}
			s.ViewName = v
		case "thumbnailBase64":
			v, err := decodeOptStr(d)
			if err != nil {
				return errors.Wrap(err, "decode field \"thumbnailBase64\"")
			}
			s.Thumbnail = v
		case "elemento":
			if err := s.Element.Decode(d); err != nil {
				return errors.Wrap(err, "decode field \"elemento\"")
			}
		default:
			return d.Skip()
		}
		return nil
	})
}

// MarshalJSON implements json.Marshaler.
func (s AngleDTO) MarshalJSON() ([]byte, error) {
	e := jx.Encoder{}
	s.Encode(&e)
	return e.Bytes(), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *AngleDTO) UnmarshalJSON(data []byte) error {
	return s.Decode(jx.DecodeBytes(data))
}

// Encode encodes ElementDTO as json.
func (s ElementDTO) Encode(e *jx.Encoder) {
	e.ObjStart()
	if s.ID != nil {
		e.FieldStart("id")
		e.Int64(*s.ID)
	}
	e.FieldStart("tipo")
	e.Str(string(s.Kind))
	e.FieldStart("propiedadesDiseno")
	s.Layout.Encode(e)
	e.FieldStart("propiedadesElemento")
	s.Props.Encode(e)
	e.ObjEnd()
}

// Decode decodes ElementDTO from json.
func (s *ElementDTO) Decode(d *jx.Decoder) error {
	if s == nil {
		return errors.New("invalid: unable to decode ElementDTO to nil")
	}
	return d.Obj(func(d *jx.Decoder, k string) error {
		switch k {
		case "id":
			v, err := decodeOptInt64(d)
			if err != nil {
				return errors.Wrap(err, "decode field \"id\"")
			}
			s.ID = v
		case "tipo":
			v, err := d.Str()
			if err != nil {
				return errors.Wrap(err, "decode field \"tipo\"")
			}
			s.Kind = ElementKind(v)
		case "propiedadesDiseno":
			if err := s.Layout.Decode(d); err != nil {
				return errors.Wrap(err, "decode field \"propiedadesDiseno\"")
			}
		case "propiedadesElemento":
			if err := s.Props.Decode(d); err != nil {
				return errors.Wrap(err, "decode field \"propiedadesElemento\"")
			}
		default:
			return d.Skip()
		}
		return nil
	})
}

// Encode encodes LayoutDTO as json.
func (s LayoutDTO) Encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("posicionX")
	e.Float64(s.X)
	e.FieldStart("posicionY")
	e.Float64(s.Y)
	if s.Width != nil {
		e.FieldStart("anchura")
		e.Float64(*s.Width)
	}
	if s.Height != nil {
		e.FieldStart("altura")
		e.Float64(*s.Height)
	}
	e.ObjEnd()
}

// Decode decodes LayoutDTO from json.
func (s *LayoutDTO) Decode(d *jx.Decoder) error {
	if s == nil {
		return errors.New("invalid: unable to decode LayoutDTO to nil")
	}
	return d.Obj(func(d *jx.Decoder, k string) error {
		var err error
		switch k {
		case "posicionX":
			s.X, err = d.Float64()
		case "posicionY":
			s.Y, err = d.Float64()
		case "anchura":
			s.Width, err = decodeOptFloat64(d)
		case "altura":
			s.Height, err = decodeOptFloat64(d)
		default:
			return d.Skip()
		}
		if err != nil {
			return errors.Wrapf(err, "decode field %q", k)
		}
		return nil
	})
}

// Encode encodes PropsDTO as json.
func (s PropsDTO) Encode(e *jx.Encoder) {
	e.ObjStart()
	if s.Text != "" {
		e.FieldStart("texto")
		e.Str(s.Text)
	}
	if s.Font != "" {
		e.FieldStart("fuente")
		e.Str(s.Font)
	}
	if s.Color != "" {
		e.FieldStart("color")
		e.Str(s.Color)
	}
	if s.FontSize != 0 {
		e.FieldStart("tamanoFuente")
		e.Float64(s.FontSize)
	}
	if s.ImageURL != "" {
		e.FieldStart("urlImagen")
		e.Str(s.ImageURL)
	}
	e.ObjEnd()
}

// Decode decodes PropsDTO from json.
func (s *PropsDTO) Decode(d *jx.Decoder) error {
	if s == nil {
		return errors.New("invalid: unable to decode PropsDTO to nil")
	}
	return d.Obj(func(d *jx.Decoder, k string) error {
		var err error
		switch k {
		case "texto":
			s.Text, err = decodeOptStr(d)
		case "fuente":
			s.Font, err = decodeOptStr(d)
		case "color":
			s.Color, err = decodeOptStr(d)
		case "tamanoFuente":
			s.FontSize, err = d.Float64()
		case "urlImagen":
			s.ImageURL, err = decodeOptStr(d)
		default:
			return d.Skip()
		}
		if err != nil {
			return errors.Wrapf(err, "decode field %q", k)
		}
		return nil
	})
}

// Encode encodes SubmissionDTO as json.
func (s SubmissionDTO) Encode(e *jx.Encoder) {
	e.ObjStart()
	if s.DesignID != "" {
		e.FieldStart("disenoId")
		e.Str(s.DesignID)
	}
	e.FieldStart("productoId")
	e.Str(s.ProductID)
	e.FieldStart("colorId")
	e.Str(s.ColorID)
	e.FieldStart("tallaId")
	e.Str(s.SizeID)
	e.FieldStart("precioBase")
	e.Int64(s.BasePrice)
	e.FieldStart("precioFinal")
	e.Int64(s.FinalPrice)
	e.FieldStart("angulos")
	e.ArrStart()
	for _, a := range s.Angles {
		a.Encode(e)
	}
	e.ArrEnd()
	e.ObjEnd()
}

// Decode decodes SubmissionDTO from json.
func (s *SubmissionDTO) Decode(d *jx.Decoder) error {
	if s == nil {
		return errors.New("invalid: unable to decode SubmissionDTO to nil")
	}
	return d.Obj(func(d *jx.Decoder, k string) error {
		var err error
		switch k {
		case "disenoId":
			s.DesignID, err = decodeOptStr(d)
		case "productoId":
			s.ProductID, err = d.Str()
		case "colorId":
			s.ColorID, err = d.Str()
		case "tallaId":
			s.SizeID, err = d.Str()
		case "precioBase":
			s.BasePrice, err = d.Int64()
		case "precioFinal":
			s.FinalPrice, err = d.Int64()
		case "angulos":
			s.Angles = s.Angles[:0]
			err = d.Arr(func(d *jx.Decoder) error {
				var a AngleDTO
				if err := a.Decode(d); err != nil {
					return err
				}
				s.Angles = append(s.Angles, a)
				return nil
			})
		default:
			return d.Skip()
		}
		if err != nil {
			return errors.Wrapf(err, "decode field %q", k)
		}
		return nil
	})
}

// MarshalJSON implements json.Marshaler.
func (s SubmissionDTO) MarshalJSON() ([]byte, error) {
	e := jx.Encoder{}
	s.Encode(&e)
	return e.Bytes(), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *SubmissionDTO) UnmarshalJSON(data []byte) error {
	return s.Decode(jx.DecodeBytes(data))
}

func decodeOptInt64(d *jx.Decoder) (*int64, error) {
	if d.Next() == jx.Null {
		return nil, d.Null()
	}
	v, err := d.Int64()
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func decodeOptFloat64(d *jx.Decoder) (*float64, error) {
	if d.Next() == jx.Null {
		return nil, d.Null()
	}
	v, err := d.Float64()
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func decodeOptStr(d *jx.Decoder) (string, error) {
	if d.Next() == jx.Null {
		return "", d.Null()
	}
	return d.Str()
}
