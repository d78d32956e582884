package handler

import (
	"net/http"

	"github.com/xenking/threadcraft/internal/domain/catalog"
)

// ListProducts returns the whole catalog.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalog.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	resp := make([]productResponse, len(products))
	for i, p := range products {
		resp[i] = newProductResponse(p, h.cfg.DisplayRate)
	}
	writeJSON(w, r, http.StatusOK, resp)
}

// GetProduct returns one product with its base design angles.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.catalog.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, newProductResponse(*p, h.cfg.DisplayRate))
}

// GetOptions returns the color, size and font reference lists.
func (h *Handler) GetOptions(w http.ResponseWriter, r *http.Request) {
	opts, err := h.catalog.Options(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, newOptionsResponse(opts))
}

// Quote prices one unit of a product in the given color and size.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if err := h.decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	ctx := r.Context()
	p, err := h.catalog.Get(ctx, req.ProductID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	opts, err := h.catalog.Options(ctx)
	if err != nil {
		writeError(w, r, err)
		return
	}
	q, err := opts.Resolver().Quote(p.Price, req.ColorID, req.SizeID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, quoteResponse{
		ProductID:        p.ID,
		ColorID:          q.Color.ID,
		SizeID:           q.Size.ID,
		BasePrice:        q.BasePrice,
		ColorModifier:    q.Color.PriceModifier,
		SizeModifier:     q.Size.PriceModifier,
		UnitPrice:        q.UnitPrice,
		DisplayUnitPrice: display(q.UnitPrice, h.cfg.DisplayRate),
	})
}

// CreateProduct adds a product to the catalog.
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	h.saveProduct(w, r, func(req productRequest) (*catalog.Product, error) {
		a, err := actor(r)
		if err != nil {
			return nil, err
		}
		angles, err := req.angles()
		if err != nil {
			return nil, err
		}
		return h.catalog.Create(r.Context(), a, req.input(), angles)
	}, http.StatusCreated)
}

// UpdateProduct replaces the editable fields of a product. Angles are kept
// when the body omits them.
func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	h.saveProduct(w, r, func(req productRequest) (*catalog.Product, error) {
		a, err := actor(r)
		if err != nil {
			return nil, err
		}
		angles, err := req.angles()
		if err != nil {
			return nil, err
		}
		return h.catalog.Update(r.Context(), a, r.PathValue("id"), req.input(), angles)
	}, http.StatusOK)
}

func (h *Handler) saveProduct(
	w http.ResponseWriter,
	r *http.Request,
	save func(productRequest) (*catalog.Product, error),
	status int,
) {
	var req productRequest
	if err := h.decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := save(req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, status, newProductResponse(*p, h.cfg.DisplayRate))
}
