package handler

import (
	"net/http"

	"github.com/go-faster/errors"

	"github.com/xenking/threadcraft/internal/domain/auth"
	"github.com/xenking/threadcraft/internal/domain/catalog"
	"github.com/xenking/threadcraft/internal/domain/design"
	"github.com/xenking/threadcraft/internal/domain/order"
	"github.com/xenking/threadcraft/internal/domain/pricing"
)

// Errors raised by the transport itself.
var (
	errUnauthorized    = errors.New("unauthorized")
	errForbidden       = errors.New("forbidden")
	errIfMatchRequired = errors.New("If-Match header required")
	errBadRequest      = errors.New("bad request")
)

// statusOf maps an error to its HTTP status. Unknown errors are 500.
func statusOf(err error) int {
	var (
		productErr *order.ProductNotFoundError
		invalidErr *catalog.InvalidProductError
	)
	switch {
	case errors.Is(err, errUnauthorized), errors.Is(err, auth.ErrKeyNotFound), errors.Is(err, auth.ErrNoActor):
		return http.StatusUnauthorized
	case errors.Is(err, errForbidden):
		return http.StatusForbidden
	case errors.Is(err, errIfMatchRequired):
		return http.StatusPreconditionRequired
	case errors.Is(err, order.ErrStaleOrder):
		return http.StatusPreconditionFailed
	case errors.Is(err, order.ErrNotFound),
		errors.Is(err, catalog.ErrNotFound),
		errors.Is(err, order.ErrDesignNotFound),
		errors.Is(err, order.ErrItemNotFound):
		return http.StatusNotFound
	case errors.Is(err, order.ErrInvalidTransition),
		errors.Is(err, order.ErrAlreadyReviewed),
		errors.Is(err, order.ErrLastItem),
		errors.Is(err, catalog.ErrExists):
		return http.StatusConflict
	case errors.Is(err, pricing.ErrUnknownOption),
		errors.Is(err, design.ErrUnknownView),
		errors.Is(err, order.ErrIncompleteDesign),
		errors.Is(err, order.ErrInvalidQuantity),
		errors.As(err, &productErr):
		return http.StatusUnprocessableEntity
	case errors.Is(err, errBadRequest),
		errors.Is(err, order.ErrInvalidOrder),
		errors.Is(err, order.ErrEmptyItems),
		errors.Is(err, order.ErrRejectReasonRequired),
		errors.Is(err, design.ErrUnknownElement),
		errors.Is(err, design.ErrDuplicateView),
		errors.As(err, &invalidErr):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// requestError is a malformed request body, query or header.
type requestError struct {
	err error
}

func (e *requestError) Error() string { return "bad request: " + e.err.Error() }

func (e *requestError) Unwrap() error { return e.err }

func (e *requestError) Is(target error) bool { return target == errBadRequest }

func badRequest(err error) error {
	return &requestError{err: err}
}
