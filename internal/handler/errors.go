package handler

import (
	"maps"
	"net/http"
	"slices"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/kart-pos/internal/domain/auth"
	"github.com/xenking/kart-pos/internal/domain/cart"
	"github.com/xenking/kart-pos/internal/domain/inventory"
	"github.com/xenking/kart-pos/internal/domain/product"
	"github.com/xenking/kart-pos/internal/domain/register"
)

var errNoRoute = errors.New("no such route")

// statusFor maps domain errors to HTTP status codes. Unknown errors are 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, inventory.ErrValidation),
		errors.Is(err, cart.ErrInvalidAmount),
		errors.Is(err, cart.ErrEmptyCart),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, auth.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, product.ErrNotFound),
		errors.Is(err, register.ErrLineNotFound),
		errors.Is(err, errNoRoute):
		return http.StatusNotFound
	case errors.Is(err, cart.ErrInsufficientPayment):
		return http.StatusUnprocessableEntity
	case errors.Is(err, inventory.ErrConfirmationRequired):
		return http.StatusPreconditionRequired
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		zctx.From(r.Context()).Error("Request failed", zap.Error(err))
		msg = "internal error"
	}
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Bearer realm="kart-pos"`)
	}

	var verr *inventory.ValidationError
	hasFields := errors.As(err, &verr) && len(verr.Fields) > 0

	writeJSON(w, status, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("code")
		e.Int(status)
		e.FieldStart("message")
		e.Str(msg)
		if hasFields {
			e.FieldStart("fields")
			e.ObjStart()
			for _, k := range slices.Sorted(maps.Keys(verr.Fields)) {
				e.FieldStart(k)
				e.Str(verr.Fields[k])
			}
			e.ObjEnd()
		}
		e.ObjEnd()
	})
}
