package httpx

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/ledgerkit/ledgerkit/internal/shared"
)

// kindStatus maps domain error kinds to HTTP status codes. Kinds not
// listed here fall back to 422.
var kindStatus = map[string]int{
	shared.KindNotFound:             http.StatusNotFound,
	shared.KindInvalidLine:          http.StatusUnprocessableEntity,
	shared.KindInvalidPayment:       http.StatusUnprocessableEntity,
	shared.KindOverpayment:          http.StatusUnprocessableEntity,
	shared.KindIllegalTransition:    http.StatusConflict,
	shared.KindConversionNotAllowed: http.StatusConflict,
	shared.KindAlreadyConverted:     http.StatusConflict,
	shared.KindCancelWithPayments:   http.StatusConflict,
	shared.KindNothingToReceipt:     http.StatusConflict,
	shared.KindConcurrencyConflict:  http.StatusConflict,
	shared.KindDocumentLocked:       http.StatusLocked,
}

// RespondError maps domain errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	var kinder shared.Kinder
	if errors.As(err, &kinder) {
		status, ok := kindStatus[kinder.Kind()]
		if !ok {
			status = http.StatusUnprocessableEntity
		}
		ProblemKind(w, status, kinder.Kind(), kinder.Error())
		return
	}

	var verrs validator.ValidationErrors
	switch {
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrTenantRequired):
		Problem(w, http.StatusBadRequest, "Tenant Required", err.Error())
	case errors.Is(err, shared.ErrValidation), errors.As(err, &verrs):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
