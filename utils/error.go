package utils

import (
	"errors"
	"net/http"
)

var ErrorRecordNotFound = errors.New("record not found")

// Error kinds surfaced to API callers. Wrap them with fmt.Errorf("%w: ...")
// to keep the message specific; ErrorStatus matches with errors.Is.
var (
	ErrUnauthenticated   = errors.New("unauthenticated")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrNotFound          = errors.New("not found")
	ErrStationNotFound   = errors.New("station not found")
	ErrInvalidState      = errors.New("invalid state")
	ErrSequenceViolation = errors.New("sequence violation")
	ErrAmountMismatch    = errors.New("amount mismatch")
	ErrValidation        = errors.New("validation error")
	ErrMissingAmount     = errors.New("missing amount")
	ErrConflict          = errors.New("conflict")
	ErrRateLimited       = errors.New("rate limit exceeded")
	ErrFeatureNotInPlan  = errors.New("feature not available on current plan")
)

// ErrorStatus maps an error to its HTTP status. Unknown errors are 500.
func ErrorStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation), errors.Is(err, ErrMissingAmount):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrFeatureNotInPlan):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrStationNotFound), errors.Is(err, ErrorRecordNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidState), errors.Is(err, ErrSequenceViolation),
		errors.Is(err, ErrAmountMismatch), errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// IsClientError reports whether err belongs to the taxonomy above and may be shown to the caller verbatim.
func IsClientError(err error) bool {
	return err != nil && ErrorStatus(err) != http.StatusInternalServerError
}
