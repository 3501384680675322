package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"society/internal/core"
	"society/internal/log"
	"society/internal/middleware/trace"
	"society/internal/report"
)

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Error     string        `json:"error"`
	Code      string        `json:"code"`
	Field     string        `json:"field,omitempty"`
	Details   []FieldDetail `json:"details,omitempty"`
	RequestID string        `json:"request_id,omitempty"`
}

type FieldDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// classify maps an error to its HTTP status and error type.
func classify(err error) (int, string) {
	var verr *core.ValidationError
	var fieldErrs validator.ValidationErrors
	switch {
	case errors.As(err, &verr), errors.As(err, &fieldErrs), errors.Is(err, errBadRequest):
		return http.StatusBadRequest, log.ErrorTypeValidation
	case errors.Is(err, core.ErrUnauthorized):
		return http.StatusUnauthorized, log.ErrorTypeAuth
	case errors.Is(err, core.ErrForbidden), errors.Is(err, core.ErrDeleteDisabled):
		return http.StatusForbidden, log.ErrorTypeForbidden
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound, log.ErrorTypeNotFound
	case errors.Is(err, core.ErrConflict):
		return http.StatusConflict, log.ErrorTypeConflict
	case errors.Is(err, core.ErrStoreUnavailable), errors.Is(err, report.ErrPDFUnavailable):
		return http.StatusServiceUnavailable, log.ErrorTypeUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, log.ErrorTypeTimeout
	}
	return http.StatusInternalServerError, log.ErrorTypeInternal
}

// writeError logs err and writes its JSON form. Internal failures never
// leak their message to the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	status, kind := classify(err)

	body := ErrorResponse{Error: err.Error(), Code: kind, RequestID: trace.GetRequestID(ctx)}
	var verr *core.ValidationError
	var fieldErrs validator.ValidationErrors
	switch {
	case errors.As(err, &fieldErrs):
		body.Error = "request validation failed"
		for _, fe := range fieldErrs {
			body.Details = append(body.Details, FieldDetail{Field: fe.Field(), Message: validationMessage(fe)})
		}
	case errors.As(err, &verr):
		body.Field = verr.Field
	}

	logger := log.FromContext(ctx)
	switch {
	case status >= 500:
		log.NewStructuredLogger(logger).LogError(ctx, "Request failed", err, r.Method+" "+r.URL.Path, kind, nil)
		if status == http.StatusInternalServerError {
			body.Error = "internal server error"
		}
		if status == http.StatusServiceUnavailable && errors.Is(err, core.ErrStoreUnavailable) {
			body.Error = core.ErrStoreUnavailable.Error()
		}
	default:
		logger.DebugContext(ctx, "Request rejected", log.FieldError, err, log.FieldErrorType, kind)
	}

	writeJSON(w, status, body)
}

var errBadRequest = errors.New("bad request")
