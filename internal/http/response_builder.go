// Package http exposes the ledger services as a JSON API.
//
// This file implements the Builder Pattern for constructing JSON responses
// and maps service errors onto status codes.

package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"kharcha/internal/budget"
	"kharcha/internal/category"
	"kharcha/internal/core"
	"kharcha/internal/emi"
	"kharcha/internal/log"
)

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	body       any
	headers    map[string]string
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

// Header adds a custom header to the response.
func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Body sets the value encoded as the response body. A nil body writes none.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.body = v
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if b.body == nil {
		w.WriteHeader(b.statusCode)
		return
	}

	data, err := json.Marshal(b.body)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"failed to encode response"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(b.statusCode)
	_, _ = w.Write(append(data, '\n'))
}

// ErrorBody is the payload of every error response.
type ErrorBody struct {
	Error  string            `json:"error,omitempty"`
	Errors map[string]string `json:"errors,omitempty"`
}

// ErrorResponse creates a standard {"error": message} response.
func ErrorResponse(statusCode int, message string) *JSONResponseBuilder {
	return NewJSONResponse().
		Status(statusCode).
		Body(ErrorBody{Error: message})
}

// ValidationError creates a 422 response listing a message per field.
func ValidationError(fields map[string]string) *JSONResponseBuilder {
	return NewJSONResponse().
		Status(http.StatusUnprocessableEntity).
		Body(ErrorBody{Errors: fields})
}

// BadRequestError creates a 400 Bad Request error response.
func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

// NotFoundError creates a 404 Not Found error response.
func NotFoundError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

// ConflictError creates a 409 Conflict error response.
func ConflictError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusConflict, message)
}

// InternalServerError creates a 500 Internal Server Error response.
func InternalServerError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, message)
}

// ErrorFor maps a service error to its response. Field validation wins over
// the generic invalid-input case so clients get per-field messages.
func ErrorFor(err error) *JSONResponseBuilder {
	var (
		fieldErrs core.FieldErrors
		inputErr  *core.InvalidInputError
		dateErr   *core.InvalidDateError
	)
	switch {
	case errors.As(err, &fieldErrs):
		return ValidationError(fieldErrs)
	case errors.Is(err, errMalformedBody):
		return BadRequestError(err.Error())
	case errors.As(err, &dateErr):
		return BadRequestError(dateErr.Error())
	case errors.As(err, &inputErr):
		return ValidationError(map[string]string{inputErr.Field: inputErr.Reason})
	case errors.Is(err, budget.ErrBudgetExceeded):
		return ValidationError(map[string]string{"categories": "Category budgets exceed the total monthly budget"})
	case errors.Is(err, core.ErrNotFound):
		return NotFoundError("not found")
	case errors.Is(err, category.ErrDefaultCategory):
		return ConflictError("Default categories cannot be changed")
	case errors.Is(err, emi.ErrEMICompleted):
		return ConflictError("This EMI has already been paid off")
	default:
		return InternalServerError("internal error")
	}
}

// writeJSON writes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	NewJSONResponse().Status(status).Body(v).Write(w)
}

// writeError logs server-side failures and writes the mapped response.
func writeError(w http.ResponseWriter, r *http.Request, err error, operation string) {
	resp := ErrorFor(err)
	if resp.statusCode >= http.StatusInternalServerError {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
			log.NewFields().WithError(err).WithOperation(operation).ToSlice()...)
	} else {
		log.FromContext(r.Context()).DebugContext(r.Context(), "Request rejected",
			log.FieldOperation, operation,
			log.FieldStatusCode, resp.statusCode,
			log.FieldError, err)
	}
	resp.Write(w)
}
