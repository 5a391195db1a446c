// Package response provides the JSON envelope returned by every API endpoint.
package response

import (
	"net/http"

	"github.com/kart-io/mida-chat/pkg/utils/errors"
)

// Response is the unified API response structure.
type Response struct {
	// Code is the business error code (0 = success).
	Code int `json:"code"`

	// HTTPCode mirrors the HTTP status for clients that only see the body.
	HTTPCode int `json:"http_code,omitempty"`

	// Message is a human-readable message.
	Message string `json:"message"`

	// Data is the payload; nil for most errors.
	Data any `json:"data,omitempty"`

	// RequestID echoes the X-Request-ID of the request.
	RequestID string `json:"request_id,omitempty"`

	// Timestamp is the response time in Unix milliseconds.
	Timestamp int64 `json:"timestamp,omitempty"`
}

// Success wraps data in a success envelope.
func Success(data any) *Response {
	return &Response{
		Code:     errors.OK.Code,
		HTTPCode: http.StatusOK,
		Message:  errors.OK.MessageEN,
		Data:     data,
	}
}

// Err builds an error envelope from e.
func Err(e *errors.Errno) *Response {
	if e == nil {
		return Success(nil)
	}
	return &Response{
		Code:     e.Code,
		HTTPCode: e.HTTPStatus(),
		Message:  e.MessageEN,
	}
}

// ErrWithData builds an error envelope that also carries data, such as
// per-field validation messages.
func ErrWithData(e *errors.Errno, data any) *Response {
	r := Err(e)
	r.Data = data
	return r
}

// IsSuccess reports whether the envelope carries code 0.
func (r *Response) IsSuccess() bool {
	return r.Code == errors.OK.Code
}

// HTTPStatus resolves the HTTP status for the envelope.
func (r *Response) HTTPStatus() int {
	if r.HTTPCode != 0 {
		return r.HTTPCode
	}
	if r.Code == errors.OK.Code {
		return http.StatusOK
	}
	if e, ok := errors.Lookup(r.Code); ok {
		return e.HTTPStatus()
	}

	switch errors.GetCategory(r.Code) {
	case errors.CategoryRequest:
		return http.StatusBadRequest
	case errors.CategoryResource:
		return http.StatusNotFound
	case errors.CategoryConflict:
		return http.StatusConflict
	case errors.CategoryTimeout:
		return http.StatusGatewayTimeout
	case errors.CategoryNetwork:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
