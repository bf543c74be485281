// Package apierror provides standardized error response structures for the API
// and the typed error taxonomy shared by the POS core and its services.
// All errors returned to clients go through this package so that database and
// network details never leak into a response body.
package apierror

// APIError is the canonical error envelope for all 4xx/5xx HTTP responses.
type APIError struct {
	Detail string `json:"detail"`
	Code   string `json:"code,omitempty"`
}

func New(msg string) *APIError {
	return &APIError{Detail: msg}
}

// WithCode returns an envelope carrying the machine-readable error kind.
func WithCode(msg string, kind Kind) *APIError {
	return &APIError{Detail: msg, Code: string(kind)}
}

// ValidationError is the 422 envelope for DTO binding failures.
type ValidationError struct {
	Detail string            `json:"detail"`
	Code   string            `json:"code"`
	Fields map[string]string `json:"fields"`
}

func NewValidation(fields map[string]string) *ValidationError {
	return &ValidationError{Detail: "validation failed", Code: string(KindValidation), Fields: fields}
}
