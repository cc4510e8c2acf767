package apierror

import (
	"errors"
	"fmt"
	"github.com/go-playground/validator/v10"
	"net/http"
	"strings"
)

// ErrorResponse abstracts all API error responses to the user.
//
// This interface does not implement `error`, since its only purpose
// is to be used for API responses and not for logging circumstances.
//
// In general, the whole ErrorResponse can be sent for serialization.
type ErrorResponse interface {
	// Code is the HTTP status code to be returned.
	Code() int
}

type APIError struct {
	Message string `json:"message"`
	Status  int    `json:"-"`
}

func (a *APIError) Code() int {
	return a.Status
}

type StructuredError struct {
	Errors map[string][]string `json:"errors"`
	Status int                 `json:"-"`
}

func (s *StructuredError) Code() int {
	return s.Status
}

func (s *StructuredError) Add(field, problem string) {
	s.Errors[field] = append(s.Errors[field], problem)
}

// ProviderErrorResponse reports a failed call to the filings provider.
// Status is the HTTP status sent to our caller; the remaining fields mirror
// what the provider answered.
type ProviderErrorResponse struct {
	Message         string  `json:"message"`
	HTTPStatus      int     `json:"httpStatus"`
	HTTPStatusText  string  `json:"httpStatusText"`
	ProviderCode    *int    `json:"providerCode"`
	ProviderMessage *string `json:"providerMessage"`
	Status          int     `json:"-"`
}

func (p *ProviderErrorResponse) Code() int {
	return p.Status
}

var (
	MalformedJSONError  = NewSimple(400, "Malformed JSON body")
	InternalServerError = NewSimple(500, "Internal server error")
	UnauthorizedError   = NewSimple(401, "Missing or invalid credentials")
	ForbiddenError      = NewSimple(403, "Token lacks the required scope")

	NotFoundError        = NewSimple(404, "Resource not found")
	InvalidCNPJError     = NewSimple(400, "The provided CNPJ is invalid")
	MissingIdentityError = NewSimple(400, "Either clienteId or cnpj must be provided")

	ProviderNotConfiguredError = NewSimple(503, "Filings provider is not configured")
	ProviderTimeoutError       = NewSimple(504, "Filings provider did not answer in time")
)

func FromValidationError(err error) *StructuredError {
	var ve validator.ValidationErrors
	ok := errors.As(err, &ve)
	if !ok {
		return nil
	}

	se := NewStructured(http.StatusBadRequest)
	for _, fe := range ve {
		field := strings.ToLower(fe.Field())

		switch fe.Tag() {
		case "required", "required_without":
			se.Add(field, "This field is required")
		case "min":
			se.Add(field, "Value is too short, min: "+fe.Param())
		case "max":
			se.Add(field, "Value is too long, max: "+fe.Param())
		case "cnpj":
			se.Add(field, "Value must be a valid CNPJ")
		case "isodate":
			se.Add(field, "Value must be a date in YYYY-MM-DD format")
		case "nodupes":
			se.Add(field, "Values must not repeat")
		case "nospaces":
			se.Add(field, "Value must not contain spaces")

		default:
			se.Add(field, "Invalid value provided")
		}
	}

	return se
}

func NewSimple(status int, msg string, args ...any) *APIError {
	if len(args) > 0 {
		msg = fmt.Sprintf(msg, args...)
	}
	return &APIError{Status: status, Message: msg}
}

func NewStructured(code int) *StructuredError {
	return &StructuredError{
		Errors: make(map[string][]string),
		Status: code,
	}
}

func NewTooManyCompetitorsError(max int) *APIError {
	return NewSimple(http.StatusBadRequest, "At most %d competitors can be compared at once", max)
}

// NewProviderError wraps a provider failure. Answers the provider sent with a
// non-error status (business errors inside a 200) are reported as 502.
func NewProviderError(status int, statusText string, providerCode *int, providerMessage *string) *ProviderErrorResponse {
	code := status
	if code < 400 {
		code = http.StatusBadGateway
	}
	return &ProviderErrorResponse{
		Message:         "Provider request failed",
		HTTPStatus:      status,
		HTTPStatusText:  statusText,
		ProviderCode:    providerCode,
		ProviderMessage: providerMessage,
		Status:          code,
	}
}
