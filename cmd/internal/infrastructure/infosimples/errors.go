package infosimples

import (
	"fmt"
	"net/http"
	"strings"
)

// ProviderError is the terminal failure of a provider call. Status is the
// HTTP status the provider answered with, or 0 when no response arrived.
type ProviderError struct {
	Status          int
	StatusText      string
	ProviderCode    *int
	ProviderMessage *string
}

func (e *ProviderError) Error() string {
	if e == nil {
		return "infosimples: <nil error>"
	}

	msg := fmt.Sprintf("infosimples http %d", e.Status)
	if e.StatusText != "" {
		msg += " " + e.StatusText
	}
	if e.ProviderCode != nil {
		msg += fmt.Sprintf(" (code=%d)", *e.ProviderCode)
	}
	if e.ProviderMessage != nil && strings.TrimSpace(*e.ProviderMessage) != "" {
		msg += ": " + *e.ProviderMessage
	}
	return msg
}

func (e *ProviderError) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.Status
}

// Transient reports whether a retry may succeed: server errors and calls
// that never got a response.
func (e *ProviderError) Transient() bool {
	return e != nil && (e.Status == 0 || e.Status >= 500)
}

func newTransportError(err error) *ProviderError {
	msg := err.Error()
	return &ProviderError{Status: 0, StatusText: "Network Error", ProviderMessage: &msg}
}

func statusText(resp *http.Response) string {
	if resp == nil {
		return ""
	}
	if t := http.StatusText(resp.StatusCode); t != "" {
		return t
	}
	return strings.TrimSpace(resp.Status)
}
