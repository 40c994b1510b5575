package llm

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrTransport marks connection-level failures reported by a Transport.
	ErrTransport = errors.New("transport failure")

	// ErrMalformedResponse is returned when a 200 payload does not have the
	// shape an adapter expects.
	ErrMalformedResponse = errors.New("malformed provider response")

	// ErrUnknownModel is returned when a model has no pricing entry.
	ErrUnknownModel = errors.New("unknown model")

	// ErrMissingCredential is returned when a provider API key is not set.
	ErrMissingCredential = errors.New("missing credential")

	// ErrInvalidOption is returned when an option value has an unsupported type.
	ErrInvalidOption = errors.New("invalid option")
)

// TransportError wraps an error raised by the transport before any HTTP
// status was received.
type TransportError struct {
	Endpoint string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s: %v", e.Endpoint, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Is reports ErrTransport as the kind of every TransportError.
func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}

// ProviderError is a non-200 HTTP response returned by a provider.
type ProviderError struct {
	Provider   string
	StatusCode int
	Body       []byte
}

func (e *ProviderError) Error() string {
	msg := http.StatusText(e.StatusCode)
	if len(e.Body) > 0 {
		msg = string(e.Body)
	}
	if e.Provider != "" {
		return fmt.Sprintf("%s: API error (status %d): %s", e.Provider, e.StatusCode, msg)
	}
	return fmt.Sprintf("API error (status %d): %s", e.StatusCode, msg)
}

// AsProviderError reports whether err is (or wraps) a ProviderError.
func AsProviderError(err error) (*ProviderError, bool) {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// IsRateLimit reports whether err is a provider 429 response.
func IsRateLimit(err error) bool {
	pe, ok := AsProviderError(err)
	return ok && pe.StatusCode == http.StatusTooManyRequests
}

// IsAuth reports whether err is a provider 401 or 403 response.
func IsAuth(err error) bool {
	pe, ok := AsProviderError(err)
	return ok && (pe.StatusCode == http.StatusUnauthorized || pe.StatusCode == http.StatusForbidden)
}

// Malformedf returns an error wrapping ErrMalformedResponse.
func Malformedf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedResponse, fmt.Sprintf(format, args...))
}
