package gateway

import (
	"errors"
	"fmt"

	"github.com/aluiziolira/go-price-analyzer/models"
)

// ErrConfiguration indicates a missing or malformed API key. No request
// is sent when this is returned.
type ErrConfiguration struct {
	Reason string
}

func (e ErrConfiguration) Error() string {
	return fmt.Sprintf("configuration: %s", e.Reason)
}

// ErrAuthentication indicates the upstream rejected the key (HTTP 401).
type ErrAuthentication struct {
	Err error
}

func (e ErrAuthentication) Error() string {
	return fmt.Errorf("authentication: %w", e.Err).Error()
}

func (e ErrAuthentication) Unwrap() error {
	return e.Err
}

// ErrRateLimited indicates the upstream rate-limited the request (HTTP 429).
type ErrRateLimited struct {
	Err error
}

func (e ErrRateLimited) Error() string {
	return fmt.Errorf("rate_limited: %w", e.Err).Error()
}

func (e ErrRateLimited) Unwrap() error {
	return e.Err
}

// ErrBadRequest indicates the upstream rejected the payload (HTTP 400).
type ErrBadRequest struct {
	Err error
}

func (e ErrBadRequest) Error() string {
	return fmt.Errorf("bad_request: %w", e.Err).Error()
}

func (e ErrBadRequest) Unwrap() error {
	return e.Err
}

// ErrUpstream indicates any other non-2xx upstream response.
type ErrUpstream struct {
	Status int
	Body   string
}

func (e ErrUpstream) Error() string {
	return fmt.Sprintf("upstream: http status %d: %s", e.Status, e.Body)
}

// ErrTransport indicates a network failure or a malformed upstream body.
type ErrTransport struct {
	Err error
}

func (e ErrTransport) Error() string {
	return fmt.Errorf("transport: %w", e.Err).Error()
}

func (e ErrTransport) Unwrap() error {
	return e.Err
}

func errorTypeLabel(err error) string {
	if err == nil {
		return "unknown"
	}
	var configuration ErrConfiguration
	if errors.As(err, &configuration) {
		return "configuration"
	}
	var authentication ErrAuthentication
	if errors.As(err, &authentication) {
		return "authentication"
	}
	var rateLimited ErrRateLimited
	if errors.As(err, &rateLimited) {
		return "rate_limited"
	}
	var badRequest ErrBadRequest
	if errors.As(err, &badRequest) {
		return "bad_request"
	}
	var upstream ErrUpstream
	if errors.As(err, &upstream) {
		return "upstream"
	}
	var transport ErrTransport
	if errors.As(err, &transport) {
		return "transport"
	}
	return "other"
}

// IsFatal reports whether the error means the key itself must be fixed
// before any further call can succeed.
func IsFatal(err error) bool {
	var configuration ErrConfiguration
	if errors.As(err, &configuration) {
		return true
	}
	var authentication ErrAuthentication
	return errors.As(err, &authentication)
}

// statusError maps a non-2xx upstream status to the error taxonomy.
func statusError(status int, body string) error {
	base := fmt.Errorf("http status %d: %s", status, body)
	switch status {
	case 401:
		return ErrAuthentication{Err: base}
	case 429:
		return ErrRateLimited{Err: base}
	case 400:
		return ErrBadRequest{Err: base}
	default:
		return ErrUpstream{Status: status, Body: body}
	}
}

// FailureResult converts a gateway error into the transport-failure
// variant of a search result, preserving the upstream status when known.
func FailureResult(err error) models.SearchResult {
	status := 0
	var authentication ErrAuthentication
	var rateLimited ErrRateLimited
	var badRequest ErrBadRequest
	var upstream ErrUpstream
	switch {
	case errors.As(err, &authentication):
		status = 401
	case errors.As(err, &rateLimited):
		status = 429
	case errors.As(err, &badRequest):
		status = 400
	case errors.As(err, &upstream):
		status = upstream.Status
	}
	return models.NewTransportFailure(status, err.Error())
}
