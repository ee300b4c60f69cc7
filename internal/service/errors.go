package service

import (
	"errors"
	"fmt"
)

// ErrProviderUnavailable marks transport-level failures against an
// embedding provider: connection refused, DNS, timeout. The item is counted
// as failed and stays missing for the next backfill run.
var ErrProviderUnavailable = errors.New("embedding provider unavailable")

// ProviderError is returned when a provider accepted the connection but
// rejected the request (non-2xx response).
type ProviderError struct {
	Provider string
	Status   int
	Body     string
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s provider error: status %d: %s", e.Provider, e.Status, e.Body)
}

// IsProviderError reports whether err is (or wraps) a ProviderError.
func IsProviderError(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe)
}
