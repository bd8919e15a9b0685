package imagery

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

var (
	// ErrFetchFailed is returned when the provider could not deliver imagery.
	ErrFetchFailed = errors.New("imagery fetch failed")

	// ErrFetchTimeout is returned when every attempt ran out of time.
	ErrFetchTimeout = errors.New("imagery fetch timed out")
)

// UpstreamError reports a non-success HTTP response from the provider.
type UpstreamError struct {
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("provider returned status %d: %s", e.StatusCode, e.Message)
}

// Transient reports whether the request may succeed if retried.
func (e *UpstreamError) Transient() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// isTransient reports whether err is worth another attempt.
func isTransient(err error) bool {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue.Transient()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne)
}

// isTimeout reports whether err is a deadline or network timeout.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
