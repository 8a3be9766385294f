package providers

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"
)

// ErrPageTooLarge marks a listing page whose body exceeds the static fetch limit.
var ErrPageTooLarge = errors.New("page too large")

// ErrFetchTimeout marks a page that did not become ready within its budget.
var ErrFetchTimeout = errors.New("fetch timeout")

// FetchTimeoutError reports which page timed out and after how long.
type FetchTimeoutError struct {
	URL     string
	Timeout time.Duration
	Err     error
}

func (e *FetchTimeoutError) Error() string {
	return fmt.Sprintf("page %s not ready within %s: %v", e.URL, e.Timeout, e.Err)
}

// Is lets errors.Is(err, ErrFetchTimeout) match.
func (e *FetchTimeoutError) Is(target error) bool { return target == ErrFetchTimeout }

func (e *FetchTimeoutError) Unwrap() error { return e.Err }

// isTimeout reports whether err (or the context) signals an expired deadline.
func isTimeout(ctx context.Context, err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// responseSnippet returns a truncated snippet of the response body for logging.
func responseSnippet(body []byte) string {
	const maxLen = 512
	s := strings.TrimSpace(string(body))
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	if s == "" {
		return "<empty>"
	}
	return s
}
