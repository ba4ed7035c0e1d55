package http

import (
	"context"
	"errors"
	"fmt"
	"net"
	"unicode/utf8"

	"github.com/toolgate/gateway-client/src/tools"
)

// excerptLimit bounds how much of a response body is echoed back in errors.
const excerptLimit = 500

// TransportError reports a request that never produced an HTTP response:
// connection refused, DNS failure, timeout.
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("error connecting to gateway (%s %s): %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Timeout reports whether the request gave up waiting.
func (e *TransportError) Timeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(e.Err, &netErr) && netErr.Timeout()
}

// Hint is a short remediation message for operators.
func (e *TransportError) Hint() string {
	return "Make sure the gateway is running and the URL is correct."
}

// StatusError reports a non-200 response. Domain is set when the body is a
// gateway error envelope.
type StatusError struct {
	StatusCode int
	URL        string
	Excerpt    string
	Domain     *tools.ToolError
}

func (e *StatusError) Error() string {
	if e.Domain != nil {
		return fmt.Sprintf("request failed: %d: %s", e.StatusCode, e.Domain.Error())
	}
	if e.Excerpt == "" {
		return fmt.Sprintf("request failed: %d", e.StatusCode)
	}
	return fmt.Sprintf("request failed: %d: %s", e.StatusCode, e.Excerpt)
}

func (e *StatusError) Unwrap() error {
	if e.Domain == nil {
		return nil
	}
	return e.Domain
}

// PayloadError reports a response body that is not the JSON shape expected.
type PayloadError struct {
	URL     string
	Excerpt string
	Err     error
}

func (e *PayloadError) Error() string {
	return fmt.Sprintf("invalid response from %s: %v (body: %q)", e.URL, e.Err, e.Excerpt)
}

func (e *PayloadError) Unwrap() error { return e.Err }

// Excerpt returns at most the first 500 characters of body.
func Excerpt(body []byte) string {
	if utf8.RuneCount(body) <= excerptLimit {
		return string(body)
	}
	runes := []rune(string(body))
	return string(runes[:excerptLimit]) + "…"
}
