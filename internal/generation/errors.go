package generation

import (
	"errors"
	"fmt"
	"time"
)

// ErrPromptRequired is the only validation failure a raw request can hit;
// every other out-of-domain value is clamped instead of rejected.
var ErrPromptRequired = errors.New("a prompt is required to generate an image")

// ErrUnexpectedOutput reports a success response whose output field yielded
// no usable image URL.
var ErrUnexpectedOutput = errors.New("unexpected output format from the api")

// UpstreamError is a non-2xx response from the forwarding endpoint. Message
// holds the server-provided error text when the endpoint supplied one.
type UpstreamError struct {
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("http error: %d", e.StatusCode)
}

// TimeoutError reports that the client-side deadline elapsed before the
// forwarding endpoint answered. It is deliberately user-actionable.
type TimeoutError struct {
	After time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf(
		"image generation timed out after %s: try a simpler prompt, fewer steps, or a smaller resolution",
		e.After,
	)
}
