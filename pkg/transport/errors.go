package transport

import (
	"context"
	"errors"
	"fmt"
)

// HTTPError reports a non-OK response to a stream open. Body holds the
// decoded JSON error payload when the server sent one, otherwise the raw
// response text.
type HTTPError struct {
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("stream open failed with status %d: %s", e.Status, e.Body)
}

// ProtocolError reports a malformed frame on an otherwise healthy stream:
// wrong content type, or a data payload that is not valid JSON.
type ProtocolError struct {
	Reason string
}

func (e *ProtocolError) Error() string {
	return "protocol error: " + e.Reason
}

// RunFailedError is raised when the server reports thread.run.failed. The
// message is the server-supplied last_error.message.
type RunFailedError struct {
	Message string
}

func (e *RunFailedError) Error() string {
	return "run failed: " + e.Message
}

// IsAbort reports whether err is the expected outcome of cooperative
// cancellation rather than a true failure.
func IsAbort(err error) bool {
	return errors.Is(err, context.Canceled)
}
