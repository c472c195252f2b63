package claude

import (
	"context"
	"fmt"
	"net/http"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/pkg/errors"
)

var (
	// ErrStreamConsumed is yielded when a TextStream is iterated a second time.
	ErrStreamConsumed = errors.New("claude: stream already consumed")
	// ErrStreamIncomplete is returned by TextStream.Result before the stream was drained.
	ErrStreamIncomplete = errors.New("claude: stream not fully drained")
)

// ConfigurationError reports a client that cannot be constructed, such as a
// missing API credential.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "claude: configuration: " + e.Reason
}

// UnknownModelError reports a model identifier absent from the registry.
type UnknownModelError struct {
	Model string
}

func (e *UnknownModelError) Error() string {
	return fmt.Sprintf("claude: unknown model %q", e.Model)
}

// InvalidRequestError reports request parameters rejected before any network call.
type InvalidRequestError struct {
	Field  string
	Reason string
}

func (e *InvalidRequestError) Error() string {
	return fmt.Sprintf("claude: invalid request: %s: %s", e.Field, e.Reason)
}

// TransientTransportError is a failure the transport already retried: a
// timeout, rate limit, server error or network failure.
type TransientTransportError struct {
	StatusCode int
	Attempts   int
	Err        error
}

func (e *TransientTransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("claude: transient transport error (status %d, %d attempts): %v", e.StatusCode, e.Attempts, e.Err)
	}
	return fmt.Sprintf("claude: transient transport error (%d attempts): %v", e.Attempts, e.Err)
}

func (e *TransientTransportError) Unwrap() error { return e.Err }

// PermanentTransportError is a failure that retrying cannot fix, such as
// rejected credentials or a malformed request.
type PermanentTransportError struct {
	StatusCode int
	Err        error
}

func (e *PermanentTransportError) Error() string {
	return fmt.Sprintf("claude: permanent transport error (status %d): %v", e.StatusCode, e.Err)
}

func (e *PermanentTransportError) Unwrap() error { return e.Err }

// IsRetryable reports whether err is a transient transport failure.
func IsRetryable(err error) bool {
	var transient *TransientTransportError
	return errors.As(err, &transient)
}

func isRetryableStatus(code int) bool {
	switch code {
	case http.StatusRequestTimeout, http.StatusConflict, http.StatusTooManyRequests:
		return true
	}
	return code >= http.StatusInternalServerError
}

// classifyError maps a transport failure onto the error taxonomy. attempts is
// the number of requests the transport was allowed to make.
func classifyError(err error, attempts int) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return errors.Wrap(err, "claude: request canceled")
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &TransientTransportError{Attempts: attempts, Err: err}
	}

	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		if isRetryableStatus(apiErr.StatusCode) {
			return &TransientTransportError{StatusCode: apiErr.StatusCode, Attempts: attempts, Err: err}
		}
		return &PermanentTransportError{StatusCode: apiErr.StatusCode, Err: err}
	}

	// Anything without an HTTP status is a connection-level failure.
	return &TransientTransportError{Attempts: attempts, Err: err}
}
