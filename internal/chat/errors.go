package chat

import (
	"errors"
	"fmt"
)

// ErrNoReply marks a completion that returned no assistant text.
var ErrNoReply = errors.New("completion returned no reply")

// CompletionError reports a failed completion API call. The turn that hit it
// persisted nothing.
type CompletionError struct {
	Reason    string
	Retryable bool
	Err       error
}

func (e *CompletionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("completion failed (%s)", e.Reason)
	}
	return fmt.Sprintf("completion failed (%s): %v", e.Reason, e.Err)
}

func (e *CompletionError) Unwrap() error {
	return e.Err
}

// Timeout reports whether the completion call ran out of time.
func (e *CompletionError) Timeout() bool {
	return e.Reason == "timeout"
}
