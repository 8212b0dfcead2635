package adapter

import (
	"errors"
	"fmt"
)

// ErrNoMessages is returned before any network call when the message list is empty.
var ErrNoMessages = errors.New("adapter: at least one message is required")

// TransportError means the exchange with the provider could not be completed:
// connection failure, timeout, cancellation or a non-2xx status.
type TransportError struct {
	Provider   string
	StatusCode int // 0 when no HTTP response was received
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: transport error [%d]: %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: transport error: %v", e.Provider, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// MalformedResponseError means the provider answered but the body could not be
// interpreted or held no usable assistant content.
type MalformedResponseError struct {
	Provider string
	Reason   string
	Err      error
}

func (e *MalformedResponseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: malformed response: %s: %v", e.Provider, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: malformed response: %s", e.Provider, e.Reason)
}

func (e *MalformedResponseError) Unwrap() error {
	return e.Err
}

// IsTransportError checks if an error is a TransportError.
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsMalformedResponseError checks if an error is a MalformedResponseError.
func IsMalformedResponseError(err error) bool {
	var me *MalformedResponseError
	return errors.As(err, &me)
}

func checkMessages(messages []ChatMessage) error {
	if len(messages) == 0 {
		return ErrNoMessages
	}
	return nil
}
