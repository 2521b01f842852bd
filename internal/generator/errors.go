package generator

import (
	"errors"
	"fmt"
)

// Static errors for provider operations.
var (
	// ErrUnknownProvider is returned when a provider ID is not in the registry.
	ErrUnknownProvider = errors.New("generator: unknown provider")
	// ErrInvalidSource is returned when an adapter produces a malformed Source.
	ErrInvalidSource = errors.New("generator: invalid source")
	// ErrPollTimeout is returned when a provider does not finish before the poll deadline.
	ErrPollTimeout = errors.New("generator: generation timed out")
	// ErrCredentialMissing is returned when an adapter is built without its credential.
	ErrCredentialMissing = errors.New("generator: credential is required")
)

// AuthError reports a rejected or missing credential. It is never retried.
type AuthError struct {
	Provider string
	Err      error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s: authentication failed: %v", e.Provider, e.Err)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// TransientError reports a failure that was retried until the adapter's
// retry budget ran out (rate limiting, 5xx, transport errors, poll deadline).
type TransientError struct {
	Provider string
	Err      error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s: transient failure: %v", e.Provider, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// UnsupportedParameterError reports a request the provider cannot serve,
// such as a duration above its maximum. The caller can correct it.
type UnsupportedParameterError struct {
	Provider string
	Param    string
	Reason   string
}

func (e *UnsupportedParameterError) Error() string {
	if e.Param == "" {
		return fmt.Sprintf("%s: unsupported request: %s", e.Provider, e.Reason)
	}
	return fmt.Sprintf("%s: unsupported %s: %s", e.Provider, e.Param, e.Reason)
}

// GenerationError reports that the provider accepted the request but the
// generation itself failed or was cancelled on the provider's side.
type GenerationError struct {
	Provider string
	Status   string
	Reason   string
}

func (e *GenerationError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%s: generation %s", e.Provider, e.Status)
	}
	return fmt.Sprintf("%s: generation %s: %s", e.Provider, e.Status, e.Reason)
}

// IsRetryable returns true if err is a TransientError.
func IsRetryable(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// IsFatal returns true for errors that must not be retried.
func IsFatal(err error) bool {
	var (
		ae *AuthError
		ue *UnsupportedParameterError
		ge *GenerationError
	)
	return errors.As(err, &ae) || errors.As(err, &ue) || errors.As(err, &ge)
}
