package gateway

import "errors"

// Only these errors cross the gateway boundary as failures. Upstream-side
// problems degrade to an empty, well-formed result instead.

// ErrEmptyQuery reports that no user question could be extracted from the
// input. Caller-visible as a 400-equivalent.
var ErrEmptyQuery = errors.New("no user question found in input")

// ConfigError reports a required setting missing after defaulting. Fatal and
// not retryable.
type ConfigError struct {
	Err error
}

func (e *ConfigError) Error() string { return "configuration error: " + e.Err.Error() }

func (e *ConfigError) Unwrap() error { return e.Err }

// AuthError reports a failed credential acquisition. Fatal for the call;
// retryable by the caller once identity or config is fixed.
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string { return "authentication error: " + e.Err.Error() }

func (e *AuthError) Unwrap() error { return e.Err }
