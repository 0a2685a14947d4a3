package transfer

import (
	"errors"
	"fmt"
)

// ErrLowSpeed is the cause recorded when a transfer is aborted because its
// measured throughput stayed below the configured floor for a full window.
var ErrLowSpeed = errors.New("transfer speed below configured floor")

// ErrBodyRejected is the cause recorded when the body callback accepts
// fewer bytes than it was handed. The engine treats a short count as a
// write failure and aborts the transfer.
var ErrBodyRejected = errors.New("body chunk rejected by write callback")

// ErrHeaderRejected is the cause recorded when the header callback refuses
// a header line, typically because it could not be decoded.
var ErrHeaderRejected = errors.New("header line rejected by header callback")

// ConfigError reports an illegal option value detected before any I/O.
// A submission that fails configuration resolves immediately; no transfer
// is attempted.
type ConfigError struct {
	Option string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid transfer configuration: %s: %s", e.Option, e.Reason)
}

// Failure reports a transfer that started but did not complete: DNS or
// connect errors, TLS failures, timeouts, low-speed aborts, and callback
// rejections all surface as a Failure wrapping the underlying cause.
type Failure struct {
	URL string
	Err error
}

func (e *Failure) Error() string {
	return fmt.Sprintf("transfer failed for %s: %v", e.URL, e.Err)
}

func (e *Failure) Unwrap() error {
	return e.Err
}
