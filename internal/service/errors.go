package service

import (
	"errors"
	"fmt"
)

// ErrNoUserMessage means the history contains no USER-role message, so
// there is nothing to answer. Maps to a client error, not a server one.
var ErrNoUserMessage = errors.New("conversation has no user message")

// UpstreamError wraps a failure from one of the external providers the
// pipeline depends on. Stage names which step failed.
type UpstreamError struct {
	Stage string
	Err   error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream %s failed: %v", e.Stage, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

func upstream(stage string, err error) error {
	return &UpstreamError{Stage: stage, Err: err}
}
