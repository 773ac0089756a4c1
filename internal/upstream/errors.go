package upstream

import (
	"errors"
	"fmt"
)

// ErrNotElevated is returned for admin-scoped calls without a live
// elevation token.
var ErrNotElevated = errors.New("upstream: admin elevation required")

// StatusError carries the HTTP status at the boundary where upstream
// responses are translated into errors. Downstream code classifies errors
// through Classify instead of inspecting response shapes.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("upstream: status %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("upstream: status %d", e.Status)
}

// Class tags an error for the retry policy.
type Class int

const (
	// ClassTransient errors (network failures, 5xx) are retried.
	ClassTransient Class = iota

	// ClassClient errors (4xx) are surfaced immediately and never retried.
	ClassClient

	// ClassOther covers errors without an attached status; retried like
	// transient ones.
	ClassOther
)

// Classify tags an error. Only a status in [400,500) makes it a client
// error.
func Classify(err error) Class {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		if statusErr.Status >= 400 && statusErr.Status < 500 {
			return ClassClient
		}
		return ClassTransient
	}
	return ClassOther
}

// Retryable reports whether the read retry policy may attempt again.
func Retryable(err error) bool {
	return Classify(err) != ClassClient
}
