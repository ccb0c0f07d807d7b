// Package api
// Author: momentics <momentics@gmail.com>
//
// Sentinel errors and the transition error for hioload-relay.

package api

import (
	"errors"
	"fmt"
)

// Common errors used across the library.
var (
	ErrInvalidTransition = errors.New("invalid machine transition")
	ErrInvalidConfig     = errors.New("invalid configuration")
	ErrNotSupported      = errors.New("operation not supported")
)

// TransitionError reports a lifecycle call that a machine can never accept.
// It signals a driver or registration bug, not a runtime condition.
type TransitionError struct {
	Machine    string
	Transition string
	Token      Token
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s (token %d) cannot accept %s: %v",
		e.Machine, e.Token, e.Transition, ErrInvalidTransition)
}

// Unwrap allows errors.Is(err, ErrInvalidTransition).
func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}
