package sessions

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionActive is returned by Start when a session is already running
	ErrSessionActive = errors.New("a deep work session is already active")
	// ErrNoActiveSession is returned by Stop and Status when nothing is running
	ErrNoActiveSession = errors.New("no active deep work session")
)

// IOError wraps a failure to open, read, write or remove one of the session files
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("failed to %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// ValidationError reports input that cannot be stored
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}
