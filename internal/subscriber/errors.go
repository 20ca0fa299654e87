package subscriber

import (
	"errors"
	"fmt"
)

// Operations reported in FatalError.Op.
const (
	OpConnect    = "connect"
	OpConnection = "connection"
	OpSubscribe  = "subscribe"
)

// Sentinel errors for Manager misuse.
var (
	// ErrAlreadyStarted is returned when Start is called more than once.
	ErrAlreadyStarted = errors.New("subscriber: already started")

	// ErrNotStarted is returned when Run is called before a successful Start.
	ErrNotStarted = errors.New("subscriber: not started")

	// ErrStopped is returned by Start when Stop ran before it finished.
	ErrStopped = errors.New("subscriber: stopped during start")
)

// FatalError is a transport failure the process cannot recover from.
type FatalError struct {
	Op  string
	Err error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("subscriber: fatal %s error: %v", e.Op, e.Err)
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// IsFatal reports whether err carries a *FatalError.
func IsFatal(err error) bool {
	var fe *FatalError
	return errors.As(err, &fe)
}
