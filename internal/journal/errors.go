package journal

import "errors"

// ErrInvalidOutcome is returned when an entry or filter names an unknown outcome.
var ErrInvalidOutcome = errors.New("invalid outcome")
