package credentials

import "errors"

var (
	// ErrUnavailable is returned when the credential service cannot be
	// reached or refuses the request.
	ErrUnavailable = errors.New("credentials: service unavailable")

	// ErrMalformed is returned when the credential string is not "id:secret".
	ErrMalformed = errors.New("credentials: malformed credential string")
)
