package storekiterrors

import (
	"errors"
	"fmt"
)

var ErrInvalidURL = errors.New("invalid url")

var ErrInvalidKeyMaterial = errors.New("invalid private key")

var ErrSigningFailure = errors.New("failed to sign")

var ErrNoToken = errors.New("no token")

// ErrNoData is reported when a request completes without a usable response body.
var ErrNoData = errors.New("no data found")

var ErrNoTransactionsFound = errors.New("no transaction found")

var ErrMalformedResponse = errors.New("malformed response body")

// TransportError carries the HTTP status code of a request that returned no body.
// A status code of 0 means no HTTP response was received at all.
type TransportError struct {
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s, http status: %d: %v", ErrNoData, e.StatusCode, e.Err)
	}

	return fmt.Sprintf("%s, http status: %d", ErrNoData, e.StatusCode)
}

func (e *TransportError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrNoData, e.Err}
	}

	return []error{ErrNoData}
}

var ErrUnknownKeyID = errors.New("unknown key id")
