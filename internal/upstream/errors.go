// internal/upstream/errors.go
package upstream

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNoData is the single "no data" signal fetchers hand to the aggregator.
	ErrNoData = errors.New("no data")

	// ErrMalformed marks a body that is not the JSON we expected.
	ErrMalformed = errors.New("malformed response")
)

// StatusError is returned for non-200 upstream responses.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code: %d, body: %s", e.Code, e.Body)
}

// IsServerError reports whether err is a 5xx StatusError.
func IsServerError(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code >= http.StatusInternalServerError
	}
	return false
}

// StatusCode extracts the HTTP status of err, or 0.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code
	}
	return 0
}
