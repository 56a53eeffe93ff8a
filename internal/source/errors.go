package source

import (
	"errors"
	"fmt"
)

// FetchError reports that the backend could not be reached or answered with
// a non-200 status.
type FetchError struct {
	URL    string
	Status int
	Body   string
	Err    error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("fetch %s: status %d, body: %s", e.URL, e.Status, e.Body)
}

func (e *FetchError) Unwrap() error { return e.Err }

// DecodeError reports a backend payload that is not the expected JSON shape.
type DecodeError struct {
	URL string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.URL, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// IsTransient reports whether err is a fetch or decode failure that the next
// tick may not hit again.
func IsTransient(err error) bool {
	var fe *FetchError
	var de *DecodeError
	return errors.As(err, &fe) || errors.As(err, &de)
}
