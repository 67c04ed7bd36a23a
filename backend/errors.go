package backend

import (
	"errors"
	"fmt"
)

// NetworkError is a transport failure or a response body that could not be decoded.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// RejectionError is a non-2xx response. Detail is the backend's own message
// when the body carried one; Error() then returns it verbatim.
type RejectionError struct {
	Op         string
	StatusCode int
	Detail     string
	fallback   string
}

func (e *RejectionError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return e.fallback
}

func IsNetworkError(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}

func IsRejection(err error) bool {
	var re *RejectionError
	return errors.As(err, &re)
}
