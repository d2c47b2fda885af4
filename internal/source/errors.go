package source

import (
	"fmt"
)

// TransportError indicates the catalog could not be retrieved: the request
// failed, the server answered with a non-2xx status, or the body could not be
// read.
type TransportError struct {
	// StatusCode is the HTTP status, or 0 when no response was received.
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("catalog source responded with status %d", e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("catalog source unavailable: %v", e.Err)
	default:
		return "catalog source unavailable"
	}
}

func (e *TransportError) Unwrap() error { return e.Err }

// MalformedError indicates the payload does not have the expected shape. A
// single bad product fails the whole response.
type MalformedError struct {
	// Field locates the problem, e.g. "products[3].price". Empty for the root.
	Field  string
	Reason string
	Err    error
}

func (e *MalformedError) Error() string {
	msg := "malformed catalog response"
	if e.Field != "" {
		msg += ": " + e.Field
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *MalformedError) Unwrap() error { return e.Err }
