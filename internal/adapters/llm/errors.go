package llm

import "errors"

var (
	// ErrRequest is returned when the generate call cannot be sent or read.
	ErrRequest = errors.New("llm request failed")
	// ErrStatus is returned for a non-2xx response.
	ErrStatus = errors.New("llm returned an error status")
	// ErrEmptyResponse is returned when the model produced no text.
	ErrEmptyResponse = errors.New("llm returned an empty response")
)
