package generator

import "fmt"

// SchemaError means the model answered but the payload is not a valid article
type SchemaError struct {
	Message string
	Cause   error
}

func (e *SchemaError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("generated article rejected: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("generated article rejected: %s", e.Message)
}

func (e *SchemaError) Unwrap() error {
	return e.Cause
}

// RequestError means the request could not be turned into a prompt
type RequestError struct {
	Message string
	Cause   error
}

func (e *RequestError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("invalid generation request: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("invalid generation request: %s", e.Message)
}

func (e *RequestError) Unwrap() error {
	return e.Cause
}
