package models

import "fmt"

// InvalidArgumentError reports a bad construction or query parameter. It is
// a caller mistake and is never retried.
type InvalidArgumentError struct {
	Field  string
	Reason string
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// TransportError reports that a connection could not be established or was
// lost before a response arrived. The whole operation may be retried by the
// caller.
type TransportError struct {
	Op  string
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s %s: %v", e.Op, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// MalformedResponseError reports a response that decoded but did not carry
// the expected shape. It usually indicates a remote contract change and is
// not retried automatically.
type MalformedResponseError struct {
	Method string
	Reason string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed response to %s: %s", e.Method, e.Reason)
}

// ParseError reports an instrument identifier or date token that could not
// be interpreted during enrichment. A single ParseError aborts the whole
// batch so a partial snapshot is never published.
type ParseError struct {
	Field  string
	Input  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s from %q: %s", e.Field, e.Input, e.Reason)
}
