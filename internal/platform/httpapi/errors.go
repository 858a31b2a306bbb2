package httpapi

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// Kind classifies report-query failures into the categories the dashboard
// distinguishes.
type Kind string

const (
	// KindInvalidWindow marks missing or malformed request parameters.
	KindInvalidWindow Kind = "InvalidWindow"
	// KindDataSourceUnavailable marks connection/pool acquisition failures.
	KindDataSourceUnavailable Kind = "DataSourceUnavailable"
	// KindQueryExecution marks failures in an already-dispatched query.
	KindQueryExecution Kind = "QueryExecutionError"
)

// Error carries a failure kind plus the underlying cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Status maps the kind to its HTTP status code.
func (e *Error) Status() int {
	if e.Kind == KindInvalidWindow {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func InvalidWindow(msg string) *Error {
	return &Error{Kind: KindInvalidWindow, Message: msg}
}

func InvalidWindowErr(err error) *Error {
	return &Error{Kind: KindInvalidWindow, Message: err.Error(), Err: err}
}

func DataSourceUnavailable(err error) *Error {
	return &Error{Kind: KindDataSourceUnavailable, Message: "data source unavailable", Err: err}
}

func QueryExecution(err error) *Error {
	return &Error{Kind: KindQueryExecution, Message: "query execution failed", Err: err}
}

// AsError extracts an *Error from an error chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}

// WrapDBError classifies a database failure. Failures to reach the store at
// all (dial errors, a closed pool) are DataSourceUnavailable; anything that
// happened after dispatch is a QueryExecutionError. Already-classified
// errors pass through unchanged.
func WrapDBError(err error) error {
	if err == nil {
		return nil
	}
	if e, ok := AsError(err); ok {
		return e
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return DataSourceUnavailable(err)
	}
	msg := err.Error()
	if strings.Contains(msg, "closed pool") || strings.Contains(msg, "connection refused") {
		return DataSourceUnavailable(err)
	}
	return QueryExecution(err)
}
