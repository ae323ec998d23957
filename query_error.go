package trino

import (
	"errors"
	"fmt"
	"io"
	"net/http"
)

// Failure is the common surface of every error the client produces for an
// expected failure mode. Exactly one concrete type backs each kind:
// *FetchError (KindFetch), *HTTPError (KindHTTP), and *QueryError for the
// four server-reported kinds.
type Failure interface {
	error
	Kind() ErrorKind
}

var (
	_ Failure = (*FetchError)(nil)
	_ Failure = (*HTTPError)(nil)
	_ Failure = (*QueryError)(nil)
)

// KindOf extracts the ErrorKind from an error produced by this client.
// It returns KindFetch, false for errors that are not protocol failures.
func KindOf(err error) (ErrorKind, bool) {
	var f Failure
	if errors.As(err, &f) {
		return f.Kind(), true
	}
	return KindFetch, false
}

// --- Fetch failures ---

// FetchError wraps a transport-level failure: a connection error, a request
// that could not be built, or a 2xx body that failed to parse. Whether a
// fetch failure is worth retrying is the caller's decision; the client never
// retries.
type FetchError struct {
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch failed: %v", e.Err)
}

// Unwrap exposes the underlying transport error to errors.Is/As.
func (e *FetchError) Unwrap() error { return e.Err }

// Kind implements Failure.
func (e *FetchError) Kind() ErrorKind { return KindFetch }

// --- HTTP failures ---

// HTTPError wraps a non-2xx response. The raw response is kept for caller
// inspection; its body has already been read into Message and closed.
type HTTPError struct {
	// Response is the original HTTP response with a drained body.
	Response *http.Response

	// Message is the raw response body.
	Message string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s (status code: %d)", e.Message, e.Response.StatusCode)
}

// Kind implements Failure.
func (e *HTTPError) Kind() ErrorKind { return KindHTTP }

// StatusCode returns the response status code.
func (e *HTTPError) StatusCode() int { return e.Response.StatusCode }

// newHTTPError drains and closes the response body and wraps the response.
func newHTTPError(resp *http.Response) error {
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &FetchError{Err: err}
	}
	return &HTTPError{
		Response: resp,
		Message:  string(body),
	}
}

// --- Server-reported query failures ---

// QueryError is a structured error reported by the server in a statement
// response payload. It contains the numeric code, the symbolic name from the
// server's error vocabulary, the errorType discriminant, and optionally the
// source location and nested cause chain.
type QueryError struct {
	// Message is the human-readable error message
	Message string `json:"message"`

	// ErrorCode is a numeric code identifying the error
	ErrorCode int `json:"errorCode"`

	// ErrorName is the symbolic identifier, e.g. "SYNTAX_ERROR" or
	// "USER_CANCELED"
	ErrorName string `json:"errorName"`

	// ErrorType is the category discriminant: USER_ERROR, INTERNAL_ERROR,
	// EXTERNAL, or INSUFFICIENT_RESOURCES
	ErrorType string `json:"errorType"`

	// Retriable indicates whether the server considers the query retriable
	Retriable bool `json:"retriable"`

	// ErrorLocation points at the failing position in the SQL text
	ErrorLocation *ErrorLocation `json:"errorLocation,omitempty"`

	// FailureInfo carries the nested cause chain and stack
	FailureInfo *FailureInfo `json:"failureInfo,omitempty"`

	kind ErrorKind
}

// String returns "ErrorName: Message".
func (q *QueryError) String() string {
	if q == nil {
		return "nil QueryError"
	}
	return fmt.Sprintf("%s: %s", q.ErrorName, q.Message)
}

// Error implements the error interface.
func (q *QueryError) Error() string {
	return q.String()
}

// Kind implements Failure.
func (q *QueryError) Kind() ErrorKind { return q.kind }

// classifyQueryError resolves the errorType discriminant into an ErrorKind
// and stamps it on the error. The mapping is total over the protocol's
// documented errorType values; an unrecognized value is a contract breach by
// the server and panics rather than being coerced into a known kind.
func classifyQueryError(q *QueryError) *QueryError {
	kind, err := ParseErrorKind(q.ErrorType)
	if err != nil || !kind.serverReported() {
		panic(fmt.Sprintf("trino: server reported unknown errorType %q (error %q)", q.ErrorType, q.ErrorName))
	}
	q.kind = kind
	return q
}

// ErrorLocation is the position in the SQL text where an error occurred.
type ErrorLocation struct {
	// LineNumber is the 1-based line number
	LineNumber int `json:"lineNumber"`

	// ColumnNumber is the 1-based column number
	ColumnNumber int `json:"columnNumber"`
}

// String returns "line LineNumber:ColumnNumber".
func (e *ErrorLocation) String() string {
	return fmt.Sprintf("line %d:%d", e.LineNumber, e.ColumnNumber)
}

// FailureInfo is the nested cause chain of a query failure.
type FailureInfo struct {
	// Type is the server-side exception class name
	Type string `json:"type"`

	// Message is the exception message
	Message string `json:"message,omitempty"`

	// Cause is the nested failure that caused this one
	Cause *FailureInfo `json:"cause,omitempty"`

	// Suppressed contains any suppressed failures
	Suppressed []FailureInfo `json:"suppressed"`

	// Stack contains the stack trace elements
	Stack []string `json:"stack"`

	// ErrorLocation points at the failing position in the SQL text
	ErrorLocation *ErrorLocation `json:"errorLocation,omitempty"`
}
