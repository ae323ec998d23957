package trino

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"
)

// Execute prepares a lazy execution of the given SQL statement. No request
// is issued until the first call to Next; each Next performs exactly one
// round trip against the server. The per-call options apply only to the
// initial submission, not to continuation requests.
func (s *Session) Execute(sql string, opts ...RequestOption) *Execution {
	return &Execution{
		session: s,
		sql:     sql,
		opts:    opts,
	}
}

// Execution drives the submit/poll loop of one statement. It is a
// single-consumer, pull-based cursor in the style of bufio.Scanner: call
// Next until it returns false, read each window with Result, then check Err
// for the terminal failure, if any.
//
// A consumer observes zero or more successful windows followed by at most
// one failure. After any failure (transport, HTTP, or server-reported)
// the execution is done; the client never resumes or retries. Envelopes
// arrive strictly in server-response order with a single request in flight.
type Execution struct {
	session *Session
	sql     string
	opts    []RequestOption

	current *QueryResults
	err     error
	nextURI string
	started bool
	done    bool
}

// Next fetches the next result window, performing one HTTP round trip. It
// returns true if a window was received, false once the execution completed
// or failed. The first call submits the statement; subsequent calls follow
// the server's continuation reference.
func (e *Execution) Next(ctx context.Context) bool {
	if e.done {
		return false
	}

	var (
		req *http.Request
		err error
	)
	if !e.started {
		e.started = true
		req, err = e.session.NewRequest(http.MethodPost, statementPath, e.sql, e.opts...)
	} else {
		// Continuation requests carry defaults, session state, and
		// authorization only; per-call options are not reapplied.
		req, err = e.session.NewRequest(http.MethodGet, e.nextURI, nil)
	}
	if err != nil {
		return e.fail(&FetchError{Err: err})
	}

	qr := new(QueryResults)
	if _, err := e.session.Do(ctx, req, qr); err != nil {
		if ctx.Err() != nil && e.nextURI != "" {
			// Best effort: tell the server to stop the abandoned query.
			// Background context, since ctx is already dead.
			if cancelErr := e.session.Cancel(context.Background(), e.nextURI); cancelErr != nil {
				log.Debug().Err(cancelErr).Str("query_id", e.QueryID()).Msg("failed to cancel query after context cancellation")
			}
		}
		return e.fail(err)
	}

	if qr.Error != nil {
		// A protocol error terminates the loop even if the payload still
		// carries a continuation reference.
		return e.fail(classifyQueryError(qr.Error))
	}

	e.current = qr
	if qr.NextUri != nil {
		e.nextURI = *qr.NextUri
	} else {
		e.nextURI = ""
		e.done = true
	}
	return true
}

func (e *Execution) fail(err error) bool {
	e.err = err
	e.done = true
	return false
}

// Result returns the most recent window received by Next.
func (e *Execution) Result() *QueryResults {
	return e.current
}

// Err returns the terminal failure of the execution, or nil. The error is
// always one of *FetchError, *HTTPError, or *QueryError.
func (e *Execution) Err() error {
	return e.err
}

// Done reports whether the execution finished, successfully or not.
func (e *Execution) Done() bool {
	return e.done
}

// QueryID returns the server-assigned query id, or "" before the first
// response arrives.
func (e *Execution) QueryID() string {
	if e.current == nil {
		return ""
	}
	return e.current.Id
}

// CancelURI returns a reference suitable for Session.Cancel: the partial
// cancel URI if the server provided one, otherwise the pending continuation
// reference. Empty when the execution is complete.
func (e *Execution) CancelURI() string {
	if e.current != nil && e.current.PartialCancelUri != nil {
		return *e.current.PartialCancelUri
	}
	return e.nextURI
}

// Each consumes the remaining windows, invoking handler for every one, and
// returns the terminal failure, if any. A handler error stops consumption
// without cancelling the statement on the server.
func (e *Execution) Each(ctx context.Context, handler func(*QueryResults) error) error {
	for e.Next(ctx) {
		if handler == nil {
			continue
		}
		if err := handler(e.current); err != nil {
			return fmt.Errorf("result handler failed for query %s: %w", e.QueryID(), err)
		}
	}
	return e.err
}

// Query submits the statement and consumes every result window eagerly,
// returning the decoded rows, the columns, and the final window. Use Execute
// directly for lazy, window-at-a-time consumption.
func (s *Session) Query(ctx context.Context, sql string, opts ...RequestOption) ([]QueryRow, []Column, *QueryResults, error) {
	var (
		rows    []QueryRow
		columns []Column
	)
	exec := s.Execute(sql, opts...)
	err := exec.Each(ctx, func(qr *QueryResults) error {
		if columns == nil && len(qr.Columns) > 0 {
			columns = qr.Columns
		}
		decoded, err := qr.DecodedRows()
		if err != nil {
			return err
		}
		rows = append(rows, decoded...)
		return nil
	})
	if err != nil {
		return nil, nil, exec.Result(), err
	}
	return rows, columns, exec.Result(), nil
}

// Cancel issues a DELETE against a continuation or cancel reference,
// asking the server to terminate the statement. It returns nil on any 2xx
// response, *HTTPError otherwise, and *FetchError on transport failure.
// Session state is never touched and the response body is ignored: a
// consumer still polling the statement observes the cancellation as a later
// USER_CANCELED query failure, not as a local abort.
func (s *Session) Cancel(ctx context.Context, uri string, opts ...RequestOption) error {
	req, err := s.NewRequest(http.MethodDelete, uri, nil, opts...)
	if err != nil {
		return &FetchError{Err: err}
	}

	resp, err := s.roundTrip(ctx, req)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newHTTPError(resp)
	}
	if err := resp.Body.Close(); err != nil {
		log.Debug().Err(err).Msg("failed to close cancel response body")
	}
	return nil
}

// Prepare registers a named prepared statement on the session by executing
// PREPARE. The server acknowledges with an added-prepare directive, which
// the session folds into the prepared-statement set for later EXECUTE calls.
func (s *Session) Prepare(ctx context.Context, name, sql string, opts ...RequestOption) error {
	if name == "" {
		return errors.New("prepared statement name must not be empty")
	}
	_, _, _, err := s.Query(ctx, fmt.Sprintf("PREPARE %s FROM %s", name, sql), opts...)
	return err
}

// Deallocate removes a named prepared statement from the session via
// DEALLOCATE PREPARE and the server's deallocated-prepare directive.
func (s *Session) Deallocate(ctx context.Context, name string, opts ...RequestOption) error {
	if name == "" {
		return errors.New("prepared statement name must not be empty")
	}
	_, _, _, err := s.Query(ctx, "DEALLOCATE PREPARE "+name, opts...)
	return err
}
