// Package trinotest provides an in-process mock Trino coordinator for
// integration-style tests of the statement protocol: templated queries,
// result batching, session directives, cancellation, and HTTP fault
// injection.
package trinotest

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	trino "github.com/openlakehouse/trino-go"
)

// QueryState represents the life-cycle stages of a statement.
type QueryState string

const (
	// QueryStateQueued indicates the query is waiting for coordinator resources.
	QueryStateQueued QueryState = "QUEUED"
	// QueryStateRunning indicates the query is actively being processed.
	QueryStateRunning QueryState = "RUNNING"
	// QueryStateCancelled indicates execution was terminated by the user.
	QueryStateCancelled QueryState = "CANCELLED"
	// QueryStateFinished indicates successful completion.
	QueryStateFinished QueryState = "FINISHED"
	// QueryStateFailed indicates an execution or planning error occurred.
	QueryStateFailed QueryState = "FAILED"
)

// String returns the string representation of the QueryState.
func (qs QueryState) String() string {
	return string(qs)
}

// generateMockSlug creates a random string to stand in for the security slug
// the real coordinator embeds in statement URLs.
func generateMockSlug() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// QueryTemplate defines the canned behavior for one SQL string. The server
// divides Data into DataBatches sequential windows using ceiling division,
// keeps the client polling batch 0 for QueueBatches rounds first, and can
// fail the whole exchange with either a structured Error payload or a raw
// HTTPStatus.
type QueryTemplate struct {
	SQL          string             // SQL text used for template matching
	DataBatches  int                // number of data windows, capped by row count
	QueueBatches int                // rounds spent in QUEUED state, at least 1
	Columns      []trino.Column     // result set metadata
	Data         [][]any            // full result set, split across windows
	Error        *trino.QueryError  // structured failure to report, if any
	ErrorAtBatch int                // window index at which Error is reported (0 = first response)
	HTTPStatus   int                // non-zero: answer with this raw status instead of a payload
	Directives   http.Header        // session directives attached to the first response
	Latency      time.Duration      // total simulated latency, spread over the exchange
}

// activeQuery is a live execution instance of a template.
type activeQuery struct {
	ID        string
	Template  *QueryTemplate
	State     QueryState
	QueuedFor int // rounds spent so far in the QUEUED state
}

// RecordedRequest captures one request the mock received, for header and
// ordering assertions.
type RecordedRequest struct {
	Method string
	Path   string
	Header http.Header
}

// Server simulates a Trino coordinator on a local httptest listener.
type Server struct {
	server *httptest.Server

	// templates maps SQL strings to their registered blueprints.
	templates map[string]*QueryTemplate

	// activeQueries maps execution IDs to their current state.
	activeQueries map[string]*activeQuery

	// requests records every request received, in order.
	requests []RecordedRequest

	mu sync.RWMutex // protects the maps and the request log

	// defaultLatency is the fallback latency when a template sets none.
	defaultLatency time.Duration

	queryIDCounter atomic.Int64
	today          string // cached date string for ID generation
}

// NewServer starts a mock coordinator.
func NewServer() *Server {
	mock := &Server{
		templates:     make(map[string]*QueryTemplate),
		activeQueries: make(map[string]*activeQuery),
		today:         time.Now().Format("20060102"),
	}

	mux := http.NewServeMux()

	// POST /v1/statement: submit a statement.
	mux.HandleFunc("POST /v1/statement", mock.handleSubmit)

	// GET /v1/statement/{status}/{queryId}/{batchId}: poll the next window.
	mux.HandleFunc("GET /v1/statement/{status}/{queryId}/{batchId}", mock.handlePoll)

	// DELETE /v1/statement/{status}/{queryId}/{batchId}: cancel a query.
	mux.HandleFunc("DELETE /v1/statement/{status}/{queryId}/{batchId}", mock.handleCancel)

	mock.server = httptest.NewServer(mock.record(mux))

	return mock
}

// AddQuery registers a template, normalizing its batch counts.
func (m *Server) AddQuery(tmpl *QueryTemplate) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if totalRows := len(tmpl.Data); totalRows < tmpl.DataBatches {
		tmpl.DataBatches = totalRows
	}
	if tmpl.QueueBatches < 1 {
		tmpl.QueueBatches = 1
	}

	m.templates[tmpl.SQL] = tmpl
}

// SetDefaultLatency configures the fallback query latency.
func (m *Server) SetDefaultLatency(latency time.Duration) {
	m.defaultLatency = latency
}

// Requests returns a snapshot of every request received so far.
func (m *Server) Requests() []RecordedRequest {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]RecordedRequest(nil), m.requests...)
}

// RequestCount returns the number of requests received so far.
func (m *Server) RequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.requests)
}

// record logs every request before dispatching it.
func (m *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		m.requests = append(m.requests, RecordedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Header: r.Header.Clone(),
		})
		m.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

// --- Request Handlers ---

func (m *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	sql := string(body)

	m.mu.RLock()
	template, exists := m.templates[sql]
	m.mu.RUnlock()

	if !exists {
		template = &QueryTemplate{
			SQL:          sql,
			DataBatches:  1,
			QueueBatches: 1,
			Columns:      []trino.Column{{Name: "result", Type: "varchar"}},
			Data:         [][]any{{"Query template not found; default success"}},
		}
	}

	queryID := m.newQueryID()
	m.mu.Lock()
	m.activeQueries[queryID] = &activeQuery{
		ID:       queryID,
		Template: template,
		State:    QueryStateQueued,
	}
	m.mu.Unlock()

	m.sendQueryResponse(w, queryID, 0, true)
}

func (m *Server) handlePoll(w http.ResponseWriter, r *http.Request) {
	batchID, _ := strconv.Atoi(r.PathValue("batchId"))
	m.sendQueryResponse(w, r.PathValue("queryId"), batchID, false)
}

func (m *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("queryId")
	m.mu.Lock()
	if q, ok := m.activeQueries[id]; ok {
		q.State = QueryStateCancelled
	}
	m.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

// --- Protocol Response Logic ---

// writeJSON encodes v as JSON with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(v)
}

// userCanceledError is reported when a cancelled query is polled again.
func userCanceledError() *trino.QueryError {
	code, _ := trino.StandardErrorCode(trino.ErrorNameUserCanceled)
	return &trino.QueryError{
		Message:   "Query was canceled by the user",
		ErrorCode: code,
		ErrorName: trino.ErrorNameUserCanceled,
		ErrorType: "USER_ERROR",
	}
}

// sendQueryResponse prepares the payload for one protocol round trip.
func (m *Server) sendQueryResponse(w http.ResponseWriter, queryID string, batchID int, initial bool) {
	m.mu.RLock()
	query, exists := m.activeQueries[queryID]
	if !exists {
		m.mu.RUnlock()
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Query not found"})
		return
	}

	totalLatency := m.defaultLatency
	if query.Template.Latency > 0 {
		totalLatency = query.Template.Latency
	}

	dataBatchCount := query.Template.DataBatches
	queueBatchCount := query.Template.QueueBatches
	sleepDuration := totalLatency / time.Duration(dataBatchCount+queueBatchCount)
	m.mu.RUnlock()

	if sleepDuration > 0 {
		time.Sleep(sleepDuration)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	query, exists = m.activeQueries[queryID]
	if !exists {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Query removed during processing"})
		return
	}

	// Raw HTTP fault injection preempts any payload.
	if query.Template.HTTPStatus != 0 {
		delete(m.activeQueries, queryID)
		http.Error(w, "injected fault", query.Template.HTTPStatus)
		return
	}

	// Session directives ride on the first response only.
	if initial {
		for name, values := range query.Template.Directives {
			for _, v := range values {
				w.Header().Add(name, v)
			}
		}
	}

	if batchID == 0 {
		query.QueuedFor++
	}
	if query.QueuedFor >= queueBatchCount && query.State == QueryStateQueued {
		query.State = QueryStateRunning
	}

	// A cancelled query reports USER_CANCELED on its next poll.
	var queryError *trino.QueryError
	switch {
	case query.State == QueryStateCancelled:
		queryError = userCanceledError()
	case query.Template.Error != nil && batchID >= query.Template.ErrorAtBatch:
		queryError = query.Template.Error
		query.State = QueryStateFailed
	}

	hasMore := queryError == nil &&
		(query.QueuedFor < queueBatchCount || batchID < dataBatchCount)
	if !hasMore && query.State == QueryStateRunning {
		query.State = QueryStateFinished
	}

	resp := trino.QueryResults{
		Id:      queryID,
		InfoUri: fmt.Sprintf("%s/ui/query.html?%s", m.server.URL, queryID),
		Columns: query.Template.Columns,
		Error:   queryError,
		Stats: trino.StatementStats{
			State:           query.State.String(),
			Scheduled:       query.State != QueryStateQueued,
			TotalSplits:     dataBatchCount,
			CompletedSplits: batchID,
		},
	}

	if hasMore {
		nextBatch := batchID + 1
		// While still queued, keep the client polling batch 0.
		if query.QueuedFor < queueBatchCount {
			nextBatch = 0
		}
		nextUri := fmt.Sprintf("%s/v1/statement/%s/%s/%d?slug=%s",
			m.server.URL, query.State, queryID, nextBatch, generateMockSlug())
		resp.NextUri = &nextUri
	}

	// With zero data windows the whole result set rides on the submit
	// response, completing the statement in a single round trip.
	if queryError == nil && dataBatchCount == 0 && initial && len(query.Template.Data) > 0 {
		resp.Data = make([]json.RawMessage, len(query.Template.Data))
		for i, row := range query.Template.Data {
			resp.Data[i], _ = json.Marshal(row)
		}
	}

	// Otherwise data is delivered sequentially across the windows.
	if queryError == nil && batchID > 0 && dataBatchCount > 0 && len(query.Template.Data) > 0 {
		rowsPerBatch := (len(query.Template.Data) + dataBatchCount - 1) / dataBatchCount
		start := (batchID - 1) * rowsPerBatch
		if start < len(query.Template.Data) {
			end := min(start+rowsPerBatch, len(query.Template.Data))
			batchRows := query.Template.Data[start:end]
			resp.Data = make([]json.RawMessage, len(batchRows))
			for i, row := range batchRows {
				resp.Data[i], _ = json.Marshal(row)
			}
		}
	}

	if query.State == QueryStateFinished || query.State == QueryStateCancelled || query.State == QueryStateFailed {
		delete(m.activeQueries, queryID)
	}

	writeJSON(w, http.StatusOK, resp)
}

func (m *Server) newQueryID() string {
	return fmt.Sprintf("%s_%d", m.today, m.queryIDCounter.Add(1))
}

// URL returns the base URL of the mock server.
func (m *Server) URL() string { return m.server.URL }

// Close shuts down the mock server.
func (m *Server) Close() { m.server.Close() }
