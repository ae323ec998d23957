package trino

import (
	"encoding/json"
)

// QueryRow represents a single row of data returned by a query.
type QueryRow []any

// QueryResults is the payload of one protocol round trip: metadata about the
// statement plus, possibly, a window of result rows. While NextUri is
// present the statement is still running and the client must follow it to
// get the next window.
type QueryResults struct {
	// Id is the unique identifier of the query
	Id string `json:"id"`

	// InfoUri points at the server's query detail page
	InfoUri string `json:"infoUri"`

	// PartialCancelUri, when present, can be used to cancel the output
	// stage of the query
	PartialCancelUri *string `json:"partialCancelUri,omitempty"`

	// NextUri is the continuation reference. Absent means the statement is
	// complete and no further requests must be issued.
	NextUri *string `json:"nextUri,omitempty"`

	// Columns describes the result set. It may be absent on early polls,
	// before the query is planned.
	Columns []Column `json:"columns,omitempty"`

	// Data holds the rows of this window as opaque JSON tuples. The client
	// does not interpret row encodings; the driver layer converts scalar
	// values as a convenience.
	Data []json.RawMessage `json:"data,omitempty"`

	// Stats describes the execution progress
	Stats StatementStats `json:"stats"`

	// Error carries the structured failure for a failed query
	Error *QueryError `json:"error,omitempty"`

	// Warnings generated during execution
	Warnings []Warning `json:"warnings"`

	// UpdateType names the kind of update performed (e.g. "INSERT")
	UpdateType *string `json:"updateType,omitempty"`

	// UpdateCount is the number of rows affected by an update
	UpdateCount *int64 `json:"updateCount,omitempty"`
}

// DecodedRows unmarshals the opaque Data tuples of this window.
func (qr *QueryResults) DecodedRows() ([]QueryRow, error) {
	if len(qr.Data) == 0 {
		return nil, nil
	}
	rows := make([]QueryRow, len(qr.Data))
	for i, raw := range qr.Data {
		if err := json.Unmarshal(raw, &rows[i]); err != nil {
			return nil, err
		}
	}
	return rows, nil
}

// Column describes one column of a result set.
type Column struct {
	// Name is the column name
	Name string `json:"name"`

	// Type is the SQL type rendered as a string
	Type string `json:"type"`

	// TypeSignature carries the structured form of the type
	TypeSignature ClientTypeSignature `json:"typeSignature"`
}

// ClientTypeSignature is the structured form of a column type. Only the raw
// type name is modeled; type and literal arguments are left to callers that
// need them.
type ClientTypeSignature struct {
	// RawType is the base type name (e.g. "varchar", "bigint", "array")
	RawType string `json:"rawType"`
}

// Warning is a non-fatal diagnostic attached to a result window.
type Warning struct {
	WarningCode WarningCode `json:"warningCode"`
	Message     string      `json:"message"`
}

// WarningCode identifies a warning by code and name.
type WarningCode struct {
	Code int    `json:"code"`
	Name string `json:"name"`
}

// StatementStats describes the execution progress of a statement as of one
// result window.
type StatementStats struct {
	State              string   `json:"state"`
	Queued             bool     `json:"queued"`
	Scheduled          bool     `json:"scheduled"`
	ProgressPercentage *float64 `json:"progressPercentage,omitempty"`
	Nodes              int      `json:"nodes"`
	TotalSplits        int      `json:"totalSplits"`
	QueuedSplits       int      `json:"queuedSplits"`
	RunningSplits      int      `json:"runningSplits"`
	CompletedSplits    int      `json:"completedSplits"`
	CpuTimeMillis      int64    `json:"cpuTimeMillis"`
	WallTimeMillis     int64    `json:"wallTimeMillis"`
	QueuedTimeMillis   int64    `json:"queuedTimeMillis"`
	ElapsedTimeMillis  int64    `json:"elapsedTimeMillis"`
	ProcessedRows      int64    `json:"processedRows"`
	ProcessedBytes     int64    `json:"processedBytes"`
	PhysicalInputBytes int64    `json:"physicalInputBytes"`
	PeakMemoryBytes    int64    `json:"peakMemoryBytes"`
	SpilledBytes       int64    `json:"spilledBytes"`
}
