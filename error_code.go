package trino

import "github.com/openlakehouse/trino-go/utils"

// Well-known symbolic error names. Only the ones the client itself inspects
// get constants; everything else stays data in the vocabulary table below.
const (
	ErrorNameUserCanceled = "USER_CANCELED"
	ErrorNameSyntaxError  = "SYNTAX_ERROR"
)

// standardErrorCodes maps the server's standard symbolic error names to
// their numeric codes. The table is pure data: the protocol engine makes no
// control-flow decisions on it, only the errorType discriminant matters
// there. USER_ERROR codes start at 0, INTERNAL_ERROR at 0x1_0000,
// INSUFFICIENT_RESOURCES at 0x2_0000, EXTERNAL at 0x1_8000.
var standardErrorCodes = utils.NewBiMap(map[string]int{
	"GENERIC_USER_ERROR":           0,
	"SYNTAX_ERROR":                 1,
	"ABANDONED_QUERY":              2,
	"USER_CANCELED":                3,
	"PERMISSION_DENIED":            4,
	"NOT_FOUND":                    5,
	"FUNCTION_NOT_FOUND":           6,
	"INVALID_FUNCTION_ARGUMENT":    7,
	"DIVISION_BY_ZERO":             8,
	"INVALID_CAST_ARGUMENT":        9,
	"OPERATOR_NOT_FOUND":           10,
	"INVALID_VIEW":                 11,
	"ALREADY_EXISTS":               12,
	"NOT_SUPPORTED":                13,
	"INVALID_SESSION_PROPERTY":     14,
	"INVALID_WINDOW_FRAME":         15,
	"CONSTRAINT_VIOLATION":         16,
	"TRANSACTION_CONFLICT":         17,
	"INVALID_TABLE_PROPERTY":       18,
	"NUMERIC_VALUE_OUT_OF_RANGE":   19,
	"UNKNOWN_TRANSACTION":          20,
	"NOT_IN_TRANSACTION":           21,
	"TRANSACTION_ALREADY_ABORTED":  22,
	"READ_ONLY_VIOLATION":          23,
	"MULTI_CATALOG_WRITE_CONFLICT": 24,
	"AUTOCOMMIT_WRITE_CONFLICT":    25,
	"UNSUPPORTED_ISOLATION_LEVEL":  26,
	"INCOMPATIBLE_CLIENT":          27,
	"SUBQUERY_MULTIPLE_ROWS":       28,
	"PROCEDURE_NOT_FOUND":          29,
	"INVALID_PROCEDURE_ARGUMENT":   30,
	"QUERY_REJECTED":               31,
	"INVALID_COLUMN_PROPERTY":      33,
	"QUERY_TEXT_TOO_LARGE":         36,
	"INVALID_SCHEMA_PROPERTY":      38,
	"CATALOG_NOT_FOUND":            44,
	"SCHEMA_NOT_FOUND":             45,
	"TABLE_NOT_FOUND":              46,
	"COLUMN_NOT_FOUND":             47,
	"ROLE_NOT_FOUND":               48,
	"SCHEMA_ALREADY_EXISTS":        49,
	"TABLE_ALREADY_EXISTS":         50,
	"COLUMN_ALREADY_EXISTS":        51,
	"ROLE_ALREADY_EXISTS":          52,
	"MISSING_CATALOG_NAME":         56,
	"MISSING_SCHEMA_NAME":          57,
	"TYPE_NOT_FOUND":               58,

	"GENERIC_INTERNAL_ERROR":     0x1_0000,
	"TOO_MANY_REQUESTS_FAILED":   0x1_0001,
	"PAGE_TOO_LARGE":             0x1_0002,
	"PAGE_TRANSPORT_ERROR":       0x1_0003,
	"PAGE_TRANSPORT_TIMEOUT":     0x1_0004,
	"NO_NODES_AVAILABLE":         0x1_0005,
	"REMOTE_TASK_ERROR":          0x1_0006,
	"COMPILER_ERROR":             0x1_0007,
	"REMOTE_TASK_MISMATCH":       0x1_0008,
	"SERVER_SHUTTING_DOWN":       0x1_0009,
	"SERVER_STARTING_UP":         0x1_000C,
	"ABANDONED_TASK":             0x1_0011,
	"CORRUPT_PAGE":               0x1_0013,
	"OPTIMIZER_TIMEOUT":          0x1_0014,
	"OUT_OF_SPILL_SPACE":         0x1_0015,
	"REMOTE_HOST_GONE":           0x1_0016,
	"CONFIGURATION_INVALID":      0x1_0017,
	"CONFIGURATION_UNAVAILABLE":  0x1_0018,

	"EXCEEDED_TASK_DESCRIPTOR_STORAGE_CAPACITY": 0x1_001D,

	"GENERIC_INSUFFICIENT_RESOURCES": 0x2_0000,
	"EXCEEDED_GLOBAL_MEMORY_LIMIT":   0x2_0001,
	"QUERY_QUEUE_FULL":               0x2_0002,
	"EXCEEDED_TIME_LIMIT":            0x2_0003,
	"CLUSTER_OUT_OF_MEMORY":          0x2_0004,
	"EXCEEDED_CPU_LIMIT":             0x2_0005,
	"EXCEEDED_SPILL_LIMIT":           0x2_0006,
	"EXCEEDED_LOCAL_MEMORY_LIMIT":    0x2_0007,
	"ADMINISTRATIVELY_PREEMPTED":     0x2_0008,
	"EXCEEDED_SCAN_LIMIT":            0x2_0009,
})

// StandardErrorCode looks up the numeric code for a symbolic error name.
func StandardErrorCode(name string) (int, bool) {
	return standardErrorCodes.Lookup(name)
}

// StandardErrorName looks up the symbolic name for a numeric error code.
func StandardErrorName(code int) (string, bool) {
	return standardErrorCodes.RLookup(code)
}
