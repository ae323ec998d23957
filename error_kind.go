package trino

import (
	"fmt"
	"strconv"

	"github.com/openlakehouse/trino-go/utils"
)

// ErrorKind is the discriminant of the failure taxonomy. Transport and parse
// failures are KindFetch, non-2xx responses are KindHTTP, and the four
// remaining kinds mirror the server's errorType values.
type ErrorKind int8

const (
	// KindFetch covers network, connectivity, and response-parse failures.
	KindFetch ErrorKind = iota
	// KindHTTP covers non-2xx responses from the coordinator.
	KindHTTP
	// KindUser is a server-reported USER_ERROR (bad SQL, missing table,
	// cancellation, permission problems).
	KindUser
	// KindInternal is a server-reported INTERNAL_ERROR.
	KindInternal
	// KindExternal is a server-reported EXTERNAL failure (connector or
	// remote-system fault).
	KindExternal
	// KindInsufficientResources is a server-reported INSUFFICIENT_RESOURCES
	// failure (memory, CPU, or queue limits).
	KindInsufficientResources
)

var errorKindMap = utils.NewBiMap(map[ErrorKind]string{
	KindFetch:                 "FETCH",
	KindHTTP:                  "HTTP",
	KindUser:                  "USER_ERROR",
	KindInternal:              "INTERNAL_ERROR",
	KindExternal:              "EXTERNAL",
	KindInsufficientResources: "INSUFFICIENT_RESOURCES",
})

// String returns the wire-style name of the kind.
func (k ErrorKind) String() string {
	if value, ok := errorKindMap.Lookup(k); ok {
		return value
	}
	return strconv.Itoa(int(k))
}

// ParseErrorKind parses a kind name (e.g. "USER_ERROR") into an ErrorKind.
func ParseErrorKind(str string) (ErrorKind, error) {
	if key, ok := errorKindMap.RLookup(str); ok {
		return key, nil
	}
	return ErrorKind(0), fmt.Errorf("unknown ErrorKind string %q", str)
}

// serverReported reports whether the kind corresponds to a structured
// errorType the server can emit in a query-error payload.
func (k ErrorKind) serverReported() bool {
	return k >= KindUser
}

// MarshalText implements the encoding.TextMarshaler interface.
func (k ErrorKind) MarshalText() (text []byte, err error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements the encoding.TextUnmarshaler interface.
func (k *ErrorKind) UnmarshalText(text []byte) error {
	parsed, err := ParseErrorKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
