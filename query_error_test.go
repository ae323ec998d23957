package trino

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryError_String(t *testing.T) {
	qe := &QueryError{
		ErrorName: "SYNTAX_ERROR",
		Message:   "line 1:8: Column 'foo' cannot be resolved",
	}
	assert.Equal(t, "SYNTAX_ERROR: line 1:8: Column 'foo' cannot be resolved", qe.String())
}

func TestQueryError_NilString(t *testing.T) {
	var qe *QueryError
	assert.Equal(t, "nil QueryError", qe.String())
}

func TestQueryError_Error(t *testing.T) {
	qe := &QueryError{
		ErrorName: "TABLE_NOT_FOUND",
		Message:   "table not found",
	}
	// Error() delegates to String()
	assert.Equal(t, qe.String(), qe.Error())

	// Verify it satisfies the error interface
	var err error = qe
	assert.Contains(t, err.Error(), "TABLE_NOT_FOUND")
}

func TestErrorLocation_String(t *testing.T) {
	loc := &ErrorLocation{LineNumber: 3, ColumnNumber: 15}
	assert.Equal(t, "line 3:15", loc.String())
}

func TestClassifyQueryError(t *testing.T) {
	tests := []struct {
		errorType string
		want      ErrorKind
	}{
		{"USER_ERROR", KindUser},
		{"INTERNAL_ERROR", KindInternal},
		{"EXTERNAL", KindExternal},
		{"INSUFFICIENT_RESOURCES", KindInsufficientResources},
	}
	for _, tt := range tests {
		t.Run(tt.errorType, func(t *testing.T) {
			qe := classifyQueryError(&QueryError{ErrorType: tt.errorType})
			assert.Equal(t, tt.want, qe.Kind())
		})
	}
}

func TestClassifyQueryError_UserCanceled(t *testing.T) {
	// Cancellation surfaces as a regular USER_ERROR failure, identifiable
	// by its symbolic name.
	qe := classifyQueryError(&QueryError{
		ErrorName: ErrorNameUserCanceled,
		ErrorType: "USER_ERROR",
	})
	assert.Equal(t, KindUser, qe.Kind())
	code, ok := StandardErrorCode(qe.ErrorName)
	require.True(t, ok)
	assert.Equal(t, 3, code)
}

func TestClassifyQueryError_UnknownTypePanics(t *testing.T) {
	assert.Panics(t, func() {
		classifyQueryError(&QueryError{ErrorType: "BRAND_NEW_KIND"})
	})

	// Client-side kinds are not valid server discriminants either
	assert.Panics(t, func() {
		classifyQueryError(&QueryError{ErrorType: "FETCH"})
	})
}

func TestKindOf(t *testing.T) {
	t.Run("FetchError", func(t *testing.T) {
		kind, ok := KindOf(&FetchError{Err: errors.New("conn refused")})
		require.True(t, ok)
		assert.Equal(t, KindFetch, kind)
	})

	t.Run("Wrapped failure", func(t *testing.T) {
		inner := &FetchError{Err: errors.New("conn refused")}
		kind, ok := KindOf(fmt.Errorf("query failed: %w", inner))
		require.True(t, ok)
		assert.Equal(t, KindFetch, kind)
	})

	t.Run("HTTPError", func(t *testing.T) {
		err := &HTTPError{Response: &http.Response{StatusCode: 503}}
		kind, ok := KindOf(err)
		require.True(t, ok)
		assert.Equal(t, KindHTTP, kind)
	})

	t.Run("QueryError", func(t *testing.T) {
		qe := classifyQueryError(&QueryError{ErrorType: "INTERNAL_ERROR"})
		kind, ok := KindOf(qe)
		require.True(t, ok)
		assert.Equal(t, KindInternal, kind)
	})

	t.Run("Plain error", func(t *testing.T) {
		_, ok := KindOf(errors.New("unrelated"))
		assert.False(t, ok)
	})
}

func TestFetchError_Unwrap(t *testing.T) {
	inner := errors.New("dial tcp: connection refused")
	err := &FetchError{Err: inner}
	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "fetch failed")
}

func TestNewHTTPError(t *testing.T) {
	t.Run("Reads body and formats error", func(t *testing.T) {
		resp := &http.Response{
			StatusCode: http.StatusBadRequest,
			Body:       io.NopCloser(strings.NewReader("bad SQL syntax")),
		}
		err := newHTTPError(resp)
		require.Error(t, err)

		var httpErr *HTTPError
		require.ErrorAs(t, err, &httpErr)
		assert.Equal(t, "bad SQL syntax", httpErr.Message)
		assert.Equal(t, http.StatusBadRequest, httpErr.StatusCode())
		assert.Equal(t, "bad SQL syntax (status code: 400)", err.Error())
	})

	t.Run("Empty body", func(t *testing.T) {
		resp := &http.Response{
			StatusCode: http.StatusInternalServerError,
			Body:       io.NopCloser(strings.NewReader("")),
		}
		err := newHTTPError(resp)
		require.Error(t, err)

		var httpErr *HTTPError
		require.ErrorAs(t, err, &httpErr)
		assert.Empty(t, httpErr.Message)
	})
}
