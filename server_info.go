package trino

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"reflect"
	"strings"
)

// ServerInfo is the coordinator status returned by /v1/info.
type ServerInfo struct {
	NodeVersion struct {
		Version string `json:"version"`
	} `json:"nodeVersion"`
	Environment string `json:"environment"`
	Coordinator bool   `json:"coordinator"`
	Starting    bool   `json:"starting"`
	Uptime      string `json:"uptime,omitempty"`
}

// GetServerInfo retrieves the coordinator status from /v1/info.
func (s *Session) GetServerInfo(ctx context.Context, opts ...RequestOption) (*ServerInfo, *http.Response, error) {
	req, err := s.NewRequest("GET", "v1/info", nil, opts...)
	if err != nil {
		return nil, nil, err
	}

	info := new(ServerInfo)
	resp, err := s.Do(ctx, req, info)
	if err != nil {
		return nil, resp, err
	}
	return info, resp, nil
}

// BasicQueryInfo is one entry of the /v1/query listing.
type BasicQueryInfo struct {
	QueryId   string          `json:"queryId"`
	State     string          `json:"state"`
	Query     string          `json:"query"`
	ErrorType string          `json:"errorType,omitempty"`
	ErrorCode *QueryStateCode `json:"errorCode,omitempty"`
}

// QueryStateCode is the error-code summary attached to a query listing entry.
type QueryStateCode struct {
	Code int    `json:"code"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// ListQueriesOptions are the filters accepted by the /v1/query endpoint.
// Nil fields are omitted from the request.
type ListQueriesOptions struct {
	State         *string `query:"state"`
	FailureReason *string `query:"failureReason"`
}

// GenerateHttpQueryParameter converts a struct with `query` tags into a URL
// query string. Nil pointer fields are skipped.
func GenerateHttpQueryParameter(v any) string {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return ""
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return ""
	}
	queryBuilder := strings.Builder{}
	vt := rv.Type()
	for i := range vt.NumField() {
		fv, ft := rv.Field(i), vt.Field(i)
		// Dereference pointers; skip nil
		for fv.Kind() == reflect.Pointer || fv.Kind() == reflect.Interface {
			if fv.IsNil() {
				break
			}
			fv = fv.Elem()
		}
		if !fv.IsValid() || !fv.CanInterface() {
			continue
		}
		if rv.Field(i).Kind() == reflect.Pointer && rv.Field(i).IsNil() {
			continue
		}
		if tag := ft.Tag.Get("query"); tag != "" {
			if queryBuilder.Len() > 0 {
				queryBuilder.WriteString("&")
			}
			queryBuilder.WriteString(fmt.Sprintf("%s=%s", url.QueryEscape(tag), url.QueryEscape(fmt.Sprint(fv.Interface()))))
		}
	}
	return queryBuilder.String()
}

// ListQueries retrieves the query listing from /v1/query, optionally
// filtered.
func (s *Session) ListQueries(ctx context.Context, reqOpt *ListQueriesOptions, opts ...RequestOption) ([]BasicQueryInfo, *http.Response, error) {
	urlStr := "v1/query"
	if reqOpt != nil {
		if params := GenerateHttpQueryParameter(reqOpt); params != "" {
			urlStr = fmt.Sprintf("v1/query?%s", params)
		}
	}
	req, err := s.NewRequest("GET", urlStr, nil, opts...)
	if err != nil {
		return nil, nil, err
	}

	infoArray := make([]BasicQueryInfo, 0, 16)
	resp, err := s.Do(ctx, req, &infoArray)
	if err != nil {
		return nil, resp, err
	}
	return infoArray, resp, nil
}
