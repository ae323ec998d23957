package trino

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"
)

const (
	// DefaultUser is sent as the request user when no user was configured.
	DefaultUser = "trino-go-client"

	statementPath       = "v1/statement"
	contentEncodingGzip = "gzip"
)

// RequestOption allows for functional overrides on individual requests.
type RequestOption func(*http.Request)

// Client holds the immutable connection configuration: server endpoint,
// credentials, default headers, and the HTTP transport. Query execution
// happens through Sessions created from the client; the client's embedded
// Session acts as the default one.
type Client struct {
	Session    // Embedded default session
	httpClient *http.Client
	serverUrl  *url.URL

	// defaultHeaders are applied to every request before session state,
	// per-call options, and authorization, in that precedence.
	defaultHeaders http.Header

	usePrestoHeaders bool
	forceHTTPS       bool
}

// NewClient initializes a client for the given server URL and links its
// embedded default session to itself.
func NewClient(serverUrl string) (*Client, error) {
	parsedUrl, err := url.Parse(serverUrl)
	if err != nil {
		return nil, fmt.Errorf("invalid server URL: %w", err)
	}

	c := &Client{
		httpClient:     &http.Client{},
		serverUrl:      parsedUrl,
		defaultHeaders: make(http.Header),
		Session: Session{
			user: DefaultUser,
		},
	}

	// Link the embedded session to the client
	c.Session.client = c

	return c, nil
}

// HTTPClient replaces the underlying transport. Timeouts, retries, proxies,
// and TLS configuration all belong to the http.Client, not to this library.
func (c *Client) HTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// DefaultHeader sets a header applied to every outgoing request. Session
// state, per-call options, and authorization all take precedence over it.
func (c *Client) DefaultHeader(name, value string) *Client {
	c.defaultHeaders.Set(name, value)
	return c
}

// UsePrestoHeaders switches the protocol header vocabulary from X-Trino-
// to X-Presto- for older Presto coordinators.
func (c *Client) UsePrestoHeaders(presto bool) *Client {
	c.usePrestoHeaders = presto
	return c
}

// ForceHTTPS upgrades plain http URLs (including server-provided
// continuation URLs) to https before each request.
func (c *Client) ForceHTTPS(force bool) *Client {
	c.forceHTTPS = force
	return c
}

// roundTrip performs exactly one HTTP round trip. There is no retry and no
// buffering beyond the one in-flight request; transport failures come back
// wrapped as *FetchError.
func (s *Session) roundTrip(ctx context.Context, req *http.Request) (*http.Response, error) {
	resp, err := s.client.httpClient.Do(req.WithContext(ctx))
	if err != nil {
		return nil, &FetchError{Err: err}
	}
	return resp, nil
}

// Do executes the request and decodes a successful response into v. On a
// 2xx response it first folds the server's session directives into the
// session state, so they are visible to the next request. Failures are
// returned as *FetchError (transport or body parse) or *HTTPError (non-2xx);
// in both cases v is left untouched.
func (s *Session) Do(ctx context.Context, req *http.Request, v any) (*http.Response, error) {
	resp, err := s.roundTrip(ctx, req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, newHTTPError(resp)
	}

	s.updateSessionState(resp)

	if err := s.client.decodeResponseBody(resp, v); err != nil {
		return resp, &FetchError{Err: err}
	}
	return resp, nil
}

// NewSession creates a new, isolated session seeded from the client's
// default session. The new session shares the client's transport but owns
// its own catalog, schema, identity, transaction, and property state.
func (c *Client) NewSession() *Session {
	return c.Session.Clone()
}

// canonicalHeader translates a Trino-style header name ("X-Trino-...") into
// its Presto equivalent when the client targets a Presto coordinator. The
// rest of the code always uses the Trino names.
func (c *Client) canonicalHeader(name string) string {
	if c.usePrestoHeaders {
		return strings.Replace(name, "X-Trino", "X-Presto", 1)
	}
	return name
}

func (c *Client) prepareURL(urlStr string) (*url.URL, error) {
	u, err := c.serverUrl.Parse(urlStr)
	if err != nil {
		return nil, err
	}
	if c.forceHTTPS && u.Scheme == "http" {
		u.Scheme = "https"
	}
	return u, nil
}

// prepareRequestBody serializes the request body. Raw SQL statements travel
// as text/plain; anything else is JSON-encoded.
func (c *Client) prepareRequestBody(body any) (io.Reader, string, error) {
	if body == nil {
		return nil, "", nil
	}
	if s, ok := body.(string); ok {
		return strings.NewReader(s), "text/plain", nil
	}
	jsonBuf := &bytes.Buffer{}
	if err := json.NewEncoder(jsonBuf).Encode(body); err != nil {
		return nil, "", err
	}
	return jsonBuf, "application/json", nil
}

func (c *Client) decodeResponseBody(resp *http.Response, v any) (err error) {
	defer func() {
		closeErr := resp.Body.Close()
		if err == nil {
			err = closeErr
		}
	}()

	if v == nil {
		return nil
	}

	var reader io.Reader = resp.Body

	if resp.Header.Get("Content-Encoding") == contentEncodingGzip {
		gz, gzErr := gzip.NewReader(resp.Body)
		if gzErr != nil {
			return fmt.Errorf("failed to create gzip reader: %w", gzErr)
		}
		defer func() {
			if cErr := gz.Close(); cErr != nil {
				log.Debug().Err(cErr).Msg("failed to close gzip reader")
			}
		}()
		reader = gz
	}

	if w, ok := v.(io.Writer); ok {
		_, err = io.Copy(w, reader)
		return err
	}

	if err = json.NewDecoder(reader).Decode(v); err != nil {
		if err == io.EOF {
			return nil
		}
		return fmt.Errorf("failed to decode JSON: %w", err)
	}

	return nil
}
