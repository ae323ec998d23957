package trino

import (
	"maps"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Session is an execution context linked to a client. It owns the mutable
// session state that the server steers through response directives: catalog,
// schema, path, role, transaction id, session properties, prepared
// statements, and the acting user.
//
// The state is shared by every query issued through the session and is
// guarded by an RWMutex around each merge-and-read cycle. Concurrent queries
// on one session are safe in the data-race sense, but the server's session
// changes observed by one query can still clobber another's subsequent
// request headers; callers that need full isolation should Clone the session
// and run one query at a time per copy.
type Session struct {
	client *Client // Link to the parent client for network transport

	user        string
	password    string
	bearerToken string

	source             string
	catalog            string
	schema             string
	path               string
	role               string
	timezone           string
	language           string
	traceToken         string
	clientInfo         string
	clientCapabilities string
	queryDataEncoding  string
	originalRoles      string
	clientTags         []string
	resourceEstimates  map[string]string
	extraCredentials   map[string]string

	// Server-managed state, folded in from response directives.
	actingUser   string
	originalUser string
	txnID        string

	// properties and preparedStatements are ordered multisets of "key=value"
	// entries. Directives append entries or remove every entry whose key
	// (the substring before '=') matches, preserving the order of the rest.
	properties         []string
	preparedStatements []string

	// requestOptions run on every request built by this session, before
	// per-call options. Auth providers hook in here.
	requestOptions []RequestOption

	// mu protects session state during concurrent access
	mu sync.RWMutex
}

// Clone creates an isolated session copy that maintains the same client link.
func (s *Session) Clone() *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	clone := &Session{
		client:             s.client, // Maintain the same network client
		user:               s.user,
		password:           s.password,
		bearerToken:        s.bearerToken,
		source:             s.source,
		catalog:            s.catalog,
		schema:             s.schema,
		path:               s.path,
		role:               s.role,
		timezone:           s.timezone,
		language:           s.language,
		traceToken:         s.traceToken,
		clientInfo:         s.clientInfo,
		clientCapabilities: s.clientCapabilities,
		queryDataEncoding:  s.queryDataEncoding,
		originalRoles:      s.originalRoles,
		actingUser:         s.actingUser,
		originalUser:       s.originalUser,
		txnID:              s.txnID,
	}
	clone.clientTags = append([]string(nil), s.clientTags...)
	clone.requestOptions = append([]RequestOption(nil), s.requestOptions...)
	clone.properties = append([]string(nil), s.properties...)
	clone.preparedStatements = append([]string(nil), s.preparedStatements...)
	if s.resourceEstimates != nil {
		clone.resourceEstimates = maps.Clone(s.resourceEstimates)
	}
	if s.extraCredentials != nil {
		clone.extraCredentials = maps.Clone(s.extraCredentials)
	}
	return clone
}

// --- Session Setters (Fluent API) ---

// User sets the request user identity.
func (s *Session) User(user string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = user
	return s
}

// BasicAuth configures username/password credentials. The Authorization
// header is computed from them on every request.
func (s *Session) BasicAuth(user, password string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = user
	s.password = password
	return s
}

// BearerToken configures a static bearer token credential. It takes
// precedence over basic credentials when both are set.
func (s *Session) BearerToken(token string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bearerToken = token
	return s
}

func (s *Session) Source(source string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.source = source
	return s
}

func (s *Session) Catalog(catalog string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.catalog = catalog
	return s
}

func (s *Session) Schema(schema string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.schema = schema
	return s
}

// Path sets the SQL path used to resolve unqualified function and routine
// names.
func (s *Session) Path(path string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.path = path
	return s
}

func (s *Session) Role(role string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.role = role
	return s
}

func (s *Session) OriginalRoles(roles string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.originalRoles = roles
	return s
}

func (s *Session) TimeZone(tz string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timezone = tz
	return s
}

func (s *Session) Language(lang string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.language = lang
	return s
}

// TraceToken sets a caller-chosen token that the server attaches to all
// logging and diagnostics for queries from this session.
func (s *Session) TraceToken(token string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.traceToken = token
	return s
}

// RandomTraceToken generates a fresh UUID trace token and returns it.
func (s *Session) RandomTraceToken() string {
	token := uuid.NewString()
	s.TraceToken(token)
	return token
}

func (s *Session) ClientInfo(info string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clientInfo = info
	return s
}

func (s *Session) ClientCapabilities(caps string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clientCapabilities = caps
	return s
}

// QueryDataEncoding requests a spooled result encoding (e.g. "json+zstd")
// from coordinators that support the spooling protocol.
func (s *Session) QueryDataEncoding(encoding string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queryDataEncoding = encoding
	return s
}

func (s *Session) ClientTags(tags ...string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clientTags = tags
	return s
}

func (s *Session) AppendClientTag(tag string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clientTags = append(s.clientTags, tag)
	return s
}

// ResourceEstimate declares an estimate (e.g. EXECUTION_TIME, PEAK_MEMORY)
// used by resource-group scheduling.
func (s *Session) ResourceEstimate(name, value string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.resourceEstimates == nil {
		s.resourceEstimates = make(map[string]string)
	}
	s.resourceEstimates[name] = value
	return s
}

// ExtraCredential attaches a connector credential forwarded to the server.
func (s *Session) ExtraCredential(name, value string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.extraCredentials == nil {
		s.extraCredentials = make(map[string]string)
	}
	s.extraCredentials[name] = value
	return s
}

// Property sets a session property client-side. Any existing entry for the
// key is replaced; the server-directed merge path uses plain append/remove
// multiset semantics instead.
func (s *Session) Property(key, value string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.properties = removeMultisetEntries(s.properties, key)
	s.properties = append(s.properties, key+"="+url.QueryEscape(value))
	return s
}

// ResetProperty removes every session-property entry for the key.
func (s *Session) ResetProperty(key string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.properties = removeMultisetEntries(s.properties, key)
	return s
}

// Properties returns a snapshot of the session-property entries.
func (s *Session) Properties() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.properties...)
}

// PreparedStatements returns a snapshot of the prepared-statement entries.
func (s *Session) PreparedStatements() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.preparedStatements...)
}

// TransactionID returns the active transaction id, or "" if none is active.
func (s *Session) TransactionID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.txnID
}

// AuthorizationUser returns the current acting user: the server-directed
// impersonated user if one is set, otherwise the configured user.
func (s *Session) AuthorizationUser() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.actingUser != "" {
		return s.actingUser
	}
	return s.user
}

// RequestOptions registers options run on every request issued by this
// session, before per-call options. Auth providers (SPNEGO, OAuth2, keypair
// JWT) use this to attach credentials the session itself doesn't model.
func (s *Session) RequestOptions(opts ...RequestOption) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requestOptions = append(s.requestOptions, opts...)
	return s
}

// --- Request header assembly ---

// applyHeaders writes the session state into the request. Every header with
// an empty value is left unset rather than sent empty.
func (s *Session) applyHeaders(req *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	set := func(name, value string) {
		if value != "" {
			req.Header.Set(s.client.canonicalHeader(name), value)
		}
	}

	// 1. Identity
	user := s.user
	if s.actingUser != "" {
		user = s.actingUser
	}
	set(UserHeader, user)
	set(OriginalUserHeader, s.originalUser)
	set(OriginalRolesHeader, s.originalRoles)

	// 2. Contextual headers
	set(SourceHeader, s.source)
	set(CatalogHeader, s.catalog)
	set(SchemaHeader, s.schema)
	set(PathHeader, s.path)
	set(RoleHeader, s.role)
	set(TimeZoneHeader, s.timezone)
	set(LanguageHeader, s.language)
	set(TraceTokenHeader, s.traceToken)
	set(ClientInfoHeader, s.clientInfo)
	set(ClientCapabilitiesHeader, s.clientCapabilities)
	set(QueryDataEncodingHeader, s.queryDataEncoding)
	set(ClientTagsHeader, strings.Join(s.clientTags, ","))
	set(ResourceEstimateHeader, joinAssignments(s.resourceEstimates))
	set(ExtraCredentialHeader, joinAssignments(s.extraCredentials))

	// 3. Server-managed state
	set(TransactionHeader, s.txnID)
	set(SessionHeader, strings.Join(s.properties, ","))
	set(PreparedStatementHeader, strings.Join(s.preparedStatements, ","))
}

// applyAuthorization computes the Authorization header from the configured
// credential. It runs after per-call options so a configured credential
// always wins; with no credential configured, options (SPNEGO, OAuth2)
// keep whatever they set.
func (s *Session) applyAuthorization(req *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	switch {
	case s.bearerToken != "":
		req.Header.Set("Authorization", "Bearer "+s.bearerToken)
	case s.password != "":
		req.SetBasicAuth(s.user, s.password)
	}
}

// NewRequest builds an http.Request from the client defaults, the current
// session state, per-call options, and the configured credential, with later
// sources winning on header conflicts.
func (s *Session) NewRequest(method, urlStr string, body any, opts ...RequestOption) (*http.Request, error) {
	u, err := s.client.prepareURL(urlStr)
	if err != nil {
		return nil, err
	}

	bodyReader, contentType, err := s.client.prepareRequestBody(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequest(method, u.String(), bodyReader)
	if err != nil {
		return nil, err
	}

	for name, values := range s.client.defaultHeaders {
		for _, v := range values {
			req.Header.Add(name, v)
		}
	}

	s.applyHeaders(req)

	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept-Encoding", contentEncodingGzip)

	// Session-scoped options first, then per-request overrides
	s.mu.RLock()
	sessionOpts := s.requestOptions
	s.mu.RUnlock()
	for _, opt := range sessionOpts {
		opt(req)
	}
	for _, opt := range opts {
		opt(req)
	}

	s.applyAuthorization(req)

	// Drop anything that ended up with only empty values
	for name, values := range req.Header {
		if !hasNonEmpty(values) {
			req.Header.Del(name)
		}
	}

	return req, nil
}

// --- Directive reconciliation ---

// updateSessionState folds the server's session directives from a response
// into the session, so they are reflected on every subsequent request.
// Header-name matching is case-insensitive: net/http canonicalizes names on
// both sides, so the server's lowercase form and the canonical form land in
// the same map key.
func (s *Session) updateSessionState(resp *http.Response) {
	s.mu.Lock()
	defer s.mu.Unlock()

	get := func(name string) string {
		return resp.Header.Get(s.client.canonicalHeader(name))
	}
	values := func(name string) []string {
		return resp.Header.Values(s.client.canonicalHeader(name))
	}

	if v := get(SetCatalogHeader); v != "" {
		s.catalog = v
	}
	if v := get(SetSchemaHeader); v != "" {
		s.schema = v
	}
	if v := get(SetPathHeader); v != "" {
		s.path = v
	}
	if v := get(SetRoleHeader); v != "" {
		s.role = v
	}

	for _, v := range values(SetSessionHeader) {
		if v != "" {
			s.properties = append(s.properties, v)
		}
	}
	for _, key := range values(ClearSessionHeader) {
		s.properties = removeMultisetEntries(s.properties, key)
	}

	for _, v := range values(AddedPrepareHeader) {
		if v != "" {
			s.preparedStatements = append(s.preparedStatements, v)
		}
	}
	for _, name := range values(DeallocatedPrepareHeader) {
		s.preparedStatements = removeMultisetEntries(s.preparedStatements, name)
	}

	if id := get(StartedTransactionHeader); id != "" {
		s.txnID = id
	}
	if get(ClearTransactionHeader) != "" {
		s.txnID = ""
	}

	if v := get(SetAuthorizationUserHeader); v != "" {
		// Snapshot the configured user, not the current acting user, so a
		// later reset returns to the pre-impersonation identity.
		if s.originalUser == "" {
			s.originalUser = s.user
		}
		s.actingUser = v
	}
	if get(ResetAuthorizationUserHeader) != "" && s.originalUser != "" {
		s.actingUser = s.originalUser
		s.originalUser = ""
	}
}

// --- Multiset helpers ---

// multisetKey returns the portion of a "key=value" entry before '='.
func multisetKey(entry string) string {
	if idx := strings.IndexByte(entry, '='); idx >= 0 {
		return entry[:idx]
	}
	return entry
}

// removeMultisetEntries removes every entry whose key matches, preserving
// the order of the remaining entries. Removing a key that is absent is a
// no-op.
func removeMultisetEntries(set []string, key string) []string {
	if len(set) == 0 {
		return set
	}
	kept := set[:0]
	for _, entry := range set {
		if multisetKey(entry) != key {
			kept = append(kept, entry)
		}
	}
	if len(kept) == 0 {
		return nil
	}
	return kept
}

func joinAssignments(m map[string]string) string {
	if len(m) == 0 {
		return ""
	}
	pairs := make([]string, 0, len(m))
	for k, v := range m {
		pairs = append(pairs, k+"="+url.QueryEscape(v))
	}
	sort.Strings(pairs)
	return strings.Join(pairs, ",")
}

func hasNonEmpty(values []string) bool {
	for _, v := range values {
		if v != "" {
			return true
		}
	}
	return false
}
