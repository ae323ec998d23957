package trino

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

func init() {
	sql.Register("trino", &sqlDriver{})
}

// --- DSN Parsing ---

// dsnConfig holds the parsed DSN parameters.
type dsnConfig struct {
	host        string
	port        string
	user        string
	password    string
	catalog     string
	schema      string
	prestoMode  bool
	timezone    string
	clientTags  []string
	clientInfo  string
	source      string
	traceToken  string
	bearerToken string
	// Unrecognized query params become session properties.
	sessionProps map[string]string
}

// parseDSN parses a DSN of the form
//
//	trino://[user[:password]@]host[:port][/catalog[/schema]][?key=value&...]
//	presto://...
//
// Recognized query params: timezone, client_tags, client_info, source,
// trace_token (the literal value, or "auto" for a generated UUID), and
// access_token for bearer authentication. Unrecognized params become
// session properties.
func parseDSN(dsn string) (*dsnConfig, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid DSN: %w", err)
	}

	cfg := &dsnConfig{
		port:         "8080",
		sessionProps: make(map[string]string),
	}

	switch u.Scheme {
	case "trino":
	case "presto":
		cfg.prestoMode = true
	default:
		return nil, fmt.Errorf("unsupported scheme %q: must be trino or presto", u.Scheme)
	}

	if u.User != nil {
		cfg.user = u.User.Username()
		if p, ok := u.User.Password(); ok {
			cfg.password = p
		}
	}

	cfg.host = u.Hostname()
	if cfg.host == "" {
		return nil, fmt.Errorf("missing host in DSN")
	}
	if p := u.Port(); p != "" {
		cfg.port = p
	}

	// Path: /catalog/schema
	path := strings.TrimPrefix(u.Path, "/")
	if path != "" {
		parts := strings.SplitN(path, "/", 2)
		cfg.catalog = parts[0]
		if len(parts) > 1 {
			cfg.schema = parts[1]
		}
	}

	for key, values := range u.Query() {
		val := values[0]
		switch key {
		case "timezone":
			cfg.timezone = val
		case "client_tags":
			cfg.clientTags = strings.Split(val, ",")
		case "client_info":
			cfg.clientInfo = val
		case "source":
			cfg.source = val
		case "trace_token":
			if val == "auto" {
				val = uuid.NewString()
			}
			cfg.traceToken = val
		case "access_token":
			cfg.bearerToken = val
		default:
			cfg.sessionProps[key] = val
		}
	}

	return cfg, nil
}

// serverURL returns the base HTTP URL for the coordinator.
func (cfg *dsnConfig) serverURL() string {
	return fmt.Sprintf("http://%s:%s", cfg.host, cfg.port)
}

// --- Parameter Interpolation ---

// valueToSQL converts a Go driver.Value to a SQL literal string.
func valueToSQL(v driver.Value) (string, error) {
	switch val := v.(type) {
	case nil:
		return "NULL", nil
	case int64:
		return strconv.FormatInt(val, 10), nil
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), nil
	case bool:
		if val {
			return "TRUE", nil
		}
		return "FALSE", nil
	case string:
		escaped := strings.ReplaceAll(val, "'", "''")
		return "'" + escaped + "'", nil
	case []byte:
		return "X'" + hex.EncodeToString(val) + "'", nil
	case time.Time:
		return "TIMESTAMP '" + val.Format("2006-01-02 15:04:05.000") + "'", nil
	default:
		return "", fmt.Errorf("unsupported parameter type: %T", v)
	}
}

// interpolateParams replaces ? placeholders in the query with SQL literals.
// ? characters inside single-quoted string literals are left alone.
func interpolateParams(query string, args []driver.Value) (string, error) {
	if len(args) == 0 {
		return query, nil
	}

	var buf strings.Builder
	buf.Grow(len(query) + len(args)*8)
	argIdx := 0
	inString := false

	for i := 0; i < len(query); i++ {
		ch := query[i]
		if ch == '\'' {
			if inString && i+1 < len(query) && query[i+1] == '\'' {
				// Escaped quote inside string literal
				buf.WriteString("''")
				i++
				continue
			}
			inString = !inString
			buf.WriteByte(ch)
			continue
		}
		if ch == '?' && !inString {
			if argIdx >= len(args) {
				return "", fmt.Errorf("not enough arguments: query has more placeholders than the %d provided arguments", len(args))
			}
			s, err := valueToSQL(args[argIdx])
			if err != nil {
				return "", err
			}
			buf.WriteString(s)
			argIdx++
			continue
		}
		buf.WriteByte(ch)
	}

	if argIdx != len(args) {
		return "", fmt.Errorf("too many arguments: %d provided but only %d placeholders in query", len(args), argIdx)
	}
	return buf.String(), nil
}

// --- Type Conversion ---

// normalizeType strips parameterized parts from a SQL type string.
// e.g. "varchar(255)" → "varchar", "decimal(10,2)" → "decimal"
func normalizeType(t string) string {
	lower := strings.ToLower(strings.TrimSpace(t))
	if idx := strings.IndexByte(lower, '('); idx >= 0 {
		return lower[:idx]
	}
	return lower
}

// scanTypeFor returns the reflect.Type that Scan should use for a SQL type.
func scanTypeFor(sqlType string) reflect.Type {
	switch normalizeType(sqlType) {
	case "bigint", "integer", "smallint", "tinyint":
		return reflect.TypeOf(int64(0))
	case "double", "real":
		return reflect.TypeOf(float64(0))
	case "boolean":
		return reflect.TypeOf(false)
	case "varchar", "char", "decimal", "json":
		return reflect.TypeOf("")
	case "varbinary":
		return reflect.TypeOf([]byte(nil))
	case "date", "timestamp", "timestamp with time zone", "time", "time with time zone":
		return reflect.TypeOf(time.Time{})
	default:
		// array, map, row, and unknown types → string (JSON)
		return reflect.TypeOf("")
	}
}

// convertValue converts a JSON-decoded value to the Go type matching the
// column's SQL type.
func convertValue(val any, sqlType string) (driver.Value, error) {
	if val == nil {
		return nil, nil
	}

	switch normalizeType(sqlType) {
	case "bigint", "integer", "smallint", "tinyint":
		switch v := val.(type) {
		case float64:
			return int64(v), nil
		case json.Number:
			return v.Int64()
		default:
			return nil, fmt.Errorf("cannot convert %T to int64 for type %s", val, sqlType)
		}

	case "double", "real":
		switch v := val.(type) {
		case float64:
			return v, nil
		case json.Number:
			return v.Float64()
		default:
			return nil, fmt.Errorf("cannot convert %T to float64 for type %s", val, sqlType)
		}

	case "boolean":
		if b, ok := val.(bool); ok {
			return b, nil
		}
		return nil, fmt.Errorf("cannot convert %T to bool for type %s", val, sqlType)

	case "varchar", "char":
		if s, ok := val.(string); ok {
			return s, nil
		}
		return fmt.Sprintf("%v", val), nil

	case "decimal":
		// Return as string for precision safety
		switch v := val.(type) {
		case string:
			return v, nil
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64), nil
		case json.Number:
			return v.String(), nil
		default:
			return fmt.Sprintf("%v", val), nil
		}

	case "date":
		if s, ok := val.(string); ok {
			return time.Parse("2006-01-02", s)
		}
		return nil, fmt.Errorf("cannot convert %T to date", val)

	case "timestamp":
		if s, ok := val.(string); ok {
			return parseTimestamp(s)
		}
		return nil, fmt.Errorf("cannot convert %T to timestamp", val)

	case "timestamp with time zone":
		if s, ok := val.(string); ok {
			return parseTimestampWithTZ(s)
		}
		return nil, fmt.Errorf("cannot convert %T to timestamp with time zone", val)

	case "varbinary":
		if s, ok := val.(string); ok {
			return []byte(s), nil
		}
		return nil, fmt.Errorf("cannot convert %T to varbinary", val)

	default:
		// array, map, row, json, and unknown types → JSON string
		b, err := json.Marshal(val)
		if err != nil {
			return nil, err
		}
		return string(b), nil
	}
}

// parseTimestamp parses a timestamp string without time zone.
func parseTimestamp(s string) (time.Time, error) {
	formats := []string{
		"2006-01-02 15:04:05.000",
		"2006-01-02 15:04:05.000000",
		"2006-01-02 15:04:05.000000000",
		"2006-01-02 15:04:05",
	}
	for _, f := range formats {
		if t, err := time.Parse(f, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse timestamp %q", s)
}

// parseTimestampWithTZ parses a "timestamp with time zone" string.
func parseTimestampWithTZ(s string) (time.Time, error) {
	formats := []string{
		"2006-01-02 15:04:05.000 MST",
		"2006-01-02 15:04:05.000 -07:00",
		"2006-01-02 15:04:05.000000 MST",
		"2006-01-02 15:04:05.000000 -07:00",
		"2006-01-02 15:04:05 MST",
		"2006-01-02 15:04:05 -07:00",
	}
	for _, f := range formats {
		if t, err := time.Parse(f, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse timestamp with time zone %q", s)
}

// --- Driver Types ---

// sqlDriver implements driver.Driver and driver.DriverContext.
type sqlDriver struct{}

var _ driver.Driver = (*sqlDriver)(nil)
var _ driver.DriverContext = (*sqlDriver)(nil)

// Open implements driver.Driver.
func (d *sqlDriver) Open(dsn string) (driver.Conn, error) {
	connector, err := NewConnector(dsn)
	if err != nil {
		return nil, err
	}
	return connector.Connect(context.Background())
}

// OpenConnector implements driver.DriverContext.
func (d *sqlDriver) OpenConnector(dsn string) (driver.Connector, error) {
	return NewConnector(dsn)
}

// --- Connector ---

// ConnectorOption configures a sqlConnector.
type ConnectorOption func(*sqlConnector)

// WithSessionSetup registers a hook called on every new Session created by
// the connector. External modules (e.g. Kerberos auth) use it to configure
// sessions without touching the core driver.
func WithSessionSetup(fn func(*Session)) ConnectorOption {
	return func(c *sqlConnector) {
		c.sessionSetup = fn
	}
}

// sqlConnector implements driver.Connector. It creates one shared Client
// lazily and produces a fresh Session for each Connect call, so connections
// handed out by database/sql do not race on session state.
type sqlConnector struct {
	cfg          *dsnConfig
	client       *Client
	once         sync.Once
	err          error
	sessionSetup func(*Session)
}

var _ driver.Connector = (*sqlConnector)(nil)

// NewConnector creates a driver.Connector from a DSN string. Use it with
// sql.OpenDB for connection pool management.
func NewConnector(dsn string, opts ...ConnectorOption) (driver.Connector, error) {
	cfg, err := parseDSN(dsn)
	if err != nil {
		return nil, err
	}
	c := &sqlConnector{cfg: cfg}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Connect implements driver.Connector.
func (c *sqlConnector) Connect(ctx context.Context) (driver.Conn, error) {
	c.once.Do(func() {
		c.client, c.err = NewClient(c.cfg.serverURL())
		if c.err != nil {
			return
		}
		c.client.usePrestoHeaders = c.cfg.prestoMode
	})
	if c.err != nil {
		return nil, c.err
	}

	session := c.client.NewSession()

	if c.cfg.user != "" {
		if c.cfg.password != "" {
			session.BasicAuth(c.cfg.user, c.cfg.password)
		} else {
			session.User(c.cfg.user)
		}
	}
	if c.cfg.bearerToken != "" {
		session.BearerToken(c.cfg.bearerToken)
	}
	if c.cfg.catalog != "" {
		session.Catalog(c.cfg.catalog)
	}
	if c.cfg.schema != "" {
		session.Schema(c.cfg.schema)
	}
	if c.cfg.timezone != "" {
		session.TimeZone(c.cfg.timezone)
	}
	if c.cfg.clientInfo != "" {
		session.ClientInfo(c.cfg.clientInfo)
	}
	if c.cfg.source != "" {
		session.Source(c.cfg.source)
	}
	if c.cfg.traceToken != "" {
		session.TraceToken(c.cfg.traceToken)
	}
	if len(c.cfg.clientTags) > 0 {
		session.ClientTags(c.cfg.clientTags...)
	}
	for k, v := range c.cfg.sessionProps {
		session.Property(k, v)
	}

	if c.sessionSetup != nil {
		c.sessionSetup(session)
	}

	return &sqlConn{session: session}, nil
}

// Driver implements driver.Connector.
func (c *sqlConnector) Driver() driver.Driver {
	return &sqlDriver{}
}

// --- Connection ---

// sqlConn implements driver.Conn, driver.QueryerContext,
// driver.ExecerContext, and driver.ConnBeginTx.
type sqlConn struct {
	session *Session
	closed  bool
}

var _ driver.Conn = (*sqlConn)(nil)
var _ driver.QueryerContext = (*sqlConn)(nil)
var _ driver.ExecerContext = (*sqlConn)(nil)
var _ driver.ConnBeginTx = (*sqlConn)(nil)

// Prepare implements driver.Conn.
func (c *sqlConn) Prepare(query string) (driver.Stmt, error) {
	return &sqlStmt{conn: c, query: query}, nil
}

// Close implements driver.Conn.
func (c *sqlConn) Close() error {
	c.closed = true
	return nil
}

// Begin implements driver.Conn. Use BeginTx instead.
func (c *sqlConn) Begin() (driver.Tx, error) {
	return c.BeginTx(context.Background(), driver.TxOptions{})
}

// BeginTx implements driver.ConnBeginTx. The server acknowledges START
// TRANSACTION with a started-transaction-id directive, which the session
// echoes on every statement until COMMIT or ROLLBACK clears it.
func (c *sqlConn) BeginTx(ctx context.Context, opts driver.TxOptions) (driver.Tx, error) {
	if opts.Isolation != 0 && driver.IsolationLevel(opts.Isolation) != driver.IsolationLevel(sql.LevelDefault) {
		return nil, fmt.Errorf("trino: isolation level %d is not supported", opts.Isolation)
	}
	if opts.ReadOnly {
		return nil, fmt.Errorf("trino: read-only transactions are not supported")
	}

	_, err := c.execDirect(ctx, "START TRANSACTION")
	if err != nil {
		return nil, fmt.Errorf("trino: failed to start transaction: %w", err)
	}
	return &sqlTx{conn: c}, nil
}

// QueryContext implements driver.QueryerContext.
func (c *sqlConn) QueryContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	interpolated, err := interpolateParams(query, namedToPositional(args))
	if err != nil {
		return nil, err
	}

	exec := c.session.Execute(interpolated)

	// Pull windows until the first data arrives or the query ends; early
	// polls carry neither columns nor rows.
	for exec.Next(ctx) {
		if len(exec.Result().Data) > 0 || exec.Done() {
			break
		}
	}
	if err := exec.Err(); err != nil {
		return nil, err
	}
	return newSQLRows(ctx, exec)
}

// ExecContext implements driver.ExecerContext.
func (c *sqlConn) ExecContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	interpolated, err := interpolateParams(query, namedToPositional(args))
	if err != nil {
		return nil, err
	}
	return c.execDirect(ctx, interpolated)
}

// execDirect executes a statement and drains every window, returning the
// final update count.
func (c *sqlConn) execDirect(ctx context.Context, query string) (driver.Result, error) {
	exec := c.session.Execute(query)
	if err := exec.Each(ctx, nil); err != nil {
		return nil, err
	}
	res := &sqlResult{}
	if final := exec.Result(); final != nil {
		res.updateCount = final.UpdateCount
	}
	return res, nil
}

// namedToPositional converts named values to a positional driver.Value slice.
func namedToPositional(args []driver.NamedValue) []driver.Value {
	positional := make([]driver.Value, len(args))
	for i, arg := range args {
		positional[i] = arg.Value
	}
	return positional
}

// --- Result ---

// sqlResult implements driver.Result.
type sqlResult struct {
	updateCount *int64
}

var _ driver.Result = (*sqlResult)(nil)

// LastInsertId implements driver.Result. The engine has no auto-increment
// ids.
func (r *sqlResult) LastInsertId() (int64, error) {
	return 0, fmt.Errorf("trino: LastInsertId is not supported")
}

// RowsAffected implements driver.Result.
func (r *sqlResult) RowsAffected() (int64, error) {
	if r.updateCount == nil {
		return 0, nil
	}
	return *r.updateCount, nil
}

// --- Rows ---

// sqlRows implements driver.Rows along with the column-type extensions.
type sqlRows struct {
	exec    *Execution
	ctx     context.Context
	columns []Column
	// Current window of decoded rows and the position within it
	rows   []QueryRow
	pos    int
	closed bool
}

var _ driver.Rows = (*sqlRows)(nil)
var _ driver.RowsColumnTypeDatabaseTypeName = (*sqlRows)(nil)
var _ driver.RowsColumnTypeScanType = (*sqlRows)(nil)

// newSQLRows wraps an execution whose current window carries the column
// metadata and, possibly, the first rows.
func newSQLRows(ctx context.Context, exec *Execution) (*sqlRows, error) {
	r := &sqlRows{
		exec: exec,
		ctx:  ctx,
	}
	if qr := exec.Result(); qr != nil {
		r.columns = qr.Columns
		rows, err := qr.DecodedRows()
		if err != nil {
			return nil, &FetchError{Err: err}
		}
		r.rows = rows
	}
	return r, nil
}

// Columns implements driver.Rows.
func (r *sqlRows) Columns() []string {
	names := make([]string, len(r.columns))
	for i, col := range r.columns {
		names[i] = col.Name
	}
	return names
}

// Close implements driver.Rows. An unfinished statement is cancelled on the
// server so it does not keep running unattended.
func (r *sqlRows) Close() error {
	r.closed = true
	if uri := r.exec.CancelURI(); uri != "" && !r.exec.Done() {
		return r.exec.session.Cancel(context.Background(), uri)
	}
	return nil
}

// Next implements driver.Rows.
func (r *sqlRows) Next(dest []driver.Value) error {
	if r.closed {
		return io.EOF
	}

	for r.pos >= len(r.rows) {
		// Current window exhausted; pull the next one
		if !r.exec.Next(r.ctx) {
			if err := r.exec.Err(); err != nil {
				return err
			}
			return io.EOF
		}
		qr := r.exec.Result()
		if len(r.columns) == 0 {
			r.columns = qr.Columns
		}
		rows, err := qr.DecodedRows()
		if err != nil {
			return &FetchError{Err: err}
		}
		r.rows, r.pos = rows, 0
	}

	row := r.rows[r.pos]
	r.pos++

	for i, col := range r.columns {
		if i >= len(row) {
			dest[i] = nil
			continue
		}
		val, err := convertValue(row[i], col.Type)
		if err != nil {
			return err
		}
		dest[i] = val
	}
	return nil
}

// ColumnTypeDatabaseTypeName implements driver.RowsColumnTypeDatabaseTypeName.
func (r *sqlRows) ColumnTypeDatabaseTypeName(index int) string {
	if index < 0 || index >= len(r.columns) {
		return ""
	}
	return strings.ToUpper(normalizeType(r.columns[index].Type))
}

// ColumnTypeScanType implements driver.RowsColumnTypeScanType.
func (r *sqlRows) ColumnTypeScanType(index int) reflect.Type {
	if index < 0 || index >= len(r.columns) {
		return reflect.TypeOf("")
	}
	return scanTypeFor(r.columns[index].Type)
}

// --- Statement ---

// sqlStmt implements driver.Stmt, driver.StmtQueryContext, and
// driver.StmtExecContext.
type sqlStmt struct {
	conn  *sqlConn
	query string
}

var _ driver.Stmt = (*sqlStmt)(nil)
var _ driver.StmtQueryContext = (*sqlStmt)(nil)
var _ driver.StmtExecContext = (*sqlStmt)(nil)

// Close implements driver.Stmt.
func (s *sqlStmt) Close() error {
	return nil
}

// NumInput implements driver.Stmt. Returns -1 to disable driver-side
// validation.
func (s *sqlStmt) NumInput() int {
	return -1
}

// Exec implements driver.Stmt.
func (s *sqlStmt) Exec(args []driver.Value) (driver.Result, error) {
	return s.ExecContext(context.Background(), namedValues(args))
}

// Query implements driver.Stmt.
func (s *sqlStmt) Query(args []driver.Value) (driver.Rows, error) {
	return s.QueryContext(context.Background(), namedValues(args))
}

// ExecContext implements driver.StmtExecContext.
func (s *sqlStmt) ExecContext(ctx context.Context, args []driver.NamedValue) (driver.Result, error) {
	return s.conn.ExecContext(ctx, s.query, args)
}

// QueryContext implements driver.StmtQueryContext.
func (s *sqlStmt) QueryContext(ctx context.Context, args []driver.NamedValue) (driver.Rows, error) {
	return s.conn.QueryContext(ctx, s.query, args)
}

// namedValues converts positional args to a NamedValue slice.
func namedValues(args []driver.Value) []driver.NamedValue {
	named := make([]driver.NamedValue, len(args))
	for i, v := range args {
		named[i] = driver.NamedValue{Ordinal: i + 1, Value: v}
	}
	return named
}

// --- Transaction ---

// sqlTx implements driver.Tx.
type sqlTx struct {
	conn *sqlConn
}

var _ driver.Tx = (*sqlTx)(nil)

// Commit implements driver.Tx.
func (tx *sqlTx) Commit() error {
	_, err := tx.conn.execDirect(context.Background(), "COMMIT")
	return err
}

// Rollback implements driver.Tx.
func (tx *sqlTx) Rollback() error {
	_, err := tx.conn.execDirect(context.Background(), "ROLLBACK")
	return err
}
