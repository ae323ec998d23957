package trino_test

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"testing"
	"time"

	trino "github.com/openlakehouse/trino-go"
)

// =============================================================================
// Getting Started Examples
//
// These tests serve as executable documentation showing how to use trino-go.
// They are skipped by default because they require a running Trino server.
//
// To run against a local cluster:
//   go test -run TestExample -v
// =============================================================================

const trinoURL = "http://localhost:8080"

// --- database/sql Interface ---

func TestExample_DatabaseSQL_BasicQuery(t *testing.T) {
	t.Skip("requires a running Trino server")

	db, err := sql.Open("trino", "trino://localhost:8080/hive/default")
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	rows, err := db.QueryContext(context.Background(), "SELECT 1 AS id, 'hello' AS greeting")
	if err != nil {
		log.Fatal(err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		var greeting string
		if err := rows.Scan(&id, &greeting); err != nil {
			log.Fatal(err)
		}
		fmt.Println(id, greeting)
	}
}

func TestExample_DatabaseSQL_ParameterInterpolation(t *testing.T) {
	t.Skip("requires a running Trino server")

	db, err := sql.Open("trino", "trino://localhost:8080/hive/default")
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	// The driver interpolates ? placeholders client-side into SQL literals.
	rows, err := db.QueryContext(context.Background(),
		"SELECT * FROM users WHERE name = ? AND active = ? AND created > ?",
		"alice", true, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	)
	if err != nil {
		log.Fatal(err)
	}
	defer rows.Close()
}

func TestExample_DatabaseSQL_ComplexTypes(t *testing.T) {
	t.Skip("requires a running Trino server")

	db, err := sql.Open("trino", "trino://localhost:8080/hive/default")
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	row := db.QueryRowContext(context.Background(),
		"SELECT ARRAY['go', 'trino'], MAP(ARRAY['timeout'], ARRAY[30]), CAST(ROW('123 Main St', 'Springfield') AS ROW(street VARCHAR, city VARCHAR))",
	)

	// ARRAY columns
	var tags trino.NullSlice[string]
	// MAP columns
	var props trino.NullMap[string, float64]
	// ROW columns (scan into a struct)
	type Address struct {
		Street string `json:"street"`
		City   string `json:"city"`
	}
	var addr trino.NullRow[Address]

	if err := row.Scan(&tags, &props, &addr); err != nil {
		log.Fatal(err)
	}

	fmt.Println("tags:", tags.Slice)    // [go trino]
	fmt.Println("props:", props.Map)    // map[timeout:30]
	fmt.Println("city:", addr.Row.City) // Springfield
}

func TestExample_DatabaseSQL_ConnectorOptions(t *testing.T) {
	t.Skip("requires a running Trino server")

	// Use sql.OpenDB with a Connector for programmatic configuration.
	connector, err := trino.NewConnector("trino://localhost:8080/hive/default",
		trino.WithSessionSetup(func(s *trino.Session) {
			s.Property("query_max_memory", "2GB")
		}),
	)
	if err != nil {
		log.Fatal(err)
	}
	db := sql.OpenDB(connector)
	defer db.Close()

	var n int64
	db.QueryRowContext(context.Background(), "SELECT 42").Scan(&n)
	fmt.Println(n)
}

func TestExample_DatabaseSQL_Presto(t *testing.T) {
	t.Skip("requires a running Presto server")

	// Use the presto:// scheme to switch to the X-Presto- header vocabulary.
	db, err := sql.Open("trino", "presto://localhost:8080/hive/default")
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	var greeting string
	db.QueryRowContext(context.Background(), "SELECT 'hello from presto'").Scan(&greeting)
	fmt.Println(greeting)
}

// --- Low-Level API ---

func TestExample_LowLevel_LazyExecution(t *testing.T) {
	t.Skip("requires a running Trino server")

	client, err := trino.NewClient(trinoURL)
	if err != nil {
		log.Fatal(err)
	}

	session := client.NewSession()
	session.Catalog("hive").Schema("default")

	ctx := context.Background()

	// Execute issues no request; each Next performs one round trip and
	// yields one result window.
	exec := session.Execute("SELECT * FROM large_table")
	for exec.Next(ctx) {
		rows, err := exec.Result().DecodedRows()
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("window: %d rows\n", len(rows))
	}
	if err := exec.Err(); err != nil {
		log.Fatal(err)
	}
}

func TestExample_LowLevel_EagerQuery(t *testing.T) {
	t.Skip("requires a running Trino server")

	client, err := trino.NewClient(trinoURL)
	if err != nil {
		log.Fatal(err)
	}
	session := client.NewSession().Catalog("hive").Schema("default")

	rows, columns, _, err := session.Query(context.Background(), "SELECT id, name FROM users")
	if err != nil {
		log.Fatal(err)
	}
	for _, col := range columns {
		fmt.Println("column:", col.Name, col.Type)
	}
	for _, row := range rows {
		fmt.Println(row...)
	}
}

func TestExample_LowLevel_FailureKinds(t *testing.T) {
	t.Skip("requires a running Trino server")

	client, err := trino.NewClient(trinoURL)
	if err != nil {
		log.Fatal(err)
	}
	session := client.NewSession()

	_, _, _, err = session.Query(context.Background(), "SELECT bogus syntax here")
	if err != nil {
		// Every failure carries a kind for routing decisions.
		kind, _ := trino.KindOf(err)
		switch kind {
		case trino.KindFetch:
			fmt.Println("transport problem:", err)
		case trino.KindHTTP:
			fmt.Println("coordinator rejected the request:", err)
		case trino.KindUser:
			fmt.Println("fix the query:", err)
		default:
			fmt.Println("server-side failure:", err)
		}
	}
}

func TestExample_LowLevel_SessionIsolation(t *testing.T) {
	t.Skip("requires a running Trino server")

	client, err := trino.NewClient(trinoURL)
	if err != nil {
		log.Fatal(err)
	}

	// Configure the default session on the client.
	client.User("default_user").Catalog("hive")

	// Create isolated sessions for different workloads. Each session owns
	// independent state: catalog, schema, user, properties, transaction.
	etlSession := client.NewSession()
	etlSession.Schema("staging").User("etl_service")
	etlSession.Property("query_max_memory", "8GB")

	analyticsSession := client.NewSession()
	analyticsSession.Schema("production").User("analyst")
	analyticsSession.Property("query_max_memory", "2GB")

	// Clone a session for a one-off workload.
	tempSession := etlSession.Clone()
	tempSession.Schema("temp")

	_ = analyticsSession
	_ = tempSession
}

func TestExample_LowLevel_Cancellation(t *testing.T) {
	t.Skip("requires a running Trino server")

	client, err := trino.NewClient(trinoURL)
	if err != nil {
		log.Fatal(err)
	}
	session := client.NewSession().Catalog("hive").Schema("default")

	// Context cancellation sends a best-effort DELETE for the abandoned
	// statement.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	exec := session.Execute("SELECT * FROM very_large_table")
	for exec.Next(ctx) {
		// process windows...
	}
	if err := exec.Err(); err != nil {
		fmt.Println("query stopped:", err)
	}
}

func TestExample_LowLevel_ServerInfo(t *testing.T) {
	t.Skip("requires a running Trino server")

	client, err := trino.NewClient(trinoURL)
	if err != nil {
		log.Fatal(err)
	}
	session := client.NewSession()

	ctx := context.Background()

	info, _, err := session.GetServerInfo(ctx)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Trino %s (%s), uptime %s\n", info.NodeVersion.Version, info.Environment, info.Uptime)

	state := "RUNNING"
	queries, _, err := session.ListQueries(ctx, &trino.ListQueriesOptions{State: &state})
	if err != nil {
		log.Fatal(err)
	}
	for _, q := range queries {
		fmt.Printf("query %s: %s\n", q.QueryId, q.State)
	}
}

func TestExample_LowLevel_RequestOptions(t *testing.T) {
	t.Skip("requires a running Trino server")

	client, err := trino.NewClient(trinoURL)
	if err != nil {
		log.Fatal(err)
	}
	session := client.NewSession().Catalog("hive").Schema("default")

	// Persistent request options apply to every request from this session,
	// including continuation polls. Auth modules inject tokens this way.
	session.RequestOptions(func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer my-token")
	})

	_, _, _, err = session.Query(context.Background(), "SELECT 1")
	if err != nil {
		log.Fatal(err)
	}
}
