// Package trino is a client library for the Trino and Presto SQL query
// engines, built on their asynchronous statement-execution REST protocol.
//
// A statement is submitted with one POST; the server answers with the first
// result window and a continuation URL, which the client polls with GETs
// until the server stops providing one. Along the way the server can issue
// session directives (set-catalog, set-session, started-transaction-id,
// set-authorization-user, ...) that the client folds into the headers of
// every subsequent request.
//
// # Getting Started
//
// Create a client and execute a query:
//
//	client, err := trino.NewClient("http://coordinator:8080")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	session := client.NewSession()
//	session.User("alice").Catalog("hive").Schema("default")
//
//	rows, columns, _, err := session.Query(ctx, "SELECT * FROM my_table")
//
// # Lazy execution
//
// Query drains a statement eagerly. For window-at-a-time consumption use
// Execute, which performs exactly one HTTP round trip per Next call:
//
//	exec := session.Execute("SELECT * FROM big_table")
//	for exec.Next(ctx) {
//	    window := exec.Result()
//	    // process window.Data
//	}
//	if err := exec.Err(); err != nil {
//	    // *trino.FetchError, *trino.HTTPError, or *trino.QueryError
//	}
//
// # Sessions
//
// Sessions hold the server-steered execution context: catalog, schema, path,
// role, transaction id, session properties, prepared statements, and the
// acting user. One session's state is shared by all queries issued through
// it and updated as their responses arrive, so concurrent queries on a
// shared session can observe each other's session changes; that is a
// property of the protocol, not of this client. Clone a session for an
// isolated context:
//
//	s1 := client.NewSession().Catalog("hive").Schema("prod")
//	s2 := s1.Clone().Schema("staging")
//
// # Failures
//
// Expected failures are values, not panics: transport and body-parse
// problems surface as *FetchError, non-2xx responses as *HTTPError, and
// server-reported query errors as *QueryError carrying the numeric code,
// symbolic name, and errorType-derived kind. Cancelling a running query
// (Session.Cancel) is observed by its consumer as a later USER_CANCELED
// query failure.
//
// # database/sql
//
// The package registers a "trino" driver:
//
//	db, err := sql.Open("trino", "trino://alice@coordinator:8080/hive/default")
//
// # Presto compatibility
//
// The client speaks the X-Trino- header vocabulary by default and can
// translate it for Presto coordinators:
//
//	client.UsePrestoHeaders(true)
package trino
