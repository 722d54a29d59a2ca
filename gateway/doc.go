// Package gateway runs queries against an analytical SQL engine and returns
// the result as a relation.
//
// Query text may carry named placeholders such as {day}. Render substitutes
// them from the parameter map before the query is sent; a placeholder with
// no matching parameter fails with ErrQueryParameter. Engine failures are
// reported as *ExecutionError.
//
// SQLGateway speaks to PostgreSQL through pgx and to SQLite through the
// pure Go modernc driver:
//
//	gw, err := gateway.Open("postgres", "postgres://user@host/analytics")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer gw.Close()
//
//	rel, err := gw.Execute(ctx, "SELECT * FROM sales WHERE day = '{day}'",
//	    "reporting", map[string]any{"day": "2024-03-07"})
package gateway
