package gateway

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/vegasq/partsync/relation"
)

// Dialect names a supported engine.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// ParseDialect accepts the engine names used in configuration.
func ParseDialect(name string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "postgres", "postgresql", "pgx":
		return DialectPostgres, nil
	case "sqlite", "sqlite3":
		return DialectSQLite, nil
	default:
		return "", fmt.Errorf("unsupported gateway driver %q (supported: postgres, sqlite)", name)
	}
}

// driverName is the database/sql driver registered for d.
func (d Dialect) driverName() string {
	if d == DialectPostgres {
		return "pgx"
	}
	return "sqlite"
}

// SQLGateway executes queries through database/sql.
type SQLGateway struct {
	db      *sql.DB
	dialect Dialect
	logger  *slog.Logger
}

// Option configures a SQLGateway.
type Option func(*SQLGateway)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(g *SQLGateway) {
		if l != nil {
			g.logger = l
		}
	}
}

// Open connects to the engine named by driver ("postgres" or "sqlite").
// The connection is not verified until the first query or Ping.
func Open(driver, dsn string, opts ...Option) (*SQLGateway, error) {
	dialect, err := ParseDialect(driver)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(dialect.driverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Each connection to an in-memory SQLite database is a separate
	// database.
	if dialect == DialectSQLite && strings.Contains(dsn, ":memory:") {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	return New(db, dialect, opts...), nil
}

// New wraps an open database handle.
func New(db *sql.DB, dialect Dialect, opts ...Option) *SQLGateway {
	g := &SQLGateway{db: db, dialect: dialect, logger: slog.Default()}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Ping verifies the engine is reachable.
func (g *SQLGateway) Ping(ctx context.Context) error {
	if err := g.db.PingContext(ctx); err != nil {
		return &ExecutionError{Err: fmt.Errorf("ping: %w", err)}
	}
	return nil
}

// Close releases the connection pool.
func (g *SQLGateway) Close() error {
	return g.db.Close()
}

// DB returns the underlying handle.
func (g *SQLGateway) DB() *sql.DB {
	return g.db
}

// Execute renders query with params and runs it. On PostgreSQL a non-empty
// database becomes the search_path for this query only; SQLite has a single
// schema and ignores it.
func (g *SQLGateway) Execute(ctx context.Context, query, database string, params map[string]interface{}) (*relation.Relation, error) {
	rendered, err := Render(query, params)
	if err != nil {
		return nil, err
	}

	fail := func(err error) error {
		return &ExecutionError{Database: database, Query: rendered, Err: err}
	}

	tx, err := g.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fail(fmt.Errorf("begin: %w", err))
	}
	defer func() { _ = tx.Rollback() }()

	if database != "" {
		switch g.dialect {
		case DialectPostgres:
			stmt := "SET LOCAL search_path TO " + pgx.Identifier{database}.Sanitize()
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return nil, fail(fmt.Errorf("select schema: %w", err))
			}
		default:
			g.logger.Debug("database ignored by dialect", "dialect", string(g.dialect), "database", database)
		}
	}

	rows, err := tx.QueryContext(ctx, rendered)
	if err != nil {
		return nil, fail(err)
	}
	rel, err := g.scan(rows)
	if err != nil {
		return nil, fail(err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fail(fmt.Errorf("commit: %w", err))
	}

	g.logger.Debug("query executed", "database", database, "rows", rel.Len(), "columns", rel.Width())
	return rel, nil
}

// scan reads every row into a relation. Column types come from the values;
// a declared engine type wins when every value converts to it.
func (g *SQLGateway) scan(rows *sql.Rows) (*relation.Relation, error) {
	defer func() { _ = rows.Close() }()

	colTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("column types: %w", err)
	}
	names := make([]string, len(colTypes))
	for i, ct := range colTypes {
		names[i] = ct.Name()
	}

	var data [][]interface{}
	for rows.Next() {
		cells := make([]interface{}, len(names))
		ptrs := make([]interface{}, len(names))
		for i := range cells {
			ptrs[i] = &cells[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		for i, c := range cells {
			if b, ok := c.([]byte); ok {
				cells[i] = string(b)
			}
		}
		data = append(data, cells)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rel, err := relation.New(names, data)
	if err != nil {
		return nil, err
	}

	for i, ct := range colTypes {
		want, ok := columnType(ct.DatabaseTypeName())
		if !ok {
			continue
		}
		col, _ := rel.Column(names[i])
		if col.Type == want {
			continue
		}
		cast, err := relation.Cast(rel, names[i], want)
		if err != nil {
			g.logger.Debug("keeping inferred column type",
				"column", names[i], "declared", ct.DatabaseTypeName(), "inferred", col.Type.String())
			continue
		}
		rel = cast
	}
	return rel, nil
}

// columnType maps an engine type name to a relation type.
func columnType(dbType string) (relation.Type, bool) {
	name := strings.ToUpper(dbType)
	if i := strings.IndexByte(name, '('); i >= 0 {
		name = name[:i]
	}
	switch strings.TrimSpace(name) {
	case "INT", "INT2", "INT4", "INT8", "INTEGER", "SMALLINT", "BIGINT", "TINYINT":
		return relation.TypeInt, true
	case "REAL", "FLOAT", "FLOAT4", "FLOAT8", "DOUBLE", "DOUBLE PRECISION", "NUMERIC", "DECIMAL":
		return relation.TypeFloat, true
	case "BOOL", "BOOLEAN":
		return relation.TypeBool, true
	case "DATE", "DATETIME", "TIMESTAMP", "TIMESTAMPTZ":
		return relation.TypeTimestamp, true
	case "TEXT", "VARCHAR", "CHAR", "BPCHAR", "NAME", "UUID", "CHARACTER VARYING":
		return relation.TypeString, true
	default:
		return relation.TypeAny, false
	}
}
