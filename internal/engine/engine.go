// Package engine wraps the embedded DuckDB database used to convert CSV
// extracts to Parquet and to materialize trip tables.
package engine

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/duckdb/duckdb-go/v2" // registers the "duckdb" driver

	"taxi-ingest/internal/ddl"
)

// Open opens a DuckDB database at path. An empty path opens an in-memory
// database. The pool is capped at one connection: the tool is the only
// writer and never issues statements concurrently.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb %q: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping duckdb %q: %w", path, err)
	}
	return db, nil
}

// CreateSchema creates the named schema if it does not already exist.
func CreateSchema(ctx context.Context, db *sql.DB, name string) error {
	stmt, err := ddl.CreateSchema(name)
	if err != nil {
		return fmt.Errorf("build DDL: %w", err)
	}
	if _, err := db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("create schema %q: %w", name, err)
	}
	return nil
}

// ReplaceTableFromParquet rebuilds schema.table from every Parquet file
// matching glob. The statement is atomic: on failure the previous table
// contents survive.
func ReplaceTableFromParquet(ctx context.Context, db *sql.DB, schema, table, glob string) error {
	stmt, err := ddl.ReplaceTableFromParquet(schema, table, glob)
	if err != nil {
		return fmt.Errorf("build DDL: %w", err)
	}
	if _, err := db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("replace table %s.%s: %w", schema, table, err)
	}
	return nil
}

// DropTable removes schema.table if it exists.
func DropTable(ctx context.Context, db *sql.DB, schema, table string) error {
	stmt, err := ddl.DropTable(schema, table)
	if err != nil {
		return fmt.Errorf("build DDL: %w", err)
	}
	if _, err := db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("drop table %s.%s: %w", schema, table, err)
	}
	return nil
}

// CountRows returns the number of rows in schema.table.
func CountRows(ctx context.Context, db *sql.DB, schema, table string) (int64, error) {
	stmt, err := ddl.CountRows(schema, table)
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}
	var n int64
	if err := db.QueryRowContext(ctx, stmt).Scan(&n); err != nil {
		return 0, fmt.Errorf("count rows in %s.%s: %w", schema, table, err)
	}
	return n, nil
}

// Version reports the version of the embedded DuckDB library.
func Version(ctx context.Context) (string, error) {
	db, err := Open(ctx, "")
	if err != nil {
		return "", err
	}
	defer db.Close() //nolint:errcheck

	var v string
	if err := db.QueryRowContext(ctx, "SELECT version()").Scan(&v); err != nil {
		return "", fmt.Errorf("query duckdb version: %w", err)
	}
	return v, nil
}
