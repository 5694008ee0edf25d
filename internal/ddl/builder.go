// Package ddl builds the DuckDB statements used to convert and load trip files.
package ddl

import (
	"fmt"
)

// CreateSchema returns: CREATE SCHEMA IF NOT EXISTS "<name>".
func CreateSchema(name string) (string, error) {
	if err := ValidateIdentifier(name); err != nil {
		return "", fmt.Errorf("invalid schema name: %w", err)
	}
	return fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", QuoteIdentifier(name)), nil
}

// CopyCSVToParquet returns a COPY statement that reads a (possibly
// compressed) CSV file with type sniffing and writes it as Parquet.
//
//	COPY (SELECT * FROM read_csv_auto('<src>')) TO '<dst>' (FORMAT PARQUET)
func CopyCSVToParquet(srcPath, dstPath string) (string, error) {
	if srcPath == "" {
		return "", fmt.Errorf("source path is required")
	}
	if dstPath == "" {
		return "", fmt.Errorf("destination path is required")
	}
	return fmt.Sprintf("COPY (SELECT * FROM read_csv_auto(%s)) TO %s (FORMAT PARQUET)",
		QuoteLiteral(srcPath),
		QuoteLiteral(dstPath),
	), nil
}

// ReplaceTableFromParquet returns a statement that rebuilds a table from every
// Parquet file matching glob, unioning columns by name:
//
//	CREATE OR REPLACE TABLE "<schema>"."<table>" AS
//	SELECT * FROM read_parquet('<glob>', union_by_name = true)
func ReplaceTableFromParquet(schema, table, glob string) (string, error) {
	if err := ValidateIdentifier(schema); err != nil {
		return "", fmt.Errorf("invalid schema name: %w", err)
	}
	if err := ValidateIdentifier(table); err != nil {
		return "", fmt.Errorf("invalid table name: %w", err)
	}
	if glob == "" {
		return "", fmt.Errorf("source glob is required")
	}
	return fmt.Sprintf("CREATE OR REPLACE TABLE %s.%s AS SELECT * FROM read_parquet(%s, union_by_name = true)",
		QuoteIdentifier(schema),
		QuoteIdentifier(table),
		QuoteLiteral(glob),
	), nil
}

// DropTable returns: DROP TABLE IF EXISTS "<schema>"."<table>".
func DropTable(schema, table string) (string, error) {
	if err := ValidateIdentifier(schema); err != nil {
		return "", fmt.Errorf("invalid schema name: %w", err)
	}
	if err := ValidateIdentifier(table); err != nil {
		return "", fmt.Errorf("invalid table name: %w", err)
	}
	return fmt.Sprintf("DROP TABLE IF EXISTS %s.%s", QuoteIdentifier(schema), QuoteIdentifier(table)), nil
}

// CountRows returns: SELECT COUNT(*) FROM "<schema>"."<table>".
func CountRows(schema, table string) (string, error) {
	if err := ValidateIdentifier(schema); err != nil {
		return "", fmt.Errorf("invalid schema name: %w", err)
	}
	if err := ValidateIdentifier(table); err != nil {
		return "", fmt.Errorf("invalid table name: %w", err)
	}
	return fmt.Sprintf("SELECT COUNT(*) FROM %s.%s", QuoteIdentifier(schema), QuoteIdentifier(table)), nil
}
