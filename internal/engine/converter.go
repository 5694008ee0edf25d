package engine

import (
	"context"
	"fmt"
	"os"

	"taxi-ingest/internal/ddl"
	"taxi-ingest/internal/domain"
)

// ParquetConverter converts compressed CSV extracts to Parquet using a
// short-lived in-memory DuckDB instance per file.
type ParquetConverter struct{}

// Compile-time interface check.
var _ domain.Converter = (*ParquetConverter)(nil)

// NewParquetConverter creates a ParquetConverter.
func NewParquetConverter() *ParquetConverter {
	return &ParquetConverter{}
}

// Convert reads srcPath in full and writes dstPath. Output goes to a
// ".tmp" sibling first and is renamed into place only after DuckDB
// finishes, so dstPath never exists in a half-written state.
func (c *ParquetConverter) Convert(ctx context.Context, srcPath, dstPath string) error {
	tmpPath := dstPath + ".tmp"
	stmt, err := ddl.CopyCSVToParquet(srcPath, tmpPath)
	if err != nil {
		return fmt.Errorf("build COPY: %w", err)
	}

	db, err := Open(ctx, "")
	if err != nil {
		return err
	}
	defer db.Close() //nolint:errcheck

	if _, err := db.ExecContext(ctx, stmt); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("convert %s to parquet: %w", srcPath, err)
	}
	if err := os.Rename(tmpPath, dstPath); err != nil {
		return fmt.Errorf("finalize %s: %w", dstPath, err)
	}
	return nil
}
