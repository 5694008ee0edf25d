// Package ingestion materializes trip tables in DuckDB from local Parquet files.
package ingestion

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"taxi-ingest/internal/domain"
	"taxi-ingest/internal/engine"
)

// Loader rebuilds one table per category from whatever Parquet files are
// on disk. Every load replaces the table; there is no append mode.
type Loader struct {
	dbPath  string
	schema  string
	dataDir string
	logger  *slog.Logger
}

// Compile-time interface check.
var _ domain.TableLoader = (*Loader)(nil)

// NewLoader creates a Loader writing to the DuckDB file at dbPath.
func NewLoader(dbPath, schema, dataDir string, logger *slog.Logger) *Loader {
	return &Loader{
		dbPath:  dbPath,
		schema:  schema,
		dataDir: dataDir,
		logger:  logger,
	}
}

// Load opens the database once, ensures the schema exists, and replaces
// the table of each requested category whose data directory exists. A
// directory with no Parquet files drops the category's table.
// Results for categories loaded before a failure are returned alongside
// the error; those tables keep their new contents.
func (l *Loader) Load(ctx context.Context, categories []domain.Category) ([]domain.LoadResult, error) {
	if dir := filepath.Dir(l.dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database dir %s: %w", dir, err)
		}
	}

	db, err := engine.Open(ctx, l.dbPath)
	if err != nil {
		return nil, err
	}
	defer db.Close() //nolint:errcheck

	if err := engine.CreateSchema(ctx, db, l.schema); err != nil {
		return nil, err
	}

	var results []domain.LoadResult
	for _, c := range categories {
		dir := c.Dir(l.dataDir)
		info, err := os.Stat(dir)
		if errors.Is(err, fs.ErrNotExist) || (err == nil && !info.IsDir()) {
			l.logger.Debug("no local data, skipping", "category", c, "dir", dir)
			continue
		}
		if err != nil {
			return results, fmt.Errorf("stat %s: %w", dir, err)
		}

		glob := filepath.Join(dir, "*.parquet")
		files, err := filepath.Glob(glob)
		if err != nil {
			return results, fmt.Errorf("list %s: %w", glob, err)
		}

		table := c.TableName()
		if len(files) == 0 {
			l.logger.Warn("data directory has no parquet files, dropping table",
				"category", c, "table", l.schema+"."+table, "dir", dir)
			if err := engine.DropTable(ctx, db, l.schema, table); err != nil {
				return results, err
			}
			continue
		}

		l.logger.Info("creating table", "table", l.schema+"."+table, "files", len(files))
		if err := engine.ReplaceTableFromParquet(ctx, db, l.schema, table, glob); err != nil {
			return results, classifyDuckDBError(err)
		}

		rows, err := engine.CountRows(ctx, db, l.schema, table)
		if err != nil {
			return results, err
		}
		l.logger.Info("loaded table", "table", l.schema+"."+table, "rows", rows)

		results = append(results, domain.LoadResult{
			Category: c,
			Table:    l.schema + "." + table,
			Files:    len(files),
			Rows:     rows,
		})
	}
	return results, nil
}

// classifyDuckDBError maps DuckDB load errors into domain errors.
func classifyDuckDBError(err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "No files found"):
		return domain.ErrNotFound("%s", msg)
	case strings.Contains(msg, "Could not read file"),
		strings.Contains(msg, "Invalid Input Error"),
		strings.Contains(msg, "Conversion Error"):
		return domain.ErrValidation("%s", msg)
	default:
		return err
	}
}
