package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"taxi-ingest/internal/engine"
)

// versionInfo is what `taxi-ingest version` reports: the build plus the
// DuckDB library that writes the Parquet files and tables.
type versionInfo struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	DuckDB  string `json:"duckdb"`
	Go      string `json:"go"`
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the taxi-ingest build and embedded DuckDB versions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			duck, err := engine.Version(cmd.Context())
			if err != nil {
				return err
			}
			info := versionInfo{Version: version, Commit: commit, DuckDB: duck, Go: runtime.Version()}

			if getOutputFormat(cmd) == "json" {
				return printJSON(cmd.OutOrStdout(), info)
			}
			w := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(w, "taxi-ingest %s (%s)\n", info.Version, info.Commit)
			_, _ = fmt.Fprintf(w, "  duckdb %s\n", info.DuckDB)
			_, _ = fmt.Fprintf(w, "  %s\n", info.Go)
			return nil
		},
	}
}
