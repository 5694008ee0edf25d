// Package cli implements the taxi-ingest command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"taxi-ingest/internal/domain"
)

var (
	version = "dev"
	commit  = "none"
)

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return execute(ctx, newRootCmd())
}

func execute(ctx context.Context, rootCmd *cobra.Command) int {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if getOutputFormat(rootCmd) == "json" {
			errObj := map[string]interface{}{
				"error": err.Error(),
			}
			var remoteErr *domain.RemoteError
			if errors.As(err, &remoteErr) {
				errObj["http_status"] = remoteErr.StatusCode
				errObj["url"] = remoteErr.URL
			}
			var validationErr *domain.ValidationError
			if errors.As(err, &validationErr) {
				errObj["code"] = "invalid_argument"
			}
			_ = printJSON(rootCmd.OutOrStdout(), errObj)
		} else {
			fmt.Fprintf(rootCmd.ErrOrStderr(), "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	opts := &runOptions{}

	rootCmd := &cobra.Command{
		Use:   "taxi-ingest",
		Short: "Ingest NYC taxi trip data into DuckDB",
		Long: "Download monthly NYC taxi trip extracts, convert them to Parquet, and load them\n" +
			"into DuckDB tables prod.{yellow,green,fhv}_tripdata.\n\n" +
			"If no taxi type flag is given, all types are processed.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return validateOutputFormat(getOutputFormat(cmd))
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runIngest(cmd, opts)
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&opts.output, "output", "o", "table", "Output format (table, json)")
	pf.StringVarP(&opts.configFile, "config", "c", "", "Config file (default taxi-ingest.yaml if present)")
	pf.StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	pf.StringVar(&opts.logFormat, "log-format", "", "Log format (auto, text, json)")

	f := rootCmd.Flags()
	f.BoolVar(&opts.skipDownload, "skip-download", false, "Skip downloading files and only load to DuckDB")
	f.BoolVar(&opts.downloadOnly, "download-only", false, "Only download files without loading to DuckDB")
	f.BoolVar(&opts.yellow, "yellow", false, "Include yellow taxi data")
	f.BoolVar(&opts.green, "green", false, "Include green taxi data")
	f.BoolVar(&opts.fhv, "fhv", false, "Include FHV (For-Hire Vehicle) taxi data")
	f.StringSliceVar(&opts.categories, "category", nil, "Taxi type to include by name (yellow, green, fhv, for-hire-vehicle); repeatable")
	f.StringVar(&opts.years, "years", "2019", `Comma-separated years to download (e.g. "2019" or "2019,2020")`)
	f.StringVar(&opts.dataDir, "data-dir", "", "Local data directory (default data)")
	f.StringVar(&opts.dbPath, "db-path", "", "DuckDB database file (default taxi_rides_ny.duckdb)")
	f.StringVar(&opts.baseURL, "base-url", "", "Remote release root for the trip extracts")
	f.StringVar(&opts.publishTo, "publish-to", "", "Also upload converted files to s3://, gs://, or az:// location")
	f.Float64Var(&opts.requestsPerSecond, "requests-per-second", 0, "Pace downloads to at most this many requests per second (0 = unlimited)")

	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}
