package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"taxi-ingest/internal/app"
	"taxi-ingest/internal/config"
	"taxi-ingest/internal/domain"
)

// runOptions holds the values bound to the root command's flags.
type runOptions struct {
	output     string
	configFile string
	logLevel   string
	logFormat  string

	skipDownload bool
	downloadOnly bool
	yellow       bool
	green        bool
	fhv          bool
	categories   []string
	years        string

	dataDir           string
	dbPath            string
	baseURL           string
	publishTo         string
	requestsPerSecond float64
}

// ParseYears parses a comma-separated list such as "2019, 2020".
// Tokens are trimmed; any token that is not an integer is rejected.
func ParseYears(s string) ([]int, error) {
	parts := strings.Split(s, ",")
	years := make([]int, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		y, err := strconv.Atoi(p)
		if err != nil {
			return nil, domain.ErrValidation("invalid year %q in --years %q", p, s)
		}
		years = append(years, y)
	}
	return years, nil
}

// SelectCategories returns the categories whose flags are set, in the
// fixed order yellow, green, fhv. With no flag set it returns all three.
func SelectCategories(yellow, green, fhv bool) []domain.Category {
	if !yellow && !green && !fhv {
		return domain.AllCategories()
	}
	var out []domain.Category
	if yellow {
		out = append(out, domain.CategoryYellow)
	}
	if green {
		out = append(out, domain.CategoryGreen)
	}
	if fhv {
		out = append(out, domain.CategoryFHV)
	}
	return out
}

func runIngest(cmd *cobra.Command, opts *runOptions) error {
	years, err := ParseYears(opts.years)
	if err != nil {
		return err
	}
	for _, name := range opts.categories {
		c, err := domain.ParseCategory(name)
		if err != nil {
			return err
		}
		switch c {
		case domain.CategoryYellow:
			opts.yellow = true
		case domain.CategoryGreen:
			opts.green = true
		case domain.CategoryFHV:
			opts.fhv = true
		}
	}
	plan := domain.Plan{
		Categories:   SelectCategories(opts.yellow, opts.green, opts.fhv),
		Years:        years,
		SkipDownload: opts.skipDownload,
		DownloadOnly: opts.downloadOnly,
	}

	cfg, err := config.Load(opts.configFile)
	if err != nil {
		return err
	}
	applyFlagOverrides(cmd, cfg, opts)

	logger := newLogger(cmd.ErrOrStderr(), cfg).With("run_id", uuid.NewString())
	for _, w := range cfg.Warnings {
		logger.Warn(w)
	}

	a, err := app.New(cmd.Context(), app.Deps{Cfg: cfg, Logger: logger})
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("release publisher", "error", err)
		}
	}()

	out := cmd.OutOrStdout()
	jsonOut := opts.output == "json"
	if !jsonOut {
		printPlan(out, plan)
	}

	summary, runErr := a.Run(cmd.Context(), plan)
	if jsonOut {
		if runErr != nil {
			return runErr
		}
		return printJSON(out, newRunOutput(plan, summary))
	}
	printSummary(out, plan, summary, runErr == nil)
	return runErr
}

// applyFlagOverrides gives explicitly set flags precedence over config
// file and environment values.
func applyFlagOverrides(cmd *cobra.Command, cfg *config.Config, opts *runOptions) {
	cmd.Flags().Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "log-level":
			cfg.LogLevel = opts.logLevel
		case "log-format":
			cfg.LogFormat = opts.logFormat
		case "data-dir":
			cfg.DataDir = opts.dataDir
		case "db-path":
			cfg.DBPath = opts.dbPath
		case "base-url":
			cfg.BaseURL = strings.TrimRight(opts.baseURL, "/")
		case "publish-to":
			cfg.PublishTo = opts.publishTo
		case "requests-per-second":
			cfg.RequestsPerSecond = opts.requestsPerSecond
		}
	})
}

// newLogger builds the run logger. "auto" picks text for a terminal and
// JSON otherwise.
func newLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	handlerOpts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	format := strings.ToLower(cfg.LogFormat)
	if format == "auto" || format == "" {
		format = "json"
		if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
			format = "text"
		}
	}
	if format == "text" {
		return slog.New(slog.NewTextHandler(w, handlerOpts))
	}
	return slog.New(slog.NewJSONHandler(w, handlerOpts))
}

func printPlan(w io.Writer, plan domain.Plan) {
	names := make([]string, len(plan.Categories))
	for i, c := range plan.Categories {
		names[i] = string(c)
	}
	yearStrs := make([]string, len(plan.Years))
	for i, y := range plan.Years {
		yearStrs[i] = strconv.Itoa(y)
	}
	_, _ = fmt.Fprintf(w, "Processing taxi types: %s\n", strings.Join(names, ", "))
	_, _ = fmt.Fprintf(w, "Years: %s\n\n", strings.Join(yearStrs, ", "))
}

// printSummary reports each completed stage. ok is false when the run
// stopped early, in which case only the work that finished is listed.
func printSummary(w io.Writer, plan domain.Plan, s *app.Summary, ok bool) {
	for _, r := range s.Fetched {
		_, _ = fmt.Fprintf(w, "%s: %d converted, %d already present", r.Category, len(r.Converted), len(r.Skipped))
		if len(r.Published) > 0 {
			_, _ = fmt.Fprintf(w, ", %d published", len(r.Published))
		}
		_, _ = fmt.Fprintln(w)
	}
	if plan.DownloadOnly || (!ok && len(s.Loaded) == 0) {
		return
	}
	if len(s.Fetched) > 0 {
		_, _ = fmt.Fprintln(w)
	}
	_, _ = fmt.Fprintln(w, "Loading parquet files into DuckDB...")
	for _, r := range s.Loaded {
		_, _ = fmt.Fprintf(w, "Created %s table\n", r.Table)
		_, _ = fmt.Fprintf(w, "  Loaded %s rows\n", formatCount(r.Rows))
	}
	if ok {
		_, _ = fmt.Fprintln(w, "DuckDB loading complete!")
	}
}

type fetchOutput struct {
	Category  string   `json:"category"`
	Converted []string `json:"converted"`
	Skipped   []string `json:"skipped"`
	Published []string `json:"published,omitempty"`
}

type loadOutput struct {
	Category string `json:"category"`
	Table    string `json:"table"`
	Files    int    `json:"files"`
	Rows     int64  `json:"rows"`
}

type runOutput struct {
	Categories    []string      `json:"categories"`
	Years         []int         `json:"years"`
	IgnoreUpdated bool          `json:"ignore_updated"`
	Fetched       []fetchOutput `json:"fetched"`
	Loaded        []loadOutput  `json:"loaded"`
}

func newRunOutput(plan domain.Plan, s *app.Summary) runOutput {
	out := runOutput{
		Years:         plan.Years,
		IgnoreUpdated: s.IgnoreUpdated,
		Fetched:       []fetchOutput{},
		Loaded:        []loadOutput{},
	}
	for _, c := range plan.Categories {
		out.Categories = append(out.Categories, string(c))
	}
	for _, r := range s.Fetched {
		out.Fetched = append(out.Fetched, fetchOutput{
			Category:  string(r.Category),
			Converted: nonNil(r.Converted),
			Skipped:   nonNil(r.Skipped),
			Published: r.Published,
		})
	}
	for _, r := range s.Loaded {
		out.Loaded = append(out.Loaded, loadOutput{
			Category: string(r.Category),
			Table:    r.Table,
			Files:    r.Files,
			Rows:     r.Rows,
		})
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
