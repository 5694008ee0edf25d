// Package app provides application-level wiring for taxi-ingest: it builds
// the fetch, convert, publish, and load components from config and runs
// them in order.
package app

import (
	"context"
	"log/slog"
	"net/http"

	"taxi-ingest/internal/config"
	"taxi-ingest/internal/domain"
	"taxi-ingest/internal/engine"
	"taxi-ingest/internal/service/download"
	"taxi-ingest/internal/service/ingestion"
	"taxi-ingest/internal/service/storage"
	"taxi-ingest/internal/service/workspace"
)

// Deps holds the external dependencies that main() must provide.
type Deps struct {
	Cfg        *config.Config
	HTTPClient *http.Client // nil means http.DefaultClient
	Logger     *slog.Logger
}

// Services groups the pipeline stages. Publisher is nil unless
// publishing is configured.
type Services struct {
	Fetcher   domain.Fetcher
	Loader    domain.TableLoader
	Publisher *storage.Publisher
}

// App holds the fully-wired pipeline.
type App struct {
	Services Services
	cfg      *config.Config
	logger   *slog.Logger
}

// Summary describes what a run did.
type Summary struct {
	IgnoreUpdated bool
	Fetched       []domain.FetchReport
	Loaded        []domain.LoadResult
}

// New wires all services from the provided deps.
func New(ctx context.Context, deps Deps) (*App, error) {
	cfg := deps.Cfg
	if err := cfg.Validate(); err != nil {
		return nil, domain.ErrValidation("%s", err.Error())
	}

	downloader := download.NewDownloader(
		deps.HTTPClient,
		cfg.BaseURL,
		cfg.DataDir,
		engine.NewParquetConverter(),
		deps.Logger.With("component", "download"),
	)
	downloader.SetRateLimit(cfg.RequestsPerSecond)

	var publisher *storage.Publisher
	if cfg.PublishTo != "" {
		var err error
		publisher, err = storage.NewPublisherFromConfig(ctx, cfg, deps.HTTPClient)
		if err != nil {
			return nil, err
		}
		downloader.SetPublisher(publisher)
		deps.Logger.Info("publishing enabled", "location", publisher.Location().String())
	}

	loader := ingestion.NewLoader(cfg.DBPath, cfg.Schema, cfg.DataDir, deps.Logger.With("component", "ingestion"))

	return &App{
		Services: Services{
			Fetcher:   downloader,
			Loader:    loader,
			Publisher: publisher,
		},
		cfg:    cfg,
		logger: deps.Logger,
	}, nil
}

// Close releases clients held by the wired services.
func (a *App) Close() error {
	if a.Services.Publisher != nil {
		return a.Services.Publisher.Close()
	}
	return nil
}

// Run executes the plan: ignore-list maintenance and fetching unless
// SkipDownload is set, then loading unless DownloadOnly is set. The
// summary is returned even on error and covers the stages that completed.
func (a *App) Run(ctx context.Context, plan domain.Plan) (*Summary, error) {
	summary := &Summary{}

	if err := validatePlan(plan); err != nil {
		return summary, err
	}
	if plan.SkipDownload && plan.DownloadOnly {
		a.logger.Warn("--skip-download and --download-only together leave nothing to do")
	}

	if !plan.SkipDownload {
		changed, err := workspace.EnsureIgnored(a.cfg.IgnoreFile, workspace.DataDirEntry)
		if err != nil {
			return summary, err
		}
		summary.IgnoreUpdated = changed
		if changed {
			a.logger.Info("added data directory to ignore file", "path", a.cfg.IgnoreFile)
		}

		for _, c := range plan.Categories {
			report, err := a.Services.Fetcher.Fetch(ctx, c, plan.Years)
			if report != nil {
				summary.Fetched = append(summary.Fetched, *report)
			}
			if err != nil {
				return summary, err
			}
		}
	}

	if !plan.DownloadOnly {
		results, err := a.Services.Loader.Load(ctx, plan.Categories)
		summary.Loaded = results
		if err != nil {
			return summary, err
		}
	}

	return summary, nil
}

func validatePlan(plan domain.Plan) error {
	if len(plan.Categories) == 0 {
		return domain.ErrValidation("at least one taxi category is required")
	}
	for _, c := range plan.Categories {
		if !c.Valid() {
			return domain.ErrValidation("unknown taxi category %q", c)
		}
	}
	if !plan.SkipDownload && len(plan.Years) == 0 {
		return domain.ErrValidation("at least one year is required")
	}
	return nil
}
