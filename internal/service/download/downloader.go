// Package download fetches monthly taxi trip extracts and converts them to Parquet.
package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"golang.org/x/time/rate"

	"taxi-ingest/internal/domain"
)

// chunkSize is the copy buffer used to stream response bodies to disk.
const chunkSize = 8 * 1024

// Downloader ensures a local Parquet file exists for every month of the
// requested years. A period whose Parquet file already exists is skipped
// without touching the network.
type Downloader struct {
	client    *http.Client
	baseURL   string
	dataDir   string
	converter domain.Converter
	publisher domain.Publisher // optional, may be nil
	limiter   *rate.Limiter
	logger    *slog.Logger
}

// Compile-time interface check.
var _ domain.Fetcher = (*Downloader)(nil)

// NewDownloader creates a Downloader. Requests are unpaced until
// SetRateLimit is called.
func NewDownloader(
	client *http.Client,
	baseURL string,
	dataDir string,
	converter domain.Converter,
	logger *slog.Logger,
) *Downloader {
	if client == nil {
		client = http.DefaultClient
	}
	return &Downloader{
		client:    client,
		baseURL:   baseURL,
		dataDir:   dataDir,
		converter: converter,
		limiter:   newLimiter(0),
		logger:    logger,
	}
}

// SetPublisher attaches a publisher that receives each newly converted file.
func (d *Downloader) SetPublisher(p domain.Publisher) {
	d.publisher = p
}

// SetRateLimit paces requests to at most rps per second. Zero or less
// removes the limit.
func (d *Downloader) SetRateLimit(rps float64) {
	d.limiter = newLimiter(rps)
}

func newLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Limit(rps), 1)
}

// Fetch downloads and converts every missing period of category for years.
// The returned report is non-nil even on error and lists what completed.
// Any HTTP, conversion, or publishing failure aborts the remaining periods.
func (d *Downloader) Fetch(ctx context.Context, category domain.Category, years []int) (*domain.FetchReport, error) {
	report := &domain.FetchReport{Category: category}

	if !category.Valid() {
		return report, domain.ErrValidation("unknown taxi category %q", category)
	}
	if len(years) == 0 {
		return report, domain.ErrValidation("at least one year is required")
	}

	dir := category.Dir(d.dataDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return report, fmt.Errorf("create data dir %s: %w", dir, err)
	}

	for _, p := range domain.PeriodsFor(years) {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		dst := filepath.Join(dir, domain.ParquetFileName(category, p))
		exists, err := fileExists(dst)
		if err != nil {
			return report, err
		}
		if exists {
			d.logger.Info("skipping period, parquet already exists", "category", category, "period", p.String(), "path", dst)
			report.Skipped = append(report.Skipped, dst)
			continue
		}

		src := filepath.Join(dir, domain.SourceFileName(category, p))
		url := domain.SourceURL(d.baseURL, category, p)

		d.logger.Info("downloading", "category", category, "period", p.String(), "url", url)
		n, err := d.download(ctx, url, src)
		if err != nil {
			return report, err
		}

		d.logger.Info("converting to parquet", "source", src, "bytes", n)
		if err := d.converter.Convert(ctx, src, dst); err != nil {
			return report, err
		}
		if err := os.Remove(src); err != nil {
			return report, fmt.Errorf("remove intermediate %s: %w", src, err)
		}
		report.Converted = append(report.Converted, dst)
		d.logger.Info("completed", "path", dst)

		if d.publisher != nil {
			uri, err := d.publisher.Publish(ctx, category, dst)
			if err != nil {
				return report, fmt.Errorf("publish %s: %w", dst, err)
			}
			report.Published = append(report.Published, uri)
			d.logger.Info("published", "path", dst, "uri", uri)
		}
	}

	return report, nil
}

// download streams url into dst and returns the number of bytes written.
func (d *Downloader) download(ctx context.Context, url, dst string) (int64, error) {
	if err := d.limiter.Wait(ctx); err != nil {
		return 0, fmt.Errorf("wait for rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("build request for %s: %w", url, err)
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("download %s: %w", url, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, &domain.RemoteError{URL: url, StatusCode: resp.StatusCode, Status: resp.Status}
	}

	f, err := os.Create(dst) //nolint:gosec // dst is derived from the category and period
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", dst, err)
	}
	n, err := io.CopyBuffer(f, resp.Body, make([]byte, chunkSize))
	if err != nil {
		_ = f.Close()
		return n, fmt.Errorf("write %s: %w", dst, err)
	}
	if err := f.Close(); err != nil {
		return n, fmt.Errorf("close %s: %w", dst, err)
	}
	return n, nil
}

func fileExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("stat %s: %w", path, err)
}
