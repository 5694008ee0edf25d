package app

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taxi-ingest/internal/config"
	"taxi-ingest/internal/domain"
	"taxi-ingest/internal/testutil"
)

var ctx = context.Background()

// testApp wires an App around mocks that succeed by default.
func testApp(t *testing.T, logs io.Writer) (*App, *testutil.MockFetcher, *testutil.MockLoader) {
	t.Helper()
	cfg := config.Default()
	cfg.IgnoreFile = filepath.Join(t.TempDir(), ".gitignore")
	f := &testutil.MockFetcher{
		FetchFn: func(_ context.Context, c domain.Category, _ []int) (*domain.FetchReport, error) {
			return &domain.FetchReport{Category: c, Converted: []string{string(c) + ".parquet"}}, nil
		},
	}
	l := &testutil.MockLoader{
		LoadFn: func(_ context.Context, cs []domain.Category) ([]domain.LoadResult, error) {
			var out []domain.LoadResult
			for _, c := range cs {
				out = append(out, domain.LoadResult{Category: c, Table: "prod." + c.TableName(), Rows: 1})
			}
			return out, nil
		},
	}
	a := &App{
		Services: Services{Fetcher: f, Loader: l},
		cfg:      cfg,
		logger:   slog.New(slog.NewTextHandler(logs, nil)),
	}
	return a, f, l
}

func TestRun_AllStages(t *testing.T) {
	a, f, l := testApp(t, io.Discard)
	plan := domain.Plan{Categories: domain.AllCategories(), Years: []int{2019}}

	summary, err := a.Run(ctx, plan)
	require.NoError(t, err)

	assert.Equal(t, domain.AllCategories(), f.Calls)
	require.Len(t, l.Calls, 1)
	assert.Equal(t, domain.AllCategories(), l.Calls[0])
	assert.True(t, summary.IgnoreUpdated)
	assert.Len(t, summary.Fetched, 3)
	assert.Len(t, summary.Loaded, 3)

	content, err := os.ReadFile(a.cfg.IgnoreFile)
	require.NoError(t, err)
	assert.Contains(t, string(content), "data/")
}

func TestRun_SkipDownload(t *testing.T) {
	a, f, l := testApp(t, io.Discard)

	summary, err := a.Run(ctx, domain.Plan{Categories: []domain.Category{domain.CategoryGreen}, SkipDownload: true})
	require.NoError(t, err)

	assert.Empty(t, f.Calls)
	assert.Len(t, l.Calls, 1)
	assert.False(t, summary.IgnoreUpdated)
	assert.NoFileExists(t, a.cfg.IgnoreFile, "ignore file only maintained when downloading")
}

func TestRun_DownloadOnly(t *testing.T) {
	a, f, l := testApp(t, io.Discard)

	summary, err := a.Run(ctx, domain.Plan{Categories: []domain.Category{domain.CategoryYellow}, Years: []int{2019}, DownloadOnly: true})
	require.NoError(t, err)

	assert.Equal(t, []domain.Category{domain.CategoryYellow}, f.Calls)
	assert.Empty(t, l.Calls)
	assert.Empty(t, summary.Loaded)
}

func TestRun_SkipDownloadAndDownloadOnlyIsNoop(t *testing.T) {
	var logs bytes.Buffer
	a, f, l := testApp(t, &logs)

	_, err := a.Run(ctx, domain.Plan{
		Categories:   domain.AllCategories(),
		Years:        []int{2019},
		SkipDownload: true,
		DownloadOnly: true,
	})
	require.NoError(t, err)

	assert.Empty(t, f.Calls)
	assert.Empty(t, l.Calls)
	assert.Contains(t, logs.String(), "level=WARN")
	assert.Contains(t, logs.String(), "nothing to do")
}

func TestRun_FetchErrorStopsRun(t *testing.T) {
	a, f, l := testApp(t, io.Discard)
	f.FetchFn = func(_ context.Context, c domain.Category, _ []int) (*domain.FetchReport, error) {
		if c == domain.CategoryGreen {
			return &domain.FetchReport{Category: c}, errors.New("fetch failed")
		}
		return &domain.FetchReport{Category: c}, nil
	}

	summary, err := a.Run(ctx, domain.Plan{Categories: domain.AllCategories(), Years: []int{2019}})
	require.Error(t, err)

	assert.Equal(t, []domain.Category{domain.CategoryYellow, domain.CategoryGreen}, f.Calls)
	assert.Empty(t, l.Calls, "no load after a failed fetch")
	assert.Len(t, summary.Fetched, 2)
}

func TestRun_LoadError(t *testing.T) {
	a, _, l := testApp(t, io.Discard)
	l.LoadFn = func(context.Context, []domain.Category) ([]domain.LoadResult, error) {
		return nil, domain.ErrNotFound("no files")
	}

	_, err := a.Run(ctx, domain.Plan{Categories: domain.AllCategories(), SkipDownload: true})
	var nf *domain.NotFoundError
	require.ErrorAs(t, err, &nf)
}

func TestRun_InvalidPlan(t *testing.T) {
	tests := []struct {
		name string
		plan domain.Plan
	}{
		{"no categories", domain.Plan{Years: []int{2019}}},
		{"unknown category", domain.Plan{Categories: []domain.Category{"blue"}, Years: []int{2019}}},
		{"no years", domain.Plan{Categories: domain.AllCategories()}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, f, l := testApp(t, io.Discard)
			_, err := a.Run(ctx, tt.plan)
			var ve *domain.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Empty(t, f.Calls)
			assert.Empty(t, l.Calls)
		})
	}
}

func TestNew_WiresServices(t *testing.T) {
	cfg := config.Default()
	cfg.DataDir = t.TempDir()

	a, err := New(ctx, Deps{Cfg: cfg, Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	require.NoError(t, err)
	assert.NotNil(t, a.Services.Fetcher)
	assert.NotNil(t, a.Services.Loader)
	assert.Nil(t, a.Services.Publisher)
	assert.NoError(t, a.Close())
}

func TestNew_WithPublisher(t *testing.T) {
	cfg := config.Default()
	cfg.PublishTo = "az://trips/nyc"
	cfg.AzureAccountName = "acct"
	cfg.AzureAccountKey = base64.StdEncoding.EncodeToString([]byte("not-a-real-key"))

	a, err := New(ctx, Deps{Cfg: cfg, Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	require.NoError(t, err)
	require.NotNil(t, a.Services.Publisher)
	assert.Equal(t, "az://trips/nyc", a.Services.Publisher.Location().String())
	assert.NoError(t, a.Close())
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.LogFormat = "xml"

	_, err := New(ctx, Deps{Cfg: cfg, Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
}

func TestNew_PublisherConfigError(t *testing.T) {
	cfg := config.Default()
	cfg.PublishTo = "s3://lake"

	_, err := New(ctx, Deps{Cfg: cfg, Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	require.Error(t, err)
}
