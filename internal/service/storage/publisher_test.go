package storage

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taxi-ingest/internal/config"
	"taxi-ingest/internal/domain"
)

var ctx = context.Background()

// fakePresigner returns URLs on a test server instead of a real object store.
type fakePresigner struct {
	baseURL string
	err     error
}

func (f *fakePresigner) PresignPutObject(_ context.Context, bucket, key string, _ time.Duration) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.baseURL + "/" + bucket + "/" + key + "?sig=secret", nil
}

// closingPresigner counts Close calls.
type closingPresigner struct {
	fakePresigner
	closed int
}

func (c *closingPresigner) Close() error {
	c.closed++
	return nil
}

type upload struct {
	method  string
	path    string
	headers http.Header
	body    []byte
}

// uploadServer records every request and answers with status.
func uploadServer(t *testing.T, status int) (*httptest.Server, func() []upload) {
	t.Helper()
	var (
		mu      sync.Mutex
		uploads []upload
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		uploads = append(uploads, upload{method: r.Method, path: r.URL.Path, headers: r.Header.Clone(), body: body})
		mu.Unlock()
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, func() []upload {
		mu.Lock()
		defer mu.Unlock()
		return append([]upload(nil), uploads...)
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestPublish_UploadsUnderCategoryPrefix(t *testing.T) {
	srv, uploads := uploadServer(t, http.StatusOK)
	local := writeFile(t, "yellow_tripdata_2019-01.parquet", "PAR1data")

	pub := NewPublisher(&fakePresigner{baseURL: srv.URL},
		Location{Scheme: "s3", Bucket: "lake", Prefix: "raw/nyc"}, srv.Client())
	uri, err := pub.Publish(ctx, domain.CategoryYellow, local)
	require.NoError(t, err)
	assert.Equal(t, "s3://lake/raw/nyc/yellow/yellow_tripdata_2019-01.parquet", uri)

	got := uploads()
	require.Len(t, got, 1)
	assert.Equal(t, http.MethodPut, got[0].method)
	assert.Equal(t, "/lake/raw/nyc/yellow/yellow_tripdata_2019-01.parquet", got[0].path)
	assert.Equal(t, "PAR1data", string(got[0].body))
	assert.Equal(t, "application/octet-stream", got[0].headers.Get("Content-Type"))
	assert.Empty(t, got[0].headers.Get("x-ms-blob-type"))
}

func TestPublish_EmptyPrefix(t *testing.T) {
	srv, uploads := uploadServer(t, http.StatusCreated)
	local := writeFile(t, "fhv_tripdata_2019-03.parquet", "x")

	pub := NewPublisher(&fakePresigner{baseURL: srv.URL}, Location{Scheme: "gs", Bucket: "b"}, srv.Client())
	uri, err := pub.Publish(ctx, domain.CategoryFHV, local)
	require.NoError(t, err)
	assert.Equal(t, "gs://b/fhv/fhv_tripdata_2019-03.parquet", uri)
	assert.Equal(t, "/b/fhv/fhv_tripdata_2019-03.parquet", uploads()[0].path)
}

func TestPublish_AzureSetsBlobType(t *testing.T) {
	srv, uploads := uploadServer(t, http.StatusCreated)
	local := writeFile(t, "green_tripdata_2019-01.parquet", "x")

	pub := NewPublisher(&fakePresigner{baseURL: srv.URL}, Location{Scheme: "az", Bucket: "trips"}, srv.Client())
	_, err := pub.Publish(ctx, domain.CategoryGreen, local)
	require.NoError(t, err)
	assert.Equal(t, "BlockBlob", uploads()[0].headers.Get("x-ms-blob-type"))
}

func TestPublish_ErrorStatus(t *testing.T) {
	srv, _ := uploadServer(t, http.StatusForbidden)
	local := writeFile(t, "yellow_tripdata_2019-01.parquet", "x")

	pub := NewPublisher(&fakePresigner{baseURL: srv.URL}, Location{Scheme: "s3", Bucket: "lake"}, srv.Client())
	_, err := pub.Publish(ctx, domain.CategoryYellow, local)
	require.Error(t, err)

	var remoteErr *domain.RemoteError
	require.ErrorAs(t, err, &remoteErr)
	assert.Equal(t, http.StatusForbidden, remoteErr.StatusCode)
	assert.NotContains(t, err.Error(), "sig=secret", "signature is redacted")
	assert.Contains(t, err.Error(), "PUT")
}

func TestPublish_PresignError(t *testing.T) {
	pub := NewPublisher(&fakePresigner{err: errors.New("no credentials")}, Location{Scheme: "s3", Bucket: "lake"}, nil)
	_, err := pub.Publish(ctx, domain.CategoryYellow, writeFile(t, "a.parquet", "x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no credentials")
}

func TestPublish_MissingFile(t *testing.T) {
	srv, uploads := uploadServer(t, http.StatusOK)
	pub := NewPublisher(&fakePresigner{baseURL: srv.URL}, Location{Scheme: "s3", Bucket: "lake"}, srv.Client())
	_, err := pub.Publish(ctx, domain.CategoryYellow, filepath.Join(t.TempDir(), "missing.parquet"))
	require.Error(t, err)
	assert.Empty(t, uploads())
}

func TestPublish_S3PresignerEndToEnd(t *testing.T) {
	srv, uploads := uploadServer(t, http.StatusOK)
	cfg := config.Default()
	cfg.S3KeyID = "AKIDEXAMPLE"
	cfg.S3Secret = "wJalrXUtnFEMI"
	cfg.S3Endpoint = srv.URL
	cfg.S3Region = "us-east-1"
	cfg.PublishTo = "s3://lake/nyc"

	pub, err := NewPublisherFromConfig(ctx, cfg, srv.Client())
	require.NoError(t, err)
	assert.Equal(t, "s3://lake/nyc", pub.Location().String())

	uri, err := pub.Publish(ctx, domain.CategoryYellow, writeFile(t, "yellow_tripdata_2019-01.parquet", "PAR1"))
	require.NoError(t, err)
	assert.Equal(t, "s3://lake/nyc/yellow/yellow_tripdata_2019-01.parquet", uri)

	got := uploads()
	require.Len(t, got, 1)
	assert.Equal(t, "/lake/nyc/yellow/yellow_tripdata_2019-01.parquet", got[0].path, "path-style addressing")
	assert.Equal(t, "PAR1", string(got[0].body))
}

func TestS3Presigner_URL(t *testing.T) {
	cfg := config.Default()
	cfg.S3KeyID = "AKIDEXAMPLE"
	cfg.S3Secret = "secret"
	cfg.S3Endpoint = "minio.local:9000"
	cfg.S3Region = "eu-central-1"

	p, err := NewS3Presigner(cfg)
	require.NoError(t, err)

	signed, err := p.PresignPutObject(ctx, "lake", "yellow/a.parquet", time.Minute)
	require.NoError(t, err)
	assert.Contains(t, signed, "https://minio.local:9000/lake/yellow/a.parquet?")
	assert.Contains(t, signed, "X-Amz-Signature=")
	assert.Contains(t, signed, "X-Amz-Expires=60")
}

func TestS3Presigner_IncompleteConfig(t *testing.T) {
	_, err := NewS3Presigner(config.Default())
	require.Error(t, err)
}

func TestAzurePresigner_URL(t *testing.T) {
	key := base64.StdEncoding.EncodeToString([]byte("not-a-real-account-key"))
	p, err := NewAzurePresigner("acct", key, "")
	require.NoError(t, err)

	signed, err := p.PresignPutObject(ctx, "trips", "green/a.parquet", time.Minute)
	require.NoError(t, err)
	assert.Contains(t, signed, "https://acct.blob.core.windows.net/trips/green/a.parquet?")
	assert.Contains(t, signed, "sig=")
}

func TestNewPublisherFromConfig_Errors(t *testing.T) {
	tests := []struct {
		name      string
		publishTo string
	}{
		{"unsupported scheme", "ftp://host/path"},
		{"missing bucket", "s3:///prefix"},
		{"s3 without credentials", "s3://lake"},
		{"gs without key file", "gs://lake"},
		{"az without account", "az://trips"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.PublishTo = tt.publishTo
			_, err := NewPublisherFromConfig(ctx, cfg, nil)
			require.Error(t, err)
		})
	}
}

func TestParseLocation(t *testing.T) {
	tests := []struct {
		input   string
		want    Location
		wantErr bool
	}{
		{input: "s3://lake/raw/nyc/", want: Location{Scheme: "s3", Bucket: "lake", Prefix: "raw/nyc"}},
		{input: "gs://lake", want: Location{Scheme: "gs", Bucket: "lake"}},
		{input: "az://trips/prod", want: Location{Scheme: "az", Bucket: "trips", Prefix: "prod"}},
		{input: "https://lake/raw", wantErr: true},
		{input: "lake/raw", wantErr: true},
		{input: "s3://", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseLocation(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPublisher_Close(t *testing.T) {
	loc := Location{Scheme: "gs", Bucket: "lake"}

	p := &closingPresigner{}
	require.NoError(t, NewPublisher(p, loc, nil).Close())
	assert.Equal(t, 1, p.closed)

	require.NoError(t, NewPublisher(&fakePresigner{}, loc, nil).Close(), "presigners without a client close as a no-op")
}
