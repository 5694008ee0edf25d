package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"time"

	"taxi-ingest/internal/config"
	"taxi-ingest/internal/domain"
)

const (
	contentType   = "application/octet-stream"
	presignExpiry = 15 * time.Minute
)

// Compile-time interface checks.
var (
	_ domain.Publisher = (*Publisher)(nil)
	_ io.Closer        = (*Publisher)(nil)
)

// Publisher uploads files under {prefix}/{category}/{file} of a Location.
type Publisher struct {
	presigner UploadPresigner
	client    *http.Client
	location  Location
}

// NewPublisher creates a Publisher. A nil client means http.DefaultClient.
func NewPublisher(presigner UploadPresigner, location Location, client *http.Client) *Publisher {
	if client == nil {
		client = http.DefaultClient
	}
	return &Publisher{
		presigner: presigner,
		client:    client,
		location:  location,
	}
}

// NewPublisherFromConfig builds the presigner matching the scheme of
// cfg.PublishTo and wraps it in a Publisher.
func NewPublisherFromConfig(ctx context.Context, cfg *config.Config, client *http.Client) (*Publisher, error) {
	loc, err := ParseLocation(cfg.PublishTo)
	if err != nil {
		return nil, domain.ErrValidation("%s", err.Error())
	}

	var presigner UploadPresigner
	switch loc.Scheme {
	case "s3":
		presigner, err = NewS3Presigner(cfg)
	case "gs":
		presigner, err = NewGCSPresigner(ctx, cfg.GCSKeyFile)
	case "az":
		presigner, err = NewAzurePresigner(cfg.AzureAccountName, cfg.AzureAccountKey, "")
	}
	if err != nil {
		return nil, err
	}
	return NewPublisher(presigner, loc, client), nil
}

// Location returns the publish target.
func (p *Publisher) Location() Location {
	return p.location
}

// Close releases the presigner's client when it holds one.
func (p *Publisher) Close() error {
	if c, ok := p.presigner.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Publish streams localPath to the object store and returns its URI.
func (p *Publisher) Publish(ctx context.Context, category domain.Category, localPath string) (string, error) {
	key := path.Join(p.location.Prefix, string(category), filepath.Base(localPath))

	signed, err := p.presigner.PresignPutObject(ctx, p.location.Bucket, key, presignExpiry)
	if err != nil {
		return "", err
	}

	f, err := os.Open(localPath) //nolint:gosec // path comes from the downloader
	if err != nil {
		return "", fmt.Errorf("open %s: %w", localPath, err)
	}
	defer f.Close() //nolint:errcheck

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", localPath, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, signed, f)
	if err != nil {
		return "", fmt.Errorf("build upload request: %w", err)
	}
	req.ContentLength = info.Size()
	req.Header.Set("Content-Type", contentType)
	if p.location.Scheme == "az" {
		req.Header.Set("x-ms-blob-type", "BlockBlob")
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", redact(signed), err)
	}
	defer resp.Body.Close() //nolint:errcheck
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &domain.RemoteError{Method: http.MethodPut, URL: redact(signed), StatusCode: resp.StatusCode, Status: resp.Status}
	}

	return p.location.Scheme + "://" + p.location.Bucket + "/" + key, nil
}

// redact strips the signature query from a presigned URL.
func redact(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "<invalid url>"
	}
	u.RawQuery = ""
	return u.String()
}
