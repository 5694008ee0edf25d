package storage

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// Compile-time check.
var _ UploadPresigner = (*GCSPresigner)(nil)

// GCSPresigner generates signed URLs for Google Cloud Storage objects.
type GCSPresigner struct {
	client *storage.Client
}

// NewGCSPresigner creates a GCS presigner authenticated with a
// service-account key file.
func NewGCSPresigner(ctx context.Context, keyFile string) (*GCSPresigner, error) {
	if keyFile == "" {
		return nil, fmt.Errorf("GCS_KEY_FILE is required to publish to gs://")
	}

	client, err := storage.NewClient(ctx, option.WithAuthCredentialsFile(option.ServiceAccount, keyFile))
	if err != nil {
		return nil, fmt.Errorf("create GCS client: %w", err)
	}
	return &GCSPresigner{client: client}, nil
}

// PresignPutObject generates a signed PUT URL for uploading a GCS object.
func (p *GCSPresigner) PresignPutObject(_ context.Context, bucket, key string, expiry time.Duration) (string, error) {
	signedURL, err := p.client.Bucket(bucket).SignedURL(key, &storage.SignedURLOptions{
		Method:      "PUT",
		Expires:     time.Now().Add(expiry),
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("sign PutObject for %q/%q: %w", bucket, key, err)
	}
	return signedURL, nil
}

// Close releases the underlying client.
func (p *GCSPresigner) Close() error {
	return p.client.Close()
}
