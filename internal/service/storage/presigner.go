// Package storage publishes converted Parquet files to object stores
// through presigned upload URLs.
package storage

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"taxi-ingest/internal/config"
)

// Compile-time check.
var _ UploadPresigner = (*S3Presigner)(nil)

// UploadPresigner produces time-limited PUT URLs for object uploads.
// Implementations: S3Presigner, GCSPresigner, AzurePresigner.
type UploadPresigner interface {
	PresignPutObject(ctx context.Context, bucket, key string, expiry time.Duration) (string, error)
}

// Location is a parsed publish target such as "s3://bucket/prefix".
// For Azure the bucket is the container name.
type Location struct {
	Scheme string
	Bucket string
	Prefix string
}

// String renders the location back to its URI form.
func (l Location) String() string {
	if l.Prefix == "" {
		return l.Scheme + "://" + l.Bucket
	}
	return l.Scheme + "://" + l.Bucket + "/" + l.Prefix
}

// ParseLocation parses an s3://, gs://, or az:// URI. The prefix may be empty.
func ParseLocation(uri string) (Location, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return Location{}, fmt.Errorf("parse publish location %q: %w", uri, err)
	}
	switch u.Scheme {
	case "s3", "gs", "az":
	default:
		return Location{}, fmt.Errorf("unsupported publish scheme %q in %q: use s3://, gs://, or az://", u.Scheme, uri)
	}
	if u.Host == "" {
		return Location{}, fmt.Errorf("empty bucket in publish location %q", uri)
	}
	return Location{
		Scheme: u.Scheme,
		Bucket: u.Host,
		Prefix: strings.Trim(u.Path, "/"),
	}, nil
}

// S3Presigner generates presigned S3 URLs for AWS or any S3-compatible store.
type S3Presigner struct {
	presignClient *s3.PresignClient
}

// NewS3Presigner creates a presigner from the S3 settings in cfg. An
// endpoint without a scheme is assumed to be HTTPS. Path-style addressing
// is used unless S3URLStyle is "vhost".
func NewS3Presigner(cfg *config.Config) (*S3Presigner, error) {
	if !cfg.HasS3Config() {
		return nil, fmt.Errorf("S3 config is incomplete: KEY_ID, SECRET, ENDPOINT and REGION are required")
	}

	endpoint := cfg.S3Endpoint
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		endpoint = "https://" + endpoint
	}

	s3Client := s3.New(s3.Options{
		Region: cfg.S3Region,
		Credentials: credentials.NewStaticCredentialsProvider(
			cfg.S3KeyID, cfg.S3Secret, "",
		),
		BaseEndpoint: aws.String(endpoint),
		UsePathStyle: cfg.S3URLStyle != "vhost",
	})

	return &S3Presigner{presignClient: s3.NewPresignClient(s3Client)}, nil
}

// PresignPutObject generates a presigned PUT URL for uploading an S3 object.
func (p *S3Presigner) PresignPutObject(ctx context.Context, bucket, key string, expiry time.Duration) (string, error) {
	result, err := p.presignClient.PresignPutObject(ctx,
		&s3.PutObjectInput{
			Bucket:      aws.String(bucket),
			Key:         aws.String(key),
			ContentType: aws.String(contentType),
		},
		s3.WithPresignExpires(expiry),
	)
	if err != nil {
		return "", fmt.Errorf("presign PutObject for %q/%q: %w", bucket, key, err)
	}
	return result.URL, nil
}
