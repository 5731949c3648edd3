package storage

import (
	"context"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/pkg/errors"
)

// S3Config configures an S3 compatible bucket.
type S3Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	// PublicURL is the externally reachable endpoint, e.g. https://cdn.example.com.
	// Defaults to the endpoint itself.
	PublicURL string
	UseSSL    bool
}

// S3Uploader publishes pages to an S3 compatible bucket.
type S3Uploader struct {
	client    *minio.Client
	bucket    string
	publicURL string
}

// NewS3Uploader creates an S3Uploader.
func NewS3Uploader(cfg S3Config) (*S3Uploader, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, errors.New("s3 endpoint and bucket are required")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create s3 client")
	}

	return &S3Uploader{
		client:    client,
		bucket:    cfg.Bucket,
		publicURL: publicURL(cfg),
	}, nil
}

func publicURL(cfg S3Config) string {
	if cfg.PublicURL != "" {
		return strings.TrimRight(cfg.PublicURL, "/")
	}
	scheme := "http"
	if cfg.UseSSL {
		scheme = "https"
	}
	return scheme + "://" + cfg.Endpoint
}

// Upload implements Uploader.
func (u *S3Uploader) Upload(ctx context.Context, localPath, objectName string) (string, error) {
	_, err := u.client.FPutObject(ctx, u.bucket, objectName, localPath, minio.PutObjectOptions{
		ContentType: "text/html; charset=utf-8",
	})
	if err != nil {
		return "", errors.Wrapf(err, "failed to upload %s", objectName)
	}
	return u.publicURL + "/" + u.bucket + "/" + url.PathEscape(objectName), nil
}
