package gcsx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

type Config struct {
	Bucket          string        `envconfig:"BUCKET" split_words:"true" required:"true"`
	CredentialsFile string        `envconfig:"CREDENTIALS_FILE" split_words:"true"`
	UploadTimeout   time.Duration `envconfig:"UPLOAD_TIMEOUT" split_words:"true" default:"300s"`
}

// Client is a thin object-store adapter over a single GCS bucket.
type Client struct {
	client        *storage.Client
	bucket        string
	uploadTimeout time.Duration
}

func New(ctx context.Context, cfg Config) (*Client, error) {
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, errors.New("gcs: bucket name is required")
	}

	var opts []option.ClientOption
	if strings.TrimSpace(cfg.CredentialsFile) != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gcs: create client: %w", err)
	}

	uploadTimeout := cfg.UploadTimeout
	if uploadTimeout <= 0 {
		uploadTimeout = 300 * time.Second
	}

	return &Client{
		client:        client,
		bucket:        bucket,
		uploadTimeout: uploadTimeout,
	}, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

// Upload copies a local file into the bucket and returns its gs:// URI.
func (c *Client) Upload(ctx context.Context, localPath, objectName string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.uploadTimeout)
	defer cancel()

	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("gcs: open %q: %w", localPath, err)
	}
	defer f.Close()

	w := c.client.Bucket(c.bucket).Object(objectName).NewWriter(ctx)
	if _, err := io.Copy(w, f); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("gcs: write object %q: %w", objectName, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("gcs: finalize object %q: %w", objectName, err)
	}

	return fmt.Sprintf("gs://%s/%s", c.bucket, objectName), nil
}

// Exists reports whether an object is already present in the bucket.
func (c *Client) Exists(ctx context.Context, objectName string) (bool, error) {
	_, err := c.client.Bucket(c.bucket).Object(objectName).Attrs(ctx)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, storage.ErrObjectNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("gcs: stat object %q: %w", objectName, err)
}

// Bucket returns the configured bucket name.
func (c *Client) Bucket() string {
	return c.bucket
}
