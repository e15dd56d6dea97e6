package blobstore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	goerrors "github.com/go-errors/errors"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/nao1215/sigscan/internal/config"
	"github.com/nao1215/sigscan/internal/model"
)

// Client stores and fetches item binaries.
type Client struct {
	mc     *minio.Client
	bucket string
	prefix string
}

// NewClient creates a client for cfg. No request is made until the first
// operation.
func NewClient(cfg config.BlobStore) (*Client, error) {
	if !cfg.Enabled() {
		return nil, ErrNotConfigured
	}
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create object store client: %w", err)
	}

	return &Client{mc: mc, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

// EnsureBucket creates the bucket when it does not exist.
func (c *Client) EnsureBucket(ctx context.Context) error {
	exists, err := c.mc.BucketExists(ctx, c.bucket)
	if err != nil {
		return fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := c.mc.MakeBucket(ctx, c.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("create bucket: %w", err)
		}
	}
	return nil
}

// Put uploads the binary of item.
func (c *Client) Put(ctx context.Context, item model.Item, r io.Reader, size int64) error {
	opts := minio.PutObjectOptions{ContentType: contentType(item)}
	if _, err := c.mc.PutObject(ctx, c.bucket, c.Key(item), r, size, opts); err != nil {
		return fmt.Errorf("upload %s: %w", item.GUID, err)
	}
	return nil
}

// Export downloads the binary of item to dest. Failures carry the stack of
// the failure site.
func (c *Client) Export(ctx context.Context, item model.Item, dest string) error {
	obj, err := c.mc.GetObject(ctx, c.bucket, c.Key(item), minio.GetObjectOptions{})
	if err != nil {
		return goerrors.Wrap(fmt.Errorf("download %s: %w", item.GUID, err), 0)
	}
	defer obj.Close()

	f, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600) //nolint:gosec // dest is inside the scratch directory
	if err != nil {
		return goerrors.Wrap(fmt.Errorf("create artifact: %w", err), 0)
	}

	if _, err := io.Copy(f, obj); err != nil {
		_ = f.Close()
		_ = os.Remove(dest)
		if isNotFound(err) {
			return goerrors.Wrap(fmt.Errorf("%w: %s", ErrObjectNotFound, item.GUID), 0)
		}
		return goerrors.Wrap(fmt.Errorf("download %s: %w", item.GUID, err), 0)
	}
	if err := f.Close(); err != nil {
		return goerrors.Wrap(fmt.Errorf("close artifact: %w", err), 0)
	}
	return nil
}

// Key returns the object key of item.
func (c *Client) Key(item model.Item) string {
	return Key(c.prefix, item)
}

// Bucket returns the bucket name.
func (c *Client) Bucket() string {
	return c.bucket
}

// Key builds the object key of item under prefix. Keys are sharded by the
// first two characters of the GUID.
func Key(prefix string, item model.Item) string {
	guid := item.GUID
	shard := guid
	if len(shard) > 2 {
		shard = shard[:2]
	}
	return path.Join(strings.Trim(prefix, "/"), shard, guid)
}

func contentType(item model.Item) string {
	if item.MimeType == "" {
		return "application/octet-stream"
	}
	return item.MimeType
}

func isNotFound(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "NoSuchKey" || resp.Code == "NoSuchBucket"
}
