package blobstore

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/nao1215/sigscan/internal/config"
	"github.com/nao1215/sigscan/internal/model"
)

// TestKey tests object key construction.
func TestKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		prefix string
		guid   string
		want   string
	}{
		{name: "no prefix", prefix: "", guid: "abcdef", want: "ab/abcdef"},
		{name: "prefix", prefix: "case-1", guid: "abcdef", want: "case-1/ab/abcdef"},
		{name: "prefix slashes trimmed", prefix: "/case-1/", guid: "abcdef", want: "case-1/ab/abcdef"},
		{name: "short guid", prefix: "p", guid: "a", want: "p/a/a"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := Key(tt.prefix, model.Item{GUID: tt.guid}); got != tt.want {
				t.Errorf("Key() = %q, want %q", got, tt.want)
			}
		})
	}
}

// TestContentType tests the content type sent on upload.
func TestContentType(t *testing.T) {
	t.Parallel()

	if got := contentType(model.Item{}); got != "application/octet-stream" {
		t.Errorf("unexpected default %q", got)
	}
	if got := contentType(model.Item{MimeType: "application/pdf"}); got != "application/pdf" {
		t.Errorf("unexpected content type %q", got)
	}
}

// TestNewClient tests client construction.
func TestNewClient(t *testing.T) {
	t.Parallel()

	t.Run("disabled store", func(t *testing.T) {
		t.Parallel()

		_, err := NewClient(config.BlobStore{})
		if !errors.Is(err, ErrNotConfigured) {
			t.Errorf("expected ErrNotConfigured, got %v", err)
		}
	})

	t.Run("configured store", func(t *testing.T) {
		t.Parallel()

		c, err := NewClient(config.BlobStore{
			Endpoint:  "localhost:9000",
			Bucket:    "evidence",
			AccessKey: "minio",
			SecretKey: "minio123",
			Prefix:    "case-7",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if c.Bucket() != "evidence" {
			t.Errorf("unexpected bucket %q", c.Bucket())
		}
		if got := c.Key(model.Item{GUID: "0f1e2d"}); got != "case-7/0f/0f1e2d" {
			t.Errorf("unexpected key %q", got)
		}
	})
}

// TestClientRoundTrip uploads and exports a binary against a real object
// store. It runs only when SIGSCAN_TEST_S3_ENDPOINT is set.
func TestClientRoundTrip(t *testing.T) {
	endpoint := os.Getenv("SIGSCAN_TEST_S3_ENDPOINT")
	if endpoint == "" {
		t.Skip("SIGSCAN_TEST_S3_ENDPOINT not set")
	}

	c, err := NewClient(config.BlobStore{
		Endpoint:  endpoint,
		Bucket:    "sigscan-test",
		AccessKey: os.Getenv("SIGSCAN_TEST_S3_ACCESS_KEY"),
		SecretKey: os.Getenv("SIGSCAN_TEST_S3_SECRET_KEY"),
		Prefix:    "roundtrip",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx := context.Background()
	if err := c.EnsureBucket(ctx); err != nil {
		t.Fatalf("failed to ensure bucket: %v", err)
	}

	content := []byte("MZ\x90\x00 sample binary")
	item := model.Item{GUID: uuid.NewString(), MimeType: "application/octet-stream"}
	if err := c.Put(ctx, item, bytes.NewReader(content), int64(len(content))); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	dest := filepath.Join(t.TempDir(), item.GUID)
	if err := c.Export(ctx, item, dest); err != nil {
		t.Fatalf("export failed: %v", err)
	}
	got, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("failed to read artifact: %v", err)
	}
	if !bytes.Equal(got, content) {
		t.Error("exported content differs")
	}

	missing := model.Item{GUID: uuid.NewString()}
	err = c.Export(ctx, missing, filepath.Join(t.TempDir(), "missing"))
	if !errors.Is(err, ErrObjectNotFound) && (err == nil || !strings.Contains(err.Error(), "download")) {
		t.Errorf("expected download failure, got %v", err)
	}
}
