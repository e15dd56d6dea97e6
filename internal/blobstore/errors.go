package blobstore

import "errors"

var (
	// ErrNotConfigured is returned by NewClient when no endpoint is set.
	ErrNotConfigured = errors.New("object store is not configured")

	// ErrObjectNotFound is returned by Export when the binary was never
	// uploaded.
	ErrObjectNotFound = errors.New("binary not found in object store")
)
