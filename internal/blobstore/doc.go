// Package blobstore keeps item binaries in an S3 compatible object store.
//
// Objects are keyed by item GUID under an optional prefix. The Client is
// used as the import uploader and as the pipeline exporter when the
// catalog does not hold binaries inline.
package blobstore
