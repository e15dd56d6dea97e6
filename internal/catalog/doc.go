// Package catalog provides SQLite-based storage for the items sigscan
// scans.
//
// The catalog stores:
//   - Items with their place in the hierarchy and binary metadata
//   - Inline item binaries, when no object store is used
//   - Tags and custom metadata recorded by scans
//   - Run history with the matches of every run
//
// A Catalog is the item source, the inline exporter and the annotator of
// the scan pipeline. Import fills it from a directory tree.
package catalog
