// Package log provides the loggers and journals used by sigscan.
//
// Diagnostics go through log/slog. NewSecureLogger wraps a text handler in
// a SecureHandler that masks credential-bearing attributes, such as the
// object store access and secret keys, before they reach the output:
//
//	logger := log.NewSecureLogger(os.Stderr, verbose)
//	logger.Info("connecting to blob store",
//	    "endpoint", "localhost:9000",
//	    "secret_key", cfg.BlobStore.SecretKey, // logged as ***REDACTED***
//	)
//
// Digests such as MD5 hex strings are never masked even though they are
// long alphanumeric values.
//
// A Journal is the human-readable, append-only run log or error log of a
// scan. Journals are safe for concurrent use by all pipeline workers.
package log
