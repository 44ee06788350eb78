// Package scanner reconciles the local working tree against the client
// cache and the server manifest, uploading whatever the remote index is
// missing.
//
// # Reconciliation
//
// One pass enumerates candidates (every supported tracked file on a base
// branch; the added/modified half of the diff on a feature branch), then
// decides per file:
//
//	cache hash == local hash          -> skip
//	manifest hash == local hash       -> adopt manifest entry, skip
//	otherwise                         -> chunk, upload, record
//
// On base branches, manifest entries with no matching local file are
// deleted server-side. On feature branches, deletions only update the
// client cache; the server is told at query time via excludeFiles.
//
// Per-file pipelines run concurrently under a bounded semaphore; within a
// pipeline read, hash, chunk, and upload are sequential. Per-file errors
// aggregate into the scan result and never abort the pass.
package scanner
