// Package cache persists the client's view of what is synced to the
// remote index, one JSON document per (workspace, branch) pair.
//
// Cache files live in a host-provided global-storage directory and are
// named managed-index-cache-{sha256(workspace)}-{sha256(branch)}.json.
// Writes are atomic (temp file + fsync + rename) and write failures never
// propagate: losing the cache only costs a redundant re-scan.
package cache
