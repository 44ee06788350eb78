// Package types defines the shared domain types for the codesync engine:
// chunks, server manifests, git diffs, lifecycle states, search results,
// and the error taxonomy.
//
// Types in this package carry the wire representation used by the remote
// indexing service (camelCase JSON), so the remote client can marshal them
// directly.
//
// # Error Taxonomy
//
// Failures are classified so callers can decide between retrying,
// degrading, and surfacing:
//
//   - ErrNotARepo: fatal for Start, user-actionable.
//   - GitError: per-operation; fatal only when it blocks branch discovery.
//   - RemoteError: HTTP >= 400; retryable for 5xx and 429 only.
//   - TransportError: no HTTP response at all; always retryable.
//
// Use IsRetryable to apply the policy uniformly.
package types
