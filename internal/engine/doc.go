// Package engine is the public API of the indexing agent: Start, Search,
// State, Clear, DeleteBranch, DeleteProject.
//
// # Lifecycle
//
// Start validates the workspace is a git checkout, fetches the server
// manifest for the current branch, runs one scanner reconciliation pass,
// and installs the file watcher. State events flow through the StateFunc
// callback:
//
//	idle -> scanning -> watching        (normal path)
//	scanning -> error, watching -> error
//	any -> idle                         (handle disposal)
//
// Disposing the returned Handle cancels in-flight work, clears the
// watcher's debounce timer, flushes the client cache, and emits the
// terminal idle state exactly once.
//
// # Search
//
// Searches prefer the current branch and fall back to base. On feature
// branches the request carries the locally-deleted file set so the
// server can mask stale base-branch results. Responses are cached in a
// small TTL'd LRU that any index mutation purges.
package engine
