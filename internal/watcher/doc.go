// Package watcher keeps the remote index current while the user edits:
// it observes filesystem events under the workspace, collapses bursts
// with a debounce window, and hands each quiet-period batch to a handler.
//
// Within a batch, deletes are processed before creates and changes, and
// repeated events on one file collapse to its latest event. Batches are
// strictly sequential: a batch finishes before the next one starts, which
// serializes all operations on any given file.
//
// The watcher is a lifetime-scoped resource: Close cancels the pending
// debounce timer and unregisters all subscriptions.
package watcher
