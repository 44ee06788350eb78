// Package remote is the typed HTTP client for the managed indexing
// service.
//
// All requests carry bearer auth and a finite timeout. The base URL is
// derived from the token (the token encodes the service region) through
// an injectable BaseURLFunc so tests can point the client anywhere.
//
// Upsert batches are capped at MaxBatchSize chunks and retried with
// exponential backoff plus jitter on transient failures. A 404 from the
// manifest endpoint is not an error: it means the branch has no chunks.
package remote
