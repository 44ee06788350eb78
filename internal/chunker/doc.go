// Package chunker divides file contents into overlapping line-bounded
// chunks for the remote search index.
//
// # Chunking Strategy
//
// Content is split on newlines and accumulated until the next line would
// push the chunk past MaxChars. A chunk is only finalized once it has at
// least MinChars; the last OverlapLines lines of each finalized chunk
// seed the next one so search context survives chunk boundaries.
//
// Properties:
//   - Every chunk's CodeChunk is exactly its source lines joined by "\n".
//   - A chunk overflows MaxChars by at most one line.
//   - Files below MinChars produce no chunks and are invisible to search.
//
// # Identity
//
// Chunk identity is positional and branch-scoped:
//
//	chunk_hash = sha256(file_path + "-" + start_line + "-" + end_line)
//	id         = uuidv5(org namespace, sha256(chunk_hash + "-" + branch))
//
// The same range on the same branch always yields the same id; any other
// branch yields a different one. Content changes that keep a chunk's
// range do not change its id — the upload replaces the chunk in place.
package chunker
