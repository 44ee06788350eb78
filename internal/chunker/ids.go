package chunker

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
)

// FileHash computes the SHA-256 hex digest of file contents. It decides
// "changed vs server/cache" during reconciliation.
func FileHash(content []byte) string {
	h := sha256.Sum256(content)
	return hex.EncodeToString(h[:])
}

// ChunkHash derives a chunk's location hash from its path and line range.
// Content is deliberately not hashed: a chunk that moves to a different
// range is a new chunk.
func ChunkHash(filePath string, startLine, endLine int) string {
	h := sha256.Sum256([]byte(fmt.Sprintf("%s-%d-%d", filePath, startLine, endLine)))
	return hex.EncodeToString(h[:])
}

// ChunkID derives the branch-scoped UUIDv5 identity of a chunk. The
// branch is folded into the hashed name, so the same file range on two
// branches always yields distinct ids.
func ChunkID(chunkHash, branch, orgID string) string {
	name := sha256.Sum256([]byte(chunkHash + "-" + branch))
	return uuid.NewSHA1(namespaceFor(orgID), []byte(hex.EncodeToString(name[:]))).String()
}

// namespaceFor maps an organization id to a UUID namespace. Literal UUID
// org ids are used directly; anything else is hashed into the URL
// namespace.
func namespaceFor(orgID string) uuid.UUID {
	if ns, err := uuid.Parse(orgID); err == nil {
		return ns
	}
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(orgID))
}
