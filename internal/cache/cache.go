package cache

import (
	"slices"
	"time"
)

// FileEntry records what the client believes is synced for one file.
type FileEntry struct {
	Hash              string `json:"hash"`
	LastIndexedMillis int64  `json:"lastIndexedEpochMs"`
	ChunkCount        int    `json:"chunkCount"`
}

// ClientCache tracks, per (workspace, branch), which files are synced to
// the remote index and which files are deleted relative to the base
// branch. Exactly one live instance exists per branch; it is never shared
// between branches.
type ClientCache struct {
	GitBranch    string               `json:"gitBranch"`
	DeletedFiles []string             `json:"deletedFiles"`
	Files        map[string]FileEntry `json:"files"`
}

// Empty returns a fresh cache for branch.
func Empty(branch string) *ClientCache {
	return &ClientCache{
		GitBranch:    branch,
		DeletedFiles: []string{},
		Files:        make(map[string]FileEntry),
	}
}

// ShouldIndex reports whether filePath needs (re-)indexing: the cache has
// no entry for it, or the entry's hash differs from currentHash.
func (c *ClientCache) ShouldIndex(filePath, currentHash string) bool {
	entry, ok := c.Files[filePath]
	if !ok {
		return true
	}
	return entry.Hash != currentHash
}

// UpdateEntry records filePath as synced at hash with chunkCount chunks.
func (c *ClientCache) UpdateEntry(filePath, hash string, chunkCount int) {
	if c.Files == nil {
		c.Files = make(map[string]FileEntry)
	}
	c.Files[filePath] = FileEntry{
		Hash:              hash,
		LastIndexedMillis: time.Now().UnixMilli(),
		ChunkCount:        chunkCount,
	}
}

// RemoveEntry forgets filePath.
func (c *ClientCache) RemoveEntry(filePath string) {
	delete(c.Files, filePath)
}

// AddDeleted appends filePath to the ordered deleted-files set.
func (c *ClientCache) AddDeleted(filePath string) {
	if slices.Contains(c.DeletedFiles, filePath) {
		return
	}
	c.DeletedFiles = append(c.DeletedFiles, filePath)
}

// RemoveDeleted drops filePath from the deleted-files set, preserving
// order.
func (c *ClientCache) RemoveDeleted(filePath string) {
	c.DeletedFiles = slices.DeleteFunc(c.DeletedFiles, func(p string) bool {
		return p == filePath
	})
}

// TotalChunks sums the chunk counts of all synced files.
func (c *ClientCache) TotalChunks() int {
	total := 0
	for _, entry := range c.Files {
		total += entry.ChunkCount
	}
	return total
}

// LastSyncMillis returns the newest LastIndexedMillis across all entries,
// or zero when nothing is synced.
func (c *ClientCache) LastSyncMillis() int64 {
	var last int64
	for _, entry := range c.Files {
		if entry.LastIndexedMillis > last {
			last = entry.LastIndexedMillis
		}
	}
	return last
}
