package chunker

import (
	"strings"

	"github.com/dshills/codesync/pkg/types"
)

// Default chunking parameters.
const (
	DefaultMaxChars     = 1000
	DefaultMinChars     = 200
	DefaultOverlapLines = 5
)

// Config controls chunk sizing and overlap.
type Config struct {
	// MaxChars is the target maximum characters per chunk. A chunk may
	// overflow by at most one line.
	MaxChars int

	// MinChars is the minimum characters for a chunk to be emitted.
	MinChars int

	// OverlapLines is how many trailing lines of a finalized chunk seed
	// the next one.
	OverlapLines int
}

// DefaultConfig returns the standard chunking parameters.
func DefaultConfig() Config {
	return Config{
		MaxChars:     DefaultMaxChars,
		MinChars:     DefaultMinChars,
		OverlapLines: DefaultOverlapLines,
	}
}

// FileContext carries the per-file metadata stamped onto every chunk.
type FileContext struct {
	FilePath       string
	OrganizationID string
	ProjectID      string
	GitBranch      string
	IsBaseBranch   bool
}

// Chunker splits file contents into overlapping line-bounded chunks with
// stable, branch-scoped identity.
type Chunker struct {
	cfg Config
}

// New creates a Chunker. Non-positive MaxChars and MinChars fall back to
// defaults; a negative OverlapLines falls back to its default, while zero
// is kept and means no overlap.
func New(cfg Config) *Chunker {
	if cfg.MaxChars <= 0 {
		cfg.MaxChars = DefaultMaxChars
	}
	if cfg.MinChars <= 0 {
		cfg.MinChars = DefaultMinChars
	}
	if cfg.OverlapLines < 0 {
		cfg.OverlapLines = DefaultOverlapLines
	}
	return &Chunker{cfg: cfg}
}

// Chunk splits content into chunks. Line numbers are 1-based and
// inclusive; each chunk's CodeChunk is exactly the source lines of its
// range joined by "\n". Files whose every prospective chunk stays below
// MinChars yield no chunks at all.
func (c *Chunker) Chunk(fc FileContext, content string) []types.Chunk {
	if content == "" {
		return nil
	}

	lines := strings.Split(content, "\n")

	var chunks []types.Chunk
	var cur []string
	curChars := 0
	startLine := 1

	for i, line := range lines {
		lineChars := len(line) + 1 // +1 for the newline

		if curChars+lineChars > c.cfg.MaxChars && len(cur) > 0 && curChars >= c.cfg.MinChars {
			chunks = append(chunks, c.finalize(fc, cur, startLine, i))

			// Seed the next chunk with the tail of the one just emitted.
			overlap := c.cfg.OverlapLines
			if overlap > len(cur) {
				overlap = len(cur)
			}
			cur = append([]string(nil), cur[len(cur)-overlap:]...)
			curChars = 0
			for _, l := range cur {
				curChars += len(l) + 1
			}
			startLine = i - (len(cur) - 1)
		}

		cur = append(cur, line)
		curChars += lineChars
	}

	if len(cur) > 0 && curChars >= c.cfg.MinChars {
		chunks = append(chunks, c.finalize(fc, cur, startLine, len(lines)))
	}

	return chunks
}

// finalize builds a chunk for the 1-based inclusive line range
// [startLine, endLine].
func (c *Chunker) finalize(fc FileContext, lines []string, startLine, endLine int) types.Chunk {
	hash := ChunkHash(fc.FilePath, startLine, endLine)
	return types.Chunk{
		ID:             ChunkID(hash, fc.GitBranch, fc.OrganizationID),
		OrganizationID: fc.OrganizationID,
		ProjectID:      fc.ProjectID,
		FilePath:       fc.FilePath,
		CodeChunk:      strings.Join(lines, "\n"),
		StartLine:      startLine,
		EndLine:        endLine,
		ChunkHash:      hash,
		GitBranch:      fc.GitBranch,
		IsBaseBranch:   fc.IsBaseBranch,
	}
}
