package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testContext(branch string) FileContext {
	return FileContext{
		FilePath:       "src/service.ts",
		OrganizationID: "org-1234",
		ProjectID:      "proj-5678",
		GitBranch:      branch,
		IsBaseBranch:   branch == "main",
	}
}

// repeatedLines builds n lines of the given width.
func repeatedLines(n, width int) string {
	line := strings.Repeat("x", width)
	lines := make([]string, n)
	for i := range lines {
		lines[i] = line
	}
	return strings.Join(lines, "\n")
}

func TestChunk_EmptyFile(t *testing.T) {
	c := New(DefaultConfig())
	chunks := c.Chunk(testContext("main"), "")
	assert.Empty(t, chunks)
}

func TestChunk_BelowMinChars(t *testing.T) {
	c := New(Config{MaxChars: 100, MinChars: 20, OverlapLines: 2})
	chunks := c.Chunk(testContext("main"), "tiny")
	assert.Empty(t, chunks, "files below min_chars yield zero chunks")
}

func TestChunk_SingleChunk(t *testing.T) {
	c := New(Config{MaxChars: 1000, MinChars: 20, OverlapLines: 2})
	content := repeatedLines(5, 10)

	chunks := c.Chunk(testContext("main"), content)

	require.Len(t, chunks, 1)
	assert.Equal(t, 1, chunks[0].StartLine)
	assert.Equal(t, 5, chunks[0].EndLine)
	assert.Equal(t, content, chunks[0].CodeChunk)
	assert.Equal(t, "main", chunks[0].GitBranch)
	assert.True(t, chunks[0].IsBaseBranch)
}

func TestChunk_SplitWithOverlap(t *testing.T) {
	c := New(Config{MaxChars: 50, MinChars: 20, OverlapLines: 2})
	content := repeatedLines(10, 10)

	chunks := c.Chunk(testContext("main"), content)

	require.Len(t, chunks, 4)
	assert.Equal(t, 1, chunks[0].StartLine)
	assert.Equal(t, 4, chunks[0].EndLine)
	assert.Equal(t, 3, chunks[1].StartLine)
	assert.Equal(t, 6, chunks[1].EndLine)
	assert.Equal(t, 5, chunks[2].StartLine)
	assert.Equal(t, 8, chunks[2].EndLine)
	assert.Equal(t, 7, chunks[3].StartLine)
	assert.Equal(t, 10, chunks[3].EndLine)
}

func TestChunk_CoverageInvariant(t *testing.T) {
	c := New(Config{MaxChars: 80, MinChars: 15, OverlapLines: 3})

	content := strings.Join([]string{
		"package main",
		"",
		"import \"fmt\"",
		"",
		"func main() {",
		"\tfmt.Println(\"hello world, this is a longer line\")",
		"\tfmt.Println(\"and another line to push past limits\")",
		"}",
		"",
		"func helper(a, b int) int {",
		"\treturn a + b",
		"}",
	}, "\n")

	lines := strings.Split(content, "\n")
	chunks := c.Chunk(testContext("main"), content)
	require.NotEmpty(t, chunks)

	for _, chunk := range chunks {
		expected := strings.Join(lines[chunk.StartLine-1:chunk.EndLine], "\n")
		assert.Equal(t, expected, chunk.CodeChunk,
			"chunk [%d,%d] must be exactly its source lines", chunk.StartLine, chunk.EndLine)
		require.NoError(t, chunk.Validate())
	}
}

func TestChunk_Boundedness(t *testing.T) {
	cfg := Config{MaxChars: 60, MinChars: 10, OverlapLines: 1}
	c := New(cfg)

	content := strings.Join([]string{
		strings.Repeat("a", 25),
		strings.Repeat("b", 25),
		strings.Repeat("c", 25),
		strings.Repeat("d", 25),
		strings.Repeat("e", 25),
	}, "\n")

	maxLine := 25
	for _, chunk := range c.Chunk(testContext("main"), content) {
		assert.LessOrEqual(t, len(chunk.CodeChunk), cfg.MaxChars+maxLine+1,
			"a chunk may overflow max_chars by at most one line")
	}
}

func TestChunk_OverlapInvariant(t *testing.T) {
	overlap := 2
	c := New(Config{MaxChars: 50, MinChars: 20, OverlapLines: overlap})
	chunks := c.Chunk(testContext("main"), repeatedLines(12, 10))
	require.Greater(t, len(chunks), 1)

	for i := 1; i < len(chunks); i++ {
		prev := strings.Split(chunks[i-1].CodeChunk, "\n")
		cur := strings.Split(chunks[i].CodeChunk, "\n")

		n := overlap
		if n > len(prev) {
			n = len(prev)
		}
		assert.Equal(t, prev[len(prev)-n:], cur[:n],
			"chunk %d must start with the last %d lines of chunk %d", i, n, i-1)
		assert.Equal(t, chunks[i-1].EndLine-n+1, chunks[i].StartLine)
	}
}

func TestChunk_OversizedSingleLine(t *testing.T) {
	c := New(Config{MaxChars: 50, MinChars: 20, OverlapLines: 2})
	content := strings.Repeat("z", 200)

	chunks := c.Chunk(testContext("main"), content)

	require.Len(t, chunks, 1, "a single line longer than max_chars is still emitted")
	assert.Equal(t, 1, chunks[0].StartLine)
	assert.Equal(t, 1, chunks[0].EndLine)
	assert.Equal(t, content, chunks[0].CodeChunk)
}

func TestChunk_StableIdentity(t *testing.T) {
	c := New(Config{MaxChars: 50, MinChars: 20, OverlapLines: 2})
	content := repeatedLines(10, 10)

	first := c.Chunk(testContext("main"), content)
	second := c.Chunk(testContext("main"), content)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID, "identity must be deterministic")
		assert.Equal(t, first[i].ChunkHash, second[i].ChunkHash)
	}
}

func TestChunk_BranchScopedIdentity(t *testing.T) {
	c := New(Config{MaxChars: 50, MinChars: 20, OverlapLines: 2})
	content := repeatedLines(10, 10)

	onMain := c.Chunk(testContext("main"), content)
	onFeature := c.Chunk(testContext("feature/x"), content)

	require.Equal(t, len(onMain), len(onFeature))
	for i := range onMain {
		assert.Equal(t, onMain[i].ChunkHash, onFeature[i].ChunkHash,
			"location hash is branch-independent")
		assert.NotEqual(t, onMain[i].ID, onFeature[i].ID,
			"ids must differ across branches")
	}
}
