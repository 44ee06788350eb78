package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGitError(t *testing.T) {
	cause := errors.New("exit status 128")
	err := &GitError{Command: "merge-base main feature", Stderr: "fatal: bad revision", Cause: cause}

	assert.Contains(t, err.Error(), "merge-base")
	assert.Contains(t, err.Error(), "bad revision")
	assert.ErrorIs(t, err, cause)

	bare := &GitError{Command: "ls-files", Cause: cause}
	assert.Contains(t, bare.Error(), "exit status 128")
}

func TestRemoteError_Retryable(t *testing.T) {
	assert.True(t, (&RemoteError{Status: 500}).Retryable())
	assert.True(t, (&RemoteError{Status: 503}).Retryable())
	assert.True(t, (&RemoteError{Status: 429}).Retryable())
	assert.False(t, (&RemoteError{Status: 400}).Retryable())
	assert.False(t, (&RemoteError{Status: 404}).Retryable())
	assert.False(t, (&RemoteError{Status: 401}).Retryable())
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(&TransportError{Cause: errors.New("connection refused")}))
	assert.True(t, IsRetryable(&RemoteError{Status: 502}))
	assert.False(t, IsRetryable(&RemoteError{Status: 403}))
	assert.False(t, IsRetryable(errors.New("plain error")))
	assert.False(t, IsRetryable(ErrNotARepo))

	// Wrapped errors are still classified.
	wrapped := fmt.Errorf("upsert failed: %w", &TransportError{Cause: errors.New("timeout")})
	assert.True(t, IsRetryable(wrapped))
}

func TestChunkValidate(t *testing.T) {
	valid := Chunk{
		ID:        "id-1",
		FilePath:  "a.ts",
		CodeChunk: "content",
		StartLine: 1,
		EndLine:   3,
		GitBranch: "main",
	}
	require.NoError(t, valid.Validate())
	assert.Equal(t, 3, valid.LineCount())

	inverted := valid
	inverted.StartLine = 5
	assert.Error(t, inverted.Validate())

	empty := valid
	empty.CodeChunk = ""
	assert.Error(t, empty.Validate())
}

func TestManifestFileMap(t *testing.T) {
	var nilManifest *Manifest
	assert.Nil(t, nilManifest.FileMap())

	m := &Manifest{Files: []ManifestFile{
		{FilePath: "a.ts", FileHash: "aaa"},
		{FilePath: "b.ts", FileHash: "bbb"},
	}}
	files := m.FileMap()
	assert.Len(t, files, 2)
	assert.Equal(t, "bbb", files["b.ts"].FileHash)
}

func TestDiffHelpers(t *testing.T) {
	d := &Diff{Added: []string{"n.ts"}, Modified: []string{"m.ts"}, Deleted: []string{"d.ts"}}
	assert.False(t, d.IsEmpty())
	assert.Equal(t, []string{"n.ts", "m.ts"}, d.Changed())

	assert.True(t, (&Diff{}).IsEmpty())
}
