package gitprobe

import (
	"bytes"
	"context"
	"os/exec"
	"strings"

	"github.com/dshills/codesync/pkg/types"
)

// CommandExecutor abstracts command execution for testing.
type CommandExecutor interface {
	// Run executes a command in dir and returns stdout and stderr.
	Run(ctx context.Context, dir string, name string, args ...string) (stdout, stderr []byte, err error)
}

// DefaultExecutor executes commands using os/exec.
type DefaultExecutor struct{}

// Run executes a command and returns its stdout and stderr separately.
func (e *DefaultExecutor) Run(ctx context.Context, dir string, name string, args ...string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	if dir != "" {
		cmd.Dir = dir
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// Prober answers questions about a git workspace by shelling out to git.
// It holds no per-workspace state and is safe for concurrent use.
type Prober struct {
	executor CommandExecutor
}

// New creates a Prober with the default command executor.
func New() *Prober {
	return &Prober{executor: &DefaultExecutor{}}
}

// NewWithExecutor creates a Prober with a custom executor (for testing).
func NewWithExecutor(executor CommandExecutor) *Prober {
	return &Prober{executor: executor}
}

// git runs one git command in ws and returns trimmed stdout. Non-zero
// exit or a missing binary yields a *types.GitError.
func (p *Prober) git(ctx context.Context, ws string, args ...string) (string, error) {
	stdout, stderr, err := p.executor.Run(ctx, ws, "git", args...)
	if err != nil {
		return "", &types.GitError{
			Command: strings.Join(args, " "),
			Stderr:  strings.TrimSpace(string(stderr)),
			Cause:   err,
		}
	}
	return strings.TrimSpace(string(stdout)), nil
}

// IsRepo reports whether ws is inside a git working tree.
func (p *Prober) IsRepo(ctx context.Context, ws string) bool {
	out, err := p.git(ctx, ws, "rev-parse", "--is-inside-work-tree")
	return err == nil && out == "true"
}

// CurrentBranch returns the checked-out branch name.
func (p *Prober) CurrentBranch(ctx context.Context, ws string) (string, error) {
	return p.git(ctx, ws, "rev-parse", "--abbrev-ref", "HEAD")
}

// CurrentCommit returns the HEAD commit SHA.
func (p *Prober) CurrentCommit(ctx context.Context, ws string) (string, error) {
	return p.git(ctx, ws, "rev-parse", "HEAD")
}

// RemoteURL returns the fetch URL of the origin remote.
func (p *Prober) RemoteURL(ctx context.Context, ws string) (string, error) {
	return p.git(ctx, ws, "remote", "get-url", "origin")
}

// HasUncommitted reports whether the working tree has uncommitted changes.
func (p *Prober) HasUncommitted(ctx context.Context, ws string) (bool, error) {
	out, err := p.git(ctx, ws, "status", "--porcelain")
	if err != nil {
		return false, err
	}
	return out != "", nil
}

// TrackedFiles lists all files git tracks in ws, in git's order. Large
// repositories can produce tens of MiB of output; the whole listing is
// buffered.
func (p *Prober) TrackedFiles(ctx context.Context, ws string) ([]string, error) {
	out, err := p.git(ctx, ws, "ls-files")
	if err != nil {
		return nil, err
	}
	if out == "" {
		return nil, nil
	}

	lines := strings.Split(out, "\n")
	files := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			files = append(files, line)
		}
	}
	return files, nil
}

const remoteHeadPrefix = "refs/remotes/origin/"

// DefaultBranchFromRemote resolves origin's default branch from its
// symbolic HEAD ref. When the ref is unset it asks git to auto-detect it
// once and retries. ok is false when the remote default cannot be
// determined.
func (p *Prober) DefaultBranchFromRemote(ctx context.Context, ws string) (branch string, ok bool) {
	if name, found := p.readRemoteHead(ctx, ws); found {
		return name, true
	}

	// The symbolic ref is often missing on fresh clones of old git
	// versions. One auto-detection attempt, then give up.
	if _, err := p.git(ctx, ws, "remote", "set-head", "origin", "--auto"); err != nil {
		return "", false
	}

	return p.readRemoteHead(ctx, ws)
}

func (p *Prober) readRemoteHead(ctx context.Context, ws string) (string, bool) {
	out, err := p.git(ctx, ws, "symbolic-ref", "refs/remotes/origin/HEAD")
	if err != nil {
		return "", false
	}
	idx := strings.LastIndex(out, remoteHeadPrefix)
	if idx < 0 {
		return "", false
	}
	name := out[idx+len(remoteHeadPrefix):]
	if name == "" {
		return "", false
	}
	return name, true
}

// verify reports whether name resolves to a local object.
func (p *Prober) verify(ctx context.Context, ws, name string) bool {
	_, err := p.git(ctx, ws, "rev-parse", "--verify", name)
	return err == nil
}

// BaseBranch determines the reference branch to diff against. The remote
// default wins when it verifies locally; otherwise the conventional names
// are tried in order, with "main" as the ultimate fallback.
func (p *Prober) BaseBranch(ctx context.Context, ws string) string {
	if name, ok := p.DefaultBranchFromRemote(ctx, ws); ok && p.verify(ctx, ws, name) {
		return name
	}

	for _, name := range []string{"main", "develop", "master"} {
		if p.verify(ctx, ws, name) {
			return name
		}
	}

	return "main"
}

// baseBranchNames are branch names treated as base regardless of remote
// configuration.
var baseBranchNames = map[string]bool{
	"main":        true,
	"master":      true,
	"develop":     true,
	"development": true,
}

// IsBaseBranch reports whether name is a base branch. The well-known
// names match case-insensitively; when ws is non-empty the remote's
// default branch also counts.
func (p *Prober) IsBaseBranch(ctx context.Context, name, ws string) bool {
	if baseBranchNames[strings.ToLower(name)] {
		return true
	}

	if ws != "" {
		if remote, ok := p.DefaultBranchFromRemote(ctx, ws); ok {
			return strings.EqualFold(name, remote)
		}
	}

	return false
}

// Diff compares feature against base from their merge base and returns
// the changed paths bucketed by status. Renames expand into a paired
// delete+add, copies into an add. Unknown statuses are ignored.
func (p *Prober) Diff(ctx context.Context, feature, base, ws string) (*types.Diff, error) {
	mergeBase, err := p.git(ctx, ws, "merge-base", base, feature)
	if err != nil {
		return nil, err
	}

	out, err := p.git(ctx, ws, "diff", "--name-status", mergeBase+".."+feature)
	if err != nil {
		return nil, err
	}

	return parseNameStatus(out), nil
}

// parseNameStatus parses `git diff --name-status` output. Each line is
// TAB-delimited: a status token, then one path (two for renames and
// copies). Paths may themselves contain TABs, so single-path statuses
// join everything after the first token.
func parseNameStatus(out string) *types.Diff {
	diff := &types.Diff{}
	if out == "" {
		return diff
	}

	for _, line := range strings.Split(out, "\n") {
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < 2 {
			continue
		}

		status := fields[0]
		switch status[0] {
		case 'A':
			diff.Added = append(diff.Added, strings.Join(fields[1:], "\t"))
		case 'M':
			diff.Modified = append(diff.Modified, strings.Join(fields[1:], "\t"))
		case 'D':
			diff.Deleted = append(diff.Deleted, strings.Join(fields[1:], "\t"))
		case 'R':
			if len(fields) >= 3 {
				diff.Deleted = append(diff.Deleted, fields[1])
				diff.Added = append(diff.Added, fields[len(fields)-1])
			}
		case 'C':
			if len(fields) >= 3 {
				diff.Added = append(diff.Added, fields[len(fields)-1])
			}
		}
	}

	return diff
}
