// Package gitprobe discovers git context for a workspace: current branch,
// base branch, tracked files, and the diff between a feature branch and
// its base.
//
// Every operation shells out to the git binary in the workspace
// directory. Failures carry the command and its stderr as a
// *types.GitError.
//
// # Base Branch Resolution
//
// The base branch is the organization-wide reference branch. Resolution
// order:
//
//  1. origin's symbolic HEAD ref, if it verifies locally
//  2. main, develop, master (first that verifies)
//  3. "main" as the ultimate fallback
//
// A custom remote default (for example "canary") therefore wins over
// "main" even when both exist locally.
package gitprobe
