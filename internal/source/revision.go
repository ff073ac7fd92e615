// Package source reads the git state of the project being packaged so a
// build can record which revision it was made from.
//
// It shells out to the git CLI. A project that is not a git checkout, or a
// machine without git, is not an error: Inspect returns nil.
package source

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/shinji-kodama/effmap-pack/internal/model"
)

// ErrNotRepository is returned by runGit when dir is not inside a git
// working tree.
var ErrNotRepository = errors.New("not a git repository")

// Inspect returns the revision of the checkout containing dir, or nil when
// dir is not under version control or git is not installed.
//
// Only tracked files count towards Dirty, so the build and dist folders a
// previous build left behind do not change the result.
func Inspect(ctx context.Context, dir string) (*model.SourceRevision, error) {
	if _, err := exec.LookPath("git"); err != nil {
		return nil, nil
	}

	commit, err := runGit(ctx, dir, "rev-parse", "HEAD")
	if err != nil {
		if errors.Is(err, ErrNotRepository) {
			return nil, nil
		}
		return nil, err
	}

	branch, err := runGit(ctx, dir, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return nil, err
	}
	// A detached HEAD reports the literal "HEAD".
	if branch == "HEAD" {
		branch = ""
	}

	status, err := runGit(ctx, dir, "status", "--porcelain", "--untracked-files=no")
	if err != nil {
		return nil, err
	}

	top, err := runGit(ctx, dir, "rev-parse", "--show-toplevel")
	if err != nil {
		return nil, err
	}

	return &model.SourceRevision{
		Commit:   commit,
		Branch:   branch,
		Dirty:    status != "",
		Worktree: IsWorktree(top),
	}, nil
}

// IsWorktree reports whether path is the root of a linked worktree. A
// linked worktree has a .git FILE containing "gitdir: ...", whereas the
// main checkout has a .git directory.
func IsWorktree(path string) bool {
	info, err := os.Lstat(filepath.Join(path, ".git"))
	if err != nil || info.IsDir() {
		return false
	}

	content, err := os.ReadFile(filepath.Join(path, ".git"))
	if err != nil {
		return false
	}
	return strings.HasPrefix(string(content), "gitdir:")
}

// runGit executes git in dir and returns its trimmed stdout. stderr is
// folded into the error.
func runGit(ctx context.Context, dir string, args ...string) (string, error) {
	fullArgs := append([]string{"-C", dir}, args...)

	// #nosec G204: args are constructed internally, not from user input
	cmd := exec.CommandContext(ctx, "git", fullArgs...)

	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		stderrStr := strings.TrimSpace(stderr.String())
		if strings.Contains(stderrStr, "not a git repository") {
			return "", ErrNotRepository
		}
		message := fmt.Sprintf("git %s failed", strings.Join(args, " "))
		if stderrStr != "" {
			message = fmt.Sprintf("%s: %s", message, stderrStr)
		}
		return "", fmt.Errorf("%s: %w", message, err)
	}

	return strings.TrimSpace(stdout.String()), nil
}
