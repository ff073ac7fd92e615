// Package workspace performs the filesystem side of a build: removing
// artifacts of a previous run, copying resource files into the output
// folder and recording what was shipped in a manifest.
//
// All paths handed to this package are relative to a project directory
// (Workspace.Root) unless they are already absolute.
package workspace

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Workspace is a project directory.
type Workspace struct {
	// Root is the absolute project directory.
	Root string
}

// New returns a Workspace rooted at dir, resolved to an absolute path.
func New(dir string) (*Workspace, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve project directory: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("project directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("project directory %s is not a directory", abs)
	}
	return &Workspace{Root: abs}, nil
}

// Path resolves rel against the project directory.
func (w *Workspace) Path(rel string) string {
	if filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(w.Root, rel)
}

// Exists reports whether rel exists (file or directory).
func (w *Workspace) Exists(rel string) bool {
	_, err := os.Stat(w.Path(rel))
	return err == nil
}

// IsFile reports whether rel exists and is a regular file.
func (w *Workspace) IsFile(rel string) bool {
	info, err := os.Stat(w.Path(rel))
	return err == nil && info.Mode().IsRegular()
}

// ErrOutsideProject is returned for a path that is not strictly below the
// project directory.
var ErrOutsideProject = errors.New("path is not inside the project directory")

// contains reports whether abs lies strictly below the project directory.
func (w *Workspace) contains(abs string) bool {
	rel, err := filepath.Rel(w.Root, abs)
	return err == nil && filepath.IsLocal(rel) && rel != "."
}

// RemovalResult is the outcome of removing one path.
type RemovalResult struct {
	Path    string
	Removed bool  // false when the path did not exist
	Err     error // non-nil when removal failed
}

// Clean removes each path (file or directory tree). Missing paths are
// not errors. Failures are reported per path and do not stop the
// remaining removals; the caller decides whether they are fatal. Paths
// outside the project, or the project itself, fail with ErrOutsideProject.
func (w *Workspace) Clean(paths ...string) []RemovalResult {
	results := make([]RemovalResult, 0, len(paths))
	for _, rel := range paths {
		abs := w.Path(rel)
		if !w.contains(abs) {
			results = append(results, RemovalResult{Path: rel, Err: fmt.Errorf("%s: %w", rel, ErrOutsideProject)})
			continue
		}
		if _, err := os.Lstat(abs); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				results = append(results, RemovalResult{Path: rel})
				continue
			}
			results = append(results, RemovalResult{Path: rel, Err: err})
			continue
		}
		err := os.RemoveAll(abs)
		results = append(results, RemovalResult{Path: rel, Removed: err == nil, Err: err})
	}
	return results
}

// Remove deletes a single file, ignoring a missing one.
func (w *Workspace) Remove(rel string) error {
	err := os.Remove(w.Path(rel))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// CopyFile copies the file src into the directory dstDir, keeping its base
// name and permission bits. dstDir is created when missing.
func (w *Workspace) CopyFile(src, dstDir string) (string, error) {
	srcPath := w.Path(src)
	dstPath := filepath.Join(w.Path(dstDir), filepath.Base(srcPath))
	if filepath.Clean(srcPath) == dstPath {
		return "", fmt.Errorf("copy %s onto itself", src)
	}

	in, err := os.Open(srcPath)
	if err != nil {
		return "", err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return "", err
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("%s is not a regular file", src)
	}

	if err := os.MkdirAll(filepath.Dir(dstPath), 0755); err != nil {
		return "", err
	}

	out, err := os.OpenFile(dstPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return "", err
	}
	return dstPath, out.Close()
}
