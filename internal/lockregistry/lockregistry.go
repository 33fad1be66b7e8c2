// Package lockregistry implements the Locked-File Registry: a simple set
// of normalized absolute paths the Autocorrection Controller may not
// overwrite, optionally extended with paths that have uncommitted git
// modifications or are untracked. A hit on is_locked is recovered by writing a sibling
// suggestion file rather than surfacing an error to the caller.
package lockregistry

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"autoforge/internal/apperr"
	"autoforge/internal/logging"
)

// Registry is effectively immutable once Load returns — it is loaded once
// at the start of a run_autocorrection call and not mutated for its
// duration, per the ordering guarantees in the concurrency model.
type Registry struct {
	mu     sync.RWMutex
	locked map[string]struct{}
}

// Load builds a Registry from the configured locked paths plus, when
// scanGitModified is true, every path git reports as modified-but-
// uncommitted or untracked under projectDir.
func Load(projectDir string, configuredPaths []string, scanGitModified bool) (*Registry, error) {
	r := &Registry{locked: make(map[string]struct{})}

	for _, p := range configuredPaths {
		abs, err := normalize(projectDir, p)
		if err != nil {
			return nil, err
		}
		r.locked[abs] = struct{}{}
	}

	if scanGitModified {
		modified, err := scanGitModifications(projectDir)
		if err != nil {
			// Git scanning is a best-effort supplement to the configured
			// list, not a hard dependency: a non-repo or missing git binary
			// should not make the whole registry unusable.
			logging.LockRegistryDebug("git scan skipped: %v", err)
		} else {
			for _, p := range modified {
				abs, err := normalize(projectDir, p)
				if err != nil {
					continue
				}
				r.locked[abs] = struct{}{}
			}
		}
	}

	return r, nil
}

func normalize(projectDir, p string) (string, error) {
	if filepath.IsAbs(p) {
		return filepath.Clean(p), nil
	}
	abs, err := filepath.Abs(filepath.Join(projectDir, p))
	if err != nil {
		return "", &apperr.IOFailureError{Op: "abs", Path: p, Cause: err}
	}
	return filepath.Clean(abs), nil
}

// scanGitModifications shells out to `git diff --name-only`,
// `git diff --name-only --cached` and `git ls-files --others
// --exclude-standard` to find uncommitted modifications and untracked files,
// matching the convention elsewhere in this codebase of shelling out to
// external VCS tooling rather than vendoring a pure-Go git implementation.
func scanGitModifications(projectDir string) ([]string, error) {
	var out []string
	for _, args := range [][]string{
		{"diff", "--name-only"},
		{"diff", "--name-only", "--cached"},
		{"ls-files", "--others", "--exclude-standard"},
	} {
		cmd := exec.Command("git", args...)
		cmd.Dir = projectDir
		var stdout bytes.Buffer
		cmd.Stdout = &stdout
		if err := cmd.Run(); err != nil {
			return nil, fmt.Errorf("git %v: %w", args, err)
		}
		for _, line := range strings.Split(stdout.String(), "\n") {
			if line = strings.TrimSpace(line); line != "" {
				out = append(out, line)
			}
		}
	}
	return out, nil
}

// IsLocked reports whether path (normalized to an absolute path) may not
// be overwritten.
func (r *Registry) IsLocked(path string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	_, locked := r.locked[filepath.Clean(abs)]
	return locked
}

// Suggest writes content to a sibling suggestion file (<name>.suggested.<ext>)
// instead of overwriting the locked target, and returns the suggestion's path.
func Suggest(path string, content string) (string, error) {
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	suggestionPath := base + ".suggested" + ext

	if err := os.WriteFile(suggestionPath, []byte(content), 0644); err != nil {
		return "", &apperr.IOFailureError{Op: "write suggestion", Path: suggestionPath, Cause: err}
	}
	logging.LockRegistry("wrote suggestion for locked path %s to %s", path, suggestionPath)
	return suggestionPath, nil
}
