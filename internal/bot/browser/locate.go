package browser

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

// DefaultCandidates are well-known Chrome and Chromium install locations
// consulted after the configured path.
var DefaultCandidates = []string{
	"/usr/bin/google-chrome",
	"/usr/bin/chromium",
	"/usr/bin/chromium-browser",
	"/headless-shell/headless-shell",
}

// Locator finds a browser binary on the local filesystem.
type Locator struct {
	// Paths are checked in order; the first regular file wins.
	Paths []string
	// Globs are consulted when no path exists. "*" stays within a path
	// segment, "**" crosses segments.
	Globs []string
}

// Locate returns the first existing binary, or an error wrapping
// ErrBinaryNotFound.
func (l Locator) Locate() (string, error) {
	for _, candidate := range l.Paths {
		candidate = strings.TrimSpace(candidate)
		if candidate == "" {
			continue
		}
		if isFile(candidate) {
			return candidate, nil
		}
	}

	for _, pattern := range l.Globs {
		match, err := firstGlobMatch(pattern)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrBinaryNotFound, err)
		}
		if match != "" {
			return match, nil
		}
	}

	tried := append(append([]string{}, l.Paths...), l.Globs...)
	return "", fmt.Errorf("%w; tried %s", ErrBinaryNotFound, strings.Join(tried, ", "))
}

// firstGlobMatch walks the literal prefix of pattern and returns the first
// regular file, in lexical order, that the pattern matches.
func firstGlobMatch(pattern string) (string, error) {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return "", nil
	}
	// WalkDir yields cleaned paths, so "./bin/*" must match as "bin/*".
	pattern = filepath.Clean(pattern)
	matcher, err := glob.Compile(pattern, '/')
	if err != nil {
		return "", fmt.Errorf("invalid glob %q: %w", pattern, err)
	}

	root := globRoot(pattern)
	if root == pattern {
		if isFile(pattern) {
			return pattern, nil
		}
		return "", nil
	}
	if _, err := os.Stat(root); err != nil {
		return "", nil
	}

	var found string
	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable subtrees are skipped, not fatal.
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() || !matcher.Match(path) {
			return nil
		}
		if isFile(path) {
			found = path
			return fs.SkipAll
		}
		return nil
	})
	if walkErr != nil && !errors.Is(walkErr, fs.SkipAll) {
		return "", walkErr
	}
	return found, nil
}

// globRoot returns the longest directory prefix of pattern free of glob
// metacharacters.
func globRoot(pattern string) string {
	idx := strings.IndexAny(pattern, "*?[{")
	if idx < 0 {
		return pattern
	}
	dir := filepath.Dir(pattern[:idx+1])
	if dir == "" {
		return "."
	}
	return dir
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
