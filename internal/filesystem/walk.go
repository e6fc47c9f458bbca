package filesystem

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultIgnoreDirs are directory names skipped during traversal
var DefaultIgnoreDirs = []string{
	"node_modules", "vendor", ".git", ".svn", ".hg",
	"dist", "build", "tmp", ".idea", ".vscode",
}

// WalkOptions configures directory traversal behavior
type WalkOptions struct {
	IgnoreDirs     []string // Directory names to skip (default: DefaultIgnoreDirs)
	IgnorePatterns []string // Doublestar patterns matched against the slash path relative to root
	IncludeHidden  bool     // Include hidden files/dirs (default: false)
}

// Visitor is called for each entry Walk does not skip. rel is the
// slash-separated path relative to the walk root, "." for the root itself.
type Visitor func(path, rel string, d fs.DirEntry) error

// Walk traverses a directory tree, skipping ignored directories, hidden
// entries and files matching IgnorePatterns. Return filepath.SkipDir from
// the visitor to skip a directory.
func Walk(root string, opts WalkOptions, visit Visitor) error {
	ignoreDirs := opts.IgnoreDirs
	if len(ignoreDirs) == 0 {
		ignoreDirs = DefaultIgnoreDirs
	}
	for _, pattern := range opts.IgnorePatterns {
		if !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("invalid ignore pattern %q", pattern)
		}
	}

	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if rel == "." {
			return visit(path, rel, d)
		}

		if !opts.IncludeHidden && strings.HasPrefix(d.Name(), ".") {
			return skip(d)
		}
		if d.IsDir() && slices.Contains(ignoreDirs, d.Name()) {
			return filepath.SkipDir
		}
		if !d.IsDir() && matchAny(opts.IgnorePatterns, rel) {
			return nil
		}

		return visit(path, rel, d)
	})
}

// WalkWithDefaults walks a directory tree with the default ignore rules
func WalkWithDefaults(root string, visit Visitor) error {
	return Walk(root, WalkOptions{}, visit)
}

// Dirs returns every directory Walk would visit, root first
func Dirs(root string, opts WalkOptions) ([]string, error) {
	var dirs []string
	err := Walk(root, opts, func(path, _ string, d fs.DirEntry) error {
		if d.IsDir() {
			dirs = append(dirs, path)
		}
		return nil
	})
	return dirs, err
}

// Files returns the relative slash paths of files matching any of patterns,
// sorted and without duplicates.
func Files(root string, patterns []string, opts WalkOptions) ([]string, error) {
	for _, pattern := range patterns {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid pattern %q", pattern)
		}
	}

	var files []string
	err := Walk(root, opts, func(_, rel string, d fs.DirEntry) error {
		if !d.IsDir() && matchAny(patterns, rel) {
			files = append(files, rel)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.Sort(files)
	return slices.Compact(files), nil
}

// Match reports whether the slash path rel matches any of patterns
func Match(patterns []string, rel string) bool {
	return matchAny(patterns, rel)
}

func matchAny(patterns []string, rel string) bool {
	for _, pattern := range patterns {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}

func skip(d fs.DirEntry) error {
	if d.IsDir() {
		return filepath.SkipDir
	}
	return nil
}
