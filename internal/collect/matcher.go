package collect

import (
	stderrors "errors"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/vango-dev/precache/internal/errors"
)

// Matcher resolves include and exclude patterns to a set of slash-separated
// paths relative to the root of fsys.
type Matcher interface {
	Match(fsys fs.FS, patterns, ignores []string) ([]string, error)
}

// GlobMatcher is the doublestar implementation of Matcher.
type GlobMatcher struct {
	// Follow follows symlinked directories while walking.
	Follow bool

	// Strict fails on unreadable directories instead of skipping them.
	Strict bool
}

// Match returns the sorted set of files matched by any pattern and by no
// ignore pattern.
func (m GlobMatcher) Match(fsys fs.FS, patterns, ignores []string) ([]string, error) {
	opts := []doublestar.GlobOption{doublestar.WithFilesOnly()}
	if !m.Follow {
		opts = append(opts, doublestar.WithNoFollow())
	}
	if m.Strict {
		opts = append(opts, doublestar.WithFailOnIOErrors())
	}

	seen := make(map[string]struct{})
	for _, pattern := range patterns {
		matches, err := doublestar.Glob(fsys, pattern, opts...)
		if err != nil {
			if stderrors.Is(err, doublestar.ErrBadPattern) {
				return nil, errors.New("E104").
					WithOption("globPatterns").
					WithDetail("Pattern " + pattern + " is not a valid glob.")
			}
			return nil, errors.New("E502").Wrap(err)
		}
		for _, match := range matches {
			seen[match] = struct{}{}
		}
	}

	paths := make([]string, 0, len(seen))
	for path := range seen {
		ignored, err := matchesAny(ignores, path)
		if err != nil {
			return nil, err
		}
		if !ignored {
			paths = append(paths, path)
		}
	}
	sort.Strings(paths)
	return paths, nil
}

func matchesAny(patterns []string, path string) (bool, error) {
	for _, pattern := range patterns {
		ok, err := doublestar.Match(pattern, path)
		if err != nil {
			return false, errors.New("E104").
				WithOption("globIgnores").
				WithDetail("Pattern " + pattern + " is not a valid glob.")
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// toSlashRel returns path relative to base with forward slashes, or false
// when path lies outside base.
func toSlashRel(base, path string) (string, bool) {
	rel, err := filepath.Rel(base, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}
