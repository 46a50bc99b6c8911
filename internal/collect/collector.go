package collect

import (
	"context"
	stderrors "errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/vango-dev/precache/internal/errors"
)

// Match is one discovered file.
type Match struct {
	// Path is the slash-separated path relative to the glob directory.
	Path string

	// AbsPath is the file's location on disk.
	AbsPath string

	// URL is the manifest URL. Discovery sets it to Path.
	URL string

	// Size is the file size in bytes.
	Size int64
}

// Options configures a collection run.
type Options struct {
	// Dir is the glob directory. Relative patterns resolve against it.
	Dir string

	// FS overrides the file system rooted at Dir. Defaults to os.DirFS(Dir).
	FS fs.FS

	Patterns []string
	Ignores  []string

	// MaximumFileSize drops larger files with a warning. Zero disables the
	// limit.
	MaximumFileSize int64

	Follow bool
	Strict bool

	// Exclude lists absolute paths that are never collected, such as the
	// service worker being generated.
	Exclude []string
}

// Collection is the result of discovery.
type Collection struct {
	// FS is the file system the matches were found in.
	FS fs.FS

	// Matches are sorted by URL.
	Matches []Match

	Warnings []string
}

// Collector discovers precache candidates.
type Collector struct {
	// Matcher overrides the default GlobMatcher.
	Matcher Matcher
}

// New creates a collector that uses doublestar globbing.
func New() *Collector {
	return &Collector{}
}

// Collect resolves opts.Patterns under opts.Dir.
func (c *Collector) Collect(ctx context.Context, opts Options) (*Collection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fsys := opts.FS
	if fsys == nil {
		fsys = os.DirFS(opts.Dir)
	}
	col := &Collection{FS: fsys}

	info, err := fs.Stat(fsys, ".")
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			col.Warnings = append(col.Warnings, errors.WarnMissingDirectory(opts.Dir))
			return col, nil
		}
		return nil, errors.New("E502").WithPath(opts.Dir).Wrap(err)
	}
	if !info.IsDir() {
		return nil, errors.New("E502").
			WithPath(opts.Dir).
			WithOption("globDirectory").
			WithDetail("The glob directory is a file.")
	}

	paths, err := c.matcher(opts).Match(fsys, opts.Patterns, opts.Ignores)
	if err != nil {
		if pe, ok := errors.As(err); ok && pe.Subject.Path == "" {
			pe.WithPath(opts.Dir)
		}
		return nil, err
	}

	excluded := excludedPaths(opts.Dir, opts.Exclude)
	for _, path := range paths {
		if _, skip := excluded[path]; skip {
			continue
		}
		info, err := fs.Stat(fsys, path)
		if err != nil {
			return nil, errors.New("E500").WithPath(filepath.Join(opts.Dir, filepath.FromSlash(path))).Wrap(err)
		}
		if opts.MaximumFileSize > 0 && info.Size() > opts.MaximumFileSize {
			col.Warnings = append(col.Warnings, errors.WarnOversized(path, info.Size(), opts.MaximumFileSize))
			continue
		}
		col.Matches = append(col.Matches, Match{
			Path:    path,
			AbsPath: filepath.Join(opts.Dir, filepath.FromSlash(path)),
			URL:     path,
			Size:    info.Size(),
		})
	}

	if len(col.Matches) == 0 && len(opts.Patterns) > 0 {
		col.Warnings = append(col.Warnings, errors.WarnNoMatches(opts.Dir, opts.Patterns))
	}
	return col, nil
}

func (c *Collector) matcher(opts Options) Matcher {
	if c.Matcher != nil {
		return c.Matcher
	}
	return GlobMatcher{Follow: opts.Follow, Strict: opts.Strict}
}

// excludedPaths maps absolute exclusions inside dir to their relative form.
func excludedPaths(dir string, exclude []string) map[string]struct{} {
	out := make(map[string]struct{}, len(exclude))
	if len(exclude) == 0 {
		return out
	}
	base, err := filepath.Abs(dir)
	if err != nil {
		return out
	}
	for _, path := range exclude {
		abs, err := filepath.Abs(path)
		if err != nil {
			continue
		}
		if rel, ok := toSlashRel(base, abs); ok {
			out[rel] = struct{}{}
		}
	}
	return out
}
