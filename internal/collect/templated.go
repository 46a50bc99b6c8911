package collect

import (
	"context"
	"io"
	"io/fs"
	"os"
	"sort"
	"strings"

	"github.com/vango-dev/precache/internal/config"
	"github.com/vango-dev/precache/internal/errors"
	"github.com/vango-dev/precache/pkg/manifest"
)

// TemplatedOptions configures ResolveTemplated.
type TemplatedOptions struct {
	// Dir is the directory dependency patterns resolve against.
	Dir string

	// FS overrides the file system rooted at Dir.
	FS fs.FS

	// Ignores apply to dependency patterns as they do to discovery.
	Ignores []string

	Follow bool
	Strict bool
}

// ResolveTemplated computes an entry for each templated URL. A literal
// version is used verbatim. Otherwise the revision is the hash of the
// concatenated bytes of every dependency file, in relative path order.
// Results are sorted by URL. Templated entries carry no size.
func (c *Collector) ResolveTemplated(ctx context.Context, opts TemplatedOptions, urls config.TemplatedURLs, hasher Hasher) ([]manifest.Entry, error) {
	fsys := opts.FS
	if fsys == nil && len(urls) > 0 {
		fsys = os.DirFS(opts.Dir)
	}
	matcher := c.matcher(Options{Follow: opts.Follow, Strict: opts.Strict})

	entries := make([]manifest.Entry, 0, len(urls))
	for _, u := range urls {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if u.IsLiteral() {
			entries = append(entries, manifest.Entry{URL: u.URL, Revision: u.Version})
			continue
		}

		paths, err := matcher.Match(fsys, u.Patterns, opts.Ignores)
		if err != nil {
			if pe, ok := errors.As(err); ok {
				pe.WithURL(u.URL).WithOption("templatedUrls")
			}
			return nil, err
		}
		if len(paths) == 0 {
			return nil, errors.New("E103").
				WithOption("templatedUrls").
				WithURL(u.URL).
				WithPath(opts.Dir).
				WithDetail("Patterns " + strings.Join(u.Patterns, ", ") + " matched no files.").
				WithSuggestion("Fix the patterns or give the URL a literal version string")
		}

		revision, err := hashConcat(fsys, paths, hasher)
		if err != nil {
			return nil, errors.New("E500").WithPath(opts.Dir).WithURL(u.URL).Wrap(err)
		}
		entries = append(entries, manifest.Entry{URL: u.URL, Revision: revision})
	}

	sort.SliceStable(entries, func(i, j int) bool { return entries[i].URL < entries[j].URL })
	return entries, nil
}

// hashConcat hashes the files in order as one stream.
func hashConcat(fsys fs.FS, paths []string, hasher Hasher) (string, error) {
	readers := make([]io.Reader, 0, len(paths))
	for _, path := range paths {
		f, err := fsys.Open(path)
		if err != nil {
			return "", err
		}
		defer f.Close()
		readers = append(readers, f)
	}
	return hasher.Sum(io.MultiReader(readers...))
}
