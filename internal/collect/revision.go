package collect

import (
	"context"
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	stderrors "errors"
	"hash"
	"io"
	"io/fs"
	"path/filepath"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/vango-dev/precache/internal/errors"
	"github.com/vango-dev/precache/pkg/manifest"
)

// Hasher turns content into a revision string. Equal content must produce
// equal revisions.
type Hasher interface {
	Sum(r io.Reader) (string, error)
}

// SHA256Hasher produces lowercase hex SHA-256 digests.
type SHA256Hasher struct{}

// Sum hashes everything read from r.
func (SHA256Hasher) Sum(r io.Reader) (string, error) {
	return sum(sha256.New(), r)
}

// MD5Hasher produces lowercase hex MD5 digests, matching revisions written
// by older service worker tooling.
type MD5Hasher struct{}

// Sum hashes everything read from r.
func (MD5Hasher) Sum(r io.Reader) (string, error) {
	return sum(md5.New(), r)
}

func sum(h hash.Hash, r io.Reader) (string, error) {
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// HasherFor returns the hasher for a hashAlgorithm value.
func HasherFor(name string) (Hasher, error) {
	switch name {
	case "", "sha256":
		return SHA256Hasher{}, nil
	case "md5":
		return MD5Hasher{}, nil
	default:
		return nil, errors.New("E106").
			WithOption("hashAlgorithm").
			WithDetail("Supported hash algorithms are sha256 and md5, got " + name + ".")
	}
}

// Fingerprint hashes every match and returns one manifest entry per match, in
// the order of matches. Files are hashed by up to workers goroutines
// (GOMAXPROCS when workers <= 0). Every task runs to completion; all read
// failures are reported together.
func Fingerprint(ctx context.Context, fsys fs.FS, matches []Match, hasher Hasher, workers int) ([]manifest.Entry, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	entries := make([]manifest.Entry, len(matches))
	failures := make([]error, len(matches))

	var g errgroup.Group
	g.SetLimit(workers)
	for i, m := range matches {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			revision, err := hashFile(fsys, m.Path, hasher)
			if err != nil {
				failures[i] = errors.New("E500").
					WithPath(m.AbsPath).
					WithURL(m.URL).
					Wrap(err)
				return nil
			}
			entries[i] = manifest.Entry{
				URL:      m.URL,
				Revision: revision,
				Size:     m.Size,
				HasSize:  true,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var failed []error
	for _, err := range failures {
		if err != nil {
			failed = append(failed, err)
		}
	}
	switch len(failed) {
	case 0:
		return entries, nil
	case 1:
		return nil, failed[0]
	}
	return nil, errors.New("E500").
		WithDetail(failedPaths(failed)).
		Wrap(stderrors.Join(failed...))
}

func hashFile(fsys fs.FS, path string, hasher Hasher) (string, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return hasher.Sum(f)
}

func failedPaths(errs []error) string {
	var b strings.Builder
	b.WriteString("Multiple files could not be read:")
	for _, err := range errs {
		if pe, ok := errors.As(err); ok {
			b.WriteString("\n  ")
			b.WriteString(filepath.ToSlash(pe.Subject.Path))
		}
	}
	return b.String()
}
