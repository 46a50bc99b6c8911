// Package collect discovers the files to precache and computes their
// revisions.
//
// Discovery resolves glob patterns against a base directory with
// github.com/bmatcuk/doublestar/v4, so brace expansion and "**" work the way
// web tooling users expect:
//
//	col, err := collect.New().Collect(ctx, collect.Options{
//	    Dir:             "dist",
//	    Patterns:        []string{"**/*.{js,css,html}"},
//	    Ignores:         []string{"node_modules/**/*"},
//	    MaximumFileSize: 2 << 20,
//	})
//
// Files larger than the size limit, a missing directory and a pattern set
// that matches nothing produce warnings, never errors.
//
// Fingerprint then hashes every match in parallel:
//
//	entries, err := collect.Fingerprint(ctx, col.FS, col.Matches, collect.SHA256Hasher{}, 0)
//
// Templated URLs, which are not backed by a single file, get their revision
// from the concatenated bytes of their dependency files (ResolveTemplated).
package collect
