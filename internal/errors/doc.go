// Package errors provides structured, actionable errors for the precache
// manifest builder.
//
// Every fatal error raised by the pipeline is a *PrecacheError carrying a
// registered code, a category, and the subject that caused it (the offending
// path, manifest URL, or configuration option) so the caller can fix the
// configuration without reading a stack trace.
//
// # Error Categories
//
//   - config: malformed or mutually incompatible options
//   - collision: duplicate or structurally invalid manifest entries
//   - placeholder: missing or ambiguous injection point
//   - io: a file could not be read or written
//   - render: the service worker template failed to execute
//
// Discovery problems (no matches, oversized files) are not errors. They are
// reported as warning strings built with the Warn* helpers.
//
// # Usage
//
//	err := errors.New("E300").
//	    WithURL("/index.html").
//	    WithSuggestion("Remove the entry from templatedUrls or globPatterns")
//
//	fmt.Println(err.Format())
//	// Output:
//	// ERROR E300: Duplicate manifest URL
//	//
//	//   url: /index.html
//	//
//	//   Two sources produced the same precache URL. Precaching it twice
//	//   would make the cached revision ambiguous.
//	//
//	//   Hint: Remove the entry from templatedUrls or globPatterns
//
// Callers can test for a category with the standard library:
//
//	if errors.Is(err, errors.ErrCollision) { ... }
package errors
