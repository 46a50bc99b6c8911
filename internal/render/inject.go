package render

import (
	"regexp"
	"strings"

	"github.com/vango-dev/precache/internal/errors"
	"github.com/vango-dev/precache/pkg/manifest"
)

// DefaultInjectionPoint matches an empty precacheAndRoute([]) call. Group 1
// is the text before the array, group 2 the text after it.
var DefaultInjectionPoint = regexp.MustCompile(`(\.precacheAndRoute\()\s*\[\s*\]\s*(\)|,)`)

// Inject replaces the single match of re in source with the manifest
// literal, keeping the text of both capture groups. A nil re uses
// DefaultInjectionPoint. Zero matches or more than one is an error.
func Inject(source string, entries []manifest.Entry, re *regexp.Regexp) (string, error) {
	if re == nil {
		re = DefaultInjectionPoint
	}

	matches := re.FindAllStringSubmatchIndex(source, 2)
	switch len(matches) {
	case 0:
		return "", errors.New("E400").
			WithDetail("Nothing to inject into: no match for " + re.String() + ".").
			WithSuggestion("Add workbox.precaching.precacheAndRoute([]) to the service worker source")
	case 2:
		return "", errors.New("E401").
			WithDetail("Ambiguous target: " + re.String() + " matches more than once.").
			WithSuggestion("Keep a single precacheAndRoute([]) call in the service worker source")
	}

	literal, err := ManifestLiteral(entries)
	if err != nil {
		return "", err
	}

	m := matches[0]
	var b strings.Builder
	b.Grow(len(source) + len(literal))
	b.WriteString(source[:m[0]])
	b.WriteString(group(source, m, 1))
	b.WriteString(literal)
	b.WriteString(group(source, m, 2))
	b.WriteString(source[m[1]:])
	return b.String(), nil
}

// group returns capture group n of a submatch index, or "" when it did not
// participate.
func group(source string, m []int, n int) string {
	if 2*n+1 >= len(m) || m[2*n] < 0 {
		return ""
	}
	return source[m[2*n]:m[2*n+1]]
}
