package manifest

import (
	"strconv"
	"strings"

	"github.com/vango-dev/precache/internal/errors"
)

// Validate checks the structural invariants of a manifest: every URL is
// non-empty and unique, and every revision is non-empty.
func Validate(entries []Entry) error {
	seen := make(map[string]struct{}, len(entries))
	for i, e := range entries {
		if e.URL == "" {
			return errors.New("E301").
				WithDetail("entry " + strconv.Itoa(i) + " has an empty url")
		}
		if strings.TrimSpace(e.Revision) == "" {
			return errors.New("E301").
				WithURL(e.URL).
				WithDetail("the entry has no revision; a manifest transform may have dropped it")
		}
		if _, dup := seen[e.URL]; dup {
			return errors.New("E300").WithURL(e.URL)
		}
		seen[e.URL] = struct{}{}
	}
	return nil
}

// Assemble merges file-backed entries and templated entries into a single
// manifest sorted by URL. A URL produced by both sources, or twice by one
// source, is a collision.
func Assemble(files, templated []Entry) ([]Entry, error) {
	out := make([]Entry, 0, len(files)+len(templated))
	out = append(out, files...)
	for _, e := range templated {
		e.HasSize = false
		e.Size = 0
		out = append(out, e)
	}

	SortByURL(out)
	for i := 1; i < len(out); i++ {
		if out[i].URL == out[i-1].URL {
			return nil, errors.New("E300").
				WithURL(out[i].URL).
				WithSuggestion("Remove the URL from templatedUrls or exclude the file with globIgnores")
		}
	}
	if err := Validate(out); err != nil {
		return nil, err
	}
	return out, nil
}
