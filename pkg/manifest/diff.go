package manifest

import "sort"

// Changes lists how a manifest differs from an earlier one. Each list is
// sorted by URL.
type Changes struct {
	Added   []string
	Changed []string
	Removed []string
}

// Empty reports whether nothing changed.
func (c Changes) Empty() bool {
	return len(c.Added) == 0 && len(c.Changed) == 0 && len(c.Removed) == 0
}

// Diff compares current against a previously serialized manifest. A URL is
// changed when its serialized revision differs, so a deploy can tell which
// assets browsers will download again.
func Diff(previous []PrecacheEntry, current []Entry) Changes {
	old := make(map[string]string, len(previous))
	for _, e := range previous {
		old[e.URL] = e.Revision
	}

	var c Changes
	for _, e := range ToPrecacheEntries(current) {
		revision, ok := old[e.URL]
		switch {
		case !ok:
			c.Added = append(c.Added, e.URL)
		case revision != e.Revision:
			c.Changed = append(c.Changed, e.URL)
		}
		delete(old, e.URL)
	}
	for url := range old {
		c.Removed = append(c.Removed, url)
	}

	sort.Strings(c.Added)
	sort.Strings(c.Changed)
	sort.Strings(c.Removed)
	return c
}
