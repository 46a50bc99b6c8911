// Package manifest defines the precache manifest: the versioned list of
// assets a service worker stores at install time.
//
// A manifest is an ordered slice of Entry values. Build stages produce and
// transform entries in memory; the serialized form written into a service
// worker keeps only url and revision:
//
//	[
//	  {"url": "app.js", "revision": "5d41402abc4b2a76b9719d911017c592"},
//	  {"url": "index.html", "revision": "7d793037a0760186574b0282f2f435e7"}
//	]
//
// Entries flagged NoCacheBust are already uniquely versioned by their URL,
// so their serialized form omits the revision.
package manifest

import (
	"bytes"
	"encoding/json"
	"os"
	"sort"

	"github.com/vango-dev/precache/internal/errors"
)

// Entry is one precached asset.
type Entry struct {
	// URL is the request URL the service worker caches. Unique per manifest.
	URL string

	// Revision changes whenever the content behind URL changes.
	Revision string

	// Size is the byte size of the backing file. Only meaningful when HasSize.
	Size int64

	// HasSize is false for templated URLs, which have no single backing file.
	HasSize bool

	// NoCacheBust marks URLs that already embed a version, so the runtime
	// does not need to append the revision when fetching them.
	NoCacheBust bool
}

// Result is the output of one transform stage.
type Result struct {
	Manifest []Entry
	Warnings []string
}

// Transform rewrites, filters, or extends a manifest. It must not mutate the
// slice it receives.
type Transform func(entries []Entry) (Result, error)

// PrecacheEntry is the serialized form of an Entry.
type PrecacheEntry struct {
	URL      string `json:"url"`
	Revision string `json:"revision,omitempty"`
}

// ToPrecacheEntries converts entries to their serialized form, preserving order.
func ToPrecacheEntries(entries []Entry) []PrecacheEntry {
	out := make([]PrecacheEntry, len(entries))
	for i, e := range entries {
		out[i] = PrecacheEntry{URL: e.URL}
		if !e.NoCacheBust {
			out[i].Revision = e.Revision
		}
	}
	return out
}

// Marshal serializes entries as an indented JSON array. The output is a valid
// JavaScript array literal and is byte-identical for identical input.
func Marshal(entries []Entry) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(ToPrecacheEntries(entries)); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Parse decodes a serialized manifest.
func Parse(data []byte) ([]PrecacheEntry, error) {
	var entries []PrecacheEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// Load reads a serialized manifest file.
func Load(path string) ([]PrecacheEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New("E500").WithPath(path).Wrap(err)
	}
	return Parse(data)
}

// Totals returns the number of entries and the sum of known sizes.
func Totals(entries []Entry) (count int, size int64) {
	for _, e := range entries {
		if e.HasSize {
			size += e.Size
		}
	}
	return len(entries), size
}

// SortByURL sorts entries in place by URL.
func SortByURL(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].URL < entries[j].URL
	})
}

// Clone returns a copy of entries that shares no backing array.
func Clone(entries []Entry) []Entry {
	if entries == nil {
		return nil
	}
	out := make([]Entry, len(entries))
	copy(out, entries)
	return out
}
