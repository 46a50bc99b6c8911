package transform

import (
	"regexp"
	"strings"

	"github.com/vango-dev/precache/internal/config"
	"github.com/vango-dev/precache/pkg/manifest"
)

// ModifyURLPrefix replaces the first matching prefix of every URL. Rules are
// tried in order; URLs that match no rule pass through unchanged.
func ModifyURLPrefix(rules []config.PrefixRule) manifest.Transform {
	return func(entries []manifest.Entry) (manifest.Result, error) {
		out := manifest.Clone(entries)
		for i := range out {
			for _, rule := range rules {
				if strings.HasPrefix(out[i].URL, rule.Prefix) {
					out[i].URL = rule.Replacement + out[i].URL[len(rule.Prefix):]
					break
				}
			}
		}
		return manifest.Result{Manifest: out}, nil
	}
}

// DontCacheBust flags entries whose URL already embeds a version. URLs and
// revisions are left unchanged.
func DontCacheBust(re *regexp.Regexp) manifest.Transform {
	return func(entries []manifest.Entry) (manifest.Result, error) {
		out := manifest.Clone(entries)
		for i := range out {
			if re.MatchString(out[i].URL) {
				out[i].NoCacheBust = true
			}
		}
		return manifest.Result{Manifest: out}, nil
	}
}

// DropSourceMaps removes .map files.
func DropSourceMaps(entries []manifest.Entry) (manifest.Result, error) {
	out := make([]manifest.Entry, 0, len(entries))
	for _, e := range entries {
		if !strings.HasSuffix(e.URL, ".map") {
			out = append(out, e)
		}
	}
	return manifest.Result{Manifest: out}, nil
}

// AbsoluteURLs prefixes relative URLs with "/".
func AbsoluteURLs(entries []manifest.Entry) (manifest.Result, error) {
	out := manifest.Clone(entries)
	for i := range out {
		if !strings.HasPrefix(out[i].URL, "/") && !strings.Contains(out[i].URL, "://") {
			out[i].URL = "/" + out[i].URL
		}
	}
	return manifest.Result{Manifest: out}, nil
}

// StripIndexHTML rewrites "dir/index.html" to "dir/". A top-level
// "index.html" becomes "./".
func StripIndexHTML(entries []manifest.Entry) (manifest.Result, error) {
	out := manifest.Clone(entries)
	for i := range out {
		if out[i].URL == "index.html" {
			out[i].URL = "./"
			continue
		}
		if strings.HasSuffix(out[i].URL, "/index.html") {
			out[i].URL = strings.TrimSuffix(out[i].URL, "index.html")
		}
	}
	return manifest.Result{Manifest: out}, nil
}
