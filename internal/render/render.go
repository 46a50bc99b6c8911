package render

import (
	"bytes"
	"embed"
	"encoding/json"
	"os"
	"strconv"
	"strings"
	"text/template"

	"github.com/vango-dev/precache/internal/config"
	"github.com/vango-dev/precache/internal/errors"
	"github.com/vango-dev/precache/pkg/manifest"
)

//go:embed templates/sw.js.tmpl
var templateFS embed.FS

// WorkboxVersion is the runtime library release the generated worker loads.
const WorkboxVersion = "3.6.3"

// CDNURL is the runtime library URL used when importWorkboxFromCDN is on.
var CDNURL = "https://storage.googleapis.com/workbox-cdn/releases/" + WorkboxVersion + "/workbox-sw.js"

// DefaultIgnoreURLParameters is used when ignoreUrlParametersMatching is unset.
var DefaultIgnoreURLParameters = []string{"^utm_"}

// Data holds the template bindings. Templates may ignore any of them.
type Data struct {
	// Manifest is the manifest as a JavaScript array literal.
	Manifest string

	// WorkboxURL is the URL of the runtime library.
	WorkboxURL string

	// ModulePathPrefix is set when the library is hosted locally.
	ModulePathPrefix string

	ImportScripts []string
	CacheID       string
	SkipWaiting   bool
	ClientsClaim  bool

	NavigateFallback          string
	NavigateFallbackWhitelist []string
	NavigateFallbackBlacklist []string

	DirectoryIndex              string
	IgnoreURLParametersMatching []string
	HandleFetch                 bool

	RuntimeCaching         []Route
	OfflineGoogleAnalytics bool

	// Entries is the manifest in structured form, for custom templates.
	Entries []manifest.PrecacheEntry
}

// Route is a runtime caching route.
type Route struct {
	// URLPattern is matched as a string route. Empty when Regexp is set.
	URLPattern string

	// Regexp is a regular expression route.
	Regexp string

	Handler string
	Method  string

	// Options is the strategy options as a JavaScript object literal, or
	// empty.
	Options string
}

// NewData builds template bindings from configuration and the transformed
// manifest.
func NewData(cfg *config.Config, entries []manifest.Entry) (Data, error) {
	literal, err := ManifestLiteral(entries)
	if err != nil {
		return Data{}, err
	}

	d := Data{
		Manifest:                    literal,
		WorkboxURL:                  CDNURL,
		ImportScripts:               cfg.ImportScripts,
		CacheID:                     cfg.CacheID,
		SkipWaiting:                 cfg.SkipWaiting,
		ClientsClaim:                cfg.ClientsClaim,
		NavigateFallback:            cfg.NavigateFallback,
		NavigateFallbackWhitelist:   cfg.NavigateFallbackWhitelist,
		NavigateFallbackBlacklist:   cfg.NavigateFallbackBlacklist,
		DirectoryIndex:              cfg.DirectoryIndex,
		IgnoreURLParametersMatching: cfg.IgnoreURLParametersMatching,
		HandleFetch:                 cfg.HandlesFetch(),
		OfflineGoogleAnalytics:      cfg.OfflineGoogleAnalytics,
		Entries:                     manifest.ToPrecacheEntries(entries),
	}
	if len(d.IgnoreURLParametersMatching) == 0 {
		d.IgnoreURLParametersMatching = DefaultIgnoreURLParameters
	}
	if !cfg.UseCDN() {
		dir := strings.TrimSuffix(cfg.WorkboxLibDir, "/")
		d.WorkboxURL = dir + "/workbox-sw.js"
		d.ModulePathPrefix = dir
	}

	for _, rc := range cfg.RuntimeCaching {
		route := Route{
			URLPattern: rc.URLPattern,
			Regexp:     rc.URLPatternRegexp,
			Handler:    rc.Handler,
			Method:     rc.Method,
		}
		if route.Method == "" {
			route.Method = "GET"
		}
		route.Options = strategyOptions(rc.Options)
		d.RuntimeCaching = append(d.RuntimeCaching, route)
	}
	return d, nil
}

// strategyOptions renders runtime options as a JavaScript object literal.
func strategyOptions(opts *config.RuntimeCachingOptions) string {
	if opts == nil {
		return ""
	}

	var fields, plugins []string
	if opts.CacheName != "" {
		fields = append(fields, "cacheName: "+jsString(opts.CacheName))
	}
	if opts.NetworkTimeoutSeconds > 0 {
		fields = append(fields, "networkTimeoutSeconds: "+strconv.Itoa(opts.NetworkTimeoutSeconds))
	}
	if exp := opts.Expiration; exp != nil && (exp.MaxEntries > 0 || exp.MaxAgeSeconds > 0) {
		var parts []string
		if exp.MaxEntries > 0 {
			parts = append(parts, "maxEntries: "+strconv.Itoa(exp.MaxEntries))
		}
		if exp.MaxAgeSeconds > 0 {
			parts = append(parts, "maxAgeSeconds: "+strconv.Itoa(exp.MaxAgeSeconds))
		}
		plugins = append(plugins, "new workbox.expiration.Plugin({"+strings.Join(parts, ", ")+"})")
	}
	if cr := opts.CacheableResponse; cr != nil && (len(cr.Statuses) > 0 || len(cr.Headers) > 0) {
		var parts []string
		if len(cr.Statuses) > 0 {
			statuses := make([]string, len(cr.Statuses))
			for i, s := range cr.Statuses {
				statuses[i] = strconv.Itoa(s)
			}
			parts = append(parts, "statuses: ["+strings.Join(statuses, ", ")+"]")
		}
		if len(cr.Headers) > 0 {
			// Keys come out sorted.
			headers, _ := json.Marshal(cr.Headers)
			parts = append(parts, "headers: "+string(headers))
		}
		plugins = append(plugins, "new workbox.cacheableResponse.Plugin({"+strings.Join(parts, ", ")+"})")
	}
	if len(plugins) > 0 {
		fields = append(fields, "plugins: ["+strings.Join(plugins, ", ")+"]")
	}
	if len(fields) == 0 {
		return ""
	}
	return "{" + strings.Join(fields, ", ") + "}"
}

// Renderer executes a service worker template.
type Renderer struct {
	tmpl *template.Template
}

// NewRenderer returns a renderer for the built-in template.
func NewRenderer() (*Renderer, error) {
	data, err := templateFS.ReadFile("templates/sw.js.tmpl")
	if err != nil {
		return nil, errors.New("E600").Wrap(err)
	}
	return ParseTemplate("sw.js", string(data))
}

// LoadTemplate returns a renderer for the template file at path.
func LoadTemplate(path string) (*Renderer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New("E500").WithPath(path).WithOption("swTemplate").Wrap(err)
	}
	r, err := ParseTemplate(path, string(data))
	if err != nil {
		if pe, ok := errors.As(err); ok {
			pe.WithPath(path)
		}
		return nil, err
	}
	return r, nil
}

// ParseTemplate returns a renderer for template text. Templates can use the
// js and regex functions to emit JavaScript string and regex literals.
func ParseTemplate(name, text string) (*Renderer, error) {
	tmpl, err := template.New(name).
		Funcs(template.FuncMap{"js": jsString, "regex": jsRegex}).
		Option("missingkey=zero").
		Parse(text)
	if err != nil {
		return nil, errors.New("E600").Wrap(err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

// Render executes the template.
func (r *Renderer) Render(data Data) (string, error) {
	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, data); err != nil {
		return "", errors.New("E600").Wrap(err)
	}
	return buf.String(), nil
}

// ManifestLiteral serializes entries as a JavaScript array literal.
func ManifestLiteral(entries []manifest.Entry) (string, error) {
	data, err := manifest.Marshal(entries)
	if err != nil {
		return "", errors.New("E600").Wrap(err)
	}
	return string(data), nil
}

// jsString returns s as a double-quoted JavaScript string literal.
func jsString(s string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s)
	return strings.TrimSuffix(buf.String(), "\n")
}

// jsRegex returns expr as a JavaScript regular expression literal.
func jsRegex(expr string) string {
	if expr == "" {
		return "/(?:)/"
	}
	var b strings.Builder
	b.WriteByte('/')
	escaped := false
	for _, r := range expr {
		switch {
		case escaped:
			b.WriteRune(r)
			escaped = false
		case r == '\\':
			b.WriteRune(r)
			escaped = true
		case r == '/':
			b.WriteString(`\/`)
		case r == '\n':
			b.WriteString(`\n`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('/')
	return b.String()
}
