package render

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"reflect"
	"regexp"
	"strings"
	"testing"

	"github.com/vango-dev/precache/internal/config"
	"github.com/vango-dev/precache/internal/errors"
	"github.com/vango-dev/precache/pkg/manifest"
)

var testEntries = []manifest.Entry{
	{URL: "app.js", Revision: "h1", Size: 10, HasSize: true},
	{URL: "index.html", Revision: "h2", Size: 20, HasSize: true},
}

func boolPtr(b bool) *bool { return &b }

func render(t *testing.T, cfg *config.Config) string {
	t.Helper()
	data, err := NewData(cfg, testEntries)
	if err != nil {
		t.Fatalf("NewData() error = %v", err)
	}
	r, err := NewRenderer()
	if err != nil {
		t.Fatalf("NewRenderer() error = %v", err)
	}
	out, err := r.Render(data)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	return out
}

func TestManifestLiteral(t *testing.T) {
	got, err := ManifestLiteral(testEntries)
	if err != nil {
		t.Fatal(err)
	}
	want := `[
  {
    "url": "app.js",
    "revision": "h1"
  },
  {
    "url": "index.html",
    "revision": "h2"
  }
]`
	if got != want {
		t.Errorf("ManifestLiteral() =\n%s\nwant\n%s", got, want)
	}

	empty, _ := ManifestLiteral(nil)
	if empty != "[]" {
		t.Errorf("ManifestLiteral(nil) = %q, want []", empty)
	}
}

func TestRender_Defaults(t *testing.T) {
	out := render(t, config.New())

	literal, _ := ManifestLiteral(testEntries)
	wants := []string{
		`importScripts("` + CDNURL + `");`,
		"self.__precacheManifest = " + literal + ".concat(self.__precacheManifest || []);",
		`"ignoreUrlParametersMatching": [/^utm_/]`,
		"workbox.precaching.precacheAndRoute(self.__precacheManifest, {",
	}
	for _, want := range wants {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	for _, absent := range []string{"skipWaiting", "clientsClaim", "setCacheNameDetails", "registerNavigationRoute", "registerRoute(", "googleAnalytics", "setConfig"} {
		if strings.Contains(out, absent) {
			t.Errorf("output should not contain %q:\n%s", absent, out)
		}
	}
}

func TestRender_AllOptions(t *testing.T) {
	cfg := config.New()
	cfg.ImportWorkboxFromCDN = boolPtr(false)
	cfg.WorkboxLibDir = "/wb/"
	cfg.ImportScripts = []string{"a.js", "b.js"}
	cfg.CacheID = "my-app"
	cfg.SkipWaiting = true
	cfg.ClientsClaim = true
	cfg.NavigateFallback = "/index.html"
	cfg.NavigateFallbackWhitelist = []string{"^/app/"}
	cfg.NavigateFallbackBlacklist = []string{`\.json$`}
	cfg.DirectoryIndex = "index.html"
	cfg.IgnoreURLParametersMatching = []string{"^utm_", "^fbclid$"}
	cfg.OfflineGoogleAnalytics = true
	cfg.RuntimeCaching = []config.RuntimeCaching{
		{
			URLPatternRegexp: `^https://api\.example\.com/`,
			Handler:          "networkFirst",
			Options: &config.RuntimeCachingOptions{
				CacheName:             "api",
				NetworkTimeoutSeconds: 3,
				Expiration:            &config.Expiration{MaxEntries: 50, MaxAgeSeconds: 60},
				CacheableResponse:     &config.CacheableResponse{Statuses: []int{0, 200}},
			},
		},
		{URLPattern: "/img/logo.png", Handler: "cacheFirst", Method: "POST"},
	}

	out := render(t, cfg)

	wants := []string{
		`importScripts("/wb/workbox-sw.js");`,
		`workbox.setConfig({modulePathPrefix: "/wb"});`,
		`importScripts("a.js", "b.js");`,
		`workbox.core.setCacheNameDetails({prefix: "my-app"});`,
		"workbox.skipWaiting();",
		"workbox.clientsClaim();",
		`"directoryIndex": "index.html",`,
		`"ignoreUrlParametersMatching": [/^utm_/, /^fbclid$/]`,
		`workbox.routing.registerNavigationRoute("/index.html", {`,
		`whitelist: [/^\/app\//],`,
		`blacklist: [/\.json$/],`,
		`workbox.routing.registerRoute(/^https:\/\/api\.example\.com\//, workbox.strategies.networkFirst({cacheName: "api", networkTimeoutSeconds: 3, plugins: [new workbox.expiration.Plugin({maxEntries: 50, maxAgeSeconds: 60}), new workbox.cacheableResponse.Plugin({statuses: [0, 200]})]}), "GET");`,
		`workbox.routing.registerRoute("/img/logo.png", workbox.strategies.cacheFirst(), "POST");`,
		"workbox.googleAnalytics.initialize({});",
	}
	for _, want := range wants {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, CDNURL) {
		t.Error("local library should not load from the CDN")
	}
}

func TestRender_NoFetchHandler(t *testing.T) {
	cfg := config.New()
	cfg.HandleFetch = boolPtr(false)
	cfg.NavigateFallback = "/index.html"
	cfg.RuntimeCaching = []config.RuntimeCaching{{URLPattern: "/x", Handler: "cacheFirst"}}

	out := render(t, cfg)
	if !strings.Contains(out, "workbox.precaching.precache(self.__precacheManifest);") {
		t.Errorf("output should precache without routing:\n%s", out)
	}
	for _, absent := range []string{"precacheAndRoute", "registerNavigationRoute", "registerRoute("} {
		if strings.Contains(out, absent) {
			t.Errorf("output should not contain %q", absent)
		}
	}
}

func TestRender_Deterministic(t *testing.T) {
	cfg := config.New()
	cfg.RuntimeCaching = []config.RuntimeCaching{{
		URLPattern: "/api",
		Handler:    "networkOnly",
		Options: &config.RuntimeCachingOptions{
			CacheableResponse: &config.CacheableResponse{Headers: map[string]string{"x-b": "1", "x-a": "2"}},
		},
	}}
	first := render(t, cfg)
	for i := 0; i < 5; i++ {
		if got := render(t, cfg); got != first {
			t.Fatal("render output differs between runs")
		}
	}
	if !strings.Contains(first, `headers: {"x-a":"2","x-b":"1"}`) {
		t.Errorf("headers not rendered in key order:\n%s", first)
	}
}

func TestParseTemplate(t *testing.T) {
	r, err := ParseTemplate("custom", `const m = {{.Manifest}}; // {{js .CacheID}} {{len .Entries}} {{regex "a/b"}}`)
	if err != nil {
		t.Fatal(err)
	}
	cfg := config.New()
	cfg.CacheID = `quote"d`
	data, _ := NewData(cfg, testEntries[:1])
	out, err := r.Render(data)
	if err != nil {
		t.Fatal(err)
	}
	want := "const m = [\n  {\n    \"url\": \"app.js\",\n    \"revision\": \"h1\"\n  }\n]; // \"quote\\\"d\" 1 /a\\/b/"
	if out != want {
		t.Errorf("Render() = %q, want %q", out, want)
	}
}

func TestParseTemplate_Errors(t *testing.T) {
	_, err := ParseTemplate("bad", "{{.Manifest")
	if !stderrors.Is(err, errors.ErrRender) {
		t.Errorf("ParseTemplate() error = %v, want render error", err)
	}

	r, err := ParseTemplate("exec", "{{.Missing}}")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.Render(Data{}); !stderrors.Is(err, errors.ErrRender) {
		t.Errorf("Render() error = %v, want render error", err)
	}
}

func TestLoadTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sw.tmpl")
	if err := os.WriteFile(path, []byte("precache({{.Manifest}});"), 0644); err != nil {
		t.Fatal(err)
	}
	r, err := LoadTemplate(path)
	if err != nil {
		t.Fatal(err)
	}
	out, err := r.Render(Data{Manifest: "[]"})
	if err != nil || out != "precache([]);" {
		t.Errorf("Render() = %q, %v", out, err)
	}

	_, err = LoadTemplate(filepath.Join(t.TempDir(), "missing.tmpl"))
	if !stderrors.Is(err, errors.ErrIO) {
		t.Errorf("LoadTemplate() error = %v, want IO error", err)
	}
}

func TestJSRegex(t *testing.T) {
	tests := map[string]string{
		"^utm_": "/^utm_/",
		"a/b":   `/a\/b/`,
		`a\/b`:  `/a\/b/`,
		`\.js$`: `/\.js$/`,
		`\\/`:   `/\\\//`,
		"":      "/(?:)/",

		`^(?!\/__)`:   `/^(?!\/__)/`,
		"(?<=/api/)x": `/(?<=\/api\/)x/`,
	}
	for in, want := range tests {
		if got := jsRegex(in); got != want {
			t.Errorf("jsRegex(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestInject(t *testing.T) {
	source := "importScripts('wb.js');\nworkbox.precaching.precacheAndRoute( [ ] );\nconsole.log('done');\n"
	out, err := Inject(source, testEntries, nil)
	if err != nil {
		t.Fatalf("Inject() error = %v", err)
	}

	loc := DefaultInjectionPoint.FindStringIndex(source)
	prefix, suffix := source[:loc[0]], source[loc[1]:]
	if !strings.HasPrefix(out, prefix) || !strings.HasSuffix(out, suffix) {
		t.Fatalf("bytes outside the injection point changed:\n%s", out)
	}

	span := out[len(prefix) : len(out)-len(suffix)]
	if !strings.HasPrefix(span, ".precacheAndRoute(") || !strings.HasSuffix(span, ")") {
		t.Fatalf("span = %q", span)
	}
	literal := strings.TrimSuffix(strings.TrimPrefix(span, ".precacheAndRoute("), ")")
	parsed, err := manifest.Parse([]byte(literal))
	if err != nil {
		t.Fatalf("span does not parse: %v\n%s", err, literal)
	}
	if !reflect.DeepEqual(parsed, manifest.ToPrecacheEntries(testEntries)) {
		t.Errorf("parsed manifest = %+v", parsed)
	}
}

func TestInject_TrailingComma(t *testing.T) {
	source := "workbox.precaching.precacheAndRoute([], {directoryIndex: 'index.html'});"
	out, err := Inject(source, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if out != "workbox.precaching.precacheAndRoute([], {directoryIndex: 'index.html'});" {
		t.Errorf("Inject() = %q", out)
	}
}

func TestInject_CustomRegexp(t *testing.T) {
	re := regexp.MustCompile(`(self\.__WB_MANIFEST = )(?:\[\])(;)`)
	out, err := Inject("a;self.__WB_MANIFEST = [];b", testEntries[:1], re)
	if err != nil {
		t.Fatal(err)
	}
	want := "a;self.__WB_MANIFEST = [\n  {\n    \"url\": \"app.js\",\n    \"revision\": \"h1\"\n  }\n];b"
	if out != want {
		t.Errorf("Inject() = %q, want %q", out, want)
	}
}

func TestInject_Placeholder(t *testing.T) {
	tests := []struct {
		name     string
		source   string
		wantCode string
	}{
		{"missing", "self.addEventListener('fetch', () => {});", "E400"},
		{"already injected", `workbox.precaching.precacheAndRoute([{"url": "a.js"}]);`, "E400"},
		{"twice", "workbox.precaching.precacheAndRoute([]);\nworkbox.precaching.precacheAndRoute([]);", "E401"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Inject(tt.source, testEntries, nil)
			if out != "" {
				t.Errorf("Inject() output = %q, want none", out)
			}
			if !stderrors.Is(err, errors.ErrPlaceholder) {
				t.Fatalf("Inject() error = %v, want placeholder error", err)
			}
			if pe, _ := errors.As(err); pe.Code != tt.wantCode {
				t.Errorf("Code = %s, want %s", pe.Code, tt.wantCode)
			}
		})
	}
}
