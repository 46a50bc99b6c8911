package config

import (
	"encoding/json"
	stderrors "errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/vango-dev/precache/internal/errors"
)

func TestNew(t *testing.T) {
	cfg := New()

	if cfg.MaximumFileSizeToCacheInBytes != 2097152 {
		t.Errorf("MaximumFileSizeToCacheInBytes = %d, want 2097152", cfg.MaximumFileSizeToCacheInBytes)
	}
	if !reflect.DeepEqual(cfg.GlobIgnores, []string{"node_modules/**/*"}) {
		t.Errorf("GlobIgnores = %v", cfg.GlobIgnores)
	}
	if len(cfg.GlobPatterns) == 0 {
		t.Error("GlobPatterns should have defaults")
	}
	if cfg.HashAlgorithm != "sha256" {
		t.Errorf("HashAlgorithm = %q, want sha256", cfg.HashAlgorithm)
	}
	if !cfg.Follow() || !cfg.Strict() || !cfg.UseCDN() || !cfg.HandlesFetch() {
		t.Error("boolean options should default to true")
	}
}

func TestLoadFile_JSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "precache.json")
	content := `{
  "globDirectory": "dist",
  "globPatterns": ["**/*.{js,html}"],
  "globIgnores": [],
  "maximumFileSizeToCacheInBytes": 1024,
  "templatedUrls": {
    "/shell": ["a.hbs", "b.css"],
    "/version": "v42"
  },
  "modifyUrlPrefix": {"build/": "", "b": "x/"},
  "swDest": "dist/sw.js",
  "skipWaiting": true
}`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}

	if cfg.GlobDirectory != "dist" {
		t.Errorf("GlobDirectory = %q", cfg.GlobDirectory)
	}
	if len(cfg.GlobIgnores) != 0 {
		t.Errorf("explicit empty globIgnores should stay empty, got %v", cfg.GlobIgnores)
	}
	if cfg.MaximumFileSizeToCacheInBytes != 1024 {
		t.Errorf("MaximumFileSizeToCacheInBytes = %d", cfg.MaximumFileSizeToCacheInBytes)
	}

	wantTemplated := TemplatedURLs{
		{URL: "/shell", Patterns: []string{"a.hbs", "b.css"}},
		{URL: "/version", Version: "v42"},
	}
	if !reflect.DeepEqual(cfg.TemplatedURLs, wantTemplated) {
		t.Errorf("TemplatedURLs = %+v", cfg.TemplatedURLs)
	}

	wantRules := PrefixRules{{"build/", ""}, {"b", "x/"}}
	if !reflect.DeepEqual(cfg.ModifyURLPrefix, wantRules) {
		t.Errorf("ModifyURLPrefix = %+v, want %+v", cfg.ModifyURLPrefix, wantRules)
	}

	if cfg.Path() != path {
		t.Errorf("Path() = %q", cfg.Path())
	}
	if got := cfg.GlobPath(); got != filepath.Join(dir, "dist") {
		t.Errorf("GlobPath() = %q", got)
	}
	if len(cfg.Warnings()) != 0 {
		t.Errorf("Warnings() = %v", cfg.Warnings())
	}
}

func TestLoadFile_YAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "precache.yaml")
	content := `globDirectory: public
modifyUrlPrefix:
  z/: /z/
  a/: /a/
templatedUrls:
  /app-shell:
    - views/*.html
  /api/version: "7"
runtimeCaching:
  - urlPatternRegexp: ^https://api\.example\.com/
    handler: networkFirst
    options:
      cacheName: api
      networkTimeoutSeconds: 3
      expiration:
        maxEntries: 50
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}

	wantRules := PrefixRules{{"z/", "/z/"}, {"a/", "/a/"}}
	if !reflect.DeepEqual(cfg.ModifyURLPrefix, wantRules) {
		t.Errorf("ModifyURLPrefix = %+v, want %+v", cfg.ModifyURLPrefix, wantRules)
	}
	wantTemplated := TemplatedURLs{
		{URL: "/app-shell", Patterns: []string{"views/*.html"}},
		{URL: "/api/version", Version: "7"},
	}
	if !reflect.DeepEqual(cfg.TemplatedURLs, wantTemplated) {
		t.Errorf("TemplatedURLs = %+v", cfg.TemplatedURLs)
	}
	if len(cfg.RuntimeCaching) != 1 {
		t.Fatalf("RuntimeCaching = %+v", cfg.RuntimeCaching)
	}
	rc := cfg.RuntimeCaching[0]
	if rc.Handler != "networkFirst" || rc.Options.CacheName != "api" || rc.Options.Expiration.MaxEntries != 50 {
		t.Errorf("RuntimeCaching[0] = %+v", rc)
	}
	if err := cfg.Validate(ModeGenerate); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestLoadFile_UnknownKeysWarn(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "precache.json")
	content := `{"globDirectory": "dist", "globPattern": ["*.js"], "zzz": 1}`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	warnings := cfg.Warnings()
	if len(warnings) != 2 {
		t.Fatalf("Warnings() = %v, want 2", warnings)
	}
	if !strings.Contains(warnings[0], `"globPattern"`) || !strings.Contains(warnings[1], `"zzz"`) {
		t.Errorf("Warnings() = %v", warnings)
	}
}

func TestLoadFile_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"bad json", "precache.json", "not json"},
		{"bad templated value", "precache.json", `{"templatedUrls": {"/a": 5}}`},
		{"bad prefix value", "precache.json", `{"modifyUrlPrefix": {"a": ["b"]}}`},
		{"bad yaml", "precache.yaml", "globDirectory: [unclosed"},
		{"yaml prefix not a mapping", "precache.yml", "modifyUrlPrefix: [a, b]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), tt.file)
			if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
				t.Fatal(err)
			}
			_, err := LoadFile(path)
			if !stderrors.Is(err, errors.ErrConfiguration) {
				t.Errorf("LoadFile() error = %v, want configuration error", err)
			}
		})
	}
}

func TestLoad_NotFound(t *testing.T) {
	_, err := Load(t.TempDir())
	pe, ok := errors.As(err)
	if !ok || pe.Code != "E108" {
		t.Errorf("Load() error = %v, want E108", err)
	}
}

func TestLoad_PrefersJSON(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "precache.json"), []byte(`{"globDirectory": "json"}`), 0644)
	os.WriteFile(filepath.Join(dir, "precache.yaml"), []byte("globDirectory: yaml\n"), 0644)

	cfg, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.GlobDirectory != "json" {
		t.Errorf("GlobDirectory = %q, want json", cfg.GlobDirectory)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	for _, name := range []string{"precache.json", "precache.yaml"} {
		t.Run(name, func(t *testing.T) {
			cfg := New()
			cfg.GlobDirectory = "dist"
			cfg.ModifyURLPrefix = PrefixRules{{"z/", ""}, {"a/", "/"}}
			cfg.TemplatedURLs = TemplatedURLs{
				{URL: "/b", Version: "1"},
				{URL: "/a", Patterns: []string{"x/*.html"}},
			}

			path := filepath.Join(t.TempDir(), name)
			if err := cfg.SaveTo(path); err != nil {
				t.Fatalf("SaveTo() error = %v", err)
			}

			loaded, err := LoadFile(path)
			if err != nil {
				t.Fatalf("LoadFile() error = %v", err)
			}
			if !reflect.DeepEqual(loaded.ModifyURLPrefix, cfg.ModifyURLPrefix) {
				t.Errorf("ModifyURLPrefix = %+v", loaded.ModifyURLPrefix)
			}
			if !reflect.DeepEqual(loaded.TemplatedURLs, cfg.TemplatedURLs) {
				t.Errorf("TemplatedURLs = %+v", loaded.TemplatedURLs)
			}
			if len(loaded.Warnings()) != 0 {
				t.Errorf("saved config should load without warnings: %v", loaded.Warnings())
			}
		})
	}
}

func TestPrefixRulesMarshalJSON(t *testing.T) {
	rules := PrefixRules{{"z", "1"}, {"a", "2"}}
	data, err := json.Marshal(rules)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"z":"1","a":"2"}` {
		t.Errorf("MarshalJSON() = %s", data)
	}
}

func TestDestPath(t *testing.T) {
	cfg := New()
	cfg.SWDest = "s3://bucket/sw.js"
	if got := cfg.DestPath(); got != "s3://bucket/sw.js" {
		t.Errorf("DestPath() = %q", got)
	}

	cfg.SWDest = "/abs/sw.js"
	if got := cfg.DestPath(); got != "/abs/sw.js" {
		t.Errorf("DestPath() = %q", got)
	}
}

func TestFindProjectRoot(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "precache.yml"), []byte("globDirectory: dist\n"), 0644); err != nil {
		t.Fatal(err)
	}
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}

	got, err := FindProjectRoot(nested)
	if err != nil {
		t.Fatalf("FindProjectRoot() error = %v", err)
	}
	want, _ := filepath.Abs(root)
	if got != want {
		t.Errorf("FindProjectRoot() = %q, want %q", got, want)
	}
}
