package precache

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vango-dev/precache/internal/errors"
)

func newProject(t *testing.T) *Config {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"public/index.html": "<html></html>",
		"public/app.js":     "console.log(1)",
		"public/app.js.map": "{}",
		"src/sw.js":         "importScripts('x.js');\nworkbox.precaching.precacheAndRoute([]);\n",
	}
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	cfg := NewConfig()
	cfg.GlobDirectory = filepath.Join(dir, "public")
	cfg.GlobPatterns = []string{"**/*.{js,html,map}"}
	cfg.GlobIgnores = []string{}
	cfg.SWDest = filepath.Join(dir, "public", "sw.js")
	return cfg
}

func urls(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.URL
	}
	return out
}

func TestGetManifestWithTransforms(t *testing.T) {
	cfg := newProject(t)
	dropMaps := func(entries []Entry) (TransformResult, error) {
		var kept []Entry
		for _, e := range entries {
			if !strings.HasSuffix(e.URL, ".map") {
				kept = append(kept, e)
			}
		}
		return TransformResult{Manifest: kept, Warnings: []string{"dropped maps"}}, nil
	}

	var steps []string
	result, err := GetManifest(context.Background(), cfg,
		WithTransforms(dropMaps),
		WithProgress(func(step string) { steps = append(steps, step) }))
	if err != nil {
		t.Fatal(err)
	}

	got := strings.Join(urls(result.Manifest), ",")
	if got != "app.js,index.html" {
		t.Errorf("urls = %s", got)
	}
	if len(result.Warnings) != 1 || result.Warnings[0] != "dropped maps" {
		t.Errorf("warnings = %v", result.Warnings)
	}
	if result.Script != "" {
		t.Error("manifest run should not produce a script")
	}
	if len(steps) == 0 {
		t.Error("expected progress callbacks")
	}
}

func TestGenerateSWWritesDest(t *testing.T) {
	cfg := newProject(t)

	result, err := GenerateSW(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(cfg.SWDest)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != result.Script {
		t.Error("written file differs from result script")
	}
	if !strings.Contains(result.Script, `"url": "app.js"`) {
		t.Errorf("script missing manifest:\n%s", result.Script)
	}

	// A second run must not precache the worker it just wrote.
	again, err := GenerateSW(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	if again.Script != result.Script {
		t.Error("output changed between runs")
	}
}

func TestGenerateSWString(t *testing.T) {
	cfg := newProject(t)
	if _, err := GenerateSWString(context.Background(), cfg); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(cfg.SWDest); !os.IsNotExist(err) {
		t.Error("GenerateSWString should not write swDest")
	}
}

func TestGenerateSWRequiresDest(t *testing.T) {
	cfg := newProject(t)
	cfg.SWDest = ""
	_, err := GenerateSW(context.Background(), cfg)
	if !stderrors.Is(err, errors.ErrConfiguration) {
		t.Fatalf("err = %v, want configuration error", err)
	}
}

func TestInjectManifest(t *testing.T) {
	cfg := newProject(t)
	cfg.SWSrc = filepath.Join(filepath.Dir(cfg.GlobDirectory), "src", "sw.js")

	result, err := InjectManifest(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(result.Script, "importScripts('x.js');\nworkbox.precaching.precacheAndRoute([") {
		t.Errorf("script = %s", result.Script)
	}
	data, err := os.ReadFile(cfg.SWDest)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != result.Script {
		t.Error("written file differs from result script")
	}
}

func TestInjectManifestRunError(t *testing.T) {
	cfg := newProject(t)
	cfg.SWSrc = filepath.Join(t.TempDir(), "missing.js")

	_, err := InjectManifest(context.Background(), cfg)
	var runErr *RunError
	if !stderrors.As(err, &runErr) {
		t.Fatalf("err = %T, want *RunError", err)
	}
	if !stderrors.Is(err, errors.ErrIO) {
		t.Errorf("err = %v, want io error", err)
	}
	if _, statErr := os.Stat(cfg.SWDest); !os.IsNotExist(statErr) {
		t.Error("nothing should be written on failure")
	}
}
