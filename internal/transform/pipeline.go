package transform

import (
	"fmt"
	"sort"
	"strings"

	"github.com/vango-dev/precache/internal/config"
	"github.com/vango-dev/precache/internal/errors"
	"github.com/vango-dev/precache/pkg/manifest"
)

// Stage is a named transform.
type Stage struct {
	Name string
	Fn   manifest.Transform
}

// Pipeline applies stages in order.
type Pipeline struct {
	Stages []Stage
}

// Run applies every stage and validates the manifest after each one.
// Warnings from all stages are concatenated. The first failing stage stops
// the run and is named in the error.
func (p *Pipeline) Run(entries []manifest.Entry) (manifest.Result, error) {
	result := manifest.Result{Manifest: manifest.Clone(entries)}
	for _, stage := range p.Stages {
		out, err := stage.Fn(result.Manifest)
		if err != nil {
			return result, stageError(stage.Name, err)
		}
		if err := manifest.Validate(out.Manifest); err != nil {
			return result, stageError(stage.Name, err)
		}
		result.Manifest = out.Manifest
		result.Warnings = append(result.Warnings, out.Warnings...)
	}
	return result, nil
}

// Names returns the stage names in order.
func (p *Pipeline) Names() []string {
	names := make([]string, len(p.Stages))
	for i, s := range p.Stages {
		names[i] = s.Name
	}
	return names
}

func stageError(name string, err error) error {
	if pe, ok := errors.As(err); ok {
		detail := "Manifest transform " + name + " failed."
		if pe.Detail != "" {
			detail = pe.Detail + " (transform " + name + ")"
		}
		return pe.WithDetail(detail)
	}
	return errors.New("E301").
		WithOption("manifestTransforms").
		WithDetail("Manifest transform " + name + " failed.").
		Wrap(err)
}

// Registry maps transform names usable in manifestTransforms to transforms.
type Registry map[string]manifest.Transform

// DefaultRegistry holds the built-in named transforms.
var DefaultRegistry = Registry{
	"dropSourceMaps": DropSourceMaps,
	"absoluteURLs":   AbsoluteURLs,
	"stripIndexHTML": StripIndexHTML,
}

// Lookup returns the named transform.
func (r Registry) Lookup(name string) (manifest.Transform, error) {
	fn, ok := r[name]
	if !ok {
		return nil, errors.New("E107").
			WithOption("manifestTransforms").
			WithDetail(fmt.Sprintf("%q is not registered. Available: %s.", name, strings.Join(r.Names(), ", ")))
	}
	return fn, nil
}

// Names returns the registered names, sorted.
func (r Registry) Names() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Build creates the standard pipeline for cfg. Stages run in this order:
// modifyUrlPrefix, dontCacheBustUrlsMatching, each name in
// manifestTransforms, then extra.
func Build(cfg *config.Config, registry Registry, extra ...manifest.Transform) (*Pipeline, error) {
	if registry == nil {
		registry = DefaultRegistry
	}
	p := &Pipeline{}

	if len(cfg.ModifyURLPrefix) > 0 {
		p.Stages = append(p.Stages, Stage{Name: "modifyUrlPrefix", Fn: ModifyURLPrefix(cfg.ModifyURLPrefix)})
	}

	re, err := cfg.DontCacheBustRegexp()
	if err != nil {
		return nil, err
	}
	if re != nil {
		p.Stages = append(p.Stages, Stage{Name: "dontCacheBustUrlsMatching", Fn: DontCacheBust(re)})
	}

	for _, name := range cfg.ManifestTransforms {
		fn, err := registry.Lookup(name)
		if err != nil {
			return nil, err
		}
		p.Stages = append(p.Stages, Stage{Name: name, Fn: fn})
	}

	for i, fn := range extra {
		p.Stages = append(p.Stages, Stage{Name: fmt.Sprintf("custom[%d]", i), Fn: fn})
	}
	return p, nil
}
