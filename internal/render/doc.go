// Package render turns a finished manifest into service worker source.
//
// Generate mode executes a text/template, by default the embedded
// templates/sw.js.tmpl, with a Data value built from configuration:
//
//	data, err := render.NewData(cfg, entries)
//	r, err := render.NewRenderer()
//	script, err := r.Render(data)
//
// Inject mode replaces the single injection point of an existing worker with
// the manifest literal and leaves every other byte untouched:
//
//	out, err := render.Inject(source, entries, render.DefaultInjectionPoint)
//
// Both modes serialize the manifest with ManifestLiteral.
package render
