// Package build runs the precache pipeline.
//
// A Builder drives one configuration through discovery, fingerprinting,
// assembly and manifest transforms, then finishes in one of three modes:
//
//	builder := build.New(cfg, build.Options{})
//
//	result, err := builder.Manifest(ctx)          // manifest only
//	result, err := builder.GenerateSWString(ctx)  // render a service worker
//	result, err := builder.InjectManifest(ctx)    // inject into swSrc
//
// Configuration is validated for the selected mode before any file is read.
// Warnings never fail a run; they are returned on the Result.
//
// # States
//
// A run moves through these states:
//
//	validating → collecting → fingerprinting → assembling → transforming → rendering|injecting → done
//
// Validating covers the configuration checks and has no span or progress
// callback of its own.
//
// A failure in any state stops the run. The returned *RunError records the
// state, the warnings gathered so far, and the underlying coded error.
//
// Each state runs inside an OpenTelemetry span and, when Options.Metrics is
// set, is timed in precache_stage_duration_seconds.
package build
