package build

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/precache/internal/collect"
	"github.com/vango-dev/precache/internal/config"
	"github.com/vango-dev/precache/internal/errors"
	"github.com/vango-dev/precache/internal/metrics"
	"github.com/vango-dev/precache/internal/render"
	"github.com/vango-dev/precache/internal/transform"
	"github.com/vango-dev/precache/pkg/manifest"
)

// TracerName is the OpenTelemetry tracer used for pipeline spans.
const TracerName = "precache"

// Result contains the output of a run.
type Result struct {
	// Script is the generated or injected service worker. Empty in
	// manifest-only runs.
	Script string

	// Manifest is the final, transformed manifest.
	Manifest []manifest.Entry

	// Count is the number of manifest entries.
	Count int

	// Size is the total size of the file-backed entries in bytes.
	Size int64

	// Warnings are the non-fatal problems found during the run.
	Warnings []string

	// Duration is how long the run took.
	Duration time.Duration

	// Stage is the final state, StateDone for a successful run.
	Stage State
}

// Options configures the builder.
type Options struct {
	// Transforms run after the configured transforms, in order.
	Transforms []manifest.Transform

	// Registry resolves manifestTransforms names
	// (default: transform.DefaultRegistry).
	Registry transform.Registry

	// Concurrency bounds parallel hashing (default: GOMAXPROCS).
	Concurrency int

	// FS overrides the file system rooted at the glob directory.
	FS fs.FS

	// Logger receives debug and warning logs (default: slog.Default()).
	Logger *slog.Logger

	// Metrics records run metrics when set.
	Metrics *metrics.Recorder

	// Tracer overrides the tracer from the global provider.
	Tracer trace.Tracer

	// OnProgress is called with progress updates.
	OnProgress func(step string)
}

// Builder runs the precache pipeline for one configuration.
type Builder struct {
	config    *config.Config
	options   Options
	collector *collect.Collector
	logger    *slog.Logger
	tracer    trace.Tracer
}

// New creates a new builder.
func New(cfg *config.Config, options Options) *Builder {
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	tracer := options.Tracer
	if tracer == nil {
		tracer = otel.Tracer(TracerName)
	}
	return &Builder{
		config:    cfg,
		options:   options,
		collector: collect.New(),
		logger:    logger,
		tracer:    tracer,
	}
}

// Manifest builds the manifest without producing a script.
func (b *Builder) Manifest(ctx context.Context) (*Result, error) {
	return b.run(ctx, config.ModeManifest, nil)
}

// GenerateSWString builds the manifest and renders a service worker from the
// configured template.
func (b *Builder) GenerateSWString(ctx context.Context) (*Result, error) {
	return b.run(ctx, config.ModeGenerate, func(ctx context.Context, r *run) error {
		return r.step(ctx, StateRendering, func(ctx context.Context) error {
			renderer, err := b.renderer()
			if err != nil {
				return err
			}
			data, err := render.NewData(b.config, r.result.Manifest)
			if err != nil {
				return err
			}
			r.result.Script, err = renderer.Render(data)
			return err
		})
	})
}

// InjectManifest builds the manifest and injects it into swSrc.
func (b *Builder) InjectManifest(ctx context.Context) (*Result, error) {
	return b.run(ctx, config.ModeInject, func(ctx context.Context, r *run) error {
		return r.step(ctx, StateInjecting, func(ctx context.Context) error {
			re, err := b.config.InjectionRegexp()
			if err != nil {
				return err
			}
			path := b.config.SourcePath()
			source, err := os.ReadFile(path)
			if err != nil {
				return errors.New("E500").WithPath(path).WithOption("swSrc").Wrap(err)
			}
			r.result.Script, err = render.Inject(string(source), r.result.Manifest, re)
			if pe, ok := errors.As(err); ok && pe.Subject.Path == "" {
				pe.WithPath(path)
			}
			return err
		})
	})
}

func (b *Builder) renderer() (*render.Renderer, error) {
	if b.config.SWTemplate != "" {
		return render.LoadTemplate(b.config.TemplatePath())
	}
	return render.NewRenderer()
}

// run is the state of one pipeline run.
type run struct {
	b      *Builder
	mode   config.Mode
	state  State
	result *Result
}

func (b *Builder) run(ctx context.Context, mode config.Mode, finish func(context.Context, *run) error) (*Result, error) {
	start := time.Now()
	r := &run{
		b:      b,
		mode:   mode,
		state:  StateValidating,
		result: &Result{},
	}
	r.warn(b.config.Warnings()...)

	ctx, span := b.tracer.Start(ctx, "precache."+mode.String(),
		trace.WithAttributes(
			attribute.String("precache.mode", mode.String()),
			attribute.String("precache.glob_directory", b.config.GlobDirectory),
		))
	defer span.End()

	err := r.manifest(ctx)
	if err == nil && finish != nil {
		err = finish(ctx, r)
	}

	r.result.Count, r.result.Size = manifest.Totals(r.result.Manifest)
	r.result.Duration = time.Since(start)
	b.options.Metrics.RecordRun(mode.String(), err, r.result.Count, r.result.Size, len(r.result.Warnings))
	span.SetAttributes(
		attribute.Int("precache.entries", r.result.Count),
		attribute.Int("precache.warnings", len(r.result.Warnings)),
	)

	if err != nil {
		failed := r.state
		r.state = StateError
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		b.logger.Debug("precache run failed", "mode", mode.String(), "state", failed.String(), "error", err)
		return nil, &RunError{State: failed, Warnings: r.result.Warnings, Err: err}
	}

	r.state = StateDone
	r.result.Stage = StateDone
	b.logger.Debug("precache run complete",
		"mode", mode.String(),
		"entries", r.result.Count,
		"bytes", r.result.Size,
		"warnings", len(r.result.Warnings),
		"duration", r.result.Duration)
	return r.result, nil
}

// manifest runs the stages shared by every mode.
func (r *run) manifest(ctx context.Context) error {
	b := r.b
	cfg := b.config

	if err := cfg.Validate(r.mode); err != nil {
		return err
	}
	hasher, err := collect.HasherFor(cfg.HashAlgorithm)
	if err != nil {
		return err
	}
	pipeline, err := transform.Build(cfg, b.options.Registry, b.options.Transforms...)
	if err != nil {
		return err
	}

	var col *collect.Collection
	err = r.step(ctx, StateCollecting, func(ctx context.Context) error {
		var err error
		var exclude []string
		if cfg.SWDest != "" && !config.IsRemote(cfg.SWDest) {
			exclude = append(exclude, cfg.DestPath())
		}
		col, err = b.collector.Collect(ctx, collect.Options{
			Dir:             cfg.GlobPath(),
			FS:              b.options.FS,
			Patterns:        cfg.GlobPatterns,
			Ignores:         cfg.GlobIgnores,
			MaximumFileSize: cfg.MaximumFileSizeToCacheInBytes,
			Follow:          cfg.Follow(),
			Strict:          cfg.Strict(),
			Exclude:         exclude,
		})
		if err != nil {
			return err
		}
		r.warn(col.Warnings...)
		trace.SpanFromContext(ctx).SetAttributes(attribute.Int("precache.matches", len(col.Matches)))
		return nil
	})
	if err != nil {
		return err
	}

	var files, templated []manifest.Entry
	err = r.step(ctx, StateFingerprinting, func(ctx context.Context) error {
		var err error
		files, err = collect.Fingerprint(ctx, col.FS, col.Matches, hasher, b.options.Concurrency)
		if err != nil {
			return err
		}
		b.options.Metrics.AddFilesHashed(len(files))

		templated, err = b.collector.ResolveTemplated(ctx, collect.TemplatedOptions{
			Dir:     cfg.GlobPath(),
			FS:      b.options.FS,
			Ignores: cfg.GlobIgnores,
			Follow:  cfg.Follow(),
			Strict:  cfg.Strict(),
		}, cfg.TemplatedURLs, hasher)
		return err
	})
	if err != nil {
		return err
	}

	var assembled []manifest.Entry
	err = r.step(ctx, StateAssembling, func(ctx context.Context) error {
		var err error
		assembled, err = manifest.Assemble(files, templated)
		return err
	})
	if err != nil {
		return err
	}

	return r.step(ctx, StateTransforming, func(ctx context.Context) error {
		trace.SpanFromContext(ctx).SetAttributes(attribute.StringSlice("precache.transforms", pipeline.Names()))
		res, err := pipeline.Run(assembled)
		if err != nil {
			return err
		}
		r.warn(res.Warnings...)
		r.result.Manifest = res.Manifest
		return nil
	})
}

// step moves the run to state and runs fn inside a span.
func (r *run) step(ctx context.Context, state State, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.state = state
	r.b.progress(state.String())

	ctx, span := r.b.tracer.Start(ctx, "precache."+state.String())
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)

	r.b.options.Metrics.ObserveStage(state.String(), elapsed)
	span.SetAttributes(attribute.Int("precache.warnings", len(r.result.Warnings)))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	r.b.logger.Debug("precache stage complete", "stage", state.String(), "duration", elapsed)
	return nil
}

func (r *run) warn(warnings ...string) {
	for _, w := range warnings {
		r.b.logger.Warn(w)
	}
	r.result.Warnings = append(r.result.Warnings, warnings...)
}

// progress reports build progress.
func (b *Builder) progress(step string) {
	if b.options.OnProgress != nil {
		b.options.OnProgress(step)
	}
}
