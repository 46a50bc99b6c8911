// Package precache builds service worker precache manifests.
//
// It finds the files of a build directory, fingerprints them, and either
// returns the manifest, renders a complete service worker, or injects the
// manifest into an existing one:
//
//	cfg, err := precache.LoadConfig("precache.json")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	result, err := precache.GenerateSW(ctx, cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, w := range result.Warnings {
//	    log.Println("warning:", w)
//	}
//	fmt.Printf("precached %d files, %d bytes\n", result.Count, result.Size)
//
// Manifest transforms can be passed as plain functions:
//
//	dropMaps := func(entries []precache.Entry) (precache.TransformResult, error) {
//	    ...
//	}
//	result, err := precache.GetManifest(ctx, cfg, precache.WithTransforms(dropMaps))
package precache

import (
	"context"
	"log/slog"

	"github.com/vango-dev/precache/internal/build"
	"github.com/vango-dev/precache/internal/config"
	"github.com/vango-dev/precache/internal/metrics"
	"github.com/vango-dev/precache/internal/output"
	"github.com/vango-dev/precache/pkg/manifest"
)

type (
	// Config is the precache configuration.
	Config = config.Config

	// Entry is a manifest entry.
	Entry = manifest.Entry

	// Transform rewrites a manifest.
	Transform = manifest.Transform

	// TransformResult is what a Transform returns.
	TransformResult = manifest.Result

	// Result is the outcome of a run.
	Result = build.Result

	// RunError is returned when a run fails.
	RunError = build.RunError

	// S3Client uploads s3:// destinations.
	S3Client = output.PutObjectAPI
)

// NewConfig returns a configuration with defaults applied.
func NewConfig() *Config {
	return config.New()
}

// LoadConfig reads a JSON or YAML configuration file.
func LoadConfig(path string) (*Config, error) {
	return config.LoadFile(path)
}

type options struct {
	build    build.Options
	s3Client output.PutObjectAPI
}

// Option configures a run.
type Option func(*options)

// WithTransforms adds manifest transforms that run after the configured ones.
func WithTransforms(transforms ...Transform) Option {
	return func(o *options) {
		o.build.Transforms = append(o.build.Transforms, transforms...)
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.build.Logger = logger
	}
}

// WithMetrics records Prometheus metrics for the run.
func WithMetrics(recorder *metrics.Recorder) Option {
	return func(o *options) {
		o.build.Metrics = recorder
	}
}

// WithS3Client sets the client used for s3:// destinations.
func WithS3Client(client S3Client) Option {
	return func(o *options) {
		o.s3Client = client
	}
}

// WithProgress sets a callback that receives each pipeline state.
func WithProgress(fn func(step string)) Option {
	return func(o *options) {
		o.build.OnProgress = fn
	}
}

func newOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// GetManifest returns the manifest without producing a script.
func GetManifest(ctx context.Context, cfg *Config, opts ...Option) (*Result, error) {
	o := newOptions(opts)
	return build.New(cfg, o.build).Manifest(ctx)
}

// GenerateSWString renders a service worker and returns it without writing.
func GenerateSWString(ctx context.Context, cfg *Config, opts ...Option) (*Result, error) {
	o := newOptions(opts)
	return build.New(cfg, o.build).GenerateSWString(ctx)
}

// GenerateSW renders a service worker and writes it to swDest.
func GenerateSW(ctx context.Context, cfg *Config, opts ...Option) (*Result, error) {
	if err := cfg.ValidateOutput(); err != nil {
		return nil, err
	}
	o := newOptions(opts)
	result, err := build.New(cfg, o.build).GenerateSWString(ctx)
	if err != nil {
		return nil, err
	}
	if err := output.Write(ctx, cfg.DestPath(), []byte(result.Script), o.s3Client); err != nil {
		return nil, err
	}
	return result, nil
}

// InjectManifest injects the manifest into swSrc and writes the result to
// swDest.
func InjectManifest(ctx context.Context, cfg *Config, opts ...Option) (*Result, error) {
	if err := cfg.ValidateOutput(); err != nil {
		return nil, err
	}
	o := newOptions(opts)
	result, err := build.New(cfg, o.build).InjectManifest(ctx)
	if err != nil {
		return nil, err
	}
	if err := output.Write(ctx, cfg.DestPath(), []byte(result.Script), o.s3Client); err != nil {
		return nil, err
	}
	return result, nil
}
