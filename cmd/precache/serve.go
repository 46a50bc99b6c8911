package main

import (
	"context"
	"path"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/vango-dev/precache/internal/build"
	"github.com/vango-dev/precache/internal/config"
	"github.com/vango-dev/precache/internal/preview"
)

func serveCmd() *cobra.Command {
	var (
		addr  string
		dir   string
		watch bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the build output with its service worker",
		Long: `Start a local server for testing the service worker.

The build directory is served at /. The worker is rebuilt on every
request, so changes to the build output show up on reload. When swSrc
is set the manifest is injected into it, otherwise a worker is generated.

With --watch, pages reload after the build directory, swSrc, swTemplate
or the config file changes.

Routes:
  /sw.js                    the service worker (path taken from swDest)
  /precache-manifest.json   the manifest as JSON
  /metrics                  Prometheus metrics

Examples:
  precache serve
  precache serve --addr=:3000
  precache serve --watch`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(addr, dir, watch)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "localhost:8080", "Listen address")
	cmd.Flags().StringVar(&dir, "dir", "", "Directory to serve (default from globDirectory)")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Reload pages when files change")

	return cmd
}

func runServe(addr, dir string, watch bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if dir == "" {
		dir = cfg.GlobPath()
	}

	source := func(ctx context.Context) (*build.Result, error) {
		builder := build.New(cfg, builderOptions())
		if cfg.SWSrc != "" {
			return builder.InjectManifest(ctx)
		}
		return builder.GenerateSWString(ctx)
	}

	server := preview.New(preview.Config{
		Address:     addr,
		Dir:         dir,
		WorkerPath:  workerPath(cfg),
		Gatherer:    registry,
		Watch:       watch,
		WatchPaths:  watchPaths(cfg, dir),
		WatchIgnore: cfg.GlobIgnores,
	}, source, nil)

	ctx, cancel := signalContext()
	defer cancel()

	success("Serving %s", dir)
	info("http://%s", server.Address())
	info("Press Ctrl+C to stop")

	return server.Run(ctx)
}

// workerPath is the URL path the worker is served at: the file name of
// swDest, or /sw.js.
func workerPath(cfg *config.Config) string {
	switch {
	case cfg.SWDest == "":
		return "/sw.js"
	case config.IsRemote(cfg.SWDest):
		return "/" + path.Base(cfg.SWDest)
	default:
		return "/" + filepath.Base(cfg.SWDest)
	}
}

// watchPaths lists the inputs of a build: the served directory and the
// configured source files.
func watchPaths(cfg *config.Config, dir string) []string {
	paths := []string{dir}
	for _, p := range []string{cfg.SourcePath(), cfg.TemplatePath(), cfg.Path()} {
		if p != "" {
			paths = append(paths, p)
		}
	}
	return paths
}
