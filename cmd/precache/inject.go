package main

import (
	"github.com/spf13/cobra"

	"github.com/vango-dev/precache/internal/errors"
	"github.com/vango-dev/precache/pkg/precache"
)

func injectCmd() *cobra.Command {
	var (
		src  string
		dest string
	)

	cmd := &cobra.Command{
		Use:   "inject",
		Short: "Inject the manifest into an existing service worker",
		Long: `Inject the precache manifest into a service worker you wrote.

swSrc must contain exactly one injection point, by default an empty
array passed to precacheAndRoute:

  workbox.precaching.precacheAndRoute([]);

The result is written to swDest. swSrc is never modified.

Examples:
  precache inject
  precache inject --src=src/sw.js --dest=public/sw.js`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMetrics(runInject(src, dest))
		},
	}

	cmd.Flags().StringVarP(&src, "src", "s", "", "Source service worker (default from swSrc)")
	cmd.Flags().StringVarP(&dest, "dest", "d", "", "Output path or s3:// URL (default from swDest)")

	return cmd
}

func runInject(src, dest string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if src != "" {
		cfg.SWSrc = src
	}
	if dest != "" {
		cfg.SWDest = dest
	}

	ctx, cancel := signalContext()
	defer cancel()

	client, err := s3Client(ctx, cfg.DestPath())
	if err != nil {
		return err
	}

	opts := append(runOptions(), precache.WithS3Client(client))
	result, err := precache.InjectManifest(ctx, cfg, opts...)
	if err != nil {
		return err
	}

	success("Injected %d files (%s) into %s", result.Count, errors.FormatBytes(result.Size), cfg.SWDest)
	return report(result)
}
