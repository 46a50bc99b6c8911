package main

import (
	"github.com/spf13/cobra"

	"github.com/vango-dev/precache/internal/errors"
	"github.com/vango-dev/precache/pkg/precache"
)

func generateCmd() *cobra.Command {
	var (
		dest     string
		template string
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a service worker",
		Long: `Generate a complete service worker that precaches the build output.

The worker is rendered from the built-in template, or from swTemplate,
and written to swDest. swDest may be a file path or an s3://bucket/key URL.

Examples:
  precache generate
  precache generate --dest=public/sw.js
  precache generate --dest=s3://my-site/sw.js`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMetrics(runGenerate(dest, template))
		},
	}

	cmd.Flags().StringVarP(&dest, "dest", "d", "", "Output path or s3:// URL (default from swDest)")
	cmd.Flags().StringVar(&template, "template", "", "Service worker template (default from swTemplate)")

	return cmd
}

func runGenerate(dest, template string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if dest != "" {
		cfg.SWDest = dest
	}
	if template != "" {
		cfg.SWTemplate = template
	}

	ctx, cancel := signalContext()
	defer cancel()

	client, err := s3Client(ctx, cfg.DestPath())
	if err != nil {
		return err
	}

	opts := append(runOptions(), precache.WithS3Client(client))
	result, err := precache.GenerateSW(ctx, cfg, opts...)
	if err != nil {
		return err
	}

	success("Wrote %s (%d files, %s)", cfg.SWDest, result.Count, errors.FormatBytes(result.Size))
	return report(result)
}
