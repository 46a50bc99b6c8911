package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/vango-dev/precache/internal/errors"
	"github.com/vango-dev/precache/pkg/manifest"
	"github.com/vango-dev/precache/pkg/precache"
)

func manifestCmd() *cobra.Command {
	var (
		out     string
		compare string
	)

	cmd := &cobra.Command{
		Use:   "manifest",
		Short: "Print the precache manifest",
		Long: `Build the precache manifest and print it as JSON.

Status messages go to stderr when the manifest is printed to stdout.

--compare reads a manifest written by an earlier run and lists the URLs
that were added, changed or removed since. The file may be the same as
--out; it is read before being overwritten.

Examples:
  precache manifest
  precache manifest --out=precache-manifest.json
  precache manifest --out=precache-manifest.json --compare=precache-manifest.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMetrics(runManifest(out, compare))
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "Write the manifest to a file instead of stdout")
	cmd.Flags().StringVar(&compare, "compare", "", "List changes against an earlier manifest file")

	return cmd
}

func runManifest(out, compare string) error {
	if out == "" {
		console = os.Stderr
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	result, err := precache.GetManifest(ctx, cfg, runOptions()...)
	if err != nil {
		return err
	}

	var previous []manifest.PrecacheEntry
	if compare != "" {
		if previous, err = manifest.Load(compare); err != nil {
			return err
		}
	}

	data, err := manifest.Marshal(result.Manifest)
	if err != nil {
		return err
	}
	data = append(data, '\n')

	if out == "" {
		if _, err := os.Stdout.Write(data); err != nil {
			return err
		}
	} else {
		if err := os.WriteFile(out, data, 0644); err != nil {
			return errors.New("E501").WithPath(out).Wrap(err)
		}
		success("Wrote %s (%d entries)", out, result.Count)
	}

	info("%d files, %s", result.Count, errors.FormatBytes(result.Size))
	if compare != "" {
		printChanges(manifest.Diff(previous, result.Manifest))
	}
	return report(result)
}

func printChanges(c manifest.Changes) {
	if c.Empty() {
		info("No changes since the previous manifest")
		return
	}
	for _, url := range c.Added {
		info("+ %s", url)
	}
	for _, url := range c.Changed {
		info("~ %s", url)
	}
	for _, url := range c.Removed {
		info("- %s", url)
	}
	info("%d added, %d changed, %d removed", len(c.Added), len(c.Changed), len(c.Removed))
}
