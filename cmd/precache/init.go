package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/vango-dev/precache/internal/config"
)

func initCmd() *cobra.Command {
	var (
		format string
		dir    string
		force  bool
	)

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Create a precache config file",
		Long: `Create precache.json (or precache.yaml) with the default options.

The config assumes the build output lives in public/ and writes the
worker to public/sw.js. Edit it to match your project.

Examples:
  precache init
  precache init site --format=yaml`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				dir = args[0]
			}
			return runInit(dir, format, force)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "json", "Config format (json, yaml)")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config file")

	return cmd
}

func runInit(dir, format string, force bool) error {
	if dir == "" {
		dir = "."
	}

	var name string
	switch config.Format(format) {
	case config.FormatJSON:
		name = "precache.json"
	case config.FormatYAML:
		name = "precache.yaml"
	default:
		return fmt.Errorf("invalid --format %q (want json or yaml)", format)
	}

	if config.Exists(dir) && !force {
		return fmt.Errorf("a precache config already exists in %s (use --force to overwrite)", dir)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	path := filepath.Join(dir, name)
	if err := defaultConfig().SaveTo(path); err != nil {
		return err
	}

	success("Created %s", path)
	info("Run 'precache generate' to build public/sw.js")
	return nil
}

// defaultConfig is the config written by init.
func defaultConfig() *config.Config {
	cfg := config.New()
	cfg.GlobDirectory = "public"
	cfg.SWDest = "public/sw.js"
	return cfg
}
