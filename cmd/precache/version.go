package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/vango-dev/precache/internal/render"
)

func versionCmd() *cobra.Command {
	var short bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  `Print version, commit, and build information for the precache CLI.`,
		Run: func(cmd *cobra.Command, args []string) {
			if short {
				fmt.Fprintln(console, version)
				return
			}

			fmt.Fprintln(console)
			fmt.Fprintf(console, "  Version:    %s\n", version)
			fmt.Fprintf(console, "  Commit:     %s\n", commit)
			fmt.Fprintf(console, "  Built:      %s\n", date)
			fmt.Fprintf(console, "  Workbox:    %s\n", render.WorkboxVersion)
			fmt.Fprintf(console, "  Go version: %s\n", runtime.Version())
			fmt.Fprintf(console, "  OS/Arch:    %s/%s\n", runtime.GOOS, runtime.GOARCH)
			fmt.Fprintln(console)
		},
	}

	cmd.Flags().BoolVarP(&short, "short", "s", false, "Print only version number")

	return cmd
}
