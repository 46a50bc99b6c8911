package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vango-dev/precache/internal/errors"
)

func explainCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "explain [code]",
		Short: "Describe an error code",
		Long: `Describe an error code, or list all codes when none is given.

Examples:
  precache explain
  precache explain E400`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				listCodes()
				return nil
			}
			return explainCode(args[0])
		},
	}

	return cmd
}

func listCodes() {
	codes := errors.GetAllCodes()
	sort.Strings(codes)
	for _, code := range codes {
		t, _ := errors.GetTemplate(code)
		fmt.Fprintf(console, "  %s  %-13s %s\n", code, t.Category, t.Message)
	}
}

func explainCode(code string) error {
	code = strings.ToUpper(code)
	t, ok := errors.GetTemplate(code)
	if !ok {
		return fmt.Errorf("unknown error code %q", code)
	}
	fmt.Fprintf(console, "%s %s (%s)\n\n", paint("1", code), t.Message, t.Category)
	if t.Detail != "" {
		fmt.Fprintf(console, "  %s\n", t.Detail)
	}
	return nil
}
