package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/vango-dev/precache/internal/build"
	"github.com/vango-dev/precache/internal/config"
	"github.com/vango-dev/precache/internal/errors"
	"github.com/vango-dev/precache/internal/metrics"
	"github.com/vango-dev/precache/pkg/precache"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// globalFlags are the persistent flags shared by every command.
type globalFlags struct {
	configPath  string
	logLevel    string
	logFormat   string
	metricsFile string
	noColor     bool
	strict      bool
}

var (
	globals globalFlags

	// console receives status messages. Commands that print data to stdout
	// move it to stderr.
	console io.Writer = os.Stdout

	registry = prometheus.NewRegistry()
	recorder = metrics.New(metrics.WithRegistry(registry))
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		reportFailure(os.Stderr, err)
		os.Exit(1)
	}
}

// reportFailure prints the warnings a failed run gathered, then the error.
func reportFailure(w io.Writer, err error) {
	var runErr *build.RunError
	if stderrors.As(err, &runErr) {
		for _, warning := range runErr.Warnings {
			warn("%s", warning)
		}
	}
	errors.Fprint(w, err)
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "precache",
		Short: "Precache manifests and service workers for static sites",
		Long: `Precache fingerprints the files of a build directory and turns them
into a service worker precache manifest.

It can:

  • Print the manifest as JSON
  • Generate a complete service worker from a template
  • Inject the manifest into a service worker you wrote
  • Upload the worker to S3
  • Serve the build with the worker for local testing`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if globals.noColor {
				errors.DisableColors()
			}
			logger, err := newLogger(os.Stderr, globals.logLevel, globals.logFormat)
			if err != nil {
				return err
			}
			slog.SetDefault(logger)
			return nil
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&globals.configPath, "config", "c", "", "Config file (default: precache.json in the nearest parent directory)")
	flags.StringVar(&globals.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	flags.StringVar(&globals.logFormat, "log-format", "text", "Log format (text, json)")
	flags.StringVar(&globals.metricsFile, "metrics-file", "", "Write Prometheus metrics to this file after the run")
	flags.BoolVar(&globals.noColor, "no-color", false, "Disable colored output")
	flags.BoolVar(&globals.strict, "strict", false, "Exit with an error when the run produces warnings")

	rootCmd.AddCommand(
		generateCmd(),
		injectCmd(),
		manifestCmd(),
		serveCmd(),
		initCmd(),
		explainCmd(),
		versionCmd(),
	)

	return rootCmd
}

// newLogger creates the slog logger for the CLI.
func newLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid --log-level %q", level)
	}
	opts := &slog.HandlerOptions{Level: lvl}

	switch strings.ToLower(format) {
	case "text", "":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("invalid --log-format %q (want text or json)", format)
	}
}

// loadConfig loads the --config file or the nearest project config.
func loadConfig() (*config.Config, error) {
	if globals.configPath != "" {
		return config.LoadFile(globals.configPath)
	}
	return config.LoadFromWorkingDir()
}

// signalContext returns a context canceled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// runOptions returns the options shared by every pipeline run.
func runOptions() []precache.Option {
	return []precache.Option{
		precache.WithLogger(slog.Default()),
		precache.WithMetrics(recorder),
		precache.WithProgress(func(step string) {
			info("%s...", step)
		}),
	}
}

// builderOptions returns build options matching runOptions.
func builderOptions() build.Options {
	return build.Options{
		Logger:  slog.Default(),
		Metrics: recorder,
	}
}

// s3Client returns an S3 client when dest is remote.
func s3Client(ctx context.Context, dest string) (precache.S3Client, error) {
	if !config.IsRemote(dest) {
		return nil, nil
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, errors.New("E501").
			WithPath(dest).
			WithSuggestion("Configure AWS credentials in the environment or ~/.aws").
			Wrap(err)
	}
	return s3.NewFromConfig(awsCfg), nil
}

// report prints the run warnings and enforces --strict.
func report(result *build.Result) error {
	for _, w := range result.Warnings {
		warn("%s", w)
	}
	if globals.strict && len(result.Warnings) > 0 {
		return fmt.Errorf("%d warning(s) with --strict", len(result.Warnings))
	}
	return nil
}

// withMetrics writes the metrics file when requested. A run error takes
// precedence over a write error.
func withMetrics(runErr error) error {
	if globals.metricsFile == "" {
		return runErr
	}
	if err := prometheus.WriteToTextfile(globals.metricsFile, registry); err != nil && runErr == nil {
		return errors.New("E501").WithPath(globals.metricsFile).Wrap(err)
	}
	return runErr
}

func paint(code, text string) string {
	if globals.noColor {
		return text
	}
	return "\033[" + code + "m" + text + "\033[0m"
}

// success prints a success message.
func success(format string, args ...any) {
	fmt.Fprintf(console, "%s %s\n", paint("32", "✓"), fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(format string, args ...any) {
	fmt.Fprintf(console, "  %s\n", fmt.Sprintf(format, args...))
}

// warn prints a warning message.
func warn(format string, args ...any) {
	fmt.Fprintf(console, "%s %s\n", paint("33", "⚠"), fmt.Sprintf(format, args...))
}
