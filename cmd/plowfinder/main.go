package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mnplowfinder/plowfinder/internal/config"
	"github.com/mnplowfinder/plowfinder/internal/errors"
	"github.com/mnplowfinder/plowfinder/internal/export"
	"github.com/mnplowfinder/plowfinder/internal/registry"
	"github.com/mnplowfinder/plowfinder/internal/route"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const banner = `
  ┌─┐┬  ┌─┐┬ ┬┌─┐┬┌┐┌┌┬┐┌─┐┬─┐
  ├─┘│  │ ││││├┤ ││││ ││├┤ ├┬┘
  ┴  ┴─┘└─┘└┴┘└  ┴┘└┘─┴┘└─┘┴└─
`

// globalOptions are the persistent root flags.
type globalOptions struct {
	configPath string
	providers  string
	verbose    bool
	noColor    bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		errors.Fprint(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	g := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "plowfinder",
		Short: "Static site generator and server for the MN snow removal directory",
		Long: `plowfinder builds and serves the MN Plow Finder directory.

Every city and provider gets a path in one shared namespace:

  • /about, /partner, /claim-listing    static pages
  • /lake-city, /lake-city-mn-snow-removal    cities
  • /glander-excavating    providers, first listing wins the slug
  • /provider/13/glander-excavating    providers, always unique

The export writes a copy of the app shell at every path so any static
host can serve the site; the server resolves everything else live.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if g.noColor {
				errors.DisableColors()
			}
			setupLogging(cmd.ErrOrStderr(), g.verbose)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "Path to plowfinder.json (default ./plowfinder.json if present)")
	rootCmd.PersistentFlags().StringVar(&g.providers, "providers", "", "Provider data file (overrides data.providers)")
	rootCmd.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&g.noColor, "no-color", false, "Disable colored error output")

	rootCmd.AddCommand(
		initCmd(g),
		exportCmd(g),
		sitemapCmd(g),
		routesCmd(g),
		resolveCmd(g),
		serveCmd(g),
		publishCmd(g),
		versionCmd(),
	)

	return rootCmd
}

func setupLogging(w io.Writer, verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
}

// loadConfig loads --config, or plowfinder.json from the working
// directory, falling back to defaults when that file does not exist.
func loadConfig(g *globalOptions) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if g.configPath != "" {
		cfg, err = config.LoadFile(g.configPath)
	} else {
		cfg, err = config.LoadFromWorkingDir()
	}
	if err != nil {
		return nil, err
	}
	if g.providers != "" {
		path, err := filepath.Abs(g.providers)
		if err != nil {
			return nil, errors.New("E120").Wrap(err)
		}
		cfg.Data.Providers = path
	}
	return cfg, nil
}

func loadRegistry(cfg *config.Config) (*registry.Registry, error) {
	return registry.Load(cfg.ProvidersPath(), registry.DefaultCities())
}

// reservedNames lists the asset names an export withholds from provider
// slugs. A missing assets directory reserves nothing.
func reservedNames(cfg *config.Config) ([]string, error) {
	assets := cfg.AssetsPath()
	if assets == "" {
		return nil, nil
	}
	names, err := export.ReservedNames(assets)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("listing %s: %w", assets, err)
	}
	return names, nil
}

// newClassifier returns a classifier that agrees with what an export of
// reg would write.
func newClassifier(cfg *config.Config, reg *registry.Registry) (*route.Classifier, error) {
	reserved, err := reservedNames(cfg)
	if err != nil {
		return nil, err
	}
	return route.NewClassifier(reg, route.WithReserved(reserved...)), nil
}

// signalContext returns a context canceled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case <-sigCh:
			fmt.Println("\n  Shutting down...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return ctx, cancel
}

// printBanner prints the ASCII art banner.
func printBanner() {
	fmt.Print(banner)
}

// success prints a success message.
func success(format string, args ...any) {
	fmt.Printf("\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(format string, args ...any) {
	fmt.Printf("  %s\n", fmt.Sprintf(format, args...))
}

// warn prints a warning message.
func warn(format string, args ...any) {
	fmt.Printf("\033[33m⚠\033[0m %s\n", fmt.Sprintf(format, args...))
}
