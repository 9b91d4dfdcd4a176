package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/mnplowfinder/plowfinder/internal/config"
	"github.com/mnplowfinder/plowfinder/internal/errors"
	"github.com/mnplowfinder/plowfinder/internal/export"
	"github.com/mnplowfinder/plowfinder/internal/metrics"
	"github.com/mnplowfinder/plowfinder/internal/registry"
	"github.com/mnplowfinder/plowfinder/internal/route"
)

type exportOptions struct {
	output  string
	shell   string
	assets  string
	siteURL string
	strict  bool
	head    bool
	quiet   bool
}

func exportCmd(g *globalOptions) *cobra.Command {
	opts := &exportOptions{}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the static site",
		Long: `Write one copy of the app shell for every routable path.

The export:
  • Clears the output directory
  • Copies the client bundle (build.assets)
  • Writes static pages, both forms of every city, and providers
  • Writes sitemap.xml, robots.txt, 404.html and routes.json

A provider whose short URL is already taken by a page, a city or an
earlier provider keeps only its canonical /provider/<id>/<slug> URL.
Use --strict to fail the export when that happens.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(g)
			if err != nil {
				return err
			}
			opts.apply(cmd, cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runExport(cmd.Context(), cfg, opts.quiet)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Output directory (default from config)")
	cmd.Flags().StringVar(&opts.shell, "shell", "", "App shell document (default from config)")
	cmd.Flags().StringVar(&opts.assets, "assets", "", "Client bundle directory to copy")
	cmd.Flags().StringVar(&opts.siteURL, "site-url", "", "Absolute site origin for canonical URLs")
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "Fail when a provider loses its short URL")
	cmd.Flags().BoolVar(&opts.head, "rewrite-head", false, "Give each document its own title and canonical link")
	cmd.Flags().BoolVarP(&opts.quiet, "quiet", "q", false, "Only print errors")

	return cmd
}

// apply overrides cfg with the flags that were set.
func (o *exportOptions) apply(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("output") {
		cfg.Build.Output = o.output
	}
	if flags.Changed("shell") {
		cfg.Build.Shell = o.shell
	}
	if flags.Changed("assets") {
		cfg.Build.Assets = o.assets
	}
	if flags.Changed("site-url") {
		cfg.Site.URL = o.siteURL
	}
	if flags.Changed("strict") {
		cfg.Build.StrictCollisions = o.strict
	}
	if flags.Changed("rewrite-head") {
		cfg.Build.RewriteHead = o.head
	}
}

func runExport(ctx context.Context, cfg *config.Config, quiet bool) error {
	if !quiet {
		printBanner()
		fmt.Println()
		info("Exporting to %s", cfg.OutputPath())
		fmt.Println()
	}

	reg, err := loadRegistry(cfg)
	if err != nil {
		return err
	}

	result, err := newExporter(reg, cfg, nil).Export(ctx)
	if !quiet && result != nil && (err == nil || errors.HasCode(err, "E132")) {
		printExportSummary(result)
	}
	if err != nil {
		return err
	}

	if !quiet {
		fmt.Println()
		success("Export complete in %s", result.Duration.Round(time.Millisecond))
		info("Output: %s", result.Output)
		fmt.Println()
	}
	return nil
}

func newExporter(reg *registry.Registry, cfg *config.Config, m *metrics.Metrics) *export.Exporter {
	return export.New(reg, export.Options{
		Output:           cfg.OutputPath(),
		Shell:            cfg.ShellPath(),
		Assets:           cfg.AssetsPath(),
		SiteURL:          cfg.SiteURL(),
		SiteName:         cfg.Site.Name,
		RewriteHead:      cfg.Build.RewriteHead,
		StrictCollisions: cfg.Build.StrictCollisions,
		Logger:           slog.Default(),
		Metrics:          m,
		OnProgress: func(step string) {
			slog.Debug("export", "step", step)
		},
	})
}

func printExportSummary(result *export.Result) {
	counts := result.Counts()
	success("Static pages: %d", counts[route.KindStatic])
	success("City pages:   %d", counts[route.KindCity])
	success("Providers:    %d", counts[route.KindProvider])
	if result.Assets > 0 {
		success("Assets:       %d", result.Assets)
	}
	success("Sitemap URLs: %d", result.SitemapURLs)

	for _, skip := range result.Skipped {
		owner := skip.Owner
		if owner == "" {
			owner = "an existing directory"
		}
		warn("%s (#%d) lost %s to %s; reachable at %s",
			skip.ProviderName, skip.ProviderID, skip.Path, owner, skip.Canonical)
	}
}
