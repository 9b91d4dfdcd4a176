package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mnplowfinder/plowfinder/internal/config"
	"github.com/mnplowfinder/plowfinder/internal/dev"
	"github.com/mnplowfinder/plowfinder/internal/metrics"
	"github.com/mnplowfinder/plowfinder/internal/registry"
	"github.com/mnplowfinder/plowfinder/internal/server"
)

type serveOptions struct {
	host      string
	port      int
	hotReload bool
	export    bool
}

func serveCmd(g *globalOptions) *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the site with live path resolution",
		Long: `Serve the exported site and resolve every other path live.

Files under build.output are served as they are. Any other path is
classified against the provider data and answered with the app shell,
with status 404 when nothing matches.

With --hot-reload the provider file is watched. Each change is loaded,
optionally re-exported (--export), swapped in without dropping requests,
and pushed to connected browsers. A broken file keeps the previous data
live and shows the error in the browser.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(g)
			if err != nil {
				return err
			}
			opts.apply(cmd, cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runServe(cfg, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.host, "host", "H", config.DefaultHost, "Host to bind to")
	cmd.Flags().IntVarP(&opts.port, "port", "p", config.DefaultPort, "Port to listen on")
	cmd.Flags().BoolVar(&opts.hotReload, "hot-reload", true, "Watch provider data and reload browsers")
	cmd.Flags().BoolVar(&opts.export, "export", false, "Export before serving and after every reload")

	return cmd
}

func (o *serveOptions) apply(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("host") {
		cfg.Serve.Host = o.host
	}
	if flags.Changed("port") {
		cfg.Serve.Port = o.port
	}
	if flags.Changed("hot-reload") {
		cfg.Serve.HotReload = o.hotReload
	}
}

func runServe(cfg *config.Config, opts *serveOptions) error {
	ctx, cancel := signalContext()
	defer cancel()

	logger := slog.Default()
	m := metrics.New()

	reg, err := loadRegistry(cfg)
	if err != nil {
		return err
	}

	exportSite := func(ctx context.Context, reg *registry.Registry) error {
		_, err := newExporter(reg, cfg, m).Export(ctx)
		return err
	}
	if opts.export {
		if err := exportSite(ctx, reg); err != nil {
			return err
		}
	}

	reserved, err := reservedNames(cfg)
	if err != nil {
		return err
	}

	var hub *dev.Hub
	if cfg.Serve.HotReload {
		hub = dev.NewHub(logger)
	}

	root := cfg.OutputPath()
	if _, err := os.Stat(root); err != nil {
		logger.Warn("output directory missing; serving live resolution only", "output", root)
		root = ""
	}

	srv, err := server.New(server.Options{
		Address:  cfg.Address(),
		Registry: reg,
		SiteURL:  cfg.SiteURL(),
		SiteName: cfg.Site.Name,
		Root:     root,
		Reserved: reserved,
		Shell:    cfg.ShellPath(),
		Hub:      hub,
		Logger:   logger,
		Metrics:  m,
	})
	if err != nil {
		return err
	}

	if hub != nil {
		reloadConfig := dev.ReloaderConfig{
			Load:    func() (*registry.Registry, error) { return loadRegistry(cfg) },
			Apply:   srv.Swap,
			Hub:     hub,
			Metrics: m,
			Logger:  logger,
		}
		if opts.export {
			reloadConfig.Export = exportSite
		}
		reloader := dev.NewReloader(reloadConfig)

		watcher, err := dev.NewWatcher(cfg.ProvidersPath(), func(string) {
			_ = reloader.Reload(ctx)
		}, dev.WithLogger(logger))
		if err != nil {
			return err
		}
		if err := watcher.Start(ctx); err != nil {
			return err
		}
		defer watcher.Stop()
	}

	printBanner()
	fmt.Println()
	success("Serving %s", cfg.SiteURL())
	info("Local:     http://%s", displayAddress(cfg))
	info("Data:      %s", cfg.ProvidersPath())
	if root != "" {
		info("Static:    %s", root)
	}
	if hub != nil {
		info("Reload:    watching provider data")
	}
	fmt.Println()

	return srv.ListenAndServe(ctx)
}

func displayAddress(cfg *config.Config) string {
	host := cfg.Serve.Host
	if host == "" || host == "0.0.0.0" {
		host = "localhost"
	}
	return host + ":" + strconv.Itoa(cfg.Serve.Port)
}
