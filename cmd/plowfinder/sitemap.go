package main

import (
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/mnplowfinder/plowfinder/internal/errors"
	"github.com/mnplowfinder/plowfinder/internal/sitemap"
)

func sitemapCmd(g *globalOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "sitemap",
		Short: "Print sitemap.xml without exporting",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(g)
			if err != nil {
				return err
			}
			reg, err := loadRegistry(cfg)
			if err != nil {
				return err
			}

			urls := sitemap.Build(reg, cfg.SiteURL(), time.Now())

			w := cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return errors.New("E130").Wrap(err)
				}
				defer f.Close()
				w = f
			}
			return writeSitemap(w, urls)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to a file instead of stdout")

	return cmd
}

func writeSitemap(w io.Writer, urls sitemap.URLSet) error {
	if _, err := urls.WriteTo(w); err != nil {
		return errors.New("E130").Wrap(err)
	}
	return nil
}
