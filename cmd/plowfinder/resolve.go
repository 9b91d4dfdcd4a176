package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mnplowfinder/plowfinder/internal/fallback"
	"github.com/mnplowfinder/plowfinder/internal/route"
)

// resolved is one line of resolve output.
type resolved struct {
	Path     string     `json:"path"`
	Kind     route.Kind `json:"kind"`
	Resource string     `json:"resource"`
	fallback.View
}

func resolveCmd(g *globalOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "resolve <path>...",
		Short: "Show what each path resolves to",
		Example: `  plowfinder resolve /lake-city /glander-excavating
  plowfinder resolve --json /provider/14`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(g)
			if err != nil {
				return err
			}
			reg, err := loadRegistry(cfg)
			if err != nil {
				return err
			}

			classifier, err := newClassifier(cfg, reg)
			if err != nil {
				return err
			}
			resolver := fallback.New(classifier, cfg.SiteURL()).WithSiteName(cfg.Site.Name)

			out := make([]resolved, 0, len(args))
			for _, path := range args {
				res := classifier.Classify(path)
				out = append(out, resolved{
					Path:     path,
					Kind:     res.Kind,
					Resource: res.Ref(),
					View:     resolver.ViewFor(res),
				})
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			}
			printResolved(cmd.OutOrStdout(), out)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")

	return cmd
}

func printResolved(w io.Writer, out []resolved) {
	for _, r := range out {
		fmt.Fprintf(w, "%s\n", r.Path)
		fmt.Fprintf(w, "  resource:  %s\n", r.Resource)
		fmt.Fprintf(w, "  status:    %d\n", r.Status)
		fmt.Fprintf(w, "  title:     %s\n", r.Title)
		if r.Canonical != "" {
			fmt.Fprintf(w, "  canonical: %s\n", r.Canonical)
		}
	}
}
