package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mnplowfinder/plowfinder/internal/registry"
	"github.com/mnplowfinder/plowfinder/internal/route"
)

// plannedRoute is one path the export would write.
type plannedRoute struct {
	Path     string     `json:"path"`
	Kind     route.Kind `json:"kind"`
	Resource string     `json:"resource"`
}

// routeTable is the output of the routes command.
type routeTable struct {
	Routes     []plannedRoute `json:"routes"`
	Collisions []collision    `json:"collisions"`
}

type collision struct {
	Slug      string `json:"slug"`
	Provider  string `json:"provider"`
	ID        int    `json:"id"`
	Owner     string `json:"owner"`
	OwnerName string `json:"ownerName,omitempty"`
	Canonical string `json:"canonical"`
}

func routesCmd(g *globalOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "routes",
		Short: "List every routable path and slug collisions",
		Long: `List every path the site answers, in precedence order, as the
classifier resolves it. Providers whose name slug is taken by a page, a
city, an earlier provider or a reserved name are listed as collisions; they
stay reachable at their canonical /provider/<id>/<slug> URL.`,
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

			table := planRoutes(classifier, reg)
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(table)
			}
			printRoutes(cmd.OutOrStdout(), table)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")

	return cmd
}

// planRoutes lists the paths in the same order the export writes them,
// keeping only the ones the classifier resolves back to the same resource.
func planRoutes(classifier *route.Classifier, reg *registry.Registry) routeTable {
	table := routeTable{Routes: []plannedRoute{}, Collisions: []collision{}}
	seen := make(map[string]bool)

	add := func(path string) {
		if seen[path] {
			return
		}
		res := classifier.Classify(path)
		if res.NotFound() {
			return
		}
		seen[path] = true
		table.Routes = append(table.Routes, plannedRoute{Path: path, Kind: res.Kind, Resource: res.Ref()})
	}

	for _, set := range route.Priority {
		switch set {
		case route.SetStatic:
			for _, page := range route.StaticPages() {
				add(page.Path())
			}
		case route.SetCities:
			for _, city := range reg.Cities() {
				add("/" + city.ShortSlug)
				add(city.Path())
			}
		case route.SetProviders:
			for _, p := range reg.Providers() {
				add(p.CanonicalPath())
				s := p.Slug()
				if res := classifier.ClassifySlug(s); s != "" && res.Kind == route.KindProvider && res.Provider.ID == p.ID {
					add("/" + s)
				}
			}
		}
	}

	for _, c := range classifier.Collisions() {
		table.Collisions = append(table.Collisions, collision{
			Slug:      c.Slug,
			Provider:  c.Provider.Name,
			ID:        c.Provider.ID,
			Owner:     c.Owner,
			OwnerName: c.OwnerName,
			Canonical: c.Provider.CanonicalPath(),
		})
	}

	return table
}

func printRoutes(w io.Writer, table routeTable) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PATH\tKIND\tRESOURCE")
	for _, r := range table.Routes {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", r.Path, r.Kind, r.Resource)
	}
	tw.Flush()

	if len(table.Collisions) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%d collision(s):\n", len(table.Collisions))
	for _, c := range table.Collisions {
		owner := c.Owner
		if c.OwnerName != "" {
			owner += fmt.Sprintf(" %q", c.OwnerName)
		}
		fmt.Fprintf(w, "  /%s  %s (#%d) loses to %s; use %s\n",
			c.Slug, c.Provider, c.ID, owner, c.Canonical)
	}
}
