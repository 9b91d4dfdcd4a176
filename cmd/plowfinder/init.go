package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mnplowfinder/plowfinder/internal/config"
	"github.com/mnplowfinder/plowfinder/internal/errors"
)

func initCmd(g *globalOptions) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [dir]",
		Short: "Write a default plowfinder.json",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			return runInit(dir, force)
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing plowfinder.json")

	return cmd
}

func runInit(dir string, force bool) error {
	path := filepath.Join(dir, config.ConfigFileName)
	if _, err := os.Stat(path); err == nil && !force {
		return errors.Newf(errors.CategoryCLI, "%s already exists", path).
			WithSuggestion("Pass --force to overwrite it")
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.New("E120").Wrap(err)
	}

	cfg := config.New()
	if err := cfg.SaveTo(path); err != nil {
		return err
	}

	success("Wrote %s", path)
	return nil
}
