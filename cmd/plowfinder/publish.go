package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/mnplowfinder/plowfinder/internal/config"
	"github.com/mnplowfinder/plowfinder/internal/errors"
	"github.com/mnplowfinder/plowfinder/internal/publish"
)

type publishOptions struct {
	dir      string
	bucket   string
	prefix   string
	region   string
	endpoint string
	prune    bool
	dryRun   bool
}

func publishCmd(g *globalOptions) *cobra.Command {
	opts := &publishOptions{}

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Upload the exported site to S3",
		Long: `Upload every file under build.output to an S3 bucket.

HTML documents are sent with Cache-Control: no-cache and files under
assets/ as immutable. With --prune, objects under the prefix that the
export no longer contains are deleted.

Credentials are read from AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY and
AWS_SESSION_TOKEN. Use --endpoint for S3-compatible stores.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(g)
			if err != nil {
				return err
			}
			opts.apply(cmd, cfg)
			return runPublish(cmd, cfg, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.dir, "dir", "d", "", "Directory to upload (default build.output)")
	cmd.Flags().StringVarP(&opts.bucket, "bucket", "b", "", "Destination bucket")
	cmd.Flags().StringVar(&opts.prefix, "prefix", "", "Key prefix")
	cmd.Flags().StringVar(&opts.region, "region", "", "Bucket region")
	cmd.Flags().StringVar(&opts.endpoint, "endpoint", "", "S3-compatible endpoint URL")
	cmd.Flags().BoolVar(&opts.prune, "prune", false, "Delete remote objects that were not exported")
	cmd.Flags().BoolVarP(&opts.dryRun, "dry-run", "n", false, "Report changes without writing")

	return cmd
}

func (o *publishOptions) apply(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("bucket") {
		cfg.Publish.Bucket = o.bucket
	}
	if flags.Changed("prefix") {
		cfg.Publish.Prefix = o.prefix
	}
	if flags.Changed("region") {
		cfg.Publish.Region = o.region
	}
	if flags.Changed("endpoint") {
		cfg.Publish.Endpoint = o.endpoint
	}
	if flags.Changed("prune") {
		cfg.Publish.Prune = o.prune
	}
}

func runPublish(cmd *cobra.Command, cfg *config.Config, opts *publishOptions) error {
	if cfg.Publish.Bucket == "" {
		return errors.New("E140").
			WithDetail("No bucket configured").
			WithSuggestion("Set publish.bucket in plowfinder.json or pass --bucket")
	}

	dir := opts.dir
	if dir == "" {
		dir = cfg.OutputPath()
	}
	if _, err := os.Stat(dir); err != nil {
		return errors.New("E141").
			WithDetail(dir + " does not exist").
			WithSuggestion("Run 'plowfinder export' first")
	}

	client := publish.NewClient(publish.ClientConfig{
		Region:   cfg.Publish.Region,
		Endpoint: cfg.Publish.Endpoint,
	})

	publisher := publish.New(client, publish.Options{
		Bucket: cfg.Publish.Bucket,
		Prefix: cfg.Publish.Prefix,
		Prune:  cfg.Publish.Prune,
		DryRun: opts.dryRun,
		Logger: slog.Default(),
		OnProgress: func(action, key string) {
			slog.Debug("publish", "action", action, "key", key)
		},
	})

	target := "s3://" + cfg.Publish.Bucket
	if cfg.Publish.Prefix != "" {
		target += "/" + cfg.Publish.Prefix
	}
	info("Publishing %s to %s", dir, target)

	report, err := publisher.Publish(cmd.Context(), dir)
	if err != nil {
		return err
	}

	verb := "Uploaded"
	if report.DryRun {
		verb = "Would upload"
	}
	success("%s %d files (%s)", verb, len(report.Uploaded), formatBytes(report.Bytes))
	if len(report.Deleted) > 0 {
		verb = "Deleted"
		if report.DryRun {
			verb = "Would delete"
		}
		success("%s %d stale objects", verb, len(report.Deleted))
	}
	info("Done in %s", report.Duration.Round(time.Millisecond))
	return nil
}

// formatBytes formats a byte count as a human-readable string.
func formatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(b)/float64(div), "KMGTPE"[exp])
}
