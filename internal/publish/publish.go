// Package publish uploads an exported site to an S3-compatible bucket.
package publish

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"mime"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/mnplowfinder/plowfinder/internal/errors"
	"github.com/mnplowfinder/plowfinder/internal/metrics"
)

// Client is the subset of *s3.Client the publisher uses.
type Client interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Options configures a publish.
type Options struct {
	// Bucket is the destination bucket.
	Bucket string

	// Prefix is prepended to every key ("site" puts index.html at
	// site/index.html). Empty publishes at the bucket root.
	Prefix string

	// Prune deletes keys under Prefix that have no local file.
	Prune bool

	// DryRun reports what would change without calling the bucket's
	// write operations.
	DryRun bool

	Logger  *slog.Logger
	Metrics *metrics.Metrics

	// OnProgress is called for each uploaded or deleted key.
	OnProgress func(action, key string)
}

// Report describes a completed publish.
type Report struct {
	Uploaded []string
	Deleted  []string
	Bytes    int64
	DryRun   bool
	Duration time.Duration
}

// Publisher uploads export trees.
type Publisher struct {
	client  Client
	options Options
	logger  *slog.Logger
}

// New creates a publisher.
func New(client Client, options Options) *Publisher {
	options.Prefix = strings.Trim(options.Prefix, "/")

	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		client:  client,
		options: options,
		logger:  logger.With("component", "publish", "bucket", options.Bucket),
	}
}

type localFile struct {
	path string
	key  string
	size int64
}

// Publish uploads every file under dir, then prunes stale keys if asked.
func (p *Publisher) Publish(ctx context.Context, dir string) (*Report, error) {
	start := time.Now()
	report := &Report{DryRun: p.options.DryRun}

	if p.options.Bucket == "" {
		return nil, errors.New("E140").
			WithDetail("No bucket configured").
			WithSuggestion("Set publish.bucket in plowfinder.json or pass --bucket")
	}

	files, err := p.scan(dir)
	if err != nil {
		return nil, err
	}

	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if err := p.upload(ctx, f); err != nil {
			return report, errors.New("E140").
				WithDetail(fmt.Sprintf("Could not upload %s", f.key)).
				Wrap(err)
		}
		report.Uploaded = append(report.Uploaded, f.key)
		report.Bytes += f.size
		p.progress("upload", f.key)
	}
	if !p.options.DryRun {
		p.options.Metrics.Published("upload", len(report.Uploaded))
	}

	if p.options.Prune {
		deleted, err := p.prune(ctx, files)
		report.Deleted = deleted
		if err != nil {
			return report, err
		}
		if !p.options.DryRun {
			p.options.Metrics.Published("delete", len(deleted))
		}
	}

	report.Duration = time.Since(start)
	p.logger.Info("publish complete",
		"uploaded", len(report.Uploaded),
		"deleted", len(report.Deleted),
		"bytes", report.Bytes,
		"dry_run", report.DryRun,
		"duration", report.Duration)

	return report, nil
}

// scan lists the regular files under dir in key order.
func (p *Publisher) scan(dir string) ([]localFile, error) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, errors.New("E141").WithDetail(fmt.Sprintf("%s is not a directory", dir))
	}

	var files []localFile
	err = filepath.WalkDir(dir, func(file string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(dir, file)
		if err != nil {
			return err
		}
		fi, err := d.Info()
		if err != nil {
			return err
		}
		files = append(files, localFile{path: file, key: p.key(filepath.ToSlash(rel)), size: fi.Size()})
		return nil
	})
	if err != nil {
		return nil, errors.New("E140").WithDetail("Could not read " + dir).Wrap(err)
	}
	if len(files) == 0 {
		return nil, errors.New("E141").WithDetail(fmt.Sprintf("%s is empty", dir))
	}

	sort.Slice(files, func(i, j int) bool { return files[i].key < files[j].key })
	return files, nil
}

func (p *Publisher) key(rel string) string {
	if p.options.Prefix == "" {
		return rel
	}
	return p.options.Prefix + "/" + rel
}

func (p *Publisher) upload(ctx context.Context, f localFile) error {
	if p.options.DryRun {
		return nil
	}

	body, err := os.Open(f.path)
	if err != nil {
		return err
	}
	defer body.Close()

	_, err = p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(p.options.Bucket),
		Key:           aws.String(f.key),
		Body:          body,
		ContentLength: aws.Int64(f.size),
		ContentType:   aws.String(ContentType(f.key)),
		CacheControl:  aws.String(CacheControl(f.key)),
	})
	return err
}

// prune deletes remote keys under the prefix that were not uploaded.
func (p *Publisher) prune(ctx context.Context, files []localFile) ([]string, error) {
	local := make(map[string]bool, len(files))
	for _, f := range files {
		local[f.key] = true
	}

	input := &s3.ListObjectsV2Input{Bucket: aws.String(p.options.Bucket)}
	if p.options.Prefix != "" {
		input.Prefix = aws.String(p.options.Prefix + "/")
	}

	var stale []string
	paginator := s3.NewListObjectsV2Paginator(p.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, errors.New("E140").WithDetail("Could not list bucket contents").Wrap(err)
		}
		for _, obj := range page.Contents {
			if key := aws.ToString(obj.Key); !local[key] {
				stale = append(stale, key)
			}
		}
	}

	var deleted []string
	for _, key := range stale {
		if !p.options.DryRun {
			_, err := p.client.DeleteObject(ctx, &s3.DeleteObjectInput{
				Bucket: aws.String(p.options.Bucket),
				Key:    aws.String(key),
			})
			if err != nil {
				return deleted, errors.New("E140").WithDetail("Could not delete " + key).Wrap(err)
			}
		}
		deleted = append(deleted, key)
		p.progress("delete", key)
	}
	return deleted, nil
}

func (p *Publisher) progress(action, key string) {
	if p.options.OnProgress != nil {
		p.options.OnProgress(action, key)
	}
}

var contentTypes = map[string]string{
	".html": "text/html; charset=utf-8",
	".xml":  "application/xml",
	".json": "application/json",
	".txt":  "text/plain; charset=utf-8",
	".js":   "text/javascript; charset=utf-8",
	".css":  "text/css; charset=utf-8",
	".svg":  "image/svg+xml",
	".webp": "image/webp",
}

// ContentType returns the Content-Type for key by extension.
func ContentType(key string) string {
	ext := strings.ToLower(path.Ext(key))
	if ct, ok := contentTypes[ext]; ok {
		return ct
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// CacheControl returns the Cache-Control header for key. Route documents
// change on every export; bundler output under assets/ is content-hashed.
func CacheControl(key string) string {
	switch {
	case strings.HasSuffix(strings.ToLower(key), ".html"):
		return "no-cache"
	case strings.HasPrefix(key, "assets/") || strings.Contains(key, "/assets/"):
		return "public, max-age=31536000, immutable"
	default:
		return "public, max-age=3600"
	}
}
