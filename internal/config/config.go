package config

import (
	"encoding/json"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mnplowfinder/plowfinder/internal/errors"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "plowfinder.json"

	// DefaultSiteName is the display name used in page titles.
	DefaultSiteName = "MN Plow Finder"

	// DefaultSiteURL is the absolute origin used in sitemap entries.
	DefaultSiteURL = "https://mnplowfinder.com"

	// DefaultProviders is the default provider data file.
	DefaultProviders = "data/providers.json"

	// DefaultOutput is the default export output directory.
	DefaultOutput = "dist"

	// DefaultShell is the default prerendered app shell document.
	DefaultShell = "client/dist/index.html"

	// DefaultPort is the default server port.
	DefaultPort = 3000

	// DefaultHost is the default server host.
	DefaultHost = "localhost"

	// DefaultRegion is the default object storage region.
	DefaultRegion = "us-east-1"
)

// Config represents the complete plowfinder.json configuration.
type Config struct {
	// Site describes the public site.
	Site SiteConfig `json:"site"`

	// Data locates the provider data source.
	Data DataConfig `json:"data"`

	// Build contains static export settings.
	Build BuildConfig `json:"build"`

	// Serve contains runtime server settings.
	Serve ServeConfig `json:"serve"`

	// Publish contains object storage upload settings.
	Publish PublishConfig `json:"publish"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// SiteConfig describes the public site.
type SiteConfig struct {
	// Name is the site display name.
	Name string `json:"name,omitempty"`

	// URL is the absolute origin, without a trailing slash.
	URL string `json:"url,omitempty"`
}

// DataConfig locates input data.
type DataConfig struct {
	// Providers is the path to the provider JSON file.
	Providers string `json:"providers,omitempty"`
}

// BuildConfig contains static export settings.
type BuildConfig struct {
	// Output is the export output directory. It is cleared on every export.
	Output string `json:"output,omitempty"`

	// Shell is the prerendered app shell copied to every exported path.
	Shell string `json:"shell,omitempty"`

	// Assets is an optional directory copied into the output before
	// route directories are written (the client bundle).
	Assets string `json:"assets,omitempty"`

	// RewriteHead gives every exported document the title, description and
	// canonical link of its own page instead of the shell's.
	RewriteHead bool `json:"rewriteHead,omitempty"`

	// StrictCollisions fails the export when a provider loses its short URL.
	StrictCollisions bool `json:"strictCollisions,omitempty"`
}

// ServeConfig contains runtime server settings.
type ServeConfig struct {
	// Host is the host to bind to.
	Host string `json:"host,omitempty"`

	// Port is the port to listen on.
	Port int `json:"port,omitempty"`

	// HotReload watches the provider file and reloads connected browsers.
	HotReload bool `json:"hotReload,omitempty"`
}

// PublishConfig contains object storage upload settings.
type PublishConfig struct {
	// Bucket is the destination bucket.
	Bucket string `json:"bucket,omitempty"`

	// Prefix is prepended to every object key.
	Prefix string `json:"prefix,omitempty"`

	// Region is the bucket region.
	Region string `json:"region,omitempty"`

	// Endpoint overrides the S3 endpoint for S3-compatible stores.
	Endpoint string `json:"endpoint,omitempty"`

	// Prune deletes remote objects that are no longer exported.
	Prune bool `json:"prune,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	return &Config{
		Site: SiteConfig{
			Name: DefaultSiteName,
			URL:  DefaultSiteURL,
		},
		Data: DataConfig{
			Providers: DefaultProviders,
		},
		Build: BuildConfig{
			Output: DefaultOutput,
			Shell:  DefaultShell,
		},
		Serve: ServeConfig{
			Host:      DefaultHost,
			Port:      DefaultPort,
			HotReload: true,
		},
		Publish: PublishConfig{
			Region: DefaultRegion,
		},
	}
}

// Load reads configuration from the specified directory.
// It looks for plowfinder.json in the directory.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, ConfigFileName))
}

// LoadFile reads configuration from the specified file path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("E121").
				WithDetail("No " + ConfigFileName + " found in " + filepath.Dir(path)).
				WithSuggestion("Create " + ConfigFileName + " or run without --config to use defaults")
		}
		return nil, errors.New("E120").Wrap(err)
	}

	cfg := New()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.New("E120").
			WithDetail("Failed to parse " + ConfigFileName + ": " + err.Error()).
			WithSuggestion("Check that " + ConfigFileName + " is valid JSON")
	}

	cfg.configPath = path
	cfg.applyDefaults()

	return cfg, nil
}

// LoadOrDefault loads plowfinder.json from dir, falling back to defaults
// rooted at dir when the file does not exist.
func LoadOrDefault(dir string) (*Config, error) {
	cfg, err := Load(dir)
	if err == nil {
		return cfg, nil
	}
	if errors.HasCode(err, "E121") {
		cfg = New()
		cfg.configPath = filepath.Join(dir, ConfigFileName)
		return cfg, nil
	}
	return nil, err
}

// LoadFromWorkingDir loads configuration from the current directory.
func LoadFromWorkingDir() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, errors.New("E120").Wrap(err)
	}
	return LoadOrDefault(wd)
}

// SaveTo writes the configuration to the specified path.
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.New("E120").Wrap(err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New("E120").Wrap(err)
	}

	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the directory containing the config file.
func (c *Config) Dir() string {
	if c.configPath == "" {
		return ""
	}
	return filepath.Dir(c.configPath)
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	if c.Site.Name == "" {
		c.Site.Name = DefaultSiteName
	}
	if c.Site.URL == "" {
		c.Site.URL = DefaultSiteURL
	}
	c.Site.URL = strings.TrimSuffix(strings.TrimSpace(c.Site.URL), "/")

	if c.Data.Providers == "" {
		c.Data.Providers = DefaultProviders
	}
	if c.Build.Output == "" {
		c.Build.Output = DefaultOutput
	}
	if c.Build.Shell == "" {
		c.Build.Shell = DefaultShell
	}

	if c.Serve.Host == "" {
		c.Serve.Host = DefaultHost
	}
	if c.Serve.Port == 0 {
		c.Serve.Port = DefaultPort
	}

	if c.Publish.Region == "" {
		c.Publish.Region = DefaultRegion
	}
	c.Publish.Prefix = strings.Trim(c.Publish.Prefix, "/")
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Site.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.New("E122").
			WithDetail("site.url must be an absolute http(s) URL, got " + strconv.Quote(c.Site.URL))
	}
	if u.Path != "" && u.Path != "/" {
		return errors.New("E122").
			WithDetail("site.url must be an origin without a path, got " + strconv.Quote(c.Site.URL))
	}
	if c.Serve.Port < 0 || c.Serve.Port > 65535 {
		return errors.New("E122").
			WithDetail("serve.port must be between 0 and 65535")
	}
	if filepath.Clean(c.OutputPath()) == filepath.Clean(c.resolve(".")) {
		return errors.New("E122").
			WithDetail("build.output must not be the project directory; it is deleted on every export")
	}
	if assets := c.AssetsPath(); assets != "" && within(assets, c.OutputPath()) {
		return errors.New("E122").
			WithDetail("build.assets must not be inside build.output; the output directory is cleared before assets are copied")
	}
	return nil
}

// within reports whether path is parent or lies below it.
func within(path, parent string) bool {
	rel, err := filepath.Rel(filepath.Clean(parent), filepath.Clean(path))
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// Address returns the listen address for the server.
func (c *Config) Address() string {
	return c.Serve.Host + ":" + strconv.Itoa(c.Serve.Port)
}

// SiteURL returns the site origin without a trailing slash.
func (c *Config) SiteURL() string {
	return strings.TrimSuffix(c.Site.URL, "/")
}

// OutputPath returns the absolute path to the export output directory.
func (c *Config) OutputPath() string {
	return c.resolve(c.Build.Output)
}

// ShellPath returns the absolute path to the app shell document.
func (c *Config) ShellPath() string {
	return c.resolve(c.Build.Shell)
}

// AssetsPath returns the absolute path to the assets directory, or "" when
// no assets directory is configured.
func (c *Config) AssetsPath() string {
	if c.Build.Assets == "" {
		return ""
	}
	return c.resolve(c.Build.Assets)
}

// ProvidersPath returns the absolute path to the provider data file.
func (c *Config) ProvidersPath() string {
	return c.resolve(c.Data.Providers)
}

func (c *Config) resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.Dir(), path)
}
