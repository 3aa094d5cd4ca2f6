package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/huanfeng/apkcrawler/pkg/models"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. APKCRAWLER_CRAWLER_WORKERS.
const EnvPrefix = "APKCRAWLER"

// DefaultSiteNames lists the scrapers enabled by the template.
var DefaultSiteNames = []string{
	"apkbeast", "apkdl", "apkmirror", "apkpure",
	"aptoide", "mobogenie", "plazza", "uptodown",
}

var defaultConfig = models.Config{
	Crawler: models.CrawlerConfig{
		Workers:       5,
		UserAgent:     "",
		Timeout:       30,
		Retries:       3,
		RespectRobots: false,
		IncludeBeta:   false,
	},
	Download: models.DownloadConfig{
		OutputDir:        "apkcrawler",
		SearchDirs:       []string{".", "./apkcrawler", "../apkcrawler"},
		Verify:           true,
		ShowProgress:     false,
		BreakerThreshold: 5,
		HistoryFile:      "",
	},
	Cache: models.CacheConfig{
		Enabled: false,
		Dir:     "",
		TTL:     3600,
	},
	Evaluator: models.EvaluatorConfig{
		SDKBaseline: 19,
	},
	Log: models.LogConfig{
		Level:  "info",
		Format: "text",
		Color:  true,
	},
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("crawler.workers", defaultConfig.Crawler.Workers)
	v.SetDefault("crawler.user_agent", defaultConfig.Crawler.UserAgent)
	v.SetDefault("crawler.timeout", defaultConfig.Crawler.Timeout)
	v.SetDefault("crawler.retries", defaultConfig.Crawler.Retries)
	v.SetDefault("crawler.respect_robots", defaultConfig.Crawler.RespectRobots)
	v.SetDefault("crawler.include_beta", defaultConfig.Crawler.IncludeBeta)
	v.SetDefault("download.output_dir", defaultConfig.Download.OutputDir)
	v.SetDefault("download.search_dirs", defaultConfig.Download.SearchDirs)
	v.SetDefault("download.verify", defaultConfig.Download.Verify)
	v.SetDefault("download.show_progress", defaultConfig.Download.ShowProgress)
	v.SetDefault("download.breaker_threshold", defaultConfig.Download.BreakerThreshold)
	v.SetDefault("download.history_file", defaultConfig.Download.HistoryFile)
	v.SetDefault("cache.enabled", defaultConfig.Cache.Enabled)
	v.SetDefault("cache.dir", defaultConfig.Cache.Dir)
	v.SetDefault("cache.ttl", defaultConfig.Cache.TTL)
	v.SetDefault("evaluator.sdk_baseline", defaultConfig.Evaluator.SDKBaseline)
	v.SetDefault("evaluator.one_variant_per_realver", []string{})
	v.SetDefault("evaluator.one_vercode_per_realver", []string{})
	v.SetDefault("log.level", defaultConfig.Log.Level)
	v.SetDefault("log.format", defaultConfig.Log.Format)
	v.SetDefault("log.file", defaultConfig.Log.File)
	v.SetDefault("log.color", defaultConfig.Log.Color)
}

// Default returns a copy of the built-in configuration.
func Default() *models.Config {
	c := defaultConfig
	c.Download.SearchDirs = append([]string(nil), defaultConfig.Download.SearchDirs...)
	c.Sites = make(map[string]models.SiteConfig)
	return &c
}

// Load loads configuration from file and environment. An explicit
// configPath must exist; otherwise apkcrawler.yaml is looked up in the
// working directory and ~/.config/apkcrawler. A .env file in the working
// directory is loaded first when present.
func Load(configPath string) (*models.Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("apkcrawler")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "apkcrawler"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(envKeyReplacer)
	v.AutomaticEnv()

	var config models.Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if config.Sites == nil {
		config.Sites = make(map[string]models.SiteConfig)
	}

	if err := Validate(&config); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate rejects settings the crawler cannot run with.
func Validate(c *models.Config) error {
	if c.Crawler.Workers < 1 {
		return fmt.Errorf("crawler.workers must be at least 1, got %d", c.Crawler.Workers)
	}
	if c.Crawler.Retries < 0 {
		return fmt.Errorf("crawler.retries must not be negative, got %d", c.Crawler.Retries)
	}
	if c.Evaluator.SDKBaseline < 1 {
		return fmt.Errorf("evaluator.sdk_baseline must be a positive API level, got %d", c.Evaluator.SDKBaseline)
	}
	if c.Download.OutputDir == "" {
		return errors.New("download.output_dir must not be empty")
	}
	return nil
}

// Marshal renders the effective configuration as YAML.
func Marshal(c *models.Config) ([]byte, error) {
	return yaml.Marshal(c)
}

// EnabledSites returns the configured site names that are enabled, plus
// every default site with no entry, sorted.
func EnabledSites(c *models.Config) []string {
	seen := make(map[string]bool)
	var names []string
	for _, name := range DefaultSiteNames {
		seen[name] = true
		if c.SiteEnabled(name) {
			names = append(names, name)
		}
	}
	for name, sc := range c.Sites {
		if !seen[name] && sc.Enabled {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// SaveTemplate saves a configuration template
func SaveTemplate(path string) error {
	templateContent := `# apkcrawler configuration file

crawler:
  # Number of packages scraped in parallel
  workers: 5

  # Override the browser User-Agent sent to sites (empty = Chrome default)
  user_agent: ""

  # Page request timeout in seconds
  timeout: 30

  # Retries for failed page requests
  retries: 3

  # Skip pages disallowed by the site's robots.txt
  respect_robots: false

  # Also query the .beta lineage of every package
  include_beta: false

download:
  # Directory new APKs are written to
  output_dir: "apkcrawler"

  # Directories checked for an already downloaded file
  search_dirs:
    - "."
    - "./apkcrawler"
    - "../apkcrawler"

  # Check the manifest of every downloaded APK against the scraped data
  verify: true

  # Show a progress bar per download
  show_progress: false

  # Consecutive failures before a download host is paused
  breaker_threshold: 5

  # Download history database (empty = user cache directory)
  history_file: ""

cache:
  # Keep scraped pages on disk and reuse them
  enabled: false
  dir: ""
  ttl: 3600

evaluator:
  # Highest minimum SDK ever required of a candidate
  sdk_baseline: 19

  # Replace the built-in package classifications (empty = built-in list)
  one_variant_per_realver: []
  one_vercode_per_realver: []

log:
  # debug, info, warn, error
  level: "info"

  # text, json, compact
  format: "text"

  # Also write the log to this file (truncated on each run)
  file: ""
  color: true

sites:
  apkbeast:  { enabled: true }
  apkdl:     { enabled: true }
  apkmirror: { enabled: true }
  apkpure:   { enabled: true }
  aptoide:   { enabled: true }
  mobogenie: { enabled: true }
  plazza:    { enabled: true }
  uptodown:  { enabled: true }
`

	return os.WriteFile(path, []byte(templateContent), 0644)
}

var envKeyReplacer = strings.NewReplacer(".", "_")
