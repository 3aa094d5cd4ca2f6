package models

// Config represents the application configuration
type Config struct {
	Crawler   CrawlerConfig         `mapstructure:"crawler" json:"crawler" yaml:"crawler"`
	Download  DownloadConfig        `mapstructure:"download" json:"download" yaml:"download"`
	Cache     CacheConfig           `mapstructure:"cache" json:"cache" yaml:"cache"`
	Evaluator EvaluatorConfig       `mapstructure:"evaluator" json:"evaluator" yaml:"evaluator"`
	Log       LogConfig             `mapstructure:"log" json:"log" yaml:"log"`
	Sites     map[string]SiteConfig `mapstructure:"sites" json:"sites" yaml:"sites"`
}

// CrawlerConfig controls the worker pool and page requests.
type CrawlerConfig struct {
	Workers       int    `mapstructure:"workers" json:"workers" yaml:"workers"`
	UserAgent     string `mapstructure:"user_agent" json:"user_agent" yaml:"user_agent"`
	Timeout       int    `mapstructure:"timeout" json:"timeout" yaml:"timeout"` // seconds
	Retries       int    `mapstructure:"retries" json:"retries" yaml:"retries"`
	RespectRobots bool   `mapstructure:"respect_robots" json:"respect_robots" yaml:"respect_robots"`
	IncludeBeta   bool   `mapstructure:"include_beta" json:"include_beta" yaml:"include_beta"`
}

// DownloadConfig controls where and how APKs are written.
type DownloadConfig struct {
	OutputDir        string   `mapstructure:"output_dir" json:"output_dir" yaml:"output_dir"`
	SearchDirs       []string `mapstructure:"search_dirs" json:"search_dirs" yaml:"search_dirs"`
	Verify           bool     `mapstructure:"verify" json:"verify" yaml:"verify"`
	ShowProgress     bool     `mapstructure:"show_progress" json:"show_progress" yaml:"show_progress"`
	BreakerThreshold int      `mapstructure:"breaker_threshold" json:"breaker_threshold" yaml:"breaker_threshold"`
	HistoryFile      string   `mapstructure:"history_file" json:"history_file" yaml:"history_file"`
}

// CacheConfig controls the scraped page cache.
type CacheConfig struct {
	Enabled bool   `mapstructure:"enabled" json:"enabled" yaml:"enabled"`
	Dir     string `mapstructure:"dir" json:"dir" yaml:"dir"`
	TTL     int    `mapstructure:"ttl" json:"ttl" yaml:"ttl"` // seconds
}

// EvaluatorConfig overrides the need-evaluation tables.
type EvaluatorConfig struct {
	SDKBaseline          int      `mapstructure:"sdk_baseline" json:"sdk_baseline" yaml:"sdk_baseline"`
	OneVariantPerRealver []string `mapstructure:"one_variant_per_realver" json:"one_variant_per_realver" yaml:"one_variant_per_realver"`
	OneVercodePerRealver []string `mapstructure:"one_vercode_per_realver" json:"one_vercode_per_realver" yaml:"one_vercode_per_realver"`
}

// LogConfig mirrors utils.LoggerConfig in file form.
type LogConfig struct {
	Level  string `mapstructure:"level" json:"level" yaml:"level"`
	Format string `mapstructure:"format" json:"format" yaml:"format"`
	File   string `mapstructure:"file" json:"file" yaml:"file"`
	Color  bool   `mapstructure:"color" json:"color" yaml:"color"`
}

// SiteConfig enables a scraper and optionally points it at a mirror.
type SiteConfig struct {
	Enabled bool   `mapstructure:"enabled" json:"enabled" yaml:"enabled"`
	BaseURL string `mapstructure:"base_url" json:"base_url" yaml:"base_url"`
}

// SiteEnabled reports whether name should run. Sites absent from the
// configuration are enabled.
func (c *Config) SiteEnabled(name string) bool {
	sc, ok := c.Sites[name]
	return !ok || sc.Enabled
}

// SiteURL returns the configured base URL override for name, if any.
func (c *Config) SiteURL(name string) string {
	return c.Sites[name].BaseURL
}
