package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

type LinkMode = string

var (
	LinkText   = LinkMode("text")
	LinkQRCode = LinkMode("qr-code")
)

const (
	baseCfgPath = "pressbrief/config.toml"

	DefaultLimitPerFeed = 10
	MaxLimitPerFeed     = 50
	DefaultWorkers      = 8
	DefaultFetchTimeout = 30 * time.Second
)

var (
	ErrNoSink       = errors.New("no storage provided: configure an output directory, Dropbox or Telegram")
	ErrNoNewspapers = errors.New("no newspapers configured")
)

type Config struct {
	Newspapers    map[string]NewspaperConfig `toml:"newspapers" yaml:"newspapers"`
	Filters       map[string]Filter          `toml:"filters" yaml:"filters"` // Named filters that can be referenced by newspapers
	LimitPerFeed  int                        `toml:"limit_per_feed" yaml:"limit_per_feed"`
	LinkMode      LinkMode                   `toml:"link_mode" yaml:"link_mode"`
	Workers       int                        `toml:"workers" yaml:"workers"`
	FetchTimeout  Duration                   `toml:"fetch_timeout" yaml:"fetch_timeout"`
	CachePath     string                     `toml:"cache_path" yaml:"cache_path"`           // Link cache database, empty disables caching
	ShortenLinks  *bool                      `toml:"shorten_links" yaml:"shorten_links"`     // Defaults to true
	DebugHTMLPath string                     `toml:"debug_html_path" yaml:"debug_html_path"` // Dumps the intermediate markup when set
	MetricsPath   string                     `toml:"metrics_path" yaml:"metrics_path"`       // Prometheus textfile written after each run
	Output        OutputConfig               `toml:"output" yaml:"output"`
	Dropbox       DropboxConfig              `toml:"dropbox" yaml:"dropbox"`
	Telegram      TelegramConfig             `toml:"telegram" yaml:"telegram"`

	// NewspaperOrder holds the newspaper keys in the order the config file
	// lists them. Read fills it in.
	NewspaperOrder []string `toml:"-" yaml:"-"`
}

type NewspaperConfig struct {
	Name        string   `toml:"name" yaml:"name"`
	Feeds       []string `toml:"rss" yaml:"rss"`
	FilterNames []string `toml:"filters" yaml:"filters"` // Names of filters to apply (pipeline)
}

// Filter defines rules for filtering feed entries
type Filter struct {
	MinLength       int      `toml:"min_length" yaml:"min_length"`             // Minimum character count (0 = no limit)
	MinWords        int      `toml:"min_words" yaml:"min_words"`               // Minimum word count (0 = no limit)
	ExcludePatterns []string `toml:"exclude_patterns" yaml:"exclude_patterns"` // Regex patterns to exclude
}

type OutputConfig struct {
	Directory string `toml:"directory" yaml:"directory"`
}

type DropboxConfig struct {
	AccessToken string `toml:"access_token" yaml:"access_token"`
}

type TelegramConfig struct {
	AppID      int    `toml:"app_id" yaml:"app_id"`
	AppHash    string `toml:"app_hash" yaml:"app_hash"`
	Phone      string `toml:"phone" yaml:"phone"`
	Peer       string `toml:"peer" yaml:"peer"` // @username or phone, Saved Messages when empty
	SessionDir string `toml:"session_dir" yaml:"session_dir"`
}

// IsEnabled checks if telegram delivery is fully configured
func (tc TelegramConfig) IsEnabled() bool {
	return tc.AppID != 0 && tc.AppHash != ""
}

// Newspaper is a configured newspaper with its map key
type Newspaper struct {
	Key string
	NewspaperConfig
}

// OrderedNewspapers returns newspapers in config file order. Newspapers
// missing from NewspaperOrder, e.g. added in code, follow sorted by key.
func (c Config) OrderedNewspapers() []Newspaper {
	papers := make([]Newspaper, 0, len(c.Newspapers))
	seen := make(map[string]bool, len(c.Newspapers))
	for _, k := range c.NewspaperOrder {
		paper, ok := c.Newspapers[k]
		if !ok || seen[k] {
			continue
		}
		seen[k] = true
		papers = append(papers, Newspaper{Key: k, NewspaperConfig: paper})
	}

	rest := make([]string, 0, len(c.Newspapers)-len(papers))
	for k := range c.Newspapers {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	for _, k := range rest {
		papers = append(papers, Newspaper{Key: k, NewspaperConfig: c.Newspapers[k]})
	}
	return papers
}

// ShortenEnabled reports whether links are passed through the shortener
func (c Config) ShortenEnabled() bool {
	return c.ShortenLinks == nil || *c.ShortenLinks
}

// HasSink reports whether at least one delivery target is configured
func (c Config) HasSink() bool {
	return c.Output.Directory != "" || c.Dropbox.AccessToken != "" || c.Telegram.IsEnabled()
}

// Read decodes the config at path. Files ending in .yaml or .yml are read as
// YAML, everything else as TOML.
func Read(path string) (Config, error) {
	conf := Default()
	dat, err := os.ReadFile(path)
	if err != nil {
		return conf, err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(dat, &conf)
		if err == nil {
			conf.NewspaperOrder, err = yamlNewspaperOrder(dat)
		}
	default:
		var md toml.MetaData
		md, err = toml.Decode(string(dat), &conf)
		if err == nil {
			conf.NewspaperOrder = tomlNewspaperOrder(md)
		}
	}
	if err != nil {
		return conf, fmt.Errorf("failed to decode config at %s with %w", path, err)
	}
	return conf, nil
}

// tomlNewspaperOrder collects newspaper keys in the order they are defined
func tomlNewspaperOrder(md toml.MetaData) []string {
	var order []string
	seen := map[string]bool{}
	for _, key := range md.Keys() {
		if len(key) < 2 || key[0] != "newspapers" || seen[key[1]] {
			continue
		}
		seen[key[1]] = true
		order = append(order, key[1])
	}
	return order
}

func yamlNewspaperOrder(dat []byte) ([]string, error) {
	var doc struct {
		Newspapers yaml.Node `yaml:"newspapers"`
	}
	if err := yaml.Unmarshal(dat, &doc); err != nil {
		return nil, err
	}
	if doc.Newspapers.Kind != yaml.MappingNode {
		return nil, nil
	}

	order := make([]string, 0, len(doc.Newspapers.Content)/2)
	for i := 0; i+1 < len(doc.Newspapers.Content); i += 2 {
		order = append(order, doc.Newspapers.Content[i].Value)
	}
	return order, nil
}

func Write(cfgPath string, cfg Config) error {
	blob, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config with %w", err)
	}
	basePath := path.Dir(cfgPath)
	err = os.MkdirAll(basePath, os.ModePerm)
	if err != nil {
		return fmt.Errorf("failed to create base config directory at '%s' with %w", basePath, err)
	}
	err = os.WriteFile(cfgPath, blob, 0644)
	if err != nil {
		return fmt.Errorf("failed to write into config file at '%s' with %w", cfgPath, err)
	}
	return nil
}

func Default() Config {
	return Config{
		Newspapers:   map[string]NewspaperConfig{},
		LimitPerFeed: DefaultLimitPerFeed,
		LinkMode:     LinkText,
		Workers:      DefaultWorkers,
		FetchTimeout: Duration(DefaultFetchTimeout),
		CachePath:    defaultCachePath(),
	}
}

func DefaultPath() string {
	var xdgHome = os.Getenv("XDG_CONFIG_HOME")
	if xdgHome != "" {
		return path.Join(xdgHome, baseCfgPath)
	}

	var home = os.Getenv("HOME")
	if home != "" {
		return path.Join(home, ".config", baseCfgPath)
	}

	return "config.toml"
}

func defaultCachePath() string {
	cacheDir := os.Getenv("XDG_CACHE_HOME")
	if cacheDir == "" {
		home := os.Getenv("HOME")
		if home == "" {
			return ""
		}
		cacheDir = filepath.Join(home, ".cache")
	}
	return filepath.Join(cacheDir, "pressbrief", "cache.db")
}

// Normalize clamps tunables into their allowed ranges, logging every change
func (c *Config) Normalize(logger *slog.Logger) {
	if c.LimitPerFeed > MaxLimitPerFeed {
		logger.Warn("limit per feed is greater than the maximum, reducing", "limit", c.LimitPerFeed, "max", MaxLimitPerFeed)
		c.LimitPerFeed = MaxLimitPerFeed
	}
	if c.LimitPerFeed < 0 {
		logger.Warn("limit per feed is negative, using default", "limit", c.LimitPerFeed, "default", DefaultLimitPerFeed)
		c.LimitPerFeed = DefaultLimitPerFeed
	}
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = Duration(DefaultFetchTimeout)
	}
	if c.LinkMode == "" {
		c.LinkMode = LinkText
	}
}

// Validate reports configuration errors. It must pass before any network
// access happens.
func (c Config) Validate() error {
	if !c.HasSink() {
		return ErrNoSink
	}
	if len(c.Newspapers) == 0 {
		return ErrNoNewspapers
	}

	var errs []error
	if c.LinkMode != LinkText && c.LinkMode != LinkQRCode {
		errs = append(errs, fmt.Errorf("unknown link mode '%s', expected '%s' or '%s'", c.LinkMode, LinkText, LinkQRCode))
	}
	for _, paper := range c.OrderedNewspapers() {
		if strings.TrimSpace(paper.Name) == "" {
			errs = append(errs, fmt.Errorf("newspaper '%s' has no name", paper.Key))
		}
		if len(paper.Feeds) == 0 {
			errs = append(errs, fmt.Errorf("newspaper '%s' has no rss feeds", paper.Key))
		}
		for _, name := range paper.FilterNames {
			if _, ok := c.Filters[name]; !ok {
				errs = append(errs, fmt.Errorf("newspaper '%s' references unknown filter '%s'", paper.Key, name))
			}
		}
	}
	if c.Telegram.AppID != 0 && c.Telegram.AppHash == "" {
		errs = append(errs, errors.New("telegram app_hash is required when app_id is set"))
	}
	return errors.Join(errs...)
}
