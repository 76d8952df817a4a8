package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"postershelf/imaging"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

const (
	configDirName  = ".postershelf"
	configFileName = "config"
	envPrefix      = "POSTERSHELF"
)

type Category struct {
	Name string `mapstructure:"name" yaml:"name"`
	Path string `mapstructure:"path" yaml:"path"`
}

type Config struct {
	CatalogBaseURL string     `mapstructure:"catalog_base_url" yaml:"catalog_base_url"`
	Categories     []Category `mapstructure:"categories" yaml:"categories"`

	RequestTimeout int    `mapstructure:"request_timeout" yaml:"request_timeout"`
	UserAgent      string `mapstructure:"user_agent" yaml:"user_agent"`
	MaxInFlight    int64  `mapstructure:"max_in_flight" yaml:"max_in_flight"`
	// KeepStalePosters lets posters that finish downloading after a
	// category switch land in the cache anyway.
	KeepStalePosters bool `mapstructure:"keep_stale_posters" yaml:"keep_stale_posters"`
	// MaxPosterPixels rejects posters whose header declares more pixels.
	MaxPosterPixels int64 `mapstructure:"max_poster_pixels" yaml:"max_poster_pixels"`

	LogLevel string `mapstructure:"log_level" yaml:"log_level"`
	LogFile  string `mapstructure:"log_file" yaml:"log_file"`

	PosterWidth  int `mapstructure:"poster_width" yaml:"poster_width"`
	PosterHeight int `mapstructure:"poster_height" yaml:"poster_height"`
}

func DefaultConfig() *Config {
	return &Config{
		CatalogBaseURL: "http://127.0.0.1:3000",
		Categories: []Category{
			{Name: "Action", Path: "/movies/action"},
			{Name: "Comedy", Path: "/movies/comedy"},
			{Name: "Adventure", Path: "/movies/adventure"},
		},
		RequestTimeout:   15,
		UserAgent:        "postershelf/1.0",
		MaxInFlight:      0,
		KeepStalePosters: false,
		MaxPosterPixels:  imaging.DefaultMaxPixels,
		LogLevel:         "info",
		LogFile:          filepath.Join(os.TempDir(), "postershelf", "tui.log"),
		PosterWidth:      24,
		PosterHeight:     12,
	}
}

func (c *Config) Timeout() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Second
}

// CategoryURL resolves a category name (case-insensitive) against the
// catalog base URL. An absolute http(s) URL is returned as is.
func (c *Config) CategoryURL(name string) (string, error) {
	if strings.HasPrefix(name, "http://") || strings.HasPrefix(name, "https://") {
		return name, nil
	}

	for _, cat := range c.Categories {
		if strings.EqualFold(cat.Name, name) {
			base, err := url.Parse(c.CatalogBaseURL)
			if err != nil {
				return "", fmt.Errorf("invalid catalog base url: %w", err)
			}
			ref, err := url.Parse(cat.Path)
			if err != nil {
				return "", fmt.Errorf("invalid path for category %s: %w", cat.Name, err)
			}
			return base.ResolveReference(ref).String(), nil
		}
	}

	return "", fmt.Errorf("unknown category: %s", name)
}

func (c *Config) CategoryNames() []string {
	names := make([]string, len(c.Categories))
	for i, cat := range c.Categories {
		names[i] = cat.Name
	}
	return names
}

func setDefaults(v *viper.Viper, config *Config) {
	v.SetDefault("catalog_base_url", config.CatalogBaseURL)
	v.SetDefault("categories", categoriesValue(config.Categories))
	v.SetDefault("request_timeout", config.RequestTimeout)
	v.SetDefault("user_agent", config.UserAgent)
	v.SetDefault("max_in_flight", config.MaxInFlight)
	v.SetDefault("keep_stale_posters", config.KeepStalePosters)
	v.SetDefault("max_poster_pixels", config.MaxPosterPixels)
	v.SetDefault("log_level", config.LogLevel)
	v.SetDefault("log_file", config.LogFile)
	v.SetDefault("poster_width", config.PosterWidth)
	v.SetDefault("poster_height", config.PosterHeight)
}

func categoriesValue(categories []Category) []map[string]string {
	out := make([]map[string]string, len(categories))
	for i, cat := range categories {
		out[i] = map[string]string{"name": cat.Name, "path": cat.Path}
	}
	return out
}

// LoadConfig reads the process-wide viper instance, which the root command
// points at --config or the default search paths.
func LoadConfig() (*Config, error) {
	v := viper.GetViper()
	if v.ConfigFileUsed() == "" {
		home, err := homedir.Dir()
		if err != nil {
			return nil, fmt.Errorf("failed to find home directory: %w", err)
		}
		v.AddConfigPath(filepath.Join(home, configDirName))
		v.AddConfigPath(".")
		v.SetConfigName(configFileName)
		v.SetConfigType("yaml")
	}
	return load(v)
}

func LoadConfigFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	config := DefaultConfig()
	setDefaults(v, config)

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := ValidateConfig(config); err != nil {
		return nil, err
	}
	return config, nil
}

func SaveConfig(config *Config) error {
	path, err := GetConfigPath()
	if err != nil {
		return fmt.Errorf("failed to find home directory: %w", err)
	}
	return SaveConfigTo(config, path)
}

func SaveConfigTo(config *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("catalog_base_url", config.CatalogBaseURL)
	v.Set("categories", categoriesValue(config.Categories))
	v.Set("request_timeout", config.RequestTimeout)
	v.Set("user_agent", config.UserAgent)
	v.Set("max_in_flight", config.MaxInFlight)
	v.Set("keep_stale_posters", config.KeepStalePosters)
	v.Set("max_poster_pixels", config.MaxPosterPixels)
	v.Set("log_level", config.LogLevel)
	v.Set("log_file", config.LogFile)
	v.Set("poster_width", config.PosterWidth)
	v.Set("poster_height", config.PosterHeight)

	return v.WriteConfig()
}

func GetConfigPath() (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, configDirName, configFileName+".yaml"), nil
}

func CreateDefaultConfig() (string, error) {
	path, err := GetConfigPath()
	if err != nil {
		return "", err
	}
	return path, SaveConfigTo(DefaultConfig(), path)
}

func ValidateConfig(config *Config) error {
	validLogLevels := []string{"debug", "info", "warn", "error"}
	found := false
	for _, level := range validLogLevels {
		if config.LogLevel == level {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("invalid log level: %s", config.LogLevel)
	}

	base, err := url.Parse(config.CatalogBaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return fmt.Errorf("invalid catalog base url: %q", config.CatalogBaseURL)
	}

	if len(config.Categories) == 0 {
		return fmt.Errorf("at least one category is required")
	}
	seen := map[string]bool{}
	for _, cat := range config.Categories {
		key := strings.ToLower(cat.Name)
		if cat.Name == "" || cat.Path == "" {
			return fmt.Errorf("category entries need a name and a path")
		}
		if seen[key] {
			return fmt.Errorf("duplicate category: %s", cat.Name)
		}
		seen[key] = true
	}

	if config.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive, got %d", config.RequestTimeout)
	}
	if config.MaxInFlight < 0 {
		return fmt.Errorf("max_in_flight must not be negative, got %d", config.MaxInFlight)
	}
	if config.MaxPosterPixels <= 0 {
		return fmt.Errorf("max_poster_pixels must be positive, got %d", config.MaxPosterPixels)
	}
	if config.PosterWidth < 4 || config.PosterHeight < 2 {
		return fmt.Errorf("poster size %dx%d is too small", config.PosterWidth, config.PosterHeight)
	}

	return nil
}
