// Package config 从 YAML 文件加载爬虫配置，未填写的字段使用 Default() 中的值
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

var (
	ErrInvalidLogLevel   = errors.New("logging.level must be one of: debug, info, warn, error")
	ErrInvalidTimeout    = errors.New("fetcher timeouts must be positive")
	ErrInvalidBackoff    = errors.New("fetcher.retry_backoff must be positive")
	ErrInvalidDelay      = errors.New("politeness.min_delay must be >= 0 and <= max_delay")
	ErrInvalidRate       = errors.New("politeness.rps and burst must be non-negative")
	ErrInvalidDriver     = errors.New("storage.driver must be 'mysql' or 'memory'")
	ErrMissingDSN        = errors.New("storage.dsn is required for the mysql driver")
	ErrInvalidQuota      = errors.New("server.max_quota must be at least 1")
	ErrMissingServerAddr = errors.New("server.addr is required")
)

const (
	DriverMySQL  = "mysql"
	DriverMemory = "memory"
)

type Config struct {
	Logging    LoggingConfig    `yaml:"logging"`
	Fetcher    FetcherConfig    `yaml:"fetcher"`
	Politeness PolitenessConfig `yaml:"politeness"`
	Storage    StorageConfig    `yaml:"storage"`
	Server     ServerConfig     `yaml:"server"`
	Extract    ExtractConfig    `yaml:"extract"`
	Sites      SitesConfig      `yaml:"sites"`
}

type LoggingConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"` // 为空时输出到 stdout
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

type FetcherConfig struct {
	UserAgent      string        `yaml:"user_agent"`
	ListingTimeout time.Duration `yaml:"listing_timeout"`
	ArticleTimeout time.Duration `yaml:"article_timeout"`
	RetryBackoff   time.Duration `yaml:"retry_backoff"`
	Proxies        []string      `yaml:"proxies"`
}

type PolitenessConfig struct {
	MinDelay time.Duration `yaml:"min_delay"`
	MaxDelay time.Duration `yaml:"max_delay"`
	// RPS 为 0 时不启用令牌桶
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type StorageConfig struct {
	Driver      string `yaml:"driver"`
	DSN         string `yaml:"dsn"`
	Table       string `yaml:"table"`
	CreateTable bool   `yaml:"create_table"`
}

type ServerConfig struct {
	Addr     string `yaml:"addr"`
	MaxQuota int    `yaml:"max_quota"`
}

// ExtractConfig 非空时替换默认的韩文过滤词
type ExtractConfig struct {
	NoiseContains []string `yaml:"noise_contains"`
	NoisePrefixes []string `yaml:"noise_prefixes"`
}

// SitesConfig 覆盖站点根地址，一般只在联调时使用
type SitesConfig struct {
	DaumBaseURL  string `yaml:"daum_base_url"`
	NaverBaseURL string `yaml:"naver_base_url"`
}

func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:      "info",
			MaxSizeMB:  100,
			MaxBackups: 3,
		},
		Fetcher: FetcherConfig{
			ListingTimeout: 15 * time.Second,
			ArticleTimeout: 10 * time.Second,
			RetryBackoff:   5 * time.Second,
		},
		Politeness: PolitenessConfig{
			MinDelay: 200 * time.Millisecond,
			MaxDelay: 600 * time.Millisecond,
			Burst:    1,
		},
		Storage: StorageConfig{
			Driver: DriverMemory,
			Table:  "news",
		},
		Server: ServerConfig{
			Addr:     ":8080",
			MaxQuota: 50,
		},
	}
}

// Load 读取 YAML 并校验，path 为空时直接返回默认配置
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return ErrInvalidLogLevel
	}

	if c.Fetcher.ListingTimeout <= 0 || c.Fetcher.ArticleTimeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.Fetcher.RetryBackoff <= 0 {
		return ErrInvalidBackoff
	}

	if c.Politeness.MinDelay < 0 || c.Politeness.MaxDelay < c.Politeness.MinDelay {
		return ErrInvalidDelay
	}
	if c.Politeness.RPS < 0 || c.Politeness.Burst < 0 {
		return ErrInvalidRate
	}

	switch c.Storage.Driver {
	case DriverMemory:
	case DriverMySQL:
		if c.Storage.DSN == "" {
			return ErrMissingDSN
		}
	default:
		return fmt.Errorf("%w: %q", ErrInvalidDriver, c.Storage.Driver)
	}

	if c.Server.Addr == "" {
		return ErrMissingServerAddr
	}
	if c.Server.MaxQuota < 1 {
		return ErrInvalidQuota
	}
	return nil
}
