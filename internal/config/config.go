// Package config handles configuration loading using viper.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"firestige.xyz/ethermirror/internal/iface"
)

// EnvPrefix prefixes every environment override, e.g. ETHERMIRROR_LOG_LEVEL.
const EnvPrefix = "ETHERMIRROR"

// Config is the complete static configuration.
type Config struct {
	Interface string        `mapstructure:"interface" yaml:"interface"` // logical name, see iface.Names
	Capture   CaptureConfig `mapstructure:"capture" yaml:"capture"`
	Log       LogConfig     `mapstructure:"log" yaml:"log"`
	Metrics   MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// ─── Capture ───

// CaptureConfig selects and tunes the datalink channel backend.
type CaptureConfig struct {
	Backend      string `mapstructure:"backend" yaml:"backend"`               // pcap | afpacket
	SnapLen      int    `mapstructure:"snap_len" yaml:"snap_len"`             // 最大抓取长度
	Promiscuous  bool   `mapstructure:"promiscuous" yaml:"promiscuous"`       // pcap only
	BufferSizeMB int    `mapstructure:"buffer_size_mb" yaml:"buffer_size_mb"` // 内核缓冲区/环形缓冲区大小
	Socket       string `mapstructure:"socket" yaml:"socket"`                 // afpacket only: raw | dgram
	InboundOnly  bool   `mapstructure:"inbound_only" yaml:"inbound_only"`     // 不抓本机发出的帧
}

// ─── Log ───

// LogConfig configures the console and file sinks.
type LogConfig struct {
	Level     string         `mapstructure:"level" yaml:"level"` // debug / info / warn / error
	Dir       string         `mapstructure:"dir" yaml:"dir"`
	QueueSize int            `mapstructure:"queue_size" yaml:"queue_size"`
	Rotation  RotationConfig `mapstructure:"rotation" yaml:"rotation"`
}

// RotationConfig is handed to lumberjack as-is.
type RotationConfig struct {
	MaxSizeMB  int  `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int  `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAgeDays int  `mapstructure:"max_age_days" yaml:"max_age_days"`
	Compress   bool `mapstructure:"compress" yaml:"compress"`
}

// ─── Metrics ───

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Listen  string `mapstructure:"listen" yaml:"listen"`
	Path    string `mapstructure:"path" yaml:"path"`
}

// Load reads the optional YAML file at path, applies ETHERMIRROR_* env
// overrides and defaults, and validates the result. An empty path means
// defaults plus environment only.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// key "log.level" → env "ETHERMIRROR_LOG_LEVEL"
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.ValidateAndApplyDefaults(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// setDefaults registers every key so AutomaticEnv can see it during Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("interface", iface.Default.Logical())

	// Capture defaults
	v.SetDefault("capture.backend", "pcap")
	v.SetDefault("capture.snap_len", 65536)
	v.SetDefault("capture.promiscuous", true)
	v.SetDefault("capture.buffer_size_mb", 8)
	v.SetDefault("capture.socket", "raw")
	v.SetDefault("capture.inbound_only", true)

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.dir", "logs")
	v.SetDefault("log.queue_size", 1024)
	v.SetDefault("log.rotation.max_size_mb", 100)
	v.SetDefault("log.rotation.max_backups", 5)
	v.SetDefault("log.rotation.max_age_days", 30)
	v.SetDefault("log.rotation.compress", false)

	// Metrics defaults
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.listen", ":9091")
	v.SetDefault("metrics.path", "/metrics")
}

// ValidateAndApplyDefaults validates configuration and fills runtime defaults.
func (cfg *Config) ValidateAndApplyDefaults() error {
	// ── Interface ──
	if _, err := iface.Parse(cfg.Interface); err != nil {
		return fmt.Errorf("invalid interface %q (must be one of %s): %w",
			cfg.Interface, strings.Join(iface.Names(), "/"), err)
	}

	// ── Capture ──
	cfg.Capture.Backend = strings.ToLower(cfg.Capture.Backend)
	if cfg.Capture.Backend != "pcap" && cfg.Capture.Backend != "afpacket" {
		return fmt.Errorf("invalid capture.backend: %s (must be pcap/afpacket)", cfg.Capture.Backend)
	}
	if cfg.Capture.SnapLen <= 0 {
		return fmt.Errorf("capture.snap_len must be positive, got %d", cfg.Capture.SnapLen)
	}
	if cfg.Capture.BufferSizeMB <= 0 {
		return fmt.Errorf("capture.buffer_size_mb must be positive, got %d", cfg.Capture.BufferSizeMB)
	}
	if cfg.Capture.Socket != "raw" && cfg.Capture.Socket != "dgram" {
		return fmt.Errorf("invalid capture.socket: %s (must be raw/dgram)", cfg.Capture.Socket)
	}

	// ── Log ──
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Log.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug/info/warn/error)", cfg.Log.Level)
	}
	if cfg.Log.Dir == "" {
		cfg.Log.Dir = "logs"
	}
	if cfg.Log.QueueSize <= 0 {
		cfg.Log.QueueSize = 1024
	}

	// ── Metrics ──
	if cfg.Metrics.Enabled && cfg.Metrics.Listen == "" {
		return fmt.Errorf("metrics.listen is required when metrics.enabled=true")
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}

	return nil
}
