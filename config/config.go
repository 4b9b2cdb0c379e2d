// Package config loads telepipe's configuration surface from a YAML file,
// environment variables, and an optional local .env override, using
// spf13/viper for layered resolution and joho/godotenv for the .env file -
// the same combination cc-backend and go-coffee use for service config.
/*
 * Copyright (c) 2018-2023, NVIDIA CORPORATION. All rights reserved.
 */
package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the full configuration surface, grouped by owning component.
type Config struct {
	Router struct {
		QueueSize     int  `mapstructure:"queue_size"`
		WorkerThreads int  `mapstructure:"worker_threads"` // 0 == auto
		BatchSize     int  `mapstructure:"batch_size"`
		MaxLatencyMs  int  `mapstructure:"max_latency_ms"`
		MaintainOrder bool `mapstructure:"maintain_order"`
	} `mapstructure:"router"`

	Dispatcher struct {
		BackPressureEnabled   bool `mapstructure:"back_pressure_enabled"`
		BackPressureThreshold int  `mapstructure:"back_pressure_threshold"`
		MaxSources            int  `mapstructure:"max_sources"`
	} `mapstructure:"dispatcher"`

	Processor struct {
		EnableExtraction bool `mapstructure:"enable_extraction"`
		EnableTransform  bool `mapstructure:"enable_transformation"`
		EnableStatistics bool `mapstructure:"enable_statistics"`
		Parallel         bool `mapstructure:"parallel"`
		CacheResults     bool `mapstructure:"cache_results"`
		MaxCacheSize     int  `mapstructure:"max_cache_size"`
	} `mapstructure:"processor"`

	Statistics struct {
		WindowSize       int `mapstructure:"window_size"`
		TimeWindowMs     int `mapstructure:"time_window_ms"`
		UpdateIntervalMs int `mapstructure:"update_interval_ms"`
	} `mapstructure:"statistics"`

	Metrics struct {
		ListenAddr string `mapstructure:"listen_addr"`
	} `mapstructure:"metrics"`

	Sources struct {
		UDP []UDPSourceConfig `mapstructure:"udp"`
		TCP []TCPSourceConfig `mapstructure:"tcp"`
	} `mapstructure:"sources"`

	LogDir string `mapstructure:"log_dir"`
}

// UDPSourceConfig names one UDP listener to register at startup.
type UDPSourceConfig struct {
	Name string `mapstructure:"name"`
	Addr string `mapstructure:"addr"`
}

// TCPSourceConfig names one TCP listener to register at startup.
type TCPSourceConfig struct {
	Name string `mapstructure:"name"`
	Addr string `mapstructure:"addr"`
}

// Defaults returns telepipe's baseline configuration.
func Defaults() Config {
	var c Config
	c.Router.QueueSize = 10000
	c.Router.WorkerThreads = 0
	c.Router.BatchSize = 100
	c.Router.MaxLatencyMs = 5
	c.Router.MaintainOrder = false

	c.Dispatcher.BackPressureEnabled = true
	c.Dispatcher.BackPressureThreshold = 8000
	c.Dispatcher.MaxSources = 100

	c.Processor.EnableExtraction = true
	c.Processor.EnableTransform = true
	c.Processor.EnableStatistics = true
	c.Processor.Parallel = true
	c.Processor.CacheResults = false
	c.Processor.MaxCacheSize = 1000

	c.Statistics.WindowSize = 1000
	c.Statistics.TimeWindowMs = 60000
	c.Statistics.UpdateIntervalMs = 1000

	c.Metrics.ListenAddr = ":9090"
	c.Sources.UDP = []UDPSourceConfig{{Name: "udp0", Addr: ":9999"}}
	c.LogDir = "."
	return c
}

// Load resolves configuration in ascending priority: built-in defaults,
// then configPath (if non-empty and present), then a local .env file (if
// present), then TELEPIPE_-prefixed environment variables.
func Load(configPath string) (Config, error) {
	defaults := Defaults()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("telepipe")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v, defaults)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !errors.Is(err, fs.ErrNotExist) {
				return Config{}, err
			}
		}
	}

	// Local .env overrides, loaded best-effort: a missing file is not an
	// error, it just means there is nothing to override with.
	_ = godotenv.Load()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("router.queue_size", d.Router.QueueSize)
	v.SetDefault("router.worker_threads", d.Router.WorkerThreads)
	v.SetDefault("router.batch_size", d.Router.BatchSize)
	v.SetDefault("router.max_latency_ms", d.Router.MaxLatencyMs)
	v.SetDefault("router.maintain_order", d.Router.MaintainOrder)

	v.SetDefault("dispatcher.back_pressure_enabled", d.Dispatcher.BackPressureEnabled)
	v.SetDefault("dispatcher.back_pressure_threshold", d.Dispatcher.BackPressureThreshold)
	v.SetDefault("dispatcher.max_sources", d.Dispatcher.MaxSources)

	v.SetDefault("processor.enable_extraction", d.Processor.EnableExtraction)
	v.SetDefault("processor.enable_transformation", d.Processor.EnableTransform)
	v.SetDefault("processor.enable_statistics", d.Processor.EnableStatistics)
	v.SetDefault("processor.parallel", d.Processor.Parallel)
	v.SetDefault("processor.cache_results", d.Processor.CacheResults)
	v.SetDefault("processor.max_cache_size", d.Processor.MaxCacheSize)

	v.SetDefault("statistics.window_size", d.Statistics.WindowSize)
	v.SetDefault("statistics.time_window_ms", d.Statistics.TimeWindowMs)
	v.SetDefault("statistics.update_interval_ms", d.Statistics.UpdateIntervalMs)

	v.SetDefault("metrics.listen_addr", d.Metrics.ListenAddr)
	v.SetDefault("sources.udp", d.Sources.UDP)
	v.SetDefault("sources.tcp", d.Sources.TCP)
	v.SetDefault("log_dir", d.LogDir)
}

// UpdateInterval is a convenience conversion of the statistics tick.
func (c Config) UpdateInterval() time.Duration {
	return time.Duration(c.Statistics.UpdateIntervalMs) * time.Millisecond
}
