// Copyright (c) 2026 The DS1054Z-screen-capture developers. All rights reserved.
// Project site: https://github.com/Kalofin/DS1054Z-screen-capture
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

// Package config loads the capture tool's YAML settings.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Scope   ScopeConfig   `yaml:"scope"`
	Output  OutputConfig  `yaml:"output"`
	Log     LogConfig     `yaml:"log"`
	Metrics MetricsConfig `yaml:"metrics"`
}

type ScopeConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	Telnet       bool          `yaml:"telnet"`
	Wait         time.Duration `yaml:"wait"`
	ReadyTimeout time.Duration `yaml:"ready_timeout"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
}

type OutputConfig struct {
	Format string `yaml:"format"`
	Path   string `yaml:"path"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

type MetricsConfig struct {
	Textfile string `yaml:"textfile"`
}

// Default returns the settings used when no file is given.
func Default() *Config {
	return &Config{
		Scope: ScopeConfig{
			Host:        "192.168.1.60",
			Port:        5555,
			Wait:        time.Second,
			DialTimeout: 5 * time.Second,
		},
		Output: OutputConfig{
			Format: "clip",
			Path:   "captures",
		},
		Log: LogConfig{
			Level:  "error",
			Format: "text",
			File:   "ds1000z-grab.log",
		},
	}
}

// Load reads path over the defaults, so a file only needs the keys it changes.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if cfg.Scope.Wait <= 0 {
		return nil, fmt.Errorf("config %s: scope.wait must be positive", path)
	}
	return cfg, nil
}
