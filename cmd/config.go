// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// Config represents the optional YAML file named by --config.
// Pointer fields distinguish "not set" from zero values.
type Config struct {
	Port          string `yaml:"port"`
	Baud          *int   `yaml:"baud"`
	URL           string `yaml:"url"`
	Username      string `yaml:"username"`
	NoSSLVerify   *bool  `yaml:"no_ssl_verify"`
	UDP           string `yaml:"udp"`
	File          string `yaml:"file"`
	LogLevel      string `yaml:"log_level"`
	MetricsAddr   string `yaml:"metrics_addr"`
	StatsInterval *int   `yaml:"stats_interval"`
	ShowAll       *bool  `yaml:"show_all"`
	TUI           *bool  `yaml:"tui"`
}

// LoadConfig reads and parses the config file at path
func LoadConfig(path string) (Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Apply sets every flag in fs that the config provides and the command line
// did not. Flags the command does not define are skipped.
func (c Config) Apply(fs *pflag.FlagSet) {
	set := func(name, value string) {
		f := fs.Lookup(name)
		if f == nil || f.Changed {
			return
		}
		// Set marks the flag changed, so a later Apply will not override it
		_ = fs.Set(name, value)
	}
	setString := func(name, value string) {
		if value != "" {
			set(name, value)
		}
	}
	setInt := func(name string, value *int) {
		if value != nil {
			set(name, strconv.Itoa(*value))
		}
	}
	setBool := func(name string, value *bool) {
		if value != nil {
			set(name, strconv.FormatBool(*value))
		}
	}

	setString("port", c.Port)
	setInt("baud", c.Baud)
	setString("url", c.URL)
	setString("username", c.Username)
	setBool("no-ssl-verify", c.NoSSLVerify)
	setString("udp", c.UDP)
	setString("file", c.File)
	setString("log-level", c.LogLevel)
	setString("metrics-addr", c.MetricsAddr)
	setInt("stats-interval", c.StatsInterval)
	setBool("show-all", c.ShowAll)
	setBool("tui", c.TUI)
}
