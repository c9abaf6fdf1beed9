// Package config loads typed configuration from the environment, optionally
// seeded from an env file. Struct tags follow the envconfig conventions;
// pass a prefix to namespace the variables (prefix "DIALCORE" maps the
// field PollInterval to DIALCORE_POLL_INTERVAL).
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

var (
	envFilePath string
	parseOnce   sync.Once
)

// MustNew loads T from the environment and panics on failure. Intended for
// main() wiring where a bad config should stop the process.
func MustNew[T any](prefix string) *T {
	conf, err := New[T](prefix)
	if err != nil {
		panic(err)
	}
	return conf
}

// New loads T from the environment. When the -env flag points at an env
// file, or a .env file exists in the working directory, its values are
// exported first so envconfig sees them.
func New[T any](prefix string) (*T, error) {
	filepath := resolveEnvPath()
	if filepath != "" {
		if err := exportEnvironment(filepath); err != nil {
			return nil, fmt.Errorf("failed to load env file: %w", err)
		}
	} else if err := exportEnvironmentIfExists(".env"); err != nil {
		return nil, fmt.Errorf("failed to load default env file: %w", err)
	}

	var conf T
	if err := envconfig.Process(prefix, &conf); err != nil {
		return nil, err
	}
	return &conf, nil
}

func resolveEnvPath() string {
	parseOnce.Do(func() {
		if flag.Lookup("env") == nil {
			flag.StringVar(&envFilePath, "env", "", "path to .env file")
		}
		if !flag.Parsed() {
			flag.Parse()
		}
	})
	return strings.TrimSpace(envFilePath)
}

func exportEnvironmentIfExists(filepath string) error {
	info, err := os.Stat(filepath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if info.IsDir() {
		return nil
	}
	return exportEnvironment(filepath)
}

func exportEnvironment(filepath string) error {
	viper.SetConfigFile(filepath)
	if err := viper.ReadInConfig(); err != nil {
		return err
	}
	for k, v := range viper.AllSettings() {
		if err := os.Setenv(strings.ToUpper(k), fmt.Sprint(v)); err != nil {
			return err
		}
	}
	return nil
}

// Engine is the top-level configuration for the orchestration engine.
type Engine struct {
	// Timezone anchors calling windows and the daily quota reset.
	Timezone string `split_words:"true" default:"America/Chicago"`

	PollInterval    time.Duration `split_words:"true" default:"2s"`
	MaxCallDuration time.Duration `split_words:"true" default:"10m"`
	CooldownPeriod  time.Duration `split_words:"true" default:"45s"`

	// RelayURL enables the workflow-automation relay when set.
	RelayURL   string `split_words:"true"`
	RelayToken string `split_words:"true"`

	// DatabaseDSN selects the PostgreSQL CRM store when set; otherwise the
	// in-memory store is used.
	DatabaseDSN string `split_words:"true"`

	LogLevel  string `split_words:"true" default:"info"`
	LogFormat string `split_words:"true" default:"json"`
}
