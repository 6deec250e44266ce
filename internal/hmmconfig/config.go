// Package hmmconfig loads the ambient configuration for the decode
// service: listen address, log level, and the two tunables the spec
// leaves to the caller, kappa and tau.
package hmmconfig

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// Config is the top-level app configuration, loaded from a single YAML
// file.
type Config struct {
	App AppConfig `yaml:"app"`
	HMM HMMConfig `yaml:"hmm"`
	Log LogConfig `yaml:"log"`
}

// AppConfig holds the HTTP server's own settings.
type AppConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// HMMConfig holds the k-State retention tunables. KappaSteps of -1
// means unbounded length; TauSeconds of 0 means unbounded span.
type HMMConfig struct {
	KappaSteps int `yaml:"kappa_steps"`
	TauSeconds int `yaml:"tau_seconds"`
}

// Tau converts TauSeconds to a time.Duration, mapping 0 to
// kstate.UnboundedDuration's semantics (negative, meaning unbounded).
func (c HMMConfig) Tau() time.Duration {
	if c.TauSeconds <= 0 {
		return -1
	}
	return time.Duration(c.TauSeconds) * time.Second
}

// LogConfig controls the zap logger built in cmd/hmmserver.
type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns the configuration used when no file is supplied.
func Default() Config {
	return Config{
		App: AppConfig{ListenAddr: ":8080"},
		HMM: HMMConfig{KappaSteps: 5, TauSeconds: 0},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads and parses path, falling back to Default for any field
// the file omits.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("hmmconfig: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("hmmconfig: parse %s: %w", path, err)
	}
	return cfg, nil
}
