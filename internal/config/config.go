// Package config provides the stanza.yaml configuration, its defaults and
// the loading of route declaration files.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/aretw0/stanza/pkg/adapters/process"
	"github.com/aretw0/stanza/pkg/domain"
	"github.com/aretw0/stanza/pkg/registry"
	"github.com/aretw0/stanza/pkg/route"
	"gopkg.in/yaml.v3"
)

// DefaultFile is the configuration file looked up in the working directory.
const DefaultFile = "stanza.yaml"

// Store drivers.
const (
	DriverMemory = "memory"
	DriverFile   = "file"
	DriverRedis  = "redis"
)

// Config is the root of stanza.yaml.
type Config struct {
	Matching   MatchingConfig          `yaml:"matching"`
	Validation ValidationConfig        `yaml:"validation"`
	Runner     RunnerConfig            `yaml:"runner"`
	Store      StoreConfig             `yaml:"store"`
	Tools      []process.ProcessConfig `yaml:"tools"`
	Routes     []string                `yaml:"routes"`
	Variables  map[string]string       `yaml:"variables"`

	// Dir is the directory relative paths are resolved against.
	Dir string `yaml:"-"`
}

// MatchingConfig controls route compilation and search.
type MatchingConfig struct {
	Delimiter       string `yaml:"delimiter"`
	EscapeConstants *bool  `yaml:"escape_constants"`
	Strategy        string `yaml:"strategy"`
}

// ValidationConfig controls how routing and invocation failures are treated.
type ValidationConfig struct {
	StrictScenario    bool   `yaml:"strict_scenario"`
	SeverityThreshold string `yaml:"severity_threshold"`
}

// RunnerConfig controls scenario execution.
type RunnerConfig struct {
	Workers       int           `yaml:"workers"`
	StopOnFailure bool          `yaml:"stop_on_failure"`
	Lock          string        `yaml:"lock"`
	LockTTL       time.Duration `yaml:"lock_ttl"`
}

// StoreConfig selects where run results are kept.
type StoreConfig struct {
	Driver string `yaml:"driver"`
	// Path is the directory of the file driver.
	Path  string      `yaml:"path"`
	Redis RedisConfig `yaml:"redis"`
	// Redact lists regular expressions masked in stored keywords and errors.
	Redact []string `yaml:"redact"`
}

// RedisConfig configures the Redis store, reporter and locker.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	Prefix   string        `yaml:"prefix"`
	TTL      time.Duration `yaml:"ttl"`
	Stream   string        `yaml:"stream"`
}

// Defaults returns the configuration used when no file is present.
func Defaults() Config {
	escape := true
	return Config{
		Matching: MatchingConfig{
			Delimiter:       route.DelimiterTab.String(),
			EscapeConstants: &escape,
			Strategy:        registry.StrategyStrict.String(),
		},
		Validation: ValidationConfig{
			SeverityThreshold: domain.SeverityMajor.String(),
		},
		Runner: RunnerConfig{
			Workers: 4,
			LockTTL: 10 * time.Minute,
		},
		Store: StoreConfig{
			Driver: DriverMemory,
			Redis: RedisConfig{
				Addr:   "localhost:6379",
				Prefix: "stanza:",
			},
		},
		Dir: ".",
	}
}

// Load reads the configuration at path over the defaults. An empty path
// loads DefaultFile when it exists and the defaults otherwise.
func Load(path string) (Config, error) {
	cfg := Defaults()
	if path == "" {
		if _, err := os.Stat(DefaultFile); err != nil {
			return cfg, nil
		}
		path = DefaultFile
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	cfg.Dir = filepath.Dir(path)

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks every enumerated value.
func (c Config) Validate() error {
	var errs []error
	if _, err := c.RouteConfig(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.Strategy(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.SeverityThreshold(); err != nil {
		errs = append(errs, err)
	}
	if c.Runner.Workers < 0 {
		errs = append(errs, fmt.Errorf("runner.workers must not be negative, got %d", c.Runner.Workers))
	}
	switch c.Store.Driver {
	case "", DriverMemory, DriverFile:
	case DriverRedis:
		if c.Store.Redis.Addr == "" {
			errs = append(errs, errors.New("store.redis.addr is required for the redis driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store driver %q", c.Store.Driver))
	}
	for _, p := range c.Store.Redact {
		if _, err := regexp.Compile(p); err != nil {
			errs = append(errs, fmt.Errorf("store.redact: %w", err))
		}
	}
	seen := make(map[string]bool, len(c.Tools))
	for _, t := range c.Tools {
		if t.Name == "" || t.Command == "" {
			errs = append(errs, fmt.Errorf("tool %q needs a name and a command", t.Name))
		}
		if seen[t.Name] {
			errs = append(errs, fmt.Errorf("duplicate tool %q", t.Name))
		}
		seen[t.Name] = true
	}
	return errors.Join(errs...)
}

// RouteConfig returns the route compilation settings.
func (c Config) RouteConfig() (route.Config, error) {
	mode, err := route.ParseDelimiterMode(c.Matching.Delimiter)
	if err != nil {
		return route.Config{}, err
	}
	escape := true
	if c.Matching.EscapeConstants != nil {
		escape = *c.Matching.EscapeConstants
	}
	return route.Config{Delimiter: mode, EscapeConstants: escape}, nil
}

// Strategy returns the route search strategy.
func (c Config) Strategy() (registry.Strategy, error) {
	return registry.ParseStrategy(c.Matching.Strategy)
}

// SeverityThreshold returns the severity at which invocation failures stop a scenario.
func (c Config) SeverityThreshold() (domain.Severity, error) {
	if c.Validation.SeverityThreshold == "" {
		return domain.SeverityMajor, nil
	}
	return domain.ParseSeverity(c.Validation.SeverityThreshold)
}

// Resolve returns path relative to the configuration directory.
func (c Config) Resolve(path string) string {
	if filepath.IsAbs(path) || c.Dir == "" {
		return path
	}
	return filepath.Join(c.Dir, path)
}
