package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// Config is the optional YAML config file. Command-line flags override it.
//
//	prefixes:
//	  ex: "http://www.example.org/#"
//	db: ./closure.db
//	rules: ./rules
//	max_rounds: 128
//	parallel: 4
type Config struct {
	Prefixes  map[string]string `yaml:"prefixes,omitempty"`
	DB        string            `yaml:"db,omitempty"`
	Rules     string            `yaml:"rules,omitempty"`
	MaxRounds int               `yaml:"max_rounds,omitempty"`
	Parallel  int               `yaml:"parallel,omitempty"`
}

// LoadConfig reads and validates a config file. Relative db and rules
// paths are resolved against the file's directory.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if cfg.MaxRounds < 0 {
		return nil, fmt.Errorf("max_rounds must be non-negative")
	}
	if cfg.Parallel < 0 {
		return nil, fmt.Errorf("parallel must be non-negative")
	}
	for prefix, ns := range cfg.Prefixes {
		if prefix == "" || ns == "" {
			return nil, fmt.Errorf("prefixes: empty prefix or namespace")
		}
	}

	base := filepath.Dir(path)
	for _, p := range []*string{&cfg.DB, &cfg.Rules} {
		if *p != "" && *p != ":memory:" && !filepath.IsAbs(*p) {
			*p = filepath.Join(base, *p)
		}
	}
	return &cfg, nil
}

// Apply copies config values into opts for every flag the user did not set.
func (c *Config) Apply(opts *RootOptions, flags *pflag.FlagSet) {
	if len(c.Prefixes) > 0 {
		opts.Prefixes = c.Prefixes
	}
	if c.DB != "" && !flags.Changed("db") {
		opts.DB = c.DB
	}
	if c.Rules != "" && !flags.Changed("rules") {
		opts.Rules = c.Rules
	}
	if c.MaxRounds > 0 && !flags.Changed("max-rounds") {
		opts.MaxRounds = c.MaxRounds
	}
	if c.Parallel > 0 && !flags.Changed("parallel") {
		opts.Parallel = c.Parallel
	}
}
