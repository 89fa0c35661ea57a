// Package config loads the duckpane configuration from a yaml or toml file.
// Every value is range-checked on load; invalid values fall back to their
// documented defaults with a warning instead of failing startup.
package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/ptrkhr/duckpane/pkg/formatter"
)

// documented defaults, applied for missing or invalid values
const (
	DefaultFormat       = formatter.Table
	DefaultPageSize     = 100
	DefaultHistoryLimit = 50
	DefaultSchemaTTL    = time.Minute
	DefaultBinary       = "duckdb"
)

// Config defines the full configuration surface.
type Config struct {
	Format       string `yaml:"format" toml:"format"`               // default display format: table, csv or jsonl
	PageSize     int    `yaml:"page_size" toml:"page_size"`         // default page size for paginated execution
	HistoryLimit int    `yaml:"history_limit" toml:"history_limit"` // max queries kept in history
	SchemaTTL    string `yaml:"schema_ttl" toml:"schema_ttl"`       // staleness interval for cached introspection, e.g. "60s"
	Binary       string `yaml:"binary" toml:"binary"`               // duckdb binary
	Database     string `yaml:"database" toml:"database"`           // database file or connection string

	format    formatter.Format
	schemaTTL time.Duration
}

// Overrides defines values passed from the cli, applied on top of the file.
type Overrides struct {
	Format   string
	PageSize int
	Binary   string
	Database string
}

// New loads the config file, applies overrides and validates. A missing file
// is fine, defaults are used. Validation never fails startup; every rejected
// value is logged and replaced with its default.
func New(fname string, overrides *Overrides) (*Config, error) {
	res := &Config{}

	data, err := os.ReadFile(fname) // nolint
	if err != nil {
		log.Printf("[DEBUG] no config file %s found", fname)
	} else {
		if err := unmarshalConfigFile(fname, data, res); err != nil {
			return nil, fmt.Errorf("can't unmarshal config %s: %w", fname, err)
		}
		log.Printf("[INFO] config loaded from %s", fname)
	}

	if overrides != nil {
		if overrides.Format != "" {
			res.Format = overrides.Format
		}
		if overrides.PageSize != 0 {
			res.PageSize = overrides.PageSize
		}
		if overrides.Binary != "" {
			res.Binary = overrides.Binary
		}
		if overrides.Database != "" {
			res.Database = overrides.Database
		}
	}

	if issues := res.checkConfig(); issues != nil {
		log.Printf("[WARN] config has invalid values, defaults used: %v", issues)
	}
	return res, nil
}

// DisplayFormat returns the validated default format.
func (c *Config) DisplayFormat() formatter.Format { return c.format }

// SchemaStaleness returns the validated introspection cache ttl.
func (c *Config) SchemaStaleness() time.Duration { return c.schemaTTL }

// checkConfig range-checks every value, resetting rejected ones to defaults.
// Returns the collected issues for reporting, nil if everything was valid.
func (c *Config) checkConfig() error {
	var result *multierror.Error

	if c.Format == "" {
		c.format = DefaultFormat
	} else {
		f, err := formatter.ParseFormat(c.Format)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("format: %w", err))
			f = DefaultFormat
		}
		c.format = f
	}
	c.Format = string(c.format)

	if c.PageSize == 0 {
		c.PageSize = DefaultPageSize
	} else if c.PageSize < 1 || c.PageSize > 100000 {
		result = multierror.Append(result, fmt.Errorf("page_size %d outside [1, 100000]", c.PageSize))
		c.PageSize = DefaultPageSize
	}

	if c.HistoryLimit == 0 {
		c.HistoryLimit = DefaultHistoryLimit
	} else if c.HistoryLimit < 1 || c.HistoryLimit > 10000 {
		result = multierror.Append(result, fmt.Errorf("history_limit %d outside [1, 10000]", c.HistoryLimit))
		c.HistoryLimit = DefaultHistoryLimit
	}

	if c.SchemaTTL == "" {
		c.schemaTTL = DefaultSchemaTTL
	} else {
		ttl, err := time.ParseDuration(c.SchemaTTL)
		if err != nil || ttl < 0 {
			result = multierror.Append(result, fmt.Errorf("schema_ttl %q is not a valid non-negative duration", c.SchemaTTL))
			ttl = DefaultSchemaTTL
		}
		c.schemaTTL = ttl
	}
	c.SchemaTTL = c.schemaTTL.String()

	if c.Binary == "" {
		c.Binary = DefaultBinary
	}

	return result.ErrorOrNil()
}

// unmarshalConfigFile parses the config from data. Format is guessed by file
// extension, with a fallback to the other format when parsing fails.
func unmarshalConfigFile(fname string, data []byte, res *Config) error {
	unmarshal := func(primary bool) error {
		tomlFirst := strings.HasSuffix(fname, ".toml")
		if tomlFirst == primary {
			return toml.Unmarshal(data, res)
		}
		return yaml.Unmarshal(data, res)
	}

	if err := unmarshal(true); err != nil {
		if e := unmarshal(false); e != nil {
			return err // report the primary format's error
		}
	}
	return nil
}
